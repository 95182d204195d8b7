package sheet

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestXLSX(t *testing.T) *XLSXStore {
	t.Helper()
	return NewXLSX(filepath.Join(t.TempDir(), "test.xlsx"))
}

func TestXLSXStore_MissingFileReadsEmpty(t *testing.T) {
	st := newTestXLSX(t)

	out, err := st.ReadAll(context.Background(), "People")
	require.NoError(t, err)
	assert.True(t, out.Empty())
}

func TestXLSXStore_RoundTrip(t *testing.T) {
	st := newTestXLSX(t)
	ctx := context.Background()

	in := &Table{
		Header: []string{"Name", "City"},
		Rows: []Row{
			{"Name": "Asha", "City": "Pune"},
			{"Name": "Ravi", "City": "Delhi"},
		},
	}
	require.NoError(t, st.WriteAll(ctx, "People", in))

	out, err := st.ReadAll(ctx, "People")
	require.NoError(t, err)
	assert.Equal(t, in.Header, out.Header)
	assert.Equal(t, in.Rows, out.Rows)
}

func TestXLSXStore_MultipleSheetsSurviveWrites(t *testing.T) {
	st := newTestXLSX(t)
	ctx := context.Background()

	require.NoError(t, st.WriteAll(ctx, "People", &Table{
		Header: []string{"Name"},
		Rows:   []Row{{"Name": "Asha"}},
	}))
	require.NoError(t, st.WriteAll(ctx, "Cities", &Table{
		Header: []string{"City"},
		Rows:   []Row{{"City": "Pune"}},
	}))
	require.NoError(t, st.WriteAll(ctx, "People", &Table{
		Header: []string{"Name"},
		Rows:   []Row{{"Name": "Ravi"}},
	}))

	cities, err := st.ReadAll(ctx, "Cities")
	require.NoError(t, err)
	require.Len(t, cities.Rows, 1)
	assert.Equal(t, "Pune", cities.Rows[0]["City"])

	people, err := st.ReadAll(ctx, "People")
	require.NoError(t, err)
	require.Len(t, people.Rows, 1)
	assert.Equal(t, "Ravi", people.Rows[0]["Name"])
}

func TestXLSXStore_AppendAlignsToLiveHeader(t *testing.T) {
	st := newTestXLSX(t)
	ctx := context.Background()

	require.NoError(t, st.WriteAll(ctx, "People", &Table{
		Header: []string{"Name", "Remark"},
		Rows:   []Row{{"Name": "Asha", "Remark": "kept"}},
	}))
	require.NoError(t, st.Append(ctx, "People", &Table{
		Header: []string{"Name", "City"},
		Rows:   []Row{{"Name": "Ravi", "City": "Pune"}},
	}))

	out, err := st.ReadAll(ctx, "People")
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Remark"}, out.Header)
	require.Len(t, out.Rows, 2)
	assert.Equal(t, "", out.Rows[1]["Remark"])
}

func TestXLSXStore_UpdateCells(t *testing.T) {
	st := newTestXLSX(t)
	ctx := context.Background()

	require.NoError(t, st.WriteAll(ctx, "People", &Table{
		Header: []string{"Name", "Status"},
		Rows:   []Row{{"Name": "Asha"}, {"Name": "Ravi"}},
	}))
	require.NoError(t, st.UpdateCells(ctx, "People", []CellUpdate{
		{Row: 1, Column: "Status", Value: "done"},
	}))

	out, err := st.ReadAll(ctx, "People")
	require.NoError(t, err)
	assert.Equal(t, "done", out.Rows[0]["Status"])
	assert.Equal(t, "", out.Rows[1]["Status"])
}

func TestXLSXStore_UpdateCellsMissingTab(t *testing.T) {
	st := newTestXLSX(t)
	ctx := context.Background()

	require.NoError(t, st.WriteAll(ctx, "People", &Table{Header: []string{"Name"}}))

	err := st.UpdateCells(ctx, "Missing", []CellUpdate{{Row: 1, Column: "X", Value: "y"}})
	assert.ErrorIs(t, err, ErrTabNotFound)
}

func TestXLSXStore_EnsureColumn(t *testing.T) {
	st := newTestXLSX(t)
	ctx := context.Background()

	require.NoError(t, st.WriteAll(ctx, "People", &Table{
		Header: []string{"Name"},
		Rows:   []Row{{"Name": "Asha"}},
	}))

	idx, err := st.EnsureColumn(ctx, "People", "Status")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	out, err := st.ReadAll(ctx, "People")
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Status"}, out.Header)
}
