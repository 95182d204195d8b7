package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admitguard/admitguard/internal/model"
	"github.com/admitguard/admitguard/internal/sheet"
)

func seedAccepted(st *sheet.MemoryStore, emails ...string) {
	rows := make([]sheet.Row, 0, len(emails))
	for i, email := range emails {
		r := rawRow("Person"+string(rune('A'+i)), email, "9876543210", "111111111111")
		r[model.ColProcessedAt] = clockStamp
		rows = append(rows, r)
	}
	st.Seed(DefaultTabs().Accepted, &sheet.Table{
		Header: append(rawHeader(), model.ColProcessedAt),
		Rows:   rows,
	})
}

func seedScores(st *sheet.MemoryStore, pairs ...[2]string) {
	rows := make([]sheet.Row, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, sheet.Row{model.ColScoreEmail: p[0], model.ColTestScore: p[1]})
	}
	st.Seed(DefaultTabs().Scores, &sheet.Table{
		Header: []string{model.ColScoreEmail, model.ColTestScore},
		Rows:   rows,
	})
}

func TestMergeScores_LeftJoinByEmail(t *testing.T) {
	st := sheet.NewMemory()
	ctx := context.Background()

	seedAccepted(st, "a@example.com", "b@example.com")
	seedScores(st, [2]string{"a@example.com", "82.5"})

	run := model.NewRunRecord(clock)
	require.NoError(t, newTestPipeline(st).MergeScores(ctx, run))

	accepted, err := st.ReadAll(ctx, DefaultTabs().Accepted)
	require.NoError(t, err)
	assert.Contains(t, accepted.Header, model.ColTestScore)
	assert.Equal(t, "82.5", accepted.Rows[0][model.ColTestScore])
	assert.Equal(t, "", accepted.Rows[1][model.ColTestScore])
	assert.Empty(t, run.Errors)
}

func TestMergeScores_DuplicateKeepsHighest(t *testing.T) {
	st := sheet.NewMemory()
	ctx := context.Background()

	seedAccepted(st, "a@example.com")
	seedScores(st,
		[2]string{"a@example.com", "70"},
		[2]string{"A@Example.com", "91"},
		[2]string{"a@example.com", "65"},
	)

	run := model.NewRunRecord(clock)
	require.NoError(t, newTestPipeline(st).MergeScores(ctx, run))

	accepted, _ := st.ReadAll(ctx, DefaultTabs().Accepted)
	assert.Equal(t, "91", accepted.Rows[0][model.ColTestScore])
}

func TestMergeScores_InvalidScoresDroppedWithDiagnostic(t *testing.T) {
	st := sheet.NewMemory()
	ctx := context.Background()

	seedAccepted(st, "a@example.com", "b@example.com")
	seedScores(st,
		[2]string{"a@example.com", "absent"},
		[2]string{"a@example.com", "120"},
		[2]string{"b@example.com", "-5"},
		[2]string{"b@example.com", "88"},
	)

	run := model.NewRunRecord(clock)
	require.NoError(t, newTestPipeline(st).MergeScores(ctx, run))

	assert.Contains(t, run.Errors, "3 invalid test score(s) found")

	accepted, _ := st.ReadAll(ctx, DefaultTabs().Accepted)
	assert.Equal(t, "", accepted.Rows[0][model.ColTestScore])
	assert.Equal(t, "88", accepted.Rows[1][model.ColTestScore])
}

func TestMergeScores_OrphanScoreIsNotAnError(t *testing.T) {
	st := sheet.NewMemory()
	ctx := context.Background()

	seedAccepted(st, "a@example.com")
	seedScores(st,
		[2]string{"a@example.com", "60"},
		[2]string{"nobody@example.com", "95"},
	)

	run := model.NewRunRecord(clock)
	require.NoError(t, newTestPipeline(st).MergeScores(ctx, run))
	assert.Empty(t, run.Errors)
}

func TestMergeScores_RerunReplacesStaleScores(t *testing.T) {
	st := sheet.NewMemory()
	ctx := context.Background()

	seedAccepted(st, "a@example.com")
	seedScores(st, [2]string{"a@example.com", "50"})

	p := newTestPipeline(st)
	require.NoError(t, p.MergeScores(ctx, model.NewRunRecord(clock)))

	seedScores(st, [2]string{"a@example.com", "75"})
	require.NoError(t, p.MergeScores(ctx, model.NewRunRecord(clock)))

	accepted, _ := st.ReadAll(ctx, DefaultTabs().Accepted)
	assert.Equal(t, "75", accepted.Rows[0][model.ColTestScore])
}

func TestMergeScores_EmptyScoreTab(t *testing.T) {
	st := sheet.NewMemory()

	seedAccepted(st, "a@example.com")
	run := model.NewRunRecord(clock)
	require.NoError(t, newTestPipeline(st).MergeScores(context.Background(), run))
	assert.Empty(t, run.Errors)
}
