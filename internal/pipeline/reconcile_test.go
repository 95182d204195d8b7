package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admitguard/admitguard/internal/model"
	"github.com/admitguard/admitguard/internal/sheet"
)

// exceptionRow builds an exception-tab row for a flagged applicant.
func exceptionRow(first, email, status string) sheet.Row {
	r := rawRow(first, email, "9876543210", "111111111111")
	r[model.ColExceptionReason] = "CGPA 5.95 is slightly below minimum 6 (within 0.1 buffer)"
	r[model.ColReviewStatus] = status
	r[model.ColReviewerRemark] = ""
	r[model.ColFlaggedAt] = "2025-05-31 12:00:00"
	return r
}

func exceptionHeader() []string {
	return append(rawHeader(),
		model.ColExceptionReason, model.ColReviewStatus, model.ColReviewerRemark, model.ColFlaggedAt)
}

func TestReconcile_MigratesApprovedRows(t *testing.T) {
	st := sheet.NewMemory()
	ctx := context.Background()

	raw := rawRow("Asha", "asha@example.com", "9876543210", "111111111111")
	raw[model.ColMarker] = model.MarkerException
	st.Seed(DefaultTabs().Raw, &sheet.Table{
		Header: append(rawHeader(), model.ColMarker),
		Rows:   []sheet.Row{raw},
	})
	st.Seed(DefaultTabs().Exception, &sheet.Table{
		Header: exceptionHeader(),
		Rows: []sheet.Row{
			exceptionRow("Asha", "asha@example.com", "Approved"),
			exceptionRow("Ravi", "ravi@example.com", "Pending"),
			exceptionRow("Meera", "meera@example.com", "Rejected"),
		},
	})

	p := newTestPipeline(st)
	run := model.NewRunRecord(clock)
	require.NoError(t, p.Reconcile(ctx, run))

	assert.Equal(t, 1, run.ExceptionsApproved)

	accepted, err := st.ReadAll(ctx, DefaultTabs().Accepted)
	require.NoError(t, err)
	require.Len(t, accepted.Rows, 1)
	got := accepted.Rows[0]
	assert.Equal(t, "asha@example.com", got[model.ColEmail])
	assert.Equal(t, clockStamp, got[model.ColProcessedAt])
	assert.Equal(t, "sub-Asha", got[model.ColSubmissionID])
	assert.NotContains(t, got, model.ColReviewStatus)
	assert.NotContains(t, got, model.ColExceptionReason)

	exception, err := st.ReadAll(ctx, DefaultTabs().Exception)
	require.NoError(t, err)
	require.Len(t, exception.Rows, 2)
	for _, r := range exception.Rows {
		assert.NotEqual(t, "Approved", r[model.ColReviewStatus])
	}

	rawOut, err := st.ReadAll(ctx, DefaultTabs().Raw)
	require.NoError(t, err)
	assert.Equal(t, model.MarkerApproved, rawOut.Rows[0][model.ColMarker])
}

func TestReconcile_StatusIsCaseInsensitive(t *testing.T) {
	st := sheet.NewMemory()
	ctx := context.Background()

	st.Seed(DefaultTabs().Exception, &sheet.Table{
		Header: exceptionHeader(),
		Rows:   []sheet.Row{exceptionRow("Asha", "asha@example.com", "  APPROVED ")},
	})

	run := model.NewRunRecord(clock)
	require.NoError(t, newTestPipeline(st).Reconcile(ctx, run))
	assert.Equal(t, 1, run.ExceptionsApproved)
}

func TestReconcile_SkipsAlreadyAcceptedEmail(t *testing.T) {
	st := sheet.NewMemory()
	ctx := context.Background()

	st.Seed(DefaultTabs().Accepted, &sheet.Table{
		Header: append(rawHeader(), model.ColProcessedAt),
		Rows:   []sheet.Row{rawRow("Asha", "asha@example.com", "9876543210", "111111111111")},
	})
	st.Seed(DefaultTabs().Exception, &sheet.Table{
		Header: exceptionHeader(),
		Rows:   []sheet.Row{exceptionRow("Asha", "asha@example.com", "Approved")},
	})

	run := model.NewRunRecord(clock)
	require.NoError(t, newTestPipeline(st).Reconcile(ctx, run))

	assert.Equal(t, 0, run.ExceptionsApproved)

	accepted, _ := st.ReadAll(ctx, DefaultTabs().Accepted)
	assert.Len(t, accepted.Rows, 1)

	// The stale approved row is still removed from the exception tab.
	exception, _ := st.ReadAll(ctx, DefaultTabs().Exception)
	assert.Empty(t, exception.Rows)
}

func TestReconcile_NothingApprovedLeavesTabAlone(t *testing.T) {
	st := sheet.NewMemory()
	ctx := context.Background()

	st.Seed(DefaultTabs().Exception, &sheet.Table{
		Header: exceptionHeader(),
		Rows:   []sheet.Row{exceptionRow("Ravi", "ravi@example.com", "Pending")},
	})

	run := model.NewRunRecord(clock)
	require.NoError(t, newTestPipeline(st).Reconcile(ctx, run))

	exception, _ := st.ReadAll(ctx, DefaultTabs().Exception)
	assert.Len(t, exception.Rows, 1)

	accepted, _ := st.ReadAll(ctx, DefaultTabs().Accepted)
	assert.Empty(t, accepted.Rows)
}

func TestReconcile_EmptyExceptionTab(t *testing.T) {
	st := sheet.NewMemory()

	run := model.NewRunRecord(clock)
	require.NoError(t, newTestPipeline(st).Reconcile(context.Background(), run))
	assert.Equal(t, 0, run.ExceptionsApproved)
}
