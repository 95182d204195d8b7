package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/admitguard/admitguard/internal/model"
	"github.com/admitguard/admitguard/internal/sheet"
)

// Reconcile migrates reviewer-approved exception rows into the accepted
// tab. Rows whose email is already accepted are skipped, which makes a
// re-run after a partial failure safe: the membership check runs before
// the exception tab is rewritten. Approved rows are removed from the
// exception tab either way; pending and reviewer-rejected rows remain.
func (p *Pipeline) Reconcile(ctx context.Context, run *model.RunRecord) error {
	log := zap.L().With(zap.String("run_id", run.ID))

	live, err := p.store.ReadAll(ctx, p.tabs.Exception)
	if err != nil {
		return err
	}
	if live.Empty() || live.ColumnIndex(model.ColReviewStatus) < 0 {
		log.Info("pipeline: no exception records to reconcile")
		return nil
	}

	var approved, remainder []sheet.Row
	pending, reviewerRejected := 0, 0
	for _, r := range live.Rows {
		switch model.ReviewStatus(strings.ToLower(strings.TrimSpace(r[model.ColReviewStatus]))) {
		case model.ReviewApproved:
			approved = append(approved, r)
		case model.ReviewRejected:
			reviewerRejected++
			remainder = append(remainder, r)
		default:
			pending++
			remainder = append(remainder, r)
		}
	}
	log.Info("pipeline: exception review states",
		zap.Int("approved", len(approved)),
		zap.Int("pending", pending),
		zap.Int("reviewer_rejected", reviewerRejected))
	if len(approved) == 0 {
		return nil
	}

	acceptedEmails, err := p.readEmails(ctx, p.tabs.Accepted, model.ColEmail)
	if err != nil {
		return err
	}

	var trulyNew []sheet.Row
	for _, r := range approved {
		email := strings.ToLower(strings.TrimSpace(r[model.ColEmail]))
		if acceptedEmails[email] {
			log.Info("pipeline: approved exception already accepted, skipping", zap.String("email", email))
			continue
		}
		r = r.Clone()
		r[model.ColEmail] = email
		trulyNew = append(trulyNew, r)
	}

	if len(trulyNew) > 0 {
		if err := p.migrateApproved(ctx, trulyNew, live.Header, run); err != nil {
			return err
		}
	}

	// Rewrite the exception tab to the pending/rejected remainder. Doing
	// this last means a crash between append and rewrite only leaves
	// approved rows behind, which the membership check absorbs next run.
	remainderTable := &sheet.Table{Header: live.Header, Rows: remainder}
	if err := p.store.WriteAll(ctx, p.tabs.Exception, remainderTable); err != nil {
		return err
	}
	log.Info("pipeline: approved records removed from exception tab", zap.Int("remaining", len(remainder)))
	return nil
}

// migrateApproved appends genuinely new approvals to the accepted tab,
// re-attaching submission metadata from the raw tab and updating the raw
// rows' markers.
func (p *Pipeline) migrateApproved(ctx context.Context, rows []sheet.Row, exceptionHeader []string, run *model.RunRecord) error {
	log := zap.L().With(zap.String("run_id", run.ID))
	ts := p.now().Format(timeLayout)

	raw, err := p.store.ReadAll(ctx, p.tabs.Raw)
	if err != nil {
		return err
	}

	// Metadata columns can only be re-attached if the raw tab still has
	// them; a missing column is a diagnostic, not a failure.
	var metaCols []string
	for _, col := range model.SubmissionMetaColumns {
		if raw.ColumnIndex(col) >= 0 {
			metaCols = append(metaCols, col)
		} else {
			log.Warn("pipeline: metadata column missing from raw tab, skipping re-attach", zap.String("column", col))
		}
	}

	// Email -> first raw row with that address, and its data-row index for
	// the marker write.
	metaByEmail := make(map[string]sheet.Row)
	rowByEmail := make(map[string]int)
	for i, r := range raw.Rows {
		email := strings.ToLower(strings.TrimSpace(r[model.ColEmail]))
		if email == "" {
			continue
		}
		if _, ok := metaByEmail[email]; !ok {
			metaByEmail[email] = r
			rowByEmail[email] = i + 1
		}
	}

	exceptionOnly := make(map[string]bool, len(model.ExceptionOnlyColumns))
	for _, col := range model.ExceptionOnlyColumns {
		exceptionOnly[col] = true
	}

	migrated := make([]sheet.Row, 0, len(rows))
	var markers []sheet.CellUpdate
	for _, r := range rows {
		email := r[model.ColEmail]
		out := sheet.Row{}
		for col, val := range r {
			if exceptionOnly[col] {
				continue
			}
			out[col] = val
		}
		if src, ok := metaByEmail[email]; ok {
			for _, col := range metaCols {
				out[col] = src[col]
			}
			log.Info("pipeline: re-attached submission metadata", zap.String("email", email))
		}
		out[model.ColProcessedAt] = ts
		migrated = append(migrated, out)

		if dataRow, ok := rowByEmail[email]; ok {
			markers = append(markers, sheet.CellUpdate{Row: dataRow, Column: model.ColMarker, Value: model.MarkerApproved})
		}
	}

	header := migratedHeader(exceptionHeader, metaCols, exceptionOnly)
	if err := p.store.Append(ctx, p.tabs.Accepted, &sheet.Table{Header: header, Rows: migrated}); err != nil {
		return err
	}
	run.ExceptionsApproved = len(migrated)
	log.Info("pipeline: approved exceptions migrated to accepted", zap.Int("count", len(migrated)))

	if len(markers) > 0 {
		if err := p.store.UpdateCells(ctx, p.tabs.Raw, markers); err != nil {
			return err
		}
	}
	return nil
}

// migratedHeader derives the accepted-tab header for migrated rows from
// the exception header: exception-only columns dropped, metadata and the
// acceptance timestamp kept.
func migratedHeader(exceptionHeader, metaCols []string, exceptionOnly map[string]bool) []string {
	var header []string
	for _, col := range exceptionHeader {
		if exceptionOnly[col] {
			continue
		}
		header = append(header, col)
	}
	have := make(map[string]bool, len(header))
	for _, col := range header {
		have[col] = true
	}
	for _, col := range metaCols {
		if !have[col] {
			header = append(header, col)
		}
	}
	if !have[model.ColProcessedAt] {
		header = append(header, model.ColProcessedAt)
	}
	return header
}
