package pipeline

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/admitguard/admitguard/internal/model"
	"github.com/admitguard/admitguard/internal/rules"
	"github.com/admitguard/admitguard/internal/sheet"
)

const timeLayout = "2006-01-02 15:04:05"

// segregate classifies every not-yet-processed raw row, appends the
// resulting rows to the three bucket tabs and writes all processing
// markers back to the raw tab in one batched update.
func (p *Pipeline) segregate(ctx context.Context, in *intakeResult, th rules.Thresholds, run *model.RunRecord) error {
	log := zap.L().With(zap.String("run_id", run.ID))

	seen := rules.NewSeen()
	for email := range in.processed {
		seen.AddEmails(email)
	}
	if err := p.seedSeenAadhaars(ctx, seen); err != nil {
		return err
	}

	var accepted, rejected, exception []sheet.Row
	var markers []sheet.CellUpdate
	now := p.now()
	ts := now.Format(timeLayout)

	for i, rec := range in.records {
		if strings.TrimSpace(rec.Marker) != "" || in.processed[rec.Email] {
			log.Debug("pipeline: skip already processed", zap.String("email", rec.Email))
			continue
		}

		cls := rules.Classify(rec, th, seen, now)
		dataRow := i + 1

		switch cls.Disposition {
		case model.Reject:
			row := rec.Row(false)
			row[model.ColRejectReasons] = strings.Join(cls.Reasons, "; ")
			row[model.ColRejectedAt] = ts
			rejected = append(rejected, row)
			markers = append(markers, sheet.CellUpdate{Row: dataRow, Column: model.ColMarker, Value: model.MarkerRejected})
			log.Info("pipeline: rejected", zap.String("name", rec.FullName()), zap.Strings("reasons", cls.Reasons))

		case model.Exception:
			row := rec.Row(true)
			row[model.ColExceptionReason] = strings.Join(cls.Reasons, "; ")
			row[model.ColReviewStatus] = "Pending"
			row[model.ColReviewerRemark] = ""
			row[model.ColFlaggedAt] = ts
			exception = append(exception, row)
			markers = append(markers, sheet.CellUpdate{Row: dataRow, Column: model.ColMarker, Value: model.MarkerException})
			log.Info("pipeline: exception", zap.String("name", rec.FullName()), zap.Strings("reasons", cls.Reasons))

		default:
			row := rec.Row(false)
			row[model.ColProcessedAt] = ts
			accepted = append(accepted, row)
			markers = append(markers, sheet.CellUpdate{Row: dataRow, Column: model.ColMarker, Value: model.MarkerAccepted})
			log.Info("pipeline: accepted", zap.String("name", rec.FullName()))
		}
	}

	extras := extraColumns(in.records)

	if err := p.appendBucket(ctx, p.tabs.Accepted, bucketHeader(extras, false, model.ColProcessedAt), accepted); err != nil {
		return err
	}
	if err := p.appendBucket(ctx, p.tabs.Rejected, bucketHeader(extras, false, model.ColRejectReasons, model.ColRejectedAt), rejected); err != nil {
		return err
	}
	if err := p.appendBucket(ctx, p.tabs.Exception, bucketHeader(extras, true,
		model.ColExceptionReason, model.ColReviewStatus, model.ColReviewerRemark, model.ColFlaggedAt), exception); err != nil {
		return err
	}

	// One batched marker write instead of one store call per row.
	if len(markers) > 0 {
		if err := p.store.UpdateCells(ctx, p.tabs.Raw, markers); err != nil {
			return err
		}
	}

	run.NewRowsFound = len(accepted) + len(rejected) + len(exception)
	run.AcceptedWritten = len(accepted)
	run.RejectedWritten = len(rejected)
	run.ExceptionWritten = len(exception)

	log.Info("pipeline: segregation complete",
		zap.Int("accepted", len(accepted)),
		zap.Int("rejected", len(rejected)),
		zap.Int("exception", len(exception)))
	return nil
}

// seedSeenAadhaars loads the Aadhaar numbers already present in the three
// bucket tabs so a new submission reusing one is flagged as a duplicate.
func (p *Pipeline) seedSeenAadhaars(ctx context.Context, seen *rules.Seen) error {
	for _, tab := range []string{p.tabs.Accepted, p.tabs.Rejected, p.tabs.Exception} {
		t, err := p.store.ReadAll(ctx, tab)
		if err != nil {
			return err
		}
		for _, r := range t.Rows {
			seen.AddAadhaars(strings.TrimSpace(r[model.ColAadhaar]))
		}
	}
	return nil
}

// appendBucket appends new rows to a bucket tab. The store aligns them to
// the live header when the tab already has rows, so reviewer-added columns
// survive untouched.
func (p *Pipeline) appendBucket(ctx context.Context, tab string, header []string, rows []sheet.Row) error {
	if len(rows) == 0 {
		return nil
	}
	return p.store.Append(ctx, tab, &sheet.Table{Header: header, Rows: rows})
}

// bucketHeader builds the column order for a bucket's first write: the
// canonical applicant columns, submission metadata when kept, any extra
// raw columns, then the bucket's own columns.
func bucketHeader(extras []string, withMeta bool, bucketCols ...string) []string {
	header := append([]string(nil), model.BaseColumns...)
	if withMeta {
		header = append(header, model.SubmissionMetaColumns...)
	}
	header = append(header, extras...)
	return append(header, bucketCols...)
}

// extraColumns collects raw columns outside the canonical schema, sorted
// for a deterministic header.
func extraColumns(records []model.RawRecord) []string {
	set := make(map[string]bool)
	for _, rec := range records {
		for col := range rec.Extra {
			set[col] = true
		}
	}
	cols := make([]string, 0, len(set))
	for col := range set {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}
