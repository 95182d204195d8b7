package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/admitguard/admitguard/internal/model"
	"github.com/admitguard/admitguard/internal/normalize"
	"github.com/admitguard/admitguard/internal/sheet"
)

// intakeResult is the prepared input for segregation: normalized records
// aligned with their raw data-row positions, plus the processed-set built
// from the marker column.
type intakeResult struct {
	table   *sheet.Table
	records []model.RawRecord

	// processed holds emails whose marker is already set; those rows are
	// skipped entirely this run.
	processed map[string]bool
}

// intake reads the raw tab, ensures the marker column exists, re-reads the
// tab so the header reflects it, normalizes every row and builds the
// processed-email set.
func (p *Pipeline) intake(ctx context.Context, run *model.RunRecord) (*intakeResult, error) {
	if _, err := p.store.EnsureColumn(ctx, p.tabs.Raw, model.ColMarker); err != nil {
		return nil, err
	}

	// Fresh read after ensuring the column so the header includes it.
	table, err := p.store.ReadAll(ctx, p.tabs.Raw)
	if err != nil {
		return nil, err
	}
	run.RawRowsRead = len(table.Rows)

	in := &intakeResult{
		table:     table,
		records:   make([]model.RawRecord, 0, len(table.Rows)),
		processed: make(map[string]bool),
	}

	for _, row := range table.Rows {
		rec := model.RawFromRow(row)
		normalize.Record(&rec)
		in.records = append(in.records, rec)
		if strings.TrimSpace(rec.Marker) != "" && rec.Email != "" {
			in.processed[rec.Email] = true
		}
	}

	zap.L().Info("pipeline: raw intake loaded",
		zap.Int("rows", len(table.Rows)),
		zap.Int("already_processed", len(in.processed)))
	return in, nil
}

// emailSet collects the trimmed, lowercased values of a column.
func emailSet(t *sheet.Table, col string) map[string]bool {
	set := make(map[string]bool)
	for _, r := range t.Rows {
		if e := strings.ToLower(strings.TrimSpace(r[col])); e != "" {
			set[e] = true
		}
	}
	return set
}
