package pipeline

import (
	"context"

	"github.com/admitguard/admitguard/internal/model"
	"github.com/admitguard/admitguard/internal/sheet"
)

// writeRunLog appends the run's audit row to the run-log tab.
func (p *Pipeline) writeRunLog(ctx context.Context, run *model.RunRecord) error {
	t := &sheet.Table{
		Header: model.RunLogColumns,
		Rows:   []sheet.Row{run.Row()},
	}
	return p.store.Append(ctx, p.tabs.RunLog, t)
}
