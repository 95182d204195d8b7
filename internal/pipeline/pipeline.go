// Package pipeline implements the admission batch pipeline: intake and
// validation of raw applicant rows, bucket routing with marker-based
// idempotence, exception reconciliation, test-score merging and the ranked
// interview shortlist, with one audit record appended per run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/admitguard/admitguard/internal/model"
	"github.com/admitguard/admitguard/internal/rules"
	"github.com/admitguard/admitguard/internal/sheet"
)

// Tabs names every tab the pipeline touches in the backing store.
type Tabs struct {
	Raw       string `yaml:"raw" mapstructure:"raw"`
	Accepted  string `yaml:"accepted" mapstructure:"accepted"`
	Rejected  string `yaml:"rejected" mapstructure:"rejected"`
	Exception string `yaml:"exception" mapstructure:"exception"`
	Scores    string `yaml:"scores" mapstructure:"scores"`
	Shortlist string `yaml:"shortlist" mapstructure:"shortlist"`
	Config    string `yaml:"config" mapstructure:"config"`
	RunLog    string `yaml:"run_log" mapstructure:"run_log"`
}

// DefaultTabs returns the tab names the admission workbook has always used.
func DefaultTabs() Tabs {
	return Tabs{
		Raw:       "Raw_Data",
		Accepted:  "Clean_Data",
		Rejected:  "Rejected_Records",
		Exception: "Exception",
		Scores:    "Test_Scores",
		Shortlist: "Interview",
		Config:    "Config",
		RunLog:    "Run Log",
	}
}

// Pipeline runs the admission batch over a backing tabular store. It is
// strictly sequential; concurrent runs against the same store are not safe
// because marker gating only protects sequential re-runs.
type Pipeline struct {
	store sheet.Store
	tabs  Tabs
	now   func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline over the given store and tab names.
func New(store sheet.Store, tabs Tabs, opts ...Option) *Pipeline {
	p := &Pipeline{store: store, tabs: tabs, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the full pipeline. A failing step is recorded on the run
// record and the next step continues from the best persisted state; the
// run record is always written, even when every step failed.
func (p *Pipeline) Run(ctx context.Context) *model.RunRecord {
	run := model.NewRunRecord(p.now())
	log := zap.L().With(zap.String("run_id", run.ID))
	log.Info("pipeline: run starting")

	th := p.loadThresholds(ctx)

	in, err := p.intake(ctx, run)
	if err != nil {
		run.AddError(fmt.Sprintf("intake: %v", err))
		log.Error("pipeline: intake failed", zap.Error(err))
	} else if err := p.segregate(ctx, in, th, run); err != nil {
		run.AddError(fmt.Sprintf("segregate: %v", err))
		log.Error("pipeline: segregation failed", zap.Error(err))
	}

	if err := p.Reconcile(ctx, run); err != nil {
		run.AddError(fmt.Sprintf("reconcile: %v", err))
		log.Error("pipeline: reconciliation failed", zap.Error(err))
	}

	if err := p.MergeScores(ctx, run); err != nil {
		run.AddError(fmt.Sprintf("scores: %v", err))
		log.Error("pipeline: score merge failed", zap.Error(err))
	}

	if err := p.BuildShortlist(ctx, th, run); err != nil {
		run.AddError(fmt.Sprintf("shortlist: %v", err))
		log.Error("pipeline: shortlist failed", zap.Error(err))
	}

	run.Finish(p.now())
	if err := p.writeRunLog(ctx, run); err != nil {
		// The audit trail is best-effort: a broken run-log tab must not
		// fail the run that already happened.
		log.Warn("pipeline: could not write run log", zap.Error(err))
	}

	log.Info("pipeline: run finished",
		zap.String("status", string(run.Status)),
		zap.Int("raw_rows", run.RawRowsRead),
		zap.Int("new_rows", run.NewRowsFound),
		zap.Int("accepted", run.AcceptedWritten),
		zap.Int("rejected", run.RejectedWritten),
		zap.Int("exception", run.ExceptionWritten),
		zap.Int("approved", run.ExceptionsApproved),
		zap.Int("shortlist_added", run.ShortlistAdded))
	return run
}

// loadThresholds resolves business thresholds from the Config tab. It
// never fails: a missing or unreadable tab falls back to the documented
// defaults.
func (p *Pipeline) loadThresholds(ctx context.Context) rules.Thresholds {
	t, err := p.store.ReadAll(ctx, p.tabs.Config)
	if err != nil {
		zap.L().Warn("pipeline: config tab unreadable, using default thresholds", zap.Error(err))
		return rules.Defaults()
	}
	params := make(map[string]string, len(t.Rows))
	for _, r := range t.Rows {
		if name := r["Parameter"]; name != "" {
			params[name] = r["Value"]
		}
	}
	return rules.Resolve(params)
}

// Thresholds exposes the resolved thresholds for the single-step commands.
func (p *Pipeline) Thresholds(ctx context.Context) rules.Thresholds {
	return p.loadThresholds(ctx)
}

// readEmails returns the lowercased email set of a tab, empty on a missing
// tab or column.
func (p *Pipeline) readEmails(ctx context.Context, tab, col string) (map[string]bool, error) {
	t, err := p.store.ReadAll(ctx, tab)
	if err != nil {
		return nil, err
	}
	return emailSet(t, col), nil
}
