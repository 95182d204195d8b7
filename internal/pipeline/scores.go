package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/admitguard/admitguard/internal/model"
	"github.com/admitguard/admitguard/internal/sheet"
)

// MergeScores left-joins the external test-score tab onto the accepted
// tab by email. Scores outside [0, 100] or non-numeric are dropped with a
// diagnostic on the run record; duplicate emails keep the highest score.
// The whole accepted tab is rewritten, so re-running replaces stale
// scores instead of stacking columns.
func (p *Pipeline) MergeScores(ctx context.Context, run *model.RunRecord) error {
	log := zap.L().With(zap.String("run_id", run.ID))

	scores, err := p.store.ReadAll(ctx, p.tabs.Scores)
	if err != nil {
		return err
	}
	if scores.Empty() || scores.ColumnIndex(model.ColScoreEmail) < 0 || scores.ColumnIndex(model.ColTestScore) < 0 {
		log.Info("pipeline: no test scores to merge")
		return nil
	}

	best, invalid := dedupeScores(scores.Rows)
	if invalid > 0 {
		run.AddError(fmt.Sprintf("%d invalid test score(s) found", invalid))
		log.Warn("pipeline: invalid test scores dropped", zap.Int("count", invalid))
	}
	if len(best) == 0 {
		log.Info("pipeline: no valid test scores to merge")
		return nil
	}

	accepted, err := p.store.ReadAll(ctx, p.tabs.Accepted)
	if err != nil {
		return err
	}
	if accepted.Empty() {
		log.Info("pipeline: accepted tab empty, nothing to merge scores into")
		return nil
	}

	acceptedEmails := emailSet(accepted, model.ColEmail)
	orphans := 0
	for email := range best {
		if !acceptedEmails[email] {
			orphans++
			log.Warn("pipeline: test score has no accepted record", zap.String("email", email))
		}
	}

	for _, r := range accepted.Rows {
		email := strings.ToLower(strings.TrimSpace(r[model.ColEmail]))
		if score, ok := best[email]; ok {
			r[model.ColTestScore] = formatScore(score)
		} else {
			r[model.ColTestScore] = ""
		}
	}

	header := accepted.Header
	if accepted.ColumnIndex(model.ColTestScore) < 0 {
		header = append(append([]string{}, header...), model.ColTestScore)
	}
	if err := p.store.WriteAll(ctx, p.tabs.Accepted, &sheet.Table{Header: header, Rows: accepted.Rows}); err != nil {
		return err
	}
	log.Info("pipeline: test scores merged",
		zap.Int("scores", len(best)),
		zap.Int("orphans", orphans),
		zap.Int("accepted_rows", len(accepted.Rows)))
	return nil
}

// dedupeScores keeps the highest valid score per lowercased email and
// counts the rows it had to discard. Ties keep the first occurrence.
func dedupeScores(rows []sheet.Row) (map[string]float64, int) {
	type entry struct {
		email string
		score float64
		pos   int
	}
	var valid []entry
	invalid := 0
	for i, r := range rows {
		email := strings.ToLower(strings.TrimSpace(r[model.ColScoreEmail]))
		if email == "" {
			continue
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(r[model.ColTestScore]), 64)
		if err != nil || score < 0 || score > 100 {
			invalid++
			continue
		}
		valid = append(valid, entry{email: email, score: score, pos: i})
	}
	sort.SliceStable(valid, func(i, j int) bool { return valid[i].score > valid[j].score })

	best := make(map[string]float64, len(valid))
	for _, e := range valid {
		if _, ok := best[e.email]; !ok {
			best[e.email] = e.score
		}
	}
	return best, invalid
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
