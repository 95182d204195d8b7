package pipeline

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/admitguard/admitguard/internal/model"
	"github.com/admitguard/admitguard/internal/rules"
	"github.com/admitguard/admitguard/internal/sheet"
)

// BuildShortlist promotes accepted candidates whose test score meets the
// interview cutoff onto the shortlist tab, then re-ranks the whole tab
// 1..N by score descending. Candidates already shortlisted keep their
// interview columns; only the Rank column is reassigned.
func (p *Pipeline) BuildShortlist(ctx context.Context, th rules.Thresholds, run *model.RunRecord) error {
	log := zap.L().With(zap.String("run_id", run.ID))

	accepted, err := p.store.ReadAll(ctx, p.tabs.Accepted)
	if err != nil {
		return err
	}

	qualified, notSelected := 0, 0
	var candidates []sheet.Row
	for _, r := range accepted.Rows {
		score, ok := parseScore(r[model.ColTestScore])
		if !ok {
			continue
		}
		if score >= th.MinTestScore {
			qualified++
			candidates = append(candidates, r)
		} else {
			notSelected++
		}
	}
	run.ShortlistNotSelected = notSelected

	existing, err := p.store.ReadAll(ctx, p.tabs.Shortlist)
	if err != nil {
		return err
	}
	run.ShortlistTotal = len(existing.Rows)
	shortlisted := emailSet(existing, model.ColEmail)

	var fresh []sheet.Row
	for _, r := range candidates {
		email := strings.ToLower(strings.TrimSpace(r[model.ColEmail]))
		if shortlisted[email] {
			continue
		}
		row := sheet.Row{
			model.ColFirstName:       r[model.ColFirstName],
			model.ColLastName:        r[model.ColLastName],
			model.ColEmail:           email,
			model.ColPhone:           r[model.ColPhone],
			model.ColTestScore:       r[model.ColTestScore],
			model.ColInterviewStatus: "Pending",
			model.ColInterviewDate:   "",
			model.ColInterviewer:     "",
		}
		fresh = append(fresh, row)
	}

	if len(fresh) == 0 && len(existing.Rows) == 0 {
		log.Info("pipeline: no candidates qualify for the shortlist",
			zap.Int("qualified", qualified),
			zap.Int("below_cutoff", notSelected))
		return nil
	}

	combined := append(append([]sheet.Row{}, existing.Rows...), fresh...)
	sort.SliceStable(combined, func(i, j int) bool {
		si, iok := parseScore(combined[i][model.ColTestScore])
		sj, jok := parseScore(combined[j][model.ColTestScore])
		if iok != jok {
			return iok
		}
		return si > sj
	})
	for i, r := range combined {
		r[model.ColRank] = strconv.Itoa(i + 1)
	}

	header := shortlistHeader(existing.Header)
	if err := p.store.WriteAll(ctx, p.tabs.Shortlist, &sheet.Table{Header: header, Rows: combined}); err != nil {
		return err
	}
	run.ShortlistAdded = len(fresh)
	run.ShortlistTotal = len(combined)
	log.Info("pipeline: shortlist rebuilt",
		zap.Int("added", len(fresh)),
		zap.Int("total", len(combined)),
		zap.Int("below_cutoff", notSelected))
	return nil
}

// shortlistHeader keeps the existing tab layout, prepending Rank when the
// tab is new and appending interview columns it may be missing.
func shortlistHeader(existing []string) []string {
	if len(existing) == 0 {
		return []string{
			model.ColRank, model.ColFirstName, model.ColLastName, model.ColEmail,
			model.ColPhone, model.ColTestScore, model.ColInterviewStatus,
			model.ColInterviewDate, model.ColInterviewer,
		}
	}
	have := make(map[string]bool, len(existing))
	for _, col := range existing {
		have[col] = true
	}
	header := existing
	if !have[model.ColRank] {
		header = append([]string{model.ColRank}, header...)
	}
	for _, col := range []string{model.ColInterviewStatus, model.ColInterviewDate, model.ColInterviewer} {
		if !have[col] {
			header = append(header, col)
		}
	}
	return header
}

func parseScore(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}
