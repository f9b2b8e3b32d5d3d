package app

import (
	"time"

	"github.com/newthinker/crashscope/internal/analysis"
)

// Report is the outcome of analysing one symbol
type Report struct {
	Symbol       string           `json:"symbol"`
	ID           string           `json:"id"`
	Observations int              `json:"observations"`
	First        time.Time        `json:"first_date"`
	Last         time.Time        `json:"last_date"`
	Drawdowns    []DrawdownResult `json:"drawdowns"`
	Recoveries   []RecoveryResult `json:"recoveries"`
	Charts       []string         `json:"charts,omitempty"`
}

// DrawdownResult is a ranked drawdown with its trajectory from the peak
type DrawdownResult struct {
	analysis.Episode
	Trajectory analysis.Trajectory `json:"trajectory"`
}

// RecoveryResult is a ranked recovery with its trajectory around the trough
type RecoveryResult struct {
	analysis.RecoveryEpisode
	Trajectory analysis.Trajectory `json:"trajectory"`
}

// Current returns the drawdown still under way, if any
func (r *Report) Current() (DrawdownResult, bool) {
	for _, d := range r.Drawdowns {
		if d.Current {
			return d, true
		}
	}
	return DrawdownResult{}, false
}

func countDrawdowns(results []DrawdownResult) map[string]int {
	counts := make(map[string]int)
	for _, d := range results {
		counts[d.Tag.String()]++
	}
	return counts
}

func countRecoveries(results []RecoveryResult) map[string]int {
	counts := make(map[string]int)
	for _, rc := range results {
		counts[rc.Tag.String()]++
	}
	return counts
}
