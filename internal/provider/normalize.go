package provider

import (
	"sort"

	"github.com/newthinker/crashscope/internal/core"
)

// Normalize sorts observations by date and collapses duplicate dates,
// keeping the last value seen for each date.
func Normalize(obs []core.Observation) []core.Observation {
	sort.SliceStable(obs, func(i, j int) bool {
		return obs[i].Date.Before(obs[j].Date)
	})

	out := obs[:0]
	for _, o := range obs {
		if n := len(out); n > 0 && out[n-1].Date.Equal(o.Date) {
			out[n-1] = o
			continue
		}
		out = append(out, o)
	}
	return out
}
