package analysis

import (
	"fmt"

	"github.com/newthinker/crashscope/internal/core"
)

// Options controls which segments qualify as episodes and how they are tagged
type Options struct {
	SeverityThreshold float64 // a segment qualifies when its severity is below this
	NotableThreshold  float64 // notable drawdowns must be below this
	NotableCount      int
	RecoveryRankCount int // size of the fast and slow groups
}

// DefaultOptions returns the thresholds used by the charts
func DefaultOptions() Options {
	return Options{
		SeverityThreshold: -0.02,
		NotableThreshold:  -0.25,
		NotableCount:      3,
		RecoveryRankCount: 3,
	}
}

// Validate checks that thresholds are declines and counts are non-negative
func (o Options) Validate() error {
	if o.SeverityThreshold > 0 || o.SeverityThreshold <= -1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("severity_threshold must be in (-1, 0], got %f", o.SeverityThreshold))
	}
	if o.NotableThreshold > 0 || o.NotableThreshold <= -1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("notable_threshold must be in (-1, 0], got %f", o.NotableThreshold))
	}
	if o.NotableCount < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("notable_count cannot be negative, got %d", o.NotableCount))
	}
	if o.RecoveryRankCount < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("recovery_rank_count cannot be negative, got %d", o.RecoveryRankCount))
	}
	return nil
}

// Window bounds a recovery trajectory in trading days around the trough
type Window struct {
	Before int
	After  int
}

// DefaultWindow returns the [-100, +100] day window
func DefaultWindow() Window {
	return Window{Before: 100, After: 100}
}
