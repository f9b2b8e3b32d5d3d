package analysis

import (
	"cmp"
	"slices"
)

// ClassifyRecoveries measures the rebound after every qualifying drawdown's
// trough and ranks the rebounds by speed.
//
// Speed is the best rebound reached inside the segment divided by the trading
// days from trough to the segment's last observation. The first
// RecoveryRankCount non-current episodes are fast, the last ones not already
// fast are slow.
// Invalid options fail with core.ErrConfigInvalid.
func (s *Segmentation) ClassifyRecoveries(opts Options) ([]RecoveryEpisode, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var episodes []RecoveryEpisode
	for _, seg := range s.segments {
		if seg.Severity >= opts.SeverityThreshold {
			continue
		}
		episodes = append(episodes, s.newRecovery(seg))
	}

	slices.SortStableFunc(episodes, func(a, b RecoveryEpisode) int {
		return cmp.Compare(b.RecoverySpeed, a.RecoverySpeed)
	})

	fast := 0
	for i := range episodes {
		ep := &episodes[i]
		ep.Rank = i + 1

		switch {
		case ep.Current:
			ep.Tag = TagCurrent
		case fast < opts.RecoveryRankCount:
			ep.Tag = TagFast
			fast++
		}
	}

	slow := 0
	for i := len(episodes) - 1; i >= 0 && slow < opts.RecoveryRankCount; i-- {
		if episodes[i].Tag != TagOther {
			continue
		}
		episodes[i].Tag = TagSlow
		slow++
	}

	return episodes, nil
}

func (s *Segmentation) newRecovery(seg Segment) RecoveryEpisode {
	var best float64
	for i := seg.TroughIndex; i <= seg.EndIndex; i++ {
		best = max(best, s.rebound[i])
	}

	days := seg.EndIndex - seg.TroughIndex
	var speed float64
	if days > 0 {
		speed = best / float64(days)
	}

	return RecoveryEpisode{
		SegmentID:       seg.ID,
		Current:         s.isLast(seg),
		PeakDate:        seg.PeakDate,
		PeakYear:        seg.PeakDate.Year(),
		TroughDate:      s.series.Observations[seg.TroughIndex].Date,
		TroughPrice:     seg.TroughPrice,
		Severity:        seg.Severity,
		RecoveryMax:     best,
		LastRebound:     s.rebound[seg.EndIndex],
		DaysSinceTrough: days,
		RecoverySpeed:   speed,
	}
}
