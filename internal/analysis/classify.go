package analysis

import (
	"cmp"
	"slices"
)

// ClassifyDrawdowns ranks every qualifying segment by severity and tags it.
//
// The episode holding the final observation is always current. The most
// severe remaining episode is worst, followed by up to NotableCount notable
// episodes below NotableThreshold. Ties keep peak order, so repeated calls
// return the same ranking.
// Invalid options fail with core.ErrConfigInvalid.
func (s *Segmentation) ClassifyDrawdowns(opts Options) ([]Episode, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var episodes []Episode
	for _, seg := range s.segments {
		if seg.Severity >= opts.SeverityThreshold {
			continue
		}
		episodes = append(episodes, s.newEpisode(seg))
	}

	slices.SortStableFunc(episodes, func(a, b Episode) int {
		return cmp.Compare(a.Severity, b.Severity)
	})

	worstTagged := false
	notable := 0
	for i := range episodes {
		ep := &episodes[i]
		ep.Rank = i + 1

		switch {
		case ep.Current:
			ep.Tag = TagCurrent
		case !worstTagged:
			ep.Tag = TagWorst
			worstTagged = true
		case notable < opts.NotableCount && ep.Severity < opts.NotableThreshold:
			ep.Tag = TagNotable
			notable++
		default:
			ep.Tag = TagOther
		}
	}

	return episodes, nil
}

func (s *Segmentation) newEpisode(seg Segment) Episode {
	trough := s.series.Observations[seg.TroughIndex]
	return Episode{
		SegmentID:   seg.ID,
		Current:     s.isLast(seg),
		PeakDate:    seg.PeakDate,
		PeakYear:    seg.PeakDate.Year(),
		PeakPrice:   seg.PeakPrice,
		TroughDate:  trough.Date,
		TroughPrice: seg.TroughPrice,
		Severity:    seg.Severity,
		LastDecline: s.decline[seg.EndIndex],
		Duration:    seg.EndIndex - seg.StartIndex,
	}
}
