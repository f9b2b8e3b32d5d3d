package analysis

// AlignDrawdown re-indexes a drawdown onto days since its peak. Day 0 is the
// peak and the trajectory runs to the last observation of the segment.
func (s *Segmentation) AlignDrawdown(ep Episode) Trajectory {
	seg, ok := s.Segment(ep.SegmentID)
	if !ok {
		return nil
	}

	out := make(Trajectory, 0, seg.Len())
	for i := seg.StartIndex; i <= seg.EndIndex; i++ {
		out = append(out, Point{Day: i - seg.StartIndex, Value: s.decline[i]})
	}
	return out
}

// AlignRecovery re-indexes a recovery onto days since its trough, keeping
// only the part of the segment inside the window. Days before the trough are
// negative. Missing days are never padded.
func (s *Segmentation) AlignRecovery(ep RecoveryEpisode, w Window) Trajectory {
	seg, ok := s.Segment(ep.SegmentID)
	if !ok {
		return nil
	}

	from := max(seg.StartIndex, seg.TroughIndex-w.Before)
	to := min(seg.EndIndex, seg.TroughIndex+w.After)
	if from > to {
		return nil
	}

	out := make(Trajectory, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, Point{Day: i - seg.TroughIndex, Value: s.rebound[i]})
	}
	return out
}
