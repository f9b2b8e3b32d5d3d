package analysis

import (
	"fmt"
	"math"

	"github.com/newthinker/crashscope/internal/core"
)

// Segmentation is a series split into peak-anchored segments, together with
// the per-observation decline from peak and rebound from trough.
type Segmentation struct {
	series   core.Series
	segments []Segment
	decline  []float64
	rebound  []float64
	owner    []int
}

// SegmentSeries splits the series in a single forward pass. A new segment opens
// whenever a price sets a new running maximum.
func SegmentSeries(series core.Series) (*Segmentation, error) {
	obs := series.Observations
	if len(obs) < 2 {
		return nil, core.WrapError(core.ErrInsufficientData,
			fmt.Errorf("%s has %d observations, need at least 2", series.Symbol, len(obs)))
	}

	n := len(obs)
	s := &Segmentation{
		series:  series,
		decline: make([]float64, n),
		rebound: make([]float64, n),
		owner:   make([]int, n),
	}

	var cur Segment
	for i, o := range obs {
		if err := checkObservation(obs, i); err != nil {
			return nil, err
		}

		if i == 0 || o.Price > cur.PeakPrice {
			if i > 0 {
				s.close(cur)
			}
			cur = Segment{
				ID:          len(s.segments),
				PeakPrice:   o.Price,
				PeakDate:    o.Date,
				StartIndex:  i,
				EndIndex:    i,
				TroughIndex: i,
				TroughPrice: o.Price,
			}
		} else {
			cur.EndIndex = i
			if o.Price < cur.TroughPrice {
				cur.TroughIndex = i
				cur.TroughPrice = o.Price
			}
		}

		s.owner[i] = cur.ID
		s.decline[i] = decline(o.Price, cur.PeakPrice)
	}
	s.close(cur)

	return s, nil
}

// close finalizes a segment once its trough is known
func (s *Segmentation) close(seg Segment) {
	seg.Severity = s.decline[seg.TroughIndex]
	for i := seg.StartIndex; i <= seg.EndIndex; i++ {
		s.rebound[i] = rebound(s.series.Observations[i].Price, seg.TroughPrice)
	}
	s.segments = append(s.segments, seg)
}

func checkObservation(obs []core.Observation, i int) error {
	o := obs[i]
	if math.IsNaN(o.Price) || math.IsInf(o.Price, 0) || o.Price < 0 {
		return core.WrapError(core.ErrInvalidObservation,
			fmt.Errorf("index %d (%s): price %v", i, o.Date.Format("2006-01-02"), o.Price))
	}
	if i > 0 && !o.Date.After(obs[i-1].Date) {
		return core.WrapError(core.ErrInvalidObservation,
			fmt.Errorf("index %d: date %s does not follow %s",
				i, o.Date.Format("2006-01-02"), obs[i-1].Date.Format("2006-01-02")))
	}
	return nil
}

func decline(price, peak float64) float64 {
	if peak == 0 {
		return 0
	}
	return (price - peak) / peak
}

func rebound(price, trough float64) float64 {
	if trough == 0 {
		return 0
	}
	return price/trough - 1
}

// Validate reports ErrNotSegmented for a nil or zero-value Segmentation
func (s *Segmentation) Validate() error {
	if s == nil || len(s.segments) == 0 || len(s.decline) != s.series.Len() {
		return core.ErrNotSegmented
	}
	return nil
}

// Series returns the segmented series
func (s *Segmentation) Series() core.Series {
	return s.series
}

// Segments returns a copy of the segments in start order
func (s *Segmentation) Segments() []Segment {
	out := make([]Segment, len(s.segments))
	copy(out, s.segments)
	return out
}

// Len returns the number of segments
func (s *Segmentation) Len() int {
	return len(s.segments)
}

// Segment returns the segment with the given id
func (s *Segmentation) Segment(id int) (Segment, bool) {
	if id < 0 || id >= len(s.segments) {
		return Segment{}, false
	}
	return s.segments[id], true
}

// SegmentOf returns the id of the segment owning observation i
func (s *Segmentation) SegmentOf(i int) int {
	return s.owner[i]
}

// Decline returns (price - peak) / peak for observation i
func (s *Segmentation) Decline(i int) float64 {
	return s.decline[i]
}

// Rebound returns price / trough - 1 for observation i, measured against
// the trough of its segment
func (s *Segmentation) Rebound(i int) float64 {
	return s.rebound[i]
}

// isLast reports whether seg holds the final observation of the series
func (s *Segmentation) isLast(seg Segment) bool {
	return seg.EndIndex == s.series.Len()-1
}
