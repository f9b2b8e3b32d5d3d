package analysis

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/newthinker/crashscope/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentSeries_Scenario(t *testing.T) {
	s, err := SegmentSeries(seriesOf(100, 110, 90, 80, 95, 120))
	require.NoError(t, err)

	segs := s.Segments()
	require.Len(t, segs, 3)

	assert.Equal(t, 0, segs[0].StartIndex)
	assert.Equal(t, 0, segs[0].EndIndex)

	assert.Equal(t, 1, segs[1].StartIndex)
	assert.Equal(t, 4, segs[1].EndIndex)
	assert.Equal(t, 110.0, segs[1].PeakPrice)
	assert.Equal(t, 3, segs[1].TroughIndex)
	assert.Equal(t, 80.0, segs[1].TroughPrice)
	assert.InDelta(t, -0.2727, segs[1].Severity, 1e-4)

	assert.Equal(t, 5, segs[2].StartIndex)
	assert.Equal(t, 5, segs[2].EndIndex)
	assert.Equal(t, 0.0, segs[2].Severity)

	assert.InDelta(t, -0.1818, s.Decline(2), 1e-4)
	assert.InDelta(t, -0.2727, s.Decline(3), 1e-4)
	assert.InDelta(t, -0.1364, s.Decline(4), 1e-4)
	assert.InDelta(t, 0.1875, s.Rebound(4), 1e-9)
	assert.Equal(t, 0.0, s.Rebound(3))
	assert.Equal(t, 1, s.SegmentOf(4))
	assert.True(t, segs[1].Contains(4))
	assert.False(t, segs[1].Contains(5))
}

func TestSegmentSeries_ContiguousAndExhaustive(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 20; run++ {
		n := 2 + rng.Intn(300)
		prices := make([]float64, n)
		p := 100.0
		for i := range prices {
			p *= 1 + (rng.Float64()-0.5)*0.06
			prices[i] = p
		}

		s, err := SegmentSeries(seriesOf(prices...))
		require.NoError(t, err)

		next := 0
		for id, seg := range s.Segments() {
			assert.Equal(t, id, seg.ID)
			assert.Equal(t, next, seg.StartIndex, "segment %d must start where the previous ended", id)
			assert.GreaterOrEqual(t, seg.EndIndex, seg.StartIndex)
			next = seg.EndIndex + 1
		}
		assert.Equal(t, n, next, "segments must cover every observation")
	}
}

func TestSegmentSeries_DeclineBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	prices := make([]float64, 500)
	p := 50.0
	for i := range prices {
		p *= 1 + (rng.Float64()-0.48)*0.05
		prices[i] = p
	}

	s, err := SegmentSeries(seriesOf(prices...))
	require.NoError(t, err)

	for _, seg := range s.Segments() {
		assert.Equal(t, 0.0, s.Decline(seg.StartIndex), "decline must be zero at the peak")
		for i := seg.StartIndex + 1; i <= seg.EndIndex; i++ {
			assert.LessOrEqual(t, s.Decline(i), 0.0)
			assert.Less(t, prices[i], seg.PeakPrice, "random prices never tie the peak")
			assert.Less(t, s.Decline(i), 0.0)
		}
		assert.LessOrEqual(t, seg.Severity, 0.0)
		assert.Equal(t, 0.0, s.Rebound(seg.TroughIndex))
	}
}

func TestSegmentSeries_MonotonicIncrease(t *testing.T) {
	prices := make([]float64, 50)
	for i := range prices {
		prices[i] = float64(100 + i)
	}

	s, err := SegmentSeries(seriesOf(prices...))
	require.NoError(t, err)

	assert.Equal(t, 50, s.Len())
	for i := range prices {
		assert.Equal(t, 0.0, s.Decline(i))
	}
}

func TestSegmentSeries_EqualPriceExtendsSegment(t *testing.T) {
	s, err := SegmentSeries(seriesOf(100, 100, 99, 100))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestSegmentSeries_InsufficientData(t *testing.T) {
	for _, prices := range [][]float64{nil, {100}} {
		_, err := SegmentSeries(seriesOf(prices...))
		if !errors.Is(err, core.ErrInsufficientData) {
			t.Errorf("%d observations: expected ErrInsufficientData, got %v", len(prices), err)
		}
	}
}

func TestSegmentSeries_RejectsMalformed(t *testing.T) {
	valid := seriesOf(100, 101, 102)

	tests := []struct {
		name   string
		mutate func(s *core.Series)
	}{
		{"nan price", func(s *core.Series) { s.Observations[1].Price = math.NaN() }},
		{"infinite price", func(s *core.Series) { s.Observations[2].Price = math.Inf(1) }},
		{"negative price", func(s *core.Series) { s.Observations[0].Price = -1 }},
		{"duplicate date", func(s *core.Series) { s.Observations[2].Date = s.Observations[1].Date }},
		{"date goes backwards", func(s *core.Series) { s.Observations[1].Date = s.Observations[0].Date.AddDate(0, 0, -1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := core.Series{Symbol: valid.Symbol, Observations: append([]core.Observation(nil), valid.Observations...)}
			tt.mutate(&s)

			_, err := SegmentSeries(s)
			assert.ErrorIs(t, err, core.ErrInvalidObservation)
		})
	}
}

func TestSegmentSeries_ZeroPrices(t *testing.T) {
	s, err := SegmentSeries(seriesOf(0, 0, 5, 0))
	require.NoError(t, err)

	assert.Equal(t, 0.0, s.Decline(1))
	assert.Equal(t, -1.0, s.Decline(3))
	assert.Equal(t, 0.0, s.Rebound(2), "rebound from a zero trough is reported as zero")
}

func TestSegmentation_Validate(t *testing.T) {
	var nilSeg *Segmentation
	assert.ErrorIs(t, nilSeg.Validate(), core.ErrNotSegmented)
	assert.ErrorIs(t, (&Segmentation{}).Validate(), core.ErrNotSegmented)
	assert.NoError(t, mustSegment(seriesOf(1, 2)).Validate())
}

func TestSegmentation_SegmentOutOfRange(t *testing.T) {
	s := mustSegment(seriesOf(1, 2))
	_, ok := s.Segment(5)
	assert.False(t, ok)
	_, ok = s.Segment(-1)
	assert.False(t, ok)
}
