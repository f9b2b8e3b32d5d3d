package analysis

import (
	"testing"

	"github.com/newthinker/crashscope/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tagsOf(episodes []Episode) []Tag {
	tags := make([]Tag, len(episodes))
	for i, ep := range episodes {
		tags[i] = ep.Tag
	}
	return tags
}

func countTag(episodes []Episode, tag Tag) int {
	n := 0
	for _, ep := range episodes {
		if ep.Tag == tag {
			n++
		}
	}
	return n
}

func TestClassifyDrawdowns_Scenario(t *testing.T) {
	s := mustSegment(seriesOf(100, 110, 90, 80, 95, 120))

	episodes, err := s.ClassifyDrawdowns(DefaultOptions())
	require.NoError(t, err)
	require.Len(t, episodes, 1)

	ep := episodes[0]
	assert.Equal(t, 1, ep.SegmentID)
	assert.Equal(t, TagWorst, ep.Tag)
	assert.False(t, ep.Current)
	assert.Equal(t, 1, ep.Rank)
	assert.InDelta(t, -0.2727, ep.Severity, 1e-4)
	assert.InDelta(t, -0.1364, ep.LastDecline, 1e-4)
	assert.Equal(t, 2000, ep.PeakYear)
	assert.Equal(t, 110.0, ep.PeakPrice)
	assert.Equal(t, 80.0, ep.TroughPrice)
	assert.Equal(t, 3, ep.Duration)
	assert.Zero(t, countTag(episodes, TagCurrent))
}

func TestClassifyDrawdowns_MonotonicIncrease(t *testing.T) {
	prices := make([]float64, 50)
	for i := range prices {
		prices[i] = 10 + float64(i)*0.5
	}

	episodes, err := mustSegment(seriesOf(prices...)).ClassifyDrawdowns(DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, episodes)
}

func TestClassifyDrawdowns_ThresholdIsStrict(t *testing.T) {
	episodes, err := mustSegment(seriesOf(100, 98, 101)).ClassifyDrawdowns(DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, episodes, "a decline of exactly two percent does not qualify")

	episodes, err = mustSegment(seriesOf(100, 97.9, 101)).ClassifyDrawdowns(DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, episodes, 1)
}

func TestClassifyDrawdowns_CurrentEpisode(t *testing.T) {
	// 120 peak falls 25%, then 130 peak is still 23% under water at the end
	s := mustSegment(seriesOf(100, 120, 90, 130, 100))

	episodes, err := s.ClassifyDrawdowns(DefaultOptions())
	require.NoError(t, err)
	require.Len(t, episodes, 2)

	assert.Equal(t, 1, countTag(episodes, TagCurrent))
	assert.Equal(t, TagWorst, episodes[0].Tag)
	assert.Equal(t, 1, episodes[0].SegmentID)
	assert.Equal(t, TagCurrent, episodes[1].Tag)
	assert.True(t, episodes[1].Current)
	assert.Equal(t, 2, episodes[1].SegmentID)
}

func TestClassifyDrawdowns_CurrentOutranksWorst(t *testing.T) {
	s := mustSegment(seriesOf(100, 90, 110, 50))

	episodes, err := s.ClassifyDrawdowns(DefaultOptions())
	require.NoError(t, err)
	require.Len(t, episodes, 2)

	assert.Equal(t, TagCurrent, episodes[0].Tag, "the current drawdown keeps its tag even when it is the deepest")
	assert.Equal(t, 1, episodes[0].Rank)
	assert.Equal(t, TagWorst, episodes[1].Tag, "worst goes to the deepest non-current drawdown")
}

func TestClassifyDrawdowns_NotableSelection(t *testing.T) {
	prices := drawdownPrices(-0.10, -0.40, -0.26, -0.03, -0.50, -0.30, -0.28)

	episodes, err := mustSegment(seriesOf(prices...)).ClassifyDrawdowns(DefaultOptions())
	require.NoError(t, err)
	require.Len(t, episodes, 7)

	wantSeverity := []float64{-0.50, -0.40, -0.30, -0.28, -0.26, -0.10, -0.03}
	for i, ep := range episodes {
		assert.InDelta(t, wantSeverity[i], ep.Severity, 1e-9)
		assert.Equal(t, i+1, ep.Rank)
	}

	assert.Equal(t, []Tag{
		TagWorst, TagNotable, TagNotable, TagNotable, TagOther, TagOther, TagOther,
	}, tagsOf(episodes))
}

func TestClassifyDrawdowns_NotableNeedsThreshold(t *testing.T) {
	prices := drawdownPrices(-0.60, -0.20, -0.15)

	episodes, err := mustSegment(seriesOf(prices...)).ClassifyDrawdowns(DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []Tag{TagWorst, TagOther, TagOther}, tagsOf(episodes))
}

func TestClassifyDrawdowns_NotableCountOption(t *testing.T) {
	prices := drawdownPrices(-0.50, -0.45, -0.40, -0.35)
	opts := DefaultOptions()
	opts.NotableCount = 1

	episodes, err := mustSegment(seriesOf(prices...)).ClassifyDrawdowns(opts)
	require.NoError(t, err)

	assert.Equal(t, []Tag{TagWorst, TagNotable, TagOther, TagOther}, tagsOf(episodes))
}

func TestClassifyDrawdowns_TiesKeepPeakOrder(t *testing.T) {
	prices := drawdownPrices(-0.30, -0.30)

	episodes, err := mustSegment(seriesOf(prices...)).ClassifyDrawdowns(DefaultOptions())
	require.NoError(t, err)
	require.Len(t, episodes, 2)

	assert.Less(t, episodes[0].SegmentID, episodes[1].SegmentID)
	assert.Equal(t, TagWorst, episodes[0].Tag)
}

func TestClassifyDrawdowns_Idempotent(t *testing.T) {
	s := mustSegment(seriesOf(drawdownPrices(-0.3, -0.3, -0.5, -0.05, -0.3, -0.27)...))

	first, err := s.ClassifyDrawdowns(DefaultOptions())
	require.NoError(t, err)
	second, err := s.ClassifyDrawdowns(DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestClassifyDrawdowns_ExactlyOneCurrentWhenUnderWater(t *testing.T) {
	prices := drawdownPrices(-0.3, -0.1)
	prices = append(prices, prices[len(prices)-1]*0.9)

	episodes, err := mustSegment(seriesOf(prices...)).ClassifyDrawdowns(DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, countTag(episodes, TagCurrent))
}

func TestClassifyDrawdowns_NotSegmented(t *testing.T) {
	var s *Segmentation
	_, err := s.ClassifyDrawdowns(DefaultOptions())
	assert.ErrorIs(t, err, core.ErrNotSegmented)
}

func TestClassify_RejectsInvalidOptions(t *testing.T) {
	s := mustSegment(seriesOf(100, 90, 110, 80, 120))
	opts := DefaultOptions()
	opts.SeverityThreshold = 0.1

	episodes, err := s.ClassifyDrawdowns(opts)
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
	assert.Nil(t, episodes)

	recoveries, err := s.ClassifyRecoveries(opts)
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
	assert.Nil(t, recoveries)
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *Options)
		wantErr bool
	}{
		{"defaults", func(o *Options) {}, false},
		{"positive severity", func(o *Options) { o.SeverityThreshold = 0.1 }, true},
		{"severity below -100%", func(o *Options) { o.SeverityThreshold = -1 }, true},
		{"positive notable", func(o *Options) { o.NotableThreshold = 0.2 }, true},
		{"negative notable count", func(o *Options) { o.NotableCount = -1 }, true},
		{"negative recovery count", func(o *Options) { o.RecoveryRankCount = -2 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			err := opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
