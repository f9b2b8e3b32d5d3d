package analysis

import (
	"testing"

	"github.com/newthinker/crashscope/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recoveryTags(episodes []RecoveryEpisode) map[int]Tag {
	tags := make(map[int]Tag, len(episodes))
	for _, ep := range episodes {
		tags[ep.SegmentID] = ep.Tag
	}
	return tags
}

func TestClassifyRecoveries_Metrics(t *testing.T) {
	s := mustSegment(seriesOf(100, 50, 75, 90, 120))

	episodes, err := s.ClassifyRecoveries(DefaultOptions())
	require.NoError(t, err)
	require.Len(t, episodes, 1)

	ep := episodes[0]
	assert.Equal(t, 0, ep.SegmentID)
	assert.InDelta(t, -0.5, ep.Severity, 1e-9)
	assert.InDelta(t, 0.8, ep.RecoveryMax, 1e-9)
	assert.InDelta(t, 0.8, ep.LastRebound, 1e-9)
	assert.Equal(t, 2, ep.DaysSinceTrough)
	assert.InDelta(t, 0.4, ep.RecoverySpeed, 1e-9)
	assert.Equal(t, 50.0, ep.TroughPrice)
	assert.False(t, ep.Current)
}

func TestClassifyRecoveries_TroughAtSegmentEnd(t *testing.T) {
	s := mustSegment(seriesOf(100, 120, 90))

	episodes, err := s.ClassifyRecoveries(DefaultOptions())
	require.NoError(t, err)
	require.Len(t, episodes, 1)

	assert.Equal(t, 0, episodes[0].DaysSinceTrough)
	assert.Equal(t, 0.0, episodes[0].RecoverySpeed)
	assert.Equal(t, TagCurrent, episodes[0].Tag)
}

func TestClassifyRecoveries_FastAndSlow(t *testing.T) {
	// segment i recovers in i+1 days, so speed falls with the segment id
	s := mustSegment(seriesOf(recoveryPrices(1, 2, 3, 4, 5, 6, 7)...))

	episodes, err := s.ClassifyRecoveries(DefaultOptions())
	require.NoError(t, err)
	require.Len(t, episodes, 7)

	for i := 1; i < len(episodes); i++ {
		assert.GreaterOrEqual(t, episodes[i-1].RecoverySpeed, episodes[i].RecoverySpeed)
		assert.Equal(t, i+1, episodes[i].Rank)
	}

	tags := recoveryTags(episodes)
	assert.Equal(t, map[int]Tag{
		0: TagFast, 1: TagFast, 2: TagFast,
		3: TagOther,
		4: TagSlow, 5: TagSlow, 6: TagSlow,
	}, tags)
}

func TestClassifyRecoveries_FewEpisodesDoNotOverlap(t *testing.T) {
	s := mustSegment(seriesOf(recoveryPrices(1, 2, 3, 4)...))

	episodes, err := s.ClassifyRecoveries(DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, map[int]Tag{
		0: TagFast, 1: TagFast, 2: TagFast, 3: TagSlow,
	}, recoveryTags(episodes))
}

func TestClassifyRecoveries_CurrentExcludedFromRanking(t *testing.T) {
	prices := recoveryPrices(5, 6, 7, 8)
	peak := prices[len(prices)-1]
	// fastest rebound of all, still in progress at the end of the series
	prices = append(prices, peak*0.5, peak*0.8)

	s := mustSegment(seriesOf(prices...))
	episodes, err := s.ClassifyRecoveries(DefaultOptions())
	require.NoError(t, err)
	require.Len(t, episodes, 5)

	assert.Equal(t, TagCurrent, episodes[0].Tag)
	assert.True(t, episodes[0].Current)

	tags := recoveryTags(episodes)
	assert.Equal(t, TagFast, tags[0])
	assert.Equal(t, TagFast, tags[1])
	assert.Equal(t, TagFast, tags[2])
	assert.Equal(t, TagSlow, tags[3])
}

func TestClassifyRecoveries_TiesKeepPeakOrder(t *testing.T) {
	s := mustSegment(seriesOf(recoveryPrices(3, 3)...))

	episodes, err := s.ClassifyRecoveries(DefaultOptions())
	require.NoError(t, err)
	require.Len(t, episodes, 2)

	assert.Equal(t, 0, episodes[0].SegmentID)
	assert.Equal(t, 1, episodes[1].SegmentID)
}

func TestClassifyRecoveries_Idempotent(t *testing.T) {
	s := mustSegment(seriesOf(recoveryPrices(4, 2, 2, 9, 1, 6)...))

	first, err := s.ClassifyRecoveries(DefaultOptions())
	require.NoError(t, err)
	second, err := s.ClassifyRecoveries(DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestClassifyRecoveries_NoDrawdowns(t *testing.T) {
	episodes, err := mustSegment(seriesOf(1, 2, 3, 4)).ClassifyRecoveries(DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, episodes)
}

func TestClassifyRecoveries_NotSegmented(t *testing.T) {
	_, err := (&Segmentation{}).ClassifyRecoveries(DefaultOptions())
	assert.ErrorIs(t, err, core.ErrNotSegmented)
}
