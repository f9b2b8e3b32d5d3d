package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slideAndClimb falls for down days from a peak of 1000 then climbs back
// 90% of the loss over up days, finishing on a new high.
func slideAndClimb(down, up int) []float64 {
	prices := []float64{1000}
	p := 1000.0
	for i := 0; i < down; i++ {
		p -= 3
		prices = append(prices, p)
	}
	step := 0.9 * (1000 - p) / float64(up)
	for i := 0; i < up; i++ {
		p += step
		prices = append(prices, p)
	}
	return append(prices, 2000)
}

func TestAlignDrawdown_StartsAtPeak(t *testing.T) {
	s := mustSegment(seriesOf(drawdownPrices(-0.3, -0.1, -0.45, -0.05)...))

	episodes, err := s.ClassifyDrawdowns(DefaultOptions())
	require.NoError(t, err)
	require.NotEmpty(t, episodes)

	for _, ep := range episodes {
		traj := s.AlignDrawdown(ep)
		require.NotEmpty(t, traj)
		assert.Equal(t, Point{Day: 0, Value: 0}, traj[0])

		last, ok := traj.Last()
		require.True(t, ok)
		assert.Equal(t, ep.Duration, last.Day)
		assert.InDelta(t, ep.LastDecline, last.Value, 1e-12)
		assert.InDelta(t, ep.Severity, traj.Min(), 1e-12)
	}
}

func TestAlignDrawdown_Scenario(t *testing.T) {
	s := mustSegment(seriesOf(100, 110, 90, 80, 95, 120))
	episodes, err := s.ClassifyDrawdowns(DefaultOptions())
	require.NoError(t, err)

	traj := s.AlignDrawdown(episodes[0])
	require.Len(t, traj, 4)
	for i, p := range traj {
		assert.Equal(t, i, p.Day)
	}
	assert.InDelta(t, -0.2727, traj[2].Value, 1e-4)
}

func TestAlignRecovery_DefaultWindow(t *testing.T) {
	s := mustSegment(seriesOf(slideAndClimb(150, 40)...))

	episodes, err := s.ClassifyRecoveries(DefaultOptions())
	require.NoError(t, err)
	require.Len(t, episodes, 1)

	traj := s.AlignRecovery(episodes[0], DefaultWindow())
	require.Len(t, traj, 141)
	assert.Equal(t, -100, traj[0].Day)
	assert.Equal(t, 40, traj[len(traj)-1].Day)

	for i, p := range traj {
		assert.Equal(t, -100+i, p.Day)
		if p.Day == 0 {
			assert.Equal(t, 0.0, p.Value)
		}
	}
	last, _ := traj.Last()
	assert.InDelta(t, episodes[0].RecoveryMax, last.Value, 1e-12)
}

func TestAlignRecovery_ClippedToSegment(t *testing.T) {
	s := mustSegment(seriesOf(slideAndClimb(10, 300)...))

	episodes, err := s.ClassifyRecoveries(DefaultOptions())
	require.NoError(t, err)
	require.Len(t, episodes, 1)

	traj := s.AlignRecovery(episodes[0], DefaultWindow())
	require.NotEmpty(t, traj)
	assert.Equal(t, -10, traj[0].Day, "trajectory cannot start before the peak")
	assert.Equal(t, 100, traj[len(traj)-1].Day)
}

func TestAlignRecovery_NarrowWindow(t *testing.T) {
	s := mustSegment(seriesOf(slideAndClimb(20, 20)...))

	episodes, err := s.ClassifyRecoveries(DefaultOptions())
	require.NoError(t, err)

	traj := s.AlignRecovery(episodes[0], Window{Before: 0, After: 5})
	require.Len(t, traj, 6)
	assert.Equal(t, 0, traj[0].Day)
	assert.Equal(t, 5, traj[5].Day)
}

func TestAlign_InvalidSegment(t *testing.T) {
	s := mustSegment(seriesOf(100, 90, 110))

	assert.Nil(t, s.AlignDrawdown(Episode{SegmentID: 9}))
	assert.Nil(t, s.AlignRecovery(RecoveryEpisode{SegmentID: -1}, DefaultWindow()))
}

func TestTag_TextRoundTrip(t *testing.T) {
	for _, tag := range []Tag{TagOther, TagCurrent, TagWorst, TagNotable, TagFast, TagSlow} {
		parsed, err := ParseTag(tag.String())
		require.NoError(t, err)
		assert.Equal(t, tag, parsed)
	}

	_, err := ParseTag("bogus")
	assert.Error(t, err)
	assert.Equal(t, "tag(42)", Tag(42).String())
}

func TestEpisode_JSON(t *testing.T) {
	data, err := json.Marshal(Episode{SegmentID: 2, Tag: TagNotable, Duration: 12})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tag":"notable"`)
	assert.Contains(t, string(data), `"duration_days":12`)

	var back Episode
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, TagNotable, back.Tag)
}
