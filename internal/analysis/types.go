// Package analysis splits a price series into peak-anchored segments and
// derives ranked drawdown and recovery episodes from them.
package analysis

import (
	"fmt"
	"time"
)

// Tag classifies an episode against its historical peers
type Tag uint8

const (
	TagOther Tag = iota
	TagCurrent
	TagWorst
	TagNotable
	TagFast
	TagSlow
)

var tagNames = [...]string{
	TagOther:   "other",
	TagCurrent: "current",
	TagWorst:   "worst",
	TagNotable: "notable",
	TagFast:    "fast",
	TagSlow:    "slow",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return fmt.Sprintf("tag(%d)", t)
}

// ParseTag converts a tag name back to a Tag
func ParseTag(s string) (Tag, error) {
	for i, name := range tagNames {
		if name == s {
			return Tag(i), nil
		}
	}
	return TagOther, fmt.Errorf("unknown tag: %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *Tag) UnmarshalText(b []byte) error {
	parsed, err := ParseTag(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Segment is a maximal run of observations sharing the same running peak.
// Indexes refer to the observations of the segmented series.
type Segment struct {
	ID          int       `json:"id"`
	PeakPrice   float64   `json:"peak_price"`
	PeakDate    time.Time `json:"peak_date"`
	StartIndex  int       `json:"start_index"`
	EndIndex    int       `json:"end_index"`
	TroughIndex int       `json:"trough_index"`
	TroughPrice float64   `json:"trough_price"`
	Severity    float64   `json:"severity"` // lowest decline from peak, always <= 0
}

// Len returns the number of observations in the segment
func (s Segment) Len() int {
	return s.EndIndex - s.StartIndex + 1
}

// Contains reports whether observation i belongs to the segment
func (s Segment) Contains(i int) bool {
	return i >= s.StartIndex && i <= s.EndIndex
}

// Episode is a qualifying drawdown, ranked by severity
type Episode struct {
	SegmentID   int       `json:"segment_id"`
	Rank        int       `json:"rank"`
	Tag         Tag       `json:"tag"`
	Current     bool      `json:"current"`
	PeakDate    time.Time `json:"peak_date"`
	PeakYear    int       `json:"peak_year"`
	PeakPrice   float64   `json:"peak_price"`
	TroughDate  time.Time `json:"trough_date"`
	TroughPrice float64   `json:"trough_price"`
	Severity    float64   `json:"severity"`
	LastDecline float64   `json:"last_decline"`
	Duration    int       `json:"duration_days"` // trading days from peak to last observation of the segment
}

// RecoveryEpisode is the rebound that follows a qualifying drawdown's trough
type RecoveryEpisode struct {
	SegmentID       int       `json:"segment_id"`
	Rank            int       `json:"rank"`
	Tag             Tag       `json:"tag"`
	Current         bool      `json:"current"`
	PeakDate        time.Time `json:"peak_date"`
	PeakYear        int       `json:"peak_year"`
	TroughDate      time.Time `json:"trough_date"`
	TroughPrice     float64   `json:"trough_price"`
	Severity        float64   `json:"severity"`
	RecoveryMax     float64   `json:"recovery_max"`
	LastRebound     float64   `json:"last_rebound"`
	DaysSinceTrough int       `json:"days_since_trough"`
	RecoverySpeed   float64   `json:"recovery_speed"`
}

// Point is one observation on a relative day axis
type Point struct {
	Day   int     `json:"day"`
	Value float64 `json:"value"`
}

// Trajectory is an episode re-indexed onto days since its anchor
type Trajectory []Point

// Last returns the final point of the trajectory
func (t Trajectory) Last() (Point, bool) {
	if len(t) == 0 {
		return Point{}, false
	}
	return t[len(t)-1], true
}

// Min returns the lowest value in the trajectory
func (t Trajectory) Min() float64 {
	var lowest float64
	for i, p := range t {
		if i == 0 || p.Value < lowest {
			lowest = p.Value
		}
	}
	return lowest
}

// Max returns the highest value in the trajectory
func (t Trajectory) Max() float64 {
	var highest float64
	for i, p := range t {
		if i == 0 || p.Value > highest {
			highest = p.Value
		}
	}
	return highest
}
