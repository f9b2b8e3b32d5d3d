package core

import (
	"sort"
	"time"
)

// Observation is a single daily closing price
type Observation struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// Series is an ordered price history for one symbol, oldest first.
// A Series is treated as immutable once fetched.
type Series struct {
	Symbol       string        `json:"symbol"`
	Observations []Observation `json:"observations"`
}

// Len returns the number of observations
func (s Series) Len() int {
	return len(s.Observations)
}

// IsEmpty reports whether the series has no observations
func (s Series) IsEmpty() bool {
	return len(s.Observations) == 0
}

// First returns the oldest observation
func (s Series) First() (Observation, bool) {
	if len(s.Observations) == 0 {
		return Observation{}, false
	}
	return s.Observations[0], true
}

// Last returns the most recent observation
func (s Series) Last() (Observation, bool) {
	if len(s.Observations) == 0 {
		return Observation{}, false
	}
	return s.Observations[len(s.Observations)-1], true
}

// Tail returns up to n of the most recent observations
func (s Series) Tail(n int) []Observation {
	if n <= 0 {
		return nil
	}
	if n > len(s.Observations) {
		n = len(s.Observations)
	}
	return s.Observations[len(s.Observations)-n:]
}

// Prices returns the price column
func (s Series) Prices() []float64 {
	prices := make([]float64, len(s.Observations))
	for i, o := range s.Observations {
		prices[i] = o.Price
	}
	return prices
}

// Nearest returns the index of the observation closest in time to t.
// It returns false when t falls outside the series range.
func (s Series) Nearest(t time.Time) (int, bool) {
	n := len(s.Observations)
	if n == 0 || t.Before(s.Observations[0].Date) || t.After(s.Observations[n-1].Date) {
		return 0, false
	}

	i := sort.Search(n, func(i int) bool {
		return !s.Observations[i].Date.Before(t)
	})
	if i == 0 {
		return 0, true
	}
	if s.Observations[i].Date.Sub(t) < t.Sub(s.Observations[i-1].Date) {
		return i, true
	}
	return i - 1, true
}

// Civil truncates t to its calendar date in UTC
func Civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
