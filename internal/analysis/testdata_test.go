package analysis

import (
	"time"

	"github.com/newthinker/crashscope/internal/core"
)

var baseDate = time.Date(2000, 1, 3, 0, 0, 0, 0, time.UTC)

// seriesOf builds a series with one observation per weekday
func seriesOf(prices ...float64) core.Series {
	obs := make([]core.Observation, len(prices))
	d := baseDate
	for i, p := range prices {
		obs[i] = core.Observation{Date: d, Price: p}
		d = d.AddDate(0, 0, 1)
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, 1)
		}
	}
	return core.Series{Symbol: "TEST", Observations: obs}
}

// drawdownPrices returns one peak/trough pair per severity, each peak above
// the last, finishing on a fresh all-time high.
func drawdownPrices(severities ...float64) []float64 {
	var prices []float64
	peak := 100.0
	for _, sev := range severities {
		prices = append(prices, peak, peak*(1+sev))
		peak *= 2
	}
	return append(prices, peak)
}

// recoveryPrices returns drawdowns of -50% that climb back to 90% of their
// peak over the given number of days, finishing on a fresh all-time high.
func recoveryPrices(days ...int) []float64 {
	var prices []float64
	peak := 100.0
	for _, d := range days {
		trough := peak * 0.5
		prices = append(prices, peak, trough)
		for j := 1; j <= d; j++ {
			prices = append(prices, trough+(peak*0.9-trough)*float64(j)/float64(d))
		}
		peak *= 2
	}
	return append(prices, peak)
}

func mustSegment(s core.Series) *Segmentation {
	seg, err := SegmentSeries(s)
	if err != nil {
		panic(err)
	}
	return seg
}
