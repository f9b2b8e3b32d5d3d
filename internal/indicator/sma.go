// Package indicator derives smoothed series used as chart overlays.
package indicator

import "github.com/newthinker/crashscope/internal/core"

// SMA calculates Simple Moving Average
// Returns slice of length: len(prices) - period + 1
func SMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return []float64{}
	}

	result := make([]float64, 0, len(prices)-period+1)

	// Calculate first SMA
	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	result = append(result, sum/float64(period))

	// Rolling calculation
	for i := period; i < len(prices); i++ {
		sum = sum - prices[i-period] + prices[i]
		result = append(result, sum/float64(period))
	}

	return result
}

// MovingAverage returns the period-observation SMA of the series, each value
// dated at the last observation of its window.
func MovingAverage(series core.Series, period int) []core.Observation {
	sma := SMA(series.Prices(), period)
	if len(sma) == 0 {
		return nil
	}

	out := make([]core.Observation, len(sma))
	for i, v := range sma {
		out[i] = core.Observation{
			Date:  series.Observations[i+period-1].Date,
			Price: v,
		}
	}
	return out
}
