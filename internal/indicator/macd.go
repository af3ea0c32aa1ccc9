// Package indicator computes EMA/MACD series over daily closing prices.
//
// Everything here is a pure function of its inputs: the same ticks always
// produce the same points. The EMA recurrence is sequential along the time
// axis and must not be parallelized; independent symbols can be.
package indicator

import (
	"CoinFolio/internal/domain/models"
)

// Default MACD windows, matching the TradingView convention.
const (
	DefaultFast   = 12
	DefaultSlow   = 26
	DefaultSignal = 9
)

// MinTicks returns the minimum history needed before any point is emitted:
// slow ticks to complete the slow EMA window plus signal-1 further MACD
// values to seed a full signal line.
func MinTicks(slow, signal int) int {
	return slow + signal - 1
}

// EMA computes the exponential moving average with window n over values,
// seeded with the first value: ema[0] = v[0]; ema[t] = v[t]*k + ema[t-1]*(1-k),
// k = 2/(n+1).
func EMA(values []float64, n int) []float64 {
	if len(values) == 0 || n <= 0 {
		return nil
	}
	k := 2.0 / (float64(n) + 1.0)
	out := make([]float64, len(values))
	out[0] = values[0]
	for t := 1; t < len(values); t++ {
		out[t] = values[t]*k + out[t-1]*(1-k)
	}
	return out
}

// MACD turns an ascending-by-date price series into MACD points. Fewer than
// MinTicks(slow, signal) ticks is insufficient history, not an error: the
// result is empty. Points start at index slow-1, the first date where the
// slow EMA has a full window behind it and the signal seed exists.
func MACD(ticks []models.PriceTick, fast, slow, signal int) []models.IndicatorPoint {
	if fast <= 0 {
		fast = DefaultFast
	}
	if slow <= 0 {
		slow = DefaultSlow
	}
	if signal <= 0 {
		signal = DefaultSignal
	}
	if len(ticks) < MinTicks(slow, signal) {
		return nil
	}

	closes := make([]float64, len(ticks))
	for i, t := range ticks {
		closes[i] = t.Close
	}

	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)

	first := slow - 1
	macd := make([]float64, 0, len(closes)-first)
	for t := first; t < len(closes); t++ {
		macd = append(macd, emaFast[t]-emaSlow[t])
	}
	signalLine := EMA(macd, signal)

	points := make([]models.IndicatorPoint, 0, len(macd))
	for i := range macd {
		t := first + i
		p := models.IndicatorPoint{
			Date:      ticks[t].Date,
			EMAFast:   emaFast[t],
			EMASlow:   emaSlow[t],
			MACD:      macd[i],
			Signal:    signalLine[i],
			Histogram: macd[i] - signalLine[i],
		}
		points = append(points, p)
	}
	annotateCrossovers(points)
	return points
}

// annotateCrossovers flags histogram sign flips between consecutive points.
// Derived from the computed series, not a separate recurrence.
func annotateCrossovers(points []models.IndicatorPoint) {
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1].Histogram, points[i].Histogram
		switch {
		case prev < 0 && cur > 0:
			points[i].Crossover = models.BullishCrossover
		case prev > 0 && cur < 0:
			points[i].Crossover = models.BearishCrossover
		}
	}
}
