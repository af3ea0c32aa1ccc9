package models

import "time"

// Crossover flags a histogram sign change between consecutive points.
type Crossover string

const (
	NoCrossover      Crossover = ""
	BullishCrossover Crossover = "bullish" // histogram negative -> positive
	BearishCrossover Crossover = "bearish" // histogram positive -> negative
)

// IndicatorPoint is one dated MACD observation. Points exist only for dates
// with enough trailing history to seed both EMAs and the signal line.
type IndicatorPoint struct {
	Date      time.Time
	EMAFast   float64
	EMASlow   float64
	MACD      float64
	Signal    float64
	Histogram float64
	Crossover Crossover
}
