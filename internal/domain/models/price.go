package models

import "time"

// PriceTick is one daily closing price for a symbol.
type PriceTick struct {
	Symbol string
	Date   time.Time // UTC midnight
	Close  float64
}

// PriceSeries is an ordered-by-date, gap-tolerant sequence of ticks for one
// symbol. Dates need not be contiguous (weekends, holidays, feed gaps).
type PriceSeries struct {
	Symbol    string
	Ticks     []PriceTick
	Stale     bool // served past TTL because a refresh failed
	FetchedAt time.Time
}

// LiveTick is a real-time ticker update from a streaming feed.
type LiveTick struct {
	Symbol string
	Price  float64
	At     time.Time
}

// Closes extracts the close prices in date order.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Ticks))
	for i, t := range s.Ticks {
		out[i] = t.Close
	}
	return out
}

// LatestAt returns the last tick dated at or before day, if any.
func (s PriceSeries) LatestAt(day time.Time) (PriceTick, bool) {
	for i := len(s.Ticks) - 1; i >= 0; i-- {
		if !s.Ticks[i].Date.After(day) {
			return s.Ticks[i], true
		}
	}
	return PriceTick{}, false
}

// Slice returns the ticks inside [from, to] inclusive.
func (s PriceSeries) Slice(from, to time.Time) []PriceTick {
	out := make([]PriceTick, 0, len(s.Ticks))
	for _, t := range s.Ticks {
		if t.Date.Before(from) || t.Date.After(to) {
			continue
		}
		out = append(out, t)
	}
	return out
}
