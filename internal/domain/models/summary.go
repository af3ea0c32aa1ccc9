package models

import "time"

// SymbolValuation is the mark-to-market view of one open position.
type SymbolValuation struct {
	Symbol        string
	Quantity      float64
	AvgCostBasis  float64
	LatestPrice   float64
	PriceDate     time.Time
	MarketValue   float64
	UnrealizedPnL float64
}

// Warning is a non-fatal, per-symbol annotation attached to an otherwise
// successful result (missing price data, stale cache, ...).
type Warning struct {
	Symbol string
	Code   string
	Reason string
}

const (
	WarnMissingPriceData = "MissingPriceData"
	WarnStaleData        = "StaleDataWarning"
)

// Valuation aggregates per-symbol market values as of a date.
type Valuation struct {
	AsOf               time.Time
	PerSymbol          map[string]SymbolValuation
	TotalValue         float64
	TotalUnrealizedPnL float64
	Warnings           []Warning
}

// WeekBucket is one ISO (Monday-start) week of the portfolio summary.
// Weeks with no transactions still appear so the series stays gap-free.
type WeekBucket struct {
	WeekStart     time.Time
	PortfolioVal  float64
	RealizedPnL   float64
	UnrealizedPnL float64
	ValueDelta    float64 // vs prior week; 0 for the first week in range
}
