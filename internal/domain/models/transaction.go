package models

import "time"

// TransactionType distinguishes buys from sells.
type TransactionType string

const (
	Buy  TransactionType = "Buy"
	Sell TransactionType = "Sell"
)

// Transaction is one accepted ledger entry. Immutable once accepted;
// corrections are modeled as new offsetting entries, never edits.
type Transaction struct {
	ID       string
	UserID   string
	Symbol   string
	Type     TransactionType
	Date     time.Time // UTC midnight
	Price    float64
	Quantity float64
}

// Total returns price * quantity.
func (t Transaction) Total() float64 {
	return t.Price * t.Quantity
}

// Position is the derived per-symbol holding, recomputed from the ordered
// transaction history using weighted-average cost.
type Position struct {
	Symbol       string
	NetQuantity  float64
	AvgCostBasis float64
}

// CostValue returns the total cost of the held quantity.
func (p Position) CostValue() float64 {
	return p.NetQuantity * p.AvgCostBasis
}

// RealizedEvent records the profit or loss locked in by one Sell, computed
// against the average cost basis at transaction time.
type RealizedEvent struct {
	Symbol   string
	Date     time.Time
	Quantity float64
	Price    float64
	PnL      float64
}
