package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInsufficientHoldings rejects a Sell whose quantity exceeds the current
// net position. The ledger is left unchanged.
var ErrInsufficientHoldings = errors.New("insufficient holdings")

// ErrSymbolNotFound is returned by a market data provider for unknown symbols.
var ErrSymbolNotFound = errors.New("symbol not found")

// ValidationError reports a rejected transaction field. Rejections are
// synchronous and never partially applied.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// MarketDataError carries enough context (symbol, range, cause) for the
// caller to retry or display a precise message.
type MarketDataError struct {
	Symbol string
	From   time.Time
	To     time.Time
	Err    error
}

func (e *MarketDataError) Error() string {
	return fmt.Sprintf("market data unavailable for %s [%s..%s]: %v",
		e.Symbol, e.From.Format("2006-01-02"), e.To.Format("2006-01-02"), e.Err)
}

func (e *MarketDataError) Unwrap() error { return e.Err }

// IsMarketDataUnavailable reports whether err is a MarketDataError.
func IsMarketDataUnavailable(err error) bool {
	var mde *MarketDataError
	return errors.As(err, &mde)
}
