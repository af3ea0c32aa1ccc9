package usecase

import (
	"context"
	"fmt"
	"time"

	"CoinFolio/internal/domain/models"
	"CoinFolio/internal/ledger"
	"CoinFolio/internal/summary"
	"CoinFolio/pkg/util"
)

// seriesBackfill widens the price window behind the summary range so
// carry-forward valuation has a close to work with.
const seriesBackfill = 30 * 24 * time.Hour

// SummaryUseCase provides the weekly portfolio aggregation.
type SummaryUseCase struct {
	ledgers *ledger.Store
	loader  *SeriesLoader
}

func NewSummaryUseCase(ledgers *ledger.Store, loader *SeriesLoader) *SummaryUseCase {
	return &SummaryUseCase{ledgers: ledgers, loader: loader}
}

type WeeklySummaryParams struct {
	From time.Time // zero: first transaction date
	To   time.Time // zero: today
}

type WeeklySummaryResult struct {
	From     time.Time
	To       time.Time
	Weeks    []models.WeekBucket
	Warnings []models.Warning
}

// GetWeeklySummary buckets the user's portfolio into Monday-start weeks over
// the requested range. An empty ledger yields an empty series, not an error.
func (uc *SummaryUseCase) GetWeeklySummary(ctx context.Context, userID string, p WeeklySummaryParams) (*WeeklySummaryResult, error) {
	l := uc.ledgers.ForUser(userID)
	txns := l.History("")

	if p.To.IsZero() {
		p.To = util.Day(time.Now())
	}
	if p.From.IsZero() {
		if len(txns) == 0 {
			return &WeeklySummaryResult{From: p.From, To: p.To}, nil
		}
		p.From = earliestDate(txns)
	}
	p.From, p.To = util.Day(p.From), util.Day(p.To)
	if p.To.Before(p.From) {
		return nil, models.NewValidationError("to", fmt.Sprintf("must not precede from (%s)", util.FormatDay(p.From)))
	}

	series, warnings := uc.loader.LoadMany(ctx, l.Symbols(), p.From.Add(-seriesBackfill), p.To)
	weeks := summary.Weekly(txns, series, p.From, p.To)
	return &WeeklySummaryResult{
		From:     p.From,
		To:       p.To,
		Weeks:    weeks,
		Warnings: warnings,
	}, nil
}

func earliestDate(txns []models.Transaction) time.Time {
	earliest := txns[0].Date
	for _, t := range txns[1:] {
		if t.Date.Before(earliest) {
			earliest = t.Date
		}
	}
	return earliest
}
