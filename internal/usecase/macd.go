package usecase

import (
	"context"
	"time"

	"CoinFolio/internal/domain/models"
	"CoinFolio/internal/indicator"
	"CoinFolio/pkg/util"
)

// DefaultLookbackDays is how much daily history backs a MACD request.
// Two years gives the slow EMA plenty of warm-up.
const DefaultLookbackDays = 730

// MACDUseCase computes MACD analysis over cached price series.
type MACDUseCase struct {
	loader       *SeriesLoader
	lookbackDays int
}

func NewMACDUseCase(loader *SeriesLoader, lookbackDays int) *MACDUseCase {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	return &MACDUseCase{loader: loader, lookbackDays: lookbackDays}
}

type MACDParams struct {
	Symbol string
	Fast   int
	Slow   int
	Signal int
}

type MACDResult struct {
	Symbol    string
	Fast      int
	Slow      int
	Signal    int
	TickCount int
	MinTicks  int
	Stale     bool
	Points    []models.IndicatorPoint
}

// GetMACD fetches the symbol's history and computes the MACD series.
// Insufficient history is a successful response with zero points; only an
// unfetchable symbol is an error.
func (uc *MACDUseCase) GetMACD(ctx context.Context, p MACDParams) (*MACDResult, error) {
	if p.Symbol == "" {
		return nil, models.NewValidationError("symbol", "must not be empty")
	}
	if p.Fast <= 0 {
		p.Fast = indicator.DefaultFast
	}
	if p.Slow <= 0 {
		p.Slow = indicator.DefaultSlow
	}
	if p.Signal <= 0 {
		p.Signal = indicator.DefaultSignal
	}
	if p.Fast >= p.Slow {
		return nil, models.NewValidationError("fast", "must be smaller than slow")
	}

	to := util.Day(time.Now())
	from := to.AddDate(0, 0, -uc.lookbackDays)
	series, err := uc.loader.LoadOne(ctx, p.Symbol, from, to)
	if err != nil {
		return nil, err
	}

	points := indicator.MACD(series.Ticks, p.Fast, p.Slow, p.Signal)
	return &MACDResult{
		Symbol:    series.Symbol,
		Fast:      p.Fast,
		Slow:      p.Slow,
		Signal:    p.Signal,
		TickCount: len(series.Ticks),
		MinTicks:  indicator.MinTicks(p.Slow, p.Signal),
		Stale:     series.Stale,
		Points:    points,
	}, nil
}
