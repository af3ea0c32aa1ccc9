package usecase

import (
	"context"
	"errors"
	"time"

	"CoinFolio/internal/domain/models"
	domrepo "CoinFolio/internal/domain/repository"
	"CoinFolio/internal/ledger"
	"CoinFolio/internal/valuation"
	applogger "CoinFolio/pkg/logger"
	"CoinFolio/pkg/util"
)

// valuationLookback is how far back prices are requested when marking
// positions to market; wide enough to survive long feed gaps.
const valuationLookback = 30 * 24 * time.Hour

// PortfolioUseCase provides business logic for the transaction ledger and
// mark-to-market valuation.
type PortfolioUseCase struct {
	ledgers   *ledger.Store
	loader    *SeriesLoader
	publisher domrepo.TransactionPublisher // optional
	metrics   domrepo.Metrics
	logger    *applogger.Logger
}

func NewPortfolioUseCase(ledgers *ledger.Store, loader *SeriesLoader, publisher domrepo.TransactionPublisher, metrics domrepo.Metrics, logger *applogger.Logger) *PortfolioUseCase {
	return &PortfolioUseCase{
		ledgers:   ledgers,
		loader:    loader,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

type AddHoldingResult struct {
	Transaction models.Transaction
	Position    models.Position
}

// AddHolding validates and appends a transaction to the user's ledger and
// returns the updated position. Accepted entries are published downstream
// best-effort; a publish failure never unwinds the entry.
func (uc *PortfolioUseCase) AddHolding(ctx context.Context, userID string, req models.AddHoldingRequest) (*AddHoldingResult, error) {
	defer uc.observe("add_holding", time.Now())

	date, ok := util.ParseDay(req.PurchaseDate)
	if !ok {
		return nil, models.NewValidationError("purchase_date", "must be YYYY-MM-DD")
	}
	txnType := models.TransactionType(req.Type)
	if req.Type == "" {
		txnType = models.Buy
	}

	txn := models.Transaction{
		Symbol:   req.Symbol,
		Type:     txnType,
		Date:     date,
		Price:    req.PurchasePrice,
		Quantity: req.Quantity,
	}
	stored, pos, err := uc.ledgers.ForUser(userID).Add(txn)
	if err != nil {
		uc.metrics.RecordLedgerRejection(rejectionKind(err))
		return nil, err
	}

	if uc.publisher != nil {
		if perr := uc.publisher.Publish(ctx, &stored); perr != nil {
			uc.logger.Warn("transaction publish failed",
				applogger.String("txn_id", stored.ID),
				applogger.Error(perr),
			)
		}
	}
	return &AddHoldingResult{Transaction: stored, Position: pos}, nil
}

// observe records how long an operation took, in seconds.
func (uc *PortfolioUseCase) observe(op string, start time.Time) {
	uc.metrics.RecordLatency(op, time.Since(start).Seconds())
}

func rejectionKind(err error) string {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return "validation"
	case errors.Is(err, models.ErrInsufficientHoldings):
		return "insufficient_holdings"
	default:
		return "other"
	}
}

type PortfolioResult struct {
	Positions    map[string]models.Position
	Transactions []models.Transaction
}

// GetPortfolio returns the user's current positions and full transaction
// history in submission order.
func (uc *PortfolioUseCase) GetPortfolio(ctx context.Context, userID string) (*PortfolioResult, error) {
	l := uc.ledgers.ForUser(userID)
	return &PortfolioResult{
		Positions:    l.Positions(),
		Transactions: l.History(""),
	}, nil
}

// GetValuation marks every open position to the latest close at or before
// asOf. Symbols without usable prices degrade to warnings, never an error.
func (uc *PortfolioUseCase) GetValuation(ctx context.Context, userID string, asOf time.Time) (*models.Valuation, error) {
	defer uc.observe("valuation", time.Now())

	asOf = util.Day(asOf)
	l := uc.ledgers.ForUser(userID)
	positions := l.Positions()

	open := make([]string, 0, len(positions))
	for sym, pos := range positions {
		if pos.NetQuantity > 0 {
			open = append(open, sym)
		}
	}
	series, warnings := uc.loader.LoadMany(ctx, open, asOf.Add(-valuationLookback), asOf)

	v := valuation.Value(positions, series, asOf)
	v.Warnings = mergeWarnings(warnings, v.Warnings)
	return &v, nil
}

// mergeWarnings prefers loader warnings (they carry the fetch error) over a
// generic missing-data warning for the same symbol.
func mergeWarnings(loaded, valued []models.Warning) []models.Warning {
	seen := make(map[string]bool, len(loaded))
	out := make([]models.Warning, 0, len(loaded)+len(valued))
	for _, w := range loaded {
		seen[w.Symbol+w.Code] = true
		out = append(out, w)
	}
	for _, w := range valued {
		if w.Code == models.WarnMissingPriceData && seen[w.Symbol+w.Code] {
			continue
		}
		out = append(out, w)
	}
	return out
}
