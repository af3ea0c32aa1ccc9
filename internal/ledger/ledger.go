// Package ledger holds the validated, append-only log of buy/sell
// transactions and the positions derived from it.
//
// Positions use weighted-average cost: a Buy moves the average, a Sell
// realizes P&L against it without changing it. Short positions are
// rejected. Every derived value is recomputable from the log alone.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"CoinFolio/internal/domain/models"
	"CoinFolio/pkg/util"
)

// Ledger is one user's transaction log. Writes are serialized by the
// ledger's own lock, which also preserves insertion order as the tie-break
// for same-date transactions.
type Ledger struct {
	mu        sync.RWMutex
	userID    string
	entries   []models.Transaction
	positions map[string]models.Position
	realized  []models.RealizedEvent
	seq       uint64
}

// New creates an empty ledger for a user.
func New(userID string) *Ledger {
	return &Ledger{
		userID:    userID,
		positions: make(map[string]models.Position),
	}
}

// Add validates and appends a transaction, returning the stored entry (with
// its assigned ID) and the updated position for its symbol. Rejections leave
// the ledger untouched.
func (l *Ledger) Add(t models.Transaction) (models.Transaction, models.Position, error) {
	t.Symbol = util.NormalizeSymbol(t.Symbol)
	t.Date = util.Day(t.Date)
	if err := validate(t); err != nil {
		return models.Transaction{}, models.Position{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pos := l.positions[t.Symbol]
	pos.Symbol = t.Symbol

	switch t.Type {
	case models.Buy:
		newQty := pos.NetQuantity + t.Quantity
		pos.AvgCostBasis = (pos.NetQuantity*pos.AvgCostBasis + t.Quantity*t.Price) / newQty
		pos.NetQuantity = newQty
	case models.Sell:
		if t.Quantity > pos.NetQuantity {
			return models.Transaction{}, models.Position{}, fmt.Errorf("%w: sell %v %s exceeds net position %v",
				models.ErrInsufficientHoldings, t.Quantity, t.Symbol, pos.NetQuantity)
		}
		l.realized = append(l.realized, models.RealizedEvent{
			Symbol:   t.Symbol,
			Date:     t.Date,
			Quantity: t.Quantity,
			Price:    t.Price,
			PnL:      (t.Price - pos.AvgCostBasis) * t.Quantity,
		})
		pos.NetQuantity -= t.Quantity
		// average cost basis is unchanged by a sale
	}

	l.seq++
	if t.ID == "" {
		t.ID = fmt.Sprintf("txn_%d_%d", time.Now().Unix(), l.seq)
	}
	t.UserID = l.userID
	l.entries = append(l.entries, t)
	l.positions[t.Symbol] = pos
	return t, pos, nil
}

func validate(t models.Transaction) error {
	if t.Symbol == "" {
		return models.NewValidationError("symbol", "must not be empty")
	}
	if t.Type != models.Buy && t.Type != models.Sell {
		return models.NewValidationError("type", "must be Buy or Sell")
	}
	if t.Price <= 0 {
		return models.NewValidationError("price", "must be positive")
	}
	if t.Quantity <= 0 {
		return models.NewValidationError("quantity", "must be positive")
	}
	if t.Date.IsZero() {
		return models.NewValidationError("date", "must be set")
	}
	if t.Date.After(util.Day(time.Now())) {
		return models.NewValidationError("date", "must not be in the future")
	}
	return nil
}

// Positions returns a copy of the derived per-symbol positions.
func (l *Ledger) Positions() map[string]models.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]models.Position, len(l.positions))
	for k, v := range l.positions {
		out[k] = v
	}
	return out
}

// History returns the ordered transactions for one symbol, or the whole log
// when symbol is empty. Order is insertion order, never re-sorted.
func (l *Ledger) History(symbol string) []models.Transaction {
	symbol = util.NormalizeSymbol(symbol)
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Transaction, 0, len(l.entries))
	for _, t := range l.entries {
		if symbol != "" && t.Symbol != symbol {
			continue
		}
		out = append(out, t)
	}
	return out
}

// RealizedEvents returns the realized P&L events dated inside [from, to].
func (l *Ledger) RealizedEvents(from, to time.Time) []models.RealizedEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.RealizedEvent, 0, len(l.realized))
	for _, e := range l.realized {
		if e.Date.Before(from) || e.Date.After(to) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Symbols lists every symbol that has appeared in the log.
func (l *Ledger) Symbols() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.positions))
	for s := range l.positions {
		out = append(out, s)
	}
	return out
}

// Store hands out per-user ledgers, creating them on demand. Each ledger
// carries its own lock, so users never contend with each other.
type Store struct {
	mu      sync.RWMutex
	ledgers map[string]*Ledger
}

// NewStore creates an empty ledger store.
func NewStore() *Store {
	return &Store{ledgers: make(map[string]*Ledger)}
}

// ForUser returns the user's ledger, creating it if missing.
func (s *Store) ForUser(userID string) *Ledger {
	s.mu.RLock()
	l, ok := s.ledgers[userID]
	s.mu.RUnlock()
	if ok {
		return l
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok = s.ledgers[userID]; ok {
		return l
	}
	l = New(userID)
	s.ledgers[userID] = l
	return l
}
