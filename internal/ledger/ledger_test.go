package ledger

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"CoinFolio/internal/domain/models"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func buy(sym string, d string, price, qty float64) models.Transaction {
	return models.Transaction{Symbol: sym, Type: models.Buy, Date: day(d), Price: price, Quantity: qty}
}

func sell(sym string, d string, price, qty float64) models.Transaction {
	return models.Transaction{Symbol: sym, Type: models.Sell, Date: day(d), Price: price, Quantity: qty}
}

func TestWeightedAverageCostAndRealizedPnL(t *testing.T) {
	l := New("u1")

	if _, _, err := l.Add(buy("btc", "2025-01-01", 20000, 1)); err != nil {
		t.Fatal(err)
	}
	_, pos, err := l.Add(buy("BTC", "2025-01-02", 30000, 1))
	if err != nil {
		t.Fatal(err)
	}
	if pos.NetQuantity != 2.0 || math.Abs(pos.AvgCostBasis-25000) > 1e-9 {
		t.Fatalf("after two buys: qty=%v avg=%v, want 2.0/25000", pos.NetQuantity, pos.AvgCostBasis)
	}

	_, pos, err = l.Add(sell("BTC", "2025-01-03", 40000, 0.5))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(pos.NetQuantity-1.5) > 1e-9 {
		t.Fatalf("net quantity after sell = %v, want 1.5", pos.NetQuantity)
	}
	if math.Abs(pos.AvgCostBasis-25000) > 1e-9 {
		t.Fatalf("sell must not move cost basis, got %v", pos.AvgCostBasis)
	}

	events := l.RealizedEvents(day("2025-01-01"), day("2025-01-31"))
	if len(events) != 1 {
		t.Fatalf("expected 1 realized event, got %d", len(events))
	}
	if math.Abs(events[0].PnL-7500) > 1e-9 {
		t.Fatalf("realized pnl = %v, want 7500", events[0].PnL)
	}
}

func TestSellRejectedWhenOversized(t *testing.T) {
	l := New("u1")
	if _, _, err := l.Add(buy("ETH", "2025-01-01", 2000, 1)); err != nil {
		t.Fatal(err)
	}
	_, _, err := l.Add(sell("ETH", "2025-01-02", 2500, 2))
	if !errors.Is(err, models.ErrInsufficientHoldings) {
		t.Fatalf("expected ErrInsufficientHoldings, got %v", err)
	}
	// ledger unchanged after rejection
	if got := len(l.History("ETH")); got != 1 {
		t.Fatalf("rejected sell must not be appended, history has %d entries", got)
	}
	if pos := l.Positions()["ETH"]; pos.NetQuantity != 1 {
		t.Fatalf("position mutated by rejected sell: %v", pos.NetQuantity)
	}
}

func TestNetQuantityNeverNegative(t *testing.T) {
	l := New("u1")
	txns := []models.Transaction{
		buy("SOL", "2025-01-01", 100, 3),
		sell("SOL", "2025-01-02", 110, 1),
		sell("SOL", "2025-01-02", 120, 2),
		sell("SOL", "2025-01-03", 130, 1), // would go negative
		buy("SOL", "2025-01-04", 90, 0.5),
	}
	for _, txn := range txns {
		_, pos, err := l.Add(txn)
		if err != nil {
			if !errors.Is(err, models.ErrInsufficientHoldings) {
				t.Fatalf("unexpected error: %v", err)
			}
			continue
		}
		if pos.NetQuantity < 0 {
			t.Fatalf("net quantity went negative: %v", pos.NetQuantity)
		}
	}
}

func TestValidationRejections(t *testing.T) {
	l := New("u1")
	cases := []struct {
		name string
		txn  models.Transaction
	}{
		{"empty symbol", buy("", "2025-01-01", 100, 1)},
		{"zero price", buy("BTC", "2025-01-01", 0, 1)},
		{"negative price", buy("BTC", "2025-01-01", -5, 1)},
		{"zero quantity", buy("BTC", "2025-01-01", 100, 0)},
		{"future date", buy("BTC", "2999-01-01", 100, 1)},
		{"bad type", models.Transaction{Symbol: "BTC", Type: "Transfer", Date: day("2025-01-01"), Price: 1, Quantity: 1}},
	}
	for _, c := range cases {
		var verr *models.ValidationError
		if _, _, err := l.Add(c.txn); !errors.As(err, &verr) {
			t.Fatalf("%s: expected ValidationError, got %v", c.name, err)
		}
	}
	if got := len(l.History("")); got != 0 {
		t.Fatalf("rejected transactions must not be applied, got %d entries", got)
	}
}

func TestHistoryPreservesInsertionOrder(t *testing.T) {
	l := New("u1")
	// same date on purpose: tie-break is submission order
	a := buy("BTC", "2025-02-03", 100, 1)
	b := sell("BTC", "2025-02-03", 120, 0.25)
	c := buy("BTC", "2025-02-03", 90, 2)
	for _, txn := range []models.Transaction{a, b, c} {
		if _, _, err := l.Add(txn); err != nil {
			t.Fatal(err)
		}
	}
	hist := l.History("BTC")
	if len(hist) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(hist))
	}
	wantTypes := []models.TransactionType{models.Buy, models.Sell, models.Buy}
	for i, txn := range hist {
		if txn.Type != wantTypes[i] {
			t.Fatalf("entry %d out of order: got %s", i, txn.Type)
		}
	}
}

func TestSymbolNormalization(t *testing.T) {
	l := New("u1")
	if _, _, err := l.Add(buy(" btc ", "2025-01-01", 100, 1)); err != nil {
		t.Fatal(err)
	}
	if _, ok := l.Positions()["BTC"]; !ok {
		t.Fatal("expected symbol normalized to BTC")
	}
}

func TestStoreIsolatesUsers(t *testing.T) {
	s := NewStore()
	if _, _, err := s.ForUser("alice").Add(buy("BTC", "2025-01-01", 100, 1)); err != nil {
		t.Fatal(err)
	}
	if got := len(s.ForUser("bob").History("")); got != 0 {
		t.Fatalf("bob sees alice's entries: %d", got)
	}
	if s.ForUser("alice") != s.ForUser("alice") {
		t.Fatal("ForUser must return a stable ledger per user")
	}
}

func TestConcurrentAddsKeepInvariants(t *testing.T) {
	l := New("u1")
	if _, _, err := l.Add(buy("BTC", "2025-01-01", 100, 100)); err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = l.Add(sell("BTC", "2025-01-02", 110, 3))
		}()
	}
	wg.Wait()
	pos := l.Positions()["BTC"]
	if pos.NetQuantity < 0 {
		t.Fatalf("net quantity negative under concurrency: %v", pos.NetQuantity)
	}
	// 100 / 3 = 33 sells can succeed at most
	if got := len(l.RealizedEvents(day("2025-01-01"), day("2025-01-31"))); got > 33 {
		t.Fatalf("too many sells accepted: %d", got)
	}
}
