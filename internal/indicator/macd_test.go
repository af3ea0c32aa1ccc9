package indicator

import (
	"math"
	"testing"
	"time"

	"CoinFolio/internal/domain/models"
)

func dailyTicks(symbol string, start time.Time, closes []float64) []models.PriceTick {
	out := make([]models.PriceTick, len(closes))
	for i, c := range closes {
		out[i] = models.PriceTick{Symbol: symbol, Date: start.AddDate(0, 0, i), Close: c}
	}
	return out
}

func TestEMASeededWithFirstValue(t *testing.T) {
	values := []float64{10, 11, 12}
	ema := EMA(values, 3) // k = 0.5
	if ema[0] != 10 {
		t.Fatalf("ema[0] = %v, want seed 10", ema[0])
	}
	if math.Abs(ema[1]-10.5) > 1e-12 {
		t.Fatalf("ema[1] = %v, want 10.5", ema[1])
	}
	if math.Abs(ema[2]-11.25) > 1e-12 {
		t.Fatalf("ema[2] = %v, want 11.25", ema[2])
	}
}

func TestMACDInsufficientHistory(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	closes := make([]float64, MinTicks(DefaultSlow, DefaultSignal)-1)
	for i := range closes {
		closes[i] = 100
	}
	points := MACD(dailyTicks("BTC", start, closes), DefaultFast, DefaultSlow, DefaultSignal)
	if len(points) != 0 {
		t.Fatalf("expected empty series for %d ticks, got %d points", len(closes), len(points))
	}
}

func TestMACDConstantPriceIsZero(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 250
	}
	points := MACD(dailyTicks("BTC", start, closes), DefaultFast, DefaultSlow, DefaultSignal)
	if len(points) == 0 {
		t.Fatal("expected points for 60 ticks")
	}
	for _, p := range points {
		if math.Abs(p.MACD) > 1e-9 || math.Abs(p.Histogram) > 1e-9 {
			t.Fatalf("constant price must give zero macd/histogram, got %v/%v at %v", p.MACD, p.Histogram, p.Date)
		}
		if p.Crossover != models.NoCrossover {
			t.Fatalf("constant price must not flag crossovers")
		}
	}
}

func TestMACDFirstPointAndCount(t *testing.T) {
	// 34 linearly rising closes: exactly the minimum history, so exactly
	// signal-window points are emitted and the first lands on day slow-1.
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	closes := make([]float64, 34)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	points := MACD(dailyTicks("BTC", start, closes), DefaultFast, DefaultSlow, DefaultSignal)
	if len(points) != DefaultSignal {
		t.Fatalf("expected %d points, got %d", DefaultSignal, len(points))
	}
	wantFirst := start.AddDate(0, 0, DefaultSlow-1)
	if !points[0].Date.Equal(wantFirst) {
		t.Fatalf("first point at %v, want %v", points[0].Date, wantFirst)
	}
}

func TestMACDMonotonicInputNoFlipFlop(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	closes := make([]float64, 80)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	points := MACD(dailyTicks("BTC", start, closes), DefaultFast, DefaultSlow, DefaultSignal)
	flips := 0
	for i := 1; i < len(points); i++ {
		if points[i].Crossover != models.NoCrossover {
			flips++
		}
	}
	if flips > 1 {
		t.Fatalf("monotonic input flipped histogram sign %d times", flips)
	}
}

func TestMACDDeterministic(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100 + 13*math.Sin(float64(i)/5)
	}
	a := MACD(dailyTicks("ETH", start, closes), DefaultFast, DefaultSlow, DefaultSignal)
	b := MACD(dailyTicks("ETH", start, closes), DefaultFast, DefaultSlow, DefaultSignal)
	if len(a) != len(b) {
		t.Fatalf("length mismatch %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic output at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestMACDCrossoverDirection(t *testing.T) {
	// Rise long enough to push the histogram positive, then fall hard so it
	// crosses back: expect exactly one bearish crossover after the turn.
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	closes := make([]float64, 0, 90)
	for i := 0; i < 60; i++ {
		closes = append(closes, 100+float64(i))
	}
	for i := 0; i < 30; i++ {
		closes = append(closes, 160-3*float64(i))
	}
	points := MACD(dailyTicks("BTC", start, closes), DefaultFast, DefaultSlow, DefaultSignal)
	var sawBearish bool
	for _, p := range points {
		if p.Crossover == models.BearishCrossover {
			sawBearish = true
		}
	}
	if !sawBearish {
		t.Fatal("expected a bearish crossover after the downturn")
	}
}
