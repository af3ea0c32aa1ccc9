package valuation

import (
	"math"
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

func series(sym string, stale bool, ticks ...models.PriceTick) models.PriceSeries {
	return models.PriceSeries{Symbol: sym, Ticks: ticks, Stale: stale}
}

func tick(sym, d string, close float64) models.PriceTick {
	return models.PriceTick{Symbol: sym, Date: day(d), Close: close}
}

func TestValueMarksToLatestCloseBeforeAsOf(t *testing.T) {
	positions := map[string]models.Position{
		"BTC": {Symbol: "BTC", NetQuantity: 2, AvgCostBasis: 25000},
	}
	prices := map[string]models.PriceSeries{
		// asOf is a Sunday with no tick: Friday's close must be used
		"BTC": series("BTC", false,
			tick("BTC", "2025-01-02", 30000),
			tick("BTC", "2025-01-03", 32000),
		),
	}

	v := Value(positions, prices, day("2025-01-05"))
	row, ok := v.PerSymbol["BTC"]
	if !ok {
		t.Fatalf("expected BTC row, got %+v", v.PerSymbol)
	}
	if !row.PriceDate.Equal(day("2025-01-03")) {
		t.Fatalf("carried forward wrong close date: %v", row.PriceDate)
	}
	if math.Abs(row.MarketValue-64000) > 1e-9 {
		t.Fatalf("market value = %v, want 64000", row.MarketValue)
	}
	if math.Abs(row.UnrealizedPnL-14000) > 1e-9 {
		t.Fatalf("unrealized pnl = %v, want 14000", row.UnrealizedPnL)
	}
	if len(v.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", v.Warnings)
	}
}

func TestValueMissingPriceDataIsWarningNotError(t *testing.T) {
	positions := map[string]models.Position{
		"BTC": {Symbol: "BTC", NetQuantity: 1, AvgCostBasis: 20000},
		"XYZ": {Symbol: "XYZ", NetQuantity: 5, AvgCostBasis: 10},
	}
	prices := map[string]models.PriceSeries{
		"BTC": series("BTC", false, tick("BTC", "2025-01-03", 30000)),
	}

	v := Value(positions, prices, day("2025-01-05"))
	if math.Abs(v.TotalValue-30000) > 1e-9 {
		t.Fatalf("missing symbol must contribute zero, total = %v", v.TotalValue)
	}
	if len(v.Warnings) != 1 || v.Warnings[0].Code != models.WarnMissingPriceData || v.Warnings[0].Symbol != "XYZ" {
		t.Fatalf("expected one MissingPriceData warning for XYZ, got %+v", v.Warnings)
	}
	if _, ok := v.PerSymbol["XYZ"]; ok {
		t.Fatal("symbol without prices must not get a row")
	}
}

func TestValueNoTickBeforeAsOf(t *testing.T) {
	positions := map[string]models.Position{
		"BTC": {Symbol: "BTC", NetQuantity: 1, AvgCostBasis: 100},
	}
	prices := map[string]models.PriceSeries{
		"BTC": series("BTC", false, tick("BTC", "2025-02-01", 200)),
	}
	v := Value(positions, prices, day("2025-01-15"))
	if len(v.PerSymbol) != 0 {
		t.Fatalf("no usable close, expected no rows: %+v", v.PerSymbol)
	}
	if len(v.Warnings) != 1 || v.Warnings[0].Code != models.WarnMissingPriceData {
		t.Fatalf("expected MissingPriceData warning, got %+v", v.Warnings)
	}
}

func TestValueStaleSeriesCarriesWarning(t *testing.T) {
	positions := map[string]models.Position{
		"ETH": {Symbol: "ETH", NetQuantity: 3, AvgCostBasis: 1500},
	}
	prices := map[string]models.PriceSeries{
		"ETH": series("ETH", true, tick("ETH", "2025-01-03", 2000)),
	}
	v := Value(positions, prices, day("2025-01-05"))
	if math.Abs(v.TotalValue-6000) > 1e-9 {
		t.Fatalf("stale data still values the position, total = %v", v.TotalValue)
	}
	if len(v.Warnings) != 1 || v.Warnings[0].Code != models.WarnStaleData {
		t.Fatalf("expected StaleDataWarning, got %+v", v.Warnings)
	}
}

func TestValueSkipsClosedPositions(t *testing.T) {
	positions := map[string]models.Position{
		"BTC": {Symbol: "BTC", NetQuantity: 0, AvgCostBasis: 25000},
	}
	prices := map[string]models.PriceSeries{
		"BTC": series("BTC", false, tick("BTC", "2025-01-03", 30000)),
	}
	v := Value(positions, prices, day("2025-01-05"))
	if len(v.PerSymbol) != 0 || v.TotalValue != 0 {
		t.Fatalf("closed positions must not appear: %+v", v)
	}
}

func TestValueTotalsAreSums(t *testing.T) {
	positions := map[string]models.Position{
		"ETH": {Symbol: "ETH", NetQuantity: 2, AvgCostBasis: 1000},
		"BTC": {Symbol: "BTC", NetQuantity: 0.5, AvgCostBasis: 20000},
	}
	prices := map[string]models.PriceSeries{
		"ETH": series("ETH", false, tick("ETH", "2025-01-03", 1500)),
		"BTC": series("BTC", false, tick("BTC", "2025-01-03", 30000)),
	}
	v := Value(positions, prices, day("2025-01-05"))
	var wantValue, wantPnL float64
	for _, row := range v.PerSymbol {
		wantValue += row.MarketValue
		wantPnL += row.UnrealizedPnL
	}
	if math.Abs(v.TotalValue-wantValue) > 1e-9 || math.Abs(v.TotalUnrealizedPnL-wantPnL) > 1e-9 {
		t.Fatalf("totals out of sync: %v/%v vs %v/%v", v.TotalValue, v.TotalUnrealizedPnL, wantValue, wantPnL)
	}
	if math.Abs(v.TotalValue-18000) > 1e-9 {
		t.Fatalf("total value = %v, want 18000", v.TotalValue)
	}
}
