// Package valuation marks positions to market against cached price series.
package valuation

import (
	"sort"
	"time"

	"CoinFolio/internal/domain/models"
	"CoinFolio/pkg/util"
)

// Value marks every open position to the latest close at or before asOf.
// Symbols without a usable price contribute nothing to the totals and are
// reported as warnings instead of failing the valuation. Warnings come back
// sorted by symbol so the output is stable.
func Value(positions map[string]models.Position, series map[string]models.PriceSeries, asOf time.Time) models.Valuation {
	asOf = util.Day(asOf)
	out := models.Valuation{
		AsOf:      asOf,
		PerSymbol: make(map[string]models.SymbolValuation),
	}

	symbols := make([]string, 0, len(positions))
	for s := range positions {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	for _, sym := range symbols {
		pos := positions[sym]
		if pos.NetQuantity <= 0 {
			continue
		}

		s, ok := series[sym]
		if !ok {
			out.Warnings = append(out.Warnings, models.Warning{
				Symbol: sym,
				Code:   models.WarnMissingPriceData,
				Reason: "no price series available",
			})
			continue
		}
		tick, ok := s.LatestAt(asOf)
		if !ok {
			out.Warnings = append(out.Warnings, models.Warning{
				Symbol: sym,
				Code:   models.WarnMissingPriceData,
				Reason: "no close at or before valuation date",
			})
			continue
		}
		if s.Stale {
			out.Warnings = append(out.Warnings, models.Warning{
				Symbol: sym,
				Code:   models.WarnStaleData,
				Reason: "price series served from an expired cache entry",
			})
		}

		row := models.SymbolValuation{
			Symbol:        sym,
			Quantity:      pos.NetQuantity,
			AvgCostBasis:  pos.AvgCostBasis,
			LatestPrice:   tick.Close,
			PriceDate:     tick.Date,
			MarketValue:   pos.NetQuantity * tick.Close,
			UnrealizedPnL: (tick.Close - pos.AvgCostBasis) * pos.NetQuantity,
		}
		out.PerSymbol[sym] = row
		out.TotalValue += row.MarketValue
		out.TotalUnrealizedPnL += row.UnrealizedPnL
	}
	return out
}
