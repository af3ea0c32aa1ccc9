// Package summary aggregates portfolio history into Monday-start weekly
// buckets: end-of-week value, realized and unrealized P&L, and week-over-week
// delta. The series is gap-free; quiet weeks still get a bucket.
package summary

import (
	"sort"
	"time"

	"CoinFolio/internal/domain/models"
	"CoinFolio/internal/valuation"
	"CoinFolio/pkg/util"
)

// Weekly replays the transaction log against the price series and emits one
// bucket per week touching [from, to]. Transactions dated before the range
// still shape the starting positions; their realized P&L lands outside every
// bucket. Input transactions are assumed ledger-validated, so no sell here
// can exceed its position.
func Weekly(txns []models.Transaction, prices map[string]models.PriceSeries, from, to time.Time) []models.WeekBucket {
	from, to = util.Day(from), util.Day(to)
	if to.Before(from) {
		return nil
	}
	startMon := util.MondayOf(from)
	endMon := util.MondayOf(to)

	ordered := make([]models.Transaction, len(txns))
	copy(ordered, txns)
	// stable: same-date transactions keep their submission order
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })

	positions := make(map[string]models.Position)
	idx := 0
	apply := func(cutoff time.Time) float64 {
		var realized float64
		for idx < len(ordered) && !ordered[idx].Date.After(cutoff) {
			t := ordered[idx]
			idx++
			pos := positions[t.Symbol]
			pos.Symbol = t.Symbol
			switch t.Type {
			case models.Buy:
				newQty := pos.NetQuantity + t.Quantity
				pos.AvgCostBasis = (pos.NetQuantity*pos.AvgCostBasis + t.Quantity*t.Price) / newQty
				pos.NetQuantity = newQty
			case models.Sell:
				realized += (t.Price - pos.AvgCostBasis) * t.Quantity
				pos.NetQuantity -= t.Quantity
			}
			positions[t.Symbol] = pos
		}
		return realized
	}

	// seed positions with everything before the first week; realized P&L from
	// that prefix belongs to no bucket
	apply(startMon.AddDate(0, 0, -1))

	var out []models.WeekBucket
	var prevValue float64
	for monday := startMon; !monday.After(endMon); monday = monday.AddDate(0, 0, 7) {
		weekEnd := util.WeekEnd(monday)
		bucket := models.WeekBucket{WeekStart: monday}
		bucket.RealizedPnL = apply(weekEnd)

		v := valuation.Value(positions, prices, weekEnd)
		bucket.PortfolioVal = v.TotalValue
		bucket.UnrealizedPnL = v.TotalUnrealizedPnL
		if len(out) > 0 {
			bucket.ValueDelta = bucket.PortfolioVal - prevValue
		}
		prevValue = bucket.PortfolioVal
		out = append(out, bucket)
	}
	return out
}
