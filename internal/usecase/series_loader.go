package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"CoinFolio/internal/domain/models"
	"CoinFolio/internal/pricecache"
	applogger "CoinFolio/pkg/logger"
)

// DefaultFetchWorkers bounds how many symbols are fetched at once.
const DefaultFetchWorkers = 4

// SeriesLoader fans price-series loads out across symbols with bounded
// concurrency. One symbol failing never fails the batch; it becomes a
// MissingPriceData warning on the result instead.
type SeriesLoader struct {
	cache   *pricecache.Cache
	workers int
	logger  *applogger.Logger
}

func NewSeriesLoader(cache *pricecache.Cache, workers int, logger *applogger.Logger) *SeriesLoader {
	if workers <= 0 {
		workers = DefaultFetchWorkers
	}
	return &SeriesLoader{cache: cache, workers: workers, logger: logger}
}

// LoadOne fetches a single symbol's series, passing cache errors through.
func (l *SeriesLoader) LoadOne(ctx context.Context, symbol string, from, to time.Time) (models.PriceSeries, error) {
	return l.cache.Get(ctx, symbol, from, to)
}

// LoadMany fetches every symbol concurrently and collects per-symbol
// failures as warnings, sorted by symbol for stable output.
func (l *SeriesLoader) LoadMany(ctx context.Context, symbols []string, from, to time.Time) (map[string]models.PriceSeries, []models.Warning) {
	out := make(map[string]models.PriceSeries, len(symbols))
	var warnings []models.Warning
	if len(symbols) == 0 {
		return out, warnings
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, l.workers)
	)
	for _, sym := range symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			series, err := l.cache.Get(ctx, sym, from, to)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				warnings = append(warnings, models.Warning{
					Symbol: sym,
					Code:   models.WarnMissingPriceData,
					Reason: err.Error(),
				})
				if l.logger != nil {
					l.logger.Warn("price series load failed",
						applogger.String("symbol", sym),
						applogger.Error(err),
					)
				}
				return
			}
			out[sym] = series
		}(sym)
	}
	wg.Wait()

	sort.Slice(warnings, func(i, j int) bool { return warnings[i].Symbol < warnings[j].Symbol })
	return out, warnings
}
