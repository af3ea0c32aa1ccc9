// Package pricecache memoizes per-symbol daily price series.
//
// The cache owns the series it holds; callers get snapshots. A miss or a
// stale entry triggers exactly one upstream fetch per symbol no matter how
// many callers arrive at once, and an abandoned fetch still populates the
// cache for future callers. When a refresh fails, the last-known series is
// served annotated stale instead of failing the request.
package pricecache

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"CoinFolio/internal/domain/models"
	"CoinFolio/internal/domain/repository"
	pkgcache "CoinFolio/pkg/cache"
	applogger "CoinFolio/pkg/logger"
	"CoinFolio/pkg/util"
)

// DefaultTTL is how long a fetched series is considered fresh.
const DefaultTTL = 24 * time.Hour

// DefaultFetchTimeout bounds a single upstream call.
const DefaultFetchTimeout = 30 * time.Second

type entry struct {
	ticks       []models.PriceTick
	fetchedAt   time.Time
	coveredFrom time.Time
	coveredTo   time.Time
}

type flight struct {
	done chan struct{}
	err  error
}

// Cache coordinates fetching, merging and serving price series.
type Cache struct {
	fetcher      repository.MarketDataFetcher
	archive      repository.TickArchive // optional
	l2           pkgcache.Service       // optional, shared across instances
	metrics      repository.Metrics
	logger       *applogger.Logger
	ttl          time.Duration
	fetchTimeout time.Duration

	mu      sync.Mutex
	entries map[string]*entry
	flights map[string]*flight
}

// Option configures the cache.
type Option func(*Cache)

// WithTTL overrides the freshness window.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithFetchTimeout bounds each upstream call.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// WithArchive persists fetched series and backfills when upstream is down.
func WithArchive(a repository.TickArchive) Option {
	return func(c *Cache) { c.archive = a }
}

// WithL2 adds a shared second-level cache (Redis or layered).
func WithL2(l2 pkgcache.Service) Option {
	return func(c *Cache) { c.l2 = l2 }
}

// WithLogger injects a structured logger.
func WithLogger(l *applogger.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New creates a price cache over a fetcher.
func New(fetcher repository.MarketDataFetcher, metrics repository.Metrics, opts ...Option) *Cache {
	c := &Cache{
		fetcher:      fetcher,
		metrics:      metrics,
		ttl:          DefaultTTL,
		fetchTimeout: DefaultFetchTimeout,
		entries:      make(map[string]*entry),
		flights:      make(map[string]*flight),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the price series for symbol covering [from, to]. The returned
// snapshot is the caller's to keep; Stale is set when a refresh failed and
// older data is served instead.
func (c *Cache) Get(ctx context.Context, symbol string, from, to time.Time) (models.PriceSeries, error) {
	symbol = util.NormalizeSymbol(symbol)
	from, to = util.Day(from), util.Day(to)

	// A joined flight may have been issued for a narrower range than this
	// caller needs. After it lands, loop back so the uncovered remainder is
	// fetched instead of silently truncating the answer.
	for attempt := 0; ; attempt++ {
		c.mu.Lock()
		if e, ok := c.entries[symbol]; ok && c.fresh(e, from, to) {
			series := c.snapshotLocked(symbol, e, from, to, false)
			c.mu.Unlock()
			if attempt == 0 {
				c.metrics.RecordCacheHit(symbol)
			}
			return series, nil
		}
		if attempt == 0 {
			c.metrics.RecordCacheMiss(symbol)
		}

		f, joined := c.flights[symbol]
		if !joined {
			f = &flight{done: make(chan struct{})}
			c.flights[symbol] = f
			// The fetch is detached from the caller's context: a client
			// disconnect must not prevent the result from landing in the cache.
			go c.fetch(context.WithoutCancel(ctx), symbol, from, to, f)
		} else {
			c.metrics.RecordFlightJoin(symbol)
		}
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return models.PriceSeries{}, ctx.Err()
		case <-f.done:
		}

		if f.err == nil {
			if joined && attempt < 2 {
				continue // re-check coverage; fetch the remainder if short
			}
			c.mu.Lock()
			series := c.snapshotLocked(symbol, c.entries[symbol], from, to, false)
			c.mu.Unlock()
			return series, nil
		}

		// Fetch failed: fall back to whatever we still hold, annotated stale.
		c.mu.Lock()
		if e, ok := c.entries[symbol]; ok && len(e.ticks) > 0 {
			c.metrics.RecordStaleServe(symbol)
			series := c.snapshotLocked(symbol, e, from, to, true)
			c.mu.Unlock()
			if c.logger != nil {
				c.logger.Warn("serving stale price series",
					applogger.String("symbol", symbol),
					applogger.Error(f.err),
				)
			}
			return series, nil
		}
		c.mu.Unlock()
		return models.PriceSeries{}, &models.MarketDataError{Symbol: symbol, From: from, To: to, Err: f.err}
	}
}

// fetch performs the single in-flight retrieval for a symbol and publishes
// the outcome to every waiter.
func (c *Cache) fetch(ctx context.Context, symbol string, from, to time.Time, f *flight) {
	defer func() {
		c.mu.Lock()
		delete(c.flights, symbol)
		c.mu.Unlock()
		close(f.done)
	}()

	// Shared L2 first: another instance may have fetched this already.
	if ticks, ok := c.loadL2(ctx, symbol, from, to); ok {
		c.metrics.RecordFetch(symbol, "l2")
		c.commit(symbol, ticks, from, to)
		return
	}

	fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()
	ticks, err := c.fetcher.Fetch(fctx, symbol, from, to)
	if err == nil {
		c.metrics.RecordFetch(symbol, "ok")
		c.commit(symbol, ticks, from, to)
		c.storeL2(ctx, symbol, from, to, ticks)
		if c.archive != nil {
			if aerr := c.archive.Store(ctx, symbol, ticks); aerr != nil && c.logger != nil {
				c.logger.Warn("tick archive store failed",
					applogger.String("symbol", symbol),
					applogger.Error(aerr),
				)
			}
		}
		return
	}
	c.metrics.RecordFetch(symbol, "error")

	// Upstream down: the archive may still have the range.
	if c.archive != nil {
		if archived, aerr := c.archive.Load(ctx, symbol, from, to); aerr == nil && len(archived) > 0 {
			c.metrics.RecordFetch(symbol, "archive")
			c.commit(symbol, archived, from, to)
			return
		}
	}
	f.err = err
}

// commit merges fetched ticks into the symbol's entry. Existing ticks inside
// the covered range survive; duplicates resolve to the newest fetch.
func (c *Cache) commit(symbol string, ticks []models.PriceTick, from, to time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[symbol]
	if !ok {
		e = &entry{coveredFrom: from, coveredTo: to}
		c.entries[symbol] = e
	}
	e.ticks = mergeTicks(e.ticks, ticks)
	e.fetchedAt = time.Now()
	if from.Before(e.coveredFrom) || e.coveredFrom.IsZero() {
		e.coveredFrom = from
	}
	if to.After(e.coveredTo) {
		e.coveredTo = to
	}
}

func (c *Cache) fresh(e *entry, from, to time.Time) bool {
	if time.Since(e.fetchedAt) > c.ttl {
		return false
	}
	return !from.Before(e.coveredFrom) && !to.After(e.coveredTo)
}

func (c *Cache) snapshotLocked(symbol string, e *entry, from, to time.Time, stale bool) models.PriceSeries {
	series := models.PriceSeries{Symbol: symbol, Stale: stale}
	if e == nil {
		return series
	}
	series.FetchedAt = e.fetchedAt
	for _, t := range e.ticks {
		if t.Date.Before(from) || t.Date.After(to) {
			continue
		}
		series.Ticks = append(series.Ticks, t)
	}
	return series
}

// mergeTicks unions two tick slices by date, ascending, no duplicates.
// Incoming ticks win on a date collision.
func mergeTicks(existing, incoming []models.PriceTick) []models.PriceTick {
	byDate := make(map[time.Time]models.PriceTick, len(existing)+len(incoming))
	for _, t := range existing {
		byDate[util.Day(t.Date)] = t
	}
	for _, t := range incoming {
		t.Date = util.Day(t.Date)
		byDate[t.Date] = t
	}
	out := make([]models.PriceTick, 0, len(byDate))
	for _, t := range byDate {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

type l2Payload struct {
	FetchedAt time.Time          `json:"fetched_at"`
	From      time.Time          `json:"from"`
	To        time.Time          `json:"to"`
	Ticks     []models.PriceTick `json:"ticks"`
}

func (c *Cache) loadL2(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceTick, bool) {
	if c.l2 == nil {
		return nil, false
	}
	var raw string
	if err := c.l2.Get(ctx, l2Key(symbol), &raw); err != nil {
		return nil, false
	}
	var p l2Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, false
	}
	if time.Since(p.FetchedAt) > c.ttl || from.Before(p.From) || to.After(p.To) {
		return nil, false
	}
	return p.Ticks, true
}

func (c *Cache) storeL2(ctx context.Context, symbol string, from, to time.Time, ticks []models.PriceTick) {
	if c.l2 == nil {
		return
	}
	b, err := json.Marshal(l2Payload{FetchedAt: time.Now(), From: from, To: to, Ticks: ticks})
	if err != nil {
		return
	}
	if err := c.l2.Set(ctx, l2Key(symbol), string(b), c.ttl); err != nil && c.logger != nil {
		c.logger.Warn("l2 price cache set failed",
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
	}
}

func l2Key(symbol string) string {
	return pkgcache.GenerateKey("prices", symbol)
}
