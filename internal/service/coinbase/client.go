// Package coinbase implements market data retrieval against the Coinbase
// Exchange public API: daily candles over REST and live tickers over
// WebSocket.
package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"CoinFolio/internal/domain/models"
	drepo "CoinFolio/internal/domain/repository"
	"CoinFolio/internal/service/ratelimit"
	pkghttp "CoinFolio/pkg/http"
	applogger "CoinFolio/pkg/logger"
	"CoinFolio/pkg/util"
)

const (
	// DefaultBaseURL is the Coinbase Exchange REST endpoint.
	DefaultBaseURL = "https://api.exchange.coinbase.com"

	// granularity for daily candles, in seconds.
	dayGranularity = 86400

	// maxCandlesPerRequest is the API's hard cap per candles call.
	maxCandlesPerRequest = 300

	// limiterKey shares one token bucket across all candle calls.
	limiterKey = "coinbase:candles"
)

// Client fetches daily candles from Coinbase. Requests wider than the API's
// per-call cap are split into chunks, throttled by a shared token bucket.
type Client struct {
	baseURL      string
	quoteCcy     string
	http         *pkghttp.Client
	limiter      *ratelimit.Limiter
	logger       *applogger.Logger
	burst        float64
	reqPerSecond float64
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL points the client at a different endpoint (tests, proxies).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithQuoteCurrency sets the product quote leg, default USD.
func WithQuoteCurrency(ccy string) Option {
	return func(c *Client) {
		if ccy != "" {
			c.quoteCcy = ccy
		}
	}
}

// WithRate tunes the request throttle.
func WithRate(burst, perSecond float64) Option {
	return func(c *Client) {
		if burst > 0 {
			c.burst = burst
		}
		if perSecond > 0 {
			c.reqPerSecond = perSecond
		}
	}
}

// New creates a Coinbase market data fetcher.
func New(httpClient *pkghttp.Client, limiter *ratelimit.Limiter, logger *applogger.Logger, opts ...Option) drepo.MarketDataFetcher {
	c := &Client{
		baseURL:      DefaultBaseURL,
		quoteCcy:     "USD",
		http:         httpClient,
		limiter:      limiter,
		logger:       logger,
		burst:        5,
		reqPerSecond: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns daily closes for symbol over [from, to], ascending by date.
// Missing trading days are simply absent. Unknown products map to
// models.ErrSymbolNotFound.
func (c *Client) Fetch(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceTick, error) {
	symbol = util.NormalizeSymbol(symbol)
	from, to = util.Day(from), util.Day(to)
	if to.Before(from) {
		return nil, fmt.Errorf("coinbase: inverted range %s..%s", util.FormatDay(from), util.FormatDay(to))
	}

	product := fmt.Sprintf("%s-%s", symbol, c.quoteCcy)
	byDate := make(map[time.Time]models.PriceTick)

	for chunkStart := from; !chunkStart.After(to); {
		chunkEnd := chunkStart.AddDate(0, 0, maxCandlesPerRequest-1)
		if chunkEnd.After(to) {
			chunkEnd = to
		}
		if err := c.limiter.Wait(ctx, limiterKey, c.burst, c.reqPerSecond); err != nil {
			return nil, err
		}
		rows, err := c.candles(ctx, product, chunkStart, chunkEnd)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			// row layout: [time, low, high, open, close, volume]
			if len(row) < 5 {
				continue
			}
			d := util.Day(time.Unix(int64(row[0]), 0).UTC())
			byDate[d] = models.PriceTick{Symbol: symbol, Date: d, Close: row[4]}
		}
		chunkStart = chunkEnd.AddDate(0, 0, 1)
	}

	ticks := make([]models.PriceTick, 0, len(byDate))
	for _, t := range byDate {
		ticks = append(ticks, t)
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i].Date.Before(ticks[j].Date) })

	if c.logger != nil {
		c.logger.Debug("coinbase candles fetched",
			applogger.String("product", product),
			applogger.Int("ticks", len(ticks)),
		)
	}
	return ticks, nil
}

func (c *Client) candles(ctx context.Context, product string, from, to time.Time) ([][]float64, error) {
	resp, err := c.http.SendRequest(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    fmt.Sprintf("%s/products/%s/candles", c.baseURL, product),
		QueryParams: map[string][]string{
			"granularity": {fmt.Sprintf("%d", dayGranularity)},
			"start":       {from.Format(time.RFC3339)},
			// candle timestamps are bucket starts; include the last day fully
			"end": {to.AddDate(0, 0, 1).Format(time.RFC3339)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("coinbase candles %s: %w", product, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 404 {
		return nil, fmt.Errorf("%w: product %s", models.ErrSymbolNotFound, product)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("coinbase candles %s: status %d: %s", product, resp.StatusCode, body)
	}

	var rows [][]float64
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("coinbase candles %s: decode: %w", product, err)
	}
	return rows, nil
}
