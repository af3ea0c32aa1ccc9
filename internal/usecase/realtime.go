package usecase

import (
	"context"
	"fmt"
	"sync"

	"CoinFolio/internal/domain/models"
	drepo "CoinFolio/internal/domain/repository"
	"CoinFolio/pkg/util"
)

// RealtimeUseCase consumes the live ticker feed and keeps the last quote
// per symbol for the realtime endpoint.
type RealtimeUseCase struct {
	feed    drepo.LiveFeed
	metrics drepo.Metrics

	mu     sync.RWMutex
	quotes map[string]models.LiveTick
}

// NewRealtimeUseCase creates a new RealtimeUseCase instance.
func NewRealtimeUseCase(feed drepo.LiveFeed, metrics drepo.Metrics) *RealtimeUseCase {
	return &RealtimeUseCase{
		feed:    feed,
		metrics: metrics,
		quotes:  make(map[string]models.LiveTick),
	}
}

// IsConnected returns true if the live feed is connected.
func (uc *RealtimeUseCase) IsConnected() bool {
	return uc.feed.IsConnected()
}

// Start connects the feed, subscribes and begins consuming ticks.
func (uc *RealtimeUseCase) Start(ctx context.Context, symbols []string) error {
	if err := uc.feed.Connect(ctx); err != nil {
		return err
	}
	if err := uc.feed.Subscribe(ctx, symbols); err != nil {
		return err
	}
	tickCh, errCh := uc.feed.Read(ctx)
	go uc.consume(ctx, tickCh, errCh)
	return nil
}

func (uc *RealtimeUseCase) consume(ctx context.Context, tickCh <-chan models.LiveTick, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if !ok || err == nil {
				// The failed read loop closes both channels; let the
				// tick channel close drive the reconnect.
				errCh = nil
				continue
			}
			uc.metrics.RecordFetch("live", "error")
			if tickCh, errCh, ok = uc.resume(ctx); !ok {
				return
			}
		case t, ok := <-tickCh:
			if !ok {
				// Connection died. Both channels are closed now, so a
				// fresh Read is required to keep quotes flowing.
				if tickCh, errCh, ok = uc.resume(ctx); !ok {
					return
				}
				continue
			}
			uc.mu.Lock()
			uc.quotes[t.Symbol] = t
			uc.mu.Unlock()
			uc.metrics.RecordLastPrice(t.Symbol, t.Price)
		}
	}
}

// resume reconnects the feed and opens fresh channels. Reconnect applies the
// feed's own backoff delay, so retrying in a loop does not spin.
func (uc *RealtimeUseCase) resume(ctx context.Context) (<-chan models.LiveTick, <-chan error, bool) {
	for {
		if ctx.Err() != nil {
			return nil, nil, false
		}
		if err := uc.feed.Reconnect(ctx); err != nil {
			uc.metrics.RecordFetch("live", "reconnect_error")
			continue
		}
		tickCh, errCh := uc.feed.Read(ctx)
		return tickCh, errCh, true
	}
}

// Subscribe adds symbols to the live subscription at runtime.
func (uc *RealtimeUseCase) Subscribe(ctx context.Context, symbols []string) error {
	return uc.feed.Subscribe(ctx, symbols)
}

// Quote returns the last seen live tick for symbol.
func (uc *RealtimeUseCase) Quote(symbol string) (models.LiveTick, error) {
	symbol = util.NormalizeSymbol(symbol)
	uc.mu.RLock()
	q, ok := uc.quotes[symbol]
	uc.mu.RUnlock()
	if !ok {
		return models.LiveTick{}, fmt.Errorf("%w: no live quote for %s", models.ErrSymbolNotFound, symbol)
	}
	return q, nil
}

// Stop closes the feed.
func (uc *RealtimeUseCase) Stop() error { return uc.feed.Close() }
