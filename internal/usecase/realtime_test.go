package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"CoinFolio/internal/domain/models"
)

// feedSession scripts one connection's lifetime: the ticks it delivers and
// the error that kills it. A session with no error stays open.
type feedSession struct {
	ticks []models.LiveTick
	err   error
}

type scriptedFeed struct {
	mu         sync.Mutex
	sessions   []feedSession
	reads      int
	reconnects int
}

func (f *scriptedFeed) Connect(context.Context) error             { return nil }
func (f *scriptedFeed) Subscribe(context.Context, []string) error { return nil }
func (f *scriptedFeed) Close() error                              { return nil }
func (f *scriptedFeed) IsConnected() bool                         { return true }

func (f *scriptedFeed) Reconnect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconnects++
	return nil
}

func (f *scriptedFeed) Read(context.Context) (<-chan models.LiveTick, <-chan error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticks := make(chan models.LiveTick, 16)
	errs := make(chan error, 1)
	if f.reads < len(f.sessions) {
		s := f.sessions[f.reads]
		for _, t := range s.ticks {
			ticks <- t
		}
		if s.err != nil {
			// a dying connection reports its error and closes both channels
			errs <- s.err
			close(ticks)
			close(errs)
		}
	}
	f.reads++
	return ticks, errs
}

func (f *scriptedFeed) counts() (reads, reconnects int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads, f.reconnects
}

func TestRealtimeResumesAfterFeedFailure(t *testing.T) {
	feed := &scriptedFeed{
		sessions: []feedSession{
			{
				ticks: []models.LiveTick{{Symbol: "BTC", Price: 100, At: time.Now()}},
				err:   errors.New("connection reset"),
			},
			{
				ticks: []models.LiveTick{{Symbol: "BTC", Price: 200, At: time.Now()}},
			},
		},
	}
	uc := NewRealtimeUseCase(feed, nopMetrics{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := uc.Start(ctx, []string{"BTC"}); err != nil {
		t.Fatal(err)
	}

	// quotes from the second connection must arrive after the first one dies
	deadline := time.Now().Add(2 * time.Second)
	for {
		q, err := uc.Quote("BTC")
		if err == nil && q.Price == 200 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("quote never advanced past the failed connection: %+v (err %v)", q, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	reads, reconnects := feed.counts()
	if reads < 2 {
		t.Fatalf("expected a fresh Read after reconnect, got %d read(s)", reads)
	}
	if reconnects < 1 {
		t.Fatalf("expected at least one reconnect, got %d", reconnects)
	}
}

func TestRealtimeStopsOnContextCancel(t *testing.T) {
	feed := &scriptedFeed{}
	uc := NewRealtimeUseCase(feed, nopMetrics{})

	ctx, cancel := context.WithCancel(context.Background())
	if err := uc.Start(ctx, []string{"BTC"}); err != nil {
		t.Fatal(err)
	}
	cancel()

	// the consume loop must not reconnect after cancellation
	time.Sleep(20 * time.Millisecond)
	reads, _ := feed.counts()
	if reads != 1 {
		t.Fatalf("expected no further reads after cancel, got %d", reads)
	}
}
