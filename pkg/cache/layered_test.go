package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

// stubRemote is an in-test remote layer that counts reads.
type stubRemote struct {
	mu   sync.Mutex
	data map[string]string
	gets int
}

func newStubRemote() *stubRemote {
	return &stubRemote{data: make(map[string]string)}
}

func (s *stubRemote) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if str, ok := value.(string); ok {
		s.data[key] = str
	}
	return nil
}

func (s *stubRemote) Get(_ context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	str, ok := s.data[key]
	if !ok {
		return ErrCacheMiss
	}
	if p, ok := dest.(*string); ok {
		*p = str
	}
	return nil
}

func (s *stubRemote) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *stubRemote) DeleteByPattern(_ context.Context, _ string) error { return nil }

func (s *stubRemote) Exists(_ context.Context, keys ...string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		if _, ok := s.data[k]; ok {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubRemote) Increment(_ context.Context, _ string) (int64, error) { return 0, nil }

func (s *stubRemote) Expire(_ context.Context, _ string, _ time.Duration) (bool, error) {
	return false, nil
}

func (s *stubRemote) MSet(_ context.Context, _ map[string]interface{}, _ time.Duration) error {
	return nil
}

func (s *stubRemote) MGet(_ context.Context, _ ...string) (map[string]string, error) {
	return nil, nil
}

func (s *stubRemote) TryLock(_ context.Context, _ string, _ time.Duration) (bool, error) {
	return true, nil
}

func (s *stubRemote) Unlock(_ context.Context, _ string) error { return nil }

func (s *stubRemote) getCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}

func TestLayeredSetWritesThrough(t *testing.T) {
	remote := newStubRemote()
	lc := NewLayeredCache(remote)
	defer lc.Close()
	ctx := context.Background()

	if err := lc.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatal(err)
	}
	remote.mu.Lock()
	stored := remote.data["k"]
	remote.mu.Unlock()
	if stored != "v" {
		t.Fatalf("remote layer missing write-through value, got %q", stored)
	}
}

func TestLayeredGetBackfillsMemory(t *testing.T) {
	remote := newStubRemote()
	lc := NewLayeredCache(remote)
	defer lc.Close()
	ctx := context.Background()

	remote.data["k"] = "v"

	for i := 0; i < 3; i++ {
		var got string
		if err := lc.Get(ctx, "k", &got); err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		if got != "v" {
			t.Fatalf("get %d: got %q, want v", i, got)
		}
	}
	if n := remote.getCount(); n != 1 {
		t.Fatalf("expected 1 remote read after memory backfill, got %d", n)
	}
}

func TestLayeredDeleteClearsBothLayers(t *testing.T) {
	remote := newStubRemote()
	lc := NewLayeredCache(remote)
	defer lc.Close()
	ctx := context.Background()

	if err := lc.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := lc.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	var got string
	if err := lc.Get(ctx, "k", &got); err != ErrCacheMiss {
		t.Fatalf("expected ErrCacheMiss after delete, got %v (value %q)", err, got)
	}
}

func TestMemoryCacheExpiration(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", "v", 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	var got string
	if err := mc.Get(ctx, "k", &got); err != nil || got != "v" {
		t.Fatalf("get before expiry: %v %q", err, got)
	}
	time.Sleep(25 * time.Millisecond)
	if err := mc.Get(ctx, "k", &got); err != ErrCacheMiss {
		t.Fatalf("expected ErrCacheMiss after expiry, got %v", err)
	}
}

func TestMemoryCacheEvictsLRU(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "a", "1", time.Minute); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if err := mc.Set(ctx, "b", "2", time.Minute); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	// touch "a" so "b" becomes the LRU entry
	var got string
	if err := mc.Get(ctx, "a", &got); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if err := mc.Set(ctx, "c", "3", time.Minute); err != nil {
		t.Fatal(err)
	}

	if err := mc.Get(ctx, "b", &got); err != ErrCacheMiss {
		t.Fatalf("expected LRU entry b evicted, got %v", err)
	}
	if err := mc.Get(ctx, "a", &got); err != nil || got != "1" {
		t.Fatalf("recently used entry a lost: %v %q", err, got)
	}
}
