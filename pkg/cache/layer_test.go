package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type item struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func TestLayerRoundTrip(t *testing.T) {
	l := NewLayer(NewMemoryStore(), nil, nil)
	ctx := context.Background()
	if err := l.Put(ctx, RegionByID, "1", item{ID: 1, Name: "a"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	var got item
	ok, err := l.Get(ctx, RegionByID, "1", &got)
	if err != nil || !ok || got.Name != "a" {
		t.Fatalf("expected hit, got %+v ok=%v err=%v", got, ok, err)
	}
	if ok, _ := l.Get(ctx, RegionSearch, "1", &got); ok {
		t.Fatalf("regions must not share key space")
	}
}

func TestEvictAllOnlyTouchesRegion(t *testing.T) {
	l := NewLayer(NewMemoryStore(), nil, nil)
	ctx := context.Background()
	_ = l.Put(ctx, RegionSearch, "a", 1)
	_ = l.Put(ctx, RegionSearch, "b", 2)
	_ = l.Put(ctx, RegionStats, StatsKey, 3)
	_ = l.Put(ctx, RegionByID, "7", 4)

	if err := l.EvictAll(ctx, RegionSearch); err != nil {
		t.Fatalf("evict all: %v", err)
	}
	var v int
	if ok, _ := l.Get(ctx, RegionSearch, "a", &v); ok {
		t.Fatalf("search entry survived EvictAll")
	}
	if ok, _ := l.Get(ctx, RegionStats, StatsKey, &v); !ok {
		t.Fatalf("stats entry must survive a search EvictAll")
	}
	if err := l.Evict(ctx, RegionByID, "7"); err != nil {
		t.Fatalf("evict: %v", err)
	}
	if ok, _ := l.Get(ctx, RegionByID, "7", &v); ok {
		t.Fatalf("by-id entry survived Evict")
	}
}

func TestDefaultTTLsAndOverride(t *testing.T) {
	l := NewLayer(NewMemoryStore(), TTLs{RegionSearch: time.Minute}, nil)
	if l.TTL(RegionSearch) != time.Minute {
		t.Fatalf("override not applied")
	}
	if l.TTL(RegionByID) != time.Hour || l.TTL(RegionStats) != 2*time.Minute || l.TTL(RegionReference) != 24*time.Hour {
		t.Fatalf("unexpected defaults")
	}
}

func TestGetOrLoadPopulatesOnMiss(t *testing.T) {
	l := NewLayer(NewMemoryStore(), nil, nil)
	ctx := context.Background()
	var calls int32
	load := func(context.Context) (item, error) {
		atomic.AddInt32(&calls, 1)
		return item{ID: 5, Name: "loaded"}, nil
	}
	for i := 0; i < 3; i++ {
		got, err := GetOrLoad(ctx, l, RegionByID, "5", load)
		if err != nil || got.Name != "loaded" {
			t.Fatalf("unexpected %+v %v", got, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected a single load, got %d", calls)
	}
}

func TestGetOrLoadErrorIsNotCached(t *testing.T) {
	l := NewLayer(NewMemoryStore(), nil, nil)
	ctx := context.Background()
	boom := errors.New("boom")
	if _, err := GetOrLoad(ctx, l, RegionByID, "1", func(context.Context) (item, error) { return item{}, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
	var v item
	if ok, _ := l.Get(ctx, RegionByID, "1", &v); ok {
		t.Fatalf("failed load must not be cached")
	}
}

func TestLoadRacingEvictionIsNotCached(t *testing.T) {
	l := NewLayer(NewMemoryStore(), nil, nil)
	ctx := context.Background()

	got, err := GetOrLoad(ctx, l, RegionByID, "9", func(ctx context.Context) (item, error) {
		// a concurrent write commits and evicts while this read is in flight
		_ = l.Evict(ctx, RegionByID, "9")
		return item{ID: 9, Name: "pre-write"}, nil
	})
	if err != nil || got.Name != "pre-write" {
		t.Fatalf("caller still receives its value, got %+v %v", got, err)
	}
	var v item
	if ok, _ := l.Get(ctx, RegionByID, "9", &v); ok {
		t.Fatalf("value loaded before the eviction must not be cached")
	}
}

func TestConcurrentMissesCoalesce(t *testing.T) {
	l := NewLayer(NewMemoryStore(), nil, nil)
	ctx := context.Background()
	var calls int32
	release := make(chan struct{})
	load := func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = GetOrLoad(ctx, l, RegionStats, StatsKey, load)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		if r != 42 {
			t.Fatalf("unexpected result %d", r)
		}
	}
	if c := atomic.LoadInt32(&calls); c < 1 || c > int32(len(results)) {
		t.Fatalf("unexpected load count %d", c)
	}
}

func TestCancelledCallerDoesNotFailCoalescedLoad(t *testing.T) {
	l := NewLayer(NewMemoryStore(), nil, nil)
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	load := func(ctx context.Context) (int, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		select {
		case <-release:
			return 42, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := GetOrLoad(firstCtx, l, RegionStats, StatsKey, load)
		firstErr <- err
	}()
	<-started

	type result struct {
		v   int
		err error
	}
	second := make(chan result, 1)
	go func() {
		v, err := GetOrLoad(context.Background(), l, RegionStats, StatsKey, load)
		second <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the cancelled caller to see context.Canceled, got %v", err)
	}
	close(release)

	got := <-second
	if got.err != nil || got.v != 42 {
		t.Fatalf("expected live caller to get 42, got %d err=%v", got.v, got.err)
	}
	var cached int
	if ok, _ := l.Get(context.Background(), RegionStats, StatsKey, &cached); !ok || cached != 42 {
		t.Fatalf("expected shared load to populate the cache, got %d ok=%v", cached, ok)
	}
}

type failingStore struct{ *MemoryStore }

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func TestGetOrLoadDegradesOnStoreFailure(t *testing.T) {
	var events []string
	l := NewLayer(failingStore{NewMemoryStore()}, nil, nil)
	l.SetObserver(func(_ Region, e string) { events = append(events, e) })
	got, err := GetOrLoad(context.Background(), l, RegionByID, "1", func(context.Context) (int, error) { return 7, nil })
	if err != nil || got != 7 {
		t.Fatalf("expected fallback load, got %d %v", got, err)
	}
	if len(events) == 0 || events[0] != EventError {
		t.Fatalf("expected error event, got %v", events)
	}
}
