package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Region is a named cache partition with its own key space and TTL
type Region string

const (
	RegionByID      Region = "contract-by-id"
	RegionSearch    Region = "contract-search"
	RegionStats     Region = "stats"
	RegionReference Region = "reference-data"
)

// StatsKey is the single key of the stats region
const StatsKey = "all"

// TTLs holds the expiry policy of each region
type TTLs map[Region]time.Duration

// DefaultTTLs returns the default expiry of each region
func DefaultTTLs() TTLs {
	return TTLs{
		RegionByID:      time.Hour,
		RegionSearch:    5 * time.Minute,
		RegionStats:     2 * time.Minute,
		RegionReference: 24 * time.Hour,
	}
}

// Event names passed to an Observer
const (
	EventHit   = "hit"
	EventMiss  = "miss"
	EventError = "error"
	EventEvict = "evict"
	EventStale = "stale_skip"
)

// Observer receives cache events, typically to feed metrics
type Observer func(region Region, event string)

// Layer is a region-aware read-through cache over a Store.
//
// Every eviction bumps the region generation. A load that started under an
// older generation returns its value to its caller but never writes it to the
// store, so a read racing a write cannot re-cache the pre-write value.
type Layer struct {
	store    Store
	ttls     TTLs
	logger   *slog.Logger
	observer Observer
	group    singleflight.Group

	// mu guards gens. Loaders hold it shared across check-and-put so an
	// eviction cannot slip between the two.
	mu   sync.RWMutex
	gens map[Region]uint64
}

// NewLayer creates a cache layer. Missing TTLs fall back to the defaults.
func NewLayer(store Store, ttls TTLs, logger *slog.Logger) *Layer {
	if logger == nil {
		logger = slog.Default()
	}
	merged := DefaultTTLs()
	for r, ttl := range ttls {
		merged[r] = ttl
	}
	return &Layer{
		store:    store,
		ttls:     merged,
		logger:   logger,
		observer: func(Region, string) {},
		gens:     map[Region]uint64{},
	}
}

// SetObserver registers an event callback
func (l *Layer) SetObserver(fn Observer) {
	if fn != nil {
		l.observer = fn
	}
}

// TTL returns the expiry of a region
func (l *Layer) TTL(region Region) time.Duration {
	return l.ttls[region]
}

func storeKey(region Region, key string) string {
	return string(region) + ":" + key
}

func (l *Layer) generation(region Region) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.gens[region]
}

// putIfCurrent writes only when no eviction happened since gen was read
func (l *Layer) putIfCurrent(ctx context.Context, region Region, key string, value any, gen uint64) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.gens[region] != gen {
		return false, nil
	}
	return true, l.Put(ctx, region, key, value)
}

func (l *Layer) bump(region Region) {
	l.mu.Lock()
	l.gens[region]++
	l.mu.Unlock()
}

// Get decodes the cached value into dst. It reports false on a miss.
func (l *Layer) Get(ctx context.Context, region Region, key string, dst any) (bool, error) {
	b, ok, err := l.store.Get(ctx, storeKey(region, key))
	if err != nil {
		l.observer(region, EventError)
		return false, err
	}
	if !ok {
		l.observer(region, EventMiss)
		return false, nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		l.observer(region, EventError)
		return false, fmt.Errorf("failed to decode cached %s: %w", storeKey(region, key), err)
	}
	l.observer(region, EventHit)
	return true, nil
}

// Put stores value under the region TTL
func (l *Layer) Put(ctx context.Context, region Region, key string, value any) error {
	return l.PutTTL(ctx, region, key, value, l.ttls[region])
}

// PutTTL stores value with an explicit TTL
func (l *Layer) PutTTL(ctx context.Context, region Region, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", storeKey(region, key), err)
	}
	if err := l.store.Set(ctx, storeKey(region, key), b, ttl); err != nil {
		l.observer(region, EventError)
		return err
	}
	return nil
}

// Evict removes one entry
func (l *Layer) Evict(ctx context.Context, region Region, key string) error {
	l.bump(region)
	l.observer(region, EventEvict)
	return l.store.Delete(ctx, storeKey(region, key))
}

// EvictAll removes every entry of a region
func (l *Layer) EvictAll(ctx context.Context, region Region) error {
	l.bump(region)
	l.observer(region, EventEvict)
	return l.store.DeletePrefix(ctx, string(region)+":")
}

// sharedLoadTimeout bounds a coalesced load once it no longer follows its first caller
const sharedLoadTimeout = 30 * time.Second

// GetOrLoad returns the cached value or loads, caches and returns it.
// Concurrent misses for the same key within one generation share one load.
// Cache failures degrade to calling load directly.
func GetOrLoad[T any](ctx context.Context, l *Layer, region Region, key string, load func(ctx context.Context) (T, error)) (T, error) {
	var cached T
	ok, err := l.Get(ctx, region, key, &cached)
	if err != nil {
		l.logger.Warn("cache read failed, loading from store",
			slog.String("region", string(region)),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	if ok {
		return cached, nil
	}

	gen := l.generation(region)
	flight := storeKey(region, key) + "#" + strconv.FormatUint(gen, 10)
	ch := l.group.DoChan(flight, func() (any, error) {
		// The shared load outlives any single caller's cancellation
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLoadTimeout)
		defer cancel()
		loaded, err := load(loadCtx)
		if err != nil {
			return loaded, err
		}
		stored, err := l.putIfCurrent(loadCtx, region, key, loaded, gen)
		if !stored {
			l.observer(region, EventStale)
		}
		if err != nil {
			l.logger.Warn("cache write failed",
				slog.String("region", string(region)),
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return loaded, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
