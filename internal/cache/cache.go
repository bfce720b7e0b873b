// Package cache is the client-side cache for mode-scoped server state
// (portfolio, positions, order history, account). Entries are keyed by a
// structured (resource, mode, id) tuple so that paper and live data can
// never cross-contaminate, and are invalidated exactly by the mutations
// that change them. The server remains the source of truth; the cache only
// holds derived copies.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tradedesk/internal/domain"
)

// Resource identifies a cached server resource type.
type Resource string

const (
	ResourcePortfolio    Resource = "portfolio"
	ResourcePositions    Resource = "positions"
	ResourceOrderHistory Resource = "orders"
	ResourceAccount      Resource = "account"
	// ResourceReference covers slow-moving data (company profiles,
	// symbol metadata) with an hours-long TTL.
	ResourceReference Resource = "reference"
)

// Key is the composite cache key. ID is empty for collection-level entries
// (the full portfolio, the order list) and set for per-item entries.
type Key struct {
	Resource Resource
	Mode     domain.Mode
	ID       string
}

func (k Key) String() string {
	if k.ID == "" {
		return fmt.Sprintf("%s/%s", k.Resource, k.Mode)
	}
	return fmt.Sprintf("%s/%s/%s", k.Resource, k.Mode, k.ID)
}

// DefaultTTLs holds the per-resource freshness windows. Live account state
// goes stale quickly; reference data barely changes.
var DefaultTTLs = map[Resource]time.Duration{
	ResourcePortfolio:    30 * time.Second,
	ResourcePositions:    30 * time.Second,
	ResourceOrderHistory: 60 * time.Second,
	ResourceAccount:      30 * time.Second,
	ResourceReference:    6 * time.Hour,
}

type entry struct {
	value     any
	fetchedAt time.Time
	expiresAt time.Time
}

// Store is a TTL cache with tag-style invalidation by (resource, mode).
type Store struct {
	mu      sync.RWMutex
	entries map[Key]entry
	ttls    map[Resource]time.Duration
	log     *slog.Logger

	// inflight coalesces concurrent fetches of the same key so a burst of
	// readers after an invalidation produces a single network call.
	inflightMu sync.Mutex
	inflight   map[Key]*fetchCall

	now func() time.Time // overridable in tests
}

type fetchCall struct {
	done  chan struct{}
	value any
	err   error
}

// New creates a Store with DefaultTTLs.
func New(log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default().With("component", "cache")
	}
	ttls := make(map[Resource]time.Duration, len(DefaultTTLs))
	for r, d := range DefaultTTLs {
		ttls[r] = d
	}
	return &Store{
		entries:  make(map[Key]entry),
		ttls:     ttls,
		log:      log,
		inflight: make(map[Key]*fetchCall),
		now:      time.Now,
	}
}

// SetTTL overrides the freshness window for a resource type.
func (s *Store) SetTTL(r Resource, d time.Duration) {
	s.mu.Lock()
	s.ttls[r] = d
	s.mu.Unlock()
}

// Get returns the cached value for key if present and still fresh.
func (s *Store) Get(key Key) (any, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || s.now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// Put stores value under key with the resource's TTL, stamping fetch time.
func (s *Store) Put(key Key, value any) {
	s.mu.Lock()
	now := s.now()
	s.entries[key] = entry{
		value:     value,
		fetchedAt: now,
		expiresAt: now.Add(s.ttls[key.Resource]),
	}
	s.mu.Unlock()
}

// LastFetch returns when the entry under key was last populated, whether or
// not it has since expired. It reports false if the entry was invalidated.
func (s *Store) LastFetch(key Key) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return time.Time{}, false
	}
	return e.fetchedAt, true
}

// Invalidate drops every entry whose (resource, mode) matches one of the
// given resources, including per-item entries under those resources. The
// other mode's entries are untouched. Removal is synchronous: once
// Invalidate returns, no reader can observe the stale value.
func (s *Store) Invalidate(mode domain.Mode, resources ...Resource) {
	s.mu.Lock()
	for key := range s.entries {
		if key.Mode != mode {
			continue
		}
		for _, r := range resources {
			if key.Resource == r {
				delete(s.entries, key)
				break
			}
		}
	}
	s.mu.Unlock()
	s.log.Debug("cache invalidated", "mode", mode, "resources", resources)
}

// Fetch implements cache-aside: return the fresh cached value if present,
// otherwise call fetch, store the result, and return it. Concurrent calls
// for the same key share one fetch. Errors are not cached.
func (s *Store) Fetch(ctx context.Context, key Key, fetch func(context.Context) (any, error)) (any, error) {
	if v, ok := s.Get(key); ok {
		return v, nil
	}

	s.inflightMu.Lock()
	if call, ok := s.inflight[key]; ok {
		s.inflightMu.Unlock()
		select {
		case <-call.done:
			return call.value, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &fetchCall{done: make(chan struct{})}
	s.inflight[key] = call
	s.inflightMu.Unlock()

	// Re-check under the in-flight slot: an earlier fetch may have landed
	// between the Get above and claiming the slot.
	if v, ok := s.Get(key); ok {
		call.value = v
		s.finish(key, call)
		return v, nil
	}

	call.value, call.err = fetch(ctx)
	if call.err == nil {
		s.Put(key, call.value)
	}
	s.finish(key, call)
	return call.value, call.err
}

func (s *Store) finish(key Key, call *fetchCall) {
	s.inflightMu.Lock()
	delete(s.inflight, key)
	s.inflightMu.Unlock()
	close(call.done)
}

// FetchAs is the typed wrapper around Store.Fetch.
func FetchAs[T any](ctx context.Context, s *Store, key Key, fetch func(context.Context) (T, error)) (T, error) {
	v, err := s.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache entry %s holds %T, not %T", key, v, zero)
	}
	return typed, nil
}
