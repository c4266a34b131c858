// Package cache provides the in-memory TTL cache that fronts every upstream
// lookup. Entries are keyed per resource type and only ever written from a
// classified-success fetch; staleness is checked lazily on read, with an
// optional background sweep to bound growth.
package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Entry is a cached payload together with the time it was fetched.
type Entry struct {
	Payload   any
	FetchedAt time.Time
}

// Store is a mutex-guarded map of cache entries. Writes replace the whole
// entry, so the last successful fetch wins and readers never observe a
// partially written value.
type Store struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

func New() *Store {
	return &Store{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

// Get returns the entry for key regardless of freshness.
func (s *Store) Get(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

// Put creates or overwrites the entry for key with FetchedAt set to now.
func (s *Store) Put(key string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = Entry{Payload: payload, FetchedAt: s.now()}
}

// Fresh reports whether the entry is younger than ttl.
func (s *Store) Fresh(e Entry, ttl time.Duration) bool {
	return s.now().Sub(e.FetchedAt) < ttl
}

// Lookup returns the payload for key only if the entry exists and is fresh.
func (s *Store) Lookup(key string, ttl time.Duration) (any, bool) {
	e, ok := s.Get(key)
	if !ok || !s.Fresh(e, ttl) {
		return nil, false
	}
	return e.Payload, true
}

// Len returns the number of entries, fresh or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// StartSweep drops entries older than maxAge every interval until ctx is
// cancelled. Stale entries are otherwise overwritten in place, so the sweep
// only matters for keys that stop being requested.
func (s *Store) StartSweep(ctx context.Context, interval, maxAge time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.sweep(maxAge)
			}
		}
	}()
}

func (s *Store) sweep(maxAge time.Duration) {
	cutoff := s.now().Add(-maxAge)
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.entries {
		if e.FetchedAt.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// Key builds a cache key for a single-subject resource, e.g.
// Key("games", steamID) or Key("ach", steamID, appID).
func Key(resource string, parts ...string) string {
	return resource + "_" + strings.Join(parts, "_")
}

// SetKey builds a cache key for a set-valued resource. IDs are deduplicated
// and sorted first so that permutations of the same set share one entry.
func SetKey(resource string, ids []string) string {
	uniq := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	sort.Strings(uniq)
	return resource + "_" + strings.Join(uniq, "_")
}
