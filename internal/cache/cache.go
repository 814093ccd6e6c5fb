// Package cache holds the last known server state for each entity
// collection. It is the single source of truth rendered by list and detail
// output, mutated optimistically by the mutation package and reconciled or
// restored when the network call settles. The store is constructor-injected
// into whichever subsystem needs it; there is no package-level singleton.
package cache

import "sync"

// Key identifies one cached collection.
type Key string

// Collection keys.
const (
	Lines    Key = "lines"
	Devices  Key = "devices"
	Agents   Key = "agents"
	Services Key = "services"
	Models   Key = "models"
	Users    Key = "users"
	History  Key = "history"
)

// Store is a keyed in-memory store of collection snapshots. Updater
// functions passed to Set must be pure: they return a new value and never
// mutate the current one in place, so retained snapshots stay intact.
type Store struct {
	mu   sync.Mutex
	data map[Key]any
	gen  map[Key]uint64
}

// Snapshot is a point-in-time copy of selected keys, used to roll back an
// optimistic update after a network failure.
type Snapshot map[Key]any

// New returns an empty store.
func New() *Store {
	return &Store{
		data: map[Key]any{},
		gen:  map[Key]uint64{},
	}
}

// Get returns the current value for key, or (nil, false) if the key has
// never been filled.
func (s *Store) Get(key Key) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.data[key]

	return v, ok
}

// Set applies a pure updater over the current value and stores the result.
// The updater receives nil if the key has never been filled.
func (s *Store) Set(key Key, fn func(cur any) any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = fn(s.data[key])
}

// BeginFetch marks the start of a refresh for key and returns the current
// generation. The matching CompleteFetch only lands if no CancelInFlight
// (or later fetch) advanced the generation in between.
func (s *Store) BeginFetch(key Key) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.gen[key]
}

// CompleteFetch stores fetched data for key unless the generation advanced
// since BeginFetch. Returns whether the data was stored. A stale refresh
// must never clobber a newer optimistic write.
func (s *Store) CompleteFetch(key Key, gen uint64, data any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen[key] != gen {
		return false
	}

	s.data[key] = data

	return true
}

// CancelInFlight suppresses any refresh currently in flight for key by
// advancing its generation. Called before every optimistic write touching
// the key.
func (s *Store) CancelInFlight(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen[key]++
}

// Snapshot returns a copy of the current values for the given keys.
// Missing keys are recorded as nil so Restore can clear them back.
func (s *Store) Snapshot(keys ...Key) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := make(Snapshot, len(keys))
	for _, k := range keys {
		snap[k] = s.data[k]
	}

	return snap
}

// Restore writes a snapshot back, reverting every key it covers.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range snap {
		if v == nil {
			delete(s.data, k)
			continue
		}

		s.data[k] = v
	}
}

// Collection returns the typed slice stored under key, or nil if the key
// has never been filled.
func Collection[T any](s *Store, key Key) []T {
	v, ok := s.Get(key)
	if !ok {
		return nil
	}

	items, _ := v.([]T)

	return items
}

// Put replaces the collection stored under key.
func Put[T any](s *Store, key Key, items []T) {
	s.Set(key, func(any) any { return items })
}
