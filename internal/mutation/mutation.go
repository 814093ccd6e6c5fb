// Package mutation performs entity writes as an explicit state machine:
// every mutation starts Pending with an optimistic cache write, then either
// Commits after the server response is reconciled into the caches, or
// RollsBack every touched cache to its pre-mutation snapshot. The optimistic
// phase and the reconciliation phase are plain named transitions, testable
// without any presentation layer.
package mutation

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/gestion-smac/smacctl/internal/cache"
	"github.com/gestion-smac/smacctl/internal/entity"
)

// ErrNoChanges is returned when an update's computed diff is empty: the
// server is not contacted and the caller shows a "no changes" notice.
var ErrNoChanges = errors.New("mutation: aucune modification")

// State of a mutation.
type State int

const (
	StatePending State = iota
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled back"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ValidationError carries client-side field errors raised before any
// network call.
type ValidationError struct {
	Fields entity.FieldErrors
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}

	return "mutation: validation: " + strings.Join(parts, "; ")
}

// Mutation tracks one optimistic write cycle over the cache store.
type Mutation struct {
	store *cache.Store
	snap  cache.Snapshot
	state State
}

// Begin cancels any in-flight refresh for the touched keys, snapshots
// them, and returns a Pending mutation. Cancelling first is the sole
// concurrency discipline: a stale refetch must never clobber the
// optimistic write that follows.
func Begin(store *cache.Store, keys ...cache.Key) *Mutation {
	for _, k := range keys {
		store.CancelInFlight(k)
	}

	return &Mutation{
		store: store,
		snap:  store.Snapshot(keys...),
		state: StatePending,
	}
}

// Stage applies a pure updater to one touched cache. Valid only while
// Pending; both the optimistic phase and the post-response reconciliation
// stage through here.
func (m *Mutation) Stage(key cache.Key, fn func(cur any) any) {
	if m.state != StatePending {
		panic("mutation: Stage after " + m.state.String())
	}

	m.store.Set(key, fn)
}

// Commit finalizes the mutation; the staged cache state becomes the new
// last-known-good.
func (m *Mutation) Commit() {
	if m.state != StatePending {
		panic("mutation: Commit after " + m.state.String())
	}

	m.state = StateCommitted
}

// Rollback restores every touched cache to its pre-mutation snapshot.
func (m *Mutation) Rollback() {
	if m.state != StatePending {
		panic("mutation: Rollback after " + m.state.String())
	}

	m.store.Restore(m.snap)
	m.state = StateRolledBack
}

// State returns the current machine state.
func (m *Mutation) State() State {
	return m.state
}

// tempID returns a client-temporary identifier for an optimistic create.
// Negative so it can never collide with a server-assigned ID; reconciliation
// swaps it for the real one.
func tempID() int64 {
	u := uuid.New()

	return -int64(binary.BigEndian.Uint64(u[:8]) >> 1)
}
