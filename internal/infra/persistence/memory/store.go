// Package memory provides an in-memory implementation of the registry store
// used for tests and ephemeral environments, and as the transactional core
// the durable backends wrap.
package memory

import (
	"context"
	"sort"
	"sync"

	"feedproxy/pkg/feed"
)

// Compile-time contract assertion ensuring memory.Store satisfies the
// registry store interface.
var _ feed.RegistryStore = (*Store)(nil)

type registryState struct {
	phases   map[feed.PhaseID]feed.AggregatorRef
	current  feed.PhaseID
	proposed feed.AggregatorRef
}

func newRegistryState() registryState {
	return registryState{phases: make(map[feed.PhaseID]feed.AggregatorRef)}
}

func (s registryState) clone() registryState {
	next := registryState{
		phases:   make(map[feed.PhaseID]feed.AggregatorRef, len(s.phases)),
		current:  s.current,
		proposed: s.proposed,
	}
	for id, ref := range s.phases {
		next.phases[id] = ref
	}
	return next
}

// Store is a mutex-guarded in-memory registry store with clone-based
// transactions: mutations apply to a copy of committed state and replace it
// only when the transaction function returns nil. The phase mapping is
// append-only; no operation ever removes an entry.
type Store struct {
	mu    sync.RWMutex
	state registryState
}

// NewStore constructs an empty in-memory registry store.
func NewStore() *Store {
	return &Store{state: newRegistryState()}
}

type transaction struct {
	state *registryState
}

func (tx *transaction) InstallPhase(source feed.AggregatorRef) (feed.Phase, error) {
	if tx.state.current == feed.MaxPhaseID {
		return feed.Phase{}, feed.ErrPhaseOverflow
	}
	id := tx.state.current + 1
	tx.state.phases[id] = source
	tx.state.current = id
	return feed.Phase{ID: id, Source: source}, nil
}

func (tx *transaction) SetProposedSource(candidate feed.AggregatorRef) {
	tx.state.proposed = candidate
}

func (tx *transaction) ClearProposedSource() {
	tx.state.proposed = ""
}

func (tx *transaction) Snapshot() feed.RegistryView {
	return view{state: tx.state}
}

type view struct {
	state *registryState
}

func (v view) CurrentPhase() (feed.Phase, bool) {
	if v.state.current == 0 {
		return feed.Phase{}, false
	}
	return feed.Phase{ID: v.state.current, Source: v.state.phases[v.state.current]}, true
}

func (v view) PhaseSource(id feed.PhaseID) (feed.AggregatorRef, bool) {
	ref, ok := v.state.phases[id]
	return ref, ok
}

func (v view) Phases() []feed.Phase {
	out := make([]feed.Phase, 0, len(v.state.phases))
	for id, ref := range v.state.phases {
		out = append(out, feed.Phase{ID: id, Source: ref})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v view) ProposedSource() (feed.AggregatorRef, bool) {
	if v.state.proposed == "" {
		return "", false
	}
	return v.state.proposed, true
}

// RunInTransaction executes fn against a transactional copy of the store
// state and commits the copy when fn succeeds.
func (s *Store) RunInTransaction(_ context.Context, fn func(feed.RegistryTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state.clone()
	if err := fn(&transaction{state: &next}); err != nil {
		return err
	}
	s.state = next
	return nil
}

// View executes fn against a read-only snapshot of committed state.
func (s *Store) View(_ context.Context, fn func(feed.RegistryView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := s.state.clone()
	return fn(view{state: &snapshot})
}

// ExportState captures a serializable snapshot of committed state.
func (s *Store) ExportState() feed.RegistrySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := feed.RegistrySnapshot{
		Phases:   make(map[feed.PhaseID]feed.AggregatorRef, len(s.state.phases)),
		Current:  s.state.current,
		Proposed: s.state.proposed,
	}
	for id, ref := range s.state.phases {
		snap.Phases[id] = ref
	}
	return snap
}

// ImportState replaces committed state with the snapshot contents.
func (s *Store) ImportState(snap feed.RegistrySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := newRegistryState()
	for id, ref := range snap.Phases {
		state.phases[id] = ref
	}
	state.current = snap.Current
	state.proposed = snap.Proposed
	s.state = state
}
