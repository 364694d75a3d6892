package feed

import "context"

// RegistryTx exposes the mutations a durable registry backend supports
// within one atomic scope. Either every mutation in the scope commits or
// none does.
type RegistryTx interface {
	// InstallPhase assigns the next phase id to source, appends the mapping
	// entry, and makes the new phase current. Fails with ErrPhaseOverflow
	// when the id space is exhausted.
	InstallPhase(source AggregatorRef) (Phase, error)
	// SetProposedSource stores candidate as the pending proposal,
	// overwriting any previous candidate without side effects.
	SetProposedSource(candidate AggregatorRef)
	// ClearProposedSource empties the proposal slot.
	ClearProposedSource()
	// Snapshot exposes the transactional state for reads within the scope.
	Snapshot() RegistryView
}

// RegistryView provides read-only access to registry state.
type RegistryView interface {
	// CurrentPhase returns the active phase, or false when none has been
	// installed yet.
	CurrentPhase() (Phase, bool)
	// PhaseSource looks up the source that was active during the given
	// phase. Entries are never removed, so any id ever installed resolves
	// for the lifetime of the registry.
	PhaseSource(id PhaseID) (AggregatorRef, bool)
	// Phases lists every installed phase in ascending id order.
	Phases() []Phase
	// ProposedSource returns the pending candidate, or false when the
	// proposal slot is empty.
	ProposedSource() (AggregatorRef, bool)
}

// RegistryStore is the durable home of the proxy's entire persisted state:
// the phase-id to source mapping, the current phase, and the proposal slot.
// Nothing else survives a restart.
type RegistryStore interface {
	RunInTransaction(ctx context.Context, fn func(RegistryTx) error) error
	View(ctx context.Context, fn func(RegistryView) error) error
	// ExportState captures a serializable point-in-time snapshot.
	ExportState() RegistrySnapshot
	// ImportState replaces the store contents with the snapshot.
	ImportState(RegistrySnapshot)
}

// RegistrySnapshot is the serializable form of registry state, used both for
// durable persistence and for operator archives.
type RegistrySnapshot struct {
	Phases   map[PhaseID]AggregatorRef `json:"phases"`
	Current  PhaseID                   `json:"current_phase"`
	Proposed AggregatorRef             `json:"proposed_source,omitempty"`
}
