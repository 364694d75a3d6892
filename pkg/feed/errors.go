package feed

import (
	"errors"
	"fmt"
)

// ErrNoProposal is returned when a proposed-source read or a confirmation
// runs while no candidate is pending. Recoverable by proposing a source
// first.
var ErrNoProposal = errors.New("no proposed source pending")

// ErrPhaseOverflow is returned when the 16-bit phase id space is exhausted.
// It is fatal for the proxy's ability to ever install a new phase again;
// silent wraparound would alias two distinct source generations onto the
// same id.
var ErrPhaseOverflow = errors.New("phase id space exhausted")

// UnknownPhaseError reports a composite round ID whose phase field was never
// installed on this proxy. It always propagates to the caller of a read
// operation; answering from the wrong source would break the proxy's core
// safety property.
type UnknownPhaseError struct {
	Phase PhaseID
}

func (e UnknownPhaseError) Error() string {
	return fmt.Sprintf("unknown phase %d", e.Phase)
}

// ProposalMismatchError reports a confirmation whose candidate does not match
// the currently pending proposal. It indicates the confirming caller holds a
// stale view of the proposal slot.
type ProposalMismatchError struct {
	Pending   AggregatorRef
	Confirmed AggregatorRef
}

func (e ProposalMismatchError) Error() string {
	return fmt.Sprintf("confirm %q does not match pending proposal %q", e.Confirmed, e.Pending)
}

// UnauthorizedError reports an administrative call from a principal the
// access controller rejected. No state changes when it is returned.
type UnauthorizedError struct {
	Actor string
}

func (e UnauthorizedError) Error() string {
	return fmt.Sprintf("actor %q is not authorized for administrative operations", e.Actor)
}
