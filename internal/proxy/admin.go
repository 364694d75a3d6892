package proxy

import (
	"context"

	"feedproxy/pkg/feed"
)

// AccessController is the externally supplied predicate gating
// administrative operations. The identity model behind it is not the proxy's
// concern; it is consumed as an opaque boolean guard.
type AccessController interface {
	Authorized(ctx context.Context, actor string) bool
}

// AccessControllerFunc adapts a plain function to AccessController.
type AccessControllerFunc func(ctx context.Context, actor string) bool

// Authorized implements AccessController.
func (f AccessControllerFunc) Authorized(ctx context.Context, actor string) bool {
	return f(ctx, actor)
}

// StaticAdmin authorizes exactly one non-empty principal.
type StaticAdmin string

// Authorized implements AccessController.
func (a StaticAdmin) Authorized(_ context.Context, actor string) bool {
	return actor != "" && actor == string(a)
}

func (p *Proxy) authorize(ctx context.Context, actor string) error {
	if p.access == nil || !p.access.Authorized(ctx, actor) {
		return feed.UnauthorizedError{Actor: actor}
	}
	return nil
}

// Authorize reports whether actor may perform administrative operations. It
// is exposed for surfaces that guard adjacent functionality, such as
// snapshot archival, with the same access controller.
func (p *Proxy) Authorize(ctx context.Context, actor string) error {
	return p.authorize(ctx, actor)
}

// ProposeSource stores candidate as the pending proposal, overwriting any
// previous candidate. No liveness or conformance validation is performed at
// this layer; that belongs to the source collaborator. The candidate becomes
// active only after a matching ConfirmSource.
func (p *Proxy) ProposeSource(ctx context.Context, actor string, candidate feed.AggregatorRef) error {
	if err := p.authorize(ctx, actor); err != nil {
		return err
	}
	if err := p.store.RunInTransaction(ctx, func(tx feed.RegistryTx) error {
		tx.SetProposedSource(candidate)
		return nil
	}); err != nil {
		return err
	}
	p.mu.Lock()
	p.proposedFor = candidate
	p.proposedAgg = nil
	p.mu.Unlock()
	return nil
}

// ConfirmSource installs the pending candidate as the new current phase.
// The candidate must match the pending proposal exactly: a confirmation
// while nothing is pending fails with ErrNoProposal, and a mismatched one
// fails with ProposalMismatchError. The equality check protects against a
// second proposal racing in between a caller's read of the slot and their
// confirmation. Comparison, slot clearing, and phase installation commit as
// one transaction.
func (p *Proxy) ConfirmSource(ctx context.Context, actor string, candidate feed.AggregatorRef) (feed.Phase, error) {
	if err := p.authorize(ctx, actor); err != nil {
		return feed.Phase{}, err
	}
	var installed feed.Phase
	if err := p.store.RunInTransaction(ctx, func(tx feed.RegistryTx) error {
		pending, ok := tx.Snapshot().ProposedSource()
		if !ok {
			return feed.ErrNoProposal
		}
		if pending != candidate {
			return feed.ProposalMismatchError{Pending: pending, Confirmed: candidate}
		}
		tx.ClearProposedSource()
		var err error
		installed, err = tx.InstallPhase(candidate)
		return err
	}); err != nil {
		return feed.Phase{}, err
	}

	// An already-dialed candidate client becomes the new phase's client.
	p.mu.Lock()
	if p.proposedAgg != nil && p.proposedFor == candidate {
		p.sources[installed.ID] = p.proposedAgg
	}
	p.proposedFor = ""
	p.proposedAgg = nil
	p.mu.Unlock()
	return installed, nil
}
