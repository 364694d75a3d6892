package proxy

import (
	"context"

	"feedproxy/pkg/feed"
)

// Pass-through metadata accessors. None of these carry round semantics, so
// no phase encoding is involved; source-reported failures propagate as-is.

// CurrentPhaseID returns the id of the active phase.
func (p *Proxy) CurrentPhaseID(ctx context.Context) (feed.PhaseID, error) {
	phase, err := p.currentPhase(ctx)
	if err != nil {
		return 0, err
	}
	return phase.ID, nil
}

// CurrentSourceRef returns the reference of the active phase's source.
func (p *Proxy) CurrentSourceRef(ctx context.Context) (feed.AggregatorRef, error) {
	phase, err := p.currentPhase(ctx)
	if err != nil {
		return "", err
	}
	return phase.Source, nil
}

// ProposedSourceRef returns the pending candidate reference, or false when
// the proposal slot is empty. Read-only; never fails with ErrNoProposal.
func (p *Proxy) ProposedSourceRef(ctx context.Context) (feed.AggregatorRef, bool, error) {
	var ref feed.AggregatorRef
	var ok bool
	if err := p.store.View(ctx, func(v feed.RegistryView) error {
		ref, ok = v.ProposedSource()
		return nil
	}); err != nil {
		return "", false, err
	}
	return ref, ok, nil
}

// Phases lists every installed phase in ascending id order.
func (p *Proxy) Phases(ctx context.Context) ([]feed.Phase, error) {
	var phases []feed.Phase
	if err := p.store.View(ctx, func(v feed.RegistryView) error {
		phases = v.Phases()
		return nil
	}); err != nil {
		return nil, err
	}
	return phases, nil
}

// Decimals forwards to the active source.
func (p *Proxy) Decimals(ctx context.Context) (uint8, error) {
	_, agg, err := p.currentSource(ctx)
	if err != nil {
		return 0, err
	}
	return agg.Decimals(ctx)
}

// Version forwards to the active source.
func (p *Proxy) Version(ctx context.Context) (uint64, error) {
	_, agg, err := p.currentSource(ctx)
	if err != nil {
		return 0, err
	}
	return agg.Version(ctx)
}

// Description forwards to the active source.
func (p *Proxy) Description(ctx context.Context) (string, error) {
	_, agg, err := p.currentSource(ctx)
	if err != nil {
		return "", err
	}
	return agg.Description(ctx)
}
