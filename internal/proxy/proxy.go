// Package proxy implements the versioned data-feed proxy engine: the phase
// registry, the propose/confirm upgrade protocol, and the query router that
// translates between composite round IDs and source-local rounds.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"feedproxy/pkg/feed"
)

// errNoPhase is returned by current-phase reads when the registry is empty.
// Construction installs phase 1, so it is only reachable through a store
// that was emptied out of band.
var errNoPhase = errors.New("registry has no installed phase")

// Config assembles a Proxy.
type Config struct {
	// Store is the durable registry backend. Required.
	Store feed.RegistryStore
	// Dialer resolves aggregator refs into live clients. Required.
	Dialer feed.Dialer
	// Access gates administrative operations. A nil controller rejects
	// every administrative call.
	Access AccessController
	// InitialSource is installed as phase 1 when the registry is empty.
	// Ignored when the store already carries state (restart).
	InitialSource feed.AggregatorRef
}

// Proxy is the stable public identity in front of successive aggregator
// generations. All durable state lives in the registry store; the proxy
// itself only caches resolved aggregator clients.
type Proxy struct {
	store  feed.RegistryStore
	dial   feed.Dialer
	access AccessController

	mu          sync.RWMutex
	sources     map[feed.PhaseID]feed.Aggregator // resolved clients, append-only like the registry
	proposedFor feed.AggregatorRef
	proposedAgg feed.Aggregator
}

// New constructs a Proxy over the given registry store. When the store is
// empty, cfg.InitialSource becomes phase 1; an empty store with no initial
// source is an error since the proxy would have nothing to serve.
func New(ctx context.Context, cfg Config) (*Proxy, error) {
	if cfg.Store == nil {
		return nil, errors.New("registry store required")
	}
	if cfg.Dialer == nil {
		return nil, errors.New("aggregator dialer required")
	}
	p := &Proxy{
		store:   cfg.Store,
		dial:    cfg.Dialer,
		access:  cfg.Access,
		sources: make(map[feed.PhaseID]feed.Aggregator),
	}
	var hasPhase bool
	if err := p.store.View(ctx, func(v feed.RegistryView) error {
		_, hasPhase = v.CurrentPhase()
		return nil
	}); err != nil {
		return nil, err
	}
	if !hasPhase {
		if cfg.InitialSource == "" {
			return nil, errors.New("initial source required for an empty registry")
		}
		if err := p.store.RunInTransaction(ctx, func(tx feed.RegistryTx) error {
			_, err := tx.InstallPhase(cfg.InitialSource)
			return err
		}); err != nil {
			return nil, fmt.Errorf("install initial source: %w", err)
		}
	}
	return p, nil
}

// sourceForPhase resolves the aggregator that served the given phase,
// dialing and caching the client on first use. Phases absent from the
// registry fail with UnknownPhaseError.
func (p *Proxy) sourceForPhase(ctx context.Context, id feed.PhaseID) (feed.Aggregator, error) {
	p.mu.RLock()
	agg, ok := p.sources[id]
	p.mu.RUnlock()
	if ok {
		return agg, nil
	}

	var ref feed.AggregatorRef
	if err := p.store.View(ctx, func(v feed.RegistryView) error {
		var found bool
		ref, found = v.PhaseSource(id)
		if !found {
			return feed.UnknownPhaseError{Phase: id}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	agg, err := p.dial.Dial(ctx, ref)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	if cached, ok := p.sources[id]; ok {
		agg = cached
	} else {
		p.sources[id] = agg
	}
	p.mu.Unlock()
	return agg, nil
}

// currentSource returns the active phase and its resolved aggregator.
func (p *Proxy) currentSource(ctx context.Context) (feed.Phase, feed.Aggregator, error) {
	phase, err := p.currentPhase(ctx)
	if err != nil {
		return feed.Phase{}, nil, err
	}
	agg, err := p.sourceForPhase(ctx, phase.ID)
	if err != nil {
		return feed.Phase{}, nil, err
	}
	return phase, agg, nil
}

func (p *Proxy) currentPhase(ctx context.Context) (feed.Phase, error) {
	var phase feed.Phase
	if err := p.store.View(ctx, func(v feed.RegistryView) error {
		var ok bool
		phase, ok = v.CurrentPhase()
		if !ok {
			return errNoPhase
		}
		return nil
	}); err != nil {
		return feed.Phase{}, err
	}
	return phase, nil
}

// proposedSource returns the resolved client for the pending candidate, or
// ErrNoProposal when the slot is empty.
func (p *Proxy) proposedSource(ctx context.Context) (feed.Aggregator, error) {
	var ref feed.AggregatorRef
	if err := p.store.View(ctx, func(v feed.RegistryView) error {
		var ok bool
		ref, ok = v.ProposedSource()
		if !ok {
			return feed.ErrNoProposal
		}
		return nil
	}); err != nil {
		return nil, err
	}

	p.mu.RLock()
	agg := p.proposedAgg
	cachedFor := p.proposedFor
	p.mu.RUnlock()
	if agg != nil && cachedFor == ref {
		return agg, nil
	}

	agg, err := p.dial.Dial(ctx, ref)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.proposedFor = ref
	p.proposedAgg = agg
	p.mu.Unlock()
	return agg, nil
}

// ExportSnapshot captures the durable registry state for archival.
func (p *Proxy) ExportSnapshot(context.Context) feed.RegistrySnapshot {
	return p.store.ExportState()
}
