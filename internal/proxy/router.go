package proxy

import (
	"context"
	"math/big"

	"feedproxy/pkg/feed"
)

// GetRoundData resolves a composite round ID to the phase that produced it
// and forwards the embedded local round id to that phase's source. The
// returned identifiers are re-encoded with the request phase, so every round
// id a caller observes carries the phase that actually answered, even when a
// source reports a round id other than the one requested. Source failures
// propagate unchanged; this layer adds no retry or recovery.
func (p *Proxy) GetRoundData(ctx context.Context, composite *big.Int) (feed.ProxyRound, error) {
	phase, local := feed.Unpack(composite)
	agg, err := p.sourceForPhase(ctx, phase)
	if err != nil {
		return feed.ProxyRound{}, err
	}
	round, err := agg.RoundData(ctx, local)
	if err != nil {
		return feed.ProxyRound{}, err
	}
	return encodeRound(phase, round), nil
}

// LatestRoundData forwards to the current phase's source and phase-encodes
// the returned identifiers.
func (p *Proxy) LatestRoundData(ctx context.Context) (feed.ProxyRound, error) {
	phase, agg, err := p.currentSource(ctx)
	if err != nil {
		return feed.ProxyRound{}, err
	}
	round, err := agg.LatestRoundData(ctx)
	if err != nil {
		return feed.ProxyRound{}, err
	}
	return encodeRound(phase.ID, round), nil
}

// ProposedGetRoundData forwards a local round query to the pending candidate
// source. The response is not phase-tagged since a proposal has no installed
// phase. Fails with ErrNoProposal when nothing is pending.
func (p *Proxy) ProposedGetRoundData(ctx context.Context, localRound uint64) (feed.Round, error) {
	agg, err := p.proposedSource(ctx)
	if err != nil {
		return feed.Round{}, err
	}
	return agg.RoundData(ctx, localRound)
}

// ProposedLatestRoundData forwards a latest-round query to the pending
// candidate source. Fails with ErrNoProposal when nothing is pending.
func (p *Proxy) ProposedLatestRoundData(ctx context.Context) (feed.Round, error) {
	agg, err := p.proposedSource(ctx)
	if err != nil {
		return feed.Round{}, err
	}
	return agg.LatestRoundData(ctx)
}

func encodeRound(phase feed.PhaseID, r feed.Round) feed.ProxyRound {
	return feed.ProxyRound{
		RoundID:         feed.Pack(phase, r.RoundID),
		Answer:          r.Answer,
		StartedAt:       r.StartedAt,
		UpdatedAt:       r.UpdatedAt,
		AnsweredInRound: feed.Pack(phase, r.AnsweredInRound),
	}
}
