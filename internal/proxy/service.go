package proxy

import (
	"context"
	"math/big"
	"time"

	"feedproxy/pkg/feed"
)

// Operation names used for metrics and tracing.
const (
	opGetRoundData         = "get_round_data"
	opLatestRoundData      = "latest_round_data"
	opProposedGetRoundData = "proposed_get_round_data"
	opProposedLatestRound  = "proposed_latest_round_data"
	opProposeSource        = "propose_source"
	opConfirmSource        = "confirm_source"
	opMetadata             = "metadata"
)

// Service wraps a Proxy with metrics and tracing around every public
// operation. It adds no semantics of its own; failures pass through
// untouched.
type Service struct {
	proxy   *Proxy
	metrics MetricsRecorder
	tracer  Tracer
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithMetrics attaches a metrics recorder.
func WithMetrics(m MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer attaches a tracer.
func WithTracer(t Tracer) ServiceOption {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// NewService constructs a Service over p. Metrics and tracing default to
// no-ops.
func NewService(p *Proxy, opts ...ServiceOption) *Service {
	s := &Service{proxy: p, metrics: nopMetrics{}, tracer: nopTracer{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Proxy returns the wrapped proxy.
func (s *Service) Proxy() *Proxy { return s.proxy }

func (s *Service) observe(ctx context.Context, operation string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, operation)
	start := time.Now()
	err := fn(ctx)
	span.End(err)
	s.metrics.Observe(ctx, operation, err == nil, time.Since(start))
	return err
}

// GetRoundData routes a composite round ID to the phase that produced it.
func (s *Service) GetRoundData(ctx context.Context, composite *big.Int) (feed.ProxyRound, error) {
	var out feed.ProxyRound
	err := s.observe(ctx, opGetRoundData, func(ctx context.Context) error {
		var err error
		out, err = s.proxy.GetRoundData(ctx, composite)
		return err
	})
	return out, err
}

// LatestRoundData queries the current phase's source.
func (s *Service) LatestRoundData(ctx context.Context) (feed.ProxyRound, error) {
	var out feed.ProxyRound
	err := s.observe(ctx, opLatestRoundData, func(ctx context.Context) error {
		var err error
		out, err = s.proxy.LatestRoundData(ctx)
		return err
	})
	return out, err
}

// ProposedGetRoundData queries the pending candidate source.
func (s *Service) ProposedGetRoundData(ctx context.Context, localRound uint64) (feed.Round, error) {
	var out feed.Round
	err := s.observe(ctx, opProposedGetRoundData, func(ctx context.Context) error {
		var err error
		out, err = s.proxy.ProposedGetRoundData(ctx, localRound)
		return err
	})
	return out, err
}

// ProposedLatestRoundData queries the pending candidate source.
func (s *Service) ProposedLatestRoundData(ctx context.Context) (feed.Round, error) {
	var out feed.Round
	err := s.observe(ctx, opProposedLatestRound, func(ctx context.Context) error {
		var err error
		out, err = s.proxy.ProposedLatestRoundData(ctx)
		return err
	})
	return out, err
}

// ProposeSource stores a candidate source pending confirmation.
func (s *Service) ProposeSource(ctx context.Context, actor string, candidate feed.AggregatorRef) error {
	return s.observe(ctx, opProposeSource, func(ctx context.Context) error {
		return s.proxy.ProposeSource(ctx, actor, candidate)
	})
}

// ConfirmSource installs the pending candidate as the new current phase.
func (s *Service) ConfirmSource(ctx context.Context, actor string, candidate feed.AggregatorRef) (feed.Phase, error) {
	var installed feed.Phase
	err := s.observe(ctx, opConfirmSource, func(ctx context.Context) error {
		var err error
		installed, err = s.proxy.ConfirmSource(ctx, actor, candidate)
		return err
	})
	return installed, err
}

// Metadata bundles the pass-through feed metadata in one call.
type Metadata struct {
	PhaseID     feed.PhaseID       `json:"phase_id"`
	Source      feed.AggregatorRef `json:"source"`
	Proposed    feed.AggregatorRef `json:"proposed_source,omitempty"`
	Decimals    uint8              `json:"decimals"`
	Version     uint64             `json:"version"`
	Description string             `json:"description"`
}

// Metadata collects the current phase id, source refs, and the source's
// static metadata.
func (s *Service) Metadata(ctx context.Context) (Metadata, error) {
	var out Metadata
	err := s.observe(ctx, opMetadata, func(ctx context.Context) error {
		phase, agg, err := s.proxy.currentSource(ctx)
		if err != nil {
			return err
		}
		out.PhaseID = phase.ID
		out.Source = phase.Source
		if ref, ok, err := s.proxy.ProposedSourceRef(ctx); err != nil {
			return err
		} else if ok {
			out.Proposed = ref
		}
		if out.Decimals, err = agg.Decimals(ctx); err != nil {
			return err
		}
		if out.Version, err = agg.Version(ctx); err != nil {
			return err
		}
		if out.Description, err = agg.Description(ctx); err != nil {
			return err
		}
		return nil
	})
	return out, err
}

// ExportSnapshot captures the durable registry state for archival.
func (s *Service) ExportSnapshot(ctx context.Context) feed.RegistrySnapshot {
	return s.proxy.ExportSnapshot(ctx)
}
