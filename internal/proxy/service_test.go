package proxy

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"feedproxy/pkg/feed"
)

func newTestService(t *testing.T, opts ...ServiceOption) (*Service, *stubAggregator) {
	t.Helper()
	s1 := &stubAggregator{factor: 100, decimals: 8, version: 4, desc: "ETH / USD"}
	s2 := &stubAggregator{factor: 200, decimals: 8, version: 5, desc: "ETH / USD"}
	p, _, _ := newTestProxy(t, map[feed.AggregatorRef]feed.Aggregator{"s1": s1, "s2": s2}, "s1")
	return NewService(p, opts...), s1
}

func TestServicePassesResultsThrough(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	round, err := svc.GetRoundData(ctx, feed.Pack(1, 7))
	if err != nil {
		t.Fatalf("get round data: %v", err)
	}
	if round.RoundID.Cmp(feed.Pack(1, 7)) != 0 {
		t.Fatalf("unexpected round id %v", round.RoundID)
	}

	if err := svc.ProposeSource(ctx, adminActor, "s2"); err != nil {
		t.Fatalf("propose: %v", err)
	}
	installed, err := svc.ConfirmSource(ctx, adminActor, "s2")
	if err != nil || installed.ID != 2 {
		t.Fatalf("confirm: %+v (err %v)", installed, err)
	}
	if _, err := svc.LatestRoundData(ctx); err != nil {
		t.Fatalf("latest: %v", err)
	}
}

func TestServiceErrorsPassThroughUntouched(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.ConfirmSource(context.Background(), adminActor, "s2"); !errors.Is(err, feed.ErrNoProposal) {
		t.Fatalf("expected ErrNoProposal through the service, got %v", err)
	}
	var unknown feed.UnknownPhaseError
	if _, err := svc.GetRoundData(context.Background(), feed.Pack(9, 1)); !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownPhaseError through the service, got %v", err)
	}
}

func TestServiceRecordsMetricsPerOperation(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	svc, _ := newTestService(t, WithMetrics(rec))
	ctx := context.Background()

	if _, err := svc.GetRoundData(ctx, feed.Pack(1, 1)); err != nil {
		t.Fatalf("get round data: %v", err)
	}
	if _, err := svc.GetRoundData(ctx, feed.Pack(9, 1)); err == nil {
		t.Fatalf("expected unknown phase error")
	}
	if _, err := svc.ProposedLatestRoundData(ctx); !errors.Is(err, feed.ErrNoProposal) {
		t.Fatalf("expected ErrNoProposal, got %v", err)
	}

	snap := rec.Snapshot()
	if got := snap.Results[opGetRoundData]["success"]; got != 1 {
		t.Fatalf("expected 1 success for %s, got %d", opGetRoundData, got)
	}
	if got := snap.Results[opGetRoundData]["error"]; got != 1 {
		t.Fatalf("expected 1 error for %s, got %d", opGetRoundData, got)
	}
	if got := snap.Results[opProposedLatestRound]["error"]; got != 1 {
		t.Fatalf("expected 1 error for %s, got %d", opProposedLatestRound, got)
	}
	if _, ok := snap.DurationsMS[opGetRoundData]; !ok {
		t.Fatalf("expected a duration bucket for %s", opGetRoundData)
	}
	if !strings.HasPrefix(rec.Name(), "feedproxy_service_metrics_") {
		t.Fatalf("unexpected expvar name %q", rec.Name())
	}
}

func TestServiceEmitsTraceSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	svc, _ := newTestService(t, WithTracer(tracer))
	ctx := context.Background()

	if _, err := svc.Metadata(ctx); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if err := svc.ProposeSource(ctx, "intruder", "s2"); err == nil {
		t.Fatalf("expected unauthorized error")
	}

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 trace entries, got %d", len(entries))
	}
	if entries[0].Operation != opMetadata || entries[0].Status != "success" {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].Operation != opProposeSource || entries[1].Status != "error" || entries[1].Error == "" {
		t.Fatalf("unexpected second entry %+v", entries[1])
	}
	if !strings.Contains(buf.String(), `"operation":"metadata"`) {
		t.Fatalf("trace line not written: %s", buf.String())
	}
}

func TestServiceMetadata(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	meta, err := svc.Metadata(ctx)
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta.PhaseID != 1 || meta.Source != "s1" || meta.Proposed != "" {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	if meta.Decimals != 8 || meta.Version != 4 || meta.Description != "ETH / USD" {
		t.Fatalf("pass-through metadata wrong: %+v", meta)
	}

	if err := svc.ProposeSource(ctx, adminActor, "s2"); err != nil {
		t.Fatalf("propose: %v", err)
	}
	meta, err = svc.Metadata(ctx)
	if err != nil || meta.Proposed != "s2" {
		t.Fatalf("expected proposed s2 in metadata, got %+v (err %v)", meta, err)
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	rec.Observe(context.Background(), opGetRoundData, true, 5*time.Millisecond)
	rec.Observe(context.Background(), opGetRoundData, false, 3*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	seen := make(map[string]bool, len(families))
	for _, fam := range families {
		seen[fam.GetName()] = true
	}
	if !seen["feedproxy_service_operation_duration_seconds"] {
		t.Fatalf("duration histogram not registered: %v", seen)
	}
	if !seen["feedproxy_service_operation_results_total"] {
		t.Fatalf("result counter not registered: %v", seen)
	}

	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}
