package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"feedproxy/internal/blob"
	"feedproxy/pkg/feed"
)

func sampleSnapshot() feed.RegistrySnapshot {
	return feed.RegistrySnapshot{
		Phases:   map[feed.PhaseID]feed.AggregatorRef{1: "agg-v1", 2: "agg-v2"},
		Current:  2,
		Proposed: "agg-v3",
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	arch := NewArchiver(blob.NewMemory())
	captured := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	arch.nowFn = func() time.Time { return captured }

	key, err := arch.Archive(context.Background(), sampleSnapshot())
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if key != "registry/20260314T092653.000000000Z.json" {
		t.Fatalf("unexpected key %q", key)
	}

	doc, err := arch.Load(context.Background(), key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !doc.CapturedAt.Equal(captured) {
		t.Fatalf("captured at %v, want %v", doc.CapturedAt, captured)
	}
	if doc.Registry.Current != 2 || doc.Registry.Proposed != "agg-v3" {
		t.Fatalf("unexpected registry state %+v", doc.Registry)
	}
	if doc.Registry.Phases[1] != "agg-v1" || doc.Registry.Phases[2] != "agg-v2" {
		t.Fatalf("phase mapping lost: %+v", doc.Registry.Phases)
	}
}

func TestListReturnsSnapshotsOldestFirst(t *testing.T) {
	arch := NewArchiver(blob.NewMemory())
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	var calls int
	arch.nowFn = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Minute)
	}

	var want []string
	for i := 0; i < 3; i++ {
		key, err := arch.Archive(context.Background(), sampleSnapshot())
		if err != nil {
			t.Fatalf("archive %d: %v", i, err)
		}
		want = append(want, key)
	}

	keys, err := arch.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %d", len(want), len(keys))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("key %d: got %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestArchiveRejectsDuplicateCaptureTime(t *testing.T) {
	arch := NewArchiver(blob.NewMemory())
	frozen := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	arch.nowFn = func() time.Time { return frozen }

	if _, err := arch.Archive(context.Background(), sampleSnapshot()); err != nil {
		t.Fatalf("first archive: %v", err)
	}
	if _, err := arch.Archive(context.Background(), sampleSnapshot()); !errors.Is(err, blob.ErrExists) {
		t.Fatalf("expected ErrExists for duplicate key, got %v", err)
	}
}

func TestLoadMissingKey(t *testing.T) {
	arch := NewArchiver(blob.NewMemory())
	if _, err := arch.Load(context.Background(), "registry/absent.json"); !errors.Is(err, blob.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}
