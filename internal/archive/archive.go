// Package archive persists point-in-time registry snapshots to a blob store
// so an operator can audit or restore the phase history.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"feedproxy/internal/blob"
	"feedproxy/pkg/feed"
)

const (
	keyPrefix   = "registry/"
	contentType = "application/json"
	timeLayout  = "20060102T150405.000000000Z"
)

// Snapshot is the archived document: the registry state plus capture time.
type Snapshot struct {
	CapturedAt time.Time             `json:"captured_at"`
	Registry   feed.RegistrySnapshot `json:"registry"`
}

// Archiver writes registry snapshots to a blob store. Keys embed the capture
// timestamp so List returns them in chronological order.
type Archiver struct {
	store blob.Store
	nowFn func() time.Time
}

// NewArchiver constructs an Archiver over store.
func NewArchiver(store blob.Store) *Archiver {
	return &Archiver{store: store, nowFn: time.Now}
}

// Archive stores snap and returns the blob key it was written under.
func (a *Archiver) Archive(ctx context.Context, snap feed.RegistrySnapshot) (string, error) {
	capturedAt := a.nowFn().UTC()
	doc := Snapshot{CapturedAt: capturedAt, Registry: snap}
	payload, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode registry snapshot: %w", err)
	}
	key := keyPrefix + capturedAt.Format(timeLayout) + ".json"
	if _, err := a.store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("store registry snapshot %s: %w", key, err)
	}
	return key, nil
}

// List returns the keys of all archived snapshots, oldest first.
func (a *Archiver) List(ctx context.Context) ([]string, error) {
	infos, err := a.store.List(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list registry snapshots: %w", err)
	}
	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		keys = append(keys, info.Key)
	}
	return keys, nil
}

// Load reads the archived snapshot stored under key.
func (a *Archiver) Load(ctx context.Context, key string) (Snapshot, error) {
	_, rc, err := a.store.Get(ctx, key)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load registry snapshot %s: %w", key, err)
	}
	defer rc.Close()

	payload, err := io.ReadAll(rc)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read registry snapshot %s: %w", key, err)
	}
	var doc Snapshot
	if err := json.Unmarshal(payload, &doc); err != nil {
		return Snapshot{}, fmt.Errorf("decode registry snapshot %s: %w", key, err)
	}
	return doc, nil
}
