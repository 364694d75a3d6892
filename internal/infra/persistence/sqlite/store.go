// Package sqlite provides the default durable registry store. It reuses the
// in-memory store for transactional semantics and snapshots the full registry
// state to a single SQLite table after every successful transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"feedproxy/internal/infra/persistence/memory"
	"feedproxy/pkg/feed"
)

var _ feed.RegistryStore = (*Store)(nil)

const (
	bucketPhases   = "phases"
	bucketCurrent  = "current_phase"
	bucketProposed = "proposed_source"
)

var sqliteBuckets = []string{bucketPhases, bucketCurrent, bucketProposed}

// Store persists registry state to SQLite as JSON buckets.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (or creates) the database at path and hydrates the registry
// from any existing snapshot. An empty path falls back to ./feedproxy.db.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "feedproxy.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS registry (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create registry table: %w", err)
	}
	s := &Store{Store: memory.NewStore(), db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM registry`)
	if err != nil {
		return fmt.Errorf("select registry: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snap feed.RegistrySnapshot
	found := false
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan registry: %w", err)
		}
		found = true
		switch bucket {
		case bucketPhases:
			if err := json.Unmarshal(payload, &snap.Phases); err != nil {
				return fmt.Errorf("decode phases: %w", err)
			}
		case bucketCurrent:
			if err := json.Unmarshal(payload, &snap.Current); err != nil {
				return fmt.Errorf("decode current phase: %w", err)
			}
		case bucketProposed:
			if err := json.Unmarshal(payload, &snap.Proposed); err != nil {
				return fmt.Errorf("decode proposed source: %w", err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate registry: %w", err)
	}
	if found {
		s.ImportState(snap)
	}
	return nil
}

func (s *Store) persist() (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.ExportState()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range sqliteBuckets {
		var data []byte
		switch bucket {
		case bucketPhases:
			data, err = json.Marshal(snap.Phases)
		case bucketCurrent:
			data, err = json.Marshal(snap.Current)
		case bucketProposed:
			data, err = json.Marshal(snap.Proposed)
		}
		if err != nil {
			retErr = err
			return retErr
		}
		if _, err = tx.Exec(`INSERT INTO registry(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", bucket, err)
			return retErr
		}
	}
	return tx.Commit()
}

// RunInTransaction applies fn within an in-memory transaction, then snapshots
// the committed state to SQLite.
func (s *Store) RunInTransaction(ctx context.Context, fn func(feed.RegistryTx) error) error {
	if err := s.Store.RunInTransaction(ctx, fn); err != nil {
		return err
	}
	return s.persist()
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
