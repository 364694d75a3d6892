// Package postgres provides a Postgres-backed registry store that mirrors
// the in-memory semantics and snapshots registry state as JSONB buckets.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"feedproxy/internal/infra/persistence/memory"
	"feedproxy/pkg/feed"
)

var _ feed.RegistryStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/feedproxy?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

const (
	bucketPhases   = "phases"
	bucketCurrent  = "current_phase"
	bucketProposed = "proposed_source"
)

var postgresBuckets = []string{bucketPhases, bucketCurrent, bucketProposed}

// Store persists registry state to Postgres while reusing the in-memory
// implementation for transactional semantics.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back
// to defaultDSN). It ensures the registry table exists and hydrates the
// in-memory store from any existing snapshot.
func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureRegistryTable(ctx, db); err != nil {
		return nil, err
	}
	snap, loaded, err := loadSnapshot(ctx, db)
	if err != nil {
		return nil, err
	}
	mem := memory.NewStore()
	if loaded {
		mem.ImportState(snap)
	}
	return &Store{Store: mem, db: db}, nil
}

// RunInTransaction applies fn within an in-memory transaction, then snapshots
// the committed state to Postgres.
func (s *Store) RunInTransaction(ctx context.Context, fn func(feed.RegistryTx) error) error {
	if err := s.Store.RunInTransaction(ctx, fn); err != nil {
		return err
	}
	return s.persist(ctx)
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

func ensureRegistryTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS registry (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure registry table: %w", err)
	}
	return nil
}

func loadSnapshot(ctx context.Context, db *sql.DB) (feed.RegistrySnapshot, bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT bucket, payload FROM registry`)
	if err != nil {
		return feed.RegistrySnapshot{}, false, fmt.Errorf("select registry: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snap feed.RegistrySnapshot
	found := false
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return feed.RegistrySnapshot{}, false, fmt.Errorf("scan registry: %w", err)
		}
		if len(payload) == 0 {
			continue
		}
		found = true
		switch bucket {
		case bucketPhases:
			if err := json.Unmarshal(payload, &snap.Phases); err != nil {
				return feed.RegistrySnapshot{}, false, fmt.Errorf("decode phases: %w", err)
			}
		case bucketCurrent:
			if err := json.Unmarshal(payload, &snap.Current); err != nil {
				return feed.RegistrySnapshot{}, false, fmt.Errorf("decode current phase: %w", err)
			}
		case bucketProposed:
			if err := json.Unmarshal(payload, &snap.Proposed); err != nil {
				return feed.RegistrySnapshot{}, false, fmt.Errorf("decode proposed source: %w", err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return feed.RegistrySnapshot{}, false, fmt.Errorf("iterate registry: %w", err)
	}
	return snap, found, nil
}

func (s *Store) persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.ExportState()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range postgresBuckets {
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
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO registry(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`, bucket, data); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore
// function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
