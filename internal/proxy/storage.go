package proxy

import (
	"fmt"
	"os"

	"feedproxy/internal/infra/persistence/memory"
	"feedproxy/internal/infra/persistence/postgres"
	"feedproxy/internal/infra/persistence/sqlite"
	"feedproxy/pkg/feed"
)

// StorageDriver identifies a concrete registry persistence implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenRegistryStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	FEEDPROXY_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	FEEDPROXY_SQLITE_PATH: path to sqlite file (default ./feedproxy.db)
//	FEEDPROXY_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenRegistryStore() (feed.RegistryStore, error) {
	driver := os.Getenv("FEEDPROXY_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(os.Getenv("FEEDPROXY_SQLITE_PATH"))
	case StoragePostgres:
		return postgres.NewStore(os.Getenv("FEEDPROXY_POSTGRES_DSN"))
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
