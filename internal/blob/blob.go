// Package blob re-exports the blob-store contract and selects a backend from
// the process environment. Concrete backends live under internal/infra/blob;
// everything else depends on the Store interface only.
package blob

import (
	"feedproxy/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

// ErrExists indicates a Put against an existing key.
var ErrExists = core.ErrExists

// ErrNotExist indicates a read of an absent key.
var ErrNotExist = core.ErrNotExist
