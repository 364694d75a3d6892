// Package core holds the blob-store contract shared by the blob facade and
// the backend implementations, keeping the import graph acyclic.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete blob storage backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"     // local filesystem (default, dev)
	DriverS3         Driver = "s3"     // S3 / MinIO compatible
	DriverMemory     Driver = "memory" // in-memory (tests)
)

// ErrExists is returned by Put when the key is already present. Archive keys
// are immutable once written.
var ErrExists = errors.New("blob: key already exists")

// ErrNotExist is returned when a requested key is absent.
var ErrNotExist = errors.New("blob: key does not exist")

// Info describes a stored blob.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string
}

// Store is the subset of object-store semantics snapshot archival needs.
// Put MUST fail with ErrExists for duplicate keys; List returns keys in
// ascending order.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}
