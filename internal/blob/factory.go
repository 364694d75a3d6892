package blob

import (
	"context"
	"fmt"
	"os"

	"feedproxy/internal/infra/blob/fs"
	"feedproxy/internal/infra/blob/memory"
	"feedproxy/internal/infra/blob/s3"
)

// NewMemory returns an in-memory store, primarily for tests.
func NewMemory() Store { return memory.New() }

// NewFilesystem returns a store rooted at the given directory.
func NewFilesystem(root string) (Store, error) { return fs.New(root) }

// NewS3 returns an S3-backed store from explicit configuration.
func NewS3(ctx context.Context, cfg s3.Config) (Store, error) { return s3.New(ctx, cfg) }

// Open selects a Store implementation using environment variables.
//
//	FEEDPROXY_BLOB_DRIVER: fs|s3|memory (default fs)
//	FEEDPROXY_BLOB_FS_ROOT: directory root when driver=fs (default ./archivedata)
//	(S3 specific variables documented in the s3 backend)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("FEEDPROXY_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return fs.New(os.Getenv("FEEDPROXY_BLOB_FS_ROOT"))
	case DriverS3:
		return s3.OpenFromEnv(ctx)
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
