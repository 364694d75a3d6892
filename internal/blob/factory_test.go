package blob

import (
	"bytes"
	"context"
	"testing"
)

func TestOpenSelectsDriverFromEnv(t *testing.T) {
	ctx := context.Background()

	t.Setenv("FEEDPROXY_BLOB_DRIVER", "memory")
	store, err := Open(ctx)
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if store.Driver() != DriverMemory {
		t.Fatalf("driver %s, want %s", store.Driver(), DriverMemory)
	}

	t.Setenv("FEEDPROXY_BLOB_DRIVER", "fs")
	t.Setenv("FEEDPROXY_BLOB_FS_ROOT", t.TempDir())
	store, err = Open(ctx)
	if err != nil {
		t.Fatalf("open fs: %v", err)
	}
	if store.Driver() != DriverFilesystem {
		t.Fatalf("driver %s, want %s", store.Driver(), DriverFilesystem)
	}

	t.Setenv("FEEDPROXY_BLOB_DRIVER", "carrier-pigeon")
	if _, err := Open(ctx); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestFacadeConstructorsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	if _, err := store.Put(ctx, "registry/a.json", bytes.NewReader([]byte(`{}`)), PutOptions{ContentType: "application/json"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	info, rc, err := store.Get(ctx, "registry/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	rc.Close()
	if info.ContentType != "application/json" || info.Size != 2 {
		t.Fatalf("unexpected info %+v", info)
	}

	fsStore, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new filesystem: %v", err)
	}
	if fsStore.Driver() != DriverFilesystem {
		t.Fatalf("driver %s, want %s", fsStore.Driver(), DriverFilesystem)
	}
}
