package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"feedproxy/internal/blob/core"
)

func TestPutGetListDelete(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.Put(ctx, "registry/a.json", strings.NewReader("one"), core.PutOptions{ContentType: "application/json"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Put(ctx, "registry/a.json", strings.NewReader("two"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	info, rc, err := store.Get(ctx, "registry/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "one" || info.ContentType != "application/json" {
		t.Fatalf("unexpected blob %q %+v", data, info)
	}

	if _, err := store.Put(ctx, "registry/b.json", strings.NewReader("three"), core.PutOptions{}); err != nil {
		t.Fatalf("put b: %v", err)
	}
	infos, err := store.List(ctx, "registry/")
	if err != nil || len(infos) != 2 {
		t.Fatalf("list: %v (%d entries)", err, len(infos))
	}
	if infos[0].Key != "registry/a.json" || infos[1].Key != "registry/b.json" {
		t.Fatalf("unexpected order %+v", infos)
	}

	if existed, err := store.Delete(ctx, "registry/a.json"); err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}
	if _, _, err := store.Get(ctx, "registry/a.json"); !errors.Is(err, core.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}
