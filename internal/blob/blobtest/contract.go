// Package blobtest holds the behaviour every blob store must share, run by
// each backend's tests.
package blobtest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"sigcore/internal/blob/core"
)

// Run exercises store through the create-only contract. The store must be
// empty.
func Run(t *testing.T, store core.Store) {
	t.Helper()
	ctx := context.Background()

	info, err := store.Put(ctx, "exports/doc/snapshot.json", bytes.NewReader([]byte(`{"a":1}`)),
		core.PutOptions{ContentType: "application/json", Metadata: map[string]string{"document": "doc"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "exports/doc/snapshot.json" || info.Size != 7 || info.ContentType != "application/json" {
		t.Fatalf("unexpected put info %+v", info)
	}
	if _, err := store.Put(ctx, "exports/doc/snapshot.json", bytes.NewReader([]byte("x")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("second put = %v, want ErrExists", err)
	}
	if _, err := store.Put(ctx, "exports/doc/workbook.csv", bytes.NewReader([]byte("Tab,Section,Response\n")), core.PutOptions{ContentType: "text/csv"}); err != nil {
		t.Fatalf("put csv: %v", err)
	}
	if _, err := store.Put(ctx, "other/readme.txt", bytes.NewReader([]byte("hi")), core.PutOptions{}); err != nil {
		t.Fatalf("put other: %v", err)
	}

	head, err := store.Head(ctx, "exports/doc/snapshot.json")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.Size != 7 || head.ContentType != "application/json" {
		t.Fatalf("unexpected head %+v", head)
	}
	got, rc, err := store.Get(ctx, "exports/doc/snapshot.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil || string(body) != `{"a":1}` {
		t.Fatalf("get body %q (%v)", body, err)
	}
	if got.Key != "exports/doc/snapshot.json" {
		t.Fatalf("get key %q", got.Key)
	}

	if _, err := store.Head(ctx, "exports/missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("head missing = %v, want ErrNotFound", err)
	}
	if _, _, err := store.Get(ctx, "exports/missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get missing = %v, want ErrNotFound", err)
	}

	list, err := store.List(ctx, "exports/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "exports/doc/snapshot.json" || list[1].Key != "exports/doc/workbook.csv" {
		t.Fatalf("unexpected listing %+v", list)
	}
	all, err := store.List(ctx, "")
	if err != nil || len(all) != 3 {
		t.Fatalf("list all = %d (%v)", len(all), err)
	}

	if _, err := store.PresignURL(ctx, "exports/doc/snapshot.json", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("presign PUT = %v, want ErrUnsupported", err)
	}

	deleted, err := store.Delete(ctx, "other/readme.txt")
	if err != nil || !deleted {
		t.Fatalf("delete = %v, %v", deleted, err)
	}
	deleted, err = store.Delete(ctx, "other/readme.txt")
	if err != nil || deleted {
		t.Fatalf("second delete = %v, %v", deleted, err)
	}
}
