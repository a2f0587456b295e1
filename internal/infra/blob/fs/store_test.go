package fs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sigcore/internal/blob/blobtest"
	"sigcore/internal/blob/core"
)

func TestStoreContract(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	blobtest.Run(t, store)
}

func TestStoreRejectsEscapingKeys(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"", "/abs", "../up", "a/../../b", "x.meta"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
	}
}

func TestStoreLayoutOnDisk(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "root")
	store, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if store.Root() != root {
		t.Fatalf("root = %s", store.Root())
	}
	ctx := context.Background()
	info, err := store.Put(ctx, "exports/a.csv", strings.NewReader("Tab,Section,Response\n"), core.PutOptions{ContentType: "text/csv"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if !strings.HasPrefix(info.URL, "file://") {
		t.Fatalf("expected a file URL, got %q", info.URL)
	}
	raw, err := os.ReadFile(filepath.Join(root, "exports", "a.csv"))
	if err != nil || string(raw) != "Tab,Section,Response\n" {
		t.Fatalf("data file = %q (%v)", raw, err)
	}
	if _, err := os.Stat(filepath.Join(root, "exports", "a.csv.meta")); err != nil {
		t.Fatalf("sidecar missing: %v", err)
	}
	url, err := store.PresignURL(ctx, "exports/a.csv", core.SignedURLOptions{})
	if err != nil || url != info.URL {
		t.Fatalf("presign = %q (%v), want %q", url, err, info.URL)
	}
	if err := os.WriteFile(filepath.Join(root, "exports", "a.csv.meta"), []byte("{"), 0o600); err != nil {
		t.Fatalf("corrupt sidecar: %v", err)
	}
	if _, err := store.Head(ctx, "exports/a.csv"); err == nil {
		t.Fatalf("expected a decode error for a corrupt sidecar")
	}
}
