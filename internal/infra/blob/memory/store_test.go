package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sigcore/internal/blob/blobtest"
	"sigcore/internal/blob/core"
)

func TestStoreContract(t *testing.T) {
	blobtest.Run(t, New())
}

func TestStoreClockAndCopies(t *testing.T) {
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	store := New().WithClock(func() time.Time { return at })
	ctx := context.Background()
	meta := map[string]string{"k": "v"}
	info, err := store.Put(ctx, "a", strings.NewReader("x"), core.PutOptions{Metadata: meta})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if !info.LastModified.Equal(at) || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	meta["k"] = "changed"
	info.Metadata["k"] = "changed"
	head, _ := store.Head(ctx, "a")
	if head.Metadata["k"] != "v" {
		t.Fatalf("stored metadata aliased caller maps: %+v", head.Metadata)
	}
	if _, err := store.Put(ctx, " ", strings.NewReader(""), core.PutOptions{}); err == nil {
		t.Fatalf("expected empty key error")
	}
	if _, err := store.PresignURL(ctx, "a", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("presign = %v", err)
	}
}
