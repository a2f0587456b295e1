package blob

import (
	"context"
	"path/filepath"
	"testing"

	"sigcore/internal/blob/blobtest"
	"sigcore/internal/config"
)

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "exports")
	cases := []struct {
		name string
		cfg  config.Blob
		want Driver
	}{
		{"default is fs", config.Blob{FSRoot: root}, DriverFilesystem},
		{"fs", config.Blob{Driver: "fs", FSRoot: root}, DriverFilesystem},
		{"memory", config.Blob{Driver: "memory"}, DriverMemory},
		{"s3", config.Blob{Driver: "s3", S3Bucket: "b", S3Endpoint: "http://127.0.0.1:9", S3PathStyle: true}, DriverS3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, err := Open(ctx, tc.cfg)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if store.Driver() != tc.want {
				t.Fatalf("driver = %s, want %s", store.Driver(), tc.want)
			}
		})
	}
}

func TestOpenRejectsBadConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, config.Blob{Driver: "ftp"}); err == nil {
		t.Fatalf("expected an unknown driver error")
	}
	if _, err := Open(ctx, config.Blob{Driver: "s3"}); err == nil {
		t.Fatalf("expected an error without a bucket")
	}
}

func TestFacadeStoresHonourContract(t *testing.T) {
	t.Run("memory", func(t *testing.T) { blobtest.Run(t, NewMemory()) })
	t.Run("fs", func(t *testing.T) {
		store, err := NewFilesystem(t.TempDir())
		if err != nil {
			t.Fatalf("NewFilesystem: %v", err)
		}
		blobtest.Run(t, store)
	})
}
