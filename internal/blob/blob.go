// Package blob is the single entry point to the blob backends. Callers hold a
// blob.Store and never import the infra packages directly.
package blob

import (
	"context"
	"fmt"

	"sigcore/internal/blob/core"
	"sigcore/internal/config"
	fsstore "sigcore/internal/infra/blob/fs"
	memstore "sigcore/internal/infra/blob/memory"
	s3store "sigcore/internal/infra/blob/s3"
)

type (
	Driver           = core.Driver
	PutOptions       = core.PutOptions
	SignedURLOptions = core.SignedURLOptions
	Info             = core.Info
	Store            = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrUnsupported = core.ErrUnsupported
	ErrExists      = core.ErrExists
	ErrNotFound    = core.ErrNotFound
)

// NewMemory returns an empty in-process store.
func NewMemory() Store { return memstore.New() }

// NewFilesystem returns a store rooted at root.
func NewFilesystem(root string) (Store, error) {
	s, err := fsstore.New(root)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewS3 returns a bucket-backed store.
func NewS3(ctx context.Context, cfg s3store.Config) (Store, error) {
	s, err := s3store.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Open builds the store named by cfg.Driver; an empty driver means fs.
func Open(ctx context.Context, cfg config.Blob) (Store, error) {
	switch Driver(cfg.Driver) {
	case DriverFilesystem, "":
		return NewFilesystem(cfg.FSRoot)
	case DriverMemory:
		return NewMemory(), nil
	case DriverS3:
		return NewS3(ctx, s3store.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
