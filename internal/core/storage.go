package core

import (
	"context"
	"fmt"

	"sigcore/internal/config"
	"sigcore/internal/infra/persistence/memory"
	"sigcore/internal/infra/persistence/postgres"
	"sigcore/internal/infra/persistence/sqlite"
	"sigcore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// PersistentStore is a document store that holds a resource until closed.
type PersistentStore interface {
	domain.PersistentStore
	Close() error
}

type memoryStore struct{ *memory.Store }

func (memoryStore) Close() error { return nil }

// OpenPersistentStore opens the store selected by cfg for one document.
func OpenPersistentStore(ctx context.Context, cfg config.Storage, layout domain.Layout, documentID string) (PersistentStore, error) {
	opts := []memory.Option{memory.WithDocumentID(documentID)}
	switch StorageDriver(cfg.Driver) {
	case StorageMemory, "":
		return memoryStore{memory.NewStore(layout, opts...)}, nil
	case StorageSQLite:
		store, err := sqlite.NewStore(ctx, cfg.SQLitePath, layout, opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoragePostgres:
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN, layout, opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}

// OpenStoredDocument opens the configured store for documentID and wraps it
// in a Document. Closing the returned store is the caller's job.
func OpenStoredDocument(ctx context.Context, cfg config.Storage, documentID string, opts ...Option) (*Document, PersistentStore, error) {
	layout := buildOptions(opts).layout()
	store, err := OpenPersistentStore(ctx, cfg, layout, documentID)
	if err != nil {
		return nil, nil, err
	}
	doc, err := NewDocument(ctx, store, opts...)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return doc, store, nil
}
