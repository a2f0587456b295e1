// Package sqlite keeps document snapshots in an embedded SQLite database. The
// in-memory store runs the transactions; every commit is written through
// before the new state is published.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"sigcore/internal/infra/persistence/bucket"
	"sigcore/internal/infra/persistence/memory"
	"sigcore/pkg/domain"
)

var _ domain.PersistentStore = (*Store)(nil)

// DefaultPath is used when no database path is configured.
const DefaultPath = "sigcore.db"

// Store persists one document to a shared state table keyed by document id.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (or creates) the database at path and loads the document
// selected by the memory options, if it was saved before.
func NewStore(ctx context.Context, path string, layout domain.Layout, opts ...memory.Option) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS sigcore_state (
		document_id TEXT NOT NULL,
		bucket TEXT NOT NULL,
		payload BLOB NOT NULL,
		PRIMARY KEY (document_id, bucket)
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Store: memory.NewStore(layout, opts...), db: db, path: path}
	if err := s.load(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.AddCommitHook(s.persist)
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM sigcore_state WHERE document_id = ?`, s.DocumentID())
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var dec bucket.Decoder
	for rows.Next() {
		var name string
		var payload []byte
		if err := rows.Scan(&name, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		if err := dec.Add(name, payload); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	snapshot, ok := dec.Snapshot()
	if !ok {
		return nil
	}
	snapshot.DocumentID = s.DocumentID()
	if err := s.Store.ImportState(snapshot); err != nil {
		return fmt.Errorf("load document %s: %w", s.DocumentID(), err)
	}
	return nil
}

func (s *Store) persist(ctx context.Context, snapshot domain.Snapshot, _ []domain.Change) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payloads, err := bucket.Encode(snapshot)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, p := range payloads {
		if _, err := tx.ExecContext(ctx, `INSERT INTO sigcore_state(document_id,bucket,payload) VALUES(?,?,?)
			ON CONFLICT(document_id,bucket) DO UPDATE SET payload=excluded.payload`, snapshot.DocumentID, p.Name, p.Data); err != nil {
			return fmt.Errorf("upsert %s: %w", p.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ImportState replaces the document and writes it through immediately. The
// previous state is restored when the write fails.
func (s *Store) ImportState(snapshot domain.Snapshot) error {
	prev := s.ExportState()
	if err := s.Store.ImportState(snapshot); err != nil {
		return err
	}
	if err := s.persist(context.Background(), s.ExportState(), nil); err != nil {
		_ = s.Store.ImportState(prev)
		return err
	}
	return nil
}

// Documents lists the ids of every document saved in the database.
func (s *Store) Documents(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT document_id FROM sigcore_state ORDER BY document_id`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
