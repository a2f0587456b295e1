// Package postgres keeps document snapshots in a Postgres table while the
// in-memory store runs the transactions.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"sigcore/internal/infra/persistence/bucket"
	"sigcore/internal/infra/persistence/memory"
	"sigcore/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	// DefaultDSN is used when no DSN is configured.
	DefaultDSN = "postgres://localhost/sigcore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists one document to Postgres, writing every commit through
// before the new state is published.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens a Postgres-backed store using dsn (falls back to DefaultDSN),
// ensures the state table exists and hydrates the document from any saved
// snapshot.
func NewStore(ctx context.Context, dsn string, layout domain.Layout, opts ...memory.Option) (*Store, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureStateTable(ctx, db); err != nil {
		return nil, err
	}
	mem := memory.NewStore(layout, opts...)
	snapshot, found, err := loadSnapshot(ctx, db, mem.DocumentID())
	if err != nil {
		return nil, err
	}
	if found {
		snapshot.DocumentID = mem.DocumentID()
		if err := mem.ImportState(snapshot); err != nil {
			return nil, fmt.Errorf("load document %s: %w", mem.DocumentID(), err)
		}
	}
	s := &Store{Store: mem, db: db}
	mem.AddCommitHook(s.persist)
	return s, nil
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

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func ensureStateTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS sigcore_state (
		document_id TEXT NOT NULL,
		bucket TEXT NOT NULL,
		payload JSONB NOT NULL,
		PRIMARY KEY (document_id, bucket)
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure state table: %w", err)
	}
	return nil
}

func loadSnapshot(ctx context.Context, db *sql.DB, documentID string) (domain.Snapshot, bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT bucket, payload FROM sigcore_state WHERE document_id = $1`, documentID)
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var dec bucket.Decoder
	for rows.Next() {
		var name string
		var payload []byte
		if err := rows.Scan(&name, &payload); err != nil {
			return domain.Snapshot{}, false, fmt.Errorf("scan state: %w", err)
		}
		if err := dec.Add(name, payload); err != nil {
			return domain.Snapshot{}, false, err
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("iterate state: %w", err)
	}
	snapshot, found := dec.Snapshot()
	return snapshot, found, nil
}

func (s *Store) persist(ctx context.Context, snapshot domain.Snapshot, _ []domain.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payloads, err := bucket.Encode(snapshot)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, p := range payloads {
		if _, err := tx.ExecContext(ctx, `INSERT INTO sigcore_state(document_id,bucket,payload) VALUES($1,$2,$3) ON CONFLICT(document_id,bucket) DO UPDATE SET payload=EXCLUDED.payload`,
			snapshot.DocumentID, p.Name, p.Data); err != nil {
			return fmt.Errorf("upsert %s: %w", p.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
