package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"sigcore/internal/infra/persistence/bucket"
	"sigcore/internal/infra/persistence/memory"
	"sigcore/internal/infra/persistence/postgres/testutil"
	"sigcore/pkg/domain"
)

func testLayout() domain.Layout {
	return domain.Layout{Tabs: []domain.Tab{{
		ID:     "types",
		Title:  "Types",
		Owns:   []domain.EntityKind{domain.KindCalloutType},
		Fields: []domain.Field{{ID: "notes", Title: "Notes", Kind: domain.FieldText}},
	}}}
}

func openStub(t *testing.T, opts ...memory.Option) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	store, err := NewStore(context.Background(), "", testLayout(), opts...)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, conn
}

func createType(store *Store, name string) error {
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateEntity(domain.Entity{Kind: domain.KindCalloutType, DisplayName: name})
		return err
	})
	return err
}

func TestNewStoreCreatesStateTable(t *testing.T) {
	_, conn := openStub(t)
	var sawDDL bool
	for _, stmt := range conn.Execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE IF NOT EXISTS SIGCORE_STATE") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected state table DDL, got execs: %v", conn.Execs)
	}
}

func TestRunInTransactionPersistsState(t *testing.T) {
	store, conn := openStub(t, memory.WithDocumentID("pgh"))
	if err := createType(store, "Normal"); err != nil {
		t.Fatalf("create: %v", err)
	}
	rows := conn.Tables["sigcore_state"]
	if len(rows) != len(bucket.Names) {
		t.Fatalf("expected %d buckets, got %d", len(bucket.Names), len(rows))
	}
	for _, row := range rows {
		if row["document_id"] != "pgh" {
			t.Fatalf("unexpected document id in %v", row)
		}
	}
	if err := createType(store, "Storm"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if n := len(conn.Tables["sigcore_state"]); n != len(bucket.Names) {
		t.Fatalf("expected upserts to replace buckets, got %d rows", n)
	}
}

func TestNewStoreLoadsSavedDocument(t *testing.T) {
	db, _ := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	ctx := context.Background()
	first, err := NewStore(ctx, "", testLayout(), memory.WithDocumentID("pgh"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := createType(first, "Normal"); err != nil {
		t.Fatalf("create: %v", err)
	}
	other, err := NewStore(ctx, "", testLayout(), memory.WithDocumentID("other"))
	if err != nil {
		t.Fatalf("NewStore other: %v", err)
	}
	if n := len(other.ExportState().Entities); n != 0 {
		t.Fatalf("expected other document empty, got %d entities", n)
	}
	again, err := NewStore(ctx, "", testLayout(), memory.WithDocumentID("pgh"))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got := again.ExportState()
	if len(got.Entities) != 1 || got.Entities[0].DisplayName != "Normal" {
		t.Fatalf("unexpected reloaded snapshot %+v", got)
	}
}

func TestRunInTransactionExecFailureLeavesStateUnchanged(t *testing.T) {
	store, conn := openStub(t)
	conn.FailTables = map[string]bool{"sigcore_state": true}
	err := createType(store, "Normal")
	if err == nil || !strings.Contains(err.Error(), "upsert") {
		t.Fatalf("expected upsert error, got %v", err)
	}
	if n := len(store.ExportState().Entities); n != 0 {
		t.Fatalf("expected no entities after failed commit, got %d", n)
	}
}

func TestRunInTransactionBeginAndCommitFailures(t *testing.T) {
	store, conn := openStub(t)
	conn.FailBegin = true
	if err := createType(store, "Normal"); err == nil {
		t.Fatalf("expected begin failure")
	}
	conn.FailBegin = false
	conn.FailCommit = true
	if err := createType(store, "Normal"); err == nil || !strings.Contains(err.Error(), "commit") {
		t.Fatalf("expected commit failure, got %v", err)
	}
}

func TestRunInTransactionStopsOnUserError(t *testing.T) {
	store, conn := openStub(t)
	sentinel := errors.New("boom")
	_, err := store.RunInTransaction(context.Background(), func(domain.Transaction) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}
	if len(conn.Tables["sigcore_state"]) != 0 {
		t.Fatalf("expected nothing written")
	}
}

func TestImportStateWritesThrough(t *testing.T) {
	store, conn := openStub(t)
	snapshot := domain.Snapshot{Entities: []domain.Entity{{Base: domain.Base{ID: "t1", Seq: 1}, Kind: domain.KindCalloutType, DisplayName: "Normal"}}}
	if err := store.ImportState(snapshot); err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(conn.Tables["sigcore_state"]) != len(bucket.Names) {
		t.Fatalf("expected import to be persisted")
	}
	conn.FailTables = map[string]bool{"sigcore_state": true}
	if err := store.ImportState(domain.Snapshot{}); err == nil {
		t.Fatalf("expected import failure")
	}
	if n := len(store.ExportState().Entities); n != 1 {
		t.Fatalf("expected previous state restored, got %d entities", n)
	}
}

func TestNewStoreErrors(t *testing.T) {
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("no driver") })
	if _, err := NewStore(context.Background(), "dsn", testLayout()); err == nil {
		t.Fatalf("expected open error")
	}
	restore()

	db, conn := testutil.NewStubDB()
	conn.FailExec = true
	restore = OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(context.Background(), "dsn", testLayout()); err == nil {
		t.Fatalf("expected ping error")
	}

	conn.FailExec = false
	conn.RowsErr = errors.New("rows broke")
	if _, err := NewStore(context.Background(), "dsn", testLayout()); err == nil || !strings.Contains(err.Error(), "iterate state") {
		t.Fatalf("expected rows error, got %v", err)
	}
}

func TestStoreDBExposesHandle(t *testing.T) {
	store, _ := openStub(t)
	if store.DB() == nil {
		t.Fatalf("expected db handle")
	}
}
