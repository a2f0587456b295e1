package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"sigcore/internal/infra/persistence/memory"
	"sigcore/pkg/domain"
)

func testLayout() domain.Layout {
	return domain.Layout{Tabs: []domain.Tab{{
		ID:    "locations",
		Title: "Locations",
		Owns:  []domain.EntityKind{domain.KindLocation, domain.KindCalloutType},
		Fields: []domain.Field{
			{ID: "labels", Title: "Labels", Kind: domain.FieldText},
			{ID: "assignments", Title: "Assignments", Kind: domain.FieldReference, Source: domain.Source{Kind: domain.SourceMatrix, Entity: domain.KindCalloutType}},
		},
	}}}
}

func seed(t *testing.T, store *Store) (string, string) {
	t.Helper()
	var loc, ct string
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		root, err := tx.CreateEntity(domain.Entity{Kind: domain.KindLocation, DisplayName: "Pittsburgh Water", Level: 1})
		if err != nil {
			return err
		}
		loc = root.ID
		normal, err := tx.CreateEntity(domain.Entity{Kind: domain.KindCalloutType, DisplayName: "Normal"})
		if err != nil {
			return err
		}
		ct = normal.ID
		if err := tx.SetFieldValue(domain.Ref("locations", "labels"), domain.Value{"Company"}); err != nil {
			return err
		}
		return tx.SetAssignment(domain.Assignment{LocationID: loc, TargetKind: domain.KindCalloutType, TargetID: ct}, true)
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return loc, ct
}

func TestSQLiteStorePersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()
	store, err := NewStore(ctx, path, testLayout(), memory.WithDocumentID("pgh"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	loc, _ := seed(t, store)
	want := store.ExportState()
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded, err := NewStore(ctx, path, testLayout(), memory.WithDocumentID("pgh"))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	defer func() { _ = reloaded.Close() }()
	got := reloaded.ExportState()
	if len(got.Entities) != 2 || len(got.Assignments) != 1 || len(got.Fields) != 1 {
		t.Fatalf("unexpected reloaded snapshot %+v", got)
	}
	if got.NextSeq != want.NextSeq || got.Entities[0].ID != loc {
		t.Fatalf("reloaded snapshot differs: %+v vs %+v", got, want)
	}
	if _, ok := reloaded.GetEntity(loc); !ok {
		t.Fatalf("expected location %s after reload", loc)
	}
}

func TestSQLiteStoreKeepsDocumentsApart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()
	first, err := NewStore(ctx, path, testLayout(), memory.WithDocumentID("a"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer func() { _ = first.Close() }()
	seed(t, first)

	second, err := NewStore(ctx, path, testLayout(), memory.WithDocumentID("b"))
	if err != nil {
		t.Fatalf("open second: %v", err)
	}
	defer func() { _ = second.Close() }()
	if n := len(second.ExportState().Entities); n != 0 {
		t.Fatalf("expected empty document b, got %d entities", n)
	}
	if err := second.ImportState(domain.Snapshot{Entities: []domain.Entity{{Base: domain.Base{ID: "x", Seq: 1}, Kind: domain.KindCalloutType, DisplayName: "Storm"}}}); err != nil {
		t.Fatalf("import: %v", err)
	}
	ids, err := first.Documents(ctx)
	if err != nil {
		t.Fatalf("documents: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("documents = %v", ids)
	}
}

func TestSQLiteStoreFailedTransactionWritesNothing(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(ctx, filepath.Join(t.TempDir(), "state.db"), testLayout())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer func() { _ = store.Close() }()
	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateEntity(domain.Entity{Kind: domain.KindLocation, DisplayName: "", Level: 1})
		return err
	})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var n int
	if err := store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM sigcore_state`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no rows written, got %d", n)
	}
}

func TestSQLiteStoreCommitFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(ctx, filepath.Join(t.TempDir(), "state.db"), testLayout())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	seed(t, store)
	before := store.ExportState()
	_ = store.DB().Close()
	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateEntity(domain.Entity{Kind: domain.KindCalloutType, DisplayName: "Storm"})
		return err
	})
	if err == nil {
		t.Fatalf("expected commit error with closed database")
	}
	if got := store.ExportState(); len(got.Entities) != len(before.Entities) {
		t.Fatalf("state changed despite failed commit")
	}
}
