package testutil

import (
	"context"
	"testing"
)

const upsert = `INSERT INTO sigcore_state(document_id,bucket,payload) VALUES($1,$2,$3) ON CONFLICT(document_id,bucket) DO UPDATE SET payload=EXCLUDED.payload`

func TestStubDBUpsertsAndFilters(t *testing.T) {
	ctx := context.Background()
	db, conn := NewStubDB()
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS sigcore_state (document_id TEXT)`); err != nil {
		t.Fatalf("ddl: %v", err)
	}
	for _, row := range [][]any{
		{"pgh", "meta", []byte("1")},
		{"other", "meta", []byte("2")},
		{"pgh", "meta", []byte("3")},
	} {
		if _, err := db.ExecContext(ctx, upsert, row...); err != nil {
			t.Fatalf("upsert %v: %v", row, err)
		}
	}
	if n := len(conn.Tables["sigcore_state"]); n != 2 {
		t.Fatalf("expected the upsert to replace the pgh row, got %d rows", n)
	}
	if len(conn.Execs) != 4 {
		t.Fatalf("expected every statement recorded, got %v", conn.Execs)
	}

	rows, err := db.QueryContext(ctx, `SELECT bucket, payload FROM sigcore_state WHERE document_id = $1`, "pgh")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer func() { _ = rows.Close() }()
	var got []string
	for rows.Next() {
		var name string
		var payload []byte
		if err := rows.Scan(&name, &payload); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got = append(got, name+"="+string(payload))
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(got) != 1 || got[0] != "meta=3" {
		t.Fatalf("unexpected rows %v", got)
	}
}

func TestStubDBStagesTransactionWrites(t *testing.T) {
	ctx := context.Background()
	db, conn := NewStubDB()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := tx.ExecContext(ctx, upsert, "pgh", "entities", []byte("[]")); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if n := len(conn.Tables["sigcore_state"]); n != 0 {
		t.Fatalf("expected writes to stay staged until commit, got %d rows", n)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if n := len(conn.Tables["sigcore_state"]); n != 0 {
		t.Fatalf("expected rollback to discard writes, got %d rows", n)
	}

	tx, err = db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := tx.ExecContext(ctx, upsert, "pgh", "entities", []byte("[]")); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if n := len(conn.Tables["sigcore_state"]); n != 1 {
		t.Fatalf("expected committed row, got %d", n)
	}

	conn.FailCommit = true
	tx, err = db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := tx.ExecContext(ctx, upsert, "pgh", "fields", []byte("[]")); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if err := tx.Commit(); err == nil {
		t.Fatalf("expected commit failure")
	}
	if n := len(conn.Tables["sigcore_state"]); n != 1 {
		t.Fatalf("expected failed commit to write nothing, got %d rows", n)
	}
}

func TestStubDBRejectsUnknownStatements(t *testing.T) {
	ctx := context.Background()
	db, _ := NewStubDB()
	if _, err := db.ExecContext(ctx, `DELETE FROM sigcore_state`); err == nil {
		t.Fatalf("expected unsupported statement error")
	}
	if _, err := db.QueryContext(ctx, `SELECT bucket FROM sigcore_state WHERE document_id = $1`); err == nil {
		t.Fatalf("expected error for a missing argument")
	}
}
