// Package testutil provides a fake database/sql driver for the postgres
// document store. It understands the three statement shapes the store issues
// (table DDL, keyed upserts and filtered selects) and stages writes made inside
// a transaction until Commit.
package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	createRe = regexp.MustCompile(`(?is)^\s*create\s+table`)
	insertRe = regexp.MustCompile(`(?is)^\s*insert\s+into\s+(\w+)\s*\(([^)]*)\)\s*values\s*\([^)]*\)(?:\s*on\s+conflict\s*\(([^)]*)\))?`)
	selectRe = regexp.MustCompile(`(?is)^\s*select\s+(.+?)\s+from\s+(\w+)(?:\s+where\s+(.+?))?\s*$`)
	andRe    = regexp.MustCompile(`(?i)\s+and\s+`)

	driverSeq atomic.Int64
)

// StubConn is the shared connection behind a stub database. Tables holds the
// committed rows; Execs records every statement passed to ExecContext.
type StubConn struct {
	mu sync.Mutex

	Execs  []string
	Tables map[string][]map[string]any

	FailExec   bool
	FailBegin  bool
	FailCommit bool
	FailTables map[string]bool
	RowsErr    error

	pending []pendingWrite
	inTx    bool
}

type pendingWrite struct {
	table string
	keys  []string
	row   map[string]any
}

// NewStubDB registers a uniquely named driver and opens a database on it.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Tables: make(map[string][]map[string]any)}
	name := fmt.Sprintf("sigcore-stubpg-%d", driverSeq.Add(1))
	sql.Register(name, stubDriver{conn: conn})
	db, err := sql.Open(name, "")
	if err != nil {
		panic(err)
	}
	db.SetMaxOpenConns(1)
	return db, conn
}

type stubDriver struct{ conn *StubConn }

func (d stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Prepare implements driver.Conn. The store never prepares statements.
func (c *StubConn) Prepare(query string) (driver.Stmt, error) {
	return nil, fmt.Errorf("stub: prepare not supported: %s", query)
}

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger and fails together with FailExec.
func (c *StubConn) Ping(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailExec {
		return errors.New("stub: ping failed")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *StubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailBegin {
		return nil, errors.New("stub: begin failed")
	}
	c.inTx = true
	c.pending = nil
	return stubTx{conn: c}, nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, errors.New("stub: exec failed")
	}
	if createRe.MatchString(query) {
		return driver.RowsAffected(0), nil
	}
	m := insertRe.FindStringSubmatch(query)
	if m == nil {
		return nil, fmt.Errorf("stub: unsupported statement: %s", query)
	}
	table := strings.ToLower(m[1])
	if c.FailTables[table] {
		return nil, fmt.Errorf("stub: write to %s failed", table)
	}
	cols := columns(m[2])
	if len(cols) != len(args) {
		return nil, fmt.Errorf("stub: %d columns but %d args for %s", len(cols), len(args), table)
	}
	row := make(map[string]any, len(cols))
	for i, col := range cols {
		row[col] = args[i].Value
	}
	w := pendingWrite{table: table, row: row}
	if m[3] != "" {
		w.keys = columns(m[3])
	}
	if c.inTx {
		c.pending = append(c.pending, w)
	} else {
		c.apply(w)
	}
	return driver.RowsAffected(1), nil
}

func (c *StubConn) apply(w pendingWrite) {
	if c.Tables == nil {
		c.Tables = make(map[string][]map[string]any)
	}
	rows := c.Tables[w.table]
	if len(w.keys) > 0 {
		for i, existing := range rows {
			if sameKey(existing, w.row, w.keys) {
				rows[i] = w.row
				return
			}
		}
	}
	c.Tables[w.table] = append(rows, w.row)
}

// QueryContext implements driver.QueryerContext. WHERE supports equality
// predicates joined by AND, bound to the args in order.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := selectRe.FindStringSubmatch(query)
	if m == nil {
		return nil, fmt.Errorf("stub: unsupported query: %s", query)
	}
	cols := columns(m[1])
	table := strings.ToLower(m[2])
	if c.FailTables[table] {
		return nil, fmt.Errorf("stub: read from %s failed", table)
	}
	var where []string
	if m[3] != "" {
		for _, pred := range andRe.Split(m[3], -1) {
			col, _, ok := strings.Cut(pred, "=")
			if !ok {
				return nil, fmt.Errorf("stub: unsupported predicate %q", pred)
			}
			where = append(where, strings.ToLower(strings.TrimSpace(col)))
		}
	}
	if len(where) > len(args) {
		return nil, fmt.Errorf("stub: %d predicates but %d args", len(where), len(args))
	}
	out := &stubRows{cols: cols, err: c.RowsErr}
	for _, row := range c.Tables[table] {
		if !matches(row, where, args) {
			continue
		}
		vals := make([]driver.Value, len(cols))
		for i, col := range cols {
			vals[i] = row[col]
		}
		out.rows = append(out.rows, vals)
	}
	return out, nil
}

type stubTx struct{ conn *StubConn }

func (t stubTx) Commit() error {
	c := t.conn
	c.mu.Lock()
	defer c.mu.Unlock()
	pending := c.pending
	c.pending, c.inTx = nil, false
	if c.FailCommit {
		return errors.New("stub: commit failed")
	}
	for _, w := range pending {
		c.apply(w)
	}
	return nil
}

func (t stubTx) Rollback() error {
	c := t.conn
	c.mu.Lock()
	c.pending, c.inTx = nil, false
	c.mu.Unlock()
	return nil
}

type stubRows struct {
	cols []string
	rows [][]driver.Value
	next int
	err  error
}

func (r *stubRows) Columns() []string { return r.cols }

func (r *stubRows) Close() error { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.next == len(r.rows) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.rows[r.next])
	r.next++
	return nil
}

func matches(row map[string]any, where []string, args []driver.NamedValue) bool {
	for i, col := range where {
		if !equalValue(row[col], args[i].Value) {
			return false
		}
	}
	return true
}

func sameKey(a, b map[string]any, keys []string) bool {
	for _, k := range keys {
		if !equalValue(a[k], b[k]) {
			return false
		}
	}
	return true
}

func equalValue(a, b any) bool {
	ab, aBytes := a.([]byte)
	bb, bBytes := b.([]byte)
	if aBytes || bBytes {
		return aBytes && bBytes && bytes.Equal(ab, bb)
	}
	return a == b
}

func columns(list string) []string {
	parts := strings.Split(list, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.ToLower(strings.TrimSpace(p)))
	}
	return out
}
