// Package dbsql is the shared database/sql-backed implementation of the
// driver.Conn/Stmt/Tx trio, factored out so the sqlite and postgres driver
// packages only need to supply a Capabilities implementation and a
// dialect-specific column lister. Grounded on the teacher's drivers/base
// package, which centralizes the *sql.DB-wrapping boilerplate shared by
// every dialect-specific driver.
package dbsql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/relorm/relorm/driver"
)

// errNestedBeginUnsupported guards BeginTx called on a Conn that is itself
// already a transaction's view; relorm.Database never does this (nested
// Transaction calls flatten at the txDepth check instead), so this only
// fires if a caller bypasses that layer.
var errNestedBeginUnsupported = errors.New("dbsql: cannot begin a transaction on a transaction's own connection")

// Execer is satisfied by both *sql.DB and *sql.Tx, letting Conn run
// unchanged whether or not it is inside a transaction. Exported so
// dialect packages can write a ListColumnsFunc.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// ListColumnsFunc introspects a table's live columns. Each dialect supplies
// its own (PRAGMA table_info for SQLite, information_schema for Postgres).
type ListColumnsFunc func(ctx context.Context, exec Execer, tableName string) ([]driver.ColumnInfo, error)

// Conn adapts a database/sql handle (either the root *sql.DB or a *sql.Tx)
// to driver.Conn.
type Conn struct {
	db     *sql.DB // only set on the root connection; nil inside a transaction
	exec   Execer
	caps   driver.Capabilities
	lister ListColumnsFunc
}

// New builds the root Conn over an open *sql.DB.
func New(db *sql.DB, caps driver.Capabilities, lister ListColumnsFunc) *Conn {
	return &Conn{db: db, exec: db, caps: caps, lister: lister}
}

func (c *Conn) Prepare(ctx context.Context, sqlText string) (driver.Stmt, error) {
	stmt, err := c.exec.PrepareContext(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	return &boundStmt{stmt: stmt}, nil
}

func (c *Conn) Exec(ctx context.Context, sqlText string, args []driver.Value) (driver.ExecResult, error) {
	res, err := c.exec.ExecContext(ctx, sqlText, args...)
	if err != nil {
		return driver.ExecResult{}, err
	}
	id, _ := res.LastInsertId()
	n, _ := res.RowsAffected()
	return driver.ExecResult{LastInsertID: id, RowsAffected: n}, nil
}

func (c *Conn) Query(ctx context.Context, sqlText string, args []driver.Value) (driver.Stmt, error) {
	rows, err := c.exec.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, err
	}
	return &rowStmt{rows: rows, numCols: len(cols)}, nil
}

func (c *Conn) BeginTx(ctx context.Context) (driver.Tx, error) {
	if c.db == nil {
		return nil, errNestedBeginUnsupported
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, conn: &Conn{exec: tx, caps: c.caps, lister: c.lister}}, nil
}

func (c *Conn) ListColumns(ctx context.Context, tableName string) ([]driver.ColumnInfo, error) {
	return c.lister(ctx, c.exec, tableName)
}

func (c *Conn) QuoteIdentifier(name string) string { return c.caps.QuoteIdentifier(name) }
func (c *Conn) Placeholder(index int) string        { return c.caps.Placeholder(index) }
func (c *Conn) SqlTypeKeyword(primitiveType string, nullable bool) string {
	return c.caps.SqlTypeKeyword(primitiveType, nullable)
}
func (c *Conn) AutoIncrementPrimaryKeyDef(primitiveType string) string {
	return c.caps.AutoIncrementPrimaryKeyDef(primitiveType)
}
func (c *Conn) SupportsUpsert() bool     { return c.caps.SupportsUpsert() }
func (c *Conn) SupportsNativeUUID() bool { return c.caps.SupportsNativeUUID() }
func (c *Conn) SupportsNativeDate() bool { return c.caps.SupportsNativeDate() }
func (c *Conn) DriverName() string       { return c.caps.DriverName() }

func (c *Conn) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Tx wraps a *sql.Tx. Conn() returns a Conn view whose execer is the
// transaction itself, so statements generated against it run within the
// transaction rather than against the root connection.
type Tx struct {
	tx   *sql.Tx
	conn *Conn
}

func (t *Tx) Commit(ctx context.Context) error   { return t.tx.Commit() }
func (t *Tx) Rollback(ctx context.Context) error { return t.tx.Rollback() }
func (t *Tx) Conn() driver.Conn                  { return t.conn }
