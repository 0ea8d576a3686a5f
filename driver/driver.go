// Package driver defines the abstraction the core generates SQL against and
// materializes rows through. A concrete database (SQLite, PostgreSQL, ...)
// implements Conn; the core never imports a concrete driver package itself.
package driver

import "context"

// Config carries whatever a concrete driver needs to open a connection. The
// core treats it opaquely; drivers type-assert or parse the DSN themselves.
type Config struct {
	DSN string
}

// Value is a single bound or decoded column value. nil represents SQL NULL.
type Value = any

// Stmt is a prepared statement. The core never holds a Stmt past the
// iterator that owns it.
type Stmt interface {
	// Bind sets the positional parameter at index (0-based) to value.
	Bind(index int, value Value) error
	// Step advances to the next row. ok is false when rows are exhausted.
	Step(ctx context.Context) (ok bool, err error)
	// Column reads the value at the given 0-based column index of the
	// current row, decoded according to the expected primitive type name
	// ("int64", "string", "bytes", "bool", "float64", "date", "uuid").
	Column(index int, expectedType string) (Value, error)
	// ColumnCount reports how many columns the current result set has.
	ColumnCount() int
	// Finalize releases the statement. Idempotent.
	Finalize() error
}

// ExecResult is the result of a non-row-returning statement (INSERT/UPDATE/DELETE/DDL).
type ExecResult struct {
	LastInsertID int64
	RowsAffected int64
}

// Conn is one open connection to a concrete database.
type Conn interface {
	// Prepare compiles sqlText into a Stmt.
	Prepare(ctx context.Context, sqlText string) (Stmt, error)
	// Exec runs a statement that returns no rows and reports rows affected.
	Exec(ctx context.Context, sqlText string, args []Value) (ExecResult, error)
	// Query runs a statement that returns rows.
	Query(ctx context.Context, sqlText string, args []Value) (Stmt, error)

	BeginTx(ctx context.Context) (Tx, error)

	// ListColumns introspects the live columns of an existing table, for
	// reconcile-mode create.
	ListColumns(ctx context.Context, tableName string) ([]ColumnInfo, error)

	Capabilities
	Close() error
}

// Tx is an open transaction on a Conn.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Conn() Conn
}

// ColumnInfo is what ListColumns reports for one live column.
type ColumnInfo struct {
	Name       string
	DriverType string
	Nullable   bool
}

// Capabilities exposes the dialect-specific bits the SQL generator and
// schema reconciler need: quoting rules, placeholder syntax, type keyword
// mapping, and feature flags.
type Capabilities interface {
	QuoteIdentifier(name string) string
	Placeholder(index int) string
	// SqlTypeKeyword maps a primitive type name (see Stmt.Column) plus
	// nullability to the dialect's column type keyword.
	SqlTypeKeyword(primitiveType string, nullable bool) string
	// AutoIncrementPrimaryKeyDef returns the full inline column definition
	// (type keyword plus PRIMARY KEY and any dialect-specific suffix) used
	// in place of SqlTypeKeyword's result for an autoincrementing primary
	// key column, e.g. SQLite's "INTEGER PRIMARY KEY AUTOINCREMENT" or
	// PostgreSQL's "BIGSERIAL PRIMARY KEY".
	AutoIncrementPrimaryKeyDef(primitiveType string) string
	SupportsUpsert() bool
	SupportsNativeUUID() bool
	SupportsNativeDate() bool
	DriverName() string
}

// Open is implemented once per concrete driver package and registered with
// relorm via relorm.RegisterDriver.
type Open func(ctx context.Context, cfg Config) (Conn, error)
