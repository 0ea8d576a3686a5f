// Package relorm is the application-facing surface: constructing a
// Database over a driver connection, the chainable query algebra entry
// point (Table[T]), and transaction/create glue wiring the query, sqlgen
// and materialize packages together.
package relorm

import (
	"context"
	"errors"

	"github.com/relorm/relorm/driver"
	"github.com/relorm/relorm/logger"
	"github.com/relorm/relorm/relerr"
)

// Database wraps one open connection (or, inside a transaction, one open
// transaction's connection) and is the identity key schemas are cached
// against. It is not safe for concurrent use: callers must externally
// serialize operations or use one handle per goroutine, per the
// single-connection resource model.
type Database struct {
	conn     driver.Conn
	cacheKey any // stable across a Database and every transaction spawned from it
	log      logger.Logger

	txDepth  int
	txFailed bool
}

// Open wraps an already-open driver.Conn in a Database. The returned
// *Database itself is used as the schema-cache key.
func Open(conn driver.Conn, opts ...Option) *Database {
	db := &Database{conn: conn, log: logger.Global()}
	db.cacheKey = db
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Option configures a Database at construction time.
type Option func(*Database)

// WithLogger overrides the logger a Database emits query/error events to.
func WithLogger(l logger.Logger) Option {
	return func(db *Database) { db.log = l }
}

// Logger returns the Database's configured logger.
func (db *Database) Logger() logger.Logger { return db.log }

// Conn exposes the underlying driver connection, for drivers or tooling
// that need to issue statements outside the query algebra (e.g. Create).
func (db *Database) Conn() driver.Conn { return db.conn }

// Close releases the underlying connection.
func (db *Database) Close() error { return db.conn.Close() }

// Transaction runs fn with a Database bound to a single BEGIN/COMMIT
// cycle. A transaction already in progress on db is flattened: a nested
// call to Transaction runs fn against the same db without issuing a new
// BEGIN, and a nested failure marks the outer transaction for rollback at
// its own close even if the outer fn otherwise returns nil.
func (db *Database) Transaction(ctx context.Context, fn func(tx *Database) error) error {
	if db.txDepth > 0 {
		db.txDepth++
		defer func() { db.txDepth-- }()
		if err := fn(db); err != nil {
			db.txFailed = true
			db.log.Error("transaction: nested block failed, outer transaction marked for rollback: %v", err)
			return err
		}
		return nil
	}

	tx, err := db.conn.BeginTx(ctx)
	if err != nil {
		return relerr.NewSqlExecError("BEGIN", nil, err)
	}

	txDB := &Database{conn: tx.Conn(), cacheKey: db.cacheKey, log: db.log, txDepth: 1}

	fnErr := fn(txDB)
	if fnErr != nil || txDB.txFailed {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			db.log.Error("transaction: rollback failed: %v", rbErr)
		}
		if fnErr != nil {
			return fnErr
		}
		return relerr.NewSqlExecError("ROLLBACK", nil, errors.New("transaction rolled back: nested block failed"))
	}

	if err := tx.Commit(ctx); err != nil {
		return relerr.NewSqlExecError("COMMIT", nil, err)
	}
	return nil
}
