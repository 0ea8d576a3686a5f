// Package sqlite wires relorm's driver.Conn abstraction to SQLite via
// database/sql and github.com/mattn/go-sqlite3. Grounded on the teacher's
// drivers/sqlite package (driver.go, capabilities.go, transaction.go),
// adapted from its hand-rolled RawInsert/RawFind SQL-string helpers to
// relorm's sqlgen-generated statements.
package sqlite

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/relorm/relorm"
	"github.com/relorm/relorm/driver"
	"github.com/relorm/relorm/drivers/dbsql"
)

func init() {
	relorm.RegisterDriver("sqlite", Open)
}

// Open connects to a SQLite database at cfg.DSN (a file path, or
// "file::memory:?cache=shared" for an in-memory database) and returns a
// driver.Conn over it.
func Open(ctx context.Context, cfg driver.Config) (driver.Conn, error) {
	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	// SQLite serializes writers internally; a single connection avoids
	// "database is locked" errors under concurrent use from the pool.
	db.SetMaxOpenConns(1)
	return dbsql.New(db, capabilities{}, listColumns), nil
}

func listColumns(ctx context.Context, exec dbsql.Execer, tableName string) ([]driver.ColumnInfo, error) {
	rows, err := exec.QueryContext(ctx, "PRAGMA table_info("+tableName+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []driver.ColumnInfo
	for rows.Next() {
		var (
			cid        int
			name       string
			colType    string
			notNull    int
			defaultVal any
			pk         int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultVal, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, driver.ColumnInfo{
			Name:       name,
			DriverType: strings.ToUpper(colType),
			Nullable:   notNull == 0,
		})
	}
	return cols, rows.Err()
}
