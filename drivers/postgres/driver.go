// Package postgres wires relorm's driver.Conn abstraction to PostgreSQL via
// database/sql and github.com/lib/pq. Grounded on the teacher's
// drivers/postgresql package, adapted to relorm's sqlgen-generated
// statements rather than the teacher's raw-query helpers.
package postgres

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"
	"github.com/relorm/relorm"
	"github.com/relorm/relorm/driver"
	"github.com/relorm/relorm/drivers/dbsql"
)

func init() {
	relorm.RegisterDriver("postgres", Open)
}

// Open connects to PostgreSQL using cfg.DSN (a "postgres://..." URL or
// libpq keyword string) and returns a driver.Conn over it.
func Open(ctx context.Context, cfg driver.Config) (driver.Conn, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return dbsql.New(db, capabilities{}, listColumns), nil
}

func listColumns(ctx context.Context, exec dbsql.Execer, tableName string) ([]driver.ColumnInfo, error) {
	rows, err := exec.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_name = $1
		ORDER BY ordinal_position`, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []driver.ColumnInfo
	for rows.Next() {
		var name, dataType, isNullable string
		if err := rows.Scan(&name, &dataType, &isNullable); err != nil {
			return nil, err
		}
		cols = append(cols, driver.ColumnInfo{
			Name:       name,
			DriverType: dataType,
			Nullable:   isNullable == "YES",
		})
	}
	return cols, rows.Err()
}
