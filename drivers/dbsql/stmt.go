package dbsql

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/relorm/relorm/driver"
)

// boundStmt backs the Prepare/Bind/Step path: args accumulate via Bind and
// the underlying query runs lazily on the first Step call, since
// database/sql has no standalone "execute with previously bound params"
// primitive to mirror against.
type boundStmt struct {
	stmt *sql.Stmt
	args []driver.Value

	rows    *sql.Rows
	numCols int
	started bool
	cur     []driver.Value
}

func (b *boundStmt) Bind(index int, value driver.Value) error {
	for len(b.args) <= index {
		b.args = append(b.args, nil)
	}
	b.args[index] = value
	return nil
}

func (b *boundStmt) Step(ctx context.Context) (bool, error) {
	if !b.started {
		b.started = true
		rows, err := b.stmt.QueryContext(ctx, b.args...)
		if err != nil {
			return false, err
		}
		cols, err := rows.Columns()
		if err != nil {
			rows.Close()
			return false, err
		}
		b.rows = rows
		b.numCols = len(cols)
	}
	return scanNext(b.rows, b.numCols, &b.cur)
}

func (b *boundStmt) Column(index int, expectedType string) (driver.Value, error) {
	return decodeColumn(b.cur, index, expectedType)
}

func (b *boundStmt) ColumnCount() int { return b.numCols }

func (b *boundStmt) Finalize() error {
	if b.rows != nil {
		b.rows.Close()
	}
	return b.stmt.Close()
}

// rowStmt backs the Query path, where args are already bound at the
// database/sql call site and Step just walks the resulting *sql.Rows.
type rowStmt struct {
	rows    *sql.Rows
	numCols int
	cur     []driver.Value
}

func (r *rowStmt) Bind(index int, value driver.Value) error {
	return fmt.Errorf("dbsql: Bind is not valid on a Stmt returned by Query")
}

func (r *rowStmt) Step(ctx context.Context) (bool, error) {
	return scanNext(r.rows, r.numCols, &r.cur)
}

func (r *rowStmt) Column(index int, expectedType string) (driver.Value, error) {
	return decodeColumn(r.cur, index, expectedType)
}

func (r *rowStmt) ColumnCount() int { return r.numCols }

func (r *rowStmt) Finalize() error { return r.rows.Close() }

// scanNext advances rows and scans the raw column values into *cur as
// interface{}, deferring dialect-aware decoding to decodeColumn.
func scanNext(rows *sql.Rows, numCols int, cur *[]driver.Value) (bool, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return false, err
		}
		return false, nil
	}
	dest := make([]any, numCols)
	ptrs := make([]any, numCols)
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return false, err
	}
	*cur = dest
	return true, nil
}

// decodeColumn converts a raw scanned value (whose concrete type varies by
// driver: []byte, string, int64, float64, bool, time.Time, or nil) to the
// canonical Go representation expectedType names.
func decodeColumn(cur []driver.Value, index int, expectedType string) (driver.Value, error) {
	if index < 0 || index >= len(cur) {
		return nil, fmt.Errorf("dbsql: column index %d out of range", index)
	}
	raw := cur[index]
	if raw == nil {
		return nil, nil
	}

	switch expectedType {
	case "date":
		switch v := raw.(type) {
		case time.Time:
			return v, nil
		case []byte:
			return parseTime(string(v))
		case string:
			return parseTime(v)
		}
	case "uuid":
		switch v := raw.(type) {
		case []byte:
			return parseUUID(string(v))
		case string:
			return parseUUID(v)
		}
	case "bytes":
		switch v := raw.(type) {
		case []byte:
			return v, nil
		case string:
			return []byte(v), nil
		}
	case "string":
		switch v := raw.(type) {
		case []byte:
			return string(v), nil
		case string:
			return v, nil
		}
	case "bool":
		switch v := raw.(type) {
		case bool:
			return v, nil
		case int64:
			return v != 0, nil
		case []byte:
			return string(v) != "0" && string(v) != "", nil
		}
	case "int8", "int16", "int32", "int64", "uint8", "uint16", "uint32", "uint64":
		switch v := raw.(type) {
		case int64:
			return v, nil
		case []byte:
			var n int64
			if _, err := fmt.Sscanf(string(v), "%d", &n); err != nil {
				return nil, err
			}
			return n, nil
		}
	case "float32", "float64":
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int64:
			return float64(v), nil
		case []byte:
			var f float64
			if _, err := fmt.Sscanf(string(v), "%g", &f); err != nil {
				return nil, err
			}
			return f, nil
		}
	}
	return raw, nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("dbsql: cannot parse %q as a timestamp", s)
}

func parseUUID(s string) (uuid.UUID, error) {
	if u, err := uuid.Parse(s); err == nil {
		return u, nil
	}
	if b, err := hex.DecodeString(s); err == nil && len(b) == 16 {
		var u uuid.UUID
		copy(u[:], b)
		return u, nil
	}
	return uuid.UUID{}, fmt.Errorf("dbsql: cannot parse %q as a uuid", s)
}
