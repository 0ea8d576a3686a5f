package sqlite

import "fmt"

// capabilities implements driver.Capabilities for SQLite's dynamically
// typed, single-writer storage engine. Grounded on the teacher's
// SQLiteCapabilities (drivers/sqlite/capabilities.go): backtick quoting,
// "?" positional placeholders, no native UUID or DATE/TIMESTAMP type.
type capabilities struct{}

func (capabilities) QuoteIdentifier(name string) string {
	return fmt.Sprintf("`%s`", name)
}

func (capabilities) Placeholder(index int) string {
	return "?"
}

// SqlTypeKeyword maps a primitive type to the column affinity SQLite
// actually enforces. SQLite has no fixed-width integer or native
// date/uuid types, so dates and uuids are stored as TEXT in a
// well-known parseable format and decoded back by the dbsql column
// reader.
func (capabilities) SqlTypeKeyword(primitiveType string, nullable bool) string {
	switch primitiveType {
	case "int8", "int16", "int32", "int64", "uint8", "uint16", "uint32", "uint64":
		return "INTEGER"
	case "float32", "float64":
		return "REAL"
	case "bool":
		return "INTEGER"
	case "string", "date", "uuid":
		return "TEXT"
	case "bytes":
		return "BLOB"
	default:
		return "TEXT"
	}
}

// AutoIncrementPrimaryKeyDef always yields SQLite's rowid-aliasing form:
// AUTOINCREMENT only has meaning on an INTEGER PRIMARY KEY column.
func (capabilities) AutoIncrementPrimaryKeyDef(primitiveType string) string {
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

func (capabilities) SupportsUpsert() bool     { return true }
func (capabilities) SupportsNativeUUID() bool { return false }
func (capabilities) SupportsNativeDate() bool { return false }
func (capabilities) DriverName() string       { return "sqlite" }
