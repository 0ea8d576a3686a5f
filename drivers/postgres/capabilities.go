package postgres

import "fmt"

// capabilities implements driver.Capabilities for PostgreSQL. Grounded on
// the teacher's PostgreSQLCapabilities (drivers/postgresql/capabilities.go):
// double-quote identifier quoting, "$N" positional placeholders, native
// UUID and TIMESTAMPTZ support.
type capabilities struct{}

func (capabilities) QuoteIdentifier(name string) string {
	return fmt.Sprintf(`"%s"`, name)
}

func (capabilities) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index+1)
}

func (capabilities) SqlTypeKeyword(primitiveType string, nullable bool) string {
	switch primitiveType {
	case "int8", "int16":
		return "SMALLINT"
	case "int32":
		return "INTEGER"
	case "int64":
		return "BIGINT"
	case "uint8", "uint16":
		return "SMALLINT"
	case "uint32":
		return "BIGINT"
	case "uint64":
		return "NUMERIC"
	case "float32":
		return "REAL"
	case "float64":
		return "DOUBLE PRECISION"
	case "bool":
		return "BOOLEAN"
	case "string":
		return "TEXT"
	case "bytes":
		return "BYTEA"
	case "date":
		return "TIMESTAMPTZ"
	case "uuid":
		return "UUID"
	default:
		return "TEXT"
	}
}

// AutoIncrementPrimaryKeyDef substitutes the type keyword itself, the way
// PostgreSQL expresses auto-increment: SERIAL/BIGSERIAL back a column with
// an owned sequence and a DEFAULT nextval(...).
func (capabilities) AutoIncrementPrimaryKeyDef(primitiveType string) string {
	switch primitiveType {
	case "int64", "uint64":
		return "BIGSERIAL PRIMARY KEY"
	default:
		return "SERIAL PRIMARY KEY"
	}
}

func (capabilities) SupportsUpsert() bool     { return true }
func (capabilities) SupportsNativeUUID() bool { return true }
func (capabilities) SupportsNativeDate() bool { return true }
func (capabilities) DriverName() string       { return "postgres" }
