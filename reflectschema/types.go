// Package reflectschema derives a TableSchema from a Go record type by
// structural introspection: walking its fields in declared order, resolving
// each to either a SQL column or a child-collection descriptor.
package reflectschema

import (
	"database/sql"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// PrimitiveType enumerates the SQL-compatible scalar types a column field
// may hold.
type PrimitiveType int

const (
	Int8 PrimitiveType = iota
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	Bool
	String
	Bytes
	Date
	UUID
)

func (p PrimitiveType) String() string {
	switch p {
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Bool:
		return "bool"
	case String:
		return "string"
	case Bytes:
		return "bytes"
	case Date:
		return "date"
	case UUID:
		return "uuid"
	default:
		return "unknown"
	}
}

var (
	timeType = reflect.TypeOf(time.Time{})
	uuidType = reflect.TypeOf(uuid.UUID{})
	byteType = reflect.TypeOf(byte(0))
)

// sqlNullPrimitives maps each database/sql nullable wrapper type to the
// PrimitiveType its single value field holds. Every sql.Null* type has the
// shape struct{ <Value> T; Valid bool }, so the wrapper itself, not a
// pointer, is what marks the column nullable.
var sqlNullPrimitives = map[reflect.Type]PrimitiveType{
	reflect.TypeOf(sql.NullString{}):  String,
	reflect.TypeOf(sql.NullInt64{}):   Int64,
	reflect.TypeOf(sql.NullInt32{}):   Int32,
	reflect.TypeOf(sql.NullInt16{}):   Int16,
	reflect.TypeOf(sql.NullByte{}):    Uint8,
	reflect.TypeOf(sql.NullFloat64{}): Float64,
	reflect.TypeOf(sql.NullBool{}):    Bool,
	reflect.TypeOf(sql.NullTime{}):    Date,
}

// sqlNullPrimitiveOf reports whether t is one of the recognized database/sql
// nullable wrapper types and, if so, the primitive it wraps.
func sqlNullPrimitiveOf(t reflect.Type) (PrimitiveType, bool) {
	p, ok := sqlNullPrimitives[t]
	return p, ok
}

// primitiveKinds maps a reflect.Kind to its PrimitiveType for the scalar
// kinds that need no special-case type identity check.
var primitiveKinds = map[reflect.Kind]PrimitiveType{
	reflect.Int8:    Int8,
	reflect.Int16:   Int16,
	reflect.Int32:   Int32,
	reflect.Int64:   Int64,
	reflect.Int:     Int64,
	reflect.Uint8:   Uint8,
	reflect.Uint16:  Uint16,
	reflect.Uint32:  Uint32,
	reflect.Uint64:  Uint64,
	reflect.Uint:    Uint64,
	reflect.Float32: Float32,
	reflect.Float64: Float64,
	reflect.Bool:    Bool,
	reflect.String:  String,
}

// ColumnSchema is one column of a TableSchema.
type ColumnSchema struct {
	Name          string // SQL column name
	GoField       string // declaring Go struct field name
	Type          PrimitiveType
	Nullable      bool
	AutoIncrement bool // only meaningful on the primary key column
	// SQLNull reports that the field's Go representation of NULL is a
	// database/sql Null* wrapper struct rather than a pointer, so encoders
	// and decoders must read/write its Valid field instead of a nil check.
	SQLNull bool
}

// ChildCollection describes an optional ordered sequence of another record
// type, reachable from this schema only through an explicit join.
type ChildCollection struct {
	FieldName   string // Go struct field name
	ElementType reflect.Type
}

// TableSchema is the structural projection of a record type onto a SQL
// table: an ordered, deterministic column list, an optional primary key,
// and the child-collection fields available for joining.
type TableSchema struct {
	RecordType       reflect.Type
	TableName        string
	Columns          []ColumnSchema
	PrimaryKey       int // index into Columns, -1 if none
	ChildCollections []ChildCollection
}

// ColumnByName looks up a column by its SQL name.
func (s *TableSchema) ColumnByName(name string) (*ColumnSchema, int, bool) {
	for i := range s.Columns {
		if s.Columns[i].Name == name {
			return &s.Columns[i], i, true
		}
	}
	return nil, -1, false
}

// ColumnByField looks up a column by its declaring Go field name.
func (s *TableSchema) ColumnByField(goField string) (*ColumnSchema, int, bool) {
	for i := range s.Columns {
		if s.Columns[i].GoField == goField {
			return &s.Columns[i], i, true
		}
	}
	return nil, -1, false
}

// ChildByField looks up a child-collection descriptor by its declaring Go
// field name.
func (s *TableSchema) ChildByField(goField string) (*ChildCollection, bool) {
	for i := range s.ChildCollections {
		if s.ChildCollections[i].FieldName == goField {
			return &s.ChildCollections[i], true
		}
	}
	return nil, false
}

// PrimaryKeyColumn returns the primary key column, if one was derived.
func (s *TableSchema) PrimaryKeyColumn() (*ColumnSchema, bool) {
	if s.PrimaryKey < 0 || s.PrimaryKey >= len(s.Columns) {
		return nil, false
	}
	return &s.Columns[s.PrimaryKey], true
}
