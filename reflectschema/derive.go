package reflectschema

import (
	"reflect"
	"strings"
	"sync"

	"github.com/relorm/relorm/relerr"
)

// TableNamer is implemented by a record type (value or pointer receiver) to
// override its structural default table name.
type TableNamer interface {
	TableName() string
}

type cacheKey struct {
	recordType reflect.Type
	db         any
}

// cache is process-wide and read-mostly: schemas are derived once per
// (record type, database) pair and never evicted for the life of the
// process.
var (
	cacheMu sync.RWMutex
	cache   = map[cacheKey]*TableSchema{}
)

// For derives, or returns the cached, TableSchema for recordType scoped to
// db. db is an opaque identity key (typically a *Database pointer); passing
// the same recordType with a different db re-derives independently, per the
// data model's "cached per (record type, database)" rule. Passing a nil db
// derives a database-independent schema (used by callers that only need
// column/type shape, e.g. the package tests).
func For(recordType reflect.Type, db any) (*TableSchema, error) {
	if recordType.Kind() == reflect.Ptr {
		recordType = recordType.Elem()
	}
	key := cacheKey{recordType: recordType, db: db}

	cacheMu.RLock()
	if s, ok := cache[key]; ok {
		cacheMu.RUnlock()
		return s, nil
	}
	cacheMu.RUnlock()

	s, err := derive(recordType)
	if err != nil {
		return nil, err
	}

	cacheMu.Lock()
	cache[key] = s
	cacheMu.Unlock()
	return s, nil
}

// Of is a convenience generic wrapper around For.
func Of[T any](db any) (*TableSchema, error) {
	var zero T
	return For(reflect.TypeOf(zero), db)
}

func derive(t reflect.Type) (*TableSchema, error) {
	if t.Kind() != reflect.Struct {
		return nil, relerr.NewSchemaError("", t.String(), "record type must be a struct")
	}

	schema := &TableSchema{
		RecordType: t,
		TableName:  resolveTableName(t),
		PrimaryKey: -1,
	}

	explicitPK := -1
	idFallback := -1

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue // unexported
		}

		tag := parseTag(field.Tag.Get("db"))
		if tag.skip {
			continue
		}

		ft := field.Type
		nullable := false
		viaSQLNull := false
		var prim PrimitiveType
		var ok bool

		if prim, ok = sqlNullPrimitiveOf(ft); ok {
			nullable = true
			viaSQLNull = true
		} else {
			if ft.Kind() == reflect.Ptr {
				nullable = true
				ft = ft.Elem()
			}

			if child, isChild := childElementType(ft); isChild {
				schema.ChildCollections = append(schema.ChildCollections, ChildCollection{
					FieldName:   field.Name,
					ElementType: child,
				})
				continue
			}

			prim, ok = primitiveTypeOf(ft)
			if !ok {
				return nil, relerr.NewSchemaError(field.Name, t.String(), "unsupported field type "+field.Type.String())
			}
		}

		col := ColumnSchema{
			Name:          field.Name,
			GoField:       field.Name,
			Type:          prim,
			Nullable:      nullable,
			AutoIncrement: tag.autoIncrement,
			SQLNull:       viaSQLNull,
		}
		if tag.column != "" {
			col.Name = tag.column
		}

		if tag.autoIncrement && !tag.primaryKey {
			return nil, relerr.NewSchemaError(field.Name, t.String(), "autoincrement is only valid on the primary key column")
		}

		colIdx := len(schema.Columns)
		schema.Columns = append(schema.Columns, col)

		if tag.primaryKey {
			if explicitPK >= 0 {
				return nil, relerr.NewSchemaError(field.Name, t.String(), "ambiguous primary key: more than one field tagged pk")
			}
			explicitPK = colIdx
		}
		if strings.EqualFold(col.Name, "id") {
			idFallback = colIdx
		}
	}

	if explicitPK >= 0 {
		schema.PrimaryKey = explicitPK
	} else {
		schema.PrimaryKey = idFallback
	}

	return schema, nil
}

func resolveTableName(t reflect.Type) string {
	if n, ok := tableNameFromMethod(t); ok {
		return n
	}
	return defaultTableName(t.Name())
}

func tableNameFromMethod(t reflect.Type) (string, bool) {
	if v, ok := reflect.New(t).Interface().(TableNamer); ok {
		return v.TableName(), true
	}
	return "", false
}

func primitiveTypeOf(t reflect.Type) (PrimitiveType, bool) {
	switch {
	case t == timeType:
		return Date, true
	case t == uuidType:
		return UUID, true
	case t.Kind() == reflect.Slice && t.Elem() == byteType:
		return Bytes, true
	}
	if p, ok := primitiveKinds[t.Kind()]; ok {
		return p, true
	}
	return 0, false
}

// childElementType reports whether t (already de-pointered at the field
// level) is a slice of record-typed elements, i.e. []ElementType where
// ElementType is a struct not otherwise recognised as a primitive.
func childElementType(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() != reflect.Slice {
		return nil, false
	}
	elem := t.Elem()
	if elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}
	if elem == byteType {
		return nil, false // []byte is the Bytes primitive, not a child collection
	}
	if elem.Kind() != reflect.Struct || elem == timeType || elem == uuidType {
		return nil, false
	}
	return elem, true
}

type fieldTag struct {
	column        string
	primaryKey    bool
	autoIncrement bool
	skip          bool
}

func parseTag(raw string) fieldTag {
	if raw == "-" {
		return fieldTag{skip: true}
	}
	var tag fieldTag
	parts := strings.Split(raw, ",")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if i == 0 {
			tag.column = p
			continue
		}
		switch p {
		case "pk", "primarykey", "primary_key":
			tag.primaryKey = true
		case "autoincrement", "auto_increment":
			tag.autoIncrement = true
		}
	}
	return tag
}
