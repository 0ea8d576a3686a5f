// Package materialize executes a lowered sqlgen.SelectPlan against a
// driver.Conn and stitches the principal result set together with each
// active join's auxiliary result set: one pass of row decoding by
// reflection, one pass of key-based bucketing per join, recursing into
// nested joins by treating a join's decoded children as the next level's
// parent population.
package materialize

import (
	"context"
	"reflect"

	"github.com/relorm/relorm/driver"
	"github.com/relorm/relorm/reflectschema"
	"github.com/relorm/relorm/relerr"
	"github.com/relorm/relorm/sqlgen"
)

// runAndDecode executes stmt and decodes every row into a fresh recordType
// value, returning the accumulated slice. An empty stmt.SQL (the
// zero-rows insert boundary case reused here for "nothing to query") yields
// an empty slice without touching conn.
func runAndDecode(ctx context.Context, conn driver.Conn, stmt sqlgen.Statement, schema *reflectschema.TableSchema, recordType reflect.Type) (reflect.Value, error) {
	sliceType := reflect.SliceOf(recordType)
	out := reflect.MakeSlice(sliceType, 0, 0)
	if stmt.SQL == "" {
		return out, nil
	}

	s, err := conn.Query(ctx, stmt.SQL, stmt.Args)
	if err != nil {
		return reflect.Value{}, relerr.NewSqlExecError(stmt.SQL, stmt.Args, err)
	}
	defer s.Finalize()

	for {
		ok, err := s.Step(ctx)
		if err != nil {
			return reflect.Value{}, relerr.NewSqlExecError(stmt.SQL, stmt.Args, err)
		}
		if !ok {
			break
		}

		rec := reflect.New(recordType).Elem()
		for i, col := range schema.Columns {
			raw, err := s.Column(i, col.Type.String())
			if err != nil {
				return reflect.Value{}, relerr.NewDecodeError(col.Name, err.Error())
			}
			if err := assignColumn(rec.FieldByName(col.GoField), col, raw); err != nil {
				return reflect.Value{}, err
			}
		}
		out = reflect.Append(out, rec)
	}
	return out, nil
}

// assignColumn sets field to raw. A nullable column leaves the field at its
// zero value for a NULL; otherwise it either sets a database/sql Null*
// wrapper's value and Valid fields (col.SQLNull) or allocates a pointer.
func assignColumn(field reflect.Value, col reflectschema.ColumnSchema, raw driver.Value) error {
	if raw == nil {
		if !col.Nullable {
			return relerr.NewDecodeError(col.Name, "unexpected NULL for a non-nullable column")
		}
		field.Set(reflect.Zero(field.Type()))
		return nil
	}

	rv := reflect.ValueOf(raw)

	if col.Nullable && col.SQLNull {
		valueField := field.Field(0)
		if !rv.Type().ConvertibleTo(valueField.Type()) {
			return relerr.NewDecodeError(col.Name, "cannot convert "+rv.Type().String()+" to "+valueField.Type().String())
		}
		valueField.Set(rv.Convert(valueField.Type()))
		field.Field(1).SetBool(true) // Valid
		return nil
	}

	if col.Nullable {
		elemType := field.Type().Elem()
		if !rv.Type().ConvertibleTo(elemType) {
			return relerr.NewDecodeError(col.Name, "cannot convert "+rv.Type().String()+" to "+elemType.String())
		}
		ptr := reflect.New(elemType)
		ptr.Elem().Set(rv.Convert(elemType))
		field.Set(ptr)
		return nil
	}

	if !rv.Type().ConvertibleTo(field.Type()) {
		return relerr.NewDecodeError(col.Name, "cannot convert "+rv.Type().String()+" to "+field.Type().String())
	}
	field.Set(rv.Convert(field.Type()))
	return nil
}

// pivotPair is one decoded (parentKey, childKey) row from a pivot table.
type pivotPair struct {
	parentKey any
	childKey  any
}

func runAndDecodePivot(ctx context.Context, conn driver.Conn, stmt sqlgen.Statement, pivotSchema *reflectschema.TableSchema, parentCol, childCol string) ([]pivotPair, error) {
	if stmt.SQL == "" {
		return nil, nil
	}
	pc, _, _ := pivotSchema.ColumnByName(parentCol)
	cc, _, _ := pivotSchema.ColumnByName(childCol)

	s, err := conn.Query(ctx, stmt.SQL, stmt.Args)
	if err != nil {
		return nil, relerr.NewSqlExecError(stmt.SQL, stmt.Args, err)
	}
	defer s.Finalize()

	var out []pivotPair
	for {
		ok, err := s.Step(ctx)
		if err != nil {
			return nil, relerr.NewSqlExecError(stmt.SQL, stmt.Args, err)
		}
		if !ok {
			break
		}
		pk, err := s.Column(0, pc.Type.String())
		if err != nil {
			return nil, relerr.NewDecodeError(parentCol, err.Error())
		}
		ck, err := s.Column(1, cc.Type.String())
		if err != nil {
			return nil, relerr.NewDecodeError(childCol, err.Error())
		}
		out = append(out, pivotPair{parentKey: pk, childKey: ck})
	}
	return out, nil
}
