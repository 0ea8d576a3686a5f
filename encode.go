package relorm

import (
	"reflect"

	"github.com/relorm/relorm/reflectschema"
	"github.com/relorm/relorm/relerr"
)

// encodeRow extracts one schema's column values, in column order, from a
// record value for binding into an INSERT statement.
func encodeRow(schema *reflectschema.TableSchema, rec reflect.Value) ([]any, error) {
	if rec.Kind() == reflect.Ptr {
		rec = rec.Elem()
	}
	row := make([]any, len(schema.Columns))
	for i, col := range schema.Columns {
		field := rec.FieldByName(col.GoField)
		if !field.IsValid() {
			return nil, relerr.NewEncodeError(col.Name, "record type has no field "+col.GoField)
		}
		if col.Nullable {
			if col.SQLNull {
				if !field.Field(1).Bool() { // Valid
					row[i] = nil
				} else {
					row[i] = field.Field(0).Interface() // the wrapped value
				}
				continue
			}
			if field.IsNil() {
				row[i] = nil
			} else {
				row[i] = field.Elem().Interface()
			}
			continue
		}
		row[i] = field.Interface()
	}
	return row, nil
}
