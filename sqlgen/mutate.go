package sqlgen

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/relorm/relorm/driver"
	"github.com/relorm/relorm/query"
	"github.com/relorm/relorm/reflectschema"
)

// GenerateInsert renders "INSERT INTO table (cols) VALUES (...), (...)"
// for rows already filtered to schema column order (child-collection fields
// are never part of rows; callers extract them beforehand).
func GenerateInsert(caps driver.Capabilities, schema *reflectschema.TableSchema, rows [][]any) (*Statement, error) {
	if len(rows) == 0 {
		return &Statement{SQL: ""}, nil
	}

	cols := make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		cols[i] = caps.QuoteIdentifier(c.Name)
	}

	pc := &placeholderCounter{caps: caps}
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", caps.QuoteIdentifier(schema.TableName), strings.Join(cols, ", "))

	var args []any
	for r, row := range rows {
		if len(row) != len(schema.Columns) {
			return nil, fmt.Errorf("insert row %d: expected %d values, got %d", r, len(schema.Columns), len(row))
		}
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for i, v := range row {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(pc.next1())
			args = append(args, v)
		}
		b.WriteString(")")
	}

	return &Statement{SQL: b.String(), Args: args}, nil
}

// GenerateUpdate renders "UPDATE table SET col=?, ... [WHERE ...]". setCols
// is the already-resolved, already-primary-key-excluded list of columns to
// assign, in the order their values appear in setArgs. Joined forms in the
// chain are ignored; only a principal-level predicate is honoured.
func GenerateUpdate(db any, caps driver.Capabilities, n *query.Node, setCols []string, setArgs []any) (*Statement, error) {
	overallSchema, err := reflectschema.For(n.Overall, db)
	if err != nil {
		return nil, err
	}
	schemaFor := func(t reflect.Type) (*reflectschema.TableSchema, error) {
		return reflectschema.For(t, db)
	}

	shape := walkChain(n)
	var principalPred query.Expr
	if shape.whereNode != nil {
		principalPred, _, err = splitWhere(shape.whereNode.Where, n.Overall)
		if err != nil {
			return nil, err
		}
	}

	pc := &placeholderCounter{caps: caps}
	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s SET ", caps.QuoteIdentifier(overallSchema.TableName))

	args := make([]any, 0, len(setCols)+4)
	for i, col := range setCols {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s = %s", caps.QuoteIdentifier(col), pc.next1())
		args = append(args, setArgs[i])
	}

	if principalPred != nil {
		sql, predArgs, err := lowerExpr(principalPred, schemaFor, caps, pc, "")
		if err != nil {
			return nil, err
		}
		b.WriteString(" WHERE ")
		b.WriteString(sql)
		args = append(args, predArgs...)
	}

	return &Statement{SQL: b.String(), Args: args}, nil
}

// GenerateDelete renders "DELETE FROM table [WHERE ...]".
func GenerateDelete(db any, caps driver.Capabilities, n *query.Node) (*Statement, error) {
	overallSchema, err := reflectschema.For(n.Overall, db)
	if err != nil {
		return nil, err
	}
	schemaFor := func(t reflect.Type) (*reflectschema.TableSchema, error) {
		return reflectschema.For(t, db)
	}

	shape := walkChain(n)
	var principalPred query.Expr
	if shape.whereNode != nil {
		principalPred, _, err = splitWhere(shape.whereNode.Where, n.Overall)
		if err != nil {
			return nil, err
		}
	}

	pc := &placeholderCounter{caps: caps}
	var b strings.Builder
	fmt.Fprintf(&b, "DELETE FROM %s", caps.QuoteIdentifier(overallSchema.TableName))

	var args []any
	if principalPred != nil {
		sql, predArgs, err := lowerExpr(principalPred, schemaFor, caps, pc, "")
		if err != nil {
			return nil, err
		}
		b.WriteString(" WHERE ")
		b.WriteString(sql)
		args = append(args, predArgs...)
	}

	return &Statement{SQL: b.String(), Args: args}, nil
}

// ResolveSetColumns applies setKeys/ignoreKeys filtering over a schema's
// column set for an update op: the primary key is always excluded.
// - If setKeys is non-empty, only those columns (that have a value in
//   values) are included.
// - Else every column present in values is included, minus ignoreKeys.
func ResolveSetColumns(schema *reflectschema.TableSchema, values map[string]any, setKeys, ignoreKeys []string) ([]string, []any) {
	ignore := map[string]bool{}
	for _, k := range ignoreKeys {
		ignore[k] = true
	}
	only := map[string]bool{}
	for _, k := range setKeys {
		only[k] = true
	}

	var cols []string
	var args []any
	for _, c := range schema.Columns {
		if schema.PrimaryKey >= 0 && schema.Columns[schema.PrimaryKey].GoField == c.GoField {
			continue
		}
		v, present := values[c.GoField]
		if !present {
			continue
		}
		if len(setKeys) > 0 && !only[c.GoField] {
			continue
		}
		if ignore[c.GoField] {
			continue
		}
		cols = append(cols, c.Name)
		args = append(args, v)
	}
	return cols, args
}
