package sqlgen

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/relorm/relorm/driver"
	"github.com/relorm/relorm/query"
	"github.com/relorm/relorm/reflectschema"
	"github.com/relorm/relorm/relerr"
)

// placeholderCounter renders sequential driver placeholders starting at 1
// ("$1" for PostgreSQL). Capabilities.Placeholder takes a 0-based index, the
// same convention as Stmt.Bind.
type placeholderCounter struct {
	caps driver.Capabilities
	next int
}

func (p *placeholderCounter) next1() string {
	s := p.caps.Placeholder(p.next)
	p.next++
	return s
}

// lowerExpr renders e into a SQL fragment. alias, if non-empty, qualifies
// every column reference (used for the principal statement's "t0" alias);
// auxiliary statements pass an empty alias since they are single-table.
func lowerExpr(e query.Expr, schemaFor func(reflect.Type) (*reflectschema.TableSchema, error), caps driver.Capabilities, pc *placeholderCounter, alias string) (string, []any, error) {
	switch v := e.(type) {
	case query.ColumnRef:
		s, err := schemaFor(v.Form)
		if err != nil {
			return "", nil, err
		}
		col, _, ok := s.ColumnByField(v.Field)
		if !ok {
			return "", nil, relerr.NewSqlGenError(fmt.Sprintf("unknown column %s.%s", v.Form.Name(), v.Field))
		}
		return qualify(alias, col.Name, caps), nil, nil

	case query.Literal:
		if v.IsNull {
			return "NULL", nil, nil
		}
		return pc.next1(), []any{v.Value}, nil

	case query.NullCheck:
		colSQL, _, err := lowerExpr(v.Column, schemaFor, caps, pc, alias)
		if err != nil {
			return "", nil, err
		}
		if v.Negate {
			return colSQL + " IS NOT NULL", nil, nil
		}
		return colSQL + " IS NULL", nil, nil

	case query.Cmp:
		// NULL comparisons lower to IS [NOT] NULL.
		if lit, ok := v.Right.(query.Literal); ok && lit.IsNull {
			col, ok := v.Left.(query.ColumnRef)
			if ok {
				negate := v.Op == query.OpNeq
				return lowerExpr(query.NullCheck{Column: col, Negate: negate}, schemaFor, caps, pc, alias)
			}
		}
		leftSQL, leftArgs, err := lowerExpr(v.Left, schemaFor, caps, pc, alias)
		if err != nil {
			return "", nil, err
		}
		rightSQL, rightArgs, err := lowerExpr(v.Right, schemaFor, caps, pc, alias)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("%s %s %s", leftSQL, v.Op, rightSQL), append(leftArgs, rightArgs...), nil

	case query.And:
		return lowerVariadic(v.Operands, "AND", schemaFor, caps, pc, alias)

	case query.Or:
		return lowerVariadic(v.Operands, "OR", schemaFor, caps, pc, alias)

	case query.Not:
		innerSQL, innerArgs, err := lowerExpr(v.Operand, schemaFor, caps, pc, alias)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("NOT (%s)", innerSQL), innerArgs, nil

	default:
		return "", nil, relerr.NewSqlGenError(fmt.Sprintf("unsupported expression node %T", e))
	}
}

func lowerVariadic(operands []query.Expr, joiner string, schemaFor func(reflect.Type) (*reflectschema.TableSchema, error), caps driver.Capabilities, pc *placeholderCounter, alias string) (string, []any, error) {
	var parts []string
	var args []any
	for _, op := range operands {
		sql, opArgs, err := lowerExpr(op, schemaFor, caps, pc, alias)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, "("+sql+")")
		args = append(args, opArgs...)
	}
	return strings.Join(parts, " "+joiner+" "), args, nil
}

func qualify(alias, column string, caps driver.Capabilities) string {
	if alias == "" {
		return caps.QuoteIdentifier(column)
	}
	return alias + "." + caps.QuoteIdentifier(column)
}

// flattenAnd recursively flattens nested top-level AND nodes into a flat
// list of conjuncts. A non-And root yields a single-element list.
func flattenAnd(e query.Expr) []query.Expr {
	and, ok := e.(query.And)
	if !ok {
		return []query.Expr{e}
	}
	var out []query.Expr
	for _, op := range and.Operands {
		out = append(out, flattenAnd(op)...)
	}
	return out
}

// splitWhere partitions a WHERE predicate into the conjunct that belongs to
// overall (principal statement) and one conjunct per joined form (auxiliary
// statement), per §4.3 rule 3: atoms referencing only OverallForm stay in
// the principal; atoms referencing a joined form move to that join's
// auxiliary, ANDed with the join's own key constraint.
func splitWhere(e query.Expr, overall reflect.Type) (principal query.Expr, perForm map[reflect.Type]query.Expr, err error) {
	perForm = map[reflect.Type]query.Expr{}
	if e == nil {
		return nil, perForm, nil
	}
	var principalParts []query.Expr
	for _, conjunct := range flattenAnd(e) {
		forms := query.ReferencedForms(conjunct)
		switch {
		case len(forms) == 0:
			principalParts = append(principalParts, conjunct)
		case len(forms) == 1 && forms[0] == overall:
			principalParts = append(principalParts, conjunct)
		case len(forms) == 1:
			f := forms[0]
			if existing, ok := perForm[f]; ok {
				perForm[f] = query.All(existing, conjunct)
			} else {
				perForm[f] = conjunct
			}
		default:
			return nil, nil, relerr.NewSqlGenError("predicate mixes multiple forms in a context that cannot be split across principal and auxiliary statements")
		}
	}
	return query.All(principalParts...), perForm, nil
}
