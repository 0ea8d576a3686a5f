package query

import "reflect"

// Expr is a node of the predicate expression tree: literal, column
// reference, unary NOT, binary logical AND/OR, or binary comparison.
// Evaluation is deferred entirely to SQL generation.
type Expr interface {
	isExpr()
}

// ColumnRef names a column field of a specific record type participating
// in the chain.
type ColumnRef struct {
	Form  reflect.Type
	Field string
}

func (ColumnRef) isExpr() {}

// Column builds a ColumnRef for record type T.
func Column[T any](field string) ColumnRef {
	var zero T
	return ColumnRef{Form: reflect.TypeOf(zero), Field: field}
}

// Literal is a constant value, including SQL NULL.
type Literal struct {
	Value  any
	IsNull bool
}

func (Literal) isExpr() {}

// Lit wraps a Go value as a Literal; a nil value becomes SQL NULL.
func Lit(v any) Literal {
	if v == nil {
		return Literal{IsNull: true}
	}
	return Literal{Value: v}
}

// CmpOp is a binary comparison operator.
type CmpOp string

const (
	OpEq  CmpOp = "="
	OpNeq CmpOp = "<>"
	OpLt  CmpOp = "<"
	OpLte CmpOp = "<="
	OpGt  CmpOp = ">"
	OpGte CmpOp = ">="
)

// Cmp is a binary comparison between two expressions (typically a
// ColumnRef and a Literal).
type Cmp struct {
	Left  Expr
	Op    CmpOp
	Right Expr
}

func (Cmp) isExpr() {}

// NullCheck is IS NULL / IS NOT NULL over a column.
type NullCheck struct {
	Column ColumnRef
	Negate bool
}

func (NullCheck) isExpr() {}

// And is a variadic logical conjunction.
type And struct{ Operands []Expr }

func (And) isExpr() {}

// Or is a variadic logical disjunction.
type Or struct{ Operands []Expr }

func (Or) isExpr() {}

// Not negates an expression.
type Not struct{ Operand Expr }

func (Not) isExpr() {}

// Eq builds "T.field == v".
func Eq[T any](field string, v any) Expr { return Cmp{Left: Column[T](field), Op: OpEq, Right: Lit(v)} }

// Neq builds "T.field != v".
func Neq[T any](field string, v any) Expr {
	return Cmp{Left: Column[T](field), Op: OpNeq, Right: Lit(v)}
}

// Lt builds "T.field < v".
func Lt[T any](field string, v any) Expr { return Cmp{Left: Column[T](field), Op: OpLt, Right: Lit(v)} }

// Lte builds "T.field <= v".
func Lte[T any](field string, v any) Expr {
	return Cmp{Left: Column[T](field), Op: OpLte, Right: Lit(v)}
}

// Gt builds "T.field > v".
func Gt[T any](field string, v any) Expr { return Cmp{Left: Column[T](field), Op: OpGt, Right: Lit(v)} }

// Gte builds "T.field >= v".
func Gte[T any](field string, v any) Expr {
	return Cmp{Left: Column[T](field), Op: OpGte, Right: Lit(v)}
}

// IsNull builds "T.field IS NULL".
func IsNull[T any](field string) Expr { return NullCheck{Column: Column[T](field)} }

// IsNotNull builds "T.field IS NOT NULL".
func IsNotNull[T any](field string) Expr { return NullCheck{Column: Column[T](field), Negate: true} }

// All combines expressions with AND. All() == nil; All(x) == x.
func All(exprs ...Expr) Expr {
	switch len(exprs) {
	case 0:
		return nil
	case 1:
		return exprs[0]
	default:
		return And{Operands: exprs}
	}
}

// Any combines expressions with OR. Any() == nil; Any(x) == x.
func Any(exprs ...Expr) Expr {
	switch len(exprs) {
	case 0:
		return nil
	case 1:
		return exprs[0]
	default:
		return Or{Operands: exprs}
	}
}

// Negate wraps an expression in NOT.
func Negate(e Expr) Expr { return Not{Operand: e} }

// ReferencedForms walks the expression tree and returns the set of record
// types referenced by column references within it.
func ReferencedForms(e Expr) []reflect.Type {
	seen := map[reflect.Type]bool{}
	var out []reflect.Type
	var walk func(Expr)
	walk = func(e Expr) {
		switch v := e.(type) {
		case ColumnRef:
			if !seen[v.Form] {
				seen[v.Form] = true
				out = append(out, v.Form)
			}
		case NullCheck:
			walk(v.Column)
		case Cmp:
			walk(v.Left)
			walk(v.Right)
		case And:
			for _, op := range v.Operands {
				walk(op)
			}
		case Or:
			for _, op := range v.Operands {
				walk(op)
			}
		case Not:
			walk(v.Operand)
		}
	}
	walk(e)
	return out
}
