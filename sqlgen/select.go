package sqlgen

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/relorm/relorm/driver"
	"github.com/relorm/relorm/query"
	"github.com/relorm/relorm/reflectschema"
)

// chainShape is the result of walking a node's ancestors once, grouping
// order/limit clauses by the chain context (overall-level, or the nearest
// preceding join) they were constructed under.
type chainShape struct {
	overallOrders []*query.Node // Kind == KindOrder
	overallLimit  *query.Node   // Kind == KindLimit
	whereNode     *query.Node   // Kind == KindWhere, at most one
	joins         []*query.Node // Kind == KindJoin, chain order
	joinOrders    map[*query.Node][]*query.Node
	joinLimit     map[*query.Node]*query.Node
}

func walkChain(n *query.Node) chainShape {
	shape := chainShape{
		joinOrders: map[*query.Node][]*query.Node{},
		joinLimit:  map[*query.Node]*query.Node{},
	}
	var currentJoin *query.Node
	for _, a := range n.Ancestors() {
		switch a.Kind {
		case query.KindJoin:
			currentJoin = a
			shape.joins = append(shape.joins, a)
		case query.KindOrder:
			if currentJoin == nil {
				shape.overallOrders = append(shape.overallOrders, a)
			} else {
				shape.joinOrders[currentJoin] = append(shape.joinOrders[currentJoin], a)
			}
		case query.KindLimit:
			if currentJoin == nil {
				shape.overallLimit = a
			} else {
				shape.joinLimit[currentJoin] = a
			}
		case query.KindWhere:
			shape.whereNode = a
		}
	}
	return shape
}

// GenerateSelect lowers a select-terminated chain into a SelectPlan.
func GenerateSelect(db any, caps driver.Capabilities, n *query.Node) (*SelectPlan, error) {
	overallSchema, err := reflectschema.For(n.Overall, db)
	if err != nil {
		return nil, err
	}
	schemaFor := func(t reflect.Type) (*reflectschema.TableSchema, error) {
		return reflectschema.For(t, db)
	}

	shape := walkChain(n)

	var principalPred query.Expr
	perForm := map[reflect.Type]query.Expr{}
	if shape.whereNode != nil {
		principalPred, perForm, err = splitWhere(shape.whereNode.Where, n.Overall)
		if err != nil {
			return nil, err
		}
	}

	pc := &placeholderCounter{caps: caps}
	var b strings.Builder

	b.WriteString("SELECT ")
	for i, col := range overallSchema.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(qualify("t0", col.Name, caps))
	}
	b.WriteString(" FROM ")
	b.WriteString(caps.QuoteIdentifier(overallSchema.TableName))
	b.WriteString(" AS t0")

	var args []any
	if principalPred != nil {
		sql, predArgs, err := lowerExpr(principalPred, schemaFor, caps, pc, "t0")
		if err != nil {
			return nil, err
		}
		b.WriteString(" WHERE ")
		b.WriteString(sql)
		args = append(args, predArgs...)
	}

	if len(shape.overallOrders) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range shape.overallOrders {
			if i > 0 {
				b.WriteString(", ")
			}
			col, _, _ := overallSchema.ColumnByField(o.Order.Field)
			b.WriteString(qualify("t0", col.Name, caps))
			if o.Order.Desc {
				b.WriteString(" DESC")
			} else {
				b.WriteString(" ASC")
			}
		}
	}

	if shape.overallLimit != nil {
		b.WriteString(" LIMIT ")
		b.WriteString(pc.next1())
		args = append(args, shape.overallLimit.Limit.Limit)
		if shape.overallLimit.Limit.Skip > 0 {
			b.WriteString(" OFFSET ")
			b.WriteString(pc.next1())
			args = append(args, shape.overallLimit.Limit.Skip)
		}
	}

	plan := &SelectPlan{
		Principal: Statement{SQL: b.String(), Args: args},
		Schema:    overallSchema,
	}

	for _, joinNode := range shape.joins {
		aux, err := buildAuxiliary(db, caps, joinNode, shape, perForm, schemaFor)
		if err != nil {
			return nil, err
		}
		plan.Auxiliaries = append(plan.Auxiliaries, aux)
	}

	return plan, nil
}

func buildAuxiliary(db any, caps driver.Capabilities, joinNode *query.Node, shape chainShape, perForm map[reflect.Type]query.Expr, schemaFor func(reflect.Type) (*reflectschema.TableSchema, error)) (*AuxiliaryPlan, error) {
	ji := joinNode.Join
	parentSchema, err := reflectschema.For(ji.ParentType, db)
	if err != nil {
		return nil, err
	}
	childSchema, err := reflectschema.For(ji.ChildType, db)
	if err != nil {
		return nil, err
	}
	parentCol, _, _ := parentSchema.ColumnByField(ji.ParentKey)
	childCol, _, _ := childSchema.ColumnByField(ji.ChildKey)

	childPred := perForm[ji.ChildType]

	orders := shape.joinOrders[joinNode]
	limitNode := shape.joinLimit[joinNode]

	renderTail := func(pc *placeholderCounter) (string, []any, error) {
		var tail strings.Builder
		var tailArgs []any
		if childPred != nil {
			sql, predArgs, err := lowerExpr(childPred, schemaFor, caps, pc, "")
			if err != nil {
				return "", nil, err
			}
			tail.WriteString(" AND (")
			tail.WriteString(sql)
			tail.WriteString(")")
			tailArgs = append(tailArgs, predArgs...)
		}
		if len(orders) > 0 {
			tail.WriteString(" ORDER BY ")
			for i, o := range orders {
				if i > 0 {
					tail.WriteString(", ")
				}
				col, _, _ := childSchema.ColumnByField(o.Order.Field)
				tail.WriteString(caps.QuoteIdentifier(col.Name))
				if o.Order.Desc {
					tail.WriteString(" DESC")
				} else {
					tail.WriteString(" ASC")
				}
			}
		}
		if limitNode != nil {
			tail.WriteString(" LIMIT ")
			tail.WriteString(pc.next1())
			tailArgs = append(tailArgs, limitNode.Limit.Limit)
			if limitNode.Limit.Skip > 0 {
				tail.WriteString(" OFFSET ")
				tail.WriteString(pc.next1())
				tailArgs = append(tailArgs, limitNode.Limit.Skip)
			}
		}
		return tail.String(), tailArgs, nil
	}

	childColsSQL := make([]string, len(childSchema.Columns))
	for i, c := range childSchema.Columns {
		childColsSQL[i] = caps.QuoteIdentifier(c.Name)
	}

	aux := &AuxiliaryPlan{
		Join:             joinNode,
		ParentSchema:     parentSchema,
		ChildSchema:      childSchema,
		ParentKeyColumn:  parentCol.Name,
		ParentKeyGoField: parentCol.GoField,
		ChildKeyColumn:   childCol.Name,
		ChildKeyGoField:  childCol.GoField,
		TargetField:      ji.TargetField,
		IsPivot:          ji.IsPivot(),
	}

	if !ji.IsPivot() {
		aux.BuildChildren = func(keys []any) Statement {
			pc := &placeholderCounter{caps: caps}
			var b strings.Builder
			b.WriteString("SELECT ")
			b.WriteString(strings.Join(childColsSQL, ", "))
			b.WriteString(" FROM ")
			b.WriteString(caps.QuoteIdentifier(childSchema.TableName))
			b.WriteString(" WHERE ")
			b.WriteString(caps.QuoteIdentifier(childCol.Name))
			b.WriteString(" IN (")
			args := make([]any, 0, len(keys))
			for i, k := range keys {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(pc.next1())
				args = append(args, k)
			}
			b.WriteString(")")
			tail, tailArgs, _ := renderTail(pc)
			b.WriteString(tail)
			args = append(args, tailArgs...)
			return Statement{SQL: b.String(), Args: args}
		}
		return aux, nil
	}

	pivotSchema, err := reflectschema.For(ji.PivotType, db)
	if err != nil {
		return nil, err
	}
	pivotParentCol, _, _ := pivotSchema.ColumnByField(ji.PivotParentKey)
	pivotChildCol, _, _ := pivotSchema.ColumnByField(ji.PivotChildKey)
	aux.PivotSchema = pivotSchema
	aux.PivotParentKeyColumn = pivotParentCol.Name
	aux.PivotChildKeyColumn = pivotChildCol.Name

	aux.BuildPivotResolve = func(parentKeys []any) Statement {
		pc := &placeholderCounter{caps: caps}
		var b strings.Builder
		fmt.Fprintf(&b, "SELECT %s, %s FROM %s WHERE %s IN (",
			caps.QuoteIdentifier(pivotParentCol.Name),
			caps.QuoteIdentifier(pivotChildCol.Name),
			caps.QuoteIdentifier(pivotSchema.TableName),
			caps.QuoteIdentifier(pivotParentCol.Name))
		args := make([]any, 0, len(parentKeys))
		for i, k := range parentKeys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(pc.next1())
			args = append(args, k)
		}
		b.WriteString(")")
		return Statement{SQL: b.String(), Args: args}
	}

	aux.BuildChildren = func(childKeys []any) Statement {
		pc := &placeholderCounter{caps: caps}
		var b strings.Builder
		b.WriteString("SELECT ")
		b.WriteString(strings.Join(childColsSQL, ", "))
		b.WriteString(" FROM ")
		b.WriteString(caps.QuoteIdentifier(childSchema.TableName))
		b.WriteString(" WHERE ")
		b.WriteString(caps.QuoteIdentifier(childCol.Name))
		b.WriteString(" IN (")
		args := make([]any, 0, len(childKeys))
		for i, k := range childKeys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(pc.next1())
			args = append(args, k)
		}
		b.WriteString(")")
		tail, tailArgs, _ := renderTail(pc)
		b.WriteString(tail)
		args = append(args, tailArgs...)
		return Statement{SQL: b.String(), Args: args}
	}

	return aux, nil
}

// GenerateCount lowers a count-terminated chain: the principal's FROM/WHERE
// with no ordering, limit, columns, or auxiliary statements.
func GenerateCount(db any, caps driver.Capabilities, n *query.Node) (*Statement, error) {
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
	b.WriteString("SELECT COUNT(*) FROM ")
	b.WriteString(caps.QuoteIdentifier(overallSchema.TableName))
	b.WriteString(" AS t0")

	var args []any
	if principalPred != nil {
		sql, predArgs, err := lowerExpr(principalPred, schemaFor, caps, pc, "t0")
		if err != nil {
			return nil, err
		}
		b.WriteString(" WHERE ")
		b.WriteString(sql)
		args = append(args, predArgs...)
	}
	return &Statement{SQL: b.String(), Args: args}, nil
}
