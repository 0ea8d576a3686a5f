// Package query implements the immutable query algebra: a tree of pure
// value nodes built by a finite set of transitions (table, join, order,
// limit, where). Node methods validate field names and joined forms but not
// the order of transitions; the chain-state types of the root relorm package
// restrict callers to table -> join* -> order? -> limit? -> where? ->
// terminal. Nodes are never mutated after construction; every transition
// returns a new node referencing its parent.
package query

import (
	"fmt"
	"reflect"

	"github.com/relorm/relorm/reflectschema"
	"github.com/relorm/relorm/relerr"
)

// Kind identifies what a Node represents.
type Kind int

const (
	KindTable Kind = iota
	KindJoin
	KindOrder
	KindLimit
	KindWhere
)

// JoinInfo describes one join transition. For a standard join, PivotType is
// nil. For a pivot join, the child set is reached through PivotType via two
// equi-joins.
type JoinInfo struct {
	TargetField string
	ParentType  reflect.Type // the focus type the join was attached to
	ChildType   reflect.Type
	ParentKey   string
	ChildKey    string

	PivotType      reflect.Type
	PivotParentKey string
	PivotChildKey  string
}

func (j *JoinInfo) IsPivot() bool { return j.PivotType != nil }

// OrderInfo is one ORDER BY clause attached to the node's focus form.
type OrderInfo struct {
	Field string
	Desc  bool
}

// LimitInfo is a LIMIT/OFFSET pair attached to the node's focus form.
type LimitInfo struct {
	Limit int
	Skip  int
}

// Node is one immutable point in the query algebra tree.
type Node struct {
	Kind    Kind
	Parent  *Node
	Overall reflect.Type // constant across the whole chain: the root table's record type
	Focus   reflect.Type // the record type the most recent join (or root) targets

	Join  *JoinInfo  // set iff Kind == KindJoin
	Order *OrderInfo // set iff Kind == KindOrder
	Limit *LimitInfo // set iff Kind == KindLimit
	Where Expr       // set iff Kind == KindWhere
}

// NewTable creates the root of a query chain for the given record type.
func NewTable(overall reflect.Type) *Node {
	if overall.Kind() == reflect.Ptr {
		overall = overall.Elem()
	}
	return &Node{Kind: KindTable, Overall: overall, Focus: overall}
}

// Ancestors returns the chain from the root table node to n, inclusive, in
// construction order.
func (n *Node) Ancestors() []*Node {
	var chain []*Node
	for cur := n; cur != nil; cur = cur.Parent {
		chain = append(chain, cur)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Joins returns every join node in the chain up to and including n, in
// chain order.
func (n *Node) Joins() []*Node {
	var joins []*Node
	for _, a := range n.Ancestors() {
		if a.Kind == KindJoin {
			joins = append(joins, a)
		}
	}
	return joins
}

// HasJoin reports whether any join appears in the chain up to n.
func (n *Node) HasJoin() bool {
	return len(n.Joins()) > 0
}

// FocusForms returns the set of record types reachable from the chain: the
// OverallForm and the focus type introduced by each join.
func (n *Node) FocusForms() []reflect.Type {
	forms := []reflect.Type{n.Overall}
	for _, j := range n.Joins() {
		forms = append(forms, j.Focus)
	}
	return forms
}

func (n *Node) hasForm(t reflect.Type) bool {
	for _, f := range n.FocusForms() {
		if f == t {
			return true
		}
	}
	return false
}

// Join appends a standard join transition: targetField must name a child
// collection field of the current focus form; parentKey must be a column of
// the focus form; childKey must be a column of childType.
func (n *Node) Join(db any, targetField string, childType reflect.Type, parentKey, childKey string) (*Node, error) {
	if childType.Kind() == reflect.Ptr {
		childType = childType.Elem()
	}

	focusSchema, err := reflectschema.For(n.Focus, db)
	if err != nil {
		return nil, err
	}
	coll, ok := focusSchema.ChildByField(targetField)
	if !ok {
		return nil, relerr.NewQueryError("join", fmt.Sprintf("%s.%s: %s", n.Focus.Name(), targetField, relerr.ReasonNotChild))
	}
	if coll.ElementType != childType {
		return nil, relerr.NewQueryError("join", fmt.Sprintf("%s.%s: element type is %s, not %s", n.Focus.Name(), targetField, coll.ElementType, childType))
	}
	if _, _, ok := focusSchema.ColumnByField(parentKey); !ok {
		return nil, relerr.NewQueryError("join", fmt.Sprintf("%s.%s: %s", n.Focus.Name(), parentKey, relerr.ReasonUnknownField))
	}
	childSchema, err := reflectschema.For(childType, db)
	if err != nil {
		return nil, err
	}
	if _, _, ok := childSchema.ColumnByField(childKey); !ok {
		return nil, relerr.NewQueryError("join", fmt.Sprintf("%s.%s: %s", childType.Name(), childKey, relerr.ReasonUnknownField))
	}

	for _, existing := range n.Joins() {
		if existing.Join.ParentType == n.Focus && existing.Join.TargetField == targetField {
			return nil, relerr.NewQueryError("join", fmt.Sprintf("%s.%s: %s", n.Focus.Name(), targetField, relerr.ReasonDuplicateJoin))
		}
	}

	return &Node{
		Kind:    KindJoin,
		Parent:  n,
		Overall: n.Overall,
		Focus:   childType,
		Join: &JoinInfo{
			TargetField: targetField,
			ParentType:  n.Focus,
			ChildType:   childType,
			ParentKey:   parentKey,
			ChildKey:    childKey,
		},
	}, nil
}

// PivotJoin appends a pivot (many-to-many) join transition.
func (n *Node) PivotJoin(db any, targetField string, pivotType, childType reflect.Type, parentKey, pivotParentKey, childKey, pivotChildKey string) (*Node, error) {
	if pivotType.Kind() == reflect.Ptr {
		pivotType = pivotType.Elem()
	}
	if childType.Kind() == reflect.Ptr {
		childType = childType.Elem()
	}

	focusSchema, err := reflectschema.For(n.Focus, db)
	if err != nil {
		return nil, err
	}
	coll, ok := focusSchema.ChildByField(targetField)
	if !ok {
		return nil, relerr.NewQueryError("pivotJoin", fmt.Sprintf("%s.%s: %s", n.Focus.Name(), targetField, relerr.ReasonNotChild))
	}
	if coll.ElementType != childType {
		return nil, relerr.NewQueryError("pivotJoin", fmt.Sprintf("%s.%s: element type is %s, not %s", n.Focus.Name(), targetField, coll.ElementType, childType))
	}
	if _, _, ok := focusSchema.ColumnByField(parentKey); !ok {
		return nil, relerr.NewQueryError("pivotJoin", fmt.Sprintf("%s.%s: %s", n.Focus.Name(), parentKey, relerr.ReasonUnknownField))
	}
	pivotSchema, err := reflectschema.For(pivotType, db)
	if err != nil {
		return nil, err
	}
	if _, _, ok := pivotSchema.ColumnByField(pivotParentKey); !ok {
		return nil, relerr.NewQueryError("pivotJoin", fmt.Sprintf("%s.%s: %s", pivotType.Name(), pivotParentKey, relerr.ReasonUnknownField))
	}
	if _, _, ok := pivotSchema.ColumnByField(pivotChildKey); !ok {
		return nil, relerr.NewQueryError("pivotJoin", fmt.Sprintf("%s.%s: %s", pivotType.Name(), pivotChildKey, relerr.ReasonUnknownField))
	}
	childSchema, err := reflectschema.For(childType, db)
	if err != nil {
		return nil, err
	}
	if _, _, ok := childSchema.ColumnByField(childKey); !ok {
		return nil, relerr.NewQueryError("pivotJoin", fmt.Sprintf("%s.%s: %s", childType.Name(), childKey, relerr.ReasonUnknownField))
	}

	for _, existing := range n.Joins() {
		if existing.Join.ParentType == n.Focus && existing.Join.TargetField == targetField {
			return nil, relerr.NewQueryError("pivotJoin", fmt.Sprintf("%s.%s: %s", n.Focus.Name(), targetField, relerr.ReasonDuplicateJoin))
		}
	}

	return &Node{
		Kind:    KindJoin,
		Parent:  n,
		Overall: n.Overall,
		Focus:   childType,
		Join: &JoinInfo{
			TargetField:    targetField,
			ParentType:     n.Focus,
			ChildType:      childType,
			ParentKey:      parentKey,
			ChildKey:       childKey,
			PivotType:      pivotType,
			PivotParentKey: pivotParentKey,
			PivotChildKey:  pivotChildKey,
		},
	}, nil
}

// OrderBy appends an ordering of the current focus form.
func (n *Node) OrderBy(db any, field string, desc bool) (*Node, error) {
	focusSchema, err := reflectschema.For(n.Focus, db)
	if err != nil {
		return nil, err
	}
	if _, _, ok := focusSchema.ColumnByField(field); !ok {
		return nil, relerr.NewQueryError("order", fmt.Sprintf("%s.%s: %s", n.Focus.Name(), field, relerr.ReasonUnknownField))
	}
	return &Node{
		Kind: KindOrder, Parent: n, Overall: n.Overall, Focus: n.Focus,
		Order: &OrderInfo{Field: field, Desc: desc},
	}, nil
}

// LimitSkip appends a limit/offset pair to the current focus form.
func (n *Node) LimitSkip(limit, skip int) (*Node, error) {
	if limit < 0 || skip < 0 {
		return nil, relerr.NewQueryError("limit", "limit and skip must be non-negative")
	}
	return &Node{
		Kind: KindLimit, Parent: n, Overall: n.Overall, Focus: n.Focus,
		Limit: &LimitInfo{Limit: limit, Skip: skip},
	}, nil
}

// WhereExpr appends a predicate node. Every form referenced by expr must
// already be present in the chain.
func (n *Node) WhereExpr(expr Expr) (*Node, error) {
	for _, form := range ReferencedForms(expr) {
		if !n.hasForm(form) {
			return nil, relerr.NewSqlGenError(fmt.Sprintf("where references form %s not present in the chain", form.Name()))
		}
	}
	return &Node{
		Kind: KindWhere, Parent: n, Overall: n.Overall, Focus: n.Focus,
		Where: expr,
	}, nil
}
