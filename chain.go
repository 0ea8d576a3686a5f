package relorm

import (
	"context"
	"reflect"

	"github.com/relorm/relorm/query"
)

// Chained is implemented by every chain-state wrapper that a join may
// legally follow (table, join, order, limit — every row of the
// legal-follows matrix with a ✓ in the "join" column). Join/PivotJoin are
// package-level functions rather than methods because a method cannot
// introduce the child type's own type parameter beyond its receiver's.
type Chained[Overall any] interface {
	chainInfo() (*Database, *query.Node)
}

// TableQuery is the root of a chain for record type Overall.
type TableQuery[Overall any] struct {
	db   *Database
	node *query.Node
}

// Table begins a query chain over record type T.
func Table[T any](db *Database) TableQuery[T] {
	var zero T
	return TableQuery[T]{db: db, node: query.NewTable(reflect.TypeOf(zero))}
}

func (q TableQuery[Overall]) chainInfo() (*Database, *query.Node) { return q.db, q.node }

func (q TableQuery[Overall]) OrderBy(field string, desc bool) (OrderQuery[Overall], error) {
	n, err := q.node.OrderBy(q.db.cacheKey, field, desc)
	if err != nil {
		return OrderQuery[Overall]{}, err
	}
	return OrderQuery[Overall]{db: q.db, node: n}, nil
}

func (q TableQuery[Overall]) LimitSkip(limit, skip int) (LimitQuery[Overall], error) {
	n, err := q.node.LimitSkip(limit, skip)
	if err != nil {
		return LimitQuery[Overall]{}, err
	}
	return LimitQuery[Overall]{db: q.db, node: n}, nil
}

func (q TableQuery[Overall]) WhereExpr(e query.Expr) (WhereQuery[Overall], error) {
	n, err := q.node.WhereExpr(e)
	if err != nil {
		return WhereQuery[Overall]{}, err
	}
	return WhereQuery[Overall]{db: q.db, node: n}, nil
}

func (q TableQuery[Overall]) Select(ctx context.Context) ([]Overall, error) {
	return execSelect[Overall](ctx, q.db, q.node)
}

func (q TableQuery[Overall]) Count(ctx context.Context) (int64, error) {
	return execCount(ctx, q.db, q.node)
}

// Insert writes rows directly. Per the legal-follows matrix, insert is
// only reachable from a table node.
func (q TableQuery[Overall]) Insert(ctx context.Context, rows ...Overall) error {
	return execInsert(ctx, q.db, q.node, rows)
}

// Update applies values (keyed by Go field name) to every row matching
// the chain's where clause, subject to setKeys/ignoreKeys filtering. No
// join or where has been attached yet, so this updates the whole table —
// call WhereExpr first to scope it.
func (q TableQuery[Overall]) Update(ctx context.Context, values map[string]any, setKeys, ignoreKeys []string) (int64, error) {
	return execUpdate[Overall](ctx, q.db, q.node, values, setKeys, ignoreKeys)
}

// Delete removes every row of the table. Call WhereExpr first to scope it.
func (q TableQuery[Overall]) Delete(ctx context.Context) (int64, error) {
	return execDelete[Overall](ctx, q.db, q.node)
}

// JoinQuery is the chain state immediately after a join transition.
type JoinQuery[Overall any] struct {
	db   *Database
	node *query.Node
}

func (q JoinQuery[Overall]) chainInfo() (*Database, *query.Node) { return q.db, q.node }

func (q JoinQuery[Overall]) OrderBy(field string, desc bool) (OrderQuery[Overall], error) {
	n, err := q.node.OrderBy(q.db.cacheKey, field, desc)
	if err != nil {
		return OrderQuery[Overall]{}, err
	}
	return OrderQuery[Overall]{db: q.db, node: n}, nil
}

func (q JoinQuery[Overall]) LimitSkip(limit, skip int) (LimitQuery[Overall], error) {
	n, err := q.node.LimitSkip(limit, skip)
	if err != nil {
		return LimitQuery[Overall]{}, err
	}
	return LimitQuery[Overall]{db: q.db, node: n}, nil
}

func (q JoinQuery[Overall]) WhereExpr(e query.Expr) (WhereQuery[Overall], error) {
	n, err := q.node.WhereExpr(e)
	if err != nil {
		return WhereQuery[Overall]{}, err
	}
	return WhereQuery[Overall]{db: q.db, node: n}, nil
}

func (q JoinQuery[Overall]) Select(ctx context.Context) ([]Overall, error) {
	return execSelect[Overall](ctx, q.db, q.node)
}

func (q JoinQuery[Overall]) Count(ctx context.Context) (int64, error) {
	return execCount(ctx, q.db, q.node)
}

// OrderQuery is the chain state immediately after an order transition.
type OrderQuery[Overall any] struct {
	db   *Database
	node *query.Node
}

func (q OrderQuery[Overall]) chainInfo() (*Database, *query.Node) { return q.db, q.node }

func (q OrderQuery[Overall]) OrderBy(field string, desc bool) (OrderQuery[Overall], error) {
	n, err := q.node.OrderBy(q.db.cacheKey, field, desc)
	if err != nil {
		return OrderQuery[Overall]{}, err
	}
	return OrderQuery[Overall]{db: q.db, node: n}, nil
}

func (q OrderQuery[Overall]) LimitSkip(limit, skip int) (LimitQuery[Overall], error) {
	n, err := q.node.LimitSkip(limit, skip)
	if err != nil {
		return LimitQuery[Overall]{}, err
	}
	return LimitQuery[Overall]{db: q.db, node: n}, nil
}

func (q OrderQuery[Overall]) WhereExpr(e query.Expr) (WhereQuery[Overall], error) {
	n, err := q.node.WhereExpr(e)
	if err != nil {
		return WhereQuery[Overall]{}, err
	}
	return WhereQuery[Overall]{db: q.db, node: n}, nil
}

func (q OrderQuery[Overall]) Select(ctx context.Context) ([]Overall, error) {
	return execSelect[Overall](ctx, q.db, q.node)
}

func (q OrderQuery[Overall]) Count(ctx context.Context) (int64, error) {
	return execCount(ctx, q.db, q.node)
}

// LimitQuery is the chain state immediately after a limit transition. Per
// the legal-follows matrix it may still be joined further, but may not be
// ordered or limited again directly.
type LimitQuery[Overall any] struct {
	db   *Database
	node *query.Node
}

func (q LimitQuery[Overall]) chainInfo() (*Database, *query.Node) { return q.db, q.node }

func (q LimitQuery[Overall]) WhereExpr(e query.Expr) (WhereQuery[Overall], error) {
	n, err := q.node.WhereExpr(e)
	if err != nil {
		return WhereQuery[Overall]{}, err
	}
	return WhereQuery[Overall]{db: q.db, node: n}, nil
}

func (q LimitQuery[Overall]) Select(ctx context.Context) ([]Overall, error) {
	return execSelect[Overall](ctx, q.db, q.node)
}

func (q LimitQuery[Overall]) Count(ctx context.Context) (int64, error) {
	return execCount(ctx, q.db, q.node)
}

// WhereQuery is the chain state immediately after a where transition: the
// last legal state before a terminal op, and the only one besides table
// itself from which update/delete are reachable (and then only when the
// chain carries no join, per the matrix's "table-only" cells).
type WhereQuery[Overall any] struct {
	db   *Database
	node *query.Node
}

func (q WhereQuery[Overall]) Select(ctx context.Context) ([]Overall, error) {
	return execSelect[Overall](ctx, q.db, q.node)
}

func (q WhereQuery[Overall]) Count(ctx context.Context) (int64, error) {
	return execCount(ctx, q.db, q.node)
}

func (q WhereQuery[Overall]) Update(ctx context.Context, values map[string]any, setKeys, ignoreKeys []string) (int64, error) {
	if q.node.HasJoin() {
		return 0, illegalChainAfterJoin("update")
	}
	return execUpdate[Overall](ctx, q.db, q.node, values, setKeys, ignoreKeys)
}

func (q WhereQuery[Overall]) Delete(ctx context.Context) (int64, error) {
	if q.node.HasJoin() {
		return 0, illegalChainAfterJoin("delete")
	}
	return execDelete[Overall](ctx, q.db, q.node)
}

// Join appends a standard join transition to any chain state that allows
// one. C is the joined record type; Overall is carried through unchanged.
func Join[Overall, C any](cq Chained[Overall], targetField string, parentKey, childKey string) (JoinQuery[Overall], error) {
	db, node := cq.chainInfo()
	var zero C
	n, err := node.Join(db.cacheKey, targetField, reflect.TypeOf(zero), parentKey, childKey)
	if err != nil {
		return JoinQuery[Overall]{}, err
	}
	return JoinQuery[Overall]{db: db, node: n}, nil
}

// PivotJoin appends a many-to-many join transition reached through an
// intermediary Pivot type.
func PivotJoin[Overall, Pivot, C any](cq Chained[Overall], targetField string, parentKey, pivotParentKey, childKey, pivotChildKey string) (JoinQuery[Overall], error) {
	db, node := cq.chainInfo()
	var zeroPivot Pivot
	var zeroChild C
	n, err := node.PivotJoin(db.cacheKey, targetField, reflect.TypeOf(zeroPivot), reflect.TypeOf(zeroChild), parentKey, pivotParentKey, childKey, pivotChildKey)
	if err != nil {
		return JoinQuery[Overall]{}, err
	}
	return JoinQuery[Overall]{db: db, node: n}, nil
}
