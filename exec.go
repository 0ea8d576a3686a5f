package relorm

import (
	"context"
	"fmt"
	"reflect"

	"github.com/relorm/relorm/materialize"
	"github.com/relorm/relorm/query"
	"github.com/relorm/relorm/reflectschema"
	"github.com/relorm/relorm/relerr"
	"github.com/relorm/relorm/sqlgen"
)

func illegalChainAfterJoin(op string) error {
	return relerr.NewQueryError(op, fmt.Sprintf("%s: %s", relerr.ReasonIllegalChain, "a joined chain can only select or count"))
}

func execSelect[T any](ctx context.Context, db *Database, node *query.Node) ([]T, error) {
	plan, err := sqlgen.GenerateSelect(db.cacheKey, db.conn, node)
	if err != nil {
		db.log.Error("select: %v", err)
		return nil, err
	}
	logQuery(db, plan.Principal)
	// Auxiliary statements are only rendered once the parent keys are known,
	// so each builder is wrapped to log the statement it renders before
	// materialize runs it.
	for _, aux := range plan.Auxiliaries {
		build := aux.BuildChildren
		aux.BuildChildren = func(keys []any) sqlgen.Statement {
			s := build(keys)
			logQuery(db, s)
			return s
		}
		if resolve := aux.BuildPivotResolve; resolve != nil {
			aux.BuildPivotResolve = func(keys []any) sqlgen.Statement {
				s := resolve(keys)
				logQuery(db, s)
				return s
			}
		}
	}
	rows, err := materialize.Select[T](ctx, db.conn, plan)
	if err != nil {
		db.log.Error("select: %v", err)
		return nil, err
	}
	return rows, nil
}

func execCount(ctx context.Context, db *Database, node *query.Node) (int64, error) {
	stmt, err := sqlgen.GenerateCount(db.cacheKey, db.conn, node)
	if err != nil {
		db.log.Error("count: %v", err)
		return 0, err
	}
	logQuery(db, *stmt)
	n, err := materialize.Count(ctx, db.conn, stmt)
	if err != nil {
		db.log.Error("count: %v", err)
		return 0, err
	}
	return n, nil
}

func execInsert[T any](ctx context.Context, db *Database, node *query.Node, rows []T) error {
	schema, err := reflectschema.For(node.Overall, db.cacheKey)
	if err != nil {
		return err
	}
	encoded := make([][]any, len(rows))
	for i, r := range rows {
		row, err := encodeRow(schema, reflect.ValueOf(r))
		if err != nil {
			return err
		}
		encoded[i] = row
	}

	stmt, err := sqlgen.GenerateInsert(db.conn, schema, encoded)
	if err != nil {
		return err
	}
	if stmt.SQL == "" {
		return nil
	}
	logQuery(db, *stmt)
	if _, err := db.conn.Exec(ctx, stmt.SQL, stmt.Args); err != nil {
		wrapped := relerr.NewSqlExecError(stmt.SQL, stmt.Args, err)
		db.log.Error("insert: %v", wrapped)
		return wrapped
	}
	return nil
}

func execUpdate[T any](ctx context.Context, db *Database, node *query.Node, values map[string]any, setKeys, ignoreKeys []string) (int64, error) {
	schema, err := reflectschema.For(node.Overall, db.cacheKey)
	if err != nil {
		return 0, err
	}
	cols, args := sqlgen.ResolveSetColumns(schema, values, setKeys, ignoreKeys)
	if len(cols) == 0 {
		return 0, nil
	}
	stmt, err := sqlgen.GenerateUpdate(db.cacheKey, db.conn, node, cols, args)
	if err != nil {
		return 0, err
	}
	logQuery(db, *stmt)
	res, err := db.conn.Exec(ctx, stmt.SQL, stmt.Args)
	if err != nil {
		wrapped := relerr.NewSqlExecError(stmt.SQL, stmt.Args, err)
		db.log.Error("update: %v", wrapped)
		return 0, wrapped
	}
	return res.RowsAffected, nil
}

func execDelete[T any](ctx context.Context, db *Database, node *query.Node) (int64, error) {
	stmt, err := sqlgen.GenerateDelete(db.cacheKey, db.conn, node)
	if err != nil {
		return 0, err
	}
	logQuery(db, *stmt)
	res, err := db.conn.Exec(ctx, stmt.SQL, stmt.Args)
	if err != nil {
		wrapped := relerr.NewSqlExecError(stmt.SQL, stmt.Args, err)
		db.log.Error("delete: %v", wrapped)
		return 0, wrapped
	}
	return res.RowsAffected, nil
}

func logQuery(db *Database, stmt sqlgen.Statement) {
	db.log.Query(stmt.SQL, stmt.Args, 0)
}
