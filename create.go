package relorm

import (
	"context"
	"reflect"

	"github.com/relorm/relorm/reflectschema"
	"github.com/relorm/relorm/relerr"
	"github.com/relorm/relorm/sqlgen"
)

// Create issues the DDL for record type T and, unless policy.Shallow is
// set, recurses into every type reachable through a child-collection
// field, breaking cycles by tracking visited types.
func Create[T any](ctx context.Context, db *Database, policy sqlgen.CreatePolicy) error {
	var zero T
	return createRecursive(ctx, db, reflect.TypeOf(zero), policy, map[reflect.Type]bool{})
}

func createRecursive(ctx context.Context, db *Database, t reflect.Type, policy sqlgen.CreatePolicy, visited map[reflect.Type]bool) error {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if visited[t] {
		return nil
	}
	visited[t] = true

	schema, err := reflectschema.For(t, db.cacheKey)
	if err != nil {
		return err
	}

	var stmts []string
	if policy.ReconcileTable {
		live, err := db.conn.ListColumns(ctx, schema.TableName)
		if err != nil {
			return err
		}
		if len(live) == 0 {
			stmts = sqlgen.GenerateCreate(db.conn, schema, policy)
		} else {
			stmts = sqlgen.GenerateReconcile(db.conn, schema, live)
		}
	} else {
		stmts = sqlgen.GenerateCreate(db.conn, schema, policy)
	}

	for _, s := range stmts {
		logQuery(db, sqlgen.Statement{SQL: s})
		if _, err := db.conn.Exec(ctx, s, nil); err != nil {
			wrapped := relerr.NewSqlExecError(s, nil, err)
			db.log.Error("create: %v", wrapped)
			return wrapped
		}
	}

	if policy.Shallow {
		return nil
	}
	for _, cc := range schema.ChildCollections {
		if err := createRecursive(ctx, db, cc.ElementType, policy, visited); err != nil {
			return err
		}
	}
	return nil
}
