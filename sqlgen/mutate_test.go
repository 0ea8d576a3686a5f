package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relorm/relorm/query"
	"github.com/relorm/relorm/reflectschema"
)

func TestGenerateInsertEmptyRowsIsNoop(t *testing.T) {
	schema, err := reflectschema.For(typeOf[customer](), nil)
	require.NoError(t, err)

	stmt, err := GenerateInsert(fakeCaps{}, schema, nil)
	require.NoError(t, err)
	assert.Empty(t, stmt.SQL)
}

func TestGenerateInsertMultiRow(t *testing.T) {
	schema, err := reflectschema.For(typeOf[customer](), nil)
	require.NoError(t, err)

	stmt, err := GenerateInsert(fakeCaps{}, schema, [][]any{
		{int64(1), "ada"},
		{int64(2), "grace"},
	})
	require.NoError(t, err)

	assert.Contains(t, stmt.SQL, "INSERT INTO `customers`")
	assert.Contains(t, stmt.SQL, "VALUES (?, ?), (?, ?)")
	assert.Equal(t, []any{int64(1), "ada", int64(2), "grace"}, stmt.Args)
}

func TestGenerateInsertRejectsMismatchedRowWidth(t *testing.T) {
	schema, err := reflectschema.For(typeOf[customer](), nil)
	require.NoError(t, err)

	_, err = GenerateInsert(fakeCaps{}, schema, [][]any{{int64(1)}})
	assert.Error(t, err)
}

func TestGenerateUpdateWithWhere(t *testing.T) {
	root := query.NewTable(typeOf[customer]())
	whereNode, err := root.WhereExpr(query.Eq[customer]("ID", int64(1)))
	require.NoError(t, err)

	stmt, err := GenerateUpdate(nil, fakeCaps{}, whereNode, []string{"Name"}, []any{"ada lovelace"})
	require.NoError(t, err)

	assert.Contains(t, stmt.SQL, "UPDATE `customers` SET")
	assert.Contains(t, stmt.SQL, "WHERE")
	assert.Equal(t, []any{"ada lovelace", int64(1)}, stmt.Args)
}

func TestGenerateDeleteWithWhere(t *testing.T) {
	root := query.NewTable(typeOf[customer]())
	whereNode, err := root.WhereExpr(query.Eq[customer]("ID", int64(9)))
	require.NoError(t, err)

	stmt, err := GenerateDelete(nil, fakeCaps{}, whereNode)
	require.NoError(t, err)

	assert.Contains(t, stmt.SQL, "DELETE FROM `customers`")
	assert.Contains(t, stmt.SQL, "WHERE")
	assert.Equal(t, []any{int64(9)}, stmt.Args)
}

func TestResolveSetColumnsExcludesPrimaryKey(t *testing.T) {
	schema, err := reflectschema.For(typeOf[customer](), nil)
	require.NoError(t, err)

	cols, args := ResolveSetColumns(schema, map[string]any{"ID": int64(1), "Name": "ada"}, nil, nil)
	assert.Equal(t, []string{"Name"}, cols)
	assert.Equal(t, []any{"ada"}, args)
}

func TestResolveSetColumnsHonorsSetKeys(t *testing.T) {
	schema, err := reflectschema.For(typeOf[customer](), nil)
	require.NoError(t, err)

	cols, _ := ResolveSetColumns(schema, map[string]any{"Name": "ada"}, []string{"Name"}, nil)
	assert.Equal(t, []string{"Name"}, cols)

	cols, _ = ResolveSetColumns(schema, map[string]any{"Name": "ada"}, []string{"SomethingElse"}, nil)
	assert.Empty(t, cols, "a setKeys entry absent from values must exclude everything else too")
}

func TestResolveSetColumnsHonorsIgnoreKeys(t *testing.T) {
	schema, err := reflectschema.For(typeOf[customer](), nil)
	require.NoError(t, err)

	cols, _ := ResolveSetColumns(schema, map[string]any{"Name": "ada"}, nil, []string{"Name"})
	assert.Empty(t, cols)
}
