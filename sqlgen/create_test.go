package sqlgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relorm/relorm/driver"
	"github.com/relorm/relorm/reflectschema"
)

func TestGenerateCreateIncludesPrimaryKey(t *testing.T) {
	schema, err := reflectschema.For(typeOf[customer](), nil)
	require.NoError(t, err)

	stmts := GenerateCreate(fakeCaps{}, schema, CreatePolicy{})
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS `customers`")
	assert.Contains(t, stmts[0], "PRIMARY KEY (`id`)")
}

func TestGenerateCreateMarksNonNullableColumnsNotNull(t *testing.T) {
	schema, err := reflectschema.For(typeOf[customer](), nil)
	require.NoError(t, err)

	stmts := GenerateCreate(fakeCaps{}, schema, CreatePolicy{})
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "`Name` TEXT NOT NULL")
}

func TestGenerateCreateAutoIncrementPrimaryKeyUsesDialectDef(t *testing.T) {
	type widget struct {
		ID   int64 `db:"id,pk,autoincrement"`
		Name string
	}
	schema, err := reflectschema.For(typeOf[widget](), nil)
	require.NoError(t, err)

	stmts := GenerateCreate(fakeCaps{}, schema, CreatePolicy{})
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "`id` INTEGER PRIMARY KEY AUTOINCREMENT")
	assert.NotContains(t, stmts[0], "PRIMARY KEY (`id`)", "autoincrement PK is inline, not a trailing table constraint")
}

func TestGenerateCreateWithDropTable(t *testing.T) {
	schema, err := reflectschema.For(typeOf[customer](), nil)
	require.NoError(t, err)

	stmts := GenerateCreate(fakeCaps{}, schema, CreatePolicy{DropTable: true})
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "DROP TABLE IF EXISTS `customers`")
}

func TestGenerateReconcileAddsAndDropsColumns(t *testing.T) {
	schema, err := reflectschema.For(typeOf[customer](), nil)
	require.NoError(t, err)

	live := []driver.ColumnInfo{
		{Name: "id", DriverType: "INTEGER"},
		{Name: "legacy_col", DriverType: "TEXT"},
	}

	stmts := GenerateReconcile(fakeCaps{}, schema, live)

	var hasDrop, hasAdd bool
	dropIdx, addIdx := -1, -1
	for i, s := range stmts {
		if strings.Contains(s, "DROP COLUMN `legacy_col`") {
			hasDrop = true
			dropIdx = i
		}
		if strings.Contains(s, "ADD COLUMN `Name`") {
			hasAdd = true
			addIdx = i
		}
	}
	assert.True(t, hasDrop)
	assert.True(t, hasAdd)
	assert.Less(t, dropIdx, addIdx, "drops must be emitted before adds")
}

func TestGenerateReconcileNoChangesIsEmpty(t *testing.T) {
	schema, err := reflectschema.For(typeOf[customer](), nil)
	require.NoError(t, err)

	live := []driver.ColumnInfo{
		{Name: "id", DriverType: "INTEGER"},
		{Name: "Name", DriverType: "TEXT"},
	}
	stmts := GenerateReconcile(fakeCaps{}, schema, live)
	assert.Empty(t, stmts)
}
