package sqlgen

import (
	"fmt"
	"strings"

	"github.com/relorm/relorm/driver"
	"github.com/relorm/relorm/reflectschema"
)

// CreatePolicy controls how a CREATE TABLE sequence is generated.
type CreatePolicy struct {
	DropTable      bool
	ReconcileTable bool
	Shallow        bool
}

// GenerateCreate renders the DROP TABLE (if requested) and CREATE TABLE
// statements for schema. Reconciliation, which requires live column
// introspection, is handled separately by GenerateReconcile.
func GenerateCreate(caps driver.Capabilities, schema *reflectschema.TableSchema, policy CreatePolicy) []string {
	var stmts []string
	table := caps.QuoteIdentifier(schema.TableName)

	if policy.DropTable {
		stmts = append(stmts, fmt.Sprintf("DROP TABLE IF EXISTS %s", table))
	}

	pk, hasPK := schema.PrimaryKeyColumn()

	var defs []string
	for i := range schema.Columns {
		col := &schema.Columns[i]
		quoted := caps.QuoteIdentifier(col.Name)

		if hasPK && col == pk && col.AutoIncrement {
			defs = append(defs, fmt.Sprintf("%s %s", quoted, caps.AutoIncrementPrimaryKeyDef(col.Type.String())))
			continue
		}

		def := fmt.Sprintf("%s %s", quoted, caps.SqlTypeKeyword(col.Type.String(), col.Nullable))
		if !col.Nullable {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	if hasPK && !pk.AutoIncrement {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", caps.QuoteIdentifier(pk.Name)))
	}

	stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(defs, ", ")))
	return stmts
}

// GenerateReconcile diffs schema's columns against liveColumns and emits the
// minimal set of ALTER TABLE statements to align them: drops before adds,
// so a renamed column never collides with a same-named addition.
func GenerateReconcile(caps driver.Capabilities, schema *reflectschema.TableSchema, liveColumns []driver.ColumnInfo) []string {
	table := caps.QuoteIdentifier(schema.TableName)

	liveByName := map[string]bool{}
	for _, c := range liveColumns {
		liveByName[c.Name] = true
	}
	schemaByName := map[string]bool{}
	for _, c := range schema.Columns {
		schemaByName[c.Name] = true
	}

	var stmts []string
	for _, live := range liveColumns {
		if !schemaByName[live.Name] {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", table, caps.QuoteIdentifier(live.Name)))
		}
	}
	for _, col := range schema.Columns {
		if !liveByName[col.Name] {
			def := fmt.Sprintf("%s %s", caps.QuoteIdentifier(col.Name), caps.SqlTypeKeyword(col.Type.String(), col.Nullable))
			if !col.Nullable {
				def += " NOT NULL"
			}
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, def))
		}
	}
	return stmts
}
