// Package sqlgen lowers the query algebra plus a TableSchema into
// parameterised SQL text: one principal statement for the terminal op, and
// zero or more auxiliary statements, one per active join, resolved after
// the principal result set is known.
package sqlgen

import (
	"github.com/relorm/relorm/query"
	"github.com/relorm/relorm/reflectschema"
)

// Statement is one generated, parameterised SQL statement.
type Statement struct {
	SQL  string
	Args []any
}

// AuxiliaryPlan describes the secondary statement for one active join. The
// IN-list of parent key values is only known once the principal result set
// has been decoded, so BuildChildren (and, for a pivot join,
// BuildPivotResolve) render the final SQL given that set.
type AuxiliaryPlan struct {
	Join *query.Node // Kind == query.KindJoin

	ParentSchema *reflectschema.TableSchema
	ChildSchema  *reflectschema.TableSchema

	// ParentKeyColumn is the column (on the parent/focus-before side) whose
	// values seed the IN-list.
	ParentKeyColumn   string
	ParentKeyGoField  string
	// ChildKeyColumn is the column used both to constrain the auxiliary
	// statement and to bucket decoded children back onto their parent.
	ChildKeyColumn  string
	ChildKeyGoField string

	TargetField string // the child-collection Go field on the parent struct

	IsPivot              bool
	PivotSchema          *reflectschema.TableSchema
	PivotParentKeyColumn string
	PivotChildKeyColumn  string

	// BuildChildren renders the child SELECT for the given (deduplicated,
	// insertion-ordered) set of key values: parent keys for a standard join,
	// resolved child keys for a pivot join. An empty keys slice must never
	// be passed: the materializer skips execution entirely in that case per
	// the empty-IN boundary rule.
	BuildChildren func(keys []any) Statement

	// BuildPivotResolve renders the pivot-table lookup SELECT for the given
	// set of parent key values. Only set when IsPivot is true.
	BuildPivotResolve func(parentKeys []any) Statement
}

// SelectPlan is the full lowering of a select-terminated chain.
type SelectPlan struct {
	Principal   Statement
	Auxiliaries []*AuxiliaryPlan
	Schema      *reflectschema.TableSchema
}
