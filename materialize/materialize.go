package materialize

import (
	"context"
	"reflect"

	"github.com/relorm/relorm/driver"
	"github.com/relorm/relorm/query"
	"github.com/relorm/relorm/relerr"
	"github.com/relorm/relorm/sqlgen"
)

// Select runs plan's principal statement, then every auxiliary statement in
// chain order, stitching children onto their parents' target fields as it
// goes. A join whose parent is itself a join's children operates on the
// slice that join just produced, so nested joins fall out of chain order
// alone.
func Select[T any](ctx context.Context, conn driver.Conn, plan *sqlgen.SelectPlan) ([]T, error) {
	var zero T
	recordType := reflect.TypeOf(zero)

	principal, err := runAndDecode(ctx, conn, plan.Principal, plan.Schema, recordType)
	if err != nil {
		return nil, err
	}

	computed := map[*query.Node]reflect.Value{}
	for _, aux := range plan.Auxiliaries {
		parentPopulation := principal
		if parentJoin := nearestAncestorJoin(aux.Join.Parent); parentJoin != nil {
			parentPopulation = computed[parentJoin]
		}
		children, err := loadJoin(ctx, conn, aux, parentPopulation)
		if err != nil {
			return nil, err
		}
		computed[aux.Join] = children
	}

	out := make([]T, principal.Len())
	for i := 0; i < principal.Len(); i++ {
		out[i] = principal.Index(i).Interface().(T)
	}
	return out, nil
}

// Count runs a COUNT(*) statement and returns the scalar result.
func Count(ctx context.Context, conn driver.Conn, stmt *sqlgen.Statement) (int64, error) {
	s, err := conn.Query(ctx, stmt.SQL, stmt.Args)
	if err != nil {
		return 0, relerr.NewSqlExecError(stmt.SQL, stmt.Args, err)
	}
	defer s.Finalize()

	ok, err := s.Step(ctx)
	if err != nil {
		return 0, relerr.NewSqlExecError(stmt.SQL, stmt.Args, err)
	}
	if !ok {
		return 0, relerr.NewDecodeError("count", "COUNT query returned no rows")
	}
	v, err := s.Column(0, "int64")
	if err != nil {
		return 0, relerr.NewDecodeError("count", err.Error())
	}
	n, ok2 := v.(int64)
	if !ok2 {
		return 0, relerr.NewDecodeError("count", "unexpected type for COUNT result")
	}
	return n, nil
}

// nearestAncestorJoin walks from n towards the root and returns the first
// join node encountered, or nil if n's chain has none before it.
func nearestAncestorJoin(n *query.Node) *query.Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Kind == query.KindJoin {
			return cur
		}
	}
	return nil
}

// loadJoin resolves one auxiliary plan against parentPopulation (a slice of
// the join's parent record type), assigns the bucketed children onto each
// parent's target field, and returns the full decoded child slice so a
// nested join can use it as its own parent population.
func loadJoin(ctx context.Context, conn driver.Conn, aux *sqlgen.AuxiliaryPlan, parentPopulation reflect.Value) (reflect.Value, error) {
	childSliceType := reflect.SliceOf(aux.ChildSchema.RecordType)
	n := parentPopulation.Len()

	seen := map[any]bool{}
	var parentKeys []any
	for i := 0; i < n; i++ {
		kv := parentPopulation.Index(i).FieldByName(aux.ParentKeyGoField).Interface()
		if !seen[kv] {
			seen[kv] = true
			parentKeys = append(parentKeys, kv)
		}
	}

	if len(parentKeys) == 0 {
		empty := reflect.MakeSlice(childSliceType, 0, 0)
		for i := 0; i < n; i++ {
			setChildField(parentPopulation.Index(i), aux.TargetField, empty)
		}
		return empty, nil
	}

	if aux.IsPivot {
		return loadPivotJoin(ctx, conn, aux, parentPopulation, parentKeys, childSliceType)
	}
	return loadStandardJoin(ctx, conn, aux, parentPopulation, parentKeys, childSliceType)
}

func loadStandardJoin(ctx context.Context, conn driver.Conn, aux *sqlgen.AuxiliaryPlan, parentPopulation reflect.Value, parentKeys []any, childSliceType reflect.Type) (reflect.Value, error) {
	stmt := aux.BuildChildren(parentKeys)
	children, err := runAndDecode(ctx, conn, stmt, aux.ChildSchema, aux.ChildSchema.RecordType)
	if err != nil {
		return reflect.Value{}, err
	}

	buckets := map[any][]int{}
	for i := 0; i < children.Len(); i++ {
		kv := children.Index(i).FieldByName(aux.ChildKeyGoField).Interface()
		buckets[kv] = append(buckets[kv], i)
	}

	for i := 0; i < parentPopulation.Len(); i++ {
		rec := parentPopulation.Index(i)
		kv := rec.FieldByName(aux.ParentKeyGoField).Interface()
		idxs := buckets[kv]
		bucket := reflect.MakeSlice(childSliceType, 0, len(idxs))
		for _, ci := range idxs {
			bucket = reflect.Append(bucket, children.Index(ci))
		}
		setChildField(rec, aux.TargetField, bucket)
	}
	return children, nil
}

func loadPivotJoin(ctx context.Context, conn driver.Conn, aux *sqlgen.AuxiliaryPlan, parentPopulation reflect.Value, parentKeys []any, childSliceType reflect.Type) (reflect.Value, error) {
	pivotStmt := aux.BuildPivotResolve(parentKeys)
	pairs, err := runAndDecodePivot(ctx, conn, pivotStmt, aux.PivotSchema, aux.PivotParentKeyColumn, aux.PivotChildKeyColumn)
	if err != nil {
		return reflect.Value{}, err
	}

	// distinct child keys per parent (membership only, no order), plus the
	// union of every child key across all parents for the children IN-list.
	// The pivot-resolve statement carries no ORDER BY, so pairs order must
	// never leak into a bucket's order.
	perParentSeen := map[any]map[any]bool{}
	childToParents := map[any][]any{}
	unionSeen := map[any]bool{}
	var unionKeys []any
	for _, pr := range pairs {
		if perParentSeen[pr.parentKey] == nil {
			perParentSeen[pr.parentKey] = map[any]bool{}
		}
		if !perParentSeen[pr.parentKey][pr.childKey] {
			perParentSeen[pr.parentKey][pr.childKey] = true
			childToParents[pr.childKey] = append(childToParents[pr.childKey], pr.parentKey)
		}
		if !unionSeen[pr.childKey] {
			unionSeen[pr.childKey] = true
			unionKeys = append(unionKeys, pr.childKey)
		}
	}

	if len(unionKeys) == 0 {
		empty := reflect.MakeSlice(childSliceType, 0, 0)
		for i := 0; i < parentPopulation.Len(); i++ {
			setChildField(parentPopulation.Index(i), aux.TargetField, empty)
		}
		return empty, nil
	}

	stmt := aux.BuildChildren(unionKeys)
	children, err := runAndDecode(ctx, conn, stmt, aux.ChildSchema, aux.ChildSchema.RecordType)
	if err != nil {
		return reflect.Value{}, err
	}

	// bucket child indices per parent by walking children in the order
	// BuildChildren's own ORDER BY produced, same as loadStandardJoin.
	buckets := map[any][]int{}
	for ci := 0; ci < children.Len(); ci++ {
		ck := children.Index(ci).FieldByName(aux.ChildKeyGoField).Interface()
		for _, pk := range childToParents[ck] {
			buckets[pk] = append(buckets[pk], ci)
		}
	}

	for i := 0; i < parentPopulation.Len(); i++ {
		rec := parentPopulation.Index(i)
		pk := rec.FieldByName(aux.ParentKeyGoField).Interface()
		idxs := buckets[pk]
		bucket := reflect.MakeSlice(childSliceType, 0, len(idxs))
		for _, ci := range idxs {
			bucket = reflect.Append(bucket, children.Index(ci))
		}
		setChildField(rec, aux.TargetField, bucket)
	}
	return children, nil
}

// setChildField assigns decoded (a slice of the bare element record type)
// onto rec's fieldName, adapting to []Child, []*Child, *[]Child or
// *[]*Child as the struct declares it.
func setChildField(rec reflect.Value, fieldName string, decoded reflect.Value) {
	field := rec.FieldByName(fieldName)
	ft := field.Type()
	wantsPtrSlice := ft.Kind() == reflect.Ptr
	if wantsPtrSlice {
		ft = ft.Elem()
	}
	elemType := ft.Elem()
	wantsPtrElems := elemType.Kind() == reflect.Ptr

	out := reflect.MakeSlice(ft, 0, decoded.Len())
	for i := 0; i < decoded.Len(); i++ {
		v := decoded.Index(i)
		if wantsPtrElems {
			ptr := reflect.New(elemType.Elem())
			ptr.Elem().Set(v)
			out = reflect.Append(out, ptr)
		} else {
			out = reflect.Append(out, v)
		}
	}

	if wantsPtrSlice {
		p := reflect.New(ft)
		p.Elem().Set(out)
		field.Set(p)
	} else {
		field.Set(out)
	}
}
