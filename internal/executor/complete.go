package executor

import (
	"reflect"

	"github.com/hanpama/gqlexec/internal/gqlerrors"
	"github.com/hanpama/gqlexec/internal/mapping"
	"github.com/hanpama/gqlexec/internal/schema"
)

// completeValue converts a raw resolver value into its output form. Objects
// become empty scopes queued for the next round.
func (t *fieldTask) completeValue(f *mapping.MappedField, fieldType *schema.TypeRef, result any, path *gqlerrors.RequestPath) any {
	if isNullish(result) {
		if fieldType.IsNonNull() && !t.state.executor.options.IgnoreNonNullFaults {
			t.fail(f, path, "cannot return null for non-nullable field %s.%s", f.ObjectType.Name, f.Field.Name)
		}
		return nil
	}
	if fieldType.IsNonNull() {
		return t.completeValue(f, fieldType.Unwrap(), result, path)
	}
	if fieldType.IsList() {
		return t.completeListValue(f, fieldType, result, path)
	}

	rt := f.ReturnType
	switch rt.Kind {
	case schema.TypeKindScalar:
		serialized, err := rt.Codec().Serialize(result)
		if err != nil {
			t.state.addError(fieldError(err, gqlerrors.KindServerError, path, f.Position))
			return nil
		}
		return serialized
	case schema.TypeKindEnum:
		serialized, err := rt.SerializeEnum(result)
		if err != nil {
			t.state.addError(fieldError(err, gqlerrors.KindServerError, path, f.Position))
			return nil
		}
		return serialized
	case schema.TypeKindObject, schema.TypeKindInterface, schema.TypeKindUnion:
		return t.completeObjectValue(f, rt, result, path)
	default:
		t.fail(f, path, "cannot complete value of unexpected type %s", rt.Name)
		return nil
	}
}

func (t *fieldTask) completeListValue(f *mapping.MappedField, listType *schema.TypeRef, result any, path *gqlerrors.RequestPath) any {
	var items []any
	if direct, ok := result.([]any); ok {
		items = direct
	} else {
		rv := reflect.ValueOf(result)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			t.fail(f, path, "expected a list for field %s.%s, got %T", f.ObjectType.Name, f.Field.Name, result)
			return nil
		}
		items = make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = rv.Index(i).Interface()
		}
	}

	inner := listType.Unwrap()
	completed := make([]any, len(items))
	for i, item := range items {
		if t.aborted {
			return nil
		}
		completed[i] = normalize(t.completeValue(f, inner, item, path.Index(i)))
	}
	return completed
}

// completeObjectValue maps the value to its concrete object type and queues
// it for expansion.
func (t *fieldTask) completeObjectValue(f *mapping.MappedField, declared *schema.Type, result any, path *gqlerrors.RequestPath) any {
	concrete := t.state.schema.LookupByValue(declared, result)
	if concrete == nil {
		t.fail(f, path, "abstract type %s must resolve to an object type at runtime for field %s.%s, got %T", declared.Name, f.ObjectType.Name, f.Field.Name, result)
		return nil
	}
	if !t.state.countObject() {
		t.quotaExceeded("maximum number of output objects %d exceeded", t.state.executor.options.MaxOutputObjects)
		return nil
	}
	scope := newScope(concrete, result, path)
	items := f.Subset.ItemsFor(concrete)
	if items == nil {
		t.fail(f, path, "selection of field %s.%s was not mapped for type %s", f.ObjectType.Name, f.Field.Name, concrete.Name)
		return nil
	}
	t.pending = append(t.pending, &objectValue{
		items: items,
		value: result,
		scope: scope,
		path:  path,
	})
	return scope
}

// fail records a server error for the field at path.
func (t *fieldTask) fail(f *mapping.MappedField, path *gqlerrors.RequestPath, format string, args ...any) {
	t.state.addError(gqlerrors.New(gqlerrors.KindServerError, format, args...).At(path).Located(f.Position))
}
