package executor

import (
	"context"
	"errors"
	"fmt"

	multierror "github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/hanpama/gqlexec/internal/gqlerrors"
	language "github.com/hanpama/gqlexec/internal/language"
	"github.com/hanpama/gqlexec/internal/mapping"
	"github.com/hanpama/gqlexec/internal/schema"
)

// resolveOne produces the raw value of f for one parent. It reports false when
// the field failed; the error is already recorded.
func (t *fieldTask) resolveOne(f *mapping.MappedField, source any, path *gqlerrors.RequestPath) (any, bool) {
	if t.state.checkCancelled() {
		t.abort()
		return nil, false
	}
	r := f.Resolver
	switch {
	case r == nil:
		t.state.addError(gqlerrors.New(gqlerrors.KindServerError, "field %s.%s has no resolver", f.ObjectType.Name, f.Field.Name).At(path).Located(f.Position))
		return nil, false
	case r.IsAccessor():
		value, err := t.call(f, func() (any, error) { return r.Accessor(source) })
		return t.settle(f, path, value, err)
	case r.Resolve == nil:
		t.state.addError(gqlerrors.New(gqlerrors.KindServerError, "field %s.%s has no resolver", f.ObjectType.Name, f.Field.Name).At(path).Located(f.Position))
		return nil, false
	}

	args, argMap, err := f.ArgValues(t.state.eval)
	if err != nil {
		t.state.addError(fieldError(err, gqlerrors.KindInputError, path, f.Position))
		return nil, false
	}
	inst, err := t.instance(f, r.Class)
	if err != nil {
		t.state.addError(fieldError(err, gqlerrors.KindResolverError, path, f.Position))
		return nil, false
	}
	params := schema.ResolveParams{
		Context:    t.state.context,
		Instance:   inst,
		Source:     source,
		Args:       args,
		ArgMap:     argMap,
		Field:      f.Field,
		ParentType: f.ObjectType,
	}
	value, err := t.call(f, func() (any, error) { return r.Resolve(params) })
	return t.settle(f, path, value, err)
}

// resolveBatch resolves f for all parents in one call and completes the
// values in parent order.
func (t *fieldTask) resolveBatch(f *mapping.MappedField, parents []*objectValue) {
	pending := make([]*objectValue, 0, len(parents))
	sources := make([]any, 0, len(parents))
	for _, p := range parents {
		if !p.isPopulated(f) {
			pending = append(pending, p)
			sources = append(sources, p.value)
		}
	}
	fail := func(err error, kind gqlerrors.Kind) {
		for _, p := range pending {
			t.state.addError(fieldError(err, kind, p.path.Field(f.Key), f.Position))
			p.scope.add(f.Key, f, nil)
			p.markPopulated(f)
		}
	}
	if t.state.checkCancelled() {
		t.abort()
		return
	}

	args, argMap, err := f.ArgValues(t.state.eval)
	if err != nil {
		fail(err, gqlerrors.KindInputError)
		return
	}
	inst, err := t.instance(f, f.Resolver.Class)
	if err != nil {
		fail(err, gqlerrors.KindResolverError)
		return
	}
	params := schema.BatchParams{
		Context:    t.state.context,
		Instance:   inst,
		Sources:    sources,
		Args:       args,
		ArgMap:     argMap,
		Field:      f.Field,
		ParentType: f.ObjectType,
	}
	var values []any
	_, err = t.call(f, func() (any, error) {
		var err error
		values, err = f.Resolver.Batch(params)
		return nil, err
	})
	if err == nil && len(values) != len(sources) {
		err = gqlerrors.New(gqlerrors.KindServerError, "batch resolver for %s.%s returned %d values for %d sources", f.ObjectType.Name, f.Field.Name, len(values), len(sources))
	}
	if err != nil {
		if t.isCancellation(err) {
			t.abort()
			return
		}
		fail(err, gqlerrors.KindResolverError)
		return
	}

	for i, p := range pending {
		path := p.path.Field(f.Key)
		value, ok := t.settle(f, path, values[i], nil)
		var completed any
		if ok {
			completed = t.completeValue(f, f.Type(), value, path)
		}
		p.scope.add(f.Key, f, completed)
		p.markPopulated(f)
	}
}

// settle awaits a deferred value and converts a failure into a field error.
func (t *fieldTask) settle(f *mapping.MappedField, path *gqlerrors.RequestPath, value any, err error) (any, bool) {
	if err == nil {
		if future, ok := value.(schema.Future); ok {
			value, err = t.call(f, func() (any, error) { return future.Await(t.state.context) })
		}
	}
	if err != nil {
		if t.isCancellation(err) {
			t.abort()
			return nil, false
		}
		t.state.addError(fieldError(err, gqlerrors.KindResolverError, path, f.Position))
		return nil, false
	}
	return value, true
}

// isCancellation reports whether err is the request context giving up.
func (t *fieldTask) isCancellation(err error) bool {
	if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return t.state.checkCancelled()
}

// instance returns the resolver class instance of this task, creating it and
// running its BeginRequest hook on first use.
func (t *fieldTask) instance(f *mapping.MappedField, class *schema.ResolverClass) (any, error) {
	if class == nil || class.New == nil {
		return nil, nil
	}
	if inst, ok := t.instances[class]; ok {
		return inst, nil
	}
	inst, err := t.call(f, func() (any, error) { return class.New(t.state.context) })
	if err != nil {
		return nil, fmt.Errorf("cannot create resolver %s: %w", class.Name, err)
	}
	if b, ok := inst.(schema.RequestBeginner); ok {
		if _, err := t.call(f, func() (any, error) { return nil, b.BeginRequest(t.state.context) }); err != nil {
			return nil, err
		}
	}
	if t.instances == nil {
		t.instances = map[*schema.ResolverClass]any{}
	}
	t.instances[class] = inst
	t.created = append(t.created, inst)
	return inst, nil
}

// call runs fn, turning a panic into an error.
func (t *fieldTask) call(f *mapping.MappedField, fn func() (any, error)) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			t.state.executor.logger.Warn("recovered resolver panic",
				zap.String("type", f.ObjectType.Name),
				zap.String("field", f.Key),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			value, err = nil, fmt.Errorf("panic in resolver %s.%s: %v", f.ObjectType.Name, f.Key, r)
		}
	}()
	return fn()
}

// fieldError converts err into a located error at path. Errors that already
// are GraphQL errors keep their kind, locations and extensions.
func fieldError(err error, kind gqlerrors.Kind, path *gqlerrors.RequestPath, pos *language.Position) gqlerrors.GraphQLError {
	err = unwrapAggregate(err)
	var ge gqlerrors.GraphQLError
	if errors.As(err, &ge) {
		if ge.Kind == "" {
			ge.Kind = kind
		}
	} else {
		ge = gqlerrors.New(kind, "%s", err.Error())
	}
	if len(ge.Locations) == 0 {
		ge = ge.Located(pos)
	}
	if path != nil {
		ge = ge.At(path)
	}
	return ge
}

// directiveError locates a failed directive evaluation at the item it guards
// under the parent path.
func directiveError(err error, item mapping.MappedItem, parent *gqlerrors.RequestPath) gqlerrors.GraphQLError {
	path := parent
	var pos *language.Position
	if f, ok := item.(*mapping.MappedField); ok {
		path = parent.Field(f.Key)
		pos = f.Position
	}
	return fieldError(err, gqlerrors.KindInputError, path, pos)
}

// unwrapAggregate returns the first error wrapped by an aggregate error.
func unwrapAggregate(err error) error {
	var merr *multierror.Error
	if errors.As(err, &merr) && len(merr.Errors) > 0 {
		return merr.Errors[0]
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		if errs := joined.Unwrap(); len(errs) > 0 {
			return errs[0]
		}
	}
	return err
}
