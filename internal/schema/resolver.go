package schema

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Resolver describes how a field value is produced. It is a small tagged
// union: a direct Accessor projects the parent value synchronously; otherwise
// the field is invocable through Resolve, optionally bound to a per-request
// instance of Class, and may additionally offer a Batch variant that resolves
// many parents in one call.
type Resolver struct {
	Accessor func(source any) (any, error)

	Class   *ResolverClass
	Resolve func(p ResolveParams) (any, error)
	Batch   func(p BatchParams) ([]any, error)
}

// IsAccessor reports whether the resolver is a direct accessor.
func (r *Resolver) IsAccessor() bool {
	return r.Accessor != nil && r.Resolve == nil && r.Batch == nil
}

// ResolveParams is passed to invocable resolvers.
type ResolveParams struct {
	Context context.Context
	// Instance is the per-request resolver class instance, nil without Class.
	Instance any
	Source   any
	// Args holds the evaluated arguments in declaration order.
	Args       []any
	ArgMap     map[string]any
	Field      *Field
	ParentType *Type
}

// Arg returns the evaluated argument with the given name.
func (p ResolveParams) Arg(name string) any { return p.ArgMap[name] }

// BatchParams is passed to batched resolvers. The returned slice must have one
// value per source, in the same order.
type BatchParams struct {
	Context    context.Context
	Instance   any
	Sources    []any
	Args       []any
	ArgMap     map[string]any
	Field      *Field
	ParentType *Type
}

// ResolverClass produces the receiver of bound resolvers. One instance is
// created lazily per class and request task.
type ResolverClass struct {
	Name string
	New  func(ctx context.Context) (any, error)
}

// RequestBeginner is implemented by resolver instances that need a hook when
// they are first created for a request.
type RequestBeginner interface {
	BeginRequest(ctx context.Context) error
}

// RequestEnder is implemented by resolver instances that need a hook when the
// request task that owns them completes.
type RequestEnder interface {
	EndRequest(ctx context.Context)
}

// Future is a deferred resolver result.
type Future interface {
	Await(ctx context.Context) (any, error)
}

// FutureFunc adapts a function to Future.
type FutureFunc func(ctx context.Context) (any, error)

func (f FutureFunc) Await(ctx context.Context) (any, error) { return f(ctx) }

type goFuture struct {
	done chan struct{}
	val  any
	err  error
}

func (f *goFuture) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Go runs fn on its own goroutine and returns a Future for its result.
func Go(fn func() (any, error)) Future {
	f := &goFuture{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("panic: %v", r)
			}
		}()
		f.val, f.err = fn()
	}()
	return f
}

// PropertyAccessor returns a direct accessor reading name from the parent
// value: a map key, an exported struct field matched by name or `graphql`
// tag, or a method without arguments.
func PropertyAccessor(name string) func(source any) (any, error) {
	return func(source any) (any, error) {
		return readProperty(source, name)
	}
}

func readProperty(source any, name string) (any, error) {
	switch m := source.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return m[name], nil
	}
	rv := reflect.ValueOf(source)
	if mv := findMethod(rv, name); mv.IsValid() {
		return callAccessorMethod(mv, name)
	}
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, nil
		}
		return v.Interface(), nil
	case reflect.Struct:
		if idx, ok := structFieldIndex(rv.Type(), name); ok {
			return rv.FieldByIndex(idx).Interface(), nil
		}
	}
	return nil, fmt.Errorf("no property %q on %T", name, source)
}

func findMethod(rv reflect.Value, name string) reflect.Value {
	if !rv.IsValid() || name == "" {
		return reflect.Value{}
	}
	exported := strings.ToUpper(name[:1]) + name[1:]
	if mv := rv.MethodByName(exported); mv.IsValid() && mv.Type().NumIn() == 0 {
		return mv
	}
	return reflect.Value{}
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func callAccessorMethod(mv reflect.Value, name string) (any, error) {
	out := mv.Call(nil)
	switch len(out) {
	case 1:
		return out[0].Interface(), nil
	case 2:
		if out[1].Type().Implements(errorType) {
			if !out[1].IsNil() {
				return nil, out[1].Interface().(error)
			}
			return out[0].Interface(), nil
		}
	}
	return nil, fmt.Errorf("method %q has an unsupported signature", name)
}

type fieldKey struct {
	t    reflect.Type
	name string
}

var structFieldCache sync.Map // fieldKey -> []int

func structFieldIndex(t reflect.Type, name string) ([]int, bool) {
	key := fieldKey{t, name}
	if v, ok := structFieldCache.Load(key); ok {
		idx := v.([]int)
		return idx, idx != nil
	}
	var found []int
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() {
			continue
		}
		tag := strings.Split(f.Tag.Get("graphql"), ",")[0]
		if tag == name {
			found = f.Index
			break
		}
		if tag == "" && strings.EqualFold(f.Name, name) && found == nil {
			found = f.Index
		}
	}
	structFieldCache.Store(key, found)
	return found, found != nil
}

// EffectiveResolver returns the bound resolver, or a property accessor for
// fields without one.
func (f *Field) EffectiveResolver() *Resolver {
	if f.Resolver != nil {
		return f.Resolver
	}
	return &Resolver{Accessor: PropertyAccessor(f.Name)}
}
