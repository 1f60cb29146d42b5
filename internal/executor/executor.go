package executor

import (
	"context"
	"reflect"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hanpama/gqlexec/internal/gqlerrors"
	language "github.com/hanpama/gqlexec/internal/language"
	"github.com/hanpama/gqlexec/internal/mapping"
	"github.com/hanpama/gqlexec/internal/schema"
)

type Executor struct {
	schema  *schema.Schema
	options Options
	logger  *zap.Logger
}

func NewExecutor(s *schema.Schema, opts ...Option) *Executor {
	e := &Executor{schema: s, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Schema returns the schema the executor runs against.
func (e *Executor) Schema() *schema.Schema { return e.schema }

// Options returns the configured quotas.
func (e *Executor) Options() Options { return e.options }

// executionState holds the request-wide state shared by all field tasks.
type executionState struct {
	executor  *Executor
	schema    *schema.Schema
	operation *mapping.Operation
	context   context.Context
	eval      *mapping.EvalContext
	root      *OutputObjectScope
	errors    *gqlerrors.List

	objects   atomic.Int64
	cancelled atomic.Bool
}

// Execute runs op with the given raw variable values. rootValue is passed as
// the source of top-level fields.
func (e *Executor) Execute(ctx context.Context, op *mapping.Operation, variables map[string]any, rootValue any) *ExecutionResult {
	coerced, errs := op.CoerceVariables(variables)
	if len(errs) > 0 {
		return &ExecutionResult{Errors: errs}
	}

	if e.options.MaxRequestTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.options.MaxRequestTime)
		defer cancel()
	}

	state := &executionState{
		executor:  e,
		schema:    e.schema,
		operation: op,
		context:   ctx,
		eval:      &mapping.EvalContext{Context: ctx, Variables: coerced},
		root:      newRootScope(op.RootType, rootValue),
		errors:    gqlerrors.NewList(e.options.MaxErrors),
	}

	tasks := state.reserveRootFields(op.RootItems().Items, rootValue, nil)
	if op.Kind == language.Mutation {
		for _, t := range tasks {
			t.run()
		}
	} else {
		var g errgroup.Group
		for _, t := range tasks {
			g.Go(func() error {
				t.run()
				return nil
			})
		}
		_ = g.Wait()
	}

	mergeScope(state.root)
	if !e.options.IgnoreNonNullFaults {
		for _, entry := range state.root.entries {
			if entry.merged || entry.field == nil {
				continue
			}
			entry.value, _ = propagateNulls(entry.value, entry.field.Type())
		}
	}

	result := &ExecutionResult{Errors: state.errors.Errors()}
	if len(result.Errors) == 0 {
		result.Errors = nil
	}
	if !state.cancelled.Load() {
		result.Data = state.root
	}
	return result
}

// reserveRootFields adds one root entry per selected top-level field, in
// selection order, and returns a task for each resolvable field.
func (s *executionState) reserveRootFields(items []mapping.MappedItem, rootValue any, tasks []*fieldTask) []*fieldTask {
	for _, item := range items {
		skip, err := mapping.ShouldSkip(s.eval, item.RuntimeDirectives())
		if err != nil {
			s.addError(directiveError(err, item, nil))
			continue
		}
		if skip {
			continue
		}
		switch item := item.(type) {
		case *mapping.MappedFragmentSpread:
			if item.Items != nil {
				tasks = s.reserveRootFields(item.Items.Items, rootValue, tasks)
			}
		case *mapping.MappedField:
			if item.Typename {
				s.root.add(item.Key, item, s.root.ObjectType.Name)
				continue
			}
			tasks = append(tasks, &fieldTask{
				state: s,
				field: item,
				entry: s.root.add(item.Key, item, nil),
				root:  rootValue,
				path:  (*gqlerrors.RequestPath)(nil).Field(item.Key),
			})
		}
	}
	return tasks
}

func (s *executionState) addError(err gqlerrors.GraphQLError) {
	s.errors.Add(err)
}

// checkCancelled records a single CANCELLED error for the request once its
// context is done.
func (s *executionState) checkCancelled() bool {
	err := s.context.Err()
	if err == nil {
		return false
	}
	if s.cancelled.CompareAndSwap(false, true) {
		s.errors.AddUncapped(gqlerrors.New(gqlerrors.KindCancelled, "request cancelled: %v", err))
	}
	return true
}

// countObject reserves one output object against the quota.
func (s *executionState) countObject() bool {
	n := s.objects.Inc()
	max := s.executor.options.MaxOutputObjects
	return max <= 0 || n <= int64(max)
}

// fieldTask executes one top-level field and its subtree.
type fieldTask struct {
	state *executionState
	field *mapping.MappedField
	entry *outputEntry
	root  any
	path  *gqlerrors.RequestPath

	instances map[*schema.ResolverClass]any
	created   []any
	pending   []*objectValue
	aborted   bool
}

// objectValue is a completed object waiting for its selection set.
type objectValue struct {
	items     *mapping.MappedItemSet
	value     any
	scope     *OutputObjectScope
	path      *gqlerrors.RequestPath
	populated map[*mapping.MappedField]struct{}
}

func (o *objectValue) isPopulated(f *mapping.MappedField) bool {
	_, ok := o.populated[f]
	return ok
}

func (o *objectValue) markPopulated(f *mapping.MappedField) {
	if o.populated == nil {
		o.populated = map[*mapping.MappedField]struct{}{}
	}
	o.populated[f] = struct{}{}
}

func (t *fieldTask) run() {
	start := time.Now()
	defer t.finish(start)

	if t.state.checkCancelled() {
		t.abort()
		return
	}
	value, ok := t.resolveOne(t.field, t.root, t.path)
	var completed any
	if ok {
		completed = t.completeValue(t.field, t.field.Type(), value, t.path)
	}
	t.state.root.set(t.entry, completed)

	for depth := 2; len(t.pending) > 0 && !t.aborted; depth++ {
		if t.state.checkCancelled() {
			t.abort()
			return
		}
		if max := t.state.executor.options.MaxDepth; max > 0 && depth > max {
			t.quotaExceeded("maximum depth %d exceeded", max)
			return
		}
		t.executeRound()
	}
}

// executeRound expands the pending objects of one depth, grouped by the
// mapped item set of their concrete type.
func (t *fieldTask) executeRound() {
	round := t.pending
	t.pending = nil

	var order []*mapping.MappedItemSet
	groups := map[*mapping.MappedItemSet][]*objectValue{}
	for _, o := range round {
		if _, ok := groups[o.items]; !ok {
			order = append(order, o.items)
		}
		groups[o.items] = append(groups[o.items], o)
	}
	for _, items := range order {
		if t.aborted {
			return
		}
		t.executeSelectionSet(items.Items, groups[items])
	}
}

// executeSelectionSet resolves items against every parent in declaration
// order. Fragment spreads run their spliced items against the same parents.
func (t *fieldTask) executeSelectionSet(items []mapping.MappedItem, parents []*objectValue) {
	for _, item := range items {
		if t.aborted {
			return
		}
		skip, err := mapping.ShouldSkip(t.state.eval, item.RuntimeDirectives())
		if err != nil {
			for _, p := range parents {
				t.state.addError(directiveError(err, item, p.path))
			}
			continue
		}
		if skip {
			continue
		}
		switch item := item.(type) {
		case *mapping.MappedFragmentSpread:
			if item.Items != nil {
				t.executeSelectionSet(item.Items.Items, parents)
			}
		case *mapping.MappedField:
			t.executeField(item, parents)
		}
	}
}

func (t *fieldTask) executeField(f *mapping.MappedField, parents []*objectValue) {
	if f.Typename {
		for _, p := range parents {
			p.scope.add(f.Key, f, p.scope.ObjectType.Name)
		}
		return
	}
	for i, p := range parents {
		if t.aborted {
			return
		}
		if p.isPopulated(f) {
			continue
		}
		if f.Resolver != nil && f.Resolver.Batch != nil {
			t.resolveBatch(f, parents[i:])
			continue
		}
		path := p.path.Field(f.Key)
		value, ok := t.resolveOne(f, p.value, path)
		var completed any
		if ok {
			completed = t.completeValue(f, f.Type(), value, path)
		}
		p.scope.add(f.Key, f, completed)
		p.markPopulated(f)
	}
}

// abort abandons the rest of the task; its top-level value becomes null.
func (t *fieldTask) abort() {
	t.aborted = true
	t.pending = nil
}

func (t *fieldTask) quotaExceeded(format string, args ...any) {
	err := gqlerrors.New(gqlerrors.KindServerError, format, args...).At(t.path).Located(t.field.Position)
	t.state.executor.logger.Warn("execution quota exceeded",
		zap.String("field", t.field.Key),
		zap.String("error", err.Message),
	)
	t.state.addError(err)
	t.abort()
}

func (t *fieldTask) finish(start time.Time) {
	ctx := t.state.context
	for _, inst := range t.created {
		if ender, ok := inst.(schema.RequestEnder); ok {
			ender.EndRequest(ctx)
		}
	}
	if t.aborted {
		t.state.root.set(t.entry, nil)
	}
	duration := time.Since(start)
	t.state.executor.logger.Debug("field completed",
		zap.String("field", t.field.Key),
		zap.String("parentType", t.field.ObjectType.Name),
		zap.Duration("duration", duration),
		zap.Bool("aborted", t.aborted),
	)
	publishFieldFinish(ctx, t, duration)
}

// isNullish returns true for nil interfaces and typed nils (map, slice, ptr, interface)
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
