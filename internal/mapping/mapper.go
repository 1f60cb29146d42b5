package mapping

import (
	"fmt"
	"sync"

	"github.com/hanpama/gqlexec/internal/gqlerrors"
	language "github.com/hanpama/gqlexec/internal/language"
	"github.com/hanpama/gqlexec/internal/schema"
)

const typenameField = "__typename"

// Mapper maps parsed operations against one schema. It is safe for concurrent
// use.
type Mapper struct {
	schema   *schema.Schema
	defaults sync.Map // *schema.InputValue -> Evaluator
}

// NewMapper creates a mapper for a finalized schema.
func NewMapper(s *schema.Schema) *Mapper {
	return &Mapper{schema: s}
}

// Schema returns the schema the mapper maps against.
func (m *Mapper) Schema() *schema.Schema { return m.schema }

// Map maps the operation named operationName, or the only operation of doc
// when the name is empty. On any error the operation is nil and the errors
// describe every problem found; mapping continues past independent item
// errors, but a fragment cycle stops it.
func (m *Mapper) Map(doc *language.QueryDocument, operationName string) (*Operation, []gqlerrors.GraphQLError) {
	errs := &errorSet{}

	opDef, err := selectOperation(doc, operationName)
	if err != nil {
		return nil, []gqlerrors.GraphQLError{err.(gqlerrors.GraphQLError)}
	}
	rootType, err := m.rootType(opDef)
	if err != nil {
		return nil, []gqlerrors.GraphQLError{err.(gqlerrors.GraphQLError)}
	}

	fragments := map[string]*FragmentDef{}
	defs := make([]*FragmentDef, 0, len(doc.Fragments))
	bodies := make([]*language.FragmentDefinition, 0, len(doc.Fragments))
	for _, fd := range doc.Fragments {
		if _, dup := fragments[fd.Name]; dup {
			errs.add(badRequestf(fd.Position, "there can be only one fragment named %q", fd.Name))
			continue
		}
		def := &FragmentDef{Name: fd.Name, OnTypeName: fd.TypeCondition, Directives: fd.Directives, Position: fd.Position}
		fragments[fd.Name] = def
		defs = append(defs, def)
		bodies = append(bodies, fd)
	}
	for i, def := range defs {
		def.SelectionSet = buildSelectionSet(bodies[i].SelectionSet, fragments, bodies[i].Position)
	}
	sorted, fatal := m.analyzeFragments(defs, errs)
	if fatal != nil {
		return nil, errs.list
	}

	op := &Operation{
		Name:      opDef.Name,
		Kind:      opDef.Operation,
		RootType:  rootType,
		Fragments: sorted,
		Schema:    m.schema,
		Position:  opDef.Position,
		mapper:    m,
	}
	op.SelectionSet = buildSelectionSet(opDef.SelectionSet, fragments, opDef.Position)

	b := &evalBuilder{mapper: m, variables: map[string]*VariableDef{}}
	for _, vd := range opDef.VariableDefinitions {
		if def := m.mapVariable(vd, errs); def != nil {
			if b.variables[def.Name] != nil {
				errs.add(badRequestf(vd.Position, "there can be only one variable named $%s", def.Name))
				continue
			}
			b.variables[def.Name] = def
			op.Variables = append(op.Variables, def)
		}
	}
	location := locationQuery
	if op.Kind == language.Mutation {
		location = locationMutation
	}
	m.requestDirectives(opDef.Directives, location, b, errs)

	st := &mapState{m: m, b: b, errs: errs}
	st.itemSet(op.SelectionSet, rootType, rootType)
	st.drain()

	if len(errs.list) > 0 {
		return nil, errs.list
	}
	return op, nil
}

func selectOperation(doc *language.QueryDocument, name string) (*language.OperationDefinition, error) {
	if name == "" {
		switch len(doc.Operations) {
		case 0:
			return nil, badRequestf(nil, "document does not contain any operation")
		case 1:
			return doc.Operations[0], nil
		}
		return nil, badRequestf(nil, "operation name is required when the document contains multiple operations")
	}
	op := doc.Operations.ForName(name)
	if op == nil {
		return nil, badRequestf(nil, "operation %q not found", name)
	}
	return op, nil
}

func (m *Mapper) rootType(op *language.OperationDefinition) (*schema.Type, error) {
	var t *schema.Type
	switch op.Operation {
	case language.Query:
		t = m.schema.GetQueryType()
	case language.Mutation:
		t = m.schema.GetMutationType()
	case language.Subscription:
		if m.schema.GetSubscriptionType() != nil {
			return nil, badRequestf(op.Position, "subscriptions are not supported")
		}
	}
	if t == nil {
		return nil, badRequestf(op.Position, "schema does not support %s operations", op.Operation)
	}
	return t, nil
}

func (m *Mapper) mapVariable(vd *language.VariableDefinition, errs *errorSet) *VariableDef {
	typ := schema.TypeRefFromAST(vd.Type)
	named := m.schema.TypeOf(typ)
	if named == nil {
		errs.add(badRequestf(vd.Position, "variable $%s references unknown type %q", vd.Variable, typ.GetNamedType()))
		return nil
	}
	if named.Kind != schema.TypeKindScalar && named.Kind != schema.TypeKindEnum && named.Kind != schema.TypeKindInputObject {
		errs.add(badRequestf(vd.Position, "variable $%s cannot be of non-input type %q", vd.Variable, typ.String()))
		return nil
	}
	def := &VariableDef{Name: vd.Variable, Type: typ, Directives: vd.Directives, Position: vd.Position}
	constants := &evalBuilder{mapper: m}
	if vd.DefaultValue != nil {
		e, err := constants.build(vd.DefaultValue, typ, nil)
		if err != nil {
			errs.add(err)
			return nil
		}
		def.Default = e
	}
	m.requestDirectives(vd.Directives, locationVariableDef, constants, errs)
	return def
}

// defaultOf returns a constant evaluator for the default of iv, converting an
// SDL default literal once per input value.
func (m *Mapper) defaultOf(iv *schema.InputValue) (Evaluator, error) {
	if e, ok := m.defaults.Load(iv); ok {
		return e.(Evaluator), nil
	}
	var e Evaluator = &Constant{Value: iv.DefaultValue}
	if iv.DefaultLiteral != nil {
		built, err := (&evalBuilder{mapper: m}).build(iv.DefaultLiteral, iv.Type, nil)
		if err != nil {
			return nil, err
		}
		if e, err = fold(built); err != nil {
			return nil, err
		}
	}
	m.defaults.Store(iv, e)
	return e, nil
}

// mapTask is a selection set waiting to be mapped for one concrete type.
// scope is the type the set is written against.
type mapTask struct {
	set   *SelectionSet
	scope *schema.Type
	out   *MappedItemSet
}

// mapState drives mapping with an explicit queue, so nested selections and
// fragments referencing each other never recurse on the call stack.
type mapState struct {
	m       *Mapper
	b       *evalBuilder
	errs    *errorSet
	pending []mapTask
}

// itemSet returns the mapped items of set for t, queueing the set for mapping
// the first time the pair is seen.
func (st *mapState) itemSet(set *SelectionSet, t, scope *schema.Type) *MappedItemSet {
	if ms := set.mapped[t.Name]; ms != nil {
		return ms
	}
	if set.mapped == nil {
		set.mapped = map[string]*MappedItemSet{}
	}
	ms := &MappedItemSet{ObjectType: t}
	set.mapped[t.Name] = ms
	st.pending = append(st.pending, mapTask{set: set, scope: scope, out: ms})
	return ms
}

func (st *mapState) drain() {
	for len(st.pending) > 0 {
		task := st.pending[0]
		st.pending = st.pending[1:]
		st.fill(task)
	}
}

func (st *mapState) fill(task mapTask) {
	t := task.out.ObjectType
	for _, item := range task.set.Items {
		switch item := item.(type) {
		case *Field:
			if mf := st.mapField(item, t, task.scope); mf != nil {
				task.out.Items = append(task.out.Items, mf)
			}
		case *FragmentSpread:
			if ms := st.mapSpread(item, t, task.scope); ms != nil {
				task.out.Items = append(task.out.Items, ms)
			}
		}
	}
}

func (st *mapState) mapField(item *Field, t, scope *schema.Type) *MappedField {
	dirs := st.m.requestDirectives(item.Directives, locationField, st.b, st.errs)
	if item.Name == typenameField {
		if item.SelectionSet != nil {
			st.errs.add(badRequestf(item.Position, "field %q must not have a selection since type \"String!\" has no subfields", typenameField))
			return nil
		}
		return &MappedField{Key: item.Key(), ObjectType: t, Typename: true, Directives: dirs, Position: item.Position}
	}

	fd := t.Field(item.Name)
	if fd == nil {
		// Members of a union share no fields; a field known to another
		// member is simply absent here.
		if scope.Kind == schema.TypeKindUnion {
			return nil
		}
		st.errs.add(badRequestf(item.Position, "cannot query field %q on type %q", item.Name, scope.Name))
		return nil
	}
	if scope.Kind == schema.TypeKindInterface && scope.Field(item.Name) == nil {
		st.errs.add(badRequestf(item.Position, "cannot query field %q on type %q", item.Name, scope.Name))
		return nil
	}

	owner := fmt.Sprintf("field %q", t.Name+"."+fd.Name)
	args, _ := st.m.mapArgs(fd.Arguments, item.Arguments, owner, item.Position, st.b, st.errs)
	rt := st.m.schema.TypeOf(fd.Type)
	mf := &MappedField{
		Key:        item.Key(),
		Field:      fd,
		ObjectType: t,
		ReturnType: rt,
		Resolver:   fd.EffectiveResolver(),
		Args:       args,
		Directives: st.fieldDirectives(fd, rt, dirs),
		Position:   item.Position,
	}
	switch {
	case rt.Kind.IsLeaf() && item.SelectionSet != nil:
		st.errs.add(badRequestf(item.Position, "field %q must not have a selection since type %q has no subfields", item.Name, fd.Type.String()))
	case rt.Kind.IsComposite() && item.SelectionSet == nil:
		st.errs.add(badRequestf(item.Position, "field %q of type %q must have a selection of subfields", item.Name, fd.Type.String()))
	case item.SelectionSet != nil:
		if rt.Kind == schema.TypeKindUnion {
			st.m.checkFragmentFields(item.SelectionSet, rt, st.errs)
		}
		mf.Subset = item.SelectionSet
		for _, ct := range st.m.schema.ConcreteTypes(rt) {
			st.itemSet(item.SelectionSet, ct, rt)
		}
	}
	return mf
}

// fieldDirectives lists the model directives of the field definition and of
// its return type, followed by the directives written at the selection.
func (st *mapState) fieldDirectives(fd *schema.Field, rt *schema.Type, request []*RuntimeDirective) []*RuntimeDirective {
	dirs := st.m.modelDirectives(fd.Directives)
	if rt != nil {
		dirs = append(dirs, st.m.modelDirectives(rt.Directives)...)
	}
	return append(dirs, request...)
}

func (st *mapState) mapSpread(item *FragmentSpread, t, scope *schema.Type) *MappedFragmentSpread {
	frag := item.Fragment
	if frag == nil {
		st.errs.add(badRequestf(item.Position, "unknown fragment %q", item.Name))
		return nil
	}
	location := locationFragmentSpread
	if item.Inline {
		location = locationInlineFragment
		st.resolveInline(frag, scope)
	}
	if frag.OnType == nil {
		return nil
	}
	dirs := st.m.requestDirectives(item.Directives, location, st.b, st.errs)
	if !st.m.spreadCompatible(scope, frag.OnType) {
		name := "fragment"
		if !item.Inline {
			name = fmt.Sprintf("fragment %q", item.Name)
		}
		st.errs.add(badRequestf(item.Position, "%s cannot be spread here as objects of type %q can never be of type %q", name, scope.Name, frag.OnType.Name))
		return nil
	}
	if !st.m.appliesTo(frag.OnType, t) {
		return nil
	}
	return &MappedFragmentSpread{
		Fragment:   frag,
		Items:      st.itemSet(frag.SelectionSet, t, frag.OnType),
		Directives: dirs,
		Position:   item.Position,
	}
}

// resolveInline sets the on-type of an inline fragment. Without a type
// condition the fragment applies to its enclosing scope.
func (st *mapState) resolveInline(frag *FragmentDef, scope *schema.Type) {
	if frag.OnType != nil {
		return
	}
	if frag.OnTypeName == "" {
		frag.OnType = scope
		return
	}
	t := st.m.schema.Types[frag.OnTypeName]
	switch {
	case t == nil:
		st.errs.add(badRequestf(frag.Position, "inline fragment references unknown type %q", frag.OnTypeName))
	case !t.Kind.IsComposite():
		st.errs.add(badRequestf(frag.Position, "inline fragment cannot condition on non composite type %q", t.Name))
	default:
		frag.OnType = t
		st.m.checkFragmentFields(frag.SelectionSet, t, st.errs)
	}
}
