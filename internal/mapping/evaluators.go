package mapping

import (
	"context"

	"github.com/hanpama/gqlexec/internal/gqlerrors"
	language "github.com/hanpama/gqlexec/internal/language"
	"github.com/hanpama/gqlexec/internal/schema"
)

// EvalContext carries what evaluators may depend on during one execution.
type EvalContext struct {
	Context context.Context
	// Variables holds coerced variable values. Absent keys are variables the
	// request did not provide.
	Variables map[string]any
}

func (ec *EvalContext) context() context.Context {
	if ec == nil || ec.Context == nil {
		return context.Background()
	}
	return ec.Context
}

// Evaluator produces an input value at execution time.
type Evaluator interface {
	Evaluate(ec *EvalContext) (any, error)
	// IsConstant reports whether the value never depends on variables.
	IsConstant() bool
}

// Constant is an already converted value.
type Constant struct {
	Value any
}

func (c *Constant) Evaluate(*EvalContext) (any, error) { return c.Value, nil }
func (c *Constant) IsConstant() bool                  { return true }

// VariableReference reads a coerced variable. Default is the location default
// used when the variable was not provided.
type VariableReference struct {
	Name     string
	Default  Evaluator
	NonNull  bool
	Position *language.Position
}

func (r *VariableReference) Evaluate(ec *EvalContext) (any, error) {
	var (
		v  any
		ok bool
	)
	if ec != nil {
		v, ok = ec.Variables[r.Name]
	}
	if !ok && r.Default != nil {
		return r.Default.Evaluate(ec)
	}
	if v == nil && r.NonNull {
		return nil, inputErrorf(r.Position, "variable $%s must not be null", r.Name)
	}
	return v, nil
}

func (r *VariableReference) IsConstant() bool { return false }

// List evaluates every element against the element type.
type List struct {
	Items []Evaluator
}

func (l *List) Evaluate(ec *EvalContext) (any, error) {
	out := make([]any, len(l.Items))
	for i, item := range l.Items {
		v, err := item.Evaluate(ec)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (l *List) IsConstant() bool {
	for _, item := range l.Items {
		if !item.IsConstant() {
			return false
		}
	}
	return true
}

// FlagSet combines a list of flag-set enum values into one value.
type FlagSet struct {
	Enum  *schema.Type
	Items Evaluator
}

func (f *FlagSet) Evaluate(ec *EvalContext) (any, error) {
	v, err := f.Items.Evaluate(ec)
	if err != nil || v == nil {
		return nil, err
	}
	list, ok := v.([]any)
	if !ok {
		list = []any{v}
	}
	combined, err := f.Enum.CombineFlagValues(list)
	if err != nil {
		return nil, gqlerrors.New(gqlerrors.KindInputError, "%s", err.Error())
	}
	return combined, nil
}

func (f *FlagSet) IsConstant() bool { return f.Items.IsConstant() }

// InputObject builds a map for an input object type.
type InputObject struct {
	Type     *schema.Type
	Fields   []ObjectField
	Position *language.Position
}

// ObjectField is one field of an InputObject evaluator.
type ObjectField struct {
	Name string
	Eval Evaluator
}

func (o *InputObject) Evaluate(ec *EvalContext) (any, error) {
	out := make(map[string]any, len(o.Fields))
	set := 0
	for _, f := range o.Fields {
		v, err := f.Eval.Evaluate(ec)
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
		if v != nil {
			set++
		}
	}
	if o.Type.OneOf && set != 1 {
		return nil, inputErrorf(o.Position, "OneOf input object %q must specify exactly one non-null field", o.Type.Name)
	}
	return out, nil
}

func (o *InputObject) IsConstant() bool {
	for _, f := range o.Fields {
		if !f.Eval.IsConstant() {
			return false
		}
	}
	return true
}

// Directed runs the value hooks of model directives on the inner value.
type Directed struct {
	Inner Evaluator
	Hooks []*RuntimeDirective
}

func (d *Directed) Evaluate(ec *EvalContext) (any, error) {
	v, err := d.Inner.Evaluate(ec)
	if err != nil {
		return nil, err
	}
	for _, rd := range d.Hooks {
		hook, ok := rd.Def.Handler.(schema.ValueHook)
		if !ok {
			continue
		}
		args, err := rd.ArgValues(ec)
		if err != nil {
			return nil, err
		}
		if v, err = hook.TransformValue(ec.context(), args, v); err != nil {
			return nil, locate(err, rd.Position)
		}
	}
	return v, nil
}

func (d *Directed) IsConstant() bool { return false }

// fold replaces a constant evaluator tree by its value.
func fold(e Evaluator) (Evaluator, error) {
	if _, ok := e.(*Constant); ok || !e.IsConstant() {
		return e, nil
	}
	v, err := e.Evaluate(&EvalContext{Context: context.Background()})
	if err != nil {
		return nil, err
	}
	return &Constant{Value: v}, nil
}

// evalBuilder creates evaluators for parsed values. A nil variables map means
// a constant context where variable references are errors.
type evalBuilder struct {
	mapper    *Mapper
	variables map[string]*VariableDef
}

// build dispatches on the kind of v. loc is the argument or input field the
// value is supplied for, nil for list elements.
func (b *evalBuilder) build(v *language.Value, target *schema.TypeRef, loc *schema.InputValue) (Evaluator, error) {
	if v.Kind == language.Variable {
		return b.buildVariable(v, target, loc)
	}
	if v.Kind == language.NullValue {
		if target.IsNonNull() {
			return nil, inputErrorf(v.Position, "expected value of type %q, found null", target.String())
		}
		return &Constant{}, nil
	}

	t := target.Nullable()
	if t.Kind == schema.TypeRefKindList {
		elem := t.OfType
		list := &List{}
		if v.Kind == language.ListValue {
			for _, child := range v.Children {
				e, err := b.build(child.Value, elem, nil)
				if err != nil {
					return nil, err
				}
				list.Items = append(list.Items, e)
			}
		} else {
			e, err := b.build(v, elem, nil)
			if err != nil {
				return nil, err
			}
			list.Items = []Evaluator{e}
		}
		if enum := b.flagSetOf(elem); enum != nil {
			return fold(&FlagSet{Enum: enum, Items: list})
		}
		return fold(list)
	}

	named := b.mapper.schema.TypeOf(t)
	if named == nil {
		return nil, badRequestf(v.Position, "unknown type %q", t.String())
	}
	switch named.Kind {
	case schema.TypeKindScalar:
		val, err := named.Codec().ParseLiteral(v)
		if err != nil {
			return nil, inputErrorf(v.Position, "%s", err.Error())
		}
		return &Constant{Value: val}, nil
	case schema.TypeKindEnum:
		if v.Kind != language.EnumValue {
			return nil, inputErrorf(v.Position, "Enum %q cannot represent non-enum value: %s", named.Name, v.String())
		}
		val, err := named.ParseEnum(v.Raw)
		if err != nil {
			return nil, inputErrorf(v.Position, "%s", err.Error())
		}
		return &Constant{Value: val}, nil
	case schema.TypeKindInputObject:
		if v.Kind != language.ObjectValue {
			return nil, inputErrorf(v.Position, "expected value of type %q, found %s", named.Name, v.String())
		}
		return b.buildObject(v, named)
	}
	return nil, badRequestf(v.Position, "type %q is not an input type", named.Name)
}

func (b *evalBuilder) buildObject(v *language.Value, t *schema.Type) (Evaluator, error) {
	for _, child := range v.Children {
		if t.InputField(child.Name) == nil {
			return nil, inputErrorf(child.Position, "field %q is not defined by type %q", child.Name, t.Name)
		}
	}
	obj := &InputObject{Type: t, Position: v.Position}
	for _, iv := range t.InputFields {
		var (
			e   Evaluator
			err error
		)
		switch child := v.Children.ForName(iv.Name); {
		case child != nil:
			e, err = b.build(child, iv.Type, iv)
		case iv.HasDefault:
			e, err = b.mapper.defaultOf(iv)
		case !iv.Type.IsNonNull():
			e = &Constant{}
		default:
			return nil, inputErrorf(v.Position, "MissingRequiredField: field %q of required type %q was not provided", t.Name+"."+iv.Name, iv.Type.String())
		}
		if err != nil {
			return nil, err
		}
		obj.Fields = append(obj.Fields, ObjectField{Name: iv.Name, Eval: b.mapper.withValueHooks(e, iv)})
	}
	return fold(obj)
}

func (b *evalBuilder) buildVariable(v *language.Value, target *schema.TypeRef, loc *schema.InputValue) (Evaluator, error) {
	if b.variables == nil {
		return nil, badRequestf(v.Position, "variable $%s is not allowed in a constant value", v.Raw)
	}
	vd := b.variables[v.Raw]
	if vd == nil {
		return nil, badRequestf(v.Position, "variable $%s is not defined", v.Raw)
	}
	locDefault := loc != nil && loc.HasDefault
	if !isAssignable(vd.Type, target, vd.Default != nil || locDefault) {
		return nil, badRequestf(v.Position, "variable $%s of type %q used in position expecting type %q", vd.Name, vd.Type.String(), target.String())
	}
	ref := &VariableReference{Name: vd.Name, NonNull: target.IsNonNull(), Position: v.Position}
	if locDefault {
		def, err := b.mapper.defaultOf(loc)
		if err != nil {
			return nil, err
		}
		ref.Default = def
	}
	if t := target.Nullable(); t.Kind == schema.TypeRefKindList {
		if enum := b.flagSetOf(t.OfType); enum != nil {
			return &FlagSet{Enum: enum, Items: ref}, nil
		}
	}
	return ref, nil
}

// flagSetOf returns the flag-set enum named by the element type, or nil.
func (b *evalBuilder) flagSetOf(elem *schema.TypeRef) *schema.Type {
	if elem.Nullable().Kind != schema.TypeRefKindNamed {
		return nil
	}
	if t := b.mapper.schema.TypeOf(elem); t != nil && t.Kind == schema.TypeKindEnum && t.FlagSet {
		return t
	}
	return nil
}

// isAssignable reports whether a variable of type varType may be used where
// locType is expected. A nullable variable may flow into a non-null position
// when a default value covers the absent case.
func isAssignable(varType, locType *schema.TypeRef, hasDefault bool) bool {
	if locType.IsNonNull() && !varType.IsNonNull() {
		return hasDefault && isSubtype(varType, locType.OfType)
	}
	return isSubtype(varType, locType)
}

func isSubtype(sub, super *schema.TypeRef) bool {
	if super.IsNonNull() {
		return sub.IsNonNull() && isSubtype(sub.OfType, super.OfType)
	}
	if sub.IsNonNull() {
		return isSubtype(sub.OfType, super)
	}
	if super.Kind == schema.TypeRefKindList {
		return sub.Kind == schema.TypeRefKindList && isSubtype(sub.OfType, super.OfType)
	}
	return sub.Kind == schema.TypeRefKindNamed && sub.Named == super.Named
}
