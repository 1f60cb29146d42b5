package mapping

import (
	"context"

	language "github.com/hanpama/gqlexec/internal/language"
	"github.com/hanpama/gqlexec/internal/schema"
)

// Directive locations in request documents.
const (
	locationQuery          = "QUERY"
	locationMutation       = "MUTATION"
	locationSubscription   = "SUBSCRIPTION"
	locationField          = "FIELD"
	locationFragmentSpread = "FRAGMENT_SPREAD"
	locationInlineFragment = "INLINE_FRAGMENT"
	locationVariableDef    = "VARIABLE_DEFINITION"
)

// RuntimeDirective binds a directive definition to one occurrence, either
// declared on the schema model or written in the request.
type RuntimeDirective struct {
	Def      *schema.Directive
	Model    bool
	Args     []*MappedArg
	Position *language.Position

	// static holds argument values computed at mapping time when no
	// argument references a variable.
	static map[string]any
}

// ArgValues returns the directive arguments for this execution.
func (d *RuntimeDirective) ArgValues(ec *EvalContext) (map[string]any, error) {
	if d.static != nil {
		return d.static, nil
	}
	args := make(map[string]any, len(d.Args))
	for _, a := range d.Args {
		v, err := a.Evaluate(ec)
		if err != nil {
			return nil, err
		}
		args[a.Def.Name] = v
	}
	return args, nil
}

// Skip runs the selection hook of the directive, if it has one.
func (d *RuntimeDirective) Skip(ec *EvalContext) (bool, error) {
	hook, ok := d.Def.Handler.(schema.SelectionHook)
	if !ok {
		return false, nil
	}
	args, err := d.ArgValues(ec)
	if err != nil {
		return false, err
	}
	skip, err := hook.BeforeResolve(ec.context(), args)
	if err != nil {
		return false, locate(err, d.Position)
	}
	return skip, nil
}

// ShouldSkip evaluates the selection hooks of dirs in order.
func ShouldSkip(ec *EvalContext, dirs []*RuntimeDirective) (bool, error) {
	for _, d := range dirs {
		skip, err := d.Skip(ec)
		if err != nil || skip {
			return skip, err
		}
	}
	return false, nil
}

// modelDirectives converts directive uses declared on the schema. Arguments
// of model directives are always static.
func (m *Mapper) modelDirectives(uses []*schema.DirectiveUse) []*RuntimeDirective {
	var out []*RuntimeDirective
	for _, use := range uses {
		def := m.schema.Directive(use.Name)
		if def == nil || def.Handler == nil {
			continue
		}
		static := make(map[string]any, len(def.Arguments))
		for _, a := range def.Arguments {
			if v, ok := use.Args[a.Name]; ok {
				static[a.Name] = v
				continue
			}
			if a.HasDefault {
				if e, err := m.defaultOf(a); err == nil {
					static[a.Name], _ = e.Evaluate(nil)
				}
			}
		}
		out = append(out, &RuntimeDirective{Def: def, Model: true, static: static})
	}
	return out
}

// withValueHooks wraps e with the value hooks of model directives declared on
// the input value iv.
func (m *Mapper) withValueHooks(e Evaluator, iv *schema.InputValue) Evaluator {
	var hooks []*RuntimeDirective
	for _, rd := range m.modelDirectives(iv.Directives) {
		if _, ok := rd.Def.Handler.(schema.ValueHook); ok {
			hooks = append(hooks, rd)
		}
	}
	if len(hooks) == 0 {
		return e
	}
	return &Directed{Inner: e, Hooks: hooks}
}

// requestDirectives maps directives written in the request at location.
func (m *Mapper) requestDirectives(list language.DirectiveList, location string, b *evalBuilder, errs *errorSet) []*RuntimeDirective {
	var out []*RuntimeDirective
	seen := map[string]bool{}
	for _, d := range list {
		def := m.schema.Directive(d.Name)
		if def == nil {
			errs.add(badRequestf(d.Position, "unknown directive @%s", d.Name))
			continue
		}
		if !def.HasLocation(location) {
			errs.add(badRequestf(d.Position, "directive @%s may not be used on %s", d.Name, location))
			continue
		}
		if seen[d.Name] && !def.IsRepeatable {
			errs.add(badRequestf(d.Position, "directive @%s can only be used once at this location", d.Name))
			continue
		}
		seen[d.Name] = true
		args, ok := m.mapArgs(def.Arguments, d.Arguments, "directive @"+d.Name, d.Position, b, errs)
		if !ok {
			continue
		}
		rd := &RuntimeDirective{Def: def, Args: args, Position: d.Position}
		if allConstant(args) {
			rd.static, _ = rd.ArgValues(&EvalContext{Context: context.Background()})
			if rd.static == nil {
				rd.static = map[string]any{}
			}
		}
		out = append(out, rd)
	}
	return out
}

func allConstant(args []*MappedArg) bool {
	for _, a := range args {
		if !a.Eval.IsConstant() {
			return false
		}
	}
	return true
}

// mapArgs binds supplied arguments to their definitions. It reports whether
// every argument could be mapped.
func (m *Mapper) mapArgs(defs []*schema.InputValue, supplied language.ArgumentList, owner string, pos *language.Position, b *evalBuilder, errs *errorSet) ([]*MappedArg, bool) {
	ok := true
	for _, a := range supplied {
		if !hasInputValue(defs, a.Name) {
			errs.add(badRequestf(a.Position, "unknown argument %q on %s", a.Name, owner))
			ok = false
		}
	}
	args := make([]*MappedArg, 0, len(defs))
	for _, def := range defs {
		var (
			e      Evaluator
			err    error
			argPos = pos
		)
		switch a := supplied.ForName(def.Name); {
		case a != nil:
			argPos = a.Position
			e, err = b.build(a.Value, def.Type, def)
		case def.HasDefault:
			e, err = m.defaultOf(def)
		case !def.Type.IsNonNull():
			e = &Constant{}
		default:
			err = badRequestf(pos, "MissingArgument: argument %q of required type %q on %s was not provided", def.Name, def.Type.String(), owner)
		}
		if err != nil {
			errs.add(err)
			ok = false
			continue
		}
		args = append(args, &MappedArg{Def: def, Eval: m.withValueHooks(e, def), Position: argPos})
	}
	return args, ok
}

func hasInputValue(defs []*schema.InputValue, name string) bool {
	for _, d := range defs {
		if d.Name == name {
			return true
		}
	}
	return false
}
