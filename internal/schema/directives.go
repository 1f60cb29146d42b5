package schema

import "context"

// DirectiveHandler is the runtime behaviour bound to a directive definition. A
// handler implements any of SelectionHook, ValueHook and SchemaHook.
type DirectiveHandler any

// SelectionHook runs before a selection item is resolved. Returning skip omits
// the item and everything below it.
type SelectionHook interface {
	BeforeResolve(ctx context.Context, args map[string]any) (skip bool, err error)
}

// ValueHook runs on an evaluated input value and may replace or reject it.
type ValueHook interface {
	TransformValue(ctx context.Context, args map[string]any, value any) (any, error)
}

// SchemaHook runs once while the schema is finalized for every model
// occurrence of the directive.
type SchemaHook interface {
	ApplyToSchema(site DirectiveSite, args map[string]any) error
}

// DirectiveSite is the schema element a model directive is declared on.
// Exactly one of the element pointers is set.
type DirectiveSite struct {
	Schema     *Schema
	Type       *Type
	Field      *Field
	InputValue *InputValue
	EnumValue  *EnumValue
}

// SelectionHookFunc adapts a function to SelectionHook.
type SelectionHookFunc func(ctx context.Context, args map[string]any) (bool, error)

func (f SelectionHookFunc) BeforeResolve(ctx context.Context, args map[string]any) (bool, error) {
	return f(ctx, args)
}

// ValueHookFunc adapts a function to ValueHook.
type ValueHookFunc func(ctx context.Context, args map[string]any, value any) (any, error)

func (f ValueHookFunc) TransformValue(ctx context.Context, args map[string]any, value any) (any, error) {
	return f(ctx, args, value)
}

// Directive definition lookup that tolerates schemas without a directive map.
func (s *Schema) Directive(name string) *Directive {
	if s.Directives == nil {
		return nil
	}
	return s.Directives[name]
}

func (s *Schema) applySchemaHooks() error {
	apply := func(uses []*DirectiveUse, site DirectiveSite) error {
		for _, use := range uses {
			d := s.Directive(use.Name)
			if d == nil {
				continue
			}
			if h, ok := d.Handler.(SchemaHook); ok {
				if err := h.ApplyToSchema(site, use.Args); err != nil {
					return err
				}
			}
		}
		return nil
	}
	for _, t := range s.Types {
		if err := apply(t.Directives, DirectiveSite{Schema: s, Type: t}); err != nil {
			return err
		}
		for _, f := range t.Fields {
			if err := apply(f.Directives, DirectiveSite{Schema: s, Field: f}); err != nil {
				return err
			}
			for _, a := range f.Arguments {
				if err := apply(a.Directives, DirectiveSite{Schema: s, InputValue: a}); err != nil {
					return err
				}
			}
		}
		for _, iv := range t.InputFields {
			if err := apply(iv.Directives, DirectiveSite{Schema: s, InputValue: iv}); err != nil {
				return err
			}
		}
		for _, ev := range t.EnumValues {
			if err := apply(ev.Directives, DirectiveSite{Schema: s, EnumValue: ev}); err != nil {
				return err
			}
		}
	}
	return nil
}
