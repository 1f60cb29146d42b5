// Package introspection adds the __schema and __type root fields and the
// introspection types to a finalized schema, with resolvers reading the
// schema model itself.
package introspection

import (
	"fmt"
	"sort"

	schema "github.com/hanpama/gqlexec/internal/schema"
)

// Install extends s with introspection. It must run after s is finalized and
// before it serves requests.
func Install(s *schema.Schema) error {
	query := s.GetQueryType()
	if query == nil {
		return fmt.Errorf("schema has no query type")
	}
	if s.Types["__Schema"] != nil {
		return fmt.Errorf("introspection is already installed")
	}
	for _, t := range introspectionTypes() {
		s.AddType(t)
	}
	query.AddField(schema.NewField("__schema", "Access the current type schema of this server.", nonNull("__Schema")))
	query.AddField(schema.NewField("__type", "Request the type information of a single type.", named("__Type")).
		AddArgument(schema.NewInputValue("name", "The name of the type to look up.", nonNull("String"))))

	r := &resolvers{schema: s}
	binds := []error{
		s.BindAccessor(query.Name, "__schema", func(any) (any, error) { return s, nil }),
		s.BindFunc(query.Name, "__type", r.typeByName),

		s.BindAccessor("__Schema", "description", func(any) (any, error) { return optional(s.Description), nil }),
		s.BindAccessor("__Schema", "types", r.schemaTypes),
		s.BindAccessor("__Schema", "queryType", func(any) (any, error) { return r.root(s.QueryType), nil }),
		s.BindAccessor("__Schema", "mutationType", func(any) (any, error) { return r.root(s.MutationType), nil }),
		s.BindAccessor("__Schema", "subscriptionType", func(any) (any, error) { return r.root(s.SubscriptionType), nil }),
		s.BindAccessor("__Schema", "directives", r.schemaDirectives),

		s.BindAccessor("__Type", "kind", r.typeKind),
		s.BindAccessor("__Type", "name", r.namedOnly(func(t *schema.Type) any { return t.Name })),
		s.BindAccessor("__Type", "description", r.namedOnly(func(t *schema.Type) any { return optional(t.Description) })),
		s.BindAccessor("__Type", "specifiedByURL", r.namedOnly(func(t *schema.Type) any {
			if t.SpecifiedByURL == nil {
				return nil
			}
			return *t.SpecifiedByURL
		})),
		s.BindFunc("__Type", "fields", r.typeFields),
		s.BindAccessor("__Type", "interfaces", r.namedOnly(func(t *schema.Type) any {
			if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
				return nil
			}
			return r.refs(t.Interfaces)
		})),
		s.BindAccessor("__Type", "possibleTypes", r.namedOnly(func(t *schema.Type) any {
			if !t.Kind.IsAbstract() {
				return nil
			}
			return r.refs(t.PossibleTypes)
		})),
		s.BindFunc("__Type", "enumValues", r.typeEnumValues),
		s.BindFunc("__Type", "inputFields", r.typeInputFields),
		s.BindAccessor("__Type", "ofType", func(source any) (any, error) {
			ref := source.(*schema.TypeRef)
			if ref.Kind == schema.TypeRefKindNamed {
				return nil, nil
			}
			return ref.OfType, nil
		}),
		s.BindAccessor("__Type", "isOneOf", r.namedOnly(func(t *schema.Type) any {
			if t.Kind != schema.TypeKindInputObject {
				return nil
			}
			return t.OneOf
		})),

		s.BindAccessor("__Field", "name", func(source any) (any, error) { return source.(*schema.Field).Name, nil }),
		s.BindAccessor("__Field", "description", func(source any) (any, error) { return optional(source.(*schema.Field).Description), nil }),
		s.BindFunc("__Field", "args", func(p schema.ResolveParams) (any, error) {
			return inputValues(p.Source.(*schema.Field).Arguments, p), nil
		}),
		s.BindAccessor("__Field", "type", func(source any) (any, error) { return source.(*schema.Field).Type, nil }),
		s.BindAccessor("__Field", "isDeprecated", func(source any) (any, error) { return source.(*schema.Field).IsDeprecated, nil }),
		s.BindAccessor("__Field", "deprecationReason", func(source any) (any, error) {
			f := source.(*schema.Field)
			return deprecationReason(f.IsDeprecated, f.DeprecationReason), nil
		}),

		s.BindAccessor("__InputValue", "name", func(source any) (any, error) { return source.(*schema.InputValue).Name, nil }),
		s.BindAccessor("__InputValue", "description", func(source any) (any, error) { return optional(source.(*schema.InputValue).Description), nil }),
		s.BindAccessor("__InputValue", "type", func(source any) (any, error) { return source.(*schema.InputValue).Type, nil }),
		s.BindAccessor("__InputValue", "defaultValue", func(source any) (any, error) { return defaultValue(source.(*schema.InputValue)), nil }),
		s.BindAccessor("__InputValue", "isDeprecated", func(source any) (any, error) { return source.(*schema.InputValue).IsDeprecated, nil }),
		s.BindAccessor("__InputValue", "deprecationReason", func(source any) (any, error) {
			iv := source.(*schema.InputValue)
			return deprecationReason(iv.IsDeprecated, iv.DeprecationReason), nil
		}),

		s.BindAccessor("__EnumValue", "name", func(source any) (any, error) { return source.(*schema.EnumValue).Name, nil }),
		s.BindAccessor("__EnumValue", "description", func(source any) (any, error) { return optional(source.(*schema.EnumValue).Description), nil }),
		s.BindAccessor("__EnumValue", "isDeprecated", func(source any) (any, error) { return source.(*schema.EnumValue).IsDeprecated, nil }),
		s.BindAccessor("__EnumValue", "deprecationReason", func(source any) (any, error) {
			ev := source.(*schema.EnumValue)
			return deprecationReason(ev.IsDeprecated, ev.DeprecationReason), nil
		}),

		s.BindAccessor("__Directive", "name", func(source any) (any, error) { return source.(*schema.Directive).Name, nil }),
		s.BindAccessor("__Directive", "description", func(source any) (any, error) { return optional(source.(*schema.Directive).Description), nil }),
		s.BindAccessor("__Directive", "isRepeatable", func(source any) (any, error) { return source.(*schema.Directive).IsRepeatable, nil }),
		s.BindAccessor("__Directive", "locations", func(source any) (any, error) { return source.(*schema.Directive).Locations, nil }),
		s.BindFunc("__Directive", "args", func(p schema.ResolveParams) (any, error) {
			return inputValues(p.Source.(*schema.Directive).Arguments, p), nil
		}),
	}
	for _, err := range binds {
		if err != nil {
			return fmt.Errorf("failed to bind introspection resolvers: %w", err)
		}
	}
	return nil
}

// resolvers reads the schema model. __Type values are *schema.TypeRef, so
// wrapped and named types share one representation.
type resolvers struct {
	schema *schema.Schema
}

func (r *resolvers) typeByName(p schema.ResolveParams) (any, error) {
	name, _ := p.Arg("name").(string)
	if r.schema.Types[name] == nil {
		return nil, nil
	}
	return schema.NamedType(name), nil
}

func (r *resolvers) root(name string) any {
	if name == "" || r.schema.Types[name] == nil {
		return nil
	}
	return schema.NamedType(name)
}

func (r *resolvers) schemaTypes(any) (any, error) {
	names := make([]string, 0, len(r.schema.Types))
	for name := range r.schema.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	return r.refs(names), nil
}

func (r *resolvers) schemaDirectives(any) (any, error) {
	dirs := make([]*schema.Directive, 0, len(r.schema.Directives))
	for _, d := range r.schema.Directives {
		dirs = append(dirs, d)
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name < dirs[j].Name })
	return dirs, nil
}

func (r *resolvers) refs(names []string) []*schema.TypeRef {
	out := make([]*schema.TypeRef, 0, len(names))
	for _, name := range names {
		if r.schema.Types[name] != nil {
			out = append(out, schema.NamedType(name))
		}
	}
	return out
}

func (r *resolvers) typeKind(source any) (any, error) {
	ref := source.(*schema.TypeRef)
	switch ref.Kind {
	case schema.TypeRefKindNonNull:
		return "NON_NULL", nil
	case schema.TypeRefKindList:
		return "LIST", nil
	}
	t := r.schema.Types[ref.Named]
	if t == nil {
		return nil, fmt.Errorf("type %q is not defined", ref.Named)
	}
	return string(t.Kind), nil
}

func (r *resolvers) typeFields(p schema.ResolveParams) (any, error) {
	t := r.named(p.Source)
	if t == nil || (t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface) {
		return nil, nil
	}
	withDeprecated, _ := p.Arg("includeDeprecated").(bool)
	out := []*schema.Field{}
	for _, f := range t.Fields {
		if isMeta(f.Name) || (f.IsDeprecated && !withDeprecated) {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func (r *resolvers) typeEnumValues(p schema.ResolveParams) (any, error) {
	t := r.named(p.Source)
	if t == nil || t.Kind != schema.TypeKindEnum {
		return nil, nil
	}
	withDeprecated, _ := p.Arg("includeDeprecated").(bool)
	out := []*schema.EnumValue{}
	for _, ev := range t.EnumValues {
		if ev.IsDeprecated && !withDeprecated {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (r *resolvers) typeInputFields(p schema.ResolveParams) (any, error) {
	t := r.named(p.Source)
	if t == nil || t.Kind != schema.TypeKindInputObject {
		return nil, nil
	}
	return inputValues(t.InputFields, p), nil
}

// named returns the schema type of a named reference, or nil for wrappers.
func (r *resolvers) named(source any) *schema.Type {
	ref := source.(*schema.TypeRef)
	if ref.Kind != schema.TypeRefKindNamed {
		return nil
	}
	return r.schema.Types[ref.Named]
}

// namedOnly adapts a projection of a named type. Wrapper types yield null.
func (r *resolvers) namedOnly(fn func(t *schema.Type) any) func(source any) (any, error) {
	return func(source any) (any, error) {
		t := r.named(source)
		if t == nil {
			return nil, nil
		}
		return fn(t), nil
	}
}

func inputValues(values []*schema.InputValue, p schema.ResolveParams) []*schema.InputValue {
	withDeprecated, _ := p.Arg("includeDeprecated").(bool)
	out := []*schema.InputValue{}
	for _, iv := range values {
		if iv.IsDeprecated && !withDeprecated {
			continue
		}
		out = append(out, iv)
	}
	return out
}

func defaultValue(iv *schema.InputValue) any {
	if iv.DefaultLiteral != nil {
		return iv.DefaultLiteral.String()
	}
	if iv.HasDefault {
		return fmt.Sprintf("%v", iv.DefaultValue)
	}
	return nil
}

func deprecationReason(deprecated bool, reason string) any {
	if !deprecated {
		return nil
	}
	return reason
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isMeta(name string) bool {
	return len(name) > 1 && name[0] == '_' && name[1] == '_'
}
