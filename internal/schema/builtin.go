package schema

import (
	"context"
	"fmt"
)

var stringType = &Type{
	Name:        "String",
	Kind:        TypeKindScalar,
	Description: "The `String` scalar type represents textual data, represented as UTF-8 character sequences.",
	Scalar:      stringCodec,
}

var intType = &Type{
	Name:        "Int",
	Kind:        TypeKindScalar,
	Description: "The `Int` scalar type represents non-fractional signed whole numeric values.",
	Scalar:      intCodec,
}

var floatType = &Type{
	Name:        "Float",
	Kind:        TypeKindScalar,
	Description: "The `Float` scalar type represents signed double-precision fractional values.",
	Scalar:      floatCodec,
}

var booleanType = &Type{
	Name:        "Boolean",
	Kind:        TypeKindScalar,
	Description: "The `Boolean` scalar type represents `true` or `false`.",
	Scalar:      booleanCodec,
}

var idType = &Type{
	Name:        "ID",
	Kind:        TypeKindScalar,
	Description: "The `ID` scalar type represents a unique identifier, often used to refetch an object or as a key for caching.",
	Scalar:      idCodec,
}

// builtinScalars returns fresh copies so schemas never share mutable types.
func builtinScalars() []*Type {
	out := make([]*Type, 0, 5)
	for _, t := range []*Type{stringType, intType, floatType, booleanType, idType} {
		c := *t
		out = append(out, &c)
	}
	return out
}

// IsBuiltinScalar reports whether name is one of the specified scalars.
func IsBuiltinScalar(name string) bool {
	switch name {
	case "String", "Int", "Float", "Boolean", "ID":
		return true
	}
	return false
}

func newIncludeDirective() *Directive {
	return &Directive{
		Name:        "include",
		Description: "Directs the executor to include this field or fragment only when the `if` argument is true.",
		Arguments: []*InputValue{
			{
				Name:        "if",
				Description: "Included when true.",
				Type:        NonNullType(NamedType("Boolean")),
			},
		},
		Locations: []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"},
		Handler:   includeHandler{},
	}
}

func newSkipDirective() *Directive {
	return &Directive{
		Name:        "skip",
		Description: "Directs the executor to skip this field or fragment when the `if` argument is true.",
		Arguments: []*InputValue{
			{
				Name:        "if",
				Description: "Skipped when true.",
				Type:        NonNullType(NamedType("Boolean")),
			},
		},
		Locations: []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"},
		Handler:   skipHandler{},
	}
}

func newDeprecatedDirective() *Directive {
	return &Directive{
		Name:        "deprecated",
		Description: "Marks an element of a GraphQL schema as no longer supported.",
		Arguments: []*InputValue{
			{
				Name:         "reason",
				Type:         NamedType("String"),
				DefaultValue: DefaultDeprecationReason,
				HasDefault:   true,
			},
		},
		Locations: []string{"FIELD_DEFINITION", "ARGUMENT_DEFINITION", "INPUT_FIELD_DEFINITION", "ENUM_VALUE"},
		Handler:   deprecatedHandler{},
	}
}

func newFlagsDirective() *Directive {
	return &Directive{
		Name:        "flags",
		Description: "Marks an enum as a flag set whose values combine into one bitmask.",
		Locations:   []string{"ENUM"},
		Handler:     flagsHandler{},
	}
}

// DefaultDeprecationReason is used when @deprecated carries no reason.
const DefaultDeprecationReason = "No longer supported"

type skipHandler struct{}

func (skipHandler) BeforeResolve(_ context.Context, args map[string]any) (bool, error) {
	v, ok := args["if"].(bool)
	if !ok {
		return false, fmt.Errorf("directive @skip requires a Boolean \"if\" argument")
	}
	return v, nil
}

type includeHandler struct{}

func (includeHandler) BeforeResolve(_ context.Context, args map[string]any) (bool, error) {
	v, ok := args["if"].(bool)
	if !ok {
		return false, fmt.Errorf("directive @include requires a Boolean \"if\" argument")
	}
	return !v, nil
}

type deprecatedHandler struct{}

func (deprecatedHandler) ApplyToSchema(site DirectiveSite, args map[string]any) error {
	reason, _ := args["reason"].(string)
	if reason == "" {
		reason = DefaultDeprecationReason
	}
	switch {
	case site.Field != nil:
		site.Field.Deprecate(reason)
	case site.InputValue != nil:
		site.InputValue.Deprecate(reason)
	case site.EnumValue != nil:
		site.EnumValue.Deprecate(reason)
	default:
		return fmt.Errorf("directive @deprecated is not allowed here")
	}
	return nil
}

type flagsHandler struct{}

func (flagsHandler) ApplyToSchema(site DirectiveSite, _ map[string]any) error {
	if site.Type == nil || site.Type.Kind != TypeKindEnum {
		return fmt.Errorf("directive @flags may only be used on enums")
	}
	site.Type.SetFlagSet(true)
	return nil
}
