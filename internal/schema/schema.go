// Package schema is the read-only schema model consumed by request mapping and
// execution. A Schema is assembled once (through the builder API or
// BuildFromSDL), bound to resolvers, and never mutated while requests run.
package schema

import (
	"reflect"
	"sync"

	language "github.com/hanpama/gqlexec/internal/language"
)

// Schema represents the complete GraphQL schema
type Schema struct {
	QueryType        string
	MutationType     string
	SubscriptionType string
	Types            map[string]*Type // All named types keyed by name
	Directives       map[string]*Directive
	Description      string

	// Version distinguishes schema generations in mapped-operation cache keys.
	Version string

	hostTypes sync.Map // reflect.Type -> *Type
}

// GetQueryType returns the root query type (may be nil if absent)
func (s *Schema) GetQueryType() *Type { return s.Types[s.QueryType] }

// GetMutationType returns the root mutation type (may be nil if absent)
func (s *Schema) GetMutationType() *Type { return s.Types[s.MutationType] }

// GetSubscriptionType returns the root subscription type (may be nil if absent)
func (s *Schema) GetSubscriptionType() *Type { return s.Types[s.SubscriptionType] }

// Type is a named GraphQL type (object, interface, union, scalar, enum, input)
type Type struct {
	Name           string
	Kind           TypeKind
	Description    string
	Fields         []*Field      // For OBJECT and INTERFACE
	Interfaces     []string      // For OBJECT and INTERFACE (implemented/extended)
	PossibleTypes  []string      // For INTERFACE and UNION
	EnumValues     []*EnumValue  // For ENUM
	InputFields    []*InputValue // For INPUT_OBJECT
	SpecifiedByURL *string
	OneOf          bool

	// FlagSet marks an enum whose values combine into a bitmask.
	FlagSet bool
	// Directives are model directives declared on the type.
	Directives []*DirectiveUse
	// Scalar converts literals, input values and output values of a scalar.
	Scalar ScalarCodec
	// ResolveType maps a value of an abstract type to a concrete object type
	// name. It reports false when it cannot decide.
	ResolveType func(value any) (string, bool)
	// CombineFlags folds evaluated flag-set enum values into one value. When
	// nil, values are OR-ed as unsigned integers.
	CombineFlags func(values []any) (any, error)

	fieldIndex map[string]*Field
}

// Field represents a field on an object or interface
type Field struct {
	Name              string
	Description       string
	Type              *TypeRef
	Arguments         []*InputValue // formerly ArgumentDefinitionMap
	Resolver          *Resolver
	Directives        []*DirectiveUse
	IsDeprecated      bool
	DeprecationReason string
}

// TypeKind represents the kind of GraphQL type
type TypeKind string

const (
	TypeKindScalar      TypeKind = "SCALAR"
	TypeKindObject      TypeKind = "OBJECT"
	TypeKindInterface   TypeKind = "INTERFACE"
	TypeKindUnion       TypeKind = "UNION"
	TypeKindEnum        TypeKind = "ENUM"
	TypeKindInputObject TypeKind = "INPUT_OBJECT"
)

// IsComposite reports whether values of this kind carry a selection set.
func (k TypeKind) IsComposite() bool {
	return k == TypeKindObject || k == TypeKindInterface || k == TypeKindUnion
}

// IsAbstract reports whether the kind is an interface or union.
func (k TypeKind) IsAbstract() bool {
	return k == TypeKindInterface || k == TypeKindUnion
}

// IsLeaf reports whether the kind is a scalar or enum.
func (k TypeKind) IsLeaf() bool {
	return k == TypeKindScalar || k == TypeKindEnum
}

// TypeRef represents a reference to a type (can be wrapped)
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef // For List and NonNull
	Named  string   // For named types
}

type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

// Helper functions for TypeRef
func (t *TypeRef) IsNonNull() bool {
	return t != nil && t.Kind == TypeRefKindNonNull
}

func (t *TypeRef) IsList() bool {
	if t.Kind == TypeRefKindList {
		return true
	}
	if t.Kind == TypeRefKindNonNull && t.OfType != nil {
		return t.OfType.Kind == TypeRefKindList
	}
	return false
}

func (t *TypeRef) Unwrap() *TypeRef {
	if t.Kind == TypeRefKindNonNull || t.Kind == TypeRefKindList {
		return t.OfType
	}
	return t
}

// Nullable strips a Non-Null wrapper if present.
func (t *TypeRef) Nullable() *TypeRef {
	if t.IsNonNull() {
		return t.OfType
	}
	return t
}

func (t *TypeRef) GetNamedType() string {
	current := t
	for current != nil {
		if current.Named != "" {
			return current.Named
		}
		current = current.OfType
	}
	return ""
}

// Equal reports whether two references denote the same wrapped type.
func (t *TypeRef) Equal(o *TypeRef) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind || t.Named != o.Named {
		return false
	}
	if t.OfType == nil || o.OfType == nil {
		return t.OfType == o.OfType
	}
	return t.OfType.Equal(o.OfType)
}

func (t *TypeRef) String() string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case TypeRefKindNonNull:
		return t.OfType.String() + "!"
	case TypeRefKindList:
		return "[" + t.OfType.String() + "]"
	default:
		return t.Named
	}
}

type EnumValue struct {
	Name        string
	Description string
	// Value is the host value the name maps to. Flag-set enums use unsigned
	// integer bits.
	Value             any
	Directives        []*DirectiveUse
	IsDeprecated      bool
	DeprecationReason string
}

type InputValue struct {
	Name              string
	Description       string
	Type              *TypeRef
	DefaultValue      any
	HasDefault        bool
	// DefaultLiteral is the default as written in SDL. When set it takes
	// precedence over DefaultValue and is converted against Type.
	DefaultLiteral    *language.Value
	Directives        []*DirectiveUse
	IsDeprecated      bool
	DeprecationReason string
}

type Directive struct {
	Name         string
	Description  string
	Locations    []string
	Arguments    []*InputValue // formerly ArgumentDefinitionMap
	IsRepeatable bool
	Handler      DirectiveHandler
}

// DirectiveUse is a directive occurrence declared on the schema model.
type DirectiveUse struct {
	Name string
	Args map[string]any
}

func NonNullType(t *TypeRef) *TypeRef { return &TypeRef{Kind: TypeRefKindNonNull, OfType: t} }
func ListType(t *TypeRef) *TypeRef    { return &TypeRef{Kind: TypeRefKindList, OfType: t} }
func NamedType(name string) *TypeRef  { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }

// Field returns the field with the given name, or nil.
func (t *Type) Field(name string) *Field {
	if t.fieldIndex != nil {
		return t.fieldIndex[name]
	}
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// InputField returns the input field with the given name, or nil.
func (t *Type) InputField(name string) *InputValue {
	for _, f := range t.InputFields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Implements reports whether t declares the interface named iface.
func (t *Type) Implements(iface string) bool {
	for _, name := range t.Interfaces {
		if name == iface {
			return true
		}
	}
	return false
}

// HasPossibleType reports whether name is one of the union members or
// interface implementors of t.
func (t *Type) HasPossibleType(name string) bool {
	for _, p := range t.PossibleTypes {
		if p == name {
			return true
		}
	}
	return false
}

// Argument returns the argument definition with the given name, or nil.
func (f *Field) Argument(name string) *InputValue {
	for _, a := range f.Arguments {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// TypeOf resolves the named type of a reference.
func (s *Schema) TypeOf(ref *TypeRef) *Type {
	if ref == nil {
		return nil
	}
	return s.Types[ref.GetNamedType()]
}

// ConcreteTypes returns the object types a value of t may have at runtime:
// t itself for objects, implementors for interfaces and members for unions.
func (s *Schema) ConcreteTypes(t *Type) []*Type {
	switch t.Kind {
	case TypeKindObject:
		return []*Type{t}
	case TypeKindInterface, TypeKindUnion:
		out := make([]*Type, 0, len(t.PossibleTypes))
		for _, name := range t.PossibleTypes {
			if pt := s.Types[name]; pt != nil && pt.Kind == TypeKindObject {
				out = append(out, pt)
			}
		}
		return out
	}
	return nil
}

// BindHostType registers the Go type of sample as the host representation of
// the object type typeName, so LookupByValue can map instances back to it.
func (s *Schema) BindHostType(sample any, typeName string) *Schema {
	if t := s.Types[typeName]; t != nil {
		s.hostTypes.Store(reflect.TypeOf(sample), t)
	}
	return s
}

// TypeNamer is implemented by host values that know their GraphQL type name.
type TypeNamer interface {
	GraphQLTypeName() string
}

// LookupByValue maps a runtime value of the abstract type t to one of its
// concrete object types. The type's ResolveType hook wins, then registered host
// types, then a "__typename" map key, then TypeNamer.
func (s *Schema) LookupByValue(t *Type, value any) *Type {
	if t.Kind == TypeKindObject {
		return t
	}
	accept := func(name string) *Type {
		ct := s.Types[name]
		if ct == nil || ct.Kind != TypeKindObject {
			return nil
		}
		if t.Kind.IsAbstract() && !t.HasPossibleType(name) {
			return nil
		}
		return ct
	}
	if t.ResolveType != nil {
		if name, ok := t.ResolveType(value); ok {
			return accept(name)
		}
	}
	if v, ok := s.hostTypes.Load(reflect.TypeOf(value)); ok {
		return accept(v.(*Type).Name)
	}
	if m, ok := value.(map[string]any); ok {
		if name, ok := m["__typename"].(string); ok {
			return accept(name)
		}
	}
	if n, ok := value.(TypeNamer); ok {
		return accept(n.GraphQLTypeName())
	}
	return nil
}
