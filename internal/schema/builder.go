package schema

import (
	"fmt"
	"sort"
)

// NewSchema creates an empty schema carrying the specified scalars and the
// built-in directives.
func NewSchema(description string) *Schema {
	s := &Schema{
		Description: description,
		Types:       map[string]*Type{},
		Directives:  map[string]*Directive{},
	}
	for _, t := range builtinScalars() {
		s.AddType(t)
	}
	s.AddDirective(newIncludeDirective()).
		AddDirective(newSkipDirective()).
		AddDirective(newDeprecatedDirective()).
		AddDirective(newFlagsDirective())
	return s
}

func (s *Schema) SetQueryType(name string) *Schema {
	s.QueryType = name
	return s
}

func (s *Schema) SetMutationType(name string) *Schema {
	s.MutationType = name
	return s
}

func (s *Schema) SetSubscriptionType(name string) *Schema {
	s.SubscriptionType = name
	return s
}

func (s *Schema) SetVersion(version string) *Schema {
	s.Version = version
	return s
}

func (s *Schema) AddType(t *Type) *Schema {
	if s.Types == nil {
		s.Types = map[string]*Type{}
	}
	s.Types[t.Name] = t
	return s
}

func (s *Schema) AddDirective(d *Directive) *Schema {
	if s.Directives == nil {
		s.Directives = map[string]*Directive{}
	}
	s.Directives[d.Name] = d
	return s
}

// Finalize prepares a fully assembled schema for request mapping: it indexes
// fields, derives interface implementors, runs schema-time directive hooks and
// checks type references. It must be called once, after binding and before the
// schema is shared.
func (s *Schema) Finalize() error {
	if s.QueryType == "" || s.Types[s.QueryType] == nil {
		return fmt.Errorf("query root type %q is not defined", s.QueryType)
	}
	for _, root := range []string{s.MutationType, s.SubscriptionType} {
		if root != "" && s.Types[root] == nil {
			return fmt.Errorf("root type %q is not defined", root)
		}
	}

	names := make([]string, 0, len(s.Types))
	for name := range s.Types {
		names = append(names, name)
	}
	sort.Strings(names)

	implementors := map[string][]string{}
	for _, name := range names {
		t := s.Types[name]
		if t.Kind != TypeKindObject {
			continue
		}
		for _, iface := range t.Interfaces {
			implementors[iface] = append(implementors[iface], name)
		}
	}

	for _, name := range names {
		t := s.Types[name]
		if t.Kind == TypeKindInterface && len(t.PossibleTypes) == 0 {
			t.PossibleTypes = implementors[name]
		}
		if t.Kind.IsAbstract() {
			for _, pt := range t.PossibleTypes {
				if s.Types[pt] == nil || s.Types[pt].Kind != TypeKindObject {
					return fmt.Errorf("possible type %q of %q is not an object type", pt, name)
				}
			}
		}
		t.fieldIndex = make(map[string]*Field, len(t.Fields))
		for _, f := range t.Fields {
			if err := s.checkRef(f.Type); err != nil {
				return fmt.Errorf("field %s.%s: %w", name, f.Name, err)
			}
			for _, a := range f.Arguments {
				if err := s.checkRef(a.Type); err != nil {
					return fmt.Errorf("argument %s.%s(%s): %w", name, f.Name, a.Name, err)
				}
			}
			t.fieldIndex[f.Name] = f
		}
		for _, iv := range t.InputFields {
			if err := s.checkRef(iv.Type); err != nil {
				return fmt.Errorf("input field %s.%s: %w", name, iv.Name, err)
			}
		}
	}
	if err := s.applySchemaHooks(); err != nil {
		return err
	}
	for _, name := range names {
		if t := s.Types[name]; t.FlagSet && len(t.EnumValues) > maxFlagValues {
			return fmt.Errorf("flag set enum %q has %d values, at most %d are allowed", name, len(t.EnumValues), maxFlagValues)
		}
	}
	return nil
}

func (s *Schema) checkRef(ref *TypeRef) error {
	if ref == nil {
		return fmt.Errorf("missing type")
	}
	if name := ref.GetNamedType(); s.Types[name] == nil {
		return fmt.Errorf("unknown type %q", name)
	}
	return nil
}

// NewType creates a named type of the given kind.
func NewType(name string, kind TypeKind, description string) *Type {
	return &Type{Name: name, Kind: kind, Description: description}
}

func (t *Type) AddField(f *Field) *Type {
	t.Fields = append(t.Fields, f)
	if t.fieldIndex != nil {
		t.fieldIndex[f.Name] = f
	}
	return t
}

func (t *Type) AddInterface(name string) *Type {
	t.Interfaces = append(t.Interfaces, name)
	return t
}

func (t *Type) AddPossibleType(name string) *Type {
	t.PossibleTypes = append(t.PossibleTypes, name)
	return t
}

func (t *Type) AddEnumValue(v *EnumValue) *Type {
	t.EnumValues = append(t.EnumValues, v)
	return t
}

func (t *Type) AddInputField(v *InputValue) *Type {
	t.InputFields = append(t.InputFields, v)
	return t
}

func (t *Type) AddDirective(use *DirectiveUse) *Type {
	t.Directives = append(t.Directives, use)
	return t
}

func (t *Type) SetOneOf(oneOf bool) *Type {
	t.OneOf = oneOf
	return t
}

func (t *Type) SetScalar(codec ScalarCodec) *Type {
	t.Scalar = codec
	return t
}

func (t *Type) SetResolveType(fn func(value any) (string, bool)) *Type {
	t.ResolveType = fn
	return t
}

// SetFlagSet marks an enum as a flag set and assigns a bit to every value
// without an explicit host value.
func (t *Type) SetFlagSet(flagSet bool) *Type {
	t.FlagSet = flagSet
	if flagSet {
		t.assignFlagBits()
	}
	return t
}

// NewField creates a field definition.
func NewField(name, description string, typ *TypeRef) *Field {
	return &Field{Name: name, Description: description, Type: typ}
}

func (f *Field) AddArgument(arg *InputValue) *Field {
	f.Arguments = append(f.Arguments, arg)
	return f
}

func (f *Field) AddDirective(use *DirectiveUse) *Field {
	f.Directives = append(f.Directives, use)
	return f
}

func (f *Field) SetResolver(r *Resolver) *Field {
	f.Resolver = r
	return f
}

func (f *Field) Deprecate(reason string) *Field {
	f.IsDeprecated = true
	f.DeprecationReason = reason
	return f
}

// NewInputValue creates an argument or input field definition.
func NewInputValue(name, description string, typ *TypeRef) *InputValue {
	return &InputValue{Name: name, Description: description, Type: typ}
}

// SetDefault sets a host default value.
func (v *InputValue) SetDefault(value any) *InputValue {
	v.DefaultValue = value
	v.HasDefault = true
	return v
}

func (v *InputValue) AddDirective(use *DirectiveUse) *InputValue {
	v.Directives = append(v.Directives, use)
	return v
}

func (v *InputValue) Deprecate(reason string) *InputValue {
	v.IsDeprecated = true
	v.DeprecationReason = reason
	return v
}

// NewEnumValue creates an enum value definition.
func NewEnumValue(name, description string) *EnumValue {
	return &EnumValue{Name: name, Description: description}
}

func (v *EnumValue) SetValue(value any) *EnumValue {
	v.Value = value
	return v
}

func (v *EnumValue) Deprecate(reason string) *EnumValue {
	v.IsDeprecated = true
	v.DeprecationReason = reason
	return v
}

// NewDirective creates a directive definition without a handler.
func NewDirective(name, description string) *Directive {
	return &Directive{Name: name, Description: description}
}

func (d *Directive) SetRepeatable(repeatable bool) *Directive {
	d.IsRepeatable = repeatable
	return d
}

func (d *Directive) AddArgument(arg *InputValue) *Directive {
	d.Arguments = append(d.Arguments, arg)
	return d
}

func (d *Directive) AddLocation(locations ...string) *Directive {
	d.Locations = append(d.Locations, locations...)
	return d
}

func (d *Directive) SetHandler(h DirectiveHandler) *Directive {
	d.Handler = h
	return d
}

// Argument returns the argument definition with the given name, or nil.
func (d *Directive) Argument(name string) *InputValue {
	for _, a := range d.Arguments {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// HasLocation reports whether the directive may be used at location.
func (d *Directive) HasLocation(location string) bool {
	for _, l := range d.Locations {
		if l == location {
			return true
		}
	}
	return false
}
