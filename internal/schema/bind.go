package schema

import "fmt"

// BindResolver attaches r to typeName.fieldName.
func (s *Schema) BindResolver(typeName, fieldName string, r *Resolver) error {
	f, err := s.lookupField(typeName, fieldName)
	if err != nil {
		return err
	}
	f.Resolver = r
	return nil
}

// BindFunc attaches an invocable resolver function to typeName.fieldName.
func (s *Schema) BindFunc(typeName, fieldName string, fn func(p ResolveParams) (any, error)) error {
	return s.BindResolver(typeName, fieldName, &Resolver{Resolve: fn})
}

// BindMethod attaches an invocable resolver bound to a per-request instance
// of class.
func (s *Schema) BindMethod(typeName, fieldName string, class *ResolverClass, fn func(p ResolveParams) (any, error)) error {
	return s.BindResolver(typeName, fieldName, &Resolver{Class: class, Resolve: fn})
}

// BindBatch attaches a batched resolver to typeName.fieldName.
func (s *Schema) BindBatch(typeName, fieldName string, fn func(p BatchParams) ([]any, error)) error {
	return s.BindResolver(typeName, fieldName, &Resolver{Batch: fn})
}

// BindAccessor attaches a direct accessor to typeName.fieldName.
func (s *Schema) BindAccessor(typeName, fieldName string, fn func(source any) (any, error)) error {
	return s.BindResolver(typeName, fieldName, &Resolver{Accessor: fn})
}

// BindTypeResolver sets the concrete type lookup of an interface or union.
func (s *Schema) BindTypeResolver(typeName string, fn func(value any) (string, bool)) error {
	t := s.Types[typeName]
	if t == nil || !t.Kind.IsAbstract() {
		return fmt.Errorf("%q is not an interface or union type", typeName)
	}
	t.ResolveType = fn
	return nil
}

// BindScalar sets the codec of a custom scalar.
func (s *Schema) BindScalar(typeName string, codec ScalarCodec) error {
	t := s.Types[typeName]
	if t == nil || t.Kind != TypeKindScalar {
		return fmt.Errorf("%q is not a scalar type", typeName)
	}
	t.Scalar = codec
	return nil
}

// BindEnumValues maps enum value names to host values.
func (s *Schema) BindEnumValues(typeName string, values map[string]any) error {
	t := s.Types[typeName]
	if t == nil || t.Kind != TypeKindEnum {
		return fmt.Errorf("%q is not an enum type", typeName)
	}
	for name, v := range values {
		ev := t.EnumValue(name)
		if ev == nil {
			return fmt.Errorf("enum %q has no value %q", typeName, name)
		}
		ev.Value = v
	}
	return nil
}

// BindDirective sets the runtime handler of a declared directive.
func (s *Schema) BindDirective(name string, h DirectiveHandler) error {
	d := s.Directive(name)
	if d == nil {
		return fmt.Errorf("directive @%s is not defined", name)
	}
	d.Handler = h
	return nil
}

func (s *Schema) lookupField(typeName, fieldName string) (*Field, error) {
	t := s.Types[typeName]
	if t == nil {
		return nil, fmt.Errorf("type %q is not defined", typeName)
	}
	f := t.Field(fieldName)
	if f == nil {
		return nil, fmt.Errorf("type %q has no field %q", typeName, fieldName)
	}
	return f, nil
}
