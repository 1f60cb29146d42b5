package schema

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// sdlPrelude declares the directives this engine adds to the specified set.
const sdlPrelude = `
"Marks an enum as a flag set whose values combine into one bitmask."
directive @flags on ENUM
`

// BuildFromSDL parses and validates SDL and returns the corresponding finalized
// Schema. Resolvers, scalar codecs and directive handlers may be bound
// afterwards through the Bind helpers.
func BuildFromSDL(sdl string) (*Schema, error) {
	doc, err := gqlparser.LoadSchema(
		&ast.Source{Name: "prelude.graphql", Input: sdlPrelude, BuiltIn: true},
		&ast.Source{Name: "schema.graphql", Input: sdl},
	)
	if err != nil {
		return nil, err
	}

	s := NewSchema(doc.Description)
	s.SetVersion(strconv.FormatUint(xxhash.Sum64String(sdl), 16))
	if doc.Query != nil {
		s.SetQueryType(doc.Query.Name)
	}
	if doc.Mutation != nil {
		s.SetMutationType(doc.Mutation.Name)
	}
	if doc.Subscription != nil {
		s.SetSubscriptionType(doc.Subscription.Name)
	}

	for name, def := range doc.Types {
		if strings.HasPrefix(name, "__") {
			continue
		}
		if def.Kind == ast.Scalar && IsBuiltinScalar(name) {
			continue
		}
		s.AddType(buildDefinition(def))
	}
	for name, def := range doc.Directives {
		if s.Directives[name] != nil {
			continue
		}
		s.AddDirective(buildDirective(def))
	}
	if err := s.Finalize(); err != nil {
		return nil, err
	}
	return s, nil
}

func buildDefinition(def *ast.Definition) *Type {
	var t *Type
	switch def.Kind {
	case ast.Object, ast.Interface:
		kind := TypeKindObject
		if def.Kind == ast.Interface {
			kind = TypeKindInterface
		}
		t = NewType(def.Name, kind, def.Description)
		for _, name := range def.Interfaces {
			t.AddInterface(name)
		}
		for _, fd := range def.Fields {
			if strings.HasPrefix(fd.Name, "__") {
				continue
			}
			t.AddField(buildField(fd))
		}
	case ast.Union:
		t = NewType(def.Name, TypeKindUnion, def.Description)
		for _, name := range def.Types {
			t.AddPossibleType(name)
		}
	case ast.Enum:
		t = NewType(def.Name, TypeKindEnum, def.Description)
		for _, ev := range def.EnumValues {
			v := NewEnumValue(ev.Name, ev.Description)
			v.Directives = buildDirectiveUses(ev.Directives)
			t.AddEnumValue(v)
		}
	case ast.InputObject:
		t = NewType(def.Name, TypeKindInputObject, def.Description)
		for _, fd := range def.Fields {
			t.AddInputField(buildInputValue(fd.Name, fd.Description, fd.Type, fd.DefaultValue, fd.Directives))
		}
		t.SetOneOf(def.Directives.ForName("oneOf") != nil)
	default:
		t = NewType(def.Name, TypeKindScalar, def.Description)
		if d := def.Directives.ForName("specifiedBy"); d != nil {
			if arg := d.Arguments.ForName("url"); arg != nil && arg.Value != nil {
				url := arg.Value.Raw
				t.SpecifiedByURL = &url
			}
		}
	}
	t.Directives = buildDirectiveUses(def.Directives)
	return t
}

func buildField(fd *ast.FieldDefinition) *Field {
	f := NewField(fd.Name, fd.Description, TypeRefFromAST(fd.Type))
	for _, arg := range fd.Arguments {
		f.AddArgument(buildInputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue, arg.Directives))
	}
	f.Directives = buildDirectiveUses(fd.Directives)
	return f
}

func buildInputValue(name, description string, typ *ast.Type, def *ast.Value, dirs ast.DirectiveList) *InputValue {
	in := NewInputValue(name, description, TypeRefFromAST(typ))
	if def != nil {
		in.DefaultLiteral = def
		in.HasDefault = true
	}
	in.Directives = buildDirectiveUses(dirs)
	return in
}

// TypeRefFromAST converts a parsed type reference.
func TypeRefFromAST(t *ast.Type) *TypeRef {
	var ref *TypeRef
	if t.Elem != nil {
		ref = ListType(TypeRefFromAST(t.Elem))
	} else {
		ref = NamedType(t.NamedType)
	}
	if t.NonNull {
		ref = NonNullType(ref)
	}
	return ref
}

func buildDirective(def *ast.DirectiveDefinition) *Directive {
	d := NewDirective(def.Name, def.Description).SetRepeatable(def.IsRepeatable)
	for _, loc := range def.Locations {
		d.AddLocation(string(loc))
	}
	for _, arg := range def.Arguments {
		d.AddArgument(buildInputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue, arg.Directives))
	}
	return d
}

// buildDirectiveUses keeps directive arguments as plain values. Defaults of
// omitted arguments are filled from the definition when one is known.
func buildDirectiveUses(list ast.DirectiveList) []*DirectiveUse {
	if len(list) == 0 {
		return nil
	}
	uses := make([]*DirectiveUse, 0, len(list))
	for _, d := range list {
		use := &DirectiveUse{Name: d.Name, Args: map[string]any{}}
		for _, arg := range d.Arguments {
			v, err := arg.Value.Value(nil)
			if err == nil {
				use.Args[arg.Name] = v
			}
		}
		if d.Definition != nil {
			for _, ad := range d.Definition.Arguments {
				if _, ok := use.Args[ad.Name]; ok || ad.DefaultValue == nil {
					continue
				}
				if v, err := ad.DefaultValue.Value(nil); err == nil {
					use.Args[ad.Name] = v
				}
			}
		}
		uses = append(uses, use)
	}
	return uses
}
