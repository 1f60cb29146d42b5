package schema

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
)

const testSDL = `
schema { query: Query mutation: Mutation }

interface Character {
  id: ID!
  name: String
}

type Human implements Character {
  id: ID!
  name: String
  height(unit: Unit = METER): Float
}

type Droid implements Character {
  id: ID!
  name: String
  primaryFunction: String @deprecated(reason: "use functions")
}

union SearchResult = Human | Droid

enum Unit { METER FOOT }

enum Permission @flags { READ WRITE ADMIN }

input ReviewInput {
  stars: Int!
  commentary: String = "none"
}

type Query {
  hero: Character
  search(text: String!): [SearchResult!]!
  perms(set: [Permission!]!): [Permission!]!
}

type Mutation {
  review(input: ReviewInput!): Boolean
}
`

func mustBuildSchema(t *testing.T, sdl string) *Schema {
	t.Helper()
	s, err := BuildFromSDL(sdl)
	require.NoError(t, err)
	return s
}

func TestBuildFromSDL(t *testing.T) {
	s := mustBuildSchema(t, testSDL)

	require.Equal(t, "Query", s.QueryType)
	require.Equal(t, "Mutation", s.MutationType)
	require.NotEmpty(t, s.Version)

	t.Run("interface implementors", func(t *testing.T) {
		character := s.Types["Character"]
		if diff := cmp.Diff([]string{"Droid", "Human"}, character.PossibleTypes); diff != "" {
			t.Fatalf("PossibleTypes mismatch (-want +got):\n%s", diff)
		}
		var names []string
		for _, ct := range s.ConcreteTypes(character) {
			names = append(names, ct.Name)
		}
		if diff := cmp.Diff([]string{"Droid", "Human"}, names); diff != "" {
			t.Fatalf("ConcreteTypes mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("union members keep declaration order", func(t *testing.T) {
		if diff := cmp.Diff([]string{"Human", "Droid"}, s.Types["SearchResult"].PossibleTypes); diff != "" {
			t.Fatalf("PossibleTypes mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("type references", func(t *testing.T) {
		search := s.Types["Query"].Field("search")
		require.Equal(t, "[SearchResult!]!", search.Type.String())
		require.True(t, search.Type.IsList())
		require.Equal(t, "SearchResult", search.Type.GetNamedType())
		require.Equal(t, "String!", search.Argument("text").Type.String())
	})

	t.Run("deprecated hook", func(t *testing.T) {
		f := s.Types["Droid"].Field("primaryFunction")
		require.True(t, f.IsDeprecated)
		require.Equal(t, "use functions", f.DeprecationReason)
	})

	t.Run("flags hook", func(t *testing.T) {
		perm := s.Types["Permission"]
		require.True(t, perm.FlagSet)
		require.Equal(t, uint64(1), perm.EnumValue("READ").Value)
		require.Equal(t, uint64(2), perm.EnumValue("WRITE").Value)
		require.Equal(t, uint64(4), perm.EnumValue("ADMIN").Value)
	})

	t.Run("default literals", func(t *testing.T) {
		unit := s.Types["Human"].Field("height").Argument("unit")
		require.True(t, unit.HasDefault)
		require.Equal(t, ast.EnumValue, unit.DefaultLiteral.Kind)
		require.Equal(t, "METER", unit.DefaultLiteral.Raw)
		commentary := s.Types["ReviewInput"].InputField("commentary")
		require.Equal(t, "none", commentary.DefaultLiteral.Raw)
	})

	t.Run("builtin directives", func(t *testing.T) {
		for _, name := range []string{"skip", "include", "deprecated", "flags"} {
			require.NotNil(t, s.Directive(name), name)
			require.NotNil(t, s.Directive(name).Handler, name)
		}
	})
}

func TestBuildFromSDLRejectsInvalidSchema(t *testing.T) {
	_, err := BuildFromSDL(`type Query { a: Missing }`)
	require.Error(t, err)
}

func TestFinalize(t *testing.T) {
	t.Run("missing query type", func(t *testing.T) {
		s := NewSchema("")
		require.Error(t, s.Finalize())
	})
	t.Run("unknown field type", func(t *testing.T) {
		s := NewSchema("").SetQueryType("Query")
		s.AddType(NewType("Query", TypeKindObject, "").AddField(NewField("a", "", NamedType("Nope"))))
		require.ErrorContains(t, s.Finalize(), `unknown type "Nope"`)
	})
	t.Run("union of non-object", func(t *testing.T) {
		s := NewSchema("").SetQueryType("Query")
		s.AddType(NewType("Query", TypeKindObject, "").AddField(NewField("u", "", NamedType("U"))))
		s.AddType(NewType("U", TypeKindUnion, "").AddPossibleType("String"))
		require.Error(t, s.Finalize())
	})
}

func TestEnums(t *testing.T) {
	s := mustBuildSchema(t, testSDL)
	require.NoError(t, s.BindEnumValues("Unit", map[string]any{"METER": 1.0, "FOOT": 0.3048}))
	unit := s.Types["Unit"]

	v, err := unit.ParseEnum("FOOT")
	require.NoError(t, err)
	require.Equal(t, 0.3048, v)

	_, err = unit.ParseEnum("MILE")
	require.Error(t, err)

	name, err := unit.SerializeEnum(1.0)
	require.NoError(t, err)
	require.Equal(t, "METER", name)

	_, err = unit.SerializeEnum(2.0)
	require.Error(t, err)

	require.Error(t, s.BindEnumValues("Unit", map[string]any{"MILE": 1}))
}

func TestFlagSet(t *testing.T) {
	s := mustBuildSchema(t, testSDL)
	perm := s.Types["Permission"]

	t.Run("combine is order independent", func(t *testing.T) {
		a, err := perm.CombineFlagValues([]any{uint64(1), uint64(4)})
		require.NoError(t, err)
		b, err := perm.CombineFlagValues([]any{uint64(4), uint64(1)})
		require.NoError(t, err)
		require.Equal(t, uint64(5), a)
		require.Equal(t, a, b)
	})

	t.Run("empty is no flags", func(t *testing.T) {
		v, err := perm.CombineFlagValues(nil)
		require.NoError(t, err)
		require.Equal(t, uint64(0), v)
	})

	t.Run("serialize lists names", func(t *testing.T) {
		v, err := perm.SerializeEnum(uint64(6))
		require.NoError(t, err)
		if diff := cmp.Diff([]any{"WRITE", "ADMIN"}, v); diff != "" {
			t.Fatalf("flags mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("mask width", func(t *testing.T) {
		sdl := func(n int) string {
			values := make([]string, n)
			for i := range values {
				values[i] = fmt.Sprintf("V%d", i)
			}
			return "type Query { a: Wide }\nenum Wide @flags { " + strings.Join(values, " ") + " }"
		}

		wide, err := BuildFromSDL(sdl(64))
		require.NoError(t, err)
		last := wide.Types["Wide"].EnumValues[63]
		require.Equal(t, uint64(1)<<63, last.Value)

		_, err = BuildFromSDL(sdl(65))
		require.ErrorContains(t, err, `flag set enum "Wide" has 65 values, at most 64 are allowed`)
	})

	t.Run("custom combine", func(t *testing.T) {
		perm.CombineFlags = func(values []any) (any, error) { return len(values), nil }
		defer func() { perm.CombineFlags = nil }()
		v, err := perm.CombineFlagValues([]any{uint64(1), uint64(2)})
		require.NoError(t, err)
		require.Equal(t, 2, v)
	})
}

func TestBuiltinScalars(t *testing.T) {
	s := NewSchema("")
	lit := func(kind ast.ValueKind, raw string) *ast.Value { return &ast.Value{Kind: kind, Raw: raw} }

	tests := []struct {
		name    string
		scalar  string
		literal *ast.Value
		want    any
		wantErr bool
	}{
		{"int", "Int", lit(ast.IntValue, "42"), 42, false},
		{"int overflow", "Int", lit(ast.IntValue, "4294967296"), nil, true},
		{"int from string", "Int", lit(ast.StringValue, "42"), nil, true},
		{"float from int", "Float", lit(ast.IntValue, "3"), 3.0, false},
		{"float", "Float", lit(ast.FloatValue, "1.5"), 1.5, false},
		{"string", "String", lit(ast.StringValue, "x"), "x", false},
		{"string from enum", "String", lit(ast.EnumValue, "X"), nil, true},
		{"boolean", "Boolean", lit(ast.BooleanValue, "true"), true, false},
		{"id from int", "ID", lit(ast.IntValue, "7"), "7", false},
		{"id from float", "ID", lit(ast.FloatValue, "7.5"), nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Types[tt.scalar].Codec().ParseLiteral(tt.literal)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	t.Run("variable values", func(t *testing.T) {
		v, err := s.Types["Int"].Codec().ParseValue(float64(3))
		require.NoError(t, err)
		require.Equal(t, 3, v)
		_, err = s.Types["Int"].Codec().ParseValue(3.5)
		require.Error(t, err)
		_, err = s.Types["String"].Codec().ParseValue(3)
		require.Error(t, err)
	})

	t.Run("serialize", func(t *testing.T) {
		v, err := s.Types["ID"].Codec().Serialize(int64(9))
		require.NoError(t, err)
		require.Equal(t, "9", v)
		v, err = s.Types["String"].Codec().Serialize(12)
		require.NoError(t, err)
		require.Equal(t, "12", v)
		_, err = s.Types["Boolean"].Codec().Serialize("yes")
		require.Error(t, err)
	})
}

type human struct {
	ID   string
	Name string `graphql:"displayName"`
}

func (h *human) Greeting() string { return "hi " + h.Name }

type droid struct{ ID string }

func (droid) GraphQLTypeName() string { return "Droid" }

func TestLookupByValue(t *testing.T) {
	s := mustBuildSchema(t, testSDL)
	character := s.Types["Character"]
	s.BindHostType(&human{}, "Human")

	require.Equal(t, "Human", s.LookupByValue(character, &human{}).Name)
	require.Equal(t, "Droid", s.LookupByValue(character, droid{}).Name)
	require.Equal(t, "Droid", s.LookupByValue(character, map[string]any{"__typename": "Droid"}).Name)
	require.Nil(t, s.LookupByValue(character, map[string]any{"__typename": "Query"}))
	require.Nil(t, s.LookupByValue(character, 12))

	require.NoError(t, s.BindTypeResolver("Character", func(any) (string, bool) { return "Droid", true }))
	require.Equal(t, "Droid", s.LookupByValue(character, &human{}).Name)

	require.Error(t, s.BindTypeResolver("Human", nil))
}

func TestPropertyAccessor(t *testing.T) {
	h := &human{ID: "1", Name: "Luke"}
	tests := []struct {
		name   string
		source any
		prop   string
		want   any
	}{
		{"map key", map[string]any{"id": "x"}, "id", "x"},
		{"field by name", h, "id", "1"},
		{"field by tag", h, "displayName", "Luke"},
		{"method", h, "greeting", "hi Luke"},
		{"typed map", map[string]int{"n": 3}, "n", 3},
		{"nil source", nil, "id", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PropertyAccessor(tt.prop)(tt.source)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := PropertyAccessor("missing")(h)
	require.Error(t, err)
}

func TestFutures(t *testing.T) {
	ctx := context.Background()

	v, err := Go(func() (any, error) { return "done", nil }).Await(ctx)
	require.NoError(t, err)
	require.Equal(t, "done", v)

	_, err = Go(func() (any, error) { panic("boom") }).Await(ctx)
	require.ErrorContains(t, err, "boom")

	block := make(chan struct{})
	defer close(block)
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = Go(func() (any, error) { <-block; return nil, nil }).Await(cctx)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestBindErrors(t *testing.T) {
	s := mustBuildSchema(t, testSDL)
	require.Error(t, s.BindFunc("Nope", "x", nil))
	require.Error(t, s.BindFunc("Query", "nope", nil))
	require.Error(t, s.BindScalar("Query", ScalarFuncs{}))
	require.Error(t, s.BindDirective("nope", nil))
	require.NoError(t, s.BindFunc("Query", "hero", func(ResolveParams) (any, error) { return nil, nil }))
	require.False(t, s.Types["Query"].Field("hero").Resolver.IsAccessor())
	require.True(t, s.Types["Human"].Field("name").EffectiveResolver().IsAccessor())
}

func TestRender(t *testing.T) {
	s := mustBuildSchema(t, testSDL)
	out := Render(s)

	for _, want := range []string{
		"interface Character {\n  id: ID!\n  name: String\n}\n",
		"type Human implements Character {\n  id: ID!\n  name: String\n  height(unit: Unit = METER): Float\n}\n",
		`  primaryFunction: String @deprecated(reason: "use functions")`,
		"union SearchResult = Human | Droid\n",
		"enum Permission @flags {\n",
		`  commentary: String = "none"`,
	} {
		require.Contains(t, out, want)
	}
	require.NotContains(t, out, "scalar String")
	require.NotContains(t, out, "directive @skip")
	require.NotContains(t, out, "schema {")

	again := Render(mustBuildSchema(t, out))
	if diff := cmp.Diff(out, again); diff != "" {
		t.Fatalf("render is not stable (-want +got):\n%s", diff)
	}
}

func TestRenderBuiltSchema(t *testing.T) {
	s := NewSchema("")
	s.SetQueryType("Root")
	s.AddType(NewType("Color", TypeKindEnum, "").
		AddEnumValue(NewEnumValue("RED", "")).
		AddEnumValue(NewEnumValue("GREEN", "")))
	s.AddType(NewType("Root", TypeKindObject, "Entry point.").
		AddField(NewField("paint", "", NamedType("Boolean")).
			AddArgument(NewInputValue("color", "", NamedType("Color")).SetDefault("GREEN")).
			AddArgument(NewInputValue("tags", "", ListType(NamedType("String"))).SetDefault([]any{"a", "b"}))))
	require.NoError(t, s.Finalize())

	want := `schema {
  query: Root
}

enum Color {
  RED
  GREEN
}

"Entry point."
type Root {
  paint(color: Color = GREEN, tags: [String] = ["a", "b"]): Boolean
}
`
	if diff := cmp.Diff(want, Render(s)); diff != "" {
		t.Fatalf("rendered SDL mismatch (-want +got):\n%s", diff)
	}
}
