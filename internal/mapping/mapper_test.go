package mapping

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/gqlexec/internal/gqlerrors"
	language "github.com/hanpama/gqlexec/internal/language"
	"github.com/hanpama/gqlexec/internal/schema"
)

const testSDL = `
interface Character {
  id: ID!
  name: String
  friends: [Character]
}

type Human implements Character {
  id: ID!
  name: String
  friends: [Character]
  height(unit: Unit = METER): Float
}

type Droid implements Character {
  id: ID!
  name: String
  friends: [Character]
  primaryFunction: String
}

union SearchResult = Human | Droid

enum Unit { METER FOOT }

enum Permission @flags { READ WRITE ADMIN }

input ReviewInput {
  stars: Int!
  commentary: String = "none"
}

input Pick @oneOf {
  byId: ID
  byName: String
}

type Query {
  hero: Character
  human(id: ID!): Human
  search(text: String!): [SearchResult!]!
  ids(list: [Int!]): [Int!]
  nonNullList(list: [Int]!): Int
  perms(set: [Permission!]): [Permission!]
  review(input: ReviewInput): Boolean
  pick(by: Pick!): Character
  greeting(name: String): String
}

type Mutation {
  rename(name: String!): String
}
`

func mustBuildSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.BuildFromSDL(testSDL)
	require.NoError(t, err)
	return s
}

func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	doc, err := language.ParseQuery(q)
	require.NoError(t, err)
	return doc
}

func mustMap(t *testing.T, q string) *Operation {
	t.Helper()
	op, errs := NewMapper(mustBuildSchema(t)).Map(mustParseQuery(t, q), "")
	require.Empty(t, errs)
	require.NotNil(t, op)
	return op
}

func mapErrors(t *testing.T, q string) []gqlerrors.GraphQLError {
	t.Helper()
	op, errs := NewMapper(mustBuildSchema(t)).Map(mustParseQuery(t, q), "")
	require.Nil(t, op)
	require.NotEmpty(t, errs)
	return errs
}

func messages(errs []gqlerrors.GraphQLError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Message
	}
	return out
}

// keys flattens the response keys of a mapped item set, following spreads.
func keys(ms *MappedItemSet) []string {
	var out []string
	for _, item := range ms.Items {
		switch item := item.(type) {
		case *MappedField:
			out = append(out, item.Key)
		case *MappedFragmentSpread:
			out = append(out, keys(item.Items)...)
		}
	}
	return out
}

func rootField(t *testing.T, op *Operation, i int) *MappedField {
	t.Helper()
	items := op.RootItems().Items
	require.Greater(t, len(items), i)
	mf, ok := items[i].(*MappedField)
	require.True(t, ok)
	return mf
}

func TestFragmentCycles(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"self", `{ hero { ...A } } fragment A on Character { name ...A }`},
		{"pair", `{ hero { ...A } } fragment A on Character { ...B } fragment B on Character { id ...A }`},
		{"through inline fragment", `{ hero { ...A } } fragment A on Character { ... on Human { ...A } }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := mapErrors(t, tt.query)
			require.Contains(t, errs[0].Message, "CircularFragmentReference")
			require.Equal(t, gqlerrors.KindBadRequest, errs[0].Kind)
			require.NotEmpty(t, errs[0].Locations)
		})
	}

	t.Run("nested self reference is legal", func(t *testing.T) {
		op := mustMap(t, `{ hero { ...F } } fragment F on Character { name friends { ...F } }`)
		human := op.Schema.Types["Human"]

		hero := rootField(t, op, 0)
		spread := hero.Subset.ItemsFor(human).Items[0].(*MappedFragmentSpread)
		friends := spread.Items.Items[1].(*MappedField)
		require.Equal(t, "friends", friends.Key)
		inner := friends.Subset.ItemsFor(human).Items[0].(*MappedFragmentSpread)
		require.Same(t, spread.Items, inner.Items)
	})
}

func TestFragmentLevels(t *testing.T) {
	op := mustMap(t, `
		{ hero { ...A } }
		fragment A on Character { ...B name }
		fragment B on Character { ... on Human { ...C } }
		fragment C on Character { id }
	`)
	var names []string
	var levels []int
	for _, f := range op.Fragments {
		names = append(names, f.Name)
		levels = append(levels, f.Level())
	}
	if diff := cmp.Diff([]string{"C", "B", "A"}, names); diff != "" {
		t.Fatalf("fragment order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, levels); diff != "" {
		t.Fatalf("fragment levels mismatch (-want +got):\n%s", diff)
	}
	a := op.Fragments[2]
	require.Len(t, a.UsesFragments, 1)
	require.Len(t, a.UsesFragmentsAll, 2)
	require.Contains(t, a.UsesFragmentsAll, "C")
}

func TestPolymorphicExpansion(t *testing.T) {
	op := mustMap(t, `{
		hero {
			id
			... on Droid { primaryFunction }
			... on Human { height }
		}
	}`)
	hero := rootField(t, op, 0)
	human, droid := op.Schema.Types["Human"], op.Schema.Types["Droid"]

	if diff := cmp.Diff([]string{"id", "height"}, keys(hero.Subset.ItemsFor(human))); diff != "" {
		t.Fatalf("Human items mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"id", "primaryFunction"}, keys(hero.Subset.ItemsFor(droid))); diff != "" {
		t.Fatalf("Droid items mismatch (-want +got):\n%s", diff)
	}
	require.Nil(t, hero.Subset.ItemsFor(op.Schema.Types["Query"]))

	height := hero.Subset.ItemsFor(human).Items[1].(*MappedFragmentSpread).Items.Items[0].(*MappedField)
	require.Same(t, human, height.ObjectType)
	require.Equal(t, "Float", height.ReturnType.Name)
}

func TestUnionSelection(t *testing.T) {
	op := mustMap(t, `{ search(text: "r2") { __typename ... on Human { height } ... on Droid { primaryFunction } } }`)
	search := rootField(t, op, 0)
	droid := op.Schema.Types["Droid"]
	if diff := cmp.Diff([]string{"__typename", "primaryFunction"}, keys(search.Subset.ItemsFor(droid))); diff != "" {
		t.Fatalf("Droid items mismatch (-want +got):\n%s", diff)
	}
	require.True(t, search.Subset.ItemsFor(droid).Items[0].(*MappedField).Typename)

	errs := mapErrors(t, `{ search(text: "r2") { nope } }`)
	if diff := cmp.Diff([]string{`cannot query field "nope" on type "SearchResult"`}, messages(errs)); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestMappingErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "field missing on interface",
			query: `{ hero { height } }`,
			want:  []string{`cannot query field "height" on type "Character"`},
		},
		{
			name:  "unknown and missing arguments",
			query: `{ human(nope: 1) { id } }`,
			want: []string{
				`unknown argument "nope" on field "Query.human"`,
				`MissingArgument: argument "id" of required type "ID!" on field "Query.human" was not provided`,
			},
		},
		{
			name:  "subset on leaf",
			query: `{ greeting { x } }`,
			want:  []string{`field "greeting" must not have a selection since type "String" has no subfields`},
		},
		{
			name:  "missing subset",
			query: `{ hero }`,
			want:  []string{`field "hero" of type "Character" must have a selection of subfields`},
		},
		{
			name:  "incompatible spread",
			query: `{ human(id: 1) { ... on Droid { id } } }`,
			want:  []string{`fragment cannot be spread here as objects of type "Human" can never be of type "Droid"`},
		},
		{
			name:  "unknown fragment",
			query: `{ hero { ...Nope } }`,
			want:  []string{`unknown fragment "Nope"`},
		},
		{
			name:  "unknown directive",
			query: `{ greeting @nope }`,
			want:  []string{`unknown directive @nope`},
		},
		{
			name:  "directive in wrong location",
			query: `{ greeting @deprecated }`,
			want:  []string{`directive @deprecated may not be used on FIELD`},
		},
		{
			name:  "subscription without root type",
			query: `subscription { greeting }`,
			want:  []string{`schema does not support subscription operations`},
		},
		{
			name:  "fragment on scalar",
			query: `{ hero { ...F } } fragment F on String { id }`,
			want:  []string{`fragment "F" cannot condition on non composite type "String"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := mapErrors(t, tt.query)
			if diff := cmp.Diff(tt.want, messages(errs)); diff != "" {
				t.Fatalf("errors mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("subscription with root type", func(t *testing.T) {
		s, err := schema.BuildFromSDL(`
type Query { a: String }
type Subscription { tick: Int }
`)
		require.NoError(t, err)
		_, errs := NewMapper(s).Map(mustParseQuery(t, `subscription { tick }`), "")
		require.Equal(t, []string{`subscriptions are not supported`}, messages(errs))
	})

	t.Run("independent errors are all reported", func(t *testing.T) {
		errs := mapErrors(t, `{ hero greeting { x } human(id: 1) { nope } }`)
		require.Len(t, errs, 3)
		for _, e := range errs {
			require.Equal(t, gqlerrors.KindBadRequest, e.Kind)
		}
	})
}

func TestSelectOperation(t *testing.T) {
	s := mustBuildSchema(t)
	doc := mustParseQuery(t, `query A { greeting } mutation B { rename(name: "x") }`)
	m := NewMapper(s)

	op, errs := m.Map(doc, "B")
	require.Empty(t, errs)
	require.Equal(t, language.Mutation, op.Kind)
	require.Equal(t, "Mutation", op.RootType.Name)

	_, errs = m.Map(doc, "")
	require.Contains(t, errs[0].Message, "operation name is required")

	_, errs = m.Map(doc, "C")
	require.Equal(t, `operation "C" not found`, errs[0].Message)
}

func TestDirectivesAttach(t *testing.T) {
	op := mustMap(t, `query($s: Boolean!) { a: greeting @skip(if: true) b: greeting @include(if: $s) }`)
	a, b := rootField(t, op, 0), rootField(t, op, 1)

	require.Len(t, a.Directives, 1)
	require.Equal(t, map[string]any{"if": true}, a.Directives[0].static)
	skip, err := ShouldSkip(&EvalContext{}, a.Directives)
	require.NoError(t, err)
	require.True(t, skip)

	require.Nil(t, b.Directives[0].static)
	skip, err = ShouldSkip(&EvalContext{Variables: map[string]any{"s": false}}, b.Directives)
	require.NoError(t, err)
	require.True(t, skip)
	skip, err = ShouldSkip(&EvalContext{Variables: map[string]any{"s": true}}, b.Directives)
	require.NoError(t, err)
	require.False(t, skip)
}

func TestModelDirectives(t *testing.T) {
	s := mustBuildSchema(t)
	s.AddDirective(schema.NewDirective("upper", "").AddLocation("ARGUMENT_DEFINITION").
		SetHandler(schema.ValueHookFunc(func(_ context.Context, _ map[string]any, v any) (any, error) {
			return strings.ToUpper(v.(string)), nil
		})))
	s.Types["Query"].Field("greeting").Argument("name").AddDirective(&schema.DirectiveUse{Name: "upper"})

	op, errs := NewMapper(s).Map(mustParseQuery(t, `{ greeting(name: "luke") }`), "")
	require.Empty(t, errs)
	mf := op.RootItems().Items[0].(*MappedField)
	_, args, err := mf.ArgValues(&EvalContext{})
	require.NoError(t, err)
	require.Equal(t, "LUKE", args["name"])
}

func TestReturnTypeDirectives(t *testing.T) {
	s, err := schema.BuildFromSDL(`
directive @hidden on OBJECT | FIELD_DEFINITION

type Secret @hidden {
  code: String
}

type Query {
  secret: Secret
  open: String @hidden
  plain: String
}
`)
	require.NoError(t, err)
	require.NoError(t, s.BindDirective("hidden", schema.SelectionHookFunc(func(context.Context, map[string]any) (bool, error) {
		return true, nil
	})))

	op, errs := NewMapper(s).Map(mustParseQuery(t, `{ secret { code } open plain @include(if: true) }`), "")
	require.Empty(t, errs)

	for i, want := range []struct {
		key   string
		dirs  []string
		model []bool
		skip  bool
	}{
		{key: "secret", dirs: []string{"hidden"}, model: []bool{true}, skip: true},
		{key: "open", dirs: []string{"hidden"}, model: []bool{true}, skip: true},
		{key: "plain", dirs: []string{"include"}, model: []bool{false}, skip: false},
	} {
		t.Run(want.key, func(t *testing.T) {
			mf := rootField(t, op, i)
			require.Equal(t, want.key, mf.Key)
			var names []string
			var model []bool
			for _, d := range mf.Directives {
				names = append(names, d.Def.Name)
				model = append(model, d.Model)
			}
			require.Equal(t, want.dirs, names)
			require.Equal(t, want.model, model)

			skip, err := ShouldSkip(&EvalContext{}, mf.Directives)
			require.NoError(t, err)
			require.Equal(t, want.skip, skip)
		})
	}
}
