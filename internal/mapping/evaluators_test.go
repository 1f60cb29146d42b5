package mapping

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/gqlexec/internal/gqlerrors"
	"github.com/hanpama/gqlexec/internal/schema"
)

func argEval(t *testing.T, op *Operation, field int) Evaluator {
	t.Helper()
	mf := rootField(t, op, field)
	require.NotEmpty(t, mf.Args)
	return mf.Args[0].Eval
}

func TestListCoercion(t *testing.T) {
	t.Run("single value becomes a list", func(t *testing.T) {
		e := argEval(t, mustMap(t, `{ ids(list: 3) }`), 0)
		require.IsType(t, &Constant{}, e)
		v, err := e.Evaluate(nil)
		require.NoError(t, err)
		require.Equal(t, []any{3}, v)
	})

	t.Run("null into non-null list", func(t *testing.T) {
		errs := mapErrors(t, `{ nonNullList(list: null) }`)
		require.Equal(t, gqlerrors.KindInputError, errs[0].Kind)
		require.Equal(t, `expected value of type "[Int]!", found null`, errs[0].Message)
	})

	t.Run("null element into non-null element", func(t *testing.T) {
		errs := mapErrors(t, `{ ids(list: [1, null]) }`)
		require.Equal(t, gqlerrors.KindInputError, errs[0].Kind)
	})

	t.Run("wrong element type", func(t *testing.T) {
		errs := mapErrors(t, `{ ids(list: ["a"]) }`)
		require.Equal(t, gqlerrors.KindInputError, errs[0].Kind)
	})
}

func TestFlagSetEvaluation(t *testing.T) {
	eval := func(t *testing.T, q string, vars map[string]any) any {
		t.Helper()
		op := mustMap(t, q)
		v, err := argEval(t, op, 0).Evaluate(&EvalContext{Variables: vars})
		require.NoError(t, err)
		return v
	}

	require.Equal(t, uint64(5), eval(t, `{ perms(set: [READ, ADMIN]) }`, nil))
	require.Equal(t, uint64(5), eval(t, `{ perms(set: [ADMIN, READ]) }`, nil))
	require.Equal(t, uint64(0), eval(t, `{ perms(set: []) }`, nil))
	require.Equal(t, uint64(2), eval(t, `{ perms(set: WRITE) }`, nil))

	t.Run("from variable", func(t *testing.T) {
		op := mustMap(t, `query($p: [Permission!]) { perms(set: $p) }`)
		e := argEval(t, op, 0)
		require.IsType(t, &FlagSet{}, e)

		vars, errs := op.CoerceVariables(map[string]any{"p": []any{"WRITE", "READ"}})
		require.Empty(t, errs)
		v, err := e.Evaluate(&EvalContext{Variables: vars})
		require.NoError(t, err)
		require.Equal(t, uint64(3), v)

		v, err = e.Evaluate(&EvalContext{Variables: map[string]any{}})
		require.NoError(t, err)
		require.Nil(t, v)
	})
}

func TestInputObjectEvaluation(t *testing.T) {
	t.Run("defaults fill missing fields", func(t *testing.T) {
		e := argEval(t, mustMap(t, `{ review(input: {stars: 5}) }`), 0)
		require.IsType(t, &Constant{}, e)
		v, _ := e.Evaluate(nil)
		if diff := cmp.Diff(map[string]any{"stars": 5, "commentary": "none"}, v); diff != "" {
			t.Fatalf("input mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("missing required field", func(t *testing.T) {
		errs := mapErrors(t, `{ review(input: {commentary: "meh"}) }`)
		require.Contains(t, errs[0].Message, "MissingRequiredField")
		require.Equal(t, gqlerrors.KindInputError, errs[0].Kind)
	})

	t.Run("unknown field", func(t *testing.T) {
		errs := mapErrors(t, `{ review(input: {stars: 1, nope: 2}) }`)
		require.Equal(t, `field "nope" is not defined by type "ReviewInput"`, errs[0].Message)
	})

	t.Run("variables are not folded", func(t *testing.T) {
		op := mustMap(t, `query($s: Int!) { review(input: {stars: $s}) }`)
		e := argEval(t, op, 0)
		require.IsType(t, &InputObject{}, e)
		v, err := e.Evaluate(&EvalContext{Variables: map[string]any{"s": 2}})
		require.NoError(t, err)
		require.Equal(t, map[string]any{"stars": 2, "commentary": "none"}, v)
	})

	t.Run("oneOf", func(t *testing.T) {
		mustMap(t, `{ pick(by: {byId: 1}) { id } }`)
		errs := mapErrors(t, `{ pick(by: {byId: 1, byName: "x"}) { id } }`)
		require.Contains(t, errs[0].Message, "exactly one non-null field")
	})
}

func TestVariableReferences(t *testing.T) {
	t.Run("assignability", func(t *testing.T) {
		tests := []struct {
			name  string
			query string
			ok    bool
		}{
			{"same type", `query($l: [Int!]) { ids(list: $l) }`, true},
			{"non-null into nullable", `query($l: [Int!]!) { ids(list: $l) }`, true},
			{"nullable into non-null", `query($s: Int) { review(input: {stars: $s}) }`, false},
			{"nullable with default into non-null", `query($s: Int = 3) { review(input: {stars: $s}) }`, true},
			{"different named type", `query($s: String!) { ids(list: [$s]) }`, false},
			{"list into scalar", `query($s: [String]) { greeting(name: $s) }`, false},
			{"undefined", `{ greeting(name: $who) }`, false},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				op, errs := NewMapper(mustBuildSchema(t)).Map(mustParseQuery(t, tt.query), "")
				if tt.ok {
					require.Empty(t, errs)
					require.NotNil(t, op)
					return
				}
				require.NotEmpty(t, errs)
				require.Equal(t, gqlerrors.KindBadRequest, errs[0].Kind)
			})
		}
	})

	t.Run("location default when not provided", func(t *testing.T) {
		op := mustMap(t, `query($u: Unit) { human(id: 1) { height(unit: $u) } }`)
		human := rootField(t, op, 0)
		height := human.Subset.ItemsFor(op.Schema.Types["Human"]).Items[0].(*MappedField)
		ref := height.Args[0].Eval.(*VariableReference)

		v, err := ref.Evaluate(&EvalContext{Variables: map[string]any{}})
		require.NoError(t, err)
		require.Equal(t, "METER", v)

		v, err = ref.Evaluate(&EvalContext{Variables: map[string]any{"u": "FOOT"}})
		require.NoError(t, err)
		require.Equal(t, "FOOT", v)
	})

	t.Run("literal default when argument omitted", func(t *testing.T) {
		op := mustMap(t, `{ human(id: 1) { height } }`)
		height := rootField(t, op, 0).Subset.ItemsFor(op.Schema.Types["Human"]).Items[0].(*MappedField)
		require.Equal(t, &Constant{Value: "METER"}, height.Args[0].Eval)
	})

	t.Run("null for non-null position", func(t *testing.T) {
		op := mustMap(t, `query($s: Int = 3) { review(input: {stars: $s}) }`)
		_, err := argEval(t, op, 0).Evaluate(&EvalContext{Variables: map[string]any{"s": nil}})
		require.Error(t, err)
	})
}

func TestIsAssignable(t *testing.T) {
	named := schema.NamedType
	nn := schema.NonNullType
	list := schema.ListType
	tests := []struct {
		name       string
		varType    *schema.TypeRef
		locType    *schema.TypeRef
		hasDefault bool
		want       bool
	}{
		{"identical", named("Int"), named("Int"), false, true},
		{"non-null into nullable", nn(named("Int")), named("Int"), false, true},
		{"nullable into non-null", named("Int"), nn(named("Int")), false, false},
		{"nullable into non-null with default", named("Int"), nn(named("Int")), true, true},
		{"list rank mismatch", list(named("Int")), list(list(named("Int"))), false, false},
		{"inner non-null", list(nn(named("Int"))), list(named("Int")), false, true},
		{"inner nullable", list(named("Int")), list(nn(named("Int"))), false, false},
		{"scalar into list", named("Int"), list(named("Int")), false, false},
		{"different names", named("Int"), named("Float"), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, isAssignable(tt.varType, tt.locType, tt.hasDefault))
		})
	}
}
