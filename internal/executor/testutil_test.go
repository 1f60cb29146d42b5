package executor

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/gqlexec/internal/gqlerrors"
	language "github.com/hanpama/gqlexec/internal/language"
	"github.com/hanpama/gqlexec/internal/mapping"
	"github.com/hanpama/gqlexec/internal/schema"
)

const testSDL = `
interface Character {
  id: ID!
  name: String
}

type Human implements Character {
  id: ID!
  name: String
  height: Float
  score: Int
  greeting: String
}

type Droid implements Character {
  id: ID!
  name: String
  primaryFunction: String
}

union SearchResult = Human | Droid

enum Episode { NEWHOPE EMPIRE JEDI }

enum Permission @flags { READ WRITE ADMIN }

type Inner {
  value: String!
}

type Wrapper {
  label: String
  inner: Inner!
}

type Query {
  f1: String
  f2: String
  hero(episode: Episode): Character
  human(id: ID!): Human
  humans: [Human!]!
  search(text: String!): [SearchResult]
  required: String!
  nested: Wrapper
  perms: Permission
  echo(perms: [Permission!]): Permission
  slow: String
}

type Mutation {
  increment(by: Int!): Int!
}
`

type human struct {
	ID     string
	Name   string
	Height float64
}

type droid struct {
	ID              string
	Name            string
	PrimaryFunction string
}

var (
	luke   = &human{ID: "1000", Name: "Luke", Height: 1.72}
	leia   = &human{ID: "1003", Name: "Leia", Height: 1.5}
	r2d2   = &droid{ID: "2001", Name: "R2-D2", PrimaryFunction: "Astromech"}
	humans = []*human{luke, leia}
)

// mustBuildSchema builds the test schema with host types bound. Resolvers are
// attached by each test.
func mustBuildSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.BuildFromSDL(testSDL)
	require.NoError(t, err)
	s.BindHostType(&human{}, "Human")
	s.BindHostType(&droid{}, "Droid")
	return s
}

func mustBind(t *testing.T, err error) {
	t.Helper()
	require.NoError(t, err)
}

// mustParseQuery parses a GraphQL query and fails the test on error.
func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

func mustMap(t *testing.T, s *schema.Schema, q string) *mapping.Operation {
	t.Helper()
	op, errs := mapping.NewMapper(s).Map(mustParseQuery(t, q), "")
	require.Empty(t, errs)
	return op
}

func execute(t *testing.T, s *schema.Schema, q string, vars map[string]any, opts ...Option) *ExecutionResult {
	t.Helper()
	return NewExecutor(s, opts...).Execute(context.Background(), mustMap(t, s, q), vars, nil)
}

var ignoreLocations = cmpopts.IgnoreFields(gqlerrors.GraphQLError{}, "Locations")
