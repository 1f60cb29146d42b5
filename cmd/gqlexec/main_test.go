package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hanpama/gqlexec/internal/config"
)

const checkSDL = `
type Query {
  user(id: ID!): User
}

type User {
  id: ID!
  name: String
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestHelp(t *testing.T) {
	t.Run("root", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, run([]string{"help"}, &out, &out))
		require.Contains(t, out.String(), "COMMANDS")
	})

	t.Run("topic", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, run([]string{"help", "check"}, &out, &out))
		require.Contains(t, out.String(), "check FLAGS")
	})

	t.Run("unknown command", func(t *testing.T) {
		var out, errOut bytes.Buffer
		require.EqualError(t, run([]string{"frobnicate"}, &out, &errOut), `unknown command "frobnicate"`)
		require.Contains(t, errOut.String(), "USAGE")
	})
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	schemaFile := writeFile(t, dir, "schema.graphql", checkSDL)

	t.Run("valid", func(t *testing.T) {
		queryFile := writeFile(t, dir, "ok.graphql", `query User($id: ID!) { user(id: $id) { ...F } } fragment F on User { id name }`)
		var out bytes.Buffer
		require.NoError(t, run([]string{"check", "-schema", schemaFile, "-query", queryFile}, &out, &out))
		require.Equal(t, "ok: query User on Query, 1 variable(s), 1 fragment(s)\n", out.String())
	})

	t.Run("introspection fields map", func(t *testing.T) {
		queryFile := writeFile(t, dir, "meta.graphql", `{ __schema { queryType { name } } }`)
		var out bytes.Buffer
		require.NoError(t, run([]string{"check", "-schema", schemaFile, "-query", queryFile}, &out, &out))
		require.Contains(t, out.String(), "ok: query (anonymous)")
	})

	t.Run("mapping errors", func(t *testing.T) {
		queryFile := writeFile(t, dir, "bad.graphql", `{ user(id: "1") { email } }`)
		var out bytes.Buffer
		err := run([]string{"check", "-schema", schemaFile, "-query", queryFile}, &out, &out)
		require.EqualError(t, err, "1 mapping error(s)")
		require.Contains(t, out.String(), `"message"`)
		require.Contains(t, out.String(), "email")
	})

	t.Run("missing flags", func(t *testing.T) {
		var out bytes.Buffer
		require.Error(t, run([]string{"check"}, &out, &out))
		require.Contains(t, out.String(), "check FLAGS")
	})
}

func TestPrintSchema(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"serve", "-print-schema"}, &out, &out))
	require.Contains(t, out.String(), "interface Character {")
	require.Contains(t, out.String(), "enum Trait @flags {")
	require.NotContains(t, out.String(), "__schema")
}

func TestServeHandler(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.Engine.MaxDepth = 3

	h, closeHandler, err := newHandler(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(closeHandler)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/graphql", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	t.Run("demo query", func(t *testing.T) {
		w := post(`{"query":"{ hero { name } }"}`)
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"data":{"hero":{"name":"R2-D2"}}}`, w.Body.String())
	})

	t.Run("engine options applied", func(t *testing.T) {
		w := post(`{"query":"{ hero { friends { friends { friends { name } } } } }"}`)
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"data":{"hero":null},"errors":[{"message":"maximum depth 3 exceeded","locations":[{"line":1,"column":3}],"path":["hero"],"extensions":{"code":"SERVER_ERROR"}}]}`, w.Body.String())
	})
}
