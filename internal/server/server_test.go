package server

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"

	"github.com/hanpama/gqlexec/internal/executor"
	"github.com/hanpama/gqlexec/internal/mapping"
	reqid "github.com/hanpama/gqlexec/internal/reqid"
	schema "github.com/hanpama/gqlexec/internal/schema"
)

const testSDL = `
type Query {
  hello: String
  broken: String
  greet(name: String!): String!
}

type Mutation {
  touch: Boolean!
}
`

func newTestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.BuildFromSDL(testSDL)
	require.NoError(t, err)
	require.NoError(t, s.BindAccessor("Query", "hello", func(any) (any, error) { return "world", nil }))
	require.NoError(t, s.BindFunc("Query", "broken", func(schema.ResolveParams) (any, error) {
		return nil, errors.New("boom")
	}))
	require.NoError(t, s.BindFunc("Query", "greet", func(p schema.ResolveParams) (any, error) {
		return "hello " + p.Arg("name").(string), nil
	}))
	require.NoError(t, s.BindFunc("Mutation", "touch", func(schema.ResolveParams) (any, error) { return true, nil }))
	return s
}

func newTestHandler(t *testing.T, s *schema.Schema, opts ...Option) *Handler {
	t.Helper()
	cache, err := mapping.NewCache(mapping.NewMapper(s), 16, nil)
	require.NoError(t, err)
	t.Cleanup(cache.Close)
	h, err := New(cache, executor.NewExecutor(s), opts...)
	require.NoError(t, err)
	return h
}

func post(h http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestExecute(t *testing.T) {
	h := newTestHandler(t, newTestSchema(t))

	t.Run("data", func(t *testing.T) {
		w := post(h, `{"query":"{ hello greet(name: \"ann\") }"}`, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"data":{"hello":"world","greet":"hello ann"}}`, w.Body.String())
	})

	t.Run("partial failure", func(t *testing.T) {
		w := post(h, `{"query":"{ hello broken }"}`, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{
  "data":{"hello":"world","broken":null},
  "errors":[{"message":"boom","locations":[{"line":1,"column":9}],"path":["broken"],"extensions":{"code":"RESOLVER_ERROR"}}]
}`, w.Body.String())
	})

	t.Run("variables", func(t *testing.T) {
		w := post(h, `{"query":"query Q($n: String!) { greet(name: $n) }","variables":{"n":"bo"}}`, nil)
		require.JSONEq(t, `{"data":{"greet":"hello bo"}}`, w.Body.String())
	})

	t.Run("mapping errors carry no data", func(t *testing.T) {
		w := post(h, `{"query":"{ nope }"}`, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NotContains(t, w.Body.String(), `"data"`)
		require.Contains(t, w.Body.String(), `"code":"BAD_REQUEST"`)
	})

	t.Run("batch", func(t *testing.T) {
		w := post(h, `[{"query":"{ hello }"},{"query":"mutation { touch }"}]`, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `[{"data":{"hello":"world"}},{"data":{"touch":true}}]`, w.Body.String())
	})

	t.Run("invalid json", func(t *testing.T) {
		w := post(h, `{"query":`, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.JSONEq(t, `{"errors":[{"message":"invalid JSON"}]}`, w.Body.String())
	})
}

func TestGet(t *testing.T) {
	h := newTestHandler(t, newTestSchema(t))

	t.Run("query", func(t *testing.T) {
		q := url.Values{"query": {"{ hello }"}}
		req := httptest.NewRequest("GET", "/?"+q.Encode(), nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"data":{"hello":"world"}}`, w.Body.String())
	})

	t.Run("mutation is not allowed", func(t *testing.T) {
		q := url.Values{"query": {"mutation { touch }"}}
		req := httptest.NewRequest("GET", "/?"+q.Encode(), nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestForwardedHeaders(t *testing.T) {
	var captured metadata.MD
	s := newTestSchema(t)
	require.NoError(t, s.BindFunc("Query", "hello", func(p schema.ResolveParams) (any, error) {
		captured, _ = metadata.FromOutgoingContext(p.Context)
		return "world", nil
	}))

	t.Run("configured headers", func(t *testing.T) {
		captured = nil
		h := newTestHandler(t, s, WithMetadataHeaders("X-Test"))
		w := post(h, `{"query":"{ hello }"}`, map[string]string{"X-Test": "abc", "X-Other": "nope"})
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, []string{"abc"}, captured.Get("x-test"))
		require.Empty(t, captured.Get("x-other"))
	})

	t.Run("nothing forwarded by default", func(t *testing.T) {
		captured = nil
		h := newTestHandler(t, s)
		w := post(h, `{"query":"{ hello }"}`, map[string]string{"X-Test": "abc"})
		require.Equal(t, http.StatusOK, w.Code)
		require.Empty(t, captured.Get("x-test"))
	})
}

func TestCORSAndPreflight(t *testing.T) {
	h := newTestHandler(t, newTestSchema(t), WithCORS("*"))

	w := post(h, `{"query":"{ hello }"}`, map[string]string{"Origin": "http://example.com"})
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	pre := httptest.NewRequest("OPTIONS", "/", nil)
	pre.Header.Set("Origin", "http://example.com")
	pre.Header.Set("Access-Control-Request-Headers", "X-Test")
	pw := httptest.NewRecorder()
	h.ServeHTTP(pw, pre)
	require.Equal(t, http.StatusNoContent, pw.Code)
	require.Equal(t, "*", pw.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "X-Test", pw.Header().Get("Access-Control-Allow-Headers"))
}

func TestMaxBodyBytes(t *testing.T) {
	h := newTestHandler(t, newTestSchema(t), WithMaxBodyBytes(10))
	w := post(h, `{"query":"1234567890"}`, nil)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRequestID(t *testing.T) {
	var capturedMD metadata.MD
	var capturedID reqid.ID
	s := newTestSchema(t)
	require.NoError(t, s.BindFunc("Query", "hello", func(p schema.ResolveParams) (any, error) {
		capturedMD, _ = metadata.FromOutgoingContext(p.Context)
		capturedID, _ = reqid.FromContext(p.Context)
		return "world", nil
	}))
	h := newTestHandler(t, s)

	t.Run("generated", func(t *testing.T) {
		w := post(h, `{"query":"{ hello }"}`, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NotZero(t, capturedID)
		require.Equal(t, []string{capturedID.String()}, capturedMD.Get("graphql-request-id"))
		require.Equal(t, capturedID.String(), w.Header().Get(RequestIDHeader))
	})

	t.Run("propagated from the client", func(t *testing.T) {
		w := post(h, `{"query":"{ hello }"}`, map[string]string{RequestIDHeader: "abc123"})
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "abc123", capturedID.String())
		require.Equal(t, "abc123", w.Header().Get(RequestIDHeader))
	})
}
