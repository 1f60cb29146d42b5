package executor

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/hanpama/gqlexec/internal/gqlerrors"
	"github.com/hanpama/gqlexec/internal/mapping"
	"github.com/hanpama/gqlexec/internal/schema"
)

// OutputObjectScope is one resolved object of the response. Entries keep
// selection order and a key may appear more than once.
type OutputObjectScope struct {
	ObjectType *schema.Type

	source any
	path   *gqlerrors.RequestPath

	// mu guards the root scope, written by concurrent top-level tasks.
	mu      *sync.Mutex
	entries []*outputEntry
}

type outputEntry struct {
	key    string
	value  any
	field  *mapping.MappedField
	merged bool
}

// Entry is a key and its completed value: nil, a leaf, a *OutputObjectScope or
// a []any of those.
type Entry struct {
	Key   string
	Value any
}

func newScope(t *schema.Type, source any, path *gqlerrors.RequestPath) *OutputObjectScope {
	return &OutputObjectScope{ObjectType: t, source: source, path: path}
}

func newRootScope(t *schema.Type, root any) *OutputObjectScope {
	return &OutputObjectScope{ObjectType: t, source: root, mu: &sync.Mutex{}}
}

// Source returns the resolved value the scope was completed from. For the root
// scope it is the root value passed to Execute.
func (s *OutputObjectScope) Source() any {
	if s == nil {
		return nil
	}
	return s.source
}

// Path returns the response path of the scope. The root scope has an empty
// path.
func (s *OutputObjectScope) Path() gqlerrors.Path {
	if s == nil {
		return nil
	}
	return s.path.Materialize()
}

func (s *OutputObjectScope) add(key string, f *mapping.MappedField, value any) *outputEntry {
	e := &outputEntry{key: key, field: f, value: normalize(value)}
	if s.mu != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	s.entries = append(s.entries, e)
	return e
}

func (s *OutputObjectScope) set(e *outputEntry, value any) {
	if s.mu != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	e.value = normalize(value)
}

// Entries returns the visible entries in order.
func (s *OutputObjectScope) Entries() []Entry {
	if s == nil {
		return nil
	}
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if !e.merged {
			out = append(out, Entry{Key: e.key, Value: e.value})
		}
	}
	return out
}

// Keys returns the visible keys in order, including repeated keys.
func (s *OutputObjectScope) Keys() []string {
	entries := s.Entries()
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}

// Get returns the value of the first entry with the given key.
func (s *OutputObjectScope) Get(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	for _, e := range s.entries {
		if !e.merged && e.key == key {
			return e.value, true
		}
	}
	return nil, false
}

// Len is the number of visible entries.
func (s *OutputObjectScope) Len() int {
	return len(s.Entries())
}

// ToMap converts the scope into nested maps and slices. A repeated key keeps
// its last value.
func (s *OutputObjectScope) ToMap() map[string]any {
	if s == nil {
		return nil
	}
	out := make(map[string]any, len(s.entries))
	for _, e := range s.entries {
		if !e.merged {
			out[e.key] = plain(e.value)
		}
	}
	return out
}

func plain(v any) any {
	switch v := v.(type) {
	case *OutputObjectScope:
		if v == nil {
			return nil
		}
		return v.ToMap()
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = plain(item)
		}
		return out
	}
	return v
}

// MarshalJSON writes the entries as a JSON object in order. Repeated keys are
// written as they are.
func (s *OutputObjectScope) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, e := range s.entries {
		if e.merged {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, err := json.Marshal(e.key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(e.value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// normalize turns typed nils into untyped nil.
func normalize(v any) any {
	if isNullish(v) {
		return nil
	}
	return v
}
