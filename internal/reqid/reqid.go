// Package reqid tags request contexts with an identifier shared by the HTTP
// handler, the engine events and the tracing subscriber.
package reqid

import (
	"context"
	"math/rand/v2"
	"strconv"
)

// ID identifies one HTTP request.
type ID int64

func (id ID) String() string { return strconv.FormatInt(int64(id), 36) }

// Parse reads an ID in the form produced by String.
func Parse(s string) (ID, bool) {
	n, err := strconv.ParseInt(s, 36, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return ID(n), true
}

type key struct{}

// NewContext returns a copy of parent carrying a new random ID.
func NewContext(parent context.Context) (context.Context, ID) {
	id := ID(rand.Int64N(1<<62) + 1)
	return WithID(parent, id), id
}

// WithID returns a copy of parent carrying id.
func WithID(parent context.Context, id ID) context.Context {
	return context.WithValue(parent, key{}, id)
}

// FromContext extracts the request ID from ctx.
func FromContext(ctx context.Context) (ID, bool) {
	id, ok := ctx.Value(key{}).(ID)
	return id, ok
}
