// Package gqlerrors holds the error model shared by request mapping and
// execution: located GraphQL errors, lazily materialized response paths and the
// request-wide capped error list.
package gqlerrors

import (
	"fmt"

	language "github.com/hanpama/gqlexec/internal/language"
)

// Kind is the machine-readable classification of a GraphQLError.
type Kind string

const (
	// KindBadRequest marks structural or validation failures caught during mapping.
	KindBadRequest Kind = "BAD_REQUEST"
	// KindInputError marks argument or variable coercion failures.
	KindInputError Kind = "INPUT_ERROR"
	// KindResolverError marks failures raised by or propagated through a resolver.
	KindResolverError Kind = "RESOLVER_ERROR"
	// KindServerError marks internal invariant violations such as a null in a
	// non-null position.
	KindServerError Kind = "SERVER_ERROR"
	// KindCancelled marks execution abandoned because the request was cancelled.
	KindCancelled Kind = "CANCELLED"
)

type Path []PathElement

// PathElement is either a response key (string) or a list index (int).
type PathElement any

// GraphQLError represents an error that occurred during mapping or execution.
type GraphQLError struct {
	Message    string              `json:"message"`
	Kind       Kind                `json:"-"`
	Path       Path                `json:"path,omitempty"`
	Locations  []language.Location `json:"locations,omitempty"`
	Extensions map[string]any      `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

// New creates an error of the given kind without path or location.
func New(kind Kind, format string, args ...any) GraphQLError {
	return GraphQLError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// At returns a copy of e carrying the materialized form of path.
func (e GraphQLError) At(path *RequestPath) GraphQLError {
	e.Path = path.Materialize()
	return e
}

// Located returns a copy of e with the source location of pos appended.
func (e GraphQLError) Located(pos *language.Position) GraphQLError {
	if pos == nil {
		return e
	}
	e.Locations = append(append([]language.Location(nil), e.Locations...), language.LocationOf(pos))
	return e
}
