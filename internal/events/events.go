// Package events defines the lifecycle events published on the event bus.
// Handlers receive the context of the request that produced the event, so
// reqid.FromContext correlates them.
package events

import (
	"net/http"
	"time"

	"github.com/hanpama/gqlexec/internal/gqlerrors"
)

// HTTPStart is emitted when the handler receives a request.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is emitted after the response is written. Operations counts the
// GraphQL operations the request carried, more than one for batches.
type HTTPFinish struct {
	Request    *http.Request
	Status     int
	Operations int
	Duration   time.Duration
}

// GraphQLStart is emitted before a mapped operation executes. Operations of
// one batch are executed one after another, so at most one is open per
// request at any time.
type GraphQLStart struct {
	Query         string
	OperationName string
	OperationType string
}

// GraphQLFinish is emitted after the operation executed.
type GraphQLFinish struct {
	Query         string
	OperationName string
	OperationType string
	Errors        []gqlerrors.GraphQLError
	Duration      time.Duration
}

// FieldFinish is emitted when the task of a top-level field completes.
type FieldFinish struct {
	OperationName string
	ParentType    string
	Field         string
	Key           string
	Aborted       bool
	Duration      time.Duration
}
