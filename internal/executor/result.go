package executor

import (
	"github.com/hanpama/gqlexec/internal/gqlerrors"
)

// ExecutionResult represents the result of executing a GraphQL operation.
// Data is nil when the request failed as a whole.
type ExecutionResult struct {
	Data   *OutputObjectScope       `json:"data,omitempty"`
	Errors []gqlerrors.GraphQLError `json:"errors,omitempty"`
}
