// Package mapping turns a parsed GraphQL operation into a Mapped Selection
// Tree: every selection set is specialized per concrete object type it can
// apply to, with field definitions, argument evaluators and runtime directives
// attached. A mapped Operation is read-only and may be cached and executed any
// number of times with different variable values.
package mapping
