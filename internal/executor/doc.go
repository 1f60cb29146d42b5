// Package executor runs mapped operations against a schema and assembles the
// ordered response tree.
//
// # Overview
//
// Execution starts from a mapping.Operation. Every top-level field of a query
// runs as its own task; mutation fields run one after another in selection
// order. Root entries are reserved in selection order before any task starts,
// so the key order of the response does not depend on completion order.
//
// # Execution Model
//
// A task resolves its top-level field, completes the value and, when the value
// is an object, queues it as a pending object instead of descending. The task
// then works through pending objects in breadth-first rounds:
//
//	A. Round boundary
//	   - The request context is checked; a cancelled request abandons the task
//	     and records a single CANCELLED error.
//	   - The depth quota is checked against the round number.
//
//	B. Expansion
//	   - Pending objects are grouped by the mapped item set of their concrete
//	     type. Abstract values were mapped to a concrete type when completed.
//	   - Each mapped field of a group is resolved for every parent of the group
//	     in declaration order. A batch resolver resolves all remaining parents
//	     in one call and marks them populated.
//	   - Fragment spreads resolve nothing themselves; their spliced items run
//	     against the same parents.
//
//	C. Completion
//	   - Leaves are serialized through scalar codecs and enum definitions.
//	   - Objects become new output scopes queued for the next round.
//
// There is no fan-out below the top level, so resolvers of one task are
// invoked in a predictable order.
//
// # Resolvers
//
// A field is resolved by its direct accessor, its invocable resolver or its
// batch resolver. Invocable resolvers bound to a resolver class receive one
// instance per class and task, created lazily; BeginRequest and EndRequest
// hooks run around the task. A returned schema.Future is awaited. Panics are
// recovered and reported as resolver errors.
//
// # Errors and Partial Success
//
// A failing field records an error at its path and leaves a null in its place.
// Sibling fields and sibling tasks continue. After all tasks finish, duplicate
// object-typed keys are merged and nulls in non-null positions are bubbled up
// to the nearest nullable ancestor, never past the top-level field.
package executor
