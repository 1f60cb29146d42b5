package executor

import (
	"time"

	"go.uber.org/zap"
)

// Options are the request quotas and fault policies of an Executor. Zero
// values disable a quota.
type Options struct {
	// MaxDepth bounds the nesting depth of resolved objects. Top-level fields
	// are at depth 1.
	MaxDepth int
	// MaxOutputObjects bounds the number of object scopes one request may
	// produce.
	MaxOutputObjects int
	// MaxRequestTime bounds the duration of one execution.
	MaxRequestTime time.Duration
	// MaxErrors caps the error list; gqlerrors.DefaultMaxErrors when zero.
	MaxErrors int
	// IgnoreNonNullFaults disables non-null errors and null propagation.
	IgnoreNonNullFaults bool
}

// Option configures an Executor.
type Option func(*Executor)

func WithMaxDepth(n int) Option {
	return func(e *Executor) { e.options.MaxDepth = n }
}

func WithMaxOutputObjects(n int) Option {
	return func(e *Executor) { e.options.MaxOutputObjects = n }
}

func WithMaxRequestTime(d time.Duration) Option {
	return func(e *Executor) { e.options.MaxRequestTime = d }
}

func WithMaxErrors(n int) Option {
	return func(e *Executor) { e.options.MaxErrors = n }
}

func WithIgnoreNonNullFaults(ignore bool) Option {
	return func(e *Executor) { e.options.IgnoreNonNullFaults = ignore }
}

// WithOptions replaces all quotas at once.
func WithOptions(o Options) Option {
	return func(e *Executor) { e.options = o }
}

// WithLogger sets the logger used for field completion, recovered panics and
// quota trips.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}
