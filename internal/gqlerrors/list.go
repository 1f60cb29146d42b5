package gqlerrors

import (
	"sync"

	multierror "github.com/hashicorp/go-multierror"
	"go.uber.org/atomic"
)

// DefaultMaxErrors caps a List created with a non-positive limit.
const DefaultMaxErrors = 100

// List accumulates errors for one request. It is safe for concurrent use by
// independent top-level field tasks. Once the cap is reached a single
// overflow error is appended and further errors are dropped.
type List struct {
	mu       sync.Mutex
	errs     []GraphQLError
	max      int
	count    atomic.Int32
	overflow atomic.Bool
}

// NewList creates a list holding at most max errors.
func NewList(max int) *List {
	if max <= 0 {
		max = DefaultMaxErrors
	}
	return &List{max: max}
}

// Add records err and reports whether it was kept.
func (l *List) Add(err GraphQLError) bool {
	if int(l.count.Inc()) > l.max {
		if l.overflow.CompareAndSwap(false, true) {
			l.mu.Lock()
			l.errs = append(l.errs, New(KindServerError, "too many errors, further errors were dropped"))
			l.mu.Unlock()
		}
		return false
	}
	l.mu.Lock()
	l.errs = append(l.errs, err)
	l.mu.Unlock()
	return true
}

// Len returns the number of recorded errors.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errs)
}

// Errors returns a snapshot of the recorded errors. The result is never nil.
func (l *List) Errors() []GraphQLError {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]GraphQLError, len(l.errs))
	copy(out, l.errs)
	return out
}

// AddUncapped records err even when the cap is reached. It is meant for the
// one error that ends a request, such as its cancellation.
func (l *List) AddUncapped(err GraphQLError) {
	l.mu.Lock()
	l.errs = append(l.errs, err)
	l.mu.Unlock()
}

// Err folds the list into a single Go error, or nil when empty.
func (l *List) Err() error {
	var result *multierror.Error
	for _, e := range l.Errors() {
		result = multierror.Append(result, e)
	}
	return result.ErrorOrNil()
}
