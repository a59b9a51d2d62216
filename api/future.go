// File: api/future.go
// Author: momentics <momentics@gmail.com>
//
// Suspendable computation contract driven by the executor.

package api

// TaskID identifies one task for its whole lifetime. Identities are handed
// out by the executor in increasing order and are never reused.
type TaskID uint64

// PollResult is the outcome of one Poll call.
type PollResult int

const (
	// Pending means the future registered interest somewhere and must be
	// polled again after its waker fires.
	Pending PollResult = iota
	// Ready is terminal: the future must not be polled again.
	Ready
)

func (p PollResult) String() string {
	switch p {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Future is a computation that makes progress each time it is polled.
//
// Poll must never block the calling goroutine. Before returning Pending the
// future must arrange for w (or a clone of it) to be woken once progress is
// possible, typically by registering a descriptor with a Reactor. A non-nil
// error ends the computation just like Ready does.
type Future interface {
	Poll(w Waker) (PollResult, error)
}

// FutureFunc adapts an ordinary function to the Future interface.
type FutureFunc func(w Waker) (PollResult, error)

// Poll calls f(w).
func (f FutureFunc) Poll(w Waker) (PollResult, error) {
	return f(w)
}
