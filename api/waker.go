// File: api/waker.go
// Author: momentics <momentics@gmail.com>
//
// Resume handle passed to futures on every poll.

package api

// Waker reschedules the task it is bound to.
//
// A Waker does not own its task, only the task identity and the path back to
// the scheduler, so it stays safe to call after the task has finished. Wake
// may be invoked from any goroutine.
type Waker interface {
	// Wake enqueues the bound task for another poll. A full ready queue is
	// reported as an error wrapping ErrResourceExhausted, never dropped.
	Wake() error

	// Clone returns an independent handle bound to the same task.
	Clone() Waker

	// TaskID returns the identity of the bound task.
	TaskID() TaskID
}
