// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Defines the abstract interface for the readiness reactor that turns OS
// notifications into Waker invocations.

package api

import "time"

// Reactor multiplexes many "am I ready yet" conditions onto one blocking wait.
//
// Registration is keyed by descriptor, which is what the OS reports on;
// scheduling is keyed by TaskID, which is what the executor tracks. The
// Reactor translates between the two.
type Reactor interface {
	// Register adds fd to the interest set and binds w to it. A descriptor
	// holds at most one waker: registering again replaces the previous one.
	Register(fd int, w Waker) error

	// Deregister drops fd from the interest set and forgets its waker.
	Deregister(fd int) error

	// WaitAndDispatch blocks up to timeout (negative means forever) for ready
	// descriptors, then removes and invokes the waker of each one. It returns
	// the number of descriptors dispatched; zero on timeout is not an error.
	WaitAndDispatch(timeout time.Duration) (int, error)

	// Interrupt makes a concurrent or the next WaitAndDispatch return early.
	Interrupt() error

	// Close releases the OS resources held by the reactor.
	Close() error
}
