// File: internal/concurrency/readyqueue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Ready queue carrying task identities from wake sites back to the executor loop.

package concurrency

import (
	"fmt"
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-rt/api"
)

// ReadyQueue is a FIFO of task identities with many producers (wakers) and a
// single consumer (the executor loop).
//
// A bound of zero means the queue grows on demand. With a positive bound a
// push beyond capacity fails with an error wrapping api.ErrResourceExhausted;
// the notification is never dropped silently.
type ReadyQueue struct {
	mu    sync.Mutex
	q     *queue.Queue
	bound int

	// statistics
	pushed int64
	peak   int
}

// NewReadyQueue creates a queue holding at most bound identities (0 = unbounded).
func NewReadyQueue(bound int) *ReadyQueue {
	if bound < 0 {
		bound = 0
	}
	return &ReadyQueue{q: queue.New(), bound: bound}
}

// Push appends id at the tail.
func (rq *ReadyQueue) Push(id api.TaskID) error {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	if rq.bound > 0 && rq.q.Length() >= rq.bound {
		return fmt.Errorf("ready queue full (bound %d) waking task %d: %w", rq.bound, id, api.ErrResourceExhausted)
	}
	rq.q.Add(id)
	rq.pushed++
	if n := rq.q.Length(); n > rq.peak {
		rq.peak = n
	}
	return nil
}

// Pop removes the head; ok is false if the queue is empty.
func (rq *ReadyQueue) Pop() (id api.TaskID, ok bool) {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	if rq.q.Length() == 0 {
		return 0, false
	}
	return rq.q.Remove().(api.TaskID), true
}

// Len returns the number of queued identities.
func (rq *ReadyQueue) Len() int {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	return rq.q.Length()
}

// Bound returns the configured capacity, 0 when unbounded.
func (rq *ReadyQueue) Bound() int {
	return rq.bound
}

// Stats returns basic queue metrics.
func (rq *ReadyQueue) Stats() map[string]int64 {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	return map[string]int64{
		"ready_pushed": rq.pushed,
		"ready_len":    int64(rq.q.Length()),
		"ready_peak":   int64(rq.peak),
	}
}
