// File: executor/waker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package executor

import (
	"sync/atomic"

	"github.com/momentics/hioload-rt/api"
	"github.com/momentics/hioload-rt/internal/concurrency"
)

// sender is the producer side of the ready queue, shared by every waker of
// one executor.
type sender struct {
	queue   *concurrency.ReadyQueue
	reactor api.Reactor
	parked  atomic.Bool // loop is (about to be) blocked in the reactor
	wakes   atomic.Int64
}

func (s *sender) send(id api.TaskID) error {
	if err := s.queue.Push(id); err != nil {
		return err
	}
	s.wakes.Add(1)
	// Only the first wake of a parked loop pays for the interrupt.
	if s.parked.CompareAndSwap(true, false) {
		return s.reactor.Interrupt()
	}
	return nil
}

// waker is the api.Waker handed to futures. It holds the task identity, not
// the task, so waking a finished task cannot touch freed state.
type waker struct {
	id api.TaskID
	tx *sender
}

var _ api.Waker = waker{}

func (w waker) Wake() error        { return w.tx.send(w.id) }
func (w waker) Clone() api.Waker   { return w }
func (w waker) TaskID() api.TaskID { return w.id }
