// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

// Package fake provides an in-memory api.Reactor for deterministic tests.
// Descriptors are plain integers; nothing touches the OS.
package fake

import (
	"fmt"
	"sync"
	"time"

	"github.com/momentics/hioload-rt/api"
)

// Reactor is a scripted api.Reactor. Descriptors become ready only when Fire
// is called, either directly or from the OnWait hook.
type Reactor struct {
	mu         sync.Mutex
	wakers     map[int]api.Waker
	ready      []int
	waits      int
	interrupts int
	closed     bool

	// OnWait runs at the start of every WaitAndDispatch, outside the lock.
	OnWait func(r *Reactor)
}

var _ api.Reactor = (*Reactor)(nil)

// NewReactor creates an empty fake reactor.
func NewReactor() *Reactor {
	return &Reactor{wakers: make(map[int]api.Waker)}
}

// Register binds w to fd, replacing any previous waker.
func (r *Reactor) Register(fd int, w api.Waker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return api.ErrClosed
	}
	if w == nil {
		return api.ErrInvalidArgument
	}
	r.wakers[fd] = w
	return nil
}

// Deregister forgets fd.
func (r *Reactor) Deregister(fd int) error {
	r.mu.Lock()
	delete(r.wakers, fd)
	r.mu.Unlock()
	return nil
}

// Fire marks fd ready for the next WaitAndDispatch.
func (r *Reactor) Fire(fd int) {
	r.mu.Lock()
	r.ready = append(r.ready, fd)
	r.mu.Unlock()
}

// WaitAndDispatch never blocks; it dispatches whatever has been fired.
func (r *Reactor) WaitAndDispatch(timeout time.Duration) (int, error) {
	if hook := r.OnWait; hook != nil {
		hook(r)
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0, api.ErrClosed
	}
	r.waits++
	fds := r.ready
	r.ready = nil
	wakers := make([]api.Waker, 0, len(fds))
	for _, fd := range fds {
		w, ok := r.wakers[fd]
		if !ok {
			r.mu.Unlock()
			return 0, api.NewError(api.ErrCodeInvariant, "readiness reported for descriptor without waker").
				WithContext("fd", fd)
		}
		delete(r.wakers, fd)
		wakers = append(wakers, w)
	}
	r.mu.Unlock()

	for i, w := range wakers {
		if err := w.Wake(); err != nil {
			r.redeliver(fds[i:], wakers[i:])
			return i, fmt.Errorf("wake task %d: %w", w.TaskID(), err)
		}
	}
	return len(wakers), nil
}

// redeliver rebinds undelivered wakers and keeps their descriptors ready for
// the next wait.
func (r *Reactor) redeliver(fds []int, wakers []api.Waker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, fd := range fds {
		if _, taken := r.wakers[fd]; !taken {
			r.wakers[fd] = wakers[i]
		}
	}
	r.ready = append(append([]int(nil), fds...), r.ready...)
}

// Interrupt records the call.
func (r *Reactor) Interrupt() error {
	r.mu.Lock()
	r.interrupts++
	r.mu.Unlock()
	return nil
}

// Close marks the reactor closed.
func (r *Reactor) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

// Registered reports whether fd currently has a waker.
func (r *Reactor) Registered(fd int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.wakers[fd]
	return ok
}

// Len returns the number of registered descriptors.
func (r *Reactor) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.wakers)
}

// Waits returns how many times WaitAndDispatch ran.
func (r *Reactor) Waits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waits
}

// Interrupts returns how many times Interrupt was called.
func (r *Reactor) Interrupts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interrupts
}
