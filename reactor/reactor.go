// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral reactor options and wake registry.

package reactor

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-rt/api"
)

// DefaultEventBatch is the number of readiness events collected per wait.
const DefaultEventBatch = 128

type options struct {
	eventBatch int
	log        zerolog.Logger
}

func defaultOptions() options {
	return options{
		eventBatch: DefaultEventBatch,
		log:        zerolog.Nop(),
	}
}

// Option customizes reactor construction.
type Option func(*options)

// WithEventBatch overrides how many events a single wait may return.
func WithEventBatch(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.eventBatch = n
		}
	}
}

// WithLogger attaches a logger for debug tracing of registrations and dispatch.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// registry maps descriptors to the waker bound to them.
type registry struct {
	mu         sync.Mutex
	wakers     map[int]api.Waker
	overwrites int64
}

func newRegistry() *registry {
	return &registry{wakers: make(map[int]api.Waker)}
}

// put binds w to fd and reports whether a previous waker was replaced.
func (r *registry) put(fd int, w api.Waker) (prev api.Waker, replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, replaced = r.wakers[fd]
	r.wakers[fd] = w
	if replaced {
		r.overwrites++
	}
	return prev, replaced
}

// take removes and returns the waker bound to fd.
func (r *registry) take(fd int) (api.Waker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wakers[fd]
	if ok {
		delete(r.wakers, fd)
	}
	return w, ok
}

// restore binds w to fd again without counting an overwrite.
func (r *registry) restore(fd int, w api.Waker) {
	r.mu.Lock()
	r.wakers[fd] = w
	r.mu.Unlock()
}

func (r *registry) drop(fd int) {
	r.mu.Lock()
	delete(r.wakers, fd)
	r.mu.Unlock()
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.wakers)
}

func (r *registry) overwritten() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overwrites
}
