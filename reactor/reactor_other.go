//go:build !linux

// File: reactor/reactor_other.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import (
	"fmt"
	"time"

	"github.com/momentics/hioload-rt/api"
)

// Reactor is unavailable outside Linux.
type Reactor struct{}

// New returns api.ErrNotSupported on this platform.
func New(opts ...Option) (*Reactor, error) {
	return nil, fmt.Errorf("reactor: this platform is not supported: %w", api.ErrNotSupported)
}

func (r *Reactor) Register(fd int, w api.Waker) error { return api.ErrNotSupported }
func (r *Reactor) Deregister(fd int) error            { return api.ErrNotSupported }
func (r *Reactor) Interrupt() error                   { return api.ErrNotSupported }
func (r *Reactor) Close() error                       { return nil }
func (r *Reactor) Len() int                           { return 0 }
func (r *Reactor) Stats() map[string]int64            { return map[string]int64{} }

func (r *Reactor) WaitAndDispatch(timeout time.Duration) (int, error) {
	return 0, api.ErrNotSupported
}
