// File: timer/future.go
// Author: momentics <momentics@gmail.com>
//
// One-shot timer future.

package timer

import (
	"errors"
	"fmt"
	"time"

	"github.com/momentics/hioload-rt/api"
)

// Future completes no earlier than its delay after construction.
type Future struct {
	reactor api.Reactor
	dev     *Device
	delay   time.Duration
	done    bool
}

var _ api.Future = (*Future)(nil)

// New arms a timer for d and binds it to r. The countdown starts here, not
// at the first poll. Failure to obtain the OS timer is returned as is, with
// descriptor exhaustion wrapping api.ErrResourceExhausted.
func New(r api.Reactor, d time.Duration) (*Future, error) {
	if r == nil {
		return nil, fmt.Errorf("timer: nil reactor: %w", api.ErrInvalidArgument)
	}
	dev, err := NewDevice(d)
	if err != nil {
		return nil, err
	}
	return &Future{reactor: r, dev: dev, delay: d}, nil
}

// Delay returns the requested delay.
func (f *Future) Delay() time.Duration {
	return f.delay
}

// Poll completes once the timer has expired; otherwise it registers the
// timer descriptor with the reactor and suspends.
func (f *Future) Poll(w api.Waker) (api.PollResult, error) {
	if f.done {
		return api.Ready, nil
	}
	armed, err := f.dev.Armed()
	if err != nil {
		return api.Pending, errors.Join(err, f.release())
	}
	if !armed {
		if err := f.release(); err != nil {
			return api.Ready, err
		}
		return api.Ready, nil
	}
	if err := f.reactor.Register(f.dev.Fd(), w.Clone()); err != nil {
		return api.Pending, fmt.Errorf("timer register: %w", err)
	}
	return api.Pending, nil
}

// Close releases an unfinished timer. Completed timers have nothing left to release.
func (f *Future) Close() error {
	if f.done {
		return nil
	}
	return f.release()
}

func (f *Future) release() error {
	f.done = true
	return errors.Join(f.reactor.Deregister(f.dev.Fd()), f.dev.Close())
}

// Sleep returns a future that arms its timer on first poll, so the delay is
// measured from the moment the surrounding task reaches it.
func Sleep(r api.Reactor, d time.Duration) api.Future {
	return &sleep{reactor: r, delay: d}
}

type sleep struct {
	reactor api.Reactor
	delay   time.Duration
	timer   *Future
}

func (s *sleep) Poll(w api.Waker) (api.PollResult, error) {
	if s.timer == nil {
		t, err := New(s.reactor, s.delay)
		if err != nil {
			return api.Pending, err
		}
		s.timer = t
	}
	return s.timer.Poll(w)
}

func (s *sleep) Close() error {
	if s.timer == nil {
		return nil
	}
	return s.timer.Close()
}
