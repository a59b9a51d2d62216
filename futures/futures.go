// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package futures provides small building blocks for composing api.Future
// values by hand: immediate results, deferred construction, sequencing and
// cooperative yielding.
package futures

import (
	"errors"
	"io"

	"github.com/momentics/hioload-rt/api"
)

// Ready returns a future that completes on its first poll.
func Ready() api.Future {
	return api.FutureFunc(func(api.Waker) (api.PollResult, error) {
		return api.Ready, nil
	})
}

// Fail returns a future whose first poll fails with err.
func Fail(err error) api.Future {
	return api.FutureFunc(func(api.Waker) (api.PollResult, error) {
		return api.Ready, err
	})
}

// Func returns a future that runs fn once, on its first poll, and completes
// with fn's error.
func Func(fn func() error) api.Future {
	return api.FutureFunc(func(api.Waker) (api.PollResult, error) {
		return api.Ready, fn()
	})
}

// Lazy defers building the inner future until the first poll.
func Lazy(build func() (api.Future, error)) api.Future {
	return &lazy{build: build}
}

type lazy struct {
	build func() (api.Future, error)
	inner api.Future
}

func (l *lazy) Poll(w api.Waker) (api.PollResult, error) {
	if l.inner == nil {
		f, err := l.build()
		if err != nil {
			return api.Ready, err
		}
		l.inner = f
	}
	return l.inner.Poll(w)
}

func (l *lazy) Close() error {
	return closeFuture(l.inner)
}

// Seq runs fs one after another. A step that completes hands over to the
// next one within the same poll; the first error stops the sequence.
func Seq(fs ...api.Future) api.Future {
	return &seq{steps: fs}
}

type seq struct {
	steps []api.Future
	next  int
}

func (s *seq) Poll(w api.Waker) (api.PollResult, error) {
	for s.next < len(s.steps) {
		res, err := s.steps[s.next].Poll(w)
		if err != nil {
			s.next = len(s.steps)
			return api.Ready, err
		}
		if res == api.Pending {
			return api.Pending, nil
		}
		s.next++
	}
	return api.Ready, nil
}

func (s *seq) Close() error {
	var errs []error
	for _, f := range s.steps[s.next:] {
		errs = append(errs, closeFuture(f))
	}
	return errors.Join(errs...)
}

// Yield returns a future that suspends n times, waking itself each time, so
// the executor gets to run other ready tasks in between.
func Yield(n int) api.Future {
	left := n
	return api.FutureFunc(func(w api.Waker) (api.PollResult, error) {
		if left <= 0 {
			return api.Ready, nil
		}
		left--
		if err := w.Wake(); err != nil {
			return api.Ready, err
		}
		return api.Pending, nil
	})
}

func closeFuture(f api.Future) error {
	if c, ok := f.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
