//go:build linux

// File: reactor/epoll_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based reactor with an eventfd used to interrupt waits.

package reactor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"fortio.org/safecast"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-rt/api"
)

// Reactor is an epoll-based api.Reactor.
type Reactor struct {
	epfd   int // epoll file descriptor
	evfd   int // eventfd written by Interrupt
	events []unix.EpollEvent
	wakers *registry
	log    zerolog.Logger
	closed atomic.Bool

	// set while ready descriptors are being dispatched; an interrupt then
	// has nothing to wake since the wait is about to return anyway
	dispatching atomic.Bool

	// statistics
	waits      atomic.Int64
	dispatched atomic.Int64
}

var _ api.Reactor = (*Reactor)(nil)

// New creates an epoll instance and its interrupt eventfd.
func New(opts ...Option) (*Reactor, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, osError("epoll create", err)
	}
	evfd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, osError("eventfd create", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(evfd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, evfd, &ev); err != nil {
		_ = unix.Close(evfd)
		_ = unix.Close(epfd)
		return nil, osError("epoll ctl add eventfd", err)
	}

	return &Reactor{
		epfd:   epfd,
		evfd:   evfd,
		events: make([]unix.EpollEvent, o.eventBatch),
		wakers: newRegistry(),
		log:    o.log,
	}, nil
}

// Register arms fd for one readiness report and binds w to it.
func (r *Reactor) Register(fd int, w api.Waker) error {
	if r.closed.Load() {
		return fmt.Errorf("reactor register: %w", api.ErrClosed)
	}
	if w == nil || fd < 0 || fd == r.evfd {
		return fmt.Errorf("reactor register fd %d: %w", fd, api.ErrInvalidArgument)
	}
	fd32, err := safecast.Conv[int32](fd)
	if err != nil {
		return fmt.Errorf("reactor register fd %d: %w", fd, api.ErrInvalidArgument)
	}

	// The waker is stored before the descriptor is armed so that a report
	// can never precede its waker.
	prev, replaced := r.wakers.put(fd, w)
	if replaced {
		r.log.Debug().
			Int("fd", fd).
			Uint64("prev_task", uint64(prev.TaskID())).
			Uint64("task", uint64(w.TaskID())).
			Msg("waker replaced")
	}

	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLONESHOT, Fd: fd32}
	err = unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
	if errors.Is(err, unix.EEXIST) {
		err = unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
	}
	if err != nil {
		if replaced {
			r.wakers.restore(fd, prev)
		} else {
			r.wakers.drop(fd)
		}
		return osError("epoll ctl add", err)
	}
	r.log.Debug().Int("fd", fd).Uint64("task", uint64(w.TaskID())).Msg("descriptor registered")
	return nil
}

// Deregister removes fd from the interest set. Descriptors the kernel has
// already forgotten (closed, never added) are not an error.
func (r *Reactor) Deregister(fd int) error {
	if r.closed.Load() {
		return fmt.Errorf("reactor deregister: %w", api.ErrClosed)
	}
	r.wakers.drop(fd)
	err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err != nil && !errors.Is(err, unix.ENOENT) && !errors.Is(err, unix.EBADF) {
		return fmt.Errorf("epoll ctl del: %w", err)
	}
	return nil
}

// WaitAndDispatch blocks and wakes the task bound to every ready descriptor.
func (r *Reactor) WaitAndDispatch(timeout time.Duration) (int, error) {
	if r.closed.Load() {
		return 0, fmt.Errorf("reactor wait: %w", api.ErrClosed)
	}
	r.waits.Add(1)

	n, err := unix.EpollWait(r.epfd, r.events, timeoutMillis(timeout))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil // interrupted by signal: normal
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}

	r.dispatching.Store(true)
	defer r.dispatching.Store(false)

	dispatched := 0
	for i := 0; i < n; i++ {
		fd := int(r.events[i].Fd)
		if fd == r.evfd {
			r.drainInterrupt()
			continue
		}
		w, ok := r.wakers.take(fd)
		if !ok {
			return dispatched, api.NewError(api.ErrCodeInvariant, "readiness reported for descriptor without waker").
				WithContext("fd", fd)
		}
		r.log.Debug().Int("fd", fd).Uint64("task", uint64(w.TaskID())).Msg("descriptor ready")
		if err := w.Wake(); err != nil {
			// The notification did not land: give the waker back and re-arm
			// this descriptor and the rest of the batch so the next wait
			// reports them again.
			r.wakers.restore(fd, w)
			werr := fmt.Errorf("wake task %d for fd %d: %w", w.TaskID(), fd, err)
			return dispatched, errors.Join(werr, r.rearm(r.events[i:n]))
		}
		dispatched++
		r.dispatched.Add(1)
	}
	return dispatched, nil
}

// rearm re-enables one-shot descriptors whose readiness was reported but not
// dispatched.
func (r *Reactor) rearm(events []unix.EpollEvent) error {
	var errs []error
	for i := range events {
		fd := int(events[i].Fd)
		if fd == r.evfd {
			continue
		}
		ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLONESHOT, Fd: events[i].Fd}
		if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
			errs = append(errs, fmt.Errorf("epoll ctl mod fd %d: %w", fd, err))
			continue
		}
		r.log.Debug().Int("fd", fd).Msg("descriptor re-armed")
	}
	return errors.Join(errs...)
}

// Interrupt wakes a blocked WaitAndDispatch. While a wait is dispatching
// its events the call is a no-op: that wait returns right after.
func (r *Reactor) Interrupt() error {
	if r.closed.Load() {
		return fmt.Errorf("reactor interrupt: %w", api.ErrClosed)
	}
	if r.dispatching.Load() {
		return nil
	}
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	if _, err := unix.Write(r.evfd, buf[:]); err != nil && !errors.Is(err, unix.EAGAIN) {
		return fmt.Errorf("eventfd write: %w", err)
	}
	return nil
}

func (r *Reactor) drainInterrupt() {
	var buf [8]byte
	_, _ = unix.Read(r.evfd, buf[:])
}

// Len returns the number of descriptors with a registered waker.
func (r *Reactor) Len() int {
	return r.wakers.len()
}

// Stats returns basic reactor metrics.
func (r *Reactor) Stats() map[string]int64 {
	return map[string]int64{
		"reactor_waits":      r.waits.Load(),
		"reactor_dispatched": r.dispatched.Load(),
		"reactor_registered": int64(r.wakers.len()),
		"reactor_overwrites": r.wakers.overwritten(),
	}
}

// Close releases the epoll and eventfd descriptors.
func (r *Reactor) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	return errors.Join(unix.Close(r.evfd), unix.Close(r.epfd))
}

// timeoutMillis converts timeout to the epoll_wait argument, rounding up so a
// sub-millisecond timeout does not turn into a busy poll.
func timeoutMillis(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	ms := (timeout + time.Millisecond - 1) / time.Millisecond
	v, err := safecast.Conv[int32](int64(ms))
	if err != nil {
		return math.MaxInt32
	}
	return int(v)
}

// osError wraps err, tagging descriptor and memory exhaustion as
// api.ErrResourceExhausted.
func osError(op string, err error) error {
	switch {
	case errors.Is(err, unix.EMFILE), errors.Is(err, unix.ENFILE),
		errors.Is(err, unix.ENOMEM), errors.Is(err, unix.ENOSPC):
		return fmt.Errorf("%s: %w: %w", op, api.ErrResourceExhausted, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
