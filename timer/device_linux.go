//go:build linux

// File: timer/device_linux.go
// Author: momentics <momentics@gmail.com>
//
// timerfd(2)-backed one-shot timer device.

package timer

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-rt/api"
)

// Device wraps one OS one-shot timer and its pollable descriptor.
type Device struct {
	fd     int
	closed bool
}

// NewDevice creates a monotonic timer armed to expire once after d.
// A non-positive d leaves the timer disarmed, i.e. already expired.
func NewDevice(d time.Duration) (*Device, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		return nil, osError("timerfd create", err)
	}
	if d > 0 {
		spec := unix.ItimerSpec{Value: unix.NsecToTimespec(d.Nanoseconds())}
		if err := unix.TimerfdSettime(fd, 0, &spec, nil); err != nil {
			_ = unix.Close(fd)
			return nil, osError("timerfd settime", err)
		}
	}
	return &Device{fd: fd}, nil
}

// Fd returns the pollable descriptor; it becomes readable on expiry.
func (t *Device) Fd() int {
	return t.fd
}

// Armed reports whether the timer is still counting down.
func (t *Device) Armed() (bool, error) {
	if t.closed {
		return false, fmt.Errorf("timerfd gettime: %w", api.ErrClosed)
	}
	var cur unix.ItimerSpec
	if err := unix.TimerfdGettime(t.fd, &cur); err != nil {
		return false, fmt.Errorf("timerfd gettime: %w", err)
	}
	return cur.Value.Sec != 0 || cur.Value.Nsec != 0, nil
}

// Close releases the descriptor. It is safe to call more than once.
func (t *Device) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return unix.Close(t.fd)
}

func osError(op string, err error) error {
	switch {
	case errors.Is(err, unix.EMFILE), errors.Is(err, unix.ENFILE), errors.Is(err, unix.ENOMEM):
		return fmt.Errorf("%s: %w: %w", op, api.ErrResourceExhausted, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
