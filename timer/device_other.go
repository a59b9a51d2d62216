//go:build !linux

// File: timer/device_other.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package timer

import (
	"fmt"
	"time"

	"github.com/momentics/hioload-rt/api"
)

// Device is unavailable outside Linux.
type Device struct{}

// NewDevice returns api.ErrNotSupported on this platform.
func NewDevice(d time.Duration) (*Device, error) {
	return nil, fmt.Errorf("timer: this platform is not supported: %w", api.ErrNotSupported)
}

func (t *Device) Fd() int              { return -1 }
func (t *Device) Armed() (bool, error) { return false, api.ErrNotSupported }
func (t *Device) Close() error         { return nil }
