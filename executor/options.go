// File: executor/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package executor

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-rt/api"
	"github.com/momentics/hioload-rt/control"
	"github.com/momentics/hioload-rt/reactor"
)

// Config holds all executor configuration parameters.
type Config struct {
	PollTimeout     time.Duration // upper bound of one reactor wait
	ReadyQueueBound int           // ready queue capacity, 0 = unbounded
	EventBatch      int           // readiness events per wait for an owned reactor
	Reactor         api.Reactor   // injected reactor; nil = create and own one
	Logger          zerolog.Logger
	Metrics         *control.MetricsRegistry
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		PollTimeout:     time.Second,
		ReadyQueueBound: 0,
		EventBatch:      reactor.DefaultEventBatch,
		Logger:          zerolog.Nop(),
	}
}

// Option customizes executor initialization.
type Option func(*Config)

// WithPollTimeout bounds how long the loop blocks in the reactor before
// checking the ready queue again.
func WithPollTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.PollTimeout = d
	}
}

// WithReadyQueueBound caps the ready queue. A wake beyond the cap fails with
// api.ErrResourceExhausted.
func WithReadyQueueBound(n int) Option {
	return func(c *Config) {
		c.ReadyQueueBound = n
	}
}

// WithEventBatch overrides the reactor batch size when the executor owns it.
func WithEventBatch(n int) Option {
	return func(c *Config) {
		c.EventBatch = n
	}
}

// WithReactor injects a reactor shared with the caller. The executor does not
// close an injected reactor.
func WithReactor(r api.Reactor) Option {
	return func(c *Config) {
		c.Reactor = r
	}
}

// WithLogger attaches a logger; task lifecycle events are logged at debug level.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithMetrics publishes executor statistics into reg after every Run,
// BlockOn and Close.
func WithMetrics(reg *control.MetricsRegistry) Option {
	return func(c *Config) {
		c.Metrics = reg
	}
}
