// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package timer implements a one-shot timer future on top of the reactor.
//
// Each Future owns one timerfd for its whole lifetime. Polling an armed timer
// registers the descriptor with the reactor and suspends; polling a disarmed
// (expired) timer completes and releases the descriptor.
package timer
