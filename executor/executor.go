// File: executor/executor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor owns the pending set and drives the poll/wake loop.

package executor

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-rt/api"
	"github.com/momentics/hioload-rt/control"
	"github.com/momentics/hioload-rt/internal/concurrency"
	"github.com/momentics/hioload-rt/reactor"
)

// Executor schedules tasks cooperatively on the goroutine that calls Run or
// BlockOn.
type Executor struct {
	reactor    api.Reactor
	ownReactor bool
	ready      *concurrency.ReadyQueue
	tx         *sender
	pending    map[api.TaskID]*Task
	nextID     api.TaskID

	pollTimeout atomic.Int64
	depth       int  // nesting of task polls in progress
	running     bool // inside Run or BlockOn
	closed      bool
	broken      error // first invariant breach; the executor is unusable after it

	topDone  bool
	topErr   error
	taskErrs []error

	log     zerolog.Logger
	metrics *control.MetricsRegistry

	// statistics
	spawned   atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	polls     atomic.Int64
	waits     atomic.Int64
	skipped   atomic.Int64
	pendingN  atomic.Int64
}

// New creates an executor. Unless a reactor is injected with WithReactor, an
// epoll reactor is created and owned by the executor.
func New(opts ...Option) (*Executor, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultConfig().PollTimeout
	}

	r, own := cfg.Reactor, false
	if r == nil {
		rr, err := reactor.New(
			reactor.WithEventBatch(cfg.EventBatch),
			reactor.WithLogger(cfg.Logger),
		)
		if err != nil {
			return nil, fmt.Errorf("executor: %w", err)
		}
		r, own = rr, true
	}

	ready := concurrency.NewReadyQueue(cfg.ReadyQueueBound)
	e := &Executor{
		reactor:    r,
		ownReactor: own,
		ready:      ready,
		tx:         &sender{queue: ready, reactor: r},
		pending:    make(map[api.TaskID]*Task),
		log:        cfg.Logger,
		metrics:    cfg.Metrics,
	}
	e.SetPollTimeout(cfg.PollTimeout)
	return e, nil
}

// Reactor returns the reactor futures of this executor must register with.
func (e *Executor) Reactor() api.Reactor {
	return e.reactor
}

// PollTimeout returns the current bound of one reactor wait.
func (e *Executor) PollTimeout() time.Duration {
	return time.Duration(e.pollTimeout.Load())
}

// SetPollTimeout changes the bound of reactor waits. Non-positive values are
// ignored. Safe for concurrent use.
func (e *Executor) SetPollTimeout(d time.Duration) {
	if d > 0 {
		e.pollTimeout.Store(int64(d))
	}
}

// Pending returns the number of suspended tasks.
func (e *Executor) Pending() int {
	return int(e.pendingN.Load())
}

// Spawn wraps f in a task and polls it once on the calling goroutine. A task
// that completes right away leaves no trace; a suspended one joins the
// pending set. The error of a task failing on this first poll is returned.
//
// Spawn may be called from inside a running task.
func (e *Executor) Spawn(f api.Future) error {
	if err := e.usable(); err != nil {
		return err
	}
	if f == nil {
		return fmt.Errorf("spawn nil future: %w", api.ErrInvalidArgument)
	}
	t := e.newTask(f, RoleSpawned)
	taskErr, fatal := e.process(t)
	if fatal != nil {
		return fatal
	}
	return taskErr
}

// Run drives every known task, including ones spawned while it runs, until
// the pending set is empty. Errors of failed tasks are joined and returned
// once the loop ends; reactor failures and invariant breaches stop it at once.
func (e *Executor) Run() error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.leave()

	if err := e.drive(func() bool { return len(e.pending) == 0 }); err != nil {
		return err
	}
	return e.collectTaskErrors()
}

// BlockOn runs f as the top-level task and returns as soon as f itself has
// completed, with f's error. Other tasks make progress meanwhile but may
// still be pending afterwards; a later Run or BlockOn continues them. Errors
// of those other tasks are kept for the next Run.
func (e *Executor) BlockOn(f api.Future) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.leave()
	if f == nil {
		return fmt.Errorf("block on nil future: %w", api.ErrInvalidArgument)
	}

	e.topDone, e.topErr = false, nil
	t := e.newTask(f, RoleBlocking)
	if _, fatal := e.process(t); fatal != nil {
		return fatal
	}
	if err := e.drive(func() bool { return e.topDone }); err != nil {
		return err
	}
	err := e.topErr
	e.topErr = nil
	return err
}

// Close abandons every pending task, releasing futures that implement
// io.Closer, and closes the reactor if the executor owns it.
func (e *Executor) Close() error {
	if e.closed {
		return nil
	}
	if e.running || e.depth > 0 {
		return fmt.Errorf("close from inside the loop: %w", api.ErrInvalidArgument)
	}
	e.closed = true

	var errs []error
	for id, t := range e.pending {
		errs = append(errs, t.release())
		delete(e.pending, id)
		e.log.Debug().Uint64("task", uint64(id)).Msg("task abandoned")
	}
	e.pendingN.Store(0)
	for {
		if _, ok := e.ready.Pop(); !ok {
			break
		}
	}
	if e.ownReactor {
		errs = append(errs, e.reactor.Close())
	}
	e.publish()
	return errors.Join(errs...)
}

// Stats returns executor, ready queue and reactor metrics.
func (e *Executor) Stats() map[string]int64 {
	stats := map[string]int64{
		"tasks_spawned":   e.spawned.Load(),
		"tasks_completed": e.completed.Load(),
		"tasks_failed":    e.failed.Load(),
		"tasks_pending":   e.pendingN.Load(),
		"polls":           e.polls.Load(),
		"wakes":           e.tx.wakes.Load(),
		"reactor_waits":   e.waits.Load(),
		"parks_skipped":   e.skipped.Load(),
	}
	for k, v := range e.ready.Stats() {
		stats[k] = v
	}
	if s, ok := e.reactor.(interface{ Stats() map[string]int64 }); ok {
		for k, v := range s.Stats() {
			if _, taken := stats[k]; !taken {
				stats[k] = v
			}
		}
	}
	return stats
}

func (e *Executor) usable() error {
	if e.broken != nil {
		return e.broken
	}
	if e.closed {
		return fmt.Errorf("executor: %w", api.ErrClosed)
	}
	return nil
}

func (e *Executor) enter() error {
	if err := e.usable(); err != nil {
		return err
	}
	if e.running || e.depth > 0 {
		return fmt.Errorf("executor loop re-entered: %w", api.ErrInvalidArgument)
	}
	e.running = true
	return nil
}

func (e *Executor) leave() {
	e.running = false
	e.publish()
}

func (e *Executor) newTask(f api.Future, role Role) *Task {
	e.nextID++
	e.spawned.Add(1)
	t := newTask(e.nextID, f, e.tx, role)
	e.log.Debug().Uint64("task", uint64(t.id)).Stringer("role", role).Msg("task created")
	return t
}

// process polls t once and files it: completed tasks are dropped, suspended
// ones go to the pending set. A failed task is reported through taskErr;
// fatal is set only for invariant breaches.
func (e *Executor) process(t *Task) (taskErr, fatal error) {
	e.polls.Add(1)
	e.depth++
	res, err := t.poll()
	e.depth--

	if errors.Is(err, api.ErrInvariant) {
		return nil, e.breach(err)
	}
	switch {
	case err != nil:
		e.failed.Add(1)
		taskErr = fmt.Errorf("task %d: %w", t.id, err)
		e.log.Debug().Uint64("task", uint64(t.id)).Err(err).Msg("task failed")
	case res == api.Ready:
		e.completed.Add(1)
		e.log.Debug().Uint64("task", uint64(t.id)).Msg("task is ready")
	default:
		if _, dup := e.pending[t.id]; dup {
			return nil, e.breach(api.NewError(api.ErrCodeInvariant, "duplicate task identity in pending set").
				WithContext("task", t.id))
		}
		e.pending[t.id] = t
		e.pendingN.Add(1)
		e.log.Debug().Uint64("task", uint64(t.id)).Msg("task is pending")
		return nil, nil
	}

	if t.role == RoleBlocking {
		e.topDone, e.topErr = true, taskErr
		return nil, nil
	}
	return taskErr, nil
}

// drive alternates between draining the ready queue and waiting in the
// reactor until done reports true.
func (e *Executor) drive(done func() bool) error {
	for !done() {
		for {
			id, ok := e.ready.Pop()
			if !ok {
				break
			}
			t, found := e.pending[id]
			if !found {
				return e.breach(api.NewError(api.ErrCodeInvariant, "ready queue holds identity with no pending task").
					WithContext("task", id))
			}
			delete(e.pending, id)
			e.pendingN.Add(-1)

			taskErr, fatal := e.process(t)
			if fatal != nil {
				return fatal
			}
			if taskErr != nil {
				e.taskErrs = append(e.taskErrs, taskErr)
			}
		}
		if done() {
			break
		}
		if err := e.park(); err != nil {
			return err
		}
	}
	return nil
}

// park blocks in the reactor unless a wake slipped in after the last drain.
func (e *Executor) park() error {
	e.tx.parked.Store(true)
	if e.ready.Len() > 0 {
		e.tx.parked.Store(false)
		e.skipped.Add(1)
		return nil
	}
	e.waits.Add(1)
	n, err := e.reactor.WaitAndDispatch(e.PollTimeout())
	e.tx.parked.Store(false)
	if err != nil {
		if errors.Is(err, api.ErrInvariant) {
			return e.breach(err)
		}
		return fmt.Errorf("reactor wait: %w", err)
	}
	if n > 0 {
		e.log.Debug().Int("events", n).Int("pending", len(e.pending)).Msg("reactor dispatched")
	}
	return nil
}

func (e *Executor) breach(err error) error {
	if e.broken == nil {
		e.broken = err
		e.log.Error().Err(err).Msg("executor invariant violated")
	}
	return e.broken
}

func (e *Executor) collectTaskErrors() error {
	errs := e.taskErrs
	e.taskErrs = nil
	return errors.Join(errs...)
}

func (e *Executor) publish() {
	if e.metrics != nil {
		e.metrics.Merge(e.Stats())
	}
}
