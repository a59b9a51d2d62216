//go:build linux

package executor_test

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/momentics/hioload-rt/api"
	"github.com/momentics/hioload-rt/executor"
	"github.com/momentics/hioload-rt/futures"
	"github.com/momentics/hioload-rt/timer"
)

func newEpollExecutor(t *testing.T, opts ...executor.Option) *executor.Executor {
	t.Helper()
	e, err := executor.New(opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

// sleepAndRecord waits d on a timer, then reports the time elapsed since spawn.
func sleepAndRecord(r api.Reactor, d time.Duration, record func(time.Duration)) api.Future {
	start := time.Now()
	return futures.Seq(timer.Sleep(r, d), futures.Func(func() error {
		record(time.Since(start))
		return nil
	}))
}

func TestTimers_RunConcurrently(t *testing.T) {
	e := newEpollExecutor(t)
	var mu sync.Mutex
	var finished []time.Duration
	record := func(d time.Duration) {
		mu.Lock()
		finished = append(finished, d)
		mu.Unlock()
	}

	start := time.Now()
	if err := e.Spawn(sleepAndRecord(e.Reactor(), 300*time.Millisecond, record)); err != nil {
		t.Fatal(err)
	}
	if err := e.Spawn(sleepAndRecord(e.Reactor(), 200*time.Millisecond, record)); err != nil {
		t.Fatal(err)
	}
	if err := e.Run(); err != nil {
		t.Fatal(err)
	}
	elapsed := time.Since(start)

	if len(finished) != 2 {
		t.Fatalf("expected 2 completions, got %d", len(finished))
	}
	if finished[0] > finished[1]+50*time.Millisecond {
		t.Errorf("shorter timer finished after the longer one: %v", finished)
	}
	if finished[0] < 200*time.Millisecond || finished[1] < 300*time.Millisecond {
		t.Errorf("timers completed early: %v", finished)
	}
	if elapsed >= 450*time.Millisecond {
		t.Errorf("timers ran serially: total %v", elapsed)
	}
}

func TestTimers_HundredConcurrent(t *testing.T) {
	e := newEpollExecutor(t)
	const n, delay = 100, 100 * time.Millisecond
	var done atomic.Int32

	start := time.Now()
	for i := 0; i < n; i++ {
		err := e.Spawn(sleepAndRecord(e.Reactor(), delay, func(time.Duration) { done.Add(1) }))
		if err != nil {
			t.Fatal(err)
		}
	}
	if e.Pending() != n {
		t.Fatalf("expected %d pending tasks, got %d", n, e.Pending())
	}
	if err := e.Run(); err != nil {
		t.Fatal(err)
	}
	elapsed := time.Since(start)

	if done.Load() != n {
		t.Errorf("only %d of %d timers completed", done.Load(), n)
	}
	if e.Pending() != 0 {
		t.Errorf("pending set not empty: %d", e.Pending())
	}
	if elapsed < delay || elapsed > 10*delay {
		t.Errorf("100 timers of %v took %v", delay, elapsed)
	}
}

func TestTimers_ZeroDelayNeverHangs(t *testing.T) {
	e := newEpollExecutor(t)
	f, err := timer.New(e.Reactor(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Spawn(f); err != nil {
		t.Fatal(err)
	}
	if e.Pending() != 0 {
		t.Fatalf("zero-delay timer suspended")
	}
	if err := e.BlockOn(timer.Sleep(e.Reactor(), 0)); err != nil {
		t.Fatal(err)
	}
}

func TestBlockOn_TimerWithUnrelatedPendingTask(t *testing.T) {
	e := newEpollExecutor(t)
	var long atomic.Bool
	if err := e.Spawn(sleepAndRecord(e.Reactor(), 400*time.Millisecond, func(time.Duration) { long.Store(true) })); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	if err := e.BlockOn(timer.Sleep(e.Reactor(), 50*time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	elapsed := time.Since(start)
	if elapsed < 50*time.Millisecond {
		t.Fatalf("BlockOn returned before its timer expired (%v)", elapsed)
	}
	if elapsed > 300*time.Millisecond || long.Load() {
		t.Fatalf("BlockOn waited for the unrelated task (%v)", elapsed)
	}
	if e.Pending() != 1 {
		t.Fatalf("expected 1 pending task, got %d", e.Pending())
	}
	if err := e.Run(); err != nil {
		t.Fatal(err)
	}
	if !long.Load() {
		t.Error("remaining task not finished by Run")
	}
}

func TestWake_FromAnotherGoroutineInterruptsWait(t *testing.T) {
	e := newEpollExecutor(t, executor.WithPollTimeout(10*time.Second))
	polled := 0
	err := e.Spawn(api.FutureFunc(func(w api.Waker) (api.PollResult, error) {
		polled++
		if polled > 1 {
			return api.Ready, nil
		}
		go func() {
			time.Sleep(20 * time.Millisecond)
			_ = w.Wake()
		}()
		return api.Pending, nil
	}))
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	if err := e.Run(); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("cross-goroutine wake waited for the poll timeout (%v)", elapsed)
	}
}

func TestIndependentExecutors(t *testing.T) {
	var g errgroup.Group
	var total atomic.Int32
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			e, err := executor.New()
			if err != nil {
				return err
			}
			defer e.Close()
			for j := 0; j < 10; j++ {
				if err := e.Spawn(sleepAndRecord(e.Reactor(), 50*time.Millisecond, func(time.Duration) { total.Add(1) })); err != nil {
					return err
				}
			}
			return e.Run()
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if total.Load() != 40 {
		t.Errorf("expected 40 completed timers, got %d", total.Load())
	}
}

func TestClose_ReleasesTimerDescriptors(t *testing.T) {
	e, err := executor.New()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if err := e.Spawn(timer.Sleep(e.Reactor(), time.Hour)); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	if e.Pending() != 0 {
		t.Errorf("Close left %d pending tasks", e.Pending())
	}
}

func TestRun_RetryAfterReadyQueueOverflowFinishes(t *testing.T) {
	e := newEpollExecutor(t, executor.WithReadyQueueBound(1), executor.WithPollTimeout(100*time.Millisecond))
	for i := 0; i < 2; i++ {
		if err := e.Spawn(timer.Sleep(e.Reactor(), 20*time.Millisecond)); err != nil {
			t.Fatal(err)
		}
	}
	// Both timers expire before the first wait, so they are reported together.
	time.Sleep(60 * time.Millisecond)

	done := make(chan error, 1)
	go func() {
		if err := e.Run(); !errors.Is(err, api.ErrResourceExhausted) {
			done <- fmt.Errorf("first Run: expected ErrResourceExhausted, got %v", err)
			return
		}
		done <- e.Run()
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("retried Run never finished, pending=%d", e.Pending())
	}
	if e.Pending() != 0 {
		t.Errorf("pending = %d", e.Pending())
	}
}

func TestRun_DispatchWakeDoesNotCostExtraWait(t *testing.T) {
	e := newEpollExecutor(t)
	for _, d := range []time.Duration{20 * time.Millisecond, 200 * time.Millisecond} {
		if err := e.Spawn(timer.Sleep(e.Reactor(), d)); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.Run(); err != nil {
		t.Fatal(err)
	}
	if waits := e.Stats()["reactor_waits"]; waits != 2 {
		t.Errorf("reactor waits = %d, want one per timer", waits)
	}
}
