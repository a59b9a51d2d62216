// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package executor implements the single-goroutine cooperative scheduler of
// hioload-rt.
//
// Submitted futures are wrapped in tasks and polled once right away. A task
// that suspends is parked in the pending set under its TaskID until its waker
// pushes that identity onto the ready queue; the loop then repolls it. When
// nothing is ready the loop blocks in the reactor, which turns descriptor
// readiness into waker calls.
//
//	exec, err := executor.New()
//	if err != nil {
//		return err
//	}
//	defer exec.Close()
//	_ = exec.Spawn(futures.Seq(timer.Sleep(exec.Reactor(), time.Second), futures.Func(report)))
//	err = exec.Run()
//
// The Executor itself is not safe for concurrent use: Spawn, Run, BlockOn and
// Close belong to one goroutine. Wakers, SetPollTimeout and Stats may be used
// from anywhere.
package executor
