// File: executor/task.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package executor

import (
	"io"

	"github.com/momentics/hioload-rt/api"
)

// Role tells how a task entered the executor. It affects bookkeeping only,
// never scheduling order.
type Role int

const (
	RoleSpawned  Role = iota // submitted with Spawn
	RoleBlocking             // top-level future of BlockOn
)

func (r Role) String() string {
	if r == RoleBlocking {
		return "blocking"
	}
	return "spawned"
}

// Task owns one suspended computation end-to-end.
type Task struct {
	id     api.TaskID
	future api.Future
	tx     *sender
	role   Role
	done   bool
}

func newTask(id api.TaskID, f api.Future, tx *sender, role Role) *Task {
	return &Task{id: id, future: f, tx: tx, role: role}
}

// ID returns the task identity.
func (t *Task) ID() api.TaskID { return t.id }

// Role returns how the task was submitted.
func (t *Task) Role() Role { return t.role }

// Done reports whether the task has completed.
func (t *Task) Done() bool { return t.done }

// poll drives the future once with a waker bound to this task.
func (t *Task) poll() (api.PollResult, error) {
	if t.done {
		return api.Ready, api.NewError(api.ErrCodeInvariant, "task polled after completion").
			WithContext("task", t.id)
	}
	res, err := t.future.Poll(waker{id: t.id, tx: t.tx})
	if err != nil || res == api.Ready {
		t.done = true
		t.future = nil
	}
	return res, err
}

// release gives up an unfinished future, closing it when it holds resources.
func (t *Task) release() error {
	f := t.future
	t.future = nil
	t.done = true
	if c, ok := f.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
