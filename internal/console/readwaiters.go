package console

import (
	"sync"

	"github.com/gitwillsky/lite-os-sub002/internal/task"
)

// ReadWaiters is the queue of tasks Blocked(BlockReadWait) on fd 0, the
// console-input counterpart to internal/timer.SleepQueue's "queue of
// blocked TCBs, drained on a periodic event" shape. This module has no
// real PLIC/external-interrupt path (traphandler's
// CauseSupervisorExternalInterrupt is defined but never dispatched), so
// waiters are drained by polling Console.HasInput from the existing
// periodic TimerInterrupt rather than a genuine input-ready interrupt.
type ReadWaiters struct {
	mu   sync.Mutex
	list []*task.Task
}

func NewReadWaiters() *ReadWaiters {
	return &ReadWaiters{}
}

// Add files t as blocked waiting for console input.
func (q *ReadWaiters) Add(t *task.Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.list = append(q.list, t)
}

// WakeReady removes and returns every waiter, once a byte is known to be
// available (spec.md §4.11 blocking read): all of them race to re-execute
// their read on resume, same as a real kernel's "wake every waiter, let
// them recheck" approach to a single-byte-at-a-time source.
func (q *ReadWaiters) WakeReady() []*task.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.list) == 0 {
		return nil
	}
	woken := q.list
	q.list = nil
	return woken
}

// Cancel removes t ahead of a byte becoming available, for a fatal-signal
// interrupted read (spec.md §5 "Cancellation and timeouts").
func (q *ReadWaiters) Cancel(t *task.Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, candidate := range q.list {
		if candidate == t {
			q.list = append(q.list[:i], q.list[i+1:]...)
			return true
		}
	}
	return false
}

// FindByPID linear-scans for a blocked reader with the given pid, used by
// sys_kill to locate a reader a fatal signal must wake early.
func (q *ReadWaiters) FindByPID(pid int) *task.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range q.list {
		if t.PID == pid {
			return t
		}
	}
	return nil
}

// Len reports how many tasks are currently blocked on console input.
func (q *ReadWaiters) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.list)
}
