// Package sched is the ready-queue scheduler (spec.md §4.9, C9): add,
// fetch, find-by-pid over a FIFO (required), CFS, or priority-bucket
// ordering, grounded on
// original_source/kernel/src/task/scheduler/{mod,fifo_scheduler,
// cfs_scheduler,priority_scheduler}.rs's Scheduler trait and its three
// implementations.
package sched

import "github.com/gitwillsky/lite-os-sub002/internal/task"

// Scheduler is the common ready-queue contract every policy implements,
// mirroring scheduler/mod.rs's Scheduler trait (add_task/fetch_task/
// ready_task_count/find_task_by_pid).
type Scheduler interface {
	// Add inserts a Ready task into the ready structure.
	Add(t *task.Task)
	// Fetch removes and returns the next runnable task, nil if empty.
	Fetch() *task.Task
	// Len reports how many tasks are currently queued.
	Len() int
	// FindByPID linear-scans the ready structure for pid.
	FindByPID(pid int) *task.Task
}
