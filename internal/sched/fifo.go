package sched

import (
	"sync"

	"github.com/gitwillsky/lite-os-sub002/internal/task"
)

// FIFO is the required reference scheduler (spec.md §4.9): a deque, add
// appends, fetch pops the head. Time-slice expiration re-adds the
// preempted task at the tail, giving it the fairness property S2
// describes ("yield counts within 1 of each other"). Grounded directly on
// fifo_scheduler.rs's VecDeque-backed FIFOScheduler.
type FIFO struct {
	mu    sync.Mutex
	tasks []*task.Task
}

func NewFIFO() *FIFO { return &FIFO{} }

func (f *FIFO) Add(t *task.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, t)
}

func (f *FIFO) Fetch() *task.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tasks) == 0 {
		return nil
	}
	t := f.tasks[0]
	f.tasks = f.tasks[1:]
	return t
}

func (f *FIFO) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

func (f *FIFO) FindByPID(pid int) *task.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tasks {
		if t.PID == pid {
			return t
		}
	}
	return nil
}
