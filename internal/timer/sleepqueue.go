package timer

import (
	"sort"
	"sync"

	"github.com/gitwillsky/lite-os-sub002/internal/task"
)

// SleepQueue is the wake-time-ordered map from spec.md §3: "lowest key
// yields earliest waker... every TCB in the sleep queue is
// Blocked(Sleep)". Grounded on sleep_queue.rs's
// `BTreeMap<u64, Vec<Arc<TaskControlBlock>>>`; Go's standard library has
// no ordered-map type and no ecosystem btree package appears in the
// example pack's kernel code, so this keeps a sorted key slice alongside
// a plain map instead (documented in DESIGN.md).
type SleepQueue struct {
	mu    sync.Mutex
	keys  []uint64 // sorted ascending, unique
	tasks map[uint64][]*task.Task
}

func NewSleepQueue() *SleepQueue {
	return &SleepQueue{tasks: make(map[uint64][]*task.Task)}
}

// Add files t to wake at wakeUS, setting its SleepWakeAtUS so a later
// cancellation can find it again (spec.md §5 "Cancellation and timeouts").
func (q *SleepQueue) Add(wakeUS uint64, t *task.Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.tasks[wakeUS]; !ok {
		i := sort.Search(len(q.keys), func(i int) bool { return q.keys[i] >= wakeUS })
		q.keys = append(q.keys, 0)
		copy(q.keys[i+1:], q.keys[i:])
		q.keys[i] = wakeUS
	}
	q.tasks[wakeUS] = append(q.tasks[wakeUS], t)
	t.SleepWakeAtUS = wakeUS
}

// WakeDue removes every task whose wake time is at or before now,
// returning them for the caller to transition to Ready and re-add to the
// scheduler (spec.md §4.10 wake_due).
func (q *SleepQueue) WakeDue(nowUS uint64) []*task.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	i := 0
	var due []*task.Task
	for i < len(q.keys) && q.keys[i] <= nowUS {
		due = append(due, q.tasks[q.keys[i]]...)
		delete(q.tasks, q.keys[i])
		i++
	}
	q.keys = q.keys[i:]
	return due
}

// Cancel removes t from the queue ahead of its scheduled wake time,
// keyed by the SleepWakeAtUS it was filed under, for a fatal-signal
// interrupted sleep (spec.md §5).
func (q *SleepQueue) Cancel(t *task.Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	wakeUS := t.SleepWakeAtUS
	bucket, ok := q.tasks[wakeUS]
	if !ok {
		return false
	}
	for i, candidate := range bucket {
		if candidate == t {
			bucket = append(bucket[:i], bucket[i+1:]...)
			if len(bucket) == 0 {
				delete(q.tasks, wakeUS)
				q.removeKey(wakeUS)
			} else {
				q.tasks[wakeUS] = bucket
			}
			return true
		}
	}
	return false
}

func (q *SleepQueue) removeKey(wakeUS uint64) {
	i := sort.Search(len(q.keys), func(i int) bool { return q.keys[i] >= wakeUS })
	if i < len(q.keys) && q.keys[i] == wakeUS {
		q.keys = append(q.keys[:i], q.keys[i+1:]...)
	}
}

// FindByPID linear-scans every bucket for a sleeping task with the given
// pid, used by sys_kill to locate a sleeper that a fatal signal must wake
// early (spec.md §5 "Cancellation and timeouts").
func (q *SleepQueue) FindByPID(pid int) *task.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, bucket := range q.tasks {
		for _, t := range bucket {
			if t.PID == pid {
				return t
			}
		}
	}
	return nil
}

// NextWake reports the earliest pending wake time, if any.
func (q *SleepQueue) NextWake() (wakeUS uint64, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.keys) == 0 {
		return 0, false
	}
	return q.keys[0], true
}

// Len is the total number of sleeping tasks across all keys.
func (q *SleepQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, bucket := range q.tasks {
		n += len(bucket)
	}
	return n
}
