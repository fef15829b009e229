package sched

import (
	"container/heap"
	"sync"

	"github.com/gitwillsky/lite-os-sub002/internal/task"
)

// CFS is the optional completely-fair-scheduler variant (spec.md §4.9): a
// min-heap keyed by accumulated vruntime, ties broken by insertion order.
// Grounded on cfs_scheduler.rs's BinaryHeap<CFSTask> with the min/max
// polarity inverted (Rust's BinaryHeap is a max-heap, so CFSTask::cmp
// reverses the comparison to get min-vruntime-first; container/heap is
// already a min-heap over Less, so no reversal is needed here).
type CFS struct {
	mu sync.Mutex
	pq cfsHeap
	seq uint64
}

func NewCFS() *CFS { return &CFS{} }

type cfsEntry struct {
	t   *task.Task
	seq uint64 // insertion order, tie-breaks equal vruntime
}

type cfsHeap []cfsEntry

func (h cfsHeap) Len() int { return len(h) }
func (h cfsHeap) Less(i, j int) bool {
	vi, vj := h[i].t.Sched.VRuntime, h[j].t.Sched.VRuntime
	if vi != vj {
		return vi < vj
	}
	return h[i].seq < h[j].seq
}
func (h cfsHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *cfsHeap) Push(x any)   { *h = append(*h, x.(cfsEntry)) }
func (h *cfsHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

func (c *CFS) Add(t *task.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	heap.Push(&c.pq, cfsEntry{t: t, seq: c.seq})
	c.seq++
}

func (c *CFS) Fetch() *task.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pq.Len() == 0 {
		return nil
	}
	e := heap.Pop(&c.pq).(cfsEntry)
	return e.t
}

func (c *CFS) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pq.Len()
}

func (c *CFS) FindByPID(pid int) *task.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.pq {
		if e.t.PID == pid {
			return e.t
		}
	}
	return nil
}

// AccountRuntime adds elapsed real time (ns), weighted by the task's
// scheduling weight, to its vruntime — CFS's "vruntime is incremented by
// elapsed real time divided by the task's weight" (spec.md §4.9), using
// task.DefaultWeight as the reference weight so a nice-0 task accrues
// vruntime 1:1 with wall time.
func AccountRuntime(t *task.Task, elapsedNS uint64) {
	weight := t.Sched.Weight
	if weight == 0 {
		weight = task.DefaultWeight
	}
	t.Sched.VRuntime += elapsedNS * task.DefaultWeight / weight
}
