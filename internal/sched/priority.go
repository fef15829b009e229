package sched

import (
	"sync"

	"github.com/gitwillsky/lite-os-sub002/internal/task"
)

// PriorityBuckets is the optional priority-bucket scheduler variant
// (spec.md §4.9): 40 bucketed deques, always fetch from the lowest
// non-empty bucket. Grounded on priority_scheduler.rs's
// `priority_queues: [VecDeque<...>; 40]`.
const PriorityBuckets = 40

type PriorityScheduler struct {
	mu      sync.Mutex
	buckets [PriorityBuckets][]*task.Task
}

func NewPriority() *PriorityScheduler { return &PriorityScheduler{} }

func clampPriority(p int) int {
	if p < 0 {
		return 0
	}
	if p >= PriorityBuckets {
		return PriorityBuckets - 1
	}
	return p
}

func (p *PriorityScheduler) Add(t *task.Task) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b := clampPriority(t.Sched.Priority)
	p.buckets[b] = append(p.buckets[b], t)
}

func (p *PriorityScheduler) Fetch() *task.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.buckets {
		if len(p.buckets[i]) > 0 {
			t := p.buckets[i][0]
			p.buckets[i] = p.buckets[i][1:]
			return t
		}
	}
	return nil
}

func (p *PriorityScheduler) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for i := range p.buckets {
		n += len(p.buckets[i])
	}
	return n
}

func (p *PriorityScheduler) FindByPID(pid int) *task.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.buckets {
		for _, t := range p.buckets[i] {
			if t.PID == pid {
				return t
			}
		}
	}
	return nil
}
