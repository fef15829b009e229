//go:build !riscv64

package physmem

import (
	"sync"

	"github.com/gitwillsky/lite-os-sub002/internal/frame"
)

// Sim is a Memory backed by host heap allocations, one per touched PPN,
// lazily created on first access the same way a never-written physical
// frame reads as zero on real hardware.
type Sim struct {
	mu     sync.Mutex
	tables map[frame.PPN]*[512]uint64
	bytes  map[frame.PPN]*[4096]byte
}

// NewSim returns an empty simulated physical memory.
func NewSim() *Sim {
	return &Sim{tables: make(map[frame.PPN]*[512]uint64), bytes: make(map[frame.PPN]*[4096]byte)}
}

func (s *Sim) Table(ppn frame.PPN) *[512]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[ppn]
	if !ok {
		t = &[512]uint64{}
		s.tables[ppn] = t
	}
	return t
}

func (s *Sim) Bytes(ppn frame.PPN) *[4096]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bytes[ppn]
	if !ok {
		b = &[4096]byte{}
		s.bytes[ppn] = b
	}
	return b
}
