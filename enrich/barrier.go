package enrich

import (
	"sync"
	"sync/atomic"
)

// barrier is a reference-counted join primitive. Holders acquire a handle
// per unit of work and release it when the unit finishes; the finalizer
// fires exactly once, after the last handle is released. Construction
// counts as one implicit handle, returned to the owner, who releases it
// once fan-out is fully issued. This makes the finalizer fire even when
// zero handles were ever acquired.
type barrier struct {
	pending atomic.Int64
	done    func()
}

// newBarrier creates a barrier with the given finalizer and returns it
// together with the construction handle.
func newBarrier(done func()) (*barrier, *handle) {
	b := &barrier{done: done}
	b.pending.Store(1)
	return b, &handle{barrier: b}
}

// acquire adds one pending handle. The caller must itself hold an
// unreleased handle; acquiring after the finalizer fired is a programming
// error.
func (b *barrier) acquire() *handle {
	if b.pending.Add(1) <= 1 {
		panic("enrich: barrier acquired after completion")
	}
	return &handle{barrier: b}
}

func (b *barrier) release() {
	switch n := b.pending.Add(-1); {
	case n == 0:
		b.done()
	case n < 0:
		panic("enrich: barrier released more times than acquired")
	}
}

// handle is one unit of pending work on a barrier. Safe to release from
// any goroutine; releasing the same handle twice is a programming error.
type handle struct {
	barrier  *barrier
	released atomic.Bool
}

func (h *handle) release() {
	if !h.released.CompareAndSwap(false, true) {
		panic("enrich: barrier handle released twice")
	}
	h.barrier.release()
}

// indexSet is a concurrency-safe set of item indices, shared by all tasks
// of one batch to collect failed slots.
type indexSet struct {
	mu sync.Mutex
	m  map[int]struct{}
}

func newIndexSet() *indexSet {
	return &indexSet{m: make(map[int]struct{})}
}

// add inserts the index and reports whether it was newly added.
func (s *indexSet) add(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[i]; ok {
		return false
	}
	s.m[i] = struct{}{}
	return true
}

func (s *indexSet) has(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.m[i]
	return ok
}

func (s *indexSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}
