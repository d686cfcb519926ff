package ir

import "sync/atomic"

// Allocator is the single source of fresh SymVar ids for one pipeline
// invocation. It is safe for concurrent use via atomic increment, though
// the pipeline itself runs single-threaded; modeling it as an explicit
// allocator rather than a package-level global keeps two concurrent
// invocations from colliding.
type Allocator struct {
	next int64
}

// NewAllocator returns an Allocator whose first Fresh() call yields id 0.
func NewAllocator() *Allocator {
	return &Allocator{next: 0}
}

// Fresh returns a new SymVar with a globally unique id within this
// Allocator's lifetime.
func (a *Allocator) Fresh() *SymVar {
	id := atomic.AddInt64(&a.next, 1) - 1
	return &SymVar{ID: id}
}
