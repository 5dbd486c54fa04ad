// Package pool implements a freelist of reusable objects with guarded
// checkout. Get never blocks: it reuses an idle object when one is
// available and constructs a new one otherwise. Release returns the object
// to the freelist, or drops it when the freelist already holds its
// capacity of idle objects.
package pool

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Pool is a freelist of objects of type T. It is safe for concurrent use.
type Pool[T any] struct {
	newFn   func() T
	resetFn func(T)
	free    chan T
	created atomic.Int64
}

// New returns a pool keeping at most capacity idle objects. newFn builds a
// fresh object; resetFn, if not nil, clears one before it is reused.
func New[T any](capacity int, newFn func() T, resetFn func(T)) *Pool[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Pool[T]{
		newFn:   newFn,
		resetFn: resetFn,
		free:    make(chan T, capacity),
	}
}

// Get checks out an object. The caller owns it exclusively until Release.
func (p *Pool[T]) Get() *Guard[T] {
	select {
	case v := <-p.free:
		return &Guard[T]{pool: p, value: v}
	default:
	}
	p.created.Add(1)
	return &Guard[T]{pool: p, value: p.newFn()}
}

// Idle returns the number of objects waiting in the freelist.
func (p *Pool[T]) Idle() int { return len(p.free) }

// Created returns how many objects the pool has constructed.
func (p *Pool[T]) Created() int64 { return p.created.Load() }

func (p *Pool[T]) put(v T) {
	if p.resetFn != nil {
		p.resetFn(v)
	}
	select {
	case p.free <- v:
	default:
		logrus.WithFields(logrus.Fields{
			"function": "put",
			"idle":     cap(p.free),
		}).Debug("Freelist full, dropping object")
	}
}

// Guard is a checked-out object. Release must be called exactly once,
// typically with defer; the value must not be used afterwards.
type Guard[T any] struct {
	pool     *Pool[T]
	value    T
	released bool
}

// Value returns the checked-out object.
func (g *Guard[T]) Value() T {
	if g.released {
		panic("pool: use of released guard")
	}
	return g.value
}

// Release returns the object to its pool. Extra calls are no-ops.
func (g *Guard[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	g.pool.put(g.value)
	var zero T
	g.value = zero
}
