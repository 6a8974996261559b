package state

import (
	"sync"
	"sync/atomic"
)

// Gate suppresses saves while a restore is in flight. Every Acquire must be
// paired with a call to the returned release func.
type Gate struct {
	held atomic.Int32
}

// Acquire holds the gate until release is called. Release is idempotent.
func (g *Gate) Acquire() (release func()) {
	g.held.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { g.held.Add(-1) })
	}
}

// Held reports whether any restore currently holds the gate.
func (g *Gate) Held() bool {
	return g.held.Load() > 0
}
