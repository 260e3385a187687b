package workspace

import "sync/atomic"

// guard rejects a second invocation of an action while one is running.
type guard struct {
	busy atomic.Bool
}

func (g *guard) acquire() bool { return g.busy.CompareAndSwap(false, true) }

func (g *guard) release() { g.busy.Store(false) }

func (g *guard) held() bool { return g.busy.Load() }
