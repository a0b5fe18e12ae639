package tranche

// reentrancyGuard is a two-state lock with no queuing. Execution is
// single-threaded but reentrant-by-construction: an external call made in
// the middle of an operation can transfer control to code that calls back
// into the engine before the original operation completes. The guard makes
// every such nested call fail immediately.
//
// Read-only entry points take the lock too: a stale or partially-updated
// view observed during a nested call is exploitable even when nothing is
// written through it. The two paths fail with distinct signals
// (ErrReentrantCall vs ErrReentrantRead) so callers can tell a deliberate
// rejection apart from a generic fault.
type reentrancyGuard struct {
	locked bool
}

// enter locks the guard for a mutating entry point.
func (g *reentrancyGuard) enter() error {
	if g.locked {
		return ErrReentrantCall
	}
	g.locked = true
	return nil
}

// enterRead locks the guard for a read-only entry point.
func (g *reentrancyGuard) enterRead() error {
	if g.locked {
		return ErrReentrantRead
	}
	g.locked = true
	return nil
}

// exit reopens the guard. Callers defer this immediately after entering.
func (g *reentrancyGuard) exit() {
	g.locked = false
}
