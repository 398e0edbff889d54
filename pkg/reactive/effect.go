package reactive

import (
	"errors"
)

// Cleanup is a function returned by effects to release resources.
// It is called before the effect re-runs and when the effect is disposed.
type Cleanup func()

// NewEffect creates an effect owned by the current scope and runs it once
// immediately. Afterwards the effect re-runs during a flush whenever a
// signal or derived value it read on its previous run changes.
//
// The id is valid even when the first run fails; the error is the recovered
// panic, if any.
func (g *Graph) NewEffect(fn func() Cleanup) (NodeID, error) {
	return g.NewEffectIn(nil, fn)
}

// NewEffectIn creates an effect owned by scope.
func (g *Graph) NewEffectIn(scope *Scope, fn func() Cleanup) (NodeID, error) {
	id := g.addNode(&node{kind: kindEffect, effect: fn}, scope)
	if !g.Alive(id) {
		return id, staleErr(id)
	}

	g.mu.Lock()
	if n, ok := g.nodes[id]; ok {
		n.dirty = true
	}
	g.mu.Unlock()

	_, err := g.runEffect(id)
	return id, err
}

// runEffect executes one dirty effect. The dirty flag is consumed before
// the body runs, so writes made by the body re-queue it for the next pass.
func (g *Graph) runEffect(id NodeID) (bool, error) {
	g.mu.Lock()
	n, ok := g.nodes[id]
	if !ok || !n.dirty {
		g.mu.Unlock()
		return false, nil
	}
	n.dirty = false
	delete(g.pending, id)
	prevCleanup := n.cleanup
	n.cleanup = nil
	g.unlinkSourcesLocked(n)
	fn := n.effect
	g.mu.Unlock()

	if prevCleanup != nil {
		g.runCleanup(id, prevCleanup)
	}

	var cleanup Cleanup
	deps, err := g.track(id, func() {
		cleanup = fn()
	})
	g.effectsRun.Add(1)

	g.mu.Lock()
	if _, alive := g.nodes[id]; !alive {
		g.dropLinksLocked(id, deps)
		g.mu.Unlock()
		if cleanup != nil {
			g.runCleanup(id, cleanup)
		}
		return true, err
	}
	n.sources = deps
	n.cleanup = cleanup
	if !n.depthSet {
		n.depth = g.depthLocked(deps)
		n.depthSet = true
	}
	g.mu.Unlock()

	if err != nil {
		g.logger.Warn("effect panicked", "effect", id, "error", err)
	}
	return true, err
}

// Flush runs dirty effects until none remain.
//
// Each pass takes the current dirty set, orders it by (depth, id) and runs
// every effect once. Effects dirtied during a pass run in the next one. When
// more than MaxFlushPasses passes would be needed the remaining work is
// dropped and ErrFlushLimit is returned.
//
// A Flush called inside a batch is deferred to the close of the outermost
// batch; one called from inside a running flush is a no-op because the
// running flush picks up the new work. Effect panics do not stop the flush;
// they are joined into the returned error.
func (g *Graph) Flush() (FlushStats, error) {
	tc := g.acquireTC()
	defer g.releaseTC(tc)

	var stats FlushStats
	if tc.flushing {
		return stats, nil
	}
	if tc.batchDepth > 0 {
		tc.flushRequested = true
		return stats, nil
	}
	if !g.HasPending() {
		return stats, nil
	}

	g.txMu.Lock()
	tc.flushing = true
	defer func() {
		tc.flushing = false
		g.txMu.Unlock()
	}()

	var errs []error
	for pass := 0; ; pass++ {
		ids := g.takePending()
		if len(ids) == 0 {
			break
		}
		if pass >= g.maxPasses {
			dropped := len(ids) + g.discardPending()
			g.mu.Lock()
			for _, id := range ids {
				if n, ok := g.nodes[id]; ok {
					n.dirty = false
				}
			}
			g.mu.Unlock()
			g.limitExceeded.Add(1)
			g.logger.Error("flush pass limit exceeded",
				"passes", g.maxPasses,
				"dropped", dropped,
			)
			errs = append(errs, ErrFlushLimit.WithSubject("%d passes, %d effects still dirty", g.maxPasses, dropped))
			break
		}

		stats.Passes++
		for _, id := range ids {
			ran, err := g.runEffect(id)
			if ran {
				stats.EffectsRun++
			}
			if err != nil {
				stats.Panics++
				errs = append(errs, err)
			}
		}
		g.logger.Debug("flush pass", "pass", stats.Passes, "effects", len(ids))
	}

	g.flushes.Add(1)
	err := errors.Join(errs...)
	for _, obs := range g.observers {
		obs(stats, err)
	}
	return stats, err
}
