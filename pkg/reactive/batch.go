package reactive

// Batch groups writes so that effects observe them together.
//
// Writes inside fn mark subscribers dirty as usual, but no flush runs until
// the outermost batch on this goroutine returns. While any batch is open, a
// flush started on another goroutine waits for it to close.
//
// Batches can be nested. With auto flush enabled, closing the outermost
// batch flushes and returns the flush error. With auto flush disabled, the
// flush only happens at batch close if Flush was called inside the batch.
//
// Example:
//
//	err := g.Batch(func() {
//	    x.Set(10)
//	    y.Set(20)
//	})
//	// Effects reading x and y run once, seeing both writes.
func (g *Graph) Batch(fn func()) error {
	tc := g.acquireTC()
	outermost := tc.batchDepth == 0 && !tc.flushing
	if outermost {
		g.txMu.RLock()
	}
	tc.batchDepth++

	closed := false
	defer func() {
		if closed {
			return
		}
		// fn panicked: unwind the batch and let the panic continue.
		tc.batchDepth--
		if outermost {
			tc.flushRequested = false
			g.txMu.RUnlock()
		}
		g.releaseTC(tc)
	}()

	fn()

	closed = true
	tc.batchDepth--
	if !outermost {
		return nil
	}
	g.txMu.RUnlock()

	flush := g.autoFlush || tc.flushRequested
	tc.flushRequested = false
	g.releaseTC(tc)

	if flush {
		_, err := g.Flush()
		return err
	}
	return nil
}

// InBatch reports whether the calling goroutine has an open batch on g.
func (g *Graph) InBatch() bool {
	tc := g.currentTC()
	return tc != nil && tc.batchDepth > 0
}
