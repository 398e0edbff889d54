// Package reactive provides the signal graph of the kinetic runtime.
//
// All state lives in an explicit Graph; there are no package-level globals.
// Dependencies are tracked automatically at runtime: reading a signal while
// an effect or derived computation runs subscribes that computation.
//
// # Core Types
//
// Signal[T] is a reactive value:
//
//	g := reactive.NewGraph()
//	count := reactive.NewSignal(g, 0)
//	v, err := count.Get()   // read (subscribes the running computation)
//	err = count.Set(5)      // write (bumps version, marks subscribers dirty)
//
// Derived[T] is a lazy cached computation:
//
//	doubled := reactive.NewDerived(g, func() int { return count.MustGet() * 2 })
//
// Effects run side effects when dependencies change:
//
//	id, err := g.NewEffect(func() reactive.Cleanup {
//	    fmt.Println("count is", count.MustGet())
//	    return nil
//	})
//
// # Flushing
//
// Writes never run effects directly; they queue them. Flush runs the queue in
// passes ordered by (depth, id), so an effect always runs after the effects
// feeding the signals it reads. A graph built with WithAutoFlush(false) only
// flushes when Flush is called, which is how a frame clock drives it.
//
// # Thread Safety
//
// Handles may be used from any goroutine. Tracking state is per goroutine,
// so a goroutine spawned inside an effect does not subscribe that effect.
// Open batches hold off flushes on other goroutines.
package reactive
