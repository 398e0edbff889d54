// Package kinetic is an interactive-state engine for UI runtimes.
//
// A Runtime combines a fine-grained signal graph, flat finite state
// machines for widget interaction states, and spring and keyframe
// animations, all advanced by an explicit frame tick:
//
//	rt, err := kinetic.New(cfg)
//	if err != nil {
//	    return err
//	}
//	if err := rt.Init(); err != nil {
//	    return err
//	}
//	defer rt.Shutdown()
//
//	scale, _ := rt.SpringCreate(anim.SpringConfig{Stiffness: 400, Damping: 25, Mass: 1}, 1)
//	_ = rt.SpringSetTarget(scale, 0.95)
//
//	for {
//	    redraw, err := rt.Tick(16.67)
//	    if err != nil {
//	        return err
//	    }
//	    if redraw {
//	        v, _ := rt.SpringValue(scale)
//	        paint(v)
//	    }
//	}
//
// # Frames
//
// Tick flushes the effects made dirty by signal writes since the last tick,
// then steps every moving spring and every playing keyframe animation and
// timeline with one dt. It returns whether anything changed, so the host
// can skip idle frames. Signal writes never run effects directly; they wait
// for the next tick.
//
// # Widgets
//
// Mount registers a widget under a stable key. State created with
// InWidget belongs to it and is released by Unmount. Machines created with
// Named and InWidget survive rebuilds: creating them again returns the
// existing machine in its current state.
//
// # Machines
//
// The runtime is the fsm.Host of its machines. Data guards read signals
// and data actions write signals, retarget springs and start or stop
// keyframe animations and timelines, addressed by their handles. Guards
// that fail count as false and are reported through logs, metrics and a
// span event.
package kinetic
