// Package inspect serves a debugging view of a running kinetic runtime.
//
// The server exposes the runtime snapshot and individual machines as JSON,
// prometheus metrics, and a websocket stream of completed frames:
//
//	srv := inspect.NewServer(rt, inspect.WithGatherer(reg))
//	rt.OnFrame(srv.Observe)
//	go srv.ListenAndServe(ctx, "localhost:7070")
//
// Every route is read-only. The inspector never ticks the runtime or
// changes its state.
package inspect
