// Package errors provides structured, coded errors for Kinetic.
//
// Every failure the runtime reports carries a stable code (e.g., "K001")
// that maps to:
//   - A category (handle, config, scheduler, runtime, storage)
//   - A short message
//   - A detailed explanation
//
// Packages export one sentinel per code they can return and decorate
// instances with a subject. Matching uses the code, so errors.Is works on
// decorated copies:
//
//	var ErrStaleHandle = errors.New(errors.CodeStaleHandle)
//
//	return ErrStaleHandle.WithSubject("signal %d", id)
//
//	if stdErrors.Is(err, reactive.ErrStaleHandle) { ... }
//
// Configuration errors may carry a file location; Format renders them with
// surrounding lines for terminal display:
//
//	error[K010] Invalid configuration: scheduler.maxFlushPasses
//	  --> kinetic.yaml:2:19
//	     |
//	   1 | scheduler:
//	   2 |   maxFlushPasses: 0
//	     |                   ^
//
//	  hint: use a value of at least 1
package errors
