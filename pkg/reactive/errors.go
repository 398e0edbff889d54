package reactive

import (
	"fmt"

	kerrors "github.com/vango-dev/kinetic/internal/errors"
)

// Sentinel errors. Returned errors carry a subject naming the node and match
// these with errors.Is.
var (
	// ErrStaleHandle is returned when a handle refers to a disposed node.
	ErrStaleHandle = kerrors.New(kerrors.CodeStaleHandle)

	// ErrFlushLimit is returned when a flush needs more passes than allowed.
	// It indicates effects that keep re-triggering each other and should be
	// treated as a fatal configuration error.
	ErrFlushLimit = kerrors.New(kerrors.CodeFlushLimit)

	// ErrCycle is returned when a derived value reads itself while computing.
	ErrCycle = kerrors.New(kerrors.CodeCycle)

	// ErrEffectPanic wraps a panic recovered from an effect or derived
	// computation.
	ErrEffectPanic = kerrors.New(kerrors.CodeEffectPanic)

	// ErrTypeMismatch is returned when a value does not have the node's type.
	ErrTypeMismatch = kerrors.New(kerrors.CodeTypeMismatch)
)

func staleErr(id NodeID) error {
	return ErrStaleHandle.WithSubject("node %d", id)
}

func panicError(id NodeID, r any) error {
	e := ErrEffectPanic.WithSubject("node %d", id)
	if err, ok := r.(error); ok {
		return e.Wrap(err)
	}
	return e.Wrap(fmt.Errorf("%v", r))
}
