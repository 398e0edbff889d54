package recorder

import (
	"context"

	kerrors "github.com/vango-dev/kinetic/internal/errors"
	"github.com/vango-dev/kinetic/pkg/anim"
	"github.com/vango-dev/kinetic/pkg/fsm"
)

var (
	// ErrStorage wraps failures of the underlying store.
	ErrStorage = kerrors.New(kerrors.CodeStorage)

	// ErrNotFound is returned when a session has no recorded frames.
	ErrNotFound = kerrors.New(kerrors.CodeNotFound)
)

// Record is one recorded frame.
type Record struct {
	Seq      uint64             `json:"seq"`
	DtMs     float32            `json:"dtMs"`
	Redraw   bool               `json:"redraw"`
	Pending  bool               `json:"pending"`
	Effects  int                `json:"effects,omitempty"`
	Error    string             `json:"error,omitempty"`
	Springs  []anim.SpringState `json:"springs,omitempty"`
	Machines []MachineSample    `json:"machines,omitempty"`
}

// MachineSample is the state of one machine at the end of a frame.
type MachineSample struct {
	ID    fsm.InstanceID `json:"id"`
	Name  string         `json:"name,omitempty"`
	State string         `json:"state"`
}

// Store persists recordings. Records of a session are appended in Seq
// order and loaded back in the same order.
type Store interface {
	Append(ctx context.Context, session string, recs []Record) error
	Load(ctx context.Context, session string) ([]Record, error)
	Sessions(ctx context.Context) ([]string, error)
	Close() error
}
