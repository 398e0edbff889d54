package anim

import (
	kerrors "github.com/vango-dev/kinetic/internal/errors"
)

// Sentinel errors, matched with errors.Is.
var (
	ErrStaleHandle     = kerrors.New(kerrors.CodeStaleHandle)
	ErrInvalidSpring   = kerrors.New(kerrors.CodeInvalidSpring)
	ErrEmptyKeyframes  = kerrors.New(kerrors.CodeEmptyKeyframes)
	ErrInvalidKeyframe = kerrors.New(kerrors.CodeInvalidKeyframe)
	ErrInvalidTimeline = kerrors.New(kerrors.CodeInvalidTimeline)
)
