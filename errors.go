// SPDX-License-Identifier: Unlicense OR MIT

package surfman

import (
	"errors"
	"fmt"
)

var (
	// ErrRequiredExtensionUnavailable reports that the cross-API sharing
	// extension set was not negotiated at device initialization.
	ErrRequiredExtensionUnavailable = errors.New("surfman: required extension unavailable")

	// ErrIncompatibleSurface reports an operation on a surface through a
	// context other than the one that created it. The surface is marked
	// destroyed and its GPU resources are deliberately leaked: releasing
	// them would require the originating context to be current.
	ErrIncompatibleSurface = errors.New("surfman: surface belongs to a different context")

	// ErrInvalidNativeWidget reports a window handle that could not be
	// queried.
	ErrInvalidNativeWidget = errors.New("surfman: invalid native widget")

	// ErrWidgetAttached reports a texture-only operation applied to a
	// widget-backed surface.
	ErrWidgetAttached = errors.New("surfman: surface has a widget attached")

	// ErrNoWidgetAttached reports a widget-only operation applied to a
	// texture-backed surface.
	ErrNoWidgetAttached = errors.New("surfman: surface has no widget attached")

	// ErrUnimplemented reports an operation this backend does not
	// support.
	ErrUnimplemented = errors.New("surfman: unimplemented")
)

// SurfaceCreationError reports a native allocation failure while creating a
// surface. It wraps the driver error.
type SurfaceCreationError struct {
	Err error
}

func (e *SurfaceCreationError) Error() string {
	return fmt.Sprintf("surfman: surface creation failed: %v", e.Err)
}

func (e *SurfaceCreationError) Unwrap() error {
	return e.Err
}

// SurfaceImportError reports a failure to open a surface's share handle on
// another device. It wraps the driver error.
type SurfaceImportError struct {
	Err error
}

func (e *SurfaceImportError) Error() string {
	return fmt.Sprintf("surfman: surface import failed: %v", e.Err)
}

func (e *SurfaceImportError) Unwrap() error {
	return e.Err
}
