// SPDX-License-Identifier: Unlicense OR MIT

package surfman

import (
	"errors"
	"fmt"
	"testing"
)

func TestSurfaceCreationErrorUnwrap(t *testing.T) {
	inner := errors.New("device hung")
	err := error(&SurfaceCreationError{Err: inner})
	if !errors.Is(err, inner) {
		t.Error("wrapped error not reachable through errors.Is")
	}
	var creation *SurfaceCreationError
	if !errors.As(err, &creation) {
		t.Error("errors.As failed to match *SurfaceCreationError")
	}
	if got := err.Error(); got != "surfman: surface creation failed: device hung" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestSurfaceImportErrorUnwrap(t *testing.T) {
	inner := errors.New("share handle stale")
	err := error(&SurfaceImportError{Err: inner})
	if !errors.Is(err, inner) {
		t.Error("wrapped error not reachable through errors.Is")
	}
	var imp *SurfaceImportError
	if !errors.As(err, &imp) {
		t.Error("errors.As failed to match *SurfaceImportError")
	}
}

func TestSentinelMessages(t *testing.T) {
	for _, err := range []error{
		ErrRequiredExtensionUnavailable,
		ErrIncompatibleSurface,
		ErrInvalidNativeWidget,
		ErrWidgetAttached,
		ErrNoWidgetAttached,
		ErrUnimplemented,
	} {
		msg := err.Error()
		if len(msg) < len("surfman: ") || msg[:len("surfman: ")] != "surfman: " {
			t.Errorf("sentinel %q does not carry the package prefix", msg)
		}
	}
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("creating surface: %w", ErrIncompatibleSurface)
	if !errors.Is(err, ErrIncompatibleSurface) {
		t.Error("sentinel lost through fmt.Errorf wrapping")
	}
}
