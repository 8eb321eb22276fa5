// SPDX-License-Identifier: Unlicense OR MIT

package glfwwidget

import (
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	"golang.org/x/sys/windows"

	"github.com/servo/surfman"
)

// NativeWidget returns the native widget for a GLFW window. The window
// must not be destroyed while a surface created from the widget is alive.
func NativeWidget(w *glfw.Window) surfman.NativeWidget {
	return surfman.NativeWidget{
		Window: windows.Handle(uintptr(unsafe.Pointer(w.GetWin32Window()))),
	}
}

// Widget returns a surface type rendering to a GLFW window's back buffer.
func Widget(w *glfw.Window) surfman.Widget {
	return surfman.Widget{Widget: NativeWidget(w)}
}
