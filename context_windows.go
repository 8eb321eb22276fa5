// SPDX-License-Identifier: Unlicense OR MIT

package surfman

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/servo/surfman/internal/gl"
	"github.com/servo/surfman/internal/wgl"
	"github.com/servo/surfman/internal/win32"
)

// Context is an OpenGL rendering context backed by a hidden window. The
// hidden window exists only to carry the pixel format; surfaces provide
// the actual render targets.
type Context struct {
	id         ContextID
	glrc       wgl.Context
	hwnd       windows.Handle
	hdc        windows.Handle
	gl         *gl.Functions
	attributes ContextAttributes
	destroyed  bool
}

var (
	contextClassOnce sync.Once
	contextClassErr  error
	contextAtom      uint16
)

const contextWindowClass = "surfman-hidden-window"

// CreateContext creates a GL context with the requested version and
// attribute flags. The context is not made current.
func (d *Device) CreateContext(attributes ContextAttributes) (*Context, error) {
	hwnd, hdc, err := createHiddenWindow()
	if err != nil {
		return nil, err
	}
	if err := d.setContextPixelFormat(hdc, attributes.Flags); err != nil {
		win32.ReleaseDC(hwnd, hdc)
		win32.DestroyWindow(hwnd)
		return nil, err
	}
	glrc, err := d.createGLContext(hdc, attributes)
	if err != nil {
		win32.ReleaseDC(hwnd, hdc)
		win32.DestroyWindow(hwnd)
		return nil, err
	}

	d.nextContextID++
	ctx := &Context{
		id:         d.nextContextID,
		glrc:       glrc,
		hwnd:       hwnd,
		hdc:        hdc,
		attributes: attributes,
	}

	// Load function pointers with the new context current; WGL function
	// addresses are tied to the pixel format of the creating context.
	restore, err := d.temporarilyMakeContextCurrent(ctx)
	if err != nil {
		d.DestroyContext(ctx)
		return nil, err
	}
	functions, err := gl.LoadFunctions(wgl.GetProcAddress)
	restore()
	if err != nil {
		d.DestroyContext(ctx)
		return nil, err
	}
	ctx.gl = functions
	d.logger.V(1).Info("context created", "id", uint64(ctx.id))
	return ctx, nil
}

// DestroyContext deletes the GL context and its hidden window. All
// surfaces attached to the context must have been destroyed first.
func (d *Device) DestroyContext(c *Context) error {
	if c.destroyed {
		return nil
	}
	if wgl.GetCurrentContext() == c.glrc {
		wgl.MakeCurrent(0, 0)
	}
	if c.glrc != 0 {
		wgl.DeleteContext(c.glrc)
		c.glrc = 0
	}
	win32.ReleaseDC(c.hwnd, c.hdc)
	win32.DestroyWindow(c.hwnd)
	c.hwnd = 0
	c.hdc = 0
	c.destroyed = true
	d.logger.V(1).Info("context destroyed", "id", uint64(c.id))
	return nil
}

// ID returns the identifier attached to the context. Surfaces remember
// the ID of the context they were created with and refuse operations from
// any other context.
func (c *Context) ID() ContextID {
	return c.id
}

// Attributes returns the attributes the context was created with.
func (c *Context) Attributes() ContextAttributes {
	return c.attributes
}

// MakeCurrent makes the context current on the calling thread.
func (d *Device) MakeCurrent(c *Context) error {
	if !wgl.MakeCurrent(c.hdc, c.glrc) {
		return fmt.Errorf("surfman: wglMakeCurrent failed: %v", windows.GetLastError())
	}
	return nil
}

// MakeNoContextCurrent clears the thread's current context.
func (d *Device) MakeNoContextCurrent() error {
	if !wgl.MakeCurrent(0, 0) {
		return fmt.Errorf("surfman: wglMakeCurrent(nil) failed: %v", windows.GetLastError())
	}
	return nil
}

// ContextFunctions returns the GL function pointers loaded for the
// context. They are only valid while the context is current.
func (d *Device) ContextFunctions(c *Context) *gl.Functions {
	return c.gl
}

func (d *Device) setContextPixelFormat(hdc windows.Handle, flags ContextAttributeFlags) error {
	alphaBits := int32(0)
	if flags&ContextAttributeAlpha != 0 {
		alphaBits = 8
	}
	depthBits := int32(0)
	if flags&ContextAttributeDepth != 0 {
		depthBits = 24
	}
	stencilBits := int32(0)
	if flags&ContextAttributeStencil != 0 {
		stencilBits = 8
	}
	attribs := []int32{
		wgl.DRAW_TO_WINDOW_ARB, 1,
		wgl.SUPPORT_OPENGL_ARB, 1,
		wgl.DOUBLE_BUFFER_ARB, 1,
		wgl.ACCELERATION_ARB, wgl.FULL_ACCELERATION_ARB,
		wgl.PIXEL_TYPE_ARB, wgl.TYPE_RGBA_ARB,
		wgl.COLOR_BITS_ARB, 32,
		wgl.ALPHA_BITS_ARB, alphaBits,
		wgl.DEPTH_BITS_ARB, depthBits,
		wgl.STENCIL_BITS_ARB, stencilBits,
		0,
	}
	format, ok := d.ext.ChoosePixelFormatARB(hdc, attribs)
	if !ok || format == 0 {
		return wgl.SetBasicPixelFormat(hdc)
	}
	var pfd win32.PixelFormatDescriptor
	pfd.NSize = uint16(unsafe.Sizeof(pfd))
	if err := win32.DescribePixelFormat(hdc, format, &pfd); err != nil {
		return err
	}
	return win32.SetPixelFormat(hdc, format, &pfd)
}

func (d *Device) createGLContext(hdc windows.Handle, attributes ContextAttributes) (wgl.Context, error) {
	if d.ext.Has("WGL_ARB_create_context") {
		profile := int32(wgl.CONTEXT_CORE_PROFILE_BIT_ARB)
		if attributes.Flags&ContextAttributeCompatibilityProfile != 0 {
			profile = wgl.CONTEXT_COMPATIBILITY_PROFILE_BIT_ARB
		}
		attribs := []int32{
			wgl.CONTEXT_MAJOR_VERSION_ARB, int32(attributes.Version.Major),
			wgl.CONTEXT_MINOR_VERSION_ARB, int32(attributes.Version.Minor),
			wgl.CONTEXT_PROFILE_MASK_ARB, profile,
			0,
		}
		glrc := d.ext.CreateContextAttribsARB(hdc, 0, attribs)
		if glrc != 0 {
			return glrc, nil
		}
		d.logger.V(1).Info("wglCreateContextAttribsARB failed, falling back to legacy context",
			"major", attributes.Version.Major, "minor", attributes.Version.Minor)
	}
	glrc := wgl.CreateContext(hdc)
	if glrc == 0 {
		return 0, fmt.Errorf("surfman: wglCreateContext failed: %v", windows.GetLastError())
	}
	return glrc, nil
}

func createHiddenWindow() (hwnd, hdc windows.Handle, err error) {
	instance, err := win32.GetModuleHandle()
	if err != nil {
		return 0, 0, err
	}
	contextClassOnce.Do(func() {
		name, _ := windows.UTF16PtrFromString(contextWindowClass)
		wcls := win32.WndClassEx{
			Style:         win32.CS_OWNDC,
			LpfnWndProc:   win32.DefWindowProcAddr(),
			HInstance:     instance,
			LpszClassName: name,
		}
		wcls.CbSize = uint32(unsafe.Sizeof(wcls))
		contextAtom, contextClassErr = win32.RegisterClassEx(&wcls)
	})
	if contextClassErr != nil {
		return 0, 0, contextClassErr
	}
	hwnd, err = win32.CreateWindowEx(0, contextAtom, contextWindowClass,
		win32.WS_CLIPCHILDREN|win32.WS_CLIPSIBLINGS,
		0, 0, hiddenWindowSize, hiddenWindowSize, 0, 0, instance)
	if err != nil {
		return 0, 0, err
	}
	hdc, err = win32.GetDC(hwnd)
	if err != nil {
		win32.DestroyWindow(hwnd)
		return 0, 0, err
	}
	return hwnd, hdc, nil
}

const hiddenWindowSize = 16
