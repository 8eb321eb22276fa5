// SPDX-License-Identifier: Unlicense OR MIT

package surfman

import (
	"fmt"
	"unsafe"

	"github.com/go-logr/logr"
	"golang.org/x/sys/windows"

	"github.com/servo/surfman/internal/d3d11"
	"github.com/servo/surfman/internal/gl"
	"github.com/servo/surfman/internal/wgl"
)

// Device owns the Direct3D 11 device used to allocate shareable textures
// and the GL/DX interop device opened against it. It is the factory for
// contexts, surfaces and surface textures, and serializes their access to
// the thread-global context-current state.
//
// A Device and everything created from it are confined to the OS thread
// they were created on.
type Device struct {
	d3dDevice        *d3d11.Device
	d3dDeviceContext *d3d11.DeviceContext

	// glDXInteropDevice is zero when WGL_NV_DX_interop2 was not
	// negotiated; only widget surfaces work then.
	glDXInteropDevice wgl.InteropDevice

	ext    *wgl.Extensions
	logger logr.Logger

	nextContextID ContextID
}

// Option configures a Device.
type Option func(*Device)

// WithLogger directs device lifecycle logging to l. The default discards
// all output.
func WithLogger(l logr.Logger) Option {
	return func(d *Device) {
		d.logger = l
	}
}

// NewDevice creates the Direct3D 11 hardware device, discovers the WGL
// extension set and opens the GL/DX interop device. A machine without the
// interop extension still yields a working Device; texture-backed surface
// creation then fails with ErrRequiredExtensionUnavailable.
func NewDevice(opts ...Option) (*Device, error) {
	ext, err := wgl.LoadExtensions()
	if err != nil {
		return nil, err
	}
	dev, devCtx, _, err := d3d11.CreateDevice(d3d11.DRIVER_TYPE_HARDWARE, 0)
	if err != nil {
		return nil, err
	}
	d := &Device{
		d3dDevice:        dev,
		d3dDeviceContext: devCtx,
		ext:              ext,
		logger:           logr.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if dx := ext.DXInterop; dx != nil {
		interop := dx.OpenDevice(unsafe.Pointer(dev))
		if interop == 0 {
			d.releaseD3D()
			return nil, fmt.Errorf("surfman: wglDXOpenDeviceNV failed: %v", windows.GetLastError())
		}
		d.glDXInteropDevice = interop
	}
	d.logger.V(1).Info("device created", "dxInterop", d.glDXInteropDevice != 0)
	return d, nil
}

// Destroy releases the interop device and the Direct3D device. All
// contexts and surfaces created from the device must have been destroyed
// first.
func (d *Device) Destroy() {
	if d.glDXInteropDevice != 0 {
		d.ext.DXInterop.CloseDevice(d.glDXInteropDevice)
		d.glDXInteropDevice = 0
	}
	d.releaseD3D()
	d.logger.V(1).Info("device destroyed")
}

func (d *Device) releaseD3D() {
	if d.d3dDeviceContext != nil {
		d3d11.IUnknownRelease(unsafe.Pointer(d.d3dDeviceContext), d.d3dDeviceContext.Vtbl.Release)
		d.d3dDeviceContext = nil
	}
	if d.d3dDevice != nil {
		d3d11.IUnknownRelease(unsafe.Pointer(d.d3dDevice), d.d3dDevice.Vtbl.Release)
		d.d3dDevice = nil
	}
}

// SurfaceGLTextureTarget returns the GL texture target surfaces bind to.
func (d *Device) SurfaceGLTextureTarget() uint32 {
	return gl.TEXTURE_2D
}

// temporarilyMakeContextCurrent makes c current on the calling thread and
// returns a function restoring the previously current context. The restore
// function must run on every exit path.
func (d *Device) temporarilyMakeContextCurrent(c *Context) (func(), error) {
	prevDC := wgl.GetCurrentDC()
	prevGLRC := wgl.GetCurrentContext()
	if !wgl.MakeCurrent(c.hdc, c.glrc) {
		return nil, fmt.Errorf("surfman: wglMakeCurrent failed: %v", windows.GetLastError())
	}
	return func() {
		wgl.MakeCurrent(prevDC, prevGLRC)
	}, nil
}

// temporarilyBindFramebuffer binds fb and returns a function restoring the
// previous framebuffer binding.
func temporarilyBindFramebuffer(g *gl.Functions, fb gl.Framebuffer) func() {
	prev := gl.Framebuffer{V: uint(g.GetInteger(gl.FRAMEBUFFER_BINDING))}
	g.BindFramebuffer(gl.FRAMEBUFFER, fb)
	return func() {
		g.BindFramebuffer(gl.FRAMEBUFFER, prev)
	}
}
