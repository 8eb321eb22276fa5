// SPDX-License-Identifier: Unlicense OR MIT

package surfman

import (
	"fmt"
	"image"
	"runtime"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/servo/surfman/internal/d3d11"
	"github.com/servo/surfman/internal/gl"
	"github.com/servo/surfman/internal/wgl"
	"github.com/servo/surfman/internal/win32"
)

// NativeWidget wraps the window handle a widget-backed surface renders to.
type NativeWidget struct {
	Window windows.Handle
}

// Widget requests a surface backed by a native window's back buffer.
type Widget struct {
	Widget NativeWidget
}

func (Widget) isSurfaceType() {}

// Surface is a render target created by a Device. It is either
// texture-backed or widget-backed; the backing decides which operations
// apply.
//
// Surfaces must be destroyed through DestroySurface before becoming
// unreachable. A surface collected while still alive indicates GPU
// resources leaking every frame, and the process is terminated rather than
// letting that go unnoticed.
type Surface struct {
	size      image.Point
	contextID ContextID
	objects   win32Objects
	destroyed bool
}

// win32Objects is the backing of a Surface. It is a closed set:
// textureObjects and widgetObjects are the only implementations.
type win32Objects interface {
	isWin32Objects()
}

// textureObjects is the backing of an offscreen surface: a Direct3D
// texture registered with GL through the interop device, wrapped in a
// framebuffer.
type textureObjects struct {
	d3dTexture        *d3d11.Texture2D
	dxgiShareHandle   windows.Handle
	glDXInteropObject wgl.InteropObject
	glTexture         gl.Texture
	glFramebuffer     gl.Framebuffer
	renderbuffers     renderbuffers
}

func (*textureObjects) isWin32Objects() {}

// widgetObjects is the backing of a window surface. The device context is
// acquired at creation and held for the surface's lifetime.
type widgetObjects struct {
	windowHandle windows.Handle
	windowDC     windows.Handle
}

func (*widgetObjects) isWin32Objects() {}

// SurfaceTexture wraps a texture-backed surface for sampling by another
// context on the same device. It holds the surface until
// DestroySurfaceTexture returns it.
type SurfaceTexture struct {
	surface *Surface

	localD3DTexture        *d3d11.Texture2D
	localGLDXInteropObject wgl.InteropObject
	glTexture              gl.Texture
}

// leakHandler runs when a live surface is garbage collected. Tests
// substitute it; the default terminates the process.
var leakHandler = func(id SurfaceID) {
	panic(fmt.Sprintf("surfman: surface %#x garbage collected without being destroyed", uintptr(id)))
}

func guardSurfaceLeak(s *Surface) {
	runtime.SetFinalizer(s, func(s *Surface) {
		if !s.destroyed {
			leakHandler(s.ID())
		}
	})
}

// CreateSurface creates a surface of the given type in the given context.
// Generic surfaces require the cross-API sharing extension; Widget
// surfaces only require a valid window.
func (d *Device) CreateSurface(c *Context, access SurfaceAccess, surfaceType SurfaceType) (*Surface, error) {
	switch t := surfaceType.(type) {
	case Generic:
		return d.createTextureSurface(c, t.Size)
	case Widget:
		return d.createWidgetSurface(c, t.Widget)
	default:
		panic("surfman: unknown surface type")
	}
}

func (d *Device) createTextureSurface(c *Context, size image.Point) (*Surface, error) {
	if d.glDXInteropDevice == 0 {
		return nil, ErrRequiredExtensionUnavailable
	}

	restore, err := d.temporarilyMakeContextCurrent(c)
	if err != nil {
		return nil, err
	}
	defer restore()

	desc := d3d11.TEXTURE2D_DESC{
		Width:      uint32(size.X),
		Height:     uint32(size.Y),
		MipLevels:  1,
		ArraySize:  1,
		Format:     d3d11.FORMAT_R8G8B8A8_UNORM,
		SampleDesc: d3d11.SAMPLE_DESC{Count: 1, Quality: 0},
		Usage:      d3d11.USAGE_DEFAULT,
		BindFlags:  d3d11.BIND_RENDER_TARGET | d3d11.BIND_SHADER_RESOURCE,
		MiscFlags:  d3d11.RESOURCE_MISC_SHARED_KEYEDMUTEX,
	}
	d3dTexture, err := d.d3dDevice.CreateTexture2D(&desc)
	if err != nil {
		return nil, &SurfaceCreationError{Err: err}
	}

	shareHandle, err := d3dTexture.SharedHandle()
	if err != nil {
		releaseTexture(d3dTexture)
		return nil, &SurfaceCreationError{Err: err}
	}

	dx := d.ext.DXInterop
	// Tell the interop layer which DXGI handle backs the texture, so
	// locks go through the keyed mutex.
	if !dx.SetResourceShareHandle(unsafe.Pointer(d3dTexture), shareHandle) {
		releaseTexture(d3dTexture)
		return nil, &SurfaceCreationError{Err: lastError("wglDXSetResourceShareHandleNV")}
	}

	g := c.gl
	glTexture := g.CreateTexture()
	interopObject := dx.RegisterObject(d.glDXInteropDevice,
		unsafe.Pointer(d3dTexture), glTexture.V, gl.TEXTURE_2D, wgl.ACCESS_READ_WRITE_NV)
	if interopObject == 0 {
		g.DeleteTexture(glTexture)
		releaseTexture(d3dTexture)
		return nil, &SurfaceCreationError{Err: lastError("wglDXRegisterObjectNV")}
	}

	framebuffer := g.CreateFramebuffer()
	restoreFB := temporarilyBindFramebuffer(g, framebuffer)
	defer restoreFB()
	g.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, glTexture, 0)
	rbs := newRenderbuffers(g, size, c.attributes.Flags)
	rbs.bindToCurrentFramebuffer(g)
	if status := g.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		rbs.destroy(g)
		g.DeleteFramebuffer(framebuffer)
		dx.UnregisterObject(d.glDXInteropDevice, interopObject)
		g.DeleteTexture(glTexture)
		releaseTexture(d3dTexture)
		return nil, &SurfaceCreationError{Err: fmt.Errorf("incomplete framebuffer: %#x", uint(status))}
	}

	s := &Surface{
		size:      size,
		contextID: c.id,
		objects: &textureObjects{
			d3dTexture:        d3dTexture,
			dxgiShareHandle:   shareHandle,
			glDXInteropObject: interopObject,
			glTexture:         glTexture,
			glFramebuffer:     framebuffer,
			renderbuffers:     rbs,
		},
	}
	guardSurfaceLeak(s)
	d.logger.V(1).Info("surface created", "id", uintptr(s.ID()), "width", size.X, "height", size.Y)
	return s, nil
}

func (d *Device) createWidgetSurface(c *Context, widget NativeWidget) (*Surface, error) {
	if !win32.IsWindow(widget.Window) {
		return nil, ErrInvalidNativeWidget
	}
	rect, err := win32.GetClientRect(widget.Window)
	if err != nil {
		return nil, ErrInvalidNativeWidget
	}
	// The window's own DC must carry a pixel format compatible with the
	// context before the context can render to it or its buffers can be
	// swapped. A window's pixel format can only be set once; a second
	// surface on the same window keeps the existing format.
	hdc, err := win32.GetDC(widget.Window)
	if err != nil {
		return nil, ErrInvalidNativeWidget
	}
	if err := d.setContextPixelFormat(hdc, c.attributes.Flags); err != nil {
		d.logger.V(1).Info("widget pixel format not applied", "err", err.Error())
	}
	s := &Surface{
		size:      image.Pt(int(rect.Right-rect.Left), int(rect.Bottom-rect.Top)),
		contextID: c.id,
		objects:   &widgetObjects{windowHandle: widget.Window, windowDC: hdc},
	}
	guardSurfaceLeak(s)
	return s, nil
}

// DestroySurface destroys a surface. The context must be the one the
// surface was created in: destruction through any other context marks the
// surface destroyed but leaks its GPU resources, reported as
// ErrIncompatibleSurface.
func (d *Device) DestroySurface(c *Context, s *Surface) error {
	if s.destroyed {
		return nil
	}
	if s.contextID != c.id {
		// The GL objects can only be released with the owning context
		// current. Mark the surface destroyed so the leak check does
		// not fire on top of the leak.
		consumeSurface(s)
		d.logger.Error(ErrIncompatibleSurface, "leaking surface", "id", uintptr(s.ID()))
		return ErrIncompatibleSurface
	}

	id := s.ID()
	switch o := s.objects.(type) {
	case *textureObjects:
		restore, err := d.temporarilyMakeContextCurrent(c)
		if err != nil {
			return err
		}
		defer restore()

		g := c.gl
		o.renderbuffers.destroy(g)
		g.BindFramebuffer(gl.FRAMEBUFFER, gl.Framebuffer{})
		g.DeleteFramebuffer(o.glFramebuffer)
		o.glFramebuffer = gl.Framebuffer{}
		g.DeleteTexture(o.glTexture)
		o.glTexture = gl.Texture{}
		if !d.ext.DXInterop.UnregisterObject(d.glDXInteropDevice, o.glDXInteropObject) {
			panic(fmt.Sprintf("surfman: wglDXUnregisterObjectNV failed: %v", windows.GetLastError()))
		}
		o.glDXInteropObject = 0
		releaseTexture(o.d3dTexture)
		o.d3dTexture = nil
	case *widgetObjects:
		if wgl.GetCurrentDC() == o.windowDC {
			wgl.MakeCurrent(0, 0)
		}
		win32.ReleaseDC(o.windowHandle, o.windowDC)
		o.windowDC = 0
		o.windowHandle = 0
	default:
		panic("surfman: unknown surface backing")
	}

	s.destroyed = true
	runtime.SetFinalizer(s, nil)
	d.logger.V(1).Info("surface destroyed", "id", uintptr(id))
	return nil
}

// CreateSurfaceTexture wraps a texture-backed surface for sampling in
// another context on the same device. The surface is consumed on success
// and on failure alike: success hands it to the surface texture, which
// returns it through DestroySurfaceTexture; failure marks it destroyed so
// the caller cannot retry with a half-valid value.
func (d *Device) CreateSurfaceTexture(c *Context, s *Surface) (*SurfaceTexture, error) {
	o, ok := s.objects.(*textureObjects)
	if !ok {
		consumeSurface(s)
		return nil, ErrWidgetAttached
	}

	restore, err := d.temporarilyMakeContextCurrent(c)
	if err != nil {
		consumeSurface(s)
		return nil, err
	}
	defer restore()

	localTexture, err := d.d3dDevice.OpenSharedResource(o.dxgiShareHandle)
	if err != nil {
		consumeSurface(s)
		return nil, &SurfaceImportError{Err: err}
	}

	dx := d.ext.DXInterop
	if !dx.SetResourceShareHandle(unsafe.Pointer(localTexture), o.dxgiShareHandle) {
		panic(fmt.Sprintf("surfman: wglDXSetResourceShareHandleNV failed: %v", windows.GetLastError()))
	}

	g := c.gl
	glTexture := g.CreateTexture()
	interopObject := dx.RegisterObject(d.glDXInteropDevice,
		unsafe.Pointer(localTexture), glTexture.V, gl.TEXTURE_2D, wgl.ACCESS_READ_ONLY_NV)
	if interopObject == 0 {
		g.DeleteTexture(glTexture)
		releaseTexture(localTexture)
		consumeSurface(s)
		return nil, &SurfaceImportError{Err: lastError("wglDXRegisterObjectNV")}
	}

	// Hold the lock for the lifetime of the surface texture so sampling
	// needs no per-draw bracketing.
	if !dx.LockObjects(d.glDXInteropDevice, interopObject) {
		panic(fmt.Sprintf("surfman: wglDXLockObjectsNV failed: %v", windows.GetLastError()))
	}

	restoreTex := temporarilyBindTexture(g, glTexture)
	g.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	g.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	g.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	g.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	restoreTex()

	return &SurfaceTexture{
		surface:                s,
		localD3DTexture:        localTexture,
		localGLDXInteropObject: interopObject,
		glTexture:              glTexture,
	}, nil
}

// consumeSurface marks a surface destroyed without releasing its GPU
// resources. Used on failure paths that take ownership of the surface;
// any texture backing is deliberately leaked, as with DestroySurface from
// a foreign context. A widget backing owns no GPU objects, only its DC.
func consumeSurface(s *Surface) {
	if o, ok := s.objects.(*widgetObjects); ok && o.windowDC != 0 {
		win32.ReleaseDC(o.windowHandle, o.windowDC)
		o.windowDC = 0
	}
	s.destroyed = true
	runtime.SetFinalizer(s, nil)
}

// DestroySurfaceTexture destroys a surface texture and returns the
// underlying surface, which remains alive and must still be destroyed in
// its own context.
func (d *Device) DestroySurfaceTexture(c *Context, st *SurfaceTexture) (*Surface, error) {
	restore, err := d.temporarilyMakeContextCurrent(c)
	if err != nil {
		return nil, err
	}
	defer restore()

	dx := d.ext.DXInterop
	if !dx.UnlockObjects(d.glDXInteropDevice, st.localGLDXInteropObject) {
		panic(fmt.Sprintf("surfman: wglDXUnlockObjectsNV failed: %v", windows.GetLastError()))
	}
	if !dx.UnregisterObject(d.glDXInteropDevice, st.localGLDXInteropObject) {
		panic(fmt.Sprintf("surfman: wglDXUnregisterObjectNV failed: %v", windows.GetLastError()))
	}
	st.localGLDXInteropObject = 0
	c.gl.DeleteTexture(st.glTexture)
	st.glTexture = gl.Texture{}
	releaseTexture(st.localD3DTexture)
	st.localD3DTexture = nil

	surface := st.surface
	st.surface = nil
	return surface, nil
}

// LockSurface acquires the cross-API lock on a texture-backed surface's
// allocation. GL rendering to the surface is only defined between
// LockSurface and UnlockSurface. Widget surfaces need no lock.
func (d *Device) LockSurface(s *Surface) {
	o, ok := s.objects.(*textureObjects)
	if !ok {
		return
	}
	if !d.ext.DXInterop.LockObjects(d.glDXInteropDevice, o.glDXInteropObject) {
		panic(fmt.Sprintf("surfman: wglDXLockObjectsNV failed: %v", windows.GetLastError()))
	}
}

// UnlockSurface releases the lock taken by LockSurface.
func (d *Device) UnlockSurface(s *Surface) {
	o, ok := s.objects.(*textureObjects)
	if !ok {
		return
	}
	if !d.ext.DXInterop.UnlockObjects(d.glDXInteropDevice, o.glDXInteropObject) {
		panic(fmt.Sprintf("surfman: wglDXUnlockObjectsNV failed: %v", windows.GetLastError()))
	}
}

// PresentSurface swaps the buffers of a widget-backed surface. It needs no
// context current; the swap goes through the window's own device context.
func (d *Device) PresentSurface(s *Surface) error {
	o, ok := s.objects.(*widgetObjects)
	if !ok {
		return ErrNoWidgetAttached
	}
	if err := win32.SwapBuffers(o.windowDC); err != nil {
		return fmt.Errorf("surfman: present failed: %w", err)
	}
	return nil
}

// MakeContextCurrentWithSurface makes c current with a widget-backed
// surface's window as its draw target. For texture-backed surfaces use
// MakeCurrent and render through the surface's framebuffer.
func (d *Device) MakeContextCurrentWithSurface(c *Context, s *Surface) error {
	if s.contextID != c.id {
		return ErrIncompatibleSurface
	}
	o, ok := s.objects.(*widgetObjects)
	if !ok {
		return d.MakeCurrent(c)
	}
	if !wgl.MakeCurrent(o.windowDC, c.glrc) {
		return fmt.Errorf("surfman: wglMakeCurrent failed: %v", windows.GetLastError())
	}
	return nil
}

// WriteSurfaceData uploads RGBA pixels, top row first, to a texture-backed
// surface through the Direct3D side of the allocation. data must hold
// width*height*4 bytes. The surface must not be locked: the upload
// synchronizes with GL through the allocation's keyed mutex.
func (d *Device) WriteSurfaceData(s *Surface, data []byte) error {
	o, ok := s.objects.(*textureObjects)
	if !ok {
		return ErrWidgetAttached
	}
	if want := s.size.X * s.size.Y * 4; len(data) != want {
		return fmt.Errorf("surfman: pixel data is %d bytes, want %d", len(data), want)
	}
	d.d3dDeviceContext.UpdateSubresource(o.d3dTexture, uint32(s.size.X*4), data)
	d.d3dDeviceContext.Flush()
	return nil
}

// CopySurfaceData reads back the pixels of a texture-backed surface into
// an RGBA image. Rows come back in the Direct3D order of the allocation,
// top row first, matching WriteSurfaceData. The surface's own context must
// be passed, and the surface must not be locked.
func (d *Device) CopySurfaceData(c *Context, s *Surface) (*image.RGBA, error) {
	o, ok := s.objects.(*textureObjects)
	if !ok {
		return nil, ErrWidgetAttached
	}
	if s.contextID != c.id {
		return nil, ErrIncompatibleSurface
	}

	restore, err := d.temporarilyMakeContextCurrent(c)
	if err != nil {
		return nil, err
	}
	defer restore()

	d.LockSurface(s)
	defer d.UnlockSurface(s)

	g := c.gl
	restoreFB := temporarilyBindFramebuffer(g, o.glFramebuffer)
	defer restoreFB()

	w, h := s.size.X, s.size.Y
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	g.PixelStorei(gl.PACK_ALIGNMENT, 1)
	g.ReadPixels(0, 0, w, h, gl.RGBA, gl.UNSIGNED_BYTE, img.Pix)
	if e := g.GetError(); e != 0 {
		return nil, fmt.Errorf("surfman: glReadPixels failed: %#x", uint(e))
	}
	return img, nil
}

// Size returns the surface size in pixels.
func (s *Surface) Size() image.Point {
	return s.size
}

// ID returns the surface identifier.
func (s *Surface) ID() SurfaceID {
	switch o := s.objects.(type) {
	case *textureObjects:
		return SurfaceID(uintptr(unsafe.Pointer(o.d3dTexture)))
	case *widgetObjects:
		return SurfaceID(o.windowHandle)
	default:
		panic("surfman: unknown surface backing")
	}
}

// ContextID returns the ID of the context the surface was created in.
func (s *Surface) ContextID() ContextID {
	return s.contextID
}

// Surface returns the wrapped surface.
func (st *SurfaceTexture) Surface() *Surface {
	return st.surface
}

// GLTexture returns the GL texture name the surface texture is bound to
// in its context. The texture target is TEXTURE_2D.
func (st *SurfaceTexture) GLTexture() uint32 {
	return uint32(st.glTexture.V)
}

// Framebuffer returns the GL framebuffer name rendering to the surface,
// or zero for a widget-backed surface, which renders to the window's
// default framebuffer.
func (d *Device) Framebuffer(s *Surface) uint32 {
	if o, ok := s.objects.(*textureObjects); ok {
		return uint32(o.glFramebuffer.V)
	}
	return 0
}

func temporarilyBindTexture(g *gl.Functions, t gl.Texture) func() {
	prev := gl.Texture{V: uint(g.GetInteger(gl.TEXTURE_BINDING_2D))}
	g.BindTexture(gl.TEXTURE_2D, t)
	return func() {
		g.BindTexture(gl.TEXTURE_2D, prev)
	}
}

func releaseTexture(t *d3d11.Texture2D) {
	if t != nil {
		d3d11.IUnknownRelease(unsafe.Pointer(t), t.Vtbl.Release)
	}
}

func lastError(name string) error {
	return fmt.Errorf("%s failed: %v", name, windows.GetLastError())
}
