// SPDX-License-Identifier: Unlicense OR MIT

// Package wgl binds the WGL entry points of opengl32.dll together with the
// extension function set discovered once per process, including the
// WGL_NV_DX_interop2 functions that register Direct3D resources with GL.
package wgl

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/servo/surfman/internal/win32"
)

type (
	// Context is an HGLRC.
	Context uintptr
	// InteropDevice is the HANDLE returned by wglDXOpenDeviceNV.
	InteropDevice uintptr
	// InteropObject is the HANDLE returned by wglDXRegisterObjectNV.
	InteropObject uintptr
)

const (
	ACCESS_READ_ONLY_NV  = 0x0000
	ACCESS_READ_WRITE_NV = 0x0001

	CONTEXT_MAJOR_VERSION_ARB             = 0x2091
	CONTEXT_MINOR_VERSION_ARB             = 0x2092
	CONTEXT_PROFILE_MASK_ARB              = 0x9126
	CONTEXT_CORE_PROFILE_BIT_ARB          = 0x0001
	CONTEXT_COMPATIBILITY_PROFILE_BIT_ARB = 0x0002

	DRAW_TO_WINDOW_ARB    = 0x2001
	ACCELERATION_ARB      = 0x2003
	SUPPORT_OPENGL_ARB    = 0x2010
	DOUBLE_BUFFER_ARB     = 0x2011
	PIXEL_TYPE_ARB        = 0x2013
	COLOR_BITS_ARB        = 0x2014
	ALPHA_BITS_ARB        = 0x201b
	DEPTH_BITS_ARB        = 0x2022
	STENCIL_BITS_ARB      = 0x2023
	FULL_ACCELERATION_ARB = 0x2027
	TYPE_RGBA_ARB         = 0x202b
)

var (
	opengl32              = windows.DLL{}
	_wglCreateContext     *windows.Proc
	_wglDeleteContext     *windows.Proc
	_wglGetCurrentContext *windows.Proc
	_wglGetCurrentDC      *windows.Proc
	_wglGetProcAddress    *windows.Proc
	_wglMakeCurrent       *windows.Proc
)

var loadOnce sync.Once

func loadWGL() error {
	var err error
	loadOnce.Do(func() {
		err = loadDLL()
	})
	return err
}

func loadDLL() error {
	handle, err := windows.LoadLibraryEx("opengl32.dll", 0, windows.LOAD_LIBRARY_SEARCH_SYSTEM32)
	if err != nil {
		return fmt.Errorf("wgl: failed to load opengl32.dll: %v", err)
	}
	opengl32.Handle = handle
	opengl32.Name = "opengl32.dll"

	procs := map[string]**windows.Proc{
		"wglCreateContext":     &_wglCreateContext,
		"wglDeleteContext":     &_wglDeleteContext,
		"wglGetCurrentContext": &_wglGetCurrentContext,
		"wglGetCurrentDC":      &_wglGetCurrentDC,
		"wglGetProcAddress":    &_wglGetProcAddress,
		"wglMakeCurrent":       &_wglMakeCurrent,
	}
	for name, proc := range procs {
		p, err := opengl32.FindProc(name)
		if err != nil {
			return fmt.Errorf("wgl: failed to locate %s in %s: %w", name, opengl32.Name, err)
		}
		*proc = p
	}
	return nil
}

func CreateContext(hdc windows.Handle) Context {
	c, _, _ := _wglCreateContext.Call(uintptr(hdc))
	return Context(c)
}

func DeleteContext(ctx Context) bool {
	r, _, _ := _wglDeleteContext.Call(uintptr(ctx))
	return r != 0
}

func GetCurrentContext() Context {
	c, _, _ := _wglGetCurrentContext.Call()
	return Context(c)
}

func GetCurrentDC() windows.Handle {
	dc, _, _ := _wglGetCurrentDC.Call()
	return windows.Handle(dc)
}

func MakeCurrent(hdc windows.Handle, ctx Context) bool {
	r, _, _ := _wglMakeCurrent.Call(uintptr(hdc), uintptr(ctx))
	return r != 0
}

// GetProcAddress resolves a GL or WGL entry point. Extension functions come
// from wglGetProcAddress; core 1.1 functions only exist as opengl32 exports,
// so failed lookups fall back to the DLL's export table.
func GetProcAddress(name string) uintptr {
	cname := append([]byte(name), 0)
	a := &cname[0]
	p, _, _ := _wglGetProcAddress.Call(uintptr(unsafe.Pointer(a)))
	issue34474KeepAlive(a)
	// Implementations return small sentinel values for unknown names.
	if p == 0 || p == 1 || p == 2 || p == 3 || p == ^uintptr(0) {
		proc, err := opengl32.FindProc(name)
		if err != nil {
			return 0
		}
		return proc.Addr()
	}
	return p
}

// Extensions is the process-wide WGL capability table. It is discovered once,
// against a bootstrap context, and is read-only afterwards.
type Extensions struct {
	extensions []string

	choosePixelFormatARB    uintptr
	createContextAttribsARB uintptr

	// DXInterop is nil when WGL_NV_DX_interop2 was not negotiated.
	DXInterop *DXInteropFunctions
}

// DXInteropFunctions carries the WGL_NV_DX_interop2 entry points. The
// protocol reports failure through a bare BOOL; callers decide whether a
// failure is recoverable.
type DXInteropFunctions struct {
	dxOpenDeviceNV             uintptr
	dxCloseDeviceNV            uintptr
	dxRegisterObjectNV         uintptr
	dxUnregisterObjectNV       uintptr
	dxSetResourceShareHandleNV uintptr
	dxLockObjectsNV            uintptr
	dxUnlockObjectsNV          uintptr
}

var (
	extOnce sync.Once
	ext     *Extensions
	extErr  error
)

// LoadExtensions discovers the WGL extension set. The first call creates a
// throwaway window and bootstrap context to query against; subsequent calls
// return the cached table.
func LoadExtensions() (*Extensions, error) {
	extOnce.Do(func() {
		ext, extErr = loadExtensions()
	})
	return ext, extErr
}

func loadExtensions() (*Extensions, error) {
	if err := loadWGL(); err != nil {
		return nil, err
	}

	// The discovery context replaces whatever is current on this thread;
	// save and restore around it.
	prevDC := GetCurrentDC()
	prevCtx := GetCurrentContext()
	defer MakeCurrent(prevDC, prevCtx)

	hwnd, hdc, err := bootstrapWindow()
	if err != nil {
		return nil, err
	}
	defer func() {
		win32.ReleaseDC(hwnd, hdc)
		win32.DestroyWindow(hwnd)
	}()

	ctx := CreateContext(hdc)
	if ctx == 0 {
		return nil, fmt.Errorf("wgl: wglCreateContext failed: %v", windows.GetLastError())
	}
	defer DeleteContext(ctx)
	if !MakeCurrent(hdc, ctx) {
		return nil, fmt.Errorf("wgl: wglMakeCurrent failed: %v", windows.GetLastError())
	}

	getExtStr := GetProcAddress("wglGetExtensionsStringARB")
	if getExtStr == 0 {
		return &Extensions{}, nil
	}
	s, _, _ := syscall.SyscallN(getExtStr, uintptr(hdc))
	e := &Extensions{
		extensions:              strings.Fields(goString(s)),
		choosePixelFormatARB:    GetProcAddress("wglChoosePixelFormatARB"),
		createContextAttribsARB: GetProcAddress("wglCreateContextAttribsARB"),
	}
	if e.Has("WGL_NV_DX_interop2") {
		dx := &DXInteropFunctions{
			dxOpenDeviceNV:             GetProcAddress("wglDXOpenDeviceNV"),
			dxCloseDeviceNV:            GetProcAddress("wglDXCloseDeviceNV"),
			dxRegisterObjectNV:         GetProcAddress("wglDXRegisterObjectNV"),
			dxUnregisterObjectNV:       GetProcAddress("wglDXUnregisterObjectNV"),
			dxSetResourceShareHandleNV: GetProcAddress("wglDXSetResourceShareHandleNV"),
			dxLockObjectsNV:            GetProcAddress("wglDXLockObjectsNV"),
			dxUnlockObjectsNV:          GetProcAddress("wglDXUnlockObjectsNV"),
		}
		if dx.dxOpenDeviceNV != 0 && dx.dxRegisterObjectNV != 0 && dx.dxLockObjectsNV != 0 {
			e.DXInterop = dx
		}
	}
	return e, nil
}

// Has reports whether the named WGL extension was advertised.
func (e *Extensions) Has(name string) bool {
	for _, x := range e.extensions {
		if x == name {
			return true
		}
	}
	return false
}

// ChoosePixelFormatARB selects a pixel format for hdc from a zero-terminated
// attribute list. It reports false when the extension is unavailable or no
// format matched.
func (e *Extensions) ChoosePixelFormatARB(hdc windows.Handle, attribs []int32) (int32, bool) {
	if e.choosePixelFormatARB == 0 {
		return 0, false
	}
	var format int32
	var nformats uint32
	a := &attribs[0]
	r, _, _ := syscall.SyscallN(e.choosePixelFormatARB,
		uintptr(hdc),
		uintptr(unsafe.Pointer(a)),
		0, // pfAttribFList
		1, // nMaxFormats
		uintptr(unsafe.Pointer(&format)),
		uintptr(unsafe.Pointer(&nformats)))
	issue34474KeepAlive(a)
	return format, r != 0 && nformats > 0
}

// CreateContextAttribsARB creates a context from a zero-terminated attribute
// list, or returns 0 when the extension is unavailable.
func (e *Extensions) CreateContextAttribsARB(hdc windows.Handle, share Context, attribs []int32) Context {
	if e.createContextAttribsARB == 0 {
		return 0
	}
	a := &attribs[0]
	c, _, _ := syscall.SyscallN(e.createContextAttribsARB, uintptr(hdc), uintptr(share), uintptr(unsafe.Pointer(a)))
	issue34474KeepAlive(a)
	return Context(c)
}

func (dx *DXInteropFunctions) OpenDevice(d3dDevice unsafe.Pointer) InteropDevice {
	h, _, _ := syscall.SyscallN(dx.dxOpenDeviceNV, uintptr(d3dDevice))
	return InteropDevice(h)
}

func (dx *DXInteropFunctions) CloseDevice(dev InteropDevice) bool {
	r, _, _ := syscall.SyscallN(dx.dxCloseDeviceNV, uintptr(dev))
	return r != 0
}

func (dx *DXInteropFunctions) RegisterObject(dev InteropDevice, d3dResource unsafe.Pointer, name uint, typ, access uint32) InteropObject {
	h, _, _ := syscall.SyscallN(dx.dxRegisterObjectNV, uintptr(dev), uintptr(d3dResource), uintptr(name), uintptr(typ), uintptr(access))
	return InteropObject(h)
}

func (dx *DXInteropFunctions) UnregisterObject(dev InteropDevice, obj InteropObject) bool {
	r, _, _ := syscall.SyscallN(dx.dxUnregisterObjectNV, uintptr(dev), uintptr(obj))
	return r != 0
}

func (dx *DXInteropFunctions) SetResourceShareHandle(d3dResource unsafe.Pointer, share windows.Handle) bool {
	r, _, _ := syscall.SyscallN(dx.dxSetResourceShareHandleNV, uintptr(d3dResource), uintptr(share))
	return r != 0
}

func (dx *DXInteropFunctions) LockObjects(dev InteropDevice, obj InteropObject) bool {
	o := &obj
	r, _, _ := syscall.SyscallN(dx.dxLockObjectsNV, uintptr(dev), 1, uintptr(unsafe.Pointer(o)))
	issue34474KeepAlive(o)
	return r != 0
}

func (dx *DXInteropFunctions) UnlockObjects(dev InteropDevice, obj InteropObject) bool {
	o := &obj
	r, _, _ := syscall.SyscallN(dx.dxUnlockObjectsNV, uintptr(dev), 1, uintptr(unsafe.Pointer(o)))
	issue34474KeepAlive(o)
	return r != 0
}

var (
	bootstrapClassOnce sync.Once
	bootstrapClassErr  error
	bootstrapAtom      uint16
)

const bootstrapClass = "surfman-wgl-bootstrap"

// bootstrapWindow creates a hidden window with a plain double-buffered RGBA
// pixel format, suitable for creating a legacy context to query extensions
// against.
func bootstrapWindow() (hwnd, hdc windows.Handle, err error) {
	instance, err := win32.GetModuleHandle()
	if err != nil {
		return 0, 0, err
	}
	bootstrapClassOnce.Do(func() {
		name, _ := windows.UTF16PtrFromString(bootstrapClass)
		wcls := win32.WndClassEx{
			Style:         win32.CS_OWNDC,
			LpfnWndProc:   win32.DefWindowProcAddr(),
			HInstance:     instance,
			LpszClassName: name,
		}
		wcls.CbSize = uint32(unsafe.Sizeof(wcls))
		bootstrapAtom, bootstrapClassErr = win32.RegisterClassEx(&wcls)
	})
	if bootstrapClassErr != nil {
		return 0, 0, bootstrapClassErr
	}
	hwnd, err = win32.CreateWindowEx(0, bootstrapAtom, bootstrapClass,
		win32.WS_CLIPCHILDREN|win32.WS_CLIPSIBLINGS,
		0, 0, 1, 1, 0, 0, instance)
	if err != nil {
		return 0, 0, err
	}
	hdc, err = win32.GetDC(hwnd)
	if err != nil {
		win32.DestroyWindow(hwnd)
		return 0, 0, err
	}
	if err := SetBasicPixelFormat(hdc); err != nil {
		win32.ReleaseDC(hwnd, hdc)
		win32.DestroyWindow(hwnd)
		return 0, 0, err
	}
	return hwnd, hdc, nil
}

// SetBasicPixelFormat applies a plain 32-bit RGBA, 24-bit depth pixel format
// through the classic gdi32 path. It is the fallback when
// WGL_ARB_pixel_format is unavailable.
func SetBasicPixelFormat(hdc windows.Handle) error {
	pfd := win32.PixelFormatDescriptor{
		NVersion:   1,
		DwFlags:    win32.PFD_DRAW_TO_WINDOW | win32.PFD_SUPPORT_OPENGL | win32.PFD_DOUBLEBUFFER,
		IPixelType: win32.PFD_TYPE_RGBA,
		CColorBits: 32,
		CDepthBits: 24,
	}
	pfd.NSize = uint16(unsafe.Sizeof(pfd))
	format, err := win32.ChoosePixelFormat(hdc, &pfd)
	if err != nil {
		return err
	}
	return win32.SetPixelFormat(hdc, format, &pfd)
}

func goString(p uintptr) string {
	if p == 0 {
		return ""
	}
	return windows.BytePtrToString((*byte)(unsafe.Pointer(p)))
}

// issue34474KeepAlive calls runtime.KeepAlive as a
// workaround for golang.org/issue/34474.
func issue34474KeepAlive(v interface{}) {
	runtime.KeepAlive(v)
}
