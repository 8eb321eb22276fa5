// SPDX-License-Identifier: Unlicense OR MIT

// Package win32 wraps the user32/gdi32/kernel32 entry points used by the
// WGL backend: window class registration, hidden window management, device
// contexts and pixel formats.
package win32

import (
	"fmt"
	"unsafe"

	syscall "golang.org/x/sys/windows"
)

type Rect struct {
	Left, Top, Right, Bottom int32
}

type WndClassEx struct {
	CbSize        uint32
	Style         uint32
	LpfnWndProc   uintptr
	CnBclsExtra   int32
	CbWndExtra    int32
	HInstance     syscall.Handle
	HIcon         syscall.Handle
	HCursor       syscall.Handle
	HbrBackground syscall.Handle
	LpszMenuName  *uint16
	LpszClassName *uint16
	HIconSm       syscall.Handle
}

// PixelFormatDescriptor matches PIXELFORMATDESCRIPTOR (40 bytes).
type PixelFormatDescriptor struct {
	NSize           uint16
	NVersion        uint16
	DwFlags         uint32
	IPixelType      byte
	CColorBits      byte
	CRedBits        byte
	CRedShift       byte
	CGreenBits      byte
	CGreenShift     byte
	CBlueBits       byte
	CBlueShift      byte
	CAlphaBits      byte
	CAlphaShift     byte
	CAccumBits      byte
	CAccumRedBits   byte
	CAccumGreenBits byte
	CAccumBlueBits  byte
	CAccumAlphaBits byte
	CDepthBits      byte
	CStencilBits    byte
	CAuxBuffers     byte
	ILayerType      byte
	BReserved       byte
	DwLayerMask     uint32
	DwVisibleMask   uint32
	DwDamageMask    uint32
}

const (
	CS_HREDRAW = 0x0002
	CS_VREDRAW = 0x0001
	CS_OWNDC   = 0x0020

	WS_CLIPCHILDREN     = 0x02000000
	WS_CLIPSIBLINGS     = 0x04000000
	WS_OVERLAPPEDWINDOW = 0x00CF0000

	PFD_TYPE_RGBA = 0

	PFD_DRAW_TO_WINDOW = 0x00000004
	PFD_SUPPORT_OPENGL = 0x00000020
	PFD_DOUBLEBUFFER   = 0x00000001
)

var (
	kernel32          = syscall.NewLazySystemDLL("kernel32.dll")
	_GetModuleHandleW = kernel32.NewProc("GetModuleHandleW")

	user32            = syscall.NewLazySystemDLL("user32.dll")
	_CreateWindowEx   = user32.NewProc("CreateWindowExW")
	_DefWindowProc    = user32.NewProc("DefWindowProcW")
	_DestroyWindow    = user32.NewProc("DestroyWindow")
	_GetClientRect    = user32.NewProc("GetClientRect")
	_GetDC            = user32.NewProc("GetDC")
	_IsWindow         = user32.NewProc("IsWindow")
	_RegisterClassExW = user32.NewProc("RegisterClassExW")
	_ReleaseDC        = user32.NewProc("ReleaseDC")

	gdi32                = syscall.NewLazySystemDLL("gdi32.dll")
	_ChoosePixelFormat   = gdi32.NewProc("ChoosePixelFormat")
	_DescribePixelFormat = gdi32.NewProc("DescribePixelFormat")
	_SetPixelFormat      = gdi32.NewProc("SetPixelFormat")
	_SwapBuffers         = gdi32.NewProc("SwapBuffers")
)

func GetModuleHandle() (syscall.Handle, error) {
	h, _, err := _GetModuleHandleW.Call(uintptr(0))
	if h == 0 {
		return 0, fmt.Errorf("win32: GetModuleHandleW failed: %v", err)
	}
	return syscall.Handle(h), nil
}

func RegisterClassEx(cls *WndClassEx) (uint16, error) {
	a, _, err := _RegisterClassExW.Call(uintptr(unsafe.Pointer(cls)))
	if a == 0 {
		return 0, fmt.Errorf("win32: RegisterClassExW failed: %v", err)
	}
	return uint16(a), nil
}

func CreateWindowEx(dwExStyle uint32, lpClassName uint16, lpWindowName string, dwStyle uint32, x, y, w, h int32, parent, menu, instance syscall.Handle) (syscall.Handle, error) {
	wname, err := syscall.UTF16PtrFromString(lpWindowName)
	if err != nil {
		return 0, err
	}
	hwnd, _, callErr := _CreateWindowEx.Call(
		uintptr(dwExStyle),
		uintptr(lpClassName),
		uintptr(unsafe.Pointer(wname)),
		uintptr(dwStyle),
		uintptr(x), uintptr(y),
		uintptr(w), uintptr(h),
		uintptr(parent),
		uintptr(menu),
		uintptr(instance),
		0, // lpParam
	)
	if hwnd == 0 {
		return 0, fmt.Errorf("win32: CreateWindowEx failed: %v", callErr)
	}
	return syscall.Handle(hwnd), nil
}

func DefWindowProc(hwnd syscall.Handle, msg uint32, wparam, lparam uintptr) uintptr {
	r, _, _ := _DefWindowProc.Call(uintptr(hwnd), uintptr(msg), wparam, lparam)
	return r
}

// DefWindowProcAddr returns the address of DefWindowProcW, usable directly as
// a window procedure for windows that never handle messages themselves.
func DefWindowProcAddr() uintptr {
	return _DefWindowProc.Addr()
}

func DestroyWindow(hwnd syscall.Handle) {
	_DestroyWindow.Call(uintptr(hwnd))
}

func GetClientRect(hwnd syscall.Handle) (Rect, error) {
	var r Rect
	ok, _, err := _GetClientRect.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&r)))
	if ok == 0 {
		return Rect{}, fmt.Errorf("win32: GetClientRect failed: %v", err)
	}
	return r, nil
}

func GetDC(hwnd syscall.Handle) (syscall.Handle, error) {
	hdc, _, _ := _GetDC.Call(uintptr(hwnd))
	if hdc == 0 {
		return 0, fmt.Errorf("win32: GetDC failed")
	}
	return syscall.Handle(hdc), nil
}

func IsWindow(hwnd syscall.Handle) bool {
	r, _, _ := _IsWindow.Call(uintptr(hwnd))
	return r != 0
}

func ReleaseDC(hwnd, hdc syscall.Handle) {
	_ReleaseDC.Call(uintptr(hwnd), uintptr(hdc))
}

func ChoosePixelFormat(hdc syscall.Handle, pfd *PixelFormatDescriptor) (int32, error) {
	f, _, err := _ChoosePixelFormat.Call(uintptr(hdc), uintptr(unsafe.Pointer(pfd)))
	if f == 0 {
		return 0, fmt.Errorf("win32: ChoosePixelFormat failed: %v", err)
	}
	return int32(f), nil
}

func DescribePixelFormat(hdc syscall.Handle, format int32, pfd *PixelFormatDescriptor) error {
	r, _, err := _DescribePixelFormat.Call(uintptr(hdc), uintptr(format), unsafe.Sizeof(*pfd), uintptr(unsafe.Pointer(pfd)))
	if r == 0 {
		return fmt.Errorf("win32: DescribePixelFormat failed: %v", err)
	}
	return nil
}

func SetPixelFormat(hdc syscall.Handle, format int32, pfd *PixelFormatDescriptor) error {
	ok, _, err := _SetPixelFormat.Call(uintptr(hdc), uintptr(format), uintptr(unsafe.Pointer(pfd)))
	if ok == 0 {
		return fmt.Errorf("win32: SetPixelFormat failed: %v", err)
	}
	return nil
}

func SwapBuffers(hdc syscall.Handle) error {
	ok, _, err := _SwapBuffers.Call(uintptr(hdc))
	if ok == 0 {
		return fmt.Errorf("win32: SwapBuffers failed: %v", err)
	}
	return nil
}
