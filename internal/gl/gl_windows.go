// SPDX-License-Identifier: Unlicense OR MIT

package gl

import (
	"fmt"
	"runtime"
	"syscall"
	"unsafe"
)

// Functions is a per-context view of the GL entry points. Function pointers
// obtained through wglGetProcAddress are only guaranteed valid for contexts
// with the same pixel format, so each context loads its own copy.
type Functions struct {
	glBindFramebuffer         uintptr
	glBindRenderbuffer        uintptr
	glBindTexture             uintptr
	glCheckFramebufferStatus  uintptr
	glDeleteFramebuffers      uintptr
	glDeleteRenderbuffers     uintptr
	glDeleteTextures          uintptr
	glFinish                  uintptr
	glFlush                   uintptr
	glFramebufferRenderbuffer uintptr
	glFramebufferTexture2D    uintptr
	glGenFramebuffers         uintptr
	glGenRenderbuffers        uintptr
	glGenTextures             uintptr
	glGetError                uintptr
	glGetIntegerv             uintptr
	glGetString               uintptr
	glPixelStorei             uintptr
	glReadPixels              uintptr
	glRenderbufferStorage     uintptr
	glTexParameteri           uintptr
}

// LoadFunctions resolves the GL subset through getProcAddr. The resolver must
// cover both core 1.1 entry points and extension entry points; a context
// matching the resolver must be current.
func LoadFunctions(getProcAddr func(name string) uintptr) (*Functions, error) {
	f := new(Functions)
	procs := map[string]*uintptr{
		"glBindFramebuffer":         &f.glBindFramebuffer,
		"glBindRenderbuffer":        &f.glBindRenderbuffer,
		"glBindTexture":             &f.glBindTexture,
		"glCheckFramebufferStatus":  &f.glCheckFramebufferStatus,
		"glDeleteFramebuffers":      &f.glDeleteFramebuffers,
		"glDeleteRenderbuffers":     &f.glDeleteRenderbuffers,
		"glDeleteTextures":          &f.glDeleteTextures,
		"glFinish":                  &f.glFinish,
		"glFlush":                   &f.glFlush,
		"glFramebufferRenderbuffer": &f.glFramebufferRenderbuffer,
		"glFramebufferTexture2D":    &f.glFramebufferTexture2D,
		"glGenFramebuffers":         &f.glGenFramebuffers,
		"glGenRenderbuffers":        &f.glGenRenderbuffers,
		"glGenTextures":             &f.glGenTextures,
		"glGetError":                &f.glGetError,
		"glGetIntegerv":             &f.glGetIntegerv,
		"glGetString":               &f.glGetString,
		"glPixelStorei":             &f.glPixelStorei,
		"glReadPixels":              &f.glReadPixels,
		"glRenderbufferStorage":     &f.glRenderbufferStorage,
		"glTexParameteri":           &f.glTexParameteri,
	}
	for name, proc := range procs {
		p := getProcAddr(name)
		if p == 0 {
			return nil, fmt.Errorf("gl: failed to locate %s", name)
		}
		*proc = p
	}
	return f, nil
}

func (f *Functions) BindFramebuffer(target Enum, fb Framebuffer) {
	syscall.Syscall(f.glBindFramebuffer, 2, uintptr(target), uintptr(fb.V), 0)
}

func (f *Functions) BindRenderbuffer(target Enum, rb Renderbuffer) {
	syscall.Syscall(f.glBindRenderbuffer, 2, uintptr(target), uintptr(rb.V), 0)
}

func (f *Functions) BindTexture(target Enum, t Texture) {
	syscall.Syscall(f.glBindTexture, 2, uintptr(target), uintptr(t.V), 0)
}

func (f *Functions) CheckFramebufferStatus(target Enum) Enum {
	s, _, _ := syscall.Syscall(f.glCheckFramebufferStatus, 1, uintptr(target), 0, 0)
	return Enum(s)
}

func (f *Functions) CreateFramebuffer() Framebuffer {
	var fb uint32
	p := &fb
	syscall.Syscall(f.glGenFramebuffers, 2, 1, uintptr(unsafe.Pointer(p)), 0)
	issue34474KeepAlive(p)
	return Framebuffer{uint(fb)}
}

func (f *Functions) CreateRenderbuffer() Renderbuffer {
	var rb uint32
	p := &rb
	syscall.Syscall(f.glGenRenderbuffers, 2, 1, uintptr(unsafe.Pointer(p)), 0)
	issue34474KeepAlive(p)
	return Renderbuffer{uint(rb)}
}

func (f *Functions) CreateTexture() Texture {
	var t uint32
	p := &t
	syscall.Syscall(f.glGenTextures, 2, 1, uintptr(unsafe.Pointer(p)), 0)
	issue34474KeepAlive(p)
	return Texture{uint(t)}
}

func (f *Functions) DeleteFramebuffer(fb Framebuffer) {
	v := uint32(fb.V)
	p := &v
	syscall.Syscall(f.glDeleteFramebuffers, 2, 1, uintptr(unsafe.Pointer(p)), 0)
	issue34474KeepAlive(p)
}

func (f *Functions) DeleteRenderbuffer(rb Renderbuffer) {
	v := uint32(rb.V)
	p := &v
	syscall.Syscall(f.glDeleteRenderbuffers, 2, 1, uintptr(unsafe.Pointer(p)), 0)
	issue34474KeepAlive(p)
}

func (f *Functions) DeleteTexture(t Texture) {
	v := uint32(t.V)
	p := &v
	syscall.Syscall(f.glDeleteTextures, 2, 1, uintptr(unsafe.Pointer(p)), 0)
	issue34474KeepAlive(p)
}

func (f *Functions) Finish() {
	syscall.Syscall(f.glFinish, 0, 0, 0, 0)
}

func (f *Functions) Flush() {
	syscall.Syscall(f.glFlush, 0, 0, 0, 0)
}

func (f *Functions) FramebufferRenderbuffer(target, attachment, renderbuffertarget Enum, rb Renderbuffer) {
	syscall.Syscall6(f.glFramebufferRenderbuffer, 4, uintptr(target), uintptr(attachment), uintptr(renderbuffertarget), uintptr(rb.V), 0, 0)
}

func (f *Functions) FramebufferTexture2D(target, attachment, texTarget Enum, t Texture, level int) {
	syscall.Syscall6(f.glFramebufferTexture2D, 5, uintptr(target), uintptr(attachment), uintptr(texTarget), uintptr(t.V), uintptr(level), 0)
}

func (f *Functions) GetError() Enum {
	e, _, _ := syscall.Syscall(f.glGetError, 0, 0, 0, 0)
	return Enum(e)
}

func (f *Functions) GetInteger(pname Enum) int {
	var v int32
	p := &v
	syscall.Syscall(f.glGetIntegerv, 2, uintptr(pname), uintptr(unsafe.Pointer(p)), 0)
	issue34474KeepAlive(p)
	return int(v)
}

func (f *Functions) GetString(pname Enum) string {
	s, _, _ := syscall.Syscall(f.glGetString, 1, uintptr(pname), 0, 0)
	if s == 0 {
		return ""
	}
	return cString(s)
}

func (f *Functions) PixelStorei(pname Enum, param int32) {
	syscall.Syscall(f.glPixelStorei, 2, uintptr(pname), uintptr(param), 0)
}

func (f *Functions) ReadPixels(x, y, width, height int, format, ty Enum, data []byte) {
	d := &data[0]
	syscall.Syscall9(f.glReadPixels, 7, uintptr(x), uintptr(y), uintptr(width), uintptr(height), uintptr(format), uintptr(ty), uintptr(unsafe.Pointer(d)), 0, 0)
	issue34474KeepAlive(d)
}

func (f *Functions) RenderbufferStorage(target, internalformat Enum, width, height int) {
	syscall.Syscall6(f.glRenderbufferStorage, 4, uintptr(target), uintptr(internalformat), uintptr(width), uintptr(height), 0, 0)
}

func (f *Functions) TexParameteri(target, pname Enum, param int) {
	syscall.Syscall(f.glTexParameteri, 3, uintptr(target), uintptr(pname), uintptr(param))
}

func cString(p uintptr) string {
	var n int
	for *(*byte)(unsafe.Pointer(p + uintptr(n))) != 0 {
		n++
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(p)), n)
	return string(b)
}

// issue34474KeepAlive calls runtime.KeepAlive as a
// workaround for golang.org/issue/34474.
func issue34474KeepAlive(v interface{}) {
	runtime.KeepAlive(v)
}
