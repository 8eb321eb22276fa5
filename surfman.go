// SPDX-License-Identifier: Unlicense OR MIT

// Package surfman manages render targets whose backing memory is shared
// between two GPU driver stacks: an OpenGL context that draws into the
// target, and a Direct3D 11 device that allocated it and can hand it to a
// compositor without a CPU copy.
//
// A Surface is either texture-backed, an offscreen allocation registered
// with both APIs through WGL_NV_DX_interop2, or widget-backed, a native
// window's own back buffer. Texture-backed surfaces follow a strict
// create/lock/use/unlock/destroy protocol: the lock gate serializes the two
// APIs' engines over the shared allocation, and every surface must be
// explicitly destroyed through the device that created it before it is
// dropped.
//
// Context-current state is per OS thread. Callers must pin goroutines that
// use a Device with runtime.LockOSThread and keep all operations on a
// context to the thread it was created on.
package surfman

import "image"

// SurfaceID identifies a surface for its lifetime. Texture-backed surface
// IDs derive from the Direct3D texture pointer, widget-backed IDs from the
// window handle; IDs are distinct across concurrently live surfaces.
type SurfaceID uintptr

// ContextID identifies a rendering context created by a Device. A surface
// records the ID of the context that created it and may only be mutated or
// destroyed through that context.
type ContextID uint64

// SurfaceAccess hints where surface data will be written from. The Windows
// backend allocates identically for all hints; the hint is part of the
// portable API.
type SurfaceAccess int

const (
	// SurfaceAccessGPUOnly is for surfaces only ever written by the GPU.
	SurfaceAccessGPUOnly SurfaceAccess = iota
	// SurfaceAccessGPUCPU is for surfaces the CPU will write to as well.
	SurfaceAccessGPUCPU
	// SurfaceAccessGPUCPUWriteCombined additionally requests
	// write-combined CPU mappings.
	SurfaceAccessGPUCPUWriteCombined
)

// SurfaceType selects the backing of a new surface. It is a closed set:
// Generic and Widget are the only implementations.
type SurfaceType interface {
	isSurfaceType()
}

// Generic requests an offscreen, cross-API shareable allocation of the
// given size.
type Generic struct {
	Size image.Point
}

func (Generic) isSurfaceType() {}

// GLVersion is an OpenGL version request.
type GLVersion struct {
	Major, Minor int
}

// ContextAttributeFlags configure the ancillary buffers and profile of a
// context.
type ContextAttributeFlags uint32

const (
	// ContextAttributeAlpha requests an alpha channel.
	ContextAttributeAlpha ContextAttributeFlags = 1 << iota
	// ContextAttributeDepth requests a depth buffer.
	ContextAttributeDepth
	// ContextAttributeStencil requests a stencil buffer.
	ContextAttributeStencil
	// ContextAttributeCompatibilityProfile requests a compatibility
	// profile context instead of a core profile one.
	ContextAttributeCompatibilityProfile
)

// ContextAttributes describe a context to be created.
type ContextAttributes struct {
	Version GLVersion
	Flags   ContextAttributeFlags
}
