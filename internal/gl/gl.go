// SPDX-License-Identifier: Unlicense OR MIT

// Package gl exposes the small OpenGL subset needed to attach shared
// Direct3D allocations to framebuffers and read their contents back.
package gl

type Enum uint

const (
	CLAMP_TO_EDGE            = 0x812f
	COLOR_ATTACHMENT0        = 0x8ce0
	DEPTH24_STENCIL8         = 0x88f0
	DEPTH_ATTACHMENT         = 0x8d00
	DEPTH_COMPONENT24        = 0x81a6
	DEPTH_STENCIL_ATTACHMENT = 0x821a
	EXTENSIONS               = 0x1f03
	FRAMEBUFFER              = 0x8d40
	FRAMEBUFFER_BINDING      = 0x8ca6
	FRAMEBUFFER_COMPLETE     = 0x8cd5
	LINEAR                   = 0x2601
	NONE                     = 0
	NO_ERROR                 = 0
	PACK_ALIGNMENT           = 0xd05
	RENDERBUFFER             = 0x8d41
	RENDERBUFFER_BINDING     = 0x8ca7
	RGBA                     = 0x1908
	RGBA8                    = 0x8058
	STENCIL_ATTACHMENT       = 0x8d20
	STENCIL_INDEX8           = 0x8d48
	TEXTURE_2D               = 0xde1
	TEXTURE_BINDING_2D       = 0x8069
	TEXTURE_MAG_FILTER       = 0x2800
	TEXTURE_MIN_FILTER       = 0x2801
	TEXTURE_WRAP_S           = 0x2802
	TEXTURE_WRAP_T           = 0x2803
	UNSIGNED_BYTE            = 0x1401
	VERSION                  = 0x1f02
)
