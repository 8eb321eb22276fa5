// SPDX-License-Identifier: Unlicense OR MIT

package surfman

import (
	"image"

	"github.com/servo/surfman/internal/gl"
)

// renderbuffers owns the depth/stencil attachments of a texture-backed
// surface's framebuffer. The layout follows the owning context's
// attributes: packed depth+stencil when both were requested, individual
// buffers otherwise.
type renderbuffers struct {
	scheme   renderbufferScheme
	combined gl.Renderbuffer
	depth    gl.Renderbuffer
	stencil  gl.Renderbuffer
}

// newRenderbuffers allocates renderbuffer storage sized to the surface. The
// context owning g must be current. The previous renderbuffer binding is
// restored before returning.
func newRenderbuffers(g *gl.Functions, size image.Point, flags ContextAttributeFlags) renderbuffers {
	r := renderbuffers{scheme: schemeForAttributes(flags)}
	prev := gl.Renderbuffer{V: uint(g.GetInteger(gl.RENDERBUFFER_BINDING))}
	defer g.BindRenderbuffer(gl.RENDERBUFFER, prev)

	switch r.scheme {
	case renderbufferSchemeNone:
	case renderbufferSchemeCombined:
		r.combined = g.CreateRenderbuffer()
		g.BindRenderbuffer(gl.RENDERBUFFER, r.combined)
		g.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH24_STENCIL8, size.X, size.Y)
	case renderbufferSchemeIndividual:
		if flags&ContextAttributeDepth != 0 {
			r.depth = g.CreateRenderbuffer()
			g.BindRenderbuffer(gl.RENDERBUFFER, r.depth)
			g.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, size.X, size.Y)
		}
		if flags&ContextAttributeStencil != 0 {
			r.stencil = g.CreateRenderbuffer()
			g.BindRenderbuffer(gl.RENDERBUFFER, r.stencil)
			g.RenderbufferStorage(gl.RENDERBUFFER, gl.STENCIL_INDEX8, size.X, size.Y)
		}
	default:
		panic("surfman: unknown renderbuffer scheme")
	}
	return r
}

// bindToCurrentFramebuffer attaches the renderbuffers to the framebuffer
// currently bound to GL_FRAMEBUFFER.
func (r *renderbuffers) bindToCurrentFramebuffer(g *gl.Functions) {
	switch r.scheme {
	case renderbufferSchemeNone:
	case renderbufferSchemeCombined:
		g.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_STENCIL_ATTACHMENT, gl.RENDERBUFFER, r.combined)
	case renderbufferSchemeIndividual:
		if r.depth.Valid() {
			g.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, r.depth)
		}
		if r.stencil.Valid() {
			g.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.STENCIL_ATTACHMENT, gl.RENDERBUFFER, r.stencil)
		}
	default:
		panic("surfman: unknown renderbuffer scheme")
	}
}

// destroy releases the renderbuffers. The owning context must be current.
func (r *renderbuffers) destroy(g *gl.Functions) {
	g.BindRenderbuffer(gl.RENDERBUFFER, gl.Renderbuffer{})
	if r.combined.Valid() {
		g.DeleteRenderbuffer(r.combined)
		r.combined = gl.Renderbuffer{}
	}
	if r.depth.Valid() {
		g.DeleteRenderbuffer(r.depth)
		r.depth = gl.Renderbuffer{}
	}
	if r.stencil.Valid() {
		g.DeleteRenderbuffer(r.stencil)
		r.stencil = gl.Renderbuffer{}
	}
}
