// SPDX-License-Identifier: Unlicense OR MIT

package surfman

// renderbufferScheme is the depth/stencil attachment layout derived from
// context attributes.
type renderbufferScheme int

const (
	renderbufferSchemeNone renderbufferScheme = iota
	// A single packed depth+stencil renderbuffer.
	renderbufferSchemeCombined
	// Separate depth and/or stencil renderbuffers.
	renderbufferSchemeIndividual
)

func schemeForAttributes(flags ContextAttributeFlags) renderbufferScheme {
	depth := flags&ContextAttributeDepth != 0
	stencil := flags&ContextAttributeStencil != 0
	switch {
	case depth && stencil:
		return renderbufferSchemeCombined
	case depth || stencil:
		return renderbufferSchemeIndividual
	default:
		return renderbufferSchemeNone
	}
}
