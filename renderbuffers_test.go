// SPDX-License-Identifier: Unlicense OR MIT

package surfman

import "testing"

func TestSchemeForAttributes(t *testing.T) {
	tests := []struct {
		name  string
		flags ContextAttributeFlags
		want  renderbufferScheme
	}{
		{"none", 0, renderbufferSchemeNone},
		{"alpha only", ContextAttributeAlpha, renderbufferSchemeNone},
		{"depth", ContextAttributeDepth, renderbufferSchemeIndividual},
		{"stencil", ContextAttributeStencil, renderbufferSchemeIndividual},
		{"depth and stencil", ContextAttributeDepth | ContextAttributeStencil, renderbufferSchemeCombined},
		{"all", ContextAttributeAlpha | ContextAttributeDepth | ContextAttributeStencil | ContextAttributeCompatibilityProfile, renderbufferSchemeCombined},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := schemeForAttributes(test.flags); got != test.want {
				t.Errorf("schemeForAttributes(%#x) = %v, want %v", uint32(test.flags), got, test.want)
			}
		})
	}
}
