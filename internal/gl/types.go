// SPDX-License-Identifier: Unlicense OR MIT

package gl

type (
	Framebuffer  struct{ V uint }
	Renderbuffer struct{ V uint }
	Texture      struct{ V uint }
)

func (u Framebuffer) Valid() bool {
	return u.V != 0
}

func (u Renderbuffer) Valid() bool {
	return u.V != 0
}

func (u Texture) Valid() bool {
	return u.V != 0
}
