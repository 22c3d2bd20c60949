// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package soft

import (
	"image"
	"image/color"
)

// Color is a linear RGBA color with float channels in 0..1.
type Color struct {
	R, G, B, A float32
}

// RGBA implements color.Color, premultiplying by alpha.
func (c Color) RGBA() (r, g, b, a uint32) {
	return unorm16(c.R * c.A), unorm16(c.G * c.A), unorm16(c.B * c.A), unorm16(c.A)
}

func unorm16(v float32) uint32 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 0xffff
	default:
		return uint32(v*0xffff + 0.5)
	}
}

// lerp blends c over dst with coverage a.
func (c Color) lerp(dst Color, a float32) Color {
	if a >= 1 {
		return c
	}
	return Color{
		R: c.R*a + dst.R*(1-a),
		G: c.G*a + dst.G*(1-a),
		B: c.B*a + dst.B*(1-a),
		A: c.A*a + dst.A*(1-a),
	}
}

// NewSurface creates a surface cleared to transparent black.
func NewSurface(width, height int) *Surface {
	return &Surface{
		Width:  width,
		Height: height,
		Pix:    make([]Color, width*height),
	}
}

// Surface is the memory of a render target. Colors are stored as
// floats, so a clear reads back exactly as given.
type Surface struct {
	Width, Height int
	Pix           []Color
}

// At returns the color at x, y. Out of bounds reads are transparent.
func (s *Surface) At(x, y int) Color {
	if x < 0 || y < 0 || x >= s.Width || y >= s.Height {
		return Color{}
	}
	return s.Pix[y*s.Width+x]
}

// Fill sets every pixel to c.
func (s *Surface) Fill(c Color) {
	for i := range s.Pix {
		s.Pix[i] = c
	}
}

// Image converts the surface to 8 bit RGBA, for example to save a
// screenshot.
func (s *Surface) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			img.Set(x, y, color.RGBA64Model.Convert(s.Pix[y*s.Width+x]))
		}
	}
	return img
}
