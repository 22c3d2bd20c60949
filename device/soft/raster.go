// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package soft

import (
	"image"
	"math"

	glm "github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/vector"

	"github.com/koru3d/frame/core"
)

// toScreen maps a clip space position into render target pixels.
func toScreen(vp core.Viewport, p glm.Vec2) glm.Vec2 {
	return glm.Vec2{
		(p.X()+1)/2*vp.Width + vp.TopLeftX,
		(1-p.Y())/2*vp.Height + vp.TopLeftY,
	}
}

// frontFacing reports whether a screen space triangle is wound
// clockwise. Screen y grows downwards.
func frontFacing(a, b, c glm.Vec2) bool {
	ab := b.Sub(a).Vec3(0)
	ac := c.Sub(a).Vec3(0)
	return ab.Cross(ac).Z() > 0
}

// viewportRect returns the pixels covered by vp on s.
func viewportRect(s *Surface, vp core.Viewport) image.Rectangle {
	r := image.Rect(
		int(math.Floor(float64(vp.TopLeftX))),
		int(math.Floor(float64(vp.TopLeftY))),
		int(math.Ceil(float64(vp.TopLeftX+vp.Width))),
		int(math.Ceil(float64(vp.TopLeftY+vp.Height))),
	)
	return r.Intersect(image.Rect(0, 0, s.Width, s.Height))
}

// rasterize fills clip space triangles into s with color c. Back
// facing triangles are culled. All triangles share one coverage mask,
// so edges shared inside a strip are not blended twice.
func rasterize(s *Surface, vp core.Viewport, triangles [][3]glm.Vec2, c Color) {
	bounds := viewportRect(s, vp)
	if bounds.Empty() {
		return
	}

	z := vector.NewRasterizer(s.Width, s.Height)
	front := 0
	for _, tri := range triangles {
		a, b, d := toScreen(vp, tri[0]), toScreen(vp, tri[1]), toScreen(vp, tri[2])
		if !frontFacing(a, b, d) {
			continue
		}
		z.MoveTo(a.X(), a.Y())
		z.LineTo(b.X(), b.Y())
		z.LineTo(d.X(), d.Y())
		z.ClosePath()
		front++
	}
	if front == 0 {
		return
	}

	mask := image.NewAlpha(image.Rect(0, 0, s.Width, s.Height))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			coverage := mask.AlphaAt(x, y).A
			if coverage == 0 {
				continue
			}
			i := y*s.Width + x
			s.Pix[i] = c.lerp(s.Pix[i], float32(coverage)/0xff)
		}
	}
}
