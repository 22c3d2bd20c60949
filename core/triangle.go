// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	glm "github.com/go-gl/mathgl/mgl32"
)

// Vertex is a screen space position, the only attribute the test
// triangle has.
type Vertex struct {
	Pos glm.Vec2
}

// VertexSize is the size of one Vertex in a vertex buffer.
const VertexSize = 8

// TestTriangle is drawn by DrawTestTriangle, wound clockwise.
var TestTriangle = [...]Vertex{
	{Pos: glm.Vec2{0.0, 0.5}},
	{Pos: glm.Vec2{0.5, -0.5}},
	{Pos: glm.Vec2{-0.5, -0.5}},
}

// VertexLayout describes Vertex to the input assembler.
var VertexLayout = []InputElementDesc{{
	SemanticName:      "Position",
	SemanticIndex:     0,
	Format:            FormatR32G32Float,
	InputSlot:         0,
	AlignedByteOffset: 0,
	Classification:    PerVertexData,
}}

// EncodeVertices lays vertices out the way they are uploaded.
func EncodeVertices(vertices []Vertex) []byte {
	values := make([]float32, 0, 2*len(vertices))
	for _, v := range vertices {
		values = append(values, v.Pos.X(), v.Pos.Y())
	}
	return Float32Bytes(values...)
}

// DrawTestTriangle uploads a fixed triangle into a new immutable
// vertex buffer, binds the shaders, the render target and a viewport
// of the nominal screen size, and draws it. A draw that succeeds while
// the validation layer complains fails with KindInfoOnly.
func (g *Graphics) DrawTestTriangle() error {
	vertices := TestTriangle[:]
	data := EncodeVertices(vertices)

	bd := BufferDesc{
		ByteWidth:           uint32(len(data)),
		Usage:               UsageImmutable,
		BindFlags:           BindVertexBuffer,
		StructureByteStride: VertexSize,
	}
	g.info.Mark()
	vertexBuffer, err := g.res.device.CreateBuffer(bd, data)
	if err != nil {
		return g.failure(KindHResult, "Device.CreateBuffer", err)
	}
	defer vertexBuffer.Release()

	g.res.context.SetVertexBuffers(0, []Buffer{vertexBuffer}, []uint32{VertexSize}, []uint32{0})

	g.info.Mark()
	pixelShader, err := g.res.device.CreatePixelShader(g.shaders.Pixel)
	if err != nil {
		return g.failure(KindHResult, "Device.CreatePixelShader", err)
	}
	defer pixelShader.Release()
	g.res.context.SetPixelShader(pixelShader)

	g.info.Mark()
	vertexShader, err := g.res.device.CreateVertexShader(g.shaders.Vertex)
	if err != nil {
		return g.failure(KindHResult, "Device.CreateVertexShader", err)
	}
	defer vertexShader.Release()
	g.res.context.SetVertexShader(vertexShader)

	g.info.Mark()
	layout, err := g.res.device.CreateInputLayout(VertexLayout, g.shaders.Vertex)
	if err != nil {
		return g.failure(KindHResult, "Device.CreateInputLayout", err)
	}
	defer layout.Release()
	g.res.context.SetInputLayout(layout)

	g.res.context.SetRenderTargets([]RenderTargetView{g.res.target})
	g.res.context.SetPrimitiveTopology(TopologyTriangleList)
	g.res.context.SetViewports([]Viewport{{
		Width:    float32(g.cfg.ScreenWidth),
		Height:   float32(g.cfg.ScreenHeight),
		MinDepth: 0,
		MaxDepth: 1,
	}})

	g.info.Mark()
	if err := g.res.context.Draw(uint32(len(vertices)), 0); err != nil {
		return g.failure(KindHResult, "Context.Draw", err)
	}
	if info := g.info.Drain(); len(info) > 0 {
		e := newError(KindInfoOnly, "Context.Draw", ResultOK, info, 1)
		g.log.WithField("op", e.Op).Error(e.Kind.String())
		return e
	}
	return nil
}
