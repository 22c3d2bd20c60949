// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package soft

import (
	glm "github.com/go-gl/mathgl/mgl32"

	"github.com/koru3d/frame/core"
)

const vertexInputSlots = 16

type vertexBinding struct {
	buffer         *Buffer
	stride, offset uint32
}

// Context is a software core.Context. Draw rasterizes immediately
// into the bound render target.
type Context struct {
	object

	vertexBuffers [vertexInputSlots]vertexBinding
	layout        *InputLayout
	topology      core.PrimitiveTopology
	vs            *VertexShader
	ps            *PixelShader
	targets       []*RenderTargetView
	viewports     []core.Viewport
}

// ClearRenderTargetView implements core.Context.
func (c *Context) ClearRenderTargetView(rtv core.RenderTargetView, color [4]float32) {
	const op = "Context.ClearRenderTargetView"
	if !c.usable(op) {
		return
	}
	target, ok := rtv.(*RenderTargetView)
	if !ok || target == nil {
		c.drv.report("ERROR", op, "render target view was not created by this device")
		return
	}
	if !target.usable(op) {
		return
	}
	target.surface.Fill(Color{R: color[0], G: color[1], B: color[2], A: color[3]})
}

// SetVertexBuffers implements core.Context.
func (c *Context) SetVertexBuffers(startSlot uint32, buffers []core.Buffer, strides, offsets []uint32) {
	const op = "Context.SetVertexBuffers"
	if len(strides) < len(buffers) || len(offsets) < len(buffers) {
		c.drv.report("ERROR", op, "%d buffers need as many strides and offsets", len(buffers))
		return
	}
	for i, b := range buffers {
		slot := startSlot + uint32(i)
		if slot >= vertexInputSlots {
			c.drv.report("ERROR", op, "slot %d is out of range", slot)
			return
		}
		binding := vertexBinding{stride: strides[i], offset: offsets[i]}
		if b != nil {
			buf, ok := b.(*Buffer)
			if !ok {
				c.drv.report("ERROR", op, "buffer %d was not created by this device", i)
				continue
			}
			if buf.desc.BindFlags&core.BindVertexBuffer == 0 {
				c.drv.report("ERROR", op, "buffer %d was not created with BindVertexBuffer", i)
				continue
			}
			binding.buffer = buf
		}
		c.vertexBuffers[slot] = binding
	}
}

// SetInputLayout implements core.Context.
func (c *Context) SetInputLayout(layout core.InputLayout) {
	c.layout, _ = layout.(*InputLayout)
}

// SetPrimitiveTopology implements core.Context.
func (c *Context) SetPrimitiveTopology(topology core.PrimitiveTopology) {
	c.topology = topology
}

// SetVertexShader implements core.Context.
func (c *Context) SetVertexShader(vs core.VertexShader) {
	c.vs, _ = vs.(*VertexShader)
}

// SetPixelShader implements core.Context.
func (c *Context) SetPixelShader(ps core.PixelShader) {
	c.ps, _ = ps.(*PixelShader)
}

// SetRenderTargets implements core.Context.
func (c *Context) SetRenderTargets(rtvs []core.RenderTargetView) {
	c.targets = c.targets[:0]
	for _, rtv := range rtvs {
		if target, ok := rtv.(*RenderTargetView); ok && target != nil {
			c.targets = append(c.targets, target)
		}
	}
}

// SetViewports implements core.Context.
func (c *Context) SetViewports(viewports []core.Viewport) {
	c.viewports = append(c.viewports[:0], viewports...)
}

// Draw implements core.Context. Missing bindings are reported to the
// validation layer and the draw is skipped, which is not an error.
func (c *Context) Draw(vertexCount, startVertex uint32) error {
	const op = "Context.Draw"
	if !c.usable(op) {
		return core.ResultInvalidCall
	}
	if err := c.drv.inject(op, c.drv.debug); err != nil {
		return err
	}
	if c.drv.removed != core.ResultOK {
		return core.ResultDeviceRemoved
	}

	positions, ok := c.fetchPositions(op, vertexCount, startVertex)
	if !ok {
		return nil
	}
	if len(c.targets) == 0 {
		c.drv.report("WARNING", op, "no render target is bound, nothing is drawn")
		return nil
	}
	if len(c.viewports) == 0 {
		c.drv.report("ERROR", op, "no viewport is set")
		return nil
	}
	if c.ps == nil {
		// no pixel stage, nothing is written
		return nil
	}
	if !c.ps.usable(op) {
		return nil
	}

	white := Color{R: 1, G: 1, B: 1, A: 1}
	viewport := c.viewports[0]
	for _, target := range c.targets {
		if !target.usable(op) {
			continue
		}
		rasterize(target.surface, viewport, assemble(c.topology, positions), white)
	}
	return nil
}

// fetchPositions runs the input assembler and the pass-through
// vertex stage, returning clip space positions.
func (c *Context) fetchPositions(op string, vertexCount, startVertex uint32) ([]glm.Vec2, bool) {
	switch {
	case c.vs == nil:
		c.drv.report("ERROR", op, "no vertex shader is bound")
		return nil, false
	case !c.vs.usable(op):
		return nil, false
	case c.layout == nil:
		c.drv.report("ERROR", op, "no input layout is bound")
		return nil, false
	case !c.layout.usable(op):
		return nil, false
	case c.topology != core.TopologyTriangleList && c.topology != core.TopologyTriangleStrip:
		c.drv.report("ERROR", op, "primitive topology is not set")
		return nil, false
	}

	element := c.layout.elements[c.layout.position]
	binding := c.vertexBuffers[element.InputSlot]
	switch {
	case binding.buffer == nil:
		c.drv.report("ERROR", op, "no vertex buffer is bound at slot %d", element.InputSlot)
		return nil, false
	case !binding.buffer.usable(op):
		return nil, false
	case binding.stride < element.AlignedByteOffset+uint32(element.Format.Size()):
		c.drv.report("ERROR", op, "stride %d at slot %d is smaller than the input layout vertex",
			binding.stride, element.InputSlot)
		return nil, false
	}

	data := binding.buffer.data
	positions := make([]glm.Vec2, 0, vertexCount)
	for i := startVertex; i < startVertex+vertexCount; i++ {
		at := binding.offset + i*binding.stride + element.AlignedByteOffset
		end := at + uint32(element.Format.Size())
		if end > uint32(len(data)) {
			c.drv.report("ERROR", op, "vertex %d reads past the end of the vertex buffer (%d bytes)", i, len(data))
			return nil, false
		}
		values := core.BytesFloat32(data[at:end])
		positions = append(positions, glm.Vec2{values[0], values[1]})
	}
	return positions, true
}

// assemble groups positions into triangles, all wound the same way.
func assemble(topology core.PrimitiveTopology, positions []glm.Vec2) [][3]glm.Vec2 {
	var triangles [][3]glm.Vec2
	switch topology {
	case core.TopologyTriangleList:
		for i := 0; i+2 < len(positions); i += 3 {
			triangles = append(triangles, [3]glm.Vec2{positions[i], positions[i+1], positions[i+2]})
		}
	case core.TopologyTriangleStrip:
		for i := 0; i+2 < len(positions); i++ {
			if i%2 == 0 {
				triangles = append(triangles, [3]glm.Vec2{positions[i], positions[i+1], positions[i+2]})
			} else {
				triangles = append(triangles, [3]glm.Vec2{positions[i+1], positions[i], positions[i+2]})
			}
		}
	}
	return triangles
}
