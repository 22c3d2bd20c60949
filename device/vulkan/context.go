// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vulkan

import (
	"strings"

	vk "github.com/vulkan-go/vulkan"

	"github.com/koru3d/frame/core"
)

const vertexInputSlots = 16

type vertexBinding struct {
	buffer         *Buffer
	stride, offset uint32
}

// Context is the Vulkan immediate core.Context. State is collected
// on the CPU and turned into a pipeline when drawing.
type Context struct {
	object
	swap *SwapChain

	pipelineLayout vk.PipelineLayout
	pipelineCache  vk.PipelineCache
	pipelines      map[string]vk.Pipeline

	vertexBuffers [vertexInputSlots]vertexBinding
	layout        *InputLayout
	topology      core.PrimitiveTopology
	vs            *VertexShader
	ps            *PixelShader
	targets       []*RenderTargetView
	viewports     []core.Viewport
}

func newContext(dev *Device, swap *SwapChain) *Context {
	c := &Context{swap: swap, pipelines: make(map[string]vk.Pipeline)}
	c.object = object{dev: dev, name: "Context", destroy: c.free}

	// shaders have no resources bound, the layout stays empty
	plci := vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}
	var pipelineLayout vk.PipelineLayout
	if err := vkError("vk.CreatePipelineLayout", vk.CreatePipelineLayout(dev.handle, &plci, nil, &pipelineLayout)); err != nil {
		dev.report("ERROR", "CreateDeviceAndSwapChain", err.Error())
	}
	c.pipelineLayout = pipelineLayout

	pcci := vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}
	var pipelineCache vk.PipelineCache
	if err := vkError("vk.CreatePipelineCache", vk.CreatePipelineCache(dev.handle, &pcci, nil, &pipelineCache)); err != nil {
		dev.report("WARNING", "CreateDeviceAndSwapChain", err.Error())
	}
	c.pipelineCache = pipelineCache
	return c
}

func (c *Context) free() {
	dev := c.dev
	for key, pipeline := range c.pipelines {
		vk.DestroyPipeline(dev.handle, pipeline, nil)
		delete(c.pipelines, key)
	}
	if c.pipelineCache != nil {
		vk.DestroyPipelineCache(dev.handle, c.pipelineCache, nil)
	}
	if c.pipelineLayout != nil {
		vk.DestroyPipelineLayout(dev.handle, c.pipelineLayout, nil)
	}
}

// ClearRenderTargetView implements core.Context. The whole target is
// cleared.
func (c *Context) ClearRenderTargetView(rtv core.RenderTargetView, color [4]float32) {
	const op = "Context.ClearRenderTargetView"
	if !c.usable(op) || c.dev.lost {
		return
	}
	target, ok := rtv.(*RenderTargetView)
	if !ok || target == nil {
		c.dev.report("ERROR", op, "render target view was not created by this device")
		return
	}
	if !target.usable(op) || target.swap != c.swap {
		return
	}
	if err := c.swap.beginFrame(); err != nil {
		c.dev.report("ERROR", op, err.Error())
		return
	}

	attachments := []vk.ClearAttachment{{
		AspectMask:      vk.ImageAspectFlags(vk.ImageAspectColorBit),
		ColorAttachment: 0,
		ClearValue:      vk.NewClearValue(color[:]),
	}}
	rects := []vk.ClearRect{{
		Rect:       vk.Rect2D{Extent: c.swap.extent},
		LayerCount: 1,
	}}
	vk.CmdClearAttachments(c.swap.commandBuffer, 1, attachments, 1, rects)
}

// SetVertexBuffers implements core.Context.
func (c *Context) SetVertexBuffers(startSlot uint32, buffers []core.Buffer, strides, offsets []uint32) {
	const op = "Context.SetVertexBuffers"
	if len(strides) < len(buffers) || len(offsets) < len(buffers) {
		c.dev.report("ERROR", op, "every buffer needs a stride and an offset")
		return
	}
	for i, b := range buffers {
		slot := startSlot + uint32(i)
		if slot >= vertexInputSlots {
			c.dev.report("ERROR", op, "slot "+itoa(int32(slot))+" is out of range")
			return
		}
		binding := vertexBinding{stride: strides[i], offset: offsets[i]}
		if b != nil {
			buf, ok := b.(*Buffer)
			if !ok {
				c.dev.report("ERROR", op, "buffer "+itoa(int32(i))+" was not created by this device")
				continue
			}
			if buf.desc.BindFlags&core.BindVertexBuffer == 0 {
				c.dev.report("ERROR", op, "buffer "+itoa(int32(i))+" was not created with BindVertexBuffer")
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

// Draw implements core.Context. Incomplete state is reported to the
// validation layer and the draw is skipped.
func (c *Context) Draw(vertexCount, startVertex uint32) error {
	const op = "Context.Draw"
	if !c.usable(op) {
		return core.ResultInvalidCall
	}
	if c.dev.lost {
		return core.ResultDeviceRemoved
	}
	if !c.validate(op) {
		return nil
	}

	pipeline, err := c.pipeline()
	if err != nil {
		return err
	}
	if err := c.swap.beginFrame(); err != nil {
		return err
	}

	cmd := c.swap.commandBuffer
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, pipeline)
	vk.CmdSetViewport(cmd, 0, 1, []vk.Viewport{vkViewport(c.viewports[0])})
	vk.CmdSetScissor(cmd, 0, 1, []vk.Rect2D{{Extent: c.swap.extent}})
	for _, slot := range c.layout.slots {
		binding := c.vertexBuffers[slot]
		vk.CmdBindVertexBuffers(cmd, slot, 1,
			[]vk.Buffer{binding.buffer.buffer},
			[]vk.DeviceSize{vk.DeviceSize(binding.offset)})
	}
	vk.CmdDraw(cmd, vertexCount, 1, startVertex, 0)
	return nil
}

func (c *Context) validate(op string) bool {
	switch {
	case c.vs == nil:
		c.dev.report("ERROR", op, "no vertex shader is bound")
		return false
	case !c.vs.usable(op):
		return false
	case c.ps == nil:
		c.dev.report("ERROR", op, "no pixel shader is bound")
		return false
	case !c.ps.usable(op):
		return false
	case c.layout == nil:
		c.dev.report("ERROR", op, "no input layout is bound")
		return false
	case !c.layout.usable(op):
		return false
	case len(c.viewports) == 0:
		c.dev.report("ERROR", op, "no viewport is set")
		return false
	}
	if _, ok := vkTopology(c.topology); !ok {
		c.dev.report("ERROR", op, "primitive topology is not set")
		return false
	}
	if len(c.targets) == 0 {
		c.dev.report("WARNING", op, "no render target is bound, nothing is drawn")
		return false
	}
	for _, target := range c.targets {
		if !target.usable(op) {
			return false
		}
	}
	for _, slot := range c.layout.slots {
		binding := c.vertexBuffers[slot]
		if binding.buffer == nil {
			c.dev.report("ERROR", op, "no vertex buffer is bound at slot "+itoa(int32(slot)))
			return false
		}
		if !binding.buffer.usable(op) {
			return false
		}
	}
	return true
}

// pipelineKey identifies the state a pipeline is built from.
func (c *Context) pipelineKey() string {
	var key strings.Builder
	key.WriteString(c.vs.key)
	key.WriteByte(0)
	key.WriteString(c.ps.key)
	key.WriteByte(0)
	key.WriteString(c.layout.key)
	key.WriteString(itoa(int32(c.topology)))
	for _, slot := range c.layout.slots {
		key.WriteByte(';')
		key.WriteString(itoa(int32(c.vertexBuffers[slot].stride)))
	}
	return key.String()
}

// pipeline returns the cached pipeline for the bound state, creating
// it on first use.
func (c *Context) pipeline() (vk.Pipeline, error) {
	key := c.pipelineKey()
	if pipeline, ok := c.pipelines[key]; ok {
		return pipeline, nil
	}

	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: c.vs.module,
			PName:  "main\x00",
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: c.ps.module,
			PName:  "main\x00",
		},
	}

	bindings := make([]vk.VertexInputBindingDescription, 0, len(c.layout.slots))
	for _, slot := range c.layout.slots {
		bindings = append(bindings, vk.VertexInputBindingDescription{
			Binding:   slot,
			Stride:    c.vertexBuffers[slot].stride,
			InputRate: vk.VertexInputRateVertex,
		})
	}
	topology, _ := vkTopology(c.topology)

	gpci := []vk.GraphicsPipelineCreateInfo{{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: uint32(len(stages)),
		PStages:    stages,
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexBindingDescriptionCount:   uint32(len(bindings)),
			PVertexBindingDescriptions:      bindings,
			VertexAttributeDescriptionCount: uint32(len(c.layout.attributes)),
			PVertexAttributeDescriptions:    c.layout.attributes,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: topology,
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: vk.PolygonModeFill,
			CullMode:    vk.CullModeFlags(vk.CullModeBackBit),
			FrontFace:   vk.FrontFaceClockwise,
			LineWidth:   1.0,
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCount1Bit,
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			AttachmentCount: 1,
			PAttachments: []vk.PipelineColorBlendAttachmentState{{
				ColorWriteMask: 0xF,
				BlendEnable:    vk.False,
			}},
		},
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: 2,
			PDynamicStates: []vk.DynamicState{
				vk.DynamicStateScissor,
				vk.DynamicStateViewport,
			},
		},
		Layout:     c.pipelineLayout,
		RenderPass: c.swap.renderPass,
	}}

	pipelines := make([]vk.Pipeline, len(gpci))
	result := vk.CreateGraphicsPipelines(c.dev.handle, c.pipelineCache, uint32(len(gpci)), gpci, nil, pipelines)
	c.dev.checkLost(result)
	if err := vkError("vk.CreateGraphicsPipelines", result); err != nil {
		c.dev.report("ERROR", "Context.Draw", err.Error())
		return nil, err
	}
	c.pipelines[key] = pipelines[0]
	return pipelines[0], nil
}
