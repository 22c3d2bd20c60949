// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vulkan

import (
	"encoding/binary"
	"strings"

	vk "github.com/vulkan-go/vulkan"

	"github.com/koru3d/frame/core"
)

const spirvMagic = 0x07230203

// object is embedded by every driver object.
type object struct {
	dev      *Device
	name     string
	released bool
	destroy  func()
}

// Release implements core.Releaser. Destruction waits for the frame
// being recorded, which may still use the object.
func (o *object) Release() {
	if o.released {
		o.dev.report("ERROR", o.name+".Release", "object released twice")
		return
	}
	o.released = true
	if o.destroy != nil {
		o.dev.destroyLater(o.destroy)
	}
}

func (o *object) usable(op string) bool {
	if o.released {
		o.dev.report("ERROR", op, o.name+" used after release")
		return false
	}
	return true
}

// Device is a Vulkan core.Device. It owns the instance, the surface
// and the command pool, which go away with it.
type Device struct {
	drv        *Driver
	instance   *instance
	surface    vk.Surface
	physical   vk.PhysicalDevice
	handle     vk.Device
	queue      vk.Queue
	queueIndex uint32
	allocator  *MemoryAllocator

	commandPool vk.CommandPool

	lost      bool
	recording bool
	deferred  []func()
	released  bool
}

func (dev *Device) report(severity, op, msg string) {
	dev.drv.queue.Push("VULKAN " + severity + ": " + op + ": " + msg)
}

// destroyLater runs f now, or after the recording frame completed.
func (dev *Device) destroyLater(f func()) {
	if dev.recording {
		dev.deferred = append(dev.deferred, f)
		return
	}
	f()
}

// collect runs the destructions deferred during a frame.
func (dev *Device) collect() {
	deferred := dev.deferred
	dev.deferred = nil
	for _, f := range deferred {
		f()
	}
}

func (dev *Device) createCommandPool() error {
	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: dev.queueIndex,
	}
	var commandPool vk.CommandPool
	if err := vkError("vk.CreateCommandPool", vk.CreateCommandPool(dev.handle, &cpci, nil, &commandPool)); err != nil {
		return err
	}
	dev.commandPool = commandPool
	return nil
}

// RemovedReason implements core.Device.
func (dev *Device) RemovedReason() error {
	if !dev.lost {
		return nil
	}
	return core.ResultDriverInternalError
}

// checkLost records a lost device.
func (dev *Device) checkLost(r vk.Result) {
	if r == vk.ErrorDeviceLost {
		dev.lost = true
	}
}

func (dev *Device) begin(op string) error {
	if dev.released {
		dev.report("ERROR", op, "Device used after release")
		return core.ResultInvalidCall
	}
	if dev.lost {
		return core.ResultDeviceRemoved
	}
	return nil
}

// Release implements core.Releaser.
func (dev *Device) Release() {
	if dev.released {
		dev.report("ERROR", "Device.Release", "object released twice")
		return
	}
	dev.released = true
	vk.DeviceWaitIdle(dev.handle)
	dev.recording = false
	dev.collect()
	vk.DestroyCommandPool(dev.handle, dev.commandPool, nil)
	vk.DestroyDevice(dev.handle, nil)
	vk.DestroySurface(dev.instance.handle, dev.surface, nil)
	dev.instance.destroy()
}

// destroy tears down a device that never left CreateDeviceAndSwapChain.
func (dev *Device) destroy() {
	vk.DestroyCommandPool(dev.handle, dev.commandPool, nil)
	vk.DestroyDevice(dev.handle, nil)
	vk.DestroySurface(dev.instance.handle, dev.surface, nil)
	dev.instance.destroy()
}

// CreateRenderTargetView implements core.Device. Only swap chain
// buffers can be rendered to.
func (dev *Device) CreateRenderTargetView(res core.Texture2D) (core.RenderTargetView, error) {
	const op = "Device.CreateRenderTargetView"
	if err := dev.begin(op); err != nil {
		return nil, err
	}
	tex, ok := res.(*Texture)
	if !ok || tex == nil || !tex.usable(op) {
		dev.report("ERROR", op, "resource is not a swap chain buffer of this device")
		return nil, core.ResultInvalidArg
	}
	rtv := &RenderTargetView{swap: tex.swap}
	rtv.object = object{dev: dev, name: "RenderTargetView"}
	return rtv, nil
}

// CreateBuffer implements core.Device. Buffers live in host visible
// memory.
func (dev *Device) CreateBuffer(desc core.BufferDesc, initial []byte) (core.Buffer, error) {
	const op = "Device.CreateBuffer"
	if err := dev.begin(op); err != nil {
		return nil, err
	}
	if desc.ByteWidth == 0 {
		dev.report("ERROR", op, "ByteWidth must be greater than zero")
		return nil, core.ResultInvalidArg
	}
	if desc.Usage == core.UsageImmutable && len(initial) == 0 {
		dev.report("ERROR", op, "immutable buffers need initial data")
		return nil, core.ResultInvalidArg
	}

	var usage vk.BufferUsageFlagBits
	if desc.BindFlags&core.BindVertexBuffer != 0 {
		usage |= vk.BufferUsageVertexBufferBit
	}
	if desc.BindFlags&core.BindIndexBuffer != 0 {
		usage |= vk.BufferUsageIndexBufferBit
	}
	if desc.BindFlags&core.BindConstantBuffer != 0 {
		usage |= vk.BufferUsageUniformBufferBit
	}
	if usage == 0 {
		usage = vk.BufferUsageTransferDstBit
	}

	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(desc.ByteWidth),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if err := vkError("vk.CreateBuffer", vk.CreateBuffer(dev.handle, &createInfo, nil, &buffer)); err != nil {
		return nil, err
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(dev.handle, buffer, &req)
	req.Deref()

	memory, err := dev.allocator.Malloc(req, vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		vk.DestroyBuffer(dev.handle, buffer, nil)
		return nil, err
	}
	if err := vkError("vk.BindBufferMemory", vk.BindBufferMemory(dev.handle, buffer, memory.memory, vk.DeviceSize(memory.Offset()))); err != nil {
		vk.DestroyBuffer(dev.handle, buffer, nil)
		memory.Release()
		return nil, err
	}
	if len(initial) > 0 {
		if err := memory.Write(initial[:min(len(initial), int(desc.ByteWidth))]); err != nil {
			vk.DestroyBuffer(dev.handle, buffer, nil)
			memory.Release()
			return nil, err
		}
	}

	b := &Buffer{desc: desc, buffer: buffer, memory: memory}
	b.object = object{dev: dev, name: "Buffer", destroy: func() {
		vk.DestroyBuffer(dev.handle, buffer, nil)
		b.memory.Release()
	}}
	return b, nil
}

func (dev *Device) createShaderModule(op string, bytecode []byte) (vk.ShaderModule, error) {
	if err := dev.begin(op); err != nil {
		return nil, err
	}
	if len(bytecode) < 4 || len(bytecode)%4 != 0 || binary.LittleEndian.Uint32(bytecode) != spirvMagic {
		dev.report("ERROR", op, "bytecode is not SPIR-V")
		return nil, core.ResultInvalidArg
	}
	smci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(bytecode)),
		PCode:    core.SliceUint32(bytecode),
	}
	var module vk.ShaderModule
	if err := vkError("vk.CreateShaderModule", vk.CreateShaderModule(dev.handle, &smci, nil, &module)); err != nil {
		return nil, err
	}
	return module, nil
}

// CreateVertexShader implements core.Device.
func (dev *Device) CreateVertexShader(bytecode []byte) (core.VertexShader, error) {
	module, err := dev.createShaderModule("Device.CreateVertexShader", bytecode)
	if err != nil {
		return nil, err
	}
	vs := &VertexShader{shader{module: module, key: string(bytecode)}}
	vs.object = object{dev: dev, name: "VertexShader", destroy: vs.free}
	return vs, nil
}

// CreatePixelShader implements core.Device.
func (dev *Device) CreatePixelShader(bytecode []byte) (core.PixelShader, error) {
	module, err := dev.createShaderModule("Device.CreatePixelShader", bytecode)
	if err != nil {
		return nil, err
	}
	ps := &PixelShader{shader{module: module, key: string(bytecode)}}
	ps.object = object{dev: dev, name: "PixelShader", destroy: ps.free}
	return ps, nil
}

// CreateInputLayout implements core.Device. Elements are assigned
// shader locations in order.
func (dev *Device) CreateInputLayout(elements []core.InputElementDesc, bytecode []byte) (core.InputLayout, error) {
	const op = "Device.CreateInputLayout"
	if err := dev.begin(op); err != nil {
		return nil, err
	}
	if len(bytecode) == 0 {
		dev.report("ERROR", op, "vertex shader bytecode is empty")
		return nil, core.ResultInvalidArg
	}
	layout := &InputLayout{}
	var key strings.Builder
	for i, e := range elements {
		format, ok := vkFormat(e.Format)
		if !ok || e.Format.Size() == 0 {
			dev.report("ERROR", op, "element "+e.SemanticName+" has no vertex format")
			return nil, core.ResultInvalidArg
		}
		layout.attributes = append(layout.attributes, vk.VertexInputAttributeDescription{
			Location: uint32(i),
			Binding:  e.InputSlot,
			Format:   format,
			Offset:   e.AlignedByteOffset,
		})
		layout.slots = appendSlot(layout.slots, e.InputSlot)
		key.WriteString(e.SemanticName)
		key.WriteString(itoa(int32(e.Format)))
		key.WriteString(itoa(int32(e.InputSlot)))
		key.WriteString(itoa(int32(e.AlignedByteOffset)))
		key.WriteByte(';')
	}
	layout.key = key.String()
	layout.object = object{dev: dev, name: "InputLayout"}
	return layout, nil
}

func appendSlot(slots []uint32, slot uint32) []uint32 {
	for _, s := range slots {
		if s == slot {
			return slots
		}
	}
	return append(slots, slot)
}

// Texture is a swap chain buffer. It stands for whichever image is
// acquired when rendering.
type Texture struct {
	object
	desc core.Texture2DDesc
	swap *SwapChain
}

// Desc implements core.Texture2D.
func (t *Texture) Desc() core.Texture2DDesc {
	return t.desc
}

// RenderTargetView is a Vulkan core.RenderTargetView.
type RenderTargetView struct {
	object
	swap *SwapChain
}

// Buffer is a Vulkan core.Buffer.
type Buffer struct {
	object
	desc   core.BufferDesc
	buffer vk.Buffer
	memory Memory
}

// Desc implements core.Buffer.
func (b *Buffer) Desc() core.BufferDesc {
	return b.desc
}

type shader struct {
	object
	module vk.ShaderModule
	// key identifies the bytecode in the pipeline cache.
	key string
}

func (s *shader) free() {
	vk.DestroyShaderModule(s.dev.handle, s.module, nil)
}

// VertexShader is a Vulkan core.VertexShader.
type VertexShader struct {
	shader
}

// PixelShader is a Vulkan core.PixelShader.
type PixelShader struct {
	shader
}

// InputLayout is a Vulkan core.InputLayout.
type InputLayout struct {
	object
	attributes []vk.VertexInputAttributeDescription
	slots      []uint32
	key        string
}
