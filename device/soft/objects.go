// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package soft

import (
	"strings"
	"time"

	"github.com/koru3d/frame/core"
)

// object is the part every driver object shares: it counts as live
// until released and records its release with the driver.
type object struct {
	drv      *Driver
	name     string
	released bool
}

func (o *object) init(d *Driver, name string) {
	o.drv = d
	o.name = name
	d.live++
}

// Release implements core.Releaser.
func (o *object) Release() {
	if o.released {
		o.drv.report("ERROR", o.name+".Release", "object released twice")
		return
	}
	o.released = true
	o.drv.live--
	o.drv.releases = append(o.drv.releases, o.name)
}

// usable reports a use after release.
func (o *object) usable(op string) bool {
	if o.released {
		o.drv.report("ERROR", op, "%s used after release", o.name)
		return false
	}
	return true
}

// Device is a software core.Device.
type Device struct {
	object
}

// RemovedReason implements core.Device.
func (dev *Device) RemovedReason() error {
	if dev.drv.removed == core.ResultOK {
		return nil
	}
	return dev.drv.removed
}

// begin runs the checks every creation call shares.
func (dev *Device) begin(op string) error {
	if !dev.usable(op) {
		return core.ResultInvalidCall
	}
	if dev.drv.removed != core.ResultOK {
		return core.ResultDeviceRemoved
	}
	return dev.drv.inject(op, dev.drv.debug)
}

// CreateRenderTargetView implements core.Device.
func (dev *Device) CreateRenderTargetView(res core.Texture2D) (core.RenderTargetView, error) {
	const op = "Device.CreateRenderTargetView"
	if err := dev.begin(op); err != nil {
		return nil, err
	}
	tex, ok := res.(*Texture)
	if !ok || tex == nil {
		dev.drv.report("ERROR", op, "resource was not created by this device")
		return nil, core.ResultInvalidArg
	}
	if !tex.usable(op) {
		return nil, core.ResultInvalidArg
	}
	rtv := &RenderTargetView{surface: tex.surface}
	rtv.init(dev.drv, "RenderTargetView")
	return rtv, nil
}

// CreateBuffer implements core.Device.
func (dev *Device) CreateBuffer(desc core.BufferDesc, initial []byte) (core.Buffer, error) {
	const op = "Device.CreateBuffer"
	if err := dev.begin(op); err != nil {
		return nil, err
	}
	if desc.ByteWidth == 0 {
		dev.drv.report("ERROR", op, "ByteWidth must be greater than zero")
		return nil, core.ResultInvalidArg
	}
	if desc.Usage == core.UsageImmutable && len(initial) == 0 {
		dev.drv.report("ERROR", op, "immutable buffers need initial data")
		return nil, core.ResultInvalidArg
	}
	if len(initial) > 0 && uint32(len(initial)) < desc.ByteWidth {
		dev.drv.report("ERROR", op, "initial data holds %d bytes, ByteWidth is %d", len(initial), desc.ByteWidth)
		return nil, core.ResultInvalidArg
	}
	data := make([]byte, desc.ByteWidth)
	copy(data, initial)
	buf := &Buffer{desc: desc, data: data}
	buf.init(dev.drv, "Buffer")
	return buf, nil
}

// CreateVertexShader implements core.Device.
func (dev *Device) CreateVertexShader(bytecode []byte) (core.VertexShader, error) {
	const op = "Device.CreateVertexShader"
	if err := dev.begin(op); err != nil {
		return nil, err
	}
	if len(bytecode) == 0 {
		dev.drv.report("ERROR", op, "shader bytecode is empty")
		return nil, core.ResultInvalidArg
	}
	vs := &VertexShader{bytecode: append([]byte(nil), bytecode...)}
	vs.init(dev.drv, "VertexShader")
	return vs, nil
}

// CreatePixelShader implements core.Device.
func (dev *Device) CreatePixelShader(bytecode []byte) (core.PixelShader, error) {
	const op = "Device.CreatePixelShader"
	if err := dev.begin(op); err != nil {
		return nil, err
	}
	if len(bytecode) == 0 {
		dev.drv.report("ERROR", op, "shader bytecode is empty")
		return nil, core.ResultInvalidArg
	}
	ps := &PixelShader{bytecode: append([]byte(nil), bytecode...)}
	ps.init(dev.drv, "PixelShader")
	return ps, nil
}

// CreateInputLayout implements core.Device. The vertex stage only
// consumes a two or three component float "Position" element, so a
// layout without one is rejected like a signature mismatch would be.
func (dev *Device) CreateInputLayout(elements []core.InputElementDesc, bytecode []byte) (core.InputLayout, error) {
	const op = "Device.CreateInputLayout"
	if err := dev.begin(op); err != nil {
		return nil, err
	}
	if len(bytecode) == 0 {
		dev.drv.report("ERROR", op, "vertex shader bytecode is empty")
		return nil, core.ResultInvalidArg
	}
	position := -1
	for i, e := range elements {
		if e.Format.Size() == 0 {
			dev.drv.report("ERROR", op, "element %d (%s) has unknown format", i, e.SemanticName)
			return nil, core.ResultInvalidArg
		}
		if strings.EqualFold(e.SemanticName, "Position") && e.SemanticIndex == 0 {
			position = i
		}
	}
	if position < 0 {
		dev.drv.report("ERROR", op, "vertex shader input POSITION0 is not provided by the layout")
		return nil, core.ResultInvalidArg
	}
	if f := elements[position].Format; f != core.FormatR32G32Float && f != core.FormatR32G32B32Float {
		dev.drv.report("ERROR", op, "POSITION0 format %s is not a float vector", f)
		return nil, core.ResultInvalidArg
	}
	layout := &InputLayout{
		elements: append([]core.InputElementDesc(nil), elements...),
		position: position,
	}
	layout.init(dev.drv, "InputLayout")
	return layout, nil
}

// SwapChain is a software core.SwapChain with one back buffer and a
// front buffer standing in for the window.
type SwapChain struct {
	object

	desc        core.SwapChainDesc
	format      core.Format
	back, front *Surface
	vblank      *time.Ticker
	presented   int
}

// Buffer implements core.SwapChain.
func (s *SwapChain) Buffer(i int) (core.Texture2D, error) {
	const op = "SwapChain.Buffer"
	if !s.usable(op) {
		return nil, core.ResultInvalidCall
	}
	if err := s.drv.inject(op, s.drv.debug); err != nil {
		return nil, err
	}
	if i != 0 {
		s.drv.report("ERROR", op, "buffer %d does not exist, discard swap chains expose buffer 0 only", i)
		return nil, core.ResultInvalidArg
	}
	tex := &Texture{
		desc: core.Texture2DDesc{
			Width:  uint32(s.back.Width),
			Height: uint32(s.back.Height),
			Format: s.format,
		},
		surface: s.back,
	}
	tex.init(s.drv, "Texture2D")
	return tex, nil
}

// Present implements core.SwapChain. The back buffer is copied to the
// front buffer and then discarded.
func (s *SwapChain) Present(syncInterval uint32, flags core.PresentFlags) error {
	const op = "SwapChain.Present"
	if !s.usable(op) {
		return core.ResultInvalidCall
	}
	if err := s.drv.inject(op, s.drv.debug); err != nil {
		return err
	}
	if s.drv.removed != core.ResultOK {
		return core.ResultDeviceRemoved
	}
	if syncInterval > 4 {
		s.drv.report("ERROR", op, "SyncInterval %d is out of range 0..4", syncInterval)
		return core.ResultInvalidCall
	}
	if s.vblank != nil {
		for i := uint32(0); i < syncInterval; i++ {
			<-s.vblank.C
		}
	}
	copy(s.front.Pix, s.back.Pix)
	if s.desc.SwapEffect == core.SwapEffectDiscard {
		s.back.Fill(Color{})
	}
	s.presented++
	return nil
}

// Release implements core.Releaser.
func (s *SwapChain) Release() {
	if s.vblank != nil && !s.released {
		s.vblank.Stop()
	}
	s.object.Release()
}

// BackBuffer returns the surface being rendered to.
func (s *SwapChain) BackBuffer() *Surface {
	return s.back
}

// FrontBuffer returns the surface last presented.
func (s *SwapChain) FrontBuffer() *Surface {
	return s.front
}

// Presented returns the number of presented frames.
func (s *SwapChain) Presented() int {
	return s.presented
}

// Texture is a software core.Texture2D.
type Texture struct {
	object
	desc    core.Texture2DDesc
	surface *Surface
}

// Desc implements core.Texture2D.
func (t *Texture) Desc() core.Texture2DDesc {
	return t.desc
}

// RenderTargetView is a software core.RenderTargetView.
type RenderTargetView struct {
	object
	surface *Surface
}

// Buffer is a software core.Buffer.
type Buffer struct {
	object
	desc core.BufferDesc
	data []byte
}

// Desc implements core.Buffer.
func (b *Buffer) Desc() core.BufferDesc {
	return b.desc
}

// VertexShader is a software core.VertexShader.
type VertexShader struct {
	object
	bytecode []byte
}

// PixelShader is a software core.PixelShader.
type PixelShader struct {
	object
	bytecode []byte
}

// InputLayout is a software core.InputLayout.
type InputLayout struct {
	object
	elements []core.InputElementDesc
	position int
}
