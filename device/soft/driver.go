// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package soft implements a software graphics driver. Render targets
// live in memory as float colors, so tests can read back exactly what
// was drawn. It has a validation layer, fault injection and records
// every release, which makes it the reference driver for tests.
//
// Shader bytecode is accepted but never executed: the vertex stage
// passes positions through and the pixel stage writes opaque white.
package soft

import (
	"fmt"
	"image"
	"time"

	"github.com/koru3d/frame/core"
	"github.com/koru3d/frame/device"
)

// Option configures a Driver.
type Option func(*Driver)

// WithWindow registers a window the driver can present into.
func WithWindow(window core.WindowHandle, width, height int) Option {
	return func(d *Driver) {
		d.windows[window] = image.Pt(width, height)
	}
}

// WithRefreshRate makes Present wait for a simulated vertical blank
// at hz per second. Zero disables pacing.
func WithRefreshRate(hz int) Option {
	return func(d *Driver) {
		if hz > 0 {
			d.refresh = time.Second / time.Duration(hz)
		}
	}
}

type fault struct {
	err      error
	messages []string
}

// New creates a software driver.
func New(opts ...Option) *Driver {
	d := &Driver{
		queue:   core.NewMessageQueue(),
		windows: make(map[core.WindowHandle]image.Point),
		faults:  make(map[string][]fault),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Driver is a software core.Driver. Like the hardware drivers it is
// meant to be used from one goroutine.
type Driver struct {
	queue   *core.MessageQueue
	windows map[core.WindowHandle]image.Point
	refresh time.Duration

	debug   bool
	removed core.Result
	faults  map[string][]fault

	releases []string
	live     int

	swap *SwapChain
}

// InfoQueue implements core.Driver.
func (d *Driver) InfoQueue() core.InfoQueue {
	return d.queue
}

// Queue returns the validation message queue for pushing to directly.
func (d *Driver) Queue() *core.MessageQueue {
	return d.queue
}

// PhysicalDevices implements device.Enumerator.
func (d *Driver) PhysicalDevices() []device.PhysicalDeviceInfo {
	return []device.PhysicalDeviceInfo{{
		ID:            0,
		VendorID:      0x1414,
		DriverVersion: 1,
		Name:          "Koru Software Rasterizer",
		Layers:        []string{"validation"},
	}}
}

// FailNext makes the next call to op fail with err after pushing
// messages to the validation queue. Ops are named like
// "SwapChain.Present" or "Device.CreateBuffer"; device creation is
// "CreateDeviceAndSwapChain". Faults for the same op queue up.
func (d *Driver) FailNext(op string, err error, messages ...string) {
	d.faults[op] = append(d.faults[op], fault{err: err, messages: messages})
}

// RemoveDevice puts the device into the removed state. Present then
// fails with core.ResultDeviceRemoved and RemovedReason returns reason.
func (d *Driver) RemoveDevice(reason core.Result) {
	d.removed = reason
}

// Releases returns the names of released objects in release order.
func (d *Driver) Releases() []string {
	return append([]string(nil), d.releases...)
}

// Live returns the number of objects created and not yet released.
func (d *Driver) Live() int {
	return d.live
}

// SwapChain returns the most recently created swap chain, for
// reading back what was rendered.
func (d *Driver) SwapChain() *SwapChain {
	return d.swap
}

// inject returns the pending fault for op, if any.
func (d *Driver) inject(op string, debug bool) error {
	pending := d.faults[op]
	if len(pending) == 0 {
		return nil
	}
	f := pending[0]
	d.faults[op] = pending[1:]
	if debug {
		for _, msg := range f.messages {
			d.queue.Push(msg)
		}
	}
	return f.err
}

// report pushes a validation message when the validation layer is on.
func (d *Driver) report(severity, op, format string, args ...interface{}) {
	if !d.debug {
		return
	}
	d.queue.Pushf("SOFT %s: %s: %s", severity, op, fmt.Sprintf(format, args...))
}

// CreateDeviceAndSwapChain implements core.Driver.
func (d *Driver) CreateDeviceAndSwapChain(desc core.SwapChainDesc, flags core.CreateFlags) (core.Device, core.SwapChain, core.Context, error) {
	const op = "CreateDeviceAndSwapChain"
	debug := flags&core.CreateDebug != 0
	if err := d.inject(op, debug); err != nil {
		return nil, nil, nil, err
	}
	d.debug = debug
	d.removed = core.ResultOK

	if desc.OutputWindow == 0 {
		d.report("ERROR", op, "OutputWindow is null")
		return nil, nil, nil, core.ResultInvalidCall
	}

	size := image.Pt(int(desc.BufferDesc.Width), int(desc.BufferDesc.Height))
	if size.X == 0 || size.Y == 0 {
		window, ok := d.windows[desc.OutputWindow]
		if !ok {
			d.report("ERROR", op, "OutputWindow %#x is not a window", uintptr(desc.OutputWindow))
			return nil, nil, nil, core.ResultInvalidCall
		}
		if size.X == 0 {
			size.X = window.X
		}
		if size.Y == 0 {
			size.Y = window.Y
		}
	}

	switch {
	case desc.BufferDesc.Format != core.FormatB8G8R8A8Unorm && desc.BufferDesc.Format != core.FormatR8G8B8A8Unorm:
		d.report("ERROR", op, "format %s cannot be displayed", desc.BufferDesc.Format)
		return nil, nil, nil, core.ResultInvalidArg
	case desc.SampleDesc.Count != 1 || desc.SampleDesc.Quality != 0:
		d.report("ERROR", op, "multisampling is not supported (count %d, quality %d)",
			desc.SampleDesc.Count, desc.SampleDesc.Quality)
		return nil, nil, nil, core.ResultUnsupported
	case desc.BufferCount < 1:
		d.report("ERROR", op, "BufferCount must be at least 1")
		return nil, nil, nil, core.ResultInvalidCall
	case desc.BufferUsage&core.UsageRenderTargetOutput == 0:
		d.report("ERROR", op, "swap chain buffers must be render target output")
		return nil, nil, nil, core.ResultInvalidArg
	case !desc.Windowed:
		d.report("ERROR", op, "fullscreen swap chains are not supported")
		return nil, nil, nil, core.ResultUnsupported
	}

	dev := &Device{}
	dev.init(d, "Device")

	swap := &SwapChain{
		desc:   desc,
		format: desc.BufferDesc.Format,
		back:   NewSurface(size.X, size.Y),
		front:  NewSurface(size.X, size.Y),
	}
	swap.init(d, "SwapChain")
	if d.refresh > 0 {
		swap.vblank = time.NewTicker(d.refresh)
	}

	ctx := &Context{}
	ctx.init(d, "Context")

	d.swap = swap
	return dev, swap, ctx, nil
}
