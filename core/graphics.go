// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	log "github.com/sirupsen/logrus"
)

// Option configures Graphics during creation.
type Option func(*options)

type options struct {
	logger  log.Ext1FieldLogger
	queue   InfoQueue
	shaders ShaderSet
}

// WithLogger sets the logger Graphics reports lifecycle events to.
func WithLogger(l log.Ext1FieldLogger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithInfoQueue replaces the driver's validation message queue.
// Tests use it to substitute a queue they control.
func WithInfoQueue(q InfoQueue) Option {
	return func(o *options) {
		o.queue = q
	}
}

// WithShaders sets the compiled shaders used by DrawTestTriangle.
func WithShaders(s ShaderSet) Option {
	return func(o *options) {
		o.shaders = s
	}
}

// resources owns the driver handles of a Graphics.
type resources struct {
	device  Device
	swap    SwapChain
	context Context
	target  RenderTargetView
}

// release frees the handles in reverse dependency order. Missing
// handles are skipped and released ones are cleared, so calling it
// again does nothing.
func (r *resources) release() {
	if r.target != nil {
		r.target.Release()
		r.target = nil
	}
	if r.context != nil {
		r.context.Release()
		r.context = nil
	}
	if r.swap != nil {
		r.swap.Release()
		r.swap = nil
	}
	if r.device != nil {
		r.device.Release()
		r.device = nil
	}
}

// Graphics owns a device, its swap chain, the immediate context and
// the render target view of the back buffer, and runs frames on them.
// It is not safe for concurrent use.
type Graphics struct {
	res     resources
	info    *InfoCollector
	cfg     RendererConfiguration
	shaders ShaderSet
	log     log.Ext1FieldLogger
}

// New creates the device, swap chain and context presenting into
// window, and a render target view over the back buffer. Either all
// of them are created or an error of KindDeviceCreation is returned
// and nothing is left allocated.
func New(drv Driver, window WindowHandle, cfg RendererConfiguration, opts ...Option) (*Graphics, error) {
	o := options{
		logger: log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	debug := cfg.Debug && DiagnosticsCompiled
	var flags CreateFlags
	if debug {
		flags |= CreateDebug
		if o.queue == nil {
			o.queue = drv.InfoQueue()
		}
	} else {
		o.queue = nil
	}

	g := &Graphics{
		info:    NewInfoCollector(o.queue),
		cfg:     cfg,
		shaders: o.shaders,
		log:     o.logger,
	}

	desc := DefaultSwapChainDesc(window)

	g.info.Mark()
	device, swap, context, err := drv.CreateDeviceAndSwapChain(desc, flags)
	g.res = resources{
		device:  device,
		swap:    swap,
		context: context,
	}
	if err == nil && (device == nil || swap == nil || context == nil) {
		err = ResultFail
	}
	if err != nil {
		g.res.release()
		return nil, g.failure(KindDeviceCreation, "Driver.CreateDeviceAndSwapChain", err)
	}

	g.info.Mark()
	backBuffer, err := swap.Buffer(0)
	if err != nil {
		g.res.release()
		return nil, g.failure(KindDeviceCreation, "SwapChain.Buffer", err)
	}

	g.info.Mark()
	target, err := device.CreateRenderTargetView(backBuffer)
	backBuffer.Release()
	if err != nil {
		g.res.release()
		return nil, g.failure(KindDeviceCreation, "Device.CreateRenderTargetView", err)
	}
	g.res.target = target

	g.log.WithFields(log.Fields{
		"window": window,
		"debug":  debug,
	}).Debug("graphics device created")
	return g, nil
}

// failure builds an Error for a failed driver call, attaching the
// messages collected since the last mark. Its origin is the caller.
func (g *Graphics) failure(kind Kind, op string, err error) *Error {
	e := newError(kind, op, ResultOf(err), g.info.Drain(), 2)
	g.log.WithFields(log.Fields{
		"op":   op,
		"code": e.Code.Name(),
		"file": e.File,
		"line": e.Line,
	}).Error(kind.String())
	return e
}

// Info returns the collector that slices validation messages.
func (g *Graphics) Info() *InfoCollector {
	return g.info
}

// ClearBuffer fills the render target with the given color at
// full opacity.
func (g *Graphics) ClearBuffer(red, green, blue float32) {
	g.res.context.ClearRenderTargetView(g.res.target, [4]float32{red, green, blue, 1})
}

// EndFrame presents the back buffer, synchronized to the vertical
// blank. A removed device is reported with KindDeviceRemoved and
// cannot be recovered from; Graphics has to be destroyed and created
// again.
func (g *Graphics) EndFrame() error {
	g.info.Mark()
	if err := g.res.swap.Present(1, 0); err != nil {
		if ResultOf(err) == ResultDeviceRemoved {
			reason := ResultOf(g.res.device.RemovedReason())
			if !reason.Failed() {
				reason = ResultDeviceRemoved
			}
			return g.failure(KindDeviceRemoved, "SwapChain.Present", reason)
		}
		return g.failure(KindHResult, "SwapChain.Present", err)
	}
	g.log.Trace("frame presented")
	return nil
}

// Destroy releases everything Graphics holds. It is safe to call on
// a nil Graphics and more than once.
func (g *Graphics) Destroy() {
	if g == nil {
		return
	}
	g.res.release()
}
