// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/koru3d/frame/core"
	"github.com/koru3d/frame/device/soft"
)

const window core.WindowHandle = 0x2a

var testShaders = core.ShaderSet{
	Vertex: []byte{0x03, 0x02, 0x23, 0x07},
	Pixel:  []byte{0x03, 0x02, 0x23, 0x07},
}

func testConfig(width, height uint32) core.RendererConfiguration {
	return core.RendererConfiguration{
		ScreenWidth:  width,
		ScreenHeight: height,
		Debug:        true,
		Driver:       "soft",
	}
}

func newGraphics(c *qt.C, opts ...core.Option) (*core.Graphics, *soft.Driver, *test.Hook) {
	drv := soft.New(soft.WithWindow(window, 64, 64))
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.TraceLevel)
	opts = append([]core.Option{core.WithLogger(logger), core.WithShaders(testShaders)}, opts...)
	g, err := core.New(drv, window, testConfig(64, 64), opts...)
	c.Assert(err, qt.IsNil)
	c.Cleanup(g.Destroy)
	return g, drv, hook
}

func asError(c *qt.C, err error) *core.Error {
	c.Assert(err, qt.Not(qt.IsNil))
	e, ok := err.(*core.Error)
	c.Assert(ok, qt.IsTrue, qt.Commentf("%T is not *core.Error", err))
	return e
}

func TestNew(t *testing.T) {
	c := qt.New(t)
	_, drv, hook := newGraphics(c)
	// the back buffer texture is released once the view exists
	c.Assert(drv.Releases(), qt.DeepEquals, []string{"Texture2D"})
	c.Assert(drv.Live(), qt.Equals, 4)
	c.Assert(hook.LastEntry().Message, qt.Equals, "graphics device created")
}

func TestNewFailsCreatingDevice(t *testing.T) {
	c := qt.New(t)
	if !core.DiagnosticsCompiled {
		c.Skip("diagnostics are compiled out")
	}
	drv := soft.New(soft.WithWindow(window, 64, 64))
	drv.FailNext("CreateDeviceAndSwapChain", core.ResultUnsupported, "no compatible adapter")
	logger, hook := test.NewNullLogger()

	g, err := core.New(drv, window, testConfig(64, 64), core.WithLogger(logger))
	c.Assert(g, qt.IsNil)
	e := asError(c, err)
	c.Assert(e.Kind, qt.Equals, core.KindDeviceCreation)
	c.Assert(e.Code, qt.Equals, core.ResultUnsupported)
	c.Assert(e.Op, qt.Equals, "Driver.CreateDeviceAndSwapChain")
	c.Assert(e.Info, qt.DeepEquals, []string{"no compatible adapter"})
	c.Assert(filepath.Base(e.File), qt.Equals, "graphics.go")
	c.Assert(e.Line > 0, qt.IsTrue)
	c.Assert(drv.Live(), qt.Equals, 0)

	c.Assert(hook.LastEntry().Level, qt.Equals, log.ErrorLevel)
	c.Assert(hook.LastEntry().Message, qt.Equals, "Graphics Device Creation Failure")
}

func TestNewFailsCreatingTarget(t *testing.T) {
	c := qt.New(t)
	drv := soft.New(soft.WithWindow(window, 64, 64))
	drv.FailNext("Device.CreateRenderTargetView", core.ResultOutOfMemory)
	logger, _ := test.NewNullLogger()

	_, err := core.New(drv, window, testConfig(64, 64), core.WithLogger(logger))
	e := asError(c, err)
	c.Assert(e.Kind, qt.Equals, core.KindDeviceCreation)
	c.Assert(e.Code, qt.Equals, core.ResultOutOfMemory)
	c.Assert(e.Op, qt.Equals, "Device.CreateRenderTargetView")
	c.Assert(drv.Live(), qt.Equals, 0)
	c.Assert(drv.Releases(), qt.DeepEquals, []string{"Texture2D", "Context", "SwapChain", "Device"})
}

func TestNewRejectsNullWindow(t *testing.T) {
	c := qt.New(t)
	logger, _ := test.NewNullLogger()
	drv := soft.New()
	_, err := core.New(drv, 0, testConfig(64, 64), core.WithLogger(logger))
	e := asError(c, err)
	c.Assert(e.Code, qt.Equals, core.ResultInvalidCall)
	if core.DiagnosticsCompiled {
		c.Assert(e.Info, qt.DeepEquals, []string{"SOFT ERROR: CreateDeviceAndSwapChain: OutputWindow is null"})
	}
}

func TestDebugOffCollectsNothing(t *testing.T) {
	c := qt.New(t)
	drv := soft.New(soft.WithWindow(window, 64, 64))
	drv.FailNext("SwapChain.Present", core.ResultWasStillDrawing, "busy")
	logger, _ := test.NewNullLogger()
	cfg := testConfig(64, 64)
	cfg.Debug = false

	g, err := core.New(drv, window, cfg, core.WithLogger(logger))
	c.Assert(err, qt.IsNil)
	defer g.Destroy()
	c.Assert(g.Info().Enabled(), qt.IsFalse)

	e := asError(c, g.EndFrame())
	c.Assert(e.Kind, qt.Equals, core.KindHResult)
	c.Assert(e.Code, qt.Equals, core.ResultWasStillDrawing)
	c.Assert(e.Info, qt.HasLen, 0)
}

func TestClearBuffer(t *testing.T) {
	c := qt.New(t)
	g, drv, _ := newGraphics(c)

	g.ClearBuffer(0.2, 0.3, 0.4)
	back := drv.SwapChain().BackBuffer()
	for _, p := range back.Pix {
		c.Assert(p, qt.Equals, soft.Color{R: 0.2, G: 0.3, B: 0.4, A: 1})
	}
}

func TestEndFrame(t *testing.T) {
	c := qt.New(t)
	g, drv, _ := newGraphics(c)

	g.ClearBuffer(1, 0, 0)
	c.Assert(g.EndFrame(), qt.IsNil)
	c.Assert(g.EndFrame(), qt.IsNil)
	c.Assert(drv.SwapChain().Presented(), qt.Equals, 2)
}

func TestEndFrameDeviceRemoved(t *testing.T) {
	c := qt.New(t)
	g, drv, hook := newGraphics(c)

	drv.RemoveDevice(core.ResultDeviceHung)
	err := g.EndFrame()
	c.Assert(core.IsDeviceRemoved(err), qt.IsTrue)
	e := asError(c, err)
	c.Assert(e.Code, qt.Equals, core.ResultDeviceHung)
	c.Assert(e.Op, qt.Equals, "SwapChain.Present")
	c.Assert(hook.LastEntry().Message, qt.Equals, "Graphics Device Removed Failure")

	// recovery is destroying and creating again
	g.Destroy()
	c.Assert(drv.Live(), qt.Equals, 0)
	g2, err := core.New(drv, window, testConfig(64, 64), core.WithShaders(testShaders))
	c.Assert(err, qt.IsNil)
	defer g2.Destroy()
	c.Assert(g2.EndFrame(), qt.IsNil)
}

func TestDrawAfterDeviceRemoved(t *testing.T) {
	c := qt.New(t)
	g, drv, _ := newGraphics(c)

	drv.RemoveDevice(core.ResultDeviceHung)
	g.ClearBuffer(0.2, 0.3, 0.4)
	err := g.DrawTestTriangle()
	e := asError(c, err)
	c.Assert(e.Kind, qt.Equals, core.KindHResult)
	c.Assert(e.Code, qt.Equals, core.ResultDeviceRemoved)
	c.Assert(core.IsDeviceRemoved(err), qt.IsFalse)
	c.Assert(core.DeviceLost(err), qt.IsTrue)

	err = g.EndFrame()
	c.Assert(core.IsDeviceRemoved(err), qt.IsTrue)
	c.Assert(core.DeviceLost(err), qt.IsTrue)
}

func TestEndFrameLogsAtTrace(t *testing.T) {
	c := qt.New(t)
	g, _, hook := newGraphics(c)

	c.Assert(g.EndFrame(), qt.IsNil)
	entry := hook.LastEntry()
	c.Assert(entry.Message, qt.Equals, "frame presented")
	c.Assert(entry.Level, qt.Equals, log.TraceLevel)
}

func TestEndFramePresentFailure(t *testing.T) {
	c := qt.New(t)
	if !core.DiagnosticsCompiled {
		c.Skip("diagnostics are compiled out")
	}
	g, drv, _ := newGraphics(c)
	drv.FailNext("SwapChain.Present", core.ResultInvalidCall, "swap chain is occluded")

	e := asError(c, g.EndFrame())
	c.Assert(e.Kind, qt.Equals, core.KindHResult)
	c.Assert(e.Code, qt.Equals, core.ResultInvalidCall)
	c.Assert(e.Info, qt.DeepEquals, []string{"swap chain is occluded"})
}

func TestDestroy(t *testing.T) {
	c := qt.New(t)
	drv := soft.New(soft.WithWindow(window, 64, 64))
	logger, _ := test.NewNullLogger()
	g, err := core.New(drv, window, testConfig(64, 64), core.WithLogger(logger))
	c.Assert(err, qt.IsNil)

	g.Destroy()
	g.Destroy()
	c.Assert(drv.Live(), qt.Equals, 0)
	c.Assert(drv.Releases(), qt.DeepEquals, []string{
		"Texture2D", "RenderTargetView", "Context", "SwapChain", "Device",
	})

	var none *core.Graphics
	none.Destroy()
}

func TestDrawTestTriangle(t *testing.T) {
	c := qt.New(t)
	g, drv, _ := newGraphics(c)

	g.ClearBuffer(0.2, 0.3, 0.4)
	c.Assert(g.DrawTestTriangle(), qt.IsNil)
	c.Assert(g.EndFrame(), qt.IsNil)

	front := drv.SwapChain().FrontBuffer()
	c.Assert(front.At(32, 32), qt.Equals, soft.Color{R: 1, G: 1, B: 1, A: 1})
	c.Assert(front.At(0, 0), qt.Equals, soft.Color{R: 0.2, G: 0.3, B: 0.4, A: 1})
	c.Assert(front.At(63, 0), qt.Equals, soft.Color{R: 0.2, G: 0.3, B: 0.4, A: 1})

	// per draw objects are all released again
	c.Assert(drv.Live(), qt.Equals, 4)
	c.Assert(drv.InfoQueue().NumStoredMessages(), qt.Equals, uint64(0))
}

func TestDrawTestTriangleEveryFrame(t *testing.T) {
	c := qt.New(t)
	g, drv, _ := newGraphics(c)
	for i := 0; i < 3; i++ {
		g.ClearBuffer(0, 0, 0)
		c.Assert(g.DrawTestTriangle(), qt.IsNil)
		c.Assert(g.EndFrame(), qt.IsNil)
	}
	c.Assert(drv.SwapChain().Presented(), qt.Equals, 3)
	c.Assert(drv.Live(), qt.Equals, 4)
}

func TestDrawTestTriangleInfoOnly(t *testing.T) {
	c := qt.New(t)
	if !core.DiagnosticsCompiled {
		c.Skip("diagnostics are compiled out")
	}
	g, drv, _ := newGraphics(c)
	drv.FailNext("Context.Draw", nil, "vertex shader output is not consumed")

	e := asError(c, g.DrawTestTriangle())
	c.Assert(e.Kind, qt.Equals, core.KindInfoOnly)
	c.Assert(e.Code, qt.Equals, core.ResultOK)
	c.Assert(e.Op, qt.Equals, "Context.Draw")
	c.Assert(e.Info, qt.DeepEquals, []string{"vertex shader output is not consumed"})
	c.Assert(filepath.Base(e.File), qt.Equals, "triangle.go")
}

func TestDrawTestTriangleSlicesMessagesPerCall(t *testing.T) {
	c := qt.New(t)
	if !core.DiagnosticsCompiled {
		c.Skip("diagnostics are compiled out")
	}
	g, drv, _ := newGraphics(c)
	drv.Queue().Push("left over from before")
	drv.FailNext("Device.CreateBuffer", core.ResultOutOfMemory, "first failure")

	e := asError(c, g.DrawTestTriangle())
	c.Assert(e.Op, qt.Equals, "Device.CreateBuffer")
	c.Assert(e.Info, qt.DeepEquals, []string{"first failure"})

	drv.FailNext("Device.CreateBuffer", core.ResultInvalidArg, "second failure")
	e = asError(c, g.DrawTestTriangle())
	c.Assert(e.Code, qt.Equals, core.ResultInvalidArg)
	c.Assert(e.Info, qt.DeepEquals, []string{"second failure"})
}

func TestDrawTestTriangleWithoutShaders(t *testing.T) {
	c := qt.New(t)
	drv := soft.New(soft.WithWindow(window, 64, 64))
	logger, _ := test.NewNullLogger()
	g, err := core.New(drv, window, testConfig(64, 64), core.WithLogger(logger))
	c.Assert(err, qt.IsNil)
	defer g.Destroy()

	e := asError(c, g.DrawTestTriangle())
	c.Assert(e.Kind, qt.Equals, core.KindHResult)
	c.Assert(e.Op, qt.Equals, "Device.CreatePixelShader")
	c.Assert(e.Code, qt.Equals, core.ResultInvalidArg)
	// the vertex buffer created before the failure is released
	c.Assert(drv.Live(), qt.Equals, 4)
}

func TestWithInfoQueue(t *testing.T) {
	c := qt.New(t)
	if !core.DiagnosticsCompiled {
		c.Skip("diagnostics are compiled out")
	}
	q := core.NewMessageQueue()
	g, _, _ := newGraphics(c, core.WithInfoQueue(q))
	c.Assert(g.Info().Enabled(), qt.IsTrue)

	g.Info().Mark()
	q.Push("from a custom queue")
	c.Assert(g.Info().Drain(), qt.DeepEquals, []string{"from a custom queue"})
}
