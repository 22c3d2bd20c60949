// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vulkan

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"
	vk "github.com/vulkan-go/vulkan"

	"github.com/koru3d/frame/core"
)

func TestResultOf(t *testing.T) {
	tests := []struct {
		vk     vk.Result
		result core.Result
	}{
		{vk.Success, core.ResultOK},
		{vk.Suboptimal, core.ResultOK},
		{vk.Timeout, core.ResultWasStillDrawing},
		{vk.NotReady, core.ResultWasStillDrawing},
		{vk.ErrorOutOfHostMemory, core.ResultOutOfMemory},
		{vk.ErrorOutOfDeviceMemory, core.ResultOutOfMemory},
		{vk.ErrorDeviceLost, core.ResultDeviceRemoved},
		{vk.ErrorOutOfDate, core.ResultDeviceReset},
		{vk.ErrorSurfaceLost, core.ResultDeviceReset},
		{vk.ErrorLayerNotPresent, core.ResultUnsupported},
		{vk.ErrorIncompatibleDriver, core.ResultUnsupported},
		{vk.ErrorInitializationFailed, core.ResultFail},
	}
	for _, test := range tests {
		t.Run(test.result.Name(), func(t *testing.T) {
			qt.Assert(t, resultOf(test.vk), qt.Equals, test.result)
		})
	}
}

func TestVkError(t *testing.T) {
	c := qt.New(t)
	c.Assert(vkError("vk.CreateDevice", vk.Success), qt.IsNil)
	c.Assert(vkError("vk.QueuePresent", vk.Suboptimal), qt.IsNil)

	err := vkError("vk.QueueSubmit", vk.ErrorDeviceLost)
	c.Assert(err, qt.ErrorMatches, `vk\.QueueSubmit\(\): .+`)
	c.Assert(errors.Is(err, core.ResultDeviceRemoved), qt.IsTrue)
	c.Assert(core.ResultOf(err), qt.Equals, core.ResultDeviceRemoved)
}

func TestOutOfDate(t *testing.T) {
	c := qt.New(t)
	c.Assert(outOfDate(vk.ErrorOutOfDate), qt.IsTrue)
	c.Assert(outOfDate(vk.Suboptimal), qt.IsFalse)
	c.Assert(outOfDate(vk.Success), qt.IsFalse)
	c.Assert(outOfDate(vk.ErrorSurfaceLost), qt.IsFalse)
}

func TestVkFormat(t *testing.T) {
	c := qt.New(t)
	f, ok := vkFormat(core.FormatB8G8R8A8Unorm)
	c.Assert(ok, qt.IsTrue)
	c.Assert(f, qt.Equals, vk.FormatB8g8r8a8Unorm)

	f, ok = vkFormat(core.FormatR32G32Float)
	c.Assert(ok, qt.IsTrue)
	c.Assert(f, qt.Equals, vk.FormatR32g32Sfloat)

	_, ok = vkFormat(core.FormatUnknown)
	c.Assert(ok, qt.IsFalse)
}

func TestVkTopology(t *testing.T) {
	c := qt.New(t)
	top, ok := vkTopology(core.TopologyTriangleStrip)
	c.Assert(ok, qt.IsTrue)
	c.Assert(top, qt.Equals, vk.PrimitiveTopologyTriangleStrip)

	_, ok = vkTopology(core.TopologyUndefined)
	c.Assert(ok, qt.IsFalse)
}

func TestVkViewportFlipsY(t *testing.T) {
	vp := vkViewport(core.Viewport{TopLeftX: 10, TopLeftY: 20, Width: 640, Height: 480, MaxDepth: 1})
	qt.Assert(t, vp, qt.DeepEquals, vk.Viewport{
		X:        10,
		Y:        500,
		Width:    640,
		Height:   -480,
		MaxDepth: 1,
	})
}

func TestStrings(t *testing.T) {
	c := qt.New(t)
	c.Assert(safeString("VK_KHR_surface"), qt.Equals, "VK_KHR_surface\x00")
	c.Assert(safeString("VK_KHR_surface\x00"), qt.Equals, "VK_KHR_surface\x00")
	c.Assert(safeStrings([]string{"a", "b\x00"}), qt.DeepEquals, []string{"a\x00", "b\x00"})
	c.Assert(trimNull("Validation\x00\x00garbage"), qt.Equals, "Validation")
	c.Assert(trimNull("plain"), qt.Equals, "plain")
}

func TestFormatReport(t *testing.T) {
	c := qt.New(t)
	flags := vk.DebugReportFlags(vk.DebugReportErrorBit)
	c.Assert(formatReport(flags, "Validation\x00", 12, "vkCreateDevice failed\x00"),
		qt.Equals, "VULKAN ERROR [Validation] 12: vkCreateDevice failed")

	flags = vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit)
	c.Assert(formatReport(flags, "DS", 0, "slow"), qt.Equals, "VULKAN PERFORMANCE [DS] 0: slow")

	c.Assert(severity(vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportDebugBit)), qt.Equals, "WARNING")
	c.Assert(severity(vk.DebugReportFlags(vk.DebugReportInformationBit)), qt.Equals, "INFO")
}

func TestDestroyLater(t *testing.T) {
	c := qt.New(t)
	dev := &Device{drv: New()}
	var destroyed []string

	dev.destroyLater(func() { destroyed = append(destroyed, "now") })
	c.Assert(destroyed, qt.DeepEquals, []string{"now"})

	dev.recording = true
	dev.destroyLater(func() { destroyed = append(destroyed, "later") })
	c.Assert(destroyed, qt.HasLen, 1)

	dev.recording = false
	dev.collect()
	c.Assert(destroyed, qt.DeepEquals, []string{"now", "later"})
	c.Assert(dev.deferred, qt.HasLen, 0)
}

func TestObjectReleasedTwice(t *testing.T) {
	c := qt.New(t)
	drv := New()
	dev := &Device{drv: drv}
	calls := 0
	o := &object{dev: dev, name: "Buffer", destroy: func() { calls++ }}

	o.Release()
	o.Release()
	c.Assert(calls, qt.Equals, 1)
	c.Assert(o.usable("Context.Draw"), qt.IsFalse)

	q := drv.InfoQueue()
	c.Assert(q.NumStoredMessages(), qt.Equals, uint64(2))
	msg, err := q.Message(0)
	c.Assert(err, qt.IsNil)
	c.Assert(msg, qt.Equals, "VULKAN ERROR: Buffer.Release: object released twice")
}

func TestPipelineKey(t *testing.T) {
	c := qt.New(t)
	ctx := &Context{
		vs:       &VertexShader{shader{key: "vs"}},
		ps:       &PixelShader{shader{key: "ps"}},
		layout:   &InputLayout{slots: []uint32{0}, key: "POSITION;"},
		topology: core.TopologyTriangleList,
	}
	ctx.vertexBuffers[0].stride = 8
	list := ctx.pipelineKey()

	ctx.topology = core.TopologyTriangleStrip
	c.Assert(ctx.pipelineKey(), qt.Not(qt.Equals), list)

	ctx.topology = core.TopologyTriangleList
	ctx.vertexBuffers[0].stride = 12
	c.Assert(ctx.pipelineKey(), qt.Not(qt.Equals), list)

	ctx.vertexBuffers[0].stride = 8
	c.Assert(ctx.pipelineKey(), qt.Equals, list)
}
