// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"errors"
	"fmt"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/koru3d/frame/core"
)

func TestResultNames(t *testing.T) {
	tests := []struct {
		result core.Result
		name   string
		failed bool
	}{
		{core.ResultOK, "S_OK", false},
		{core.ResultFail, "E_FAIL", true},
		{core.ResultInvalidArg, "E_INVALIDARG", true},
		{core.ResultOutOfMemory, "E_OUTOFMEMORY", true},
		{core.ResultDeviceRemoved, "DXGI_ERROR_DEVICE_REMOVED", true},
		{core.ResultDeviceHung, "DXGI_ERROR_DEVICE_HUNG", true},
		{core.ResultFileNotFound, "D3D11_ERROR_FILE_NOT_FOUND", true},
		{core.Result(0x80001234), "Unknown error 0x80001234", true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := qt.New(t)
			c.Assert(test.result.Name(), qt.Equals, test.name)
			c.Assert(test.result.Failed(), qt.Equals, test.failed)
			c.Assert(test.result.Error(), qt.Equals, test.name)
		})
	}
	qt.Assert(t, core.Result(0x80001234).Description(), qt.Equals, "")
}

func TestResultOf(t *testing.T) {
	c := qt.New(t)
	c.Assert(core.ResultOf(nil), qt.Equals, core.ResultOK)
	c.Assert(core.ResultOf(core.ResultDeviceHung), qt.Equals, core.ResultDeviceHung)
	c.Assert(core.ResultOf(fmt.Errorf("present: %w", core.ResultWasStillDrawing)), qt.Equals, core.ResultWasStillDrawing)
	c.Assert(core.ResultOf(errors.New("plain")), qt.Equals, core.ResultFail)
}

func TestErrorReport(t *testing.T) {
	c := qt.New(t)
	e := &core.Error{
		Kind: core.KindHResult,
		Code: core.ResultInvalidArg,
		Op:   "Device.CreateBuffer",
		Info: []string{"first", "second"},
		File: "triangle.go",
		Line: 7,
	}
	c.Assert(e.Error(), qt.Equals, "Graphics HRESULT Failure\n"+
		"[Error Code] 0x80070057 (2147942487)\n"+
		"[Error String] E_INVALIDARG\n"+
		"[Description] An invalid parameter was passed to the returning function.\n"+
		"[Error Info]\nfirst\nsecond\n\n"+
		"[Operation] Device.CreateBuffer\n"+
		"[File] triangle.go\n[Line] 7")
	c.Assert(errors.Is(e, core.ResultInvalidArg), qt.IsTrue)
	c.Assert(core.ResultOf(e), qt.Equals, core.ResultInvalidArg)
}

func TestErrorReportWithoutInfo(t *testing.T) {
	c := qt.New(t)
	e := &core.Error{Kind: core.KindDeviceRemoved, Code: core.ResultDeviceHung, File: "graphics.go", Line: 1}
	c.Assert(e.Error(), qt.Equals, "Graphics Device Removed Failure\n"+
		"[Error Code] 0x887A0006 (2289696774)\n"+
		"[Error String] DXGI_ERROR_DEVICE_HUNG\n"+
		"[Description] "+core.ResultDeviceHung.Description()+"\n"+
		"[File] graphics.go\n[Line] 1")
	c.Assert(core.IsDeviceRemoved(e), qt.IsTrue)
}

func TestInfoOnlyReport(t *testing.T) {
	c := qt.New(t)
	e := &core.Error{Kind: core.KindInfoOnly, Op: "Context.Draw", Info: []string{"warning"}, File: "a.go", Line: 3}
	c.Assert(e.Error(), qt.Equals, "Graphics Info-Only Failure\n"+
		"[Error Info]\nwarning\n\n"+
		"[Operation] Context.Draw\n"+
		"[File] a.go\n[Line] 3")
	c.Assert(e.Unwrap(), qt.IsNil)
	c.Assert(core.ResultOf(e), qt.Equals, core.ResultFail)
}

func TestKindOf(t *testing.T) {
	c := qt.New(t)
	wrapped := fmt.Errorf("frame 3: %w", &core.Error{Kind: core.KindDeviceCreation})
	kind, ok := core.KindOf(wrapped)
	c.Assert(ok, qt.IsTrue)
	c.Assert(kind, qt.Equals, core.KindDeviceCreation)
	c.Assert(kind.String(), qt.Equals, "Graphics Device Creation Failure")

	_, ok = core.KindOf(core.ResultFail)
	c.Assert(ok, qt.IsFalse)
	c.Assert(core.IsDeviceRemoved(core.ResultDeviceRemoved), qt.IsFalse)
}

func TestDeviceLost(t *testing.T) {
	c := qt.New(t)
	c.Assert(core.DeviceLost(nil), qt.IsFalse)
	c.Assert(core.DeviceLost(core.ResultFail), qt.IsFalse)
	c.Assert(core.DeviceLost(core.ResultDeviceRemoved), qt.IsTrue)
	c.Assert(core.DeviceLost(&core.Error{Kind: core.KindDeviceRemoved, Code: core.ResultDeviceHung}), qt.IsTrue)
	c.Assert(core.DeviceLost(&core.Error{Kind: core.KindHResult, Code: core.ResultDeviceRemoved}), qt.IsTrue)
	c.Assert(core.DeviceLost(&core.Error{Kind: core.KindHResult, Code: core.ResultOutOfMemory}), qt.IsFalse)
	c.Assert(core.DeviceLost(fmt.Errorf("frame: %w", &core.Error{Kind: core.KindDeviceRemoved})), qt.IsTrue)
}
