// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vulkan

import (
	"strconv"
	"strings"

	vk "github.com/vulkan-go/vulkan"

	"github.com/koru3d/frame/core"
)

// resultOf maps a Vulkan result onto the closest driver result.
func resultOf(r vk.Result) core.Result {
	switch r {
	case vk.Success, vk.Suboptimal:
		return core.ResultOK
	case vk.NotReady, vk.Timeout:
		return core.ResultWasStillDrawing
	case vk.ErrorOutOfHostMemory, vk.ErrorOutOfDeviceMemory:
		return core.ResultOutOfMemory
	case vk.ErrorDeviceLost:
		return core.ResultDeviceRemoved
	case vk.ErrorSurfaceLost, vk.ErrorOutOfDate:
		return core.ResultDeviceReset
	case vk.ErrorLayerNotPresent, vk.ErrorExtensionNotPresent, vk.ErrorFeatureNotPresent,
		vk.ErrorIncompatibleDriver, vk.ErrorFormatNotSupported:
		return core.ResultUnsupported
	default:
		return core.ResultFail
	}
}

// outOfDate reports whether the swap chain no longer matches its
// surface and has to be created again before it can present.
// Suboptimal still presents and is left alone.
func outOfDate(r vk.Result) bool {
	return r == vk.ErrorOutOfDate
}

// resultError is a failed Vulkan call. It unwraps to the driver result.
type resultError struct {
	op     string
	result vk.Result
}

func (e *resultError) Error() string {
	return e.op + "(): " + vk.Error(e.result).Error()
}

func (e *resultError) Unwrap() error {
	return resultOf(e.result)
}

// vkError returns nil for successful results.
func vkError(op string, r vk.Result) error {
	if resultOf(r) == core.ResultOK {
		return nil
	}
	return &resultError{op: op, result: r}
}

func vkFormat(f core.Format) (vk.Format, bool) {
	switch f {
	case core.FormatB8G8R8A8Unorm:
		return vk.FormatB8g8r8a8Unorm, true
	case core.FormatR8G8B8A8Unorm:
		return vk.FormatR8g8b8a8Unorm, true
	case core.FormatR32G32Float:
		return vk.FormatR32g32Sfloat, true
	case core.FormatR32G32B32Float:
		return vk.FormatR32g32b32Sfloat, true
	default:
		return vk.FormatUndefined, false
	}
}

func vkTopology(t core.PrimitiveTopology) (vk.PrimitiveTopology, bool) {
	switch t {
	case core.TopologyTriangleList:
		return vk.PrimitiveTopologyTriangleList, true
	case core.TopologyTriangleStrip:
		return vk.PrimitiveTopologyTriangleStrip, true
	default:
		return vk.PrimitiveTopologyTriangleList, false
	}
}

// vkViewport flips the viewport vertically, so clip space y points
// up like on the other drivers.
func vkViewport(v core.Viewport) vk.Viewport {
	return vk.Viewport{
		X:        v.TopLeftX,
		Y:        v.TopLeftY + v.Height,
		Width:    v.Width,
		Height:   -v.Height,
		MinDepth: v.MinDepth,
		MaxDepth: v.MaxDepth,
	}
}

func safeString(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

func safeStrings(sgs []string) []string {
	out := make([]string, 0, len(sgs))
	for _, s := range sgs {
		out = append(out, safeString(s))
	}
	return out
}

func trimNull(s string) string {
	if i := strings.IndexByte(s, 0); i >= 0 {
		return s[:i]
	}
	return s
}

func itoa(i int32) string {
	return strconv.FormatInt(int64(i), 10)
}
