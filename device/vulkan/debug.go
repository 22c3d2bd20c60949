// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vulkan

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/koru3d/frame/core"
)

func newDebugCallback(instance vk.Instance, queue *core.MessageQueue) (vk.DebugReportCallback, error) {
	dbgCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit |
			vk.DebugReportPerformanceWarningBit),
		PfnCallback: func(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
			object uint64, location uint, messageCode int32, pLayerPrefix string,
			pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
			queue.Push(formatReport(flags, pLayerPrefix, messageCode, pMessage))
			return vk.False
		},
	}
	var callback vk.DebugReportCallback
	if err := vkError("vk.CreateDebugReportCallback", vk.CreateDebugReportCallback(instance, &dbgCreateInfo, nil, &callback)); err != nil {
		return callback, err
	}
	return callback, nil
}

// formatReport renders a debug report like "VULKAN ERROR [layer] 12: message".
func formatReport(flags vk.DebugReportFlags, layer string, code int32, message string) string {
	return "VULKAN " + severity(flags) + " [" + trimNull(layer) + "] " + itoa(code) + ": " + trimNull(message)
}

func severity(flags vk.DebugReportFlags) string {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		return "ERROR"
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		return "WARNING"
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		return "PERFORMANCE"
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		return "DEBUG"
	default:
		return "INFO"
	}
}
