// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package vulkan implements the graphics driver on top of Vulkan.
//
// The immediate context records into one command buffer per frame.
// The frame begins with the first command after a present and is
// submitted by Present, which waits for it to finish. Objects
// released while a frame is recording are destroyed after that.
package vulkan

import (
	"errors"
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/koru3d/frame/core"
	"github.com/koru3d/frame/device"
)

// DefaultApplicationInfo describes the application to the Vulkan loader.
var DefaultApplicationInfo = &vk.ApplicationInfo{
	SType:              vk.StructureTypeApplicationInfo,
	ApiVersion:         vk.MakeVersion(1, 0, 0),
	ApplicationVersion: vk.MakeVersion(1, 0, 0),
	PApplicationName:   "Koru3D\x00",
	PEngineName:        "Koru3D\x00",
}

// validationLayers are tried in order, the first one installed is used.
var validationLayers = []string{
	"VK_LAYER_KHRONOS_validation",
	"VK_LAYER_LUNARG_standard_validation",
}

var deviceExtensions = []string{
	vk.KhrSwapchainExtensionName,
	// negative viewport height, so clip space y points up
	"VK_KHR_maintenance1",
}

// Window is a window the driver can present into.
type Window interface {
	// InstanceExtensions lists the instance extensions the window
	// system needs for presenting.
	InstanceExtensions() []string

	// CreateSurface creates the presentation surface of the window.
	CreateSurface(instance vk.Instance) (vk.Surface, error)

	// DrawableSize returns the size of the window in pixels.
	DrawableSize() (width, height int)
}

// Option configures a Driver.
type Option func(*Driver)

// WithWindow registers a window under the handle used as
// SwapChainDesc.OutputWindow.
func WithWindow(handle core.WindowHandle, w Window) Option {
	return func(d *Driver) {
		d.windows[handle] = w
	}
}

// WithProcAddr sets vkGetInstanceProcAddr, as returned by the window
// system. Without it the default Vulkan loader is used.
func WithProcAddr(procAddr unsafe.Pointer) Option {
	return func(d *Driver) {
		d.procAddr = procAddr
	}
}

// WithPhysicalDevice selects the adapter by index, as listed by
// PhysicalDevices.
func WithPhysicalDevice(index int) Option {
	return func(d *Driver) {
		d.adapter = index
	}
}

// New creates a Vulkan driver. Nothing is loaded until a device
// is created or adapters are listed.
func New(opts ...Option) *Driver {
	d := &Driver{
		queue:   core.NewMessageQueue(),
		windows: make(map[core.WindowHandle]Window),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Driver is a Vulkan core.Driver.
type Driver struct {
	queue    *core.MessageQueue
	windows  map[core.WindowHandle]Window
	procAddr unsafe.Pointer
	adapter  int
	loaded   bool
}

// InfoQueue implements core.Driver. The debug report callback of
// every instance created in debug mode pushes into it.
func (d *Driver) InfoQueue() core.InfoQueue {
	return d.queue
}

func (d *Driver) load() error {
	if d.loaded {
		return nil
	}
	if d.procAddr == nil {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return fmt.Errorf("vk.SetDefaultGetInstanceProcAddr(): %w", err)
		}
	} else {
		vk.SetGetInstanceProcAddr(d.procAddr)
	}
	if err := vk.Init(); err != nil {
		return fmt.Errorf("vk.Init(): %w", err)
	}
	d.loaded = true
	return nil
}

// instance is a vk.Instance with its debug callback.
type instance struct {
	handle   vk.Instance
	debug    vk.DebugReportCallback
	hasDebug bool
}

func (d *Driver) newInstance(extensions []string, debug bool) (*instance, error) {
	if err := d.load(); err != nil {
		return nil, err
	}

	var layers []string
	if debug {
		if layer, ok := availableLayer(validationLayers); ok {
			layers = append(layers, layer)
		} else {
			d.queue.Push("VULKAN WARNING: no validation layer is installed, only debug reports are collected")
		}
		extensions = append(extensions, vk.ExtDebugReportExtensionName)
	}

	instanceInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        DefaultApplicationInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     safeStrings(layers),
	}

	var handle vk.Instance
	if err := vkError("vk.CreateInstance", vk.CreateInstance(&instanceInfo, nil, &handle)); err != nil {
		return nil, err
	}
	if err := vk.InitInstance(handle); err != nil {
		vk.DestroyInstance(handle, nil)
		return nil, fmt.Errorf("vk.InitInstance(): %w", err)
	}

	inst := &instance{handle: handle}
	if debug {
		callback, err := newDebugCallback(handle, d.queue)
		if err != nil {
			d.queue.Pushf("VULKAN WARNING: debug report callback: %v", err)
		} else {
			inst.debug = callback
			inst.hasDebug = true
		}
	}
	return inst, nil
}

func (i *instance) destroy() {
	if i.hasDebug {
		vk.DestroyDebugReportCallback(i.handle, i.debug, nil)
	}
	vk.DestroyInstance(i.handle, nil)
}

func availableLayer(wanted []string) (string, bool) {
	var count uint32
	if vk.EnumerateInstanceLayerProperties(&count, nil) != vk.Success {
		return "", false
	}
	props := make([]vk.LayerProperties, count)
	if vk.EnumerateInstanceLayerProperties(&count, props) != vk.Success {
		return "", false
	}
	installed := make(map[string]bool, count)
	for _, p := range props {
		p.Deref()
		installed[vk.ToString(p.LayerName[:])] = true
	}
	for _, layer := range wanted {
		if installed[layer] {
			return layer, true
		}
	}
	return "", false
}

func enumerateDevices(instance vk.Instance) ([]vk.PhysicalDevice, error) {
	var deviceCount uint32
	if err := vkError("vk.EnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(instance, &deviceCount, nil)); err != nil {
		return nil, err
	}
	availableDevices := make([]vk.PhysicalDevice, deviceCount)
	if err := vkError("vk.EnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(instance, &deviceCount, availableDevices)); err != nil {
		return nil, err
	}
	return availableDevices, nil
}

// PhysicalDevices implements device.Enumerator. It creates a
// throwaway instance, so it may be called before any device exists.
func (d *Driver) PhysicalDevices() []device.PhysicalDeviceInfo {
	inst, err := d.newInstance(nil, false)
	if err != nil {
		return nil
	}
	defer inst.destroy()

	physicalDevices, err := enumerateDevices(inst.handle)
	if err != nil {
		return nil
	}
	pdi := make([]device.PhysicalDeviceInfo, len(physicalDevices))
	for i, pd := range physicalDevices {
		pdi[i] = describe(pd)
	}
	return pdi
}

func describe(pd vk.PhysicalDevice) device.PhysicalDeviceInfo {
	var info device.PhysicalDeviceInfo

	var numDeviceExtensions uint32
	if vk.EnumerateDeviceExtensionProperties(pd, "", &numDeviceExtensions, nil) != vk.Success {
		info.Invalid = true
	}
	deviceExt := make([]vk.ExtensionProperties, numDeviceExtensions)
	if vk.EnumerateDeviceExtensionProperties(pd, "", &numDeviceExtensions, deviceExt) != vk.Success {
		info.Invalid = true
	}
	for _, ext := range deviceExt {
		ext.Deref()
		info.Extensions = append(info.Extensions, vk.ToString(ext.ExtensionName[:]))
	}

	var numDeviceLayers uint32
	if vk.EnumerateDeviceLayerProperties(pd, &numDeviceLayers, nil) != vk.Success {
		info.Invalid = true
	}
	deviceLayers := make([]vk.LayerProperties, numDeviceLayers)
	if vk.EnumerateDeviceLayerProperties(pd, &numDeviceLayers, deviceLayers) != vk.Success {
		info.Invalid = true
	}
	for _, layer := range deviceLayers {
		layer.Deref()
		info.Layers = append(info.Layers, vk.ToString(layer.LayerName[:]))
	}

	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(pd, &memoryProperties)
	memoryProperties.Deref()
	for iMem := uint32(0); iMem < memoryProperties.MemoryHeapCount; iMem++ {
		memoryProperties.MemoryHeaps[iMem].Deref()
		info.Memory += uint64(memoryProperties.MemoryHeaps[iMem].Size)
	}

	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &properties)
	properties.Deref()
	info.ID = int(properties.DeviceID)
	info.VendorID = int(properties.VendorID)
	info.Name = vk.ToString(properties.DeviceName[:])
	info.DriverVersion = int(properties.DriverVersion)
	return info
}

// CreateDeviceAndSwapChain implements core.Driver.
func (d *Driver) CreateDeviceAndSwapChain(desc core.SwapChainDesc, flags core.CreateFlags) (core.Device, core.SwapChain, core.Context, error) {
	window, ok := d.windows[desc.OutputWindow]
	if !ok {
		d.queue.Pushf("VULKAN ERROR: CreateDeviceAndSwapChain: OutputWindow %#x is not a registered window", uintptr(desc.OutputWindow))
		return nil, nil, nil, core.ResultInvalidCall
	}
	if desc.SampleDesc.Count != 1 {
		return nil, nil, nil, core.ResultUnsupported
	}
	if _, ok := vkFormat(desc.BufferDesc.Format); !ok {
		return nil, nil, nil, core.ResultInvalidArg
	}

	debug := flags&core.CreateDebug != 0
	inst, err := d.newInstance(window.InstanceExtensions(), debug)
	if err != nil {
		return nil, nil, nil, err
	}

	surface, err := window.CreateSurface(inst.handle)
	if err != nil {
		inst.destroy()
		return nil, nil, nil, fmt.Errorf("creating surface: %w", err)
	}

	dev, err := newDevice(d, inst, surface)
	if err != nil {
		vk.DestroySurface(inst.handle, surface, nil)
		inst.destroy()
		return nil, nil, nil, err
	}

	width, height := int(desc.BufferDesc.Width), int(desc.BufferDesc.Height)
	if width == 0 || height == 0 {
		width, height = window.DrawableSize()
	}
	swap, err := newSwapChain(dev, desc, uint32(width), uint32(height))
	if err != nil {
		dev.destroy()
		return nil, nil, nil, err
	}
	ctx := newContext(dev, swap)
	return dev, swap, ctx, nil
}

// newDevice picks the adapter and a queue family that can draw
// and present, and creates the logical device.
func newDevice(d *Driver, inst *instance, surface vk.Surface) (*Device, error) {
	physicalDevices, err := enumerateDevices(inst.handle)
	if err != nil {
		return nil, err
	}
	if d.adapter < 0 || d.adapter >= len(physicalDevices) {
		d.queue.Pushf("VULKAN ERROR: adapter %d does not exist, %d found", d.adapter, len(physicalDevices))
		return nil, core.ResultNotFound
	}
	pd := physicalDevices[d.adapter]

	queueIndex, err := presentQueueFamily(pd, surface)
	if err != nil {
		return nil, err
	}

	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: queueIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{1},
	}}
	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(deviceExtensions)),
		PpEnabledExtensionNames: safeStrings(deviceExtensions),
	}
	var logical vk.Device
	if err := vkError("vk.CreateDevice", vk.CreateDevice(pd, &dci, nil, &logical)); err != nil {
		return nil, err
	}

	var queue vk.Queue
	vk.GetDeviceQueue(logical, queueIndex, 0, &queue)

	dev := &Device{
		drv:        d,
		instance:   inst,
		surface:    surface,
		physical:   pd,
		handle:     logical,
		queue:      queue,
		queueIndex: queueIndex,
		allocator:  NewMemoryAllocator(logical, pd),
	}
	if err := dev.createCommandPool(); err != nil {
		vk.DestroyDevice(logical, nil)
		return nil, err
	}
	return dev, nil
}

var errNoQueueFamily = errors.New("no queue family can draw and present")

func presentQueueFamily(pd vk.PhysicalDevice, surface vk.Surface) (uint32, error) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, families)

	for i := uint32(0); i < count; i++ {
		families[i].Deref()
		if families[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 {
			continue
		}
		var supportsPresent vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(pd, i, surface, &supportsPresent)
		if supportsPresent.B() {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %v", core.ResultUnsupported, errNoQueueFamily)
}
