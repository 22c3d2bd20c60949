// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vulkan

import (
	"math"

	vk "github.com/vulkan-go/vulkan"

	"github.com/koru3d/frame/core"
)

// SwapChain is a Vulkan core.SwapChain. It also owns the render pass
// and the per frame command buffer, since the frame starts with
// acquiring one of its images.
type SwapChain struct {
	object

	desc       core.SwapChainDesc
	format     vk.Format
	colorSpace vk.ColorSpace
	extent     vk.Extent2D

	handle       vk.Swapchain
	images       []vk.Image
	views        []vk.ImageView
	renderPass   vk.RenderPass
	framebuffers []vk.Framebuffer

	commandBuffer           vk.CommandBuffer
	imageAvailableSemaphore vk.Semaphore
	renderFinishedSemaphore vk.Semaphore
	fence                   vk.Fence
	imageIndex              uint32
}

func newSwapChain(dev *Device, desc core.SwapChainDesc, width, height uint32) (*SwapChain, error) {
	s := &SwapChain{desc: desc}
	s.object = object{dev: dev, name: "SwapChain"}

	if err := s.chooseFormat(); err != nil {
		return nil, err
	}
	if err := s.createSwapchain(nil, width, height); err != nil {
		s.free()
		return nil, err
	}
	if err := s.createRenderPass(); err != nil {
		s.free()
		return nil, err
	}
	if err := s.createImageViews(); err != nil {
		s.free()
		return nil, err
	}
	if err := s.createFramebuffers(); err != nil {
		s.free()
		return nil, err
	}
	if err := s.createSynchronization(); err != nil {
		s.free()
		return nil, err
	}
	return s, nil
}

// chooseFormat takes the requested format if the surface supports it.
func (s *SwapChain) chooseFormat() error {
	dev := s.dev
	var (
		surfaceFormatCount uint32
		surfaceFormats     []vk.SurfaceFormat
	)
	if err := vkError("vk.GetPhysicalDeviceSurfaceFormats", vk.GetPhysicalDeviceSurfaceFormats(dev.physical, dev.surface, &surfaceFormatCount, nil)); err != nil {
		return err
	}
	surfaceFormats = make([]vk.SurfaceFormat, surfaceFormatCount)
	if err := vkError("vk.GetPhysicalDeviceSurfaceFormats", vk.GetPhysicalDeviceSurfaceFormats(dev.physical, dev.surface, &surfaceFormatCount, surfaceFormats)); err != nil {
		return err
	}
	if surfaceFormatCount == 0 {
		dev.report("ERROR", "CreateDeviceAndSwapChain", "surface has no formats")
		return core.ResultUnsupported
	}

	wanted, _ := vkFormat(s.desc.BufferDesc.Format)
	for i := range surfaceFormats {
		surfaceFormats[i].Deref()
	}
	s.format = surfaceFormats[0].Format
	s.colorSpace = surfaceFormats[0].ColorSpace
	if s.format == vk.FormatUndefined {
		// any format goes
		s.format = wanted
		return nil
	}
	for _, f := range surfaceFormats {
		if f.Format == wanted {
			s.format = f.Format
			s.colorSpace = f.ColorSpace
			return nil
		}
	}
	dev.report("WARNING", "CreateDeviceAndSwapChain", "requested format "+s.desc.BufferDesc.Format.String()+" is not supported by the surface, using the first supported one")
	return nil
}

func (s *SwapChain) createSwapchain(oldSwapchain vk.Swapchain, width, height uint32) error {
	dev := s.dev
	var surfaceCapabilities vk.SurfaceCapabilities
	if err := vkError("vk.GetPhysicalDeviceSurfaceCapabilities", vk.GetPhysicalDeviceSurfaceCapabilities(dev.physical, dev.surface, &surfaceCapabilities)); err != nil {
		return err
	}
	surfaceCapabilities.Deref()
	surfaceCapabilities.CurrentExtent.Deref()

	if surfaceCapabilities.CurrentExtent.Width != math.MaxUint32 {
		width = surfaceCapabilities.CurrentExtent.Width
		height = surfaceCapabilities.CurrentExtent.Height
	}
	s.extent = vk.Extent2D{Width: width, Height: height}

	imageCount := s.desc.BufferCount + 1
	if imageCount < surfaceCapabilities.MinImageCount {
		imageCount = surfaceCapabilities.MinImageCount
	}
	if surfaceCapabilities.MaxImageCount > 0 && imageCount > surfaceCapabilities.MaxImageCount {
		imageCount = surfaceCapabilities.MaxImageCount
	}

	compositeAlpha := vk.CompositeAlphaOpaqueBit
	compositeAlphaFlags := []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	}
	for i := 0; i < len(compositeAlphaFlags); i++ {
		alphaFlags := vk.CompositeAlphaFlags(compositeAlphaFlags[i])
		if surfaceCapabilities.SupportedCompositeAlpha&alphaFlags != 0 {
			compositeAlpha = compositeAlphaFlags[i]
			break
		}
	}

	scci := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          dev.surface,
		MinImageCount:    imageCount,
		ImageFormat:      s.format,
		ImageColorSpace:  s.colorSpace,
		ImageExtent:      s.extent,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     vk.SurfaceTransformIdentityBit,
		CompositeAlpha:   compositeAlpha,
		PresentMode:      vk.PresentModeFifo,
		Clipped:          vk.True,
		ImageArrayLayers: 1,
		ImageSharingMode: vk.SharingModeExclusive,
		OldSwapchain:     oldSwapchain,
	}
	var swapchain vk.Swapchain
	if err := vkError("vk.CreateSwapchain", vk.CreateSwapchain(dev.handle, &scci, nil, &swapchain)); err != nil {
		return err
	}
	s.handle = swapchain

	var numImages uint32
	if err := vkError("vk.GetSwapchainImages", vk.GetSwapchainImages(dev.handle, s.handle, &numImages, nil)); err != nil {
		return err
	}
	s.images = make([]vk.Image, numImages)
	return vkError("vk.GetSwapchainImages", vk.GetSwapchainImages(dev.handle, s.handle, &numImages, s.images))
}

// createRenderPass creates the single pass frames are recorded in.
// Images come out of acquire undefined, clearing is explicit.
func (s *SwapChain) createRenderPass() error {
	attachments := []vk.AttachmentDescription{{
		Format:         s.format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpDontCare,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}}
	colorAttachmentRef := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}
	subpassDependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorAttachmentRef)),
		PColorAttachments:    colorAttachmentRef,
	}
	rpci := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{subpassDependency},
	}
	var renderPass vk.RenderPass
	if err := vkError("vk.CreateRenderPass", vk.CreateRenderPass(s.dev.handle, &rpci, nil, &renderPass)); err != nil {
		return err
	}
	s.renderPass = renderPass
	return nil
}

func (s *SwapChain) createImageViews() error {
	for _, image := range s.images {
		ivci := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vk.ImageViewType2d,
			Format:   s.format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		var imageView vk.ImageView
		if err := vkError("vk.CreateImageView", vk.CreateImageView(s.dev.handle, &ivci, nil, &imageView)); err != nil {
			return err
		}
		s.views = append(s.views, imageView)
	}
	return nil
}

func (s *SwapChain) createFramebuffers() error {
	for _, view := range s.views {
		fci := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      s.renderPass,
			AttachmentCount: 1,
			PAttachments:    []vk.ImageView{view},
			Width:           s.extent.Width,
			Height:          s.extent.Height,
			Layers:          1,
		}
		var framebuffer vk.Framebuffer
		if err := vkError("vk.CreateFramebuffer", vk.CreateFramebuffer(s.dev.handle, &fci, nil, &framebuffer)); err != nil {
			return err
		}
		s.framebuffers = append(s.framebuffers, framebuffer)
	}
	return nil
}

func (s *SwapChain) createSynchronization() error {
	dev := s.dev
	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        dev.commandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	commandBuffers := make([]vk.CommandBuffer, 1)
	if err := vkError("vk.AllocateCommandBuffers", vk.AllocateCommandBuffers(dev.handle, &cbai, commandBuffers)); err != nil {
		return err
	}
	s.commandBuffer = commandBuffers[0]

	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	fci := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if err := vkError("vk.CreateSemaphore", vk.CreateSemaphore(dev.handle, &sci, nil, &s.imageAvailableSemaphore)); err != nil {
		return err
	}
	if err := vkError("vk.CreateSemaphore", vk.CreateSemaphore(dev.handle, &sci, nil, &s.renderFinishedSemaphore)); err != nil {
		return err
	}
	return vkError("vk.CreateFence", vk.CreateFence(dev.handle, &fci, nil, &s.fence))
}

func (s *SwapChain) destroyTargets() {
	for _, fb := range s.framebuffers {
		vk.DestroyFramebuffer(s.dev.handle, fb, nil)
	}
	s.framebuffers = nil
	for _, iv := range s.views {
		vk.DestroyImageView(s.dev.handle, iv, nil)
	}
	s.views = nil
}

// recreate rebuilds the swap chain after the surface changed size.
func (s *SwapChain) recreate() error {
	vk.DeviceWaitIdle(s.dev.handle)
	s.destroyTargets()
	old := s.handle
	err := s.createSwapchain(old, s.extent.Width, s.extent.Height)
	vk.DestroySwapchain(s.dev.handle, old, nil)
	if err != nil {
		s.handle = nil
		return err
	}
	if err := s.createImageViews(); err != nil {
		return err
	}
	return s.createFramebuffers()
}

// beginFrame acquires the next image and starts recording into it.
// It does nothing while a frame is recording.
func (s *SwapChain) beginFrame() error {
	dev := s.dev
	if dev.recording {
		return nil
	}

	result := vk.AcquireNextImage(dev.handle, s.handle, math.MaxUint64, s.imageAvailableSemaphore, nil, &s.imageIndex)
	if outOfDate(result) {
		if err := s.recreate(); err != nil {
			return err
		}
		result = vk.AcquireNextImage(dev.handle, s.handle, math.MaxUint64, s.imageAvailableSemaphore, nil, &s.imageIndex)
	}
	dev.checkLost(result)
	if err := vkError("vk.AcquireNextImage", result); err != nil {
		return err
	}

	vk.ResetCommandBuffer(s.commandBuffer, 0)
	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := vkError("vk.BeginCommandBuffer", vk.BeginCommandBuffer(s.commandBuffer, &cbbi)); err != nil {
		return err
	}
	rpbi := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  s.renderPass,
		Framebuffer: s.framebuffers[s.imageIndex],
		RenderArea: vk.Rect2D{
			Extent: s.extent,
		},
	}
	vk.CmdBeginRenderPass(s.commandBuffer, &rpbi, vk.SubpassContentsInline)
	dev.recording = true
	return nil
}

// Buffer implements core.SwapChain.
func (s *SwapChain) Buffer(i int) (core.Texture2D, error) {
	const op = "SwapChain.Buffer"
	if !s.usable(op) {
		return nil, core.ResultInvalidCall
	}
	if i != 0 {
		s.dev.report("ERROR", op, "discard swap chains expose buffer 0 only")
		return nil, core.ResultInvalidArg
	}
	tex := &Texture{
		desc: core.Texture2DDesc{
			Width:  s.extent.Width,
			Height: s.extent.Height,
			Format: s.desc.BufferDesc.Format,
		},
		swap: s,
	}
	tex.object = object{dev: s.dev, name: "Texture2D"}
	return tex, nil
}

// Present implements core.SwapChain. It submits the recorded frame,
// queues the image for presentation and waits until the frame is
// done. Presentation always waits for the vertical blank.
func (s *SwapChain) Present(syncInterval uint32, flags core.PresentFlags) error {
	const op = "SwapChain.Present"
	dev := s.dev
	if !s.usable(op) {
		return core.ResultInvalidCall
	}
	if dev.lost {
		return core.ResultDeviceRemoved
	}
	if syncInterval > 4 {
		dev.report("ERROR", op, "SyncInterval is out of range 0..4")
		return core.ResultInvalidCall
	}
	if err := s.beginFrame(); err != nil {
		return err
	}

	vk.CmdEndRenderPass(s.commandBuffer)
	if err := vkError("vk.EndCommandBuffer", vk.EndCommandBuffer(s.commandBuffer)); err != nil {
		dev.recording = false
		return err
	}

	submit := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{s.imageAvailableSemaphore},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{s.commandBuffer},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{s.renderFinishedSemaphore},
	}}
	result := vk.QueueSubmit(dev.queue, 1, submit, s.fence)
	dev.checkLost(result)
	if err := vkError("vk.QueueSubmit", result); err != nil {
		dev.recording = false
		return s.removed(err)
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{s.renderFinishedSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.handle},
		PImageIndices:      []uint32{s.imageIndex},
	}
	presentResult := vk.QueuePresent(dev.queue, &presentInfo)
	dev.checkLost(presentResult)

	waitResult := vk.WaitForFences(dev.handle, 1, []vk.Fence{s.fence}, vk.True, math.MaxUint64)
	dev.checkLost(waitResult)
	vk.ResetFences(dev.handle, 1, []vk.Fence{s.fence})
	dev.recording = false
	dev.collect()

	if outOfDate(presentResult) {
		return s.recreate()
	}
	if err := vkError("vk.QueuePresent", presentResult); err != nil {
		return s.removed(err)
	}
	return s.removed(vkError("vk.WaitForFences", waitResult))
}

// removed turns any failure on a lost device into ResultDeviceRemoved.
func (s *SwapChain) removed(err error) error {
	if err != nil && s.dev.lost {
		return core.ResultDeviceRemoved
	}
	return err
}

// Release implements core.Releaser.
func (s *SwapChain) Release() {
	if s.released {
		s.dev.report("ERROR", "SwapChain.Release", "object released twice")
		return
	}
	s.released = true
	vk.DeviceWaitIdle(s.dev.handle)
	s.dev.recording = false
	s.dev.collect()
	s.free()
}

func (s *SwapChain) free() {
	dev := s.dev
	if s.fence != nil {
		vk.DestroyFence(dev.handle, s.fence, nil)
	}
	if s.renderFinishedSemaphore != nil {
		vk.DestroySemaphore(dev.handle, s.renderFinishedSemaphore, nil)
	}
	if s.imageAvailableSemaphore != nil {
		vk.DestroySemaphore(dev.handle, s.imageAvailableSemaphore, nil)
	}
	if s.commandBuffer != nil {
		vk.FreeCommandBuffers(dev.handle, dev.commandPool, 1, []vk.CommandBuffer{s.commandBuffer})
	}
	s.destroyTargets()
	if s.renderPass != nil {
		vk.DestroyRenderPass(dev.handle, s.renderPass, nil)
	}
	if s.handle != nil {
		vk.DestroySwapchain(dev.handle, s.handle, nil)
	}
}
