// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"image"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"
	vk "github.com/vulkan-go/vulkan"

	"github.com/koru3d/frame/core"
)

// window is an SDL window. It is the Vulkan presentation target, or
// the screen the software driver's front buffer is copied to.
type window struct {
	*sdl.Window
	handle core.WindowHandle
}

func newWindow(cfg core.RendererConfiguration, flags uint32) (*window, error) {
	w, err := sdl.CreateWindow("Koru3D",
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(cfg.ScreenWidth),
		int32(cfg.ScreenHeight),
		flags)
	if err != nil {
		return nil, err
	}
	id, err := w.GetID()
	if err != nil {
		w.Destroy()
		return nil, err
	}
	return &window{Window: w, handle: core.WindowHandle(id)}, nil
}

// InstanceExtensions implements vulkan.Window.
func (w *window) InstanceExtensions() []string {
	return w.VulkanGetInstanceExtensions()
}

// CreateSurface implements vulkan.Window.
func (w *window) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	surface, err := w.VulkanCreateSurface(instance)
	if err != nil {
		return nil, err
	}
	return vk.SurfaceFromPointer(uintptr(surface)), nil
}

// DrawableSize implements vulkan.Window.
func (w *window) DrawableSize() (int, int) {
	width, height := w.VulkanGetDrawableSize()
	return int(width), int(height)
}

// blit copies img to the window.
func (w *window) blit(img *image.RGBA) error {
	dst, err := w.GetSurface()
	if err != nil {
		return err
	}
	size := img.Bounds().Size()
	src, err := sdl.CreateRGBSurfaceWithFormatFrom(unsafe.Pointer(&img.Pix[0]),
		int32(size.X), int32(size.Y), 32, int32(img.Stride), uint32(sdl.PIXELFORMAT_ABGR8888))
	if err != nil {
		return err
	}
	defer src.Free()
	if err := src.Blit(nil, dst, nil); err != nil {
		return err
	}
	return w.UpdateSurface()
}
