// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command koru opens a window and draws the test triangle every
// frame, on either the Vulkan or the software driver.
package main

import (
	"errors"
	"flag"
	"os"
	"runtime"

	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/koru3d/frame/assets"
	"github.com/koru3d/frame/core"
	"github.com/koru3d/frame/device/soft"
	"github.com/koru3d/frame/device/vulkan"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	if err := loadEnvFile(envFile); err != nil {
		log.WithError(err).Fatal("reading " + envFile)
	}
	cfg, err := loadConfig(os.Args[1:], os.Getenv)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(2)
	}
	if err != nil {
		log.WithError(err).Fatal("loading configuration")
	}
	if err := configureLogger(cfg.LogLevel); err != nil {
		log.WithError(err).Fatal("configuring logger")
	}

	if err := run(cfg); err != nil {
		log.WithError(err).Fatal("koru stopped")
	}
}

func run(cfg core.Configuration) error {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return err
	}
	defer sdl.Quit()

	src, err := assets.Open(cfg.Assets.Shaders)
	if err != nil {
		return err
	}
	shaders, err := assets.LoadShaderSet(src, cfg.Assets)
	src.Close()
	if err != nil {
		return err
	}

	var (
		drv  core.Driver
		win  *window
		show func() error
	)
	switch cfg.Renderer.Driver {
	case "vulkan":
		if err := sdl.VulkanLoadLibrary(""); err != nil {
			return err
		}
		defer sdl.VulkanUnloadLibrary()

		if win, err = newWindow(cfg.Renderer, sdl.WINDOW_VULKAN); err != nil {
			return err
		}
		drv = vulkan.New(
			vulkan.WithWindow(win.handle, win),
			vulkan.WithProcAddr(sdl.VulkanGetVkGetInstanceProcAddr()),
		)
	case "soft":
		if win, err = newWindow(cfg.Renderer, sdl.WINDOW_SHOWN); err != nil {
			return err
		}
		sd := soft.New(
			soft.WithWindow(win.handle, int(cfg.Renderer.ScreenWidth), int(cfg.Renderer.ScreenHeight)),
		)
		drv = sd
		show = func() error {
			return win.blit(sd.SwapChain().FrontBuffer().Image())
		}
	}
	defer win.Destroy()

	create := func() (*core.Graphics, error) {
		return core.New(drv, win.handle, cfg.Renderer,
			core.WithLogger(log.StandardLogger()),
			core.WithShaders(shaders))
	}
	gfx, err := create()
	if err != nil {
		return err
	}
	defer func() {
		gfx.Destroy()
	}()

	time := core.NewTime(cfg.Time)
	defer time.Stop()

	log.WithFields(log.Fields{
		"driver": cfg.Renderer.Driver,
		"fps":    time.Fps(),
		"debug":  cfg.Renderer.Debug,
	}).Info("rendering")

	for {
		select {
		case <-time.EventTicker().C:
			for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
				switch et := event.(type) {
				case *sdl.KeyboardEvent:
					if et.Keysym.Sym == sdl.K_ESCAPE {
						log.Info("event loop exited")
						return nil
					}
				case *sdl.QuitEvent:
					log.Info("event loop exited")
					return nil
				}
			}
		case <-time.FpsTicker().C:
			err := frame(gfx)
			if core.DeviceLost(err) {
				log.WithError(err).Warn("device removed, creating it again")
				gfx.Destroy()
				if gfx, err = create(); err != nil {
					return err
				}
				continue
			}
			if err != nil {
				return err
			}
			if show != nil {
				if err := show(); err != nil {
					return err
				}
			}
		}
	}
}

func frame(gfx *core.Graphics) error {
	gfx.ClearBuffer(0.2, 0.3, 0.4)
	if err := gfx.DrawTestTriangle(); err != nil {
		return err
	}
	return gfx.EndFrame()
}
