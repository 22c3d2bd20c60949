// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/koru3d/frame/core"
)

const (
	defaultConfigFile = "koru.toml"
	envFile           = ".env"
)

// Environment variables read after the config file.
const (
	envConfig  = "KORU_CONFIG"
	envDebug   = "KORU_DEBUG"
	envShaders = "KORU_SHADERS"
)

// loadConfig layers the configuration: defaults, then the TOML file,
// then the environment, then the flags that were set on the command
// line. A missing default config file is not an error.
func loadConfig(args []string, getenv func(string) string) (core.Configuration, error) {
	cfg := core.DefaultConfiguration()

	fs := flag.NewFlagSet("koru", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		configFile = fs.String("config", "", "path of the TOML configuration file")
		debug      = fs.Bool("debug", cfg.Renderer.Debug, "enable the validation layer")
		driver     = fs.String("driver", cfg.Renderer.Driver, "graphics driver, vulkan or soft")
		shaders    = fs.String("shaders", "", "kar archive or directory holding compiled shaders")
		logLevel   = fs.String("log-level", cfg.LogLevel, "logrus level")
		width      = fs.Uint("width", uint(cfg.Renderer.ScreenWidth), "window width")
		height     = fs.Uint("height", uint(cfg.Renderer.ScreenHeight), "window height")
		fps        = fs.Int("fps", cfg.Time.FramesPerSecond, "frames per second, 0 for unlimited")
	)
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	path, required := *configFile, true
	if path == "" {
		path = getenv(envConfig)
	}
	if path == "" {
		path, required = defaultConfigFile, false
	}
	if err := decodeConfigFile(path, required, &cfg); err != nil {
		return cfg, err
	}

	if v := getenv(envDebug); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", envDebug, err)
		}
		cfg.Renderer.Debug = b
	}
	if v := getenv(envShaders); v != "" {
		cfg.Assets.Shaders = v
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "debug":
			cfg.Renderer.Debug = *debug
		case "driver":
			cfg.Renderer.Driver = *driver
		case "shaders":
			cfg.Assets.Shaders = *shaders
		case "log-level":
			cfg.LogLevel = *logLevel
		case "width":
			cfg.Renderer.ScreenWidth = uint32(*width)
		case "height":
			cfg.Renderer.ScreenHeight = uint32(*height)
		case "fps":
			cfg.Time.FramesPerSecond = *fps
		}
	})

	switch cfg.Renderer.Driver {
	case "vulkan", "soft":
	default:
		return cfg, fmt.Errorf("unknown driver %q", cfg.Renderer.Driver)
	}
	return cfg, nil
}

func decodeConfigFile(path string, required bool, cfg *core.Configuration) error {
	_, err := toml.DecodeFile(path, cfg)
	if os.IsNotExist(err) && !required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	return nil
}

// loadEnvFile reads variables from a .env file into the process
// environment. Variables already set win.
func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func configureLogger(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	return nil
}
