// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

// Configuration defines a global engine configuration setting
type Configuration struct {
	LogLevel string `toml:"log_level"`

	Time     TimeConfiguration     `toml:"time"`
	Renderer RendererConfiguration `toml:"renderer"`
	Assets   AssetConfiguration    `toml:"assets"`
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int `toml:"frames_per_second"`

	// EventPollDelay is the delay between window event polls in milliseconds
	EventPollDelay int `toml:"event_poll_delay"`
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	// ScreenWidth and ScreenHeight are the nominal surface size,
	// used for the window and the viewport.
	ScreenWidth  uint32 `toml:"screen_width"`
	ScreenHeight uint32 `toml:"screen_height"`

	// Debug enables the validation layer and attaches its
	// messages to failures. Has no effect in release builds.
	Debug bool `toml:"debug"`

	// Driver selects the backend, "vulkan" or "soft".
	Driver string `toml:"driver"`
}

// AssetConfiguration tells where compiled shaders are loaded from
type AssetConfiguration struct {
	// Shaders is a kar archive or a directory. When empty the
	// shaders embedded in the binary are used.
	Shaders string `toml:"shaders"`

	VertexShader string `toml:"vertex_shader"`
	PixelShader  string `toml:"pixel_shader"`
}

// DefaultConfiguration returns the settings used when nothing
// else is configured.
func DefaultConfiguration() Configuration {
	return Configuration{
		LogLevel: "info",
		Time: TimeConfiguration{
			FramesPerSecond: 60,
			EventPollDelay:  10,
		},
		Renderer: RendererConfiguration{
			ScreenWidth:  800,
			ScreenHeight: 600,
			Debug:        true,
			Driver:       "vulkan",
		},
		Assets: AssetConfiguration{
			VertexShader: "VertexShader.spv",
			PixelShader:  "PixelShader.spv",
		},
	}
}
