// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

// Format is a pixel or vertex element format.
type Format int

// Supported formats.
const (
	FormatUnknown Format = iota
	FormatB8G8R8A8Unorm
	FormatR8G8B8A8Unorm
	FormatR32G32Float
	FormatR32G32B32Float
)

// Size returns the size of one element in bytes.
func (f Format) Size() int {
	switch f {
	case FormatB8G8R8A8Unorm, FormatR8G8B8A8Unorm:
		return 4
	case FormatR32G32Float:
		return 8
	case FormatR32G32B32Float:
		return 12
	default:
		return 0
	}
}

func (f Format) String() string {
	switch f {
	case FormatB8G8R8A8Unorm:
		return "B8G8R8A8_UNORM"
	case FormatR8G8B8A8Unorm:
		return "R8G8B8A8_UNORM"
	case FormatR32G32Float:
		return "R32G32_FLOAT"
	case FormatR32G32B32Float:
		return "R32G32B32_FLOAT"
	default:
		return "UNKNOWN"
	}
}

// CreateFlags change how a device is created.
type CreateFlags uint32

// Device creation flags.
const (
	// CreateDebug enables the validation layer.
	CreateDebug CreateFlags = 1 << iota
)

// PresentFlags change how a frame is presented.
type PresentFlags uint32

// SwapEffect tells what happens to the back buffer after Present.
type SwapEffect int

// Swap effects.
const (
	// SwapEffectDiscard leaves back buffer contents undefined after Present.
	SwapEffectDiscard SwapEffect = iota
	SwapEffectSequential
)

// ScalingMode tells how the back buffer is stretched onto the window.
type ScalingMode int

// Scaling modes.
const (
	ScalingUnspecified ScalingMode = iota
	ScalingCentered
	ScalingStretched
)

// BufferUsage describes what swap chain buffers are used for.
type BufferUsage uint32

// Swap chain buffer usages.
const (
	UsageRenderTargetOutput BufferUsage = 1 << iota
	UsageShaderInput
)

// Rational is a refresh rate. 0/0 means whatever the display uses.
type Rational struct {
	Numerator   uint32
	Denominator uint32
}

// ModeDesc describes a display mode. Zero width and height size the
// buffers to the window.
type ModeDesc struct {
	Width       uint32
	Height      uint32
	RefreshRate Rational
	Format      Format
	Scaling     ScalingMode
}

// SampleDesc describes multisampling.
type SampleDesc struct {
	Count   uint32
	Quality uint32
}

// SwapChainDesc describes a swap chain.
type SwapChainDesc struct {
	BufferDesc   ModeDesc
	SampleDesc   SampleDesc
	BufferUsage  BufferUsage
	BufferCount  uint32
	OutputWindow WindowHandle
	Windowed     bool
	SwapEffect   SwapEffect
	Flags        uint32
}

// DefaultSwapChainDesc returns the only swap chain configuration the
// core uses: sized to the window, BGRA8, no multisampling, one
// windowed buffer that is discarded on present.
func DefaultSwapChainDesc(window WindowHandle) SwapChainDesc {
	return SwapChainDesc{
		BufferDesc: ModeDesc{
			Width:  0,
			Height: 0,
			RefreshRate: Rational{
				Numerator:   0,
				Denominator: 0,
			},
			Format:  FormatB8G8R8A8Unorm,
			Scaling: ScalingUnspecified,
		},
		SampleDesc: SampleDesc{
			Count:   1,
			Quality: 0,
		},
		BufferUsage:  UsageRenderTargetOutput,
		BufferCount:  1,
		OutputWindow: window,
		Windowed:     true,
		SwapEffect:   SwapEffectDiscard,
		Flags:        0,
	}
}

// Texture2DDesc describes a texture.
type Texture2DDesc struct {
	Width  uint32
	Height uint32
	Format Format
}

// Usage tells how a resource is accessed.
type Usage int

// Resource usages.
const (
	UsageDefault Usage = iota
	// UsageImmutable resources are initialized at creation and
	// never written again.
	UsageImmutable
	UsageDynamic
)

// BindFlags tell where a resource can be bound in the pipeline.
type BindFlags uint32

// Bind flags.
const (
	BindVertexBuffer BindFlags = 1 << iota
	BindIndexBuffer
	BindConstantBuffer
)

// BufferDesc describes a buffer.
type BufferDesc struct {
	ByteWidth           uint32
	Usage               Usage
	BindFlags           BindFlags
	StructureByteStride uint32
}

// InputClassification tells whether an element advances per vertex
// or per instance.
type InputClassification int

// Input classifications.
const (
	PerVertexData InputClassification = iota
	PerInstanceData
)

// InputElementDesc describes one vertex attribute.
type InputElementDesc struct {
	SemanticName      string
	SemanticIndex     uint32
	Format            Format
	InputSlot         uint32
	AlignedByteOffset uint32
	Classification    InputClassification
}

// PrimitiveTopology tells how vertices form primitives.
type PrimitiveTopology int

// Primitive topologies.
const (
	TopologyUndefined PrimitiveTopology = iota
	TopologyTriangleList
	TopologyTriangleStrip
)

// Viewport maps normalized device coordinates to the render target.
type Viewport struct {
	TopLeftX float32
	TopLeftY float32
	Width    float32
	Height   float32
	MinDepth float32
	MaxDepth float32
}
