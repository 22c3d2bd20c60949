// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

// WindowHandle is an opaque platform window handle. It is handed to
// the driver as the presentation target and never looked into.
type WindowHandle uintptr

// Releaser is anything that holds driver memory and must be freed.
type Releaser interface {
	// Release frees the object. It must be called exactly once.
	Release()
}

// Driver is the entry point into a graphics API implementation.
type Driver interface {
	// CreateDeviceAndSwapChain creates the logical device, a swap chain
	// presenting into desc.OutputWindow and the immediate context in one
	// call. On failure the returned handles may be partially set and
	// must still be released by the caller.
	CreateDeviceAndSwapChain(desc SwapChainDesc, flags CreateFlags) (Device, SwapChain, Context, error)

	// InfoQueue returns the process wide validation message queue,
	// or nil if the driver has no validation layer.
	InfoQueue() InfoQueue
}

// Device creates resources. Returned errors are, or wrap, a Result.
type Device interface {
	Releaser

	// CreateRenderTargetView creates a view for drawing into res.
	CreateRenderTargetView(res Texture2D) (RenderTargetView, error)

	// CreateBuffer creates a buffer, optionally filled with initial.
	CreateBuffer(desc BufferDesc, initial []byte) (Buffer, error)

	// CreateVertexShader creates a vertex stage from compiled bytecode.
	CreateVertexShader(bytecode []byte) (VertexShader, error)

	// CreatePixelShader creates a pixel stage from compiled bytecode.
	CreatePixelShader(bytecode []byte) (PixelShader, error)

	// CreateInputLayout describes how vertex buffers feed the vertex
	// shader whose bytecode is given.
	CreateInputLayout(elements []InputElementDesc, bytecode []byte) (InputLayout, error)

	// RemovedReason returns why the device was removed, nil if it
	// was not.
	RemovedReason() error
}

// SwapChain presents rendered frames to a window.
type SwapChain interface {
	Releaser

	// Buffer returns a new reference to back buffer i.
	Buffer(i int) (Texture2D, error)

	// Present shows the back buffer. With syncInterval 1 it blocks
	// until the next vertical blank.
	Present(syncInterval uint32, flags PresentFlags) error
}

// Context issues rendering commands. Binding calls never fail, misuse
// is reported through the validation layer. It must only be used by
// one goroutine at a time.
type Context interface {
	Releaser

	ClearRenderTargetView(rtv RenderTargetView, color [4]float32)
	SetVertexBuffers(startSlot uint32, buffers []Buffer, strides, offsets []uint32)
	SetInputLayout(layout InputLayout)
	SetPrimitiveTopology(topology PrimitiveTopology)
	SetVertexShader(vs VertexShader)
	SetPixelShader(ps PixelShader)

	// SetRenderTargets binds the output targets. Depth/stencil is not
	// supported, so there is no view for it.
	SetRenderTargets(rtvs []RenderTargetView)
	SetViewports(viewports []Viewport)

	// Draw draws vertexCount non-indexed vertices.
	Draw(vertexCount, startVertex uint32) error
}

// Texture2D is a two dimensional image resource.
type Texture2D interface {
	Releaser
	Desc() Texture2DDesc
}

// RenderTargetView is a texture viewed as a draw destination.
type RenderTargetView interface {
	Releaser
}

// Buffer is a linear GPU memory resource.
type Buffer interface {
	Releaser
	Desc() BufferDesc
}

// VertexShader is the vertex pipeline stage.
type VertexShader interface {
	Releaser
}

// PixelShader is the pixel pipeline stage.
type PixelShader interface {
	Releaser
}

// InputLayout maps vertex buffer contents to shader inputs.
type InputLayout interface {
	Releaser
}

// ShaderType represents the type of shader thats loaded
type ShaderType int

// Identifies shader objects with their types
const (
	VertexShaderType ShaderType = iota
	PixelShaderType
	UnknownShaderType
)

func (t ShaderType) String() string {
	switch t {
	case VertexShaderType:
		return "vertex"
	case PixelShaderType:
		return "pixel"
	default:
		return "unknown"
	}
}

// ShaderSet holds the compiled shader blobs used for drawing. The
// contents are opaque, only the driver knows how to read them.
type ShaderSet struct {
	Vertex []byte
	Pixel  []byte
}
