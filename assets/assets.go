// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package assets finds compiled shader blobs. They are read from a
// directory, a kar archive or the shader sources embedded into the
// binary, which are compiled from WGSL when first read.
package assets

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobuffalo/packr"
	"github.com/gogpu/naga"
	"golang.org/x/exp/mmap"

	"github.com/koru3d/frame/core"
	"github.com/koru3d/frame/utility/kar"
)

// ErrNotFound is returned when a source does not hold a file.
var ErrNotFound = errors.New("asset not found")

const (
	shaderSuffix = ".spv"
	sourceSuffix = ".wgsl"
)

// Source is a named collection of blobs.
type Source interface {
	// ReadFile returns the contents of name.
	ReadFile(name string) ([]byte, error)

	// List returns the names of all files in the source, sorted.
	List() ([]string, error)

	// Close frees what the source holds open.
	Close() error
}

// Open picks the source for path: the embedded shaders when path is
// empty, a directory when path is one, a kar archive otherwise.
func Open(path string) (Source, error) {
	if path == "" {
		return Embedded(), nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return Dir(path), nil
	}
	return OpenArchive(path)
}

// Dir is a Source reading files below a directory.
type Dir string

// ReadFile implements Source.
func (d Dir) ReadFile(name string) ([]byte, error) {
	data, err := ioutil.ReadFile(filepath.Join(string(d), filepath.FromSlash(name)))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, name, string(d))
	}
	return data, err
}

// List implements Source. Names use forward slashes.
func (d Dir) List() ([]string, error) {
	var names []string
	err := filepath.Walk(string(d), func(path string, f os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if f.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(string(d), path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Close implements Source.
func (Dir) Close() error {
	return nil
}

// OpenArchive memory maps a kar archive.
func OpenArchive(path string) (*Archive, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	ar, err := kar.Open(r)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return &Archive{mapped: r, archive: ar}, nil
}

// Archive is a Source over a memory mapped kar archive.
type Archive struct {
	mapped  *mmap.ReaderAt
	archive *kar.Archive
}

// ReadFile implements Source.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	data, err := a.archive.ReadAll(name)
	if errors.Is(err, kar.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return data, err
}

// List implements Source.
func (a *Archive) List() ([]string, error) {
	return a.archive.List(), nil
}

// Close implements Source.
func (a *Archive) Close() error {
	return a.mapped.Close()
}

// Box is a Source over a packr box. Files named like a compiled
// shader that are missing are compiled from the WGSL source of the
// same name.
type Box struct {
	box packr.Box
}

// NewBox wraps a packr box.
func NewBox(box packr.Box) *Box {
	return &Box{box: box}
}

// Embedded returns the shader sources built into the binary.
func Embedded() *Box {
	return NewBox(packr.NewBox("../shaders"))
}

// ReadFile implements Source.
func (b *Box) ReadFile(name string) ([]byte, error) {
	if data, err := b.box.Find(name); err == nil {
		return data, nil
	}
	if strings.HasSuffix(name, shaderSuffix) {
		source := strings.TrimSuffix(name, shaderSuffix) + sourceSuffix
		if text, err := b.box.FindString(source); err == nil {
			return CompileWGSL(source, text)
		}
	}
	return nil, fmt.Errorf("%w: %s in box %s", ErrNotFound, name, b.box.Path)
}

// CompileWGSL compiles WGSL source to SPIR-V. name is used in errors.
func CompileWGSL(name, source string) ([]byte, error) {
	spirv, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("compiling %s: %w", name, err)
	}
	return spirv, nil
}

// List implements Source.
func (b *Box) List() ([]string, error) {
	names := b.box.List()
	sort.Strings(names)
	return names, nil
}

// Close implements Source.
func (*Box) Close() error {
	return nil
}

// ShaderTypeOf tells the stage of a shader from its file name, which
// is either the stage name like "VertexShader.spv" or carries the
// stage as an extension like "triangle.vert.spv".
func ShaderTypeOf(name string) core.ShaderType {
	base := strings.TrimSuffix(filepath.Base(name), shaderSuffix)
	if base == filepath.Base(name) {
		return core.UnknownShaderType
	}
	switch {
	case base == "VertexShader", strings.HasSuffix(base, ".vert"):
		return core.VertexShaderType
	case base == "PixelShader", strings.HasSuffix(base, ".frag"), strings.HasSuffix(base, ".pixel"):
		return core.PixelShaderType
	default:
		return core.UnknownShaderType
	}
}

// LoadShaderSet reads the vertex and the pixel shader named by cfg.
// An empty name picks the first shader of that stage in the source.
func LoadShaderSet(src Source, cfg core.AssetConfiguration) (core.ShaderSet, error) {
	vertex, pixel := cfg.VertexShader, cfg.PixelShader
	if vertex == "" || pixel == "" {
		names, err := src.List()
		if err != nil {
			return core.ShaderSet{}, err
		}
		for _, name := range names {
			switch ShaderTypeOf(name) {
			case core.VertexShaderType:
				if vertex == "" {
					vertex = name
				}
			case core.PixelShaderType:
				if pixel == "" {
					pixel = name
				}
			}
		}
		if vertex == "" || pixel == "" {
			return core.ShaderSet{}, fmt.Errorf("%w: no vertex and pixel shader pair", ErrNotFound)
		}
	}

	var set core.ShaderSet
	var err error
	if set.Vertex, err = src.ReadFile(vertex); err != nil {
		return core.ShaderSet{}, fmt.Errorf("loading %s shader: %w", core.VertexShaderType, err)
	}
	if set.Pixel, err = src.ReadFile(pixel); err != nil {
		return core.ShaderSet{}, fmt.Errorf("loading %s shader: %w", core.PixelShaderType, err)
	}
	return set, nil
}
