// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package assets_test

import (
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/gobuffalo/packr"

	"github.com/koru3d/frame/assets"
	"github.com/koru3d/frame/core"
	"github.com/koru3d/frame/utility/kar"
)

var spirvMagic = []byte{0x03, 0x02, 0x23, 0x07}

const vertexSource = `@vertex
fn main(@location(0) pos: vec2<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(pos.x, pos.y, 0.0, 1.0);
}
`

func writeDir(c *qt.C, files map[string]string) string {
	dir := c.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		c.Assert(os.MkdirAll(filepath.Dir(path), 0755), qt.IsNil)
		c.Assert(ioutil.WriteFile(path, []byte(content), 0644), qt.IsNil)
	}
	return dir
}

func TestDir(t *testing.T) {
	c := qt.New(t)
	dir := writeDir(c, map[string]string{
		"VertexShader.spv":        "vs",
		"PixelShader.spv":         "ps",
		"extra/triangle.vert.spv": "vs2",
	})

	src, err := assets.Open(dir)
	c.Assert(err, qt.IsNil)
	defer src.Close()

	names, err := src.List()
	c.Assert(err, qt.IsNil)
	c.Assert(names, qt.DeepEquals, []string{"PixelShader.spv", "VertexShader.spv", "extra/triangle.vert.spv"})

	data, err := src.ReadFile("extra/triangle.vert.spv")
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "vs2")

	_, err = src.ReadFile("missing.spv")
	c.Assert(errors.Is(err, assets.ErrNotFound), qt.IsTrue)
}

func TestArchive(t *testing.T) {
	c := qt.New(t)
	builder, err := kar.NewBuilder(kar.Header{Author: "test", Version: 1})
	c.Assert(err, qt.IsNil)
	defer builder.Close()
	c.Assert(builder.Add("VertexShader.spv", strings.NewReader("vertex blob")), qt.IsNil)
	c.Assert(builder.Add("PixelShader.spv", strings.NewReader("pixel blob")), qt.IsNil)

	path := filepath.Join(c.TempDir(), "shaders.kar")
	f, err := os.Create(path)
	c.Assert(err, qt.IsNil)
	_, err = builder.WriteTo(f)
	c.Assert(err, qt.IsNil)
	c.Assert(f.Close(), qt.IsNil)

	src, err := assets.Open(path)
	c.Assert(err, qt.IsNil)
	defer src.Close()

	set, err := assets.LoadShaderSet(src, core.DefaultConfiguration().Assets)
	c.Assert(err, qt.IsNil)
	c.Assert(string(set.Vertex), qt.Equals, "vertex blob")
	c.Assert(string(set.Pixel), qt.Equals, "pixel blob")

	_, err = src.ReadFile("missing.spv")
	c.Assert(errors.Is(err, assets.ErrNotFound), qt.IsTrue)
}

func TestOpenNotAnArchive(t *testing.T) {
	c := qt.New(t)
	dir := writeDir(c, map[string]string{"shaders.kar": "definitely not an archive"})
	_, err := assets.Open(filepath.Join(dir, "shaders.kar"))
	c.Assert(errors.Is(err, kar.ErrFileFormat), qt.IsTrue)

	_, err = assets.Open(filepath.Join(dir, "nothing.kar"))
	c.Assert(os.IsNotExist(err), qt.IsTrue)
}

func TestLoadShaderSetByStage(t *testing.T) {
	c := qt.New(t)
	src := assets.Dir(writeDir(c, map[string]string{
		"b.frag.spv": "ps",
		"a.vert.spv": "vs",
		"readme.txt": "not a shader",
	}))

	set, err := assets.LoadShaderSet(src, core.AssetConfiguration{})
	c.Assert(err, qt.IsNil)
	c.Assert(set, qt.DeepEquals, core.ShaderSet{Vertex: []byte("vs"), Pixel: []byte("ps")})
}

func TestLoadShaderSetMissing(t *testing.T) {
	c := qt.New(t)
	src := assets.Dir(writeDir(c, map[string]string{"a.vert.spv": "vs"}))

	_, err := assets.LoadShaderSet(src, core.AssetConfiguration{})
	c.Assert(errors.Is(err, assets.ErrNotFound), qt.IsTrue)

	_, err = assets.LoadShaderSet(src, core.AssetConfiguration{VertexShader: "a.vert.spv", PixelShader: "b.frag.spv"})
	c.Assert(err, qt.ErrorMatches, "loading pixel shader: asset not found: .*")
}

func TestShaderTypeOf(t *testing.T) {
	c := qt.New(t)
	c.Assert(assets.ShaderTypeOf("VertexShader.spv"), qt.Equals, core.VertexShaderType)
	c.Assert(assets.ShaderTypeOf("dir/PixelShader.spv"), qt.Equals, core.PixelShaderType)
	c.Assert(assets.ShaderTypeOf("triangle.vert.spv"), qt.Equals, core.VertexShaderType)
	c.Assert(assets.ShaderTypeOf("triangle.frag.spv"), qt.Equals, core.PixelShaderType)
	c.Assert(assets.ShaderTypeOf("triangle.comp.spv"), qt.Equals, core.UnknownShaderType)
	c.Assert(assets.ShaderTypeOf("VertexShader.wgsl"), qt.Equals, core.UnknownShaderType)
}

func TestBoxCompilesSources(t *testing.T) {
	c := qt.New(t)
	box := packr.NewBox("./nothing-on-disk")
	box.AddString("VertexShader.wgsl", vertexSource)
	box.AddBytes("PixelShader.spv", []byte("precompiled"))
	src := assets.NewBox(box)

	data, err := src.ReadFile("VertexShader.spv")
	c.Assert(err, qt.IsNil)
	c.Assert(data[:4], qt.DeepEquals, spirvMagic)

	data, err = src.ReadFile("PixelShader.spv")
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "precompiled")

	_, err = src.ReadFile("Missing.spv")
	c.Assert(errors.Is(err, assets.ErrNotFound), qt.IsTrue)
}

func TestBoxCompileError(t *testing.T) {
	c := qt.New(t)
	box := packr.NewBox("./nothing-on-disk")
	box.AddString("Broken.wgsl", "fn main( {")

	_, err := assets.NewBox(box).ReadFile("Broken.spv")
	c.Assert(err, qt.ErrorMatches, "compiling Broken.wgsl: .*")
}

func TestEmbedded(t *testing.T) {
	c := qt.New(t)
	src, err := assets.Open("")
	c.Assert(err, qt.IsNil)

	set, err := assets.LoadShaderSet(src, core.DefaultConfiguration().Assets)
	c.Assert(err, qt.IsNil)
	c.Assert(set.Vertex[:4], qt.DeepEquals, spirvMagic)
	c.Assert(set.Pixel[:4], qt.DeepEquals, spirvMagic)
}
