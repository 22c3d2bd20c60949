// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar_test

import (
	"bytes"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"
	"golang.org/x/exp/mmap"

	"github.com/koru3d/frame/utility/kar"
)

func writeArchive(c *qt.C) string {
	path := filepath.Join(c.TempDir(), "opentest.kar")
	data := build(c, "test/test1.txt", "this is a test", "test/test2.txt", "this is another test")
	c.Assert(ioutil.WriteFile(path, data, 0644), qt.IsNil)
	return path
}

func TestOpen(t *testing.T) {
	c := qt.New(t)
	r, err := os.Open(writeArchive(c))
	c.Assert(err, qt.IsNil)
	defer r.Close()

	ar, err := kar.Open(r)
	c.Assert(err, qt.IsNil)
	c.Assert(ar.List(), qt.DeepEquals, []string{"test/test1.txt", "test/test2.txt"})
}

func TestOpenmmap(t *testing.T) {
	c := qt.New(t)
	r, err := mmap.Open(writeArchive(c))
	c.Assert(err, qt.IsNil)
	defer r.Close()

	ar, err := kar.Open(r)
	c.Assert(err, qt.IsNil)

	f, err := ar.ReadAll("test/test2.txt")
	c.Assert(err, qt.IsNil)
	c.Assert(string(f), qt.Equals, "this is another test")
}

func TestOpenAndReadConcurrently(t *testing.T) {
	c := qt.New(t)
	r, err := mmap.Open(writeArchive(c))
	c.Assert(err, qt.IsNil)
	defer r.Close()
	ar, err := kar.Open(r)
	c.Assert(err, qt.IsNil)

	expected := map[string]string{
		"test/test1.txt": "this is a test",
		"test/test2.txt": "this is another test",
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		for name, want := range expected {
			wg.Add(1)
			go func(name, want string) {
				defer wg.Done()
				got, err := ar.ReadAll(name)
				if err != nil || string(got) != want {
					t.Errorf("reading %s: %q, %v", name, got, err)
				}
			}(name, want)
		}
	}
	wg.Wait()
}

func TestOpenNotFound(t *testing.T) {
	c := qt.New(t)
	r, err := os.Open(writeArchive(c))
	c.Assert(err, qt.IsNil)
	defer r.Close()
	ar, err := kar.Open(r)
	c.Assert(err, qt.IsNil)

	_, err = ar.Open("test/missing.txt")
	c.Assert(errors.Is(err, kar.ErrNotFound), qt.IsTrue)
	_, err = ar.ReadAll("test/missing.txt")
	c.Assert(errors.Is(err, kar.ErrNotFound), qt.IsTrue)
}

func TestOpenCorrupted(t *testing.T) {
	c := qt.New(t)
	valid := build(c, "test", testString1)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"magic", append([]byte("TAR\x00"), valid[4:]...)},
		{"truncated header", valid[:kar.MagicLength+kar.HeaderSizeNumberLength+2]},
		{"zero header size", append([]byte(kar.Magic), make([]byte, 32)...)},
	}
	for _, test := range tests {
		c.Run(test.name, func(c *qt.C) {
			_, err := kar.Open(bytes.NewReader(test.data))
			c.Assert(errors.Is(err, kar.ErrFileFormat), qt.IsTrue, qt.Commentf("%v", err))
		})
	}
}
