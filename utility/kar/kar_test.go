// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar_test

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/koru3d/frame/utility/kar"
)

var (
	testString1 = "idunvovkjnreovmegihjbrqlkmfrjnb"
	testString2 = "idunvovkjnreovmsdvwrvnervnreegihjbrqlkmfrjnb"
)

func newBuilder(c *qt.C) *kar.Builder {
	builder, err := kar.NewBuilder(kar.Header{
		Author:      "devblok",
		DateCreated: time.Now().Unix(),
		Version:     1,
	})
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { builder.Close() })
	return builder
}

// build writes an archive holding files, in the order given.
func build(c *qt.C, files ...string) []byte {
	builder := newBuilder(c)
	for i := 0; i < len(files); i += 2 {
		c.Assert(builder.Add(files[i], strings.NewReader(files[i+1])), qt.IsNil)
	}
	var buf bytes.Buffer
	written, err := builder.WriteTo(&buf)
	c.Assert(err, qt.IsNil)
	c.Assert(written, qt.Equals, int64(buf.Len()))
	return buf.Bytes()
}

func TestCreateAndRead(t *testing.T) {
	c := qt.New(t)
	data := build(c, "test", testString1, "test2", testString2)
	c.Assert(string(data[:kar.MagicLength]), qt.Equals, kar.Magic)

	ar, err := kar.Open(bytes.NewReader(data))
	c.Assert(err, qt.IsNil)

	f, err := ar.Open("test2")
	c.Assert(err, qt.IsNil)
	c.Assert(f.Size(), qt.Equals, int64(len(testString2)))

	result := make([]byte, len(testString2))
	_, err = io.ReadFull(f, result)
	c.Assert(err, qt.IsNil)
	c.Assert(string(result), qt.Equals, testString2)
}

func TestCreateAndReadAll(t *testing.T) {
	c := qt.New(t)
	ar, err := kar.Open(bytes.NewReader(build(c, "test", testString1, "test2", testString2)))
	c.Assert(err, qt.IsNil)

	f, err := ar.ReadAll("test")
	c.Assert(err, qt.IsNil)
	c.Assert(string(f), qt.Equals, testString1)

	f, err = ar.ReadAll("test2")
	c.Assert(err, qt.IsNil)
	c.Assert(string(f), qt.Equals, testString2)
}

func TestHeader(t *testing.T) {
	c := qt.New(t)
	ar, err := kar.Open(bytes.NewReader(build(c, "b", testString1, "a", testString2)))
	c.Assert(err, qt.IsNil)

	header := ar.Header()
	c.Assert(header.Author, qt.Equals, "devblok")
	c.Assert(header.Version, qt.Equals, int64(1))
	c.Assert(header.Index, qt.HasLen, 2)
	c.Assert(header.Index[0].Offset, qt.Equals, int64(0))
	c.Assert(header.Index[1].Offset, qt.Equals, header.Index[0].CompressedSize)
	c.Assert(ar.List(), qt.DeepEquals, []string{"a", "b"})
}

func TestEmptyFile(t *testing.T) {
	c := qt.New(t)
	ar, err := kar.Open(bytes.NewReader(build(c, "empty", "", "full", testString1)))
	c.Assert(err, qt.IsNil)

	f, err := ar.ReadAll("empty")
	c.Assert(err, qt.IsNil)
	c.Assert(f, qt.HasLen, 0)

	f, err = ar.ReadAll("full")
	c.Assert(err, qt.IsNil)
	c.Assert(string(f), qt.Equals, testString1)
}

func TestAddDuplicate(t *testing.T) {
	c := qt.New(t)
	builder := newBuilder(c)
	c.Assert(builder.Add("test", strings.NewReader(testString1)), qt.IsNil)
	err := builder.Add("test", strings.NewReader(testString2))
	c.Assert(errors.Is(err, kar.ErrExists), qt.IsTrue)
	c.Assert(builder.Len(), qt.Equals, 1)
}

func TestAddConcurrently(t *testing.T) {
	c := qt.New(t)
	builder := newBuilder(c)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("file%02d", i)
			if err := builder.Add(name, strings.NewReader(strings.Repeat(name, 100))); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()
	c.Assert(builder.Len(), qt.Equals, 16)

	var buf bytes.Buffer
	_, err := builder.WriteTo(&buf)
	c.Assert(err, qt.IsNil)

	ar, err := kar.Open(bytes.NewReader(buf.Bytes()))
	c.Assert(err, qt.IsNil)
	c.Assert(ar.List(), qt.HasLen, 16)
	data, err := ar.ReadAll("file07")
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, strings.Repeat("file07", 100))
}
