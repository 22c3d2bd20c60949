// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"encoding/binary"
	"math"
)

// SliceUint32 reslices bytes into little endian uint32 words, the
// form SPIR-V bytecode is submitted in. Trailing bytes that do not
// fill a word are dropped.
func SliceUint32(data []byte) []uint32 {
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words
}

// Float32Bytes encodes floats as little endian bytes, the layout
// vertex data is uploaded in.
func Float32Bytes(values ...float32) []byte {
	data := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	return data
}

// BytesFloat32 decodes little endian floats, the inverse of Float32Bytes.
func BytesFloat32(data []byte) []float32 {
	values := make([]float32, len(data)/4)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return values
}
