// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Kind classifies a graphics failure.
type Kind int

// Failure kinds reported by Graphics.
const (
	// KindHResult is a failed driver call carrying a result code.
	KindHResult Kind = iota

	// KindDeviceCreation is a failure while building the device,
	// the swap chain or the render target.
	KindDeviceCreation

	// KindDeviceRemoved means the device is gone and has to be
	// rebuilt from scratch. Code holds the removal reason.
	KindDeviceRemoved

	// KindInfoOnly is a call that succeeded while the validation
	// layer reported problems. It carries no code.
	KindInfoOnly
)

func (k Kind) String() string {
	switch k {
	case KindHResult:
		return "Graphics HRESULT Failure"
	case KindDeviceCreation:
		return "Graphics Device Creation Failure"
	case KindDeviceRemoved:
		return "Graphics Device Removed Failure"
	case KindInfoOnly:
		return "Graphics Info-Only Failure"
	default:
		return fmt.Sprintf("Graphics Failure (%d)", int(k))
	}
}

// Error is a graphics failure with the origin of the raising call
// and the validation messages collected while the call ran.
type Error struct {
	Kind Kind

	// Code is the driver result, zero for KindInfoOnly.
	Code Result

	// Op names the driver call that failed.
	Op string

	// Info holds validation layer messages in emission order.
	Info []string

	File string
	Line int
}

// newError builds an Error whose origin is the function skip frames
// up the stack, 0 being newError itself.
func newError(kind Kind, op string, code Result, info []string, skip int) *Error {
	e := &Error{
		Kind: kind,
		Code: code,
		Op:   op,
		Info: info,
	}
	if _, file, line, ok := runtime.Caller(skip); ok {
		e.File = file
		e.Line = line
	}
	return e
}

// Error renders the full multi-section report.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteByte('\n')
	if e.Kind != KindInfoOnly {
		fmt.Fprintf(&b, "[Error Code] 0x%08X (%d)\n", uint32(e.Code), uint32(e.Code))
		fmt.Fprintf(&b, "[Error String] %s\n", e.Code.Name())
		fmt.Fprintf(&b, "[Description] %s\n", e.Code.Description())
	}
	if info := e.InfoString(); info != "" {
		b.WriteString("[Error Info]\n")
		b.WriteString(info)
		b.WriteString("\n\n")
	}
	b.WriteString(e.OriginString())
	return b.String()
}

// InfoString joins the collected messages, one per line.
func (e *Error) InfoString() string {
	return strings.Join(e.Info, "\n")
}

// OriginString renders the operation and source location trailer.
func (e *Error) OriginString() string {
	var b strings.Builder
	if e.Op != "" {
		fmt.Fprintf(&b, "[Operation] %s\n", e.Op)
	}
	fmt.Fprintf(&b, "[File] %s\n[Line] %d", e.File, e.Line)
	return b.String()
}

// Unwrap exposes the result code so errors.Is and errors.As
// can match on it.
func (e *Error) Unwrap() error {
	if e.Code == ResultOK {
		return nil
	}
	return e.Code
}

// KindOf returns the Kind of err and whether err is a graphics Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsDeviceRemoved reports whether err means the device was lost.
// The only way forward is destroying Graphics and creating a new one.
func IsDeviceRemoved(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindDeviceRemoved
}

// DeviceLost reports whether err means the device has to be created
// again. Besides a removal found at present, it matches any failure
// whose driver result is ResultDeviceRemoved, such as a draw call on
// a device that was already gone.
func DeviceLost(err error) bool {
	return IsDeviceRemoved(err) || errors.Is(err, ResultDeviceRemoved)
}
