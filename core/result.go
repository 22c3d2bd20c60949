// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"errors"
	"fmt"
)

// Result is a driver status code laid out like an HRESULT:
// the high bit set means failure. A failed Result is an error.
type Result uint32

// Known result codes. Drivers translate their native status
// codes into these so that failures render the same way
// regardless of the backend.
const (
	ResultOK                  Result = 0x00000000
	ResultNotImpl             Result = 0x80004001
	ResultFail                Result = 0x80004005
	ResultOutOfMemory         Result = 0x8007000E
	ResultInvalidArg          Result = 0x80070057
	ResultInvalidCall         Result = 0x887A0001
	ResultNotFound            Result = 0x887A0002
	ResultUnsupported         Result = 0x887A0004
	ResultDeviceRemoved       Result = 0x887A0005
	ResultDeviceHung          Result = 0x887A0006
	ResultDeviceReset         Result = 0x887A0007
	ResultWasStillDrawing     Result = 0x887A000A
	ResultDriverInternalError Result = 0x887A0020
	ResultFileNotFound        Result = 0x887C0002
)

type resultInfo struct {
	name        string
	description string
}

var resultTable = map[Result]resultInfo{
	ResultOK: {"S_OK", "The operation completed successfully."},
	ResultNotImpl: {"E_NOTIMPL",
		"The requested operation is not implemented by the driver."},
	ResultFail: {"E_FAIL",
		"Attempted to create a device with the debug layer enabled and the layer is not installed, or an unspecified error occurred."},
	ResultOutOfMemory: {"E_OUTOFMEMORY",
		"The driver could not allocate sufficient memory to complete the call."},
	ResultInvalidArg: {"E_INVALIDARG",
		"An invalid parameter was passed to the returning function."},
	ResultInvalidCall: {"DXGI_ERROR_INVALID_CALL",
		"The application provided invalid parameter data; this must be debugged and fixed before the application is released."},
	ResultNotFound: {"DXGI_ERROR_NOT_FOUND",
		"When calling an enumeration method, the enumeration ordinal passed in is larger than the number of items."},
	ResultUnsupported: {"DXGI_ERROR_UNSUPPORTED",
		"The requested functionality is not supported by the device or the driver."},
	ResultDeviceRemoved: {"DXGI_ERROR_DEVICE_REMOVED",
		"The video card has been physically removed from the system, or a driver upgrade for the video card has occurred."},
	ResultDeviceHung: {"DXGI_ERROR_DEVICE_HUNG",
		"The application's device failed due to badly formed commands sent by the application. This is a design-time issue that should be investigated and fixed."},
	ResultDeviceReset: {"DXGI_ERROR_DEVICE_RESET",
		"The device failed due to a badly formed command. This is a run-time issue; the application should destroy and recreate the device."},
	ResultWasStillDrawing: {"DXGI_ERROR_WAS_STILL_DRAWING",
		"The GPU was busy at the moment when a call was made to perform an operation, and did not execute or schedule the operation."},
	ResultDriverInternalError: {"DXGI_ERROR_DRIVER_INTERNAL_ERROR",
		"The driver encountered a problem and was put into the device removed state."},
	ResultFileNotFound: {"D3D11_ERROR_FILE_NOT_FOUND",
		"The file was not found."},
}

// Failed reports whether r denotes a failure.
func (r Result) Failed() bool {
	return r&0x80000000 != 0
}

// Name returns the symbolic name of the code, the short
// driver error string.
func (r Result) Name() string {
	if info, ok := resultTable[r]; ok {
		return info.name
	}
	return fmt.Sprintf("Unknown error 0x%08X", uint32(r))
}

// Description returns the long human readable explanation
// of the code, or an empty string for unknown codes.
func (r Result) Description() string {
	return resultTable[r].description
}

func (r Result) String() string {
	return r.Name()
}

// Error implements error.
func (r Result) Error() string {
	return r.Name()
}

// ResultOf extracts the Result carried by err. A nil error is
// ResultOK, an error without a Result is ResultFail.
func ResultOf(err error) Result {
	if err == nil {
		return ResultOK
	}
	var r Result
	if errors.As(err, &r) {
		return r
	}
	return ResultFail
}
