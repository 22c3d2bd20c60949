// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package device describes the rendering adapters a driver can
// create devices on. The drivers live in the subpackages.
package device

// PhysicalDeviceInfo describes available physical properties of a rendering device
type PhysicalDeviceInfo struct {
	ID            int
	VendorID      int
	DriverVersion int
	Name          string
	Invalid       bool
	Extensions    []string
	Layers        []string
	Memory        uint64
}

// Enumerator is implemented by drivers that can list the
// adapters available to them.
type Enumerator interface {
	PhysicalDevices() []PhysicalDeviceInfo
}
