// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command korucli prints the adapters a driver can use as JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/koru3d/frame/device"
	"github.com/koru3d/frame/device/soft"
	"github.com/koru3d/frame/device/vulkan"
)

func main() {
	driver := flag.String("driver", "vulkan", "driver to list adapters of, vulkan or soft")
	indent := flag.Bool("indent", false, "indent the output")
	flag.Parse()

	enum, err := enumerator(*driver)
	if err != nil {
		log.WithError(err).Fatal("selecting driver")
	}
	if err := printDevices(os.Stdout, enum, *indent); err != nil {
		log.WithError(err).Fatal("printing adapters")
	}
}

func enumerator(name string) (device.Enumerator, error) {
	switch name {
	case "vulkan":
		return vulkan.New(), nil
	case "soft":
		return soft.New(), nil
	default:
		return nil, fmt.Errorf("unknown driver %q", name)
	}
}

func printDevices(w io.Writer, enum device.Enumerator, indent bool) error {
	devices := enum.PhysicalDevices()
	if devices == nil {
		devices = []device.PhysicalDeviceInfo{}
	}
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(devices)
}
