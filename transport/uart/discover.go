// Copyright 2026 The go-ecuart Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package uart

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoDevicesFound is returned when no serial port looks like the EC link.
var ErrNoDevicesFound = errors.New("no EC serial port found")

// ECHardwareIDs are the ACPI hardware ids of the Surface serial hub that
// sits behind the EC UART.
var ECHardwareIDs = []string{"MSHW0084"}

// Confidence ranks how likely a port is the EC link.
type Confidence int

const (
	// Low means a built-in port without identifying data.
	Low Confidence = iota
	// Medium means the port is the conventional EC device name.
	Medium
	// High means its ACPI node identifies the EC.
	High
)

func (c Confidence) String() string {
	switch c {
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "low"
	}
}

// Port is one serial port candidate.
type Port struct {
	// Path is the device node, e.g. /dev/ttyS4.
	Path string
	Name string
	// Driver is the kernel driver bound to the port's parent device.
	Driver string
	// HardwareIDs are the ACPI ids of the port's firmware node and its
	// direct children.
	HardwareIDs []string
	USB         bool
	Confidence  Confidence
}

func (p Port) String() string {
	s := fmt.Sprintf("%s (confidence: %s", p.Path, p.Confidence)
	if p.Driver != "" {
		s += ", driver: " + p.Driver
	}
	if len(p.HardwareIDs) > 0 {
		s += ", acpi: " + strings.Join(p.HardwareIDs, ",")
	}
	return s + ")"
}

// DiscoverOptions configures Discover.
type DiscoverOptions struct {
	// SysRoot and DevRoot default to /sys and /dev.
	SysRoot string
	DevRoot string
	// IgnorePaths lists device paths to skip.
	IgnorePaths []string
	// IncludeUSB keeps USB serial adapters, which are never the EC.
	IncludeUSB bool
}

// Discover lists serial ports ordered by descending confidence.
func Discover(ctx context.Context, opts DiscoverOptions) ([]Port, error) {
	if opts.SysRoot == "" {
		opts.SysRoot = "/sys"
	}
	if opts.DevRoot == "" {
		opts.DevRoot = "/dev"
	}

	ports, err := sysfsPorts(ctx, opts)
	if err != nil {
		ports, err = globPorts(opts.DevRoot)
		if err != nil {
			return nil, err
		}
	}

	filtered := ports[:0]
	for _, p := range ports {
		if isPathIgnored(p.Path, opts.IgnorePaths) || (p.USB && !opts.IncludeUSB) {
			continue
		}
		p.Confidence = rank(p, opts.DevRoot)
		filtered = append(filtered, p)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Confidence != filtered[j].Confidence {
			return filtered[i].Confidence > filtered[j].Confidence
		}
		return filtered[i].Path < filtered[j].Path
	})
	if len(filtered) == 0 {
		return nil, ErrNoDevicesFound
	}
	return filtered, nil
}

// Detect returns the path of the most likely EC port. Only a High or
// Medium confidence port is accepted.
func Detect(ctx context.Context, opts DiscoverOptions) (string, error) {
	ports, err := Discover(ctx, opts)
	if err != nil {
		return "", err
	}
	if ports[0].Confidence < Medium {
		return "", fmt.Errorf("%w: best candidate %s", ErrNoDevicesFound, ports[0])
	}
	return ports[0].Path, nil
}

func rank(p Port, devRoot string) Confidence {
	for _, id := range p.HardwareIDs {
		for _, ec := range ECHardwareIDs {
			if strings.EqualFold(id, ec) {
				return High
			}
		}
	}
	if p.Path == filepath.Join(devRoot, filepath.Base(DefaultDevice)) {
		return Medium
	}
	return Low
}

// sysfsPorts walks class/tty and keeps entries backed by a real device.
func sysfsPorts(ctx context.Context, opts DiscoverOptions) ([]Port, error) {
	ttyDir := filepath.Join(opts.SysRoot, "class", "tty")
	entries, err := os.ReadDir(ttyDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", ttyDir, err)
	}

	var ports []Port
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if port, ok := sysfsPort(ttyDir, opts.DevRoot, entry.Name()); ok {
			ports = append(ports, port)
		}
	}
	return ports, nil
}

func sysfsPort(ttyDir, devRoot, name string) (Port, bool) {
	devicePath := filepath.Join(ttyDir, name, "device")
	resolved, err := filepath.EvalSymlinks(devicePath)
	if err != nil {
		// Virtual terminals and ptys have no device link.
		return Port{}, false
	}

	port := Port{
		Path: filepath.Join(devRoot, name),
		Name: name,
		USB:  strings.Contains(resolved, "/usb"),
	}
	if driver, err := filepath.EvalSymlinks(filepath.Join(resolved, "driver")); err == nil {
		port.Driver = filepath.Base(driver)
	}
	port.HardwareIDs = firmwareIDs(filepath.Join(resolved, "firmware_node"))

	// 8250 registers its full set of legacy ports; those without a
	// resource are not wired to anything.
	if port.Driver == "serial8250" && len(port.HardwareIDs) == 0 {
		return Port{}, false
	}
	return port, true
}

// firmwareIDs reads the ACPI hid of node and of its direct child nodes.
func firmwareIDs(node string) []string {
	var ids []string
	if id := readTrimmed(filepath.Join(node, "hid")); id != "" {
		ids = append(ids, id)
	}
	children, err := os.ReadDir(node)
	if err != nil {
		return ids
	}
	for _, child := range children {
		if !strings.Contains(child.Name(), ":") {
			continue
		}
		if id := readTrimmed(filepath.Join(node, child.Name(), "hid")); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func readTrimmed(path string) string {
	data, err := os.ReadFile(path) // #nosec G304 -- sysfs attribute
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// globPorts lists device nodes without metadata, for systems without sysfs.
func globPorts(devRoot string) ([]Port, error) {
	var ports []Port
	for _, pattern := range []string{"ttyS*", "ttyUSB*", "ttyACM*", "ttyAMA*"} {
		matches, err := filepath.Glob(filepath.Join(devRoot, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		for _, path := range matches {
			name := filepath.Base(path)
			ports = append(ports, Port{
				Path: path,
				Name: name,
				USB:  strings.HasPrefix(name, "ttyUSB") || strings.HasPrefix(name, "ttyACM"),
			})
		}
	}
	return ports, nil
}

func isPathIgnored(path string, ignored []string) bool {
	for _, p := range ignored {
		if filepath.Clean(p) == filepath.Clean(path) {
			return true
		}
	}
	return false
}
