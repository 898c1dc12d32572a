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

package ecuart

import (
	"fmt"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
)

// Target classes
const (
	TargetBattery = 0x02 // battery and adapter methods
	TargetBase    = 0x11 // detachable base and lid
)

// Request codes
const (
	codeSTA  = 0x01
	codeBIX  = 0x02
	codeBST  = 0x03
	codePSR  = 0x0D
	codeGBOS = 0x0D
	codeLock = 0x06
	codeFree = 0x07
)

// Request is one logical EC command.
type Request struct {
	TargetClass byte
	InstanceID  byte
	RequestCode byte
	// ExpectsResponse is false for commands the EC only acknowledges.
	ExpectsResponse bool
}

func (r Request) String() string {
	return fmt.Sprintf("tc=0x%02X iid=0x%02X rc=0x%02X", r.TargetClass, r.InstanceID, r.RequestCode)
}

// Command binds a request to the layout of its response payload.
type Command struct {
	Name        string
	Description string
	Layout      Layout
	Request     Request
}

// Validate checks the command definition.
func (c Command) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: command without name", ErrInvalidParameter)
	}
	if !c.Request.ExpectsResponse && len(c.Layout) > 0 {
		return fmt.Errorf("%w: command %q has a layout but expects no response", ErrInvalidParameter, c.Name)
	}
	if err := c.Layout.Validate(); err != nil {
		return fmt.Errorf("command %q: %w", c.Name, err)
	}
	return nil
}

var registry = xsync.NewMapOf[string, Command]()

// Register adds a command to the catalog. Names are unique.
func Register(cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	if _, loaded := registry.LoadOrStore(cmd.Name, cmd); loaded {
		return fmt.Errorf("%w: command %q already registered", ErrInvalidParameter, cmd.Name)
	}
	return nil
}

// Lookup returns the named command from the catalog.
func Lookup(name string) (Command, error) {
	cmd, ok := registry.Load(name)
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	return cmd, nil
}

// Commands returns every registered command sorted by name.
func Commands() []Command {
	cmds := make([]Command, 0, registry.Size())
	registry.Range(func(_ string, cmd Command) bool {
		cmds = append(cmds, cmd)
		return true
	})
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// Names returns the sorted names of every registered command.
func Names() []string {
	cmds := Commands()
	names := make([]string, len(cmds))
	for i, cmd := range cmds {
		names[i] = cmd.Name
	}
	return names
}

// BaseStatus queries the detachable base state (lid0.GBOS).
func BaseStatus() Command {
	return Command{
		Name:        "lid0.gbos",
		Description: "base status",
		Request:     Request{TargetClass: TargetBase, InstanceID: 0x00, RequestCode: codeGBOS, ExpectsResponse: true},
		Layout:      Layout{UintField("Base Status", 0, 1)},
	}
}

// PowerSource queries whether the adapter is supplying power (adpN._PSR).
func PowerSource(adapter uint8) Command {
	return Command{
		Name:        fmt.Sprintf("adp%d._psr", adapter),
		Description: "power source",
		Request:     Request{TargetClass: TargetBattery, InstanceID: adapter, RequestCode: codePSR, ExpectsResponse: true},
		Layout:      Layout{UintField("Power Source", 0, 4)},
	}
}

// BatteryPresence queries the ACPI _STA word of a battery.
func BatteryPresence(battery uint8) Command {
	return Command{
		Name:        fmt.Sprintf("bat%d._sta", battery),
		Description: "battery status",
		Request:     Request{TargetClass: TargetBattery, InstanceID: battery, RequestCode: codeSTA, ExpectsResponse: true},
		Layout:      Layout{UintField("Battery Status", 0, 4)},
	}
}

// BatteryState queries the ACPI _BST package of a battery.
func BatteryState(battery uint8) Command {
	return Command{
		Name:        fmt.Sprintf("bat%d._bst", battery),
		Description: "battery state",
		Request:     Request{TargetClass: TargetBattery, InstanceID: battery, RequestCode: codeBST, ExpectsResponse: true},
		Layout: Layout{
			UintField(FieldState, 0, 4),
			UintField(FieldPresentRate, 4, 4),
			UintField(FieldRemainingCapacity, 8, 4),
			UintField(FieldPresentVoltage, 12, 4),
		},
	}
}

// BatteryInfo queries the ACPI _BIX package of a battery.
func BatteryInfo(battery uint8) Command {
	names := []string{
		"Power Unit",
		"Design Capacity",
		FieldLastFullChargeCapacity,
		"Technology",
		"Design Voltage",
		"Design Capacity of Warning",
		"Design Capacity of Low",
		"Cycle Count",
		"Measurement Accuracy",
		"Max Sampling Time",
		"Min Sampling Time",
		"Max Averaging Interval",
		"Min Averaging Interval",
		"Capacity Granularity 1",
		"Capacity Granularity 2",
	}

	layout := Layout{UintField("Revision", 0, 1)}
	for i, name := range names {
		layout = append(layout, UintField(name, 1+4*i, 4))
	}
	layout = append(layout,
		StringField("Model Number", 61, 21),
		StringField("Serial Number", 82, 11),
		StringField("Type", 93, 5),
		StringField("OEM Information", 98, 21),
	)

	return Command{
		Name:        fmt.Sprintf("bat%d._bix", battery),
		Description: "battery information",
		Request:     Request{TargetClass: TargetBattery, InstanceID: battery, RequestCode: codeBIX, ExpectsResponse: true},
		Layout:      layout,
	}
}

// BaseLock locks or unlocks the detachable base latch. The EC acknowledges
// but sends no response message.
func BaseLock(lock bool) Command {
	name, code := "base.unlock", byte(codeFree)
	if lock {
		name, code = "base.lock", byte(codeLock)
	}
	return Command{
		Name:        name,
		Description: "base latch " + name[len("base."):],
		Request:     Request{TargetClass: TargetBase, InstanceID: 0x00, RequestCode: code},
	}
}

func init() {
	builtin := []Command{
		BaseStatus(),
		PowerSource(1),
		BatteryPresence(1), BatteryState(1), BatteryInfo(1),
		BatteryPresence(2), BatteryState(2), BatteryInfo(2),
		BaseLock(true), BaseLock(false),
	}
	for _, cmd := range builtin {
		if err := Register(cmd); err != nil {
			panic(err)
		}
	}
}
