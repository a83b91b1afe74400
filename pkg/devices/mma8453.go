// Copyright 2024 Ewout Prangsma
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
//
// Author Ewout Prangsma
//

package devices

import (
	"sync"

	"github.com/binkynet/Gadgeteer/pkg/bus"
)

const (
	mma8453OutXMsbReg = 0x01
	mma8453Ctrl1Reg   = 0x2A
	mma8453Active     = 0x01
)

// MMA8453Address returns the I2C address for the given SA0 level.
func MMA8453Address(sa0 bool) uint16 {
	return 0x1C | boolBit(sa0, 0)
}

// Acceleration along the 3 axes in g.
type Acceleration struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// MMA8453 is a 3 axis, 10 bit accelerometer.
type MMA8453 struct {
	deps Dependencies
	dev  bus.I2CDevice

	mutex  sync.Mutex
	closed bool
}

// NewMMA8453 switches the accelerometer on the given device to active mode.
func NewMMA8453(dev bus.I2CDevice, deps Dependencies) (*MMA8453, error) {
	deps.active()
	if err := bus.WriteRegister(dev, mma8453Ctrl1Reg, mma8453Active); err != nil {
		return nil, maskAny(err)
	}
	return &MMA8453{deps: deps, dev: dev}, nil
}

// Acceleration reads all 3 axes in a single burst.
func (d *MMA8453) Acceleration() (Acceleration, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.closed {
		return Acceleration{}, maskAny(ClosedError)
	}
	d.deps.active()
	raw, err := bus.ReadRegisters(d.dev, mma8453OutXMsbReg, 6)
	if err != nil {
		return Acceleration{}, maskAny(err)
	}
	return Acceleration{
		X: mma8453Normalize(raw[0], raw[1]),
		Y: mma8453Normalize(raw[2], raw[3]),
		Z: mma8453Normalize(raw[4], raw[5]),
	}, nil
}

// mma8453Normalize converts a left aligned 10 bit two's complement sample.
func mma8453Normalize(msb, lsb byte) float64 {
	v := int(msb)<<2 | int(lsb)>>6
	if v > 511 {
		v -= 1024
	}
	return float64(v) / 512.0
}

// Close the device.
func (d *MMA8453) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return maskAny(d.dev.Close())
}
