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

	"github.com/pkg/errors"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/bus"
	"github.com/binkynet/Gadgeteer/pkg/indirect"
	"github.com/binkynet/Gadgeteer/pkg/pins"
)

const (
	pca9535InputPort0Reg  = 0x00
	pca9535InputPort1Reg  = 0x01
	pca9535OutputPort0Reg = 0x02
	pca9535OutputPort1Reg = 0x03
	pca9535ConfigPort0Reg = 0x06
	pca9535ConfigPort1Reg = 0x07
)

// PCA9535Address returns the I2C address for the given address pin levels.
func PCA9535Address(a0, a1, a2 bool) uint16 {
	return 0x20 | boolBit(a0, 0) | boolBit(a1, 1) | boolBit(a2, 2)
}

// PCA9535 is a 16 bit GPIO expander.
// Pins are numbered 0-7 (port 0) and 10-17 (port 1).
type PCA9535 struct {
	deps Dependencies
	dev  bus.I2CDevice

	mutex       sync.Mutex
	closed      bool
	out         [2]byte
	config      [2]byte
	in          [2]byte
	interrupt   pins.DigitalIO
	cancelIntr  func() error
	lastSubID   int
	subscribers map[int]pinSubscriber
}

type pinSubscriber struct {
	pin int
	cb  func(value bool)
}

var _ indirect.GPIOExpander = &PCA9535{}

// NewPCA9535 creates a driver for the expander on the given device.
// When interrupt is not nil, its falling edges trigger a read of both
// input ports and dispatch of changed pins to subscribers.
func NewPCA9535(dev bus.I2CDevice, interrupt pins.DigitalIO, deps Dependencies) (*PCA9535, error) {
	d := &PCA9535{
		deps:        deps,
		dev:         dev,
		out:         [2]byte{0xFF, 0xFF},
		config:      [2]byte{0xFF, 0xFF},
		interrupt:   interrupt,
		subscribers: make(map[int]pinSubscriber),
	}
	in, err := d.readInputs()
	if err != nil {
		return nil, err
	}
	d.in = in
	if interrupt != nil {
		if err := interrupt.SetDriveMode(pins.Input); err != nil {
			return nil, maskAny(err)
		}
		interrupt.SetInterruptEdge(pins.FallingEdge)
		cancel, err := interrupt.Subscribe(func(pins.ValueChange) { d.onInterrupt() })
		if err != nil {
			return nil, maskAny(err)
		}
		d.cancelIntr = cancel
	}
	return d, nil
}

// pinMask returns the port index and bit mask of a pin.
func pca9535PinMask(pin int) (int, byte, error) {
	switch {
	case pin >= 0 && pin <= 7:
		return 0, 1 << uint(pin), nil
	case pin >= 10 && pin <= 17:
		return 1, 1 << uint(pin-10), nil
	default:
		return 0, 0, model.OutOfRange("pin must be in 0-7 or 10-17 range, got %d", pin)
	}
}

// SetDriveMode sets the direction of a pin.
func (d *PCA9535) SetDriveMode(pin int, mode pins.DriveMode) error {
	port, mask, err := pca9535PinMask(pin)
	if err != nil {
		return err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.closed {
		return maskAny(ClosedError)
	}
	if mode == pins.Input {
		d.config[port] |= mask
	} else {
		d.config[port] &^= mask
	}
	return d.writeRegister(pca9535ConfigPort0Reg+byte(port), d.config[port])
}

// Read the input level of a pin.
func (d *PCA9535) Read(pin int) (bool, error) {
	port, mask, err := pca9535PinMask(pin)
	if err != nil {
		return false, err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.closed {
		return false, maskAny(ClosedError)
	}
	d.deps.active()
	v, err := bus.ReadRegister(d.dev, pca9535InputPort0Reg+byte(port))
	if err != nil {
		return false, maskAny(err)
	}
	return v&mask != 0, nil
}

// Write the output level of a pin.
func (d *PCA9535) Write(pin int, value bool) error {
	port, mask, err := pca9535PinMask(pin)
	if err != nil {
		return err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.closed {
		return maskAny(ClosedError)
	}
	if value {
		d.out[port] |= mask
	} else {
		d.out[port] &^= mask
	}
	return d.writeRegister(pca9535OutputPort0Reg+byte(port), d.out[port])
}

// SubscribePin registers a callback for changes of the given pin.
func (d *PCA9535) SubscribePin(pin int, cb func(value bool)) (func(), error) {
	if _, _, err := pca9535PinMask(pin); err != nil {
		return nil, err
	}
	if d.interrupt == nil {
		return nil, model.NotSupported("expander has no interrupt line")
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.lastSubID++
	id := d.lastSubID
	d.subscribers[id] = pinSubscriber{pin: pin, cb: cb}
	return func() {
		d.mutex.Lock()
		defer d.mutex.Unlock()
		delete(d.subscribers, id)
	}, nil
}

// onInterrupt reads both input ports and notifies subscribers of changed pins.
func (d *PCA9535) onInterrupt() {
	d.mutex.Lock()
	if d.closed {
		d.mutex.Unlock()
		return
	}
	in, err := d.readInputs()
	if err != nil {
		d.mutex.Unlock()
		d.deps.Log.Warn().Err(err).Msg("Failed to read inputs after interrupt")
		return
	}
	type change struct {
		pin   int
		value bool
	}
	var changes []change
	for port := 0; port < 2; port++ {
		diff := in[port] ^ d.in[port]
		for bit := 0; bit < 8; bit++ {
			if diff&(1<<uint(bit)) != 0 {
				changes = append(changes, change{pin: port*10 + bit, value: in[port]&(1<<uint(bit)) != 0})
			}
		}
	}
	d.in = in
	var calls []func()
	for _, c := range changes {
		for _, s := range d.subscribers {
			if s.pin == c.pin {
				cb, value := s.cb, c.value
				calls = append(calls, func() { cb(value) })
			}
		}
	}
	d.mutex.Unlock()

	for _, call := range calls {
		call()
	}
}

// Close stops interrupt handling and closes the device.
func (d *PCA9535) Close() error {
	d.mutex.Lock()
	if d.closed {
		d.mutex.Unlock()
		return nil
	}
	d.closed = true
	d.mutex.Unlock()

	var result error
	if d.interrupt != nil {
		if d.cancelIntr != nil {
			d.cancelIntr()
		}
		if err := d.interrupt.Close(); err != nil {
			result = maskAny(err)
		}
	}
	if err := d.dev.Close(); err != nil && result == nil {
		result = maskAny(err)
	}
	return result
}

func (d *PCA9535) readInputs() ([2]byte, error) {
	var result [2]byte
	d.deps.active()
	for port := 0; port < 2; port++ {
		v, err := bus.ReadRegister(d.dev, pca9535InputPort0Reg+byte(port))
		if err != nil {
			return result, errors.Wrapf(err, "input port %d", port)
		}
		result[port] = v
	}
	return result, nil
}

func (d *PCA9535) writeRegister(reg, value byte) error {
	d.deps.active()
	if err := bus.WriteRegister(d.dev, reg, value); err != nil {
		return maskAny(err)
	}
	return nil
}
