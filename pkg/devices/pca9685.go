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

	"github.com/dustin/go-humanize"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/bus"
	"github.com/binkynet/Gadgeteer/pkg/indirect"
	"github.com/binkynet/Gadgeteer/pkg/pins"
)

const (
	pca9685Mode1Reg     = 0x00
	pca9685Mode2Reg     = 0x01
	pca9685Led0OnLReg   = 0x06
	pca9685PrescaleReg  = 0xFE
	pca9685ModeSleep    = 0x10
	pca9685ModeAutoInc  = 0x20
	pca9685ModeOutdrv   = 0x04
	pca9685ModeOutneHiZ = 0x02

	pca9685Channels     = 16
	pca9685FullScale    = 0x1000
	pca9685OscillatorHz = 25000000

	// PCA9685MinFrequency and PCA9685MaxFrequency bound the PWM frequency in Hz.
	PCA9685MinFrequency = 40
	PCA9685MaxFrequency = 1500
)

// PCA9685Address returns the I2C address for the given address pin levels.
func PCA9685Address(a0, a1, a2, a3, a4, a5 bool) uint16 {
	return 0x40 | boolBit(a0, 0) | boolBit(a1, 1) | boolBit(a2, 2) |
		boolBit(a3, 3) | boolBit(a4, 4) | boolBit(a5, 5)
}

// PCA9685 is a 16 channel, 12 bit PWM controller.
type PCA9685 struct {
	deps         Dependencies
	dev          bus.I2CDevice
	outputEnable pins.DigitalIO

	mutex  sync.Mutex
	closed bool
}

var _ indirect.PWMController = &PCA9685{}

// NewPCA9685 initializes the controller on the given device.
// outputEnable is the optional active low OE line.
func NewPCA9685(dev bus.I2CDevice, outputEnable pins.DigitalIO, deps Dependencies) (*PCA9685, error) {
	d := &PCA9685{
		deps:         deps,
		dev:          dev,
		outputEnable: outputEnable,
	}
	if outputEnable != nil {
		if err := outputEnable.Write(false); err != nil {
			return nil, maskAny(err)
		}
	}
	deps.active()
	if err := bus.WriteRegister(dev, pca9685Mode1Reg, pca9685ModeAutoInc); err != nil {
		return nil, maskAny(err)
	}
	if err := bus.WriteRegister(dev, pca9685Mode2Reg, pca9685ModeOutdrv|pca9685ModeOutneHiZ); err != nil {
		return nil, maskAny(err)
	}
	return d, nil
}

// Frequency returns the current PWM frequency in Hz.
func (d *PCA9685) Frequency() (int, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.closed {
		return 0, maskAny(ClosedError)
	}
	d.deps.active()
	prescale, err := bus.ReadRegister(d.dev, pca9685PrescaleReg)
	if err != nil {
		return 0, maskAny(err)
	}
	return int(float64(pca9685OscillatorHz/(4096*(int(prescale)+1))) / 0.9), nil
}

// SetFrequency sets the PWM frequency of all channels.
// The chip has to sleep while the prescaler changes.
func (d *PCA9685) SetFrequency(hz int) error {
	if hz < PCA9685MinFrequency || hz > PCA9685MaxFrequency {
		return model.OutOfRange("frequency must be in %d..%d range, got %d", PCA9685MinFrequency, PCA9685MaxFrequency, hz)
	}
	// Compensate for oscillator inaccuracy
	hz = hz * 10 / 9

	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.closed {
		return maskAny(ClosedError)
	}
	d.deps.active()
	mode, err := bus.ReadRegister(d.dev, pca9685Mode1Reg)
	if err != nil {
		return maskAny(err)
	}
	if err := bus.WriteRegister(d.dev, pca9685Mode1Reg, mode|pca9685ModeSleep); err != nil {
		return maskAny(err)
	}
	prescale := byte(pca9685OscillatorHz/(4096*hz) - 1)
	d.deps.Log.Debug().
		Str("frequency", humanize.SI(float64(hz), "Hz")).
		Uint8("prescale", prescale).
		Msg("Set PCA9685 frequency")
	if err := bus.WriteRegister(d.dev, pca9685PrescaleReg, prescale); err != nil {
		return maskAny(err)
	}
	if err := bus.WriteRegister(d.dev, pca9685Mode1Reg, mode); err != nil {
		return maskAny(err)
	}
	return nil
}

// SetOutputEnabled drives the OE line.
func (d *PCA9685) SetOutputEnabled(enabled bool) error {
	if d.outputEnable == nil {
		return model.NotSupported("no output enable line")
	}
	return maskAny(d.outputEnable.Write(!enabled))
}

// SetChannel sets the on and off tick of a channel.
// A value of 4096 sets the full on/off bit.
func (d *PCA9685) SetChannel(channel int, on, off uint16) error {
	if channel < 0 || channel >= pca9685Channels {
		return model.OutOfRange("channel must be in 0..15 range, got %d", channel)
	}
	if on > pca9685FullScale {
		return model.OutOfRange("on must be in 0..4096 range, got %d", on)
	}
	if off > pca9685FullScale {
		return model.OutOfRange("off must be in 0..4096 range, got %d", off)
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.closed {
		return maskAny(ClosedError)
	}
	d.deps.active()
	reg := byte(pca9685Led0OnLReg + 4*channel)
	if err := bus.WriteRegisters(d.dev, reg, []byte{
		byte(on), byte(on >> 8),
		byte(off), byte(off >> 8),
	}); err != nil {
		return maskAny(err)
	}
	return nil
}

// SetDutyCycle sets the fraction of each period that the channel is high.
func (d *PCA9685) SetDutyCycle(channel int, dutyCycle float64) error {
	switch {
	case dutyCycle < 0 || dutyCycle > 1:
		return model.OutOfRange("duty cycle must be in 0..1 range, got %g", dutyCycle)
	case dutyCycle == 1:
		return d.TurnOn(channel)
	case dutyCycle == 0:
		return d.TurnOff(channel)
	default:
		return d.SetChannel(channel, 0, uint16(4096*dutyCycle))
	}
}

// TurnOn drives the channel fully on.
func (d *PCA9685) TurnOn(channel int) error {
	return d.SetChannel(channel, pca9685FullScale, 0)
}

// TurnOff drives the channel fully off.
func (d *PCA9685) TurnOff(channel int) error {
	return d.SetChannel(channel, 0, pca9685FullScale)
}

// Close the device and the OE line.
func (d *PCA9685) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if d.outputEnable != nil {
		d.outputEnable.Close()
	}
	return maskAny(d.dev.Close())
}
