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

// Package indirect contains adapters that expose pins of secondary chips
// (GPIO expanders, ADCs, PWM controllers) as regular lines, and the
// tables that arbitrate lines shared between those chips.
package indirect

import (
	"context"

	"github.com/pkg/errors"

	"github.com/binkynet/Gadgeteer/pkg/pins"
)

var (
	maskAny = errors.WithStack
)

// GPIOExpander is a chip with a number of digital pins.
type GPIOExpander interface {
	// SetDriveMode sets the direction of a pin.
	SetDriveMode(pin int, mode pins.DriveMode) error
	// Read the level of a pin.
	Read(pin int) (bool, error)
	// Write the output level of a pin.
	Write(pin int, value bool) error
	// SubscribePin registers a callback for level changes of a pin,
	// delivered by the interrupt dispatcher of the chip.
	SubscribePin(pin int, cb func(value bool)) (cancel func(), err error)
}

// ADC is an analog to digital converter.
type ADC interface {
	// ReadProportion samples a channel, returning a value in [0..1].
	ReadProportion(channel int) (float64, error)
}

// PWMController is a chip with a number of PWM channels sharing one frequency.
type PWMController interface {
	// SetFrequency sets the frequency (Hz) of all channels.
	SetFrequency(hz int) error
	// SetDutyCycle sets the duty cycle [0..1] of a channel.
	SetDutyCycle(channel int, dutyCycle float64) error
	// TurnOn drives a channel fully on.
	TurnOn(channel int) error
	// TurnOff drives a channel fully off.
	TurnOff(channel int) error
}

// Channel addresses a line on an expander chip.
// Chips are numbered from 1; chip 0 means Pin is a native GPIO.
type Channel struct {
	Chip int
	Pin  int
}

// IsNative returns true when the channel is a native GPIO.
func (c Channel) IsNative() bool {
	return c.Chip == 0
}

// Chips resolves channels to expanders and native lines.
type Chips interface {
	// Expander returns the expander with given (1 based) number.
	Expander(chip int) (GPIOExpander, error)
	// OpenNative opens a native GPIO.
	OpenNative(ctx context.Context, pin int) (pins.DigitalDriver, error)
}

// SetInput switches the given line to Input.
func SetInput(ctx context.Context, chips Chips, c Channel) error {
	if c.IsNative() {
		d, err := chips.OpenNative(ctx, c.Pin)
		if err != nil {
			return maskAny(err)
		}
		defer d.Close()
		return maskAny(d.SetDriveMode(pins.Input))
	}
	e, err := chips.Expander(c.Chip)
	if err != nil {
		return maskAny(err)
	}
	return maskAny(e.SetDriveMode(c.Pin, pins.Input))
}

// SetOutput switches the given line to Output and drives it.
func SetOutput(ctx context.Context, chips Chips, c Channel, value bool) error {
	if c.IsNative() {
		d, err := chips.OpenNative(ctx, c.Pin)
		if err != nil {
			return maskAny(err)
		}
		defer d.Close()
		if err := d.SetDriveMode(pins.Output); err != nil {
			return maskAny(err)
		}
		return maskAny(d.WriteLevel(value))
	}
	e, err := chips.Expander(c.Chip)
	if err != nil {
		return maskAny(err)
	}
	if err := e.SetDriveMode(c.Pin, pins.Output); err != nil {
		return maskAny(err)
	}
	return maskAny(e.Write(c.Pin, value))
}
