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

package indirect

import (
	"sync"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/pins"
)

// Digital is a digital line on a GPIO expander.
type Digital struct {
	expander GPIOExpander
	pin      int

	mutex  sync.Mutex
	cancel func()
}

var _ pins.DigitalDriver = &Digital{}

// NewDigital creates a line for the given pin of the expander.
func NewDigital(expander GPIOExpander, pin int) *Digital {
	return &Digital{expander: expander, pin: pin}
}

// SetDriveMode sets the direction bit of the pin.
func (d *Digital) SetDriveMode(mode pins.DriveMode) error {
	return maskAny(d.expander.SetDriveMode(d.pin, mode))
}

// ReadLevel reads the input port bit of the pin.
func (d *Digital) ReadLevel() (bool, error) {
	v, err := d.expander.Read(d.pin)
	if err != nil {
		return false, maskAny(err)
	}
	return v, nil
}

// WriteLevel writes the output port bit of the pin.
func (d *Digital) WriteLevel(value bool) error {
	return maskAny(d.expander.Write(d.pin, value))
}

// EnableInterrupt subscribes to changes of the pin.
func (d *Digital) EnableInterrupt(notify func(value bool)) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	cancel, err := d.expander.SubscribePin(d.pin, notify)
	if err != nil {
		return maskAny(err)
	}
	d.cancel = cancel
	return nil
}

// DisableInterrupt unsubscribes from changes of the pin.
func (d *Digital) DisableInterrupt() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	return nil
}

// Close unsubscribes. The expander itself stays open.
func (d *Digital) Close() error {
	return d.DisableInterrupt()
}

// Analog is a read-only analog line on an ADC channel.
type Analog struct {
	adc     ADC
	channel int
}

var _ pins.AnalogDriver = &Analog{}

// NewAnalog creates a line for the given ADC channel.
func NewAnalog(adc ADC, channel int) *Analog {
	return &Analog{adc: adc, channel: channel}
}

// MaxVoltage returns the full scale voltage.
func (a *Analog) MaxVoltage() float64 {
	return pins.MaxVoltage
}

// SetDriveMode accepts Input only.
func (a *Analog) SetDriveMode(mode pins.DriveMode) error {
	if mode != pins.Input {
		return model.NotSupported("ADC channel %d cannot be an output", a.channel)
	}
	return nil
}

// ReadVoltage samples the channel.
func (a *Analog) ReadVoltage() (float64, error) {
	p, err := a.adc.ReadProportion(a.channel)
	if err != nil {
		return 0, maskAny(err)
	}
	return p * a.MaxVoltage(), nil
}

// WriteVoltage is not supported.
func (a *Analog) WriteVoltage(float64) error {
	return model.NotSupported("ADC channel %d cannot be written", a.channel)
}

func (a *Analog) Close() error {
	return nil
}

// Pwm is a PWM output on a channel of a PWM controller.
type Pwm struct {
	controller PWMController
	channel    int
}

var _ pins.PwmDriver = &Pwm{}

// NewPwm creates an output for the given controller channel.
func NewPwm(controller PWMController, channel int) *Pwm {
	return &Pwm{controller: controller, channel: channel}
}

// SetEnabled applies the given values or drives the channel fully off.
func (p *Pwm) SetEnabled(enabled bool, frequency, dutyCycle float64) error {
	if enabled {
		return p.SetValues(frequency, dutyCycle)
	}
	return maskAny(p.controller.TurnOff(p.channel))
}

// SetValues sets the controller frequency and the channel duty cycle.
// The frequency is shared by all channels of the controller.
func (p *Pwm) SetValues(frequency, dutyCycle float64) error {
	if err := p.controller.SetFrequency(int(frequency)); err != nil {
		return maskAny(err)
	}
	if dutyCycle != 1.0 {
		return maskAny(p.controller.SetDutyCycle(p.channel, dutyCycle))
	}
	return maskAny(p.controller.TurnOn(p.channel))
}

func (p *Pwm) Close() error {
	return nil
}
