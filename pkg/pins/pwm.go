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

package pins

import (
	"github.com/binkynet/Gadgeteer/model"
)

// PwmDriver is implemented by backends of a PWM output.
type PwmDriver interface {
	// SetEnabled starts (with given values) or stops the output.
	SetEnabled(enabled bool, frequency, dutyCycle float64) error
	// SetValues changes frequency and duty cycle of an enabled output.
	SetValues(frequency, dutyCycle float64) error
	// Close releases the output.
	Close() error
}

// PwmOutput is the handle modules use to operate a PWM output.
type PwmOutput interface {
	// Enabled returns true when the output is generating pulses.
	Enabled() bool
	// SetEnabled starts or stops the output.
	SetEnabled(enabled bool) error
	// Frequency returns the configured frequency in Hz.
	Frequency() float64
	// DutyCycle returns the configured duty cycle [0..1].
	DutyCycle() float64
	// Set changes frequency and duty cycle. Values are applied to the
	// hardware only when the output is enabled.
	Set(frequency, dutyCycle float64) error
	// SetFrequency changes the frequency, keeping the duty cycle.
	SetFrequency(frequency float64) error
	// SetDutyCycle changes the duty cycle, keeping the frequency.
	SetDutyCycle(dutyCycle float64) error
	// Close releases the output.
	Close() error
}

type pwmOutput struct {
	driver    PwmDriver
	enabled   bool
	frequency float64
	dutyCycle float64
}

// NewPwmOutput wraps the given driver into a uniform handle.
func NewPwmOutput(driver PwmDriver) PwmOutput {
	return &pwmOutput{driver: driver}
}

func (p *pwmOutput) Enabled() bool {
	return p.enabled
}

func (p *pwmOutput) SetEnabled(enabled bool) error {
	if err := p.driver.SetEnabled(enabled, p.frequency, p.dutyCycle); err != nil {
		return maskAny(err)
	}
	p.enabled = enabled
	return nil
}

func (p *pwmOutput) Frequency() float64 {
	return p.frequency
}

func (p *pwmOutput) DutyCycle() float64 {
	return p.dutyCycle
}

func (p *pwmOutput) Set(frequency, dutyCycle float64) error {
	if dutyCycle < 0 || dutyCycle > 1 {
		return model.OutOfRange("duty cycle must be in 0..1 range, got %g", dutyCycle)
	}
	if frequency < 0 {
		return model.OutOfRange("frequency must be positive, got %g", frequency)
	}
	if p.enabled {
		if err := p.driver.SetValues(frequency, dutyCycle); err != nil {
			return maskAny(err)
		}
	}
	p.frequency = frequency
	p.dutyCycle = dutyCycle
	return nil
}

func (p *pwmOutput) SetFrequency(frequency float64) error {
	return p.Set(frequency, p.dutyCycle)
}

func (p *pwmOutput) SetDutyCycle(dutyCycle float64) error {
	return p.Set(p.frequency, dutyCycle)
}

func (p *pwmOutput) Close() error {
	if err := p.driver.Close(); err != nil {
		return maskAny(err)
	}
	return nil
}
