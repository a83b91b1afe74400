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

// AnalogDriver is implemented by backends of an analog line.
type AnalogDriver interface {
	// MaxVoltage returns the full scale voltage of the line.
	MaxVoltage() float64
	// SetDriveMode changes the direction of the line.
	SetDriveMode(mode DriveMode) error
	// ReadVoltage samples the line.
	ReadVoltage() (float64, error)
	// WriteVoltage drives the line.
	WriteVoltage(volts float64) error
	// Close releases the line.
	Close() error
}

// AnalogIO is the handle modules use to operate an analog line.
type AnalogIO interface {
	// MaxVoltage returns the full scale voltage of the line.
	MaxVoltage() float64
	// DriveMode returns the current direction of the line.
	DriveMode() DriveMode
	// SetDriveMode changes the direction of the line.
	SetDriveMode(mode DriveMode) error
	// ReadVoltage switches the line to Input and samples it.
	ReadVoltage() (float64, error)
	// WriteVoltage switches the line to Output and drives the given voltage.
	WriteVoltage(volts float64) error
	// ReadProportion returns the sampled voltage relative to MaxVoltage.
	ReadProportion() (float64, error)
	// WriteProportion drives the given fraction [0..1] of MaxVoltage.
	WriteProportion(p float64) error
	// Close releases the line.
	Close() error
}

type analogIO struct {
	driver  AnalogDriver
	mode    DriveMode
	modeSet bool
}

// NewAnalogIO wraps the given driver into a uniform handle.
func NewAnalogIO(driver AnalogDriver) AnalogIO {
	return &analogIO{driver: driver}
}

func (a *analogIO) MaxVoltage() float64 {
	return a.driver.MaxVoltage()
}

func (a *analogIO) DriveMode() DriveMode {
	return a.mode
}

func (a *analogIO) SetDriveMode(mode DriveMode) error {
	if err := a.driver.SetDriveMode(mode); err != nil {
		return maskAny(err)
	}
	a.mode = mode
	a.modeSet = true
	return nil
}

func (a *analogIO) ensureMode(mode DriveMode) error {
	if a.modeSet && a.mode == mode {
		return nil
	}
	return a.SetDriveMode(mode)
}

func (a *analogIO) ReadVoltage() (float64, error) {
	if err := a.ensureMode(Input); err != nil {
		return 0, err
	}
	v, err := a.driver.ReadVoltage()
	if err != nil {
		return 0, maskAny(err)
	}
	return v, nil
}

func (a *analogIO) WriteVoltage(volts float64) error {
	if max := a.driver.MaxVoltage(); volts < 0 || volts > max {
		return model.OutOfRange("voltage must be in 0..%g range, got %g", max, volts)
	}
	if err := a.ensureMode(Output); err != nil {
		return err
	}
	if err := a.driver.WriteVoltage(volts); err != nil {
		return maskAny(err)
	}
	return nil
}

func (a *analogIO) ReadProportion() (float64, error) {
	v, err := a.ReadVoltage()
	if err != nil {
		return 0, err
	}
	return v / a.driver.MaxVoltage(), nil
}

func (a *analogIO) WriteProportion(p float64) error {
	if p < 0 || p > 1 {
		return model.OutOfRange("proportion must be in 0..1 range, got %g", p)
	}
	return a.WriteVoltage(p * a.driver.MaxVoltage())
}

func (a *analogIO) Close() error {
	if err := a.driver.Close(); err != nil {
		return maskAny(err)
	}
	return nil
}
