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

package model

import "github.com/pkg/errors"

// Board holds configuration data for the mainboard the worker runs on.
type Board struct {
	// Type of the board
	Type BoardType `yaml:"type"`
}

// BoardType identifies a type of mainboard (HAT).
type BoardType string

const (
	BoardTypeFEZCream   BoardType = "fezcream"
	BoardTypeFEZHAT     BoardType = "fezhat"
	BoardTypeFEZUtility BoardType = "fezutility"
)

// Validate the given type, returning nil on ok,
// or an error upon validation issues.
func (t BoardType) Validate() error {
	switch t {
	case BoardTypeFEZCream, BoardTypeFEZHAT, BoardTypeFEZUtility:
		return nil
	default:
		return errors.Wrapf(ValidationError, "invalid board type '%s'", string(t))
	}
}

// Validate the given configuration, returning nil on ok,
// or an error upon validation issues.
func (b Board) Validate() error {
	if err := b.Type.Validate(); err != nil {
		return maskAny(err)
	}
	return nil
}

// ModuleType identifies a type of Gadgeteer module.
type ModuleType string

const (
	ModuleTypeButton        ModuleType = "button"
	ModuleTypeLED7C         ModuleType = "led7c"
	ModuleTypeLightSense    ModuleType = "lightsense"
	ModuleTypeTempHumidSI70 ModuleType = "temphumidsi70"
	ModuleTypeRotaryH1      ModuleType = "rotaryh1"
)

// Validate the given type, returning nil on ok,
// or an error upon validation issues.
func (t ModuleType) Validate() error {
	switch t {
	case ModuleTypeButton, ModuleTypeLED7C, ModuleTypeLightSense, ModuleTypeTempHumidSI70, ModuleTypeRotaryH1:
		return nil
	default:
		return errors.Wrapf(ValidationError, "invalid module type '%s'", string(t))
	}
}

// ModuleBinding binds a module to one or more sockets of the mainboard.
type ModuleBinding struct {
	// Unique identifier of the module (instance)
	ID string `yaml:"id"`
	// Type of the module
	Type ModuleType `yaml:"type"`
	// Numbers of the mainboard sockets the module is plugged into
	Sockets []int `yaml:"sockets"`
}

// Validate the given configuration, returning nil on ok,
// or an error upon validation issues.
func (m ModuleBinding) Validate() error {
	if m.ID == "" {
		return errors.Wrap(ValidationError, "ID is empty")
	}
	if err := m.Type.Validate(); err != nil {
		return errors.Wrapf(ValidationError, "Error in Type of '%s': %s", m.ID, err.Error())
	}
	if len(m.Sockets) == 0 {
		return errors.Wrapf(ValidationError, "Sockets of '%s' is empty", m.ID)
	}
	for _, s := range m.Sockets {
		if s < 1 {
			return errors.Wrapf(ValidationError, "Socket %d of '%s' is invalid", s, m.ID)
		}
	}
	return nil
}
