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

// Package modules contains Gadgeteer modules that are built on sockets.
package modules

import (
	"context"

	"github.com/pkg/errors"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/socket"
)

var (
	maskAny = errors.WithStack
)

const manufacturerGHI = "GHI Electronics, LLC"

// Reading is a single measured quantity.
type Reading struct {
	// Name of the quantity (temperature, humidity, ...)
	Quantity string  `json:"quantity"`
	Value    float64 `json:"value"`
	Unit     string  `json:"unit,omitempty"`
}

// Sensor is a module that can be polled for readings.
type Sensor interface {
	socket.Module
	// Readings samples all quantities of the module.
	Readings(ctx context.Context) ([]Reading, error)
}

var definitions = map[model.ModuleType]socket.ModuleDefinition{
	model.ModuleTypeButton: {
		Name: "Button", Manufacturer: manufacturerGHI, RequiredSockets: 1,
		Create: func(ctx context.Context, sockets []socket.Socket) (socket.Module, error) {
			m, err := NewButton(ctx, sockets[0])
			if err != nil {
				return nil, err
			}
			return m, nil
		},
	},
	model.ModuleTypeLED7C: {
		Name: "LED7C", Manufacturer: manufacturerGHI, RequiredSockets: 1,
		Create: func(ctx context.Context, sockets []socket.Socket) (socket.Module, error) {
			m, err := NewLED7C(ctx, sockets[0])
			if err != nil {
				return nil, err
			}
			return m, nil
		},
	},
	model.ModuleTypeLightSense: {
		Name: "LightSense", Manufacturer: manufacturerGHI, RequiredSockets: 1,
		Create: func(ctx context.Context, sockets []socket.Socket) (socket.Module, error) {
			m, err := NewLightSense(ctx, sockets[0])
			if err != nil {
				return nil, err
			}
			return m, nil
		},
	},
	model.ModuleTypeTempHumidSI70: {
		Name: "TempHumid SI70", Manufacturer: manufacturerGHI, RequiredSockets: 1,
		Create: func(ctx context.Context, sockets []socket.Socket) (socket.Module, error) {
			m, err := NewTempHumidSI70(ctx, sockets[0])
			if err != nil {
				return nil, err
			}
			return m, nil
		},
	},
	model.ModuleTypeRotaryH1: {
		Name: "RotaryH1", Manufacturer: manufacturerGHI, RequiredSockets: 1,
		Create: func(ctx context.Context, sockets []socket.Socket) (socket.Module, error) {
			m, err := NewRotaryH1(ctx, sockets[0])
			if err != nil {
				return nil, err
			}
			return m, nil
		},
	},
}

// Definition returns the definition of the given module type.
func Definition(moduleType model.ModuleType) (socket.ModuleDefinition, error) {
	def, found := definitions[moduleType]
	if !found {
		return socket.ModuleDefinition{}, errors.Wrapf(model.InvalidModuleDefinitionError, "unknown module type '%s'", string(moduleType))
	}
	return def, nil
}

// Create a module of given type on the given sockets.
func Create(ctx context.Context, moduleType model.ModuleType, sockets ...socket.Socket) (socket.Module, error) {
	def, err := Definition(moduleType)
	if err != nil {
		return nil, err
	}
	m, err := socket.CreateModule(ctx, def, sockets...)
	if err != nil {
		return nil, maskAny(err)
	}
	return m, nil
}

func boolValue(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
