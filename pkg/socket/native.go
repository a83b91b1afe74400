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

package socket

import (
	"strconv"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/metrics"
	"github.com/binkynet/Gadgeteer/pkg/pins"
)

var (
	// Total number of interfaces created by sockets
	createdCounters = metrics.MustRegisterCounterVec("socket",
		"interfaces_created_total",
		"Total number of interfaces created by sockets",
		"socket", "kind")
)

func recordCreated(socketNumber int, kind string) {
	createdCounters.WithLabelValues(strconv.Itoa(socketNumber), kind).Inc()
}

// unsupportedAnalog backs analog lines of sockets without an analog creator.
// The host has no analog inputs, so every access fails.
type unsupportedAnalog struct{}

func (unsupportedAnalog) MaxVoltage() float64 { return pins.MaxVoltage }

func (unsupportedAnalog) SetDriveMode(mode pins.DriveMode) error {
	if mode != pins.Input {
		return model.NotSupported("native analog output")
	}
	return nil
}

func (unsupportedAnalog) ReadVoltage() (float64, error) {
	return 0, model.NotSupported("native analog input")
}

func (unsupportedAnalog) WriteVoltage(float64) error {
	return model.NotSupported("native analog output")
}

func (unsupportedAnalog) Close() error { return nil }

// unsupportedPwm backs PWM outputs of sockets without a PWM creator.
type unsupportedPwm struct{}

func (unsupportedPwm) SetEnabled(bool, float64, float64) error {
	return model.NotSupported("native PWM")
}

func (unsupportedPwm) SetValues(float64, float64) error {
	return model.NotSupported("native PWM")
}

func (unsupportedPwm) Close() error { return nil }
