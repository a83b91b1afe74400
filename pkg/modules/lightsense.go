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

package modules

import (
	"context"

	"github.com/binkynet/Gadgeteer/pkg/pins"
	"github.com/binkynet/Gadgeteer/pkg/socket"
)

// LightSense is an ambient light sensor.
type LightSense struct {
	input pins.AnalogIO
}

var _ Sensor = &LightSense{}

// NewLightSense creates a light sensor on the given socket.
func NewLightSense(ctx context.Context, s socket.Socket) (*LightSense, error) {
	input, err := s.CreateAnalogIO(ctx, socket.Pin3)
	if err != nil {
		return nil, maskAny(err)
	}
	return &LightSense{input: input}, nil
}

// Reading returns the light level as a fraction of full scale.
func (l *LightSense) Reading() (float64, error) {
	p, err := l.input.ReadProportion()
	if err != nil {
		return 0, maskAny(err)
	}
	return p, nil
}

// Readings returns the light level in percent.
func (l *LightSense) Readings(ctx context.Context) ([]Reading, error) {
	p, err := l.Reading()
	if err != nil {
		return nil, err
	}
	return []Reading{{Quantity: "light", Value: p * 100, Unit: "%"}}, nil
}

func (l *LightSense) Close() error {
	return maskAny(l.input.Close())
}
