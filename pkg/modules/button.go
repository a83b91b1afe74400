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

	aerr "github.com/ewoutp/go-aggregate-error"

	"github.com/binkynet/Gadgeteer/pkg/pins"
	"github.com/binkynet/Gadgeteer/pkg/socket"
)

// Button is a push button with a LED.
// The input (pin 3) is low while the button is pressed.
type Button struct {
	input pins.DigitalIO
	led   pins.DigitalIO
}

var _ Sensor = &Button{}

// NewButton creates a button on the given socket.
func NewButton(ctx context.Context, s socket.Socket) (*Button, error) {
	if err := s.EnsureTypeIsSupported(socket.TypeX); err != nil {
		return nil, maskAny(err)
	}
	led, err := s.CreateDigitalOutput(ctx, socket.Pin4, false)
	if err != nil {
		return nil, maskAny(err)
	}
	input, err := s.CreateDigitalInterrupt(ctx, socket.Pin3, pins.BothEdges)
	if err != nil {
		led.Close()
		return nil, maskAny(err)
	}
	return &Button{input: input, led: led}, nil
}

// IsPressed samples the button.
func (b *Button) IsPressed() (bool, error) {
	v, err := b.input.Read()
	if err != nil {
		return false, maskAny(err)
	}
	return !v, nil
}

// Subscribe registers a callback for presses (true) and releases (false).
func (b *Button) Subscribe(cb func(pressed bool)) (func() error, error) {
	cancel, err := b.input.Subscribe(func(c pins.ValueChange) { cb(!c.Value) })
	if err != nil {
		return nil, maskAny(err)
	}
	return cancel, nil
}

// SetLED switches the LED.
func (b *Button) SetLED(on bool) error {
	return maskAny(b.led.Write(on))
}

// Readings returns the pressed state.
func (b *Button) Readings(ctx context.Context) ([]Reading, error) {
	pressed, err := b.IsPressed()
	if err != nil {
		return nil, err
	}
	return []Reading{{Quantity: "pressed", Value: boolValue(pressed)}}, nil
}

func (b *Button) Close() error {
	var ae aerr.AggregateError
	if err := b.input.Close(); err != nil {
		ae.Add(err)
	}
	if err := b.led.Close(); err != nil {
		ae.Add(err)
	}
	return ae.AsError()
}
