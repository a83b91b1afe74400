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
	"strings"

	aerr "github.com/ewoutp/go-aggregate-error"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/pins"
	"github.com/binkynet/Gadgeteer/pkg/socket"
)

// Color of an LED7C. Bit 2 is red, bit 1 green, bit 0 blue.
type Color int

const (
	ColorOff Color = iota
	ColorBlue
	ColorGreen
	ColorCyan
	ColorRed
	ColorMagenta
	ColorYellow
	ColorWhite
)

var colorNames = []string{"off", "blue", "green", "cyan", "red", "magenta", "yellow", "white"}

func (c Color) String() string {
	if c < ColorOff || c > ColorWhite {
		return "unknown"
	}
	return colorNames[c]
}

// ParseColor parses a color name.
func ParseColor(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range colorNames {
		if name == s {
			return Color(i), nil
		}
	}
	return ColorOff, model.InvalidArgument("unknown color '%s'", s)
}

// LED7C is a 7 color LED.
type LED7C struct {
	red, green, blue pins.DigitalIO
	color            Color
}

var _ Sensor = &LED7C{}

// NewLED7C creates a LED on the given socket, initially off.
func NewLED7C(ctx context.Context, s socket.Socket) (*LED7C, error) {
	if err := s.EnsureTypeIsSupported(socket.TypeX); err != nil {
		return nil, maskAny(err)
	}
	l := &LED7C{}
	var err error
	if l.red, err = s.CreateDigitalOutput(ctx, socket.Pin4, false); err != nil {
		return nil, maskAny(err)
	}
	if l.green, err = s.CreateDigitalOutput(ctx, socket.Pin5, false); err != nil {
		l.Close()
		return nil, maskAny(err)
	}
	if l.blue, err = s.CreateDigitalOutput(ctx, socket.Pin3, false); err != nil {
		l.Close()
		return nil, maskAny(err)
	}
	return l, nil
}

// Color returns the last color set.
func (l *LED7C) Color() Color {
	return l.color
}

// SetColor switches the LED to the given color.
func (l *LED7C) SetColor(c Color) error {
	if c < ColorOff || c > ColorWhite {
		return model.OutOfRange("color must be in 0..7 range, got %d", int(c))
	}
	if err := l.red.Write(c&4 != 0); err != nil {
		return maskAny(err)
	}
	if err := l.green.Write(c&2 != 0); err != nil {
		return maskAny(err)
	}
	if err := l.blue.Write(c&1 != 0); err != nil {
		return maskAny(err)
	}
	l.color = c
	return nil
}

// Readings returns the current color.
func (l *LED7C) Readings(ctx context.Context) ([]Reading, error) {
	return []Reading{{Quantity: "color", Value: float64(l.color)}}, nil
}

func (l *LED7C) Close() error {
	var ae aerr.AggregateError
	for _, io := range []pins.DigitalIO{l.red, l.green, l.blue} {
		if io != nil {
			if err := io.Close(); err != nil {
				ae.Add(err)
			}
		}
	}
	return ae.AsError()
}
