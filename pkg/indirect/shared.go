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
	"context"
)

// SharedAnalog maps analog channels onto the digital line that is wired
// to the same socket pin. That line must be released (Input) before the
// channel can be sampled.
type SharedAnalog struct {
	lines map[int]Channel
}

// NewSharedAnalog builds an immutable table from the given map.
func NewSharedAnalog(lines map[int]Channel) SharedAnalog {
	t := SharedAnalog{lines: make(map[int]Channel, len(lines))}
	for k, v := range lines {
		t.lines[k] = v
	}
	return t
}

// Lookup returns the line shared with given analog channel.
func (t SharedAnalog) Lookup(channel int) (Channel, bool) {
	c, found := t.lines[channel]
	return c, found
}

// Claim prepares the given analog channel for sampling.
func (t SharedAnalog) Claim(ctx context.Context, chips Chips, channel int) error {
	other, found := t.lines[channel]
	if !found {
		return nil
	}
	return SetInput(ctx, chips, other)
}

// PWMLines are the expander lines wired to a PWM channel.
type PWMLines struct {
	// Line connected to the socket pin in parallel with the PWM output
	Input Channel
	// Active low enable of the PWM output buffer
	Enable Channel
}

// SharedPWM maps PWM channels onto their expander lines.
type SharedPWM struct {
	lines map[int]PWMLines
}

// NewSharedPWM builds an immutable table from the given map.
func NewSharedPWM(lines map[int]PWMLines) SharedPWM {
	t := SharedPWM{lines: make(map[int]PWMLines, len(lines))}
	for k, v := range lines {
		t.lines[k] = v
	}
	return t
}

// Lookup returns the lines of given PWM channel.
func (t SharedPWM) Lookup(channel int) (PWMLines, bool) {
	l, found := t.lines[channel]
	return l, found
}

// ClaimForPwm releases the input line and enables the PWM output buffer.
func (t SharedPWM) ClaimForPwm(ctx context.Context, chips Chips, channel int) error {
	l, found := t.lines[channel]
	if !found {
		return nil
	}
	if err := SetInput(ctx, chips, l.Input); err != nil {
		return err
	}
	return SetOutput(ctx, chips, l.Enable, false)
}

// ClaimForDigital disables the PWM output buffer so the socket pin
// can be used as a digital line.
func (t SharedPWM) ClaimForDigital(ctx context.Context, chips Chips, channel int) error {
	l, found := t.lines[channel]
	if !found {
		return nil
	}
	return SetOutput(ctx, chips, l.Enable, true)
}
