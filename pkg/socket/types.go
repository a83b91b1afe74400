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

// Package socket implements Gadgeteer sockets: numbered connectors that
// advertise a set of capabilities (socket types) and hand out digital,
// analog, PWM and bus interfaces for their pins, choosing between native
// peripherals, board specific creators and software emulation.
package socket

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/binkynet/Gadgeteer/model"
)

var (
	maskAny = errors.WithStack
)

// Type is a capability letter of a socket.
type Type byte

const (
	TypeA Type = 'A' // analog inputs on pins 3, 4, 5
	TypeB Type = 'B'
	TypeC Type = 'C'
	TypeD Type = 'D'
	TypeE Type = 'E'
	TypeF Type = 'F'
	TypeG Type = 'G'
	TypeH Type = 'H'
	TypeI Type = 'I' // native I2C on pins 8 (SDA), 9 (SCL)
	TypeK Type = 'K'
	TypeO Type = 'O'
	TypeP Type = 'P' // PWM on pins 7, 8, 9
	TypeR Type = 'R'
	TypeS Type = 'S' // native SPI on pins 6 (CS), 7 (MOSI), 8 (MISO), 9 (CLK)
	TypeT Type = 'T'
	TypeU Type = 'U' // serial
	TypeX Type = 'X' // GPIO on pins 3, 4, 5
	TypeY Type = 'Y' // GPIO on pins 3..9
	TypeZ Type = 'Z'
)

// AllTypes lists all known socket types.
var AllTypes = []Type{
	TypeA, TypeB, TypeC, TypeD, TypeE, TypeF, TypeG, TypeH, TypeI, TypeK,
	TypeO, TypeP, TypeR, TypeS, TypeT, TypeU, TypeX, TypeY, TypeZ,
}

// typeAliases maps a requested type onto types that also satisfy it.
var typeAliases = map[Type][]Type{
	TypeX: {TypeY},
}

// String returns the letter of the type.
func (t Type) String() string {
	return string(rune(t))
}

// ParseType parses a single socket type letter.
func ParseType(s string) (Type, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, t := range AllTypes {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, model.InvalidArgument("unknown socket type '%s'", s)
}

// PinNumber is the number of a pin within a socket.
type PinNumber int

const (
	Pin3 PinNumber = 3
	Pin4 PinNumber = 4
	Pin5 PinNumber = 5
	Pin6 PinNumber = 6
	Pin7 PinNumber = 7
	Pin8 PinNumber = 8
	Pin9 PinNumber = 9
)

// Validate returns an ArgumentOutOfRangeError for pins outside 3..9.
func (p PinNumber) Validate() error {
	if p < Pin3 || p > Pin9 {
		return model.OutOfRange("socket pin must be in 3..9 range, got %d", int(p))
	}
	return nil
}
