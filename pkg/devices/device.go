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

// Package devices contains drivers for the I2C chips found on HAT boards.
package devices

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var (
	// ClosedError is returned when a closed device is used.
	ClosedError = errors.New("device closed")

	IsClosed = isErrorFunc(ClosedError)

	maskAny = errors.WithStack
)

func isErrorFunc(typeOfError error) func(err error) bool {
	return func(err error) bool {
		return errors.Cause(err) == typeOfError
	}
}

// Dependencies of all device drivers.
type Dependencies struct {
	Log zerolog.Logger
	// OnActive is called before every bus transfer (optional).
	OnActive func()
}

func (d Dependencies) active() {
	if d.OnActive != nil {
		d.OnActive()
	}
}

func boolBit(v bool, bit uint) uint16 {
	if v {
		return 1 << bit
	}
	return 0
}
