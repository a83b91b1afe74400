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

package bus

import (
	"github.com/pkg/errors"
)

var (
	// NackError is returned when a slave did not acknowledge an address or data byte.
	NackError = errors.New("not acknowledged")
	// BusIntegrityError is returned when a start or stop condition could not be
	// established, or when a released data line was pulled low by someone else.
	BusIntegrityError = errors.New("bus integrity failure")
	// ClockStretchTimeoutError is returned when the clock line is held low too long.
	ClockStretchTimeoutError = errors.New("clock stretch timeout")
	// NoDataError is returned when a read returned no data.
	NoDataError = errors.New("no data")

	IsNack                = isErrorFunc(NackError)
	IsBusIntegrity        = isErrorFunc(BusIntegrityError)
	IsClockStretchTimeout = isErrorFunc(ClockStretchTimeoutError)

	maskAny = errors.WithStack
)

func isErrorFunc(typeOfError error) func(err error) bool {
	return func(err error) bool {
		return errors.Cause(err) == typeOfError
	}
}
