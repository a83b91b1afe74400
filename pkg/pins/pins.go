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

// Package pins contains the contracts of digital, analog and PWM lines
// and the uniform handles that modules operate on, regardless of the
// path (native, indirected or software) that backs them.
package pins

import (
	"time"

	"github.com/pkg/errors"
)

var (
	maskAny = errors.WithStack
)

// DriveMode is the direction of a line.
type DriveMode int

const (
	// Input releases the line so it can be driven externally.
	Input DriveMode = iota
	// Output drives the line.
	Output
)

// String returns a human readable form of the mode.
func (m DriveMode) String() string {
	switch m {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return "unknown"
	}
}

// Edge selects the level transitions that trigger an interrupt.
type Edge int

const (
	NoEdge      Edge = 0
	RisingEdge  Edge = 1
	FallingEdge Edge = 2
	BothEdges        = RisingEdge | FallingEdge
)

// Matches returns true when a transition to the given level is selected by this edge.
func (e Edge) Matches(value bool) bool {
	if value {
		return e&RisingEdge != 0
	}
	return e&FallingEdge != 0
}

// ValueChange is delivered to interrupt subscribers.
type ValueChange struct {
	// Time the change was observed
	When time.Time
	// New level of the line
	Value bool
}

// MaxVoltage is the full scale voltage of analog lines on a 3.3V board.
const MaxVoltage = 3.3
