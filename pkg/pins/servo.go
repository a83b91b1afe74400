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

package pins

import (
	"time"

	"github.com/binkynet/Gadgeteer/model"
)

const (
	// ServoFrequency is the pulse frequency of hobby servos.
	ServoFrequency = 50.0
	servoPeriod    = time.Second / ServoFrequency
)

// Servo positions a hobby servo through a PWM output.
type Servo struct {
	pwm         PwmOutput
	minPulse    time.Duration
	maxPulse    time.Duration
	minPosition float64
	maxPosition float64
}

// NewServo creates a servo on the given output with limits
// 1ms..2ms for positions 0..180.
func NewServo(pwm PwmOutput) *Servo {
	return &Servo{
		pwm:         pwm,
		minPulse:    time.Millisecond,
		maxPulse:    2 * time.Millisecond,
		minPosition: 0,
		maxPosition: 180,
	}
}

// SetLimits configures the pulse range and the position range mapped onto it.
func (s *Servo) SetLimits(minPulse, maxPulse time.Duration, minPosition, maxPosition float64) error {
	if minPulse < 0 || maxPulse > servoPeriod {
		return model.OutOfRange("pulses must be in 0..%s range, got %s..%s", servoPeriod, minPulse, maxPulse)
	}
	if maxPulse <= minPulse {
		return model.InvalidArgument("max pulse (%s) must be above min pulse (%s)", maxPulse, minPulse)
	}
	if maxPosition <= minPosition {
		return model.InvalidArgument("max position (%g) must be above min position (%g)", maxPosition, minPosition)
	}
	s.minPulse, s.maxPulse = minPulse, maxPulse
	s.minPosition, s.maxPosition = minPosition, maxPosition
	return nil
}

// SetPosition moves the servo to the given position.
func (s *Servo) SetPosition(position float64) error {
	if position < s.minPosition || position > s.maxPosition {
		return model.OutOfRange("position must be in %g..%g range, got %g", s.minPosition, s.maxPosition, position)
	}
	ratio := (position - s.minPosition) / (s.maxPosition - s.minPosition)
	pulse := float64(s.minPulse) + ratio*float64(s.maxPulse-s.minPulse)
	if err := s.pwm.Set(ServoFrequency, pulse/float64(servoPeriod)); err != nil {
		return maskAny(err)
	}
	if !s.pwm.Enabled() {
		if err := s.pwm.SetEnabled(true); err != nil {
			return maskAny(err)
		}
	}
	return nil
}

// Release stops generating pulses, letting the servo move freely.
func (s *Servo) Release() error {
	return s.pwm.SetEnabled(false)
}
