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

package pins_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/pins"
	"github.com/binkynet/Gadgeteer/pkg/pins/pinstest"
)

func TestDigitalReadWriteSwitchMode(t *testing.T) {
	line := pinstest.NewLine("io", nil)
	io := pins.NewDigitalIO(line)

	require.NoError(t, io.Write(true))
	assert.Equal(t, pins.Output, line.Mode())
	assert.Equal(t, pins.Output, io.DriveMode())
	assert.True(t, line.Level())

	require.NoError(t, io.Write(false))
	assert.Equal(t, 1, line.ModeChanges(), "mode must only change when needed")

	line.SetLevel(true)
	v, err := io.Read()
	require.NoError(t, err)
	assert.True(t, v)
	assert.Equal(t, pins.Input, line.Mode())
	assert.Equal(t, 2, line.ModeChanges())

	// Value/SetValue keep the direction
	require.NoError(t, io.SetValue(false))
	assert.Equal(t, pins.Input, line.Mode())
}

func TestDigitalInterruptReferenceCounting(t *testing.T) {
	line := pinstest.NewLine("irq", nil)
	io := pins.NewDigitalIO(line)

	var a, b []bool
	cancelA, err := io.Subscribe(func(c pins.ValueChange) { a = append(a, c.Value) })
	require.NoError(t, err)
	cancelB, err := io.Subscribe(func(c pins.ValueChange) { b = append(b, c.Value) })
	require.NoError(t, err)

	enables, disables := line.InterruptCalls()
	assert.Equal(t, 1, enables)
	assert.Equal(t, 0, disables)
	assert.Equal(t, 2, io.Subscribers())

	line.Trigger(true)
	line.Trigger(false)
	assert.Equal(t, []bool{true, false}, a)
	assert.Equal(t, []bool{true, false}, b)

	require.NoError(t, cancelA())
	require.NoError(t, cancelA())
	assert.True(t, line.InterruptEnabled())
	assert.Equal(t, 1, io.Subscribers())

	require.NoError(t, cancelB())
	assert.False(t, line.InterruptEnabled())
	enables, disables = line.InterruptCalls()
	assert.Equal(t, 1, enables)
	assert.Equal(t, 1, disables)
}

func TestDigitalInterruptEdgeFilter(t *testing.T) {
	line := pinstest.NewLine("irq", nil)
	io := pins.NewDigitalIO(line)
	io.SetInterruptEdge(pins.FallingEdge)

	var got []pins.ValueChange
	cancel, err := io.Subscribe(func(c pins.ValueChange) { got = append(got, c) })
	require.NoError(t, err)
	defer cancel()

	line.Trigger(true)
	line.Trigger(false)
	line.Trigger(true)
	require.Len(t, got, 1)
	assert.False(t, got[0].Value)
	assert.WithinDuration(t, time.Now(), got[0].When, time.Minute)
}

func TestDigitalCloseDisablesInterrupt(t *testing.T) {
	line := pinstest.NewLine("irq", nil)
	io := pins.NewDigitalIO(line)
	_, err := io.Subscribe(func(pins.ValueChange) {})
	require.NoError(t, err)

	require.NoError(t, io.Close())
	assert.False(t, line.InterruptEnabled())
	assert.True(t, line.Closed())
}

func TestAnalogProportion(t *testing.T) {
	drv := &pinstest.Analog{Volts: 1.65}
	a := pins.NewAnalogIO(drv)

	p, err := a.ReadProportion()
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p, 1e-9)
	assert.Equal(t, pins.Input, drv.Mode)

	require.NoError(t, a.WriteProportion(1))
	assert.InDelta(t, pins.MaxVoltage, drv.Volts, 1e-9)
	assert.Equal(t, pins.Output, drv.Mode)

	err = a.WriteProportion(1.5)
	assert.True(t, model.IsArgumentOutOfRange(err))
	err = a.WriteVoltage(-0.1)
	assert.True(t, model.IsArgumentOutOfRange(err))
	assert.Equal(t, 1, drv.Writes)
}

func TestPwmDutyCycleOutOfRange(t *testing.T) {
	drv := &pinstest.PWM{}
	p := pins.NewPwmOutput(drv)
	require.NoError(t, p.Set(1000, 0.5))
	require.NoError(t, p.SetEnabled(true))
	calls := drv.Calls

	for _, dc := range []float64{-0.01, 1.01, 7} {
		err := p.SetDutyCycle(dc)
		require.Error(t, err)
		assert.True(t, model.IsArgumentOutOfRange(err))
	}
	assert.Equal(t, calls, drv.Calls, "no hardware write expected")
	assert.Equal(t, 0.5, p.DutyCycle())
}

func TestPwmAppliesOnlyWhenEnabled(t *testing.T) {
	drv := &pinstest.PWM{}
	p := pins.NewPwmOutput(drv)

	require.NoError(t, p.Set(50, 0.25))
	assert.Equal(t, 0, drv.Calls)

	require.NoError(t, p.SetEnabled(true))
	assert.True(t, drv.Enabled)
	assert.Equal(t, 50.0, drv.Frequency)
	assert.Equal(t, 0.25, drv.DutyCycle)

	require.NoError(t, p.SetFrequency(60))
	assert.Equal(t, 60.0, drv.Frequency)

	require.NoError(t, p.SetEnabled(false))
	assert.False(t, drv.Enabled)
	assert.False(t, p.Enabled())
}

func TestServoPosition(t *testing.T) {
	drv := &pinstest.PWM{}
	s := pins.NewServo(pins.NewPwmOutput(drv))

	require.NoError(t, s.SetPosition(90))
	assert.True(t, drv.Enabled)
	assert.Equal(t, pins.ServoFrequency, drv.Frequency)
	// 1.5ms of a 20ms period
	assert.InDelta(t, 0.075, drv.DutyCycle, 1e-9)

	require.NoError(t, s.SetPosition(180))
	assert.InDelta(t, 0.1, drv.DutyCycle, 1e-9)
}

func TestServoPositionOutOfRange(t *testing.T) {
	drv := &pinstest.PWM{}
	s := pins.NewServo(pins.NewPwmOutput(drv))
	require.NoError(t, s.SetLimits(500*time.Microsecond, 2500*time.Microsecond, -90, 90))

	for _, pos := range []float64{-91, 90.5, 180} {
		err := s.SetPosition(pos)
		require.Error(t, err)
		assert.True(t, model.IsArgumentOutOfRange(err))
	}
	assert.Equal(t, 0, drv.Calls, "no hardware write expected")
}

func TestServoLimitsValidated(t *testing.T) {
	s := pins.NewServo(pins.NewPwmOutput(&pinstest.PWM{}))
	assert.True(t, model.IsArgumentOutOfRange(s.SetLimits(time.Millisecond, 30*time.Millisecond, 0, 180)))
	assert.True(t, model.IsInvalidArgument(s.SetLimits(2*time.Millisecond, time.Millisecond, 0, 180)))
	assert.True(t, model.IsInvalidArgument(s.SetLimits(time.Millisecond, 2*time.Millisecond, 10, 10)))
}
