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

package indirect_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/indirect"
	"github.com/binkynet/Gadgeteer/pkg/pins"
	"github.com/binkynet/Gadgeteer/pkg/pins/pinstest"
)

type fakeExpander struct {
	modes  map[int]pins.DriveMode
	levels map[int]bool
	subs   map[int]func(bool)
	log    []string
}

func newFakeExpander() *fakeExpander {
	return &fakeExpander{
		modes:  make(map[int]pins.DriveMode),
		levels: make(map[int]bool),
		subs:   make(map[int]func(bool)),
	}
}

func (e *fakeExpander) SetDriveMode(pin int, mode pins.DriveMode) error {
	e.modes[pin] = mode
	e.log = append(e.log, fmt.Sprintf("%d:%s", pin, mode))
	return nil
}

func (e *fakeExpander) Read(pin int) (bool, error) {
	return e.levels[pin], nil
}

func (e *fakeExpander) Write(pin int, value bool) error {
	e.levels[pin] = value
	e.log = append(e.log, fmt.Sprintf("%d=%v", pin, value))
	return nil
}

func (e *fakeExpander) SubscribePin(pin int, cb func(bool)) (func(), error) {
	e.subs[pin] = cb
	return func() { delete(e.subs, pin) }, nil
}

type fakeChips struct {
	expanders map[int]*fakeExpander
	native    map[int]*pinstest.Line
}

func newFakeChips() *fakeChips {
	return &fakeChips{
		expanders: map[int]*fakeExpander{1: newFakeExpander(), 2: newFakeExpander()},
		native:    make(map[int]*pinstest.Line),
	}
}

func (c *fakeChips) Expander(chip int) (indirect.GPIOExpander, error) {
	e, found := c.expanders[chip]
	if !found {
		return nil, model.OutOfRange("no chip %d", chip)
	}
	return e, nil
}

func (c *fakeChips) OpenNative(ctx context.Context, pin int) (pins.DigitalDriver, error) {
	l := pinstest.NewLine(fmt.Sprintf("gpio%d", pin), nil)
	c.native[pin] = l
	return l, nil
}

func TestSharedAnalogClaimReleasesOtherLine(t *testing.T) {
	ctx := context.Background()
	chips := newFakeChips()
	chips.expanders[2].modes[14] = pins.Output
	table := indirect.NewSharedAnalog(map[int]indirect.Channel{
		5: {Chip: 2, Pin: 14},
		4: {Chip: 0, Pin: 12},
	})

	require.NoError(t, table.Claim(ctx, chips, 5))
	assert.Equal(t, pins.Input, chips.expanders[2].modes[14])

	require.NoError(t, table.Claim(ctx, chips, 4))
	l := chips.native[12]
	require.NotNil(t, l)
	assert.Equal(t, pins.Input, l.Mode())
	assert.True(t, l.Closed())

	// Unshared channels touch nothing
	require.NoError(t, table.Claim(ctx, chips, 7))
	assert.Len(t, chips.expanders[2].log, 1)
	assert.Empty(t, chips.expanders[1].log)
}

func TestSharedTablesAreCopies(t *testing.T) {
	src := map[int]indirect.Channel{1: {Chip: 1, Pin: 1}}
	table := indirect.NewSharedAnalog(src)
	src[1] = indirect.Channel{Chip: 2, Pin: 2}
	src[2] = indirect.Channel{}
	c, found := table.Lookup(1)
	assert.True(t, found)
	assert.Equal(t, indirect.Channel{Chip: 1, Pin: 1}, c)
	_, found = table.Lookup(2)
	assert.False(t, found)
}

func TestSharedPWMClaims(t *testing.T) {
	ctx := context.Background()
	chips := newFakeChips()
	table := indirect.NewSharedPWM(map[int]indirect.PWMLines{
		2: {Input: indirect.Channel{Chip: 1, Pin: 12}, Enable: indirect.Channel{Chip: 1, Pin: 5}},
	})

	require.NoError(t, table.ClaimForPwm(ctx, chips, 2))
	assert.Equal(t, []string{"12:input", "5:output", "5=false"}, chips.expanders[1].log)

	chips.expanders[1].log = nil
	require.NoError(t, table.ClaimForDigital(ctx, chips, 2))
	assert.Equal(t, []string{"5:output", "5=true"}, chips.expanders[1].log)

	_, found := table.Lookup(9)
	assert.False(t, found)
	require.NoError(t, table.ClaimForPwm(ctx, chips, 9))
}

func TestDigitalAdapter(t *testing.T) {
	e := newFakeExpander()
	io := pins.NewDigitalIO(indirect.NewDigital(e, 13))

	require.NoError(t, io.Write(true))
	assert.Equal(t, pins.Output, e.modes[13])
	assert.True(t, e.levels[13])

	e.levels[13] = false
	v, err := io.Read()
	require.NoError(t, err)
	assert.False(t, v)
	assert.Equal(t, pins.Input, e.modes[13])

	var changes []bool
	cancel, err := io.Subscribe(func(c pins.ValueChange) { changes = append(changes, c.Value) })
	require.NoError(t, err)
	require.NotNil(t, e.subs[13])
	e.subs[13](true)
	e.subs[13](false)
	assert.Equal(t, []bool{true, false}, changes)

	require.NoError(t, cancel())
	assert.Nil(t, e.subs[13])
}

func TestAnalogAdapter(t *testing.T) {
	adc := adcFunc(func(channel int) (float64, error) {
		return float64(channel) / 10, nil
	})
	a := pins.NewAnalogIO(indirect.NewAnalog(adc, 5))

	v, err := a.ReadVoltage()
	require.NoError(t, err)
	assert.InDelta(t, 0.5*3.3, v, 1e-9)

	assert.True(t, model.IsNotSupported(a.SetDriveMode(pins.Output)))
	assert.True(t, model.IsNotSupported(a.WriteVoltage(1.0)))
}

type adcFunc func(channel int) (float64, error)

func (f adcFunc) ReadProportion(channel int) (float64, error) { return f(channel) }

type fakeController struct {
	calls []string
}

func (c *fakeController) SetFrequency(hz int) error {
	c.calls = append(c.calls, fmt.Sprintf("freq %d", hz))
	return nil
}

func (c *fakeController) SetDutyCycle(channel int, dc float64) error {
	c.calls = append(c.calls, fmt.Sprintf("duty %d %g", channel, dc))
	return nil
}

func (c *fakeController) TurnOn(channel int) error {
	c.calls = append(c.calls, fmt.Sprintf("on %d", channel))
	return nil
}

func (c *fakeController) TurnOff(channel int) error {
	c.calls = append(c.calls, fmt.Sprintf("off %d", channel))
	return nil
}

func TestPwmAdapter(t *testing.T) {
	ctrl := &fakeController{}
	pwm := pins.NewPwmOutput(indirect.NewPwm(ctrl, 3))

	// Not applied while disabled
	require.NoError(t, pwm.Set(200.7, 0.25))
	assert.Empty(t, ctrl.calls)

	require.NoError(t, pwm.SetEnabled(true))
	require.NoError(t, pwm.SetDutyCycle(1))
	require.NoError(t, pwm.SetEnabled(false))
	assert.Equal(t, []string{
		"freq 200", "duty 3 0.25",
		"freq 200", "on 3",
		"off 3",
	}, ctrl.calls)
}
