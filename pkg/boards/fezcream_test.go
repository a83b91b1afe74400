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

package boards_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/boards"
	"github.com/binkynet/Gadgeteer/pkg/bus"
	"github.com/binkynet/Gadgeteer/pkg/pins"
	"github.com/binkynet/Gadgeteer/pkg/socket"
	"github.com/binkynet/Gadgeteer/pkg/socket/sockettest"
)

const (
	pca9535InputPort1  = 0x01
	pca9535OutputPort0 = 0x02
	pca9535ConfigPort0 = 0x06
	pca9535ConfigPort1 = 0x07
)

func newFEZCream(t *testing.T) (*boards.FEZCream, *sockettest.Provider) {
	p := sockettest.NewProvider()
	b, err := boards.NewFEZCream(context.Background(), p, boards.Dependencies{Log: zerolog.Nop()})
	require.NoError(t, err)
	return b, p
}

func TestFEZCreamInitialization(t *testing.T) {
	b, p := newFEZCream(t)
	assert.Equal(t, []string{"I2C1/0x48", "I2C1/0x7f", "I2C1/0x23", "I2C1/0x25"}, p.I2COpens())
	assert.Equal(t, []int{22, 26}, p.DigitalOpens())
	assert.True(t, p.Line(22).InterruptEnabled())
	assert.True(t, p.Line(26).InterruptEnabled())

	// PWM output buffers disabled
	chip1 := p.I2CDevice("I2C1", 0x23)
	assert.Equal(t, byte(0x03), chip1.Get(pca9535ConfigPort0))
	assert.Equal(t, byte(0xFF), chip1.Get(pca9535OutputPort0))

	sockets := b.ProvidedSockets()
	require.Len(t, sockets, 9)
	for i, s := range sockets {
		assert.Equal(t, i+1, s.Number())
	}
	s3, err := b.ProvidedSocket(3)
	require.NoError(t, err)
	assert.Equal(t, []socket.Type{socket.TypeS, socket.TypeX}, s3.Types())
	_, err = b.ProvidedSocket(10)
	assert.True(t, model.IsInvalidArgument(err))

	assert.Equal(t, "FEZ Cream", b.Name())
}

func TestFEZCreamAnalogReleasesSharedLine(t *testing.T) {
	ctx := context.Background()
	b, p := newFEZCream(t)
	chip2 := p.I2CDevice("I2C1", 0x25)
	p.I2CDevice("I2C1", 0x48).OnRead(func(byte) (byte, bool) { return 255, true })
	s5, err := b.ProvidedSocket(5)
	require.NoError(t, err)

	// Socket 5 pin 4 is both expander #2 pin 14 and ADC channel 5
	d, err := s5.CreateDigitalOutput(ctx, socket.Pin4, false)
	require.NoError(t, err)
	assert.Equal(t, byte(0xEF), chip2.Get(pca9535ConfigPort1))
	require.NoError(t, d.Close())

	a, err := s5.CreateAnalogIO(ctx, socket.Pin4)
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), chip2.Get(pca9535ConfigPort1))
	v, err := a.ReadVoltage()
	require.NoError(t, err)
	assert.InDelta(t, 3.3, v, 1e-9)
	assert.True(t, model.IsNotSupported(a.WriteVoltage(1)))

	// Socket 5 pin 3 shares ADC channel 4 with native GPIO 12
	_, err = s5.CreateAnalogIO(ctx, socket.Pin3)
	require.NoError(t, err)
	assert.Equal(t, pins.Input, p.Line(12).Mode())
	assert.True(t, p.Line(12).Closed())
}

func TestFEZCreamPwmAndDigitalArbitration(t *testing.T) {
	ctx := context.Background()
	b, p := newFEZCream(t)
	chip1 := p.I2CDevice("I2C1", 0x23)
	pwmDev := p.I2CDevice("I2C1", 0x7F)
	s7, err := b.ProvidedSocket(7)
	require.NoError(t, err)

	// Socket 7 pin 8 is PWM channel 1, enable line is expander #1 pin 6
	pwm, err := s7.CreatePwmOutput(ctx, socket.Pin8)
	require.NoError(t, err)
	assert.Equal(t, byte(0xBF), chip1.Get(pca9535OutputPort0))
	require.NoError(t, pwm.Set(200, 0.5))
	require.NoError(t, pwm.SetEnabled(true))
	writes := pwmDev.Writes()
	assert.Equal(t, []byte{10, 0x00, 0x00, 0x00, 0x08}, writes[len(writes)-1])

	d, err := s7.CreateDigitalOutput(ctx, socket.Pin8, true)
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), chip1.Get(pca9535OutputPort0))
	// Expander #1 pin 11 drives the socket pin
	assert.Equal(t, byte(0xFD), chip1.Get(pca9535ConfigPort1))
	require.NoError(t, d.Close())
}

func TestFEZCreamDigitalPaths(t *testing.T) {
	ctx := context.Background()
	b, p := newFEZCream(t)

	s4, err := b.ProvidedSocket(4)
	require.NoError(t, err)
	_, err = s4.CreateDigitalIO(ctx, socket.Pin3)
	require.NoError(t, err)
	assert.Equal(t, []int{22, 26, 6}, p.DigitalOpens())

	// Socket 4 pin 5 is expander #2 pin 17
	chip2 := p.I2CDevice("I2C1", 0x25)
	in, err := s4.CreateDigitalInterrupt(ctx, socket.Pin5, pins.BothEdges)
	require.NoError(t, err)
	var changes []bool
	_, err = in.Subscribe(func(c pins.ValueChange) { changes = append(changes, c.Value) })
	require.NoError(t, err)
	chip2.Set(pca9535InputPort1, 0x80)
	p.Line(26).Trigger(false)
	assert.Equal(t, []bool{true}, changes)

	s1, err := b.ProvidedSocket(1)
	require.NoError(t, err)
	_, err = s1.CreateDigitalIO(ctx, socket.Pin4)
	assert.True(t, model.IsUnsupportedPinMode(err))

	s3, err := b.ProvidedSocket(3)
	require.NoError(t, err)
	_, err = s3.CreateDigitalIO(ctx, socket.Pin6)
	assert.True(t, model.IsUnsupportedPinMode(err))
}

func TestFEZCreamNativeBuses(t *testing.T) {
	ctx := context.Background()
	b, p := newFEZCream(t)

	s9, err := b.ProvidedSocket(9)
	require.NoError(t, err)
	_, err = s9.CreateI2CDevice(ctx, bus.NewI2CSettings(0x40))
	require.NoError(t, err)
	assert.Contains(t, p.I2COpens(), "I2C1/0x40")

	s3, err := b.ProvidedSocket(3)
	require.NoError(t, err)
	_, err = s3.CreateSPIDevice(ctx, bus.SPISettings{ClockFrequency: 1000000, DataBitLength: 8})
	require.NoError(t, err)
	ids, _ := p.SPIDevices()
	assert.Equal(t, []string{"SPI0"}, ids)

	s2, err := b.ProvidedSocket(2)
	require.NoError(t, err)
	_, err = s2.CreateSerialDevice(ctx, bus.DefaultSerialSettings())
	require.NoError(t, err)
	ids, _ = p.SerialDevices()
	assert.Equal(t, []string{"COM1"}, ids)
}

func TestFEZCreamDebugLEDAndClose(t *testing.T) {
	b, p := newFEZCream(t)
	pwmDev := p.I2CDevice("I2C1", 0x7F)

	require.NoError(t, b.SetDebugLED(true))
	require.NoError(t, b.SetDebugLED(false))
	writes := pwmDev.Writes()
	assert.Equal(t, [][]byte{
		{66, 0x00, 0x10, 0x00, 0x00},
		{66, 0x00, 0x00, 0x00, 0x10},
	}, writes[len(writes)-2:])

	require.NoError(t, b.Close())
	assert.True(t, pwmDev.Closed())
	assert.True(t, p.I2CDevice("I2C1", 0x48).Closed())
	assert.True(t, p.Line(22).Closed())
	assert.True(t, p.Line(26).Closed())
}

func TestNewUnknownBoard(t *testing.T) {
	_, err := boards.New(context.Background(), model.BoardType("unknown"), sockettest.NewProvider(), boards.Dependencies{Log: zerolog.Nop()})
	assert.True(t, model.IsValidation(err))
}
