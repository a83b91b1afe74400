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

package modules_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/bus"
	"github.com/binkynet/Gadgeteer/pkg/bus/bustest"
	"github.com/binkynet/Gadgeteer/pkg/modules"
	"github.com/binkynet/Gadgeteer/pkg/pins"
	"github.com/binkynet/Gadgeteer/pkg/pins/pinstest"
	"github.com/binkynet/Gadgeteer/pkg/socket"
	"github.com/binkynet/Gadgeteer/pkg/socket/sockettest"
)

func newSocket(t *testing.T, p *sockettest.Provider, cfg socket.Config) socket.Socket {
	s, err := socket.New(cfg, p, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestButton(t *testing.T) {
	ctx := context.Background()
	p := sockettest.NewProvider()
	s := newSocket(t, p, socket.Config{
		Number:     1,
		Types:      []socket.Type{socket.TypeY},
		NativePins: map[socket.PinNumber]int{socket.Pin3: 10, socket.Pin4: 11},
	})
	p.Line(10).SetLevel(true)

	b, err := modules.NewButton(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, pins.Output, p.Line(11).Mode())
	assert.False(t, p.Line(11).Level())

	pressed, err := b.IsPressed()
	require.NoError(t, err)
	assert.False(t, pressed)

	var events []bool
	_, err = b.Subscribe(func(pressed bool) { events = append(events, pressed) })
	require.NoError(t, err)
	p.Line(10).Trigger(false)
	p.Line(10).Trigger(true)
	assert.Equal(t, []bool{true, false}, events)

	p.Line(10).SetLevel(false)
	readings, err := b.Readings(ctx)
	require.NoError(t, err)
	assert.Equal(t, []modules.Reading{{Quantity: "pressed", Value: 1}}, readings)

	require.NoError(t, b.SetLED(true))
	assert.True(t, p.Line(11).Level())

	require.NoError(t, b.Close())
	assert.True(t, p.Line(10).Closed())
	assert.True(t, p.Line(11).Closed())
}

func TestButtonRequiresDigitalSocket(t *testing.T) {
	s := newSocket(t, sockettest.NewProvider(), socket.Config{Number: 1, Types: []socket.Type{socket.TypeA}})
	_, err := modules.NewButton(context.Background(), s)
	assert.True(t, model.IsUnsupportedSocketType(err))
}

func TestLED7C(t *testing.T) {
	ctx := context.Background()
	p := sockettest.NewProvider()
	s := newSocket(t, p, socket.Config{
		Number:     2,
		Types:      []socket.Type{socket.TypeX},
		NativePins: map[socket.PinNumber]int{socket.Pin3: 20, socket.Pin4: 21, socket.Pin5: 22},
	})
	l, err := modules.NewLED7C(ctx, s)
	require.NoError(t, err)

	require.NoError(t, l.SetColor(modules.ColorYellow))
	assert.True(t, p.Line(21).Level(), "red")
	assert.True(t, p.Line(22).Level(), "green")
	assert.False(t, p.Line(20).Level(), "blue")
	assert.Equal(t, modules.ColorYellow, l.Color())

	require.NoError(t, l.SetColor(modules.ColorBlue))
	assert.False(t, p.Line(21).Level())
	assert.False(t, p.Line(22).Level())
	assert.True(t, p.Line(20).Level())

	assert.True(t, model.IsArgumentOutOfRange(l.SetColor(modules.Color(8))))
	assert.Equal(t, modules.ColorBlue, l.Color())

	c, err := modules.ParseColor(" Magenta ")
	require.NoError(t, err)
	assert.Equal(t, modules.ColorMagenta, c)
	assert.Equal(t, "magenta", c.String())
	_, err = modules.ParseColor("purple")
	assert.True(t, model.IsInvalidArgument(err))

	require.NoError(t, l.Close())
}

func TestLightSense(t *testing.T) {
	ctx := context.Background()
	analog := &pinstest.Analog{Volts: 0.825}
	s := newSocket(t, sockettest.NewProvider(), socket.Config{
		Number: 5,
		Types:  []socket.Type{socket.TypeA},
		Creators: socket.Creators{
			AnalogIO: func(ctx context.Context, s socket.Socket, pin socket.PinNumber) (pins.AnalogIO, error) {
				return pins.NewAnalogIO(analog), nil
			},
		},
	})
	m, err := modules.Create(ctx, model.ModuleTypeLightSense, s)
	require.NoError(t, err)
	l := m.(*modules.LightSense)

	v, err := l.Reading()
	require.NoError(t, err)
	assert.InDelta(t, 0.25, v, 1e-9)
	readings, err := l.Readings(ctx)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, "light", readings[0].Quantity)
	assert.InDelta(t, 25.0, readings[0].Value, 1e-9)
	assert.Equal(t, pins.Input, analog.Mode)
}

// i2cSocket hands out a fake I2C device for any pins.
type i2cSocket struct {
	socket.Socket
	dev      *bustest.RegisterDevice
	settings bus.I2CSettings
	sda, scl socket.PinNumber
}

func (s *i2cSocket) CreateI2CDeviceOnPins(ctx context.Context, settings bus.I2CSettings, sda, scl socket.PinNumber) (bus.I2CDevice, error) {
	s.settings, s.sda, s.scl = settings, sda, scl
	return s.dev, nil
}

func TestTempHumidSI70(t *testing.T) {
	ctx := context.Background()
	s := &i2cSocket{dev: bustest.NewRegisterDevice()}
	s.dev.Set(0xE5, 0x80)
	s.dev.Set(0xE6, 0x00)
	s.dev.Set(0xE0, 0x60)
	s.dev.Set(0xE1, 0x00)

	th, err := modules.NewTempHumidSI70(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x40), s.settings.Address)
	assert.Equal(t, socket.Pin5, s.sda)
	assert.Equal(t, socket.Pin4, s.scl)

	m, err := th.TakeMeasurement()
	require.NoError(t, err)
	assert.InDelta(t, 19.045, m.Temperature, 1e-9)
	assert.InDelta(t, 56.5, m.RelativeHumidity, 1e-9)
	assert.InDelta(t, 66.281, m.TemperatureFahrenheit(), 1e-9)
	assert.Equal(t, "19.0 degrees Celsius, 56.5% relative humidity", m.String())

	s.dev.Set(0xE5, 0xFF)
	s.dev.Set(0xE6, 0xFF)
	m, err = th.TakeMeasurement()
	require.NoError(t, err)
	assert.Equal(t, 100.0, m.RelativeHumidity)

	s.dev.Set(0xE5, 0x00)
	s.dev.Set(0xE6, 0x00)
	readings, err := th.Readings(ctx)
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, "humidity", readings[1].Quantity)
	assert.Equal(t, 0.0, readings[1].Value)

	require.NoError(t, th.Close())
	assert.True(t, s.dev.Closed())
}

func TestRotaryH1(t *testing.T) {
	ctx := context.Background()
	p := sockettest.NewProvider()
	s := newSocket(t, p, socket.Config{
		Number:            3,
		Types:             []socket.Type{socket.TypeS},
		NativePins:        map[socket.PinNumber]int{socket.Pin5: 13},
		NativeSPIDeviceID: "SPI0",
	})
	r, err := modules.NewRotaryH1(ctx, s)
	require.NoError(t, err)
	assert.True(t, p.Line(13).Level())
	assert.Equal(t, modules.CountModeQuad1, r.Mode())

	_, devs := p.SPIDevices()
	require.Len(t, devs, 1)
	spi := devs[0]
	assert.Equal(t, bus.Mode0, spi.Settings().Mode)
	assert.Equal(t, 1000000, spi.Settings().ClockFrequency)
	assert.Equal(t, [][]byte{
		{0x08}, {0x10}, {0x30}, {0x20},
		{0xE8},
		{0x88, 0x81},
		{0x90, 0x00},
	}, spi.Writes())

	spi.OnTransfer(func(written, read []byte) {
		copy(read, []byte{0xFF, 0xFF, 0xFF, 0xFE})
	})
	count, err := r.Count()
	require.NoError(t, err)
	assert.Equal(t, int32(-2), count)
	writes := spi.Writes()
	assert.Equal(t, [][]byte{{0xE8}, {0x68}}, writes[len(writes)-2:])

	require.NoError(t, r.SetMode(modules.CountModeQuad1))
	assert.Len(t, spi.Writes(), len(writes))
	require.NoError(t, r.SetMode(modules.CountModeQuad4))
	writes = spi.Writes()
	assert.Equal(t, []byte{0x88, 0x83}, writes[len(writes)-1])

	require.NoError(t, r.ResetCount())
	writes = spi.Writes()
	assert.Equal(t, []byte{0x20}, writes[len(writes)-1])

	require.NoError(t, r.Close())
	assert.True(t, spi.Closed())
	assert.True(t, p.Line(13).Closed())
}

func TestModuleRegistry(t *testing.T) {
	ctx := context.Background()
	_, err := modules.Definition(model.ModuleType("unknown"))
	assert.True(t, model.IsInvalidModuleDefinition(err))

	def, err := modules.Definition(model.ModuleTypeRotaryH1)
	require.NoError(t, err)
	assert.Equal(t, "RotaryH1", def.Name)
	assert.Equal(t, 1, def.RequiredSockets)

	_, err = modules.Create(ctx, model.ModuleTypeButton)
	assert.True(t, model.IsInvalidArgument(err))

	s := newSocket(t, sockettest.NewProvider(), socket.Config{Number: 1, Types: []socket.Type{socket.TypeA}})
	m, err := modules.Create(ctx, model.ModuleTypeButton, s)
	assert.True(t, model.IsUnsupportedSocketType(err))
	assert.Nil(t, m)
}
