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

package socket_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/bus"
	"github.com/binkynet/Gadgeteer/pkg/bus/bustest"
	"github.com/binkynet/Gadgeteer/pkg/pins"
	"github.com/binkynet/Gadgeteer/pkg/pins/pinstest"
	"github.com/binkynet/Gadgeteer/pkg/socket"
	"github.com/binkynet/Gadgeteer/pkg/socket/sockettest"
	"github.com/binkynet/Gadgeteer/pkg/softbus"
)

// allNative maps pins 3..9 onto native GPIO 103..109.
func allNative() map[socket.PinNumber]int {
	result := make(map[socket.PinNumber]int)
	for p := socket.Pin3; p <= socket.Pin9; p++ {
		result[p] = 100 + int(p)
	}
	return result
}

func newSocket(t *testing.T, cfg socket.Config) (socket.Socket, *sockettest.Provider) {
	provider := sockettest.NewProvider()
	s, err := socket.New(cfg, provider, zerolog.Nop())
	require.NoError(t, err)
	return s, provider
}

func TestTypeAliasing(t *testing.T) {
	y, _ := newSocket(t, socket.Config{Number: 1, Types: []socket.Type{socket.TypeY}})
	assert.True(t, y.IsTypeSupported(socket.TypeY))
	assert.True(t, y.IsTypeSupported(socket.TypeX))
	assert.False(t, y.IsTypeSupported(socket.TypeI))
	assert.NoError(t, y.EnsureTypeIsSupported(socket.TypeX))

	x, _ := newSocket(t, socket.Config{Number: 2, Types: []socket.Type{socket.TypeX}})
	assert.True(t, x.IsTypeSupported(socket.TypeX))
	assert.False(t, x.IsTypeSupported(socket.TypeY))
	err := x.EnsureTypeIsSupported(socket.TypeY)
	require.Error(t, err)
	assert.True(t, model.IsUnsupportedSocketType(err))
}

func TestParseType(t *testing.T) {
	typ, err := socket.ParseType("y")
	require.NoError(t, err)
	assert.Equal(t, socket.TypeY, typ)
	_, err = socket.ParseType("Q")
	assert.True(t, model.IsInvalidArgument(err))
}

func TestDigitalStrategyPrecedence(t *testing.T) {
	creatorPins := []socket.PinNumber{}
	creatorLines := map[socket.PinNumber]*pinstest.Line{}
	s, provider := newSocket(t, socket.Config{
		Number:     4,
		Types:      []socket.Type{socket.TypeY},
		NativePins: map[socket.PinNumber]int{socket.Pin3: 6},
		Creators: socket.Creators{
			DigitalIO: func(ctx context.Context, s socket.Socket, pin socket.PinNumber) (pins.DigitalIO, error) {
				creatorPins = append(creatorPins, pin)
				l := pinstest.NewLine(fmt.Sprintf("x%d", pin), nil)
				creatorLines[pin] = l
				return pins.NewDigitalIO(l), nil
			},
		},
	})
	ctx := context.Background()

	// Native pin wins over the creator
	in, err := s.CreateDigitalIO(ctx, socket.Pin3)
	require.NoError(t, err)
	assert.Equal(t, []int{6}, provider.DigitalOpens())
	assert.Equal(t, pins.Input, provider.Line(6).Mode())
	assert.Equal(t, pins.Input, in.DriveMode())
	assert.Empty(t, creatorPins)

	out, err := s.CreateDigitalOutput(ctx, socket.Pin4, true)
	require.NoError(t, err)
	assert.Equal(t, []socket.PinNumber{socket.Pin4}, creatorPins)
	assert.Equal(t, pins.Output, out.DriveMode())
	assert.True(t, creatorLines[socket.Pin4].Level())

	irq, err := s.CreateDigitalInterrupt(ctx, socket.Pin5, pins.FallingEdge)
	require.NoError(t, err)
	assert.Equal(t, pins.FallingEdge, irq.InterruptEdge())
	assert.Equal(t, pins.Input, creatorLines[socket.Pin5].Mode())

	_, err = s.CreateDigitalIO(ctx, socket.PinNumber(10))
	assert.True(t, model.IsArgumentOutOfRange(err))
}

func TestDigitalWithoutStrategy(t *testing.T) {
	s, _ := newSocket(t, socket.Config{
		Number:     1,
		Types:      []socket.Type{socket.TypeI},
		NativePins: map[socket.PinNumber]int{socket.Pin3: 18},
	})
	_, err := s.CreateDigitalIO(context.Background(), socket.Pin4)
	require.Error(t, err)
	assert.True(t, model.IsUnsupportedPinMode(err))
}

func TestNativeDigitalOpenFailure(t *testing.T) {
	s, provider := newSocket(t, socket.Config{Number: 1, NativePins: allNative()})
	provider.FailDigital(105, errors.New("busy"))
	_, err := s.CreateDigitalIO(context.Background(), socket.Pin5)
	require.Error(t, err)
	assert.True(t, model.IsSocketInterfaceCreation(err))
}

func TestI2COnYOnlySocketUsesSoftwareOnPins8And9(t *testing.T) {
	ctx := context.Background()
	settings := bus.NewI2CSettings(0x40)

	byDefault, p1 := newSocket(t, socket.Config{Number: 4, Types: []socket.Type{socket.TypeY}, NativePins: allNative()})
	dev1, err := byDefault.CreateI2CDevice(ctx, settings)
	require.NoError(t, err)

	explicit, p2 := newSocket(t, socket.Config{Number: 4, Types: []socket.Type{socket.TypeY}, NativePins: allNative()})
	dev2, err := explicit.CreateI2CDeviceOnPins(ctx, settings, socket.Pin8, socket.Pin9)
	require.NoError(t, err)

	assert.IsType(t, &softbus.I2CDevice{}, dev1)
	assert.IsType(t, &softbus.I2CDevice{}, dev2)
	assert.Equal(t, []int{108, 109}, p1.DigitalOpens())
	assert.Equal(t, p1.DigitalOpens(), p2.DigitalOpens())
	assert.Empty(t, p1.I2COpens())
	assert.Empty(t, p2.I2COpens())
}

func TestI2COnPins8And9OfISocketIsNative(t *testing.T) {
	ctx := context.Background()
	s, provider := newSocket(t, socket.Config{
		Number:            1,
		Types:             []socket.Type{socket.TypeI},
		NativePins:        allNative(),
		NativeI2CDeviceID: "I2C1",
	})

	dev, err := s.CreateI2CDeviceOnPins(ctx, bus.NewI2CSettings(0x40), socket.Pin8, socket.Pin9)
	require.NoError(t, err)
	assert.Same(t, provider.I2CDevice("I2C1", 0x40), dev)
	assert.Equal(t, []string{"I2C1/0x40"}, provider.I2COpens())
	assert.Empty(t, provider.DigitalOpens())

	// Other pins are emulated
	dev, err = s.CreateI2CDeviceOnPins(ctx, bus.NewI2CSettings(0x40), socket.Pin5, socket.Pin4)
	require.NoError(t, err)
	assert.IsType(t, &softbus.I2CDevice{}, dev)
	assert.Equal(t, []int{105, 104}, provider.DigitalOpens())
}

func TestI2CCreatorPrecedesNativeController(t *testing.T) {
	fake := bustest.NewRegisterDevice()
	s, provider := newSocket(t, socket.Config{
		Number:            1,
		Types:             []socket.Type{socket.TypeI},
		NativeI2CDeviceID: "I2C1",
		Creators: socket.Creators{
			I2CDevice: func(ctx context.Context, s socket.Socket, settings bus.I2CSettings) (bus.I2CDevice, error) {
				return fake, nil
			},
		},
	})
	dev, err := s.CreateI2CDevice(context.Background(), bus.NewI2CSettings(0x10))
	require.NoError(t, err)
	assert.Same(t, fake, dev)
	assert.Empty(t, provider.I2COpens())
}

func TestI2CUnsupported(t *testing.T) {
	s, _ := newSocket(t, socket.Config{Number: 5, Types: []socket.Type{socket.TypeA}})
	_, err := s.CreateI2CDevice(context.Background(), bus.NewI2CSettings(0x10))
	assert.True(t, model.IsUnsupportedSocketType(err))

	s, _ = newSocket(t, socket.Config{Number: 5, Types: []socket.Type{socket.TypeI}})
	_, err = s.CreateI2CDevice(context.Background(), bus.NewI2CSettings(0x10))
	assert.True(t, model.IsUnsupportedPinMode(err))
}

func TestSoftwarePathClosesCreatedLinesOnFailure(t *testing.T) {
	s, provider := newSocket(t, socket.Config{Number: 4, Types: []socket.Type{socket.TypeY}, NativePins: allNative()})
	provider.FailDigital(109, errors.New("gone"))

	_, err := s.CreateI2CDevice(context.Background(), bus.NewI2CSettings(0x40))
	require.Error(t, err)
	assert.True(t, provider.Line(108).Closed())

	_, err = s.CreateSPIDevice(context.Background(), bus.NewSPISettings(0, bus.Mode0, 1000))
	require.Error(t, err)
	for _, n := range []int{106, 107} {
		assert.True(t, provider.Line(n).Closed(), "gpio%d", n)
	}
}

func TestSPINativeAndSoftware(t *testing.T) {
	ctx := context.Background()
	settings := bus.NewSPISettings(0, bus.Mode0, 1000000)

	native, provider := newSocket(t, socket.Config{
		Number:              3,
		Types:               []socket.Type{socket.TypeS, socket.TypeX},
		NativePins:          map[socket.PinNumber]int{socket.Pin3: 24, socket.Pin4: 25, socket.Pin5: 13},
		NativeSPIDeviceID:   "SPI0",
		NativeSPIChipSelect: 1,
	})
	dev, err := native.CreateSPIDevice(ctx, settings)
	require.NoError(t, err)
	ids, devices := provider.SPIDevices()
	assert.Equal(t, []string{"SPI0"}, ids)
	require.Len(t, devices, 1)
	assert.Same(t, devices[0], dev)
	assert.Equal(t, 1, devices[0].Settings().ChipSelectLine)

	dev, err = native.CreateSPIDeviceOnPins(ctx, settings, socket.Pin6, socket.Pin7, socket.Pin8, socket.Pin9)
	require.NoError(t, err)
	_, devices = provider.SPIDevices()
	assert.Len(t, devices, 2)

	soft, provider := newSocket(t, socket.Config{Number: 4, Types: []socket.Type{socket.TypeY}, NativePins: allNative()})
	dev, err = soft.CreateSPIDevice(ctx, settings)
	require.NoError(t, err)
	assert.IsType(t, &softbus.SPIDevice{}, dev)
	assert.Equal(t, []int{106, 107, 108, 109}, provider.DigitalOpens())
}

func TestAnalog(t *testing.T) {
	ctx := context.Background()

	s, _ := newSocket(t, socket.Config{Number: 1, Types: []socket.Type{socket.TypeY}})
	_, err := s.CreateAnalogIO(ctx, socket.Pin3)
	assert.True(t, model.IsUnsupportedSocketType(err))

	// Without creator the line exists, but cannot be used
	s, _ = newSocket(t, socket.Config{Number: 5, Types: []socket.Type{socket.TypeA}})
	a, err := s.CreateAnalogIO(ctx, socket.Pin3)
	require.NoError(t, err)
	_, err = a.ReadVoltage()
	assert.True(t, model.IsNotSupported(err))
	_, err = s.CreateAnalogOutput(ctx, socket.Pin3, 1.0)
	assert.True(t, model.IsNotSupported(err))

	fake := &pinstest.Analog{Volts: 1.65}
	s, _ = newSocket(t, socket.Config{
		Number: 5,
		Types:  []socket.Type{socket.TypeA},
		Creators: socket.Creators{
			AnalogIO: func(ctx context.Context, s socket.Socket, pin socket.PinNumber) (pins.AnalogIO, error) {
				return pins.NewAnalogIO(fake), nil
			},
		},
	})
	a, err = s.CreateAnalogIO(ctx, socket.Pin4)
	require.NoError(t, err)
	assert.Equal(t, pins.Input, fake.Mode)
	p, err := a.ReadProportion()
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p, 1e-9)

	_, err = s.CreateAnalogOutput(ctx, socket.Pin4, 2.0)
	require.NoError(t, err)
	assert.Equal(t, pins.Output, fake.Mode)
	assert.Equal(t, 2.0, fake.Volts)
}

func TestPwm(t *testing.T) {
	ctx := context.Background()

	s, _ := newSocket(t, socket.Config{Number: 1, Types: []socket.Type{socket.TypeY}})
	_, err := s.CreatePwmOutput(ctx, socket.Pin7)
	assert.True(t, model.IsUnsupportedSocketType(err))

	s, _ = newSocket(t, socket.Config{Number: 7, Types: []socket.Type{socket.TypeP}})
	pwm, err := s.CreatePwmOutput(ctx, socket.Pin7)
	require.NoError(t, err)
	assert.True(t, model.IsNotSupported(pwm.SetEnabled(true)))

	fake := &pinstest.PWM{}
	s, _ = newSocket(t, socket.Config{
		Number: 7,
		Types:  []socket.Type{socket.TypeP},
		Creators: socket.Creators{
			PwmOutput: func(ctx context.Context, s socket.Socket, pin socket.PinNumber) (pins.PwmOutput, error) {
				return pins.NewPwmOutput(fake), nil
			},
		},
	})
	pwm, err = s.CreatePwmOutput(ctx, socket.Pin8)
	require.NoError(t, err)
	require.NoError(t, pwm.Set(100, 0.25))
	require.NoError(t, pwm.SetEnabled(true))
	assert.True(t, fake.Enabled)
	assert.Equal(t, 0.25, fake.DutyCycle)
}

// createdCount returns the number of interfaces of given kind created by a socket.
func createdCount(t *testing.T, socketNumber int, kind string) float64 {
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "gadgeteer_socket_interfaces_created_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["socket"] == fmt.Sprint(socketNumber) && labels["kind"] == kind {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestPwmCreatorFailureIsNotCounted(t *testing.T) {
	ctx := context.Background()
	broken := errors.New("channel busy")
	s, _ := newSocket(t, socket.Config{
		Number: 41,
		Types:  []socket.Type{socket.TypeP},
		Creators: socket.Creators{
			PwmOutput: func(ctx context.Context, s socket.Socket, pin socket.PinNumber) (pins.PwmOutput, error) {
				return nil, broken
			},
		},
	})
	before := createdCount(t, 41, "pwm")
	_, err := s.CreatePwmOutput(ctx, socket.Pin7)
	require.Error(t, err)
	assert.Equal(t, broken, errors.Cause(err))
	assert.Equal(t, before, createdCount(t, 41, "pwm"))

	s, _ = newSocket(t, socket.Config{Number: 42, Types: []socket.Type{socket.TypeP}})
	_, err = s.CreatePwmOutput(ctx, socket.Pin7)
	require.NoError(t, err)
	assert.Equal(t, 1.0, createdCount(t, 42, "pwm"))
}

func TestSerial(t *testing.T) {
	ctx := context.Background()

	s, _ := newSocket(t, socket.Config{Number: 1, Types: []socket.Type{socket.TypeI}})
	_, err := s.CreateSerialDevice(ctx, bus.DefaultSerialSettings())
	assert.True(t, model.IsUnsupportedSocketType(err))

	s, provider := newSocket(t, socket.Config{Number: 2, Types: []socket.Type{socket.TypeU}, NativeSerialDeviceID: "COM1"})
	dev, err := s.CreateSerialDevice(ctx, bus.DefaultSerialSettings())
	require.NoError(t, err)
	ids, devices := provider.SerialDevices()
	assert.Equal(t, []string{"COM1"}, ids)
	assert.Same(t, devices[0], dev)
	assert.Equal(t, uint(9600), dev.Settings().BaudRate)
}

func TestInfo(t *testing.T) {
	s, _ := newSocket(t, socket.Config{
		Number:            1,
		Types:             []socket.Type{socket.TypeI, socket.TypeA},
		NativePins:        map[socket.PinNumber]int{socket.Pin3: 18},
		NativeI2CDeviceID: "I2C1",
		Creators: socket.Creators{
			DigitalIO: func(ctx context.Context, s socket.Socket, pin socket.PinNumber) (pins.DigitalIO, error) {
				return nil, nil
			},
		},
	})
	info := s.Info()
	assert.Equal(t, 1, info.Number)
	assert.Equal(t, "AI", info.Types)
	assert.Equal(t, map[string]int{"3": 18}, info.NativePins)
	assert.Equal(t, "I2C1", info.I2C)
	assert.Equal(t, []string{"digital"}, info.Creators)
}

func TestInvalidNativePin(t *testing.T) {
	_, err := socket.New(socket.Config{NativePins: map[socket.PinNumber]int{socket.PinNumber(2): 1}}, sockettest.NewProvider(), zerolog.Nop())
	assert.True(t, model.IsArgumentOutOfRange(err))
	_, err = socket.New(socket.Config{}, nil, zerolog.Nop())
	assert.True(t, model.IsInvalidArgument(err))
}
