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

package boards

import (
	"context"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/bus"
	"github.com/binkynet/Gadgeteer/pkg/devices"
	"github.com/binkynet/Gadgeteer/pkg/indirect"
	"github.com/binkynet/Gadgeteer/pkg/pins"
	"github.com/binkynet/Gadgeteer/pkg/socket"
)

const (
	fezCreamI2CDeviceID     = "I2C1"
	fezCreamChip1Interrupt  = 22
	fezCreamChip2Interrupt  = 26
	fezCreamSPIChipSelect   = 0
	fezCreamDebugLEDChannel = 15
)

// FEZCream is the GHI FEZ Cream HAT.
// Most socket pins are wired to two PCA9535 expanders, analog pins to an
// ADS7830 and PWM pins to a PCA9685.
type FEZCream struct {
	log      zerolog.Logger
	provider socket.NativeProvider
	analog   *devices.ADS7830
	pwm      *devices.PCA9685
	gpios    [2]*devices.PCA9535
	sockets  socket.Set
}

var (
	_ Board          = &FEZCream{}
	_ indirect.Chips = &FEZCream{}
)

// NewFEZCream initializes the chips of the board and creates its sockets.
func NewFEZCream(ctx context.Context, provider socket.NativeProvider, deps Dependencies) (result *FEZCream, err error) {
	log := deps.Log.With().Str("component", "fezcream").Logger()
	b := &FEZCream{
		log:      log,
		provider: provider,
	}
	defer func() {
		if err != nil {
			b.Close()
		}
	}()
	devDeps := devices.Dependencies{Log: log, OnActive: deps.OnActive}

	dev, err := b.openI2C(ctx, devices.ADS7830Address(false, false))
	if err != nil {
		return nil, err
	}
	b.analog = devices.NewADS7830(dev, devDeps)

	if dev, err = b.openI2C(ctx, devices.PCA9685Address(true, true, true, true, true, true)); err != nil {
		return nil, err
	}
	if b.pwm, err = devices.NewPCA9685(dev, nil, devDeps); err != nil {
		dev.Close()
		return nil, maskAny(err)
	}

	for i, c := range []struct {
		address   uint16
		interrupt int
	}{
		{devices.PCA9535Address(true, true, false), fezCreamChip1Interrupt},
		{devices.PCA9535Address(true, false, true), fezCreamChip2Interrupt},
	} {
		dev, err := b.openI2C(ctx, c.address)
		if err != nil {
			return nil, err
		}
		intr, err := provider.OpenDigital(ctx, c.interrupt)
		if err != nil {
			dev.Close()
			return nil, maskAny(err)
		}
		intrIO := pins.NewDigitalIO(intr)
		if b.gpios[i], err = devices.NewPCA9535(dev, intrIO, devDeps); err != nil {
			intrIO.Close()
			dev.Close()
			return nil, maskAny(err)
		}
	}

	// Disable all PWM output buffers
	for pin := 2; pin <= 7; pin++ {
		if err := b.gpios[0].SetDriveMode(pin, pins.Output); err != nil {
			return nil, maskAny(err)
		}
		if err := b.gpios[0].Write(pin, true); err != nil {
			return nil, maskAny(err)
		}
	}

	for _, sc := range fezCreamSockets {
		cfg := socket.Config{
			Number:               sc.number,
			Types:                sc.types,
			NativePins:           sc.nativePins,
			NativeI2CDeviceID:    sc.i2c,
			NativeSPIDeviceID:    sc.spi,
			NativeSPIChipSelect:  fezCreamSPIChipSelect,
			NativeSerialDeviceID: sc.serial,
		}
		if sc.digital {
			cfg.Creators.DigitalIO = b.createDigitalIO
		}
		if sc.analog {
			cfg.Creators.AnalogIO = b.createAnalogIO
		}
		if sc.pwm {
			cfg.Creators.PwmOutput = b.createPwmOutput
		}
		s, err := socket.New(cfg, provider, log)
		if err != nil {
			return nil, maskAny(err)
		}
		if err := b.sockets.Add(s); err != nil {
			return nil, maskAny(err)
		}
	}
	log.Info().Int("sockets", len(fezCreamSockets)).Msg("FEZ Cream initialized")
	return b, nil
}

func (b *FEZCream) openI2C(ctx context.Context, address uint16) (bus.I2CDevice, error) {
	dev, err := b.provider.OpenI2C(ctx, fezCreamI2CDeviceID, bus.NewI2CSettings(address))
	if err != nil {
		return nil, maskAny(err)
	}
	return dev, nil
}

// Name of the board
func (b *FEZCream) Name() string { return "FEZ Cream" }

// Manufacturer of the board
func (b *FEZCream) Manufacturer() string { return "GHI Electronics, LLC" }

// ProvidedSocket returns the socket with given number.
func (b *FEZCream) ProvidedSocket(number int) (socket.Socket, error) {
	s, err := b.sockets.Get(number)
	if err != nil {
		return nil, maskAny(err)
	}
	return s, nil
}

// ProvidedSockets returns all sockets ordered by number.
func (b *FEZCream) ProvidedSockets() []socket.Socket {
	return b.sockets.All()
}

// SetDebugLED switches the LED on PWM channel 15.
func (b *FEZCream) SetDebugLED(on bool) error {
	if on {
		return maskAny(b.pwm.TurnOn(fezCreamDebugLEDChannel))
	}
	return maskAny(b.pwm.TurnOff(fezCreamDebugLEDChannel))
}

// Expander returns the expander with given (1 based) number.
func (b *FEZCream) Expander(chip int) (indirect.GPIOExpander, error) {
	if chip < 1 || chip > len(b.gpios) || b.gpios[chip-1] == nil {
		return nil, model.OutOfRange("expander must be in 1..%d range, got %d", len(b.gpios), chip)
	}
	return b.gpios[chip-1], nil
}

// OpenNative opens a GPIO of the host.
func (b *FEZCream) OpenNative(ctx context.Context, pin int) (pins.DigitalDriver, error) {
	d, err := b.provider.OpenDigital(ctx, pin)
	if err != nil {
		return nil, maskAny(err)
	}
	return d, nil
}

// createDigitalIO serves socket pins wired to an expander.
// A pin shared with a PWM channel first gets its PWM output buffer disabled.
func (b *FEZCream) createDigitalIO(ctx context.Context, s socket.Socket, pin socket.PinNumber) (pins.DigitalIO, error) {
	c, found := fezCreamGpioMap[s.Number()][pin]
	if !found {
		return nil, unsupportedPin(s, pin)
	}
	if channel, found := fezCreamPwmMap[s.Number()][pin]; found {
		if err := fezCreamPwmShared.ClaimForDigital(ctx, b, channel); err != nil {
			return nil, maskAny(err)
		}
	}
	expander, err := b.Expander(c.Chip)
	if err != nil {
		return nil, maskAny(err)
	}
	return pins.NewDigitalIO(indirect.NewDigital(expander, c.Pin)), nil
}

// createAnalogIO serves socket pins wired to an ADC channel.
func (b *FEZCream) createAnalogIO(ctx context.Context, s socket.Socket, pin socket.PinNumber) (pins.AnalogIO, error) {
	channel, found := fezCreamAnalogMap[s.Number()][pin]
	if !found {
		return nil, unsupportedPin(s, pin)
	}
	if err := fezCreamAnalogShared.Claim(ctx, b, channel); err != nil {
		return nil, maskAny(err)
	}
	return pins.NewAnalogIO(indirect.NewAnalog(b.analog, channel)), nil
}

// createPwmOutput serves socket pins wired to a PWM channel.
func (b *FEZCream) createPwmOutput(ctx context.Context, s socket.Socket, pin socket.PinNumber) (pins.PwmOutput, error) {
	channel, found := fezCreamPwmMap[s.Number()][pin]
	if !found {
		return nil, unsupportedPin(s, pin)
	}
	if err := fezCreamPwmShared.ClaimForPwm(ctx, b, channel); err != nil {
		return nil, maskAny(err)
	}
	return pins.NewPwmOutput(indirect.NewPwm(b.pwm, channel)), nil
}

// Close all chips.
func (b *FEZCream) Close() error {
	var ae aerr.AggregateError
	for _, g := range b.gpios {
		if g != nil {
			if err := g.Close(); err != nil {
				ae.Add(err)
			}
		}
	}
	if b.pwm != nil {
		if err := b.pwm.Close(); err != nil {
			ae.Add(err)
		}
	}
	if b.analog != nil {
		if err := b.analog.Close(); err != nil {
			ae.Add(err)
		}
	}
	return ae.AsError()
}

func unsupportedPin(s socket.Socket, pin socket.PinNumber) error {
	return errors.Wrapf(model.UnsupportedPinModeError, "socket %d pin %d", s.Number(), pin)
}
