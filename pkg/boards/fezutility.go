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
	"github.com/rs/zerolog"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/bus"
	"github.com/binkynet/Gadgeteer/pkg/devices"
	"github.com/binkynet/Gadgeteer/pkg/pins"
	"github.com/binkynet/Gadgeteer/pkg/socket"
)

const (
	fezUtilityI2CDeviceID = "I2C1"
	fezUtilityInterrupt   = 22
	fezUtilityPwmPins     = 14
)

// FEZUtilityLED identifies an onboard LED of the FEZ Utility.
type FEZUtilityLED int

// LED1 and LED2 are expander pins, LED3 and LED4 are PWM channels.
const (
	FEZUtilityLED1 FEZUtilityLED = 16
	FEZUtilityLED2 FEZUtilityLED = 17
	FEZUtilityLED3 FEZUtilityLED = 14
	FEZUtilityLED4 FEZUtilityLED = 15
)

// FEZUtility is the GHI FEZ Utility HAT.
// It has no sockets, only headers wired straight to a PCA9535 (V00-V07,
// V10-V15), an ADS7830 (A0-A7) and a PCA9685 (P0-P13).
type FEZUtility struct {
	log      zerolog.Logger
	provider socket.NativeProvider
	analog   *devices.ADS7830
	pwm      *devices.PCA9685
	gpio     *devices.PCA9535
	sockets  socket.Set
}

var _ Board = &FEZUtility{}

// NewFEZUtility initializes the chips of the board and switches LED1 and LED2 off.
func NewFEZUtility(ctx context.Context, provider socket.NativeProvider, deps Dependencies) (result *FEZUtility, err error) {
	log := deps.Log.With().Str("component", "fezutility").Logger()
	b := &FEZUtility{
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

	if dev, err = b.openI2C(ctx, devices.PCA9535Address(true, true, false)); err != nil {
		return nil, err
	}
	intr, err := provider.OpenDigital(ctx, fezUtilityInterrupt)
	if err != nil {
		dev.Close()
		return nil, maskAny(err)
	}
	intrIO := pins.NewDigitalIO(intr)
	if b.gpio, err = devices.NewPCA9535(dev, intrIO, devDeps); err != nil {
		intrIO.Close()
		dev.Close()
		return nil, maskAny(err)
	}

	for _, led := range []FEZUtilityLED{FEZUtilityLED1, FEZUtilityLED2} {
		if err := b.gpio.Write(int(led), false); err != nil {
			return nil, maskAny(err)
		}
		if err := b.gpio.SetDriveMode(int(led), pins.Output); err != nil {
			return nil, maskAny(err)
		}
	}
	log.Info().Msg("FEZ Utility initialized")
	return b, nil
}

func (b *FEZUtility) openI2C(ctx context.Context, address uint16) (bus.I2CDevice, error) {
	dev, err := b.provider.OpenI2C(ctx, fezUtilityI2CDeviceID, bus.NewI2CSettings(address))
	if err != nil {
		return nil, maskAny(err)
	}
	return dev, nil
}

// Name of the board
func (b *FEZUtility) Name() string { return "FEZ Utility" }

// Manufacturer of the board
func (b *FEZUtility) Manufacturer() string { return "GHI Electronics, LLC" }

// ProvidedSocket always fails, the board has no sockets.
func (b *FEZUtility) ProvidedSocket(number int) (socket.Socket, error) {
	s, err := b.sockets.Get(number)
	if err != nil {
		return nil, maskAny(err)
	}
	return s, nil
}

// ProvidedSockets returns an empty list.
func (b *FEZUtility) ProvidedSockets() []socket.Socket {
	return b.sockets.All()
}

// SetDebugLED switches LED1.
func (b *FEZUtility) SetDebugLED(on bool) error {
	return b.SetLED(FEZUtilityLED1, on)
}

// SetLED switches one of the onboard LEDs.
func (b *FEZUtility) SetLED(led FEZUtilityLED, on bool) error {
	switch led {
	case FEZUtilityLED1, FEZUtilityLED2:
		return maskAny(b.gpio.Write(int(led), on))
	case FEZUtilityLED3, FEZUtilityLED4:
		if on {
			return maskAny(b.pwm.TurnOn(int(led)))
		}
		return maskAny(b.pwm.TurnOff(int(led)))
	default:
		return model.InvalidArgument("unknown LED %d", int(led))
	}
}

// PwmFrequency returns the frequency shared by all PWM pins.
func (b *FEZUtility) PwmFrequency() (int, error) {
	hz, err := b.pwm.Frequency()
	if err != nil {
		return 0, maskAny(err)
	}
	return hz, nil
}

// SetPwmFrequency changes the frequency of all PWM pins.
func (b *FEZUtility) SetPwmFrequency(hz int) error {
	return maskAny(b.pwm.SetFrequency(hz))
}

// SetPwmDutyCycle sets the duty cycle of header pin P<channel>.
func (b *FEZUtility) SetPwmDutyCycle(channel int, dutyCycle float64) error {
	if channel < 0 || channel >= fezUtilityPwmPins {
		return model.InvalidArgument("PWM pin %d is not exposed", channel)
	}
	return maskAny(b.pwm.SetDutyCycle(channel, dutyCycle))
}

// isFEZUtilityDigitalPin returns true for header pins V00-V07 and V10-V15.
func isFEZUtilityDigitalPin(pin int) bool {
	return (pin >= 0 && pin <= 7) || (pin >= 10 && pin <= 15)
}

// SetDigitalDriveMode sets the direction of header pin V<pin>.
func (b *FEZUtility) SetDigitalDriveMode(pin int, mode pins.DriveMode) error {
	if !isFEZUtilityDigitalPin(pin) {
		return model.InvalidArgument("digital pin %d is not exposed", pin)
	}
	return maskAny(b.gpio.SetDriveMode(pin, mode))
}

// WriteDigital drives header pin V<pin>.
func (b *FEZUtility) WriteDigital(pin int, value bool) error {
	if !isFEZUtilityDigitalPin(pin) {
		return model.InvalidArgument("digital pin %d is not exposed", pin)
	}
	return maskAny(b.gpio.Write(pin, value))
}

// ReadDigital samples header pin V<pin>.
func (b *FEZUtility) ReadDigital(pin int) (bool, error) {
	if !isFEZUtilityDigitalPin(pin) {
		return false, model.InvalidArgument("digital pin %d is not exposed", pin)
	}
	v, err := b.gpio.Read(pin)
	if err != nil {
		return false, maskAny(err)
	}
	return v, nil
}

// SubscribeDigital calls cb when header pin V<pin> changes.
func (b *FEZUtility) SubscribeDigital(pin int, cb func(value bool)) (func(), error) {
	if !isFEZUtilityDigitalPin(pin) {
		return nil, model.InvalidArgument("digital pin %d is not exposed", pin)
	}
	cancel, err := b.gpio.SubscribePin(pin, cb)
	if err != nil {
		return nil, maskAny(err)
	}
	return cancel, nil
}

// ReadAnalog samples header pin A<channel> in [0..1].
func (b *FEZUtility) ReadAnalog(channel int) (float64, error) {
	p, err := b.analog.ReadProportion(channel)
	if err != nil {
		return 0, maskAny(err)
	}
	return p, nil
}

// Close all chips.
func (b *FEZUtility) Close() error {
	var ae aerr.AggregateError
	if b.gpio != nil {
		if err := b.gpio.Close(); err != nil {
			ae.Add(err)
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
