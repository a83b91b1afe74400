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
	"math"
	"sync"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/rs/zerolog"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/bus"
	"github.com/binkynet/Gadgeteer/pkg/devices"
	"github.com/binkynet/Gadgeteer/pkg/indirect"
	"github.com/binkynet/Gadgeteer/pkg/modules"
	"github.com/binkynet/Gadgeteer/pkg/pins"
	"github.com/binkynet/Gadgeteer/pkg/socket"
)

const (
	fezHatI2CDeviceID        = "I2C1"
	fezHatOutputEnablePin    = 13
	fezHatMotorEnablePin     = 12
	fezHatLEDPin             = 24
	fezHatButton18Pin        = 18
	fezHatButton22Pin        = 22
	fezHatTemperatureChannel = 4
	fezHatLightChannel       = 5
	fezHatPwmFrequency       = 1500
)

var (
	fezHatDigitalPins = map[int]struct{}{16: {}, 26: {}}
	fezHatAnalogPins  = map[int]struct{}{1: {}, 2: {}, 3: {}, 6: {}, 7: {}}
	fezHatPwmPins     = map[int]struct{}{5: {}, 6: {}, 7: {}, 11: {}, 12: {}}
)

// FEZHAT is the GHI FEZ HAT.
// It has no sockets. Its onboard motors, RGB LEDs and servo headers
// share one PCA9685, so they also share one PWM frequency.
type FEZHAT struct {
	log      zerolog.Logger
	provider socket.NativeProvider
	analog   *devices.ADS7830
	pwm      *devices.PCA9685
	accel    *devices.MMA8453
	lines    map[int]pins.DigitalIO
	motors   [2]*Motor
	leds     [2]*RgbLed
	servos   [2]*pins.Servo
	sockets  socket.Set
}

var (
	_ Board          = &FEZHAT{}
	_ modules.Sensor = &FEZHAT{}
)

// NewFEZHAT initializes the chips and native lines of the board.
func NewFEZHAT(ctx context.Context, provider socket.NativeProvider, deps Dependencies) (result *FEZHAT, err error) {
	log := deps.Log.With().Str("component", "fezhat").Logger()
	b := &FEZHAT{
		log:      log,
		provider: provider,
		lines:    make(map[int]pins.DigitalIO),
	}
	defer func() {
		if err != nil {
			b.Close()
		}
	}()
	devDeps := devices.Dependencies{Log: log, OnActive: deps.OnActive}

	dev, err := b.openI2C(ctx, devices.MMA8453Address(false))
	if err != nil {
		return nil, err
	}
	if b.accel, err = devices.NewMMA8453(dev, devDeps); err != nil {
		dev.Close()
		return nil, maskAny(err)
	}

	if dev, err = b.openI2C(ctx, devices.ADS7830Address(false, false)); err != nil {
		return nil, err
	}
	b.analog = devices.NewADS7830(dev, devDeps)

	if dev, err = b.openI2C(ctx, devices.PCA9685Address(true, true, true, true, true, true)); err != nil {
		return nil, err
	}
	oe, err := provider.OpenDigital(ctx, fezHatOutputEnablePin)
	if err != nil {
		dev.Close()
		return nil, maskAny(err)
	}
	oeIO := pins.NewDigitalIO(oe)
	if b.pwm, err = devices.NewPCA9685(dev, oeIO, devDeps); err != nil {
		oeIO.Close()
		dev.Close()
		return nil, maskAny(err)
	}
	if err := b.pwm.SetFrequency(fezHatPwmFrequency); err != nil {
		return nil, maskAny(err)
	}

	for _, pin := range []int{16, 26} {
		if _, err := b.openLine(ctx, pin); err != nil {
			return nil, err
		}
	}
	led, err := b.openLine(ctx, fezHatLEDPin)
	if err != nil {
		return nil, err
	}
	if err := led.SetDriveMode(pins.Output); err != nil {
		return nil, maskAny(err)
	}
	for _, pin := range []int{fezHatButton18Pin, fezHatButton22Pin} {
		l, err := b.openLine(ctx, pin)
		if err != nil {
			return nil, err
		}
		if err := l.SetDriveMode(pins.Input); err != nil {
			return nil, maskAny(err)
		}
	}
	motorEnable, err := b.openLine(ctx, fezHatMotorEnablePin)
	if err != nil {
		return nil, err
	}
	if err := motorEnable.Write(true); err != nil {
		return nil, maskAny(err)
	}

	for i, m := range []struct {
		channel    int
		dir1, dir2 int
	}{
		{14, 27, 23},
		{13, 6, 5},
	} {
		dir1, err := b.openLine(ctx, m.dir1)
		if err != nil {
			return nil, err
		}
		dir2, err := b.openLine(ctx, m.dir2)
		if err != nil {
			return nil, err
		}
		for _, l := range []pins.DigitalIO{dir1, dir2} {
			if err := l.SetDriveMode(pins.Output); err != nil {
				return nil, maskAny(err)
			}
		}
		b.motors[i] = &Motor{pwm: b.pwm, channel: m.channel, dir1: dir1, dir2: dir2}
	}
	b.leds[0] = &RgbLed{pwm: b.pwm, red: 1, green: 0, blue: 2}
	b.leds[1] = &RgbLed{pwm: b.pwm, red: 4, green: 3, blue: 15}
	b.servos[0] = pins.NewServo(pins.NewPwmOutput(indirect.NewPwm(b.pwm, 9)))
	b.servos[1] = pins.NewServo(pins.NewPwmOutput(indirect.NewPwm(b.pwm, 10)))

	log.Info().Msg("FEZ HAT initialized")
	return b, nil
}

func (b *FEZHAT) openI2C(ctx context.Context, address uint16) (bus.I2CDevice, error) {
	dev, err := b.provider.OpenI2C(ctx, fezHatI2CDeviceID, bus.NewI2CSettings(address))
	if err != nil {
		return nil, maskAny(err)
	}
	return dev, nil
}

func (b *FEZHAT) openLine(ctx context.Context, pin int) (pins.DigitalIO, error) {
	d, err := b.provider.OpenDigital(ctx, pin)
	if err != nil {
		return nil, maskAny(err)
	}
	l := pins.NewDigitalIO(d)
	b.lines[pin] = l
	return l, nil
}

// Name of the board
func (b *FEZHAT) Name() string { return "FEZ HAT" }

// Manufacturer of the board
func (b *FEZHAT) Manufacturer() string { return "GHI Electronics, LLC" }

// ProvidedSocket always fails, the board has no sockets.
func (b *FEZHAT) ProvidedSocket(number int) (socket.Socket, error) {
	s, err := b.sockets.Get(number)
	if err != nil {
		return nil, maskAny(err)
	}
	return s, nil
}

// ProvidedSockets returns an empty list.
func (b *FEZHAT) ProvidedSockets() []socket.Socket {
	return b.sockets.All()
}

// SetDebugLED switches the LED labeled DIO24.
func (b *FEZHAT) SetDebugLED(on bool) error {
	return maskAny(b.lines[fezHatLEDPin].Write(on))
}

// PwmFrequency returns the frequency shared by all PWM outputs.
func (b *FEZHAT) PwmFrequency() (int, error) {
	hz, err := b.pwm.Frequency()
	if err != nil {
		return 0, maskAny(err)
	}
	return hz, nil
}

// SetPwmFrequency changes the frequency of all PWM outputs,
// including motors and servos.
func (b *FEZHAT) SetPwmFrequency(hz int) error {
	return maskAny(b.pwm.SetFrequency(hz))
}

// MotorA is the motor terminal labeled A.
func (b *FEZHAT) MotorA() *Motor { return b.motors[0] }

// MotorB is the motor terminal labeled B.
func (b *FEZHAT) MotorB() *Motor { return b.motors[1] }

// D2 is the RGB LED labeled D2.
func (b *FEZHAT) D2() *RgbLed { return b.leds[0] }

// D3 is the RGB LED labeled D3.
func (b *FEZHAT) D3() *RgbLed { return b.leds[1] }

// S1 is the servo header labeled S1.
func (b *FEZHAT) S1() *pins.Servo { return b.servos[0] }

// S2 is the servo header labeled S2.
func (b *FEZHAT) S2() *pins.Servo { return b.servos[1] }

// IsDIO18Pressed returns true while the button labeled DIO18 is down.
func (b *FEZHAT) IsDIO18Pressed() (bool, error) {
	return b.isPressed(fezHatButton18Pin)
}

// IsDIO22Pressed returns true while the button labeled DIO22 is down.
func (b *FEZHAT) IsDIO22Pressed() (bool, error) {
	return b.isPressed(fezHatButton22Pin)
}

// isPressed reads an active low button.
func (b *FEZHAT) isPressed(pin int) (bool, error) {
	v, err := b.lines[pin].Value()
	if err != nil {
		return false, maskAny(err)
	}
	return !v, nil
}

// LightLevel returns the onboard light sensor level in [0..1].
func (b *FEZHAT) LightLevel() (float64, error) {
	p, err := b.analog.ReadProportion(fezHatLightChannel)
	if err != nil {
		return 0, maskAny(err)
	}
	return p, nil
}

// Temperature returns the onboard sensor temperature in degrees Celsius.
func (b *FEZHAT) Temperature() (float64, error) {
	p, err := b.analog.ReadProportion(fezHatTemperatureChannel)
	if err != nil {
		return 0, maskAny(err)
	}
	return (p*3300.0 - 450.0) / 19.5, nil
}

// Acceleration returns the onboard accelerometer readings.
func (b *FEZHAT) Acceleration() (devices.Acceleration, error) {
	a, err := b.accel.Acceleration()
	if err != nil {
		return devices.Acceleration{}, maskAny(err)
	}
	return a, nil
}

// SetPwmDutyCycle sets the duty cycle of an exposed PWM pin.
func (b *FEZHAT) SetPwmDutyCycle(channel int, dutyCycle float64) error {
	if _, found := fezHatPwmPins[channel]; !found {
		return model.InvalidArgument("PWM pin %d is not exposed", channel)
	}
	return maskAny(b.pwm.SetDutyCycle(channel, dutyCycle))
}

// WriteDigital drives DIO16 or DIO26, switching it to output when needed.
func (b *FEZHAT) WriteDigital(pin int, value bool) error {
	if _, found := fezHatDigitalPins[pin]; !found {
		return model.InvalidArgument("digital pin %d is not exposed", pin)
	}
	return maskAny(b.lines[pin].Write(value))
}

// ReadDigital reads DIO16 or DIO26, switching it to input when needed.
func (b *FEZHAT) ReadDigital(pin int) (bool, error) {
	if _, found := fezHatDigitalPins[pin]; !found {
		return false, model.InvalidArgument("digital pin %d is not exposed", pin)
	}
	v, err := b.lines[pin].Read()
	if err != nil {
		return false, maskAny(err)
	}
	return v, nil
}

// ReadAnalog samples an exposed analog pin in [0..1].
func (b *FEZHAT) ReadAnalog(channel int) (float64, error) {
	if _, found := fezHatAnalogPins[channel]; !found {
		return 0, model.InvalidArgument("analog pin %d is not exposed", channel)
	}
	p, err := b.analog.ReadProportion(channel)
	if err != nil {
		return 0, maskAny(err)
	}
	return p, nil
}

// Readings samples all onboard sensors.
func (b *FEZHAT) Readings(ctx context.Context) ([]modules.Reading, error) {
	light, err := b.LightLevel()
	if err != nil {
		return nil, err
	}
	temp, err := b.Temperature()
	if err != nil {
		return nil, err
	}
	a, err := b.Acceleration()
	if err != nil {
		return nil, err
	}
	dio18, err := b.IsDIO18Pressed()
	if err != nil {
		return nil, err
	}
	dio22, err := b.IsDIO22Pressed()
	if err != nil {
		return nil, err
	}
	return []modules.Reading{
		{Quantity: "light", Value: light * 100, Unit: "%"},
		{Quantity: "temperature", Value: temp, Unit: "C"},
		{Quantity: "acceleration_x", Value: a.X, Unit: "g"},
		{Quantity: "acceleration_y", Value: a.Y, Unit: "g"},
		{Quantity: "acceleration_z", Value: a.Z, Unit: "g"},
		{Quantity: "dio18_pressed", Value: boolValue(dio18)},
		{Quantity: "dio22_pressed", Value: boolValue(dio22)},
	}, nil
}

// Close all chips and native lines.
func (b *FEZHAT) Close() error {
	var ae aerr.AggregateError
	for _, l := range b.lines {
		if err := l.Close(); err != nil {
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
	if b.accel != nil {
		if err := b.accel.Close(); err != nil {
			ae.Add(err)
		}
	}
	return ae.AsError()
}

// Color of an RGB LED.
type Color struct {
	R, G, B byte
}

// RgbLed is an RGB LED driven by 3 channels of a PWM controller.
type RgbLed struct {
	pwm              indirect.PWMController
	red, green, blue int

	mutex sync.Mutex
	color Color
}

// Color returns the last color set.
func (l *RgbLed) Color() Color {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.color
}

// SetColor sets the duty cycle of each channel to its color intensity.
func (l *RgbLed) SetColor(c Color) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	for _, x := range []struct {
		channel int
		value   byte
	}{
		{l.red, c.R},
		{l.green, c.G},
		{l.blue, c.B},
	} {
		if err := l.pwm.SetDutyCycle(x.channel, float64(x.value)/255.0); err != nil {
			return maskAny(err)
		}
	}
	l.color = c
	return nil
}

// TurnOff switches all channels off.
func (l *RgbLed) TurnOff() error {
	return l.SetColor(Color{})
}

// Motor is a DC motor with a PWM speed channel and two direction lines.
type Motor struct {
	pwm        indirect.PWMController
	channel    int
	dir1, dir2 pins.DigitalIO

	mutex sync.Mutex
	speed float64
}

// Speed returns the last speed set.
func (m *Motor) Speed() float64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.speed
}

// SetSpeed sets the speed in [-1..1]. The sign selects the direction.
// The motor is stopped while the direction lines change.
func (m *Motor) SetSpeed(speed float64) error {
	if speed < -1 || speed > 1 {
		return model.OutOfRange("speed must be in -1..1 range, got %g", speed)
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err := m.pwm.TurnOff(m.channel); err != nil {
		return maskAny(err)
	}
	forward := speed > 0
	if err := m.dir1.Write(forward); err != nil {
		return maskAny(err)
	}
	if err := m.dir2.Write(!forward); err != nil {
		return maskAny(err)
	}
	if err := m.pwm.SetDutyCycle(m.channel, math.Abs(speed)); err != nil {
		return maskAny(err)
	}
	m.speed = speed
	return nil
}

// Stop the motor, keeping the direction lines.
func (m *Motor) Stop() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err := m.pwm.TurnOff(m.channel); err != nil {
		return maskAny(err)
	}
	m.speed = 0
	return nil
}

func boolValue(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
