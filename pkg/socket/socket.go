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

package socket

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/bus"
	"github.com/binkynet/Gadgeteer/pkg/pins"
	"github.com/binkynet/Gadgeteer/pkg/softbus"
)

// NativeProvider opens peripherals of the host.
type NativeProvider interface {
	// OpenDigital opens the GPIO with given (host specific) number.
	OpenDigital(ctx context.Context, nativePin int) (pins.DigitalDriver, error)
	// OpenI2C opens a device on the I2C controller with given id.
	OpenI2C(ctx context.Context, deviceID string, settings bus.I2CSettings) (bus.I2CDevice, error)
	// OpenSPI opens a device on the SPI controller with given id.
	OpenSPI(ctx context.Context, deviceID string, settings bus.SPISettings) (bus.SPIDevice, error)
	// OpenSerial opens the UART with given id.
	OpenSerial(ctx context.Context, deviceID string, settings bus.SerialSettings) (bus.SerialDevice, error)
}

// DigitalIOCreator creates digital lines for pins that have no native GPIO.
type DigitalIOCreator func(ctx context.Context, s Socket, pin PinNumber) (pins.DigitalIO, error)

// AnalogIOCreator creates analog lines.
type AnalogIOCreator func(ctx context.Context, s Socket, pin PinNumber) (pins.AnalogIO, error)

// PwmOutputCreator creates PWM outputs.
type PwmOutputCreator func(ctx context.Context, s Socket, pin PinNumber) (pins.PwmOutput, error)

// I2CDeviceCreator creates I2C devices.
type I2CDeviceCreator func(ctx context.Context, s Socket, settings bus.I2CSettings) (bus.I2CDevice, error)

// SPIDeviceCreator creates SPI devices.
type SPIDeviceCreator func(ctx context.Context, s Socket, settings bus.SPISettings) (bus.SPIDevice, error)

// SerialDeviceCreator creates serial devices.
type SerialDeviceCreator func(ctx context.Context, s Socket, settings bus.SerialSettings) (bus.SerialDevice, error)

// Creators holds the board specific interface creators of a socket.
// Each of them is optional.
type Creators struct {
	DigitalIO    DigitalIOCreator
	AnalogIO     AnalogIOCreator
	PwmOutput    PwmOutputCreator
	I2CDevice    I2CDeviceCreator
	SPIDevice    SPIDeviceCreator
	SerialDevice SerialDeviceCreator
}

// Config describes a socket.
type Config struct {
	// Number of the socket on its board
	Number int
	// Supported socket types
	Types []Type
	// Socket pin -> native GPIO number
	NativePins map[PinNumber]int
	// Native device identifiers, empty when absent
	NativeI2CDeviceID    string
	NativeSPIDeviceID    string
	NativeSPIChipSelect  int
	NativeSerialDeviceID string
	// Board specific creators
	Creators Creators
	// Software I2C tuning for emulated buses on this socket
	SoftwareI2C softbus.I2CConfig
}

// Socket hands out interfaces for the pins of a single connector.
type Socket interface {
	// Number of the socket on its board.
	Number() int
	// Types returns the supported socket types.
	Types() []Type
	// IsTypeSupported returns true when the socket supports the given type,
	// either directly or through an alias.
	IsTypeSupported(t Type) bool
	// EnsureTypeIsSupported returns an UnsupportedSocketTypeError when
	// the socket does not support the given type.
	EnsureTypeIsSupported(t Type) error
	// Info returns a description of the socket.
	Info() Info

	// CreateDigitalIO creates a digital line in Input mode.
	CreateDigitalIO(ctx context.Context, pin PinNumber) (pins.DigitalIO, error)
	// CreateDigitalInterrupt creates a digital line in Input mode with given edge armed.
	CreateDigitalInterrupt(ctx context.Context, pin PinNumber, edge pins.Edge) (pins.DigitalIO, error)
	// CreateDigitalOutput creates a digital line in Output mode at the given level.
	CreateDigitalOutput(ctx context.Context, pin PinNumber, initialValue bool) (pins.DigitalIO, error)
	// CreateAnalogIO creates an analog line in Input mode.
	CreateAnalogIO(ctx context.Context, pin PinNumber) (pins.AnalogIO, error)
	// CreateAnalogOutput creates an analog line in Output mode at the given voltage.
	CreateAnalogOutput(ctx context.Context, pin PinNumber, initialVoltage float64) (pins.AnalogIO, error)
	// CreatePwmOutput creates a (disabled) PWM output.
	CreatePwmOutput(ctx context.Context, pin PinNumber) (pins.PwmOutput, error)
	// CreateI2CDevice creates an I2C device on the default pins (8, 9).
	CreateI2CDevice(ctx context.Context, settings bus.I2CSettings) (bus.I2CDevice, error)
	// CreateI2CDeviceOnPins creates an I2C device on the given pins.
	CreateI2CDeviceOnPins(ctx context.Context, settings bus.I2CSettings, sda, scl PinNumber) (bus.I2CDevice, error)
	// CreateSPIDevice creates an SPI device on the default pins (6, 7, 8, 9).
	CreateSPIDevice(ctx context.Context, settings bus.SPISettings) (bus.SPIDevice, error)
	// CreateSPIDeviceOnPins creates an SPI device on the given pins.
	CreateSPIDeviceOnPins(ctx context.Context, settings bus.SPISettings, chipSelect, masterOut, masterIn, clock PinNumber) (bus.SPIDevice, error)
	// CreateSerialDevice creates a serial device.
	CreateSerialDevice(ctx context.Context, settings bus.SerialSettings) (bus.SerialDevice, error)
}

// Info is a JSON friendly description of a socket.
type Info struct {
	Number     int            `json:"number"`
	Types      string         `json:"types"`
	NativePins map[string]int `json:"native_pins,omitempty"`
	I2C        string         `json:"i2c,omitempty"`
	SPI        string         `json:"spi,omitempty"`
	Serial     string         `json:"serial,omitempty"`
	Creators   []string       `json:"creators,omitempty"`
}

type digitalStrategy func(ctx context.Context, pin PinNumber) (pins.DigitalIO, error)

type socket struct {
	log      zerolog.Logger
	cfg      Config
	types    map[Type]struct{}
	provider NativeProvider
	digital  map[PinNumber]digitalStrategy
}

// New creates a socket with given configuration.
// The digital line strategy of every pin is decided here.
func New(cfg Config, provider NativeProvider, log zerolog.Logger) (Socket, error) {
	if provider == nil {
		return nil, model.InvalidArgument("native provider is required")
	}
	for p := range cfg.NativePins {
		if err := p.Validate(); err != nil {
			return nil, maskAny(err)
		}
	}
	s := &socket{
		log:      log.With().Int("socket", cfg.Number).Logger(),
		cfg:      cfg,
		types:    make(map[Type]struct{}, len(cfg.Types)),
		provider: provider,
		digital:  make(map[PinNumber]digitalStrategy),
	}
	for _, t := range cfg.Types {
		s.types[t] = struct{}{}
	}
	for p := Pin3; p <= Pin9; p++ {
		if native, found := cfg.NativePins[p]; found {
			s.digital[p] = s.nativeDigital(native)
		} else if cfg.Creators.DigitalIO != nil {
			s.digital[p] = s.creatorDigital
		}
	}
	return s, nil
}

func (s *socket) Number() int {
	return s.cfg.Number
}

func (s *socket) Types() []Type {
	result := make([]Type, 0, len(s.types))
	for t := range s.types {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

func (s *socket) IsTypeSupported(t Type) bool {
	for _, alias := range typeAliases[t] {
		if _, found := s.types[alias]; found {
			return true
		}
	}
	_, found := s.types[t]
	return found
}

func (s *socket) EnsureTypeIsSupported(t Type) error {
	if !s.IsTypeSupported(t) {
		return errors.Wrapf(model.UnsupportedSocketTypeError, "%s is not supported on socket %d", t, s.cfg.Number)
	}
	return nil
}

func (s *socket) Info() Info {
	var sb strings.Builder
	for _, t := range s.Types() {
		sb.WriteString(t.String())
	}
	info := Info{
		Number: s.cfg.Number,
		Types:  sb.String(),
		I2C:    s.cfg.NativeI2CDeviceID,
		SPI:    s.cfg.NativeSPIDeviceID,
		Serial: s.cfg.NativeSerialDeviceID,
	}
	if len(s.cfg.NativePins) > 0 {
		info.NativePins = make(map[string]int, len(s.cfg.NativePins))
		for p, n := range s.cfg.NativePins {
			info.NativePins[strconv.Itoa(int(p))] = n
		}
	}
	c := s.cfg.Creators
	for _, x := range []struct {
		name    string
		present bool
	}{
		{"digital", c.DigitalIO != nil},
		{"analog", c.AnalogIO != nil},
		{"pwm", c.PwmOutput != nil},
		{"i2c", c.I2CDevice != nil},
		{"spi", c.SPIDevice != nil},
		{"serial", c.SerialDevice != nil},
	} {
		if x.present {
			info.Creators = append(info.Creators, x.name)
		}
	}
	return info
}

// nativeDigital returns a strategy that opens the given native GPIO.
func (s *socket) nativeDigital(nativePin int) digitalStrategy {
	return func(ctx context.Context, pin PinNumber) (pins.DigitalIO, error) {
		driver, err := s.provider.OpenDigital(ctx, nativePin)
		if err != nil {
			return nil, errors.Wrapf(model.SocketInterfaceCreationError, "socket %d pin %d (native %d): %s", s.cfg.Number, pin, nativePin, err)
		}
		return pins.NewDigitalIO(driver), nil
	}
}

func (s *socket) creatorDigital(ctx context.Context, pin PinNumber) (pins.DigitalIO, error) {
	io, err := s.cfg.Creators.DigitalIO(ctx, s, pin)
	if err != nil {
		return nil, maskAny(err)
	}
	return io, nil
}

func (s *socket) createDigital(ctx context.Context, pin PinNumber) (pins.DigitalIO, error) {
	if err := pin.Validate(); err != nil {
		return nil, maskAny(err)
	}
	strategy := s.digital[pin]
	if strategy == nil {
		return nil, errors.Wrapf(model.UnsupportedPinModeError, "socket %d pin %d has no digital line", s.cfg.Number, pin)
	}
	io, err := strategy(ctx, pin)
	if err != nil {
		return nil, err
	}
	recordCreated(s.cfg.Number, "digital")
	return io, nil
}

func (s *socket) CreateDigitalIO(ctx context.Context, pin PinNumber) (pins.DigitalIO, error) {
	io, err := s.createDigital(ctx, pin)
	if err != nil {
		return nil, err
	}
	if err := io.SetDriveMode(pins.Input); err != nil {
		io.Close()
		return nil, maskAny(err)
	}
	s.log.Debug().Int("pin", int(pin)).Msg("Created digital input")
	return io, nil
}

func (s *socket) CreateDigitalInterrupt(ctx context.Context, pin PinNumber, edge pins.Edge) (pins.DigitalIO, error) {
	io, err := s.CreateDigitalIO(ctx, pin)
	if err != nil {
		return nil, err
	}
	io.SetInterruptEdge(edge)
	return io, nil
}

func (s *socket) CreateDigitalOutput(ctx context.Context, pin PinNumber, initialValue bool) (pins.DigitalIO, error) {
	io, err := s.createDigital(ctx, pin)
	if err != nil {
		return nil, err
	}
	if err := io.Write(initialValue); err != nil {
		io.Close()
		return nil, maskAny(err)
	}
	s.log.Debug().Int("pin", int(pin)).Bool("value", initialValue).Msg("Created digital output")
	return io, nil
}

func (s *socket) CreateAnalogIO(ctx context.Context, pin PinNumber) (pins.AnalogIO, error) {
	if err := s.EnsureTypeIsSupported(TypeA); err != nil {
		return nil, err
	}
	if err := pin.Validate(); err != nil {
		return nil, maskAny(err)
	}
	var io pins.AnalogIO
	if c := s.cfg.Creators.AnalogIO; c != nil {
		var err error
		if io, err = c(ctx, s, pin); err != nil {
			return nil, maskAny(err)
		}
	} else {
		io = pins.NewAnalogIO(unsupportedAnalog{})
	}
	if err := io.SetDriveMode(pins.Input); err != nil {
		io.Close()
		return nil, maskAny(err)
	}
	recordCreated(s.cfg.Number, "analog")
	return io, nil
}

func (s *socket) CreateAnalogOutput(ctx context.Context, pin PinNumber, initialVoltage float64) (pins.AnalogIO, error) {
	io, err := s.CreateAnalogIO(ctx, pin)
	if err != nil {
		return nil, err
	}
	if err := io.WriteVoltage(initialVoltage); err != nil {
		io.Close()
		return nil, err
	}
	return io, nil
}

func (s *socket) CreatePwmOutput(ctx context.Context, pin PinNumber) (pins.PwmOutput, error) {
	if err := s.EnsureTypeIsSupported(TypeP); err != nil {
		return nil, err
	}
	if err := pin.Validate(); err != nil {
		return nil, maskAny(err)
	}
	if c := s.cfg.Creators.PwmOutput; c != nil {
		pwm, err := c(ctx, s, pin)
		if err != nil {
			return nil, maskAny(err)
		}
		recordCreated(s.cfg.Number, "pwm")
		return pwm, nil
	}
	recordCreated(s.cfg.Number, "pwm")
	return pins.NewPwmOutput(unsupportedPwm{}), nil
}

func (s *socket) CreateI2CDevice(ctx context.Context, settings bus.I2CSettings) (bus.I2CDevice, error) {
	if s.IsTypeSupported(TypeY) && !s.IsTypeSupported(TypeI) {
		return s.CreateI2CDeviceOnPins(ctx, settings, Pin8, Pin9)
	}
	if err := s.EnsureTypeIsSupported(TypeI); err != nil {
		return nil, err
	}
	if c := s.cfg.Creators.I2CDevice; c != nil {
		dev, err := c(ctx, s, settings)
		if err != nil {
			return nil, maskAny(err)
		}
		recordCreated(s.cfg.Number, "i2c")
		return dev, nil
	}
	if s.cfg.NativeI2CDeviceID == "" {
		return nil, errors.Wrapf(model.UnsupportedPinModeError, "socket %d has no I2C controller", s.cfg.Number)
	}
	dev, err := s.provider.OpenI2C(ctx, s.cfg.NativeI2CDeviceID, settings)
	if err != nil {
		return nil, errors.Wrapf(model.SocketInterfaceCreationError, "socket %d I2C '%s': %s", s.cfg.Number, s.cfg.NativeI2CDeviceID, err)
	}
	recordCreated(s.cfg.Number, "i2c")
	s.log.Debug().Str("device", s.cfg.NativeI2CDeviceID).Uint16("address", settings.Address).Msg("Opened native I2C device")
	return dev, nil
}

func (s *socket) CreateI2CDeviceOnPins(ctx context.Context, settings bus.I2CSettings, sda, scl PinNumber) (bus.I2CDevice, error) {
	if sda == Pin8 && scl == Pin9 && s.IsTypeSupported(TypeI) {
		return s.CreateI2CDevice(ctx, settings)
	}
	lines, err := s.createLines(ctx, sda, scl)
	if err != nil {
		return nil, err
	}
	cfg := s.cfg.SoftwareI2C
	cfg.I2CSettings = settings
	dev, err := softbus.NewI2CDevice(cfg, lines[0], lines[1], s.log)
	if err != nil {
		closeLines(lines)
		return nil, maskAny(err)
	}
	recordCreated(s.cfg.Number, "softi2c")
	s.log.Debug().Int("sda", int(sda)).Int("scl", int(scl)).Uint16("address", settings.Address).Msg("Created software I2C device")
	return dev, nil
}

func (s *socket) CreateSPIDevice(ctx context.Context, settings bus.SPISettings) (bus.SPIDevice, error) {
	if s.IsTypeSupported(TypeY) && !s.IsTypeSupported(TypeS) {
		return s.CreateSPIDeviceOnPins(ctx, settings, Pin6, Pin7, Pin8, Pin9)
	}
	if err := s.EnsureTypeIsSupported(TypeS); err != nil {
		return nil, err
	}
	if c := s.cfg.Creators.SPIDevice; c != nil {
		dev, err := c(ctx, s, settings)
		if err != nil {
			return nil, maskAny(err)
		}
		recordCreated(s.cfg.Number, "spi")
		return dev, nil
	}
	if s.cfg.NativeSPIDeviceID == "" {
		return nil, errors.Wrapf(model.UnsupportedPinModeError, "socket %d has no SPI controller", s.cfg.Number)
	}
	settings.ChipSelectLine = s.cfg.NativeSPIChipSelect
	dev, err := s.provider.OpenSPI(ctx, s.cfg.NativeSPIDeviceID, settings)
	if err != nil {
		return nil, errors.Wrapf(model.SocketInterfaceCreationError, "socket %d SPI '%s': %s", s.cfg.Number, s.cfg.NativeSPIDeviceID, err)
	}
	recordCreated(s.cfg.Number, "spi")
	s.log.Debug().Str("device", s.cfg.NativeSPIDeviceID).Int("cs", settings.ChipSelectLine).Msg("Opened native SPI device")
	return dev, nil
}

func (s *socket) CreateSPIDeviceOnPins(ctx context.Context, settings bus.SPISettings, chipSelect, masterOut, masterIn, clock PinNumber) (bus.SPIDevice, error) {
	if chipSelect == Pin6 && masterOut == Pin7 && masterIn == Pin8 && clock == Pin9 && s.IsTypeSupported(TypeS) {
		return s.CreateSPIDevice(ctx, settings)
	}
	lines, err := s.createLines(ctx, chipSelect, masterOut, masterIn, clock)
	if err != nil {
		return nil, err
	}
	dev, err := softbus.NewSPIDevice(settings, lines[0], lines[1], lines[2], lines[3], s.log)
	if err != nil {
		closeLines(lines)
		return nil, maskAny(err)
	}
	recordCreated(s.cfg.Number, "softspi")
	s.log.Debug().
		Int("cs", int(chipSelect)).
		Int("mosi", int(masterOut)).
		Int("miso", int(masterIn)).
		Int("clk", int(clock)).
		Msg("Created software SPI device")
	return dev, nil
}

func (s *socket) CreateSerialDevice(ctx context.Context, settings bus.SerialSettings) (bus.SerialDevice, error) {
	if err := s.EnsureTypeIsSupported(TypeU); err != nil {
		return nil, err
	}
	if c := s.cfg.Creators.SerialDevice; c != nil {
		dev, err := c(ctx, s, settings)
		if err != nil {
			return nil, maskAny(err)
		}
		recordCreated(s.cfg.Number, "serial")
		return dev, nil
	}
	if s.cfg.NativeSerialDeviceID == "" {
		return nil, errors.Wrapf(model.UnsupportedPinModeError, "socket %d has no UART", s.cfg.Number)
	}
	dev, err := s.provider.OpenSerial(ctx, s.cfg.NativeSerialDeviceID, settings)
	if err != nil {
		return nil, errors.Wrapf(model.SocketInterfaceCreationError, "socket %d serial '%s': %s", s.cfg.Number, s.cfg.NativeSerialDeviceID, err)
	}
	recordCreated(s.cfg.Number, "serial")
	return dev, nil
}

// createLines creates digital inputs for all given pins.
// When one of them fails, the ones already created are closed.
func (s *socket) createLines(ctx context.Context, pinNumbers ...PinNumber) ([]pins.DigitalIO, error) {
	result := make([]pins.DigitalIO, 0, len(pinNumbers))
	for _, p := range pinNumbers {
		io, err := s.CreateDigitalIO(ctx, p)
		if err != nil {
			closeLines(result)
			return nil, err
		}
		result = append(result, io)
	}
	return result, nil
}

func closeLines(lines []pins.DigitalIO) {
	for _, l := range lines {
		l.Close()
	}
}
