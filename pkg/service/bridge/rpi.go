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

package bridge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ecc1/gpio"
	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	host "periph.io/x/host/v3"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/bus"
	"github.com/binkynet/Gadgeteer/pkg/pins"
)

// RaspberryPiConfig holds the host wiring of a Raspberry Pi bridge.
type RaspberryPiConfig struct {
	Log zerolog.Logger
	// GPIO numbers of the status LEDs, -1 if absent.
	GreenLEDPin int
	RedLEDPin   int
	// Kernel device per I2C controller id.
	I2CControllers map[string]string
	// GPIO number of the SCL line per I2C controller id, used for bus lockup recovery.
	I2CRecoveryPins map[string]int
	// TTY per UART id.
	SerialPorts map[string]string
}

// DefaultRaspberryPiConfig returns the wiring of a Raspberry Pi with a
// Gadgeteer HAT on top.
func DefaultRaspberryPiConfig(log zerolog.Logger) RaspberryPiConfig {
	return RaspberryPiConfig{
		Log:             log,
		GreenLEDPin:     20,
		RedLEDPin:       21,
		I2CControllers:  map[string]string{"I2C1": "/dev/i2c-1"},
		I2CRecoveryPins: map[string]int{},
		SerialPorts:     map[string]string{"COM1": "/dev/serial0"},
	}
}

type statusLed struct {
	sync.Mutex
	pin         gpio.OutputPin
	cancelBlink func()
}

func (l *statusLed) Set(on bool) error {
	l.Mutex.Lock()
	defer l.Mutex.Unlock()

	l.stopBlinking()
	if l.pin == nil {
		return nil
	}
	return maskAny(l.pin.Write(on))
}

func (l *statusLed) Blink(delay time.Duration) error {
	l.Mutex.Lock()
	defer l.Mutex.Unlock()

	l.stopBlinking()
	if l.pin == nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.cancelBlink = cancel
	go func() {
		value := true
		for {
			l.Mutex.Lock()
			if ctx.Err() == nil {
				l.pin.Write(value)
				value = !value
			}
			l.Mutex.Unlock()
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (l *statusLed) stopBlinking() {
	if cancel := l.cancelBlink; cancel != nil {
		l.cancelBlink = nil
		cancel()
	}
}

type piBridge struct {
	mutex    sync.Mutex
	cfg      RaspberryPiConfig
	log      zerolog.Logger
	greenLed statusLed
	redLed   statusLed
	buses    map[string]*i2cBus
}

// NewRaspberryPiBridge initializes the periph host drivers and the status LEDs.
func NewRaspberryPiBridge(cfg RaspberryPiConfig) (API, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "host.Init failed")
	}
	p := &piBridge{
		cfg:   cfg,
		log:   cfg.Log.With().Str("component", "bridge").Logger(),
		buses: make(map[string]*i2cBus),
	}
	activeLow := false
	initialValue := false
	if cfg.GreenLEDPin >= 0 {
		pin, err := gpio.Output(cfg.GreenLEDPin, activeLow, initialValue)
		if err != nil {
			return nil, errors.Wrap(err, "Output[greenLed] failed")
		}
		p.greenLed.pin = pin
	}
	if cfg.RedLEDPin >= 0 {
		pin, err := gpio.Output(cfg.RedLEDPin, activeLow, initialValue)
		if err != nil {
			return nil, errors.Wrap(err, "Output[redLed] failed")
		}
		p.redLed.pin = pin
	}
	return p, nil
}

func (p *piBridge) SetGreenLED(on bool) error {
	if err := p.greenLed.Set(on); err != nil {
		return errors.Wrap(err, "Set[greenLed] failed")
	}
	return nil
}

func (p *piBridge) SetRedLED(on bool) error {
	if err := p.redLed.Set(on); err != nil {
		return errors.Wrap(err, "Set[redLed] failed")
	}
	return nil
}

func (p *piBridge) BlinkGreenLED(delay time.Duration) error {
	if err := p.greenLed.Blink(delay); err != nil {
		return errors.Wrap(err, "Blink[greenLed] failed")
	}
	return nil
}

func (p *piBridge) BlinkRedLED(delay time.Duration) error {
	if err := p.redLed.Blink(delay); err != nil {
		return errors.Wrap(err, "Blink[redLed] failed")
	}
	return nil
}

// OpenDigital opens GPIO<nativePin> through periph.
func (p *piBridge) OpenDigital(ctx context.Context, nativePin int) (pins.DigitalDriver, error) {
	return openGPIOLine(nativePin)
}

// OpenI2C opens a slave on the kernel I2C controller with given id.
func (p *piBridge) OpenI2C(ctx context.Context, deviceID string, settings bus.I2CSettings) (bus.I2CDevice, error) {
	if err := settings.Validate(); err != nil {
		return nil, maskAny(err)
	}
	b, err := p.i2cBus(deviceID)
	if err != nil {
		return nil, err
	}
	return &i2cBusDevice{bus: b, settings: settings}, nil
}

// OpenSPI opens a spidev device. The chip select line selects the device
// on the controller, e.g. SPI0 with chip select 1 is SPI0.1.
func (p *piBridge) OpenSPI(ctx context.Context, deviceID string, settings bus.SPISettings) (bus.SPIDevice, error) {
	if err := settings.Validate(); err != nil {
		return nil, maskAny(err)
	}
	return openSPIDevice(fmt.Sprintf("%s.%d", strings.ToUpper(deviceID), settings.ChipSelectLine), settings)
}

// OpenSerial opens the TTY that the UART with given id is mapped to.
func (p *piBridge) OpenSerial(ctx context.Context, deviceID string, settings bus.SerialSettings) (bus.SerialDevice, error) {
	portName, found := p.cfg.SerialPorts[deviceID]
	if !found {
		return nil, model.InvalidArgument("unknown serial device '%s'", deviceID)
	}
	return openSerialDevice(portName, settings)
}

// DetectI2CAddresses probes the I2C controller with given id.
func (p *piBridge) DetectI2CAddresses(ctx context.Context, deviceID string) ([]byte, error) {
	b, err := p.i2cBus(deviceID)
	if err != nil {
		return nil, err
	}
	return b.DetectSlaveAddresses(ctx)
}

func (p *piBridge) i2cBus(deviceID string) (*i2cBus, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if b, found := p.buses[deviceID]; found {
		return b, nil
	}
	location, found := p.cfg.I2CControllers[deviceID]
	if !found {
		return nil, model.InvalidArgument("unknown I2C device '%s'", deviceID)
	}
	sclPin := -1
	if pin, found := p.cfg.I2CRecoveryPins[deviceID]; found {
		sclPin = pin
	}
	b := newI2CBus(p.log, location, sclPin)
	p.buses[deviceID] = b
	return b, nil
}

func (p *piBridge) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.greenLed.Set(false)
	p.redLed.Set(false)
	var ae aerr.AggregateError
	for id, b := range p.buses {
		if err := b.Close(); err != nil {
			ae.Add(errors.Wrapf(err, "Close[%s] failed", id))
		}
		delete(p.buses, id)
	}
	return ae.AsError()
}
