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

// Package sockettest provides a fake native provider for tests.
package sockettest

import (
	"context"
	"fmt"
	"sync"

	"github.com/binkynet/Gadgeteer/pkg/bus"
	"github.com/binkynet/Gadgeteer/pkg/bus/bustest"
	"github.com/binkynet/Gadgeteer/pkg/pins"
	"github.com/binkynet/Gadgeteer/pkg/pins/pinstest"
	"github.com/binkynet/Gadgeteer/pkg/socket"
)

// Provider is a fake host with unlimited GPIOs and bus controllers.
type Provider struct {
	// Recorder receives all accesses of native lines.
	Recorder *pinstest.Recorder

	mutex         sync.Mutex
	lines         map[int]*pinstest.Line
	digitalOpens  []int
	i2cDevices    map[string]*bustest.RegisterDevice
	i2cOpens      []string
	spiDevices    []*bustest.SPIDevice
	spiIDs        []string
	serialDevices []*bustest.SerialDevice
	serialIDs     []string
	failDigital   map[int]error
}

var _ socket.NativeProvider = &Provider{}

// NewProvider creates an empty fake host.
func NewProvider() *Provider {
	return &Provider{
		Recorder:    &pinstest.Recorder{},
		lines:       make(map[int]*pinstest.Line),
		i2cDevices:  make(map[string]*bustest.RegisterDevice),
		failDigital: make(map[int]error),
	}
}

// Line returns the fake line of given native pin, creating it when needed.
func (p *Provider) Line(nativePin int) *pinstest.Line {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.line(nativePin)
}

func (p *Provider) line(nativePin int) *pinstest.Line {
	l, found := p.lines[nativePin]
	if !found {
		l = pinstest.NewLine(fmt.Sprintf("gpio%d", nativePin), p.Recorder)
		p.lines[nativePin] = l
	}
	return l
}

// FailDigital makes opening the given native pin fail.
func (p *Provider) FailDigital(nativePin int, err error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.failDigital[nativePin] = err
}

// DigitalOpens returns the native pins opened so far, in order.
func (p *Provider) DigitalOpens() []int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return append([]int(nil), p.digitalOpens...)
}

// I2CDevice returns the fake slave at given controller and address.
func (p *Provider) I2CDevice(deviceID string, address uint16) *bustest.RegisterDevice {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.i2cDevice(deviceID, address)
}

func (p *Provider) i2cDevice(deviceID string, address uint16) *bustest.RegisterDevice {
	key := fmt.Sprintf("%s/0x%02x", deviceID, address)
	d, found := p.i2cDevices[key]
	if !found {
		d = bustest.NewRegisterDevice()
		p.i2cDevices[key] = d
	}
	return d
}

// I2COpens returns "<id>/0x<addr>" for every opened I2C device, in order.
func (p *Provider) I2COpens() []string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return append([]string(nil), p.i2cOpens...)
}

// SPIDevices returns all opened SPI devices, in order.
func (p *Provider) SPIDevices() ([]string, []*bustest.SPIDevice) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return append([]string(nil), p.spiIDs...), append([]*bustest.SPIDevice(nil), p.spiDevices...)
}

// SerialDevices returns all opened serial devices, in order.
func (p *Provider) SerialDevices() ([]string, []*bustest.SerialDevice) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return append([]string(nil), p.serialIDs...), append([]*bustest.SerialDevice(nil), p.serialDevices...)
}

func (p *Provider) OpenDigital(ctx context.Context, nativePin int) (pins.DigitalDriver, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if err := p.failDigital[nativePin]; err != nil {
		return nil, err
	}
	p.digitalOpens = append(p.digitalOpens, nativePin)
	return p.line(nativePin), nil
}

func (p *Provider) OpenI2C(ctx context.Context, deviceID string, settings bus.I2CSettings) (bus.I2CDevice, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.i2cOpens = append(p.i2cOpens, fmt.Sprintf("%s/0x%02x", deviceID, settings.Address))
	return p.i2cDevice(deviceID, settings.Address), nil
}

func (p *Provider) OpenSPI(ctx context.Context, deviceID string, settings bus.SPISettings) (bus.SPIDevice, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	d := bustest.NewSPIDevice(settings)
	p.spiIDs = append(p.spiIDs, deviceID)
	p.spiDevices = append(p.spiDevices, d)
	return d, nil
}

func (p *Provider) OpenSerial(ctx context.Context, deviceID string, settings bus.SerialSettings) (bus.SerialDevice, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	d := bustest.NewSerialDevice(settings)
	p.serialIDs = append(p.serialIDs, deviceID)
	p.serialDevices = append(p.serialDevices, d)
	return d, nil
}
