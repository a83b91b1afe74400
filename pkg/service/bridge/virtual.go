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
	"sort"
	"sync"
	"time"

	"github.com/binkynet/Gadgeteer/pkg/bus"
	"github.com/binkynet/Gadgeteer/pkg/pins"
)

// VirtualBridge simulates a host without any hardware attached.
// GPIO lines keep their level in memory, every I2C address answers
// as a 256 byte register file, SPI MISO is wired to MOSI and serial
// ports loop back.
type VirtualBridge struct {
	mutex sync.Mutex
	lines map[int]*virtualLine
	i2c   map[string]map[uint8]*virtualRegisters
	leds  map[string]bool
}

var _ API = &VirtualBridge{}

// NewVirtualBridge creates an empty simulated host.
func NewVirtualBridge() *VirtualBridge {
	return &VirtualBridge{
		lines: make(map[int]*virtualLine),
		i2c:   make(map[string]map[uint8]*virtualRegisters),
		leds:  make(map[string]bool),
	}
}

func (p *VirtualBridge) setLED(name string, on bool) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.leds[name] = on
	return nil
}

func (p *VirtualBridge) SetGreenLED(on bool) error { return p.setLED("green", on) }
func (p *VirtualBridge) SetRedLED(on bool) error   { return p.setLED("red", on) }

func (p *VirtualBridge) BlinkGreenLED(delay time.Duration) error { return p.setLED("green", true) }
func (p *VirtualBridge) BlinkRedLED(delay time.Duration) error   { return p.setLED("red", true) }

// LED returns the state of the status LED with given name (green|red).
func (p *VirtualBridge) LED(name string) bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.leds[name]
}

func (p *VirtualBridge) line(nativePin int) *virtualLine {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	l, found := p.lines[nativePin]
	if !found {
		l = &virtualLine{}
		p.lines[nativePin] = l
	}
	return l
}

// SetInput changes the level that is applied to the given GPIO from outside.
func (p *VirtualBridge) SetInput(nativePin int, level bool) {
	p.line(nativePin).apply(level)
}

// Level returns the current level of the given GPIO.
func (p *VirtualBridge) Level(nativePin int) bool {
	l := p.line(nativePin)
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.level
}

func (p *VirtualBridge) OpenDigital(ctx context.Context, nativePin int) (pins.DigitalDriver, error) {
	return p.line(nativePin), nil
}

// Registers returns the register file of the I2C slave with given address.
func (p *VirtualBridge) Registers(deviceID string, address uint8) []byte {
	r := p.registers(deviceID, address)
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]byte(nil), r.data[:]...)
}

// SetRegister changes a register of the I2C slave with given address.
func (p *VirtualBridge) SetRegister(deviceID string, address uint8, register, value byte) {
	r := p.registers(deviceID, address)
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.data[register] = value
}

func (p *VirtualBridge) registers(deviceID string, address uint8) *virtualRegisters {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	devs, found := p.i2c[deviceID]
	if !found {
		devs = make(map[uint8]*virtualRegisters)
		p.i2c[deviceID] = devs
	}
	r, found := devs[address]
	if !found {
		r = &virtualRegisters{}
		devs[address] = r
	}
	return r
}

func (p *VirtualBridge) OpenI2C(ctx context.Context, deviceID string, settings bus.I2CSettings) (bus.I2CDevice, error) {
	if err := settings.Validate(); err != nil {
		return nil, maskAny(err)
	}
	return &virtualI2CDevice{regs: p.registers(deviceID, uint8(settings.Address))}, nil
}

// DetectI2CAddresses returns all addresses that have been opened on the given controller.
func (p *VirtualBridge) DetectI2CAddresses(ctx context.Context, deviceID string) ([]byte, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	var result []byte
	for addr := range p.i2c[deviceID] {
		result = append(result, addr)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result, nil
}

func (p *VirtualBridge) OpenSPI(ctx context.Context, deviceID string, settings bus.SPISettings) (bus.SPIDevice, error) {
	if err := settings.Validate(); err != nil {
		return nil, maskAny(err)
	}
	return &virtualSPIDevice{}, nil
}

func (p *VirtualBridge) OpenSerial(ctx context.Context, deviceID string, settings bus.SerialSettings) (bus.SerialDevice, error) {
	return &virtualSerialDevice{settings: settings}, nil
}

func (p *VirtualBridge) Close() error {
	return nil
}

type virtualLine struct {
	mutex  sync.Mutex
	mode   pins.DriveMode
	level  bool
	notify func(bool)
}

func (l *virtualLine) SetDriveMode(mode pins.DriveMode) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.mode = mode
	return nil
}

func (l *virtualLine) ReadLevel() (bool, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.level, nil
}

func (l *virtualLine) WriteLevel(value bool) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.level = value
	return nil
}

func (l *virtualLine) EnableInterrupt(notify func(value bool)) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.notify = notify
	return nil
}

func (l *virtualLine) DisableInterrupt() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.notify = nil
	return nil
}

func (l *virtualLine) Close() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.notify = nil
	return nil
}

func (l *virtualLine) apply(level bool) {
	l.mutex.Lock()
	changed := l.level != level
	l.level = level
	notify := l.notify
	if l.mode != pins.Input {
		notify = nil
	}
	l.mutex.Unlock()
	if changed && notify != nil {
		notify(level)
	}
}

// virtualRegisters is a register file with an auto-incrementing pointer.
type virtualRegisters struct {
	mutex   sync.Mutex
	data    [256]byte
	pointer byte
}

type virtualI2CDevice struct {
	regs *virtualRegisters
}

func (d *virtualI2CDevice) Write(buffer []byte) error {
	if err := bus.RequireBuffer("buffer", buffer); err != nil {
		return err
	}
	r := d.regs
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if len(buffer) == 0 {
		return nil
	}
	r.pointer = buffer[0]
	for _, b := range buffer[1:] {
		r.data[r.pointer] = b
		r.pointer++
	}
	return bus.RecordTransfer("i2c", "write", nil)
}

func (d *virtualI2CDevice) Read(buffer []byte) error {
	if err := bus.RequireBuffer("buffer", buffer); err != nil {
		return err
	}
	r := d.regs
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for i := range buffer {
		buffer[i] = r.data[r.pointer]
		r.pointer++
	}
	return bus.RecordTransfer("i2c", "read", nil)
}

func (d *virtualI2CDevice) WriteThenRead(writeBuffer, readBuffer []byte) error {
	if err := bus.RequireBuffer("writeBuffer", writeBuffer); err != nil {
		return err
	}
	if err := bus.RequireBuffer("readBuffer", readBuffer); err != nil {
		return err
	}
	if err := d.Write(writeBuffer); err != nil {
		return err
	}
	return d.Read(readBuffer)
}

func (d *virtualI2CDevice) Close() error { return nil }

type virtualSPIDevice struct{}

func (d *virtualSPIDevice) Write(buffer []byte) error {
	return bus.RequireBuffer("buffer", buffer)
}

func (d *virtualSPIDevice) Read(buffer []byte) error {
	if err := bus.RequireBuffer("buffer", buffer); err != nil {
		return err
	}
	clear(buffer)
	return nil
}

func (d *virtualSPIDevice) WriteThenRead(writeBuffer, readBuffer []byte) error {
	if err := bus.RequireBuffer("writeBuffer", writeBuffer); err != nil {
		return err
	}
	if err := bus.RequireBuffer("readBuffer", readBuffer); err != nil {
		return err
	}
	clear(readBuffer)
	return nil
}

func (d *virtualSPIDevice) WriteAndRead(writeBuffer, readBuffer []byte) error {
	if err := bus.RequireBuffer("writeBuffer", writeBuffer); err != nil {
		return err
	}
	if err := bus.RequireBuffer("readBuffer", readBuffer); err != nil {
		return err
	}
	n := copy(readBuffer, writeBuffer)
	clear(readBuffer[n:])
	return nil
}

func (d *virtualSPIDevice) Close() error { return nil }

type virtualSerialDevice struct {
	mutex    sync.Mutex
	settings bus.SerialSettings
	pending  []byte
}

func (d *virtualSerialDevice) Settings() bus.SerialSettings { return d.settings }

func (d *virtualSerialDevice) Write(buffer []byte) error {
	if err := bus.RequireBuffer("buffer", buffer); err != nil {
		return err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.pending = append(d.pending, buffer...)
	return nil
}

func (d *virtualSerialDevice) Read(buffer []byte) (int, error) {
	if err := bus.RequireBuffer("buffer", buffer); err != nil {
		return 0, err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	n := copy(buffer, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

func (d *virtualSerialDevice) Close() error { return nil }
