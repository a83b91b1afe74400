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

package bustest

import (
	"sync"

	"github.com/binkynet/Gadgeteer/pkg/bus"
)

// SPIDevice is a fake SPI slave that records written data and answers
// reads through a responder function.
type SPIDevice struct {
	settings bus.SPISettings

	mutex     sync.Mutex
	writes    [][]byte
	respond   func(written, read []byte)
	closed    bool
	transfers int
}

var _ bus.SPIDevice = &SPIDevice{}

// NewSPIDevice creates a fake device opened with the given settings.
func NewSPIDevice(settings bus.SPISettings) *SPIDevice {
	return &SPIDevice{settings: settings}
}

// Settings returns the settings the device was opened with.
func (d *SPIDevice) Settings() bus.SPISettings {
	return d.settings
}

// OnTransfer sets a function that fills read buffers.
// It receives the bytes written in the same transaction (nil for plain reads).
func (d *SPIDevice) OnTransfer(f func(written, read []byte)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.respond = f
}

// Writes returns copies of all written buffers.
func (d *SPIDevice) Writes() [][]byte {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	result := make([][]byte, len(d.writes))
	for i, w := range d.writes {
		result[i] = append([]byte(nil), w...)
	}
	return result
}

// Transfers returns the number of transactions.
func (d *SPIDevice) Transfers() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.transfers
}

// Closed returns true after Close.
func (d *SPIDevice) Closed() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.closed
}

func (d *SPIDevice) transfer(w, r []byte) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.transfers++
	if w != nil {
		d.writes = append(d.writes, append([]byte(nil), w...))
	}
	if r != nil && d.respond != nil {
		d.respond(w, r)
	}
}

func (d *SPIDevice) Write(buffer []byte) error {
	if err := bus.RequireBuffer("buffer", buffer); err != nil {
		return err
	}
	d.transfer(buffer, nil)
	return nil
}

func (d *SPIDevice) Read(buffer []byte) error {
	if err := bus.RequireBuffer("buffer", buffer); err != nil {
		return err
	}
	d.transfer(nil, buffer)
	return nil
}

func (d *SPIDevice) WriteThenRead(writeBuffer, readBuffer []byte) error {
	if err := bus.RequireBuffer("writeBuffer", writeBuffer); err != nil {
		return err
	}
	if err := bus.RequireBuffer("readBuffer", readBuffer); err != nil {
		return err
	}
	d.transfer(writeBuffer, readBuffer)
	return nil
}

func (d *SPIDevice) WriteAndRead(writeBuffer, readBuffer []byte) error {
	return d.WriteThenRead(writeBuffer, readBuffer)
}

func (d *SPIDevice) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.closed = true
	return nil
}

// SerialDevice is an in-memory serial line.
type SerialDevice struct {
	settings bus.SerialSettings

	mutex   sync.Mutex
	written []byte
	input   []byte
	closed  bool
}

var _ bus.SerialDevice = &SerialDevice{}

// NewSerialDevice creates a fake serial line with given settings.
func NewSerialDevice(settings bus.SerialSettings) *SerialDevice {
	return &SerialDevice{settings: settings}
}

// Feed queues bytes to be returned by Read.
func (d *SerialDevice) Feed(data ...byte) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.input = append(d.input, data...)
}

// Written returns all bytes written so far.
func (d *SerialDevice) Written() []byte {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return append([]byte(nil), d.written...)
}

// Closed returns true after Close.
func (d *SerialDevice) Closed() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.closed
}

func (d *SerialDevice) Settings() bus.SerialSettings {
	return d.settings
}

func (d *SerialDevice) Write(buffer []byte) error {
	if err := bus.RequireBuffer("buffer", buffer); err != nil {
		return err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.written = append(d.written, buffer...)
	return nil
}

func (d *SerialDevice) Read(buffer []byte) (int, error) {
	if err := bus.RequireBuffer("buffer", buffer); err != nil {
		return 0, err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	n := copy(buffer, d.input)
	d.input = d.input[n:]
	return n, nil
}

func (d *SerialDevice) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.closed = true
	return nil
}
