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

// Package bustest provides fake bus devices for tests.
package bustest

import (
	"sync"

	"github.com/binkynet/Gadgeteer/pkg/bus"
)

// RegisterDevice is a fake I2C slave with 256 auto-incrementing byte registers.
type RegisterDevice struct {
	mutex   sync.Mutex
	regs    [256]byte
	pointer byte
	writes  [][]byte
	reads   int
	closed  bool
	onRead  func(reg byte) (byte, bool)
	failErr error
}

var _ bus.I2CDevice = &RegisterDevice{}

// NewRegisterDevice creates a fake device with all registers zero.
func NewRegisterDevice() *RegisterDevice {
	return &RegisterDevice{}
}

// Set the value of a register.
func (d *RegisterDevice) Set(reg, value byte) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.regs[reg] = value
}

// Get the value of a register.
func (d *RegisterDevice) Get(reg byte) byte {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.regs[reg]
}

// OnRead overrides reads of registers for which f returns true.
func (d *RegisterDevice) OnRead(f func(reg byte) (byte, bool)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.onRead = f
}

// FailWith makes all further transfers fail with the given error (nil restores).
func (d *RegisterDevice) FailWith(err error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.failErr = err
}

// Writes returns copies of all buffers passed to Write.
func (d *RegisterDevice) Writes() [][]byte {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	result := make([][]byte, len(d.writes))
	for i, w := range d.writes {
		result[i] = append([]byte(nil), w...)
	}
	return result
}

// WriteCount returns the number of Write calls.
func (d *RegisterDevice) WriteCount() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return len(d.writes)
}

// ReadCount returns the number of read transfers.
func (d *RegisterDevice) ReadCount() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.reads
}

// Closed returns true after Close.
func (d *RegisterDevice) Closed() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.closed
}

func (d *RegisterDevice) Write(buffer []byte) error {
	if err := bus.RequireBuffer("buffer", buffer); err != nil {
		return err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.failErr != nil {
		return d.failErr
	}
	d.writes = append(d.writes, append([]byte(nil), buffer...))
	d.store(buffer)
	return nil
}

func (d *RegisterDevice) store(buffer []byte) {
	if len(buffer) == 0 {
		return
	}
	d.pointer = buffer[0]
	for _, b := range buffer[1:] {
		d.regs[d.pointer] = b
		d.pointer++
	}
}

func (d *RegisterDevice) Read(buffer []byte) error {
	if err := bus.RequireBuffer("buffer", buffer); err != nil {
		return err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.failErr != nil {
		return d.failErr
	}
	d.reads++
	d.load(buffer)
	return nil
}

func (d *RegisterDevice) load(buffer []byte) {
	for i := range buffer {
		v := d.regs[d.pointer]
		if d.onRead != nil {
			if x, ok := d.onRead(d.pointer); ok {
				v = x
			}
		}
		buffer[i] = v
		d.pointer++
	}
}

func (d *RegisterDevice) WriteThenRead(writeBuffer, readBuffer []byte) error {
	if err := bus.RequireBuffer("writeBuffer", writeBuffer); err != nil {
		return err
	}
	if err := bus.RequireBuffer("readBuffer", readBuffer); err != nil {
		return err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.failErr != nil {
		return d.failErr
	}
	d.store(writeBuffer)
	d.reads++
	d.load(readBuffer)
	return nil
}

func (d *RegisterDevice) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.closed = true
	return nil
}
