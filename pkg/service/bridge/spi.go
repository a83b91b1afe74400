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
	"sync"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"

	"github.com/binkynet/Gadgeteer/pkg/bus"
)

// spiDevice is a spidev port connected with fixed settings.
type spiDevice struct {
	mutex sync.Mutex
	port  spi.PortCloser
	conn  spi.Conn
}

var _ bus.SPIDevice = &spiDevice{}

func openSPIDevice(name string, settings bus.SPISettings) (*spiDevice, error) {
	port, err := spireg.Open(name)
	if err != nil {
		return nil, maskAny(err)
	}
	freq := physic.Frequency(settings.ClockFrequency) * physic.Hertz
	conn, err := port.Connect(freq, spi.Mode(settings.Mode), settings.BitsPerWord())
	if err != nil {
		port.Close()
		return nil, maskAny(err)
	}
	return &spiDevice{port: port, conn: conn}, nil
}

func (d *spiDevice) tx(op string, w, r []byte) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return bus.RecordTransfer("spi", op, maskAny(d.conn.Tx(w, r)))
}

func (d *spiDevice) Write(buffer []byte) error {
	if err := bus.RequireBuffer("buffer", buffer); err != nil {
		return err
	}
	return d.tx("write", buffer, make([]byte, len(buffer)))
}

func (d *spiDevice) Read(buffer []byte) error {
	if err := bus.RequireBuffer("buffer", buffer); err != nil {
		return err
	}
	return d.tx("read", make([]byte, len(buffer)), buffer)
}

// WriteThenRead clocks out the write buffer followed by zeros while
// keeping chip select asserted.
func (d *spiDevice) WriteThenRead(writeBuffer, readBuffer []byte) error {
	if err := bus.RequireBuffer("writeBuffer", writeBuffer); err != nil {
		return err
	}
	if err := bus.RequireBuffer("readBuffer", readBuffer); err != nil {
		return err
	}
	n := len(writeBuffer) + len(readBuffer)
	w, r := make([]byte, n), make([]byte, n)
	copy(w, writeBuffer)
	if err := d.tx("write_then_read", w, r); err != nil {
		return err
	}
	copy(readBuffer, r[len(writeBuffer):])
	return nil
}

func (d *spiDevice) WriteAndRead(writeBuffer, readBuffer []byte) error {
	if err := bus.RequireBuffer("writeBuffer", writeBuffer); err != nil {
		return err
	}
	if err := bus.RequireBuffer("readBuffer", readBuffer); err != nil {
		return err
	}
	n := max(len(writeBuffer), len(readBuffer))
	w, r := make([]byte, n), make([]byte, n)
	copy(w, writeBuffer)
	if err := d.tx("write_and_read", w, r); err != nil {
		return err
	}
	copy(readBuffer, r)
	return nil
}

func (d *spiDevice) Close() error {
	return maskAny(d.port.Close())
}
