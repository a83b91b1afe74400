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
	"io"

	"github.com/jacobsa/go-serial/serial"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/bus"
)

const (
	// Read timeout in milliseconds
	serialInterCharacterTimeout = 100
)

type serialDevice struct {
	settings bus.SerialSettings
	port     io.ReadWriteCloser
}

var _ bus.SerialDevice = &serialDevice{}

func openSerialDevice(portName string, settings bus.SerialSettings) (*serialDevice, error) {
	opts, err := serialOptions(portName, settings)
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, maskAny(err)
	}
	return &serialDevice{settings: settings, port: port}, nil
}

func serialOptions(portName string, settings bus.SerialSettings) (serial.OpenOptions, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              settings.BaudRate,
		DataBits:              settings.DataBits,
		StopBits:              1,
		MinimumReadSize:       0,
		InterCharacterTimeout: serialInterCharacterTimeout,
		RTSCTSFlowControl:     settings.Handshake == bus.HandshakeRequestToSend,
	}
	if settings.StopBits == bus.StopBitsTwo {
		opts.StopBits = 2
	}
	switch settings.Parity {
	case bus.ParityNone:
		opts.ParityMode = serial.PARITY_NONE
	case bus.ParityOdd:
		opts.ParityMode = serial.PARITY_ODD
	case bus.ParityEven:
		opts.ParityMode = serial.PARITY_EVEN
	default:
		return opts, model.InvalidArgument("unknown parity %d", settings.Parity)
	}
	return opts, nil
}

func (d *serialDevice) Settings() bus.SerialSettings {
	return d.settings
}

func (d *serialDevice) Write(buffer []byte) error {
	if err := bus.RequireBuffer("buffer", buffer); err != nil {
		return err
	}
	_, err := d.port.Write(buffer)
	return bus.RecordTransfer("serial", "write", maskAny(err))
}

// Read returns 0 bytes when nothing arrived within the read timeout.
func (d *serialDevice) Read(buffer []byte) (int, error) {
	if err := bus.RequireBuffer("buffer", buffer); err != nil {
		return 0, err
	}
	n, err := d.port.Read(buffer)
	if err == io.EOF {
		err = nil
	}
	return n, bus.RecordTransfer("serial", "read", maskAny(err))
}

func (d *serialDevice) Close() error {
	return maskAny(d.port.Close())
}
