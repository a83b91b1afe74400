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

// Package bus contains the transport independent contracts of byte oriented
// buses (I2C, SPI, serial) and helpers that operate on them.
package bus

import (
	"github.com/binkynet/Gadgeteer/model"
)

// I2CDevice communicates with a single slave on an I2C bus.
// All operations block until the transfer completed.
type I2CDevice interface {
	// Write the given buffer to the slave.
	Write(buffer []byte) error
	// Read len(buffer) bytes from the slave.
	Read(buffer []byte) error
	// WriteThenRead writes and then reads in a single transaction
	// (repeated start, no stop in between).
	WriteThenRead(writeBuffer, readBuffer []byte) error
	// Close releases the device.
	Close() error
}

// SPIDevice communicates with a single slave on an SPI bus.
// All operations block until the transfer completed.
type SPIDevice interface {
	// Write the given buffer to the slave.
	Write(buffer []byte) error
	// Read len(buffer) bytes from the slave.
	Read(buffer []byte) error
	// WriteThenRead writes and then reads without deselecting the slave in between.
	WriteThenRead(writeBuffer, readBuffer []byte) error
	// WriteAndRead writes and reads at the same time (full duplex).
	WriteAndRead(writeBuffer, readBuffer []byte) error
	// Close releases the device.
	Close() error
}

// SerialDevice communicates over a UART.
type SerialDevice interface {
	// Settings returns the line settings the device was opened with.
	Settings() SerialSettings
	// Write the given buffer.
	Write(buffer []byte) error
	// Read up to len(buffer) bytes, returning the number of bytes read.
	Read(buffer []byte) (int, error)
	// Close releases the device.
	Close() error
}

// I2CBusSpeed is the clock speed of an I2C bus.
type I2CBusSpeed int

const (
	StandardMode I2CBusSpeed = 100000
	FastMode     I2CBusSpeed = 400000
)

// I2CSettings configures a connection to an I2C slave.
type I2CSettings struct {
	// 7-bit slave address
	Address uint16
	// Bus clock speed
	BusSpeed I2CBusSpeed
}

// NewI2CSettings returns standard mode settings for the given address.
func NewI2CSettings(address uint16) I2CSettings {
	return I2CSettings{Address: address, BusSpeed: StandardMode}
}

// Validate the settings.
func (s I2CSettings) Validate() error {
	if s.Address > 0x7F {
		return model.OutOfRange("I2C address must be in 0..0x7F range, got 0x%x", s.Address)
	}
	return nil
}

// SPIMode is the 2 bit SPI mode number (clock polarity, clock phase).
type SPIMode int

const (
	Mode0 SPIMode = 0
	Mode1 SPIMode = 1
	Mode2 SPIMode = 2
	Mode3 SPIMode = 3
)

const (
	// DefaultDataBitLength is the only word size supported by the software SPI engine.
	DefaultDataBitLength = 8
)

// SPISettings configures a connection to an SPI slave.
type SPISettings struct {
	// Chip select line of the native controller
	ChipSelectLine int
	// SPI mode
	Mode SPIMode
	// Clock frequency in Hz
	ClockFrequency int
	// Bits per word. Zero means DefaultDataBitLength.
	DataBitLength int
}

// NewSPISettings returns 8 bit settings for the given chip select line.
func NewSPISettings(chipSelectLine int, mode SPIMode, clockFrequency int) SPISettings {
	return SPISettings{
		ChipSelectLine: chipSelectLine,
		Mode:           mode,
		ClockFrequency: clockFrequency,
		DataBitLength:  DefaultDataBitLength,
	}
}

// BitsPerWord returns the effective word size.
func (s SPISettings) BitsPerWord() int {
	if s.DataBitLength == 0 {
		return DefaultDataBitLength
	}
	return s.DataBitLength
}

// Validate the settings.
func (s SPISettings) Validate() error {
	if s.Mode < Mode0 || s.Mode > Mode3 {
		return model.OutOfRange("SPI mode must be in 0..3 range, got %d", s.Mode)
	}
	if s.ClockFrequency < 0 {
		return model.OutOfRange("clock frequency must be positive, got %d", s.ClockFrequency)
	}
	return nil
}

// Parity of a serial line.
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// StopBits of a serial line.
type StopBits int

const (
	StopBitsOne StopBits = iota
	StopBitsTwo
)

// Handshake (flow control) of a serial line.
type Handshake int

const (
	HandshakeNone Handshake = iota
	HandshakeRequestToSend
)

// SerialSettings configures a serial line.
type SerialSettings struct {
	BaudRate  uint
	DataBits  uint
	Parity    Parity
	StopBits  StopBits
	Handshake Handshake
}

// DefaultSerialSettings returns 9600 baud 8N1 without flow control.
func DefaultSerialSettings() SerialSettings {
	return SerialSettings{
		BaudRate: 9600,
		DataBits: 8,
		Parity:   ParityNone,
		StopBits: StopBitsOne,
	}
}

// ReadSerialByte reads a single byte from the given device.
func ReadSerialByte(dev SerialDevice) (byte, error) {
	var buf [1]byte
	n, err := dev.Read(buf[:])
	if err != nil {
		return 0, maskAny(err)
	}
	if n != 1 {
		return 0, maskAny(NoDataError)
	}
	return buf[0], nil
}

// WriteSerialByte writes a single byte to the given device.
func WriteSerialByte(dev SerialDevice, b byte) error {
	return dev.Write([]byte{b})
}

// RequireBuffer returns an InvalidArgumentError when the given buffer is nil.
func RequireBuffer(name string, buffer []byte) error {
	if buffer == nil {
		return model.InvalidArgument("%s is nil", name)
	}
	return nil
}
