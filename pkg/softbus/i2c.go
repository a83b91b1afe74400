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

// Package softbus implements I2C and SPI masters by bit banging plain
// digital lines. They are used when a socket has no native controller
// for the requested pins.
package softbus

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/bus"
	"github.com/binkynet/Gadgeteer/pkg/pins"
)

var (
	maskAny = errors.WithStack
)

const (
	// DefaultPollInterval is the delay between two samples of a stretched clock.
	DefaultPollInterval = time.Millisecond
)

// I2CConfig configures a software I2C master.
type I2CConfig struct {
	bus.I2CSettings
	// Delay between two samples of a clock line held low by a slave.
	PollInterval time.Duration
	// Maximum time a slave may stretch the clock. Zero waits forever.
	ClockStretchTimeout time.Duration
}

// I2CDevice is an I2C master for a single slave address, driving
// two open drain lines. Pulling a line low is done by writing false,
// releasing it is done by reading it.
type I2CDevice struct {
	log          zerolog.Logger
	sda          pins.DigitalIO
	scl          pins.DigitalIO
	writeAddress byte
	readAddress  byte
	started      bool
	pollInterval time.Duration
	timeout      time.Duration
}

var _ bus.I2CDevice = &I2CDevice{}

// NewI2CDevice creates a software I2C master on the given data and clock lines.
func NewI2CDevice(cfg I2CConfig, sda, scl pins.DigitalIO, log zerolog.Logger) (*I2CDevice, error) {
	if sda == nil || scl == nil {
		return nil, model.InvalidArgument("sda and scl lines are required")
	}
	if err := cfg.I2CSettings.Validate(); err != nil {
		return nil, maskAny(err)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	addr := byte(cfg.Address)
	return &I2CDevice{
		log:          log.With().Str("component", "softi2c").Uint16("address", cfg.Address).Logger(),
		sda:          sda,
		scl:          scl,
		writeAddress: addr << 1,
		readAddress:  (addr << 1) | 1,
		pollInterval: cfg.PollInterval,
		timeout:      cfg.ClockStretchTimeout,
	}, nil
}

// Started returns true while a start condition is open.
func (d *I2CDevice) Started() bool {
	return d.started
}

// Write the given buffer to the slave.
func (d *I2CDevice) Write(buffer []byte) error {
	if err := bus.RequireBuffer("buffer", buffer); err != nil {
		return err
	}
	err := d.write(buffer, true, true)
	return d.finish("write", err)
}

// Read len(buffer) bytes from the slave.
func (d *I2CDevice) Read(buffer []byte) error {
	if err := bus.RequireBuffer("buffer", buffer); err != nil {
		return err
	}
	err := d.read(buffer, true, true)
	return d.finish("read", err)
}

// WriteThenRead writes and then reads using a repeated start.
func (d *I2CDevice) WriteThenRead(writeBuffer, readBuffer []byte) error {
	if err := bus.RequireBuffer("writeBuffer", writeBuffer); err != nil {
		return err
	}
	if err := bus.RequireBuffer("readBuffer", readBuffer); err != nil {
		return err
	}
	err := d.write(writeBuffer, true, false)
	if err == nil {
		err = d.read(readBuffer, true, true)
	}
	return d.finish("writeThenRead", err)
}

// Close releases both lines.
func (d *I2CDevice) Close() error {
	var result error
	if err := d.sda.Close(); err != nil {
		result = maskAny(err)
	}
	if err := d.scl.Close(); err != nil && result == nil {
		result = maskAny(err)
	}
	return result
}

// finish releases the lines after a top-level operation.
func (d *I2CDevice) finish(op string, err error) error {
	if _, rerr := d.scl.Read(); rerr != nil && err == nil {
		err = maskAny(rerr)
	}
	if _, rerr := d.sda.Read(); rerr != nil && err == nil {
		err = maskAny(rerr)
	}
	if err != nil {
		d.log.Debug().Err(err).Str("op", op).Msg("transfer failed")
	}
	return bus.RecordTransfer("softi2c", op, err)
}

// abort closes an open transaction after a failure.
func (d *I2CDevice) abort(cause error) error {
	if d.started {
		if _, err := d.sendStop(); err != nil {
			return err
		}
	}
	return cause
}

func (d *I2CDevice) write(buffer []byte, sendStart, sendStop bool) error {
	ack, err := d.transmit(sendStart, sendStop && len(buffer) == 0, d.writeAddress)
	if err != nil {
		return err
	}
	if !ack {
		return d.abort(errors.Wrapf(bus.NackError, "address 0x%02x (write)", d.writeAddress>>1))
	}
	for i, b := range buffer {
		last := i == len(buffer)-1
		ack, err := d.transmit(false, sendStop && last, b)
		if err != nil {
			return err
		}
		if !ack {
			return d.abort(errors.Wrapf(bus.NackError, "data byte %d of %d", i, len(buffer)))
		}
	}
	return nil
}

func (d *I2CDevice) read(buffer []byte, sendStart, sendStop bool) error {
	ack, err := d.transmit(sendStart, sendStop && len(buffer) == 0, d.readAddress)
	if err != nil {
		return err
	}
	if !ack {
		return d.abort(errors.Wrapf(bus.NackError, "address 0x%02x (read)", d.readAddress>>1))
	}
	for i := range buffer {
		last := i == len(buffer)-1
		b, err := d.receive(!last, sendStop && last)
		if err != nil {
			return err
		}
		buffer[i] = b
	}
	return nil
}

// transmit sends a byte and returns true when the slave acknowledged it.
func (d *I2CDevice) transmit(sendStart, sendStop bool, data byte) (bool, error) {
	if sendStart {
		if ok, err := d.sendStart(); err != nil {
			return false, err
		} else if !ok {
			return false, errors.Wrap(bus.BusIntegrityError, "bus busy, cannot send start")
		}
	}
	for bit := 0; bit < 8; bit++ {
		if ok, err := d.writeBit(data&0x80 != 0); err != nil {
			return false, err
		} else if !ok {
			return false, d.abort(errors.Wrap(bus.BusIntegrityError, "arbitration lost"))
		}
		data <<= 1
	}
	nack, err := d.readBit()
	if err != nil {
		return false, err
	}
	if sendStop {
		if ok, err := d.sendStop(); err != nil {
			return false, err
		} else if !ok {
			return false, errors.Wrap(bus.BusIntegrityError, "data line low after stop")
		}
	}
	return !nack, nil
}

// receive reads a byte and answers with ACK or NACK.
func (d *I2CDevice) receive(sendAck, sendStop bool) (byte, error) {
	var result byte
	for bit := 0; bit < 8; bit++ {
		v, err := d.readBit()
		if err != nil {
			return 0, err
		}
		result <<= 1
		if v {
			result |= 1
		}
	}
	if _, err := d.writeBit(!sendAck); err != nil {
		return 0, err
	}
	if sendStop {
		if ok, err := d.sendStop(); err != nil {
			return 0, err
		} else if !ok {
			return 0, errors.Wrap(bus.BusIntegrityError, "data line low after stop")
		}
	}
	return result, nil
}

// sendStart opens (or re-opens) a transaction.
// Returns false when the data line is held low by another device.
func (d *I2CDevice) sendStart() (bool, error) {
	if d.started {
		// Repeated start
		if _, err := d.sda.Read(); err != nil {
			return false, maskAny(err)
		}
		if err := d.waitForScl(); err != nil {
			return false, err
		}
	}
	if high, err := d.sda.Read(); err != nil {
		return false, maskAny(err)
	} else if !high {
		return false, nil
	}
	if err := d.sda.Write(false); err != nil {
		return false, maskAny(err)
	}
	if err := d.scl.Write(false); err != nil {
		return false, maskAny(err)
	}
	d.started = true
	return true, nil
}

// sendStop closes the transaction.
// Returns false when the data line does not go high.
func (d *I2CDevice) sendStop() (bool, error) {
	d.started = false
	if err := d.sda.Write(false); err != nil {
		return false, maskAny(err)
	}
	if err := d.waitForScl(); err != nil {
		return false, err
	}
	high, err := d.sda.Read()
	if err != nil {
		return false, maskAny(err)
	}
	return high, nil
}

// writeBit clocks out a single bit.
// Returns false when a released data line was pulled low by someone else.
func (d *I2CDevice) writeBit(bit bool) (bool, error) {
	if bit {
		if _, err := d.sda.Read(); err != nil {
			return false, maskAny(err)
		}
	} else if err := d.sda.Write(false); err != nil {
		return false, maskAny(err)
	}
	if err := d.waitForScl(); err != nil {
		return false, err
	}
	if bit {
		if high, err := d.sda.Read(); err != nil {
			return false, maskAny(err)
		} else if !high {
			return false, nil
		}
	}
	if err := d.scl.Write(false); err != nil {
		return false, maskAny(err)
	}
	return true, nil
}

// readBit clocks in a single bit.
func (d *I2CDevice) readBit() (bool, error) {
	if _, err := d.sda.Read(); err != nil {
		return false, maskAny(err)
	}
	if err := d.waitForScl(); err != nil {
		return false, err
	}
	bit, err := d.sda.Read()
	if err != nil {
		return false, maskAny(err)
	}
	if err := d.scl.Write(false); err != nil {
		return false, maskAny(err)
	}
	return bit, nil
}

// waitForScl releases the clock and polls until it reads high,
// giving slaves the opportunity to stretch the clock.
func (d *I2CDevice) waitForScl() error {
	var deadline time.Time
	if d.timeout > 0 {
		deadline = time.Now().Add(d.timeout)
	}
	for {
		high, err := d.scl.Read()
		if err != nil {
			return maskAny(err)
		}
		if high {
			return nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return errors.Wrapf(bus.ClockStretchTimeoutError, "clock held low for more than %s", d.timeout)
		}
		time.Sleep(d.pollInterval)
	}
}
