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
	"os"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/ecc1/gpio"
	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/Gadgeteer/pkg/bus"
)

const (
	i2cRecoverNumClocks = 10    // # clock cycles for recovery
	i2cRecoverClockFreq = 50000 // clock frequency for recovery

	i2cRecoverClockDelay = time.Second / (2 * i2cRecoverClockFreq)
)

// i2cBus serializes all transfers of a kernel I2C controller on a
// single OS thread.
type i2cBus struct {
	log      zerolog.Logger
	location string
	devices  map[uint8]*i2cDevice
	queue    chan func()
	// GPIO number of the SCL line, used for lockup recovery. -1 disables recovery.
	sclPin int
	stop   context.CancelFunc
}

// newI2CBus returns accessors to the I2C bus at the given location.
func newI2CBus(log zerolog.Logger, location string, sclPin int) *i2cBus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &i2cBus{
		log:      log.With().Str("bus", location).Logger(),
		location: location,
		devices:  make(map[uint8]*i2cDevice),
		queue:    make(chan func()),
		sclPin:   sclPin,
		stop:     cancel,
	}
	go b.queueProcessor(ctx)
	return b
}

// Execute an operation on the device with given address.
func (b *i2cBus) Execute(ctx context.Context, address uint8, op func(dev *i2cDevice) error) error {
	result := make(chan error, 1)
	req := func() {
		result <- b.execute(address, op)
	}

	// Put request in queue
	select {
	case b.queue <- req:
		// Request is on the queue
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-result
}

// Process bus requests from the queue until the given context is canceled.
func (b *i2cBus) queueProcessor(ctx context.Context) {
	// Ensure we're always using the same OS thread
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		select {
		case req := <-b.queue:
			req()
		case <-ctx.Done():
			return
		}
	}
}

func (b *i2cBus) execute(address uint8, op func(*i2cDevice) error) error {
	addrLabel := strconv.Itoa(int(address))
	i2cExecuteCounters.WithLabelValues(addrLabel).Inc()

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var dev *i2cDevice
		dev, err = b.openDevice(address)
		if err != nil {
			break
		}

		err = op(dev)
		if err == nil || bus.IsNack(err) {
			// An absent slave will not come back by retrying.
			break
		}

		// Device call failed, close all devices
		for _, d := range b.devices {
			d.closeFile()
		}
		clear(b.devices)

		if b.sclPin >= 0 {
			i2cRecoveryAttemptsTotal.Inc()
			if rerr := b.recoverFromLockup(); rerr != nil {
				i2cRecoveryFailedTotal.Inc()
				return errors.Wrapf(rerr, "i2c recovery after '%v' failed", err)
			}
			i2cRecoverySucceededTotal.Inc()
		} else {
			i2cRecoverySkippedTotal.Inc()
		}
	}
	if err != nil {
		i2cExecuteErrorCounters.WithLabelValues(addrLabel).Inc()
		return err
	}
	return nil
}

// Open a connection to a device at the given address.
func (b *i2cBus) openDevice(address uint8) (*i2cDevice, error) {
	if d, found := b.devices[address]; found {
		return d, nil
	}
	d, err := newI2CDevice(b.location, address)
	if err != nil {
		return nil, err
	}
	b.devices[address] = d
	return d, nil
}

// DetectSlaveAddresses probes the bus to detect available addresses.
func (b *i2cBus) DetectSlaveAddresses(ctx context.Context) ([]byte, error) {
	result := make(chan []byte, 1)
	req := func() {
		var found []byte
		for addr := uint8(1); addr < 128; addr++ {
			if d, err := newI2CDevice(b.location, addr); err == nil {
				if err := d.detect(); err == nil {
					found = append(found, addr)
				}
				d.closeFile()
			}
		}
		result <- found
	}
	select {
	case b.queue <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return <-result, nil
}

// Close the bus and all devices on it
func (b *i2cBus) Close() error {
	result := make(chan error, 1)
	b.queue <- func() {
		var ae aerr.AggregateError
		for addr, d := range b.devices {
			if err := d.closeFile(); err != nil {
				ae.Add(err)
			}
			delete(b.devices, addr)
		}
		result <- ae.AsError()
	}
	err := <-result
	b.stop()
	return err
}

// Try to recover the i2c bus from lockup by clocking out a slave that
// holds SDA low.
func (b *i2cBus) recoverFromLockup() error {
	b.log.Warn().Int("scl", b.sclPin).Msg("Performing i2c recovery ...")
	activeLow := false
	scl, err := gpio.Output(b.sclPin, activeLow, true)
	if err != nil {
		return errors.Wrap(err, "failed to set scl pin to output")
	}
	for i := 0; i < i2cRecoverNumClocks; i++ {
		time.Sleep(i2cRecoverClockDelay)
		if err := scl.Write(false); err != nil {
			return errors.Wrap(err, "failed to lower scl during i2c recovery")
		}
		time.Sleep(i2cRecoverClockDelay)
		if err := scl.Write(true); err != nil {
			return errors.Wrap(err, "failed to raise scl during i2c recovery")
		}
	}
	if _, err := gpio.Input(b.sclPin, activeLow); err != nil {
		return errors.Wrap(err, "failed to reset scl pin to input")
	}
	if err := os.WriteFile("/sys/class/gpio/unexport", []byte(strconv.Itoa(b.sclPin)), 0644); err != nil {
		return errors.Wrap(err, "failed to unexport scl pin")
	}
	b.log.Info().Msg("Performed i2c recovery.")
	return nil
}

// i2cBusDevice exposes a single slave of an i2cBus as bus.I2CDevice.
type i2cBusDevice struct {
	bus      *i2cBus
	settings bus.I2CSettings
	mutex    sync.Mutex
	closed   bool
}

var _ bus.I2CDevice = &i2cBusDevice{}

func (d *i2cBusDevice) exec(op string, f func(dev *i2cDevice) error) error {
	d.mutex.Lock()
	closed := d.closed
	d.mutex.Unlock()
	if closed {
		return errors.Errorf("i2c device 0x%02x is closed", d.settings.Address)
	}
	err := d.bus.Execute(context.Background(), uint8(d.settings.Address), f)
	return bus.RecordTransfer("i2c", op, err)
}

func (d *i2cBusDevice) Write(buffer []byte) error {
	if err := bus.RequireBuffer("buffer", buffer); err != nil {
		return err
	}
	return d.exec("write", func(dev *i2cDevice) error { return dev.write(buffer) })
}

func (d *i2cBusDevice) Read(buffer []byte) error {
	if err := bus.RequireBuffer("buffer", buffer); err != nil {
		return err
	}
	return d.exec("read", func(dev *i2cDevice) error { return dev.read(buffer) })
}

func (d *i2cBusDevice) WriteThenRead(writeBuffer, readBuffer []byte) error {
	if err := bus.RequireBuffer("writeBuffer", writeBuffer); err != nil {
		return err
	}
	if err := bus.RequireBuffer("readBuffer", readBuffer); err != nil {
		return err
	}
	return d.exec("write_then_read", func(dev *i2cDevice) error { return dev.writeThenRead(writeBuffer, readBuffer) })
}

// Close marks the device closed. The underlying file stays cached by the bus.
func (d *i2cBusDevice) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.closed = true
	return nil
}
