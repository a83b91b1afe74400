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

package devices

import (
	"sync"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/bus"
	"github.com/binkynet/Gadgeteer/pkg/indirect"
)

const (
	// Single ended inputs, internal reference off, converter on
	ads7830CmdSingleEnded = 0x84

	ads7830Channels = 8
)

// ADS7830Address returns the I2C address for the given address pin levels.
func ADS7830Address(a0, a1 bool) uint16 {
	return 0x48 | boolBit(a0, 0) | boolBit(a1, 1)
}

// ADS7830 is an 8 channel, 8 bit ADC.
type ADS7830 struct {
	deps Dependencies
	dev  bus.I2CDevice

	mutex  sync.Mutex
	closed bool
}

var _ indirect.ADC = &ADS7830{}

// NewADS7830 creates a driver for the ADC on the given device.
func NewADS7830(dev bus.I2CDevice, deps Dependencies) *ADS7830 {
	return &ADS7830{deps: deps, dev: dev}
}

// ads7830Command returns the command byte that selects the given channel.
// The channel select bits interleave even and odd channels.
func ads7830Command(channel int) byte {
	var sel int
	if channel%2 == 0 {
		sel = channel / 2
	} else {
		sel = (channel-1)/2 + 4
	}
	return byte(ads7830CmdSingleEnded | sel<<4)
}

// ReadRaw samples the given channel.
func (d *ADS7830) ReadRaw(channel int) (byte, error) {
	if channel < 0 || channel >= ads7830Channels {
		return 0, model.OutOfRange("channel must be in 0..7 range, got %d", channel)
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.closed {
		return 0, maskAny(ClosedError)
	}
	d.deps.active()
	result := []byte{0}
	if err := d.dev.WriteThenRead([]byte{ads7830Command(channel)}, result); err != nil {
		return 0, maskAny(err)
	}
	return result[0], nil
}

// ReadProportion samples the given channel as a fraction of full scale.
func (d *ADS7830) ReadProportion(channel int) (float64, error) {
	raw, err := d.ReadRaw(channel)
	if err != nil {
		return 0, err
	}
	return float64(raw) / 255.0, nil
}

// Close the device.
func (d *ADS7830) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return maskAny(d.dev.Close())
}
