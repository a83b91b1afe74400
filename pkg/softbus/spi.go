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

package softbus

import (
	"github.com/rs/zerolog"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/bus"
	"github.com/binkynet/Gadgeteer/pkg/pins"
)

// SPIDevice is an SPI master driving chip select (active low),
// data out, data in and clock lines.
type SPIDevice struct {
	log           zerolog.Logger
	chipSelect    pins.DigitalIO
	masterOut     pins.DigitalIO
	masterIn      pins.DigitalIO
	clock         pins.DigitalIO
	clockEdge     bool
	clockPolarity bool
}

var _ bus.SPIDevice = &SPIDevice{}

// NewSPIDevice creates a software SPI master on the given lines.
// Only 8 bit words are supported.
func NewSPIDevice(settings bus.SPISettings, chipSelect, masterOut, masterIn, clock pins.DigitalIO, log zerolog.Logger) (*SPIDevice, error) {
	if chipSelect == nil || masterOut == nil || masterIn == nil || clock == nil {
		return nil, model.InvalidArgument("chip select, mosi, miso and clock lines are required")
	}
	if err := settings.Validate(); err != nil {
		return nil, maskAny(err)
	}
	if bits := settings.BitsPerWord(); bits != bus.DefaultDataBitLength {
		return nil, model.NotSupported("only %d data bits are supported, got %d", bus.DefaultDataBitLength, bits)
	}
	d := &SPIDevice{
		log:           log.With().Str("component", "softspi").Int("mode", int(settings.Mode)).Logger(),
		chipSelect:    chipSelect,
		masterOut:     masterOut,
		masterIn:      masterIn,
		clock:         clock,
		clockEdge:     settings.Mode&1 != 0,
		clockPolarity: settings.Mode&2 == 0,
	}
	d.log.Debug().Bool("clockEdge", d.clockEdge).Bool("clockPolarity", d.clockPolarity).Msg("Created software SPI device")
	return d, nil
}

// Write the given buffer to the slave.
func (d *SPIDevice) Write(buffer []byte) error {
	if err := bus.RequireBuffer("buffer", buffer); err != nil {
		return err
	}
	return bus.RecordTransfer("softspi", "write", d.WriteRead(buffer, nil, true))
}

// Read len(buffer) bytes from the slave, sending zeros.
func (d *SPIDevice) Read(buffer []byte) error {
	if err := bus.RequireBuffer("buffer", buffer); err != nil {
		return err
	}
	return bus.RecordTransfer("softspi", "read", d.WriteRead(nil, buffer, true))
}

// WriteThenRead writes, then reads, keeping the slave selected in between.
func (d *SPIDevice) WriteThenRead(writeBuffer, readBuffer []byte) error {
	if err := bus.RequireBuffer("writeBuffer", writeBuffer); err != nil {
		return err
	}
	if err := bus.RequireBuffer("readBuffer", readBuffer); err != nil {
		return err
	}
	err := d.WriteRead(writeBuffer, nil, false)
	if err == nil {
		err = d.WriteRead(nil, readBuffer, true)
	}
	return bus.RecordTransfer("softspi", "writeThenRead", err)
}

// WriteAndRead writes and reads at the same time.
func (d *SPIDevice) WriteAndRead(writeBuffer, readBuffer []byte) error {
	if err := bus.RequireBuffer("writeBuffer", writeBuffer); err != nil {
		return err
	}
	if err := bus.RequireBuffer("readBuffer", readBuffer); err != nil {
		return err
	}
	return bus.RecordTransfer("softspi", "writeAndRead", d.WriteRead(writeBuffer, readBuffer, true))
}

// WriteRead shifts max(len(writeBuffer), len(readBuffer)) bytes, MSB first.
// Missing write bytes are sent as zero. The slave is deselected afterwards
// only when deselectAfter is set.
func (d *SPIDevice) WriteRead(writeBuffer, readBuffer []byte, deselectAfter bool) error {
	for i := range readBuffer {
		readBuffer[i] = 0
	}
	count := len(writeBuffer)
	if len(readBuffer) > count {
		count = len(readBuffer)
	}

	if err := d.chipSelect.Write(false); err != nil {
		return maskAny(err)
	}
	if err := d.shift(writeBuffer, readBuffer, count); err != nil {
		// A failed transfer always leaves the slave deselected.
		if csErr := d.chipSelect.Write(true); csErr != nil {
			d.log.Warn().Err(csErr).Msg("Failed to deselect slave")
		}
		return err
	}
	if deselectAfter {
		if err := d.chipSelect.Write(true); err != nil {
			return maskAny(err)
		}
	}
	return nil
}

// shift clocks count bytes while the slave is selected.
func (d *SPIDevice) shift(writeBuffer, readBuffer []byte, count int) error {
	for i := 0; i < count; i++ {
		var w byte
		if i < len(writeBuffer) {
			w = writeBuffer[i]
		}
		for mask := byte(0x80); mask != 0; mask >>= 1 {
			var err error
			if d.clockEdge {
				err = d.shiftOutFirst(w&mask != 0, readBuffer, i, mask)
			} else {
				err = d.sampleFirst(w&mask != 0, readBuffer, i, mask)
			}
			if err != nil {
				return err
			}
		}
		if err := d.masterOut.Write(false); err != nil {
			return maskAny(err)
		}
		if err := d.clock.Write(d.clockPolarity); err != nil {
			return maskAny(err)
		}
	}
	return nil
}

// shiftOutFirst changes the output on the first clock edge and samples on the second.
func (d *SPIDevice) shiftOutFirst(bit bool, readBuffer []byte, index int, mask byte) error {
	if err := d.clock.Write(d.clockPolarity); err != nil {
		return maskAny(err)
	}
	if err := d.masterOut.Write(bit); err != nil {
		return maskAny(err)
	}
	if err := d.clock.Write(!d.clockPolarity); err != nil {
		return maskAny(err)
	}
	return d.sample(readBuffer, index, mask)
}

// sampleFirst samples on the first clock edge and changes the output on the second.
func (d *SPIDevice) sampleFirst(bit bool, readBuffer []byte, index int, mask byte) error {
	if err := d.clock.Write(d.clockPolarity); err != nil {
		return maskAny(err)
	}
	if err := d.sample(readBuffer, index, mask); err != nil {
		return err
	}
	if err := d.clock.Write(!d.clockPolarity); err != nil {
		return maskAny(err)
	}
	if err := d.masterOut.Write(bit); err != nil {
		return maskAny(err)
	}
	return nil
}

func (d *SPIDevice) sample(readBuffer []byte, index int, mask byte) error {
	if index >= len(readBuffer) {
		return nil
	}
	v, err := d.masterIn.Read()
	if err != nil {
		return maskAny(err)
	}
	if v {
		readBuffer[index] |= mask
	}
	return nil
}

// Close releases all lines.
func (d *SPIDevice) Close() error {
	var result error
	for _, l := range []pins.DigitalIO{d.chipSelect, d.masterOut, d.masterIn, d.clock} {
		if err := l.Close(); err != nil && result == nil {
			result = maskAny(err)
		}
	}
	return result
}
