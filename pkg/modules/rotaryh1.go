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

package modules

import (
	"context"

	aerr "github.com/ewoutp/go-aggregate-error"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/bus"
	"github.com/binkynet/Gadgeteer/pkg/pins"
	"github.com/binkynet/Gadgeteer/pkg/socket"
)

// LS7366R commands
const (
	ls7366rClear = 0x00
	ls7366rRead  = 0x40
	ls7366rWrite = 0x80
	ls7366rLoad  = 0xC0
)

// LS7366R registers
const (
	ls7366rMode0   = 0x08
	ls7366rMode1   = 0x10
	ls7366rCounter = 0x20
	ls7366rOutput  = 0x28
	ls7366rStatus  = 0x30
)

const (
	ls7366rMode0FilterClockDivisionTwo = 0x80
	ls7366rMode1FourByte               = 0x00
	ls7366rMode1EnableCount            = 0x00

	rotaryH1ClockFrequency = 1000000
)

// CountMode is the quadrature count mode of a RotaryH1.
type CountMode byte

const (
	CountModeNone CountMode = iota
	CountModeQuad1
	CountModeQuad2
	CountModeQuad4
)

// RotaryH1 is a rotary encoder with an LS7366R counter.
type RotaryH1 struct {
	spi    bus.SPIDevice
	enable pins.DigitalIO
	mode   CountMode
}

var _ Sensor = &RotaryH1{}

// NewRotaryH1 creates an encoder on the given socket and starts counting
// in Quad1 mode.
func NewRotaryH1(ctx context.Context, s socket.Socket) (*RotaryH1, error) {
	if err := s.EnsureTypeIsSupported(socket.TypeS); err != nil {
		return nil, maskAny(err)
	}
	spi, err := s.CreateSPIDevice(ctx, bus.NewSPISettings(0, bus.Mode0, rotaryH1ClockFrequency))
	if err != nil {
		return nil, maskAny(err)
	}
	enable, err := s.CreateDigitalOutput(ctx, socket.Pin5, true)
	if err != nil {
		spi.Close()
		return nil, maskAny(err)
	}
	r := &RotaryH1{spi: spi, enable: enable}
	if err := r.init(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *RotaryH1) init() error {
	for _, reg := range []byte{ls7366rMode0, ls7366rMode1, ls7366rStatus, ls7366rCounter} {
		if err := r.command(ls7366rClear, reg); err != nil {
			return err
		}
	}
	if err := r.command(ls7366rLoad, ls7366rOutput); err != nil {
		return err
	}
	if err := r.SetMode(CountModeQuad1); err != nil {
		return err
	}
	return r.write(ls7366rMode1, ls7366rMode1FourByte|ls7366rMode1EnableCount)
}

// Mode returns the current count mode.
func (r *RotaryH1) Mode() CountMode {
	return r.mode
}

// SetMode changes the count mode.
func (r *RotaryH1) SetMode(mode CountMode) error {
	if mode > CountModeQuad4 {
		return model.OutOfRange("count mode must be in 0..3 range, got %d", mode)
	}
	if mode == r.mode {
		return nil
	}
	// Free running, index disabled
	if err := r.write(ls7366rMode0, ls7366rMode0FilterClockDivisionTwo|byte(mode)); err != nil {
		return err
	}
	r.mode = mode
	return nil
}

// Count latches and returns the counter.
func (r *RotaryH1) Count() (int32, error) {
	if err := r.command(ls7366rLoad, ls7366rOutput); err != nil {
		return 0, err
	}
	var buf [4]byte
	if err := r.spi.WriteThenRead([]byte{ls7366rRead | ls7366rOutput}, buf[:]); err != nil {
		return 0, maskAny(err)
	}
	return int32(uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])), nil
}

// ResetCount clears the counter.
func (r *RotaryH1) ResetCount() error {
	return r.command(ls7366rClear, ls7366rCounter)
}

// Readings returns the counter.
func (r *RotaryH1) Readings(ctx context.Context) ([]Reading, error) {
	c, err := r.Count()
	if err != nil {
		return nil, err
	}
	return []Reading{{Quantity: "count", Value: float64(c)}}, nil
}

func (r *RotaryH1) command(cmd, reg byte) error {
	return maskAny(r.spi.Write([]byte{cmd | reg}))
}

func (r *RotaryH1) write(reg, value byte) error {
	return maskAny(r.spi.Write([]byte{ls7366rWrite | reg, value}))
}

func (r *RotaryH1) Close() error {
	var ae aerr.AggregateError
	if err := r.enable.Close(); err != nil {
		ae.Add(err)
	}
	if err := r.spi.Close(); err != nil {
		ae.Add(err)
	}
	return ae.AsError()
}
