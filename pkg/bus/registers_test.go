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

package bus_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/bus"
	"github.com/binkynet/Gadgeteer/pkg/bus/bustest"
)

func TestRegisterHelpers(t *testing.T) {
	dev := bustest.NewRegisterDevice()

	require.NoError(t, bus.WriteRegister(dev, 0x10, 0xAB))
	require.NoError(t, bus.WriteRegisters(dev, 0x20, []byte{1, 2, 3}))
	assert.Equal(t, [][]byte{{0x10, 0xAB}, {0x20, 1, 2, 3}}, dev.Writes())

	v, err := bus.ReadRegister(dev, 0x10)
	require.NoError(t, err)
	assert.Equal(t, byte(0xAB), v)

	values, err := bus.ReadRegisters(dev, 0x20, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, values)

	into := make([]byte, 2)
	require.NoError(t, bus.ReadRegisterInto(dev, 0x21, into))
	assert.Equal(t, []byte{2, 3}, into)
}

func TestReadRegistersCountOutOfRange(t *testing.T) {
	dev := bustest.NewRegisterDevice()
	for _, count := range []int{0, -1} {
		_, err := bus.ReadRegisters(dev, 0, count)
		require.Error(t, err)
		assert.True(t, model.IsArgumentOutOfRange(err))
	}
	assert.Equal(t, 0, dev.ReadCount())
}

func TestNilBuffersRejected(t *testing.T) {
	dev := bustest.NewRegisterDevice()
	assert.True(t, model.IsInvalidArgument(bus.WriteRegisters(dev, 0, nil)))
	assert.True(t, model.IsInvalidArgument(bus.ReadRegisterInto(dev, 0, nil)))
	assert.Equal(t, 0, dev.WriteCount())
}

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, bus.NewI2CSettings(0x40).Validate())
	assert.True(t, model.IsArgumentOutOfRange(bus.NewI2CSettings(0x80).Validate()))

	s := bus.NewSPISettings(0, bus.Mode3, 1000000)
	assert.NoError(t, s.Validate())
	assert.Equal(t, 8, s.BitsPerWord())
	s.Mode = 4
	assert.True(t, model.IsArgumentOutOfRange(s.Validate()))
	assert.Equal(t, 8, bus.SPISettings{}.BitsPerWord())
}

func TestSerialByteHelpers(t *testing.T) {
	dev := bustest.NewSerialDevice(bus.DefaultSerialSettings())

	require.NoError(t, bus.WriteSerialByte(dev, 0x55))
	require.NoError(t, bus.WriteSerialByte(dev, 0xAA))
	assert.Equal(t, []byte{0x55, 0xAA}, dev.Written())

	dev.Feed(0x42)
	b, err := bus.ReadSerialByte(dev)
	require.NoError(t, err)
	assert.Equal(t, byte(0x42), b)

	_, err = bus.ReadSerialByte(dev)
	assert.Equal(t, bus.NoDataError, errors.Cause(err))
}
