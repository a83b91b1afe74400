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
	"testing"

	"github.com/jacobsa/go-serial/serial"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/bus"
	"github.com/binkynet/Gadgeteer/pkg/pins"
	"github.com/binkynet/Gadgeteer/pkg/socket"
)

func TestVirtualDigital(t *testing.T) {
	ctx := context.Background()
	b := NewVirtualBridge()
	drv, err := b.OpenDigital(ctx, 17)
	require.NoError(t, err)
	io := pins.NewDigitalIO(drv)

	require.NoError(t, io.Write(true))
	assert.True(t, b.Level(17))

	var changes []bool
	require.NoError(t, io.SetDriveMode(pins.Input))
	_, err = io.Subscribe(func(c pins.ValueChange) { changes = append(changes, c.Value) })
	require.NoError(t, err)
	b.SetInput(17, false)
	b.SetInput(17, false)
	b.SetInput(17, true)
	assert.Equal(t, []bool{false, true}, changes)

	v, err := io.Read()
	require.NoError(t, err)
	assert.True(t, v)
	require.NoError(t, io.Close())
}

func TestVirtualI2C(t *testing.T) {
	ctx := context.Background()
	b := NewVirtualBridge()
	dev, err := b.OpenI2C(ctx, "I2C1", bus.NewI2CSettings(0x20))
	require.NoError(t, err)
	require.NoError(t, bus.WriteRegisters(dev, 0x06, []byte{0xAA, 0x55}))
	v, err := bus.ReadRegister(dev, 0x07)
	require.NoError(t, err)
	assert.Equal(t, byte(0x55), v)
	assert.Equal(t, []byte{0xAA, 0x55}, b.Registers("I2C1", 0x20)[6:8])

	_, err = b.OpenI2C(ctx, "I2C1", bus.NewI2CSettings(0x80))
	assert.True(t, model.IsArgumentOutOfRange(err))

	_, err = b.OpenI2C(ctx, "I2C1", bus.NewI2CSettings(0x08))
	require.NoError(t, err)
	addrs, err := b.DetectI2CAddresses(ctx, "I2C1")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x08, 0x20}, addrs)
}

func TestVirtualSPIAndSerial(t *testing.T) {
	ctx := context.Background()
	b := NewVirtualBridge()
	spi, err := b.OpenSPI(ctx, "SPI0", bus.NewSPISettings(0, bus.Mode0, 1000000))
	require.NoError(t, err)
	r := []byte{1, 2, 3}
	require.NoError(t, spi.WriteAndRead([]byte{9, 8}, r))
	assert.Equal(t, []byte{9, 8, 0}, r)

	_, err = b.OpenSPI(ctx, "SPI0", bus.NewSPISettings(0, bus.SPIMode(4), 1000000))
	assert.True(t, model.IsArgumentOutOfRange(err))

	com, err := b.OpenSerial(ctx, "COM1", bus.DefaultSerialSettings())
	require.NoError(t, err)
	require.NoError(t, com.Write([]byte("hello")))
	buf := make([]byte, 3)
	n, err := com.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hel", string(buf[:n]))
	n, err = com.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "lo", string(buf[:n]))
}

func TestVirtualLEDs(t *testing.T) {
	b := NewVirtualBridge()
	require.NoError(t, b.SetGreenLED(true))
	require.NoError(t, b.BlinkRedLED(0))
	assert.True(t, b.LED("green"))
	assert.True(t, b.LED("red"))
	require.NoError(t, b.SetRedLED(false))
	assert.False(t, b.LED("red"))
}

func TestSerialOptions(t *testing.T) {
	opts, err := serialOptions("/dev/serial0", bus.DefaultSerialSettings())
	require.NoError(t, err)
	assert.Equal(t, uint(9600), opts.BaudRate)
	assert.Equal(t, uint(8), opts.DataBits)
	assert.Equal(t, uint(1), opts.StopBits)
	assert.Equal(t, serial.PARITY_NONE, opts.ParityMode)
	assert.False(t, opts.RTSCTSFlowControl)

	s := bus.SerialSettings{BaudRate: 115200, DataBits: 7, Parity: bus.ParityEven, StopBits: bus.StopBitsTwo, Handshake: bus.HandshakeRequestToSend}
	opts, err = serialOptions("/dev/ttyS0", s)
	require.NoError(t, err)
	assert.Equal(t, serial.PARITY_EVEN, opts.ParityMode)
	assert.Equal(t, uint(2), opts.StopBits)
	assert.True(t, opts.RTSCTSFlowControl)

	s.Parity = bus.Parity(7)
	_, err = serialOptions("/dev/ttyS0", s)
	assert.True(t, model.IsInvalidArgument(err))
}

func TestTranslateI2CError(t *testing.T) {
	assert.True(t, bus.IsNack(translateI2CError(unix.ENXIO, 0x20)))
	assert.True(t, bus.IsNack(translateI2CError(unix.EREMOTEIO, 0x20)))
	assert.False(t, bus.IsNack(translateI2CError(unix.EIO, 0x20)))
}

func TestNewBridge(t *testing.T) {
	b, err := New(TypeVirtual, RaspberryPiConfig{})
	require.NoError(t, err)
	assert.IsType(t, &VirtualBridge{}, b)
	_, err = New(Type("beaglebone"), RaspberryPiConfig{})
	assert.True(t, model.IsInvalidArgument(err))
}

func TestNilBuffersAreRejected(t *testing.T) {
	ctx := context.Background()
	vb := NewVirtualBridge()
	vi2c, err := vb.OpenI2C(ctx, "I2C1", bus.NewI2CSettings(0x40))
	require.NoError(t, err)
	vspi, err := vb.OpenSPI(ctx, "SPI0", bus.NewSPISettings(0, bus.Mode0, 1000000))
	require.NoError(t, err)
	vserial, err := vb.OpenSerial(ctx, "COM1", bus.DefaultSerialSettings())
	require.NoError(t, err)

	// Guards run before any hardware access, so the native devices need no backing handles.
	ni2c := &i2cBusDevice{settings: bus.NewI2CSettings(0x40)}
	nspi := &spiDevice{}
	nserial := &serialDevice{}

	buf := []byte{1}
	tests := []struct {
		name string
		call func() error
	}{
		{"virtual i2c write", func() error { return vi2c.Write(nil) }},
		{"virtual i2c read", func() error { return vi2c.Read(nil) }},
		{"virtual i2c write then read, nil write", func() error { return vi2c.WriteThenRead(nil, buf) }},
		{"virtual i2c write then read, nil read", func() error { return vi2c.WriteThenRead(buf, nil) }},
		{"virtual spi write", func() error { return vspi.Write(nil) }},
		{"virtual spi read", func() error { return vspi.Read(nil) }},
		{"virtual spi write then read", func() error { return vspi.WriteThenRead(nil, buf) }},
		{"virtual spi write and read", func() error { return vspi.WriteAndRead(buf, nil) }},
		{"virtual serial write", func() error { return vserial.Write(nil) }},
		{"virtual serial read", func() error { _, err := vserial.Read(nil); return err }},
		{"native i2c write", func() error { return ni2c.Write(nil) }},
		{"native i2c read", func() error { return ni2c.Read(nil) }},
		{"native i2c write then read, nil write", func() error { return ni2c.WriteThenRead(nil, buf) }},
		{"native i2c write then read, nil read", func() error { return ni2c.WriteThenRead(buf, nil) }},
		{"native spi write", func() error { return nspi.Write(nil) }},
		{"native spi read", func() error { return nspi.Read(nil) }},
		{"native spi write then read", func() error { return nspi.WriteThenRead(buf, nil) }},
		{"native spi write and read", func() error { return nspi.WriteAndRead(nil, nil) }},
		{"native serial write", func() error { return nserial.Write(nil) }},
		{"native serial read", func() error { _, err := nserial.Read(nil); return err }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.True(t, model.IsInvalidArgument(test.call()))
		})
	}
	assert.Equal(t, make([]byte, 256), vb.Registers("I2C1", 0x40))
}

func TestNativeSocketI2CRejectsNilBuffers(t *testing.T) {
	ctx := context.Background()
	s, err := socket.New(socket.Config{
		Number:            1,
		Types:             []socket.Type{socket.TypeI, socket.TypeS},
		NativeI2CDeviceID: "I2C1",
		NativeSPIDeviceID: "SPI0",
	}, NewVirtualBridge(), zerolog.Nop())
	require.NoError(t, err)

	i2c, err := s.CreateI2CDevice(ctx, bus.NewI2CSettings(0x40))
	require.NoError(t, err)
	assert.True(t, model.IsInvalidArgument(i2c.Write(nil)))
	assert.True(t, model.IsInvalidArgument(i2c.Read(nil)))

	spi, err := s.CreateSPIDevice(ctx, bus.NewSPISettings(0, bus.Mode0, 1000000))
	require.NoError(t, err)
	assert.True(t, model.IsInvalidArgument(spi.WriteAndRead(nil, nil)))
}
