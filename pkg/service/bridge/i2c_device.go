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
	"os"
	"runtime"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/binkynet/Gadgeteer/pkg/bus"
)

const (
	// From  /usr/include/linux/i2c-dev.h:
	// ioctl signals
	i2cSlave = 0x0703
	i2cFuncs = 0x0705
	i2cRdwr  = 0x0707
	i2cSmbus = 0x0720
	// Read/write markers
	i2cSmbusWrite = 0

	// From  /usr/include/linux/i2c.h:
	i2cMsgRead = 0x0001
	// Adapter functionality
	i2cFuncI2C        = 0x00000001
	i2cFuncSmbusQuick = 0x00010000

	// Transaction types
	i2cSmbusQuick = 0
)

type i2cSmbusIoctlData struct {
	readWrite byte
	command   byte
	size      uint32
	data      uintptr
}

// i2cMsg mirrors struct i2c_msg.
type i2cMsg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   uintptr
}

// i2cRdwrIoctlData mirrors struct i2c_rdwr_ioctl_data.
type i2cRdwrIoctlData struct {
	msgs  uintptr
	nmsgs uint32
}

// i2cDevice is an open /dev/i2c-N file bound to a single slave address.
// It is only used from the queue processor of its bus.
type i2cDevice struct {
	address uint8
	file    *os.File
	funcs   uint64 // adapter functionality mask
}

func newI2CDevice(location string, address uint8) (*i2cDevice, error) {
	d := &i2cDevice{
		address: address,
	}

	var err error
	if d.file, err = os.OpenFile(location, os.O_RDWR, os.ModeDevice); err != nil {
		return nil, maskAny(err)
	}
	if err := d.queryFunctionality(); err != nil {
		d.file.Close()
		return nil, err
	}
	if err := d.setAddress(address); err != nil {
		d.file.Close()
		return nil, err
	}
	return d, nil
}

func (d *i2cDevice) ioctl(req, arg uintptr) unix.Errno {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.file.Fd(), req, arg)
	return errno
}

func (d *i2cDevice) queryFunctionality() error {
	if errno := d.ioctl(i2cFuncs, uintptr(unsafe.Pointer(&d.funcs))); errno != 0 {
		return errors.Wrapf(errno, "querying functionality failed")
	}
	return nil
}

func (d *i2cDevice) setAddress(address byte) error {
	if errno := d.ioctl(i2cSlave, uintptr(address)); errno != 0 {
		return errors.Wrapf(errno, "setting address (0x%02x) failed", address)
	}
	return nil
}

func (d *i2cDevice) closeFile() error {
	return maskAny(d.file.Close())
}

// detect probes the slave with an SMBus quick write.
func (d *i2cDevice) detect() error {
	if d.funcs&i2cFuncSmbusQuick == 0 {
		return errors.Wrap(notSupported, "SMBus quick")
	}
	smbus := &i2cSmbusIoctlData{
		readWrite: i2cSmbusWrite,
		size:      i2cSmbusQuick,
	}
	if errno := d.ioctl(i2cSmbus, uintptr(unsafe.Pointer(smbus))); errno != 0 {
		return translateI2CError(errno, d.address)
	}
	return nil
}

func (d *i2cDevice) write(data []byte) error {
	n, err := d.file.Write(data)
	if err != nil {
		return translateI2CError(err, d.address)
	}
	if n != len(data) {
		return errors.Wrapf(bus.NackError, "expected to write %d bytes to 0x%02x, wrote %d", len(data), d.address, n)
	}
	return nil
}

func (d *i2cDevice) read(data []byte) error {
	n, err := d.file.Read(data)
	if err != nil {
		return translateI2CError(err, d.address)
	}
	if n != len(data) {
		return errors.Wrapf(bus.NackError, "expected to read %d bytes from 0x%02x, read %d", len(data), d.address, n)
	}
	return nil
}

// writeThenRead performs a combined transfer with a repeated start.
func (d *i2cDevice) writeThenRead(w, r []byte) error {
	if len(w) == 0 {
		return d.read(r)
	} else if len(r) == 0 {
		return d.write(w)
	}
	if d.funcs&i2cFuncI2C == 0 {
		// Adapter can only do SMBus, fall back to separate transfers.
		if err := d.write(w); err != nil {
			return err
		}
		return d.read(r)
	}
	msgs := []i2cMsg{
		{addr: uint16(d.address), len: uint16(len(w)), buf: uintptr(unsafe.Pointer(&w[0]))},
		{addr: uint16(d.address), flags: i2cMsgRead, len: uint16(len(r)), buf: uintptr(unsafe.Pointer(&r[0]))},
	}
	data := i2cRdwrIoctlData{
		msgs:  uintptr(unsafe.Pointer(&msgs[0])),
		nmsgs: uint32(len(msgs)),
	}
	errno := d.ioctl(i2cRdwr, uintptr(unsafe.Pointer(&data)))
	runtime.KeepAlive(w)
	runtime.KeepAlive(r)
	runtime.KeepAlive(msgs)
	if errno != 0 {
		return translateI2CError(errno, d.address)
	}
	return nil
}

var notSupported = errors.New("not supported by adapter")

// translateI2CError turns an address NACK reported by the kernel into bus.NackError.
func translateI2CError(err error, address uint8) error {
	if errors.Is(err, unix.ENXIO) || errors.Is(err, unix.EREMOTEIO) {
		return errors.Wrapf(bus.NackError, "slave 0x%02x: %v", address, err)
	}
	return errors.Wrapf(err, "transfer with 0x%02x failed", address)
}
