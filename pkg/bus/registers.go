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

package bus

import (
	"github.com/binkynet/Gadgeteer/model"
)

// WriteRegister writes a single byte register.
func WriteRegister(dev I2CDevice, register, value byte) error {
	if err := dev.Write([]byte{register, value}); err != nil {
		return maskAny(err)
	}
	return nil
}

// WriteRegisters writes consecutive registers starting at the given one.
func WriteRegisters(dev I2CDevice, register byte, values []byte) error {
	if err := RequireBuffer("values", values); err != nil {
		return err
	}
	buffer := make([]byte, len(values)+1)
	buffer[0] = register
	copy(buffer[1:], values)
	if err := dev.Write(buffer); err != nil {
		return maskAny(err)
	}
	return nil
}

// ReadRegister reads a single byte register.
func ReadRegister(dev I2CDevice, register byte) (byte, error) {
	var result [1]byte
	if err := dev.WriteThenRead([]byte{register}, result[:]); err != nil {
		return 0, maskAny(err)
	}
	return result[0], nil
}

// ReadRegisterInto reads len(values) consecutive registers starting at the given one.
func ReadRegisterInto(dev I2CDevice, register byte, values []byte) error {
	if err := RequireBuffer("values", values); err != nil {
		return err
	}
	if err := dev.WriteThenRead([]byte{register}, values); err != nil {
		return maskAny(err)
	}
	return nil
}

// ReadRegisters reads count consecutive registers starting at the given one.
func ReadRegisters(dev I2CDevice, register byte, count int) ([]byte, error) {
	if count < 1 {
		return nil, model.OutOfRange("count must be positive, got %d", count)
	}
	result := make([]byte, count)
	if err := dev.WriteThenRead([]byte{register}, result); err != nil {
		return nil, maskAny(err)
	}
	return result, nil
}
