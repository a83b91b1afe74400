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
	"fmt"

	"github.com/binkynet/Gadgeteer/pkg/bus"
	"github.com/binkynet/Gadgeteer/pkg/socket"
)

const (
	si70Address              = 0x40
	si70MeasureHumidityHold  = 0xE5
	si70ReadTempFromPrevious = 0xE0
)

// Measurement of a TempHumidSI70.
type Measurement struct {
	// Temperature in degrees Celsius
	Temperature float64
	// Relative humidity in percent
	RelativeHumidity float64
}

// TemperatureFahrenheit returns the temperature in degrees Fahrenheit.
func (m Measurement) TemperatureFahrenheit() float64 {
	return m.Temperature*1.8 + 32.0
}

func (m Measurement) String() string {
	return fmt.Sprintf("%.1f degrees Celsius, %.1f%% relative humidity", m.Temperature, m.RelativeHumidity)
}

// TempHumidSI70 is a temperature and humidity sensor.
// It uses a software I2C bus on pins 5 (SDA) and 4 (SCL).
type TempHumidSI70 struct {
	dev bus.I2CDevice
}

var _ Sensor = &TempHumidSI70{}

// NewTempHumidSI70 creates a sensor on the given socket.
func NewTempHumidSI70(ctx context.Context, s socket.Socket) (*TempHumidSI70, error) {
	dev, err := s.CreateI2CDeviceOnPins(ctx, bus.NewI2CSettings(si70Address), socket.Pin5, socket.Pin4)
	if err != nil {
		return nil, maskAny(err)
	}
	return &TempHumidSI70{dev: dev}, nil
}

// TakeMeasurement measures humidity, then reads the temperature
// measured along with it.
func (t *TempHumidSI70) TakeMeasurement() (Measurement, error) {
	var rh, temp [2]byte
	if err := t.dev.WriteThenRead([]byte{si70MeasureHumidityHold}, rh[:]); err != nil {
		return Measurement{}, maskAny(err)
	}
	if err := t.dev.WriteThenRead([]byte{si70ReadTempFromPrevious}, temp[:]); err != nil {
		return Measurement{}, maskAny(err)
	}
	rawTemp := int(temp[0])<<8 | int(temp[1])
	rawHumidity := int(rh[0])<<8 | int(rh[1])

	humidity := 125.0*float64(rawHumidity)/65536.0 - 6.0
	if humidity < 0 {
		humidity = 0
	} else if humidity > 100 {
		humidity = 100
	}
	return Measurement{
		Temperature:      175.72*float64(rawTemp)/65536.0 - 46.85,
		RelativeHumidity: humidity,
	}, nil
}

// Readings returns temperature and humidity.
func (t *TempHumidSI70) Readings(ctx context.Context) ([]Reading, error) {
	m, err := t.TakeMeasurement()
	if err != nil {
		return nil, err
	}
	return []Reading{
		{Quantity: "temperature", Value: m.Temperature, Unit: "C"},
		{Quantity: "humidity", Value: m.RelativeHumidity, Unit: "%"},
	}, nil
}

func (t *TempHumidSI70) Close() error {
	return maskAny(t.dev.Close())
}
