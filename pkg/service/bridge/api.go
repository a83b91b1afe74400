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
	"time"

	"github.com/pkg/errors"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/socket"
)

var (
	maskAny = errors.WithStack
)

// API of the bridge, the host that the board is mounted on.
// It opens the native peripherals that sockets are wired to
// and drives the status LEDs of the worker.
type API interface {
	socket.NativeProvider

	// Turn Green status led on/off
	SetGreenLED(on bool) error
	// Turn Red status led on/off
	SetRedLED(on bool) error
	// Blink Green status led with given duration between on/off
	BlinkGreenLED(delay time.Duration) error
	// Blink Red status led with given duration between on/off
	BlinkRedLED(delay time.Duration) error

	// DetectI2CAddresses probes the I2C controller with given id
	// and returns the addresses of all slaves that respond.
	DetectI2CAddresses(ctx context.Context, deviceID string) ([]byte, error)

	Close() error
}

// Type of bridge
type Type string

const (
	TypeRaspberryPi Type = "rpi"
	TypeVirtual     Type = "virtual"
)

// New creates a bridge of given type.
func New(bridgeType Type, cfg RaspberryPiConfig) (API, error) {
	switch bridgeType {
	case TypeRaspberryPi:
		return NewRaspberryPiBridge(cfg)
	case TypeVirtual:
		return NewVirtualBridge(), nil
	default:
		return nil, model.InvalidArgument("unknown bridge type '%s'", string(bridgeType))
	}
}
