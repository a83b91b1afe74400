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
	"fmt"
	"strconv"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/pins"
)

const (
	edgePollTimeout = 100 * time.Millisecond
)

// gpioLine drives a single host GPIO through periph.
type gpioLine struct {
	mutex sync.Mutex
	pin   gpio.PinIO
	label string
	level gpio.Level
	// Set while interrupts are enabled
	stop chan struct{}
	done chan struct{}
}

var _ pins.DigitalDriver = &gpioLine{}

func openGPIOLine(nativePin int) (*gpioLine, error) {
	pin := gpioreg.ByName(fmt.Sprintf("GPIO%d", nativePin))
	if pin == nil {
		return nil, model.InvalidArgument("unknown GPIO %d", nativePin)
	}
	return &gpioLine{pin: pin, label: strconv.Itoa(nativePin)}, nil
}

func (l *gpioLine) SetDriveMode(mode pins.DriveMode) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	switch mode {
	case pins.Input:
		edge := gpio.NoEdge
		if l.stop != nil {
			edge = gpio.BothEdges
		}
		return maskAny(l.pin.In(gpio.PullNoChange, edge))
	case pins.Output:
		return maskAny(l.pin.Out(l.level))
	default:
		return model.InvalidArgument("unknown drive mode %d", mode)
	}
}

func (l *gpioLine) ReadLevel() (bool, error) {
	return l.pin.Read() == gpio.High, nil
}

func (l *gpioLine) WriteLevel(value bool) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.level = gpio.Level(value)
	return maskAny(l.pin.Out(l.level))
}

// EnableInterrupt starts a goroutine that waits for edges on the line.
func (l *gpioLine) EnableInterrupt(notify func(value bool)) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.stop != nil {
		return nil
	}
	if err := l.pin.In(gpio.PullNoChange, gpio.BothEdges); err != nil {
		return maskAny(err)
	}
	stop, done := make(chan struct{}), make(chan struct{})
	l.stop, l.done = stop, done
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			if l.pin.WaitForEdge(edgePollTimeout) {
				gpioInterruptCounters.WithLabelValues(l.label).Inc()
				notify(l.pin.Read() == gpio.High)
			}
		}
	}()
	return nil
}

func (l *gpioLine) DisableInterrupt() error {
	l.mutex.Lock()
	stop, done := l.stop, l.done
	l.stop, l.done = nil, nil
	l.mutex.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)
	<-done
	return maskAny(l.pin.In(gpio.PullNoChange, gpio.NoEdge))
}

func (l *gpioLine) Close() error {
	if err := l.DisableInterrupt(); err != nil {
		return err
	}
	return maskAny(l.pin.Halt())
}
