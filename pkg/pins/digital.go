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

package pins

import (
	"sync"
	"time"
)

// DigitalDriver is implemented by backends of a digital line
// (native GPIO, expander pin, simulation).
type DigitalDriver interface {
	// SetDriveMode changes the direction of the line.
	SetDriveMode(mode DriveMode) error
	// ReadLevel samples the line.
	ReadLevel() (bool, error)
	// WriteLevel sets the output level of the line.
	WriteLevel(value bool) error
	// EnableInterrupt starts delivering level changes to notify.
	EnableInterrupt(notify func(value bool)) error
	// DisableInterrupt stops delivering level changes.
	DisableInterrupt() error
	// Close releases the line.
	Close() error
}

// DigitalIO is the handle modules use to operate a digital line.
type DigitalIO interface {
	// DriveMode returns the current direction of the line.
	DriveMode() DriveMode
	// SetDriveMode changes the direction of the line.
	SetDriveMode(mode DriveMode) error
	// Read switches the line to Input and samples it.
	Read() (bool, error)
	// Write switches the line to Output and drives it to the given level.
	Write(value bool) error
	// Value samples the line without changing its direction.
	Value() (bool, error)
	// SetValue drives the line without changing its direction.
	SetValue(value bool) error
	// InterruptEdge returns the transitions delivered to subscribers.
	InterruptEdge() Edge
	// SetInterruptEdge selects the transitions delivered to subscribers.
	SetInterruptEdge(edge Edge)
	// Subscribe registers a callback for level changes.
	// The interrupt of the backend is enabled for the first subscriber
	// and disabled when the last one cancels.
	Subscribe(cb func(ValueChange)) (cancel func() error, err error)
	// Subscribers returns the number of active subscriptions.
	Subscribers() int
	// Close releases the line.
	Close() error
}

type digitalIO struct {
	driver  DigitalDriver
	mode    DriveMode
	modeSet bool

	subMutex    sync.Mutex
	edge        Edge
	subscribers int
	lastID      int
	handlers    map[int]func(ValueChange)
}

// NewDigitalIO wraps the given driver into a uniform handle.
// The direction is unknown until the first mode change, read or write.
func NewDigitalIO(driver DigitalDriver) DigitalIO {
	return &digitalIO{
		driver:   driver,
		edge:     BothEdges,
		handlers: make(map[int]func(ValueChange)),
	}
}

func (d *digitalIO) DriveMode() DriveMode {
	return d.mode
}

func (d *digitalIO) SetDriveMode(mode DriveMode) error {
	if err := d.driver.SetDriveMode(mode); err != nil {
		return maskAny(err)
	}
	d.mode = mode
	d.modeSet = true
	return nil
}

// ensureMode changes the direction only when needed.
func (d *digitalIO) ensureMode(mode DriveMode) error {
	if d.modeSet && d.mode == mode {
		return nil
	}
	return d.SetDriveMode(mode)
}

func (d *digitalIO) Read() (bool, error) {
	if err := d.ensureMode(Input); err != nil {
		return false, err
	}
	return d.Value()
}

func (d *digitalIO) Write(value bool) error {
	if err := d.ensureMode(Output); err != nil {
		return err
	}
	return d.SetValue(value)
}

func (d *digitalIO) Value() (bool, error) {
	v, err := d.driver.ReadLevel()
	if err != nil {
		return false, maskAny(err)
	}
	return v, nil
}

func (d *digitalIO) SetValue(value bool) error {
	if err := d.driver.WriteLevel(value); err != nil {
		return maskAny(err)
	}
	return nil
}

func (d *digitalIO) InterruptEdge() Edge {
	d.subMutex.Lock()
	defer d.subMutex.Unlock()
	return d.edge
}

func (d *digitalIO) SetInterruptEdge(edge Edge) {
	d.subMutex.Lock()
	defer d.subMutex.Unlock()
	d.edge = edge
}

func (d *digitalIO) Subscribers() int {
	d.subMutex.Lock()
	defer d.subMutex.Unlock()
	return d.subscribers
}

func (d *digitalIO) Subscribe(cb func(ValueChange)) (func() error, error) {
	d.subMutex.Lock()
	defer d.subMutex.Unlock()

	if d.subscribers == 0 {
		if err := d.driver.EnableInterrupt(d.onValueChanged); err != nil {
			return nil, maskAny(err)
		}
	}
	d.subscribers++
	d.lastID++
	id := d.lastID
	d.handlers[id] = cb

	var once sync.Once
	cancel := func() error {
		var result error
		once.Do(func() {
			result = d.unsubscribe(id)
		})
		return result
	}
	return cancel, nil
}

func (d *digitalIO) unsubscribe(id int) error {
	d.subMutex.Lock()
	defer d.subMutex.Unlock()

	if _, found := d.handlers[id]; !found {
		return nil
	}
	delete(d.handlers, id)
	d.subscribers--
	if d.subscribers == 0 {
		if err := d.driver.DisableInterrupt(); err != nil {
			return maskAny(err)
		}
	}
	return nil
}

// onValueChanged is called by the driver, possibly from another goroutine.
func (d *digitalIO) onValueChanged(value bool) {
	d.subMutex.Lock()
	if !d.edge.Matches(value) {
		d.subMutex.Unlock()
		return
	}
	handlers := make([]func(ValueChange), 0, len(d.handlers))
	for _, h := range d.handlers {
		handlers = append(handlers, h)
	}
	d.subMutex.Unlock()

	change := ValueChange{When: time.Now().UTC(), Value: value}
	for _, h := range handlers {
		h(change)
	}
}

func (d *digitalIO) Close() error {
	d.subMutex.Lock()
	active := d.subscribers > 0
	d.subscribers = 0
	d.handlers = make(map[int]func(ValueChange))
	d.subMutex.Unlock()

	if active {
		if err := d.driver.DisableInterrupt(); err != nil {
			d.driver.Close()
			return maskAny(err)
		}
	}
	if err := d.driver.Close(); err != nil {
		return maskAny(err)
	}
	return nil
}
