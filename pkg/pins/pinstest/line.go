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

// Package pinstest provides recording fakes of line drivers for tests.
package pinstest

import (
	"fmt"
	"sync"

	"github.com/binkynet/Gadgeteer/pkg/pins"
)

// OpKind identifies an access to a fake line.
type OpKind string

const (
	OpMode  OpKind = "mode"
	OpRead  OpKind = "read"
	OpWrite OpKind = "write"
)

// Op is a single recorded access.
type Op struct {
	Line  string
	Kind  OpKind
	Mode  pins.DriveMode
	Value bool
}

// String returns a compact form like "clk=1" or "miso?".
func (o Op) String() string {
	switch o.Kind {
	case OpMode:
		return fmt.Sprintf("%s:%s", o.Line, o.Mode)
	case OpRead:
		return fmt.Sprintf("%s?", o.Line)
	default:
		if o.Value {
			return fmt.Sprintf("%s=1", o.Line)
		}
		return fmt.Sprintf("%s=0", o.Line)
	}
}

// Recorder collects accesses of one or more lines in order.
type Recorder struct {
	mutex sync.Mutex
	ops   []Op
}

func (r *Recorder) add(op Op) {
	if r == nil {
		return
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.ops = append(r.ops, op)
}

// Ops returns a copy of all recorded accesses.
func (r *Recorder) Ops() []Op {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]Op(nil), r.ops...)
}

// Reset forgets all recorded accesses.
func (r *Recorder) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.ops = nil
}

// Line is a fake digital line driver.
type Line struct {
	Name string

	mutex     sync.Mutex
	rec       *Recorder
	mode      pins.DriveMode
	level     bool
	readFunc  func() bool
	notify    func(bool)
	closed    bool
	writeErr  error
	enables   int
	disables  int
	writes    int
	modeCalls int
}

var _ pins.DigitalDriver = &Line{}

// NewLine creates a fake line that records to the given recorder (may be nil).
func NewLine(name string, rec *Recorder) *Line {
	return &Line{Name: name, rec: rec}
}

// OnRead makes reads return the result of f instead of the last written level.
func (l *Line) OnRead(f func() bool) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.readFunc = f
}

// FailWrites makes all following level writes fail with err (nil to stop failing).
func (l *Line) FailWrites(err error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.writeErr = err
}

// SetLevel sets the level returned by reads.
func (l *Line) SetLevel(v bool) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.level = v
}

// Level returns the last written (or set) level.
func (l *Line) Level() bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.level
}

// Mode returns the last configured drive mode.
func (l *Line) Mode() pins.DriveMode {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.mode
}

// Writes returns the number of level writes.
func (l *Line) Writes() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.writes
}

// ModeChanges returns the number of drive mode changes.
func (l *Line) ModeChanges() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.modeCalls
}

// InterruptEnabled returns true while an interrupt is enabled.
func (l *Line) InterruptEnabled() bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.notify != nil
}

// InterruptCalls returns the number of enable and disable calls.
func (l *Line) InterruptCalls() (enables, disables int) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.enables, l.disables
}

// Closed returns true after Close.
func (l *Line) Closed() bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.closed
}

// Trigger simulates an external level change.
func (l *Line) Trigger(v bool) {
	l.mutex.Lock()
	l.level = v
	notify := l.notify
	l.mutex.Unlock()
	if notify != nil {
		notify(v)
	}
}

func (l *Line) SetDriveMode(mode pins.DriveMode) error {
	l.mutex.Lock()
	l.mode = mode
	l.modeCalls++
	l.mutex.Unlock()
	l.rec.add(Op{Line: l.Name, Kind: OpMode, Mode: mode})
	return nil
}

func (l *Line) ReadLevel() (bool, error) {
	l.mutex.Lock()
	v := l.level
	f := l.readFunc
	l.mutex.Unlock()
	if f != nil {
		v = f()
	}
	l.rec.add(Op{Line: l.Name, Kind: OpRead, Value: v})
	return v, nil
}

func (l *Line) WriteLevel(v bool) error {
	l.mutex.Lock()
	if err := l.writeErr; err != nil {
		l.mutex.Unlock()
		return err
	}
	l.level = v
	l.writes++
	l.mutex.Unlock()
	l.rec.add(Op{Line: l.Name, Kind: OpWrite, Value: v})
	return nil
}

func (l *Line) EnableInterrupt(notify func(bool)) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.notify = notify
	l.enables++
	return nil
}

func (l *Line) DisableInterrupt() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.notify = nil
	l.disables++
	return nil
}

func (l *Line) Close() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.closed = true
	return nil
}

// PWM is a fake PWM driver.
type PWM struct {
	mutex     sync.Mutex
	Enabled   bool
	Frequency float64
	DutyCycle float64
	Calls     int
	closed    bool
}

var _ pins.PwmDriver = &PWM{}

func (p *PWM) SetEnabled(enabled bool, frequency, dutyCycle float64) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.Calls++
	p.Enabled = enabled
	if enabled {
		p.Frequency, p.DutyCycle = frequency, dutyCycle
	}
	return nil
}

func (p *PWM) SetValues(frequency, dutyCycle float64) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.Calls++
	p.Frequency, p.DutyCycle = frequency, dutyCycle
	return nil
}

func (p *PWM) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.closed = true
	return nil
}

// Analog is a fake analog driver.
type Analog struct {
	mutex   sync.Mutex
	Volts   float64
	Mode    pins.DriveMode
	Writes  int
	ReadErr error
}

var _ pins.AnalogDriver = &Analog{}

func (a *Analog) MaxVoltage() float64 { return pins.MaxVoltage }

func (a *Analog) SetDriveMode(mode pins.DriveMode) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.Mode = mode
	return nil
}

func (a *Analog) ReadVoltage() (float64, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.Volts, a.ReadErr
}

func (a *Analog) WriteVoltage(v float64) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.Volts = v
	a.Writes++
	return nil
}

func (a *Analog) Close() error { return nil }
