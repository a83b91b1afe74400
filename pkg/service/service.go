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

package service

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	aerr "github.com/ewoutp/go-aggregate-error"
	pubsub "github.com/mattn/go-pubsub"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/boards"
	"github.com/binkynet/Gadgeteer/pkg/modules"
	"github.com/binkynet/Gadgeteer/pkg/service/bridge"
	"github.com/binkynet/Gadgeteer/pkg/service/util"
	"github.com/binkynet/Gadgeteer/pkg/socket"
)

var (
	maskAny = errors.WithStack
)

// Service runs a mainboard with the modules plugged into it.
type Service interface {
	// Run the worker until the given context is cancelled.
	Run(ctx context.Context) error
	// Healthy returns true once the board and all modules are up.
	Healthy() bool
	// Sockets describes the sockets of the board.
	Sockets() []socket.Info
	// Modules returns the status of all configured modules.
	Modules() []ModuleStatus
	// SubscribeReadings calls cb for every reading taken.
	// Calls are made from a separate goroutine.
	SubscribeReadings(cb func(ReadingEvent)) (cancel func())
	// DetectI2CAddresses scans the given native I2C controller for responding addresses.
	DetectI2CAddresses(ctx context.Context, deviceID string) ([]byte, error)
}

// BoardReadingsID is the module ID of readings taken from sensors on the board itself.
const BoardReadingsID = "board"

// ReadingEvent is a single reading of a module.
type ReadingEvent struct {
	ModuleID string
	modules.Reading
	Time time.Time
}

// ModuleStatus describes a configured module.
type ModuleStatus struct {
	ID           string            `json:"id"`
	Type         model.ModuleType  `json:"type"`
	Sockets      []int             `json:"sockets"`
	Name         string            `json:"name,omitempty"`
	Manufacturer string            `json:"manufacturer,omitempty"`
	Error        string            `json:"error,omitempty"`
	Readings     []modules.Reading `json:"readings,omitempty"`
	LastReading  time.Time         `json:"last_reading,omitempty"`
}

type Config struct {
	model.WorkerConfiguration
	ProgramVersion string
}

type Dependencies struct {
	Logger zerolog.Logger
	Bridge bridge.API
}

type service struct {
	Config
	Dependencies

	readings    *pubsub.PubSub
	activeCount uint32

	subscriberMutex sync.Mutex
	subscribers     map[uint64]func(ReadingEvent)
	lastSubscriber  uint64

	mutex   sync.Mutex
	board   boards.Board
	modules map[string]*moduleEntry
	healthy bool
}

type moduleEntry struct {
	binding model.ModuleBinding
	module  socket.Module
	status  ModuleStatus
}

// NewService validates the configuration and prepares a service.
func NewService(conf Config, deps Dependencies) (Service, error) {
	if err := conf.Validate(); err != nil {
		return nil, maskAny(err)
	}
	if deps.Bridge == nil {
		return nil, model.InvalidArgument("bridge is required")
	}
	if conf.PollInterval == 0 {
		conf.PollInterval = model.DefaultPollInterval
	}
	deps.Logger = deps.Logger.With().Str("component", "service").Logger()
	s := &service{
		Config:       conf,
		Dependencies: deps,
		readings:     pubsub.New(),
		subscribers:  make(map[uint64]func(ReadingEvent)),
		modules:      make(map[string]*moduleEntry),
	}
	s.readings.Sub(s.dispatchReading)
	return s, nil
}

func (s *service) Run(ctx context.Context) error {
	log := s.Logger
	defer s.Bridge.Close()

	s.Bridge.BlinkGreenLED(time.Millisecond * 250)
	s.Bridge.BlinkRedLED(time.Millisecond * 250)

	board, err := boards.New(ctx, s.Board.Type, s.Bridge, boards.Dependencies{
		Log:      log,
		OnActive: s.onActive,
	})
	if err != nil {
		log.Error().Err(err).Str("board", string(s.Board.Type)).Msg("Failed to initialize board")
		s.Bridge.SetRedLED(true)
		return maskAny(err)
	}
	log.Info().
		Str("board", board.Name()).
		Int("sockets", len(board.ProvidedSockets())).
		Msg("Initialized board")
	s.mutex.Lock()
	s.board = board
	s.mutex.Unlock()

	failed := s.createModules(ctx, board)
	s.mutex.Lock()
	s.healthy = failed == 0
	s.mutex.Unlock()
	s.Bridge.SetGreenLED(true)
	s.Bridge.SetRedLED(failed > 0)

	g, lctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.runActiveNotify(lctx) })
	g.Go(func() error {
		return util.UntilCanceled(lctx, log, "polling modules", s.PollInterval, func() error {
			return s.poll(lctx)
		})
	})
	runErr := g.Wait()

	if err := s.close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close modules")
	}
	return runErr
}

// createModules creates all configured modules and returns the number of failures.
func (s *service) createModules(ctx context.Context, board boards.Board) int {
	failed := 0
	for _, binding := range s.Config.Modules {
		log := s.Logger.With().Str("module", binding.ID).Logger()
		entry := &moduleEntry{
			binding: binding,
			status: ModuleStatus{
				ID:      binding.ID,
				Type:    binding.Type,
				Sockets: binding.Sockets,
			},
		}
		if def, err := modules.Definition(binding.Type); err == nil {
			entry.status.Name = def.Name
			entry.status.Manufacturer = def.Manufacturer
		}
		m, err := s.createModule(ctx, board, binding)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to create module")
			entry.status.Error = err.Error()
			modulesFailedTotal.Inc()
			failed++
		} else {
			log.Info().Ints("sockets", binding.Sockets).Msg("Created module")
			entry.module = m
			modulesCreatedTotal.Inc()
			s.watchModule(binding.ID, m)
		}
		s.mutex.Lock()
		s.modules[binding.ID] = entry
		s.mutex.Unlock()
	}
	return failed
}

func (s *service) createModule(ctx context.Context, board boards.Board, binding model.ModuleBinding) (socket.Module, error) {
	sockets := make([]socket.Socket, 0, len(binding.Sockets))
	for _, nr := range binding.Sockets {
		sock, err := board.ProvidedSocket(nr)
		if err != nil {
			return nil, maskAny(err)
		}
		sockets = append(sockets, sock)
	}
	m, err := modules.Create(ctx, binding.Type, sockets...)
	if err != nil {
		return nil, maskAny(err)
	}
	return m, nil
}

// watchModule publishes event driven readings of modules that have them.
func (s *service) watchModule(id string, m socket.Module) {
	if b, ok := m.(*modules.Button); ok {
		_, err := b.Subscribe(func(pressed bool) {
			s.onActive()
			s.publish(id, modules.Reading{Quantity: "pressed", Value: boolValue(pressed)})
		})
		if err != nil {
			s.Logger.Warn().Err(err).Str("module", id).Msg("Failed to subscribe to button")
		}
	}
}

// poll takes readings from all sensor modules.
func (s *service) poll(ctx context.Context) error {
	s.mutex.Lock()
	entries := make([]*moduleEntry, 0, len(s.modules))
	for _, e := range s.modules {
		entries = append(entries, e)
	}
	s.mutex.Unlock()

	var ae aerr.AggregateError
	for _, e := range entries {
		sensor, ok := e.module.(modules.Sensor)
		if !ok {
			continue
		}
		readings, err := sensor.Readings(ctx)
		now := time.Now()
		s.mutex.Lock()
		if err != nil {
			e.status.Error = err.Error()
		} else {
			e.status.Error = ""
			e.status.Readings = readings
			e.status.LastReading = now
		}
		s.mutex.Unlock()
		if err != nil {
			pollErrorCounters.WithLabelValues(e.binding.ID).Inc()
			ae.Add(errors.Wrapf(err, "module %s", e.binding.ID))
			continue
		}
		pollCounters.WithLabelValues(e.binding.ID).Inc()
		for _, r := range readings {
			s.publish(e.binding.ID, r)
		}
	}
	if err := s.pollBoard(ctx); err != nil {
		ae.Add(err)
	}
	return ae.AsError()
}

// pollBoard takes readings from the onboard sensors of boards that have them.
// They are published under BoardReadingsID.
func (s *service) pollBoard(ctx context.Context) error {
	s.mutex.Lock()
	sensor, ok := s.board.(modules.Sensor)
	s.mutex.Unlock()
	if !ok {
		return nil
	}
	readings, err := sensor.Readings(ctx)
	if err != nil {
		pollErrorCounters.WithLabelValues(BoardReadingsID).Inc()
		return errors.Wrap(err, "board")
	}
	pollCounters.WithLabelValues(BoardReadingsID).Inc()
	for _, r := range readings {
		s.publish(BoardReadingsID, r)
	}
	return nil
}

func (s *service) publish(moduleID string, r modules.Reading) {
	s.readings.Pub(ReadingEvent{ModuleID: moduleID, Reading: r, Time: time.Now().UTC()})
}

// SubscribeReadings registers cb under its own id, so cancelling one
// subscription never removes another.
func (s *service) SubscribeReadings(cb func(ReadingEvent)) func() {
	s.subscriberMutex.Lock()
	defer s.subscriberMutex.Unlock()
	s.lastSubscriber++
	id := s.lastSubscriber
	s.subscribers[id] = cb
	return func() {
		s.subscriberMutex.Lock()
		defer s.subscriberMutex.Unlock()
		delete(s.subscribers, id)
	}
}

// dispatchReading is the single pubsub subscriber; it fans out to all subscriptions.
func (s *service) dispatchReading(ev ReadingEvent) {
	s.subscriberMutex.Lock()
	cbs := make([]func(ReadingEvent), 0, len(s.subscribers))
	for _, cb := range s.subscribers {
		cbs = append(cbs, cb)
	}
	s.subscriberMutex.Unlock()
	for _, cb := range cbs {
		cb(ev)
	}
}

func (s *service) Healthy() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.healthy
}

func (s *service) Sockets() []socket.Info {
	s.mutex.Lock()
	board := s.board
	s.mutex.Unlock()
	if board == nil {
		return nil
	}
	sockets := board.ProvidedSockets()
	result := make([]socket.Info, 0, len(sockets))
	for _, sock := range sockets {
		result = append(result, sock.Info())
	}
	return result
}

func (s *service) Modules() []ModuleStatus {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	result := make([]ModuleStatus, 0, len(s.modules))
	for _, e := range s.modules {
		result = append(result, e.status)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (s *service) DetectI2CAddresses(ctx context.Context, deviceID string) ([]byte, error) {
	addrs, err := s.Bridge.DetectI2CAddresses(ctx, deviceID)
	if err != nil {
		return nil, maskAny(err)
	}
	return addrs, nil
}

func (s *service) onActive() {
	atomic.AddUint32(&s.activeCount, 1)
}

// runActiveNotify blinks the red LED while there is bus activity.
func (s *service) runActiveNotify(ctx context.Context) error {
	lastActiveCount := uint32(0)
	count := 0
	for {
		select {
		case <-ctx.Done():
			// Context canceled
			return nil
		case <-time.After(time.Second / 10):
			newActiveCount := atomic.LoadUint32(&s.activeCount)
			if newActiveCount != lastActiveCount {
				lastActiveCount = newActiveCount
				s.Bridge.BlinkRedLED(time.Second / 10)
				count = 0
			} else if count < 20 {
				count++
			} else {
				count = 0
				s.Bridge.SetRedLED(false)
			}
		}
	}
}

// close all modules and then the board.
func (s *service) close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var ae aerr.AggregateError
	for id, e := range s.modules {
		if e.module != nil {
			if err := e.module.Close(); err != nil {
				ae.Add(errors.Wrapf(err, "module %s", id))
			}
		}
		delete(s.modules, id)
	}
	if s.board != nil {
		if err := s.board.Close(); err != nil {
			ae.Add(errors.Wrap(err, "board"))
		}
		s.board = nil
	}
	s.healthy = false
	return ae.AsError()
}

func boolValue(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
