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
package logging

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/binkynet/Gadgeteer/pkg/metrics"
)

// Publisher sends a payload to a topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// MQTTWriter is a log writer that forwards log lines to a broker topic.
// Nothing is sent until a destination is set and the writer is enabled.
type MQTTWriter interface {
	io.Writer
	Enable(enable bool)
	SetDestination(topic string, publisher Publisher)
}

const (
	logQueueSize    = 512
	destinationPoll = time.Second
)

var (
	droppedLinesTotal = metrics.MustRegisterCounter("logging", "dropped_lines_total", "Number of log lines dropped because the broker could not keep up")
	publishErrorTotal = metrics.MustRegisterCounter("logging", "publish_error_total", "Number of log lines that failed to publish")
)

type logForwarder struct {
	lines chan []byte

	mutex     sync.Mutex
	enabled   bool
	topic     string
	publisher Publisher
}

// NewMQTTWriter creates a writer that publishes until the given context is canceled.
// When the queue is full the oldest lines are dropped.
func NewMQTTWriter(ctx context.Context) MQTTWriter {
	f := &logForwarder{
		lines: make(chan []byte, logQueueSize),
	}
	go f.run(ctx)
	return f
}

func (f *logForwarder) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	// zerolog reuses its buffer
	line := append([]byte(nil), p...)
	for {
		select {
		case f.lines <- line:
			return len(p), nil
		default:
		}
		select {
		case <-f.lines:
			droppedLinesTotal.Inc()
		default:
		}
	}
}

func (f *logForwarder) Enable(enable bool) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.enabled = enable
}

func (f *logForwarder) SetDestination(topic string, publisher Publisher) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.topic, f.publisher = topic, publisher
}

// destination returns the publisher and topic, or nil when lines must be held.
func (f *logForwarder) destination() (Publisher, string) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if !f.enabled || f.topic == "" {
		return nil, ""
	}
	return f.publisher, f.topic
}

func (f *logForwarder) run(ctx context.Context) {
	for {
		publisher, topic := f.destination()
		if publisher == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(destinationPoll):
				continue
			}
		}
		select {
		case <-ctx.Done():
			return
		case line := <-f.lines:
			// Publishing our own failure would loop back into this writer.
			if err := publisher.Publish(topic, line); err != nil {
				publishErrorTotal.Inc()
			}
		case <-time.After(destinationPoll):
		}
	}
}
