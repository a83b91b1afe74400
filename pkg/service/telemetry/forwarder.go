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

// Package telemetry forwards module readings to a message broker.
package telemetry

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/binkynet/Gadgeteer/pkg/service"
)

// Publisher sends a payload to a topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Message is the payload of a published reading.
type Message struct {
	Value float64   `json:"value"`
	Unit  string    `json:"unit,omitempty"`
	Time  time.Time `json:"time"`
}

// Forwarder publishes readings as <prefix>/<module-id>/<quantity>.
type Forwarder struct {
	log       zerolog.Logger
	prefix    string
	publisher Publisher
}

// NewForwarder creates a forwarder using the given topic prefix.
func NewForwarder(log zerolog.Logger, prefix string, publisher Publisher) *Forwarder {
	return &Forwarder{
		log:       log.With().Str("component", "telemetry").Logger(),
		prefix:    strings.TrimSuffix(prefix, "/"),
		publisher: publisher,
	}
}

// Topic returns the topic for a reading of a module.
func (f *Forwarder) Topic(moduleID, quantity string) string {
	return strings.ToLower(f.prefix + "/" + moduleID + "/" + quantity)
}

// Forward publishes a single reading. Failures are logged and counted.
func (f *Forwarder) Forward(ev service.ReadingEvent) {
	topic := f.Topic(ev.ModuleID, ev.Quantity)
	payload, err := json.Marshal(Message{Value: ev.Value, Unit: ev.Unit, Time: ev.Time})
	if err != nil {
		f.log.Error().Err(err).Str("topic", topic).Msg("Failed to encode reading")
		return
	}
	if err := f.publisher.Publish(topic, payload); err != nil {
		publishErrorCounters.WithLabelValues(ev.ModuleID).Inc()
		f.log.Debug().Err(err).Str("topic", topic).Msg("Failed to publish reading")
		return
	}
	publishCounters.WithLabelValues(ev.ModuleID).Inc()
}
