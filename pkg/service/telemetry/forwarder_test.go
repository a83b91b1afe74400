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

package telemetry

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/Gadgeteer/pkg/modules"
	"github.com/binkynet/Gadgeteer/pkg/service"
)

type published struct {
	topic   string
	payload []byte
}

type fakePublisher struct {
	messages []published
	err      error
}

func (p *fakePublisher) Publish(topic string, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, published{topic, payload})
	return nil
}

func TestForward(t *testing.T) {
	pub := &fakePublisher{}
	f := NewForwarder(zerolog.Nop(), "Gadgeteer/", pub)
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.Forward(service.ReadingEvent{
		ModuleID: "Kitchen",
		Reading:  modules.Reading{Quantity: "temperature", Value: 21.5, Unit: "C"},
		Time:     when,
	})
	require.Len(t, pub.messages, 1)
	assert.Equal(t, "gadgeteer/kitchen/temperature", pub.messages[0].topic)

	var msg Message
	require.NoError(t, json.Unmarshal(pub.messages[0].payload, &msg))
	assert.Equal(t, 21.5, msg.Value)
	assert.Equal(t, "C", msg.Unit)
	assert.True(t, when.Equal(msg.Time))
	assert.True(t, strings.Contains(string(pub.messages[0].payload), `"time":"2024-05-01T12:00:00Z"`))
}

func TestForwardPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("offline")}
	f := NewForwarder(zerolog.Nop(), "gadgeteer", pub)
	f.Forward(service.ReadingEvent{ModuleID: "btn", Reading: modules.Reading{Quantity: "pressed", Value: 1}})
	assert.Empty(t, pub.messages)
}

func TestDefaultClientID(t *testing.T) {
	a, b := DefaultClientID(), DefaultClientID()
	assert.True(t, strings.HasPrefix(a, "gadgeteer-"))
	assert.NotEqual(t, a, b)
}

func TestMQTTPublisherNotConnected(t *testing.T) {
	p := NewMQTTPublisher(zerolog.Nop(), "localhost:1883", "")
	err := p.Publish("gadgeteer/x/y", []byte("{}"))
	assert.Equal(t, NotConnectedError, errors.Cause(err))
}
