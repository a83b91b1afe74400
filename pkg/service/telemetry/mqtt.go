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
	"context"
	"fmt"
	"sync"
	"time"

	mqttapi "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/Gadgeteer/pkg/service/util"
)

const (
	mqttPublishTimeout = time.Millisecond * 200
	mqttConnectCheck   = time.Second * 2
)

var (
	// NotConnectedError is returned when publishing while there is no broker connection.
	NotConnectedError = errors.New("not connected")
)

// MQTTPublisher publishes to an MQTT broker.
type MQTTPublisher struct {
	log    zerolog.Logger
	mutex  sync.Mutex
	client mqttapi.Client
}

var _ Publisher = &MQTTPublisher{}

// DefaultClientID returns a unique MQTT client id.
func DefaultClientID() string {
	return fmt.Sprintf("gadgeteer-%s", uuid.NewString())
}

// NewMQTTPublisher prepares a client for the broker at given host:port.
// It connects once Run is called.
func NewMQTTPublisher(log zerolog.Logger, brokerAddress, clientID string) *MQTTPublisher {
	if clientID == "" {
		clientID = DefaultClientID()
	}
	opts := mqttapi.NewClientOptions().
		AddBroker("tcp://" + brokerAddress).
		SetClientID(clientID)
	opts.SetKeepAlive(2 * time.Second)
	opts.SetPingTimeout(1 * time.Second)
	opts.SetOrderMatters(false)
	opts.SetAutoReconnect(true)
	return &MQTTPublisher{
		log:    log.With().Str("component", "mqtt").Str("broker", brokerAddress).Logger(),
		client: mqttapi.NewClient(opts),
	}
}

// Run keeps the broker connection up until the given context is canceled.
func (p *MQTTPublisher) Run(ctx context.Context) error {
	defer p.client.Disconnect(250)
	return util.UntilCanceled(ctx, p.log, "connecting to MQTT broker", mqttConnectCheck, func() error {
		if p.client.IsConnectionOpen() {
			return nil
		}
		token := p.client.Connect()
		token.Wait()
		if err := token.Error(); err != nil {
			return errors.Wrap(err, "failed to connect to mqtt")
		}
		p.log.Info().Msg("Connected to MQTT broker")
		return nil
	})
}

// Publish the given payload (not retained, QoS 0).
func (p *MQTTPublisher) Publish(topic string, payload []byte) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.client.IsConnectionOpen() {
		return errors.Wrapf(NotConnectedError, "publish to '%s'", topic)
	}
	token := p.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		return errors.Errorf("failed to deliver to '%s' in time", topic)
	}
	return errors.WithStack(token.Error())
}
