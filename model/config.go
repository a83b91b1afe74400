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

package model

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPollInterval is the interval between module readings when none is configured.
	DefaultPollInterval = time.Second
	// DefaultTopicPrefix is the MQTT topic prefix used when none is configured.
	DefaultTopicPrefix = "gadgeteer"
)

// WorkerConfiguration holds the configuration of a single worker.
type WorkerConfiguration struct {
	// Mainboard (HAT) the worker is running on
	Board Board `yaml:"board"`
	// Modules plugged into the sockets of the mainboard
	Modules []ModuleBinding `yaml:"modules,omitempty"`
	// Where to send readings to
	Telemetry Telemetry `yaml:"telemetry,omitempty"`
	// Interval between two readings of all modules
	PollInterval time.Duration `yaml:"pollInterval,omitempty"`
}

// Telemetry configures the forwarding of readings.
type Telemetry struct {
	// Address (host:port) of the MQTT broker. Empty disables forwarding.
	Broker string `yaml:"broker,omitempty"`
	// Prefix of all published topics
	TopicPrefix string `yaml:"topicPrefix,omitempty"`
	// MQTT client ID. Generated when empty.
	ClientID string `yaml:"clientID,omitempty"`
}

// LoadConfiguration reads a worker configuration from the YAML file at given path.
func LoadConfiguration(path string) (WorkerConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return WorkerConfiguration{}, maskAny(err)
	}
	return ParseConfiguration(data)
}

// ParseConfiguration parses a worker configuration from YAML and fills in defaults.
func ParseConfiguration(data []byte) (WorkerConfiguration, error) {
	var c WorkerConfiguration
	if err := yaml.Unmarshal(data, &c); err != nil {
		return WorkerConfiguration{}, errors.Wrapf(ValidationError, "invalid YAML: %s", err)
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Telemetry.TopicPrefix == "" {
		c.Telemetry.TopicPrefix = DefaultTopicPrefix
	}
	return c, nil
}

// ModuleByID returns the module binding with given ID.
// Return false if not found.
func (c WorkerConfiguration) ModuleByID(id string) (ModuleBinding, bool) {
	for _, m := range c.Modules {
		if m.ID == id {
			return m, true
		}
	}
	return ModuleBinding{}, false
}

// Validate the given configuration, returning nil on ok,
// or an error upon validation issues.
func (c WorkerConfiguration) Validate() error {
	if err := c.Board.Validate(); err != nil {
		return maskAny(err)
	}
	if c.PollInterval < 0 {
		return errors.Wrapf(ValidationError, "pollInterval must be positive, got %s", c.PollInterval)
	}
	ids := make(map[string]struct{})
	used := make(map[int]string)
	for _, m := range c.Modules {
		if err := m.Validate(); err != nil {
			return maskAny(err)
		}
		if _, found := ids[m.ID]; found {
			return errors.Wrapf(ValidationError, "duplicate module ID '%s'", m.ID)
		}
		ids[m.ID] = struct{}{}
		for _, s := range m.Sockets {
			if other, found := used[s]; found {
				return errors.Wrapf(ValidationError, "socket %d is used by module '%s' and '%s'", s, other, m.ID)
			}
			used[s] = m.ID
		}
	}
	return nil
}
