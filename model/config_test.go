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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
board:
  type: fezcream
pollInterval: 250ms
telemetry:
  broker: localhost:1883
modules:
  - id: light
    type: lightsense
    sockets: [5]
  - id: button
    type: button
    sockets: [4]
`

func TestParseConfiguration(t *testing.T) {
	c, err := ParseConfiguration([]byte(sampleConfig))
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, BoardTypeFEZCream, c.Board.Type)
	assert.Equal(t, 250*time.Millisecond, c.PollInterval)
	assert.Equal(t, DefaultTopicPrefix, c.Telemetry.TopicPrefix)
	assert.Len(t, c.Modules, 2)

	m, found := c.ModuleByID("button")
	require.True(t, found)
	assert.Equal(t, ModuleTypeButton, m.Type)
	assert.Equal(t, []int{4}, m.Sockets)

	_, found = c.ModuleByID("missing")
	assert.False(t, found)
}

func TestParseConfigurationDefaults(t *testing.T) {
	c, err := ParseConfiguration([]byte("board:\n  type: fezcream\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPollInterval, c.PollInterval)
	assert.Empty(t, c.Telemetry.Broker)
}

func TestBoardTypes(t *testing.T) {
	for _, bt := range []BoardType{BoardTypeFEZCream, BoardTypeFEZHAT, BoardTypeFEZUtility} {
		assert.NoError(t, bt.Validate(), string(bt))
	}
	c, err := ParseConfiguration([]byte("board:\n  type: fezhat\n"))
	require.NoError(t, err)
	assert.Equal(t, BoardTypeFEZHAT, c.Board.Type)
}

func TestValidateRejects(t *testing.T) {
	tests := map[string]WorkerConfiguration{
		"unknown board": {
			Board: Board{Type: "arduino"},
		},
		"unknown module type": {
			Board:   Board{Type: BoardTypeFEZCream},
			Modules: []ModuleBinding{{ID: "x", Type: "toaster", Sockets: []int{1}}},
		},
		"empty module id": {
			Board:   Board{Type: BoardTypeFEZCream},
			Modules: []ModuleBinding{{Type: ModuleTypeButton, Sockets: []int{1}}},
		},
		"no sockets": {
			Board:   Board{Type: BoardTypeFEZCream},
			Modules: []ModuleBinding{{ID: "x", Type: ModuleTypeButton}},
		},
		"duplicate id": {
			Board: Board{Type: BoardTypeFEZCream},
			Modules: []ModuleBinding{
				{ID: "x", Type: ModuleTypeButton, Sockets: []int{1}},
				{ID: "x", Type: ModuleTypeButton, Sockets: []int{2}},
			},
		},
		"socket reused": {
			Board: Board{Type: BoardTypeFEZCream},
			Modules: []ModuleBinding{
				{ID: "a", Type: ModuleTypeButton, Sockets: []int{4}},
				{ID: "b", Type: ModuleTypeLED7C, Sockets: []int{4}},
			},
		},
	}
	for name, c := range tests {
		t.Run(name, func(t *testing.T) {
			err := c.Validate()
			require.Error(t, err)
			assert.True(t, IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestParseConfigurationInvalidYAML(t *testing.T) {
	_, err := ParseConfiguration([]byte("board: [unclosed"))
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}
