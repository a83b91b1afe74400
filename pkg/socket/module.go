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

package socket

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/binkynet/Gadgeteer/model"
)

// Module is anything composed on top of one or more sockets.
type Module interface {
	// Close releases all interfaces of the module.
	Close() error
}

// ModuleDefinition describes how to build a module.
type ModuleDefinition struct {
	Name         string
	Manufacturer string
	// Number of sockets the module must be plugged into
	RequiredSockets int
	// Create builds the module on the given sockets.
	Create func(ctx context.Context, sockets []Socket) (Module, error)
}

// CreateModule builds a module from its definition, checking
// the number of sockets first.
func CreateModule(ctx context.Context, def ModuleDefinition, sockets ...Socket) (Module, error) {
	if len(sockets) != def.RequiredSockets {
		return nil, model.InvalidArgument("module %s requires %d sockets, got %d", def.Name, def.RequiredSockets, len(sockets))
	}
	if def.Create == nil {
		return nil, errors.Wrapf(model.InvalidModuleDefinitionError, "module %s has no constructor", def.Name)
	}
	m, err := def.Create(ctx, sockets)
	if err != nil {
		return nil, maskAny(err)
	}
	return m, nil
}

// Provider is a module (typically a mainboard) that provides sockets.
type Provider interface {
	// ProvidedSocket returns the socket with given number.
	ProvidedSocket(number int) (Socket, error)
	// ProvidedSockets returns all provided sockets ordered by number.
	ProvidedSockets() []Socket
	// SetDebugLED switches the debug LED of the provider.
	SetDebugLED(on bool) error
}

// Set stores sockets by number.
type Set struct {
	mutex   sync.RWMutex
	sockets map[int]Socket
}

// Add a socket. A socket with the same number is an error.
func (set *Set) Add(s Socket) error {
	set.mutex.Lock()
	defer set.mutex.Unlock()
	if set.sockets == nil {
		set.sockets = make(map[int]Socket)
	}
	if _, found := set.sockets[s.Number()]; found {
		return model.InvalidArgument("socket %d already exists", s.Number())
	}
	set.sockets[s.Number()] = s
	return nil
}

// Get the socket with given number.
func (set *Set) Get(number int) (Socket, error) {
	set.mutex.RLock()
	defer set.mutex.RUnlock()
	s, found := set.sockets[number]
	if !found {
		return nil, model.InvalidArgument("socket %d does not exist", number)
	}
	return s, nil
}

// All returns all sockets ordered by number.
func (set *Set) All() []Socket {
	set.mutex.RLock()
	defer set.mutex.RUnlock()
	result := make([]Socket, 0, len(set.sockets))
	for _, s := range set.sockets {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number() < result[j].Number() })
	return result
}
