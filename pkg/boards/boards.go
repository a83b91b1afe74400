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

// Package boards contains the mainboards (HATs) that provide sockets.
package boards

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/socket"
)

var (
	maskAny = errors.WithStack
)

// Board is a mainboard providing sockets.
type Board interface {
	socket.Provider
	// Name of the board
	Name() string
	// Manufacturer of the board
	Manufacturer() string
	// Close all chips of the board.
	Close() error
}

// Dependencies of all boards.
type Dependencies struct {
	Log zerolog.Logger
	// OnActive is called before every transfer to a chip of the board (optional).
	OnActive func()
}

// New creates a board of given type on the given host.
func New(ctx context.Context, boardType model.BoardType, provider socket.NativeProvider, deps Dependencies) (Board, error) {
	switch boardType {
	case model.BoardTypeFEZCream:
		b, err := NewFEZCream(ctx, provider, deps)
		if err != nil {
			return nil, maskAny(err)
		}
		return b, nil
	case model.BoardTypeFEZHAT:
		b, err := NewFEZHAT(ctx, provider, deps)
		if err != nil {
			return nil, maskAny(err)
		}
		return b, nil
	case model.BoardTypeFEZUtility:
		b, err := NewFEZUtility(ctx, provider, deps)
		if err != nil {
			return nil, maskAny(err)
		}
		return b, nil
	default:
		return nil, errors.Wrapf(model.ValidationError, "unknown board type '%s'", string(boardType))
	}
}
