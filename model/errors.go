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
	"github.com/pkg/errors"
)

var (
	// ValidationError is returned when a configuration is invalid.
	ValidationError = errors.New("validation failed")
	// UnsupportedSocketTypeError is returned when a socket does not have a requested capability.
	UnsupportedSocketTypeError = errors.New("unsupported socket type")
	// UnsupportedPinModeError is returned when neither a native pin nor a creator
	// can serve a requested pin position.
	UnsupportedPinModeError = errors.New("unsupported pin mode")
	// NotSupportedError is returned when an operation is structurally impossible
	// for the backing implementation.
	NotSupportedError = errors.New("not supported")
	// InvalidArgumentError is returned for malformed arguments (nil buffers etc).
	InvalidArgumentError = errors.New("invalid argument")
	// ArgumentOutOfRangeError is returned for pin, channel or value range violations.
	ArgumentOutOfRangeError = errors.New("argument out of range")
	// InvalidModuleDefinitionError is returned when a module is composed incorrectly.
	InvalidModuleDefinitionError = errors.New("invalid module definition")
	// SocketInterfaceCreationError is returned when a native interface cannot be opened.
	SocketInterfaceCreationError = errors.New("socket interface creation failed")

	IsValidation              = isErrorFunc(ValidationError)
	IsUnsupportedSocketType   = isErrorFunc(UnsupportedSocketTypeError)
	IsUnsupportedPinMode      = isErrorFunc(UnsupportedPinModeError)
	IsNotSupported            = isErrorFunc(NotSupportedError)
	IsInvalidArgument         = isErrorFunc(InvalidArgumentError)
	IsArgumentOutOfRange      = isErrorFunc(ArgumentOutOfRangeError)
	IsInvalidModuleDefinition = isErrorFunc(InvalidModuleDefinitionError)
	IsSocketInterfaceCreation = isErrorFunc(SocketInterfaceCreationError)

	maskAny = errors.WithStack
)

// InvalidArgument returns an InvalidArgumentError with the given message.
func InvalidArgument(msg string, args ...interface{}) error {
	return errors.Wrapf(InvalidArgumentError, msg, args...)
}

// OutOfRange returns an ArgumentOutOfRangeError with the given message.
func OutOfRange(msg string, args ...interface{}) error {
	return errors.Wrapf(ArgumentOutOfRangeError, msg, args...)
}

// NotSupported returns a NotSupportedError with the given message.
func NotSupported(msg string, args ...interface{}) error {
	return errors.Wrapf(NotSupportedError, msg, args...)
}

func isErrorFunc(typeOfError error) func(err error) bool {
	return func(err error) bool {
		return errors.Cause(err) == typeOfError
	}
}
