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

package bus

import (
	"github.com/binkynet/Gadgeteer/pkg/metrics"
)

const (
	subSystem = "bus"
)

var (
	// Total number of bus transfers
	transferCounters = metrics.MustRegisterCounterVec(subSystem,
		"transfer_total",
		"Total number of bus transfers",
		"kind", "op")
	// Total number of failed bus transfers
	transferErrorCounters = metrics.MustRegisterCounterVec(subSystem,
		"transfer_error_total",
		"Total number of failed bus transfers",
		"kind", "op")
)

// RecordTransfer counts a transfer of the given kind ("softi2c", "i2c", ...)
// and returns the given error unchanged.
func RecordTransfer(kind, op string, err error) error {
	transferCounters.WithLabelValues(kind, op).Inc()
	if err != nil {
		transferErrorCounters.WithLabelValues(kind, op).Inc()
	}
	return err
}
