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
	"github.com/binkynet/Gadgeteer/pkg/metrics"
)

const (
	subSystem = "telemetry"
)

var (
	// Total number of published readings per module ID
	publishCounters = metrics.MustRegisterCounterVec(subSystem,
		"publish_total",
		"Total number of published readings per module ID",
		"id")
	// Total number of readings that could not be published per module ID
	publishErrorCounters = metrics.MustRegisterCounterVec(subSystem,
		"publish_error_total",
		"Total number of readings that could not be published per module ID",
		"id")
)
