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

package service

import (
	"github.com/binkynet/Gadgeteer/pkg/metrics"
)

const (
	subSystem = "service"
)

var (
	// Total number of modules created
	modulesCreatedTotal = metrics.MustRegisterCounter(subSystem,
		"modules_created_total",
		"Total number of modules created")
	// Total number of modules that could not be created
	modulesFailedTotal = metrics.MustRegisterCounter(subSystem,
		"modules_failed_total",
		"Total number of modules that could not be created")
	// Total number of successful module polls per module ID
	pollCounters = metrics.MustRegisterCounterVec(subSystem,
		"poll_total",
		"Total number of successful module polls per ID",
		"id")
	// Total number of failed module polls per module ID
	pollErrorCounters = metrics.MustRegisterCounterVec(subSystem,
		"poll_error_total",
		"Total number of failed module polls per ID",
		"id")
)
