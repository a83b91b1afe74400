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

package environment

import (
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/binkynet/Gadgeteer/pkg/service/bridge"
)

// AutoDetectBridgeType returns the Raspberry Pi bridge on ARM hosts
// and the virtual bridge elsewhere.
func AutoDetectBridgeType(log zerolog.Logger) bridge.Type {
	var name unix.Utsname
	if err := unix.Uname(&name); err != nil {
		log.Warn().Err(err).Msg("Uname failed, assuming Raspberry Pi")
		return bridge.TypeRaspberryPi
	}
	return bridgeTypeForMachine(log, unix.ByteSliceToString(name.Machine[:]))
}

func bridgeTypeForMachine(log zerolog.Logger, machine string) bridge.Type {
	machine = strings.TrimSpace(machine)
	if strings.HasPrefix(machine, "arm") || machine == "aarch64" {
		return bridge.TypeRaspberryPi
	}
	log.Info().Str("machine", machine).Msg("No GPIO capable host detected, using virtual bridge")
	return bridge.TypeVirtual
}
