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

package boards

import (
	"github.com/binkynet/Gadgeteer/pkg/indirect"
	"github.com/binkynet/Gadgeteer/pkg/socket"
)

// Expander numbers of the FEZ Cream (0 is native).
const (
	fezCreamChip1 = 1
	fezCreamChip2 = 2
)

// socket -> socket pin -> expander line
var fezCreamGpioMap = map[int]map[socket.PinNumber]indirect.Channel{
	1: {
		socket.Pin6: {Chip: fezCreamChip2, Pin: 7},
	},
	2: {
		socket.Pin3: {Chip: fezCreamChip2, Pin: 5},
		socket.Pin6: {Chip: fezCreamChip2, Pin: 6},
	},
	4: {
		socket.Pin4: {Chip: fezCreamChip2, Pin: 0},
		socket.Pin5: {Chip: fezCreamChip2, Pin: 17},
		socket.Pin6: {Chip: fezCreamChip2, Pin: 1},
		socket.Pin7: {Chip: fezCreamChip2, Pin: 4},
		socket.Pin8: {Chip: fezCreamChip2, Pin: 2},
		socket.Pin9: {Chip: fezCreamChip2, Pin: 3},
	},
	5: {
		socket.Pin4: {Chip: fezCreamChip2, Pin: 14},
		socket.Pin6: {Chip: fezCreamChip2, Pin: 16},
	},
	6: {
		socket.Pin4: {Chip: fezCreamChip2, Pin: 13},
		socket.Pin6: {Chip: fezCreamChip2, Pin: 15},
	},
	7: {
		socket.Pin4: {Chip: fezCreamChip2, Pin: 11},
		socket.Pin5: {Chip: fezCreamChip2, Pin: 10},
		socket.Pin6: {Chip: fezCreamChip2, Pin: 12},
		socket.Pin7: {Chip: fezCreamChip1, Pin: 12},
		socket.Pin8: {Chip: fezCreamChip1, Pin: 11},
		socket.Pin9: {Chip: fezCreamChip1, Pin: 10},
	},
	8: {
		socket.Pin4: {Chip: fezCreamChip1, Pin: 0},
		socket.Pin5: {Chip: fezCreamChip1, Pin: 16},
		socket.Pin6: {Chip: fezCreamChip1, Pin: 1},
		socket.Pin7: {Chip: fezCreamChip1, Pin: 15},
		socket.Pin8: {Chip: fezCreamChip1, Pin: 14},
		socket.Pin9: {Chip: fezCreamChip1, Pin: 13},
	},
	9: {
		socket.Pin6: {Chip: fezCreamChip1, Pin: 17},
	},
}

// socket -> socket pin -> ADC channel
var fezCreamAnalogMap = map[int]map[socket.PinNumber]int{
	5: {socket.Pin3: 4, socket.Pin4: 5, socket.Pin5: 3},
	6: {socket.Pin3: 2, socket.Pin4: 0, socket.Pin5: 1},
}

// socket -> socket pin -> PWM channel
var fezCreamPwmMap = map[int]map[socket.PinNumber]int{
	7: {socket.Pin7: 2, socket.Pin8: 1, socket.Pin9: 0},
	8: {socket.Pin7: 3, socket.Pin8: 4, socket.Pin9: 5},
}

var fezCreamAnalogShared = indirect.NewSharedAnalog(map[int]indirect.Channel{
	4: {Chip: 0, Pin: 12},
	5: {Chip: fezCreamChip2, Pin: 14},
	2: {Chip: 0, Pin: 16},
	0: {Chip: fezCreamChip2, Pin: 13},
})

var fezCreamPwmShared = indirect.NewSharedPWM(map[int]indirect.PWMLines{
	2: {Input: indirect.Channel{Chip: fezCreamChip1, Pin: 12}, Enable: indirect.Channel{Chip: fezCreamChip1, Pin: 5}},
	1: {Input: indirect.Channel{Chip: fezCreamChip1, Pin: 11}, Enable: indirect.Channel{Chip: fezCreamChip1, Pin: 6}},
	0: {Input: indirect.Channel{Chip: fezCreamChip1, Pin: 10}, Enable: indirect.Channel{Chip: fezCreamChip1, Pin: 7}},
	3: {Input: indirect.Channel{Chip: fezCreamChip1, Pin: 15}, Enable: indirect.Channel{Chip: fezCreamChip1, Pin: 2}},
	4: {Input: indirect.Channel{Chip: fezCreamChip1, Pin: 14}, Enable: indirect.Channel{Chip: fezCreamChip1, Pin: 3}},
	5: {Input: indirect.Channel{Chip: fezCreamChip1, Pin: 13}, Enable: indirect.Channel{Chip: fezCreamChip1, Pin: 4}},
})

// fezCreamSocket is the static description of a socket.
type fezCreamSocket struct {
	number     int
	types      []socket.Type
	nativePins map[socket.PinNumber]int
	i2c        string
	spi        string
	serial     string
	digital    bool
	analog     bool
	pwm        bool
}

var fezCreamSockets = []fezCreamSocket{
	{number: 1, types: []socket.Type{socket.TypeI}, nativePins: map[socket.PinNumber]int{socket.Pin3: 18}, i2c: "I2C1", digital: true},
	{number: 2, types: []socket.Type{socket.TypeU}, serial: "COM1", digital: true},
	{number: 3, types: []socket.Type{socket.TypeS, socket.TypeX}, nativePins: map[socket.PinNumber]int{socket.Pin3: 24, socket.Pin4: 25, socket.Pin5: 13}, spi: "SPI0"},
	{number: 4, types: []socket.Type{socket.TypeY}, nativePins: map[socket.PinNumber]int{socket.Pin3: 6}, digital: true},
	{number: 5, types: []socket.Type{socket.TypeA}, nativePins: map[socket.PinNumber]int{socket.Pin3: 12}, digital: true, analog: true},
	{number: 6, types: []socket.Type{socket.TypeA}, nativePins: map[socket.PinNumber]int{socket.Pin3: 16}, digital: true, analog: true},
	{number: 7, types: []socket.Type{socket.TypeP, socket.TypeY}, nativePins: map[socket.PinNumber]int{socket.Pin3: 5}, digital: true, pwm: true},
	{number: 8, types: []socket.Type{socket.TypeP, socket.TypeY}, nativePins: map[socket.PinNumber]int{socket.Pin3: 27}, digital: true, pwm: true},
	{number: 9, types: []socket.Type{socket.TypeI}, nativePins: map[socket.PinNumber]int{socket.Pin3: 23}, i2c: "I2C1", digital: true},
}
