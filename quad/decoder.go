// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package quad decodes the two phase signals of a quadrature rotary encoder.

package quad

import (
	"fmt"
	"strings"
)

// Mode selects the decode granularity.
type Mode int

const (
	FullStep Mode = iota // One event per complete 4 transition cycle
	HalfStep             // One event per half cycle
)

// Direction is the event emitted by the decoder. The value is also
// the unit increment for the direction.
type Direction int

const (
	None Direction = 0
	CW   Direction = 1
	CCW  Direction = -1
)

// Emit bits carried in the transition table entries.
const (
	emitCW    = 0x10
	emitCCW   = 0x20
	stateMask = 0x0f
)

// Full step states.
const (
	rStart = iota
	rCWFinal
	rCWBegin
	rCWNext
	rCCWBegin
	rCCWFinal
	rCCWNext
)

// Half step states. The start state is shared with full step.
const (
	rCWBeginH = iota + 1
	rCCWBeginH
	rStartM
	rCWBeginM
	rCCWBeginM
)

// Each row is a state, and each column is the phase sample (00, 01, 10, 11)
// with bit 0 as phase A and bit 1 as phase B. The entry is the next state,
// with emit bits set when a step completes.
// The detent position is 00, clockwise is 00 -> 10 -> 11 -> 01 -> 00.
// Any transition not part of a valid sequence returns to the start state.
var fullTable = [7][4]uint8{
	rStart:    {rStart, rCCWBegin, rCWBegin, rStart},
	rCWFinal:  {rStart | emitCW, rCWFinal, rStart, rCWNext},
	rCWBegin:  {rStart, rStart, rCWBegin, rCWNext},
	rCWNext:   {rStart, rCWFinal, rCWBegin, rCWNext},
	rCCWBegin: {rStart, rCCWBegin, rStart, rCCWNext},
	rCCWFinal: {rStart | emitCCW, rStart, rCCWFinal, rCCWNext},
	rCCWNext:  {rStart, rCCWBegin, rCCWFinal, rCCWNext},
}

// Half step emits at both 11 (the midpoint) and 00.
var halfTable = [6][4]uint8{
	rStart:     {rStart, rCCWBeginH, rCWBeginH, rStartM},
	rCWBeginH:  {rStart, rStart, rCWBeginH, rStartM | emitCW},
	rCCWBeginH: {rStart, rCCWBeginH, rStart, rStartM | emitCCW},
	rStartM:    {rStart, rCWBeginM, rCCWBeginM, rStartM},
	rCWBeginM:  {rStart | emitCW, rCWBeginM, rStartM, rStartM},
	rCCWBeginM: {rStart | emitCCW, rStartM, rCCWBeginM, rStartM},
}

// Decoder is the quadrature state machine.
type Decoder struct {
	mode  Mode
	table [][4]uint8
	state uint8
}

// NewDecoder creates a Decoder in the start state.
func NewDecoder(m Mode) *Decoder {
	d := new(Decoder)
	d.mode = m
	if m == HalfStep {
		d.table = halfTable[:]
	} else {
		d.table = fullTable[:]
	}
	return d
}

// Mode returns the decode granularity.
func (d *Decoder) Mode() Mode {
	return d.mode
}

// Step moves the state machine using the phase sample, and returns
// the direction if a complete step has been seen.
func (d *Decoder) Step(sample uint8) Direction {
	next := d.table[d.state][sample&3]
	d.state = next & stateMask
	switch next &^ stateMask {
	case emitCW:
		return CW
	case emitCCW:
		return CCW
	}
	return None
}

func (m Mode) String() string {
	if m == HalfStep {
		return "half"
	}
	return "full"
}

// ParseMode converts a name (full or half) to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "full":
		return FullStep, nil
	case "half":
		return HalfStep, nil
	}
	return FullStep, fmt.Errorf("%s: unknown step mode (must be full or half)", s)
}

func (d Direction) String() string {
	switch d {
	case CW:
		return "CW"
	case CCW:
		return "CCW"
	}
	return "none"
}
