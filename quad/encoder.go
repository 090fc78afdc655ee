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

// Rotary encoder controller.

package quad

import (
	"sync"
)

// Input provides a method to read the current level (0 or 1) of
// a phase line without waiting for a change.
type Input interface {
	Read() (int, error)
}

// Config selects how the encoder is decoded and counted.
type Config struct {
	Mode     Mode
	Invert   bool      // Inputs are active low
	Counting *Counting // nil if raw direction events are returned
}

// Encoder combines the decoder and an optional counter, sampling
// the two phase inputs each time an edge is seen on either input.
// Edge may be called concurrently from separate watchers of each input;
// the decoder and counter state is guarded by a mutex that is held only
// for the sampling and the table lookup.
type Encoder struct {
	a, b    Input
	invert  bool
	mu      sync.Mutex // Guards decoder and counter
	decoder *Decoder
	counter *Counter
}

// NewEncoder creates an Encoder using the inputs for phase A and phase B.
// The inputs are sampled once so that the first edge is decoded
// relative to the actual starting position.
func NewEncoder(a, b Input, c Config) (*Encoder, error) {
	e := new(Encoder)
	e.a = a
	e.b = b
	e.invert = c.Invert
	e.decoder = NewDecoder(c.Mode)
	if c.Counting != nil {
		var err error
		e.counter, err = NewCounter(*c.Counting)
		if err != nil {
			return nil, err
		}
	}
	s, err := e.sample()
	if err != nil {
		return nil, err
	}
	e.decoder.Step(s)
	return e, nil
}

// Edge samples the inputs and runs the decoder.
// If counting, the updated count is returned when a step completes.
// Otherwise the direction of the step (CW or CCW) is returned.
// false is returned if no step has completed.
func (e *Encoder) Edge() (int, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.sample()
	if err != nil {
		return 0, false, err
	}
	v, ok := e.process(s)
	return v, ok, nil
}

// Process runs the decoder using a phase sample that has already been
// read (bit 0 is phase A, bit 1 is phase B). The sample is not inverted.
func (e *Encoder) Process(sample uint8) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.process(sample)
}

// Count returns the current count, or false if the encoder is not counting.
func (e *Encoder) Count() (int, bool) {
	if e.counter == nil {
		return 0, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counter.Value(), true
}

// Set sets the current count, returning false if the encoder is not counting.
func (e *Encoder) Set(v int) bool {
	if e.counter == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.counter.Set(v)
	return true
}

// Counting returns the counter configuration, or false if raw
// direction events are returned.
func (e *Encoder) Counting() (Counting, bool) {
	if e.counter == nil {
		return Counting{}, false
	}
	return e.counter.Config(), true
}

// Mode returns the decode granularity.
func (e *Encoder) Mode() Mode {
	return e.decoder.Mode()
}

func (e *Encoder) process(s uint8) (int, bool) {
	d := e.decoder.Step(s)
	if e.counter != nil {
		return e.counter.Apply(d)
	}
	return int(d), d != None
}

// sample reads both inputs and packs them into a phase sample.
func (e *Encoder) sample() (uint8, error) {
	a, err := e.a.Read()
	if err != nil {
		return 0, err
	}
	b, err := e.b.Read()
	if err != nil {
		return 0, err
	}
	s := uint8(b&1)<<1 | uint8(a&1)
	if e.invert {
		s ^= 3
	}
	return s, nil
}
