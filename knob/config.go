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

package knob

import (
	"fmt"
	"strconv"

	"github.com/aamcrae/config"

	"github.com/aamcrae/rotary/quad"
)

const defaultDetents = 20

// Indicator types.
const (
	NoIndicator = ""
	SwIndicator = "sw" // Software PWM on a GPIO
	HwIndicator = "hw" // Hardware PWM unit
)

// Configuration data for a knob, read from a configuration file.
type KnobConfig struct {
	Name      string
	Gpio      [2]int // Phase A and phase B inputs
	Invert    bool   // Inputs are active low
	Mode      quad.Mode
	Count     bool // Count steps instead of returning directions
	Counting  quad.Counting
	Detents   int    // Positions in one revolution of the dial
	Indicator string // Type of PWM indicator, if any
	Unit      int    // GPIO or PWM unit of the indicator
}

// Encoder returns the encoder configuration for the knob.
func (kc *KnobConfig) Encoder() quad.Config {
	c := quad.Config{Mode: kc.Mode, Invert: kc.Invert}
	if kc.Count {
		counting := kc.Counting
		c.Counting = &counting
	}
	return c
}

// Config reads and validates a KnobConfig from a config file section.
// Comments must be on separate lines, since the remainder of a line
// is parsed as the arguments.
// Sample config:
//  # name of knob
//  [volume]
//  # GPIOs for phase A and phase B
//  pins=5,6
//  # full (default) or half steps
//  steps=half
//  # inputs are active low (contacts to ground with pull-ups)
//  invert=1
//  # unbounded, wrap or clamp; enables counting
//  range=clamp
//  # lower and upper bounds for wrap and clamp
//  bounds=0,100
//  # reverse the direction of counting
//  reverse=0
//  # positions per revolution for an unbounded dial
//  detents=24
//  # PWM indicator, sw with GPIO or hw with PWM unit
//  indicator=sw,13
func Config(conf *config.Config, name string) (*KnobConfig, error) {
	s := conf.GetSection(name)
	if s == nil {
		return nil, fmt.Errorf("no config for %s", name)
	}
	var err error
	var kc KnobConfig
	kc.Name = name
	kc.Detents = defaultDetents
	n, err := s.Parse("pins", "%d,%d", &kc.Gpio[0], &kc.Gpio[1])
	if err != nil {
		return nil, fmt.Errorf("pins: %v", err)
	}
	if n != 2 {
		return nil, fmt.Errorf("pins: argument count")
	}
	if s.Has("steps") {
		v, err := s.GetArg("steps")
		if err != nil {
			return nil, fmt.Errorf("steps: %v", err)
		}
		if kc.Mode, err = quad.ParseMode(v); err != nil {
			return nil, fmt.Errorf("steps: %v", err)
		}
	}
	if kc.Invert, err = flag(s, "invert"); err != nil {
		return nil, err
	}
	if s.Has("range") {
		v, err := s.GetArg("range")
		if err != nil {
			return nil, fmt.Errorf("range: %v", err)
		}
		kc.Count = true
		if kc.Counting.Range, err = quad.ParseRange(v); err != nil {
			return nil, fmt.Errorf("range: %v", err)
		}
	}
	if s.Has("bounds") {
		n, err := s.Parse("bounds", "%d,%d", &kc.Counting.Lower, &kc.Counting.Upper)
		if err != nil {
			return nil, fmt.Errorf("bounds: %v", err)
		}
		if n != 2 {
			return nil, fmt.Errorf("bounds: argument count")
		}
	} else if kc.Counting.Range != quad.Unbounded {
		return nil, fmt.Errorf("bounds: required for %s range", kc.Counting.Range)
	}
	if kc.Counting.Lower > kc.Counting.Upper {
		return nil, fmt.Errorf("bounds: lower bound %d greater than upper bound %d", kc.Counting.Lower, kc.Counting.Upper)
	}
	if kc.Counting.Reverse, err = flag(s, "reverse"); err != nil {
		return nil, err
	}
	if s.Has("detents") {
		n, err := s.Parse("detents", "%d", &kc.Detents)
		if err != nil {
			return nil, fmt.Errorf("detents: %v", err)
		}
		if n != 1 {
			return nil, fmt.Errorf("detents: argument count")
		}
		if kc.Detents < 1 {
			return nil, fmt.Errorf("detents: %d must be positive", kc.Detents)
		}
	}
	if s.Has("indicator") {
		e := s.Get("indicator")
		if len(e) != 1 || len(e[0].Tokens) != 2 || (e[0].Tokens[0] != SwIndicator && e[0].Tokens[0] != HwIndicator) {
			return nil, fmt.Errorf("indicator: must be sw,GPIO or hw,UNIT")
		}
		kc.Indicator = e[0].Tokens[0]
		if kc.Unit, err = strconv.Atoi(e[0].Tokens[1]); err != nil {
			return nil, fmt.Errorf("indicator: %v", err)
		}
	}
	return &kc, nil
}

// flag parses an optional boolean config entry.
func flag(s *config.Section, key string) (bool, error) {
	if !s.Has(key) {
		return false, nil
	}
	v, err := s.GetArg(key)
	if err != nil {
		return false, fmt.Errorf("%s: %v", key, err)
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %v", key, err)
	}
	return b, nil
}
