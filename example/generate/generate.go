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

// Program to generate quadrature signals on GPIO outputs.
// The outputs can be wired back to the inputs of a knob for testing.

package main

import (
	"flag"
	"log"
	"time"

	"github.com/aamcrae/rotary/io"
)

var gpioA = flag.Int("a", 20, "GPIO pin for phase A output")
var gpioB = flag.Int("b", 21, "GPIO pin for phase B output")
var rev = flag.Int("rev", 80, "Transitions per revolution")
var rpm = flag.Float64("rpm", 30.0, "RPM")
var steps = flag.Int("steps", 40, "Transitions to generate in each direction")
var bounce = flag.Int("bounce", 0, "Bounces on each transition")
var loops = flag.Int("loops", 5, "Number of back and forth loops")

func main() {
	flag.Parse()
	var pins [2]*io.Gpio
	for i, gp := range []int{*gpioA, *gpioB} {
		var err error
		pins[i], err = io.OutputPin(gp)
		if err != nil {
			log.Fatalf("Pin %d: %v", gp, err)
		}
		defer pins[i].Close()
	}
	g := io.NewGenerator(*rev, pins[0], pins[1])
	defer g.Close()
	g.Bounce(*bounce)
	now := time.Now()
	st := *steps
	for i := 0; i < *loops*2; i++ {
		g.Step(*rpm, st)
		st = -st
	}
	log.Printf("Waiting for completion")
	g.Wait()
	log.Printf("Elapsed = %s, position = %d\n", time.Now().Sub(now), g.GetStep())
}
