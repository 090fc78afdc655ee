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

// Program to demonstrate how to watch a rotary encoder

package main

import (
	"flag"
	"log"

	"github.com/aamcrae/rotary/knob"
	"github.com/aamcrae/rotary/quad"
)

var gpioA = flag.Int("a", 5, "GPIO pin for phase A")
var gpioB = flag.Int("b", 6, "GPIO pin for phase B")
var half = flag.Bool("half", false, "Decode half steps")
var invert = flag.Bool("invert", false, "Inputs are active low")
var count = flag.Bool("count", false, "Count steps instead of reporting direction")
var rangeName = flag.String("range", "unbounded", "Counting range: unbounded, wrap or clamp")
var lower = flag.Int("min", 0, "Lower bound of count")
var upper = flag.Int("max", 99, "Upper bound of count")
var reverse = flag.Bool("reverse", false, "Reverse the counting direction")

func main() {
	flag.Parse()
	kc := &knob.KnobConfig{Name: "knob", Gpio: [2]int{*gpioA, *gpioB}, Invert: *invert, Count: *count, Detents: 20}
	if *half {
		kc.Mode = quad.HalfStep
	}
	r, err := quad.ParseRange(*rangeName)
	if err != nil {
		log.Fatalf("range: %v", err)
	}
	kc.Counting = quad.Counting{Range: r, Lower: *lower, Upper: *upper, Reverse: *reverse}
	k, err := knob.NewKnob(kc, func(k *knob.Knob, v int) {
		if *count {
			log.Printf("count = %d\n", v)
		} else {
			log.Printf("step %s\n", quad.Direction(v))
		}
	})
	if err != nil {
		log.Fatalf("Knob on pins %d,%d: %v", *gpioA, *gpioB, err)
	}
	defer k.Close()
	k.Wait()
}
