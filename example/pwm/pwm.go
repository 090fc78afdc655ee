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

// Program to sweep a knob indicator using the h/w or s/w PWM library

package main

import (
	"flag"
	"log"
	"math"
	"time"

	"github.com/aamcrae/rotary/io"
)

var pwmUnit = flag.Int("pwm", 0, "PWM unit for h/w PWM")
var gpio = flag.Int("gpio", -1, "GPIO pin for s/w PWM (instead of h/w PWM)")

func main() {
	flag.Parse()
	var pwm io.PWM
	if *gpio >= 0 {
		p, err := io.OutputPin(*gpio)
		if err != nil {
			log.Fatalf("Pin %d: %v", *gpio, err)
		}
		defer p.Close()
		pwm = io.NewSwPWM(p)
	} else {
		var err error
		pwm, err = io.NewHwPWM(*pwmUnit)
		if err != nil {
			log.Fatalf("PWM unit %d: %v", *pwmUnit, err)
		}
	}
	defer pwm.Close()
	for i := 0; i < 10; i++ {
		for v := 0; v < 90; v++ {
			set(pwm, v)
		}
		for v := 89; v >= 0; v-- {
			set(pwm, v)
		}
	}
}

func set(pwm io.PWM, v int) {
	period := time.Millisecond * 10
	r := float64(v) * math.Pi / 180
	d := int(math.Sin(r) * 100.0)
	err := pwm.Set(period, d)
	if err != nil {
		log.Fatalf("Set: period %s, duty %d: %v", period.String(), d, err)
	}
	time.Sleep(time.Millisecond * 50)
}
