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

// Simulator knob program

package main

import (
	"flag"
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aamcrae/rotary/io"
	"github.com/aamcrae/rotary/knob"
	"github.com/aamcrae/rotary/quad"
)

// SimKnob is a knob driven by a generator through simulated pins.
type SimKnob struct {
	knob     *knob.Knob
	gen      *io.Generator
	a, b     *io.SimPin
	rpm      float64
	expected int64 // Steps expected from the generator
}

var params = []struct {
	name     string
	mode     quad.Mode
	counting *quad.Counting
	rev      int
	rpm      float64
	bounce   int
}{
	{"direction", quad.FullStep, nil, 80, 60, 0},
	{"volume", quad.FullStep, &quad.Counting{Range: quad.Clamp, Lower: 0, Upper: 50}, 80, 30, 2},
	{"channel", quad.HalfStep, &quad.Counting{Range: quad.Wrap, Lower: 1, Upper: 12}, 48, 20, 1},
}

const maxMove = 40

var port = flag.Int("port", 8080, "Web server port number")
var moves = flag.Int("moves", 10, "Number of random moves of each knob")

func main() {
	flag.Parse()
	hub := knob.NewHub()
	defer hub.Close()
	var knobs []*SimKnob
	var kl []*knob.Knob
	for i := range params {
		sk := sim(i, hub)
		knobs = append(knobs, sk)
		kl = append(kl, sk.knob)
	}
	if *port != 0 {
		go knob.DialServer(*port, kl, hub)
	}
	for i := 0; i < *moves; i++ {
		for _, sk := range knobs {
			sk.Move(rand.Intn(maxMove*2+1) - maxMove)
		}
		for _, sk := range knobs {
			sk.gen.Wait()
		}
		// Allow the watchers to see the last transition.
		time.Sleep(10 * time.Millisecond)
		var b strings.Builder
		for _, sk := range knobs {
			sk.Report(&b)
		}
		fmt.Print(b.String())
	}
	for _, sk := range knobs {
		sk.Close()
	}
}

func sim(index int, hub *knob.Hub) *SimKnob {
	p := &params[index]
	sk := new(SimKnob)
	sk.a = io.NewSimPin()
	sk.b = io.NewSimPin()
	sk.rpm = p.rpm
	sk.gen = io.NewGenerator(p.rev, sk.a, sk.b)
	sk.gen.Bounce(p.bounce)
	kc := &knob.KnobConfig{Name: p.name, Mode: p.mode, Detents: p.rev / 4}
	if p.counting != nil {
		kc.Count = true
		kc.Counting = *p.counting
	}
	k, err := knob.New(kc, sk.a, sk.b, hub.Listener(nil))
	if err != nil {
		panic(err)
	}
	hub.Add(k)
	sk.knob = k
	return sk
}

// Move turns the knob by a number of transitions, rounded down to
// a whole number of steps. Positive values are clockwise.
func (s *SimKnob) Move(transitions int) {
	per := 4
	if s.knob.Encoder.Mode() == quad.HalfStep {
		per = 2
	}
	steps := transitions / per
	if steps < 0 {
		steps = -steps
	}
	s.expected += int64(steps)
	s.gen.Step(s.rpm, transitions/per*per)
}

// Report writes the knob state, and whether the steps seen
// by the knob match the steps generated.
func (s *SimKnob) Report(b *strings.Builder) {
	pos, n := s.knob.Position()
	seen := atomic.LoadInt64(&s.knob.Steps)
	fmt.Fprintf(b, "%s: generated %d transitions, position %d/%d", s.knob.Name, s.gen.GetStep(), pos, n)
	if c, ok := s.knob.Encoder.Count(); ok {
		fmt.Fprintf(b, ", count %d", c)
	}
	if seen != s.expected {
		fmt.Fprintf(b, " - steps seen %d, expected %d", seen, s.expected)
	}
	fmt.Fprintf(b, "\n")
}

func (s *SimKnob) Close() {
	s.gen.Close()
	s.knob.Close()
	s.a.Close()
	s.b.Close()
	s.knob.Wait()
}
