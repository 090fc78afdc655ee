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

package io

import (
	"sync/atomic"
	"time"
)

const generatorQueueSize = 20 // Size of queue for requests

type msg struct {
	speed float64 // RPM
	steps int
	sync  chan bool
}

// Generator emulates a quadrature encoder by driving two output lines
// through the Gray code sequence, e.g to loop back into the encoder
// inputs for bench testing, or to drive simulated lines.
// All generating is done in a background goroutine, so requests can be queued.
// The step values are single transitions, so 4 steps are one full cycle.
// The current position is maintained as an absolute number of transitions,
// referenced from 0 when the generator is created.
type Generator struct {
	current  int64     // Current transition number as an absolute number
	a, b     Setter    // Phase A and phase B outputs
	factor   float64   // Timing factor from the transitions per revolution
	mChan    chan msg  // channel for message requests
	stopChan chan bool // channel for signalling aborts
	index    int       // Index to output sequence
	bounce   int32     // Extra toggles of the changing line per transition
}

// Quadrature sequence of (A, B) outputs in the clockwise direction.
var sequence = [4][2]int{
	{0, 0},
	{0, 1},
	{1, 1},
	{1, 0},
}

// NewGenerator creates and initialises a Generator, with both outputs
// set low (the detent position).
// rev is the number of transitions per revolution, used for
// determining the delays between transitions.
func NewGenerator(rev int, a, b Setter) *Generator {
	g := new(Generator)
	// Precalculate a timing factor so that a RPM value can be used
	// to calculate the per-transition delay.
	g.factor = float64(time.Second.Nanoseconds()*60) / float64(rev)
	g.a = a
	g.b = b
	g.mChan = make(chan msg, generatorQueueSize)
	g.stopChan = make(chan bool)
	g.output(sequence[0])
	go g.handler()
	return g
}

// Close aborts any generating and stops the background goroutine.
func (g *Generator) Close() {
	g.Stop()
	close(g.mChan)
}

// GetStep returns the current transition number, which is an accumulative
// signed value, with 0 as the starting location.
func (g *Generator) GetStep() int64 {
	return atomic.LoadInt64(&g.current)
}

// Bounce sets the number of times the changing line is toggled
// back and forth before each transition settles, emulating contact bounce.
func (g *Generator) Bounce(n int) {
	atomic.StoreInt32(&g.bounce, int32(n))
}

// Stop aborts any current generating, and flushes all queued requests.
func (g *Generator) Stop() {
	g.stopChan <- true
	g.Wait()
}

// Step queues a request to generate the number of transitions at the
// selected RPM. If steps is positive, the sequence is clockwise, otherwise ccw.
func (g *Generator) Step(rpm float64, steps int) {
	if steps != 0 && rpm > 0.0 {
		g.mChan <- msg{speed: rpm, steps: steps}
	}
}

// Wait waits for all requests to complete.
func (g *Generator) Wait() {
	c := make(chan bool)
	g.mChan <- msg{sync: c}
	<-c
}

// goroutine handler
// Listens on message channel, and generates the sequence.
func (g *Generator) handler() {
	for {
		select {
		case m, ok := <-g.mChan:
			if !ok {
				return
			}
			if m.steps != 0 {
				g.step(m.speed, m.steps)
			}
			if m.sync != nil {
				close(m.sync)
			}
		case <-g.stopChan:
			g.flush()
		}
	}
}

// step generates the requested number of transitions. A negative value
// generates the counter-clockwise sequence.
// Once started, the stop channel is used to abort the sequence.
func (g *Generator) step(rpm float64, steps int) {
	inc := 1
	if steps < 0 {
		inc = -1
		steps = -steps
	}
	delay := time.Duration(g.factor / rpm)
	ticker := time.NewTicker(delay)
	defer ticker.Stop()
	for i := 0; i < steps; i++ {
		next := (g.index + inc) & 3
		for n := atomic.LoadInt32(&g.bounce); n > 0; n-- {
			g.output(sequence[next])
			g.output(sequence[g.index])
		}
		g.index = next
		g.output(sequence[g.index])
		atomic.AddInt64(&g.current, int64(inc))
		select {
		case <-g.stopChan:
			g.flush()
			return
		case <-ticker.C:
		}
	}
}

// Flush all remaining requests from message channel.
func (g *Generator) flush() {
	for {
		select {
		case m, ok := <-g.mChan:
			if !ok {
				return
			}
			if m.sync != nil {
				close(m.sync)
			}
		default:
			return
		}
	}
}

// Set the outputs. Only one line changes on each transition.
func (g *Generator) output(seq [2]int) {
	g.a.Set(seq[0])
	g.b.Set(seq[1])
}
