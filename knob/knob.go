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

// Package knob combines the I/O for a rotary encoder with the decoder.

package knob

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aamcrae/rotary/io"
	"github.com/aamcrae/rotary/quad"
)

const indicatorPeriod = 10 * time.Millisecond

// Line is a phase line input that can wait for an edge.
type Line interface {
	quad.Input
	Wait() error
}

// Listener is called each time a step completes. If the knob is counting,
// the value is the new count, otherwise it is the direction (quad.CW or quad.CCW).
// The listener is called from the edge watchers, and should return promptly.
type Listener func(k *Knob, v int)

// Knob is a rotary encoder knob. Each phase line has a watcher
// goroutine that waits for edges and then runs the encoder,
// so the encoder may be called from both watchers concurrently.
type Knob struct {
	Steps    int64 // Number of completed steps
	Errors   int64 // Number of input errors
	position int64 // Sum of directions when not counting
	Name     string
	Config   *KnobConfig
	Encoder  *quad.Encoder
	listener Listener
	update   chan struct{} // Signals the indicator
	done     chan struct{}
	once     sync.Once
	closers  []func()
	wg       sync.WaitGroup // Watchers
	iwg      sync.WaitGroup // Indicator
}

// NewKnob opens the GPIO inputs and the indicator (if any) for the knob,
// and starts watching the inputs.
func NewKnob(kc *KnobConfig, l Listener) (*Knob, error) {
	var closers []func()
	release := func() {
		for _, c := range closers {
			c()
		}
	}
	var lines [2]Line
	for i, g := range kc.Gpio {
		p, err := io.InputPin(g, io.BOTH)
		if err != nil {
			release()
			return nil, fmt.Errorf("%s: pin %d: %v", kc.Name, g, err)
		}
		closers = append(closers, p.Close)
		lines[i] = p
	}
	ind, err := openIndicator(kc)
	if err != nil {
		release()
		return nil, fmt.Errorf("%s: indicator %d: %v", kc.Name, kc.Unit, err)
	}
	k, err := New(kc, lines[0], lines[1], l)
	if err != nil {
		if ind != nil {
			ind.Close()
		}
		release()
		return nil, err
	}
	if ind != nil {
		k.SetIndicator(ind)
		closers = append([]func(){ind.Close}, closers...)
	}
	k.closers = closers
	return k, nil
}

// New creates a Knob using the phase lines, and starts the watchers.
// If the detents are not set, the default is used.
func New(kc *KnobConfig, a, b Line, l Listener) (*Knob, error) {
	if kc.Detents < 1 {
		kc.Detents = defaultDetents
	}
	e, err := quad.NewEncoder(a, b, kc.Encoder())
	if err != nil {
		return nil, fmt.Errorf("%s: %v", kc.Name, err)
	}
	k := new(Knob)
	k.Name = kc.Name
	k.Config = kc
	k.Encoder = e
	k.listener = l
	k.update = make(chan struct{}, 1)
	k.done = make(chan struct{})
	log.Printf("%s: %s step encoder, %s", k.Name, kc.Mode, k.describe())
	k.wg.Add(2)
	go k.watch("A", a)
	go k.watch("B", b)
	return k, nil
}

// SetIndicator starts driving a PWM output that indicates the position
// of the knob. The indicator is updated in its own goroutine so that
// the watchers are not delayed. It should only be called once.
func (k *Knob) SetIndicator(p io.PWM) {
	k.iwg.Add(1)
	go k.indicate(p)
}

// Position returns the position of the knob on a dial, and the number of
// positions in one revolution of the dial.
// A bounded count is positioned relative to the lower bound, otherwise
// the position is taken modulo the configured detents.
func (k *Knob) Position() (int, int) {
	if c, ok := k.Encoder.Count(); ok {
		conf, _ := k.Encoder.Counting()
		if conf.Range != quad.Unbounded {
			return c - conf.Lower, conf.Upper - conf.Lower + 1
		}
		return mod(c, k.Config.Detents), k.Config.Detents
	}
	return mod(int(atomic.LoadInt64(&k.position)), k.Config.Detents), k.Config.Detents
}

// Set presets the count of a counting knob, returning false if
// the knob is not counting.
func (k *Knob) Set(v int) bool {
	if !k.Encoder.Set(v) {
		return false
	}
	k.signal()
	return true
}

// Close stops the watchers and the indicator, and releases the I/O
// opened by NewKnob. A watcher blocked on a GPIO exits on its next edge.
// Further calls have no effect.
func (k *Knob) Close() {
	k.once.Do(func() {
		close(k.done)
		k.iwg.Wait()
		for _, c := range k.closers {
			c()
		}
	})
}

// Wait waits for the watchers to exit.
func (k *Knob) Wait() {
	k.wg.Wait()
}

// watch is the goroutine that services one phase line.
func (k *Knob) watch(name string, l Line) {
	defer k.wg.Done()
	for {
		err := l.Wait()
		select {
		case <-k.done:
			return
		default:
		}
		if err != nil {
			log.Printf("%s: phase %s: %v", k.Name, name, err)
			return
		}
		k.edge()
	}
}

// edge runs the encoder after an edge has been seen on either line.
func (k *Knob) edge() {
	v, ok, err := k.Encoder.Edge()
	if err != nil {
		atomic.AddInt64(&k.Errors, 1)
		log.Printf("%s: input: %v", k.Name, err)
		return
	}
	if !ok {
		return
	}
	atomic.AddInt64(&k.Steps, 1)
	if _, counting := k.Encoder.Counting(); !counting {
		atomic.AddInt64(&k.position, int64(v))
	}
	k.signal()
	if k.listener != nil {
		k.listener(k, v)
	}
}

// signal wakes the indicator without blocking.
func (k *Knob) signal() {
	select {
	case k.update <- struct{}{}:
	default:
	}
}

// indicate sets the indicator duty cycle to the position of the knob
// each time the position changes.
func (k *Knob) indicate(p io.PWM) {
	defer k.iwg.Done()
	for {
		pos, n := k.Position()
		duty := 100
		if n > 1 {
			duty = pos * 100 / (n - 1)
		}
		if err := p.Set(indicatorPeriod, duty); err != nil {
			log.Printf("%s: indicator: %v", k.Name, err)
		}
		select {
		case <-k.update:
		case <-k.done:
			return
		}
	}
}

func (k *Knob) describe() string {
	c, ok := k.Encoder.Counting()
	if !ok {
		return "direction events"
	}
	s := fmt.Sprintf("%s count", c.Range)
	if c.Range != quad.Unbounded {
		s += fmt.Sprintf(" %d to %d", c.Lower, c.Upper)
	}
	if c.Reverse {
		s += ", reversed"
	}
	return s
}

func openIndicator(kc *KnobConfig) (io.PWM, error) {
	switch kc.Indicator {
	case SwIndicator:
		p, err := io.OutputPin(kc.Unit)
		if err != nil {
			return nil, err
		}
		return &swIndicator{io.NewSwPWM(p), p}, nil
	case HwIndicator:
		p, err := io.NewHwPWM(kc.Unit)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, nil
}

// swIndicator closes the GPIO as well as the s/w PWM.
type swIndicator struct {
	*io.SwPwm
	pin *io.Gpio
}

func (s *swIndicator) Close() {
	s.SwPwm.Close()
	s.pin.Close()
}

func mod(v, n int) int {
	m := v % n
	if m < 0 {
		m += n
	}
	return m
}
