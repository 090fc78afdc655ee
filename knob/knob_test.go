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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aamcrae/rotary/io"
	"github.com/aamcrae/rotary/quad"
)

// With 4 transitions per revolution, this RPM gives 5ms between transitions.
const (
	simRev = 4
	simRPM = 3000.0
)

const settle = 2 * time.Second

// rig connects a generator to a knob through simulated pins.
type rig struct {
	a, b *io.SimPin
	gen  *io.Generator
	knob *Knob
	mu   sync.Mutex
	seen []int
}

func newRig(t *testing.T, kc *KnobConfig) *rig {
	t.Helper()
	r := &rig{a: io.NewSimPin(), b: io.NewSimPin()}
	r.gen = io.NewGenerator(simRev, r.a, r.b)
	k, err := New(kc, r.a, r.b, func(k *Knob, v int) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.seen = append(r.seen, v)
	})
	require.NoError(t, err)
	r.knob = k
	t.Cleanup(r.close)
	return r
}

// turn generates whole cycles, positive for clockwise.
func (r *rig) turn(cycles int) {
	r.gen.Step(simRPM, cycles*4)
	r.gen.Wait()
}

func (r *rig) events() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.seen...)
}

func (r *rig) steps() int64 {
	return atomic.LoadInt64(&r.knob.Steps)
}

func (r *rig) close() {
	r.gen.Close()
	r.knob.Close()
	r.a.Close()
	r.b.Close()
	r.knob.Wait()
}

func testConfig(name string) *KnobConfig {
	return &KnobConfig{Name: name, Gpio: [2]int{5, 6}, Detents: 8}
}

func TestKnobDirections(t *testing.T) {
	r := newRig(t, testConfig("raw"))
	r.turn(3)
	assert.Eventually(t, func() bool { return r.steps() == 3 }, settle, time.Millisecond)
	r.turn(-1)
	assert.Eventually(t, func() bool { return r.steps() == 4 }, settle, time.Millisecond)
	assert.Equal(t, []int{int(quad.CW), int(quad.CW), int(quad.CW), int(quad.CCW)}, r.events())
	pos, n := r.knob.Position()
	assert.Equal(t, 2, pos)
	assert.Equal(t, 8, n)
	assert.Zero(t, atomic.LoadInt64(&r.knob.Errors))
}

func TestKnobNegativePosition(t *testing.T) {
	r := newRig(t, testConfig("back"))
	r.turn(-3)
	assert.Eventually(t, func() bool { return r.steps() == 3 }, settle, time.Millisecond)
	pos, n := r.knob.Position()
	assert.Equal(t, 5, pos)
	assert.Equal(t, 8, n)
}

func TestKnobClampCount(t *testing.T) {
	kc := testConfig("clamp")
	kc.Count = true
	kc.Counting = quad.Counting{Range: quad.Clamp, Lower: 0, Upper: 3}
	r := newRig(t, kc)
	r.turn(5)
	assert.Eventually(t, func() bool { return r.steps() == 5 }, settle, time.Millisecond)
	assert.Equal(t, []int{1, 2, 3, 3, 3}, r.events())
	c, ok := r.knob.Encoder.Count()
	require.True(t, ok)
	assert.Equal(t, 3, c)
	pos, n := r.knob.Position()
	assert.Equal(t, 3, pos)
	assert.Equal(t, 4, n)
}

func TestKnobWrapCount(t *testing.T) {
	kc := testConfig("wrap")
	kc.Count = true
	kc.Counting = quad.Counting{Range: quad.Wrap, Lower: 1, Upper: 3}
	r := newRig(t, kc)
	r.turn(-2)
	assert.Eventually(t, func() bool { return r.steps() == 2 }, settle, time.Millisecond)
	assert.Equal(t, []int{3, 2}, r.events())
	pos, n := r.knob.Position()
	assert.Equal(t, 1, pos)
	assert.Equal(t, 3, n)
}

func TestKnobUnboundedPosition(t *testing.T) {
	kc := testConfig("unbounded")
	kc.Count = true
	kc.Counting = quad.Counting{Reverse: true}
	r := newRig(t, kc)
	r.turn(2)
	assert.Eventually(t, func() bool { return r.steps() == 2 }, settle, time.Millisecond)
	assert.Equal(t, []int{-1, -2}, r.events())
	pos, _ := r.knob.Position()
	assert.Equal(t, 6, pos)
}

func TestKnobHalfStep(t *testing.T) {
	kc := testConfig("half")
	kc.Mode = quad.HalfStep
	r := newRig(t, kc)
	r.turn(2)
	assert.Eventually(t, func() bool { return r.steps() == 4 }, settle, time.Millisecond)
	pos, _ := r.knob.Position()
	assert.Equal(t, 4, pos)
}

func TestKnobBounce(t *testing.T) {
	kc := testConfig("bounce")
	kc.Count = true
	r := newRig(t, kc)
	r.gen.Bounce(2)
	r.turn(4)
	assert.Eventually(t, func() bool {
		c, _ := r.knob.Encoder.Count()
		return c == 4
	}, settle, time.Millisecond)
}

func TestKnobInvert(t *testing.T) {
	kc := testConfig("invert")
	kc.Invert = true
	a, b := io.NewSimPin(), io.NewSimPin()
	// Active low lines idle high.
	a.Set(1)
	b.Set(1)
	k, err := New(kc, a, b, nil)
	require.NoError(t, err)
	defer func() {
		k.Close()
		a.Close()
		b.Close()
		k.Wait()
	}()
	// Clockwise, B leads.
	for _, v := range [][2]int{{1, 0}, {0, 0}, {0, 1}, {1, 1}} {
		a.Set(v[0])
		b.Set(v[1])
		time.Sleep(5 * time.Millisecond)
	}
	assert.Eventually(t, func() bool { return atomic.LoadInt64(&k.Steps) == 1 }, settle, time.Millisecond)
	pos, _ := k.Position()
	assert.Equal(t, 1, pos)
}

func TestKnobConfigError(t *testing.T) {
	kc := testConfig("bad")
	kc.Count = true
	kc.Counting = quad.Counting{Range: quad.Wrap, Lower: 5, Upper: 1}
	_, err := New(kc, io.NewSimPin(), io.NewSimPin(), nil)
	assert.Error(t, err)
}

// errLine fails every read after the first.
type errLine struct {
	*io.SimPin
	reads int32
}

func (l *errLine) Read() (int, error) {
	if atomic.AddInt32(&l.reads, 1) > 1 {
		return 0, fmt.Errorf("read failed")
	}
	return l.SimPin.Read()
}

func TestKnobReadErrors(t *testing.T) {
	a := &errLine{SimPin: io.NewSimPin()}
	b := io.NewSimPin()
	k, err := New(testConfig("errors"), a, b, nil)
	require.NoError(t, err)
	b.Set(1)
	assert.Eventually(t, func() bool { return atomic.LoadInt64(&k.Errors) == 1 }, settle, time.Millisecond)
	assert.Zero(t, atomic.LoadInt64(&k.Steps))
	k.Close()
	a.Close()
	b.Close()
	k.Wait()
}

func TestKnobWatchersExit(t *testing.T) {
	a, b := io.NewSimPin(), io.NewSimPin()
	k, err := New(testConfig("exit"), a, b, nil)
	require.NoError(t, err)
	// A closed line stops its watcher even if the knob is not closed.
	a.Close()
	b.Close()
	done := make(chan struct{})
	go func() {
		k.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(settle):
		t.Fatalf("watchers did not exit")
	}
	k.Close()
}

// fakePWM records the duty cycles set.
type fakePWM struct {
	mu     sync.Mutex
	duty   []int
	closed bool
}

func (p *fakePWM) Set(period time.Duration, duty int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.duty = append(p.duty, duty)
	return nil
}

func (p *fakePWM) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *fakePWM) last() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.duty) == 0 {
		return -1
	}
	return p.duty[len(p.duty)-1]
}

func TestKnobIndicator(t *testing.T) {
	kc := testConfig("indicator")
	kc.Count = true
	kc.Counting = quad.Counting{Range: quad.Clamp, Lower: 0, Upper: 4}
	r := newRig(t, kc)
	var p fakePWM
	r.knob.SetIndicator(&p)
	assert.Eventually(t, func() bool { return p.last() == 0 }, settle, time.Millisecond)
	r.turn(2)
	assert.Eventually(t, func() bool { return p.last() == 50 }, settle, time.Millisecond)
	r.turn(4)
	assert.Eventually(t, func() bool { return p.last() == 100 }, settle, time.Millisecond)
	require.True(t, r.knob.Set(1))
	assert.Eventually(t, func() bool { return p.last() == 25 }, settle, time.Millisecond)
}

func TestKnobSetRaw(t *testing.T) {
	r := newRig(t, testConfig("raw"))
	assert.False(t, r.knob.Set(3))
}

func TestMod(t *testing.T) {
	assert.Equal(t, 0, mod(0, 5))
	assert.Equal(t, 2, mod(7, 5))
	assert.Equal(t, 3, mod(-2, 5))
	assert.Equal(t, 0, mod(-10, 5))
}

func TestKnobDefaultDetents(t *testing.T) {
	r := newRig(t, &KnobConfig{Name: "plain"})
	assert.Equal(t, defaultDetents, r.knob.Config.Detents)
	pos, n := r.knob.Position()
	assert.Equal(t, 0, pos)
	assert.Equal(t, defaultDetents, n)
	r.turn(-1)
	assert.Eventually(t, func() bool { return r.steps() == 1 }, settle, time.Millisecond)
	pos, _ = r.knob.Position()
	assert.Equal(t, defaultDetents-1, pos)
}

func TestKnobCloseTwice(t *testing.T) {
	r := newRig(t, testConfig("twice"))
	r.knob.Close()
	assert.NotPanics(t, r.knob.Close)
}
