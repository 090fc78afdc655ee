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

package quad

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCounter(t *testing.T, r Range, lower, upper int, reverse bool) *Counter {
	t.Helper()
	c, err := NewCounter(Counting{Range: r, Lower: lower, Upper: upper, Reverse: reverse})
	require.NoError(t, err)
	return c
}

func TestCounterNone(t *testing.T) {
	c := newCounter(t, Unbounded, 0, 0, false)
	v, ok := c.Apply(None)
	assert.False(t, ok)
	assert.Equal(t, 0, v)
	assert.Equal(t, 0, c.Value())
}

func TestCounterUnbounded(t *testing.T) {
	c := newCounter(t, Unbounded, 0, 4, false)
	for i := 1; i <= 10; i++ {
		v, ok := c.Apply(CW)
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	for i := 9; i >= -5; i-- {
		v, _ := c.Apply(CCW)
		assert.Equal(t, i, v)
	}
}

func TestCounterWrap(t *testing.T) {
	c := newCounter(t, Wrap, 0, 4, false)
	c.Set(4)
	v, ok := c.Apply(CW)
	require.True(t, ok)
	assert.Equal(t, 0, v)
	v, _ = c.Apply(CCW)
	assert.Equal(t, 4, v)
	for i := 0; i < 5; i++ {
		c.Apply(CW)
	}
	assert.Equal(t, 4, c.Value())
}

func TestCounterWrapNegativeBounds(t *testing.T) {
	c := newCounter(t, Wrap, -3, -1, false)
	// Zero is outside the range, so the nearest bound is used.
	assert.Equal(t, -1, c.Value())
	v, _ := c.Apply(CW)
	assert.Equal(t, -3, v)
	v, _ = c.Apply(CCW)
	assert.Equal(t, -1, v)
	v, _ = c.Apply(CCW)
	assert.Equal(t, -2, v)
}

func TestCounterWrapRandomWalk(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	c := newCounter(t, Wrap, -7, 12, false)
	expected := c.Value()
	for i := 0; i < 2000; i++ {
		d := CW
		if r.Intn(2) == 0 {
			d = CCW
		}
		v, _ := c.Apply(d)
		expected += int(d)
		if expected > 12 {
			expected = -7
		} else if expected < -7 {
			expected = 12
		}
		require.Equal(t, expected, v)
	}
}

func TestCounterWrapLargeIncrement(t *testing.T) {
	c := newCounter(t, Wrap, 10, 14, false)
	assert.Equal(t, 10, c.Value())
	assert.Equal(t, 13, c.Add(5*3+3))
	assert.Equal(t, 10, c.Add(-5*4-3))
	assert.Equal(t, 14, c.Add(-1))
	assert.Equal(t, 14, c.Add(5))
	assert.Equal(t, 14, c.Add(-5*7))
}

func TestCounterWrapSingleValue(t *testing.T) {
	c := newCounter(t, Wrap, 3, 3, false)
	assert.Equal(t, 3, c.Value())
	assert.Equal(t, 3, c.Add(1))
	assert.Equal(t, 3, c.Add(-7))
}

func TestCounterWrapWholeRange(t *testing.T) {
	_, err := NewCounter(Counting{Range: Wrap, Lower: math.MinInt / 2, Upper: math.MaxInt/2 - 1})
	require.NoError(t, err)
	_, err = NewCounter(Counting{Range: Wrap, Lower: math.MinInt, Upper: math.MaxInt})
	assert.Error(t, err)
}

func TestCounterClamp(t *testing.T) {
	c := newCounter(t, Clamp, 0, 4, false)
	c.Set(4)
	v, ok := c.Apply(CW)
	require.True(t, ok)
	assert.Equal(t, 4, v)
	for i := 0; i < 10; i++ {
		v, _ = c.Apply(CW)
		assert.Equal(t, 4, v)
	}
	// Excess is not remembered.
	v, _ = c.Apply(CCW)
	assert.Equal(t, 3, v)
	for i := 0; i < 10; i++ {
		c.Apply(CCW)
	}
	assert.Equal(t, 0, c.Value())
	assert.Equal(t, 4, c.Add(100))
	assert.Equal(t, 0, c.Add(-100))
}

func TestCounterClampInitial(t *testing.T) {
	c := newCounter(t, Clamp, 5, 10, false)
	assert.Equal(t, 5, c.Value())
	c = newCounter(t, Clamp, -10, -5, false)
	assert.Equal(t, -5, c.Value())
	c = newCounter(t, Clamp, -10, 10, false)
	assert.Equal(t, 0, c.Value())
}

func TestCounterReverse(t *testing.T) {
	seq := []Direction{CW, CW, None, CCW, CW, CW, CW, CCW, None, CW}
	for _, r := range []Range{Unbounded, Wrap, Clamp} {
		fwd := newCounter(t, r, -100, 100, false)
		rev := newCounter(t, r, -100, 100, true)
		for _, d := range seq {
			fv, fok := fwd.Apply(d)
			rv, rok := rev.Apply(d)
			assert.Equal(t, fok, rok)
			assert.Equal(t, fv, -rv, "range %s", r)
		}
	}
}

func TestCounterSet(t *testing.T) {
	c := newCounter(t, Wrap, 0, 9, false)
	c.Set(23)
	assert.Equal(t, 3, c.Value())
	c.Set(-1)
	assert.Equal(t, 9, c.Value())
	c = newCounter(t, Clamp, 0, 9, false)
	c.Set(23)
	assert.Equal(t, 9, c.Value())
	c = newCounter(t, Unbounded, 0, 9, false)
	c.Set(-23)
	assert.Equal(t, -23, c.Value())
}

func TestCounterClampExtremes(t *testing.T) {
	c := newCounter(t, Clamp, 0, 10, false)
	c.Set(10)
	assert.Equal(t, 10, c.Add(math.MaxInt))
	assert.Equal(t, 0, c.Add(math.MinInt))
	assert.Equal(t, 10, c.Add(math.MaxInt))

	c = newCounter(t, Clamp, math.MinInt, math.MaxInt, false)
	c.Set(math.MaxInt)
	assert.Equal(t, math.MaxInt, c.Add(1))
	c.Set(math.MinInt)
	assert.Equal(t, math.MinInt, c.Add(-1))
	assert.Equal(t, -1, c.Add(math.MaxInt))

	// Reversing MinInt adds MaxInt+1.
	c = newCounter(t, Clamp, math.MinInt, math.MaxInt, true)
	c.Set(math.MinInt)
	assert.Equal(t, 0, c.Add(math.MinInt))
	c = newCounter(t, Clamp, 0, 10, true)
	assert.Equal(t, 10, c.Add(math.MinInt))
	assert.Equal(t, 0, c.Add(math.MaxInt))
}

func TestCounterWrapExtremes(t *testing.T) {
	c := newCounter(t, Wrap, -5, 5, false)
	c.Set(math.MaxInt)
	assert.Equal(t, -4, c.Value())
	c.Set(math.MinInt)
	assert.Equal(t, 3, c.Value())

	c = newCounter(t, Wrap, -5, 5, true)
	assert.Equal(t, -3, c.Add(math.MinInt))

	// Width is MaxInt.
	c = newCounter(t, Wrap, math.MinInt/2, math.MaxInt/2-1, false)
	c.Set(math.MaxInt)
	assert.Equal(t, 0, c.Value())
	assert.Equal(t, 0, c.Add(math.MaxInt))
	assert.Equal(t, -1, c.Add(math.MinInt))
	c.Set(math.MinInt)
	assert.Equal(t, -1, c.Value())
}

func TestCounterConfigErrors(t *testing.T) {
	for _, r := range []Range{Wrap, Clamp} {
		_, err := NewCounter(Counting{Range: r, Lower: 5, Upper: 4})
		assert.Error(t, err, "range %s", r)
	}
	// Bounds are not used when unbounded.
	_, err := NewCounter(Counting{Range: Unbounded, Lower: 5, Upper: 4})
	assert.NoError(t, err)
	_, err = NewCounter(Counting{Range: Range(9)})
	assert.Error(t, err)
}

func TestParseRange(t *testing.T) {
	for _, r := range []Range{Unbounded, Wrap, Clamp} {
		p, err := ParseRange(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, p)
	}
	_, err := ParseRange("bounded")
	assert.Error(t, err)
}
