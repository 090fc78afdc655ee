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

// Counting of decoded steps.

package quad

import (
	"fmt"
	"math"
	"strings"
)

// Range is the numeric range policy of a Counter.
type Range int

const (
	Unbounded Range = iota
	Wrap            // Cycle to the opposite bound
	Clamp           // Saturate at the bound
)

// Counting holds the counter configuration.
// Lower and Upper are inclusive, and are ignored for Unbounded.
type Counting struct {
	Range   Range
	Lower   int
	Upper   int
	Reverse bool // Negate every increment
}

// Counter accumulates steps according to a range policy.
type Counter struct {
	conf  Counting
	width int // Number of values in a wrapping range
	value int
}

// NewCounter validates the configuration and creates a Counter.
// The initial count is zero, or the nearest bound if zero
// is outside a bounded range.
func NewCounter(c Counting) (*Counter, error) {
	switch c.Range {
	case Unbounded:
	case Wrap, Clamp:
		if c.Lower > c.Upper {
			return nil, fmt.Errorf("%s: lower bound %d greater than upper bound %d", c.Range, c.Lower, c.Upper)
		}
	default:
		return nil, fmt.Errorf("%d: unknown range mode", int(c.Range))
	}
	cn := new(Counter)
	cn.conf = c
	if c.Range == Wrap {
		cn.width = c.Upper - c.Lower + 1
		// The width overflows when the bounds span the whole int range.
		if cn.width <= 0 {
			return nil, fmt.Errorf("wrap: range %d to %d is too large", c.Lower, c.Upper)
		}
	}
	if c.Range != Unbounded {
		cn.value = clamp(0, c.Lower, c.Upper)
	}
	return cn, nil
}

// Config returns the counter configuration.
func (c *Counter) Config() Counting {
	return c.conf
}

// Value returns the current count.
func (c *Counter) Value() int {
	return c.value
}

// Set sets the count, bringing it into range if necessary.
func (c *Counter) Set(v int) {
	switch c.conf.Range {
	case Wrap:
		v = c.wrap(v)
	case Clamp:
		v = clamp(v, c.conf.Lower, c.conf.Upper)
	}
	c.value = v
}

// Apply counts a decoded step. If there is no step, the count is
// unchanged and false is returned.
func (c *Counter) Apply(d Direction) (int, bool) {
	if d == None {
		return 0, false
	}
	return c.Add(int(d)), true
}

// Add applies a signed increment of any size to the count,
// and returns the new count.
func (c *Counter) Add(n int) int {
	switch c.conf.Range {
	case Wrap:
		// Work with the offset from lower, which is always within
		// the range width, so that the sum cannot overflow.
		n %= c.width
		if c.conf.Reverse {
			n = -n
		}
		off := c.value - c.conf.Lower
		switch {
		case n > 0 && off >= c.width-n:
			off -= c.width - n
		case n < 0 && off < -n:
			off += c.width + n
		default:
			off += n
		}
		c.value = c.conf.Lower + off
	case Clamp:
		if c.conf.Reverse {
			if n == math.MinInt {
				// -MinInt is MaxInt+1.
				c.value = clampAdd(c.value, math.MaxInt, c.conf.Lower, c.conf.Upper)
				n = -1
			}
			n = -n
		}
		c.value = clampAdd(c.value, n, c.conf.Lower, c.conf.Upper)
	default:
		if c.conf.Reverse {
			n = -n
		}
		c.value += n
	}
	return c.value
}

// wrap brings v into [lower, upper]. Both v and lower are reduced
// modulo the width first so that the difference cannot overflow.
// The remainders are normalised since Go's % takes the sign of the dividend.
func (c *Counter) wrap(v int) int {
	m := mod(v, c.width) - mod(c.conf.Lower, c.width)
	if m < 0 {
		m += c.width
	}
	return c.conf.Lower + m
}

func mod(v, n int) int {
	m := v % n
	if m < 0 {
		m += n
	}
	return m
}

// clampAdd returns v+n limited to [lower, upper], saturating
// when the sum would overflow.
func clampAdd(v, n, lower, upper int) int {
	switch {
	case n > 0 && v > math.MaxInt-n:
		return upper
	case n < 0 && v < math.MinInt-n:
		return lower
	}
	return clamp(v+n, lower, upper)
}

func clamp(v, lower, upper int) int {
	if v < lower {
		return lower
	}
	if v > upper {
		return upper
	}
	return v
}

func (r Range) String() string {
	switch r {
	case Unbounded:
		return "unbounded"
	case Wrap:
		return "wrap"
	case Clamp:
		return "clamp"
	}
	return fmt.Sprintf("range(%d)", int(r))
}

// ParseRange converts a name (unbounded, wrap or clamp) to a Range.
func ParseRange(s string) (Range, error) {
	switch strings.ToLower(s) {
	case "unbounded":
		return Unbounded, nil
	case "wrap":
		return Wrap, nil
	case "clamp":
		return Clamp, nil
	}
	return Unbounded, fmt.Errorf("%s: unknown range mode (must be unbounded, wrap or clamp)", s)
}
