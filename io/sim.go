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
	"errors"
	"sync"
)

// ErrClosed is returned from Wait after a simulated pin is closed.
var ErrClosed = errors.New("pin closed")

// SimPin is a simulated GPIO pin that may be used both as an output
// (e.g by a Generator) and as an edge triggered input.
// As with a real pin, edges that occur before a waiter has
// been woken are coalesced into a single edge.
type SimPin struct {
	mu    sync.Mutex
	level int
	edge  chan struct{}
	done  chan struct{}
	once  sync.Once
}

// NewSimPin creates a simulated pin with a low level.
func NewSimPin() *SimPin {
	p := new(SimPin)
	p.edge = make(chan struct{}, 1)
	p.done = make(chan struct{})
	return p
}

// Set sets the level of the pin, signalling an edge if it changes.
func (p *SimPin) Set(v int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v != p.level {
		p.level = v
		select {
		case p.edge <- struct{}{}:
		default:
		}
	}
	return nil
}

// Read returns the current level.
func (p *SimPin) Read() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level, nil
}

// Wait blocks until an edge is signalled or the pin is closed.
func (p *SimPin) Wait() error {
	select {
	case <-p.edge:
		return nil
	case <-p.done:
		return ErrClosed
	}
}

// Close wakes any waiter, which then returns ErrClosed.
func (p *SimPin) Close() {
	p.once.Do(func() {
		close(p.done)
	})
}
