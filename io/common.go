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

// Package io common constants and functions

package io

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

// Setter is an interface for setting an output value on a GPIO.
// The quadrature generator and the software PWM drive Setters.
type Setter interface {
	Set(int) error
}

// Time allowed for an exported attribute to become writable.
var verifyTimeout = 2 * time.Second

// Verify will enable waiting for exported files to become writable.
// This is necessary if the process is not running as root - systemd
// and udev will change the group permissions on the exported files, but
// this takes some time to do.
// This can be overridden.
var Verify = false

func init() {
	// If the user is not root, enable Verify mode
	u, err := user.Current()
	if err == nil && u.Uid != "0" {
		Verify = true
	}
}

// sysfsClass is a sysfs device class (GPIOs or the channels of a PWM chip).
// A unit of the class is made available by writing its number
// to the class export file, which creates a directory of attribute files.
type sysfsClass struct {
	dir    string // Class directory, with a trailing separator
	prefix string // Name of a unit directory, less the unit number
}

var (
	gpioClass = sysfsClass{"/sys/class/gpio/", "gpio"}
	pwmClass  = sysfsClass{"/sys/class/pwm/pwmchip0/", "pwm"}
)

// attr returns the path of an attribute file of the unit.
func (c sysfsClass) attr(unit int, name string) string {
	return fmt.Sprintf("%s%s%d/%s", c.dir, c.prefix, unit, name)
}

// export makes the unit available, unless the attribute is already
// accessible. In Verify mode, it waits for the attribute to become writable.
func (c sysfsClass) export(unit int, name string) error {
	a := c.attr(unit, name)
	if unix.Access(a, unix.W_OK|unix.R_OK) == nil {
		return nil
	}
	if err := writeFile(c.dir+"export", strconv.Itoa(unit)); err != nil {
		return fmt.Errorf("%s%d: export: %v", c.prefix, unit, err)
	}
	if Verify {
		return waitWritable(a)
	}
	return nil
}

// unexport removes the unit.
func (c sysfsClass) unexport(unit int) error {
	return writeFile(c.dir+"unexport", strconv.Itoa(unit))
}

// writeFile writes a string to an existing file.
func writeFile(fname, s string) error {
	f, err := os.OpenFile(fname, os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(s)
	return err
}

// waitWritable polls until the file is writable or the verify timeout expires.
func waitWritable(f string) error {
	sl := time.Millisecond
	deadline := time.Now().Add(verifyTimeout)
	for {
		if unix.Access(f, unix.W_OK) == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%s: not writable", f)
		}
		time.Sleep(sl)
	}
}
