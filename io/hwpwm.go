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
	"fmt"
	"os"
	"strconv"
	"time"
)

// Attribute files of a PWM channel.
const (
	periodAttr = "period"
	dutyAttr   = "duty_cycle"
	enableAttr = "enable"
)

// HwPwm is a hardware PWM unit.
type HwPwm struct {
	unit   int
	pFile  *os.File
	dFile  *os.File
	period int64
	duty   int64
}

// NewHwPWM creates a new hardware PWM controller, initially with a
// 100ms period and the output off.
func NewHwPWM(unit int) (*HwPwm, error) {
	p := new(HwPwm)
	p.unit = unit
	p.period = -1
	p.duty = -1

	err := pwmClass.export(unit, periodAttr)
	if err != nil {
		return nil, err
	}
	if err := p.open(); err != nil {
		if p.pFile != nil {
			p.pFile.Close()
		}
		if p.dFile != nil {
			p.dFile.Close()
		}
		pwmClass.unexport(unit)
		return nil, fmt.Errorf("pwm%d: %v", unit, err)
	}
	return p, nil
}

// open opens the period and duty cycle files, sets the defaults
// and enables the output.
func (p *HwPwm) open() error {
	var err error
	p.pFile, err = os.OpenFile(pwmClass.attr(p.unit, periodAttr), os.O_RDWR, 0600)
	if err != nil {
		return err
	}
	dName := pwmClass.attr(p.unit, dutyAttr)
	if err = waitWritable(dName); err != nil {
		return err
	}
	p.dFile, err = os.OpenFile(dName, os.O_RDWR, 0600)
	if err != nil {
		return err
	}
	if err = p.Set(time.Millisecond*100, 0); err != nil {
		return err
	}
	return writeFile(pwmClass.attr(p.unit, enableAttr), "1")
}

// Close closes the PWM controller
func (p *HwPwm) Close() {
	writeFile(pwmClass.attr(p.unit, enableAttr), "0")
	p.pFile.Close()
	p.dFile.Close()
	pwmClass.unexport(p.unit)
}

// Set sets the PWM parameters.
func (p *HwPwm) Set(period time.Duration, duty int) error {
	if err := checkDuty(duty); err != nil {
		return err
	}
	pNano := period.Nanoseconds()
	if pNano < 15 {
		return fmt.Errorf("%s: invalid period", period)
	}
	dNano := pNano * int64(duty) / 100
	// When writing the period and duty cycle, the order may be important
	// since duty cycle must not be greater than the current period.
	if dNano > p.period {
		// Write period first
		if err := writeAt(p.pFile, pNano); err != nil {
			return err
		}
		if err := writeAt(p.dFile, dNano); err != nil {
			return err
		}
	} else {
		if dNano != p.duty {
			if err := writeAt(p.dFile, dNano); err != nil {
				return err
			}
		}
		if pNano != p.period {
			if err := writeAt(p.pFile, pNano); err != nil {
				return err
			}
		}
	}
	p.period = pNano
	p.duty = dNano
	return nil
}

// writeAt writes a decimal value to the start of a sysfs attribute file.
func writeAt(f *os.File, v int64) error {
	_, err := f.WriteAt([]byte(strconv.FormatInt(v, 10)), 0)
	return err
}
