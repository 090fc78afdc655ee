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

// Utility to interactively check and preset the count of a knob

package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/aamcrae/config"

	"github.com/aamcrae/rotary/knob"
)

var configFile = flag.String("config", "", "Configuration file")
var section = flag.String("knob", "", "Knob to check e.g volume")

func main() {
	flag.Parse()
	conf, err := config.ParseFile(*configFile)
	if err != nil {
		log.Fatalf("%s: %v", *configFile, err)
	}
	kc, err := knob.Config(conf, *section)
	if err != nil {
		log.Fatalf("%s: %v", *configFile, err)
	}
	if !kc.Count {
		log.Fatalf("%s: knob is not counting (no range configured)", *section)
	}
	k, err := knob.NewKnob(kc, nil)
	if err != nil {
		log.Fatalf("Knob: %s %v", *section, err)
	}
	defer k.Close()
	reader := bufio.NewReader(os.Stdin)
	for {
		c, _ := k.Encoder.Count()
		pos, n := k.Position()
		fmt.Printf("Count %d (position %d of %d, %d steps, %d errors)\n", c, pos, n,
			atomic.LoadInt64(&k.Steps), atomic.LoadInt64(&k.Errors))
		fmt.Print("Enter count or command ('help' for help) ")
		text, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		text = strings.TrimSpace(text)
		switch text {
		case "help":
			fmt.Println("  help - print help")
			fmt.Println("  [-]NNN set count")
			fmt.Println("  <return> show count")
			fmt.Println("  q - quit")
		case "q":
			return
		case "":
		default:
			var v int
			n, err := fmt.Sscanf(text, "%d", &v)
			if err != nil || n != 1 {
				fmt.Printf("Unrecognised input\n")
			} else {
				k.Set(v)
			}
		}
	}
}
