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

// Rotary encoder knob program

package main

import (
	"flag"
	"log"
	"strings"

	"github.com/aamcrae/config"

	"github.com/aamcrae/rotary/knob"
)

var configFile = flag.String("config", "", "Configuration file")
var knobNames = flag.String("knobs", "", "Comma separated list of knobs in the configuration file")
var port = flag.Int("port", 8080, "Web server port number")

func main() {
	flag.Parse()
	conf, err := config.ParseFile(*configFile)
	if err != nil {
		log.Fatalf("%s: %v", *configFile, err)
	}
	if len(*knobNames) == 0 {
		log.Fatalf("No knobs selected")
	}
	hub := knob.NewHub()
	defer hub.Close()
	var knobs []*knob.Knob
	for _, name := range strings.Split(*knobNames, ",") {
		kc, err := knob.Config(conf, strings.TrimSpace(name))
		if err != nil {
			log.Fatalf("%s: %v", *configFile, err)
		}
		k, err := knob.NewKnob(kc, hub.Listener(changed))
		if err != nil {
			log.Fatalf("Knob: %s %v", kc.Name, err)
		}
		defer k.Close()
		hub.Add(k)
		knobs = append(knobs, k)
	}
	if *port != 0 {
		go knob.DialServer(*port, knobs, hub)
	}
	for _, k := range knobs {
		k.Wait()
	}
}

func changed(k *knob.Knob, v int) {
	if k.Config.Count {
		log.Printf("%s: count %d", k.Name, v)
	} else if v > 0 {
		log.Printf("%s: CW", k.Name)
	} else {
		log.Printf("%s: CCW", k.Name)
	}
}
