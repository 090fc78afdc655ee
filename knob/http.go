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

// HTTP server for knob dial images

package knob

import (
	"fmt"
	"image"
	"image/png"
	"log"
	"math"
	"net/http"
	"sync/atomic"

	"github.com/fogleman/gg"
)

const dialSize = 400

// Maximum number of positions that have tick marks drawn.
const maxTicks = 64

// DialServer serves an image of the dial for each knob as /dial/<name>.png
// and a text summary of the knobs as /status. If hub is not nil, the
// knob events are streamed over a WebSocket at /events.
func DialServer(port int, knobs []*Knob, hub *Hub) {
	url := fmt.Sprintf(":%d", port)
	log.Printf("Starting server on %s", url)
	server := &http.Server{Addr: url, Handler: Handler(knobs, hub)}
	log.Fatal(server.ListenAndServe())
}

// Handler returns the HTTP handler for the knob dials, status and events.
func Handler(knobs []*Knob, hub *Hub) http.Handler {
	mux := http.NewServeMux()
	for _, k := range knobs {
		mux.Handle(fmt.Sprintf("/dial/%s.png", k.Name), http.HandlerFunc(dialHandler(k)))
	}
	mux.Handle("/status", http.HandlerFunc(statusHandler(knobs)))
	if hub != nil {
		mux.Handle("/events", hub)
	}
	return mux
}

func dialHandler(k *Knob) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		err := png.Encode(w, Dial(k, dialSize))
		if err != nil {
			log.Printf("%s: error writing image: %v", k.Name, err)
		}
	}
}

func statusHandler(knobs []*Knob) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		for _, k := range knobs {
			pos, n := k.Position()
			fmt.Fprintf(w, "%s: position %d/%d", k.Name, pos, n)
			if c, ok := k.Encoder.Count(); ok {
				fmt.Fprintf(w, ", count %d", c)
			}
			fmt.Fprintf(w, ", steps %d, errors %d\n", atomic.LoadInt64(&k.Steps), atomic.LoadInt64(&k.Errors))
		}
	}
}

// Dial draws the knob as a dial with a pointer at the current position.
// Position 0 is at the top of the dial, and clockwise steps move the
// pointer clockwise.
func Dial(k *Knob, size int) image.Image {
	pos, n := k.Position()
	mid := float64(size) / 2
	radius := mid * 0.9
	c := gg.NewContext(size, size)
	c.SetRGB(1, 1, 1)
	c.Clear()
	c.SetRGB(0, 0, 0)
	c.SetLineWidth(float64(size) / 100)
	c.DrawCircle(mid, mid, radius)
	c.Stroke()
	if n <= maxTicks {
		for i := 0; i < n; i++ {
			drawLine(c, mid, angle(i, n), radius*0.85, radius)
		}
		c.Stroke()
	}
	c.SetRGB(0, 0, 1)
	c.SetLineWidth(float64(size) / 40)
	drawLine(c, mid, angle(pos, n), 0, radius*0.8)
	c.Stroke()
	c.DrawCircle(mid, mid, float64(size)/30)
	c.Fill()
	return c.Image()
}

// angle returns the angle in radians of the position, clockwise from the top.
func angle(pos, n int) float64 {
	return float64(pos) * 2 * math.Pi / float64(n)
}

// drawLine adds a radial line between the inner and outer radius.
func drawLine(c *gg.Context, mid, radians, inner, outer float64) {
	sin, cos := math.Sincos(radians)
	c.DrawLine(mid+inner*sin, mid-inner*cos, mid+outer*sin, mid-outer*cos)
}
