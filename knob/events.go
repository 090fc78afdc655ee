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

// WebSocket stream of knob events

package knob

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message types sent to clients.
const (
	MsgInit = "init" // Current state of each knob, sent on connect
	MsgStep = "step" // A step has completed
)

const (
	clientQueueSize = 32
	writeWait       = 5 * time.Second
	pongWait        = 30 * time.Second
	pingPeriod      = 20 * time.Second
)

// Event is the state of a knob sent to clients.
// Value is the count if the knob is counting, otherwise the
// direction of the step (1 or -1), or 0 in an init message.
type Event struct {
	Knob      string `json:"knob"`
	Value     int    `json:"value"`
	Position  int    `json:"position"`
	Positions int    `json:"positions"`
}

// Message is the JSON envelope of each WebSocket text message.
type Message struct {
	Type string `json:"type"`
	Data Event  `json:"data"`
}

// Hub sends knob events to connected WebSocket clients.
// A client that cannot keep up is disconnected.
type Hub struct {
	mu      sync.Mutex
	knobs   []*Knob
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// Add includes the knob in the state sent to new clients.
func (h *Hub) Add(k *Knob) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.knobs = append(h.knobs, k)
}

// Listener returns a knob listener that sends each step to the
// clients, then calls next (if not nil).
func (h *Hub) Listener(next Listener) Listener {
	return func(k *Knob, v int) {
		h.publish(MsgStep, k, v)
		if next != nil {
			next(k, v)
		}
	}
}

// ServeHTTP upgrades the connection, and sends the current state of
// each knob followed by the knob events.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("events: upgrade from %s: %v", r.RemoteAddr, err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientQueueSize)}
	h.mu.Lock()
	for _, k := range h.knobs {
		v, _ := k.Encoder.Count()
		select {
		case c.send <- encode(MsgInit, k, v):
		default:
		}
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	go h.writer(c)
	go h.reader(c)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.drop(c)
	}
}

func (h *Hub) publish(t string, k *Knob, v int) {
	msg := encode(t, k, v)
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Printf("events: %s: client too slow, disconnecting", c.conn.RemoteAddr())
			h.drop(c)
		}
	}
}

// drop removes the client. Must be called with the lock held.
func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	c.once.Do(func() {
		close(c.send)
	})
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(c)
}

// writer sends queued messages and pings to the client until the
// client is dropped or a write fails.
func (h *Hub) writer(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// reader discards incoming messages so that control frames are
// processed, and drops the client when the connection closes.
func (h *Hub) reader(c *client) {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

func encode(t string, k *Knob, v int) []byte {
	pos, n := k.Position()
	b, err := json.Marshal(Message{Type: t, Data: Event{Knob: k.Name, Value: v, Position: pos, Positions: n}})
	if err != nil {
		// Event contains only strings and ints.
		panic(err)
	}
	return b
}
