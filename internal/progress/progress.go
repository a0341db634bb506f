// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package progress optionally serves a live websocket feed of dispatch
// progress events so a long extract run can be watched from a browser.
// cmd/unmunge broadcasts one JSON message per failed chunk task, after
// the dispatch group has finished; completed chunks produce no event.
// Its register/unregister channel-select loop follows the teacher's hub
// run-loop shape, generalized from game clients to progress-feed
// subscribers. Events marshal through jsoniter rather than encoding/json,
// the same choice the teacher makes for a live game server's per-tick
// broadcast.
package progress

import (
	"net"
	"net/http"
	_ "net/http/pprof"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/gorilla/websocket"
	"golang.org/x/net/netutil"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Event is one progress update broadcast to every connected subscriber.
type Event struct {
	Tag     string `json:"tag"`
	Size    int    `json:"size"`
	Done    int    `json:"done"`
	Total   int    `json:"total"`
	Failed  bool   `json:"failed,omitempty"`
	Message string `json:"message,omitempty"`
}

// Monitor runs a single-process websocket broadcast hub: Serve accepts
// subscriber connections, Broadcast publishes events to all of them.
type Monitor struct {
	register   chan *subscriber
	unregister chan *subscriber
	events     chan Event

	mu       sync.RWMutex
	snapshot Event
}

type subscriber struct {
	conn *websocket.Conn
	send chan Event
}

// NewMonitor returns a Monitor whose run loop has not yet started; call
// Run in its own goroutine before Serve receives any connections.
func NewMonitor() *Monitor {
	return &Monitor{
		register:   make(chan *subscriber),
		unregister: make(chan *subscriber),
		events:     make(chan Event, 64),
	}
}

// Run drives the hub's register/unregister/broadcast select loop until
// ctx-like cancellation isn't needed: the process exits when the
// conversion run ends, so there is no separate shutdown signal.
func (m *Monitor) Run() {
	subs := make(map[*subscriber]bool)
	for {
		select {
		case s := <-m.register:
			subs[s] = true
		case s := <-m.unregister:
			if subs[s] {
				delete(subs, s)
				close(s.send)
			}
		case e := <-m.events:
			m.mu.Lock()
			m.snapshot = e
			m.mu.Unlock()
			for s := range subs {
				select {
				case s.send <- e:
				default: // slow subscriber: drop rather than block the run
				}
			}
		}
	}
}

// Snapshot returns the most recently broadcast event, the zero Event if
// none has been broadcast yet.
func (m *Monitor) Snapshot() Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// Broadcast publishes e to every connected subscriber.
func (m *Monitor) Broadcast(e Event) {
	m.events <- e
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWs upgrades r to a websocket connection and streams progress
// events to it until the connection closes.
func (m *Monitor) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s := &subscriber{conn: conn, send: make(chan Event, 32)}
	m.register <- s

	defer func() {
		m.unregister <- s
		conn.Close()
	}()

	for e := range s.send {
		data, err := jsonAPI.Marshal(e)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// serveIndex returns the latest snapshot as a JSON status document, the
// progress-monitor analogue of a game server's index status page.
func (m *Monitor) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	jsonAPI.NewEncoder(w).Encode(m.Snapshot())
}

// Serve listens on addr (connection-limited to maxConnections, the same
// netutil.LimitListener wrapping server_main/main.go uses) and serves the
// progress monitor on the default mux — a JSON snapshot at "/", the live
// feed at "/ws" — so pprof's self-registered debug routes stay reachable
// alongside them, until the listener is closed.
func Serve(addr string, maxConnections int, m *Monitor) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	ln = netutil.LimitListener(ln, maxConnections)

	http.HandleFunc("/", m.serveIndex)
	http.HandleFunc("/ws", m.ServeWs)
	return http.Serve(ln, nil)
}
