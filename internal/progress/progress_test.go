// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package progress

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestMonitorBroadcastsToSubscriber(t *testing.T) {
	m := NewMonitor()
	go m.Run()

	srv := httptest.NewServer(http.HandlerFunc(m.ServeWs))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give ServeWs a moment to register before broadcasting.
	time.Sleep(10 * time.Millisecond)
	m.Broadcast(Event{Tag: "TEX_", Done: 1, Total: 10})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `"TEX_"`) {
		t.Errorf("message %q missing broadcast tag", data)
	}
}

func TestSnapshotReflectsLatestBroadcast(t *testing.T) {
	m := NewMonitor()
	go m.Run()

	m.Broadcast(Event{Tag: "MODL", Done: 3, Total: 7})
	time.Sleep(10 * time.Millisecond)

	snap := m.Snapshot()
	if snap.Tag != "MODL" || snap.Done != 3 || snap.Total != 7 {
		t.Errorf("Snapshot() = %+v, want Tag=MODL Done=3 Total=7", snap)
	}
}

func TestMonitorDropsSlowSubscriberRatherThanBlocking(t *testing.T) {
	m := NewMonitor()
	go m.Run()

	// A subscriber whose send channel is unbuffered and never drained:
	// Run must drop each event for it rather than block the broadcasts.
	slow := &subscriber{send: make(chan Event)}
	m.register <- slow

	for i := 0; i < 100; i++ {
		m.Broadcast(Event{Tag: "TEX_", Done: i, Total: 100})
	}
}
