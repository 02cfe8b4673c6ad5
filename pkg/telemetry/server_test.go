// Copyright (C) 2026  Motionhost Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package telemetry

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func testSource() Source {
	return SourceFunc(func() Status {
		return Status{
			Position:    [4]float64{10, 20, 5, 0},
			QueueLength: 3,
			Mode:        "basic",
			LastCommand: "G1 X10 Y20",
		}
	})
}

func TestStatusEndpoint(t *testing.T) {
	s := NewServer(Config{Addr: ":0", Source: testSource()})

	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest("GET", "/status", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Result Status `json:"result"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Result.QueueLength != 3 {
		t.Errorf("queue length = %d, want 3", body.Result.QueueLength)
	}
	if body.Result.Position[1] != 20 {
		t.Errorf("position Y = %g, want 20", body.Result.Position[1])
	}
	if body.Result.Uptime < 0 {
		t.Errorf("uptime = %g, want non-negative", body.Result.Uptime)
	}
}

func TestStatusRejectsPost(t *testing.T) {
	s := NewServer(Config{Addr: ":0", Source: testSource()})

	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest("POST", "/status", nil))
	if rec.Code != 405 {
		t.Errorf("POST status = %d, want 405", rec.Code)
	}
}

func TestStreamDeliversSnapshots(t *testing.T) {
	s := NewServer(Config{Addr: ":0", Interval: 20 * time.Millisecond, Source: testSource()})
	go s.broadcastLoop()
	defer s.Stop()

	ts := httptest.NewServer(s.httpServer.Handler)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The connect-time snapshot arrives first, then the ticker ones.
	var got Status
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read first snapshot: %v", err)
	}
	if got.QueueLength != 3 || got.Mode != "basic" {
		t.Errorf("snapshot = %+v", got)
	}

	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read broadcast snapshot: %v", err)
	}
	if got.LastCommand != "G1 X10 Y20" {
		t.Errorf("broadcast snapshot = %+v", got)
	}
}

func TestClientCountTracksConnections(t *testing.T) {
	s := NewServer(Config{Addr: ":0", Interval: time.Hour, Source: testSource()})
	defer s.Stop()

	ts := httptest.NewServer(s.httpServer.Handler)
	defer ts.Close()

	if n := s.ClientCount(); n != 0 {
		t.Fatalf("initial client count = %d, want 0", n)
	}

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	waitFor(t, func() bool { return s.ClientCount() == 1 })
	conn.Close()
	waitFor(t, func() bool { return s.ClientCount() == 0 })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}
