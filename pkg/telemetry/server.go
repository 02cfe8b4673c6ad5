// WebSocket and REST status server
//
// Copyright (C) 2026  Motionhost Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package telemetry

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"motionhost/pkg/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 16
)

// Server broadcasts Status snapshots to connected WebSocket clients at
// a fixed interval and serves /status for one-shot queries.
type Server struct {
	source   Source
	interval time.Duration
	logger   *log.Logger

	httpServer *http.Server
	upgrader   websocket.Upgrader

	mu      sync.RWMutex
	clients map[int64]*client
	nextID  int64

	running   atomic.Bool
	stop      chan struct{}
	stopOnce  sync.Once
	startTime time.Time
}

// Config holds server settings.
type Config struct {
	// Addr is the HTTP listen address (e.g. ":7130").
	Addr string

	// Interval between broadcast snapshots. Zero means 250ms.
	Interval time.Duration

	Source Source
}

// NewServer creates a telemetry server; call Start to serve.
func NewServer(cfg Config) *Server {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	s := &Server{
		source:    cfg.Source,
		interval:  interval,
		logger:    log.GetLogger("telemetry"),
		clients:   make(map[int64]*client),
		stop:      make(chan struct{}),
		startTime: time.Now(),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/stream", s.handleStream)
	s.httpServer = &http.Server{Addr: cfg.Addr, Handler: mux}
	return s
}

// Start serves HTTP and runs the broadcast loop; it blocks until Stop.
func (s *Server) Start() error {
	s.running.Store(true)
	s.logger.Info("telemetry server starting on %s", s.httpServer.Addr)
	go s.broadcastLoop()
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop closes all clients and the listener.
func (s *Server) Stop() error {
	s.running.Store(false)
	s.stopOnce.Do(func() { close(s.stop) })

	s.mu.Lock()
	for _, c := range s.clients {
		c.close()
	}
	s.clients = make(map[int64]*client)
	s.mu.Unlock()

	return s.httpServer.Close()
}

// ClientCount reports the number of connected stream clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) snapshot() Status {
	var st Status
	if s.source != nil {
		st = s.source.Snapshot()
	}
	st.Uptime = time.Since(s.startTime).Seconds()
	return st
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"result": s.snapshot()})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed: %v", err)
		return
	}

	c := &client{
		id:     atomic.AddInt64(&s.nextID, 1),
		conn:   conn,
		sendCh: make(chan Status, sendBuffer),
		done:   make(chan struct{}),
		logger: s.logger,
	}

	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	s.logger.Debug("stream client %d connected", c.id)

	go c.writePump()

	// The first snapshot goes out immediately so the client is not
	// left waiting a full interval.
	c.send(s.snapshot())

	c.readPump()
	s.removeClient(c)
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
	c.close()
	s.logger.Debug("stream client %d disconnected", c.id)
}

func (s *Server) broadcastLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			st := s.snapshot()
			s.mu.RLock()
			for _, c := range s.clients {
				c.send(st)
			}
			s.mu.RUnlock()
		case <-s.stop:
			return
		}
	}
}

// client is one WebSocket subscriber. Writes go through sendCh so the
// broadcast loop never blocks on a slow consumer.
type client struct {
	id     int64
	conn   *websocket.Conn
	sendCh chan Status
	done   chan struct{}
	logger *log.Logger

	closeOnce sync.Once
}

func (c *client) send(st Status) {
	select {
	case c.sendCh <- st:
	case <-c.done:
	default:
		// Slow consumer: drop this snapshot, the next tick replaces it.
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// readPump discards inbound frames; it exists only to process control
// messages and detect disconnects.
func (c *client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("stream client %d read error: %v", c.id, err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case st := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(st); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
