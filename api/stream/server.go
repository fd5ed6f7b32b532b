// Package stream pushes simulation events to browsers over WebSocket. A new
// connection first receives the current fleet, map trace and requests, then
// every broadcast as it happens.
package stream

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kilianp07/dronedispatch/core/events"
	"github.com/kilianp07/dronedispatch/core/logger"
	"github.com/kilianp07/dronedispatch/core/sim"
	"github.com/kilianp07/dronedispatch/internal/eventbus"
)

// TopicRequests carries the full request list in the initial snapshot.
const TopicRequests eventbus.Topic = "requests"

// Source is the part of the simulation the stream reads.
type Source interface {
	Snapshot() sim.Snapshot
	Subscribe(topics ...eventbus.Topic) <-chan eventbus.Event
	Unsubscribe(ch <-chan eventbus.Event)
}

// Message is one frame sent to the client.
type Message struct {
	Event eventbus.Topic `json:"event"`
	Data  any            `json:"data"`
}

// Config tunes connection keepalive.
type Config struct {
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64
}

func (c *Config) setDefaults() {
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 4096
	}
}

// Server handles WebSocket connections.
type Server struct {
	cfg      Config
	src      Source
	log      logger.Logger
	upgrader websocket.Upgrader
	active   atomic.Int64
}

// NewServer creates a new WebSocket server.
func NewServer(src Source, cfg Config, log logger.Logger) *Server {
	cfg.setDefaults()
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Server{
		cfg: cfg,
		src: src,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Connections returns the number of open connections.
func (s *Server) Connections() int { return int(s.active.Load()) }

// ServeHTTP upgrades the request and starts the pumps.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("websocket upgrade failed: %v", err)
		return
	}
	id := uuid.NewString()
	ws.SetReadLimit(s.cfg.MaxMessageSize)

	// Subscribe before taking the snapshot so no broadcast falls between them.
	sub := s.src.Subscribe(events.Topics...)
	snap := s.src.Snapshot()
	s.active.Add(1)
	s.log.Debugw("websocket connected", map[string]any{"conn": id, "remote": r.RemoteAddr})

	done := make(chan struct{})
	go s.readPump(ws, done)
	go s.writePump(ws, id, sub, snap, done)
}

// readPump discards client frames and detects disconnects.
func (s *Server) readPump(ws *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	_ = ws.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	})
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debugf("websocket read: %v", err)
			}
			return
		}
	}
}

func (s *Server) writePump(ws *websocket.Conn, id string, sub <-chan eventbus.Event, snap sim.Snapshot, done <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		s.src.Unsubscribe(sub)
		_ = ws.Close()
		s.active.Add(-1)
		s.log.Debugw("websocket closed", map[string]any{"conn": id})
	}()

	initial := []Message{
		{Event: events.TopicFleetUpdate, Data: events.FleetUpdate{Agents: snap.Agents}},
		{Event: events.TopicMapUpdate, Data: events.MapUpdate{Points: snap.Points}},
		{Event: TopicRequests, Data: snap.Requests},
	}
	for _, m := range initial {
		if err := s.write(ws, m); err != nil {
			return
		}
	}

	for {
		select {
		case <-done:
			return
		case ev, ok := <-sub:
			if !ok {
				_ = ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
				_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"))
				return
			}
			if err := s.write(ws, Message{Event: ev.Topic, Data: ev.Payload}); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) write(ws *websocket.Conn, m Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		s.log.Errorf("encode %s: %v", m.Event, err)
		return nil
	}
	_ = ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		s.log.Debugf("websocket write: %v", err)
		return err
	}
	return nil
}
