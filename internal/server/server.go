// Package server streams per-frame simulation state to websocket clients
// and applies their control actions (speed sliders, spawn buttons, tolls)
// to the engine.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"trafficlab/internal/engine"
)

// Server -> client events.
const (
	EventScenario = "scenario"
	EventFrame    = "frame"
)

// Client -> server actions.
const (
	ActionSetSpeed = "set_speed"
	ActionSpawn    = "spawn"
	ActionSetToll  = "set_toll"
)

// Envelope wraps every message on the wire.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type SetSpeedPayload struct {
	Road   string  `json:"road"`
	Factor float64 `json:"factor"`
}
type SpawnPayload struct {
	Road  string `json:"road"`
	Color string `json:"color"`
}
type SetTollPayload struct {
	Road string  `json:"road"`
	Toll float64 `json:"toll"`
}

// ScenarioPayload is sent once per connection so the renderer can draw
// the road layout before the first frame arrives.
type ScenarioPayload struct {
	Name  string             `json:"name"`
	Roads []engine.RoadState `json:"roads"`
}

// TollSetter is the slice of the router the set_toll action needs.
// Nil when the active scenario has no priced router.
type TollSetter interface {
	SetToll(roadID string, toll float64)
}

type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
}

// Hub fans broadcast frames out to connected clients; clients that can't
// keep up are dropped rather than allowed to stall the loop.
type Hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
}

func newHub() *Hub {
	return &Hub{
		clients:    map[*client]bool{},
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
	}
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// Server wires a hub to one engine.
type Server struct {
	eng      *engine.Engine
	name     string
	pricer   TollSetter
	hub      *Hub
	upgrader websocket.Upgrader
	log      *logrus.Entry
}

// New builds a server for an engine. pricer may be nil.
func New(eng *engine.Engine, scenarioName string, pricer TollSetter) *Server {
	return &Server{
		eng:      eng,
		name:     scenarioName,
		pricer:   pricer,
		hub:      newHub(),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		log:      logrus.WithField("component", "server"),
	}
}

// Run pumps the hub until the process exits.
func (s *Server) Run() { s.hub.run() }

// BroadcastFrame pushes one frame's snapshot to every client. Called from
// the loop's OnFrame hook, outside the engine lock.
func (s *Server) BroadcastFrame(snap engine.Snapshot) {
	s.announce(EventFrame, snap)
}

func (s *Server) announce(eventType string, data interface{}) {
	payload, _ := json.Marshal(data)
	b, _ := json.Marshal(Envelope{Type: eventType, Payload: payload})
	s.hub.broadcast <- b
}

// ServeWS upgrades a connection and attaches it to the hub.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{id: uuid.New(), conn: conn, send: make(chan []byte, 128)}
	s.hub.register <- c
	s.log.WithField("client", c.id).Info("client connected")
	go s.writer(c)
	go s.reader(c)
	s.sendScenario(c)
}

func (s *Server) sendScenario(c *client) {
	s.eng.Mu.Lock()
	snap := s.eng.Snapshot()
	s.eng.Mu.Unlock()
	payload, _ := json.Marshal(ScenarioPayload{Name: s.name, Roads: snap.Roads})
	b, _ := json.Marshal(Envelope{Type: EventScenario, Payload: payload})
	c.send <- b
}

func (s *Server) writer(c *client) {
	for msg := range c.send {
		c.conn.WriteMessage(websocket.TextMessage, msg)
	}
}

func (s *Server) reader(c *client) {
	defer func() {
		s.hub.unregister <- c
		c.conn.Close()
		s.log.WithField("client", c.id).Info("client disconnected")
	}()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var env Envelope
		if json.Unmarshal(data, &env) != nil {
			continue
		}
		s.apply(env)
	}
}

// apply executes one control action under the engine lock.
func (s *Server) apply(env Envelope) {
	switch env.Type {
	case ActionSetSpeed:
		var p SetSpeedPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		s.eng.Mu.Lock()
		s.eng.UpdateSpeed(p.Road, p.Factor)
		s.eng.Mu.Unlock()
		s.log.WithFields(logrus.Fields{"road": p.Road, "factor": p.Factor}).Info("speed updated")
	case ActionSpawn:
		var p SpawnPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		s.eng.Mu.Lock()
		ok := s.eng.TrySpawn(p.Road, p.Color, nil)
		s.eng.Mu.Unlock()
		s.log.WithFields(logrus.Fields{"road": p.Road, "admitted": ok}).Debug("manual spawn")
	case ActionSetToll:
		if s.pricer == nil {
			return
		}
		var p SetTollPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		s.eng.Mu.Lock()
		s.pricer.SetToll(p.Road, p.Toll)
		s.eng.Mu.Unlock()
		s.log.WithFields(logrus.Fields{"road": p.Road, "toll": p.Toll}).Info("toll updated")
	}
}
