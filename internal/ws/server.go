// Package ws is the player gateway: each websocket connection is one player
// in the world. World calls are queued onto the main loop.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"stockade/internal/world"
)

// Loop runs functions on the main loop.
type Loop interface {
	Do(fn func())
}

type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	userID uuid.UUID
	name   string

	closeOnce sync.Once
}

func (c *Client) Notice(msg string) {
	c.sendJSON(Notice{Type: "notice", ProtocolVersion: ProtocolVersion, Message: msg})
}

func (c *Client) Position(p world.Coordinate) {
	c.sendJSON(PositionUpdate{Type: "position", ProtocolVersion: ProtocolVersion, Position: p})
}

func (c *Client) sendJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	safeSend(c.send, b)
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

type Server struct {
	world    *world.World
	loop     Loop
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[uuid.UUID]*Client
}

func NewServer(w *world.World, loop Loop) *Server {
	return &Server{
		world:    w,
		loop:     loop,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:  map[uuid.UUID]*Client{},
	}
}

func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &Client{conn: conn, send: make(chan []byte, 32)}

	go s.writeLoop(client)
	s.readLoop(client)
}

func (s *Server) readLoop(c *Client) {
	defer func() {
		s.unregister(c)
		c.close()
	}()
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		s.handleMessage(c, msg)
	}
}

func (s *Server) writeLoop(c *Client) {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (s *Server) handleMessage(c *Client, msg []byte) {
	var base struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &base); err != nil {
		s.sendError(c, "invalid_json")
		return
	}
	switch base.Type {
	case "hello":
		var hello HelloMessage
		if err := json.Unmarshal(msg, &hello); err != nil {
			s.sendError(c, "invalid_json")
			return
		}
		s.handleHello(c, hello)
	case "move":
		if c.userID == uuid.Nil {
			s.sendError(c, "hello_required")
			return
		}
		var move MoveMessage
		if err := json.Unmarshal(msg, &move); err != nil {
			s.sendError(c, "invalid_json")
			return
		}
		s.handleMove(c, move)
	case "respawn":
		if c.userID == uuid.Nil {
			s.sendError(c, "hello_required")
			return
		}
		id := c.userID
		s.loop.Do(func() { s.world.Respawn(id) })
	default:
		s.sendError(c, "unknown_type")
	}
}

func (s *Server) handleHello(c *Client, hello HelloMessage) {
	if c.userID != uuid.Nil {
		s.sendError(c, "already_connected")
		return
	}
	id, err := uuid.Parse(hello.UserID)
	if err != nil || id == uuid.Nil {
		s.sendError(c, "invalid_user_id")
		return
	}
	c.userID = id
	c.name = hello.Name

	s.mu.Lock()
	old := s.clients[id]
	s.clients[id] = c
	s.mu.Unlock()
	if old != nil {
		old.close()
	}

	s.loop.Do(func() {
		pos := s.world.Connect(id, hello.Name, c)
		c.sendJSON(Welcome{Type: "welcome", ProtocolVersion: ProtocolVersion, UserID: id.String(), Position: pos})
	})
	log.Info().Str("user_id", id.String()).Str("name", hello.Name).Msg("ws_hello")
}

func (s *Server) handleMove(c *Client, move MoveMessage) {
	id := c.userID
	s.loop.Do(func() {
		p, ok := s.world.Player(id)
		if !ok {
			s.sendError(c, "not_connected")
			return
		}
		to := world.Coordinate{World: move.World, X: move.X, Y: move.Y, Z: move.Z, Yaw: p.Position.Yaw, Pitch: p.Position.Pitch}
		if to.World == "" {
			to.World = p.Position.World
		}
		moved := s.world.MovePlayer(id, to)
		after, _ := s.world.Player(id)
		c.sendJSON(MoveResult{Type: "move_result", ProtocolVersion: ProtocolVersion, Ok: moved, Position: after.Position})
	})
}

// unregister disconnects the player unless a newer connection took over.
func (s *Server) unregister(c *Client) {
	if c.userID == uuid.Nil {
		return
	}
	s.mu.Lock()
	current := s.clients[c.userID] == c
	if current {
		delete(s.clients, c.userID)
	}
	s.mu.Unlock()
	if current {
		id := c.userID
		s.loop.Do(func() { s.world.Disconnect(id) })
	}
}

// Connected reports how many players have an open connection.
func (s *Server) Connected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) sendError(c *Client, code string) {
	c.sendJSON(ErrorMessage{Type: "error", ProtocolVersion: ProtocolVersion, Error: code})
}

func safeSend(ch chan []byte, msg []byte) {
	defer func() { _ = recover() }()
	select {
	case ch <- msg:
	default:
	}
}
