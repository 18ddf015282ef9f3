package server

import (
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"autobattler/internal/combat"
)

// Envelope is what spectators receive for every match event.
type Envelope struct {
	Type    string          `json:"type"`
	Tick    int             `json:"tick"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans match events out to the websocket spectators of one match.
type Hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
	log        *slog.Logger
}

func newHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    map[*client]bool{},
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return
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
					h.log.Debug("dropping slow spectator", "client", c.id)
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

func (h *Hub) stop() { close(h.done) }

// Publish is the match's emit hook. It never blocks the simulation: when
// the queue is full the event is dropped.
func (h *Hub) Publish(ev combat.Event) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		h.log.Error("marshal event", "type", ev.Type, "err", err)
		return
	}
	b, _ := json.Marshal(Envelope{Type: ev.Type, Tick: ev.Tick, Payload: payload})
	select {
	case h.broadcast <- b:
	default:
		h.log.Warn("spectator queue full", "type", ev.Type, "tick", ev.Tick)
	}
}

func (h *Hub) attach(conn *websocket.Conn) *client {
	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, 128)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return nil
	}
	go c.writer()
	go c.reader(h)
	return c
}

// reader only watches for the spectator going away.
func (c *client) reader(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writer() {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
