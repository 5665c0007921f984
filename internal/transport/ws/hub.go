package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans events out to the connections subscribed to a channel. Every
// player connection listens on its room id and its own player id.
type Hub struct {
	// channel -> connections
	subs map[string]map[*Connection]struct{}

	mu sync.RWMutex

	// Channels for coordination
	register   chan *Connection
	unregister chan *unregisterRequest
	broadcast  chan *BroadcastMessage
}

// Connection represents a WebSocket connection
type Connection struct {
	RoomID   string
	PlayerID string
	Send     chan []byte
	Hub      *Hub
}

// Channels returns the notification channels the connection listens on
func (c *Connection) Channels() []string {
	return []string{c.RoomID, c.PlayerID}
}

// unregisterRequest carries the number of connections the player still
// has once conn is removed
type unregisterRequest struct {
	conn *Connection
	left chan int
}

// BroadcastMessage is a message addressed to one channel
type BroadcastMessage struct {
	Channel string
	Data    []byte
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		subs:       make(map[string]map[*Connection]struct{}),
		register:   make(chan *Connection),
		unregister: make(chan *unregisterRequest),
		broadcast:  make(chan *BroadcastMessage, 1024),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			for _, ch := range conn.Channels() {
				if h.subs[ch] == nil {
					h.subs[ch] = make(map[*Connection]struct{})
				}
				h.subs[ch][conn] = struct{}{}
			}
			h.mu.Unlock()
			log.Debug().Str("room_id", conn.RoomID).Str("player_id", conn.PlayerID).Msg("connection registered")

		case req := <-h.unregister:
			conn := req.conn
			h.mu.Lock()
			known := false
			for _, ch := range conn.Channels() {
				if set, ok := h.subs[ch]; ok {
					if _, ok := set[conn]; ok {
						known = true
						delete(set, conn)
					}
					if len(set) == 0 {
						delete(h.subs, ch)
					}
				}
			}
			if known {
				close(conn.Send)
			}
			left := len(h.subs[conn.PlayerID])
			h.mu.Unlock()
			req.left <- left
			log.Debug().Str("room_id", conn.RoomID).Str("player_id", conn.PlayerID).Msg("connection unregistered")

		case msg := <-h.broadcast:
			h.mu.RLock()
			for conn := range h.subs[msg.Channel] {
				select {
				case conn.Send <- msg.Data:
				default:
					// Drop message if buffer full
					log.Warn().Str("channel", msg.Channel).Str("player_id", conn.PlayerID).Msg("send buffer full, dropping message")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection and returns how many connections the
// same player still has open
func (h *Hub) Unregister(conn *Connection) int {
	req := &unregisterRequest{conn: conn, left: make(chan int, 1)}
	h.unregister <- req
	return <-req.left
}

// Publish delivers an event to every connection on the channel
// (implements service.Notifier)
func (h *Hub) Publish(channel, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to encode payload")
		return
	}
	h.PublishRaw(channel, event, data)
}

// PublishRaw delivers an already encoded payload
func (h *Hub) PublishRaw(channel, event string, payload json.RawMessage) {
	data, err := json.Marshal(&Message{Type: event, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to encode message")
		return
	}
	select {
	case h.broadcast <- &BroadcastMessage{Channel: channel, Data: data}:
	default:
		log.Warn().Str("channel", channel).Str("event", event).Msg("broadcast queue full, dropping message")
	}
}

// Subscribers returns how many connections listen on a channel
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[channel])
}
