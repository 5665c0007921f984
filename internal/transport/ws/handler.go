package ws

import (
	"aliasgame/internal/model"
	"aliasgame/internal/service"
	"aliasgame/internal/transport/rest/middleware"
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// Handler handles WebSocket connections
type Handler struct {
	hub     *Hub
	authSvc *service.AuthService
	roomSvc *service.RoomService
	gameSvc *service.GameService
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, authSvc *service.AuthService, roomSvc *service.RoomService, gameSvc *service.GameService) *Handler {
	return &Handler{
		hub:     hub,
		authSvc: authSvc,
		roomSvc: roomSvc,
		gameSvc: gameSvc,
	}
}

// RoomWS handles GET /v1/ws/rooms/{roomId}
func (h *Handler) RoomWS(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]
	token := middleware.ExtractToken(r, roomID)

	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.authSvc.ValidatePlayerToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if claims.RoomID != roomID {
		http.Error(w, "token not valid for this room", http.StatusForbidden)
		return
	}
	if _, err := h.roomSvc.GetPlayer(r.Context(), roomID, claims.PlayerID); err != nil {
		http.Error(w, "player not found", http.StatusForbidden)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := &Connection{
		RoomID:   roomID,
		PlayerID: claims.PlayerID,
		Send:     make(chan []byte, 256),
		Hub:      h.hub,
	}

	h.hub.Register(conn)
	log.Info().Str("room_id", roomID).Str("player_id", claims.PlayerID).Msg("player connected")

	ctx := context.Background()
	if err := h.roomSvc.SetOnline(ctx, roomID, claims.PlayerID, true); err != nil {
		log.Error().Err(err).Str("player_id", claims.PlayerID).Msg("failed to mark player online")
	}
	h.sendSnapshot(ctx, roomID, claims.PlayerID)

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

// sendSnapshot gives a fresh connection the current game state
func (h *Handler) sendSnapshot(ctx context.Context, roomID, playerID string) {
	room, err := h.roomSvc.GetRoom(ctx, roomID)
	if err != nil || room.CurrentGameID == "" {
		return
	}
	state, err := h.gameSvc.GetGameState(ctx, room.CurrentGameID)
	if err != nil {
		log.Error().Err(err).Str("game_id", room.CurrentGameID).Msg("failed to load game state")
		return
	}
	h.hub.Publish(playerID, model.EventGameState, state)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		left := h.hub.Unregister(conn)
		wsConn.Close()
		log.Info().Str("room_id", conn.RoomID).Str("player_id", conn.PlayerID).Int("open", left).Msg("player disconnected")
		if left > 0 {
			return
		}
		if err := h.roomSvc.SetOnline(context.Background(), conn.RoomID, conn.PlayerID, false); err != nil {
			log.Debug().Err(err).Str("player_id", conn.PlayerID).Msg("failed to mark player offline")
		}
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("player_id", conn.PlayerID).Msg("websocket error")
			}
			break
		}
		// Actions go through the REST API; inbound frames only keep the
		// connection alive.
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
