package handler

import (
	"aliasgame/internal/service"
	"aliasgame/internal/transport/rest/middleware"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/skip2/go-qrcode"
)

// RoomHandler handles room endpoints
type RoomHandler struct {
	roomSvc   *service.RoomService
	resultSvc *service.ResultService
	tokenTTL  time.Duration
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(roomSvc *service.RoomService, resultSvc *service.ResultService, tokenTTL time.Duration) *RoomHandler {
	return &RoomHandler{
		roomSvc:   roomSvc,
		resultSvc: resultSvc,
		tokenTTL:  tokenTTL,
	}
}

// Create handles POST /v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	room, err := h.roomSvc.CreateRoom(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

// Get handles GET /v1/rooms/{roomId}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	room, err := h.roomSvc.GetRoom(r.Context(), mux.Vars(r)["roomId"])
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// JoinRequest is the request body for joining a room
type JoinRequest struct {
	Nickname string `json:"nickname" validate:"required,min=1,max=32"`
}

// Join handles POST /v1/rooms/{roomId}/join
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]

	var req JoinRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.roomSvc.JoinRoom(r.Context(), roomID, req.Nickname)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName(roomID),
		Value:    resp.Token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusCreated, resp)
}

// Players handles GET /v1/rooms/{roomId}/players
func (h *RoomHandler) Players(w http.ResponseWriter, r *http.Request) {
	players, err := h.roomSvc.GetPlayers(r.Context(), mux.Vars(r)["roomId"])
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

// Me handles GET /v1/rooms/{roomId}/me
func (h *RoomHandler) Me(w http.ResponseWriter, r *http.Request) {
	player, err := h.roomSvc.GetPlayer(r.Context(), mux.Vars(r)["roomId"], middleware.GetPlayerID(r.Context()))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

// Kick handles POST /v1/rooms/{roomId}/players/{playerId}/kick
func (h *RoomHandler) Kick(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	err := h.roomSvc.KickPlayer(r.Context(), vars["roomId"], middleware.GetPlayerID(r.Context()), vars["playerId"])
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "kicked"})
}

// Close handles POST /v1/rooms/{roomId}/close
func (h *RoomHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.roomSvc.CloseRoom(r.Context(), mux.Vars(r)["roomId"], middleware.GetPlayerID(r.Context())); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "CLOSED"})
}

// Leaderboard handles GET /v1/rooms/{roomId}/leaderboard
func (h *RoomHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.resultSvc.Leaderboard(r.Context(), roomID, limit)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"roomId":  roomID,
		"entries": entries,
	})
}

// Results handles GET /v1/rooms/{roomId}/results
func (h *RoomHandler) Results(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)

	results, err := h.resultSvc.ListResults(r.Context(), mux.Vars(r)["roomId"], limit)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// QR handles GET /v1/rooms/{roomId}/qr with a PNG of the room's join link
func (h *RoomHandler) QR(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]
	if _, err := h.roomSvc.GetRoom(r.Context(), roomID); err != nil {
		writeAppError(w, r, err)
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	link := scheme + "://" + r.Host + "/rooms/" + roomID

	const qrSize = 320
	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "qr generation failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}
