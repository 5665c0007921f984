package handler

import (
	"aliasgame/internal/apperr"
	"aliasgame/internal/model"
	"aliasgame/internal/service"
	"aliasgame/internal/transport/rest/middleware"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// GameHandler handles game endpoints. The player comes from the auth
// middleware; the engine decides what they may do.
type GameHandler struct {
	gameSvc *service.GameService
}

// NewGameHandler creates a new game handler
func NewGameHandler(gameSvc *service.GameService) *GameHandler {
	return &GameHandler{gameSvc: gameSvc}
}

// Create handles POST /v1/rooms/{roomId}/games
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	var settings model.GameSettings
	if err := decodeAndValidate(r, &settings); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	gameID, err := h.gameSvc.CreateGame(r.Context(), mux.Vars(r)["roomId"], middleware.GetPlayerID(r.Context()), settings)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"gameId": gameID})
}

// Get handles GET /v1/games/{gameId}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	state, ok := h.stateInRoom(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// Start handles POST /v1/rooms/{roomId}/games/{gameId}/start
func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.gameSvc.StartGame(r.Context(), vars["roomId"], vars["gameId"], middleware.GetPlayerID(r.Context())); err != nil {
		writeAppError(w, r, err)
		return
	}
	h.writeState(w, r, vars["gameId"])
}

// JoinTeam handles POST /v1/rooms/{roomId}/teams/{teamId}/join
func (h *GameHandler) JoinTeam(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.gameSvc.JoinTeam(r.Context(), vars["roomId"], vars["teamId"], middleware.GetPlayerID(r.Context())); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"teamId": vars["teamId"]})
}

// StartRound handles POST /v1/rooms/{roomId}/games/{gameId}/rounds/start
func (h *GameHandler) StartRound(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.gameSvc.StartRound(r.Context(), vars["roomId"], vars["gameId"], middleware.GetPlayerID(r.Context())); err != nil {
		writeAppError(w, r, err)
		return
	}
	h.writeState(w, r, vars["gameId"])
}

// FinishRound handles POST /v1/rooms/{roomId}/games/{gameId}/rounds/finish
func (h *GameHandler) FinishRound(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.gameSvc.FinishRound(r.Context(), vars["roomId"], vars["gameId"], middleware.GetPlayerID(r.Context())); err != nil {
		writeAppError(w, r, err)
		return
	}
	h.writeState(w, r, vars["gameId"])
}

// Word handles GET /v1/games/{gameId}/word
func (h *GameHandler) Word(w http.ResponseWriter, r *http.Request) {
	word, err := h.gameSvc.GetWord(r.Context(), mux.Vars(r)["gameId"], middleware.GetPlayerID(r.Context()))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"word": word})
}

// GuessRequest is the request body for registering a guess
type GuessRequest struct {
	Guessed *bool `json:"guessed" validate:"required"`
}

// RegisterGuess handles POST /v1/rooms/{roomId}/games/{gameId}/guesses
func (h *GameHandler) RegisterGuess(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req GuessRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	next, err := h.gameSvc.RegisterGuess(r.Context(), vars["roomId"], vars["gameId"], middleware.GetPlayerID(r.Context()), *req.Guessed)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"word": next})
}

// UpdateGuess handles PATCH /v1/rooms/{roomId}/games/{gameId}/guesses/{guessId}
func (h *GameHandler) UpdateGuess(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var patch model.GuessPatch
	if err := decodeAndValidate(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	guess, err := h.gameSvc.UpdateGuess(r.Context(), vars["roomId"], vars["gameId"], middleware.GetPlayerID(r.Context()), vars["guessId"], patch)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, guess)
}

// Guesses handles GET /v1/games/{gameId}/guesses?round=&teamId=
func (h *GameHandler) Guesses(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.stateInRoom(w, r); !ok {
		return
	}
	q := r.URL.Query()
	round := 0
	if v := q.Get("round"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "round must be a positive integer")
			return
		}
		round = n
	}

	guesses, err := h.gameSvc.GetGuesses(r.Context(), mux.Vars(r)["gameId"], round, q.Get("teamId"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, guesses)
}

// Score handles GET /v1/games/{gameId}/score?teamId=
func (h *GameHandler) Score(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.stateInRoom(w, r); !ok {
		return
	}
	scores, err := h.gameSvc.GetScore(r.Context(), mux.Vars(r)["gameId"], r.URL.Query()["teamId"])
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

// stateInRoom loads the game and hides it from players of other rooms
func (h *GameHandler) stateInRoom(w http.ResponseWriter, r *http.Request) (*model.GameState, bool) {
	state, err := h.gameSvc.GetGameState(r.Context(), mux.Vars(r)["gameId"])
	if err == nil && state.RoomID != middleware.GetRoomID(r.Context()) {
		err = apperr.NotFound("game not found")
	}
	if err != nil {
		writeAppError(w, r, err)
		return nil, false
	}
	return state, true
}

func (h *GameHandler) writeState(w http.ResponseWriter, r *http.Request, gameID string) {
	state, err := h.gameSvc.GetGameState(r.Context(), gameID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
