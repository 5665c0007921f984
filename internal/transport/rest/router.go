package rest

import (
	"aliasgame/internal/service"
	"aliasgame/internal/transport/rest/docs"
	"aliasgame/internal/transport/rest/handler"
	"aliasgame/internal/transport/rest/middleware"
	"aliasgame/internal/transport/ws"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/swaggo/swag"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService   *service.AuthService
	RoomService   *service.RoomService
	GameService   *service.GameService
	ResultService *service.ResultService
	WSHandler     *ws.Handler
	TokenTTL      time.Duration
	CORSOrigins   string
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	roomHandler := handler.NewRoomHandler(c.RoomService, c.ResultService, c.TokenTTL)
	gameHandler := handler.NewGameHandler(c.GameService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.CORSOrigins))

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/rooms", roomHandler.Create).Methods("POST", "OPTIONS")
	v1.HandleFunc("/rooms/{roomId}", roomHandler.Get).Methods("GET", "OPTIONS")
	v1.HandleFunc("/rooms/{roomId}/join", roomHandler.Join).Methods("POST", "OPTIONS")
	v1.HandleFunc("/rooms/{roomId}/qr", roomHandler.QR).Methods("GET", "OPTIONS")
	v1.HandleFunc("/rooms/{roomId}/leaderboard", roomHandler.Leaderboard).Methods("GET", "OPTIONS")
	v1.HandleFunc("/rooms/{roomId}/results", roomHandler.Results).Methods("GET", "OPTIONS")
	v1.HandleFunc("/docs/doc.json", docHandler).Methods("GET")

	// WebSocket route (token in header, cookie or query param)
	if c.WSHandler != nil {
		v1.HandleFunc("/ws/rooms/{roomId}", c.WSHandler.RoomWS).Methods("GET")
	}

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Player routes (require player auth)
	playerRoutes := v1.NewRoute().Subrouter()
	playerRoutes.Use(authMW.RequirePlayer)

	playerRoutes.HandleFunc("/rooms/{roomId}/me", roomHandler.Me).Methods("GET", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{roomId}/players", roomHandler.Players).Methods("GET", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{roomId}/players/{playerId}/kick", roomHandler.Kick).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{roomId}/close", roomHandler.Close).Methods("POST", "OPTIONS")

	playerRoutes.HandleFunc("/rooms/{roomId}/games", gameHandler.Create).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{roomId}/games/{gameId}/start", gameHandler.Start).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{roomId}/teams/{teamId}/join", gameHandler.JoinTeam).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{roomId}/games/{gameId}/rounds/start", gameHandler.StartRound).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{roomId}/games/{gameId}/rounds/finish", gameHandler.FinishRound).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{roomId}/games/{gameId}/guesses", gameHandler.RegisterGuess).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{roomId}/games/{gameId}/guesses/{guessId}", gameHandler.UpdateGuess).Methods("PATCH", "OPTIONS")

	playerRoutes.HandleFunc("/games/{gameId}", gameHandler.Get).Methods("GET", "OPTIONS")
	playerRoutes.HandleFunc("/games/{gameId}/word", gameHandler.Word).Methods("GET", "OPTIONS")
	playerRoutes.HandleFunc("/games/{gameId}/guesses", gameHandler.Guesses).Methods("GET", "OPTIONS")
	playerRoutes.HandleFunc("/games/{gameId}/score", gameHandler.Score).Methods("GET", "OPTIONS")

	return r
}

func docHandler(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	if err != nil {
		http.Error(w, `{"error":"doc unavailable"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(doc))
}

func corsMiddleware(allowedOrigins string) mux.MiddlewareFunc {
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if allowedOrigins != "*" {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
