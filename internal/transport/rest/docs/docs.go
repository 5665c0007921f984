// Package docs registers the OpenAPI description of the HTTP API with swag.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "PlayerToken": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/rooms": {"post": {"summary": "Create a room", "responses": {"201": {"description": "room"}}}},
        "/rooms/{roomId}": {"get": {"summary": "Get a room", "responses": {"200": {"description": "room"}, "404": {"description": "not found"}}}},
        "/rooms/{roomId}/join": {"post": {"summary": "Join a room with a nickname", "responses": {"201": {"description": "player and token"}, "409": {"description": "nickname taken"}}}},
        "/rooms/{roomId}/me": {"get": {"summary": "Current player", "security": [{"PlayerToken": []}], "responses": {"200": {"description": "player"}}}},
        "/rooms/{roomId}/players": {"get": {"summary": "List players", "security": [{"PlayerToken": []}], "responses": {"200": {"description": "players"}}}},
        "/rooms/{roomId}/players/{playerId}/kick": {"post": {"summary": "Kick a player (admin)", "security": [{"PlayerToken": []}], "responses": {"200": {"description": "kicked"}, "403": {"description": "not admin"}}}},
        "/rooms/{roomId}/close": {"post": {"summary": "Close the room (admin)", "security": [{"PlayerToken": []}], "responses": {"200": {"description": "closed"}}}},
        "/rooms/{roomId}/qr": {"get": {"summary": "Join link as PNG QR code", "produces": ["image/png"], "responses": {"200": {"description": "png"}}}},
        "/rooms/{roomId}/leaderboard": {"get": {"summary": "Wins per nickname", "responses": {"200": {"description": "entries"}}}},
        "/rooms/{roomId}/results": {"get": {"summary": "Archived games", "responses": {"200": {"description": "results"}}}},
        "/rooms/{roomId}/games": {"post": {"summary": "Create a game (admin)", "security": [{"PlayerToken": []}], "responses": {"201": {"description": "game id"}}}},
        "/rooms/{roomId}/games/{gameId}/start": {"post": {"summary": "Start the game (admin)", "security": [{"PlayerToken": []}], "responses": {"200": {"description": "game state"}}}},
        "/rooms/{roomId}/teams/{teamId}/join": {"post": {"summary": "Join a team", "security": [{"PlayerToken": []}], "responses": {"200": {"description": "joined"}}}},
        "/rooms/{roomId}/games/{gameId}/rounds/start": {"post": {"summary": "Open the guessing window (active player)", "security": [{"PlayerToken": []}], "responses": {"200": {"description": "game state"}}}},
        "/rooms/{roomId}/games/{gameId}/rounds/finish": {"post": {"summary": "Finish the turn after correction (active player)", "security": [{"PlayerToken": []}], "responses": {"200": {"description": "game state"}}}},
        "/rooms/{roomId}/games/{gameId}/guesses": {"post": {"summary": "Register a guess (active player)", "security": [{"PlayerToken": []}], "responses": {"200": {"description": "next word"}}}},
        "/rooms/{roomId}/games/{gameId}/guesses/{guessId}": {"patch": {"summary": "Correct a guess (active team)", "security": [{"PlayerToken": []}], "responses": {"200": {"description": "guess"}}}},
        "/games/{gameId}": {"get": {"summary": "Game state", "security": [{"PlayerToken": []}], "responses": {"200": {"description": "game state"}}}},
        "/games/{gameId}/word": {"get": {"summary": "Current word (active player)", "security": [{"PlayerToken": []}], "responses": {"200": {"description": "word"}}}},
        "/games/{gameId}/guesses": {"get": {"summary": "Guesses grouped by round and team", "security": [{"PlayerToken": []}], "responses": {"200": {"description": "guesses"}}}},
        "/games/{gameId}/score": {"get": {"summary": "Team scores", "security": [{"PlayerToken": []}], "responses": {"200": {"description": "scores"}}}},
        "/ws/rooms/{roomId}": {"get": {"summary": "Push channel (websocket)", "responses": {"101": {"description": "switching protocols"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/v1",
	Schemes:          []string{},
	Title:            "Alias game API",
	Description:      "Team word-guessing party game: rooms, teams, rounds and scoring.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
