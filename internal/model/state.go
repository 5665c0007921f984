package model

import "time"

// Event names published on the notification channels
const (
	EventGameState      = "gameState"
	EventGuesses        = "guesses"
	EventScore          = "score"
	EventCountdown      = "countdown"
	EventIsActivePlayer = "isActivePlayer"
	EventPlayers        = "players"
	EventKicked         = "kicked"
	EventRoomClosed     = "roomClosed"
)

// TeamState is the public view of a team. Players are nicknames.
type TeamState struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Players []string `json:"players"`
	Score   int      `json:"score"`
}

// GameState is the broadcast read model of a game. Player ids are
// translated to nicknames.
type GameState struct {
	ID                 string       `json:"id"`
	RoomID             string       `json:"roomId"`
	Settings           GameSettings `json:"gameSettings"`
	Status             GameStatus   `json:"gameStatus"`
	CurrentRoundNumber int          `json:"currentRoundNumber"`
	Teams              []TeamState  `json:"teams"`
	CurrentTeam        string       `json:"currentTeam,omitempty"`
	CurrentPlayer      string       `json:"currentPlayer,omitempty"`
	WinnerTeamID       string       `json:"winnerTeamId,omitempty"`
	RoundStartedAt     *time.Time   `json:"roundStartedAt,omitempty"`
	RemainingTime      int          `json:"remainingTime"`
}

// GuessesEvent is the payload of the guesses event
type GuessesEvent struct {
	GameID string  `json:"gameId"`
	Round  int     `json:"round"`
	TeamID string  `json:"teamId"`
	Items  []Guess `json:"guesses"`
}

// ScoreEvent is the payload of the score event
type ScoreEvent struct {
	GameID string         `json:"gameId"`
	Scores map[string]int `json:"scores"`
}

// CountdownEvent is the payload of a countdown tick
type CountdownEvent struct {
	GameID    string `json:"gameId"`
	Remaining int    `json:"remaining"`
}

// ActivePlayerEvent is sent privately to each room member
type ActivePlayerEvent struct {
	GameID         string `json:"gameId"`
	IsActivePlayer bool   `json:"isActivePlayer"`
}
