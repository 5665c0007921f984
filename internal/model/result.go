package model

import "time"

// TeamResult is a team's final standing in an archived game
type TeamResult struct {
	TeamID  string   `json:"teamId" bson:"teamId"`
	Name    string   `json:"name" bson:"name"`
	Score   int      `json:"score" bson:"score"`
	Players []string `json:"players" bson:"players"`
}

// GameResult is the archived summary of a completed game
type GameResult struct {
	GameID       string       `json:"gameId" bson:"_id"`
	RoomID       string       `json:"roomId" bson:"roomId"`
	WinnerTeamID string       `json:"winnerTeamId" bson:"winnerTeamId"`
	Teams        []TeamResult `json:"teams" bson:"teams"`
	Rounds       int          `json:"rounds" bson:"rounds"`
	Settings     GameSettings `json:"settings" bson:"settings"`
	CompletedAt  time.Time    `json:"completedAt" bson:"completedAt"`
}
