package model

// Team is a named group of players within a game. The ordered player
// queue is stored separately.
type Team struct {
	ID     string `json:"id"`
	GameID string `json:"gameId"`
	Name   string `json:"name"`
	// LapAnchor is the player who opened the team's current lap.
	LapAnchor string `json:"lapAnchor,omitempty"`
}

// Default team names for a new game
var DefaultTeamNames = []string{"Team A", "Team B"}
