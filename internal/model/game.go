package model

import "time"

type GameStatus string

const (
	GameWaiting           GameStatus = "waiting"
	GameOngoing           GameStatus = "ongoing"
	GameOngoingRound      GameStatus = "ongoingRound"
	GameLastWord          GameStatus = "lastWord"
	GameGuessesCorrection GameStatus = "guessesCorrection"
	GameCompleted         GameStatus = "completed"
	GamePaused            GameStatus = "paused" // reserved, never entered
)

// InRound reports whether the status has an active team and player
// taking a turn (guessing window, grace period or correction).
func (s GameStatus) InRound() bool {
	switch s {
	case GameOngoingRound, GameLastWord, GameGuessesCorrection:
		return true
	}
	return false
}

// HasActivePlayer reports whether heads of the turn queues are meaningful.
func (s GameStatus) HasActivePlayer() bool {
	return s != GameWaiting && s != GameCompleted && s != ""
}

// GameSettings are fixed at creation
type GameSettings struct {
	WinningScore int `json:"winningScore" validate:"required,min=1,max=500"`
	RoundTime    int `json:"roundTime" validate:"required,min=5,max=600"` // seconds
}

// RoundDuration returns the guessing window length
func (s GameSettings) RoundDuration() time.Duration {
	return time.Duration(s.RoundTime) * time.Second
}

// Game is the persisted game metadata. The round number, team order and
// player queues live under their own keys and are not part of this record.
type Game struct {
	ID             string       `json:"id"`
	RoomID         string       `json:"roomId"`
	Settings       GameSettings `json:"settings"`
	Status         GameStatus   `json:"status"`
	WinnerTeamID   string       `json:"winnerTeamId,omitempty"`
	TurnSeq        int64        `json:"turnSeq"`
	RoundStartedAt *time.Time   `json:"roundStartedAt,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	CompletedAt    *time.Time   `json:"completedAt,omitempty"`
}

// Deadline returns when the current guessing window closes
func (g *Game) Deadline() (time.Time, bool) {
	if g.RoundStartedAt == nil {
		return time.Time{}, false
	}
	return g.RoundStartedAt.Add(g.Settings.RoundDuration()), true
}
