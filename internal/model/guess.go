package model

import "time"

// Guess is one word shown during a turn, either guessed or skipped
type Guess struct {
	ID         string    `json:"id"`
	Word       string    `json:"word"`
	Guessed    bool      `json:"guessed"`
	CreateTime time.Time `json:"createTime"`
}

// GuessPatch carries the correction fields for an existing guess
type GuessPatch struct {
	Guessed *bool   `json:"guessed,omitempty"`
	Word    *string `json:"word,omitempty" validate:"omitempty,min=1,max=64"`
}

// RoundGuesses groups guesses by round number and team id
type RoundGuesses map[int]map[string][]Guess
