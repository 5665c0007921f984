package model

import "time"

// Player represents a participant in a room
type Player struct {
	ID       string    `json:"id"`
	RoomID   string    `json:"roomId"`
	Nickname string    `json:"nickname"`
	Online   bool      `json:"online"`
	IsAdmin  bool      `json:"isAdmin"`
	JoinedAt time.Time `json:"joinedAt"`
}

// PlayerJoinResponse is returned when a player joins a room
type PlayerJoinResponse struct {
	Player *Player `json:"player"`
	Token  string  `json:"token"`
	Room   *Room   `json:"room"`
}
