package model

import "time"

type RoomStatus string

const (
	RoomOpen   RoomStatus = "OPEN"
	RoomInGame RoomStatus = "IN_GAME"
	RoomClosed RoomStatus = "CLOSED"
)

// Room owns at most one active game at a time
type Room struct {
	ID            string     `json:"id"`
	Status        RoomStatus `json:"status"`
	CurrentGameID string     `json:"currentGameId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}
