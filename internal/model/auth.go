package model

import "github.com/golang-jwt/jwt/v5"

// PlayerClaims are JWT claims for player room-scoped tokens
type PlayerClaims struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
	jwt.RegisteredClaims
}
