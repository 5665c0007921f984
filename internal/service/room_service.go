package service

import (
	"aliasgame/internal/apperr"
	"aliasgame/internal/cache"
	"aliasgame/internal/model"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RoomService handles room lifecycle and membership
type RoomService struct {
	rooms    cache.RoomCache
	players  cache.PlayerCache
	games    *GameService
	authSvc  *AuthService
	notifier Notifier
}

// NewRoomService creates a new room service
func NewRoomService(
	rooms cache.RoomCache,
	players cache.PlayerCache,
	games *GameService,
	authSvc *AuthService,
) *RoomService {
	return &RoomService{
		rooms:    rooms,
		players:  players,
		games:    games,
		authSvc:  authSvc,
		notifier: nopNotifier{},
	}
}

// SetNotifier sets the notifier for push events
func (s *RoomService) SetNotifier(n Notifier) {
	if n == nil {
		n = nopNotifier{}
	}
	s.notifier = n
}

// CreateRoom creates an empty open room
func (s *RoomService) CreateRoom(ctx context.Context) (*model.Room, error) {
	room := &model.Room{
		ID:        uuid.New().String(),
		Status:    model.RoomOpen,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.rooms.SaveRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to save room: %w", err)
	}
	log.Info().Str("room_id", room.ID).Msg("room created")
	return room, nil
}

// GetRoom retrieves a room by id
func (s *RoomService) GetRoom(ctx context.Context, roomID string) (*model.Room, error) {
	if roomID == "" {
		return nil, apperr.Incomplete("roomId is required")
	}
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if room == nil {
		return nil, apperr.NotFound("room not found")
	}
	return room, nil
}

// JoinRoom adds a player to the room and issues their token. The first
// player to join becomes the room admin.
func (s *RoomService) JoinRoom(ctx context.Context, roomID, nickname string) (*model.PlayerJoinResponse, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, apperr.Incomplete("nickname is required")
	}
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status == model.RoomClosed {
		return nil, apperr.NotPermitted("room is closed")
	}

	playerID := uuid.New().String()
	ok, err := s.players.ReserveNickname(ctx, roomID, nickname, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve nickname: %w", err)
	}
	if !ok {
		return nil, apperr.AlreadyExists("nickname is already taken", nickname)
	}

	isAdmin, err := s.players.ClaimAdmin(ctx, roomID, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim admin: %w", err)
	}
	player := &model.Player{
		ID:       playerID,
		RoomID:   roomID,
		Nickname: nickname,
		IsAdmin:  isAdmin,
		JoinedAt: time.Now().UTC(),
	}
	if err := s.players.SetPlayer(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to save player: %w", err)
	}

	token, err := s.authSvc.GeneratePlayerToken(roomID, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	log.Info().Str("room_id", roomID).Str("player_id", playerID).Bool("admin", isAdmin).Msg("player joined room")
	s.publishPlayers(ctx, roomID)

	return &model.PlayerJoinResponse{
		Player: player,
		Token:  token,
		Room:   room,
	}, nil
}

// GetPlayers returns the room's players in join order
func (s *RoomService) GetPlayers(ctx context.Context, roomID string) ([]*model.Player, error) {
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	byID, err := s.players.GetAllPlayers(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get players: %w", err)
	}
	players := make([]*model.Player, 0, len(byID))
	for _, p := range byID {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].JoinedAt.Equal(players[j].JoinedAt) {
			return players[i].ID < players[j].ID
		}
		return players[i].JoinedAt.Before(players[j].JoinedAt)
	})
	return players, nil
}

// GetPlayer returns a single player of the room
func (s *RoomService) GetPlayer(ctx context.Context, roomID, playerID string) (*model.Player, error) {
	player, err := s.players.GetPlayer(ctx, roomID, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	if player == nil {
		return nil, apperr.NotFound("player not found")
	}
	return player, nil
}

// SetOnline records the push connection state of a player
func (s *RoomService) SetOnline(ctx context.Context, roomID, playerID string, online bool) error {
	player, err := s.GetPlayer(ctx, roomID, playerID)
	if err != nil {
		return err
	}
	if player.Online == online {
		return nil
	}
	player.Online = online
	if err := s.players.SetPlayer(ctx, player); err != nil {
		return fmt.Errorf("failed to save player: %w", err)
	}
	s.publishPlayers(ctx, roomID)
	return nil
}

// KickPlayer removes a player from the room and from their team. Only the
// admin may kick, and never themselves.
func (s *RoomService) KickPlayer(ctx context.Context, roomID, adminID, playerID string) error {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if err := s.requireAdmin(ctx, roomID, adminID); err != nil {
		return err
	}
	if adminID == playerID {
		return apperr.NotPermitted("admin cannot kick themselves")
	}
	player, err := s.GetPlayer(ctx, roomID, playerID)
	if err != nil {
		return err
	}

	if room.CurrentGameID != "" {
		if err := s.games.RemovePlayerFromTeam(ctx, roomID, room.CurrentGameID, playerID); err != nil {
			return err
		}
	}
	if err := s.players.RemovePlayer(ctx, roomID, playerID); err != nil {
		return fmt.Errorf("failed to remove player: %w", err)
	}
	if err := s.players.ReleaseNickname(ctx, roomID, player.Nickname); err != nil {
		return fmt.Errorf("failed to release nickname: %w", err)
	}

	log.Info().Str("room_id", roomID).Str("player_id", playerID).Msg("player kicked")
	s.notifier.Publish(playerID, model.EventKicked, map[string]string{"roomId": roomID})
	s.publishPlayers(ctx, roomID)
	return nil
}

// CloseRoom closes the room and stops its current game
func (s *RoomService) CloseRoom(ctx context.Context, roomID, adminID string) error {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if err := s.requireAdmin(ctx, roomID, adminID); err != nil {
		return err
	}
	if room.Status == model.RoomClosed {
		return nil
	}

	room.Status = model.RoomClosed
	if err := s.rooms.SaveRoom(ctx, room); err != nil {
		return fmt.Errorf("failed to save room: %w", err)
	}
	if room.CurrentGameID != "" {
		if err := s.games.CloseGame(ctx, room.CurrentGameID); err != nil {
			return err
		}
	}

	log.Info().Str("room_id", roomID).Msg("room closed")
	s.notifier.Publish(roomID, model.EventRoomClosed, room)
	return nil
}

func (s *RoomService) requireAdmin(ctx context.Context, roomID, playerID string) error {
	player, err := s.players.GetPlayer(ctx, roomID, playerID)
	if err != nil {
		return fmt.Errorf("failed to get player: %w", err)
	}
	if player == nil || !player.IsAdmin {
		return apperr.AccessDenied("only the room admin can do this")
	}
	return nil
}

func (s *RoomService) publishPlayers(ctx context.Context, roomID string) {
	players, err := s.GetPlayers(ctx, roomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to list players")
		return
	}
	s.notifier.Publish(roomID, model.EventPlayers, players)
}
