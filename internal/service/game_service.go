package service

import (
	"aliasgame/internal/apperr"
	"aliasgame/internal/cache"
	"aliasgame/internal/model"
	"aliasgame/internal/score"
	"aliasgame/internal/turn"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// GameService runs the game session state machine. Every mutation of a
// game happens under that game's lock and ends with a state broadcast.
type GameService struct {
	rooms   cache.RoomCache
	players cache.PlayerCache
	games   cache.GameCache
	teams   cache.TeamCache
	rounds  cache.RoundCache
	words   *WordService
	results *ResultService

	locker   *GameLocker
	timers   *RoundController
	notifier Notifier
	now      func() time.Time
}

// NewGameService creates a new game service
func NewGameService(
	rooms cache.RoomCache,
	players cache.PlayerCache,
	games cache.GameCache,
	teams cache.TeamCache,
	rounds cache.RoundCache,
	words *WordService,
	results *ResultService,
) *GameService {
	s := &GameService{
		rooms:    rooms,
		players:  players,
		games:    games,
		teams:    teams,
		rounds:   rounds,
		words:    words,
		results:  results,
		locker:   NewGameLocker(),
		notifier: nopNotifier{},
		now:      time.Now,
	}
	s.timers = NewRoundController(s.expireRound, s.publishCountdown)
	return s
}

// SetNotifier sets the notifier for push events
func (s *GameService) SetNotifier(n Notifier) {
	if n == nil {
		n = nopNotifier{}
	}
	s.notifier = n
}

// Timers exposes the round controller, mainly for shutdown
func (s *GameService) Timers() *RoundController {
	return s.timers
}

// CreateGame creates a waiting game with two empty teams in the room.
// Only the room admin may call it.
func (s *GameService) CreateGame(ctx context.Context, roomID, playerID string, settings model.GameSettings) (string, error) {
	if roomID == "" {
		return "", apperr.Incomplete("roomId is required")
	}
	if settings.WinningScore <= 0 || settings.RoundTime <= 0 {
		return "", apperr.NotPermitted("winningScore and roundTime must be positive")
	}

	unlock := s.locker.Lock("room:" + roomID)
	defer unlock()

	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return "", err
	}
	if room.Status == model.RoomClosed {
		return "", apperr.NotPermitted("room is closed")
	}
	if err := s.requireAdmin(ctx, roomID, playerID); err != nil {
		return "", err
	}
	if room.CurrentGameID != "" {
		current, err := s.games.GetGame(ctx, room.CurrentGameID)
		if err != nil {
			return "", fmt.Errorf("failed to get game: %w", err)
		}
		if current != nil && current.Status != model.GameCompleted {
			return "", apperr.NotPermitted("room already has an active game")
		}
	}

	game := &model.Game{
		ID:        uuid.New().String(),
		RoomID:    roomID,
		Settings:  settings,
		Status:    model.GameWaiting,
		CreatedAt: s.now().UTC(),
	}
	if err := s.games.SaveGame(ctx, game); err != nil {
		return "", fmt.Errorf("failed to save game: %w", err)
	}
	if err := s.games.SetRoundNumber(ctx, game.ID, 1); err != nil {
		return "", fmt.Errorf("failed to set round number: %w", err)
	}
	for _, name := range model.DefaultTeamNames {
		team := &model.Team{
			ID:     uuid.New().String(),
			GameID: game.ID,
			Name:   name,
		}
		if err := s.teams.SaveTeam(ctx, team); err != nil {
			return "", fmt.Errorf("failed to save team: %w", err)
		}
		if err := s.games.AddTeam(ctx, game.ID, team.ID); err != nil {
			return "", fmt.Errorf("failed to add team: %w", err)
		}
	}
	if err := s.words.InitWords(ctx, game.ID); err != nil {
		return "", err
	}
	if err := s.games.MarkActive(ctx, game.ID); err != nil {
		return "", fmt.Errorf("failed to index game: %w", err)
	}

	room.Status = model.RoomInGame
	room.CurrentGameID = game.ID
	if err := s.rooms.SaveRoom(ctx, room); err != nil {
		return "", fmt.Errorf("failed to save room: %w", err)
	}

	log.Info().Str("room_id", roomID).Str("game_id", game.ID).Msg("game created")
	s.broadcastState(ctx, game)
	return game.ID, nil
}

// JoinTeam moves the player into the team, removing them from any other
// team of the same game. Teams can only change while the game is waiting,
// except that a player without a team may refill a team left empty by a
// kick between turns.
func (s *GameService) JoinTeam(ctx context.Context, roomID, teamID, playerID string) error {
	if roomID == "" || teamID == "" {
		return apperr.Incomplete("roomId and teamId are required")
	}
	gameID, err := s.teams.GameIDForTeam(ctx, teamID)
	if err != nil {
		return fmt.Errorf("failed to resolve team: %w", err)
	}
	if gameID == "" {
		return apperr.NotFound("team not found")
	}

	unlock := s.locker.Lock(gameID)
	defer unlock()

	game, err := s.loadGame(ctx, roomID, gameID)
	if err != nil {
		return err
	}
	if err := s.requireMember(ctx, roomID, playerID); err != nil {
		return err
	}
	if game.Status != model.GameWaiting && game.Status != model.GameOngoing {
		return apperr.NotPermitted("teams can only be changed before the game starts")
	}

	order, err := s.games.GetTeamOrder(ctx, gameID)
	if err != nil {
		return fmt.Errorf("failed to get teams: %w", err)
	}
	if !turn.Contains(order, teamID) {
		return apperr.NotFound("team not found")
	}

	target, err := s.teams.GetPlayerQueue(ctx, gameID, teamID)
	if err != nil {
		return fmt.Errorf("failed to get team players: %w", err)
	}
	if turn.Contains(target, playerID) {
		return nil
	}
	if game.Status == model.GameOngoing {
		return s.refillTeam(ctx, game, order, teamID, target, playerID)
	}

	for _, id := range order {
		if id == teamID {
			continue
		}
		queue, err := s.teams.GetPlayerQueue(ctx, gameID, id)
		if err != nil {
			return fmt.Errorf("failed to get team players: %w", err)
		}
		rest, removed := turn.Remove(queue, playerID)
		if !removed {
			continue
		}
		if err := s.teams.SetPlayerQueue(ctx, gameID, id, rest); err != nil {
			return fmt.Errorf("failed to update team: %w", err)
		}
	}
	if err := s.teams.SetPlayerQueue(ctx, gameID, teamID, turn.Append(target, playerID)); err != nil {
		return fmt.Errorf("failed to update team: %w", err)
	}

	log.Info().Str("game_id", gameID).Str("team_id", teamID).Str("player_id", playerID).Msg("player joined team")
	s.broadcastState(ctx, game)
	return nil
}

// refillTeam seats a teamless player in an empty team of a started game.
// The player opens a fresh lap for the team.
func (s *GameService) refillTeam(ctx context.Context, game *model.Game, order []string, teamID string, target []string, playerID string) error {
	if len(target) > 0 {
		return apperr.NotPermitted("teams can only be changed before the game starts")
	}
	for _, id := range order {
		queue, err := s.teams.GetPlayerQueue(ctx, game.ID, id)
		if err != nil {
			return fmt.Errorf("failed to get team players: %w", err)
		}
		if turn.Contains(queue, playerID) {
			return apperr.NotPermitted("players cannot switch teams during the game")
		}
	}

	team, err := s.teams.GetTeam(ctx, game.ID, teamID)
	if err != nil {
		return fmt.Errorf("failed to get team: %w", err)
	}
	if team == nil {
		return apperr.NotFound("team not found")
	}
	team.LapAnchor = ""
	if err := s.teams.SaveTeam(ctx, team); err != nil {
		return fmt.Errorf("failed to save team: %w", err)
	}
	if err := s.teams.SetPlayerQueue(ctx, game.ID, teamID, []string{playerID}); err != nil {
		return fmt.Errorf("failed to update team: %w", err)
	}

	log.Info().Str("game_id", game.ID).Str("team_id", teamID).Str("player_id", playerID).Msg("player refilled empty team")
	s.broadcastState(ctx, game)
	return nil
}

// StartGame moves a waiting game to ongoing. Repeated calls on a started
// game succeed without effect.
func (s *GameService) StartGame(ctx context.Context, roomID, gameID, playerID string) error {
	if roomID == "" || gameID == "" {
		return apperr.Incomplete("roomId and gameId are required")
	}
	unlock := s.locker.Lock(gameID)
	defer unlock()

	game, err := s.loadGame(ctx, roomID, gameID)
	if err != nil {
		return err
	}
	if err := s.requireAdmin(ctx, roomID, playerID); err != nil {
		return err
	}
	switch game.Status {
	case model.GameWaiting:
	case model.GameCompleted:
		return apperr.NotPermitted("game is already completed")
	default:
		return nil
	}

	if err := s.games.SetRoundNumber(ctx, gameID, 1); err != nil {
		return fmt.Errorf("failed to set round number: %w", err)
	}
	if err := s.setStatus(ctx, game, model.GameOngoing); err != nil {
		return err
	}
	s.broadcastState(ctx, game)
	return nil
}

// GetWord returns the word the active player is currently explaining
func (s *GameService) GetWord(ctx context.Context, gameID, playerID string) (string, error) {
	if gameID == "" {
		return "", apperr.Incomplete("gameId is required")
	}
	unlock := s.locker.Lock(gameID)
	defer unlock()

	game, err := s.loadGame(ctx, "", gameID)
	if err != nil {
		return "", err
	}
	if game.Status != model.GameOngoingRound && game.Status != model.GameLastWord {
		return "", apperr.NotPermitted("no guessing window is open")
	}
	if _, err := s.requireActive(ctx, gameID, playerID); err != nil {
		return "", err
	}
	return s.words.CurrentWord(ctx, gameID)
}

// RegisterGuess records the current word for the active team and returns
// the next one. The guess submitted during lastWord closes the window and
// returns "".
func (s *GameService) RegisterGuess(ctx context.Context, roomID, gameID, playerID string, guessed bool) (string, error) {
	if roomID == "" || gameID == "" {
		return "", apperr.Incomplete("roomId and gameId are required")
	}
	unlock := s.locker.Lock(gameID)
	defer unlock()

	game, err := s.loadGame(ctx, roomID, gameID)
	if err != nil {
		return "", err
	}
	if game.Status != model.GameOngoingRound && game.Status != model.GameLastWord {
		return "", apperr.NotPermitted("no guessing window is open")
	}
	teamID, err := s.requireActive(ctx, gameID, playerID)
	if err != nil {
		return "", err
	}
	round, err := s.games.GetRoundNumber(ctx, gameID)
	if err != nil {
		return "", fmt.Errorf("failed to get round number: %w", err)
	}

	current, next, err := s.words.CurrentAndNextWord(ctx, gameID)
	if err != nil {
		return "", fmt.Errorf("failed to draw word: %w", err)
	}
	guess := &model.Guess{
		ID:         uuid.New().String(),
		Word:       current,
		Guessed:    guessed,
		CreateTime: s.now().UTC(),
	}
	if err := s.rounds.AppendGuess(ctx, gameID, round, teamID, guess); err != nil {
		return "", fmt.Errorf("failed to record guess: %w", err)
	}

	if game.Status == model.GameLastWord {
		s.timers.Cancel(gameID)
		if err := s.setStatus(ctx, game, model.GameGuessesCorrection); err != nil {
			return "", err
		}
		next = ""
	}

	s.broadcastGuesses(ctx, game, round, teamID)
	s.broadcastState(ctx, game)
	return next, nil
}

// UpdateGuess corrects a guess of the active team during correction. Any
// member of the active team may correct.
func (s *GameService) UpdateGuess(ctx context.Context, roomID, gameID, playerID, guessID string, patch model.GuessPatch) (*model.Guess, error) {
	if roomID == "" || gameID == "" || guessID == "" {
		return nil, apperr.Incomplete("roomId, gameId and guessId are required")
	}
	unlock := s.locker.Lock(gameID)
	defer unlock()

	game, err := s.loadGame(ctx, roomID, gameID)
	if err != nil {
		return nil, err
	}
	if game.Status != model.GameGuessesCorrection {
		return nil, apperr.NotPermitted("guesses can only be corrected after the round")
	}
	order, err := s.games.GetTeamOrder(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get teams: %w", err)
	}
	teamID := turn.Head(order)
	queue, err := s.teams.GetPlayerQueue(ctx, gameID, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get team players: %w", err)
	}
	if !turn.Contains(queue, playerID) {
		return nil, apperr.AccessDenied("only the active team can correct guesses")
	}

	round, err := s.games.GetRoundNumber(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get round number: %w", err)
	}
	guess, err := s.rounds.GetGuess(ctx, gameID, round, teamID, guessID)
	if err != nil {
		return nil, fmt.Errorf("failed to get guess: %w", err)
	}
	if guess == nil {
		return nil, apperr.NotFound("guess not found")
	}

	if patch.Guessed != nil {
		guess.Guessed = *patch.Guessed
	}
	if patch.Word != nil {
		word := strings.TrimSpace(*patch.Word)
		if word == "" {
			return nil, apperr.Incomplete("word must not be empty")
		}
		guess.Word = word
	}
	if err := s.rounds.UpdateGuess(ctx, gameID, round, teamID, guess); err != nil {
		return nil, fmt.Errorf("failed to update guess: %w", err)
	}

	s.broadcastGuesses(ctx, game, round, teamID)
	s.broadcastState(ctx, game)
	return guess, nil
}

// GetScore returns the score of every team, or of the given teams only
func (s *GameService) GetScore(ctx context.Context, gameID string, teamIDs []string) (map[string]int, error) {
	if gameID == "" {
		return nil, apperr.Incomplete("gameId is required")
	}
	if _, err := s.loadGame(ctx, "", gameID); err != nil {
		return nil, err
	}
	order, err := s.games.GetTeamOrder(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get teams: %w", err)
	}
	if len(teamIDs) == 0 {
		teamIDs = order
	}
	for _, id := range teamIDs {
		if !turn.Contains(order, id) {
			return nil, apperr.NotFound("team not found")
		}
	}
	return s.scores(ctx, gameID, teamIDs)
}

// GetGuesses returns recorded guesses grouped by round then team. A zero
// round or empty teamID selects all.
func (s *GameService) GetGuesses(ctx context.Context, gameID string, round int, teamID string) (model.RoundGuesses, error) {
	if gameID == "" {
		return nil, apperr.Incomplete("gameId is required")
	}
	if _, err := s.loadGame(ctx, "", gameID); err != nil {
		return nil, err
	}
	order, err := s.games.GetTeamOrder(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get teams: %w", err)
	}
	current, err := s.games.GetRoundNumber(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get round number: %w", err)
	}

	teamIDs := order
	if teamID != "" {
		if !turn.Contains(order, teamID) {
			return nil, apperr.NotFound("team not found")
		}
		teamIDs = []string{teamID}
	}
	first, last := 1, current
	if round > 0 {
		if round > current {
			return nil, apperr.NotFound("round not found")
		}
		first, last = round, round
	}

	grouped := make(model.RoundGuesses)
	for r := first; r <= last; r++ {
		byTeam := make(map[string][]model.Guess, len(teamIDs))
		for _, id := range teamIDs {
			guesses, err := s.rounds.GetRoundGuesses(ctx, gameID, r, id)
			if err != nil {
				return nil, fmt.Errorf("failed to get guesses: %w", err)
			}
			byTeam[id] = guesses
		}
		grouped[r] = byTeam
	}
	return grouped, nil
}

// GetGameState returns the public read model of a game
func (s *GameService) GetGameState(ctx context.Context, gameID string) (*model.GameState, error) {
	if gameID == "" {
		return nil, apperr.Incomplete("gameId is required")
	}
	game, err := s.loadGame(ctx, "", gameID)
	if err != nil {
		return nil, err
	}
	return s.buildState(ctx, game)
}

// RemovePlayerFromTeam drops the player from whichever team holds them.
// Removing the active player mid-round ends the turn without lap
// accounting; recorded guesses are kept and the team's next player in
// rotation order becomes active.
func (s *GameService) RemovePlayerFromTeam(ctx context.Context, roomID, gameID, playerID string) error {
	if roomID == "" || gameID == "" {
		return apperr.Incomplete("roomId and gameId are required")
	}
	unlock := s.locker.Lock(gameID)
	defer unlock()

	game, err := s.loadGame(ctx, roomID, gameID)
	if err != nil {
		return err
	}
	order, err := s.games.GetTeamOrder(ctx, gameID)
	if err != nil {
		return fmt.Errorf("failed to get teams: %w", err)
	}

	for _, teamID := range order {
		queue, err := s.teams.GetPlayerQueue(ctx, gameID, teamID)
		if err != nil {
			return fmt.Errorf("failed to get team players: %w", err)
		}
		rest, removed := turn.Remove(queue, playerID)
		if !removed {
			continue
		}
		wasHead := game.Status.HasActivePlayer() && turn.Head(queue) == playerID
		wasActive := wasHead && teamID == turn.Head(order)
		if wasHead && len(rest) > 0 {
			// the tail is next in rotation order
			rest, _ = turn.Advance(rest)
		}
		if err := s.teams.SetPlayerQueue(ctx, gameID, teamID, rest); err != nil {
			return fmt.Errorf("failed to update team: %w", err)
		}
		log.Info().Str("game_id", gameID).Str("team_id", teamID).Str("player_id", playerID).Bool("was_active", wasActive).Msg("player removed from team")

		if wasActive && game.Status.InRound() {
			s.timers.Cancel(gameID)
			game.RoundStartedAt = nil
			if err := s.setStatus(ctx, game, model.GameOngoing); err != nil {
				return err
			}
		}
		break
	}

	s.broadcastState(ctx, game)
	return nil
}

// CloseGame ends the game of a closed room without a winner. Nothing is
// archived and every later turn action is rejected.
func (s *GameService) CloseGame(ctx context.Context, gameID string) error {
	if gameID == "" {
		return apperr.Incomplete("gameId is required")
	}
	unlock := s.locker.Lock(gameID)
	defer unlock()

	s.timers.Cancel(gameID)
	game, err := s.loadGame(ctx, "", gameID)
	if err != nil {
		return err
	}
	if game.Status != model.GameCompleted {
		completedAt := s.now().UTC()
		game.CompletedAt = &completedAt
		game.RoundStartedAt = nil
		if err := s.setStatus(ctx, game, model.GameCompleted); err != nil {
			return err
		}
		s.broadcastState(ctx, game)
	}

	if err := s.games.UnmarkActive(ctx, gameID); err != nil {
		return fmt.Errorf("failed to unindex game: %w", err)
	}
	return s.words.DropWords(ctx, gameID)
}

// Helpers

func (s *GameService) loadRoom(ctx context.Context, roomID string) (*model.Room, error) {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if room == nil {
		return nil, apperr.NotFound("room not found")
	}
	return room, nil
}

// loadGame fetches a game; a non-empty roomID must own it
func (s *GameService) loadGame(ctx context.Context, roomID, gameID string) (*model.Game, error) {
	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil || (roomID != "" && game.RoomID != roomID) {
		return nil, apperr.NotFound("game not found")
	}
	return game, nil
}

func (s *GameService) requireMember(ctx context.Context, roomID, playerID string) error {
	player, err := s.players.GetPlayer(ctx, roomID, playerID)
	if err != nil {
		return fmt.Errorf("failed to get player: %w", err)
	}
	if player == nil {
		return apperr.AccessDenied("player is not in this room")
	}
	return nil
}

func (s *GameService) requireAdmin(ctx context.Context, roomID, playerID string) error {
	player, err := s.players.GetPlayer(ctx, roomID, playerID)
	if err != nil {
		return fmt.Errorf("failed to get player: %w", err)
	}
	if player == nil || !player.IsAdmin {
		return apperr.AccessDenied("only the room admin can do this")
	}
	return nil
}

// activePlayer returns the heads of the team order and of that team's queue
func (s *GameService) activePlayer(ctx context.Context, gameID string) (string, string, error) {
	order, err := s.games.GetTeamOrder(ctx, gameID)
	if err != nil {
		return "", "", fmt.Errorf("failed to get teams: %w", err)
	}
	teamID := turn.Head(order)
	if teamID == "" {
		return "", "", nil
	}
	queue, err := s.teams.GetPlayerQueue(ctx, gameID, teamID)
	if err != nil {
		return "", "", fmt.Errorf("failed to get team players: %w", err)
	}
	return teamID, turn.Head(queue), nil
}

// requireActive returns the active team id when playerID is the active player
func (s *GameService) requireActive(ctx context.Context, gameID, playerID string) (string, error) {
	teamID, active, err := s.activePlayer(ctx, gameID)
	if err != nil {
		return "", err
	}
	if active == "" || active != playerID {
		return "", apperr.AccessDenied("only the active player can do this")
	}
	return teamID, nil
}

func (s *GameService) setStatus(ctx context.Context, game *model.Game, status model.GameStatus) error {
	from := game.Status
	game.Status = status
	if err := s.games.SaveGame(ctx, game); err != nil {
		game.Status = from
		return fmt.Errorf("failed to save game: %w", err)
	}
	log.Info().Str("game_id", game.ID).Str("from", string(from)).Str("to", string(status)).Msg("game status changed")
	return nil
}

func (s *GameService) scores(ctx context.Context, gameID string, teamIDs []string) (map[string]int, error) {
	rounds, err := s.games.GetRoundNumber(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get round number: %w", err)
	}
	scores := make(map[string]int, len(teamIDs))
	for _, teamID := range teamIDs {
		byRound := make(map[int][]model.Guess, rounds)
		for r := 1; r <= rounds; r++ {
			guesses, err := s.rounds.GetRoundGuesses(ctx, gameID, r, teamID)
			if err != nil {
				return nil, fmt.Errorf("failed to get guesses: %w", err)
			}
			byRound[r] = guesses
		}
		scores[teamID] = score.TallyRounds(byRound)
	}
	return scores, nil
}
