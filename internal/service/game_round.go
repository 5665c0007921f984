package service

import (
	"aliasgame/internal/apperr"
	"aliasgame/internal/model"
	"aliasgame/internal/score"
	"aliasgame/internal/turn"
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// StartRound opens the guessing window for the active player and arms the
// round deadline. Repeating the call during the player's own turn is a
// no-op.
func (s *GameService) StartRound(ctx context.Context, roomID, gameID, playerID string) error {
	if roomID == "" || gameID == "" {
		return apperr.Incomplete("roomId and gameId are required")
	}
	unlock := s.locker.Lock(gameID)
	defer unlock()

	game, err := s.loadGame(ctx, roomID, gameID)
	if err != nil {
		return err
	}

	switch {
	case game.Status.InRound():
		_, err := s.requireActive(ctx, gameID, playerID)
		return err
	case game.Status != model.GameOngoing:
		return apperr.NotPermitted("game is not in progress")
	}

	if err := s.checkTeams(ctx, gameID); err != nil {
		return err
	}
	if _, err := s.requireActive(ctx, gameID, playerID); err != nil {
		return err
	}

	startedAt := s.now().UTC()
	game.RoundStartedAt = &startedAt
	game.TurnSeq++
	if err := s.setStatus(ctx, game, model.GameOngoingRound); err != nil {
		game.TurnSeq--
		game.RoundStartedAt = nil
		return err
	}

	deadline, _ := game.Deadline()
	s.timers.Arm(gameID, game.RoomID, game.TurnSeq, deadline)
	s.broadcastState(ctx, game)
	return nil
}

// FinishRound ends the active player's turn after correction. The player
// queue of the active team rotates; once the team's lap is complete the
// team order rotates too, and once every team has completed its lap the
// winner is evaluated or the next round begins. Calling it again after
// the turn has closed, or after the game completed, is a no-op.
func (s *GameService) FinishRound(ctx context.Context, roomID, gameID, playerID string) error {
	if roomID == "" || gameID == "" {
		return apperr.Incomplete("roomId and gameId are required")
	}
	unlock := s.locker.Lock(gameID)
	defer unlock()

	game, err := s.loadGame(ctx, roomID, gameID)
	if err != nil {
		return err
	}
	switch game.Status {
	case model.GameOngoing, model.GameCompleted:
		return nil
	case model.GameGuessesCorrection:
	default:
		if _, err := s.requireActive(ctx, gameID, playerID); err != nil {
			return err
		}
		return apperr.NotPermitted("round cannot be finished before correction")
	}
	if err := s.checkTeams(ctx, gameID); err != nil {
		return err
	}
	teamID, err := s.requireActive(ctx, gameID, playerID)
	if err != nil {
		return err
	}

	team, err := s.teams.GetTeam(ctx, gameID, teamID)
	if err != nil {
		return fmt.Errorf("failed to get team: %w", err)
	}
	if team == nil {
		return apperr.NotFound("team not found")
	}
	queue, err := s.teams.GetPlayerQueue(ctx, gameID, teamID)
	if err != nil {
		return fmt.Errorf("failed to get team players: %w", err)
	}

	anchor := team.LapAnchor
	if anchor == "" {
		anchor = turn.Head(queue)
	}
	queue, head := turn.Advance(queue)
	if err := s.teams.SetPlayerQueue(ctx, gameID, teamID, queue); err != nil {
		return fmt.Errorf("failed to rotate players: %w", err)
	}

	lapDone := head == anchor || !turn.Contains(queue, anchor)
	if lapDone {
		team.LapAnchor = ""
	} else {
		team.LapAnchor = anchor
	}
	if err := s.teams.SaveTeam(ctx, team); err != nil {
		return fmt.Errorf("failed to save team: %w", err)
	}

	game.RoundStartedAt = nil
	if lapDone {
		completed, err := s.completeLap(ctx, game, teamID)
		if err != nil {
			return err
		}
		if completed {
			s.broadcastState(ctx, game)
			return nil
		}
	}

	if err := s.setStatus(ctx, game, model.GameOngoing); err != nil {
		return err
	}
	s.broadcastState(ctx, game)
	return nil
}

// completeLap records the team's lap, rotates the team order and, when the
// next team already finished its lap, closes the round. It reports whether
// the game was completed.
func (s *GameService) completeLap(ctx context.Context, game *model.Game, teamID string) (bool, error) {
	gameID := game.ID
	if err := s.games.AddLapFinisher(ctx, gameID, teamID); err != nil {
		return false, fmt.Errorf("failed to record lap: %w", err)
	}
	order, err := s.games.GetTeamOrder(ctx, gameID)
	if err != nil {
		return false, fmt.Errorf("failed to get teams: %w", err)
	}
	order, nextTeam := turn.Advance(order)
	if err := s.games.SetTeamOrder(ctx, gameID, order); err != nil {
		return false, fmt.Errorf("failed to rotate teams: %w", err)
	}

	roundDone, err := s.games.IsLapFinisher(ctx, gameID, nextTeam)
	if err != nil {
		return false, fmt.Errorf("failed to check lap: %w", err)
	}
	if !roundDone {
		return false, nil
	}

	scores, err := s.scores(ctx, gameID, order)
	if err != nil {
		return false, err
	}
	if winner, ok := score.Winner(scores, game.Settings.WinningScore); ok {
		return true, s.completeGame(ctx, game, winner, scores)
	}

	round, err := s.games.IncrementRoundNumber(ctx, gameID)
	if err != nil {
		return false, fmt.Errorf("failed to advance round: %w", err)
	}
	if err := s.games.ClearLapFinishers(ctx, gameID); err != nil {
		return false, fmt.Errorf("failed to reset laps: %w", err)
	}
	log.Info().Str("game_id", gameID).Int("round", round).Msg("round advanced")
	return false, nil
}

func (s *GameService) completeGame(ctx context.Context, game *model.Game, winnerTeamID string, scores map[string]int) error {
	completedAt := s.now().UTC()
	game.WinnerTeamID = winnerTeamID
	game.CompletedAt = &completedAt
	if err := s.setStatus(ctx, game, model.GameCompleted); err != nil {
		game.WinnerTeamID = ""
		game.CompletedAt = nil
		return err
	}
	s.timers.Cancel(game.ID)

	if err := s.games.UnmarkActive(ctx, game.ID); err != nil {
		log.Error().Err(err).Str("game_id", game.ID).Msg("failed to unindex game")
	}
	if room, err := s.rooms.GetRoom(ctx, game.RoomID); err == nil && room != nil && room.CurrentGameID == game.ID {
		room.Status = model.RoomOpen
		if err := s.rooms.SaveRoom(ctx, room); err != nil {
			log.Error().Err(err).Str("room_id", room.ID).Msg("failed to reopen room")
		}
	}

	result, err := s.buildResult(ctx, game, scores)
	if err != nil {
		log.Error().Err(err).Str("game_id", game.ID).Msg("failed to build result")
		return nil
	}
	if s.results != nil {
		if err := s.results.Record(ctx, result); err != nil {
			log.Error().Err(err).Str("game_id", game.ID).Msg("failed to record result")
		}
	}
	log.Info().Str("game_id", game.ID).Str("winner_team_id", winnerTeamID).Msg("game completed")
	return nil
}

// expireRound moves the round of turn seq into lastWord. It is a no-op if
// the round already left the guessing window by another path.
func (s *GameService) expireRound(gameID string, seq int64) {
	ctx := context.Background()
	unlock := s.locker.Lock(gameID)
	defer unlock()

	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		log.Error().Err(err).Str("game_id", gameID).Msg("failed to load game on round expiry")
		return
	}
	if game == nil || game.Status != model.GameOngoingRound || game.TurnSeq != seq {
		return
	}
	if err := s.setStatus(ctx, game, model.GameLastWord); err != nil {
		log.Error().Err(err).Str("game_id", gameID).Msg("failed to expire round")
		return
	}
	s.broadcastState(ctx, game)
}

// RecoverRounds re-arms the timers lost by a restart. Rounds whose
// deadline already passed move straight to lastWord.
func (s *GameService) RecoverRounds(ctx context.Context) (int, error) {
	ids, err := s.games.ActiveGames(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active games: %w", err)
	}

	recovered := 0
	for _, gameID := range ids {
		game, err := s.games.GetGame(ctx, gameID)
		if err != nil {
			return recovered, fmt.Errorf("failed to get game: %w", err)
		}
		if game == nil || game.Status == model.GameCompleted {
			if err := s.games.UnmarkActive(ctx, gameID); err != nil {
				return recovered, fmt.Errorf("failed to unindex game: %w", err)
			}
			continue
		}
		if game.Status != model.GameOngoingRound {
			continue
		}

		deadline, ok := game.Deadline()
		if !ok || !deadline.After(s.now()) {
			s.expireRound(gameID, game.TurnSeq)
		} else {
			s.timers.Arm(gameID, game.RoomID, game.TurnSeq, deadline)
		}
		recovered++
	}
	return recovered, nil
}

// checkTeams requires at least two teams and no empty team
func (s *GameService) checkTeams(ctx context.Context, gameID string) error {
	order, err := s.games.GetTeamOrder(ctx, gameID)
	if err != nil {
		return fmt.Errorf("failed to get teams: %w", err)
	}
	if len(order) < 2 {
		return apperr.NotPermitted("at least two teams are required")
	}
	for _, teamID := range order {
		queue, err := s.teams.GetPlayerQueue(ctx, gameID, teamID)
		if err != nil {
			return fmt.Errorf("failed to get team players: %w", err)
		}
		if len(queue) == 0 {
			return apperr.NotPermitted("every team needs at least one player")
		}
	}
	return nil
}
