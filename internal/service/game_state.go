package service

import (
	"aliasgame/internal/model"
	"aliasgame/internal/turn"
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// buildState assembles the public view of a game with nicknames in place
// of player ids
func (s *GameService) buildState(ctx context.Context, game *model.Game) (*model.GameState, error) {
	round, err := s.games.GetRoundNumber(ctx, game.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get round number: %w", err)
	}
	order, err := s.games.GetTeamOrder(ctx, game.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get teams: %w", err)
	}
	players, err := s.players.GetAllPlayers(ctx, game.RoomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get players: %w", err)
	}
	scores, err := s.scores(ctx, game.ID, order)
	if err != nil {
		return nil, err
	}

	nickname := func(id string) string {
		if p, ok := players[id]; ok {
			return p.Nickname
		}
		return id
	}

	state := &model.GameState{
		ID:                 game.ID,
		RoomID:             game.RoomID,
		Settings:           game.Settings,
		Status:             game.Status,
		CurrentRoundNumber: round,
		Teams:              make([]model.TeamState, 0, len(order)),
		WinnerTeamID:       game.WinnerTeamID,
	}

	for i, teamID := range order {
		team, err := s.teams.GetTeam(ctx, game.ID, teamID)
		if err != nil {
			return nil, fmt.Errorf("failed to get team: %w", err)
		}
		queue, err := s.teams.GetPlayerQueue(ctx, game.ID, teamID)
		if err != nil {
			return nil, fmt.Errorf("failed to get team players: %w", err)
		}
		ts := model.TeamState{
			ID:      teamID,
			Players: make([]string, 0, len(queue)),
			Score:   scores[teamID],
		}
		if team != nil {
			ts.Name = team.Name
		}
		for _, id := range queue {
			ts.Players = append(ts.Players, nickname(id))
		}
		state.Teams = append(state.Teams, ts)

		if i == 0 && game.Status.HasActivePlayer() {
			state.CurrentTeam = teamID
			if head := turn.Head(queue); head != "" {
				state.CurrentPlayer = nickname(head)
			}
		}
	}

	if game.Status == model.GameOngoingRound {
		state.RoundStartedAt = game.RoundStartedAt
		if deadline, ok := game.Deadline(); ok {
			state.RemainingTime = remainingSeconds(deadline, s.now())
		}
	}
	return state, nil
}

// broadcastState publishes the game state to the room and tells each
// member whether it is their turn
func (s *GameService) broadcastState(ctx context.Context, game *model.Game) {
	state, err := s.buildState(ctx, game)
	if err != nil {
		log.Error().Err(err).Str("game_id", game.ID).Msg("failed to build game state")
		return
	}
	s.notifier.Publish(game.RoomID, model.EventGameState, state)

	_, active, err := s.activePlayer(ctx, game.ID)
	if err != nil {
		log.Error().Err(err).Str("game_id", game.ID).Msg("failed to resolve active player")
		return
	}
	if !game.Status.HasActivePlayer() {
		active = ""
	}
	players, err := s.players.GetAllPlayers(ctx, game.RoomID)
	if err != nil {
		log.Error().Err(err).Str("game_id", game.ID).Msg("failed to get players")
		return
	}
	for id := range players {
		s.notifier.Publish(id, model.EventIsActivePlayer, model.ActivePlayerEvent{
			GameID:         game.ID,
			IsActivePlayer: id == active,
		})
	}
}

// broadcastGuesses publishes the team's guesses for the round and the
// updated scores
func (s *GameService) broadcastGuesses(ctx context.Context, game *model.Game, round int, teamID string) {
	guesses, err := s.rounds.GetRoundGuesses(ctx, game.ID, round, teamID)
	if err != nil {
		log.Error().Err(err).Str("game_id", game.ID).Msg("failed to get guesses")
		return
	}
	s.notifier.Publish(game.RoomID, model.EventGuesses, model.GuessesEvent{
		GameID: game.ID,
		Round:  round,
		TeamID: teamID,
		Items:  guesses,
	})

	order, err := s.games.GetTeamOrder(ctx, game.ID)
	if err != nil {
		log.Error().Err(err).Str("game_id", game.ID).Msg("failed to get teams")
		return
	}
	scores, err := s.scores(ctx, game.ID, order)
	if err != nil {
		log.Error().Err(err).Str("game_id", game.ID).Msg("failed to compute scores")
		return
	}
	s.notifier.Publish(game.RoomID, model.EventScore, model.ScoreEvent{
		GameID: game.ID,
		Scores: scores,
	})
}

func (s *GameService) publishCountdown(gameID, roomID string, remaining int) {
	s.notifier.Publish(roomID, model.EventCountdown, model.CountdownEvent{
		GameID:    gameID,
		Remaining: remaining,
	})
}

// buildResult summarizes a completed game for the archive
func (s *GameService) buildResult(ctx context.Context, game *model.Game, scores map[string]int) (*model.GameResult, error) {
	state, err := s.buildState(ctx, game)
	if err != nil {
		return nil, err
	}
	result := &model.GameResult{
		GameID:       game.ID,
		RoomID:       game.RoomID,
		WinnerTeamID: game.WinnerTeamID,
		Rounds:       state.CurrentRoundNumber,
		Settings:     game.Settings,
		Teams:        make([]model.TeamResult, 0, len(state.Teams)),
	}
	if game.CompletedAt != nil {
		result.CompletedAt = *game.CompletedAt
	}
	for _, ts := range state.Teams {
		result.Teams = append(result.Teams, model.TeamResult{
			TeamID:  ts.ID,
			Name:    ts.Name,
			Score:   scores[ts.ID],
			Players: ts.Players,
		})
	}
	return result, nil
}
