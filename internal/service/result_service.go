package service

import (
	"aliasgame/internal/cache"
	"aliasgame/internal/model"
	"aliasgame/internal/repository"
	"context"
	"fmt"
)

const defaultLeaderboardSize = 10

// ResultService archives completed games and keeps the per-room win tally
type ResultService struct {
	repo        repository.ResultRepo
	leaderboard cache.LeaderboardCache
}

// NewResultService creates a new result service. repo may be nil when no
// archive is configured.
func NewResultService(repo repository.ResultRepo, leaderboard cache.LeaderboardCache) *ResultService {
	return &ResultService{
		repo:        repo,
		leaderboard: leaderboard,
	}
}

// Record stores the result and credits a win to every winning nickname
func (s *ResultService) Record(ctx context.Context, result *model.GameResult) error {
	if s.repo != nil {
		if err := s.repo.Save(ctx, result); err != nil {
			return fmt.Errorf("failed to archive game %s: %w", result.GameID, err)
		}
	}
	for _, team := range result.Teams {
		if team.TeamID != result.WinnerTeamID {
			continue
		}
		for _, nickname := range team.Players {
			if err := s.leaderboard.AddWin(ctx, result.RoomID, nickname); err != nil {
				return fmt.Errorf("failed to update leaderboard: %w", err)
			}
		}
	}
	return nil
}

// ListResults returns the archived games of a room, newest first
func (s *ResultService) ListResults(ctx context.Context, roomID string, limit int64) ([]*model.GameResult, error) {
	if s.repo == nil {
		return []*model.GameResult{}, nil
	}
	results, err := s.repo.ListByRoom(ctx, roomID, limit)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []*model.GameResult{}
	}
	return results, nil
}

// Leaderboard returns the nicknames with the most wins in a room
func (s *ResultService) Leaderboard(ctx context.Context, roomID string, limit int) ([]cache.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	return s.leaderboard.GetTop(ctx, roomID, limit)
}
