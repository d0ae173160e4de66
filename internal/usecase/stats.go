package usecase

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/example/wastewise/internal/repository"
	"github.com/example/wastewise/internal/waste"
)

// StatsSummary is a user's aggregate counters plus the derived level.
// NextLevelPoints is absent at the maximum level.
type StatsSummary struct {
	repository.UserStats
	Level           int  `json:"level"`
	NextLevelPoints *int `json:"next_level_points,omitempty"`
}

// GetUserStats loads a user's counters and derives the gamification level
// from the total points.
func (uc *ScanUseCase) GetUserStats(ctx context.Context, userID string) (*StatsSummary, error) {
	stats, err := uc.repo.GetUserStats(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return nil, err
	}

	summary := &StatsSummary{UserStats: *stats}
	level, next, hasNext := waste.LevelForPoints(int(stats.TotalPoints))
	summary.Level = level
	if hasNext {
		summary.NextLevelPoints = &next
	}
	return summary, nil
}
