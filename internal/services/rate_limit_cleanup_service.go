package services

import (
	"context"

	"github.com/roll-social-network/roll-social-network/internal/repositories"
	"github.com/roll-social-network/roll-social-network/internal/utils"
)

// RateLimitCleanupService removes expired rate limit counters. Verification
// codes are left alone.
type RateLimitCleanupService interface {
	CleanupDaily(ctx context.Context) error
}

type rateLimitCleanupService struct {
	repo repositories.RateLimitRepository
}

func NewRateLimitCleanupService(repo repositories.RateLimitRepository) RateLimitCleanupService {
	return &rateLimitCleanupService{repo: repo}
}

func (s *rateLimitCleanupService) CleanupDaily(ctx context.Context) error {
	removed, err := s.repo.CleanupExpired(ctx)
	if err != nil {
		utils.Logger.WithError(err).Error("Failed to cleanup expired rate_limit_attempts")
		return err
	}

	utils.Logger.WithField("removed", removed).Info("Daily rate limit counter cleanup completed successfully.")
	return nil
}
