package services

import (
	"context"
	"fmt"

	"github.com/roll-social-network/roll-social-network/internal/config"
	"github.com/roll-social-network/roll-social-network/internal/metrics"
	"github.com/roll-social-network/roll-social-network/internal/repositories"
	"github.com/roll-social-network/roll-social-network/internal/utils"
)

// RateLimiterService guards verification code issuance. It runs before the
// code engine and never inside it.
type RateLimiterService interface {
	CheckSMSRateLimits(ctx context.Context, clientID, phoneNumber string) error
}

type rateLimiterService struct {
	repo repositories.RateLimitRepository
	cfg  *config.Config
}

func NewRateLimiterService(repo repositories.RateLimitRepository, cfg *config.Config) RateLimiterService {
	return &rateLimiterService{repo: repo, cfg: cfg}
}

// CheckSMSRateLimits checks global, per-client, and per-phone-number limits.
func (s *rateLimiterService) CheckSMSRateLimits(ctx context.Context, clientID, phoneNumber string) error {
	checks := []struct {
		scope string
		key   string
		limit int
	}{
		{"global", "sms:global", s.cfg.GlobalSMSLimitPerHour},
		{"client", fmt.Sprintf("sms:client:%s", clientID), s.cfg.SMSLimitPerIPPerHour},
		{"phone", fmt.Sprintf("sms:phone:%s", phoneNumber), s.cfg.SMSLimitPerNumberPerHour},
	}

	for _, c := range checks {
		allowed, err := s.repo.IncrementAndCheck(ctx, c.key, c.limit, s.cfg.RateLimitWindow)
		if err != nil {
			return err
		}
		if !allowed {
			utils.Logger.Warnf("SMS rate limit exceeded (key: %s)", c.key)
			metrics.ObserveRateLimited(c.scope)
			return utils.ErrRateLimitExceeded
		}
	}
	return nil
}
