package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/roll-social-network/roll-social-network/internal/config"
	"github.com/roll-social-network/roll-social-network/internal/gateways"
	"github.com/roll-social-network/roll-social-network/internal/metrics"
	"github.com/roll-social-network/roll-social-network/internal/models"
	"github.com/roll-social-network/roll-social-network/internal/repositories"
	"github.com/roll-social-network/roll-social-network/internal/utils"
	"github.com/sirupsen/logrus"
)

// ---------------------------------------------------------------------
// VerificationCodeService interface
// ---------------------------------------------------------------------

// VerificationCodeService issues and checks the short numeric codes sent by
// SMS. Every credential failure is reported as a nil record; only an
// unparsable number or a store/gateway fault yields an error.
type VerificationCodeService interface {
	Request(ctx context.Context, phoneNumber string) (*models.VerificationCode, error)
	Verify(ctx context.Context, phoneNumber, code string) (*models.VerificationCode, error)
}

// ---------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------

type verificationCodeService struct {
	users   repositories.UserRepository
	codes   repositories.VerificationCodeRepository
	gateway gateways.Gateway
	cfg     *config.Config

	now          func() time.Time
	generateCode func(length int) (string, error)
}

func NewVerificationCodeService(
	users repositories.UserRepository,
	codes repositories.VerificationCodeRepository,
	gateway gateways.Gateway,
	cfg *config.Config,
) VerificationCodeService {
	return &verificationCodeService{
		users:        users,
		codes:        codes,
		gateway:      gateway,
		cfg:          cfg,
		now:          time.Now,
		generateCode: generateVerificationCode,
	}
}

// ---------------------------------------------------------------------
// Request
// ---------------------------------------------------------------------

// Request creates a fresh code for the owner of phoneNumber and hands it to
// the gateway. The record stays persisted when delivery fails.
func (s *verificationCodeService) Request(ctx context.Context, phoneNumber string) (*models.VerificationCode, error) {
	normalized, err := utils.NormalizePhoneNumber(phoneNumber)
	if err != nil {
		return nil, err
	}

	user, _, err := s.users.GetOrCreate(ctx, normalized)
	if err != nil {
		metrics.ObserveCodeRequested("error")
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	code, err := s.generateCode(s.cfg.VerificationCodeLength)
	if err != nil {
		metrics.ObserveCodeRequested("error")
		return nil, fmt.Errorf("generate verification code: %w", err)
	}

	rec := &models.VerificationCode{
		ID:         uuid.New(),
		UserID:     user.ID,
		Code:       code,
		ValidUntil: s.now().Add(s.cfg.VerificationCodeTTL),
		Attempts:   s.cfg.VerificationCodeAttempts,
	}
	if err := s.codes.Create(ctx, rec); err != nil {
		metrics.ObserveCodeRequested("error")
		return nil, fmt.Errorf("store verification code: %w", err)
	}
	rec.PhoneNumber = user.PhoneNumber

	if err := s.gateway.Send(ctx, rec); err != nil {
		utils.Logger.WithError(err).WithField("user_id", user.ID).
			Error("Failed to deliver verification code")
		metrics.ObserveCodeRequested("delivery_failed")
		return nil, err
	}

	metrics.ObserveCodeRequested("sent")
	return rec, nil
}

// ---------------------------------------------------------------------
// Verify
// ---------------------------------------------------------------------

// Verify returns the live record matching (phoneNumber, code), or nil. A
// miss takes one attempt from every live record of the user. A hit does
// not consume the code.
func (s *verificationCodeService) Verify(ctx context.Context, phoneNumber, code string) (*models.VerificationCode, error) {
	normalized, err := utils.NormalizePhoneNumber(phoneNumber)
	if err != nil {
		return nil, err
	}

	user, _, err := s.users.GetOrCreate(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	now := s.now()
	rec, err := s.codes.FindLive(ctx, user.ID, code, now)
	if err != nil {
		return nil, fmt.Errorf("lookup verification code: %w", err)
	}
	if rec != nil {
		return rec, nil
	}

	penalized, err := s.codes.DecrementLiveAttempts(ctx, user.ID, now)
	if err != nil {
		return nil, fmt.Errorf("penalize verification codes: %w", err)
	}
	utils.Logger.WithFields(logrus.Fields{
		"user_id":   user.ID,
		"penalized": penalized,
	}).Debug("Verification code mismatch")
	return nil, nil
}
