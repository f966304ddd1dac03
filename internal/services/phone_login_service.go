package services

import (
	"context"
	"fmt"

	"github.com/roll-social-network/roll-social-network/internal/config"
	"github.com/roll-social-network/roll-social-network/internal/metrics"
	"github.com/roll-social-network/roll-social-network/internal/models"
	"github.com/roll-social-network/roll-social-network/internal/repositories"
	"github.com/roll-social-network/roll-social-network/internal/utils"
	"github.com/sirupsen/logrus"
)

// ---------------------------------------------------------------------
// PhoneLoginService interface
// ---------------------------------------------------------------------

// PhoneLoginService is the flow the HTTP layer drives: rate limited code
// issuance, then login with either credential and a session token.
type PhoneLoginService interface {
	RequestCode(ctx context.Context, phoneNumber string, clientIdentifier utils.ClientIdentifier) error
	Login(
		ctx context.Context,
		method string,
		phoneNumber string,
		credential string,
		clientIdentifier utils.ClientIdentifier,
	) (*models.User, string, error)
}

// ---------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------

type phoneLoginService struct {
	codes       VerificationCodeService
	rateLimiter RateLimiterService
	jwtService  JWTService
	backends    map[string]AuthBackend
	cfg         *config.Config
}

func NewPhoneLoginService(
	codes VerificationCodeService,
	otpSecrets OTPSecretService,
	rateLimiter RateLimiterService,
	jwtService JWTService,
	users repositories.UserRepository,
	cfg *config.Config,
) PhoneLoginService {
	return &phoneLoginService{
		codes:       codes,
		rateLimiter: rateLimiter,
		jwtService:  jwtService,
		backends: map[string]AuthBackend{
			LoginMethodVerificationCode: NewPhoneAuthBackend(codes, users),
			LoginMethodOTPCode:          NewPhoneAuthOTPBackend(otpSecrets, users),
		},
		cfg: cfg,
	}
}

// ---------------------------------------------------------------------
// RequestCode
// ---------------------------------------------------------------------

func (s *phoneLoginService) RequestCode(
	ctx context.Context,
	phoneNumber string,
	clientIdentifier utils.ClientIdentifier,
) error {
	normalized, err := utils.NormalizePhoneNumber(phoneNumber)
	if err != nil {
		return err
	}
	if err := s.rateLimiter.CheckSMSRateLimits(ctx, clientIdentifier.Value, normalized); err != nil {
		return err
	}
	_, err = s.codes.Request(ctx, normalized)
	return err
}

// ---------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------

// Login authenticates with the backend registered for method and issues an
// access token. Every rejected credential yields utils.ErrInvalidCredentials.
func (s *phoneLoginService) Login(
	ctx context.Context,
	method string,
	phoneNumber string,
	credential string,
	clientIdentifier utils.ClientIdentifier,
) (*models.User, string, error) {
	backend, ok := s.backends[method]
	if !ok {
		return nil, "", fmt.Errorf("unknown login method %q", method)
	}

	user, err := backend.Authenticate(ctx, phoneNumber, credential)
	if err != nil {
		metrics.ObserveLoginAttempt(method, "error")
		return nil, "", err
	}
	if user == nil {
		metrics.ObserveLoginAttempt(method, "rejected")
		return nil, "", utils.ErrInvalidCredentials
	}
	if !user.IsActive {
		metrics.ObserveLoginAttempt(method, "inactive")
		utils.Logger.WithField("user_id", user.ID).Warn("Login attempt for inactive user")
		return nil, "", utils.ErrInactiveAccount
	}

	token, err := s.jwtService.GenerateAccessToken(ctx, user.ID, clientIdentifier, s.cfg.TokenExpiry)
	if err != nil {
		metrics.ObserveLoginAttempt(method, "error")
		return nil, "", fmt.Errorf("sign access token: %w", err)
	}

	metrics.ObserveLoginAttempt(method, "success")
	utils.Logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"method":  method,
	}).Info("User logged in")
	return user, token, nil
}
