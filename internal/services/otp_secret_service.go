package services

import (
	"context"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/roll-social-network/roll-social-network/internal/config"
	"github.com/roll-social-network/roll-social-network/internal/models"
	"github.com/roll-social-network/roll-social-network/internal/repositories"
	"github.com/roll-social-network/roll-social-network/internal/utils"
)

const (
	otpSecretSize = 20 // bytes; 32 base32 characters
	otpPeriod     = 30
	otpSkew       = 1
)

var otpValidateOpts = totp.ValidateOpts{
	Period:    otpPeriod,
	Skew:      otpSkew,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// ---------------------------------------------------------------------
// OTPSecretService interface
// ---------------------------------------------------------------------

// OTPSecretService manages the per-user TOTP secret. A secret is created
// pending and becomes a login factor once Validate stamps it.
type OTPSecretService interface {
	Create(ctx context.Context, user *models.User) (*models.OTPSecret, error)
	Get(ctx context.Context, user *models.User) (*models.OTPSecret, error)
	GetOrCreate(ctx context.Context, user *models.User) (*models.OTPSecret, bool, error)
	ProvisioningURI(ctx context.Context, secret *models.OTPSecret) (string, error)
	Validate(ctx context.Context, secret *models.OTPSecret, persist bool) error
	Verify(ctx context.Context, phoneNumber, otpCode string) (*models.OTPSecret, error)
	CheckCode(secret *models.OTPSecret, otpCode string) bool
	PhoneNumberHasValidOTPSecret(ctx context.Context, phoneNumber string) (bool, error)
}

// ---------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------

type otpSecretService struct {
	users   repositories.UserRepository
	secrets repositories.OTPSecretRepository
	sites   repositories.SiteRepository
	cfg     *config.Config

	now func() time.Time
}

func NewOTPSecretService(
	users repositories.UserRepository,
	secrets repositories.OTPSecretRepository,
	sites repositories.SiteRepository,
	cfg *config.Config,
) OTPSecretService {
	return &otpSecretService{
		users:   users,
		secrets: secrets,
		sites:   sites,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Create stores a new random secret for user. A second secret for the same
// user fails with repositories.ErrOTPSecretExists.
func (s *otpSecretService) Create(ctx context.Context, user *models.User) (*models.OTPSecret, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.cfg.OrganizationName,
		AccountName: user.GetUsername(),
		SecretSize:  otpSecretSize,
	})
	if err != nil {
		return nil, fmt.Errorf("generate otp secret: %w", err)
	}

	secret := &models.OTPSecret{
		ID:     uuid.New(),
		UserID: user.ID,
		Value:  key.Secret(),
	}
	if err := s.secrets.Create(ctx, secret); err != nil {
		return nil, err
	}
	return secret, nil
}

// Get returns the user's secret, or nil when none was provisioned.
func (s *otpSecretService) Get(ctx context.Context, user *models.User) (*models.OTPSecret, error) {
	return s.secrets.GetByUserID(ctx, user.ID)
}

func (s *otpSecretService) GetOrCreate(ctx context.Context, user *models.User) (*models.OTPSecret, bool, error) {
	existing, err := s.secrets.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	created, err := s.Create(ctx, user)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, repositories.ErrOTPSecretExists) {
		return nil, false, err
	}

	// Lost a race with a concurrent creator; its row wins.
	existing, err = s.secrets.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("otp secret for user %s vanished after conflict", user.ID)
	}
	return existing, false, nil
}

// ProvisioningURI renders the otpauth:// URI for authenticator apps, using
// the owner's phone number as account name and the home site name as issuer.
func (s *otpSecretService) ProvisioningURI(ctx context.Context, secret *models.OTPSecret) (string, error) {
	user, err := s.users.GetByID(ctx, secret.UserID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", fmt.Errorf("otp secret %s has no owner", secret.ID)
	}

	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.ToUpper(secret.Value))
	if err != nil {
		return "", fmt.Errorf("decode otp secret: %w", err)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer(ctx),
		AccountName: user.GetUsername(),
		Period:      otpPeriod,
		Secret:      raw,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("build provisioning uri: %w", err)
	}
	return key.URL(), nil
}

func (s *otpSecretService) issuer(ctx context.Context) string {
	site, err := s.sites.GetByID(ctx, s.cfg.HomeSiteID)
	if err != nil || site == nil {
		utils.Logger.WithError(err).Warnf("Home site %d unavailable; using organization name as OTP issuer", s.cfg.HomeSiteID)
		return s.cfg.OrganizationName
	}
	return site.Name
}

// Validate activates the secret. Calling it again restamps valid_at.
func (s *otpSecretService) Validate(ctx context.Context, secret *models.OTPSecret, persist bool) error {
	now := s.now()
	if persist {
		if err := s.secrets.MarkValid(ctx, secret.ID, now); err != nil {
			return err
		}
	}
	secret.ValidAt = &now
	return nil
}

// Verify returns the active secret of the user owning phoneNumber when
// otpCode matches it within one step of skew, or nil. Unknown users are
// not created.
func (s *otpSecretService) Verify(ctx context.Context, phoneNumber, otpCode string) (*models.OTPSecret, error) {
	normalized, err := utils.NormalizePhoneNumber(phoneNumber)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByPhoneNumber(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	secret, err := s.secrets.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if secret == nil || !secret.IsActive() {
		return nil, nil
	}
	if !s.CheckCode(secret, otpCode) {
		return nil, nil
	}
	return secret, nil
}

// CheckCode compares otpCode against the secret regardless of activation.
func (s *otpSecretService) CheckCode(secret *models.OTPSecret, otpCode string) bool {
	ok, err := totp.ValidateCustom(otpCode, secret.Value, s.now().UTC(), otpValidateOpts)
	if err != nil {
		utils.Logger.WithError(err).Debug("TOTP validation error")
		return false
	}
	return ok
}

func (s *otpSecretService) PhoneNumberHasValidOTPSecret(ctx context.Context, phoneNumber string) (bool, error) {
	normalized, err := utils.NormalizePhoneNumber(phoneNumber)
	if err != nil {
		return false, err
	}
	return s.secrets.HasValidByPhoneNumber(ctx, normalized)
}
