package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/roll-social-network/roll-social-network/internal/models"
	"github.com/roll-social-network/roll-social-network/internal/repositories"
)

// AuthBackend authenticates a phone number with a single credential. A nil
// user with a nil error means the credential was rejected.
type AuthBackend interface {
	Authenticate(ctx context.Context, phoneNumber, credential string) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// PhoneAuthBackend accepts SMS verification codes.
type PhoneAuthBackend struct {
	codes VerificationCodeService
	users repositories.UserRepository
}

func NewPhoneAuthBackend(codes VerificationCodeService, users repositories.UserRepository) *PhoneAuthBackend {
	return &PhoneAuthBackend{codes: codes, users: users}
}

func (b *PhoneAuthBackend) Authenticate(ctx context.Context, phoneNumber, code string) (*models.User, error) {
	rec, err := b.codes.Verify(ctx, phoneNumber, code)
	if err != nil || rec == nil {
		return nil, err
	}
	return b.users.GetByID(ctx, rec.UserID)
}

func (b *PhoneAuthBackend) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return b.users.GetByID(ctx, id)
}

// PhoneAuthOTPBackend accepts TOTP codes from an activated secret.
type PhoneAuthOTPBackend struct {
	secrets OTPSecretService
	users   repositories.UserRepository
}

func NewPhoneAuthOTPBackend(secrets OTPSecretService, users repositories.UserRepository) *PhoneAuthOTPBackend {
	return &PhoneAuthOTPBackend{secrets: secrets, users: users}
}

func (b *PhoneAuthOTPBackend) Authenticate(ctx context.Context, phoneNumber, otpCode string) (*models.User, error) {
	secret, err := b.secrets.Verify(ctx, phoneNumber, otpCode)
	if err != nil || secret == nil {
		return nil, err
	}
	return b.users.GetByID(ctx, secret.UserID)
}

func (b *PhoneAuthOTPBackend) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return b.users.GetByID(ctx, id)
}
