package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/roll-social-network/roll-social-network/internal/models"
	"github.com/roll-social-network/roll-social-network/internal/utils"
)

// ErrOTPSecretExists is returned by Create when the user already owns a
// secret (unique index on otp_secrets.user_id).
var ErrOTPSecretExists = errors.New("otp_secret_exists")

type OTPSecretRepository interface {
	Create(ctx context.Context, secret *models.OTPSecret) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.OTPSecret, error)
	MarkValid(ctx context.Context, id uuid.UUID, at time.Time) error
	HasValidByPhoneNumber(ctx context.Context, phoneNumber string) (bool, error)
}

type otpSecretRepository struct {
	db     DB
	encKey []byte
}

// NewOTPSecretRepository stores secret values AES-256-GCM encrypted with encKey.
func NewOTPSecretRepository(db DB, encKey []byte) OTPSecretRepository {
	return &otpSecretRepository{db: db, encKey: encKey}
}

func (r *otpSecretRepository) Create(ctx context.Context, secret *models.OTPSecret) error {
	if secret.ID == uuid.Nil {
		secret.ID = uuid.New()
	}
	enc, err := utils.Encrypt(r.encKey, secret.Value)
	if err != nil {
		return fmt.Errorf("encrypting otp secret: %w", err)
	}

	q := `
        INSERT INTO otp_secrets (id, user_id, value, valid_at, created_at)
        VALUES ($1, $2, $3, $4, NOW())
        RETURNING created_at
    `
	err = r.db.QueryRow(ctx, q, secret.ID, secret.UserID, enc, secret.ValidAt).Scan(&secret.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: user %s", ErrOTPSecretExists, secret.UserID)
	}
	return err
}

func (r *otpSecretRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.OTPSecret, error) {
	q := `
        SELECT id, user_id, value, valid_at, created_at
        FROM otp_secrets
        WHERE user_id = $1
    `
	var (
		s   models.OTPSecret
		enc string
	)
	err := r.db.QueryRow(ctx, q, userID).Scan(&s.ID, &s.UserID, &enc, &s.ValidAt, &s.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.Value, err = utils.Decrypt(r.encKey, enc)
	if err != nil {
		return nil, fmt.Errorf("decrypting otp secret for user %s: %w", userID, err)
	}
	return &s, nil
}

func (r *otpSecretRepository) MarkValid(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE otp_secrets SET valid_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrNoRowsUpdated
	}
	return nil
}

func (r *otpSecretRepository) HasValidByPhoneNumber(ctx context.Context, phoneNumber string) (bool, error) {
	q := `
        SELECT EXISTS (
            SELECT 1
            FROM otp_secrets s
            JOIN users u ON u.id = s.user_id
            WHERE u.phone_number = $1
              AND s.valid_at IS NOT NULL
        )
    `
	var exists bool
	if err := r.db.QueryRow(ctx, q, phoneNumber).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
