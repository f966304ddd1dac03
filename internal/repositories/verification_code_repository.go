package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/roll-social-network/roll-social-network/internal/models"
)

type VerificationCodeRepository interface {
	Create(ctx context.Context, rec *models.VerificationCode) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.VerificationCode, error)
	// FindLive returns the newest record for (user, code) that is still live
	// at instant now, or nil.
	FindLive(ctx context.Context, userID uuid.UUID, code string, now time.Time) (*models.VerificationCode, error)
	// DecrementLiveAttempts takes one attempt from every record of the user
	// that is live at instant now, in a single statement. Returns the number
	// of records penalized.
	DecrementLiveAttempts(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.VerificationCode, error)
}

type verificationCodeRepository struct {
	db DB
}

func NewVerificationCodeRepository(db DB) VerificationCodeRepository {
	return &verificationCodeRepository{db: db}
}

const verificationCodeSelect = `
    SELECT vc.id, vc.user_id, vc.code, vc.valid_until, vc.attempts, vc.created_at, u.phone_number
    FROM verification_codes vc
    JOIN users u ON u.id = vc.user_id
`

func (r *verificationCodeRepository) Create(ctx context.Context, rec *models.VerificationCode) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	q := `
        INSERT INTO verification_codes (id, user_id, code, valid_until, attempts, created_at)
        VALUES ($1, $2, $3, $4, $5, NOW())
        RETURNING created_at
    `
	return r.db.QueryRow(ctx, q, rec.ID, rec.UserID, rec.Code, rec.ValidUntil, rec.Attempts).
		Scan(&rec.CreatedAt)
}

func (r *verificationCodeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.VerificationCode, error) {
	q := verificationCodeSelect + `WHERE vc.id = $1`
	return scanVerificationCode(r.db.QueryRow(ctx, q, id))
}

func (r *verificationCodeRepository) FindLive(
	ctx context.Context,
	userID uuid.UUID,
	code string,
	now time.Time,
) (*models.VerificationCode, error) {
	q := verificationCodeSelect + `
        WHERE vc.user_id = $1
          AND vc.code = $2
          AND vc.valid_until >= $3
          AND vc.attempts > 0
        ORDER BY vc.created_at DESC
        LIMIT 1
    `
	return scanVerificationCode(r.db.QueryRow(ctx, q, userID, code, now))
}

func (r *verificationCodeRepository) DecrementLiveAttempts(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	q := `
        UPDATE verification_codes
        SET attempts = attempts - 1
        WHERE user_id = $1
          AND valid_until >= $2
          AND attempts > 0
    `
	tag, err := r.db.Exec(ctx, q, userID, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *verificationCodeRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.VerificationCode, error) {
	q := verificationCodeSelect + `WHERE vc.user_id = $1 ORDER BY vc.created_at ASC`
	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.VerificationCode
	for rows.Next() {
		rec, err := scanVerificationCode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanVerificationCode(row pgx.Row) (*models.VerificationCode, error) {
	var rec models.VerificationCode
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Code,
		&rec.ValidUntil,
		&rec.Attempts,
		&rec.CreatedAt,
		&rec.PhoneNumber,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
