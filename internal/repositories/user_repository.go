package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/roll-social-network/roll-social-network/internal/models"
)

// UserRepository is the user directory. Phone numbers passed in must already
// be normalized to E.164.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByPhoneNumber(ctx context.Context, phoneNumber string) (*models.User, error)
	// GetOrCreate inserts the user if absent and returns the stored row.
	// Concurrent callers for the same number observe the same user.
	GetOrCreate(ctx context.Context, phoneNumber string) (*models.User, bool, error)
}

type userRepository struct {
	db DB
}

func NewUserRepository(db DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, phone_number, is_active, created_at`

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, q, id))
}

func (r *userRepository) GetByPhoneNumber(ctx context.Context, phoneNumber string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE phone_number = $1`
	return scanUser(r.db.QueryRow(ctx, q, phoneNumber))
}

func (r *userRepository) GetOrCreate(ctx context.Context, phoneNumber string) (*models.User, bool, error) {
	q := `
        INSERT INTO users (id, phone_number, is_active, created_at)
        VALUES ($1, $2, TRUE, NOW())
        ON CONFLICT (phone_number) DO NOTHING
    `
	tag, err := r.db.Exec(ctx, q, uuid.New(), phoneNumber)
	if err != nil {
		return nil, false, err
	}
	u, err := r.GetByPhoneNumber(ctx, phoneNumber)
	if err != nil {
		return nil, false, err
	}
	if u == nil {
		return nil, false, pgx.ErrNoRows
	}
	return u, tag.RowsAffected() == 1, nil
}

// scanUser returns (nil, nil) when no row matched.
func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.PhoneNumber, &u.IsActive, &u.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
