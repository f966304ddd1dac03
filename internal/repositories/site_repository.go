package repositories

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/roll-social-network/roll-social-network/internal/models"
)

type SiteRepository interface {
	GetByID(ctx context.Context, id int) (*models.Site, error)
}

type siteRepository struct {
	db DB
}

func NewSiteRepository(db DB) SiteRepository {
	return &siteRepository{db: db}
}

func (r *siteRepository) GetByID(ctx context.Context, id int) (*models.Site, error) {
	var s models.Site
	err := r.db.QueryRow(ctx, `SELECT id, domain, name FROM sites WHERE id = $1`, id).
		Scan(&s.ID, &s.Domain, &s.Name)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
