package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AnshRaj112/nutrilog-backend/internal/database"
	"github.com/AnshRaj112/nutrilog-backend/internal/models"
)

type ProfileService struct {
	store *database.Store
}

func NewProfileService(store *database.Store) *ProfileService {
	return &ProfileService{store: store}
}

// Get returns the stored profile, or a default one for users that never saved settings.
func (s *ProfileService) Get(ctx context.Context, userID string) (models.Profile, error) {
	p := models.Profile{UserID: userID}
	err := s.store.DB.QueryRowContext(ctx, s.store.Rebind(`
		SELECT timezone, updated_at FROM profiles WHERE user_id = $1
	`), userID).Scan(&p.Timezone, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		p.Timezone = models.DefaultTimezone
		return p, nil
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	if p.Timezone == "" {
		p.Timezone = models.DefaultTimezone
	}
	return p, nil
}

// Timezone returns the user's IANA zone, "UTC" when unset.
func (s *ProfileService) Timezone(ctx context.Context, userID string) (string, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return p.Timezone, nil
}

// SetTimezone validates tz against the zone database before storing it, so
// later date resolution for this user cannot fail on a bad name.
func (s *ProfileService) SetTimezone(ctx context.Context, userID, tz string) (models.Profile, error) {
	loc, err := LoadZone(tz)
	if err != nil {
		return models.Profile{}, err
	}

	p := models.Profile{UserID: userID, Timezone: loc.String(), UpdatedAt: nowUTC()}
	_, err = s.store.DB.ExecContext(ctx, s.store.Rebind(`
		INSERT INTO profiles (user_id, timezone, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (user_id) DO UPDATE SET timezone = EXCLUDED.timezone, updated_at = EXCLUDED.updated_at
	`), p.UserID, p.Timezone, p.UpdatedAt)
	if err != nil {
		return models.Profile{}, fmt.Errorf("set timezone: %w", err)
	}
	return p, nil
}
