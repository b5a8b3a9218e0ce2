package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"media-bucket/internal/domain"
	"media-bucket/internal/repository"
)

const createProfilesTable = `
CREATE TABLE IF NOT EXISTS profiles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	profile_id TEXT NOT NULL UNIQUE,
	owner_name TEXT NOT NULL
);
`

type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) repository.ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createProfilesTable); err != nil {
		return fmt.Errorf("create profiles table: %w", err)
	}
	return nil
}

func (r *ProfileRepository) GetOrCreate(ctx context.Context, ownerName, profileID string) (*domain.Profile, error) {
	return getOrCreateProfile(ctx, r.db, ownerName, profileID)
}

// The stable profile id falls back to the display name when the backend
// could not supply one.
func getOrCreateProfile(ctx context.Context, q querier, ownerName, profileID string) (*domain.Profile, error) {
	if profileID == "" {
		profileID = ownerName
	}

	var profile domain.Profile
	err := q.QueryRowContext(ctx, `
SELECT id, profile_id, owner_name FROM profiles WHERE profile_id = ?`, profileID).
		Scan(&profile.ID, &profile.ProfileID, &profile.OwnerName)
	if err == nil {
		return &profile, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("query profile: %w", err)
	}

	res, err := q.ExecContext(ctx, `
INSERT INTO profiles (profile_id, owner_name) VALUES (?, ?)`, profileID, ownerName)
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("profile last insert id: %w", err)
	}
	return &domain.Profile{ID: id, ProfileID: profileID, OwnerName: ownerName}, nil
}
