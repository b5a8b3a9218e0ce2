package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"media-bucket/internal/domain"
	"media-bucket/internal/repository"
)

const createPlatformsTable = `
CREATE TABLE IF NOT EXISTS platforms (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);
`

type PlatformRepository struct {
	db *sql.DB
}

func NewPlatformRepository(db *sql.DB) repository.PlatformRepository {
	return &PlatformRepository{db: db}
}

func (r *PlatformRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createPlatformsTable); err != nil {
		return fmt.Errorf("create platforms table: %w", err)
	}
	return nil
}

func (r *PlatformRepository) GetOrCreate(ctx context.Context, name string) (*domain.Platform, error) {
	return getOrCreatePlatform(ctx, r.db, name)
}

func (r *PlatformRepository) List(ctx context.Context) ([]domain.Platform, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM platforms ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query platforms: %w", err)
	}
	defer rows.Close()

	var platforms []domain.Platform
	for rows.Next() {
		var p domain.Platform
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan platform: %w", err)
		}
		platforms = append(platforms, p)
	}
	return platforms, rows.Err()
}

// Platform names are stored lower-cased so lookups are case-insensitive.
func getOrCreatePlatform(ctx context.Context, q querier, name string) (*domain.Platform, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "unknown"
	}

	var platform domain.Platform
	err := q.QueryRowContext(ctx, `SELECT id, name FROM platforms WHERE name = ?`, name).
		Scan(&platform.ID, &platform.Name)
	if err == nil {
		return &platform, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("query platform: %w", err)
	}

	res, err := q.ExecContext(ctx, `INSERT INTO platforms (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert platform: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("platform last insert id: %w", err)
	}
	return &domain.Platform{ID: id, Name: name}, nil
}
