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

const createTagsTable = `
CREATE TABLE IF NOT EXISTS tags (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);
`

const createMediaTagsTable = `
CREATE TABLE IF NOT EXISTS media_tags (
	media_id INTEGER NOT NULL REFERENCES media(id),
	tag_id INTEGER NOT NULL REFERENCES tags(id),
	PRIMARY KEY (media_id, tag_id)
);
`

type TagRepository struct {
	db *sql.DB
}

func NewTagRepository(db *sql.DB) repository.TagRepository {
	return &TagRepository{db: db}
}

func (r *TagRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTagsTable); err != nil {
		return fmt.Errorf("create tags table: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, createMediaTagsTable); err != nil {
		return fmt.Errorf("create media_tags table: %w", err)
	}
	return nil
}

func (r *TagRepository) GetOrCreate(ctx context.Context, name string) (*domain.Tag, error) {
	return getOrCreateTag(ctx, r.db, name)
}

func (r *TagRepository) List(ctx context.Context) ([]domain.Tag, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var tag domain.Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (r *TagRepository) ListForMedia(ctx context.Context, mediaID int64) ([]domain.Tag, error) {
	return listTagsForMedia(ctx, r.db, mediaID)
}

func (r *TagRepository) AttachToMedia(ctx context.Context, mediaID int64, tagName string) error {
	tag, err := getOrCreateTag(ctx, r.db, tagName)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT OR IGNORE INTO media_tags (media_id, tag_id) VALUES (?, ?)`, mediaID, tag.ID)
	if err != nil {
		return fmt.Errorf("attach tag: %w", err)
	}
	return nil
}

func (r *TagRepository) DetachFromMedia(ctx context.Context, mediaID int64, tagName string) error {
	name := normalizeTagName(tagName)
	if name == "" {
		return fmt.Errorf("tag name is required")
	}

	res, err := r.db.ExecContext(ctx, `
DELETE FROM media_tags
WHERE media_id = ? AND tag_id IN (SELECT id FROM tags WHERE name = ?)`, mediaID, name)
	if err != nil {
		return fmt.Errorf("detach tag: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("detach tag rows affected: %w", err)
	}
	if aff == 0 {
		return fmt.Errorf("tag not attached")
	}
	return nil
}

func getOrCreateTag(ctx context.Context, q querier, name string) (*domain.Tag, error) {
	name = normalizeTagName(name)
	if name == "" {
		return nil, fmt.Errorf("tag name is required")
	}

	var tag domain.Tag
	err := q.QueryRowContext(ctx, `SELECT id, name FROM tags WHERE name = ?`, name).
		Scan(&tag.ID, &tag.Name)
	if err == nil {
		return &tag, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("query tag: %w", err)
	}

	res, err := q.ExecContext(ctx, `INSERT INTO tags (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert tag: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("tag last insert id: %w", err)
	}
	return &domain.Tag{ID: id, Name: name}, nil
}

func normalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
