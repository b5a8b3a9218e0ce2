package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"media-bucket/internal/domain"
	"media-bucket/internal/repository"
)

const createMediaTable = `
CREATE TABLE IF NOT EXISTS media (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	filepath TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	filesize INTEGER NOT NULL DEFAULT 0,
	thumbnail_path TEXT NOT NULL DEFAULT '',
	archive_location TEXT NOT NULL DEFAULT '',
	platform_id INTEGER NOT NULL REFERENCES platforms(id),
	profile_id INTEGER NULL REFERENCES profiles(id),
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

const mediaSelectColumns = `
m.id, m.title, m.filepath, m.url, m.filesize, m.thumbnail_path, m.archive_location,
m.platform_id, m.profile_id, m.created_at, m.updated_at, pl.name, pr.owner_name, pr.profile_id`

const mediaSelectJoins = `
FROM media m
JOIN platforms pl ON m.platform_id = pl.id
LEFT JOIN profiles pr ON m.profile_id = pr.id`

// querier is satisfied by both *sql.DB and *sql.Tx, so the get-or-create
// helpers can run inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type MediaRepository struct {
	db *sql.DB
}

func NewMediaRepository(db *sql.DB) repository.MediaRepository {
	return &MediaRepository{db: db}
}

func (r *MediaRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createMediaTable); err != nil {
		return fmt.Errorf("create media table: %w", err)
	}
	return nil
}

// CreateWithRelations get-or-creates the platform and profile rows and
// inserts the media row referencing them, all within one transaction.
func (r *MediaRepository) CreateWithRelations(ctx context.Context, data domain.MediaData) (int64, error) {
	if data.Filepath == "" {
		return 0, domain.ErrFilepathRequired
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	platformName := data.Platform
	if platformName == "" {
		platformName = "unknown"
	}
	platform, err := getOrCreatePlatform(ctx, tx, platformName)
	if err != nil {
		return 0, err
	}

	var profileID *int64
	if data.Uploader != "" {
		profile, err := getOrCreateProfile(ctx, tx, data.Uploader, data.UploaderID)
		if err != nil {
			return 0, err
		}
		profileID = &profile.ID
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
INSERT INTO media (title, filepath, url, filesize, thumbnail_path, archive_location, platform_id, profile_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		data.Title,
		data.Filepath,
		data.URL,
		data.Filesize,
		data.ThumbnailPath,
		"",
		platform.ID,
		nullInt64(profileID),
		now,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert media: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("media last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit media insert: %w", err)
	}
	return id, nil
}

func (r *MediaRepository) Get(ctx context.Context, id int64) (*domain.Media, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+mediaSelectColumns+mediaSelectJoins+` WHERE m.id = ?`, id)
	media, err := scanMedia(row)
	if err != nil {
		return nil, err
	}
	tags, err := listTagsForMedia(ctx, r.db, media.ID)
	if err != nil {
		return nil, err
	}
	media.Tags = tags
	return media, nil
}

func (r *MediaRepository) ListPage(ctx context.Context, page, pageSize int) ([]domain.Media, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 25
	}
	offset := (page - 1) * pageSize

	rows, err := r.db.QueryContext(ctx, `
SELECT`+mediaSelectColumns+mediaSelectJoins+`
ORDER BY m.created_at DESC, m.id DESC
LIMIT ? OFFSET ?`, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("query media page: %w", err)
	}
	defer rows.Close()

	return r.collect(ctx, rows)
}

func (r *MediaRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM media`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count media: %w", err)
	}
	return count, nil
}

// Search combines LIKE conditions over the filter fields. The first filter's
// operator is ignored; subsequent ones chain with their own AND/OR.
func (r *MediaRepository) Search(ctx context.Context, filters []repository.SearchFilter, page, pageSize int) ([]domain.Media, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 25
	}

	where, args := buildSearchWhere(filters)

	query := `
SELECT DISTINCT` + mediaSelectColumns + `
FROM media m
JOIN platforms pl ON m.platform_id = pl.id
LEFT JOIN profiles pr ON m.profile_id = pr.id
LEFT JOIN media_tags mt ON m.id = mt.media_id
LEFT JOIN tags t ON mt.tag_id = t.id
WHERE ` + where + `
ORDER BY m.created_at DESC, m.id DESC
LIMIT ? OFFSET ?`
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search media: %w", err)
	}
	defer rows.Close()

	return r.collect(ctx, rows)
}

func buildSearchWhere(filters []repository.SearchFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	for _, f := range filters {
		keyword := strings.TrimSpace(f.Keyword)
		if keyword == "" {
			continue
		}

		var cond string
		switch f.Field {
		case "title":
			cond = "m.title LIKE ?"
		case "tag":
			cond = "t.name LIKE ?"
		case "profile":
			cond = "pr.owner_name LIKE ?"
		case "platform":
			cond = "pl.name LIKE ?"
		default:
			continue
		}
		args = append(args, "%"+keyword+"%")

		if len(conditions) == 0 {
			conditions = append(conditions, cond)
			continue
		}
		op := "AND"
		if strings.EqualFold(f.Op, "OR") {
			op = "OR"
		}
		conditions = append(conditions, op+" "+cond)
	}
	if len(conditions) == 0 {
		return "1=1", nil
	}
	return strings.Join(conditions, " "), args
}

func (r *MediaRepository) SetArchiveLocation(ctx context.Context, id int64, location string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE media SET archive_location=?, updated_at=? WHERE id=?`,
		location, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set archive location: %w", err)
	}
	return nil
}

func (r *MediaRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM media_tags WHERE media_id=?`, id); err != nil {
		return fmt.Errorf("delete media tags: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM media WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete media: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("media delete rows affected: %w", err)
	}
	if aff == 0 {
		return fmt.Errorf("media not found")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit media delete: %w", err)
	}
	return nil
}

func (r *MediaRepository) collect(ctx context.Context, rows *sql.Rows) ([]domain.Media, error) {
	var items []domain.Media
	for rows.Next() {
		media, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *media)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range items {
		tags, err := listTagsForMedia(ctx, r.db, items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i].Tags = tags
	}
	return items, nil
}

func scanMedia(scanner interface {
	Scan(dest ...any) error
}) (*domain.Media, error) {
	var (
		media            domain.Media
		profileRef       sql.NullInt64
		createdAt        time.Time
		updatedAt        time.Time
		platformName     string
		profileOwnerName sql.NullString
		profileStableID  sql.NullString
	)

	if err := scanner.Scan(
		&media.ID,
		&media.Title,
		&media.Filepath,
		&media.URL,
		&media.Filesize,
		&media.ThumbnailPath,
		&media.ArchiveLocation,
		&media.PlatformID,
		&profileRef,
		&createdAt,
		&updatedAt,
		&platformName,
		&profileOwnerName,
		&profileStableID,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("media not found")
		}
		return nil, fmt.Errorf("scan media: %w", err)
	}

	media.CreatedAt = createdAt.Local()
	media.UpdatedAt = updatedAt.Local()
	media.Platform = &domain.Platform{ID: media.PlatformID, Name: platformName}
	if profileRef.Valid {
		id := profileRef.Int64
		media.ProfileID = &id
		media.Profile = &domain.Profile{
			ID:        id,
			OwnerName: profileOwnerName.String,
			ProfileID: profileStableID.String,
		}
	}
	return &media, nil
}

func listTagsForMedia(ctx context.Context, q querier, mediaID int64) ([]domain.Tag, error) {
	rows, err := q.QueryContext(ctx, `
SELECT t.id, t.name
FROM tags t
JOIN media_tags mt ON mt.tag_id = t.id
WHERE mt.media_id = ?
ORDER BY t.name`, mediaID)
	if err != nil {
		return nil, fmt.Errorf("query media tags: %w", err)
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

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
