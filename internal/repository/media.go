package repository

import (
	"context"

	"media-bucket/internal/domain"
)

// SearchFilter is one (field, keyword, operator) triple. Field is one of
// "title", "tag", "profile", "platform"; Op ("AND"/"OR") combines the filter
// with the preceding one and is ignored on the first filter.
type SearchFilter struct {
	Field   string
	Keyword string
	Op      string
}

// MediaRepository exposes persistence operations for the media catalog.
// CreateWithRelations is the single entry point used by the download
// pipeline: it get-or-creates the platform and profile rows and inserts the
// media row within one transaction.
type MediaRepository interface {
	Init(ctx context.Context) error
	CreateWithRelations(ctx context.Context, data domain.MediaData) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Media, error)
	ListPage(ctx context.Context, page, pageSize int) ([]domain.Media, error)
	Count(ctx context.Context) (int64, error)
	Search(ctx context.Context, filters []SearchFilter, page, pageSize int) ([]domain.Media, error)
	SetArchiveLocation(ctx context.Context, id int64, location string) error
	Delete(ctx context.Context, id int64) error
}

// PlatformRepository manages source-site rows keyed by lower-cased name.
type PlatformRepository interface {
	Init(ctx context.Context) error
	GetOrCreate(ctx context.Context, name string) (*domain.Platform, error)
	List(ctx context.Context) ([]domain.Platform, error)
}

// ProfileRepository manages uploader rows keyed by their stable profile id.
type ProfileRepository interface {
	Init(ctx context.Context) error
	GetOrCreate(ctx context.Context, ownerName, profileID string) (*domain.Profile, error)
}

// TagRepository manages tags and their many-to-many relation to media.
type TagRepository interface {
	Init(ctx context.Context) error
	GetOrCreate(ctx context.Context, name string) (*domain.Tag, error)
	List(ctx context.Context) ([]domain.Tag, error)
	ListForMedia(ctx context.Context, mediaID int64) ([]domain.Tag, error)
	AttachToMedia(ctx context.Context, mediaID int64, tagName string) error
	DetachFromMedia(ctx context.Context, mediaID int64, tagName string) error
}
