package service

import (
	"context"
	"errors"
	"strings"

	"media-bucket/internal/domain"
	"media-bucket/internal/repository"
)

// ErrEmptyTagName is returned when a tag operation receives a blank name.
var ErrEmptyTagName = errors.New("tag name is required")

// TagService manages tags and their assignment to media.
type TagService interface {
	List(ctx context.Context) ([]domain.Tag, error)
	ListForMedia(ctx context.Context, mediaID int64) ([]domain.Tag, error)
	Attach(ctx context.Context, mediaID int64, tagName string) error
	Detach(ctx context.Context, mediaID int64, tagName string) error
}

type tagService struct {
	tags  repository.TagRepository
	media repository.MediaRepository
}

func NewTagService(tags repository.TagRepository, media repository.MediaRepository) TagService {
	return &tagService{
		tags:  tags,
		media: media,
	}
}

func (s *tagService) List(ctx context.Context) ([]domain.Tag, error) {
	return s.tags.List(ctx)
}

func (s *tagService) ListForMedia(ctx context.Context, mediaID int64) ([]domain.Tag, error) {
	if _, err := s.media.Get(ctx, mediaID); err != nil {
		return nil, err
	}
	return s.tags.ListForMedia(ctx, mediaID)
}

func (s *tagService) Attach(ctx context.Context, mediaID int64, tagName string) error {
	if strings.TrimSpace(tagName) == "" {
		return ErrEmptyTagName
	}
	if _, err := s.media.Get(ctx, mediaID); err != nil {
		return err
	}
	return s.tags.AttachToMedia(ctx, mediaID, tagName)
}

func (s *tagService) Detach(ctx context.Context, mediaID int64, tagName string) error {
	if strings.TrimSpace(tagName) == "" {
		return ErrEmptyTagName
	}
	if _, err := s.media.Get(ctx, mediaID); err != nil {
		return err
	}
	return s.tags.DetachFromMedia(ctx, mediaID, tagName)
}
