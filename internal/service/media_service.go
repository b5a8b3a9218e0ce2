package service

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"media-bucket/internal/domain"
	"media-bucket/internal/repository"
)

// MediaService exposes catalog operations over saved media.
type MediaService interface {
	Save(ctx context.Context, data domain.MediaData) (*domain.Media, error)
	Get(ctx context.Context, id int64) (*domain.Media, error)
	ListPage(ctx context.Context, page, pageSize int) ([]domain.Media, error)
	Count(ctx context.Context) (int64, error)
	Search(ctx context.Context, filters []repository.SearchFilter, page, pageSize int) ([]domain.Media, error)
	Delete(ctx context.Context, id int64, removeFiles bool) error
}

type mediaService struct {
	media  repository.MediaRepository
	logger *logrus.Logger
}

func NewMediaService(media repository.MediaRepository, logger *logrus.Logger) MediaService {
	if logger == nil {
		logger = logrus.New()
	}
	return &mediaService{
		media:  media,
		logger: logger,
	}
}

// Save normalizes backend metadata and stores the media row along with its
// platform and profile relations in one transaction.
func (s *mediaService) Save(ctx context.Context, data domain.MediaData) (*domain.Media, error) {
	normalized, err := domain.NewMediaData(data)
	if err != nil {
		return nil, err
	}

	id, err := s.media.CreateWithRelations(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("save media: %w", err)
	}

	saved, err := s.media.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load saved media: %w", err)
	}
	return saved, nil
}

func (s *mediaService) Get(ctx context.Context, id int64) (*domain.Media, error) {
	return s.media.Get(ctx, id)
}

func (s *mediaService) ListPage(ctx context.Context, page, pageSize int) ([]domain.Media, error) {
	return s.media.ListPage(ctx, page, pageSize)
}

func (s *mediaService) Count(ctx context.Context) (int64, error) {
	return s.media.Count(ctx)
}

func (s *mediaService) Search(ctx context.Context, filters []repository.SearchFilter, page, pageSize int) ([]domain.Media, error) {
	return s.media.Search(ctx, filters, page, pageSize)
}

// Delete removes the catalog row. With removeFiles it also deletes the local
// media file and thumbnail; missing files are logged, not fatal.
func (s *mediaService) Delete(ctx context.Context, id int64, removeFiles bool) error {
	media, err := s.media.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.media.Delete(ctx, id); err != nil {
		return err
	}

	if removeFiles {
		for _, path := range []string{media.Filepath, media.ThumbnailPath} {
			if path == "" {
				continue
			}
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				s.logger.Warnf("remove media file %s: %v", path, err)
			}
		}
	}

	return nil
}
