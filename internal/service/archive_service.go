package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"media-bucket/internal/domain"
	"media-bucket/internal/repository"
	"media-bucket/internal/storage"
)

// ErrArchiveNotConfigured is returned when no bucket is configured.
var ErrArchiveNotConfigured = errors.New("archive storage not configured")

// ArchiveService copies saved media files into remote object storage and
// records the resulting location on the catalog row.
type ArchiveService interface {
	Enabled() bool
	Archive(ctx context.Context, mediaID int64) (string, error)
	Unarchive(ctx context.Context, mediaID int64) error
	ObjectURL(ctx context.Context, key string, expires time.Duration) (string, error)
	ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
}

type archiveService struct {
	store     storage.Service
	media     repository.MediaRepository
	bucket    string
	keyPrefix string
	logger    *logrus.Logger
}

func NewArchiveService(store storage.Service, media repository.MediaRepository, bucket, keyPrefix string, logger *logrus.Logger) ArchiveService {
	if logger == nil {
		logger = logrus.New()
	}
	return &archiveService{
		store:     store,
		media:     media,
		bucket:    bucket,
		keyPrefix: strings.Trim(keyPrefix, "/"),
		logger:    logger,
	}
}

func (s *archiveService) Enabled() bool {
	return s.store != nil && s.bucket != ""
}

func (s *archiveService) Archive(ctx context.Context, mediaID int64) (string, error) {
	if !s.Enabled() {
		return "", ErrArchiveNotConfigured
	}

	media, err := s.media.Get(ctx, mediaID)
	if err != nil {
		return "", err
	}

	paths := []string{media.Filepath}
	if media.ThumbnailPath != "" {
		paths = append(paths, media.ThumbnailPath)
	}

	location, err := s.store.UploadFiles(ctx, paths, storage.UploadOptions{
		Bucket:    s.bucket,
		KeyPrefix: s.mediaPrefix(media),
		ProgressCallback: func(done, total int64) {
			s.logger.Debugf("archiving media %d: %d/%d bytes", media.ID, done, total)
		},
	})
	if err != nil {
		return "", fmt.Errorf("archive media %d: %w", mediaID, err)
	}

	if err := s.media.SetArchiveLocation(ctx, mediaID, location); err != nil {
		return "", fmt.Errorf("record archive location: %w", err)
	}
	return location, nil
}

// Unarchive removes the remote copy and clears the recorded location.
func (s *archiveService) Unarchive(ctx context.Context, mediaID int64) error {
	if !s.Enabled() {
		return ErrArchiveNotConfigured
	}

	media, err := s.media.Get(ctx, mediaID)
	if err != nil {
		return err
	}
	if media.ArchiveLocation == "" {
		return fmt.Errorf("media %d is not archived", mediaID)
	}

	prefix, err := prefixFromLocation(media.ArchiveLocation, s.bucket)
	if err != nil {
		return err
	}
	if err := s.store.DeletePrefix(ctx, s.bucket, prefix); err != nil {
		return fmt.Errorf("delete remote archive: %w", err)
	}
	return s.media.SetArchiveLocation(ctx, mediaID, "")
}

func (s *archiveService) ObjectURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if !s.Enabled() {
		return "", ErrArchiveNotConfigured
	}
	return s.store.GetObjectURL(ctx, s.bucket, key, expires)
}

func (s *archiveService) ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	if !s.Enabled() {
		return nil, ErrArchiveNotConfigured
	}
	return s.store.ListObjects(ctx, s.bucket, prefix)
}

func (s *archiveService) mediaPrefix(media *domain.Media) string {
	if s.keyPrefix == "" {
		return fmt.Sprintf("media-%d", media.ID)
	}
	return fmt.Sprintf("%s/media-%d", s.keyPrefix, media.ID)
}

func prefixFromLocation(location, bucket string) (string, error) {
	if !strings.HasPrefix(location, "s3://") {
		return "", fmt.Errorf("invalid archive location %q", location)
	}
	rest := strings.TrimPrefix(location, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	if parts[0] == "" {
		return "", fmt.Errorf("invalid archive location %q", location)
	}
	if bucket != "" && parts[0] != bucket {
		return "", fmt.Errorf("archive location bucket mismatch")
	}
	if len(parts) == 1 || parts[1] == "" {
		return "", fmt.Errorf("archive location has no key prefix")
	}
	return strings.TrimPrefix(parts[1], "/"), nil
}
