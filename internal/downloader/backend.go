package downloader

import (
	"context"

	"media-bucket/internal/domain"
)

// ProgressFunc receives intermediate reports from a running backend. It is
// called from the backend's goroutine; implementations must not block for
// long.
type ProgressFunc func(domain.Progress)

// Extractor performs the network fetch and download for one task. The
// returned metadata describes the primary downloaded file; URL and Platform
// are filled in by the manager. Cancellation is requested through the
// context; a canceled extractor returns the context error.
type Extractor interface {
	Fetch(ctx context.Context, task domain.Task, report ProgressFunc) (*domain.MediaData, error)
}
