package downloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lrstanley/go-ytdlp"
	"github.com/sirupsen/logrus"

	"media-bucket/internal/domain"
)

const (
	defaultFormat       = "bestvideo+bestaudio/best"
	progressReportEvery = 500 * time.Millisecond
)

// YtdlpExtractor is the generic backend. It wraps the yt-dlp binary, which
// does its own site detection, so the URL passes through unmodified.
type YtdlpExtractor struct {
	downloadDir string
	logger      *logrus.Logger
}

func NewYtdlpExtractor(downloadDir string, logger *logrus.Logger) *YtdlpExtractor {
	if logger == nil {
		logger = logrus.New()
	}
	return &YtdlpExtractor{downloadDir: downloadDir, logger: logger}
}

func (e *YtdlpExtractor) Fetch(ctx context.Context, task domain.Task, report ProgressFunc) (*domain.MediaData, error) {
	dir := filepath.Join(e.downloadDir, task.Source)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	uid := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	outputTemplate := filepath.Join(dir, fmt.Sprintf("%%(title)s_%s.%%(ext)s", uid))

	dl := ytdlp.New().
		Format(defaultFormat).
		RestrictFilenames().
		NoPlaylist().
		WriteThumbnail().
		Output(outputTemplate)

	dl.ProgressFunc(progressReportEvery, func(update ytdlp.ProgressUpdate) {
		report(progressFromUpdate(update))
	})

	result, err := dl.Run(ctx, task.URL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("yt-dlp: %w", err)
	}

	metadata, err := e.metadataFromResult(result)
	if err != nil {
		return nil, err
	}

	report(domain.Progress{
		Status:   domain.ProgressStatusFinished,
		Filename: metadata.Filepath,
	})
	return metadata, nil
}

func (e *YtdlpExtractor) metadataFromResult(result *ytdlp.Result) (*domain.MediaData, error) {
	info, err := result.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("extract yt-dlp info: %w", err)
	}
	if len(info) == 0 || info[0].Filename == nil || *info[0].Filename == "" {
		return nil, fmt.Errorf("yt-dlp reported no downloaded file")
	}

	first := info[0]
	metadata := &domain.MediaData{Filepath: *first.Filename}
	if first.Title != nil {
		metadata.Title = *first.Title
	}
	if first.Uploader != nil {
		metadata.Uploader = *first.Uploader
	}
	if first.UploaderID != nil {
		metadata.UploaderID = *first.UploaderID
	}
	if fi, err := os.Stat(metadata.Filepath); err == nil {
		metadata.Filesize = fi.Size()
	}
	metadata.ThumbnailPath = findThumbnail(metadata.Filepath)
	return metadata, nil
}

func progressFromUpdate(update ytdlp.ProgressUpdate) domain.Progress {
	p := domain.Progress{
		Status:          domain.ProgressStatusDownloading,
		DownloadedBytes: int64(update.DownloadedBytes),
		TotalBytes:      int64(update.TotalBytes),
		ETASec:          -1,
	}
	if !update.Started.IsZero() {
		if elapsed := time.Since(update.Started).Seconds(); elapsed > 0 {
			p.Speed = int64(float64(update.DownloadedBytes) / elapsed)
		}
	}
	if eta := update.ETA(); eta > 0 {
		p.ETASec = int(eta.Seconds())
	}
	return p
}

// findThumbnail locates the sidecar image written next to the media file.
func findThumbnail(mediaPath string) string {
	base := strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath))
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".webp"} {
		candidate := base + ext
		if candidate == mediaPath {
			continue
		}
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

var _ Extractor = (*YtdlpExtractor)(nil)
