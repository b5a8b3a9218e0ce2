package downloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/anacrolix/torrent"
	"github.com/sirupsen/logrus"

	"media-bucket/internal/domain"
)

// TorrentExtractor handles magnet URLs with an embedded torrent client. The
// client is shared across tasks; each fetch adds one torrent and drops it
// when the fetch returns.
type TorrentExtractor struct {
	client         *torrent.Client
	dataDir        string
	statusInterval time.Duration
	logger         *logrus.Logger
}

func NewTorrentExtractor(downloadDir, source string, statusInterval time.Duration, logger *logrus.Logger) (*TorrentExtractor, error) {
	if statusInterval <= 0 {
		statusInterval = 2 * time.Second
	}
	if logger == nil {
		logger = logrus.New()
	}

	dataDir := filepath.Join(downloadDir, source)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create torrent data dir: %w", err)
	}

	clientConfig := torrent.NewDefaultClientConfig()
	clientConfig.DataDir = dataDir
	clientConfig.NoUpload = false
	clientConfig.Seed = false

	client, err := torrent.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create torrent client: %w", err)
	}

	return &TorrentExtractor{
		client:         client,
		dataDir:        dataDir,
		statusInterval: statusInterval,
		logger:         logger,
	}, nil
}

func (e *TorrentExtractor) Close() {
	e.client.Close()
}

func (e *TorrentExtractor) Fetch(ctx context.Context, task domain.Task, report ProgressFunc) (*domain.MediaData, error) {
	t, err := e.client.AddMagnet(task.URL)
	if err != nil {
		return nil, fmt.Errorf("add magnet: %w", err)
	}
	defer t.Drop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.GotInfo():
	}

	info := t.Info()
	if info == nil {
		return nil, fmt.Errorf("missing torrent info")
	}

	totalLength := info.TotalLength()
	name := info.BestName()
	localPath := filepath.Join(e.dataDir, name)

	t.DownloadAll()

	lastBytes := int64(0)
	lastTime := time.Now()

	ticker := time.NewTicker(e.statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			bytesCompleted := t.BytesCompleted()
			elapsed := time.Since(lastTime).Seconds()
			speed := int64(0)
			if elapsed > 0 {
				speed = (bytesCompleted - lastBytes) / int64(elapsed)
			}
			lastBytes = bytesCompleted
			lastTime = time.Now()

			report(domain.Progress{
				Status:          domain.ProgressStatusDownloading,
				DownloadedBytes: bytesCompleted,
				TotalBytes:      totalLength,
				Speed:           speed,
				ETASec:          etaSeconds(totalLength-bytesCompleted, speed),
			})

			if t.BytesMissing() == 0 {
				report(domain.Progress{
					Status:   domain.ProgressStatusFinished,
					Filename: localPath,
				})
				return &domain.MediaData{
					Title:    name,
					Filepath: localPath,
					Filesize: totalLength,
				}, nil
			}
		}
	}
}

func etaSeconds(remaining, speed int64) int {
	if speed <= 0 || remaining <= 0 {
		return -1
	}
	return int(remaining / speed)
}

var _ Extractor = (*TorrentExtractor)(nil)
