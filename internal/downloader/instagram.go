package downloader

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"media-bucket/internal/domain"
)

// Wire contract with the worker process: one line per message on stdout,
// "PROGRESS <json>" for intermediate payloads and a final "DONE <json>"
// carrying the normalized metadata; failures are written to stderr as
// "ERROR <json>".
const (
	linePrefixProgress = "PROGRESS "
	linePrefixDone     = "DONE "
	linePrefixError    = "ERROR "
)

var instagramPostPattern = regexp.MustCompile(`(p|reel|tv)/([^/]+)`)

// InstagramExtractor runs the platform-specific worker as a separate OS
// process and parses its line-oriented output. Cancellation kills the
// process; partially written files are not cleaned up.
type InstagramExtractor struct {
	command     []string
	downloadDir string
	logger      *logrus.Logger
}

func NewInstagramExtractor(command []string, downloadDir string, logger *logrus.Logger) *InstagramExtractor {
	if logger == nil {
		logger = logrus.New()
	}
	return &InstagramExtractor{
		command:     command,
		downloadDir: downloadDir,
		logger:      logger,
	}
}

type wireProgress struct {
	Status          string `json:"status"`
	DownloadedBytes int64  `json:"downloaded_bytes"`
	TotalBytes      int64  `json:"total_bytes"`
	Speed           int64  `json:"speed"`
	ETA             int    `json:"eta"`
	Filename        string `json:"filename"`
}

type wireDone struct {
	Title         string `json:"title"`
	Filepath      string `json:"filepath"`
	Uploader      string `json:"uploader"`
	UploaderID    string `json:"uploader_id"`
	ThumbnailPath string `json:"thumbnail_path"`
	Filesize      int64  `json:"filesize"`
}

type wireError struct {
	Error string `json:"error"`
}

func (e *InstagramExtractor) Fetch(ctx context.Context, task domain.Task, report ProgressFunc) (*domain.MediaData, error) {
	if len(e.command) == 0 {
		return nil, fmt.Errorf("instagram worker command is not configured")
	}
	if !instagramPostPattern.MatchString(task.URL) {
		return nil, fmt.Errorf("not a valid instagram post URL")
	}

	dir := filepath.Join(e.downloadDir, task.Source)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	args := append(append([]string{}, e.command[1:]...), task.URL, dir)
	cmd := exec.CommandContext(ctx, e.command[0], args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start instagram worker: %w", err)
	}

	errCh := make(chan string, 1)
	go func() {
		errCh <- e.readWorkerError(stderr)
	}()

	var done *wireDone
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, linePrefixProgress):
			var p wireProgress
			if err := json.Unmarshal([]byte(line[len(linePrefixProgress):]), &p); err != nil {
				e.logger.Warnf("discarding malformed progress line: %v", err)
				continue
			}
			report(domain.Progress{
				Status:          p.Status,
				DownloadedBytes: p.DownloadedBytes,
				TotalBytes:      p.TotalBytes,
				Speed:           p.Speed,
				ETASec:          p.ETA,
				Filename:        p.Filename,
			})
		case strings.HasPrefix(line, linePrefixDone):
			var d wireDone
			if err := json.Unmarshal([]byte(line[len(linePrefixDone):]), &d); err != nil {
				e.logger.Warnf("discarding malformed done line: %v", err)
				continue
			}
			done = &d
		}
	}

	workerErr := <-errCh
	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if workerErr != "" {
			return nil, fmt.Errorf("instagram worker: %s", workerErr)
		}
		return nil, fmt.Errorf("instagram worker: %w", err)
	}
	if done == nil {
		return nil, fmt.Errorf("instagram worker exited without metadata")
	}

	metadata := &domain.MediaData{
		Title:         done.Title,
		Filepath:      done.Filepath,
		Uploader:      done.Uploader,
		UploaderID:    done.UploaderID,
		ThumbnailPath: done.ThumbnailPath,
		Filesize:      done.Filesize,
	}
	if metadata.Filesize == 0 && metadata.Filepath != "" {
		if fi, err := os.Stat(metadata.Filepath); err == nil {
			metadata.Filesize = fi.Size()
		}
	}
	return metadata, nil
}

func (e *InstagramExtractor) readWorkerError(r interface{ Read([]byte) (int, error) }) string {
	var last string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, linePrefixError) {
			var we wireError
			if err := json.Unmarshal([]byte(line[len(linePrefixError):]), &we); err == nil && we.Error != "" {
				last = we.Error
				continue
			}
		}
		last = line
	}
	return last
}

var _ Extractor = (*InstagramExtractor)(nil)
