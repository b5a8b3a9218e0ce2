package domain

import (
	"errors"
	"testing"
)

func TestNewMediaData(t *testing.T) {
	data, err := NewMediaData(MediaData{
		Title:    "clip",
		Filepath: "/data/downloads/Youtube/clip_ab12cd34.mp4",
		Uploader: "someone",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if data.Title != "clip" {
		t.Errorf("Expected title 'clip', got '%s'", data.Title)
	}
}

func TestNewMediaData_RequiresFilepath(t *testing.T) {
	_, err := NewMediaData(MediaData{Title: "clip"})
	if !errors.Is(err, ErrFilepathRequired) {
		t.Errorf("Expected ErrFilepathRequired, got %v", err)
	}
}

func TestNewMediaData_DefaultTitle(t *testing.T) {
	data, err := NewMediaData(MediaData{Filepath: "/data/file.mp4"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if data.Title != DefaultTitle {
		t.Errorf("Expected title '%s', got '%s'", DefaultTitle, data.Title)
	}
}

func TestProgress_Percent(t *testing.T) {
	tests := []struct {
		name     string
		progress Progress
		want     int
		known    bool
	}{
		{"half done", Progress{Status: ProgressStatusDownloading, DownloadedBytes: 50, TotalBytes: 100}, 50, true},
		{"rounds down", Progress{Status: ProgressStatusDownloading, DownloadedBytes: 999, TotalBytes: 1000}, 99, true},
		{"unknown total", Progress{Status: ProgressStatusDownloading, DownloadedBytes: 50}, 0, false},
		{"finished overrides unknown total", Progress{Status: ProgressStatusFinished}, 100, true},
		{"nothing downloaded", Progress{Status: ProgressStatusDownloading, TotalBytes: 100}, 0, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, known := test.progress.Percent()
			if known != test.known {
				t.Fatalf("Percent() known = %v, expected %v", known, test.known)
			}
			if got != test.want {
				t.Errorf("Percent() = %d, expected %d", got, test.want)
			}
		})
	}
}
