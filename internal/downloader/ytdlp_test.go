package downloader

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindThumbnail(t *testing.T) {
	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "clip_ab12cd34.mp4")
	thumbPath := filepath.Join(dir, "clip_ab12cd34.webp")
	for _, p := range []string{mediaPath, thumbPath} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if got := findThumbnail(mediaPath); got != thumbPath {
		t.Errorf("findThumbnail = %q, expected %q", got, thumbPath)
	}
}

func TestFindThumbnail_Missing(t *testing.T) {
	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(mediaPath, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := findThumbnail(mediaPath); got != "" {
		t.Errorf("findThumbnail = %q, expected empty", got)
	}
}

func TestFindThumbnail_SkipsMediaFileItself(t *testing.T) {
	dir := t.TempDir()
	// An image download: the sidecar lookup must not return the media file.
	mediaPath := filepath.Join(dir, "photo.jpg")
	if err := os.WriteFile(mediaPath, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := findThumbnail(mediaPath); got != "" {
		t.Errorf("findThumbnail = %q, expected empty", got)
	}
}
