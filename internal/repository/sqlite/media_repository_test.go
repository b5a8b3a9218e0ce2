package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"media-bucket/internal/domain"
	"media-bucket/internal/repository"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	for _, init := range []func(context.Context) error{
		NewPlatformRepository(db).Init,
		NewProfileRepository(db).Init,
		NewTagRepository(db).Init,
		NewMediaRepository(db).Init,
	} {
		if err := init(ctx); err != nil {
			t.Fatalf("init repository: %v", err)
		}
	}
	return db
}

func TestCreateWithRelations(t *testing.T) {
	db := openTestDB(t)
	repo := NewMediaRepository(db)
	ctx := context.Background()

	id, err := repo.CreateWithRelations(ctx, domain.MediaData{
		Title:      "clip",
		Filepath:   "/data/downloads/Youtube/clip_ab12cd34.mp4",
		URL:        "https://www.youtube.com/watch?v=abc",
		Platform:   "Youtube",
		Uploader:   "Some Channel",
		UploaderID: "UC123",
		Filesize:   2048,
	})
	if err != nil {
		t.Fatalf("CreateWithRelations: %v", err)
	}

	media, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if media.Title != "clip" {
		t.Errorf("title = %q, expected 'clip'", media.Title)
	}
	if media.Platform == nil || media.Platform.Name != "youtube" {
		t.Errorf("platform = %+v, expected lower-cased 'youtube'", media.Platform)
	}
	if media.Profile == nil {
		t.Fatal("profile relation missing")
	}
	if media.Profile.OwnerName != "Some Channel" || media.Profile.ProfileID != "UC123" {
		t.Errorf("profile = %+v, expected Some Channel/UC123", media.Profile)
	}
	if media.Filesize != 2048 {
		t.Errorf("filesize = %d, expected 2048", media.Filesize)
	}

	// Same platform and profile must be reused, not duplicated.
	if _, err := repo.CreateWithRelations(ctx, domain.MediaData{
		Title:      "second clip",
		Filepath:   "/data/downloads/Youtube/clip_ef56ab78.mp4",
		Platform:   "YOUTUBE",
		Uploader:   "Some Channel",
		UploaderID: "UC123",
	}); err != nil {
		t.Fatalf("CreateWithRelations: %v", err)
	}

	var platformCount, profileCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM platforms`).Scan(&platformCount); err != nil {
		t.Fatal(err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM profiles`).Scan(&profileCount); err != nil {
		t.Fatal(err)
	}
	if platformCount != 1 {
		t.Errorf("platform rows = %d, expected 1", platformCount)
	}
	if profileCount != 1 {
		t.Errorf("profile rows = %d, expected 1", profileCount)
	}
}

func TestCreateWithRelations_NoUploader(t *testing.T) {
	repo := NewMediaRepository(openTestDB(t))
	ctx := context.Background()

	id, err := repo.CreateWithRelations(ctx, domain.MediaData{
		Title:    "anonymous clip",
		Filepath: "/data/file.mp4",
	})
	if err != nil {
		t.Fatalf("CreateWithRelations: %v", err)
	}

	media, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if media.Profile != nil || media.ProfileID != nil {
		t.Errorf("expected no profile relation, got %+v", media.Profile)
	}
	if media.Platform == nil || media.Platform.Name != "unknown" {
		t.Errorf("platform = %+v, expected fallback 'unknown'", media.Platform)
	}
}

func TestCreateWithRelations_RequiresFilepath(t *testing.T) {
	repo := NewMediaRepository(openTestDB(t))

	_, err := repo.CreateWithRelations(context.Background(), domain.MediaData{Title: "clip"})
	if !errors.Is(err, domain.ErrFilepathRequired) {
		t.Errorf("error = %v, expected ErrFilepathRequired", err)
	}
}

func TestListPageAndCount(t *testing.T) {
	repo := NewMediaRepository(openTestDB(t))
	ctx := context.Background()

	titles := []string{"one", "two", "three", "four", "five"}
	for _, title := range titles {
		if _, err := repo.CreateWithRelations(ctx, domain.MediaData{
			Title:    title,
			Filepath: "/data/" + title + ".mp4",
			Platform: "youtube",
		}); err != nil {
			t.Fatalf("CreateWithRelations(%s): %v", title, err)
		}
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 5 {
		t.Errorf("Count = %d, expected 5", count)
	}

	first, err := repo.ListPage(ctx, 1, 2)
	if err != nil {
		t.Fatalf("ListPage(1): %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("page 1 size = %d, expected 2", len(first))
	}
	// Newest first.
	if first[0].Title != "five" || first[1].Title != "four" {
		t.Errorf("page 1 = [%s, %s], expected [five, four]", first[0].Title, first[1].Title)
	}

	third, err := repo.ListPage(ctx, 3, 2)
	if err != nil {
		t.Fatalf("ListPage(3): %v", err)
	}
	if len(third) != 1 || third[0].Title != "one" {
		t.Errorf("page 3 = %+v, expected the single oldest row", third)
	}

	empty, err := repo.ListPage(ctx, 4, 2)
	if err != nil {
		t.Fatalf("ListPage(4): %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("page past the end size = %d, expected 0", len(empty))
	}
}

func TestSearch(t *testing.T) {
	db := openTestDB(t)
	repo := NewMediaRepository(db)
	tags := NewTagRepository(db)
	ctx := context.Background()

	catID, err := repo.CreateWithRelations(ctx, domain.MediaData{
		Title:    "cat video",
		Filepath: "/data/cat.mp4",
		Platform: "youtube",
		Uploader: "feline friend",
	})
	if err != nil {
		t.Fatal(err)
	}
	dogID, err := repo.CreateWithRelations(ctx, domain.MediaData{
		Title:    "dog video",
		Filepath: "/data/dog.mp4",
		Platform: "vimeo",
		Uploader: "canine channel",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := tags.AttachToMedia(ctx, catID, "pets"); err != nil {
		t.Fatal(err)
	}
	if err := tags.AttachToMedia(ctx, dogID, "pets"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		filters []repository.SearchFilter
		want    []string
	}{
		{
			"title match",
			[]repository.SearchFilter{{Field: "title", Keyword: "cat"}},
			[]string{"cat video"},
		},
		{
			"tag matches both",
			[]repository.SearchFilter{{Field: "tag", Keyword: "pets"}},
			[]string{"dog video", "cat video"},
		},
		{
			"tag AND platform narrows",
			[]repository.SearchFilter{
				{Field: "tag", Keyword: "pets"},
				{Field: "platform", Keyword: "vimeo", Op: "AND"},
			},
			[]string{"dog video"},
		},
		{
			"title OR title widens",
			[]repository.SearchFilter{
				{Field: "title", Keyword: "cat"},
				{Field: "title", Keyword: "dog", Op: "OR"},
			},
			[]string{"dog video", "cat video"},
		},
		{
			"profile match",
			[]repository.SearchFilter{{Field: "profile", Keyword: "feline"}},
			[]string{"cat video"},
		},
		{
			"blank keywords list everything",
			[]repository.SearchFilter{{Field: "title", Keyword: "  "}},
			[]string{"dog video", "cat video"},
		},
		{
			"no match",
			[]repository.SearchFilter{{Field: "title", Keyword: "bird"}},
			nil,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			items, err := repo.Search(ctx, test.filters, 1, 25)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if len(items) != len(test.want) {
				t.Fatalf("Search returned %d items, expected %d", len(items), len(test.want))
			}
			for i, title := range test.want {
				if items[i].Title != title {
					t.Errorf("item[%d].Title = %q, expected %q", i, items[i].Title, title)
				}
			}
		})
	}
}

func TestSetArchiveLocation(t *testing.T) {
	repo := NewMediaRepository(openTestDB(t))
	ctx := context.Background()

	id, err := repo.CreateWithRelations(ctx, domain.MediaData{Title: "clip", Filepath: "/data/clip.mp4"})
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.SetArchiveLocation(ctx, id, "s3://bucket/media-1"); err != nil {
		t.Fatalf("SetArchiveLocation: %v", err)
	}

	media, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if media.ArchiveLocation != "s3://bucket/media-1" {
		t.Errorf("archive location = %q", media.ArchiveLocation)
	}
}

func TestDeleteMedia(t *testing.T) {
	db := openTestDB(t)
	repo := NewMediaRepository(db)
	tags := NewTagRepository(db)
	ctx := context.Background()

	id, err := repo.CreateWithRelations(ctx, domain.MediaData{Title: "clip", Filepath: "/data/clip.mp4"})
	if err != nil {
		t.Fatal(err)
	}
	if err := tags.AttachToMedia(ctx, id, "temp"); err != nil {
		t.Fatal(err)
	}

	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(ctx, id); err == nil {
		t.Error("deleted media should not be readable")
	}

	var linkCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM media_tags WHERE media_id = ?`, id).Scan(&linkCount); err != nil {
		t.Fatal(err)
	}
	if linkCount != 0 {
		t.Errorf("tag links remaining = %d, expected 0", linkCount)
	}

	if err := repo.Delete(ctx, id); err == nil {
		t.Error("deleting a missing row should fail")
	}
}
