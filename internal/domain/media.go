package domain

import "time"

// Platform is a media source site, keyed by its lower-cased name.
type Platform struct {
	ID   int64
	Name string
}

// Profile is an uploader account on a platform, get-or-created on every save.
type Profile struct {
	ID        int64
	ProfileID string
	OwnerName string
}

// Tag is a user-assigned label, keyed by its lower-cased name.
type Tag struct {
	ID   int64
	Name string
}

// Media is one cataloged download.
type Media struct {
	ID              int64
	Title           string
	Filepath        string
	URL             string
	Filesize        int64
	ThumbnailPath   string
	ArchiveLocation string
	PlatformID      int64
	ProfileID       *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Platform *Platform
	Profile  *Profile
	Tags     []Tag
}
