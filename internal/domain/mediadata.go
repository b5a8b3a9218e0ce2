package domain

import "errors"

// ErrFilepathRequired is returned when metadata arrives without a local file.
var ErrFilepathRequired = errors.New("filepath is required")

// DefaultTitle is used when the backend reports no title.
const DefaultTitle = "No Title"

// MediaData is the normalized metadata contract between an extractor backend
// and persistence.
type MediaData struct {
	Title         string
	Filepath      string
	URL           string
	Platform      string
	Uploader      string
	UploaderID    string
	ThumbnailPath string
	Filesize      int64
}

// NewMediaData validates and normalizes backend metadata. It fails when the
// local filepath is absent; an empty title falls back to DefaultTitle.
func NewMediaData(data MediaData) (MediaData, error) {
	if data.Filepath == "" {
		return MediaData{}, ErrFilepathRequired
	}
	if data.Title == "" {
		data.Title = DefaultTitle
	}
	return data, nil
}
