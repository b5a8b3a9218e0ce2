package events

import "media-bucket/internal/domain"

type Type string

const (
	TypeTaskAdded    Type = "task_added"
	TypeTaskProgress Type = "task_progress"
	TypeTaskMetadata Type = "task_metadata"
	TypeTaskError    Type = "task_error"
	TypeTaskFinished Type = "task_finished"
	TypeTaskSaved    Type = "task_saved"
	// TypeTaskSaveFailed reports a persistence failure after a download
	// already finished; it is distinct from TypeTaskError, which covers the
	// download itself.
	TypeTaskSaveFailed Type = "task_save_failed"
	TypeTaskArchived   Type = "task_archived"

	TypeGalleryReset Type = "gallery_reset"
	TypeGalleryPage  Type = "gallery_page"
	TypeGalleryEnd   Type = "gallery_end"
	TypeGalleryError Type = "gallery_error"
)

// Event is one notification republished by the bus. TaskID is set for all
// task-scoped events; the remaining fields depend on Type.
type Event struct {
	Type     Type
	TaskID   string
	Task     *domain.Task
	Progress *domain.Progress
	Metadata *domain.MediaData
	Message  string
	ExitCode int
	MediaID  int64
	Page     int
	Items    []domain.Media
}
