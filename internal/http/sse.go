package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"media-bucket/internal/domain"
	"media-bucket/internal/events"
)

// streamEvents republishes bus events to the client as server-sent events.
// Each client gets its own buffered channel; a client that cannot keep up
// loses events rather than stalling the dispatch loop.
func (h *Handler) streamEvents(c *gin.Context) {
	ch := make(chan events.Event, 64)
	unsubscribe := h.bus.Subscribe(func(ev events.Event) {
		select {
		case ch <- ev:
		default:
		}
	})
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			c.SSEvent(string(ev.Type), eventToResponse(ev))
			c.Writer.Flush()
		}
	}
}

type EventResponse struct {
	Type     string            `json:"type"`
	TaskID   string            `json:"task_id,omitempty"`
	Task     *TaskResponse     `json:"task,omitempty"`
	Progress *ProgressResponse `json:"progress,omitempty"`
	Metadata *MetadataResponse `json:"metadata,omitempty"`
	Message  string            `json:"message,omitempty"`
	ExitCode *int              `json:"exit_code,omitempty"`
	MediaID  int64             `json:"media_id,omitempty"`
	Page     int               `json:"page,omitempty"`
	Items    []MediaResponse   `json:"items,omitempty"`
}

type ProgressResponse struct {
	Status          string `json:"status"`
	DownloadedBytes int64  `json:"downloaded_bytes"`
	TotalBytes      int64  `json:"total_bytes"`
	Speed           int64  `json:"speed"`
	ETASec          int    `json:"eta"`
	Percent         *int   `json:"percent,omitempty"`
	Filename        string `json:"filename,omitempty"`
}

type MetadataResponse struct {
	Title      string `json:"title"`
	Filepath   string `json:"filepath"`
	URL        string `json:"url"`
	Platform   string `json:"platform"`
	Uploader   string `json:"uploader,omitempty"`
	UploaderID string `json:"uploader_id,omitempty"`
	Filesize   int64  `json:"filesize"`
}

func eventToResponse(ev events.Event) EventResponse {
	resp := EventResponse{
		Type:    string(ev.Type),
		TaskID:  ev.TaskID,
		Message: ev.Message,
		MediaID: ev.MediaID,
		Page:    ev.Page,
	}
	if ev.Task != nil {
		task := taskToResponse(*ev.Task)
		resp.Task = &task
	}
	if ev.Progress != nil {
		resp.Progress = progressToResponse(*ev.Progress)
	}
	if ev.Metadata != nil {
		resp.Metadata = &MetadataResponse{
			Title:      ev.Metadata.Title,
			Filepath:   ev.Metadata.Filepath,
			URL:        ev.Metadata.URL,
			Platform:   ev.Metadata.Platform,
			Uploader:   ev.Metadata.Uploader,
			UploaderID: ev.Metadata.UploaderID,
			Filesize:   ev.Metadata.Filesize,
		}
	}
	if ev.Type == events.TypeTaskFinished {
		code := ev.ExitCode
		resp.ExitCode = &code
	}
	if len(ev.Items) > 0 {
		resp.Items = mediaToResponses(ev.Items)
	}
	return resp
}

func progressToResponse(p domain.Progress) *ProgressResponse {
	resp := &ProgressResponse{
		Status:          p.Status,
		DownloadedBytes: p.DownloadedBytes,
		TotalBytes:      p.TotalBytes,
		Speed:           p.Speed,
		ETASec:          p.ETASec,
		Filename:        p.Filename,
	}
	if percent, ok := p.Percent(); ok {
		resp.Percent = &percent
	}
	return resp
}
