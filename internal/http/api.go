package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"media-bucket/internal/domain"
	"media-bucket/internal/downloader"
	"media-bucket/internal/events"
	"media-bucket/internal/medialist"
	"media-bucket/internal/repository"
	"media-bucket/internal/service"
	"media-bucket/internal/storage"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	manager  downloader.Manager
	media    service.MediaService
	tags     service.TagService
	archive  service.ArchiveService
	users    service.UserService
	gallery  *medialist.Controller
	bus      *events.Bus
	auth     AuthConfig
	pageSize int
	logger   *logrus.Logger
}

type HandlerConfig struct {
	Manager  downloader.Manager
	Media    service.MediaService
	Tags     service.TagService
	Archive  service.ArchiveService
	Users    service.UserService
	Gallery  *medialist.Controller
	Bus      *events.Bus
	Auth     AuthConfig
	PageSize int
	Logger   *logrus.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 25
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		manager:  cfg.Manager,
		media:    cfg.Media,
		tags:     cfg.Tags,
		archive:  cfg.Archive,
		users:    cfg.Users,
		gallery:  cfg.Gallery,
		bus:      cfg.Bus,
		auth:     cfg.Auth,
		pageSize: pageSize,
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	api.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api.POST("/auth/register", h.register)
	api.POST("/auth/login", h.login)

	protected := api.Group("")
	if h.auth.Enabled() {
		protected.Use(h.authMiddleware())
	}
	{
		protected.POST("/downloads", h.createDownload)
		protected.GET("/downloads", h.listDownloads)
		protected.GET("/downloads/:id", h.getDownload)
		protected.DELETE("/downloads/:id", h.deleteDownload)
		protected.DELETE("/downloads", h.cancelAllDownloads)

		protected.GET("/events", h.streamEvents)

		protected.POST("/gallery/refresh", h.refreshGallery)
		protected.POST("/gallery/next", h.nextGalleryPage)

		protected.GET("/media", h.listMedia)
		protected.GET("/media/:id", h.getMedia)
		protected.POST("/media/search", h.searchMedia)
		protected.DELETE("/media/:id", h.deleteMedia)

		protected.GET("/tags", h.listTags)
		protected.GET("/media/:id/tags", h.listMediaTags)
		protected.POST("/media/:id/tags", h.attachTag)
		protected.DELETE("/media/:id/tags/:name", h.detachTag)

		protected.POST("/media/:id/archive", h.archiveMedia)
		protected.DELETE("/media/:id/archive", h.unarchiveMedia)
		protected.GET("/storage/objects", h.listObjects)
		protected.GET("/storage/url", h.objectURL)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

type createDownloadRequest struct {
	URL string `json:"url" binding:"required"`
}

func (h *Handler) createDownload(c *gin.Context) {
	var req createDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.manager.StartDownload(req.URL)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, downloader.ErrUnsupportedURL) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, taskToResponse(*task))
}

func (h *Handler) listDownloads(c *gin.Context) {
	tasks := h.manager.Tasks()
	resp := make([]TaskResponse, len(tasks))
	for i := range tasks {
		resp[i] = taskToResponse(tasks[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getDownload(c *gin.Context) {
	task, ok := h.manager.Task(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, taskToResponse(task))
}

// deleteDownload cancels a running task, or removes a terminal one from the
// tracked set.
func (h *Handler) deleteDownload(c *gin.Context) {
	id := c.Param("id")
	task, ok := h.manager.Task(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	if task.Status.IsTerminal() {
		h.manager.Acknowledge(id)
		c.JSON(http.StatusOK, gin.H{"acknowledged": id})
		return
	}

	h.manager.Cancel(id)
	c.JSON(http.StatusAccepted, gin.H{"canceling": id})
}

func (h *Handler) cancelAllDownloads(c *gin.Context) {
	h.manager.CancelAll()
	c.JSON(http.StatusAccepted, gin.H{"canceling": "all"})
}

func (h *Handler) refreshGallery(c *gin.Context) {
	h.gallery.Refresh()
	c.JSON(http.StatusAccepted, gin.H{"refreshing": true})
}

func (h *Handler) nextGalleryPage(c *gin.Context) {
	if h.gallery.Exhausted() {
		c.JSON(http.StatusOK, gin.H{"exhausted": true})
		return
	}
	h.gallery.LoadNextPage()
	c.JSON(http.StatusAccepted, gin.H{"loading": true})
}

func (h *Handler) listMedia(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(h.pageSize)))
	if err != nil || pageSize <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page_size"})
		return
	}

	items, err := h.media.ListPage(c.Request.Context(), page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	total, err := h.media.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": mediaToResponses(items),
		"page":  page,
		"total": total,
	})
}

func (h *Handler) getMedia(c *gin.Context) {
	id, ok := mediaID(c)
	if !ok {
		return
	}
	media, err := h.media.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, mediaToResponse(*media))
}

type searchRequest struct {
	Filters []searchFilter `json:"filters" binding:"required"`
	Page    int            `json:"page"`
}

type searchFilter struct {
	Field   string `json:"field"`
	Keyword string `json:"keyword"`
	Op      string `json:"op"`
}

func (h *Handler) searchMedia(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Page <= 0 {
		req.Page = 1
	}

	filters := make([]repository.SearchFilter, len(req.Filters))
	for i, f := range req.Filters {
		filters[i] = repository.SearchFilter{
			Field:   f.Field,
			Keyword: f.Keyword,
			Op:      f.Op,
		}
	}

	items, err := h.media.Search(c.Request.Context(), filters, req.Page, h.pageSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items": mediaToResponses(items),
		"page":  req.Page,
	})
}

func (h *Handler) deleteMedia(c *gin.Context) {
	id, ok := mediaID(c)
	if !ok {
		return
	}
	removeFiles, err := strconv.ParseBool(c.DefaultQuery("remove_files", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flag remove_files"})
		return
	}
	deleteRemote, err := strconv.ParseBool(c.DefaultQuery("delete_remote", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flag delete_remote"})
		return
	}

	var warnings []string
	if deleteRemote {
		if err := h.archive.Unarchive(c.Request.Context(), id); err != nil &&
			!errors.Is(err, service.ErrArchiveNotConfigured) {
			warnings = append(warnings, "delete remote data: "+err.Error())
		}
	}

	if err := h.media.Delete(c.Request.Context(), id, removeFiles); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{"deleted": id}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) listTags(c *gin.Context) {
	tags, err := h.tags.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tagsToResponses(tags))
}

func (h *Handler) listMediaTags(c *gin.Context) {
	id, ok := mediaID(c)
	if !ok {
		return
	}
	tags, err := h.tags.ListForMedia(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tagsToResponses(tags))
}

type tagRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) attachTag(c *gin.Context) {
	id, ok := mediaID(c)
	if !ok {
		return
	}
	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.tags.Attach(c.Request.Context(), id, req.Name); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrEmptyTagName) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"attached": req.Name})
}

func (h *Handler) detachTag(c *gin.Context) {
	id, ok := mediaID(c)
	if !ok {
		return
	}
	name := c.Param("name")
	if err := h.tags.Detach(c.Request.Context(), id, name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"detached": name})
}

func (h *Handler) archiveMedia(c *gin.Context) {
	id, ok := mediaID(c)
	if !ok {
		return
	}
	location, err := h.archive.Archive(c.Request.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrArchiveNotConfigured) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"archived": id, "location": location})
}

func (h *Handler) unarchiveMedia(c *gin.Context) {
	id, ok := mediaID(c)
	if !ok {
		return
	}
	if err := h.archive.Unarchive(c.Request.Context(), id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrArchiveNotConfigured) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unarchived": id})
}

func (h *Handler) listObjects(c *gin.Context) {
	objects, err := h.archive.ListObjects(c.Request.Context(), c.Query("prefix"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrArchiveNotConfigured) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	resp := make([]StorageObjectResponse, len(objects))
	for i := range objects {
		resp[i] = objectToResponse(objects[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) objectURL(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}
	expiresMinutes, err := strconv.Atoi(c.DefaultQuery("expires_minutes", "15"))
	if err != nil || expiresMinutes <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expires_minutes"})
		return
	}

	url, err := h.archive.ObjectURL(c.Request.Context(), key, time.Duration(expiresMinutes)*time.Minute)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrArchiveNotConfigured) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func mediaID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid media id"})
		return 0, false
	}
	return id, true
}

type TaskResponse struct {
	ID       string            `json:"id"`
	URL      string            `json:"url"`
	Source   string            `json:"source"`
	Status   domain.TaskStatus `json:"status"`
	Progress int               `json:"progress"`
	Error    string            `json:"error,omitempty"`
}

func taskToResponse(task domain.Task) TaskResponse {
	return TaskResponse{
		ID:       task.ID,
		URL:      task.URL,
		Source:   task.Source,
		Status:   task.Status,
		Progress: task.Progress,
		Error:    task.Error,
	}
}

type MediaResponse struct {
	ID              int64         `json:"id"`
	Title           string        `json:"title"`
	Filepath        string        `json:"filepath"`
	URL             string        `json:"url"`
	Filesize        int64         `json:"filesize"`
	ThumbnailPath   string        `json:"thumbnail_path,omitempty"`
	ArchiveLocation string        `json:"archive_location,omitempty"`
	Platform        string        `json:"platform,omitempty"`
	Uploader        string        `json:"uploader,omitempty"`
	UploaderID      string        `json:"uploader_id,omitempty"`
	Tags            []TagResponse `json:"tags"`
	CreatedAt       string        `json:"created_at"`
	UpdatedAt       string        `json:"updated_at"`
}

type TagResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func mediaToResponse(media domain.Media) MediaResponse {
	resp := MediaResponse{
		ID:              media.ID,
		Title:           media.Title,
		Filepath:        media.Filepath,
		URL:             media.URL,
		Filesize:        media.Filesize,
		ThumbnailPath:   media.ThumbnailPath,
		ArchiveLocation: media.ArchiveLocation,
		Tags:            tagsToResponses(media.Tags),
		CreatedAt:       media.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       media.UpdatedAt.Format(time.RFC3339),
	}
	if media.Platform != nil {
		resp.Platform = media.Platform.Name
	}
	if media.Profile != nil {
		resp.Uploader = media.Profile.OwnerName
		resp.UploaderID = media.Profile.ProfileID
	}
	return resp
}

func mediaToResponses(items []domain.Media) []MediaResponse {
	resp := make([]MediaResponse, len(items))
	for i := range items {
		resp[i] = mediaToResponse(items[i])
	}
	return resp
}

func tagsToResponses(tags []domain.Tag) []TagResponse {
	resp := make([]TagResponse, len(tags))
	for i := range tags {
		resp[i] = TagResponse{ID: tags[i].ID, Name: tags[i].Name}
	}
	return resp
}

type StorageObjectResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"last_modified,omitempty"`
}

func objectToResponse(obj storage.ObjectInfo) StorageObjectResponse {
	resp := StorageObjectResponse{
		Key:  obj.Key,
		Size: obj.Size,
	}
	if obj.LastModified != nil && !obj.LastModified.IsZero() {
		v := obj.LastModified.Format(time.RFC3339)
		resp.LastModified = &v
	}
	return resp
}
