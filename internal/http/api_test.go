package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"media-bucket/internal/domain"
	"media-bucket/internal/downloader"
	"media-bucket/internal/events"
)

type fakeManager struct {
	tasks        map[string]domain.Task
	canceled     []string
	acknowledged []string
	startErr     error
}

func newFakeManager() *fakeManager {
	return &fakeManager{tasks: make(map[string]domain.Task)}
}

func (m *fakeManager) Start(ctx context.Context) error { return nil }
func (m *fakeManager) Shutdown()                       {}

func (m *fakeManager) StartDownload(url string) (*domain.Task, error) {
	if m.startErr != nil {
		return nil, m.startErr
	}
	task := domain.Task{ID: "abc123def456", URL: url, Source: "Youtube", Status: domain.TaskStatusPending}
	m.tasks[task.ID] = task
	return &task, nil
}

func (m *fakeManager) Cancel(taskID string) bool {
	m.canceled = append(m.canceled, taskID)
	return true
}

func (m *fakeManager) CancelAll() {}

func (m *fakeManager) Acknowledge(taskID string) bool {
	m.acknowledged = append(m.acknowledged, taskID)
	delete(m.tasks, taskID)
	return true
}

func (m *fakeManager) Task(taskID string) (domain.Task, bool) {
	task, ok := m.tasks[taskID]
	return task, ok
}

func (m *fakeManager) Tasks() []domain.Task {
	out := make([]domain.Task, 0, len(m.tasks))
	for _, task := range m.tasks {
		out = append(out, task)
	}
	return out
}

var _ downloader.Manager = (*fakeManager)(nil)

func newTestRouter(manager downloader.Manager, auth AuthConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	bus := events.NewBus(4, nil)
	handler := NewHandler(HandlerConfig{
		Manager: manager,
		Bus:     bus,
		Auth:    auth,
	})
	handler.RegisterRoutes(router)
	return router
}

func TestCreateDownload(t *testing.T) {
	manager := newFakeManager()
	router := newTestRouter(manager, AuthConfig{})

	body := strings.NewReader(`{"url":"https://www.youtube.com/watch?v=abc"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/downloads", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, expected 202: %s", w.Code, w.Body.String())
	}

	var resp TaskResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != "abc123def456" || resp.Status != domain.TaskStatusPending {
		t.Errorf("response = %+v", resp)
	}
}

func TestCreateDownload_RejectsUnsupportedURL(t *testing.T) {
	manager := newFakeManager()
	manager.startErr = downloader.ErrUnsupportedURL
	router := newTestRouter(manager, AuthConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/downloads", strings.NewReader(`{"url":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400", w.Code)
	}
}

func TestDeleteDownload_CancelsRunningTask(t *testing.T) {
	manager := newFakeManager()
	manager.tasks["abc123def456"] = domain.Task{ID: "abc123def456", Status: domain.TaskStatusRunning}
	router := newTestRouter(manager, AuthConfig{})

	req := httptest.NewRequest(http.MethodDelete, "/api/downloads/abc123def456", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, expected 202", w.Code)
	}
	if len(manager.canceled) != 1 || manager.canceled[0] != "abc123def456" {
		t.Errorf("canceled = %v", manager.canceled)
	}
	if len(manager.acknowledged) != 0 {
		t.Errorf("a running task must not be acknowledged, got %v", manager.acknowledged)
	}
}

func TestDeleteDownload_AcknowledgesTerminalTask(t *testing.T) {
	manager := newFakeManager()
	manager.tasks["abc123def456"] = domain.Task{ID: "abc123def456", Status: domain.TaskStatusFailed}
	router := newTestRouter(manager, AuthConfig{})

	req := httptest.NewRequest(http.MethodDelete, "/api/downloads/abc123def456", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200", w.Code)
	}
	if len(manager.acknowledged) != 1 {
		t.Errorf("acknowledged = %v", manager.acknowledged)
	}
	if len(manager.canceled) != 0 {
		t.Errorf("a terminal task must not be canceled, got %v", manager.canceled)
	}
}

func TestDeleteDownload_UnknownTask(t *testing.T) {
	router := newTestRouter(newFakeManager(), AuthConfig{})

	req := httptest.NewRequest(http.MethodDelete, "/api/downloads/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, expected 404", w.Code)
	}
}

func TestHealthIsPublic(t *testing.T) {
	router := newTestRouter(newFakeManager(), AuthConfig{JWTSecret: "secret"})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, expected 200", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	manager := newFakeManager()
	auth := AuthConfig{JWTSecret: "secret", TokenTTL: time.Hour}
	router := newTestRouter(manager, auth)

	req := httptest.NewRequest(http.MethodGet, "/api/downloads", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, expected 401", w.Code)
	}

	handler := &Handler{auth: auth}
	token, err := handler.issueToken(&domain.User{ID: 1, Username: "tester"})
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/downloads", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status with token = %d, expected 200: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/downloads", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status with bad token = %d, expected 401", w.Code)
	}
}
