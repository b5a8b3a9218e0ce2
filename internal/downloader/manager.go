package downloader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"media-bucket/internal/domain"
	"media-bucket/internal/events"
	"media-bucket/internal/executor"
)

// CancelMessage is the failure reason recorded for a user-requested cancel,
// so the UI can distinguish it from a real error.
const CancelMessage = "download canceled"

// ErrNotStarted is returned by StartDownload before Start has been called.
var ErrNotStarted = errors.New("download manager not started")

// Manager owns the set of tracked download tasks, dispatches each URL to its
// backend, and republishes backend callbacks as task-scoped events. Terminal
// tasks stay tracked until acknowledged.
type Manager interface {
	Start(ctx context.Context) error
	Shutdown()
	StartDownload(url string) (*domain.Task, error)
	Cancel(taskID string) bool
	CancelAll()
	Acknowledge(taskID string) bool
	Task(taskID string) (domain.Task, bool)
	Tasks() []domain.Task
}

type Config struct {
	// DownloadTimeout bounds one backend execution. Zero disables the bound.
	DownloadTimeout time.Duration
	Logger          *logrus.Logger
}

type manager struct {
	cfg  Config
	pool executor.Runner
	bus  *events.Bus

	extractors map[Kind]Extractor

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	tasks map[string]*trackedTask
}

type trackedTask struct {
	task     domain.Task
	cancel   context.CancelFunc
	canceled bool
}

func NewManager(cfg Config, pool executor.Runner, bus *events.Bus, extractors map[Kind]Extractor) Manager {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &manager{
		cfg:        cfg,
		pool:       pool,
		bus:        bus,
		extractors: extractors,
		tasks:      make(map[string]*trackedTask),
	}
}

func (m *manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.cfg.Logger.Info("download manager started")
	return nil
}

// Shutdown cancels every task context. The owning pool must be shut down
// afterwards; its wait covers the in-flight task goroutines.
func (m *manager) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.cfg.Logger.Info("download manager stopped")
}

// StartDownload validates the URL, selects a backend, registers a pending
// task, and submits execution to the worker pool. It returns without waiting
// for completion.
func (m *manager) StartDownload(rawURL string) (*domain.Task, error) {
	if m.ctx == nil {
		return nil, ErrNotStarted
	}
	sel, err := Select(rawURL)
	if err != nil {
		return nil, err
	}
	ext, ok := m.extractors[sel.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: no %s backend configured", ErrUnsupportedURL, sel.Kind)
	}

	taskCtx, cancel := context.WithCancel(m.ctx)
	task := domain.Task{
		ID:     newTaskID(),
		URL:    strings.TrimSpace(rawURL),
		Source: sel.Source,
		Status: domain.TaskStatusPending,
	}

	m.mu.Lock()
	m.tasks[task.ID] = &trackedTask{task: task, cancel: cancel}
	m.mu.Unlock()

	m.bus.Publish(events.Event{Type: events.TypeTaskAdded, TaskID: task.ID, Task: &task})

	if err := m.pool.Submit(func(context.Context) {
		m.run(taskCtx, task, ext)
	}); err != nil {
		cancel()
		m.mu.Lock()
		delete(m.tasks, task.ID)
		m.mu.Unlock()
		return nil, fmt.Errorf("submit download: %w", err)
	}

	return &task, nil
}

func (m *manager) run(ctx context.Context, task domain.Task, ext Extractor) {
	logger := m.cfg.Logger.WithField("task_id", task.ID)

	if m.cfg.DownloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.DownloadTimeout)
		defer cancel()
	}

	if err := m.setStatus(task.ID, domain.TaskStatusRunning); err != nil {
		logger.Warnf("mark running: %v", err)
		return
	}

	report := func(p domain.Progress) {
		if pct, ok := p.Percent(); ok {
			m.setProgress(task.ID, pct)
		}
		progress := p
		m.bus.Publish(events.Event{Type: events.TypeTaskProgress, TaskID: task.ID, Progress: &progress})
	}

	metadata, err := m.fetch(ctx, task, ext, report)
	if err != nil {
		m.finish(task.ID, domain.TaskStatusFailed, m.failureMessage(ctx, task.ID, err))
		return
	}

	metadata.URL = task.URL
	metadata.Platform = task.Source
	m.bus.Publish(events.Event{Type: events.TypeTaskMetadata, TaskID: task.ID, Metadata: metadata})
	m.finish(task.ID, domain.TaskStatusSucceeded, "")
}

// fetch isolates the backend call so a panicking extractor surfaces as a
// failed task instead of crashing the worker.
func (m *manager) fetch(ctx context.Context, task domain.Task, ext Extractor, report ProgressFunc) (metadata *domain.MediaData, err error) {
	defer func() {
		if r := recover(); r != nil {
			metadata = nil
			err = fmt.Errorf("backend panic: %v", r)
		}
	}()
	return ext.Fetch(ctx, task, report)
}

func (m *manager) failureMessage(ctx context.Context, taskID string, err error) string {
	m.mu.Lock()
	canceled := false
	if t, ok := m.tasks[taskID]; ok {
		canceled = t.canceled
	}
	m.mu.Unlock()

	switch {
	case canceled:
		return CancelMessage
	case ctx.Err() == context.DeadlineExceeded:
		return "download timed out"
	case err == nil || strings.TrimSpace(err.Error()) == "":
		return "download failed"
	default:
		return err.Error()
	}
}

// finish moves a task to its terminal state and emits the error (if any) and
// completion events. A terminal signal for an id that is no longer tracked is
// reported as an unknown-task error, never dropped.
func (m *manager) finish(taskID string, status domain.TaskStatus, message string) {
	m.mu.Lock()
	t, ok := m.tasks[taskID]
	if ok {
		next, err := t.task.Status.Transition(status)
		if err != nil {
			m.mu.Unlock()
			m.cfg.Logger.WithField("task_id", taskID).Warnf("terminal transition rejected: %v", err)
			return
		}
		t.task.Status = next
		t.task.Error = message
	}
	m.mu.Unlock()

	if !ok {
		m.bus.Publish(events.Event{
			Type:    events.TypeTaskError,
			TaskID:  taskID,
			Message: fmt.Sprintf("unknown task id %s", taskID),
		})
		return
	}

	exitCode := 0
	if status == domain.TaskStatusFailed {
		exitCode = 1
		m.bus.Publish(events.Event{Type: events.TypeTaskError, TaskID: taskID, Message: message})
	}
	m.bus.Publish(events.Event{Type: events.TypeTaskFinished, TaskID: taskID, ExitCode: exitCode})
}

// Cancel requests best-effort termination of a running task. It returns false
// for unknown or already terminal ids. The task still reaches Failed (with a
// cancellation message) asynchronously; partially written files are not
// cleaned up.
func (m *manager) Cancel(taskID string) bool {
	m.mu.Lock()
	t, ok := m.tasks[taskID]
	if !ok || t.task.Status.IsTerminal() {
		m.mu.Unlock()
		return false
	}
	t.canceled = true
	cancel := t.cancel
	m.mu.Unlock()

	cancel()
	return true
}

func (m *manager) CancelAll() {
	m.mu.Lock()
	var cancels []context.CancelFunc
	for _, t := range m.tasks {
		if !t.task.Status.IsTerminal() {
			t.canceled = true
			cancels = append(cancels, t.cancel)
		}
	}
	m.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// Acknowledge removes a terminal task from tracking. Its id must not be
// addressed afterwards.
func (m *manager) Acknowledge(taskID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok || !t.task.Status.IsTerminal() {
		return false
	}
	delete(m.tasks, taskID)
	return true
}

func (m *manager) Task(taskID string) (domain.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return domain.Task{}, false
	}
	return t.task, true
}

func (m *manager) Tasks() []domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t.task)
	}
	return out
}

func (m *manager) setStatus(taskID string, status domain.TaskStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return fmt.Errorf("unknown task id %s", taskID)
	}
	next, err := t.task.Status.Transition(status)
	if err != nil {
		return err
	}
	t.task.Status = next
	return nil
}

func (m *manager) setProgress(taskID string, percent int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[taskID]; ok {
		t.task.Progress = percent
	}
}

func newTaskID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

var _ Manager = (*manager)(nil)
