package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"media-bucket/internal/domain"
	"media-bucket/internal/events"
	"media-bucket/internal/executor"
)

// Ingestor persists download metadata into the catalog. It subscribes to the
// event bus and, for every metadata event, saves the media row off the
// dispatch goroutine so the bus never blocks on its own consumer.
type Ingestor struct {
	media       MediaService
	archive     ArchiveService
	bus         *events.Bus
	pool        executor.Runner
	logger      *logrus.Logger
	autoArchive bool

	unsubscribe func()
}

type IngestorConfig struct {
	Media       MediaService
	Archive     ArchiveService
	Bus         *events.Bus
	Pool        executor.Runner
	Logger      *logrus.Logger
	AutoArchive bool
}

func NewIngestor(cfg IngestorConfig) *Ingestor {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Ingestor{
		media:       cfg.Media,
		archive:     cfg.Archive,
		bus:         cfg.Bus,
		pool:        cfg.Pool,
		logger:      logger,
		autoArchive: cfg.AutoArchive,
	}
}

func (i *Ingestor) Start() {
	i.unsubscribe = i.bus.Subscribe(func(ev events.Event) {
		if ev.Type != events.TypeTaskMetadata || ev.Metadata == nil {
			return
		}
		taskID := ev.TaskID
		data := *ev.Metadata
		if err := i.pool.Submit(func(ctx context.Context) {
			i.ingest(ctx, taskID, data)
		}); err != nil {
			i.logger.Errorf("ingest task %s: %v", taskID, err)
		}
	})
}

func (i *Ingestor) Stop() {
	if i.unsubscribe != nil {
		i.unsubscribe()
		i.unsubscribe = nil
	}
}

func (i *Ingestor) ingest(ctx context.Context, taskID string, data domain.MediaData) {
	saved, err := i.media.Save(ctx, data)
	if err != nil {
		i.logger.Errorf("save media for task %s: %v", taskID, err)
		i.bus.Publish(events.Event{
			Type:    events.TypeTaskSaveFailed,
			TaskID:  taskID,
			Message: "save failed: " + err.Error(),
		})
		return
	}

	i.bus.Publish(events.Event{
		Type:    events.TypeTaskSaved,
		TaskID:  taskID,
		MediaID: saved.ID,
	})

	if i.autoArchive && i.archive != nil && i.archive.Enabled() {
		location, err := i.archive.Archive(ctx, saved.ID)
		if err != nil {
			i.logger.Errorf("archive media %d for task %s: %v", saved.ID, taskID, err)
			return
		}
		i.bus.Publish(events.Event{
			Type:    events.TypeTaskArchived,
			TaskID:  taskID,
			MediaID: saved.ID,
			Message: location,
		})
	}
}
