// Package medialist drives paginated loading of the media catalog. It keeps
// the load state (current page, in-flight flag, exhaustion) behind a mutex
// and discards results from loads that were superseded by a refresh.
package medialist

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"media-bucket/internal/domain"
	"media-bucket/internal/events"
	"media-bucket/internal/executor"
)

// Fetcher loads one page of media, 1-based.
type Fetcher func(ctx context.Context, page, pageSize int) ([]domain.Media, error)

type Config struct {
	PageSize int
	Logger   *logrus.Logger
}

// Controller serializes page loads for the gallery view. Each Refresh bumps
// a generation counter; page results carrying a stale generation are dropped
// so a refreshed gallery never shows rows from a previous listing.
type Controller struct {
	fetch    Fetcher
	pool     executor.Runner
	bus      *events.Bus
	pageSize int
	logger   *logrus.Logger

	mu         sync.Mutex
	generation uint64
	page       int
	loading    bool
	lastPage   bool
}

func NewController(fetch Fetcher, pool executor.Runner, bus *events.Bus, cfg Config) *Controller {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 25
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Controller{
		fetch:    fetch,
		pool:     pool,
		bus:      bus,
		pageSize: pageSize,
		logger:   logger,
	}
}

// Refresh restarts the listing from the first page. Any load already in
// flight keeps running but its result is discarded.
func (c *Controller) Refresh() {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.page = 0
	c.loading = false
	c.lastPage = false
	c.mu.Unlock()

	c.bus.Publish(events.Event{Type: events.TypeGalleryReset})
	c.load(gen)
}

// LoadNextPage requests the page after the last delivered one. It is a no-op
// while a load is in flight or after the listing is exhausted.
func (c *Controller) LoadNextPage() {
	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()
	c.load(gen)
}

// Loading reports whether a page load is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Exhausted reports whether the last page has been delivered.
func (c *Controller) Exhausted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPage
}

func (c *Controller) load(gen uint64) {
	c.mu.Lock()
	if gen != c.generation || c.loading || c.lastPage {
		c.mu.Unlock()
		return
	}
	c.loading = true
	page := c.page + 1
	c.mu.Unlock()

	err := c.pool.Submit(func(ctx context.Context) {
		items, err := c.fetch(ctx, page, c.pageSize)
		c.deliver(gen, page, items, err)
	})
	if err != nil {
		c.mu.Lock()
		if gen == c.generation {
			c.loading = false
		}
		c.mu.Unlock()
		c.logger.Errorf("submit page load: %v", err)
	}
}

func (c *Controller) deliver(gen uint64, page int, items []domain.Media, err error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.logger.Debugf("discarding stale page %d", page)
		return
	}
	c.loading = false
	if err == nil {
		if len(items) > 0 {
			c.page = page
		} else {
			// Only an empty result ends the listing. A short final page is
			// still delivered as a normal page; the next load comes back
			// empty and ends it then.
			c.lastPage = true
		}
	}
	c.mu.Unlock()

	if err != nil {
		// A failed load does not end the listing; the next request retries
		// the same page.
		c.bus.Publish(events.Event{
			Type:    events.TypeGalleryError,
			Page:    page,
			Message: err.Error(),
		})
		return
	}

	if len(items) > 0 {
		c.bus.Publish(events.Event{
			Type:  events.TypeGalleryPage,
			Page:  page,
			Items: items,
		})
	}
	c.mu.Lock()
	ended := c.lastPage
	c.mu.Unlock()
	if ended {
		c.bus.Publish(events.Event{Type: events.TypeGalleryEnd, Page: page})
	}
}
