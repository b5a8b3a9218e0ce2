package events

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Bus is a multi-producer single-consumer event channel. Workers publish from
// their own goroutines; a single dispatch goroutine delivers to subscribers,
// so events are observed in publish order and the terminal event for a task
// is always the last one delivered for that task id.
type Bus struct {
	ch     chan Event
	logger *logrus.Logger

	mu   sync.Mutex
	subs map[int]func(Event)
	next int

	closeOnce sync.Once
	done      chan struct{}
}

func NewBus(buffer int, logger *logrus.Logger) *Bus {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Bus{
		ch:     make(chan Event, buffer),
		logger: logger,
		subs:   make(map[int]func(Event)),
		done:   make(chan struct{}),
	}
}

// Publish enqueues an event. It blocks if the dispatch loop has fallen
// behind and the buffer is full. Publishing after Close panics, so owners
// must stop their workers before closing the bus.
func (b *Bus) Publish(ev Event) {
	b.ch <- ev
}

// Subscribe registers a handler called from the dispatch goroutine. The
// returned function removes the subscription.
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Run drains the channel until Close is called, then delivers any remaining
// buffered events and returns.
func (b *Bus) Run() {
	for ev := range b.ch {
		b.dispatch(ev)
	}
	close(b.done)
}

// Close stops the bus. Pending events are still delivered; Wait blocks until
// the dispatch loop has finished.
func (b *Bus) Close() {
	b.closeOnce.Do(func() { close(b.ch) })
}

func (b *Bus) Wait() {
	<-b.done
}

func (b *Bus) dispatch(ev Event) {
	b.mu.Lock()
	handlers := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		handlers = append(handlers, fn)
	}
	b.mu.Unlock()

	for _, fn := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Errorf("event subscriber panic: %v", r)
				}
			}()
			fn(ev)
		}()
	}
}
