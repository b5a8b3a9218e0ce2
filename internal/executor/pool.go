package executor

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrClosed is returned by Submit after Shutdown.
var ErrClosed = errors.New("executor is closed")

// Runner accepts units of work for asynchronous execution. It is constructed
// once at the composition root and passed to every component that submits
// work; tests substitute a synchronous implementation.
type Runner interface {
	Submit(fn func(ctx context.Context)) error
}

// Pool is a bounded worker pool. At most MaxWorkers functions run
// concurrently; the rest block inside their goroutine on the semaphore.
// A panicking function is recovered so it cannot take the process down.
type Pool struct {
	sem    chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger *logrus.Logger

	mu     sync.Mutex
	closed bool
}

func NewPool(ctx context.Context, maxWorkers int, logger *logrus.Logger) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	if logger == nil {
		logger = logrus.New()
	}
	poolCtx, cancel := context.WithCancel(ctx)
	return &Pool{
		sem:    make(chan struct{}, maxWorkers),
		ctx:    poolCtx,
		cancel: cancel,
		logger: logger,
	}
}

func (p *Pool) Submit(fn func(ctx context.Context)) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		select {
		case <-p.ctx.Done():
			return
		case p.sem <- struct{}{}:
		}
		defer func() { <-p.sem }()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Errorf("worker panic: %v", r)
			}
		}()
		fn(p.ctx)
	}()
	return nil
}

// Shutdown cancels the pool context and waits for in-flight work to return.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cancel()
	p.wg.Wait()
}

var _ Runner = (*Pool)(nil)
