package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_RunsSubmittedWork(t *testing.T) {
	pool := NewPool(context.Background(), 2, nil)

	var counter int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		err := pool.Submit(func(ctx context.Context) {
			defer wg.Done()
			atomic.AddInt64(&counter, 1)
		})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	wg.Wait()
	pool.Shutdown()

	if got := atomic.LoadInt64(&counter); got != 10 {
		t.Errorf("Expected 10 executions, got %d", got)
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	pool := NewPool(context.Background(), 2, nil)
	defer pool.Shutdown()

	var active, peak int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		_ = pool.Submit(func(ctx context.Context) {
			defer wg.Done()
			now := atomic.AddInt64(&active, 1)
			for {
				prev := atomic.LoadInt64(&peak)
				if now <= prev || atomic.CompareAndSwapInt64(&peak, prev, now) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&active, -1)
		})
	}
	wg.Wait()

	if got := atomic.LoadInt64(&peak); got > 2 {
		t.Errorf("Expected at most 2 concurrent workers, observed %d", got)
	}
}

func TestPool_RecoversPanic(t *testing.T) {
	pool := NewPool(context.Background(), 1, nil)

	done := make(chan struct{})
	_ = pool.Submit(func(ctx context.Context) {
		defer close(done)
		panic("worker exploded")
	})
	<-done

	// The semaphore slot must be released after a panic.
	ran := make(chan struct{})
	_ = pool.Submit(func(ctx context.Context) {
		close(ran)
	})
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("pool stopped accepting work after a panic")
	}
	pool.Shutdown()
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewPool(context.Background(), 1, nil)
	pool.Shutdown()

	err := pool.Submit(func(ctx context.Context) {
		t.Error("work must not run after shutdown")
	})
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Submit after Shutdown = %v, expected ErrClosed", err)
	}
}

func TestPool_ShutdownCancelsContext(t *testing.T) {
	pool := NewPool(context.Background(), 1, nil)

	started := make(chan struct{})
	stopped := make(chan struct{})
	_ = pool.Submit(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(stopped)
	})
	<-started

	go pool.Shutdown()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("worker context was not canceled on shutdown")
	}
}
