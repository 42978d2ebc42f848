package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsJobs(t *testing.T) {
	var done atomic.Int32
	p, err := Start(context.Background(), Options[int]{
		Workers: 2,
		Handle: func(ctx context.Context, n int) {
			done.Add(int32(n))
		},
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer p.Stop()

	for i := 1; i <= 4; i++ {
		if err := p.Enqueue(context.Background(), i); err != nil {
			t.Fatalf("Enqueue(%d) error = %v", i, err)
		}
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if done.Load() == 10 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("jobs incomplete, sum = %d", done.Load())
}

func TestPoolBoundsConcurrency(t *testing.T) {
	var mu sync.Mutex
	running, peak := 0, 0
	release := make(chan struct{})

	p, err := Start(context.Background(), Options[int]{
		Workers: 2,
		Handle: func(ctx context.Context, n int) {
			mu.Lock()
			running++
			if running > peak {
				peak = running
			}
			mu.Unlock()
			<-release
			mu.Lock()
			running--
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer p.Stop()

	for i := 0; i < 6; i++ {
		if err := p.Enqueue(context.Background(), i); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}
	time.Sleep(100 * time.Millisecond)
	close(release)

	mu.Lock()
	defer mu.Unlock()
	if peak > 2 {
		t.Fatalf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestPoolEnqueueAfterStop(t *testing.T) {
	p, err := Start(context.Background(), Options[int]{Handle: func(ctx context.Context, n int) {}})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	p.Stop()
	// The pool context is already cancelled; Enqueue must not block.
	if err := p.Enqueue(context.Background(), 1); err == nil {
		t.Fatal("Enqueue() after Stop should fail")
	}
}

func TestPoolRecoversPanics(t *testing.T) {
	var ok atomic.Bool
	p, err := Start(context.Background(), Options[string]{
		Workers: 1,
		Handle: func(ctx context.Context, s string) {
			if s == "boom" {
				panic(s)
			}
			ok.Store(true)
		},
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer p.Stop()

	if err := p.Enqueue(context.Background(), "boom"); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if err := p.Enqueue(context.Background(), "fine"); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ok.Load() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("pool did not survive a panicking job")
}
