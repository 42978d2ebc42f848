// Package worker runs queued jobs with bounded concurrency. Frontends use
// one pool per connection so debug commands never block the receive loop.
package worker

import (
	"context"
	"fmt"
	"log/slog"
)

// Pool dispatches jobs of type J to a handler with at most Workers running
// at once.
type Pool[J any] struct {
	ctx    context.Context
	cancel context.CancelFunc
	jobs   chan J
	sem    chan struct{}
	logger *slog.Logger
}

// Options configure a Pool.
type Options[J any] struct {
	// Workers caps concurrent handler runs. Zero means 4.
	Workers int
	// QueueSize bounds pending jobs. Zero means 64.
	QueueSize int
	Handle    func(context.Context, J)
	Logger    *slog.Logger
}

// Start builds a running pool tied to ctx.
func Start[J any](ctx context.Context, opts Options[J]) (*Pool[J], error) {
	if opts.Handle == nil {
		return nil, fmt.Errorf("handle func is required")
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	poolCtx, cancel := context.WithCancel(ctx)
	p := &Pool[J]{
		ctx:    poolCtx,
		cancel: cancel,
		jobs:   make(chan J, opts.QueueSize),
		sem:    make(chan struct{}, opts.Workers),
		logger: opts.Logger,
	}
	go p.run(opts.Handle)
	return p, nil
}

func (p *Pool[J]) run(handle func(context.Context, J)) {
	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			select {
			case p.sem <- struct{}{}:
			case <-p.ctx.Done():
				return
			}
			go func(job J) {
				defer func() { <-p.sem }()
				defer func() {
					if rec := recover(); rec != nil {
						p.logger.Error("worker_job_panic", "panic", fmt.Sprint(rec))
					}
				}()
				handle(p.ctx, job)
			}(job)
		}
	}
}

// Enqueue submits a job, honoring both the caller's and the pool's contexts.
func (p *Pool[J]) Enqueue(ctx context.Context, job J) error {
	if ctx == nil {
		ctx = p.ctx
	}
	if err := p.ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.jobs <- job:
		return nil
	}
}

// Stop cancels the pool context. Queued jobs not yet started are dropped.
func (p *Pool[J]) Stop() {
	p.cancel()
}
