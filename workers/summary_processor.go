package workers

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SummaryJobs is what the processor drives.
type SummaryJobs interface {
	EnsureReady(limit int) (int, error)
	ComputeQueued(ctx context.Context, limit, concurrency int) (int, error)
}

type SummaryProcessor struct {
	Jobs        SummaryJobs
	Log         *zap.Logger
	Interval    time.Duration
	Concurrency int
	BatchSize   int
}

// Start runs the processor loop until ctx is cancelled. The returned channel
// closes once the loop has exited.
func (p SummaryProcessor) Start(ctx context.Context) <-chan struct{} {
	if p.Interval <= 0 {
		p.Interval = 15 * time.Second
	}
	if p.BatchSize <= 0 {
		p.BatchSize = 50
	}
	if p.Log == nil {
		p.Log = zap.NewNop()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(p.Interval)
		defer ticker.Stop()

		p.Log.Info("summary worker started", zap.Duration("interval", p.Interval), zap.Int("concurrency", p.Concurrency))
		for {
			select {
			case <-ctx.Done():
				p.Log.Info("summary worker stopped")
				return
			case <-ticker.C:
				p.tick(ctx)
			}
		}
	}()
	return done
}

func (p SummaryProcessor) tick(ctx context.Context) {
	// batches that became ready by deadline produce no response event
	if n, err := p.Jobs.EnsureReady(p.BatchSize); err != nil {
		p.Log.Error("summary worker: ensure ready", zap.Error(err))
	} else if n > 0 {
		p.Log.Info("summary worker: summaries queued", zap.Int("count", n))
	}

	n, err := p.Jobs.ComputeQueued(ctx, p.BatchSize, p.Concurrency)
	if err != nil {
		p.Log.Error("summary worker: compute queued", zap.Error(err))
		return
	}
	if n > 0 {
		p.Log.Info("summary worker: summaries computed", zap.Int("count", n))
	}
}
