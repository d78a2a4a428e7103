package reconciler

import (
	"context"

	"go.uber.org/zap"

	"github.com/GlebRadaev/smswallet/internal/metrics"
)

type WorkerPoolI interface {
	AddTask(ctx context.Context, task Task) error
	Close()
}

type Task func() error

type WorkerPool struct {
	pool chan Task
}

func NewWorkerPool(size int) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	pool := make(chan Task, size)
	wp := &WorkerPool{pool: pool}

	for i := 0; i < size; i++ {
		go wp.worker()
	}
	return wp
}

func (wp *WorkerPool) worker() {
	for task := range wp.pool {
		if err := task(); err != nil {
			zap.L().Warn("poll task failed", zap.Error(err))
		}
		metrics.ReconcilerInFlight.Dec()
	}
}

func (wp *WorkerPool) AddTask(ctx context.Context, task Task) error {
	metrics.ReconcilerInFlight.Inc()
	select {
	case <-ctx.Done():
		metrics.ReconcilerInFlight.Dec()
		return ctx.Err()
	case wp.pool <- task:
		return nil
	}
}

// Close stops the workers once queued tasks drain. AddTask must not be
// called afterwards.
func (wp *WorkerPool) Close() {
	close(wp.pool)
}
