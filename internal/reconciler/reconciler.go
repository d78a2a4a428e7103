// Package reconciler periodically polls the providers for orders and
// deposits that are still waiting on them.
package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GlebRadaev/smswallet/internal/domain"
)

const (
	DefaultInterval = 10 * time.Second
	DefaultBatch    = 100
	DefaultWorkers  = 10
)

type Orders interface {
	PendingOrders(ctx context.Context, limit uint32) ([]domain.Order, error)
	PollStatus(ctx context.Context, orderID string) (*domain.Order, error)
}

type Deposits interface {
	PendingDeposits(ctx context.Context, limit uint32) ([]domain.Deposit, error)
	CheckDeposit(ctx context.Context, depositID string) (*domain.Deposit, error)
}

type Config struct {
	Interval time.Duration
	Batch    uint32
	Workers  int
}

type Service struct {
	orders         Orders
	deposits       Deposits
	workerPool     WorkerPoolI
	limit          uint32
	updateInterval time.Duration
	inFlight       sync.Map
	done           chan struct{}
}

func New(cfg Config, orders Orders, deposits Deposits) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Batch == 0 {
		cfg.Batch = DefaultBatch
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	return &Service{
		orders:         orders,
		deposits:       deposits,
		workerPool:     NewWorkerPool(cfg.Workers),
		limit:          cfg.Batch,
		updateInterval: cfg.Interval,
		done:           make(chan struct{}),
	}
}

func (s *Service) Start(ctx context.Context) {
	zap.L().Info("reconciler started", zap.Duration("interval", s.updateInterval))
	go s.run(ctx)
}

// Done is closed once the loop has stopped and the worker pool is released.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

func (s *Service) run(ctx context.Context) {
	ticker := time.NewTicker(s.updateInterval)
	defer func() {
		ticker.Stop()
		s.workerPool.Close()
		close(s.done)
	}()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("context canceled, stopping reconciler")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick queues one poll for every pending order and deposit that is not
// already being polled.
func (s *Service) Tick(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error { return s.processOrders(ctx) })
	g.Go(func() error { return s.processDeposits(ctx) })
	if err := g.Wait(); err != nil {
		zap.L().Error("reconciler tick failed", zap.Error(err))
	}
}

func (s *Service) processOrders(ctx context.Context) error {
	orders, err := s.orders.PendingOrders(ctx, s.limit)
	if err != nil {
		return fmt.Errorf("fetch pending orders: %w", err)
	}
	var g errgroup.Group
	for _, order := range orders {
		id := order.ID
		s.dispatch(ctx, &g, "order:"+id, func() error {
			if _, err := s.orders.PollStatus(ctx, id); err != nil {
				return fmt.Errorf("poll order %s: %w", id, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Service) processDeposits(ctx context.Context) error {
	deposits, err := s.deposits.PendingDeposits(ctx, s.limit)
	if err != nil {
		return fmt.Errorf("fetch pending deposits: %w", err)
	}
	var g errgroup.Group
	for _, deposit := range deposits {
		id := deposit.ID
		s.dispatch(ctx, &g, "deposit:"+id, func() error {
			if _, err := s.deposits.CheckDeposit(ctx, id); err != nil {
				return fmt.Errorf("check deposit %s: %w", id, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Service) dispatch(ctx context.Context, g *errgroup.Group, key string, task Task) {
	if _, loaded := s.inFlight.LoadOrStore(key, struct{}{}); loaded {
		return
	}
	g.Go(func() error {
		err := s.workerPool.AddTask(ctx, func() error {
			defer s.inFlight.Delete(key)
			return task()
		})
		if err != nil {
			s.inFlight.Delete(key)
			return err
		}
		return nil
	})
}
