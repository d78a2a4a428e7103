package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/smswallet/internal/config"
	"github.com/GlebRadaev/smswallet/internal/handlers"
	"github.com/GlebRadaev/smswallet/internal/provider/mercadopago"
	"github.com/GlebRadaev/smswallet/internal/provider/sms24h"
	"github.com/GlebRadaev/smswallet/internal/reconciler"
	"github.com/GlebRadaev/smswallet/internal/repo"
	"github.com/GlebRadaev/smswallet/internal/service"
	"github.com/GlebRadaev/smswallet/internal/service/authservice"
	"github.com/GlebRadaev/smswallet/internal/service/depositservice"
	"github.com/GlebRadaev/smswallet/internal/service/purchaseservice"
	"github.com/GlebRadaev/smswallet/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

type ApplicationI interface {
	Start(ctx context.Context) error
	Wait(ctx context.Context, cancel context.CancelFunc) error
}

type Application struct {
	cfg    *config.Config
	api    *handlers.Handlers
	srv    *service.Services
	repo   *repo.Repositories
	poller *reconciler.Service

	closers []closer
	errCh   chan error
	wg      sync.WaitGroup
	ready   bool
}

type closer struct {
	name  string
	close func(ctx context.Context) error
}

func New() *Application {
	return &Application{
		errCh: make(chan error),
	}
}

func (a *Application) Start(ctx context.Context) error {
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("can't load config: %w", err)
	}

	if err := logger.InitLogger(cfg); err != nil {
		return fmt.Errorf("can't init logger: %w", err)
	}

	return a.start(ctx, cfg)
}

func (a *Application) start(ctx context.Context, cfg *config.Config) error {
	a.cfg = cfg

	repos, err := a.initStorage(ctx)
	if err != nil {
		a.close()
		return err
	}
	a.repo = repos

	publisher := a.initEvents(ctx)
	store := a.initIdempotency(ctx)

	a.srv = service.New(a.repo, a.providers(), publisher, serviceConfig(cfg))
	a.api = handlers.New(a.srv, store)
	a.poller = reconciler.New(reconciler.Config{
		Interval: cfg.PollInterval,
		Batch:    cfg.PollBatch,
		Workers:  cfg.PollWorkers,
	}, a.srv.PurchaseService, a.srv.DepositService)

	if err = a.startHTTPServer(ctx); err != nil {
		return fmt.Errorf("can't start http server: %w", err)
	}

	a.startReconciler(ctx)

	a.ready = true
	zap.L().Info("all systems started successfully", zap.String("store", cfg.Store))
	return nil
}

func (a *Application) providers() service.Providers {
	return service.Providers{
		Numbers: sms24h.New(sms24h.Config{
			BaseURL:  a.cfg.SMS24HAddress,
			APIKey:   a.cfg.SMS24HAPIKey,
			Operator: a.cfg.SMS24HOperator,
			Timeout:  a.cfg.ProviderTimeout,
			RPS:      float64(a.cfg.ProviderRPS),
		}),
		Payments: mercadopago.New(mercadopago.Config{
			BaseURL:     a.cfg.MPAddress,
			AccessToken: a.cfg.MPAccessToken,
			PayerEmail:  a.cfg.MPPayerEmail,
			Timeout:     a.cfg.ProviderTimeout,
			RPS:         float64(a.cfg.ProviderRPS),
		}),
	}
}

func serviceConfig(cfg *config.Config) service.Config {
	return service.Config{
		JWTSecret: cfg.JWTSecret,
		Auth: authservice.Config{
			AdminLogin:        cfg.AdminLogin,
			AdminPasswordHash: cfg.AdminPasswordHash,
		},
		Purchase: purchaseservice.Config{
			ProviderTimeout: cfg.ProviderTimeout,
			OrderTTL:        cfg.OrderTTL,
			ReserveGrace:    cfg.ReserveGrace,
			Country:         cfg.SMS24HCountry,
		},
		Deposit: depositservice.Config{
			MinDeposit:      cfg.MinDeposit,
			MaxDeposit:      cfg.MaxDeposit,
			ProviderTimeout: cfg.ProviderTimeout,
		},
	}
}

func (a *Application) startHTTPServer(ctx context.Context) error {
	router := chi.NewRouter()
	a.api.InitRoutes(router)
	server := http.Server{
		Addr:              a.cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		<-ctx.Done()

		sCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(sCtx); err != nil {
			zap.L().Warn("http server shutdown failed", zap.Error(err))
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		zap.L().Info("starting http server on port", zap.String("port", a.cfg.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.errCh <- fmt.Errorf("http server exited with error: %w", err)
		}
	}()

	return nil
}

func (a *Application) startReconciler(ctx context.Context) {
	a.poller.Start(ctx)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		<-a.poller.Done()
	}()
}

func (a *Application) Wait(ctx context.Context, cancel context.CancelFunc) error {
	var appErr error

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()

		for err := range a.errCh {
			cancel()
			zap.L().Error(err.Error())
			appErr = err
		}
	}()

	<-ctx.Done()
	a.wg.Wait()
	close(a.errCh)
	wg.Wait()

	a.close()

	return appErr
}

func (a *Application) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(ctx); err != nil {
			zap.L().Warn("failed to close resource", zap.String("resource", c.name), zap.Error(err))
		}
	}
	a.closers = nil
}

func (a *Application) onClose(name string, fn func(ctx context.Context) error) {
	a.closers = append(a.closers, closer{name: name, close: fn})
}
