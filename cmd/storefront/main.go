// Package main starts the HTTP server of the storefront service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tconnectmw/store-system/internal/config"
	"github.com/tconnectmw/store-system/internal/handler"
	"github.com/tconnectmw/store-system/internal/middleware"
	"github.com/tconnectmw/store-system/internal/poll"
	"github.com/tconnectmw/store-system/internal/rates"
	"github.com/tconnectmw/store-system/internal/ratesource"
	"github.com/tconnectmw/store-system/internal/repository"
	"github.com/tconnectmw/store-system/internal/service"
	"github.com/tconnectmw/store-system/internal/storage"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	// Rates come from the external feed when one is configured, otherwise
	// from the service's own rate history.
	var rateSource rates.Source = repo
	if cfg.RateSourceAddress != "" {
		rateSource = ratesource.NewClient(cfg.RateSourceAddress)
	}
	rateCache := rates.NewCache(rateSource, logger)

	primeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := rateCache.Refresh(primeCtx); err != nil {
		sugar.Warnw("initial rate refresh failed, serving defaults", "error", err.Error())
	}
	cancel()

	svc := service.NewService(repo, rateCache, logger)
	defer svc.Close()

	adminAuth := middleware.NewAdminAuth(cfg.AuthSecret)

	// Attachment uploads need an object storage address; without one the
	// upload endpoint answers 503 and the rest of the API works as usual.
	var uploader handler.Uploader
	if cfg.StorageAddress != "" {
		uploader = storage.NewClient(cfg.StorageAddress)
	} else {
		sugar.Warn("object storage address not set, file uploads disabled")
	}

	h := handler.NewHandler(svc, logger, adminAuth, cfg.AdminPassword, uploader)

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: h.SetupRouter(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Background rate refresh keeps the cache inside its TTL.
	g.Go(func() error {
		poller := poll.New("rates", rates.DefaultTTL, rateCache.Refresh, logger,
			poll.WithBackoff(poll.LinearBackoff(30*time.Second, 5*time.Minute)))
		poller.Run(ctx)
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting storefront server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
