package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Clark-Hu/media-reviews/internal/config"
	httpserver "github.com/Clark-Hu/media-reviews/internal/http"
	"github.com/Clark-Hu/media-reviews/internal/logging"
	"github.com/Clark-Hu/media-reviews/internal/metrics"
	"github.com/Clark-Hu/media-reviews/internal/notify"
	"github.com/Clark-Hu/media-reviews/internal/ratings"
	"github.com/Clark-Hu/media-reviews/internal/repository"
	"github.com/Clark-Hu/media-reviews/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	err = run(ctx, cfg, logger)
	if err != nil {
		logger.Error("server exited", zap.Error(err))
	}
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run wires the service and blocks until ctx ends. Deferred cleanup runs on
// every return path.
func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	storeOpts := store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	}

	st, err := store.New(dbCtx, cfg.DBURL, storeOpts)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer st.Close()
	prometheus.MustRegister(metrics.NewPoolCollector(st.Stats))

	repo := repository.New(st)

	sinks := []notify.Sink{notify.StoreSink{Writer: repo.Notifications}}
	if cfg.NATSURL != "" {
		nc, js, err := notify.Connect(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer func() {
			if err := nc.Drain(); err != nil {
				logger.Warn("nats drain", zap.Error(err))
			}
		}()
		sinks = append(sinks, notify.NewNATSSink(js, cfg.NATSSubject, logger))
	} else {
		logger.Warn("NATS_URL not set, review events are only stored")
	}
	dispatcher := notify.NewDispatcher(logger, time.Duration(cfg.NotifyTimeoutSecs)*time.Second, sinks...)

	reviews := ratings.NewService(repo.Tx, ratings.Options{
		Notifier:    dispatcher,
		Logger:      logger,
		UnitTimeout: time.Duration(cfg.TxTimeoutSecs) * time.Second,
	})
	server := httpserver.New(cfg, st, repo, reviews, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	var serveErr error
	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			serveErr = fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("graceful shutdown error", zap.Error(err))
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		logger.Warn("pending notifications dropped", zap.Error(err))
	}
	return serveErr
}
