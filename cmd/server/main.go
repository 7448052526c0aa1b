package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/tug-of-war-backend/internal/config"
	"github.com/DoyleJ11/tug-of-war-backend/internal/game"
	"github.com/DoyleJ11/tug-of-war-backend/internal/game/tugofwar"
	"github.com/DoyleJ11/tug-of-war-backend/internal/httpapi"
	"github.com/DoyleJ11/tug-of-war-backend/internal/hub"
	"github.com/DoyleJ11/tug-of-war-backend/internal/logging"
	"github.com/DoyleJ11/tug-of-war-backend/internal/results"
	"github.com/DoyleJ11/tug-of-war-backend/internal/store"
	"github.com/DoyleJ11/tug-of-war-backend/internal/ws"
)

type sink interface {
	results.Sink
	Close() error
}

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.AppConfig, logger *zap.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, err := openSink(cfg.Store, logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, records.Close()) }()

	fin := results.NewFinalizer(records, cfg.Store.PersistTimeout, logger.Named("finalizer"))

	catalog := game.NewCatalog()
	tugofwar.Register(catalog)
	catalog.Register(game.GenericGameType, game.NewGeneric)

	h := hub.NewHub(context.Background(), hub.Options{
		Catalog:         catalog,
		Finalizer:       fin,
		Grace:           cfg.Session.ControllerGrace,
		CleanupAfter:    cfg.Session.CleanupAfter,
		DefaultCapacity: cfg.Session.DefaultPlayerCap,
		Log:             logger,
	})

	handler := httpapi.SetupRoutes(h, ws.Options{
		ReadTimeout:    cfg.Server.WSReadTimeout,
		WriteTimeout:   cfg.Server.WSWriteTimeout,
		OutboxSize:     cfg.Server.WSOutboxSize,
		OriginPatterns: cfg.Server.AllowedOrigins,
		Log:            logger.Named("ws"),
	}, logger.Named("http"))

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Sockets are hijacked, so Shutdown does not wait for them; the hub
		// closes them with going-away.
		serr := srv.Shutdown(sctx)
		h.Shutdown()
		// Open matches are decided as their sessions exit; their uploads
		// must be registered before the finalizer stops taking new ones.
		select {
		case <-h.Stopped():
		case <-sctx.Done():
			serr = multierr.Append(serr, fmt.Errorf("sessions did not stop: %w", sctx.Err()))
		}
		return multierr.Combine(serr, fin.Close(sctx))
	})
	return g.Wait()
}

func openSink(cfg config.StoreConfig, logger *zap.Logger) (sink, error) {
	if cfg.PostgresDSN == "" {
		logger.Info("no POSTGRES_DSN, match records go to the log")
		return store.NewLog(cfg.RecordBucket, logger.Named("records")), nil
	}
	pg, err := store.OpenPostgres(cfg.PostgresDSN, cfg.RecordBucket, logger.Named("records"))
	if err != nil {
		return nil, err
	}
	return pg, nil
}
