package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/typerace-backend/internal/config"
	"github.com/DoyleJ11/typerace-backend/internal/engine"
	"github.com/DoyleJ11/typerace-backend/internal/httpapi"
	"github.com/DoyleJ11/typerace-backend/internal/hub"
	"github.com/DoyleJ11/typerace-backend/internal/logging"
	"github.com/DoyleJ11/typerace-backend/internal/store"
	"github.com/DoyleJ11/typerace-backend/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

type resultStore interface {
	store.ResultStore
	httpapi.ResultLister
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paragraphs := engine.DefaultParagraphs
	var results resultStore = store.NewMemory()
	if cfg.DatabaseURL != "" {
		db, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		if paragraphs, err = db.LoadParagraphs(ctx, engine.DefaultParagraphs); err != nil {
			return err
		}
		results = db
		log.Info("using postgres store")
	} else {
		log.Info("no database configured, results kept in memory")
	}
	pool := engine.NewParagraphs(paragraphs)

	recorder := store.NewRecorder(results, cfg.ResultQueueSize, log)

	// The hub outlives the signal context so that it can be shut down after
	// HTTP has drained.
	h := hub.NewHub(context.Background(), hub.Options{
		RoundDuration:   cfg.RoundDuration,
		MinParticipants: cfg.MinParticipants,
		Paragraphs:      pool,
		Results:         recorder,
		InboxSize:       cfg.InboxSize,
	}, log)

	handler := httpapi.SetupRoutes(h, results, ws.Options{
		OriginPatterns:  cfg.AllowedOrigins,
		OutboxSize:      cfg.OutboxSize,
		PingInterval:    cfg.PingInterval,
		WriteTimeout:    cfg.WriteTimeout,
		MaxMessageBytes: cfg.MaxMessageBytes,
	}, log)
	srv := &http.Server{Addr: cfg.Addr, Handler: handler}

	recCtx, stopRecorder := context.WithCancel(context.Background())
	defer stopRecorder()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.Int("paragraphs", pool.Len()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return recorder.Run(recCtx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)

		h.Inbox() <- hub.ShutdownHub{}
		<-h.Done()
		stopRecorder()
		return err
	})

	return g.Wait()
}
