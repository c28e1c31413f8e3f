package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/netlinkvoice/connectai/pkg/bridge/agent"
	"github.com/netlinkvoice/connectai/pkg/bridge/config"
	"github.com/netlinkvoice/connectai/pkg/bridge/server"
	"github.com/netlinkvoice/connectai/pkg/bridge/session"
	"github.com/netlinkvoice/connectai/pkg/bridge/store"
)

type bridgeDeps struct {
	loadConfig   func() (config.Config, error)
	newRuntime   func(context.Context, string, *slog.Logger) (*agent.GeminiRuntime, error)
	openStore    func(context.Context, string, *slog.Logger) (*store.Postgres, error)
	migrate      func(string) error
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
}

func defaultBridgeDeps() bridgeDeps {
	return bridgeDeps{
		loadConfig: config.LoadFromEnv,
		newRuntime: agent.NewGeminiRuntime,
		openStore:  store.Open,
		migrate:    store.Migrate,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

func runBridge(ctx context.Context, logger *slog.Logger, deps bridgeDeps) error {
	if deps.loadConfig == nil || deps.newRuntime == nil {
		return errors.New("missing dependency")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	runtime, err := deps.newRuntime(ctx, cfg.GeminiAPIKey, logger)
	if err != nil {
		return fmt.Errorf("agent runtime: %w", err)
	}

	var (
		pg       *store.Postgres
		st       store.Store
		recorder *store.Recorder
	)
	if cfg.DatabaseURL != "" {
		if cfg.RunMigrations {
			if err := deps.migrate(cfg.DatabaseURL); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		pg, err = deps.openStore(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer pg.Close()
		st = pg
		recorder = store.NewRecorder(st, logger, cfg.RecorderWorkers, cfg.RecorderQueueSize, cfg.RecorderTimeout)
		defer recorder.Close()
	} else {
		logger.Warn("DATABASE_URL not set, running without persistence")
	}

	registry := session.NewRegistry()
	bridge := &session.Bridge{
		Runtime:     runtime,
		Store:       st,
		Recorder:    recorder,
		Registry:    registry,
		Logger:      logger,
		GracePeriod: cfg.GracePeriod,
		Defaults: agent.Config{
			Model:        cfg.Model,
			VoiceName:    cfg.VoiceName,
			SystemPrompt: cfg.SystemPrompt,
		},
	}

	srv := server.New(cfg, logger, bridge, pinger(pg))
	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	logger.Info("starting bridge", "addr", cfg.Addr, "idle_timeout", cfg.IdleTimeout)

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	// Live calls first, then the listener: CloseAll drains every session
	// so their final interaction rows reach the recorder before it stops.
	registry.CloseAll("server_shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("bridge stopped")
	return nil
}

// pinger keeps a nil *store.Postgres from becoming a non-nil interface.
func pinger(pg *store.Postgres) interface{ Ping(context.Context) error } {
	if pg == nil {
		return nil
	}
	return pg
}

func runMain(ctx context.Context, stderr io.Writer, deps bridgeDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(stderr, "connectai: load .env: %v\n", err)
		return 1
	}

	if err := runBridge(ctx, logger, deps); err != nil {
		fmt.Fprintf(stderr, "connectai: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultBridgeDeps()))
}
