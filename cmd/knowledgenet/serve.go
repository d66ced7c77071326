package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hupe1980/knowledgenet/config"
	"github.com/hupe1980/knowledgenet/metrics"
	"github.com/hupe1980/knowledgenet/server"
	"github.com/hupe1980/knowledgenet/session"
)

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	_ = fs.Parse(args)

	cfg, err := common.load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var collector *metrics.Collector
	if cfg.Server.Metrics {
		collector = metrics.NewCollector(metrics.DefaultNamespace, nil)
	}

	kn, logger, err := bootstrap(ctx, cfg, os.Stderr, collector)
	if err != nil {
		return err
	}

	store, err := openSessionStore(ctx, cfg.Session)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	handler := kn.Handler(func(o *server.Options) {
		o.Sessions = store
		o.RateLimit = cfg.Server.RateLimit
		o.RateBurst = cfg.Server.RateBurst
		o.MaxBodyBytes = cfg.Server.MaxBodyBytes
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.Server.Addr, "version", Version, "agents", kn.Registry().Public().IDs())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openSessionStore(ctx context.Context, cfg config.SessionConfig) (session.Store, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		return session.NewInMemoryStore(), nil
	case "sqlite":
		s, err := session.NewSQLiteStore(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}
