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

	"github.com/common-nighthawk/go-figure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/flowsign/workflow-auth/auth"
	"github.com/flowsign/workflow-auth/internal/config"
	"github.com/flowsign/workflow-auth/internal/metrics"
	"github.com/flowsign/workflow-auth/provider"
	"github.com/flowsign/workflow-auth/server"
	"github.com/flowsign/workflow-auth/sessions"
	"github.com/flowsign/workflow-auth/workflows"
)

const sessionSweepInterval = 10 * time.Minute

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	setupLogging(cfg)
	displayAppname(cfg.AppName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := newSessionStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}

	p, err := provider.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("oauth provider: %w", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	binder := auth.NewBinder(p, cfg, m)
	wf := workflows.New(nil)

	srv, err := server.New(cfg, store, binder, wf, m)
	if err != nil {
		return fmt.Errorf("building server: %w", err)
	}

	go sweepExpiredSessions(ctx, store, cfg.MaxSessionAge)

	httpServer := &http.Server{Addr: cfg.Addr(), Handler: srv}
	go listenAndServe(httpServer)

	waitForStopSignal()
	cancel()
	return shutdown(httpServer)
}

func setupLogging(cfg *config.Config) {
	if cfg.IsDev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func newSessionStore(ctx context.Context, cfg *config.Config) (sessions.Repo, error) {
	if cfg.RedisURL == "" {
		log.Info().Msg("using in-memory session store")
		return sessions.NewInMemoryRepo(), nil
	}
	log.Info().Msg("using redis session store")
	return sessions.NewRedisRepo(ctx, cfg.RedisURL, cfg.MaxSessionAge)
}

// sweepExpiredSessions periodically drops sessions past the max age. Redis
// expires keys itself; this matters for the in-memory store.
func sweepExpiredSessions(ctx context.Context, store sessions.Repo, maxAge time.Duration) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := store.DeleteExpired(ctx, time.Now().Add(-maxAge)); err != nil {
				log.Warn().Err(err).Msg("session sweep failed")
			}
		}
	}
}

func listenAndServe(httpServer *http.Server) {
	log.Info().Str("addr", httpServer.Addr).Msg("server listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
