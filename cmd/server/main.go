package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seonggyujo/mini-games/internal/config"
	"github.com/seonggyujo/mini-games/internal/httpapi"
	"github.com/seonggyujo/mini-games/internal/hub"
	"github.com/seonggyujo/mini-games/internal/leaderboard"
	"github.com/seonggyujo/mini-games/internal/logging"
	"github.com/seonggyujo/mini-games/internal/room"
	"github.com/seonggyujo/mini-games/internal/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel, cfg.Development())
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	store, err := leaderboard.Open(cfg.DBDriver, cfg.DBPath, cfg.DatabaseURL, log.Named("leaderboard"))
	if err != nil {
		return fmt.Errorf("open leaderboard: %w", err)
	}
	defer func() { err = multierr.Append(err, store.Close()) }()
	board := leaderboard.WithRetry(store, 3, 50*time.Millisecond, log.Named("leaderboard"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions := session.NewStore(board,
		session.WithTTL(cfg.SessionTTL),
		session.WithLogger(log.Named("session")),
	)

	rules := room.DefaultRules()
	rules.RoundDuration = cfg.DuelRoundDuration
	rules.IdleTimeout = cfg.RoomIdleTimeout
	rules.PostGameTimeout = cfg.RoomPostgameTimeout
	h := hub.NewHub(ctx, hub.WithRules(rules), hub.WithLogger(log.Named("room")))

	// Build the router *with* the hub injected
	handler := httpapi.SetupRoutes(httpapi.Deps{
		Hub:                h,
		Sessions:           sessions,
		Board:              board,
		Log:                log.Named("http"),
		AllowedOrigins:     cfg.AllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Duel sockets are hijacked and outlive Shutdown; tie them to the signal.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("db", cfg.DBDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sessions.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		h.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
