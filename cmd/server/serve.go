package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"votetally/internal/archive"
	"votetally/internal/broadcast"
	"votetally/internal/config"
	"votetally/internal/domain/generation"
	"votetally/internal/domain/option"
	"votetally/internal/domain/vote"
	"votetally/internal/frontend"
	api "votetally/internal/http"
	"votetally/internal/metrics"
	jwtpkg "votetally/internal/platform/jwt"
	"votetally/internal/repository/sqlite"
	"votetally/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := serve(ctx, cfg); err != nil {
			slog.Error("server failed", "error", err)
			return err
		}
		return nil
	},
}

func serve(ctx context.Context, cfg config.Config) error {
	metrics.Register()
	slog.Info("using data directory", "dir", cfg.DataDir)

	store := sqlite.New(cfg.DBPath())
	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer store.Close()

	archiver, err := archive.New(ctx, cfg.Archive)
	if err != nil {
		return fmt.Errorf("configure archive: %w", err)
	}

	hub := broadcast.NewHub(store.Tally)
	optionSvc := option.NewService(store, hub)
	voteSvc := vote.NewService(store, hub)
	genSvc := generation.NewService(store, hub,
		generation.WithArchiver(archiver),
		generation.WithResetHook(metrics.IncReset),
	)

	if cfg.AdminKey == "" {
		slog.Warn("ADMIN_KEY not set, admin endpoints are disabled")
	}
	jwtMgr := jwtpkg.NewManager(cfg.SigningSecret(), "votetally")

	fe, err := frontend.New(cfg.Production(), cfg.FrontendDir, cfg.FrontendURL)
	if err != nil {
		return fmt.Errorf("configure frontend: %w", err)
	}

	voteCh := make(chan worker.VoteEvent, 100)
	statsWorker := worker.NewStatsWorker(voteCh)

	router := api.NewRouter(api.Deps{
		Options:        optionSvc,
		Votes:          voteSvc,
		Generation:     genSvc,
		Hub:            hub,
		Store:          store,
		JWT:            jwtMgr,
		VoteCh:         voteCh,
		AdminKey:       cfg.AdminKey,
		AdminTokenTTL:  cfg.AdminTokenTTL.Duration,
		VotesPerMinute: cfg.VoteRatePerMinute,
		VoteBurst:      cfg.VoteRateBurst,
		Frontend:       fe,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()
	go statsWorker.Run(workerCtx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown.
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	cancelWorker()

	slog.Info("server stopped")
	return nil
}
