package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/proxy"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/repository/postgres"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/pkg/config"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/pkg/logger"
)

func main() {
	cfg := config.LoadProxyConfig()
	log := logger.New("proxy", slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}

	repo := postgres.New(pool)
	handler, err := proxy.New(repo, repo, cfg.ArtifactBaseURL, cfg.RootPrefix, cfg.LookupTimeout, log, pool.Ping)
	if err != nil {
		log.Error("invalid artifact base url", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("proxy starting", "addr", cfg.Addr, "upstream", cfg.ArtifactBaseURL)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("proxy stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
