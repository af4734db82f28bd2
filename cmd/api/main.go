package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"

	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/app/migrate"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/httpapi"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/logstream"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/repository/postgres"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/runner"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/service/deploy"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/service/logs"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/service/project"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/ws"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/pkg/config"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/pkg/logger"
)

func main() {
	cfg := config.LoadAPIConfig()
	log := logger.New("api", slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	mig, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migrations", "error", err)
		os.Exit(1)
	}
	defer mig.Close()
	if err := mig.Ping(ctx); err != nil {
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	if err := mig.Ensure(ctx); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("redis ping failed", "error", err)
		os.Exit(1)
	}

	repo := postgres.New(pool)
	hub := ws.NewHub()
	defer hub.Close()

	runtime, err := runner.NewDockerRuntime(cfg, log)
	if err != nil {
		log.Error("docker runtime unavailable", "error", err)
		os.Exit(1)
	}

	projectSvc := project.New(repo, log, cfg.SubdomainAttempts)
	deploySvc := deploy.New(repo, repo, runtime, log)
	logSvc := logs.New(repo, repo, hub, log)

	consumer := logstream.NewConsumer(redisClient, cfg.LogStream, cfg.LogConsumerGroup, cfg.LogConsumerName, cfg.LogBatchSize, cfg.LogBlockTime, logSvc, log)
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("log consumer stopped", "error", err)
		}
	}()

	var limiter httpapi.RateLimiter
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpapi.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter = redisLimiter
		}
	}
	if limiter == nil {
		limiter = httpapi.NewMemoryRateLimiter()
	}

	redisHealth := func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	router := httpapi.NewRouter(log, projectSvc, deploySvc, logSvc, limiter, cfg.BuilderAuthToken, pool.Ping, redisHealth)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
