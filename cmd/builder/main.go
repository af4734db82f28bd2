package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	redis "github.com/redis/go-redis/v9"

	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/artifact"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/executor"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/logstream"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/workspace"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/pkg/config"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/pkg/logger"
)

func main() {
	cfg := config.LoadBuilderConfig()
	log := logger.New("builder", slog.LevelInfo)

	if cfg.RepoURL == "" || cfg.ProjectID == "" || cfg.DeploymentID == "" {
		log.Error("missing build identity",
			"repo_url_set", cfg.RepoURL != "",
			"project_id_set", cfg.ProjectID != "",
			"deployment_id_set", cfg.DeploymentID != "")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	producer := logstream.NewProducer(redisClient, cfg.LogStream, cfg.PublishAttempts, log)

	store, err := artifact.New(config.LoadArtifactConfig())
	if err != nil {
		log.Error("artifact store unavailable", "error", err)
		os.Exit(1)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		log.Error("artifact bucket check failed", "error", err)
		os.Exit(1)
	}

	ws, err := workspace.New(cfg.Workdir)
	if err != nil {
		log.Error("workspace init failed", "error", err)
		os.Exit(1)
	}

	reporter := executor.NewCallbackReporter(cfg.CallbackURL, cfg.BuilderAuthToken, cfg.CallbackTimeout)
	svc := executor.New(cfg, producer, store, reporter, ws, log)

	log.Info("build starting", "deployment_id", cfg.DeploymentID, "project_id", cfg.ProjectID)
	if err := svc.Run(ctx); err != nil {
		log.Error("build failed", "deployment_id", cfg.DeploymentID, "error", err)
		os.Exit(1)
	}
	log.Info("build finished", "deployment_id", cfg.DeploymentID)
}
