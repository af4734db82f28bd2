package config

import (
	"strings"
	"time"
)

// BuilderConfig holds runtime configuration for one build executor instance.
// Identity fields are injected by the coordinator at launch time.
type BuilderConfig struct {
	Environment      string
	RepoURL          string
	ProjectID        string
	DeploymentID     string
	Workdir          string
	InstallCommand   string
	BuildCommand     string
	OutputCandidates []string
	CloneTimeout     time.Duration
	StepTimeout      time.Duration
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	LogStream        string
	LineBuffer       int
	PublishAttempts  int
	CallbackURL      string
	BuilderAuthToken string
	CallbackTimeout  time.Duration
}

// LoadBuilderConfig constructs a BuilderConfig from environment variables.
func LoadBuilderConfig() BuilderConfig {
	candidates := strings.Split(GetString("OUTPUT_DIR_CANDIDATES", "dist,build,out,public"), ",")
	trimmed := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			trimmed = append(trimmed, c)
		}
	}
	return BuilderConfig{
		Environment:      GetString("APP_ENV", "development"),
		RepoURL:          GetString("GIT_REPOSITORY_URL", ""),
		ProjectID:        GetString("PROJECT_ID", ""),
		DeploymentID:     GetString("DEPLOYMENT_ID", ""),
		Workdir:          GetString("BUILDER_WORKDIR", "/tmp/deplo"),
		InstallCommand:   GetString("INSTALL_COMMAND", "npm install"),
		BuildCommand:     GetString("BUILD_COMMAND", "npm run build"),
		OutputCandidates: trimmed,
		CloneTimeout:     time.Duration(GetInt("GIT_TIMEOUT_SECONDS", 120)) * time.Second,
		StepTimeout:      time.Duration(GetInt("BUILD_STEP_TIMEOUT_SECONDS", 600)) * time.Second,
		RedisAddr:        GetString("REDIS_ADDR", "redis:6379"),
		RedisPassword:    GetString("REDIS_PASSWORD", ""),
		RedisDB:          GetInt("REDIS_DB", 0),
		LogStream:        GetString("LOG_STREAM", "deplo:build-logs"),
		LineBuffer:       GetInt("LOG_LINE_BUFFER", 256),
		PublishAttempts:  GetInt("LOG_PUBLISH_ATTEMPTS", 3),
		CallbackURL:      GetString("API_CALLBACK_URL", "http://api:9000"),
		BuilderAuthToken: GetString("BUILDER_AUTH_TOKEN", ""),
		CallbackTimeout:  time.Duration(GetInt("CALLBACK_TIMEOUT_SECONDS", 10)) * time.Second,
	}
}
