package config

import "time"

// ProxyConfig holds runtime configuration for the request router.
type ProxyConfig struct {
	Environment     string
	Addr            string
	DatabaseURL     string
	ArtifactBaseURL string
	RootPrefix      string
	LookupTimeout   time.Duration
}

// LoadProxyConfig constructs a ProxyConfig from environment variables.
func LoadProxyConfig() ProxyConfig {
	return ProxyConfig{
		Environment:     GetString("APP_ENV", "development"),
		Addr:            GetString("PROXY_ADDR", ":8000"),
		DatabaseURL:     GetString("DATABASE_URL", "postgres://deplo:deplo@db:5432/deplo?sslmode=disable"),
		ArtifactBaseURL: GetString("ARTIFACT_BASE_URL", "http://minio:9000/project-deplo"),
		RootPrefix:      GetString("ARTIFACT_ROOT_PREFIX", "__outputs"),
		LookupTimeout:   time.Duration(GetInt("PROXY_LOOKUP_TIMEOUT_SECONDS", 2)) * time.Second,
	}
}
