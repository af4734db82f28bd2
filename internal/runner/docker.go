package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"

	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/pkg/config"
)

// DockerRuntime launches build executors as disposable docker containers.
type DockerRuntime struct {
	inner *client.Client
	cfg   config.APIConfig
	log   *slog.Logger
}

var _ JobRuntime = (*DockerRuntime)(nil)

// NewDockerRuntime creates a docker-backed job runtime.
func NewDockerRuntime(cfg config.APIConfig, logger *slog.Logger) (*DockerRuntime, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if cfg.DockerHost != "" {
		opts = append(opts, client.WithHost(cfg.DockerHost))
	}
	inner, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &DockerRuntime{inner: inner, cfg: cfg, log: logger}, nil
}

// Ping validates connectivity to the docker daemon.
func (r *DockerRuntime) Ping(ctx context.Context) error {
	ping, err := r.inner.Ping(ctx)
	if err != nil {
		return fmt.Errorf("docker ping: %w", err)
	}
	if ping.APIVersion == "" {
		return fmt.Errorf("docker ping returned empty API version")
	}
	return nil
}

// LaunchBuildJob creates and starts one executor container with the
// deployment identity injected through the environment. Create/start errors
// are the runtime's launch rejection.
func (r *DockerRuntime) LaunchBuildJob(ctx context.Context, input LaunchInput) (string, error) {
	env := []string{
		"GIT_REPOSITORY_URL=" + input.Project.RepoURL,
		"PROJECT_ID=" + input.Project.ID,
		"DEPLOYMENT_ID=" + input.Deployment.ID,
		"REDIS_ADDR=" + r.cfg.RedisAddr,
		"LOG_STREAM=" + r.cfg.LogStream,
		"API_CALLBACK_URL=" + r.cfg.CallbackURL,
		"BUILDER_AUTH_TOKEN=" + r.cfg.BuilderAuthToken,
		"ARTIFACT_S3_ENDPOINT=" + r.cfg.Artifact.Endpoint,
		"ARTIFACT_S3_REGION=" + r.cfg.Artifact.Region,
		"ARTIFACT_S3_BUCKET=" + r.cfg.Artifact.Bucket,
		"ARTIFACT_S3_ACCESS_KEY=" + r.cfg.Artifact.AccessKey,
		"ARTIFACT_S3_SECRET_KEY=" + r.cfg.Artifact.SecretKey,
		"ARTIFACT_ROOT_PREFIX=" + r.cfg.Artifact.RootPrefix,
	}

	containerCfg := &container.Config{
		Image: r.cfg.BuilderImage,
		Env:   env,
	}
	hostCfg := &container.HostConfig{AutoRemove: true}
	var netCfg *network.NetworkingConfig
	if r.cfg.BuilderNetwork != "" {
		netCfg = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				r.cfg.BuilderNetwork: {},
			},
		}
	}

	name := "deplo-build-" + input.Deployment.ID
	created, err := r.inner.ContainerCreate(ctx, containerCfg, hostCfg, netCfg, nil, name)
	if err != nil {
		return "", fmt.Errorf("%w: container create: %w", ErrLaunchRejected, err)
	}
	if err := r.inner.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		// Best effort removal of the half-launched container.
		_ = r.inner.ContainerRemove(context.WithoutCancel(ctx), created.ID, container.RemoveOptions{Force: true})
		return "", fmt.Errorf("%w: container start: %w", ErrLaunchRejected, err)
	}
	r.log.Info("build job launched",
		"deployment_id", input.Deployment.ID, "project_id", input.Project.ID, "container_id", created.ID)
	return created.ID, nil
}

// Close releases the docker client.
func (r *DockerRuntime) Close() error {
	return r.inner.Close()
}
