package repository

import (
	"context"

	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/domain"
)

// ProjectRepository persists project records. Subdomain uniqueness is
// enforced by the store, not in-process, since multiple coordinator
// instances may race on registration.
type ProjectRepository interface {
	CreateProject(ctx context.Context, project *domain.Project) error
	GetProjectByID(ctx context.Context, projectID string) (*domain.Project, error)
	GetProjectBySubdomain(ctx context.Context, subdomain string) (*domain.Project, error)
}

// DeploymentRepository stores deployment lifecycle state.
type DeploymentRepository interface {
	CreateDeployment(ctx context.Context, deployment *domain.Deployment) error
	GetDeploymentByID(ctx context.Context, deploymentID string) (*domain.Deployment, error)
	ListDeploymentsByProject(ctx context.Context, projectID string, limit int) ([]domain.Deployment, error)
	// TransitionDeployment moves a deployment from one status to another
	// atomically; it returns ErrInvalidTransition when the deployment is not
	// currently in the `from` status, which is how at-most-once
	// QUEUED->BUILDING is guaranteed across coordinator instances.
	TransitionDeployment(ctx context.Context, deploymentID, from, to, detail string) error
	// HasReadyDeployment reports whether the project ever reached READY.
	HasReadyDeployment(ctx context.Context, projectID string) (bool, error)
}

// LogEventRepository is the durable sink of the log pipeline. AppendLogEvent
// must be idempotent on EventID so redelivered events store exactly once.
type LogEventRepository interface {
	AppendLogEvent(ctx context.Context, event domain.LogEvent) error
	ListLogEventsByDeployment(ctx context.Context, deploymentID string) ([]domain.LogEvent, error)
}
