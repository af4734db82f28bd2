package deploy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/domain"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/repository"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/runner"
)

var (
	// ErrUnknownStatus rejects completion callbacks carrying anything other
	// than a terminal status.
	ErrUnknownStatus = errors.New("completion status must be READY or FAILED")
	errMissingID     = errors.New("project id required")
)

// Service coordinates deployment lifecycle: identity, launch, status.
type Service struct {
	projects    repository.ProjectRepository
	deployments repository.DeploymentRepository
	runtime     runner.JobRuntime
	logger      *slog.Logger
}

// New returns a deployment service.
func New(projects repository.ProjectRepository, deployments repository.DeploymentRepository, runtime runner.JobRuntime, logger *slog.Logger) Service {
	return Service{projects: projects, deployments: deployments, runtime: runtime, logger: logger}
}

// Start creates a QUEUED deployment, asks the job runtime to launch one
// build executor for it, and flips the deployment to BUILDING once the
// launch is accepted. Launch acceptance is the commit point: a rejected
// launch marks the deployment FAILED synchronously and surfaces a
// runner.ErrLaunchRejected to the caller.
func (s Service) Start(ctx context.Context, projectID string) (*domain.Deployment, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, errMissingID
	}
	project, err := s.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	deployment := &domain.Deployment{
		ID:        uuid.NewString(),
		ProjectID: project.ID,
		Status:    domain.StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.deployments.CreateDeployment(ctx, deployment); err != nil {
		return nil, err
	}

	jobID, err := s.runtime.LaunchBuildJob(ctx, runner.LaunchInput{Project: project, Deployment: deployment})
	if err != nil {
		detail := fmt.Sprintf("job launch rejected: %v", err)
		if terr := s.deployments.TransitionDeployment(ctx, deployment.ID, domain.StatusQueued, domain.StatusFailed, detail); terr != nil {
			s.logger.Error("failed to mark rejected deployment",
				"deployment_id", deployment.ID, "error", terr)
		}
		deployment.Status = domain.StatusFailed
		deployment.Detail = detail
		return deployment, err
	}

	// The guarded transition is what guarantees at most one active executor
	// per deployment even if Start is raced.
	if err := s.deployments.TransitionDeployment(ctx, deployment.ID, domain.StatusQueued, domain.StatusBuilding, "job "+jobID); err != nil {
		return nil, err
	}
	deployment.Status = domain.StatusBuilding
	s.logger.Info("deployment building",
		"deployment_id", deployment.ID, "project_id", project.ID, "job_id", jobID)
	return deployment, nil
}

// Get returns one deployment.
func (s Service) Get(ctx context.Context, deploymentID string) (*domain.Deployment, error) {
	return s.deployments.GetDeploymentByID(ctx, deploymentID)
}

// ListByProject returns recent deployments for a project.
func (s Service) ListByProject(ctx context.Context, projectID string, limit int) ([]domain.Deployment, error) {
	if _, err := s.projects.GetProjectByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.deployments.ListDeploymentsByProject(ctx, projectID, limit)
}

// Complete applies the executor's terminal status report
// (BUILDING -> READY | FAILED). Duplicate or late callbacks fail the guarded
// transition and are reported as such.
func (s Service) Complete(ctx context.Context, deploymentID, status, detail string) error {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status != domain.StatusReady && status != domain.StatusFailed {
		return ErrUnknownStatus
	}
	if err := s.deployments.TransitionDeployment(ctx, deploymentID, domain.StatusBuilding, status, detail); err != nil {
		return err
	}
	s.logger.Info("deployment completed", "deployment_id", deploymentID, "status", status)
	return nil
}
