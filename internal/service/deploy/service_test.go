package deploy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/domain"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/repository"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/runner"
)

type stubProjects struct {
	projects map[string]domain.Project
}

func (s *stubProjects) CreateProject(ctx context.Context, project *domain.Project) error { return nil }

func (s *stubProjects) GetProjectByID(ctx context.Context, projectID string) (*domain.Project, error) {
	if p, ok := s.projects[projectID]; ok {
		return &p, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubProjects) GetProjectBySubdomain(ctx context.Context, subdomain string) (*domain.Project, error) {
	return nil, repository.ErrNotFound
}

type stubDeployments struct {
	rows        map[string]*domain.Deployment
	transitions []string
}

func newStubDeployments() *stubDeployments {
	return &stubDeployments{rows: make(map[string]*domain.Deployment)}
}

func (s *stubDeployments) CreateDeployment(ctx context.Context, d *domain.Deployment) error {
	clone := *d
	s.rows[d.ID] = &clone
	return nil
}

func (s *stubDeployments) GetDeploymentByID(ctx context.Context, id string) (*domain.Deployment, error) {
	if d, ok := s.rows[id]; ok {
		clone := *d
		return &clone, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubDeployments) ListDeploymentsByProject(ctx context.Context, projectID string, limit int) ([]domain.Deployment, error) {
	out := make([]domain.Deployment, 0)
	for _, d := range s.rows {
		if d.ProjectID == projectID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (s *stubDeployments) TransitionDeployment(ctx context.Context, id, from, to, detail string) error {
	d, ok := s.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	if d.Status != from {
		return repository.ErrInvalidTransition
	}
	d.Status = to
	d.Detail = detail
	d.UpdatedAt = time.Now().UTC()
	s.transitions = append(s.transitions, from+"->"+to)
	return nil
}

func (s *stubDeployments) HasReadyDeployment(ctx context.Context, projectID string) (bool, error) {
	for _, d := range s.rows {
		if d.ProjectID == projectID && d.Status == domain.StatusReady {
			return true, nil
		}
	}
	return false, nil
}

type stubRuntime struct {
	launches  int
	rejectErr error
}

func (s *stubRuntime) LaunchBuildJob(ctx context.Context, input runner.LaunchInput) (string, error) {
	s.launches++
	if s.rejectErr != nil {
		return "", s.rejectErr
	}
	return "job-1", nil
}

func newService(projects *stubProjects, deployments *stubDeployments, rt *stubRuntime) Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(projects, deployments, rt, log)
}

func knownProjects() *stubProjects {
	return &stubProjects{projects: map[string]domain.Project{
		"proj-1": {ID: "proj-1", Name: "acme", RepoURL: "https://github.com/acme/site", Subdomain: "acme"},
	}}
}

func TestStartUnknownProjectCreatesNothing(t *testing.T) {
	deployments := newStubDeployments()
	svc := newService(knownProjects(), deployments, &stubRuntime{})

	_, err := svc.Start(context.Background(), "ghost")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(deployments.rows) != 0 {
		t.Fatal("deployment record was created for an unknown project")
	}
}

func TestStartTransitionsQueuedToBuildingOnAccept(t *testing.T) {
	deployments := newStubDeployments()
	rt := &stubRuntime{}
	svc := newService(knownProjects(), deployments, rt)

	d, err := svc.Start(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if d.Status != domain.StatusBuilding {
		t.Fatalf("status = %s, want BUILDING", d.Status)
	}
	if rt.launches != 1 {
		t.Fatalf("launches = %d, want 1", rt.launches)
	}
	if len(deployments.transitions) != 1 || deployments.transitions[0] != "QUEUED->BUILDING" {
		t.Fatalf("transitions = %v", deployments.transitions)
	}
}

func TestStartMarksFailedWhenLaunchRejected(t *testing.T) {
	deployments := newStubDeployments()
	rt := &stubRuntime{rejectErr: runner.ErrLaunchRejected}
	svc := newService(knownProjects(), deployments, rt)

	d, err := svc.Start(context.Background(), "proj-1")
	if !errors.Is(err, runner.ErrLaunchRejected) {
		t.Fatalf("expected launch rejection, got %v", err)
	}
	if d == nil || d.Status != domain.StatusFailed {
		t.Fatalf("deployment not marked FAILED: %+v", d)
	}
	stored := deployments.rows[d.ID]
	if stored.Status != domain.StatusFailed {
		t.Fatalf("stored status = %s, want FAILED", stored.Status)
	}
}

func TestCompleteAppliesTerminalStatusOnce(t *testing.T) {
	deployments := newStubDeployments()
	svc := newService(knownProjects(), deployments, &stubRuntime{})

	d, err := svc.Start(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := svc.Complete(context.Background(), d.ID, "READY", "uploaded 12 files"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	// A duplicate callback must not revisit the terminal state.
	if err := svc.Complete(context.Background(), d.ID, "FAILED", "late duplicate"); !errors.Is(err, repository.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if got := deployments.rows[d.ID].Status; got != domain.StatusReady {
		t.Fatalf("status = %s, want READY", got)
	}
}

func TestCompleteRejectsNonTerminalStatus(t *testing.T) {
	svc := newService(knownProjects(), newStubDeployments(), &stubRuntime{})
	if err := svc.Complete(context.Background(), "dep-1", "BUILDING", ""); !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}
