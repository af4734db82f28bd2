package project

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/domain"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/repository"
)

type stubProjectRepository struct {
	created   []domain.Project
	conflicts int
	failWith  error
}

func (s *stubProjectRepository) CreateProject(ctx context.Context, project *domain.Project) error {
	if s.failWith != nil {
		return s.failWith
	}
	if s.conflicts > 0 {
		s.conflicts--
		return repository.ErrConflict
	}
	s.created = append(s.created, *project)
	return nil
}

func (s *stubProjectRepository) GetProjectByID(ctx context.Context, projectID string) (*domain.Project, error) {
	for _, p := range s.created {
		if p.ID == projectID {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubProjectRepository) GetProjectBySubdomain(ctx context.Context, subdomain string) (*domain.Project, error) {
	for _, p := range s.created {
		if p.Subdomain == subdomain {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegisterValidatesInput(t *testing.T) {
	svc := New(&stubProjectRepository{}, silentLogger(), 3)

	cases := []struct {
		name  string
		input CreateInput
		want  error
	}{
		{"empty name", CreateInput{RepoURL: "https://github.com/acme/site"}, ErrInvalidName},
		{"empty url", CreateInput{Name: "site"}, ErrInvalidRepoURL},
		{"no scheme", CreateInput{Name: "site", RepoURL: "github.com/acme/site"}, ErrInvalidRepoURL},
		{"bad scheme", CreateInput{Name: "site", RepoURL: "ftp://github.com/acme/site"}, ErrInvalidRepoURL},
	}
	for _, tc := range cases {
		if _, err := svc.Register(context.Background(), tc.input); !errors.Is(err, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestRegisterAssignsIdentityAndSubdomain(t *testing.T) {
	repo := &stubProjectRepository{}
	svc := New(repo, silentLogger(), 3)

	project, err := svc.Register(context.Background(), CreateInput{
		Name:    "acme site",
		RepoURL: "https://github.com/acme/site.git",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if project.ID == "" || project.Subdomain == "" {
		t.Fatalf("missing identity: %+v", project)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 persisted project, got %d", len(repo.created))
	}
}

func TestRegisterRetriesSubdomainCollisions(t *testing.T) {
	repo := &stubProjectRepository{conflicts: 2}
	svc := New(repo, silentLogger(), 5)

	if _, err := svc.Register(context.Background(), CreateInput{
		Name:    "acme",
		RepoURL: "https://github.com/acme/site",
	}); err != nil {
		t.Fatalf("Register should survive collisions: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 persisted project, got %d", len(repo.created))
	}
}

func TestRegisterGivesUpAfterBoundedAttempts(t *testing.T) {
	repo := &stubProjectRepository{conflicts: 10}
	svc := New(repo, silentLogger(), 3)

	if _, err := svc.Register(context.Background(), CreateInput{
		Name:    "acme",
		RepoURL: "https://github.com/acme/site",
	}); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected wrapped ErrConflict, got %v", err)
	}
}
