package project

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/domain"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/repository"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/slug"
)

// CreateInput encapsulates project registration attributes.
type CreateInput struct {
	Name    string `json:"name"`
	RepoURL string `json:"repoURL"`
}

// Validation errors are user-correctable and map to HTTP 400.
var (
	ErrInvalidName    = errors.New("project name is required")
	ErrInvalidRepoURL = errors.New("repository URL must be a well-formed http(s) or git URL")
	ErrMissingID      = errors.New("project id required")
)

// Service orchestrates project registration and lookup.
type Service struct {
	projects repository.ProjectRepository
	logger   *slog.Logger
	attempts int
}

// New returns a project service. attempts bounds subdomain regeneration on
// collision.
func New(projects repository.ProjectRepository, logger *slog.Logger, attempts int) Service {
	if attempts <= 0 {
		attempts = 5
	}
	return Service{projects: projects, logger: logger, attempts: attempts}
}

// Register validates input, generates a unique subdomain label and persists
// the project. Uniqueness is arbitrated by the store's constraint, so
// concurrent registrations cannot mint the same label.
func (s Service) Register(ctx context.Context, input CreateInput) (*domain.Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidName
	}
	repoURL := strings.TrimSpace(input.RepoURL)
	if !validRepoURL(repoURL) {
		return nil, ErrInvalidRepoURL
	}

	var lastErr error
	for attempt := 0; attempt < s.attempts; attempt++ {
		project := &domain.Project{
			ID:        uuid.NewString(),
			Name:      name,
			RepoURL:   repoURL,
			Subdomain: slug.New(),
			CreatedAt: time.Now().UTC(),
		}
		err := s.projects.CreateProject(ctx, project)
		if err == nil {
			s.logger.Info("project registered",
				"project_id", project.ID, "subdomain", project.Subdomain)
			return project, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, err
		}
		lastErr = err
		s.logger.Warn("subdomain collision, regenerating", "subdomain", project.Subdomain)
	}
	return nil, fmt.Errorf("exhausted subdomain attempts: %w", lastErr)
}

// Get returns project details by identifier.
func (s Service) Get(ctx context.Context, projectID string) (*domain.Project, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, ErrMissingID
	}
	return s.projects.GetProjectByID(ctx, projectID)
}

func validRepoURL(raw string) bool {
	if raw == "" {
		return false
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch parsed.Scheme {
	case "http", "https", "git":
	default:
		return false
	}
	return parsed.Host != ""
}
