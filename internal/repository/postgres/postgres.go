package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/domain"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.ProjectRepository    = (*Repository)(nil)
	_ repository.DeploymentRepository = (*Repository)(nil)
	_ repository.LogEventRepository   = (*Repository)(nil)
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// CreateProject inserts a project. A subdomain collision surfaces as
// repository.ErrConflict so the caller can regenerate and retry.
func (r *Repository) CreateProject(ctx context.Context, project *domain.Project) error {
	const query = `INSERT INTO projects (id, name, repo_url, subdomain, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query, project.ID, project.Name, project.RepoURL, project.Subdomain, project.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return repository.ErrConflict
	}
	return err
}

// GetProjectByID fetches a project by identifier.
func (r *Repository) GetProjectByID(ctx context.Context, projectID string) (*domain.Project, error) {
	const query = `SELECT id, name, repo_url, subdomain, created_at FROM projects WHERE id = $1`
	return r.scanProject(r.pool.QueryRow(ctx, query, projectID))
}

// GetProjectBySubdomain fetches a project by its routing label.
func (r *Repository) GetProjectBySubdomain(ctx context.Context, subdomain string) (*domain.Project, error) {
	const query = `SELECT id, name, repo_url, subdomain, created_at FROM projects WHERE subdomain = $1`
	return r.scanProject(r.pool.QueryRow(ctx, query, subdomain))
}

func (r *Repository) scanProject(row pgx.Row) (*domain.Project, error) {
	var p domain.Project
	if err := row.Scan(&p.ID, &p.Name, &p.RepoURL, &p.Subdomain, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// CreateDeployment inserts a deployment record.
func (r *Repository) CreateDeployment(ctx context.Context, deployment *domain.Deployment) error {
	const query = `INSERT INTO deployments (id, project_id, status, detail, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query, deployment.ID, deployment.ProjectID, deployment.Status, deployment.Detail, deployment.CreatedAt, deployment.UpdatedAt)
	return err
}

// GetDeploymentByID retrieves a deployment by identifier.
func (r *Repository) GetDeploymentByID(ctx context.Context, deploymentID string) (*domain.Deployment, error) {
	const query = `SELECT id, project_id, status, detail, created_at, updated_at FROM deployments WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, deploymentID)
	var d domain.Deployment
	if err := row.Scan(&d.ID, &d.ProjectID, &d.Status, &d.Detail, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// ListDeploymentsByProject returns recent deployments, newest first.
func (r *Repository) ListDeploymentsByProject(ctx context.Context, projectID string, limit int) ([]domain.Deployment, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT id, project_id, status, detail, created_at, updated_at
		FROM deployments WHERE project_id = $1
		ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deployments := make([]domain.Deployment, 0)
	for rows.Next() {
		var d domain.Deployment
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.Status, &d.Detail, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		deployments = append(deployments, d)
	}
	return deployments, rows.Err()
}

// TransitionDeployment applies a guarded status update. The WHERE clause on
// the prior status makes the transition atomic under concurrency.
func (r *Repository) TransitionDeployment(ctx context.Context, deploymentID, from, to, detail string) error {
	const query = `UPDATE deployments SET status = $3, detail = $4, updated_at = $5
		WHERE id = $1 AND status = $2`
	tag, err := r.pool.Exec(ctx, query, deploymentID, from, to, detail, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetDeploymentByID(ctx, deploymentID); err != nil {
			return err
		}
		return repository.ErrInvalidTransition
	}
	return nil
}

// HasReadyDeployment reports whether any deployment for the project reached READY.
func (r *Repository) HasReadyDeployment(ctx context.Context, projectID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM deployments WHERE project_id = $1 AND status = $2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, projectID, domain.StatusReady).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// AppendLogEvent stores one log event, ignoring duplicate event ids so
// redelivery from the pipeline is idempotent.
func (r *Repository) AppendLogEvent(ctx context.Context, event domain.LogEvent) error {
	const query = `INSERT INTO log_events (event_id, deployment_id, project_id, seq, log, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, event.EventID, event.DeploymentID, event.ProjectID, event.Seq, event.Log, event.CreatedAt)
	return err
}

// ListLogEventsByDeployment returns all events for a deployment in emission order.
func (r *Repository) ListLogEventsByDeployment(ctx context.Context, deploymentID string) ([]domain.LogEvent, error) {
	const query = `SELECT event_id, deployment_id, project_id, seq, log, created_at
		FROM log_events WHERE deployment_id = $1
		ORDER BY seq ASC`
	rows, err := r.pool.Query(ctx, query, deploymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]domain.LogEvent, 0)
	for rows.Next() {
		var e domain.LogEvent
		if err := rows.Scan(&e.EventID, &e.DeploymentID, &e.ProjectID, &e.Seq, &e.Log, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
