package logs

import (
	"context"
	"encoding/json"
	"time"

	"log/slog"

	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/domain"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/repository"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/ws"
)

// Service is the consuming end of the log pipeline: durable persistence,
// live fan-out and snapshot reads.
type Service struct {
	events      repository.LogEventRepository
	deployments repository.DeploymentRepository
	hub         *ws.Hub
	logger      *slog.Logger
}

// New constructs a log service.
func New(events repository.LogEventRepository, deployments repository.DeploymentRepository, hub *ws.Hub, logger *slog.Logger) Service {
	return Service{events: events, deployments: deployments, hub: hub, logger: logger}
}

// Persist stores one event durably. Idempotent on event id; the pipeline
// acknowledges consumption only after this succeeds.
func (s Service) Persist(ctx context.Context, event domain.LogEvent) error {
	return s.events.AppendLogEvent(ctx, event)
}

// Broadcast fans the event out to live subscribers of both the deployment
// and the project topic. Best-effort: a marshal or send failure never blocks
// pipeline progress.
func (s Service) Broadcast(event domain.LogEvent) {
	payload, err := MarshalEvent(event)
	if err != nil {
		s.logger.Warn("failed to marshal live log payload", "error", err)
		return
	}
	s.hub.Broadcast(event.DeploymentID, payload)
	if event.ProjectID != "" && event.ProjectID != event.DeploymentID {
		s.hub.Broadcast(event.ProjectID, payload)
	}
}

// Snapshot returns all events for a deployment in emission order. An unknown
// deployment id is a NotFound, distinct from a known deployment that has
// produced no logs yet.
func (s Service) Snapshot(ctx context.Context, deploymentID string) ([]domain.LogEvent, error) {
	if _, err := s.deployments.GetDeploymentByID(ctx, deploymentID); err != nil {
		return nil, err
	}
	return s.events.ListLogEventsByDeployment(ctx, deploymentID)
}

// Hub exposes the fan-out registry for subscription handlers.
func (s Service) Hub() *ws.Hub {
	return s.hub
}

// MarshalEvent formats a log event for streaming payloads.
func MarshalEvent(event domain.LogEvent) ([]byte, error) {
	return json.Marshal(map[string]any{
		"projectId":    event.ProjectID,
		"deploymentId": event.DeploymentID,
		"seq":          event.Seq,
		"log":          event.Log,
		"timestamp":    event.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
}
