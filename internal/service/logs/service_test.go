package logs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/domain"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/repository"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/ws"
)

type stubEventRepo struct {
	byID map[string]domain.LogEvent
}

func newStubEventRepo() *stubEventRepo {
	return &stubEventRepo{byID: make(map[string]domain.LogEvent)}
}

func (s *stubEventRepo) AppendLogEvent(ctx context.Context, event domain.LogEvent) error {
	if _, exists := s.byID[event.EventID]; exists {
		return nil // dedup: second write is a no-op
	}
	s.byID[event.EventID] = event
	return nil
}

func (s *stubEventRepo) ListLogEventsByDeployment(ctx context.Context, deploymentID string) ([]domain.LogEvent, error) {
	out := make([]domain.LogEvent, 0)
	for _, e := range s.byID {
		if e.DeploymentID == deploymentID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

type stubDeployments struct {
	known map[string]bool
}

func (s *stubDeployments) CreateDeployment(ctx context.Context, d *domain.Deployment) error {
	return nil
}

func (s *stubDeployments) GetDeploymentByID(ctx context.Context, id string) (*domain.Deployment, error) {
	if s.known[id] {
		return &domain.Deployment{ID: id, Status: domain.StatusBuilding}, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubDeployments) ListDeploymentsByProject(ctx context.Context, projectID string, limit int) ([]domain.Deployment, error) {
	return nil, nil
}

func (s *stubDeployments) TransitionDeployment(ctx context.Context, id, from, to, detail string) error {
	return nil
}

func (s *stubDeployments) HasReadyDeployment(ctx context.Context, projectID string) (bool, error) {
	return false, nil
}

func newTestService(events *stubEventRepo, deployments *stubDeployments) (Service, *ws.Hub) {
	hub := ws.NewHub()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(events, deployments, hub, log), hub
}

func TestPersistIsIdempotentOnEventID(t *testing.T) {
	events := newStubEventRepo()
	svc, hub := newTestService(events, &stubDeployments{known: map[string]bool{"dep-1": true}})
	defer hub.Close()

	event := domain.LogEvent{EventID: "evt-1", DeploymentID: "dep-1", Seq: 1, Log: "hello"}
	if err := svc.Persist(context.Background(), event); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if err := svc.Persist(context.Background(), event); err != nil {
		t.Fatalf("Persist redelivery: %v", err)
	}
	if len(events.byID) != 1 {
		t.Fatalf("stored %d events, want 1", len(events.byID))
	}
}

func TestSnapshotDistinguishesUnknownFromEmpty(t *testing.T) {
	events := newStubEventRepo()
	svc, hub := newTestService(events, &stubDeployments{known: map[string]bool{"dep-1": true}})
	defer hub.Close()

	if _, err := svc.Snapshot(context.Background(), "ghost"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("unknown deployment: got %v, want ErrNotFound", err)
	}
	logs, err := svc.Snapshot(context.Background(), "dep-1")
	if err != nil {
		t.Fatalf("known deployment with no logs: %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("expected empty snapshot, got %d events", len(logs))
	}
}

func TestSnapshotReturnsEmissionOrder(t *testing.T) {
	events := newStubEventRepo()
	svc, hub := newTestService(events, &stubDeployments{known: map[string]bool{"dep-1": true}})
	defer hub.Close()

	// Writes land out of order, as redeliveries and slow writers allow.
	for _, seq := range []int64{3, 1, 2} {
		event := domain.LogEvent{
			EventID:      "evt-" + string(rune('0'+seq)),
			DeploymentID: "dep-1",
			Seq:          seq,
			Log:          "line",
			CreatedAt:    time.Now().UTC(),
		}
		if err := svc.Persist(context.Background(), event); err != nil {
			t.Fatalf("Persist: %v", err)
		}
	}

	logs, err := svc.Snapshot(context.Background(), "dep-1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	for i, e := range logs {
		if e.Seq != int64(i+1) {
			t.Fatalf("snapshot out of emission order: %+v", logs)
		}
	}
}

func TestMarshalEventShape(t *testing.T) {
	payload, err := MarshalEvent(domain.LogEvent{
		EventID:      "evt-1",
		DeploymentID: "dep-1",
		ProjectID:    "proj-1",
		Seq:          4,
		Log:          "npm run build",
		CreatedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("MarshalEvent: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"projectId", "deploymentId", "seq", "log", "timestamp"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("payload missing %q: %s", key, payload)
		}
	}
}
