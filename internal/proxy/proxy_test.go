package proxy

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/domain"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/repository"
)

type stubProjects struct {
	bySubdomain map[string]domain.Project
}

func (s *stubProjects) CreateProject(ctx context.Context, project *domain.Project) error { return nil }

func (s *stubProjects) GetProjectByID(ctx context.Context, id string) (*domain.Project, error) {
	return nil, repository.ErrNotFound
}

func (s *stubProjects) GetProjectBySubdomain(ctx context.Context, subdomain string) (*domain.Project, error) {
	if p, ok := s.bySubdomain[subdomain]; ok {
		return &p, nil
	}
	return nil, repository.ErrNotFound
}

type stubDeployments struct {
	ready map[string]bool
}

func (s *stubDeployments) CreateDeployment(ctx context.Context, d *domain.Deployment) error {
	return nil
}

func (s *stubDeployments) GetDeploymentByID(ctx context.Context, id string) (*domain.Deployment, error) {
	return nil, repository.ErrNotFound
}

func (s *stubDeployments) ListDeploymentsByProject(ctx context.Context, projectID string, limit int) ([]domain.Deployment, error) {
	return nil, nil
}

func (s *stubDeployments) TransitionDeployment(ctx context.Context, id, from, to, detail string) error {
	return repository.ErrNotFound
}

func (s *stubDeployments) HasReadyDeployment(ctx context.Context, projectID string) (bool, error) {
	return s.ready[projectID], nil
}

func newTestHandler(t *testing.T, upstream string) *Handler {
	t.Helper()
	projects := &stubProjects{bySubdomain: map[string]domain.Project{
		"acme": {ID: "proj-1", Name: "acme", Subdomain: "acme"},
		"new":  {ID: "proj-2", Name: "new", Subdomain: "new"},
	}}
	deployments := &stubDeployments{ready: map[string]bool{"proj-1": true}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h, err := New(projects, deployments, upstream, "__outputs", 2*time.Second, logger, nil)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return h
}

// upstream records the path it was asked for and serves a fixed body.
func newUpstream(t *testing.T) (*httptest.Server, *string) {
	t.Helper()
	var lastPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		lastPath = req.URL.Path
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("artifact"))
	}))
	t.Cleanup(server.Close)
	return server, &lastPath
}

func serve(h *Handler, host, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Host = host
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRootServesIndex(t *testing.T) {
	upstream, lastPath := newUpstream(t)
	h := newTestHandler(t, upstream.URL)

	rec := serve(h, "acme.deplo.test", "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if *lastPath != "/__outputs/proj-1/index.html" {
		t.Fatalf("expected index rewrite, got %s", *lastPath)
	}
}

func TestAssetPathPreserved(t *testing.T) {
	upstream, lastPath := newUpstream(t)
	h := newTestHandler(t, upstream.URL)

	rec := serve(h, "acme.deplo.test:8000", "/assets/app.js")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if *lastPath != "/__outputs/proj-1/assets/app.js" {
		t.Fatalf("unexpected upstream path %s", *lastPath)
	}
}

func TestUnknownSubdomain(t *testing.T) {
	upstream, _ := newUpstream(t)
	h := newTestHandler(t, upstream.URL)

	rec := serve(h, "ghost.deplo.test", "/")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "project not found") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestProjectWithoutReadyDeployment(t *testing.T) {
	upstream, _ := newUpstream(t)
	h := newTestHandler(t, upstream.URL)

	rec := serve(h, "new.deplo.test", "/")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before the first successful build, got %d", rec.Code)
	}
}

func TestBareHostHasNoSubdomain(t *testing.T) {
	upstream, _ := newUpstream(t)
	h := newTestHandler(t, upstream.URL)

	rec := serve(h, "localhost:8000", "/")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a host without a subdomain, got %d", rec.Code)
	}
}

func TestUpstreamFailureIsBadGateway(t *testing.T) {
	h := newTestHandler(t, "http://127.0.0.1:1")

	rec := serve(h, "acme.deplo.test", "/")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 when the store is unreachable, got %d", rec.Code)
	}
}

func TestLeadingLabel(t *testing.T) {
	cases := map[string]string{
		"acme.deplo.test":      "acme",
		"acme.deplo.test:8000": "acme",
		"localhost":            "",
		"localhost:8000":       "",
		"":                     "",
	}
	for host, want := range cases {
		if got := leadingLabel(host); got != want {
			t.Fatalf("leadingLabel(%q) = %q, want %q", host, got, want)
		}
	}
}
