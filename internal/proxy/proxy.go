// Package proxy serves deployed sites. It maps the leading label of the
// request host to a project subdomain and proxies the request to that
// project's artifacts in the object store.
package proxy

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"path"
	"strings"
	"time"

	"log/slog"

	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/repository"
)

// Handler routes site traffic by subdomain.
type Handler struct {
	projects      repository.ProjectRepository
	deployments   repository.DeploymentRepository
	target        *url.URL
	rootPrefix    string
	lookupTimeout time.Duration
	logger        *slog.Logger
	rp            *httputil.ReverseProxy
	metrics       *metrics
	dbHealth      func(context.Context) error
}

// New builds the handler. artifactBaseURL points at the bucket root, e.g.
// http://minio:9000/project-deplo.
func New(projects repository.ProjectRepository, deployments repository.DeploymentRepository, artifactBaseURL, rootPrefix string, lookupTimeout time.Duration, logger *slog.Logger, dbHealth func(context.Context) error) (*Handler, error) {
	target, err := url.Parse(artifactBaseURL)
	if err != nil {
		return nil, err
	}
	h := &Handler{
		projects:      projects,
		deployments:   deployments,
		target:        target,
		rootPrefix:    strings.Trim(rootPrefix, "/"),
		lookupTimeout: lookupTimeout,
		logger:        logger,
		metrics:       newMetrics(),
		dbHealth:      dbHealth,
	}
	h.rp = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			// The request path was already rewritten to the object key;
			// SetURL prepends any bucket path carried by the base URL.
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Host = target.Host
		},
		ErrorHandler: func(w http.ResponseWriter, req *http.Request, err error) {
			logger.Error("artifact store unreachable", "path", req.URL.Path, "error", err)
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
		},
	}
	return h, nil
}

// Mux returns the full server handler including health and metrics routes.
func (h *Handler) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealthz)
	mux.Handle("/metrics", h.metrics.handler())
	mux.Handle("/", h)
	return mux
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	subdomain := leadingLabel(req.Host)
	if subdomain == "" {
		h.finish(w, req, http.StatusNotFound, "unknown", start)
		return
	}

	ctx, cancel := context.WithTimeout(req.Context(), h.lookupTimeout)
	defer cancel()

	project, err := h.projects.GetProjectBySubdomain(ctx, subdomain)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.finish(w, req, http.StatusNotFound, subdomain, start)
			return
		}
		h.logger.Error("subdomain lookup failed", "subdomain", subdomain, "error", err)
		h.finish(w, req, http.StatusInternalServerError, subdomain, start)
		return
	}

	// A project that never finished a build has nothing to serve yet.
	ready, err := h.deployments.HasReadyDeployment(ctx, project.ID)
	if err != nil {
		h.logger.Error("deployment lookup failed", "project_id", project.ID, "error", err)
		h.finish(w, req, http.StatusInternalServerError, subdomain, start)
		return
	}
	if !ready {
		h.finish(w, req, http.StatusNotFound, subdomain, start)
		return
	}

	req.URL.Path = h.artifactPath(project.ID, req.URL.Path)
	recorder := &proxyRecorder{ResponseWriter: w}
	h.rp.ServeHTTP(recorder, req)
	h.record(req.Method, subdomain, recorder.statusOrOK(), time.Since(start))
}

// artifactPath rewrites a site path to the object key under the project's
// output prefix. The bare root serves the site entrypoint.
func (h *Handler) artifactPath(projectID, rawPath string) string {
	if rawPath == "" || rawPath == "/" {
		rawPath = "/index.html"
	}
	return "/" + path.Join(h.rootPrefix, projectID, strings.TrimPrefix(rawPath, "/"))
}

func (h *Handler) finish(w http.ResponseWriter, req *http.Request, status int, subdomain string, start time.Time) {
	switch status {
	case http.StatusNotFound:
		http.Error(w, "project not found", http.StatusNotFound)
	default:
		http.Error(w, http.StatusText(status), status)
	}
	h.record(req.Method, subdomain, status, time.Since(start))
}

func (h *Handler) record(method, subdomain string, status int, duration time.Duration) {
	h.metrics.observe(method, status, duration)
	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(context.Background(), level, "proxy_request",
		"method", method,
		"subdomain", subdomain,
		"status", status,
		"duration_ms", duration.Milliseconds(),
	)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, req *http.Request) {
	status := http.StatusOK
	body := `{"status":"ok"}`
	if h.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), h.lookupTimeout)
		defer cancel()
		if err := h.dbHealth(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body = `{"status":"degraded"}`
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// leadingLabel extracts the first DNS label of the host, ignoring any port.
func leadingLabel(host string) string {
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	label, _, found := strings.Cut(host, ".")
	if !found {
		return ""
	}
	return label
}

type proxyRecorder struct {
	http.ResponseWriter
	status int
}

func (pr *proxyRecorder) WriteHeader(code int) {
	pr.status = code
	pr.ResponseWriter.WriteHeader(code)
}

func (pr *proxyRecorder) statusOrOK() int {
	if pr.status == 0 {
		return http.StatusOK
	}
	return pr.status
}
