// Package httpapi exposes the coordinator's HTTP surface: project
// registration, deployment control, log retrieval and the live log feed.
package httpapi

import (
	"bufio"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/domain"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/repository"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/runner"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/service/deploy"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/service/logs"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/service/project"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/ws"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux          *http.ServeMux
	logger       *slog.Logger
	project      project.Service
	deploy       deploy.Service
	logs         logs.Service
	upgrader     websocket.Upgrader
	limiter      RateLimiter
	builderToken string
	dbHealth     func(context.Context) error
	redisHealth  func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
}

const (
	rateWindowDefault        = time.Minute
	rateWindowRealtime       = 30 * time.Second
	rateLimitWrite           = 60
	rateLimitRead            = 240
	rateLimitRealtime        = 30
	rateLimitBuilderCallback = 600
	healthCheckTimeout       = 2 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, projectSvc project.Service, deploySvc deploy.Service, logSvc logs.Service, limiter RateLimiter, builderToken string, dbHealth, redisHealth func(context.Context) error) *Router {
	r := &Router{
		mux:     http.NewServeMux(),
		logger:  logger,
		project: projectSvc,
		deploy:  deploySvc,
		logs:    logSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:      limiter,
		builderToken: strings.TrimSpace(builderToken),
		dbHealth:     dbHealth,
		redisHealth:  redisHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit(r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.Handler())
	r.mux.HandleFunc("/projects", r.audit(r.withRateLimit("/projects", rateLimitWrite, rateWindowDefault, r.handleProjects)))
	r.mux.HandleFunc("/projects/", r.audit(r.withRateLimit("/projects/{id}", rateLimitRead, rateWindowDefault, r.handleProjectSubroutes)))
	r.mux.HandleFunc("/deployments", r.audit(r.withRateLimit("/deployments", rateLimitWrite, rateWindowDefault, r.handleDeployments)))
	r.mux.HandleFunc("/deployments/", r.audit(r.withRateLimit("/deployments/{id}", rateLimitRead, rateWindowDefault, r.handleDeploymentSubroutes)))
	r.mux.HandleFunc("/ws/logs", r.audit(r.withRateLimit("/ws/logs", rateLimitRealtime, rateWindowRealtime, r.handleLogsWS)))
	r.mux.HandleFunc("/sse/logs", r.audit(r.withRateLimit("/sse/logs", rateLimitRealtime, rateWindowRealtime, r.handleLogsSSE)))
	r.mux.HandleFunc("/internal/deployments/", r.audit(r.withRateLimit("/internal/deployments", rateLimitBuilderCallback, rateWindowDefault, r.handleBuilderStatus)))
}

func (r *Router) handleProjects(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload project.CreateInput
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	proj, err := r.project.Register(req.Context(), payload)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, project.ErrInvalidName) || errors.Is(err, project.ErrInvalidRepoURL) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, proj)
}

func (r *Router) handleProjectSubroutes(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/projects/")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 1 || parts[0] == "" {
		r.notFound(w)
		return
	}
	projectID := parts[0]
	switch {
	case len(parts) == 1:
		r.handleProjectGet(w, req, projectID)
	case len(parts) == 2 && parts[1] == "deployments":
		r.handleProjectDeployments(w, req, projectID)
	default:
		r.notFound(w)
	}
}

func (r *Router) handleProjectGet(w http.ResponseWriter, req *http.Request, projectID string) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	proj, err := r.project.Get(req.Context(), projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			r.notFound(w)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, proj)
}

func (r *Router) handleProjectDeployments(w http.ResponseWriter, req *http.Request, projectID string) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	deployments, err := r.deploy.ListByProject(req.Context(), projectID, limit)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			r.notFound(w)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if deployments == nil {
		deployments = []domain.Deployment{}
	}
	writeJSON(w, http.StatusOK, deployments)
}

func (r *Router) handleDeployments(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		ProjectID string `json:"projectId"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	payload.ProjectID = strings.TrimSpace(payload.ProjectID)
	if payload.ProjectID == "" {
		writeError(w, http.StatusBadRequest, "projectId is required")
		return
	}
	deployment, err := r.deploy.Start(req.Context(), payload.ProjectID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]any{
			"deploymentId": deployment.ID,
			"status":       deployment.Status,
		})
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "project not found")
	case errors.Is(err, runner.ErrLaunchRejected):
		// The deployment row exists and is already marked FAILED.
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (r *Router) handleDeploymentSubroutes(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/deployments/")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 1 || parts[0] == "" {
		r.notFound(w)
		return
	}
	deploymentID := parts[0]
	switch {
	case len(parts) == 1:
		r.handleDeploymentGet(w, req, deploymentID)
	case len(parts) == 2 && parts[1] == "logs":
		r.handleDeploymentLogs(w, req, deploymentID)
	default:
		r.notFound(w)
	}
}

func (r *Router) handleDeploymentGet(w http.ResponseWriter, req *http.Request, deploymentID string) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	deployment, err := r.deploy.Get(req.Context(), deploymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			r.notFound(w)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, deployment)
}

// handleDeploymentLogs returns the durable snapshot in emission order. A
// known deployment with no persisted lines yet is an empty array, not a 404.
func (r *Router) handleDeploymentLogs(w http.ResponseWriter, req *http.Request, deploymentID string) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	events, err := r.logs.Snapshot(req.Context(), deploymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "deployment not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []domain.LogEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": events})
}

// liveTopic resolves the broadcast topic for a live-feed request: a single
// deployment or everything under a project.
func liveTopic(req *http.Request) (string, bool) {
	if id := strings.TrimSpace(req.URL.Query().Get("deployment_id")); id != "" {
		return id, true
	}
	if id := strings.TrimSpace(req.URL.Query().Get("project_id")); id != "" {
		return id, true
	}
	return "", false
}

func (r *Router) handleLogsWS(w http.ResponseWriter, req *http.Request) {
	topic, ok := liveTopic(req)
	if !ok {
		writeError(w, http.StatusBadRequest, "deployment_id or project_id query parameter required")
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	r.logs.Hub().Register(topic, client)
	go func() {
		defer func() {
			r.logs.Hub().Unregister(topic, client)
			client.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (r *Router) handleLogsSSE(w http.ResponseWriter, req *http.Request) {
	topic, ok := liveTopic(req)
	if !ok {
		writeError(w, http.StatusBadRequest, "deployment_id or project_id query parameter required")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	client := ws.NewSSEClient(w, flusher, r.logger)
	r.logs.Hub().Register(topic, client)
	<-req.Context().Done()
	r.logs.Hub().Unregister(topic, client)
	client.Close()
}

// handleBuilderStatus records the terminal status an executor reports for
// its deployment.
func (r *Router) handleBuilderStatus(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/internal/deployments/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "status" {
		r.notFound(w)
		return
	}
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	if !r.verifyBuilderToken(w, req) {
		return
	}
	var payload struct {
		Status string `json:"status"`
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	err := r.deploy.Complete(req.Context(), parts[0], payload.Status, payload.Detail)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "deployment not found")
	case errors.Is(err, deploy.ErrUnknownStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	checks := map[string]func(context.Context) error{
		"database": r.dbHealth,
		"redis":    r.redisHealth,
	}
	for name, check := range checks {
		if check == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		err := check(ctx)
		cancel()
		if err != nil {
			status = "degraded"
			components[name] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components[name] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		actor := "client"
		if strings.HasPrefix(req.URL.Path, "/internal/") {
			actor = "builder"
		}
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
			"actor", actor,
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		r.recordRequestMetrics(req.Method, req.URL.Path, status, duration)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) applyRateHeaders(w http.ResponseWriter, limit int, decision rateDecision) {
	if limit <= 0 {
		return
	}
	remaining := limit - decision.count
	if remaining < 0 {
		remaining = 0
	}
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !decision.windowEnd.IsZero() {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
	}
}

// verifyBuilderToken ensures builder callbacks include the configured secret.
func (r *Router) verifyBuilderToken(w http.ResponseWriter, req *http.Request) bool {
	expected := r.builderToken
	if expected == "" {
		r.logger.Error("builder token not configured", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "builder authentication misconfigured")
		return false
	}
	token := strings.TrimSpace(req.Header.Get("X-Builder-Token"))
	if len(token) != len(expected) || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		r.logger.Warn("builder token mismatch", "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "invalid builder token")
		return false
	}
	return true
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}
