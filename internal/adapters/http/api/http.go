// Package api declares HTTP contracts and route registration helpers for
// the read-only build surface.
package api

import (
	"context"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/tamrielmeta/buildscry/internal/adapters/repository"
	"github.com/tamrielmeta/buildscry/internal/domain/model"
	"github.com/tamrielmeta/buildscry/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Builds returns stored builds ordered by key, narrowed to one trial
	// when trial is non-empty.
	Builds(ctx context.Context, trial string) []model.ConsolidatedBuild

	// Build returns the stored build under key. Implementations signal a
	// missing build with repository.ErrNotFound.
	Build(ctx context.Context, key types.BuildKey) (model.ConsolidatedBuild, error)

	// Publishable reports whether a build clears its role threshold.
	Publishable(b model.ConsolidatedBuild) bool

	// Meta exposes the per-trial scan bookkeeping.
	Meta(ctx context.Context) repository.Meta
}

// StatsProvider exposes service statistics for the status surface.
type StatsProvider interface {
	Stats() map[string]any
}

// Server wires HTTP routes for the build API.
type Server struct {
	healthHandler *HealthHandler
	buildsHandler *BuildsHandler
	buildHandler  *BuildHandler
	trialsHandler *TrialsHandler
	statusHandler *StatusHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		buildsHandler: NewBuildsHandler(deps),
		buildHandler:  NewBuildHandler(deps),
		trialsHandler: NewTrialsHandler(deps),
		statusHandler: NewStatusHandler(statsProvider),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", instrument(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/api/v1/builds", instrument(s.buildsHandler.HandleList, "builds"))
	mux.HandleFunc("/api/v1/builds/", instrument(s.buildHandler.HandleGet, "build"))
	mux.HandleFunc("/api/v1/trials", instrument(s.trialsHandler.HandleTrials, "trials"))
	mux.HandleFunc("/api/v1/status", instrument(s.statusHandler.HandleStatus, "status"))
}

// instrument stacks the request logging and metrics middleware.
func instrument(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return MetricsMiddleware(LoggingMiddleware(next, endpoint), endpoint)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
