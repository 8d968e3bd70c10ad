package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tamrielmeta/buildscry/internal/adapters/repository"
	"github.com/tamrielmeta/buildscry/internal/domain/model"
	"github.com/tamrielmeta/buildscry/internal/domain/types"
)

// BuildDependencies defines the interface for single-build lookups.
type BuildDependencies interface {
	Build(ctx context.Context, key types.BuildKey) (model.ConsolidatedBuild, error)
	Publishable(b model.ConsolidatedBuild) bool
}

// BuildHandler handles single-build requests.
type BuildHandler struct {
	deps BuildDependencies
}

// NewBuildHandler creates a new single-build handler.
func NewBuildHandler(deps BuildDependencies) *BuildHandler {
	return &BuildHandler{deps: deps}
}

// HandleGet handles GET /api/v1/builds/{trial}/{boss}/{slug} requests.
func (h *BuildHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	key, err := parseBuildPath(r.URL.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	build, err := h.deps.Build(r.Context(), key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, toDetail(build, h.deps.Publishable(build)))
}

// parseBuildPath extracts the key triple from /api/v1/builds/{trial}/{boss}/{slug}.
// The mux hands the path over already unescaped, so trial and boss names with
// spaces arrive in their display form.
func parseBuildPath(path string) (types.BuildKey, error) {
	rest := strings.TrimPrefix(path, "/api/v1/builds/")
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return types.BuildKey{}, fmt.Errorf("%w: want trial/boss/slug", ErrBadRequest)
	}
	return types.BuildKey{Trial: parts[0], Boss: parts[1], Slug: parts[2]}, nil
}
