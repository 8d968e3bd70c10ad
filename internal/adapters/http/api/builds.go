package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/tamrielmeta/buildscry/internal/domain/model"
)

// BuildsDependencies defines the interface for build listing operations.
type BuildsDependencies interface {
	Builds(ctx context.Context, trial string) []model.ConsolidatedBuild
	Publishable(b model.ConsolidatedBuild) bool
}

// BuildsHandler handles build listing requests.
type BuildsHandler struct {
	deps BuildsDependencies
}

// NewBuildsHandler creates a new build listing handler.
func NewBuildsHandler(deps BuildsDependencies) *BuildsHandler {
	return &BuildsHandler{deps: deps}
}

type buildsResponse struct {
	Builds []buildSummary `json:"builds"`
	Count  int            `json:"count"`
}

// HandleList handles GET /api/v1/builds?trial=&boss=&publishable= requests.
func (h *BuildsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()

	filterPublishable := false
	wantPublishable := false
	if raw := q.Get("publishable"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		filterPublishable = true
		wantPublishable = v
	}

	boss := q.Get("boss")
	builds := h.deps.Builds(r.Context(), q.Get("trial"))

	out := make([]buildSummary, 0, len(builds))
	for _, b := range builds {
		if boss != "" && b.Boss != boss {
			continue
		}
		publishable := h.deps.Publishable(b)
		if filterPublishable && publishable != wantPublishable {
			continue
		}
		out = append(out, toSummary(b, publishable))
	}
	writeJSON(w, http.StatusOK, buildsResponse{Builds: out, Count: len(out)})
}
