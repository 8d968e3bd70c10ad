package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tamrielmeta/buildscry/internal/adapters/repository"
)

// TrialsDependencies defines the interface for trial bookkeeping reads.
type TrialsDependencies interface {
	Meta(ctx context.Context) repository.Meta
}

// TrialsHandler handles trial bookkeeping requests.
type TrialsHandler struct {
	deps TrialsDependencies
}

// NewTrialsHandler creates a new trials handler.
func NewTrialsHandler(deps TrialsDependencies) *TrialsHandler {
	return &TrialsHandler{deps: deps}
}

type trialView struct {
	LastUpdated   time.Time             `json:"last_updated"`
	UpdateVersion string                `json:"update_version"`
	CacheStats    repository.CacheStats `json:"cache_stats"`
}

type trialsResponse struct {
	Trials         map[string]trialView `json:"trials"`
	LastFullUpdate time.Time            `json:"last_full_update"`
}

// HandleTrials handles GET /api/v1/trials requests.
func (h *TrialsHandler) HandleTrials(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	meta := h.deps.Meta(r.Context())

	trials := make(map[string]trialView, len(meta.Trials))
	for name, tm := range meta.Trials {
		trials[name] = trialView{
			LastUpdated:   tm.LastUpdated,
			UpdateVersion: tm.UpdateVersion,
			CacheStats:    tm.CacheStats,
		}
	}
	writeJSON(w, http.StatusOK, trialsResponse{
		Trials:         trials,
		LastFullUpdate: meta.LastFullUpdate,
	})
}
