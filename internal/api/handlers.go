package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/maltedev/mortgage-rate-scraper/internal/models"
	"github.com/maltedev/mortgage-rate-scraper/internal/sources"
)

const Version = "1.0.0"

// Runner executes scrape pipelines.
type Runner interface {
	RunOne(ctx context.Context, name string) (*models.RateResult, error)
	RunMany(ctx context.Context, names []string) []models.RateResult
}

type SourceLister interface {
	List() ([]string, error)
}

type Handlers struct {
	runner  Runner
	sources SourceLister
	logger  *slog.Logger
}

func NewHandlers(runner Runner, sources SourceLister, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		runner:  runner,
		sources: sources,
		logger:  logger.With("component", "api"),
	}
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// BatchRequest names the sources to scrape. Banks is the older field name
// and is merged into Sources.
type BatchRequest struct {
	Sources []string `json:"sources"`
	Banks   []string `json:"banks,omitempty"`
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Version: Version})
}

// ScrapeOne handles POST /scrape/{sourceName}
func (h *Handlers) ScrapeOne(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "sourceName")
	if name == "" {
		h.respondError(w, http.StatusBadRequest, "source name is required")
		return
	}

	result, err := h.runner.RunOne(r.Context(), name)
	if err != nil {
		if errors.Is(err, sources.ErrConfigNotFound) {
			h.respondError(w, http.StatusNotFound, "no configuration found for source "+name)
			return
		}
		h.logger.Error("scrape failed", "source", name, "error", err)
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// ScrapeMany handles POST /scrape. Only successful results are returned.
func (h *Handlers) ScrapeMany(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	names := append(append([]string{}, req.Sources...), req.Banks...)
	results := h.runner.RunMany(r.Context(), names)
	if results == nil {
		results = []models.RateResult{}
	}

	h.logger.Info("batch scrape finished", "requested", len(names), "returned", len(results))
	h.respondJSON(w, http.StatusOK, results)
}

func (h *Handlers) ListSources(w http.ResponseWriter, r *http.Request) {
	names, err := h.sources.List()
	if err != nil {
		h.logger.Error("failed to list sources", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list sources")
		return
	}
	if names == nil {
		names = []string{}
	}
	h.respondJSON(w, http.StatusOK, map[string][]string{"sources": names})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("failed to encode response", "error", err)
		status = http.StatusInternalServerError
		body = []byte(`{"error":"failed to encode response"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
