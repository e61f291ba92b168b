package estimator

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const maxForecastDays = 90

// Handler handles response-model HTTP requests
type Handler struct {
	cache   *Cache
	refresh *RefreshJob
	log     zerolog.Logger
}

// NewHandler creates a new estimator handler
func NewHandler(cache *Cache, refresh *RefreshJob, log zerolog.Logger) *Handler {
	return &Handler{
		cache:   cache,
		refresh: refresh,
		log:     log.With().Str("handler", "estimator").Logger(),
	}
}

// RegisterRoutes registers model routes on the given router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/models/snapshot", h.HandleSnapshot)
	r.Post("/models/refresh", h.HandleRefresh)
	r.Get("/models/{id}/forecast", h.HandleForecast)
}

// HandleSnapshot returns metadata for the current fitted snapshot
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot := h.cache.Current()
	if snapshot == nil {
		h.writeError(w, http.StatusNotFound, "No model snapshot fitted yet")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"version":      snapshot.Version,
		"fitted_at":    snapshot.FittedAt,
		"campaigns":    len(snapshot.Curves),
		"insufficient": snapshot.Insufficient,
	})
}

// HandleRefresh re-fits the snapshot from stored metrics immediately
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.refresh.Run(); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	snapshot := h.cache.Current()
	version := ""
	if snapshot != nil {
		version = snapshot.Version
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version})
}

// HandleForecast predicts outcomes for one campaign at a given daily budget
// over a bounded horizon
func (h *Handler) HandleForecast(w http.ResponseWriter, r *http.Request) {
	snapshot := h.cache.Current()
	if snapshot == nil {
		h.writeError(w, http.StatusNotFound, "No model snapshot fitted yet")
		return
	}

	id := chi.URLParam(r, "id")
	curve, ok := snapshot.Curve(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "No model for campaign "+id)
		return
	}

	budget, err := strconv.ParseFloat(r.URL.Query().Get("budget"), 64)
	if err != nil || budget <= 0 {
		h.writeError(w, http.StatusBadRequest, "Query parameter 'budget' must be a positive number")
		return
	}

	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil || days < 1 || days > maxForecastDays {
			h.writeError(w, http.StatusBadRequest, "Query parameter 'days' must be between 1 and 90")
			return
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"campaign_id": id,
		"budget":      budget,
		"version":     snapshot.Version,
		"forecast":    Forecast(curve, budget, days),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
