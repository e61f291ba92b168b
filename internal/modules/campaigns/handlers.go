package campaigns

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles campaign HTTP requests
type Handler struct {
	repo *Repository
	log  zerolog.Logger
}

// NewHandler creates a new campaigns handler
func NewHandler(repo *Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "campaigns").Logger(),
	}
}

// RegisterRoutes registers campaign routes on the given router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/campaigns", h.HandleList)
	r.Post("/campaigns", h.HandleUpsert)
	r.Get("/campaigns/{id}/metrics", h.HandleGetMetrics)
	r.Post("/campaigns/{id}/metrics", h.HandleRecordMetrics)
	r.Get("/campaigns/records", h.HandleRecords)
}

// HandleList returns all campaigns
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"campaigns": list})
}

// HandleUpsert creates or updates a campaign
func (h *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	var c Campaign
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.repo.Upsert(c); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.log.Info().Str("campaign_id", c.ID).Msg("Campaign upserted")
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleGetMetrics returns daily metrics for one campaign
func (h *Handler) HandleGetMetrics(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	metrics, err := h.repo.MetricsForCampaign(id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"metrics": metrics})
}

// HandleRecordMetrics ingests daily metric rows for one campaign
func (h *Handler) HandleRecordMetrics(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var metrics []DailyMetric
	if err := json.NewDecoder(r.Body).Decode(&metrics); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	for i := range metrics {
		metrics[i].CampaignID = id
	}

	if err := h.repo.RecordMetrics(metrics); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.log.Info().
		Str("campaign_id", id).
		Int("rows", len(metrics)).
		Msg("Metrics recorded")
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleRecords returns aggregate records for all campaigns
func (h *Handler) HandleRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.repo.BuildRecords()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"records": records})
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
