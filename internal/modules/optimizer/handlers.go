package optimizer

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles optimization HTTP requests
type Handler struct {
	service          *Service
	defaultMaxChange float64
	log              zerolog.Logger
}

// NewHandler creates a new optimizer handler. defaultMaxChange is applied
// when a request omits the bounded-change constraint; a request carrying an
// explicit negative value disables it.
func NewHandler(service *Service, defaultMaxChange float64, log zerolog.Logger) *Handler {
	return &Handler{
		service:          service,
		defaultMaxChange: defaultMaxChange,
		log:              log.With().Str("handler", "optimizer").Logger(),
	}
}

// RegisterRoutes registers optimizer routes on the given router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/optimize", h.HandleOptimize)
}

// HandleOptimize runs one optimization and returns the full result
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Objective == "" {
		req.Objective = ObjectiveMaximizeConversions
	}
	if req.Constraints.MaxChangeFraction == 0 {
		req.Constraints.MaxChangeFraction = h.defaultMaxChange
	} else if req.Constraints.MaxChangeFraction < 0 {
		req.Constraints.MaxChangeFraction = 0
	}

	result, err := h.service.Optimize(r.Context(), req)
	if err != nil {
		switch {
		case IsInfeasible(err):
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, ErrNoCampaignData):
			h.writeError(w, http.StatusPreconditionFailed, err.Error())
		default:
			h.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	h.log.Info().
		Str("run_id", result.RunID).
		Bool("used_fallback", result.UsedFallback).
		Msg("Optimization request served")
	h.writeJSON(w, http.StatusOK, result)
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
