package league

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/livematch"
	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/models"
)

// Handler exposes the scorekeeper's actions over HTTP for the captain device.
type Handler struct {
	session *Session
}

// NewHandler creates a handler around the session.
func NewHandler(session *Session) *Handler {
	return &Handler{session: session}
}

// RegisterRoutes registers the captain routes with an HTTP mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/match/start", h.handleStart)
	mux.HandleFunc("/match/goal", h.handleGoal)
	mux.HandleFunc("/match/shibobo", h.handleShibobo)
	mux.HandleFunc("/match/undo", h.handleUndo)
	mux.HandleFunc("/match/conclude", h.handleConclude)
	mux.HandleFunc("/match/pairing", h.handlePairing)
	mux.HandleFunc("/match/status", h.handleStatus)
	log.Info().Msg("captain routes registered")
}

// EventRequest is the body for goal and shibobo actions.
type EventRequest struct {
	TeamID models.TeamID `json:"team_id"`
	Scorer string        `json:"scorer"`
	Assist *string       `json:"assist,omitempty"`
}

// PairingRequest is the body for a manual pairing override.
type PairingRequest struct {
	TeamAID   models.TeamID `json:"team_a_id"`
	TeamBID   models.TeamID `json:"team_b_id"`
	StandbyID models.TeamID `json:"standby_id"`
}

// StatusResponse summarizes the session for the captain's screen.
type StatusResponse struct {
	Pairing     models.Pairing      `json:"pairing"`
	Streaks     models.StreakTable  `json:"streaks"`
	LiveEvents  []models.MatchEvent `json:"live_events"`
	WriteHealth string              `json:"write_health"`
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.session.StartMatch(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGoal(w http.ResponseWriter, r *http.Request) {
	h.handleEvent(w, r, func(req EventRequest) (models.MatchEvent, error) {
		return h.session.LogGoal(r.Context(), req.TeamID, req.Scorer, req.Assist)
	})
}

func (h *Handler) handleShibobo(w http.ResponseWriter, r *http.Request) {
	h.handleEvent(w, r, func(req EventRequest) (models.MatchEvent, error) {
		return h.session.LogShibobo(r.Context(), req.TeamID, req.Scorer)
	})
}

func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request, fn func(EventRequest) (models.MatchEvent, error)) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.TeamID == "" || req.Scorer == "" {
		http.Error(w, "team_id and scorer are required", http.StatusBadRequest)
		return
	}

	ev, err := fn(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (h *Handler) handleUndo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.session.UndoLastEvent(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleConclude(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	res, err := h.session.ConcludeMatch(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handlePairing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PairingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := h.session.SetPairing(models.Pairing{
		TeamAID:   req.TeamAID,
		TeamBID:   req.TeamBID,
		StandbyID: req.StandbyID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		Pairing:     h.session.Pairing(),
		Streaks:     h.session.Streaks(),
		LiveEvents:  h.session.LiveEvents(),
		WriteHealth: string(h.session.Health()),
	})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrMatchInProgress),
		errors.Is(err, ErrNoMatchInProgress),
		errors.Is(err, ErrNothingToUndo),
		errors.Is(err, livematch.ErrWriterConflict):
		status = http.StatusConflict
	case errors.Is(err, ErrTeamNotOnField):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
