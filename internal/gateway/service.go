// Package gateway exposes the live match feed to spectator devices over
// WebSocket and a plain state endpoint.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/docstore"
	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/livematch"
)

// Service bridges a livematch.Observer to spectator WebSocket connections:
// every document change becomes one broadcast view.
type Service struct {
	manager  *ConnectionManager
	observer *livematch.Observer
}

// NewService creates the spectator gateway for the given document key.
func NewService(store docstore.Store, clock clockwork.Clock, key string, config ConnectionConfig) *Service {
	manager := NewConnectionManager(config)
	observer := livematch.NewObserver(store, clock, key)

	s := &Service{manager: manager, observer: observer}
	observer.OnUpdate(s.broadcastView)
	return s
}

// Start connects the observer and runs the broadcast loop until ctx is
// cancelled.
func (s *Service) Start(ctx context.Context) error {
	go s.manager.Start(ctx)

	if err := s.observer.Connect(ctx); err != nil {
		// Spectators will see an explicit CONNECTION_LOST view instead of
		// stale data presented as live.
		log.Error().Err(err).Msg("observer could not connect to live data")
	}

	<-ctx.Done()
	s.observer.Disconnect()
	log.Info().Msg("spectator gateway stopped")
	return nil
}

// RegisterRoutes registers the spectator HTTP surface.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/live", s.handleWebSocket)
	mux.HandleFunc("/live/state", s.handleState)
	log.Info().Msg("spectator gateway routes registered")
}

func (s *Service) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	initial, err := json.Marshal(s.observer.View())
	if err != nil {
		http.Error(w, "failed to encode view", http.StatusInternalServerError)
		return
	}
	if err := s.manager.Upgrade(w, r, initial); err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
}

func (s *Service) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.observer.View()); err != nil {
		log.Error().Err(err).Msg("failed to write state response")
	}
}

func (s *Service) broadcastView(view livematch.View) {
	payload, err := json.Marshal(view)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal view for broadcast")
		return
	}
	s.manager.Broadcast(payload)
}
