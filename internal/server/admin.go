package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"faceit-tracker/internal/constants"
	"faceit-tracker/internal/domain"
	"faceit-tracker/internal/middleware"
	"faceit-tracker/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// AdminServer is the roster management surface: register and remove tracked
// handles, inspect the current weekly aggregates and a player's elo history.
type AdminServer struct {
	store  *store.Store
	logger zerolog.Logger
}

func NewAdminServer(st *store.Store, logger zerolog.Logger) *AdminServer {
	return &AdminServer{store: st, logger: logger}
}

func (s *AdminServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/roster", s.handleListRoster)
		r.Post("/roster", s.handleRegister)
		r.Delete("/roster/{handle}", s.handleUnregister)
		r.Get("/weekly", s.handleWeekly)
		r.Get("/players/{handle}/history", s.handleHistory)
	})

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

func (s *AdminServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *AdminServer) handleListRoster(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := dbContext(r)
	defer cancel()

	roster, err := s.store.Roster(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list roster")
		writeError(w, http.StatusInternalServerError, "failed to list roster")
		return
	}
	if roster == nil {
		roster = []domain.Player{}
	}
	writeJSON(w, http.StatusOK, roster)
}

type registerRequest struct {
	Handle string `json:"handle"`
}

func (s *AdminServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	handle := strings.TrimSpace(req.Handle)
	if handle == "" {
		writeError(w, http.StatusBadRequest, "handle is required")
		return
	}

	ctx, cancel := dbContext(r)
	defer cancel()

	existing, err := s.store.GetPlayer(ctx, handle)
	if err == nil {
		writeJSON(w, http.StatusOK, existing)
		return
	}
	if !errors.Is(err, store.ErrPlayerNotFound) {
		s.logger.Error().Err(err).Str("handle", handle).Msg("failed to look up player")
		writeError(w, http.StatusInternalServerError, "failed to register player")
		return
	}

	// New registrations start with all tracking fields empty; the next tick
	// performs the baseline observation.
	player := &domain.Player{Handle: handle}
	if err := s.store.UpsertPlayer(ctx, player); err != nil {
		s.logger.Error().Err(err).Str("handle", handle).Msg("failed to register player")
		writeError(w, http.StatusInternalServerError, "failed to register player")
		return
	}

	s.logger.Info().Str("handle", handle).Msg("player registered")
	writeJSON(w, http.StatusCreated, player)
}

func (s *AdminServer) handleUnregister(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")

	ctx, cancel := dbContext(r)
	defer cancel()

	if err := s.store.DeletePlayer(ctx, handle); err != nil {
		if errors.Is(err, store.ErrPlayerNotFound) {
			writeError(w, http.StatusNotFound, "player not found")
			return
		}
		s.logger.Error().Err(err).Str("handle", handle).Msg("failed to unregister player")
		writeError(w, http.StatusInternalServerError, "failed to unregister player")
		return
	}

	s.logger.Info().Str("handle", handle).Msg("player unregistered")
	w.WriteHeader(http.StatusNoContent)
}

func (s *AdminServer) handleWeekly(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := dbContext(r)
	defer cancel()

	stats, err := s.store.Weekly(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load weekly stats")
		writeError(w, http.StatusInternalServerError, "failed to load weekly stats")
		return
	}
	if stats == nil {
		stats = []domain.WeeklyStats{}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *AdminServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")

	ctx, cancel := dbContext(r)
	defer cancel()

	history, err := s.store.EloHistoryFor(ctx, handle, constants.EloHistoryLimit)
	if err != nil {
		s.logger.Error().Err(err).Str("handle", handle).Msg("failed to load elo history")
		writeError(w, http.StatusInternalServerError, "failed to load elo history")
		return
	}
	if history == nil {
		history = []domain.EloHistory{}
	}
	writeJSON(w, http.StatusOK, history)
}

func dbContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), constants.DatabaseTimeout)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
