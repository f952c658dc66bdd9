// internal/httpserver/routes_session.go
//
// HTTP routes for playing a session. Exposes, under /session:
//   - POST   /session/new   → start a session ("random" or "daily" opponent)
//   - GET    /session       → current tally, round index and phase
//   - POST   /session/move  → play one round
//   - POST   /session/ack   → acknowledge the last result (resets after round 10)
//   - DELETE /session       → end the session
//   - GET    /session/ws    → websocket transport (ws.go)
//
// Everything but /new requires the session token returned by /new.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/rockpaperscissors/internal/game"
	"github.com/robalobadob/rockpaperscissors/internal/store"
)

// mountSession registers all /session routes.
func (s *Server) mountSession(r chi.Router) {
	bounded := chi.Chain(chimw.Timeout(10*time.Second), jsonContentType)

	r.Route("/session", func(r chi.Router) {
		r.With(bounded...).Post("/new", s.handleNewSession)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession())
			r.Get("/ws", s.handleWS)

			r.Group(func(r chi.Router) {
				r.Use(bounded...)
				r.Get("/", s.handleState)
				r.Post("/move", s.handleMove)
				r.Post("/ack", s.handleAck)
				r.Delete("/", s.handleEnd)
			})
		})
	})
}

// newSessionReq/Res payloads for POST /session/new.
type newSessionReq struct {
	Mode string `json:"mode"` // "random" (default) | "daily"
}
type newSessionRes struct {
	SessionID string    `json:"sessionId"`
	Token     string    `json:"token"`
	State     stateView `json:"state"`
}

// handleNewSession creates a session, signs its token and sets the cookie.
func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	var req newSessionReq
	// an empty body means defaults
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && r.ContentLength > 0 {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	mode := store.ModeRandom
	switch req.Mode {
	case "", string(store.ModeRandom):
	case string(store.ModeDaily):
		mode = store.ModeDaily
	default:
		writeError(w, http.StatusBadRequest, "invalid_mode")
		return
	}

	rec, err := s.createSession(r.Context(), mode)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("create session")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	tok, exp, err := s.signToken(rec.ID)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("sign token")
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	s.setSessionCookie(w, tok, exp)
	hlog.FromRequest(r).Info().Str("sessionId", rec.ID).Str("mode", string(mode)).Msg("session started")

	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(newSessionRes{SessionID: rec.ID, Token: tok, State: viewOf(rec)})
}

// handleState returns the stored tally.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	rec, err := s.loadSession(r.Context(), sessionID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(viewOf(rec))
}

// moveReq payload for POST /session/move.
type moveReq struct {
	Move string `json:"move"`
}

// handleMove plays one round for the caller's session.
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	m, err := game.ParseMove(req.Move)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_move")
		return
	}
	res, err := s.playMove(r.Context(), sessionID(r), m)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(res)
}

// handleAck acknowledges the pending result.
func (s *Server) handleAck(w http.ResponseWriter, r *http.Request) {
	rec, err := s.acknowledge(r.Context(), sessionID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(viewOf(rec))
}

// handleEnd deletes the session and clears the cookie.
func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	unlock := s.locks.Lock(id)
	err := s.store.Delete(r.Context(), id)
	unlock()
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.fail(w, r, err)
		return
	}
	s.clearSessionCookie(w)
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// fail maps err to a JSON error response; server-side failures are logged.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorCode(err)
	if status >= http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Str("sessionId", sessionID(r)).Msg(code)
	}
	writeError(w, status, code)
}
