// internal/httpserver/server.go
//
// HTTP server wiring for the rock/paper/scissors backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs,
//     access logging).
//   - Public endpoints: "/", "/health", "/metrics", "/moves".
//   - Session endpoints under /session (token-gated except /session/new).
//   - WebSocket transport at /session/ws.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Each session is driven by one request at a time; see play.go.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/rockpaperscissors/internal/game"
	"github.com/robalobadob/rockpaperscissors/internal/store"
)

// Options carries the settings the handlers need.
type Options struct {
	Secret       string        // HS256 key for session tokens
	TokenTTL     time.Duration // token lifetime
	CookieName   string
	Secure       bool   // production cookies (Secure, SameSite=None)
	ClientOrigin string // allowed CORS / websocket origin
	DailySalt    string
	Now          func() time.Time
}

func (o *Options) defaults() {
	if o.Secret == "" {
		o.Secret = "dev_secret_change_me"
	}
	if o.TokenTTL <= 0 {
		o.TokenTTL = 14 * 24 * time.Hour
	}
	if o.CookieName == "" {
		o.CookieName = "rps_token"
	}
	if o.ClientOrigin == "" {
		o.ClientOrigin = "http://localhost:5173"
	}
	if o.DailySalt == "" {
		o.DailySalt = "local_dev_salt"
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Server bundles router, session store and the shared opponent source.
type Server struct {
	r        *chi.Mux
	store    store.Store
	src      game.Source
	opts     Options
	locks    *keyedMutex
	upgrader websocket.Upgrader
	srv      *http.Server
}

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, src game.Source, opts Options) *Server {
	opts.defaults()
	s := &Server{
		r:     chi.NewRouter(),
		store: st,
		src:   src,
		opts:  opts,
		locks: newKeyedMutex(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)               // add X-Request-ID
	s.r.Use(chimw.RealIP)                  // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(hlog.NewHandler(log.Logger))   // request-scoped logger
	s.r.Use(hlog.AccessHandler(accessLog)) // one line per request
	s.r.Use(chimw.Recoverer)               // recover from panics
	s.r.Use(s.cors)                        // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Use(jsonContentType)                 // default JSON responses
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"rps-go","endpoints":["/health","/moves","POST /session/new","POST /session/move","POST /session/ack","GET /session/ws"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		r.Get("/moves", handleMoves)
	})

	// Session endpoints (token-gated except /session/new) + websocket
	s.mountSession(s.r)

	s.r.Handle("/metrics", promhttp.Handler())

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})

	return s
}

// Start serves HTTP on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- s.srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.opts.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkOrigin admits websocket upgrades from the client origin and from
// non-browser clients that send no Origin header.
func (s *Server) checkOrigin(r *http.Request) bool {
	o := r.Header.Get("Origin")
	return o == "" || o == s.opts.ClientOrigin
}

func accessLog(r *http.Request, status, size int, d time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("reqId", chimw.GetReqID(r.Context())).
		Int("status", status).
		Int("size", size).
		Dur("duration", d).
		Msg("request")
}

// ------------------------------- moves -------------------------------------

type moveView struct {
	Move  game.Move `json:"move"`
	Name  string    `json:"name"`
	Glyph string    `json:"glyph"`
}

// handleMoves lists the selectable moves with their display metadata.
func handleMoves(w http.ResponseWriter, r *http.Request) {
	out := make([]moveView, 0, 3)
	for _, m := range game.Moves() {
		out = append(out, moveView{Move: m, Name: m.DisplayName(), Glyph: m.Glyph()})
	}
	_ = json.NewEncoder(w).Encode(out)
}

// writeError writes {"error":code} with status.
func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
