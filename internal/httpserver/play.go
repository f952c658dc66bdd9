// internal/httpserver/play.go
//
// Glue between transport and the game controller. Every operation on a
// session takes that session's lock, loads the record, restores a
// game.Session with the right opponent source, runs, and saves. This is
// what serializes ChooseMove/AcknowledgeRound per player.

package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/robalobadob/rockpaperscissors/internal/daily"
	"github.com/robalobadob/rockpaperscissors/internal/game"
	"github.com/robalobadob/rockpaperscissors/internal/metrics"
	"github.com/robalobadob/rockpaperscissors/internal/store"
)

var errSaveFailed = errors.New("save failed")

// keyedMutex hands out one mutex per key and forgets keys nobody holds.
type keyedMutex struct {
	mu sync.Mutex
	m  map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex { return &keyedMutex{m: make(map[string]*keyedEntry)} }

// Lock blocks until key is free and returns its unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	e := k.m[key]
	if e == nil {
		e = &keyedEntry{}
		k.m[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.m, key)
		}
		k.mu.Unlock()
	}
}

// stateView is the JSON shape of a session for clients.
type stateView struct {
	SessionID string     `json:"sessionId"`
	Mode      store.Mode `json:"mode"`
	Date      string     `json:"date,omitempty"`
	Round     int        `json:"round"`
	Phase     game.Phase `json:"phase"`
	State     game.State `json:"state"`
}

func viewOf(rec *store.Record) stateView {
	return stateView{
		SessionID: rec.ID,
		Mode:      rec.Mode,
		Date:      rec.Date,
		Round:     rec.State.RoundIndex(),
		Phase:     rec.State.Phase(),
		State:     rec.State,
	}
}

// createSession stores a fresh all-zero session.
func (s *Server) createSession(ctx context.Context, mode store.Mode) (*store.Record, error) {
	rec := &store.Record{ID: uuid.NewString(), Mode: mode}
	if mode == store.ModeDaily {
		rec.Date = daily.DateKey(s.opts.Now())
	}
	if err := s.store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: %v", errSaveFailed, err)
	}
	metrics.SessionsStarted.WithLabelValues(string(mode)).Inc()
	return rec, nil
}

// sourceFor picks the opponent source of a record.
func (s *Server) sourceFor(rec *store.Record) game.Source {
	if rec.Mode == store.ModeDaily {
		return daily.NewSource(rec.Date, s.opts.DailySalt, rec.Offset)
	}
	return s.src
}

// withSession runs fn against the session id under its lock. The record is
// saved only when fn succeeds, so a rejected call never changes the stored
// tally.
func (s *Server) withSession(ctx context.Context, id string, fn func(*game.Session) error) (*store.Record, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	src := s.sourceFor(rec)
	sess, err := game.Restore(rec.State, src)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return rec, err
	}
	rec.State = sess.State()
	if d, ok := src.(*daily.Source); ok {
		rec.Offset = d.Offset()
	}
	if err := s.store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: %v", errSaveFailed, err)
	}
	return rec, nil
}

// loadSession reads a session without changing it.
func (s *Server) loadSession(ctx context.Context, id string) (*store.Record, error) {
	unlock := s.locks.Lock(id)
	defer unlock()
	return s.store.Get(ctx, id)
}

// playMove runs one round and records metrics.
func (s *Server) playMove(ctx context.Context, id string, m game.Move) (game.RoundResult, error) {
	var res game.RoundResult
	rec, err := s.withSession(ctx, id, func(sess *game.Session) error {
		var err error
		res, err = sess.ChooseMove(m)
		return err
	})
	if err != nil {
		countViolation(err)
		return game.RoundResult{}, err
	}
	metrics.RoundsPlayed.WithLabelValues(string(rec.Mode), res.Outcome.String()).Inc()
	return res, nil
}

// acknowledge clears the pending result and resets after round 10.
func (s *Server) acknowledge(ctx context.Context, id string) (*store.Record, error) {
	completed := false
	rec, err := s.withSession(ctx, id, func(sess *game.Session) error {
		completed = sess.Phase() == game.PhaseReadyToReset
		return sess.AcknowledgeRound()
	})
	if err != nil {
		countViolation(err)
		return nil, err
	}
	if completed {
		metrics.SessionsCompleted.Inc()
	}
	return rec, nil
}

func countViolation(err error) {
	switch {
	case errors.Is(err, game.ErrAwaitingAck):
		metrics.ContractViolations.WithLabelValues("awaiting_ack").Inc()
	case errors.Is(err, game.ErrNothingToAck):
		metrics.ContractViolations.WithLabelValues("nothing_to_ack").Inc()
	}
}

// errorCode maps an error to its HTTP status and wire code.
func errorCode(err error) (int, string) {
	switch {
	case errors.Is(err, game.ErrInvalidMove):
		return http.StatusBadRequest, "invalid_move"
	case errors.Is(err, game.ErrAwaitingAck):
		return http.StatusConflict, "awaiting_ack"
	case errors.Is(err, game.ErrNothingToAck):
		return http.StatusConflict, "nothing_to_ack"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, game.ErrInvalidState):
		return http.StatusInternalServerError, "corrupt_session"
	case errors.Is(err, errSaveFailed):
		return http.StatusInternalServerError, "save_failed"
	}
	return http.StatusInternalServerError, "internal"
}
