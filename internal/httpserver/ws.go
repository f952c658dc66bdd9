// internal/httpserver/ws.go
//
// WebSocket transport for a session. The connection is handled by a single
// read loop, so frames from one client are processed strictly in order; a
// ticker sends pings so idle tabs are detected.
//
// Client frames:  {"action":"move","move":"rock"} | {"action":"ack"} | {"action":"state"}
// Server frames:  {"type":"result","result":{...}} | {"type":"state","state":{...}}
//                 | {"type":"error","error":"awaiting_ack"}

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/rockpaperscissors/internal/game"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	frameTimeout = 5 * time.Second
	maxFrameSize = 1024
)

type wsIn struct {
	Action string `json:"action"`
	Move   string `json:"move,omitempty"`
}

type wsOut struct {
	Type   string            `json:"type"`
	Result *game.RoundResult `json:"result,omitempty"`
	State  *stateView        `json:"state,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// handleWS upgrades the request and serves frames until the client leaves.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	logger := hlog.FromRequest(r).With().Str("sessionId", id).Logger()

	// fail before upgrading so the client gets a real status code
	rec, err := s.loadSession(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	// the request context ends with the handler; frames get their own
	base := context.WithoutCancel(r.Context())
	done := make(chan struct{})
	defer close(done)
	go pinger(conn, done)

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	v := viewOf(rec)
	if err := writeFrame(conn, wsOut{Type: "state", State: &v}); err != nil {
		return
	}

	for {
		var in wsIn
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug().Err(err).Msg("websocket read")
			}
			return
		}
		ctx, cancel := context.WithTimeout(base, frameTimeout)
		out := s.handleFrame(ctx, id, in, logger)
		cancel()
		if err := writeFrame(conn, out); err != nil {
			logger.Debug().Err(err).Msg("websocket write")
			return
		}
	}
}

// handleFrame runs one client action and builds the reply.
func (s *Server) handleFrame(ctx context.Context, id string, in wsIn, logger zerolog.Logger) wsOut {
	switch in.Action {
	case "move":
		m, err := game.ParseMove(in.Move)
		if err != nil {
			return wsOut{Type: "error", Error: "invalid_move"}
		}
		res, err := s.playMove(ctx, id, m)
		if err != nil {
			return frameError(err, logger)
		}
		return wsOut{Type: "result", Result: &res}
	case "ack":
		rec, err := s.acknowledge(ctx, id)
		if err != nil {
			return frameError(err, logger)
		}
		v := viewOf(rec)
		return wsOut{Type: "state", State: &v}
	case "state":
		rec, err := s.loadSession(ctx, id)
		if err != nil {
			return frameError(err, logger)
		}
		v := viewOf(rec)
		return wsOut{Type: "state", State: &v}
	}
	return wsOut{Type: "error", Error: "unknown_action"}
}

func frameError(err error, logger zerolog.Logger) wsOut {
	status, code := errorCode(err)
	if status >= http.StatusInternalServerError && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg(code)
	}
	return wsOut{Type: "error", Error: code}
}

func writeFrame(conn *websocket.Conn, out wsOut) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(out)
}

// pinger sends control pings until done is closed. WriteControl may run
// concurrently with the read loop's writes.
func pinger(conn *websocket.Conn, done <-chan struct{}) {
	t := time.NewTicker(pingPeriod)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
