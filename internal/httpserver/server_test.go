package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/robalobadob/rockpaperscissors/internal/game"
	"github.com/robalobadob/rockpaperscissors/internal/store"
)

// scripted cycles through fixed opponent indices.
type scripted struct {
	mu    sync.Mutex
	picks []int
	n     int
}

func (s *scripted) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.picks[s.n%len(s.picks)] % n
	s.n++
	return v
}

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, picks ...int) (*Server, *httptest.Server) {
	t.Helper()
	if len(picks) == 0 {
		picks = []int{int(game.Rock)}
	}
	srv := New(store.NewMemoryStore(), &scripted{picks: picks}, Options{
		Secret: "test-secret",
		Now:    func() time.Time { return fixedNow },
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

// call sends a JSON request and decodes the JSON response into out (if set).
func call(t *testing.T, ts *httptest.Server, method, path, token string, body any, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return res.StatusCode
}

func newSession(t *testing.T, ts *httptest.Server, mode string) newSessionRes {
	t.Helper()
	var res newSessionRes
	body := map[string]string{}
	if mode != "" {
		body["mode"] = mode
	}
	if code := call(t, ts, http.MethodPost, "/session/new", "", body, &res); code != http.StatusCreated {
		t.Fatalf("POST /session/new = %d", code)
	}
	if res.Token == "" || res.SessionID == "" {
		t.Fatalf("missing token/session id: %+v", res)
	}
	return res
}

type errBody struct {
	Error string `json:"error"`
}

func TestHealthAndMoves(t *testing.T) {
	_, ts := newTestServer(t)
	var health map[string]bool
	if code := call(t, ts, http.MethodGet, "/health", "", nil, &health); code != http.StatusOK || !health["ok"] {
		t.Fatalf("/health = %d %v", code, health)
	}

	var moves []struct {
		Move, Name, Glyph string
	}
	if code := call(t, ts, http.MethodGet, "/moves", "", nil, &moves); code != http.StatusOK {
		t.Fatalf("/moves = %d", code)
	}
	if len(moves) != 3 || moves[0].Move != "paper" || moves[1].Name != "Rock" || moves[2].Glyph != "✂️" {
		t.Fatalf("/moves = %+v", moves)
	}
}

func TestNewSessionStartsAtRoundOne(t *testing.T) {
	_, ts := newTestServer(t)
	s := newSession(t, ts, "")
	if s.State.Mode != store.ModeRandom || s.State.Round != 1 || s.State.Phase != game.PhaseInProgress {
		t.Fatalf("new session view: %+v", s.State)
	}
	if s.State.State != (game.State{}) {
		t.Fatalf("new session not zeroed: %+v", s.State.State)
	}

	var bad errBody
	if code := call(t, ts, http.MethodPost, "/session/new", "", map[string]string{"mode": "hard"}, &bad); code != http.StatusBadRequest || bad.Error != "invalid_mode" {
		t.Fatalf("invalid mode = %d %+v", code, bad)
	}
}

func TestPaperBeatsRock(t *testing.T) {
	_, ts := newTestServer(t, int(game.Rock))
	s := newSession(t, ts, "")

	var res game.RoundResult
	if code := call(t, ts, http.MethodPost, "/session/move", s.Token, moveReq{Move: "paper"}, &res); code != http.StatusOK {
		t.Fatalf("move = %d", code)
	}
	if res.PlayerMove != game.Paper || res.OpponentMove != game.Rock || res.Outcome != game.Win {
		t.Fatalf("result = %+v", res)
	}
	if res.State.Wins != 1 || res.State.Played() != 1 || res.FinalRound {
		t.Fatalf("result state = %+v final=%v", res.State, res.FinalRound)
	}

	var view stateView
	if code := call(t, ts, http.MethodGet, "/session", s.Token, nil, &view); code != http.StatusOK {
		t.Fatalf("GET /session = %d", code)
	}
	if !view.State.AwaitingAck || view.Round != 1 {
		t.Fatalf("view after move = %+v", view)
	}
}

func TestTenRoundSessionResets(t *testing.T) {
	_, ts := newTestServer(t, 0, 1, 2)
	s := newSession(t, ts, "")
	moves := []string{"rock", "paper", "scissors"}

	for n := 1; n <= game.MaxRounds; n++ {
		var res game.RoundResult
		if code := call(t, ts, http.MethodPost, "/session/move", s.Token, moveReq{Move: moves[n%3]}, &res); code != http.StatusOK {
			t.Fatalf("round %d move = %d", n, code)
		}
		if res.State.Played() != n || res.Round != n {
			t.Fatalf("round %d: played=%d round=%d", n, res.State.Played(), res.Round)
		}
		if res.FinalRound != (n == game.MaxRounds) {
			t.Fatalf("round %d FinalRound=%v", n, res.FinalRound)
		}

		var view stateView
		if code := call(t, ts, http.MethodPost, "/session/ack", s.Token, nil, &view); code != http.StatusOK {
			t.Fatalf("round %d ack = %d", n, code)
		}
		if n < game.MaxRounds && (view.State.Played() != n || view.Round != n+1) {
			t.Fatalf("after ack %d: %+v", n, view)
		}
		if n == game.MaxRounds && (view.State != (game.State{}) || view.Round != 1) {
			t.Fatalf("after final ack: %+v", view)
		}
	}
}

func TestMoveAndAckOrdering(t *testing.T) {
	_, ts := newTestServer(t)
	s := newSession(t, ts, "")

	var e errBody
	if code := call(t, ts, http.MethodPost, "/session/ack", s.Token, nil, &e); code != http.StatusConflict || e.Error != "nothing_to_ack" {
		t.Fatalf("ack without move = %d %+v", code, e)
	}
	if code := call(t, ts, http.MethodPost, "/session/move", s.Token, moveReq{Move: "rock"}, nil); code != http.StatusOK {
		t.Fatalf("move = %d", code)
	}
	e = errBody{}
	if code := call(t, ts, http.MethodPost, "/session/move", s.Token, moveReq{Move: "rock"}, &e); code != http.StatusConflict || e.Error != "awaiting_ack" {
		t.Fatalf("second move = %d %+v", code, e)
	}

	var view stateView
	call(t, ts, http.MethodGet, "/session", s.Token, nil, &view)
	if view.State.Played() != 1 {
		t.Fatalf("rejected move changed the tally: %+v", view.State)
	}
}

func TestMoveValidation(t *testing.T) {
	_, ts := newTestServer(t)
	s := newSession(t, ts, "")
	var e errBody
	if code := call(t, ts, http.MethodPost, "/session/move", s.Token, moveReq{Move: "lizard"}, &e); code != http.StatusBadRequest || e.Error != "invalid_move" {
		t.Fatalf("lizard = %d %+v", code, e)
	}
}

func TestSessionAuth(t *testing.T) {
	srv, ts := newTestServer(t)
	if code := call(t, ts, http.MethodGet, "/session", "", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("no token = %d", code)
	}
	if code := call(t, ts, http.MethodGet, "/session", "not-a-jwt", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("garbage token = %d", code)
	}

	other := New(store.NewMemoryStore(), &scripted{picks: []int{0}}, Options{Secret: "other", Now: srv.opts.Now})
	forged, _, err := other.signToken("some-id")
	if err != nil {
		t.Fatal(err)
	}
	if code := call(t, ts, http.MethodGet, "/session", forged, nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("foreign-key token = %d", code)
	}

	orphan, _, err := srv.signToken("no-such-session")
	if err != nil {
		t.Fatal(err)
	}
	if code := call(t, ts, http.MethodGet, "/session", orphan, nil, nil); code != http.StatusNotFound {
		t.Fatalf("unknown session = %d", code)
	}
}

func TestExpiredToken(t *testing.T) {
	_, ts := newTestServer(t)
	s := newSession(t, ts, "")
	past := New(store.NewMemoryStore(), &scripted{picks: []int{0}}, Options{
		Secret:   "test-secret",
		TokenTTL: time.Hour,
		Now:      func() time.Time { return fixedNow.Add(-2 * time.Hour) },
	})
	stale, _, err := past.signToken(s.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if code := call(t, ts, http.MethodGet, "/session", stale, nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("expired token = %d", code)
	}
}

func TestCookieCarriesSession(t *testing.T) {
	_, ts := newTestServer(t)
	res, err := http.Post(ts.URL+"/session/new", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	var cookie *http.Cookie
	for _, c := range res.Cookies() {
		if c.Name == "rps_token" {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly {
		t.Fatalf("session cookie missing or not HttpOnly: %+v", res.Cookies())
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/session", nil)
	req.AddCookie(cookie)
	got, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	got.Body.Close()
	if got.StatusCode != http.StatusOK {
		t.Fatalf("GET /session with cookie = %d", got.StatusCode)
	}
}

func TestEndSession(t *testing.T) {
	_, ts := newTestServer(t)
	s := newSession(t, ts, "")
	if code := call(t, ts, http.MethodDelete, "/session", s.Token, nil, nil); code != http.StatusOK {
		t.Fatalf("DELETE /session = %d", code)
	}
	if code := call(t, ts, http.MethodGet, "/session", s.Token, nil, nil); code != http.StatusNotFound {
		t.Fatalf("GET after delete = %d", code)
	}
}

func TestDailySessionsShareOpponents(t *testing.T) {
	_, ts := newTestServer(t)
	a := newSession(t, ts, "daily")
	b := newSession(t, ts, "daily")
	if a.State.Date != "2026-10-19" {
		t.Fatalf("daily date = %q", a.State.Date)
	}

	for n := 0; n < 5; n++ {
		var ra, rb game.RoundResult
		call(t, ts, http.MethodPost, "/session/move", a.Token, moveReq{Move: "rock"}, &ra)
		call(t, ts, http.MethodPost, "/session/move", b.Token, moveReq{Move: "paper"}, &rb)
		if ra.OpponentMove != rb.OpponentMove {
			t.Fatalf("round %d: daily opponents differ: %s vs %s", n+1, ra.OpponentMove, rb.OpponentMove)
		}
		call(t, ts, http.MethodPost, "/session/ack", a.Token, nil, nil)
		call(t, ts, http.MethodPost, "/session/ack", b.Token, nil, nil)
	}
}

func TestUnknownRouteIsJSON(t *testing.T) {
	_, ts := newTestServer(t)
	var e errBody
	if code := call(t, ts, http.MethodGet, "/nope", "", nil, &e); code != http.StatusNotFound || e.Error != "not_found" {
		t.Fatalf("/nope = %d %+v", code, e)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	s := newSession(t, ts, "")
	call(t, ts, http.MethodPost, "/session/move", s.Token, moveReq{Move: "paper"}, nil)

	res, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(res.Body)
	if !bytes.Contains(b, []byte("rps_rounds_total")) {
		t.Fatalf("/metrics missing rps_rounds_total")
	}
}
