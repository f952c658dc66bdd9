// internal/game/session.go
//
// Round/session controller.
// Responsibilities:
//   - Draw the opponent move from an injected Source.
//   - Update the win/lose/draw tally once per round.
//   - Build the result text shown to the player.
//   - Reset the tally when round 10 is acknowledged.
//
// A Session is not safe for concurrent use; callers serialize access.
package game

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
)

var (
	// ErrAwaitingAck is returned by ChooseMove while the previous result
	// has not been acknowledged.
	ErrAwaitingAck = errors.New("previous round not acknowledged")

	// ErrNothingToAck is returned by AcknowledgeRound when no result is pending.
	ErrNothingToAck = errors.New("no round to acknowledge")

	// ErrInvalidState is returned by Restore for a corrupt tally.
	ErrInvalidState = errors.New("invalid session state")
)

// Source yields uniform integers in [0, n).
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	IntN(n int) int
}

// lockedSource makes a *rand.Rand shareable between sessions.
type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedSource) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// NewRandomSource returns a goroutine-safe ChaCha8 source.
// A zero seed draws the seed from crypto/rand.
func NewRandomSource(seed uint64) Source {
	var key [32]byte
	if seed == 0 {
		_, _ = crand.Read(key[:])
	} else {
		binary.LittleEndian.PutUint64(key[:], seed)
	}
	return &lockedSource{r: rand.New(rand.NewChaCha8(key))}
}

// Session holds the mutable tally for one player.
type Session struct {
	src   Source
	state State
}

// NewSession starts a session at round 1 with all counters at zero.
func NewSession(src Source) *Session {
	return &Session{src: src}
}

// Restore rebuilds a session from a stored State.
func Restore(st State, src Source) (*Session, error) {
	if st.Wins < 0 || st.Losses < 0 || st.Draws < 0 || st.Played() > MaxRounds {
		return nil, fmt.Errorf("%w: %d/%d/%d", ErrInvalidState, st.Wins, st.Losses, st.Draws)
	}
	if st.Played() == MaxRounds && !st.AwaitingAck {
		// A full tally is only reachable with a pending result.
		return nil, fmt.Errorf("%w: full tally without pending result", ErrInvalidState)
	}
	return &Session{src: src, state: st}, nil
}

// State returns a snapshot of the tally.
func (s *Session) State() State { return s.state }

// RoundIndex is the derived 1-based round index (always 1..MaxRounds).
func (s *Session) RoundIndex() int { return s.state.RoundIndex() }

// Phase reports ReadyToReset once round 10 has been played and not yet
// acknowledged.
func (s *Session) Phase() Phase { return s.state.Phase() }

// ChooseMove plays one round: the opponent move is drawn uniformly from the
// Source, the outcome is evaluated and the matching counter is incremented.
func (s *Session) ChooseMove(player Move) (RoundResult, error) {
	if !player.Valid() {
		return RoundResult{}, fmt.Errorf("%w: %d", ErrInvalidMove, int(player))
	}
	if s.state.AwaitingAck {
		return RoundResult{}, ErrAwaitingAck
	}

	moves := Moves()
	opponent := moves[s.src.IntN(len(moves))]
	outcome := Evaluate(player, opponent)

	switch outcome {
	case Win:
		s.state.Wins++
	case Lose:
		s.state.Losses++
	default:
		s.state.Draws++
	}
	s.state.AwaitingAck = true

	final := s.state.Played() == MaxRounds
	return RoundResult{
		PlayerMove:   player,
		OpponentMove: opponent,
		Outcome:      outcome,
		State:        s.state,
		Round:        s.state.Played(),
		FinalRound:   final,
		Title:        resultTitle(player, opponent, outcome),
		Message:      scoreMessage(s.state),
		Button:       buttonLabel(final),
	}, nil
}

// AcknowledgeRound is called once the result has been shown. After round 10
// it zeroes the tally, starting a new session; otherwise only the pending
// flag is cleared.
func (s *Session) AcknowledgeRound() error {
	if !s.state.AwaitingAck {
		return ErrNothingToAck
	}
	if s.state.Played() == MaxRounds {
		s.state = State{}
		return nil
	}
	s.state.AwaitingAck = false
	return nil
}

func resultTitle(player, opponent Move, o Outcome) string {
	head := fmt.Sprintf("You chose %s and your opponent chose %s, ", player.DisplayName(), opponent.DisplayName())
	switch o {
	case Win:
		return head + "You Win"
	case Lose:
		return head + "You Lose"
	}
	return head + "It's a Draw"
}

func scoreMessage(st State) string {
	return fmt.Sprintf("Current score is %d win, %d lose, and %d draw", st.Wins, st.Losses, st.Draws)
}

func buttonLabel(final bool) string {
	if final {
		return "Play Again"
	}
	return "Continue"
}
