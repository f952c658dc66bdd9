// internal/game/types.go
//
// Core type definitions for the rock/paper/scissors engine.
// Defines:
//   - Move: one of the three selectable gestures.
//   - Outcome: result of a round from the player's perspective.
//   - State: the win/lose/draw tally of a 10-round session.
//   - RoundResult: everything the presentation layer needs after a round.

package game

import (
	"errors"
	"fmt"
	"strings"
)

// Move is a player's selectable gesture.
// The numeric value is the index a Source picks (0..2).
type Move int

const (
	Paper Move = iota
	Rock
	Scissors
)

// MaxRounds is the number of rounds in a session before the tally resets.
const MaxRounds = 10

// ErrInvalidMove is returned for values outside the Move enumeration.
var ErrInvalidMove = errors.New("invalid move")

var (
	moveNames  = [...]string{"Paper", "Rock", "Scissors"}
	moveGlyphs = [...]string{"📄", "🪨", "✂️"}
)

// Moves returns the three moves in selection order.
func Moves() []Move { return []Move{Paper, Rock, Scissors} }

// Valid reports whether m is one of Paper, Rock or Scissors.
func (m Move) Valid() bool { return m >= Paper && m <= Scissors }

// DisplayName is the capitalized name shown to players.
func (m Move) DisplayName() string {
	if !m.Valid() {
		return ""
	}
	return moveNames[m]
}

// Glyph is the emoji shown next to the name.
func (m Move) Glyph() string {
	if !m.Valid() {
		return ""
	}
	return moveGlyphs[m]
}

// String returns the lowercase wire form ("paper", "rock", "scissors").
func (m Move) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Move(%d)", int(m))
	}
	return strings.ToLower(moveNames[m])
}

// ParseMove accepts the wire form case-insensitively. "scissor" is accepted
// as an alias because older clients send it.
func ParseMove(s string) (Move, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paper":
		return Paper, nil
	case "rock":
		return Rock, nil
	case "scissors", "scissor":
		return Scissors, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMove, s)
}

func (m Move) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, ErrInvalidMove
	}
	return []byte(m.String()), nil
}

func (m *Move) UnmarshalText(b []byte) error {
	v, err := ParseMove(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Outcome is the result of comparing two moves from the player's side.
type Outcome int

const (
	Draw Outcome = iota
	Win
	Lose
)

func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Lose:
		return "lose"
	case Draw:
		return "draw"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Invert flips the perspective: Win <-> Lose, Draw stays Draw.
func (o Outcome) Invert() Outcome {
	switch o {
	case Win:
		return Lose
	case Lose:
		return Win
	}
	return o
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Outcome) UnmarshalText(b []byte) error {
	switch string(b) {
	case "win":
		*o = Win
	case "lose":
		*o = Lose
	case "draw":
		*o = Draw
	default:
		return fmt.Errorf("invalid outcome %q", b)
	}
	return nil
}

// State is the tally of the current session.
// The round index is derived from it, never stored.
type State struct {
	Wins        int  `json:"win"`
	Losses      int  `json:"lose"`
	Draws       int  `json:"draw"`
	AwaitingAck bool `json:"awaitingAck"` // a result was produced and not yet acknowledged
}

// Played is the number of rounds recorded in this session.
func (s State) Played() int { return s.Wins + s.Losses + s.Draws }

// RoundIndex is the 1-based round about to be played, or the one just played
// while a result is awaiting acknowledgement.
func (s State) RoundIndex() int {
	if s.AwaitingAck {
		return s.Played()
	}
	return s.Played() + 1
}

// Phase is the coarse session state.
type Phase string

const (
	PhaseInProgress   Phase = "in_progress"
	PhaseReadyToReset Phase = "ready_to_reset"
)

// Phase derives the session phase from the tally.
func (s State) Phase() Phase {
	if s.Played() == MaxRounds {
		return PhaseReadyToReset
	}
	return PhaseInProgress
}

// RoundResult is produced by Session.ChooseMove.
type RoundResult struct {
	PlayerMove   Move    `json:"playerMove"`
	OpponentMove Move    `json:"opponentMove"`
	Outcome      Outcome `json:"outcome"`
	State        State   `json:"state"`
	Round        int     `json:"round"`      // index of the round just played
	FinalRound   bool    `json:"finalRound"` // true when this was round 10
	Title        string  `json:"title"`
	Message      string  `json:"message"`
	Button       string  `json:"button"`
}
