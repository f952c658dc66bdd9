package game

import (
	"errors"
	"testing"
)

// scripted returns the queued indices in order, then repeats the last one.
type scripted struct {
	picks []int
	n     int
}

func (s *scripted) IntN(n int) int {
	i := s.n
	if i >= len(s.picks) {
		i = len(s.picks) - 1
	}
	s.n++
	return s.picks[i] % n
}

func opponent(m Move) *scripted { return &scripted{picks: []int{int(m)}} }

func TestChooseMoveScenarios(t *testing.T) {
	cases := []struct {
		name             string
		player, opponent Move
		outcome          Outcome
		want             State
	}{
		{"paper beats rock", Paper, Rock, Win, State{Wins: 1, AwaitingAck: true}},
		{"rock loses to paper", Rock, Paper, Lose, State{Losses: 1, AwaitingAck: true}},
		{"scissors draw", Scissors, Scissors, Draw, State{Draws: 1, AwaitingAck: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSession(opponent(tc.opponent))
			res, err := s.ChooseMove(tc.player)
			if err != nil {
				t.Fatalf("ChooseMove: %v", err)
			}
			if res.OpponentMove != tc.opponent || res.Outcome != tc.outcome {
				t.Fatalf("got %s vs %s = %s", res.PlayerMove, res.OpponentMove, res.Outcome)
			}
			if res.State != tc.want || s.State() != tc.want {
				t.Fatalf("state = %+v; want %+v", res.State, tc.want)
			}
			if res.FinalRound || res.Round != 1 || res.Button != "Continue" {
				t.Fatalf("round 1 result: %+v", res)
			}
		})
	}
}

func TestChooseMoveText(t *testing.T) {
	s := NewSession(opponent(Rock))
	res, err := s.ChooseMove(Paper)
	if err != nil {
		t.Fatal(err)
	}
	if want := "You chose Paper and your opponent chose Rock, You Win"; res.Title != want {
		t.Fatalf("title = %q; want %q", res.Title, want)
	}
	if want := "Current score is 1 win, 0 lose, and 0 draw"; res.Message != want {
		t.Fatalf("message = %q; want %q", res.Message, want)
	}
}

func TestTallyAfterNRounds(t *testing.T) {
	src := &scripted{picks: []int{0, 1, 2, 1, 0, 2, 2, 1, 0, 1}}
	s := NewSession(src)
	for n := 1; n <= MaxRounds; n++ {
		if got := s.RoundIndex(); got != n {
			t.Fatalf("before round %d RoundIndex = %d", n, got)
		}
		res, err := s.ChooseMove(Moves()[n%3])
		if err != nil {
			t.Fatalf("round %d: %v", n, err)
		}
		if res.State.Played() != n {
			t.Fatalf("after %d rounds played = %d", n, res.State.Played())
		}
		if res.FinalRound != (n == MaxRounds) {
			t.Fatalf("round %d FinalRound = %v", n, res.FinalRound)
		}
		if res.Round != n || s.RoundIndex() != n {
			t.Fatalf("round %d reported as %d / %d", n, res.Round, s.RoundIndex())
		}
		if n < MaxRounds {
			if err := s.AcknowledgeRound(); err != nil {
				t.Fatalf("ack %d: %v", n, err)
			}
			if s.State().Played() != n {
				t.Fatalf("ack %d changed the tally: %+v", n, s.State())
			}
		}
	}
	if s.Phase() != PhaseReadyToReset {
		t.Fatalf("phase = %s; want ready_to_reset", s.Phase())
	}
	if err := s.AcknowledgeRound(); err != nil {
		t.Fatal(err)
	}
	if s.State() != (State{}) || s.RoundIndex() != 1 || s.Phase() != PhaseInProgress {
		t.Fatalf("after reset: %+v round=%d phase=%s", s.State(), s.RoundIndex(), s.Phase())
	}
}

func TestFinalRoundFromNine(t *testing.T) {
	for _, m := range Moves() {
		s, err := Restore(State{Wins: 4, Losses: 3, Draws: 2}, opponent(Rock))
		if err != nil {
			t.Fatal(err)
		}
		res, err := s.ChooseMove(m)
		if err != nil {
			t.Fatal(err)
		}
		if !res.FinalRound || res.State.Played() != MaxRounds || res.Button != "Play Again" {
			t.Fatalf("%s from 4/3/2: %+v", m, res)
		}
		if err := s.AcknowledgeRound(); err != nil {
			t.Fatal(err)
		}
		if s.State() != (State{}) {
			t.Fatalf("not reset: %+v", s.State())
		}
	}
}

func TestContractViolationsKeepState(t *testing.T) {
	s := NewSession(opponent(Scissors))
	if err := s.AcknowledgeRound(); !errors.Is(err, ErrNothingToAck) {
		t.Fatalf("ack on fresh session: %v", err)
	}
	if _, err := s.ChooseMove(Move(9)); !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("invalid move: %v", err)
	}
	if s.State() != (State{}) {
		t.Fatalf("state mutated: %+v", s.State())
	}

	if _, err := s.ChooseMove(Rock); err != nil {
		t.Fatal(err)
	}
	before := s.State()
	if _, err := s.ChooseMove(Rock); !errors.Is(err, ErrAwaitingAck) {
		t.Fatalf("second move without ack: %v", err)
	}
	if s.State() != before {
		t.Fatalf("state mutated: %+v != %+v", s.State(), before)
	}
}

func TestRestoreRejectsCorruptState(t *testing.T) {
	bad := []State{
		{Wins: -1},
		{Wins: 6, Losses: 5},
		{Wins: 5, Losses: 5},
	}
	for _, st := range bad {
		if _, err := Restore(st, opponent(Rock)); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("Restore(%+v) = %v; want ErrInvalidState", st, err)
		}
	}
	if _, err := Restore(State{Wins: 5, Losses: 5, AwaitingAck: true}, opponent(Rock)); err != nil {
		t.Fatalf("pending final round should restore: %v", err)
	}
}

func TestRandomSourceIsUniformish(t *testing.T) {
	src := NewRandomSource(42)
	var counts [3]int
	for i := 0; i < 3000; i++ {
		counts[src.IntN(3)]++
	}
	for i, c := range counts {
		if c < 800 || c > 1200 {
			t.Fatalf("index %d drawn %d times out of 3000", i, c)
		}
	}

	a, b := NewRandomSource(7), NewRandomSource(7)
	for i := 0; i < 20; i++ {
		if a.IntN(3) != b.IntN(3) {
			t.Fatalf("same seed diverged at draw %d", i)
		}
	}
}
