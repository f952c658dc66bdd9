// internal/game/engine.go
//
// Rule engine for rock/paper/scissors.
// Responsibilities:
//   - Decide Win/Lose/Draw for a (player, opponent) pair.
//   - Expose the cyclic dominance relation (Beats / LosesTo).
//
// Everything here is pure; session bookkeeping lives in session.go.
package game

// beats maps each move to the single move it defeats.
var beats = [...]Move{
	Paper:    Rock,
	Rock:     Scissors,
	Scissors: Paper,
}

// Beats returns the move m defeats.
func (m Move) Beats() Move { return beats[m] }

// LosesTo returns the move that defeats m.
func (m Move) LosesTo() Move { return beats[beats[m]] }

// Evaluate compares two moves from the player's perspective.
// Both moves must be valid; the result for anything else is Draw.
func Evaluate(player, opponent Move) Outcome {
	if !player.Valid() || !opponent.Valid() || player == opponent {
		return Draw
	}
	if beats[player] == opponent {
		return Win
	}
	return Lose
}
