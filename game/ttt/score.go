package ttt

import (
	"fmt"

	"github.com/tateti-rl/tateti/game"
)

// Score is the ledger of finished games.
type Score struct {
	X, O, Draw int
}

func (s *Score) record(winner game.Player) {
	switch winner {
	case game.PlayerX:
		s.X++
	case game.PlayerO:
		s.O++
	default:
		s.Draw++
	}
}

// Of returns the count for an outcome. NoPlayer counts draws.
func (s Score) Of(outcome game.Outcome) int {
	switch outcome {
	case game.PlayerX:
		return s.X
	case game.PlayerO:
		return s.O
	}
	return s.Draw
}

func (s Score) Games() int { return s.X + s.O + s.Draw }

// Map keys the ledger by glyph, with the empty glyph standing for draws.
func (s Score) Map() map[string]int {
	return map[string]int{
		game.PlayerX.Sym():      s.X,
		game.PlayerO.Sym():      s.O,
		string(game.EmptyGlyph): s.Draw,
	}
}

func (s Score) String() string { return fmt.Sprintf("x: %d, o: %d, draw: %d", s.X, s.O, s.Draw) }
