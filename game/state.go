package game

import (
	"fmt"
)

// Colour is the content of a cell. The numeric values are the ones fed to the value models.
type Colour int32

const (
	Cross  Colour = -1
	None   Colour = 0
	Nought Colour = 1
)

// Glyphs used in the board serialization.
const (
	CrossGlyph  = 'x'
	NoughtGlyph = 'o'
	EmptyGlyph  = ' '
)

// Glyph returns the serialization glyph of the colour.
func (cl Colour) Glyph() rune {
	switch cl {
	case Cross:
		return CrossGlyph
	case Nought:
		return NoughtGlyph
	}
	return EmptyGlyph
}

// ColourOf is the inverse of Glyph.
func ColourOf(r rune) (Colour, bool) {
	switch r {
	case CrossGlyph:
		return Cross, true
	case NoughtGlyph:
		return Nought, true
	case EmptyGlyph:
		return None, true
	}
	return None, false
}

func (cl Colour) Format(s fmt.State, c rune) {
	switch c {
	case 'v': // used in debug
		switch cl {
		case None:
			fmt.Fprint(s, "None")
		case Cross:
			fmt.Fprint(s, "Cross")
		case Nought:
			fmt.Fprint(s, "Nought")
		}
	case 's': // used in board games
		switch cl {
		case None:
			fmt.Fprint(s, "·")
		default:
			fmt.Fprintf(s, "%c", cl.Glyph())
		}
	}
}

// Player represents a player. It's also a colour.
type Player Colour

const (
	PlayerX  = Player(Cross)
	PlayerO  = Player(Nought)
	NoPlayer = Player(None)
)

// Opponent returns the other player. NoPlayer has no opponent.
func (p Player) Opponent() Player { return -p }

// Valid reports whether p is one of the two players.
func (p Player) Valid() bool { return p == PlayerX || p == PlayerO }

// Sym returns the glyph of the player as a string, the way it travels on the wire.
func (p Player) Sym() string { return string(Colour(p).Glyph()) }

// PlayerOf parses a player glyph.
func PlayerOf(sym string) (Player, bool) {
	if len(sym) != 1 {
		return NoPlayer, false
	}
	c, ok := ColourOf(rune(sym[0]))
	if !ok || c == None {
		return NoPlayer, false
	}
	return Player(c), true
}

func (p Player) Format(s fmt.State, c rune) { Colour(p).Format(s, c) }

// PlayerMove is a tuple indicating the player and the move to be made.
type PlayerMove struct {
	Player
	Single
}

// Eq returns true if both are equal
func (p PlayerMove) Eq(other PlayerMove) bool {
	return p.Player == other.Player && p.Single == other.Single
}

func (p PlayerMove) Format(s fmt.State, c rune) { fmt.Fprintf(s, "%v@%d", p.Player, p.Single) }

// Coord represents a (row, col) coordinate. (0, 0) is the top left.
type Coord struct {
	Row, Col int
}

func (c Coord) Eq(other Coord) bool { return c.Row == other.Row && c.Col == other.Col }

// In reports whether the coordinate lies on a side×side board.
func (c Coord) In(side int) bool {
	return c.Row >= 0 && c.Row < side && c.Col >= 0 && c.Col < side
}

// Single returns the row-major index of c on a board of the given side.
func (c Coord) Single(side int) Single { return Single(c.Row*side + c.Col) }

// Single represents a coordinate as a single number, utilized in a rowmajor fashion.
//		- 0 represents the top left
//		- 2 represents the top right of a 3x3 board
//		- 3 represents (1, 0)
type Single int32

// Coord converts the index back to a coordinate on a board of the given side.
func (s Single) Coord(side int) Coord { return Coord{Row: int(s) / side, Col: int(s) % side} }

// Outcome is the result of a finished game: the winner, or NoPlayer for a draw.
type Outcome = Player

// MetaState is what output encoders get to see of a game being played.
type MetaState interface {
	Name() string // name of the game
	Epoch() int
	GameNumber() int
	Cells() []Colour
	Ended() (ended bool, winner Player)
}
