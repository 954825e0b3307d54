package ttt

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/pkg/errors"
	"github.com/tateti-rl/tateti/game"
	"golang.org/x/exp/rand"
)

// Side is the length of a side of the board.
const Side = 3

// Cells is the number of cells on the board. It is also the size of the action space.
const Cells = Side * Side

// IllegalMoveReward is the reward handed out by TakeAction for a move that could not be made.
const IllegalMoveReward float32 = -1.0

// Board is a tic-tac-toe game: a Side×Side grid, whose turn it is, and whether someone has won.
//
// A Board is not safe for concurrent use. It belongs to whichever loop drives the game.
type Board struct {
	cells []game.Colour

	turn    game.Player
	ended   bool
	winner  game.Player
	history []game.PlayerMove

	score      Score
	reward     RewardFunc
	rewardName string

	r *rand.Rand
}

// New creates a board using the named reward function. The seed drives the choice of the starting player.
func New(reward string, seed uint64) (*Board, error) {
	fn, err := RewardByName(reward)
	if err != nil {
		return nil, err
	}
	src := &rand.PCGSource{}
	src.Seed(seed)
	b := &Board{
		cells:      make([]game.Colour, Cells),
		history:    make([]game.PlayerMove, 0, Cells),
		reward:     fn,
		rewardName: reward,
		r:          rand.New(src),
	}
	b.turn = b.drawStarter()
	return b, nil
}

// TicTacToe creates a board with the standard reward.
func TicTacToe(seed uint64) *Board {
	b, err := New(Standard, seed)
	if err != nil {
		panic(err) // the standard reward is always registered
	}
	return b
}

func (b *Board) Format(s fmt.State, c rune) {
	for i, c := range b.cells {
		if i%Side == 0 {
			fmt.Fprint(s, "⎢ ")
		}
		fmt.Fprintf(s, "%s ", c)
		if (i+1)%Side == 0 && i != 0 {
			fmt.Fprint(s, "⎥\n")
		}
	}
}

// Cells returns a copy of the cell contents in row-major order.
func (b *Board) Cells() []game.Colour {
	retVal := make([]game.Colour, len(b.cells))
	copy(retVal, b.cells)
	return retVal
}

func (b *Board) Turn() game.Player { return b.turn }

// SetTurn forces the next player to move.
func (b *Board) SetTurn(p game.Player) { b.turn = p }

func (b *Board) Ended() (ended bool, winner game.Player) { return b.ended, b.winner }

func (b *Board) History() []game.PlayerMove {
	retVal := make([]game.PlayerMove, len(b.history))
	copy(retVal, b.history)
	return retVal
}

func (b *Board) MoveNumber() int { return len(b.history) }

func (b *Board) Score() Score { return b.score }

// RewardName is the registry name of the reward function in use.
func (b *Board) RewardName() string { return b.rewardName }

func (b *Board) Hash() uint32 {
	h := fnv.New32a()
	fmt.Fprint(h, b.Serialize())
	return h.Sum32()
}

// EmptyCells lists the free positions in row-major order.
func (b *Board) EmptyCells() []game.Coord { return emptyCells(b.cells) }

func emptyCells(cells []game.Colour) []game.Coord {
	var retVal []game.Coord
	for i, c := range cells {
		if c == game.None {
			retVal = append(retVal, game.Single(i).Coord(Side))
		}
	}
	return retVal
}

func (b *Board) check(m game.PlayerMove, c game.Coord) error {
	switch {
	case b.ended:
		return game.IllegalMove(m, "game has ended")
	case !m.Player.Valid():
		return game.IllegalMove(m, "unknown player")
	case m.Player != b.turn:
		return game.IllegalMove(m, fmt.Sprintf("it is %v's turn", b.turn))
	case !c.In(Side):
		return game.IllegalMove(m, fmt.Sprintf("%v is out of the board", c))
	case b.cells[int(m.Single)] != game.None:
		return game.IllegalMove(m, "cell is occupied")
	}
	return nil
}

// Move places p's mark on c. It fails with an error matching game.ErrIllegalMove if c is out of bounds or occupied,
// if it is not p's turn, or if the game is over. On success the turn flips and termination is re-evaluated.
func (b *Board) Move(p game.Player, c game.Coord) error {
	m := game.PlayerMove{Player: p, Single: c.Single(Side)}
	if err := b.check(m, c); err != nil {
		return err
	}
	b.cells[int(m.Single)] = game.Colour(p)
	b.history = append(b.history, m)
	b.CheckTermination()
	b.turn = p.Opponent()
	return nil
}

// TakeAction is Move for learners: an illegal move is reported as IllegalMoveReward and leaves the board as it was,
// turn included. It returns the cells after the action, the reward for p, whether the game is over,
// and who moves next.
func (b *Board) TakeAction(p game.Player, c game.Coord) (cells []game.Colour, reward float32, isOver bool, next game.Player) {
	if err := b.Move(p, c); err != nil {
		return b.Cells(), IllegalMoveReward, b.ended, b.turn
	}
	return b.Cells(), b.reward(b, p), b.ended, b.turn
}

// CheckTermination scans rows, columns and both diagonals for a complete line. A full board without a line is a draw.
// Calling it again without an intervening move yields the same answer, and the score ledger only counts the
// transition into the ended state.
func (b *Board) CheckTermination() (ended bool, winner game.Player) {
	if w := b.lineOwner(); w != game.NoPlayer {
		b.finish(w)
		return b.ended, b.winner
	}
	for _, c := range b.cells {
		if c == game.None {
			b.ended = false
			b.winner = game.NoPlayer
			return b.ended, b.winner
		}
	}
	b.finish(game.NoPlayer)
	return b.ended, b.winner
}

func (b *Board) finish(winner game.Player) {
	if !b.ended {
		b.score.record(winner)
	}
	b.ended = true
	b.winner = winner
}

// lineOwner returns the player that owns a complete line, looking at rows, then columns, then diagonals.
func (b *Board) lineOwner() game.Player {
	full := func(sum int) game.Player {
		switch sum {
		case Side * int(game.PlayerX):
			return game.PlayerX
		case Side * int(game.PlayerO):
			return game.PlayerO
		}
		return game.NoPlayer
	}
	for i := 0; i < Side; i++ {
		var sum int
		for j := 0; j < Side; j++ {
			sum += int(b.cells[i*Side+j])
		}
		if p := full(sum); p != game.NoPlayer {
			return p
		}
	}
	for j := 0; j < Side; j++ {
		var sum int
		for i := 0; i < Side; i++ {
			sum += int(b.cells[i*Side+j])
		}
		if p := full(sum); p != game.NoPlayer {
			return p
		}
	}
	var diag, anti int
	for i := 0; i < Side; i++ {
		diag += int(b.cells[i*Side+i])
		anti += int(b.cells[i*Side+Side-1-i])
	}
	if p := full(diag); p != game.NoPlayer {
		return p
	}
	return full(anti)
}

// Reset clears the game and draws a new starting player. The score ledger is kept.
func (b *Board) Reset() {
	for i := range b.cells {
		b.cells[i] = game.None
	}
	b.history = b.history[:0]
	b.ended = false
	b.winner = game.NoPlayer
	b.turn = b.drawStarter()
}

// ResetScore clears the score ledger. It is the only way the ledger goes back to zero.
func (b *Board) ResetScore() { b.score = Score{} }

func (b *Board) drawStarter() game.Player {
	if b.r.Intn(2) == 0 {
		return game.PlayerX
	}
	return game.PlayerO
}

// Serialize returns the cell contents as a fixed length string of glyphs. This is the synchronization token.
func (b *Board) Serialize() string { return Serialize(b.cells) }

// Serialize writes any set of cells as glyphs.
func Serialize(cells []game.Colour) string {
	var buf strings.Builder
	buf.Grow(len(cells))
	for _, c := range cells {
		buf.WriteRune(c.Glyph())
	}
	return buf.String()
}

// Deserialize parses a token produced by Serialize.
func Deserialize(token string) ([]game.Colour, error) {
	if len(token) != Cells {
		return nil, errors.Wrapf(game.ErrSerialization, "token %q has length %d, expected %d", token, len(token), Cells)
	}
	retVal := make([]game.Colour, Cells)
	for i, r := range token {
		c, ok := game.ColourOf(r)
		if !ok {
			return nil, errors.Wrapf(game.ErrSerialization, "token %q has unknown glyph %q", token, r)
		}
		retVal[i] = c
	}
	return retVal, nil
}

// EmptyCellsFromToken lists the free positions of a serialized board.
func EmptyCellsFromToken(token string) ([]game.Coord, error) {
	cells, err := Deserialize(token)
	if err != nil {
		return nil, err
	}
	return emptyCells(cells), nil
}

// Load replaces the cells with the contents of a token and re-evaluates termination.
// The turn is left alone because tokens do not carry it.
func (b *Board) Load(token string) error {
	cells, err := Deserialize(token)
	if err != nil {
		return err
	}
	copy(b.cells, cells)
	b.history = b.history[:0]
	for i, c := range cells {
		if c != game.None {
			b.history = append(b.history, game.PlayerMove{Player: game.Player(c), Single: game.Single(i)})
		}
	}
	score := b.score
	b.ended = false
	b.CheckTermination()
	b.score = score
	return nil
}

// Eq compares cell contents.
func (b *Board) Eq(other *Board) bool {
	if len(b.cells) != len(other.cells) {
		return false
	}
	for i := range b.cells {
		if b.cells[i] != other.cells[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy. The copy gets its own RNG, seeded from this one.
func (b *Board) Clone() *Board {
	src := &rand.PCGSource{}
	src.Seed(b.r.Uint64())
	retVal := &Board{
		cells:      b.Cells(),
		turn:       b.turn,
		ended:      b.ended,
		winner:     b.winner,
		history:    b.History(),
		score:      b.score,
		reward:     b.reward,
		rewardName: b.rewardName,
		r:          rand.New(src),
	}
	return retVal
}
