// Package protocol keeps an environment and its agents in step when all they share is a message channel.
//
// The environment is the authority. Every snapshot it emits carries a token naming the board it describes,
// and a move is only applied when it echoes the token of the live board. Agents only answer snapshots
// addressed to their own mark. Anything else is stale and dropped without fuss.
package protocol

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/tateti-rl/tateti/game"
	"github.com/tateti-rl/tateti/game/ttt"
)

// Message is the single shape used in both directions. Snapshots from the environment fill State, Reward,
// IsOver and Turn. Replies from agents fill Action and Sym. Both carry the token.
type Message struct {
	State  []float32 `json:"state,omitempty"`
	Reward float32   `json:"reward"`
	IsOver bool      `json:"is_over"`
	Turn   string    `json:"turn,omitempty"`
	EnvStr string    `json:"env_str"`
	Action *[2]int   `json:"action,omitempty"` // row, col
	Sym    string    `json:"sym,omitempty"`

	Session string `json:"session,omitempty"`
	Epoch   uint64 `json:"epoch,omitempty"`
}

// Encode marshals the message for the wire.
func Encode(m Message) ([]byte, error) {
	p, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(game.ErrSerialization, err.Error())
	}
	return p, nil
}

// Decode unmarshals a message and checks that its token is a well formed board.
func Decode(p []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(p, &m); err != nil {
		return Message{}, errors.Wrap(game.ErrSerialization, err.Error())
	}
	if _, err := ttt.Deserialize(m.EnvStr); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Coord returns the action of a reply.
func (m Message) Coord() (game.Coord, bool) {
	if m.Action == nil {
		return game.Coord{}, false
	}
	return game.Coord{Row: m.Action[0], Col: m.Action[1]}, true
}

// Token is what a message claims about the board it refers to.
func (m Message) Token() Token {
	return Token{Session: m.Session, Epoch: m.Epoch, Board: m.EnvStr}
}

// Token identifies one board of one game of one environment run.
//
// Board alone cannot tell a stale move from one made on an identical board of a later game, which happens
// every time the board is reset. Session and Epoch tell them apart.
type Token struct {
	Session string // set once per environment run
	Epoch   uint64 // incremented on every board reset, starting at 1
	Board   string // the serialized board
}

// Admits reports whether a message carrying claim may act on the board this token describes.
// The boards must be equal. Session and epoch are compared only when the claim carries them,
// so peers that only echo env_str still work.
func (t Token) Admits(claim Token) bool {
	if claim.Board != t.Board {
		return false
	}
	if claim.Session != "" && claim.Session != t.Session {
		return false
	}
	if claim.Epoch != 0 && claim.Epoch != t.Epoch {
		return false
	}
	return true
}

// Addressed reports whether a snapshot asks the player with the given mark to move.
func Addressed(m Message, sym string) bool { return m.Turn == sym }

// Reply builds the answer of player sym to a snapshot, echoing its token.
func Reply(to Message, action game.Coord, sym string) Message {
	return Message{
		EnvStr:  to.EnvStr,
		Session: to.Session,
		Epoch:   to.Epoch,
		Action:  &[2]int{action.Row, action.Col},
		Sym:     sym,
	}
}
