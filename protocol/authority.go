package protocol

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/tateti-rl/tateti/game"
	"github.com/tateti-rl/tateti/game/ttt"
	"github.com/tateti-rl/tateti/phi"
)

// Phase is where the authority stands in the current game.
type Phase int

const (
	// AwaitingMove: the last snapshot names the player to move and the game is on.
	AwaitingMove Phase = iota
	// Resolved: the game is over and waits for ResetIfOver.
	Resolved
)

func (p Phase) String() string {
	switch p {
	case AwaitingMove:
		return "AwaitingMove"
	case Resolved:
		return "Resolved"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Authority is the environment side of the protocol. It owns the board and decides which moves apply.
// It is driven by a single loop and does no locking.
type Authority struct {
	board  *ttt.Board
	enc    phi.Encoder
	topics map[string]game.Player

	session string
	epoch   uint64
	phase   Phase
	last    Message

	logger zerolog.Logger
}

// NewAuthority sets up an authority over board. topics maps the topic each player publishes on to that player.
// The encoder shapes the state field of snapshots.
func NewAuthority(board *ttt.Board, enc phi.Encoder, topics map[string]game.Player, logger zerolog.Logger) (*Authority, error) {
	seen := make(map[game.Player]bool)
	for topic, p := range topics {
		if !p.Valid() {
			return nil, errors.Wrapf(game.ErrConfiguration, "topic %q maps to no player", topic)
		}
		if seen[p] {
			return nil, errors.Wrapf(game.ErrConfiguration, "player %v has more than one topic", p)
		}
		seen[p] = true
	}
	if len(seen) != 2 {
		return nil, errors.Wrapf(game.ErrConfiguration, "need one topic per player, got %d", len(topics))
	}
	return &Authority{
		board:   board,
		enc:     enc,
		topics:  topics,
		session: uuid.NewString(),
		logger:  logger.With().Str("component", "authority").Logger(),
	}, nil
}

// Start begins the first game and returns its opening snapshot.
func (a *Authority) Start() Message {
	a.epoch = 1
	a.phase = AwaitingMove
	return a.emit(0)
}

// Handle evaluates a move received on topic. It returns the snapshot to broadcast and true if the move was
// taken up, even when it turned out to be illegal, in which case the snapshot carries the penalty and the
// board is unchanged. Messages that are stale, misaddressed or malformed are dropped: Handle returns false
// and nothing changes.
func (a *Authority) Handle(topic string, m Message) (Message, bool) {
	player, ok := a.topics[topic]
	if !ok {
		return a.discard(topic, m, "unknown topic")
	}
	if m.Sym != "" {
		if p, ok := game.PlayerOf(m.Sym); !ok || p != player {
			return a.discard(topic, m, "sym does not match topic")
		}
	}
	if a.phase != AwaitingMove {
		return a.discard(topic, m, "game is over")
	}
	if !a.Token().Admits(m.Token()) {
		return a.discard(topic, m, "stale token")
	}
	if player != a.board.Turn() {
		return a.discard(topic, m, "not this player's turn")
	}
	c, ok := m.Coord()
	if !ok {
		return a.discard(topic, m, "no action")
	}

	_, reward, over, _ := a.board.TakeAction(player, c)
	if reward == ttt.IllegalMoveReward {
		a.logger.Info().Str("player", player.Sym()).Ints("action", m.Action[:]).Msg("illegal move")
	}
	if over {
		a.phase = Resolved
	}
	return a.emit(reward), true
}

func (a *Authority) discard(topic string, m Message, reason string) (Message, bool) {
	a.logger.Debug().Str("topic", topic).Str("env_str", m.EnvStr).Uint64("epoch", m.Epoch).Str("reason", reason).Msg("discarded")
	return Message{}, false
}

// Heartbeat returns the last snapshot again, for rebroadcasting.
func (a *Authority) Heartbeat() Message { return a.last }

// ResetIfOver starts a new game when the current one has ended. It returns the new opening snapshot and true,
// or the last snapshot and false when the game is still on.
func (a *Authority) ResetIfOver() (Message, bool) {
	if ended, _ := a.board.Ended(); !ended {
		return a.last, false
	}
	a.board.Reset()
	a.epoch++
	a.phase = AwaitingMove
	return a.emit(0), true
}

// Token describes the live board.
func (a *Authority) Token() Token {
	return Token{Session: a.session, Epoch: a.epoch, Board: a.board.Serialize()}
}

func (a *Authority) Phase() Phase      { return a.phase }
func (a *Authority) Session() string   { return a.session }
func (a *Authority) Board() *ttt.Board { return a.board }
func (a *Authority) Last() Message     { return a.last }

// Topic is the topic player p publishes on.
func (a *Authority) Topic(p game.Player) string {
	for topic, q := range a.topics {
		if q == p {
			return topic
		}
	}
	return ""
}

func (a *Authority) emit(reward float32) Message {
	ended, _ := a.board.Ended()
	tok := a.Token()
	a.last = Message{
		State:   a.enc.Encode(a.board.Cells()),
		Reward:  reward,
		IsOver:  ended,
		Turn:    a.board.Turn().Sym(),
		EnvStr:  tok.Board,
		Session: tok.Session,
		Epoch:   tok.Epoch,
	}
	return a.last
}
