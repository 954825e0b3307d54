package tateti

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/tateti-rl/tateti/game"
	"github.com/tateti-rl/tateti/game/ttt"
	"github.com/tateti-rl/tateti/replay"
	"golang.org/x/exp/rand"
)

// Arena is where two agents play each other on one board.
type Arena struct {
	r     *rand.Rand
	board *ttt.Board
	A, B  *Agent

	// state
	currentPlayer *Agent
	logger        zerolog.Logger

	// only relevant to training
	name       string
	maxSteps   int
	epoch      int // training epoch
	gameNumber int // which game is this in
}

// NewArena makes an arena. The seed decides which agent gets which mark in each game.
func NewArena(board *ttt.Board, a, b *Agent, name string, maxSteps int, seed uint64, logger zerolog.Logger) *Arena {
	if name == "" {
		name = "UNKNOWN GAME"
	}
	if maxSteps <= 0 {
		maxSteps = 4 * ttt.Cells
	}
	src := &rand.PCGSource{}
	src.Seed(seed)
	return &Arena{
		r:        rand.New(src),
		board:    board,
		A:        a,
		B:        b,
		name:     name,
		maxSteps: maxSteps,
		logger:   logger.With().Str("component", "arena").Logger(),
	}
}

// Play plays one game from the current board and returns the winner. If it is a draw, or the step cap is hit
// first, the returned player is NoPlayer.
//
// With learn set, agents explore and every move is fed back to the agent that made it.
func (a *Arena) Play(learn bool, enc OutputEncoder) (winner game.Player, err error) {
	if a.r.Intn(2) == 0 {
		a.A.Player = game.PlayerX
		a.B.Player = game.PlayerO
	} else {
		a.A.Player = game.PlayerO
		a.B.Player = game.PlayerX
	}
	a.currentPlayer = a.agentOf(a.board.Turn())

	var ended bool
	var steps int
	for ended, winner = a.board.Ended(); !ended; ended, winner = a.board.Ended() {
		if steps >= a.maxSteps {
			a.logger.Warn().Int("steps", steps).Msg("step cap reached, abandoning game")
			return game.NoPlayer, nil
		}
		steps++

		cur := a.currentPlayer
		state := a.board.Cells()
		best, err := cur.Act(state, Singles(a.board.EmptyCells()), learn)
		if err != nil {
			return game.NoPlayer, errors.WithMessagef(err, "agent %v failed to act", cur.name)
		}
		next, reward, over, turn := a.board.TakeAction(cur.Player, best.Coord(ttt.Side))
		a.logger.Debug().Str("player", cur.Player.Sym()).Int32("move", int32(best)).Float32("reward", reward).Msg("move")

		if learn {
			t := replay.Transition{State: state, Action: best, Reward: reward, NextState: next, Terminal: over}
			if err = cur.Update(t); err != nil {
				return game.NoPlayer, errors.WithMessagef(err, "agent %v failed to learn", cur.name)
			}
		}
		if enc != nil {
			if err = enc.Encode(a); err != nil {
				return game.NoPlayer, err
			}
		}
		a.currentPlayer = a.agentOf(turn)
	}

	a.A.Record(winner)
	a.B.Record(winner)
	var winningAgent string
	switch winner {
	case a.A.Player:
		winningAgent = a.A.name
	case a.B.Player:
		winningAgent = a.B.name
	}
	a.logger.Debug().Str("winner", winner.Sym()).Str("agent", winningAgent).Int("steps", steps).Msg("game over")
	return winner, nil
}

func (a *Arena) agentOf(p game.Player) *Agent {
	if a.A.Player == p {
		return a.A
	}
	return a.B
}

func (a *Arena) Epoch() int                 { return a.epoch }
func (a *Arena) GameNumber() int            { return a.gameNumber }
func (a *Arena) Name() string               { return a.name }
func (a *Arena) Cells() []game.Colour       { return a.board.Cells() }
func (a *Arena) Ended() (bool, game.Player) { return a.board.Ended() }
func (a *Arena) Board() *ttt.Board          { return a.board }

// Close releases both agents.
func (a *Arena) Close() error {
	var allErrs error
	for _, ag := range []*Agent{a.A, a.B} {
		if err := ag.Close(); err != nil {
			allErrs = multierror.Append(allErrs, err)
		}
	}
	return allErrs
}
