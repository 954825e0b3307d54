// Package tateti trains agents to play tic-tac-toe by trial and error.
//
// An Agent is a small DQN: a state encoder (package phi), an exploration strategy (package strategy), a bounded
// replay memory (package replay) and a value model (package dqn). The Trainer pits two agents against each other
// in an Arena and lets both learn from every move they make.
package tateti

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/tateti-rl/tateti/game/ttt"
)

// Trainer is the entry point of self-play training.
type Trainer struct {
	*Arena
	Statistics

	logEvery int

	// io
	outEnc OutputEncoder
}

// NewTrainer creates two fresh agents from conf and sets them up to play on board. The seed drives everything
// random in the agents and the arena.
func NewTrainer(board *ttt.Board, conf Config, seed uint64, logger zerolog.Logger) (*Trainer, error) {
	a, err := NewAgent("A", conf, seed)
	if err != nil {
		return nil, errors.WithMessage(err, "unable to create agent A")
	}
	b, err := NewAgent("B", conf, seed+1)
	if err != nil {
		a.Close()
		return nil, errors.WithMessage(err, "unable to create agent B")
	}
	return NewTrainerFor(board, a, b, conf, seed, logger), nil
}

// NewTrainerFor trains existing agents, for instance ones loaded from snapshots.
func NewTrainerFor(board *ttt.Board, a, b *Agent, conf Config, seed uint64, logger zerolog.Logger) *Trainer {
	logEvery := conf.LogEvery
	if logEvery <= 0 {
		logEvery = 10
	}
	return &Trainer{
		Arena:      NewArena(board, a, b, conf.Name, conf.MaxSteps, seed+2, logger),
		Statistics: makeStatistics(),
		logEvery:   logEvery,
		outEnc:     conf.OutputEncoder,
	}
}

// Learn self-plays for episodes. Every logEvery episodes the board and the score ledger are logged
// and the agents' statistics are recorded.
func (t *Trainer) Learn(episodes int) error {
	for t.gameNumber = 0; t.gameNumber < episodes; t.gameNumber++ {
		winner, err := t.Play(true, t.outEnc)
		if err != nil {
			return errors.WithMessagef(err, "episode %d", t.gameNumber)
		}

		if t.gameNumber%t.logEvery == 0 {
			ev := t.logger.Info().Int("episode", t.gameNumber).Str("winner", winner.Sym())
			for sym, n := range t.board.Score().Map() {
				ev = ev.Int("score["+sym+"]", n)
			}
			ev.Float64("epsilon", t.A.Strategy.Epsilon()).Strs("board", t.board.Lines()).Msg("score board")
			t.update(t.A)
			t.update(t.B)
		}
		t.board.Reset()
	}
	t.epoch++
	if t.outEnc != nil {
		return t.outEnc.Flush()
	}
	return nil
}

// Evaluate plays games without exploring or learning, and returns the win rates of A and B over them.
func (t *Trainer) Evaluate(games int) (a, b float32, err error) {
	t.A.resetStats()
	t.B.resetStats()
	for i := 0; i < games; i++ {
		if _, err = t.Play(false, nil); err != nil {
			return 0, 0, err
		}
		t.board.Reset()
	}
	return t.A.WinRate(), t.B.WinRate(), nil
}

// Best returns the agent with the better win record.
func (t *Trainer) Best() *Agent {
	if t.B.WinRate() > t.A.WinRate() {
		return t.B
	}
	return t.A
}
