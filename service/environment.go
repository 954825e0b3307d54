// Package service runs the environment and the players as separate processes that only talk through a bus.
//
// The environment publishes a snapshot of the board on its topic, and keeps republishing the last one as a
// heartbeat. Each player listens to that topic, answers the snapshots addressed to it on its own topic, and
// echoes the snapshot's token so that the environment can tell a current move from a stale one.
package service

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/tateti-rl/tateti"
	"github.com/tateti-rl/tateti/game"
	"github.com/tateti-rl/tateti/protocol"
	"github.com/tateti-rl/tateti/transport"
)

// DefaultEnvironmentInterval is the pause between two iterations of the environment loop.
const DefaultEnvironmentInterval = time.Second

// Environment serves one board to two remote players.
type Environment struct {
	auth     *protocol.Authority
	bus      transport.Bus
	inbox    *transport.Mailbox
	topic    string
	interval time.Duration
	logger   zerolog.Logger

	rec tateti.OutputEncoder // optional
}

// NewEnvironment subscribes to the topics of both players. Snapshots go out on topic.
// rec, if not nil, gets every board the environment publishes.
func NewEnvironment(ctx context.Context, auth *protocol.Authority, bus transport.Bus, topic string, interval time.Duration, rec tateti.OutputEncoder, logger zerolog.Logger) (*Environment, error) {
	if interval <= 0 {
		interval = DefaultEnvironmentInterval
	}
	inbox, err := bus.Subscribe(ctx, auth.Topic(game.PlayerX), auth.Topic(game.PlayerO))
	if err != nil {
		return nil, errors.WithMessage(err, "environment cannot subscribe")
	}
	return &Environment{
		auth:     auth,
		bus:      bus,
		inbox:    inbox,
		topic:    topic,
		interval: interval,
		logger:   logger.With().Str("component", "environment").Logger(),
		rec:      rec,
	}, nil
}

// Start publishes the opening snapshot of the first game.
func (e *Environment) Start(ctx context.Context) error {
	e.logger.Info().Str("session", e.auth.Session()).Str("topic", e.topic).Msg("starting")
	return e.emit(ctx, e.auth.Start())
}

// Step runs one iteration: it handles at most one move, then either starts the next game if this one is over
// or republishes the last snapshot.
func (e *Environment) Step(ctx context.Context) error {
	if env, ok := e.inbox.Poll(); ok {
		if err := e.handle(ctx, env); err != nil {
			return err
		}
	}

	board := e.auth.Board()
	e.logger.Debug().Strs("board", board.Lines()).Msg("status of board")

	if ended, winner := board.Ended(); ended {
		ev := e.logger.Info().Str("winner", winner.Sym())
		for sym, n := range board.Score().Map() {
			ev = ev.Int("score["+sym+"]", n)
		}
		ev.Msg("game over, restarting")
		opening, _ := e.auth.ResetIfOver()
		return e.emit(ctx, opening)
	}
	return e.publish(ctx, e.auth.Heartbeat())
}

func (e *Environment) handle(ctx context.Context, env transport.Envelope) error {
	m, err := protocol.Decode(env.Payload)
	if err != nil {
		e.logger.Debug().Err(err).Str("topic", env.Topic).Msg("discarded")
		return nil
	}
	out, ok := e.auth.Handle(env.Topic, m)
	if !ok {
		return nil
	}
	return e.emit(ctx, out)
}

// emit publishes a new snapshot and records the board
func (e *Environment) emit(ctx context.Context, m protocol.Message) error {
	if e.rec != nil {
		if err := e.rec.Encode(e); err != nil {
			return errors.WithMessage(err, "unable to record the board")
		}
	}
	return e.publish(ctx, m)
}

func (e *Environment) publish(ctx context.Context, m protocol.Message) error {
	p, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	return e.bus.Publish(ctx, e.topic, p)
}

// Run starts the first game and steps until ctx is done.
func (e *Environment) Run(ctx context.Context) error {
	if err := e.Start(ctx); err != nil {
		return err
	}
	tick := time.NewTicker(e.interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
		}
		if err := e.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// Close flushes the recording and closes the bus.
func (e *Environment) Close() error {
	var errs error
	if e.rec != nil {
		if err := e.rec.Flush(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := e.bus.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs
}

// the environment is its own game.MetaState

func (e *Environment) Name() string               { return "tic-tac-toe " + e.auth.Session() }
func (e *Environment) Epoch() int                 { return int(e.auth.Token().Epoch) }
func (e *Environment) Cells() []game.Colour       { return e.auth.Board().Cells() }
func (e *Environment) Ended() (bool, game.Player) { return e.auth.Board().Ended() }

// GameNumber counts from 1. A finished game is already in the ledger.
func (e *Environment) GameNumber() int {
	n := e.auth.Board().Score().Games()
	if ended, _ := e.Ended(); ended {
		return n
	}
	return n + 1
}
