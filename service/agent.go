package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/tateti-rl/tateti/game"
	"github.com/tateti-rl/tateti/game/ttt"
	"github.com/tateti-rl/tateti/protocol"
	"github.com/tateti-rl/tateti/transport"
)

// DefaultAgentInterval is the pause between two iterations of the agent loop.
const DefaultAgentInterval = 500 * time.Millisecond

// Player decides moves. available is never empty.
type Player interface {
	Play(cells []game.Colour, available []game.Coord) (game.Coord, error)
}

// Agent plays one side of the remote board on behalf of a Player.
type Agent struct {
	player   Player
	colour   game.Player
	bus      transport.Bus
	inbox    *transport.Mailbox
	topic    string
	interval time.Duration
	logger   zerolog.Logger
}

// NewAgent listens to the environment on envTopic and answers on topic as colour.
func NewAgent(ctx context.Context, player Player, colour game.Player, bus transport.Bus, envTopic, topic string, interval time.Duration, logger zerolog.Logger) (*Agent, error) {
	if !colour.Valid() {
		return nil, errors.Wrapf(game.ErrConfiguration, "agent cannot play %v", colour)
	}
	if interval <= 0 {
		interval = DefaultAgentInterval
	}
	inbox, err := bus.Subscribe(ctx, envTopic)
	if err != nil {
		return nil, errors.WithMessage(err, "agent cannot subscribe")
	}
	return &Agent{
		player:   player,
		colour:   colour,
		bus:      bus,
		inbox:    inbox,
		topic:    topic,
		interval: interval,
		logger:   logger.With().Str("component", "agent").Str("sym", colour.Sym()).Logger(),
	}, nil
}

// Step answers at most one snapshot. It reports whether a move was published.
func (a *Agent) Step(ctx context.Context) (bool, error) {
	env, ok := a.inbox.Poll()
	if !ok {
		return false, nil
	}
	m, err := protocol.Decode(env.Payload)
	if err != nil {
		a.logger.Debug().Err(err).Msg("discarded")
		return false, nil
	}
	if !protocol.Addressed(m, a.colour.Sym()) || m.IsOver {
		return false, nil
	}

	cells, err := ttt.Deserialize(m.EnvStr)
	if err != nil {
		return false, nil
	}
	available, _ := ttt.EmptyCellsFromToken(m.EnvStr)
	if len(available) == 0 {
		return false, nil
	}

	c, err := a.player.Play(cells, available)
	if err != nil {
		return false, errors.WithMessagef(err, "no move for %q", m.EnvStr)
	}
	p, err := protocol.Encode(protocol.Reply(m, c, a.colour.Sym()))
	if err != nil {
		return false, err
	}
	if err = a.bus.Publish(ctx, a.topic, p); err != nil {
		return false, err
	}
	a.logger.Debug().Str("env_str", m.EnvStr).Int("row", c.Row).Int("col", c.Col).Msg("moved")
	return true, nil
}

// Run steps until ctx is done.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info().Str("topic", a.topic).Msg("starting")
	tick := time.NewTicker(a.interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
		}
		if _, err := a.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (a *Agent) Close() error { return a.bus.Close() }
