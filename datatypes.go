package tateti

import (
	"io"

	"github.com/pkg/errors"
	"github.com/tateti-rl/tateti/dqn"
	"github.com/tateti-rl/tateti/game"
	"github.com/tateti-rl/tateti/game/ttt"
	"github.com/tateti-rl/tateti/phi"
	"github.com/tateti-rl/tateti/strategy"
)

// Config describes a learning agent and how it is trained.
type Config struct {
	Name     string
	Phi      phi.Config
	Strategy strategy.Config
	Model    dqn.Config

	Memory    int     // capacity of the replay buffer
	BatchSize int     // transitions replayed per learning step
	Gamma     float32 // discount factor

	MaxSteps int // cap on the moves of a self-play episode
	LogEvery int // episodes between progress reports

	// extensions
	OutputEncoder OutputEncoder
}

// DefaultConfig is a scaled phi, an epsilon-greedy strategy and the 24-24 network.
func DefaultConfig() Config {
	strat, _ := strategy.DefaultConf(strategy.EpsilonGreedyName)
	return Config{
		Name:      "Tic-tac-toe",
		Phi:       phi.DefaultConf(phi.ScaledName, ttt.Cells),
		Strategy:  strat,
		Model:     dqn.MLPConf(ttt.Cells, ttt.Cells),
		Memory:    1000,
		BatchSize: 10,
		Gamma:     0.95,
		MaxSteps:  4 * ttt.Cells,
		LogEvery:  10,
	}
}

// TableConfig pairs the integer phi with a lookup table.
func TableConfig() Config {
	conf := DefaultConfig()
	conf.Phi = phi.DefaultConf(phi.IntegerName, ttt.Cells)
	conf.Model = dqn.TableConf(phi.Index{N: ttt.Cells}.States(), ttt.Cells)
	return conf
}

// Check validates the configuration. Every failure wraps game.ErrConfiguration.
func (conf Config) Check() error {
	enc, err := phi.New(conf.Phi)
	if err != nil {
		return err
	}
	if !conf.Strategy.IsValid() {
		return errors.Wrapf(game.ErrConfiguration, "invalid strategy schedule %+v", conf.Strategy)
	}
	if !conf.Model.IsValid() {
		return errors.Wrapf(game.ErrConfiguration, "invalid value model %+v", conf.Model)
	}
	switch conf.Model.Kind {
	case dqn.MLP:
		if conf.Model.Inputs != enc.Dims() {
			return errors.Wrapf(game.ErrConfiguration, "model takes %d inputs, phi %q produces %d", conf.Model.Inputs, conf.Phi.Name, enc.Dims())
		}
	case dqn.Table:
		idx, ok := enc.(phi.Index)
		if !ok {
			return errors.Wrapf(game.ErrConfiguration, "a lookup table needs the %q phi, got %q", phi.IntegerName, conf.Phi.Name)
		}
		if conf.Model.States < idx.States() {
			return errors.Wrapf(game.ErrConfiguration, "table holds %d states, phi produces %d", conf.Model.States, idx.States())
		}
	}
	if conf.Model.Actions != ttt.Cells {
		return errors.Wrapf(game.ErrConfiguration, "model has %d actions, the board has %d cells", conf.Model.Actions, ttt.Cells)
	}
	switch {
	case conf.Memory < 1:
		return errors.Wrapf(game.ErrConfiguration, "replay memory of %d", conf.Memory)
	case conf.BatchSize < 1 || conf.BatchSize > conf.Memory:
		return errors.Wrapf(game.ErrConfiguration, "batch size %d with a memory of %d", conf.BatchSize, conf.Memory)
	case conf.Gamma < 0 || conf.Gamma > 1:
		return errors.Wrapf(game.ErrConfiguration, "discount factor %v outside [0, 1]", conf.Gamma)
	}
	return nil
}

// ValueModel estimates the value of every action in an encoded state. See package dqn for the implementations.
type ValueModel interface {
	Predict(state []float32) ([]float32, error)
	Fit(state, target []float32) error
	Conf() dqn.Config

	GobEncode() ([]byte, error)
	GobDecode([]byte) error
	io.Closer
}

// OutputEncoder encodes the entire meta state as whatever.
//
// An example OutputEncoder is the GifEncoder. Another example would be a logger.
type OutputEncoder interface {
	Encode(ms game.MetaState) error
	Flush() error
}
