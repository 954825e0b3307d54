// Package dqn holds the value models behind the learning agent: a small gorgonia Q-network and a lookup table.
package dqn

import (
	"io"

	"github.com/pkg/errors"
	"github.com/tateti-rl/tateti/game"
)

// Model estimates one value per action for an encoded state, and can be fitted toward target values.
type Model interface {
	Predict(state []float32) ([]float32, error)
	Fit(state, target []float32) error
	Conf() Config

	GobEncode() ([]byte, error)
	GobDecode([]byte) error
	io.Closer
}

// New builds and initializes the model described by conf.
func New(conf Config) (Model, error) {
	if !conf.IsValid() {
		return nil, errors.Wrapf(game.ErrConfiguration, "invalid value model config %+v", conf)
	}
	switch conf.Kind {
	case MLP:
		d := NewNet(conf)
		if err := d.Init(); err != nil {
			return nil, err
		}
		return d, nil
	case Table:
		return NewLookup(conf), nil
	}
	return nil, errors.Wrapf(game.ErrConfiguration, "unknown value model kind %q", conf.Kind)
}

// Decode rebuilds a model from the output of its GobEncode.
func Decode(conf Config, p []byte) (Model, error) {
	var m Model
	switch conf.Kind {
	case MLP:
		m = NewNet(conf)
	case Table:
		m = NewLookup(conf)
	default:
		return nil, errors.Wrapf(game.ErrSerialization, "unknown value model kind %q", conf.Kind)
	}
	if err := m.GobDecode(p); err != nil {
		return nil, errors.Wrap(game.ErrSerialization, err.Error())
	}
	return m, nil
}

func checkWidth(what string, v []float32, want int) error {
	if len(v) != want {
		return errors.Wrapf(game.ErrInvariant, "%s has width %d, expected %d", what, len(v), want)
	}
	return nil
}
