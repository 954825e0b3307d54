package tateti

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/tateti-rl/tateti/dqn"
	"github.com/tateti-rl/tateti/game"
	"github.com/tateti-rl/tateti/phi"
	"github.com/tateti-rl/tateti/replay"
	"github.com/tateti-rl/tateti/strategy"
	"golang.org/x/exp/rand"
)

// SnapshotVersion is the layout written by Save. Load refuses any other.
const SnapshotVersion = 1

// Snapshot is everything an Agent is made of, in a form that gob can carry.
type Snapshot struct {
	Version int
	Name    string
	Player  game.Player

	Phi      phi.Config
	Strategy strategy.State

	Capacity int
	Memory   []replay.Transition

	Model  dqn.Config
	Params []byte

	Gamma     float32
	BatchSize int
	RNG       []byte

	Wins, Loss, Draw float32
}

// Snapshot captures the agent. Restoring it yields an agent that behaves identically given identical inputs.
func (a *Agent) Snapshot() (Snapshot, error) {
	params, err := a.Model.GobEncode()
	if err != nil {
		return Snapshot{}, errors.Wrap(game.ErrSerialization, err.Error())
	}
	rng, err := a.src.MarshalBinary()
	if err != nil {
		return Snapshot{}, errors.Wrap(game.ErrSerialization, err.Error())
	}
	return Snapshot{
		Version:   SnapshotVersion,
		Name:      a.name,
		Player:    a.Player,
		Phi:       a.Enc.Config(),
		Strategy:  a.Strategy.State(),
		Capacity:  a.Memory.Cap(),
		Memory:    a.Memory.All(),
		Model:     a.Model.Conf(),
		Params:    params,
		Gamma:     a.Gamma,
		BatchSize: a.BatchSize,
		RNG:       rng,
		Wins:      a.Wins,
		Loss:      a.Loss,
		Draw:      a.Draw,
	}, nil
}

// Restore rebuilds an agent from a snapshot.
func Restore(s Snapshot) (*Agent, error) {
	if s.Version != SnapshotVersion {
		return nil, errors.Wrapf(game.ErrSerialization, "snapshot version %d, expected %d", s.Version, SnapshotVersion)
	}
	if s.Capacity < 1 || len(s.Memory) > s.Capacity {
		return nil, errors.Wrapf(game.ErrSerialization, "snapshot holds %d transitions for a capacity of %d", len(s.Memory), s.Capacity)
	}
	enc, err := phi.New(s.Phi)
	if err != nil {
		return nil, errors.Wrap(game.ErrSerialization, err.Error())
	}
	strat, err := strategy.Restore(s.Strategy)
	if err != nil {
		return nil, errors.Wrap(game.ErrSerialization, err.Error())
	}
	model, err := dqn.Decode(s.Model, s.Params)
	if err != nil {
		return nil, err
	}
	src := &rand.PCGSource{}
	if err = src.UnmarshalBinary(s.RNG); err != nil {
		return nil, errors.Wrap(game.ErrSerialization, err.Error())
	}

	mem := replay.New(s.Capacity)
	for _, t := range s.Memory {
		mem.Remember(t)
	}
	return &Agent{
		Enc:       enc,
		Strategy:  strat,
		Memory:    mem,
		Model:     model,
		Player:    s.Player,
		Gamma:     s.Gamma,
		BatchSize: s.BatchSize,
		Wins:      s.Wins,
		Loss:      s.Loss,
		Draw:      s.Draw,
		name:      s.Name,
		src:       src,
		r:         rand.New(src),
	}, nil
}

// Save writes a gob encoded snapshot of the agent.
func (a *Agent) Save(w io.Writer) error {
	s, err := a.Snapshot()
	if err != nil {
		return err
	}
	if err = gob.NewEncoder(w).Encode(s); err != nil {
		return errors.Wrap(game.ErrSerialization, err.Error())
	}
	return nil
}

// Load reads an agent written by Save.
func Load(r io.Reader) (*Agent, error) {
	var s Snapshot
	if err := gob.NewDecoder(r).Decode(&s); err != nil {
		return nil, errors.Wrap(game.ErrSerialization, err.Error())
	}
	return Restore(s)
}

// SaveFile saves the agent into filename.
func (a *Agent) SaveFile(filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(game.ErrSerialization, err.Error())
	}
	if err = a.Save(f); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return errors.Wrap(game.ErrSerialization, err.Error())
	}
	return nil
}

// LoadFile loads an agent from filename.
func LoadFile(filename string) (*Agent, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(game.ErrSerialization, err.Error())
	}
	defer f.Close()
	return Load(f)
}
