package tateti

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tateti-rl/tateti/dqn"
	"github.com/tateti-rl/tateti/game"
	"github.com/tateti-rl/tateti/game/ttt"
	"github.com/tateti-rl/tateti/phi"
	"github.com/tateti-rl/tateti/replay"
)

var (
	X = game.Cross
	O = game.Nought
	Z = game.None
)

func tableAgent(t *testing.T, seed uint64, batch int) *Agent {
	conf := TableConfig()
	conf.Memory = 50
	conf.BatchSize = batch
	a, err := NewAgent("table", conf, seed)
	require.NoError(t, err)
	return a
}

func empty() []game.Colour { return make([]game.Colour, ttt.Cells) }

func all() []game.Single {
	retVal := make([]game.Single, ttt.Cells)
	for i := range retVal {
		retVal[i] = game.Single(i)
	}
	return retVal
}

func TestAgent_ActExploitsAvailable(t *testing.T) {
	a := tableAgent(t, 1, 1)
	board := []game.Colour{
		X, Z, Z,
		Z, Z, Z,
		Z, Z, O,
	}
	s := a.Enc.Encode(board)
	target := []float32{9, 1, 2, 3, 8, 4, 5, 6, 9}
	for i := 0; i < 200; i++ {
		require.NoError(t, a.Model.Fit(s, target))
	}

	// Given the best cells are occupied
	// When the agent exploits
	// Then it picks the best of the free cells
	got, err := a.Act(board, []game.Single{1, 2, 3, 4, 5, 6, 7}, false)
	require.NoError(t, err)
	assert.Equal(t, game.Single(4), got)

	got, err = a.Act(board, []game.Single{1, 2}, false)
	require.NoError(t, err)
	assert.Equal(t, game.Single(2), got)
}

func TestAgent_ActExploresOnlyAmongAvailable(t *testing.T) {
	a := tableAgent(t, 2, 1)
	avail := []game.Single{0, 4, 8}
	seen := make(map[game.Single]bool)
	for i := 0; i < 500; i++ {
		a.Strategy.Update()
		got, err := a.Act(empty(), avail, true)
		require.NoError(t, err)
		require.Contains(t, avail, got)
		seen[got] = true
	}
	assert.Len(t, seen, len(avail))
}

func TestAgent_ActErrors(t *testing.T) {
	a := tableAgent(t, 3, 1)

	_, err := a.Act(empty(), nil, false)
	assert.True(t, errors.Is(err, game.ErrInvariant))

	_, err = a.Act(empty(), []game.Single{2, ttt.Cells}, false)
	assert.True(t, errors.Is(err, game.ErrInvariant))

	err = a.Update(replay.Transition{State: empty(), Action: -1, NextState: empty()})
	assert.True(t, errors.Is(err, game.ErrInvariant))
	assert.Equal(t, 0, a.Memory.Len())
}

func TestAgent_UninitializedModel(t *testing.T) {
	enc, err := phi.ByName(phi.ScaledName, ttt.Cells)
	require.NoError(t, err)
	a := tableAgent(t, 4, 1)
	a.Enc = enc
	a.Model = dqn.NewNet(dqn.MLPConf(ttt.Cells, ttt.Cells))

	_, err = a.Act(empty(), all(), false)
	assert.True(t, errors.Is(err, game.ErrConfiguration))

	a.Memory.Remember(replay.Transition{State: empty(), Action: 0, NextState: empty(), Terminal: true})
	assert.True(t, errors.Is(a.ExperienceReplay(), game.ErrConfiguration))
}

func TestAgent_UpdateReplaysOnceBatchIsFull(t *testing.T) {
	a := tableAgent(t, 5, 3)
	lookup := a.Model.(*dqn.Lookup)
	eps := a.Strategy.Epsilon()

	win := replay.Transition{State: empty(), Action: 4, Reward: 1, NextState: empty(), Terminal: true}
	require.NoError(t, a.Update(win))
	require.NoError(t, a.Update(win))
	assert.Equal(t, 0, lookup.Visited(), "no replay before a full batch")
	assert.Less(t, a.Strategy.Epsilon(), eps, "every update decays epsilon")

	require.NoError(t, a.Update(win))
	assert.Equal(t, 1, lookup.Visited())

	q, err := a.Values(empty())
	require.NoError(t, err)
	assert.Greater(t, q[4], float32(0))
	assert.Equal(t, float32(0), q[0])
}

func TestAgent_BootstrappedTarget(t *testing.T) {
	a := tableAgent(t, 6, 1)
	a.Gamma = 0.5
	next := []game.Colour{
		X, Z, Z,
		Z, Z, Z,
		Z, Z, Z,
	}
	nq := make([]float32, ttt.Cells)
	nq[7] = 2
	for i := 0; i < 300; i++ {
		require.NoError(t, a.Model.Fit(a.Enc.Encode(next), nq))
	}

	// the target of a non terminal step is r + γ·max Q(s')
	step := replay.Transition{State: empty(), Action: 0, Reward: 0.5, NextState: next}
	for i := 0; i < 300; i++ {
		a.Memory.Reset()
		require.NoError(t, a.Update(step))
	}
	q, err := a.Values(empty())
	require.NoError(t, err)
	assert.InDelta(t, 1.5, q[0], 1e-2)
}

func TestAgent_Record(t *testing.T) {
	a := tableAgent(t, 7, 1)
	a.Player = game.PlayerO
	a.Record(game.PlayerO)
	a.Record(game.PlayerX)
	a.Record(game.NoPlayer)
	a.Record(game.PlayerO)
	assert.Equal(t, float32(2), a.Wins)
	assert.Equal(t, float32(1), a.Loss)
	assert.Equal(t, float32(1), a.Draw)
	assert.Equal(t, float32(0.5), a.WinRate())

	a.resetStats()
	assert.Equal(t, float32(0), a.WinRate())
}

func TestConfig_Check(t *testing.T) {
	require.NoError(t, DefaultConfig().Check())
	require.NoError(t, TableConfig().Check())

	cases := map[string]func(*Config){
		"unknown phi":       func(c *Config) { c.Phi.Name = "fourier" },
		"degenerate scale":  func(c *Config) { c.Phi.Min = c.Phi.Max },
		"width mismatch":    func(c *Config) { c.Phi = phi.DefaultConf(phi.IntegerName, ttt.Cells) },
		"bad schedule":      func(c *Config) { c.Strategy.Decay = 0 },
		"no memory":         func(c *Config) { c.Memory = 0 },
		"batch over memory": func(c *Config) { c.BatchSize = c.Memory + 1 },
		"gamma":             func(c *Config) { c.Gamma = 1.5 },
		"actions":           func(c *Config) { c.Model.Actions = 4 },
	}
	for name, mod := range cases {
		t.Run(name, func(t *testing.T) {
			conf := DefaultConfig()
			mod(&conf)
			err := conf.Check()
			assert.True(t, errors.Is(err, game.ErrConfiguration), "%v", err)
			_, err = NewAgent("bad", conf, 1)
			assert.True(t, errors.Is(err, game.ErrConfiguration), "%v", err)
		})
	}

	conf := TableConfig()
	conf.Phi = phi.DefaultConf(phi.IdentityName, ttt.Cells)
	assert.True(t, errors.Is(conf.Check(), game.ErrConfiguration))
}
