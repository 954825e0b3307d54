package strategy

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tateti-rl/tateti/game"
	"golang.org/x/exp/rand"
)

func strategies(t *testing.T, seed uint64) []Strategy {
	var retVal []Strategy
	for _, name := range Names() {
		s, err := ByName(name, seed)
		require.NoError(t, err)
		retVal = append(retVal, s)
	}
	return retVal
}

func TestSampleActionWithoutExplorationIsGreedy(t *testing.T) {
	values := []float32{0.1, -3, 0.7, 0.7, 0.2}
	for _, s := range strategies(t, 42) {
		for i := 0; i < 100; i++ {
			require.Equal(t, 2, s.SampleAction(values, false), s.Name())
		}
	}
}

func TestEpsilonDecay(t *testing.T) {
	for _, s := range strategies(t, 1) {
		conf, err := DefaultConf(s.Name())
		require.NoError(t, err)

		prev := s.Epsilon()
		assert.Equal(t, conf.Epsilon, prev)
		for i := 0; i < 500; i++ {
			s.Update()
			require.LessOrEqual(t, s.Epsilon(), prev)
			require.GreaterOrEqual(t, s.Epsilon(), conf.Min)
			prev = s.Epsilon()
		}
		assert.Equal(t, conf.Min, s.Epsilon())

		s.Reset()
		assert.Equal(t, conf.Epsilon, s.Epsilon())
	}
}

func TestEpsilonGreedyExplores(t *testing.T) {
	// with epsilon at 0, every draw exceeds it
	s, err := New(Config{Name: EpsilonGreedyName, Epsilon: 0, Decay: 1, Min: 0}, 7)
	require.NoError(t, err)

	values := []float32{1, 0, 0, 0}
	seen := make(map[int]int)
	for i := 0; i < 400; i++ {
		a := s.SampleAction(values, true)
		require.True(t, a >= 0 && a < len(values))
		seen[a]++
	}
	assert.Len(t, seen, len(values))
}

func TestFullEpsilonNeverExplores(t *testing.T) {
	for _, name := range Names() {
		s, err := New(Config{Name: name, Epsilon: 1, Decay: 1, Min: 1}, 7)
		require.NoError(t, err)
		for i := 0; i < 200; i++ {
			require.Equal(t, 1, s.SampleAction([]float32{0, 5, 1}, true))
		}
	}
}

func TestBoltzmannFollowsValues(t *testing.T) {
	s, err := New(Config{Name: BoltzmannName, Epsilon: 0, Decay: 1, Min: 0}, 3)
	require.NoError(t, err)

	counts := make([]int, 3)
	for i := 0; i < 1000; i++ {
		counts[s.SampleAction([]float32{0, 0, 30}, true)]++
	}
	assert.Greater(t, counts[2], 990)
}

func TestSoftmax(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	for i := 0; i < 200; i++ {
		n := 1 + r.Intn(9)
		values := make([]float32, n)
		for j := range values {
			values[j] = float32((r.Float64() - 0.5) * 2000)
		}
		p := Softmax(values)
		var sum float64
		for _, v := range p {
			require.GreaterOrEqual(t, v, 0.0)
			sum += v
		}
		require.InDelta(t, 1, sum, 1e-9)
	}

	p := Softmax([]float32{1, 1})
	assert.InDelta(t, 0.5, p[0], 1e-12)
	assert.InDelta(t, 0.5, p[1], 1e-12)

	// the dominated action is floored, and the floor is paid for by the others
	p = Softmax([]float32{0, -1000})
	assert.True(t, p[1] > 0)
	assert.InDelta(t, 1, p[0]+p[1], 1e-12)
	assert.False(t, math.IsNaN(p[0]))
}

func TestRestoreContinuesStream(t *testing.T) {
	for _, s := range strategies(t, 99) {
		s.Update()
		s.Update()
		restored, err := Restore(s.State())
		require.NoError(t, err)
		assert.Equal(t, s.Epsilon(), restored.Epsilon())
		assert.Equal(t, s.Name(), restored.Name())

		values := []float32{0.3, 0.1, 0.2, 0.25}
		for i := 0; i < 50; i++ {
			require.Equal(t, s.SampleAction(values, true), restored.SampleAction(values, true))
		}
	}
}

func TestConfigurationErrors(t *testing.T) {
	_, err := ByName("ucb", 1)
	assert.True(t, errors.Is(err, game.ErrConfiguration))

	_, err = New(Config{Name: EpsilonGreedyName, Epsilon: 0.1, Decay: 0.9, Min: 0.5}, 1)
	assert.True(t, errors.Is(err, game.ErrConfiguration))

	_, err = New(Config{Name: BoltzmannName, Epsilon: 0.5, Decay: 0, Min: 0.1}, 1)
	assert.True(t, errors.Is(err, game.ErrConfiguration))
}
