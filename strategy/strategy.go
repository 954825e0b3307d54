// Package strategy decides between exploring and exploiting when an agent picks an action.
package strategy

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"github.com/tateti-rl/tateti/game"
	"golang.org/x/exp/rand"
	"gorgonia.org/vecf32"
)

// Registry names.
const (
	EpsilonGreedyName = "egreedy"
	BoltzmannName     = "boltzmann"
)

// Strategy maps action values to the index of the action to take.
//
// SampleAction explores only when explore is true and a uniform draw exceeds the current epsilon.
// Otherwise it returns the arg-max of values. Strategies differ only in how they explore.
type Strategy interface {
	SampleAction(values []float32, explore bool) int
	// Update decays epsilon, never below its floor.
	Update()
	// Reset restores the initial epsilon.
	Reset()
	Epsilon() float64
	Name() string
	// State captures configuration, epsilon and the random stream, so Restore can continue where this left off.
	State() State
}

// Config configures the decay schedule of a strategy.
type Config struct {
	Name    string
	Epsilon float64 // initial epsilon
	Decay   float64 // multiplicative factor applied by Update
	Min     float64 // floor of epsilon
}

// State is the serializable form of a Strategy.
type State struct {
	Config
	Current float64
	RNG     []byte
}

var defaults = map[string]Config{
	EpsilonGreedyName: {Name: EpsilonGreedyName, Epsilon: 0.9, Decay: 0.95, Min: 0.1},
	BoltzmannName:     {Name: BoltzmannName, Epsilon: 0.9, Decay: 0.95, Min: 0.05},
}

// DefaultConf returns the registered schedule of the named strategy.
func DefaultConf(name string) (Config, error) {
	conf, ok := defaults[name]
	if !ok {
		return Config{}, errors.Wrapf(game.ErrConfiguration, "unknown strategy %q (known: %v)", name, Names())
	}
	return conf, nil
}

// Names lists the registered strategies.
func Names() []string {
	retVal := make([]string, 0, len(defaults))
	for k := range defaults {
		retVal = append(retVal, k)
	}
	sort.Strings(retVal)
	return retVal
}

// IsValid checks that the schedule makes sense: 0 ≤ Min ≤ Epsilon ≤ 1 and 0 < Decay ≤ 1.
func (conf Config) IsValid() bool {
	return conf.Min >= 0 &&
		conf.Min <= conf.Epsilon &&
		conf.Epsilon <= 1 &&
		conf.Decay > 0 &&
		conf.Decay <= 1
}

// ByName builds the named strategy with its registered schedule.
func ByName(name string, seed uint64) (Strategy, error) {
	conf, err := DefaultConf(name)
	if err != nil {
		return nil, err
	}
	return New(conf, seed)
}

// New builds a strategy. The seed initializes the strategy's own random stream.
func New(conf Config, seed uint64) (Strategy, error) {
	src := &rand.PCGSource{}
	src.Seed(seed)
	return build(conf, src)
}

// Restore rebuilds a strategy from its State.
func Restore(s State) (Strategy, error) {
	src := &rand.PCGSource{}
	if err := src.UnmarshalBinary(s.RNG); err != nil {
		return nil, errors.Wrapf(game.ErrSerialization, "strategy rng: %v", err)
	}
	retVal, err := build(s.Config, src)
	if err != nil {
		return nil, err
	}
	if s.Current < s.Min || s.Current > 1 {
		return nil, errors.Wrapf(game.ErrSerialization, "strategy epsilon %v outside [%v, 1]", s.Current, s.Min)
	}
	switch st := retVal.(type) {
	case *EpsilonGreedy:
		st.epsilon = s.Current
	case *Boltzmann:
		st.epsilon = s.Current
	}
	return retVal, nil
}

func build(conf Config, src *rand.PCGSource) (Strategy, error) {
	if !conf.IsValid() {
		return nil, errors.Wrapf(game.ErrConfiguration, "invalid schedule for strategy %q: %+v", conf.Name, conf)
	}
	b := base{
		schedule: schedule{
			epsilon: conf.Epsilon,
			initial: conf.Epsilon,
			min:     conf.Min,
			decay:   conf.Decay,
		},
		src: src,
		r:   rand.New(src),
	}
	switch conf.Name {
	case EpsilonGreedyName:
		return &EpsilonGreedy{base: b}, nil
	case BoltzmannName:
		return &Boltzmann{base: b}, nil
	}
	return nil, errors.Wrapf(game.ErrConfiguration, "unknown strategy %q (known: %v)", conf.Name, Names())
}

type schedule struct {
	epsilon, initial, min, decay float64
}

func (s *schedule) Update()          { s.epsilon = math.Max(s.epsilon*s.decay, s.min) }
func (s *schedule) Reset()           { s.epsilon = s.initial }
func (s *schedule) Epsilon() float64 { return s.epsilon }

type base struct {
	schedule
	src *rand.PCGSource
	r   *rand.Rand
}

// exploring draws the coin that decides whether this decision explores.
func (b *base) exploring(explore bool) bool {
	return explore && b.r.Float64() > b.epsilon
}

func (b *base) state(name string) State {
	rng, err := b.src.MarshalBinary()
	if err != nil {
		panic(err) // PCGSource marshalling cannot fail
	}
	return State{
		Config: Config{
			Name:    name,
			Epsilon: b.initial,
			Decay:   b.decay,
			Min:     b.min,
		},
		Current: b.epsilon,
		RNG:     rng,
	}
}

// Greedy is the exploitation rule: the index of the first maximum.
func Greedy(values []float32) int { return vecf32.Argmax(values) }
