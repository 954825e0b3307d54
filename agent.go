package tateti

import (
	"github.com/chewxy/math32"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/tateti-rl/tateti/dqn"
	"github.com/tateti-rl/tateti/game"
	"github.com/tateti-rl/tateti/game/ttt"
	"github.com/tateti-rl/tateti/phi"
	"github.com/tateti-rl/tateti/replay"
	"github.com/tateti-rl/tateti/strategy"
	"golang.org/x/exp/rand"
	"gorgonia.org/vecf32"
)

// An Agent learns to play from its own moves. It encodes boards with Enc, estimates action values with Model,
// and lets Strategy pick between them. Every transition it is told about goes into Memory, from which it
// replays batches.
//
// An Agent is owned by a single loop and is not safe for concurrent use.
type Agent struct {
	Enc      phi.Encoder
	Strategy strategy.Strategy
	Memory   *replay.Buffer
	Model    ValueModel
	Player   game.Player

	Gamma     float32
	BatchSize int

	// Statistics
	Wins float32
	Loss float32
	Draw float32

	name string
	src  *rand.PCGSource
	r    *rand.Rand
}

// NewAgent builds an agent from conf. The seed drives both the agent's replay sampling and its strategy.
func NewAgent(name string, conf Config, seed uint64) (*Agent, error) {
	if err := conf.Check(); err != nil {
		return nil, err
	}
	enc, err := phi.New(conf.Phi)
	if err != nil {
		return nil, err
	}
	src := &rand.PCGSource{}
	src.Seed(seed)
	r := rand.New(src)

	strat, err := strategy.New(conf.Strategy, r.Uint64())
	if err != nil {
		return nil, err
	}
	model, err := dqn.New(conf.Model)
	if err != nil {
		return nil, err
	}
	return &Agent{
		Enc:       enc,
		Strategy:  strat,
		Memory:    replay.New(conf.Memory),
		Model:     model,
		Gamma:     conf.Gamma,
		BatchSize: conf.BatchSize,
		name:      name,
		src:       src,
		r:         r,
	}, nil
}

func (a *Agent) Name() string { return a.name }

// Values returns the estimated value of every action on the board.
func (a *Agent) Values(cells []game.Colour) ([]float32, error) {
	q, err := a.Model.Predict(a.Enc.Encode(cells))
	if err != nil {
		return nil, err
	}
	if !validValues(q) {
		return nil, errors.Wrapf(game.ErrInvariant, "value model produced %v", q)
	}
	return q, nil
}

// Act picks one of the available actions. The strategy only gets to see the values of the available actions,
// so the pick is always one of them.
func (a *Agent) Act(cells []game.Colour, available []game.Single, explore bool) (game.Single, error) {
	if len(available) == 0 {
		return -1, errors.Wrap(game.ErrInvariant, "no action available")
	}
	q, err := a.Values(cells)
	if err != nil {
		return -1, err
	}
	values := make([]float32, len(available))
	for i, s := range available {
		if int(s) < 0 || int(s) >= len(q) {
			return -1, errors.Wrapf(game.ErrInvariant, "action %d outside the action set [0, %d)", s, len(q))
		}
		values[i] = q[s]
	}
	i := a.Strategy.SampleAction(values, explore)
	if i < 0 || i >= len(available) {
		return -1, errors.Wrapf(game.ErrInvariant, "strategy %v picked %d of %d actions", a.Strategy.Name(), i, len(available))
	}
	return available[i], nil
}

// Update stores the transition and decays the strategy's epsilon. Once the memory holds a batch,
// every update also replays one.
func (a *Agent) Update(t replay.Transition) error {
	if int(t.Action) < 0 || int(t.Action) >= ttt.Cells {
		return errors.Wrapf(game.ErrInvariant, "action %d outside the action set [0, %d)", t.Action, ttt.Cells)
	}
	a.Memory.Remember(t)
	a.Strategy.Update()
	if a.Memory.Len() < a.BatchSize {
		return nil
	}
	return a.ExperienceReplay()
}

// ExperienceReplay fits the model on a uniform sample of remembered transitions. The target of a transition is
// its reward, plus the discounted best value of the next state unless the transition ended the game.
// It does nothing until the memory holds a full batch.
func (a *Agent) ExperienceReplay() error {
	if a.Memory.Len() < a.BatchSize {
		return nil
	}
	for _, t := range a.Memory.Sample(a.r, a.BatchSize) {
		target := t.Reward
		if !t.Terminal {
			next, err := a.Values(t.NextState)
			if err != nil {
				return err
			}
			target += a.Gamma * next[vecf32.Argmax(next)]
		}

		state := a.Enc.Encode(t.State)
		q, err := a.Model.Predict(state)
		if err != nil {
			return err
		}
		if int(t.Action) >= len(q) {
			return errors.Wrapf(game.ErrInvariant, "remembered action %d outside the action set [0, %d)", t.Action, len(q))
		}
		q[t.Action] = target
		if !validValues(q) {
			continue
		}
		if err = a.Model.Fit(state, q); err != nil {
			return err
		}
	}
	return nil
}

// Record counts the outcome of a finished game from the agent's point of view.
func (a *Agent) Record(outcome game.Outcome) {
	switch outcome {
	case game.NoPlayer:
		a.Draw++
	case a.Player:
		a.Wins++
	default:
		a.Loss++
	}
}

func (a *Agent) resetStats() {
	a.Wins = 0
	a.Loss = 0
	a.Draw = 0
}

// WinRate is the fraction of recorded games that the agent won.
func (a *Agent) WinRate() float32 {
	total := a.Wins + a.Loss + a.Draw
	if total == 0 {
		return 0
	}
	return a.Wins / total
}

func (a *Agent) Close() error {
	var allErrs error
	if a.Model != nil {
		if err := a.Model.Close(); err != nil {
			allErrs = multierror.Append(allErrs, errors.Wrapf(err, "closing the model of %v", a.name))
		}
	}
	return allErrs
}

// Singles converts coordinates to action indices.
func Singles(cs []game.Coord) []game.Single {
	retVal := make([]game.Single, len(cs))
	for i, c := range cs {
		retVal[i] = c.Single(ttt.Side)
	}
	return retVal
}

func validValues(v []float32) bool {
	for _, x := range v {
		if math32.IsInf(x, 0) {
			return false
		}
		if math32.IsNaN(x) {
			return false
		}
	}
	return true
}
