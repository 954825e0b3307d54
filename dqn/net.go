package dqn

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/pkg/errors"
	"github.com/tateti-rl/tateti/game"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

var Float = G.Float32

// Net is a fully connected Q-network: ReLU hidden layers and a linear output, one unit per action.
// It is trained one example at a time on the mean squared error.
type Net struct {
	Config

	g    *G.ExprGraph
	x, y *G.Node // state and target values

	q    G.Value // predicted values
	cost G.Value

	learnables []G.ValueGrad
	vm         G.VM
	solver     G.Solver

	input, target *tensor.Dense
}

// NewNet returns a new, uninitialized *Net.
func NewNet(conf Config) *Net {
	return &Net{Config: conf}
}

func (d *Net) Init() error {
	d.reset()
	if !d.Config.IsValid() || d.Kind != MLP {
		return errors.Wrapf(game.ErrConfiguration, "invalid network config %+v", d.Config)
	}
	d.g = G.NewGraph()
	d.x = G.NewMatrix(d.g, Float, G.WithShape(1, d.Inputs), G.WithName("State"))
	d.y = G.NewMatrix(d.g, Float, G.WithShape(1, d.Actions), G.WithName("Target"))

	out, err := d.fwd()
	if err != nil {
		return err
	}
	if err = d.bwd(out); err != nil {
		return err
	}

	d.input = tensor.New(tensor.WithShape(1, d.Inputs), tensor.Of(Float))
	d.target = tensor.New(tensor.WithShape(1, d.Actions), tensor.Of(Float))
	d.learnables = G.NodesToValueGrads(d.Model())
	d.vm = G.NewTapeMachine(d.g, G.BindDualValues(d.Model()...))
	d.solver = G.NewVanillaSolver(G.WithLearnRate(d.LearnRate))
	return nil
}

func (d *Net) fwd() (*G.Node, error) {
	var m maebe
	hidden := d.x
	for i, units := range d.Hidden {
		hidden = m.rectify(m.linear(hidden, units, fmt.Sprintf("Hidden%d", i)))
	}
	out := m.linear(hidden, d.Actions, "Q")
	if m.err != nil {
		return nil, m.err
	}
	G.Read(out, &d.q)
	return out, nil
}

func (d *Net) bwd(out *G.Node) error {
	var m maebe
	cost := m.do(func() (*G.Node, error) { return G.Sub(out, d.y) })
	cost = m.do(func() (*G.Node, error) { return G.Square(cost) })
	cost = m.do(func() (*G.Node, error) { return G.Mean(cost) })
	if m.err != nil {
		return m.err
	}
	G.Read(cost, &d.cost)

	if _, err := G.Grad(cost, d.Model()...); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// Model returns the learnable nodes, in graph order.
func (d *Net) Model() G.Nodes {
	retVal := make(G.Nodes, 0, d.g.Nodes().Len())
	for _, n := range d.g.AllNodes() {
		if n.IsVar() && n != d.x && n != d.y {
			retVal = append(retVal, n)
		}
	}
	return retVal
}

func (d *Net) Conf() Config { return d.Config }

func (d *Net) initialized() error {
	if d.vm == nil {
		return errors.Wrap(game.ErrConfiguration, "network used before Init")
	}
	return nil
}

// run loads the state and target into the graph and executes it once.
func (d *Net) run(state, target []float32) error {
	if err := d.initialized(); err != nil {
		return err
	}
	if err := checkWidth("state", state, d.Inputs); err != nil {
		return err
	}
	copy(d.input.Data().([]float32), state)
	if target == nil {
		d.target.Zero()
	} else {
		if err := checkWidth("target", target, d.Actions); err != nil {
			return err
		}
		copy(d.target.Data().([]float32), target)
	}

	d.vm.Reset()
	if err := G.Let(d.x, d.input); err != nil {
		return errors.WithStack(err)
	}
	if err := G.Let(d.y, d.target); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(d.vm.RunAll())
}

// Predict returns the estimated value of each action in state.
func (d *Net) Predict(state []float32) ([]float32, error) {
	if err := d.run(state, nil); err != nil {
		return nil, err
	}
	retVal := make([]float32, d.Actions)
	copy(retVal, d.q.Data().([]float32))
	return retVal, nil
}

// Fit takes one gradient step toward target.
func (d *Net) Fit(state, target []float32) error {
	if err := d.run(state, target); err != nil {
		return err
	}
	return errors.WithStack(d.solver.Step(d.learnables))
}

// Cost is the loss of the last Predict or Fit call.
func (d *Net) Cost() float32 {
	if d.cost == nil {
		return 0
	}
	return d.cost.Data().(float32)
}

func (d *Net) reset() {
	d.g = nil
	d.x = nil
	d.y = nil
	d.q = nil
	d.cost = nil
	d.learnables = nil
	d.vm = nil
	d.solver = nil
}

// Close implements a closer, because well, a gorgonia VM is a resource.
func (d *Net) Close() error {
	if d.vm == nil {
		return nil
	}
	return d.vm.Close()
}

func (d *Net) GobEncode() (retVal []byte, err error) {
	if err = d.initialized(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err = enc.Encode(d.Config); err != nil {
		return nil, errors.WithStack(err)
	}
	for _, n := range d.Model() {
		if err = enc.Encode(n.Value().Data().([]float32)); err != nil {
			return nil, errors.WithStack(err)
		}
	}
	return buf.Bytes(), nil
}

func (d *Net) GobDecode(p []byte) error {
	dec := gob.NewDecoder(bytes.NewBuffer(p))
	var conf Config
	if err := dec.Decode(&conf); err != nil {
		return errors.WithStack(err)
	}
	d.Close()
	d.Config = conf
	if err := d.Init(); err != nil {
		return err
	}
	for _, n := range d.Model() {
		var data []float32
		if err := dec.Decode(&data); err != nil {
			return errors.WithStack(err)
		}
		dst := n.Value().Data().([]float32)
		if len(dst) != len(data) {
			return errors.Errorf("parameter %v has %d values, stream has %d", n.Name(), len(dst), len(data))
		}
		copy(dst, data)
	}
	return nil
}
