package strategy

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// probabilityFloor is the smallest probability Softmax hands out.
const probabilityFloor = 1e-10

// Boltzmann explores by sampling actions in proportion to the softmax of their values.
type Boltzmann struct {
	base
}

func (s *Boltzmann) SampleAction(values []float32, explore bool) int {
	if s.exploring(explore) {
		return int(distuv.NewCategorical(Softmax(values), s.src).Rand())
	}
	return Greedy(values)
}

func (s *Boltzmann) Name() string { return BoltzmannName }
func (s *Boltzmann) State() State { return s.state(BoltzmannName) }

// Softmax turns action values into probabilities.
// The maximum is subtracted before exponentiating. Probabilities under the floor are raised to it, and whatever
// mass that adds or rounding loses is spread evenly so the result sums to 1.
func Softmax(values []float32) []float64 {
	if len(values) == 0 {
		return nil
	}
	p := make([]float64, len(values))
	for i, v := range values {
		p[i] = float64(v)
	}
	floats.AddConst(-floats.Max(p), p)
	for i := range p {
		p[i] = math.Exp(p[i])
	}
	floats.Scale(1/floats.Sum(p), p)
	for i := range p {
		if p[i] < probabilityFloor {
			p[i] = probabilityFloor
		}
	}
	floats.AddConst((1-floats.Sum(p))/float64(len(p)), p)
	return p
}
