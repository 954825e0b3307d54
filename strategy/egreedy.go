package strategy

// EpsilonGreedy explores by picking an action uniformly at random.
type EpsilonGreedy struct {
	base
}

func (s *EpsilonGreedy) SampleAction(values []float32, explore bool) int {
	if s.exploring(explore) {
		return s.r.Intn(len(values))
	}
	return Greedy(values)
}

func (s *EpsilonGreedy) Name() string { return EpsilonGreedyName }
func (s *EpsilonGreedy) State() State { return s.state(EpsilonGreedyName) }
