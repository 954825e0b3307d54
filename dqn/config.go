package dqn

// Model kinds known to New.
const (
	MLP   = "mlp"
	Table = "table"
)

// Config configures a value model.
type Config struct {
	Kind    string
	Inputs  int   // width of the encoded state (mlp)
	States  int   // number of distinct state indices (table)
	Actions int   // one output per action
	Hidden  []int // widths of the hidden layers (mlp)

	LearnRate float64 // SGD step size (mlp)
	Alpha     float64 // fraction of the error corrected by each Fit (table)
}

// MLPConf is the Dense(24)-Dense(24)-linear network the agents use by default.
func MLPConf(inputs, actions int) Config {
	return Config{
		Kind:      MLP,
		Inputs:    inputs,
		Actions:   actions,
		Hidden:    []int{24, 24},
		LearnRate: 0.01,
	}
}

// TableConf is a lookup table over states indices.
func TableConf(states, actions int) Config {
	return Config{
		Kind:    Table,
		Inputs:  1,
		States:  states,
		Actions: actions,
		Alpha:   0.1,
	}
}

func (conf Config) IsValid() bool {
	if conf.Actions < 1 {
		return false
	}
	switch conf.Kind {
	case MLP:
		for _, h := range conf.Hidden {
			if h < 1 {
				return false
			}
		}
		return conf.Inputs >= 1 && conf.LearnRate > 0
	case Table:
		return conf.States >= 1 && conf.Alpha > 0 && conf.Alpha <= 1
	}
	return false
}
