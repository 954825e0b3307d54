package ttt

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/tateti-rl/tateti/game"
)

// Standard is the name of the reward that pays 1 for a win and 0 otherwise.
const Standard = "standard"

// RewardFunc scores the position of b for player p. It is called after the move is applied and termination is known.
type RewardFunc func(b *Board, p game.Player) float32

var rewards = map[string]RewardFunc{
	Standard: StandardReward,
}

// StandardReward pays 1 to the winner. Losing, drawing and ongoing games all pay 0.
func StandardReward(b *Board, p game.Player) float32 {
	if ended, winner := b.Ended(); ended && winner == p {
		return 1
	}
	return 0
}

// RewardByName looks up a reward function in the registry.
func RewardByName(name string) (RewardFunc, error) {
	fn, ok := rewards[name]
	if !ok {
		return nil, errors.Wrapf(game.ErrConfiguration, "unknown reward function %q (known: %v)", name, RewardNames())
	}
	return fn, nil
}

// RewardNames lists the registered reward functions.
func RewardNames() []string {
	retVal := make([]string, 0, len(rewards))
	for k := range rewards {
		retVal = append(retVal, k)
	}
	sort.Strings(retVal)
	return retVal
}
