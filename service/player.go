package service

import (
	"github.com/pkg/errors"
	"github.com/tateti-rl/tateti"
	"github.com/tateti-rl/tateti/game"
	"github.com/tateti-rl/tateti/game/ttt"
	"golang.org/x/exp/rand"
)

// LearningPlayer plays greedily with a trained agent, replaying its memory after every move.
type LearningPlayer struct {
	Agent *tateti.Agent
}

func (p LearningPlayer) Play(cells []game.Colour, available []game.Coord) (game.Coord, error) {
	s, err := p.Agent.Act(cells, tateti.Singles(available), false)
	if err != nil {
		return game.Coord{}, err
	}
	if err = p.Agent.ExperienceReplay(); err != nil {
		return game.Coord{}, errors.WithMessage(err, "experience replay")
	}
	return s.Coord(ttt.Side), nil
}

// RandomPlayer picks uniformly among the available cells.
type RandomPlayer struct {
	r *rand.Rand
}

func NewRandomPlayer(seed uint64) *RandomPlayer {
	src := &rand.PCGSource{}
	src.Seed(seed)
	return &RandomPlayer{r: rand.New(src)}
}

func (p *RandomPlayer) Play(cells []game.Colour, available []game.Coord) (game.Coord, error) {
	if len(available) == 0 {
		return game.Coord{}, errors.Wrap(game.ErrInvariant, "no action available")
	}
	return available[p.r.Intn(len(available))], nil
}
