package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tateti-rl/tateti"
	"github.com/tateti-rl/tateti/game"
	"github.com/tateti-rl/tateti/game/ttt"
	"github.com/tateti-rl/tateti/internal/logx"
)

var (
	model = flag.String("model", "agent1.gob", "saved agent")
	dot   = flag.String("dot", "", "also write the agent's view of its reply as a graphviz file")
)

func main() {
	flag.Parse()
	logger, err := logx.New("info", os.Stderr)
	if err != nil {
		panic(err)
	}
	a, err := tateti.LoadFile(*model)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to load the agent")
	}
	defer a.Close()

	b := ttt.TicTacToe(1)
	b.SetTurn(game.PlayerX)

	// Put x in the centre
	if err = b.Move(game.PlayerX, game.Coord{Row: 1, Col: 1}); err != nil {
		logger.Fatal().Err(err).Msg("opening")
	}
	b.Render(os.Stdout)
	// -------------
	// |   |   |   |
	// -------------
	// |   | x |   |
	// -------------
	// |   |   |   |
	// -------------

	// What to do next
	if *dot != "" {
		g, err := a.ToDot(b.Cells(), game.PlayerO)
		if err != nil {
			logger.Fatal().Err(err).Msg("dot")
		}
		if err = os.WriteFile(*dot, []byte(g), 0o644); err != nil {
			logger.Fatal().Err(err).Msg("dot")
		}
	}
	move, err := a.Act(b.Cells(), tateti.Singles(b.EmptyCells()), false)
	if err != nil {
		logger.Fatal().Err(err).Msg("no reply")
	}
	fmt.Println(move.Coord(ttt.Side))
	if err = b.Move(game.PlayerO, move.Coord(ttt.Side)); err != nil {
		logger.Fatal().Err(err).Msg("reply")
	}
	b.Render(os.Stdout)
}
