package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/tateti-rl/tateti"
	"github.com/tateti-rl/tateti/config"
	"github.com/tateti-rl/tateti/encoding/gif"
	"github.com/tateti-rl/tateti/encoding/live"
	"github.com/tateti-rl/tateti/game"
	"github.com/tateti-rl/tateti/game/ttt"
	"github.com/tateti-rl/tateti/internal/logx"
	"github.com/tateti-rl/tateti/phi"
	"github.com/tateti-rl/tateti/protocol"
	"github.com/tateti-rl/tateti/service"
	"github.com/tateti-rl/tateti/transport"
)

var (
	configPath = flag.String("config", "", "yaml configuration file; the environment alone if empty")
	httpAddr   = flag.String("http", "", "serve the games being played on ws://<addr>/ws")
	demoGames  = flag.Int("demo", 0, "after training, play this many games against a random player through the services")
)

// outputs fans every board out to several encoders
type outputs []tateti.OutputEncoder

func (o outputs) Encode(ms game.MetaState) error {
	var errs error
	for _, enc := range o {
		if err := enc.Encode(ms); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}

func (o outputs) Flush() error {
	var errs error
	for _, enc := range o {
		if err := enc.Flush(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}

func main() {
	flag.Parse()
	conf := config.MustLoad(*configPath)
	logger, err := logx.New(conf.LogLevel, os.Stderr)
	if err != nil {
		panic(err)
	}

	agentConf, err := conf.Train.AgentConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("bad training configuration")
	}

	var outs outputs
	if conf.Train.GIF != "" {
		f, err := os.Create(conf.Train.GIF)
		if err != nil {
			logger.Fatal().Err(err).Msg("unable to create the recording")
		}
		defer f.Close()
		outs = append(outs, gif.NewEncoder(f, 600, 600))
	}
	if *httpAddr != "" {
		enc := live.NewEncoder(transport.DefaultCapacity, logger)
		outs = append(outs, enc)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/ws", enc)
			logger.Info().Str("addr", *httpAddr).Msg("serving games")
			if err := http.ListenAndServe(*httpAddr, mux); err != nil {
				logger.Error().Err(err).Msg("http")
			}
		}()
	}
	if len(outs) > 0 {
		agentConf.OutputEncoder = outs
	}

	board, err := ttt.New(conf.Environment.Reward, conf.Train.Seed)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to create the board")
	}
	t, err := tateti.NewTrainer(board, agentConf, conf.Train.Seed, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to create the trainer")
	}
	defer t.Close()

	start := time.Now()
	if err = t.Learn(conf.Train.Episodes); err != nil {
		logger.Fatal().Err(err).Msg("training failed")
	}
	a, b, err := t.Evaluate(100)
	if err != nil {
		logger.Fatal().Err(err).Msg("evaluation failed")
	}
	logger.Info().Dur("took", time.Since(start)).Float32("A", a).Float32("B", b).Msg("trained")

	if conf.Train.Stats != "" {
		if err = t.Dump(conf.Train.Stats); err != nil {
			logger.Error().Err(err).Msg("unable to write statistics")
		}
	}
	best := t.Best()
	if err = best.SaveFile(conf.Train.Output); err != nil {
		logger.Fatal().Err(err).Msg("unable to save the agent")
	}
	logger.Info().Str("agent", best.Name()).Str("file", conf.Train.Output).Msg("saved")

	if *demoGames > 0 {
		if err = demo(conf, best, *demoGames, logger); err != nil {
			logger.Fatal().Err(err).Msg("demo failed")
		}
	}
}

// demo runs the environment and both players in process, over an in-memory bus.
func demo(conf *config.Config, best *tateti.Agent, games int, logger zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := transport.NewMemory(conf.Broker.MaxBuffer)
	enc, err := phi.ByName(phi.IdentityName, ttt.Cells)
	if err != nil {
		return err
	}
	board, err := ttt.New(conf.Environment.Reward, conf.Train.Seed)
	if err != nil {
		return err
	}
	auth, err := protocol.NewAuthority(board, enc, conf.Topics.Players(), logger)
	if err != nil {
		return err
	}
	env, err := service.NewEnvironment(ctx, auth, bus, conf.Topics.Env, time.Millisecond, nil, logger)
	if err != nil {
		return err
	}
	defer env.Close()
	x, err := service.NewAgent(ctx, service.LearningPlayer{Agent: best}, game.PlayerX, bus, conf.Topics.Env, conf.Topics.P1, time.Millisecond, logger)
	if err != nil {
		return err
	}
	o, err := service.NewAgent(ctx, service.NewRandomPlayer(conf.Train.Seed), game.PlayerO, bus, conf.Topics.Env, conf.Topics.P2, time.Millisecond, logger)
	if err != nil {
		return err
	}

	if err = env.Start(ctx); err != nil {
		return err
	}
	for board.Score().Games() < games {
		if _, err = x.Step(ctx); err != nil {
			return err
		}
		if _, err = o.Step(ctx); err != nil {
			return err
		}
		if err = env.Step(ctx); err != nil {
			return err
		}
	}
	s := board.Score()
	logger.Info().Int("agent", s.Of(game.PlayerX)).Int("random", s.Of(game.PlayerO)).Int("draws", s.Draw).Msg("demo over")
	return nil
}
