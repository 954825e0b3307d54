package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/tateti-rl/tateti"
	"github.com/tateti-rl/tateti/config"
	"github.com/tateti-rl/tateti/encoding/gif"
	"github.com/tateti-rl/tateti/game/ttt"
	"github.com/tateti-rl/tateti/internal/logx"
	"github.com/tateti-rl/tateti/phi"
	"github.com/tateti-rl/tateti/protocol"
	"github.com/tateti-rl/tateti/service"
	"github.com/tateti-rl/tateti/transport/redisbus"
)

var configPath = flag.String("config", "", "yaml configuration file; the environment alone if empty")

func main() {
	flag.Parse()
	conf := config.MustLoad(*configPath)
	logger, err := logx.New(conf.LogLevel, os.Stderr)
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	board, err := ttt.New(conf.Environment.Reward, conf.Environment.Seed)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to create the board")
	}
	enc, err := phi.ByName(phi.IdentityName, ttt.Cells)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to create the state encoder")
	}
	auth, err := protocol.NewAuthority(board, enc, conf.Topics.Players(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to create the authority")
	}

	bus, err := redisbus.Dial(ctx, conf.Broker.Addr(), conf.Broker.MaxBuffer, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to connect")
	}

	var rec tateti.OutputEncoder
	if conf.Environment.GIF != "" {
		f, err := os.Create(conf.Environment.GIF)
		if err != nil {
			logger.Fatal().Err(err).Msg("unable to create the recording")
		}
		defer f.Close()
		rec = gif.NewEncoder(f, 600, 600)
	}

	env, err := service.NewEnvironment(ctx, auth, bus, conf.Topics.Env, conf.Environment.Interval, rec, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to start")
	}
	defer func() {
		if err := env.Close(); err != nil {
			logger.Error().Err(err).Msg("close")
		}
	}()

	if err = env.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("stopped")
	}
}
