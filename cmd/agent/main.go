package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/tateti-rl/tateti"
	"github.com/tateti-rl/tateti/config"
	"github.com/tateti-rl/tateti/internal/logx"
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

	colour := conf.Agent.Colour()
	var player service.Player
	switch conf.Agent.Kind {
	case config.LearningKind:
		a, err := tateti.LoadFile(conf.Agent.Model)
		if err != nil {
			logger.Fatal().Err(err).Str("file", conf.Agent.Model).Msg("unable to load the agent")
		}
		defer a.Close()
		a.Player = colour
		player = service.LearningPlayer{Agent: a}
	default:
		player = service.NewRandomPlayer(conf.Agent.Seed)
	}

	bus, err := redisbus.Dial(ctx, conf.Broker.Addr(), conf.Broker.MaxBuffer, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to connect")
	}

	topic := conf.Topics.Of(colour)
	logger.Info().Str("sym", colour.Sym()).Str("topic", topic).Str("kind", conf.Agent.Kind).Msg("agent")
	agent, err := service.NewAgent(ctx, player, colour, bus, conf.Topics.Env, topic, conf.Agent.Interval, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to start")
	}
	defer agent.Close()

	if err = agent.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("stopped")
	}
}
