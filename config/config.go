// Package config reads the settings of the services and of training from a yaml file and the environment.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"
	"github.com/tateti-rl/tateti"
	"github.com/tateti-rl/tateti/dqn"
	"github.com/tateti-rl/tateti/game"
	"github.com/tateti-rl/tateti/game/ttt"
	"github.com/tateti-rl/tateti/phi"
	"github.com/tateti-rl/tateti/strategy"
)

// Agent kinds.
const (
	LearningKind = "dqn"
	RandomKind   = "random"
)

type Config struct {
	LogLevel    string      `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	Broker      Broker      `yaml:"broker"`
	Topics      Topics      `yaml:"topics"`
	Environment Environment `yaml:"environment"`
	Agent       Agent       `yaml:"agent"`
	Train       Train       `yaml:"train"`
}

// Broker is the Redis server the services talk through.
type Broker struct {
	Host      string `yaml:"host" env:"MQTT_HOST_ADDRESS" env-default:"localhost"`
	Port      string `yaml:"port" env:"MQTT_HOST_PORT" env-default:"6379"`
	MaxBuffer int    `yaml:"max-buffer" env:"MQTT_MAX_BUFFER" env-default:"4"`
}

type Topics struct {
	P1  string `yaml:"p1" env:"MQTT_P1_TOPIC" env-default:"tateti/p1"`
	P2  string `yaml:"p2" env:"MQTT_P2_TOPIC" env-default:"tateti/p2"`
	Env string `yaml:"env" env:"MQTT_ENV_TOPIC" env-default:"tateti/env"`
}

type Environment struct {
	Interval time.Duration `yaml:"interval" env:"ENV_INTERVAL" env-default:"1s"`
	Reward   string        `yaml:"reward" env:"ENV_REWARD" env-default:"standard"`
	Seed     uint64        `yaml:"seed" env:"ENV_SEED" env-default:"0"`
	GIF      string        `yaml:"gif" env:"ENV_GIF"` // where to write the recording of the games, if anywhere
}

type Agent struct {
	Player   int           `yaml:"player" env:"PLAYER" env-default:"1"` // 1 plays x, 2 plays o
	Kind     string        `yaml:"kind" env:"AGENT_KIND" env-default:"dqn"`
	Model    string        `yaml:"model" env:"AGENT_MODEL" env-default:"/models/tateti_model.gob"`
	Interval time.Duration `yaml:"interval" env:"AGENT_INTERVAL" env-default:"500ms"`
	Seed     uint64        `yaml:"seed" env:"AGENT_SEED" env-default:"0"`
}

type Train struct {
	Episodes  int     `yaml:"episodes" env:"TRAIN_EPISODES" env-default:"200"`
	Seed      uint64  `yaml:"seed" env:"TRAIN_SEED" env-default:"123"`
	Gamma     float32 `yaml:"gamma" env:"TRAIN_GAMMA" env-default:"0.99"`
	Memory    int     `yaml:"memory" env:"TRAIN_MEMORY" env-default:"1000"`
	BatchSize int     `yaml:"batch-size" env:"TRAIN_BATCH_SIZE" env-default:"10"`
	Phi       string  `yaml:"phi" env:"TRAIN_PHI" env-default:"scaled"`
	Strategy  string  `yaml:"strategy" env:"TRAIN_STRATEGY" env-default:"egreedy"`
	Model     string  `yaml:"model" env:"TRAIN_MODEL" env-default:"mlp"`
	LogEvery  int     `yaml:"log-every" env:"TRAIN_LOG_EVERY" env-default:"10"`
	Output    string  `yaml:"output" env:"TRAIN_OUTPUT" env-default:"agent1.gob"`
	Stats     string  `yaml:"stats" env:"TRAIN_STATS"`
	GIF       string  `yaml:"gif" env:"TRAIN_GIF"`
}

// Load reads the yaml file at path, lets the environment override it and checks the result.
// An empty path reads the environment alone.
func Load(path string) (*Config, error) {
	conf := &Config{}
	var err error
	if path == "" {
		err = cleanenv.ReadEnv(conf)
	} else {
		err = cleanenv.ReadConfig(path, conf)
	}
	if err != nil {
		return nil, errors.Wrapf(game.ErrConfiguration, "unable to load config: %v", err)
	}
	if err = conf.Check(); err != nil {
		return nil, err
	}
	return conf, nil
}

// MustLoad is Load that panics.
func MustLoad(path string) *Config {
	conf, err := Load(path)
	if err != nil {
		panic(err)
	}
	return conf
}

// Check validates everything but the training section, which AgentConfig checks.
func (conf *Config) Check() error {
	if conf.Broker.MaxBuffer < 1 {
		return errors.Wrapf(game.ErrConfiguration, "max-buffer must be positive, got %d", conf.Broker.MaxBuffer)
	}
	t := conf.Topics
	if t.P1 == "" || t.P2 == "" || t.Env == "" {
		return errors.Wrapf(game.ErrConfiguration, "all topics must be named: %+v", t)
	}
	if t.P1 == t.P2 || t.P1 == t.Env || t.P2 == t.Env {
		return errors.Wrapf(game.ErrConfiguration, "topics must be distinct: %+v", t)
	}
	if conf.Environment.Interval <= 0 || conf.Agent.Interval <= 0 {
		return errors.Wrap(game.ErrConfiguration, "intervals must be positive")
	}
	if _, err := ttt.RewardByName(conf.Environment.Reward); err != nil {
		return err
	}
	if conf.Agent.Player != 1 && conf.Agent.Player != 2 {
		return errors.Wrapf(game.ErrConfiguration, "player must be 1 or 2, got %d", conf.Agent.Player)
	}
	switch conf.Agent.Kind {
	case LearningKind, RandomKind:
	default:
		return errors.Wrapf(game.ErrConfiguration, "unknown agent kind %q", conf.Agent.Kind)
	}
	return nil
}

// Addr is host:port.
func (b Broker) Addr() string { return fmt.Sprintf("%s:%s", b.Host, b.Port) }

// Players maps each player topic to the player publishing on it. Player 1 plays x.
func (t Topics) Players() map[string]game.Player {
	return map[string]game.Player{t.P1: game.PlayerX, t.P2: game.PlayerO}
}

// Of is the topic p publishes on.
func (t Topics) Of(p game.Player) string {
	if p == game.PlayerX {
		return t.P1
	}
	return t.P2
}

// Colour is the player the agent service plays.
func (a Agent) Colour() game.Player {
	if a.Player == 1 {
		return game.PlayerX
	}
	return game.PlayerO
}

// AgentConfig assembles the configuration of the agents to train.
func (t Train) AgentConfig() (tateti.Config, error) {
	conf := tateti.DefaultConfig()
	conf.Phi = phi.DefaultConf(t.Phi, ttt.Cells)
	enc, err := phi.New(conf.Phi)
	if err != nil {
		return conf, err
	}
	if conf.Strategy, err = strategy.DefaultConf(t.Strategy); err != nil {
		return conf, err
	}
	switch t.Model {
	case dqn.MLP:
		conf.Model = dqn.MLPConf(enc.Dims(), ttt.Cells)
	case dqn.Table:
		conf.Model = dqn.TableConf(phi.Index{N: ttt.Cells}.States(), ttt.Cells)
	default:
		return conf, errors.Wrapf(game.ErrConfiguration, "unknown model kind %q", t.Model)
	}
	conf.Gamma = t.Gamma
	conf.Memory = t.Memory
	conf.BatchSize = t.BatchSize
	conf.LogEvery = t.LogEvery
	if t.Episodes < 1 {
		return conf, errors.Wrapf(game.ErrConfiguration, "episodes must be positive, got %d", t.Episodes)
	}
	return conf, conf.Check()
}
