package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tateti-rl/tateti"
	"github.com/tateti-rl/tateti/encoding/gif"
	"github.com/tateti-rl/tateti/game"
	"github.com/tateti-rl/tateti/game/ttt"
	"github.com/tateti-rl/tateti/phi"
	"github.com/tateti-rl/tateti/protocol"
	"github.com/tateti-rl/tateti/transport"
)

const (
	topicX   = "tateti/p1"
	topicO   = "tateti/p2"
	topicEnv = "tateti/env"
)

type rig struct {
	bus  *transport.Memory
	auth *protocol.Authority
	env  *Environment
}

func newRig(t *testing.T, seed uint64, rec tateti.OutputEncoder) *rig {
	t.Helper()
	enc, err := phi.ByName(phi.IdentityName, ttt.Cells)
	require.NoError(t, err)
	bus := transport.NewMemory(transport.DefaultCapacity)
	topics := map[string]game.Player{topicX: game.PlayerX, topicO: game.PlayerO}
	auth, err := protocol.NewAuthority(ttt.TicTacToe(seed), enc, topics, zerolog.Nop())
	require.NoError(t, err)
	env, err := NewEnvironment(context.Background(), auth, bus, topicEnv, time.Millisecond, rec, zerolog.Nop())
	require.NoError(t, err)
	return &rig{bus: bus, auth: auth, env: env}
}

func (r *rig) agent(t *testing.T, p game.Player, player Player) *Agent {
	t.Helper()
	topic := topicX
	if p == game.PlayerO {
		topic = topicO
	}
	a, err := NewAgent(context.Background(), player, p, r.bus, topicEnv, topic, time.Millisecond, zerolog.Nop())
	require.NoError(t, err)
	return a
}

func (r *rig) listen(t *testing.T, topics ...string) *transport.Mailbox {
	t.Helper()
	mb, err := r.bus.Subscribe(context.Background(), topics...)
	require.NoError(t, err)
	return mb
}

func next(t *testing.T, mb *transport.Mailbox) protocol.Message {
	t.Helper()
	env, ok := mb.Poll()
	require.True(t, ok, "expected a message")
	m, err := protocol.Decode(env.Payload)
	require.NoError(t, err)
	return m
}

func publish(t *testing.T, bus transport.Bus, topic string, m protocol.Message) {
	t.Helper()
	p, err := protocol.Encode(m)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), topic, p))
}

func TestEnvironment_StartAndHeartbeat(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, 1, nil)
	out := r.listen(t, topicEnv)

	// Given: a started environment
	require.NoError(t, r.env.Start(ctx))
	opening := next(t, out)
	assert.Equal(t, "         ", opening.EnvStr)

	// When: it steps with nothing to read
	require.NoError(t, r.env.Step(ctx))

	// Then: it repeats the last snapshot
	assert.Equal(t, opening, next(t, out))
	_, ok := out.Poll()
	assert.False(t, ok)
}

func TestEnvironment_AppliesMoves(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, 2, nil)
	out := r.listen(t, topicEnv)
	require.NoError(t, r.env.Start(ctx))
	opening := next(t, out)
	mover, _ := game.PlayerOf(opening.Turn)
	topic := topicX
	if mover == game.PlayerO {
		topic = topicO
	}

	// Given: garbage and a valid move from the player to move
	require.NoError(t, r.bus.Publish(ctx, topic, []byte("{not json")))
	publish(t, r.bus, topic, protocol.Reply(opening, game.Coord{Row: 1, Col: 1}, mover.Sym()))

	// When: the environment steps twice
	require.NoError(t, r.env.Step(ctx))
	assert.Equal(t, opening, next(t, out), "garbage only earns a heartbeat")
	require.NoError(t, r.env.Step(ctx))

	// Then: the move is applied, and the new snapshot is sent and then repeated
	applied := next(t, out)
	assert.Equal(t, mover.Opponent().Sym(), applied.Turn)
	assert.Equal(t, 1, r.auth.Board().MoveNumber())
	assert.Equal(t, applied, next(t, out))
}

func TestAgent_Step(t *testing.T) {
	ctx := context.Background()
	bus := transport.NewMemory(transport.DefaultCapacity)
	a, err := NewAgent(ctx, NewRandomPlayer(1), game.PlayerO, bus, topicEnv, topicO, 0, zerolog.Nop())
	require.NoError(t, err)
	replies, err := bus.Subscribe(ctx, topicO)
	require.NoError(t, err)

	base := protocol.Message{EnvStr: "x        ", Turn: "o", Session: "s", Epoch: 3}
	over := base
	over.IsOver = true
	full := base
	full.EnvStr = "xoxoxooxo"
	other := base
	other.Turn = "x"

	cases := []struct {
		name string
		msg  protocol.Message
	}{
		{"addressed to the other player", other},
		{"game over", over},
		{"no empty cell", full},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			publish(t, bus, topicEnv, tc.msg)
			moved, err := a.Step(ctx)
			require.NoError(t, err)
			assert.False(t, moved)
			assert.Zero(t, replies.Len())
		})
	}

	require.NoError(t, bus.Publish(ctx, topicEnv, []byte("[]")))
	moved, err := a.Step(ctx)
	require.NoError(t, err)
	assert.False(t, moved)

	moved, err = a.Step(ctx)
	require.NoError(t, err)
	assert.False(t, moved, "nothing to read")

	// Given: a snapshot addressed to the agent
	publish(t, bus, topicEnv, base)
	// When: it steps
	moved, err = a.Step(ctx)
	require.NoError(t, err)
	// Then: it answers with a free cell, its glyph and the echoed token
	assert.True(t, moved)
	reply := next(t, replies)
	assert.Equal(t, "o", reply.Sym)
	assert.Equal(t, base.Token(), reply.Token())
	c, ok := reply.Coord()
	require.True(t, ok)
	assert.NotEqual(t, game.Coord{Row: 0, Col: 0}, c)
}

func TestNewAgent_InvalidColour(t *testing.T) {
	_, err := NewAgent(context.Background(), NewRandomPlayer(1), game.NoPlayer, transport.NewMemory(1), topicEnv, topicX, 0, zerolog.Nop())
	assert.True(t, errors.Is(err, game.ErrConfiguration))
}

func TestServices_PlayGames(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	rec := gif.NewEncoder(&buf, 600, 600)
	r := newRig(t, 3, rec)
	x := r.agent(t, game.PlayerX, NewRandomPlayer(10))
	o := r.agent(t, game.PlayerO, NewRandomPlayer(11))

	require.NoError(t, r.env.Start(ctx))
	for i := 0; i < 500 && r.auth.Board().Score().Games() < 3; i++ {
		_, err := x.Step(ctx)
		require.NoError(t, err)
		_, err = o.Step(ctx)
		require.NoError(t, err)
		require.NoError(t, r.env.Step(ctx))
	}

	assert.GreaterOrEqual(t, r.auth.Board().Score().Games(), 3)
	assert.GreaterOrEqual(t, r.env.Epoch(), 4, "every finished game opens a new epoch")
	assert.Greater(t, rec.Frames(), 3*5)

	require.NoError(t, r.env.Close())
	assert.NotZero(t, buf.Len(), "closing flushes the recording")
}

func TestServices_LearningPlayer(t *testing.T) {
	ctx := context.Background()
	conf := tateti.TableConfig()
	conf.Memory, conf.BatchSize = 32, 4
	learner, err := tateti.NewAgent("dqn", conf, 5)
	require.NoError(t, err)

	r := newRig(t, 4, nil)
	x := r.agent(t, game.PlayerX, LearningPlayer{Agent: learner})
	o := r.agent(t, game.PlayerO, NewRandomPlayer(12))

	require.NoError(t, r.env.Start(ctx))
	for i := 0; i < 300 && r.auth.Board().Score().Games() < 2; i++ {
		_, err := x.Step(ctx)
		require.NoError(t, err)
		_, err = o.Step(ctx)
		require.NoError(t, err)
		require.NoError(t, r.env.Step(ctx))
	}
	assert.GreaterOrEqual(t, r.auth.Board().Score().Games(), 2)
}

func TestLearningPlayer_Play(t *testing.T) {
	learner, err := tateti.NewAgent("dqn", tateti.TableConfig(), 6)
	require.NoError(t, err)
	p := LearningPlayer{Agent: learner}

	cells, err := ttt.Deserialize("xo x o   ")
	require.NoError(t, err)
	available, err := ttt.EmptyCellsFromToken("xo x o   ")
	require.NoError(t, err)

	c, err := p.Play(cells, available)
	require.NoError(t, err)
	assert.Contains(t, available, c)

	_, err = p.Play(cells, nil)
	assert.True(t, errors.Is(err, game.ErrInvariant))
}

func TestRandomPlayer(t *testing.T) {
	available := []game.Coord{{Row: 0, Col: 2}, {Row: 2, Col: 0}, {Row: 2, Col: 2}}
	a, b := NewRandomPlayer(7), NewRandomPlayer(7)
	seen := make(map[game.Coord]bool)
	for i := 0; i < 60; i++ {
		ca, err := a.Play(nil, available)
		require.NoError(t, err)
		cb, _ := b.Play(nil, available)
		assert.Equal(t, ca, cb, "same seed, same moves")
		assert.Contains(t, available, ca)
		seen[ca] = true
	}
	assert.Len(t, seen, 3)

	_, err := a.Play(nil, nil)
	assert.True(t, errors.Is(err, game.ErrInvariant))
}

func TestRun_StopsWithContext(t *testing.T) {
	r := newRig(t, 5, nil)
	a := r.agent(t, game.PlayerX, NewRandomPlayer(1))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	done := make(chan error, 2)
	go func() { done <- r.env.Run(ctx) }()
	go func() { done <- a.Run(ctx) }()
	for i := 0; i < 2; i++ {
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("Run did not return")
		}
	}
}
