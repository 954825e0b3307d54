package transport

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(i int) Envelope { return Envelope{Topic: "t", Payload: []byte(fmt.Sprint(i))} }

func TestMailbox_DropsOldest(t *testing.T) {
	mb := NewMailbox(4)
	for i := 0; i < 7; i++ {
		evicted := mb.Push(env(i))
		assert.Equal(t, i >= 4, evicted, "push %d", i)
	}
	assert.Equal(t, 4, mb.Len())
	assert.Equal(t, uint64(3), mb.Dropped())

	for i := 3; i < 7; i++ {
		e, ok := mb.Poll()
		require.True(t, ok)
		assert.Equal(t, fmt.Sprint(i), string(e.Payload))
	}
	_, ok := mb.Poll()
	assert.False(t, ok, "an empty mailbox polls nothing and does not block")
}

func TestMailbox_DefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, NewMailbox(0).Cap())
	assert.Equal(t, 1, NewMailbox(1).Cap())
}

func TestMailbox_ConcurrentPushers(t *testing.T) {
	mb := NewMailbox(2)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				mb.Push(env(w*100 + i))
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, 2, mb.Len())
	assert.Equal(t, uint64(798), mb.Dropped())
}

func TestMemory_PublishSubscribe(t *testing.T) {
	ctx := context.Background()
	bus := NewMemory(4)

	a, err := bus.Subscribe(ctx, "env")
	require.NoError(t, err)
	b, err := bus.Subscribe(ctx, "x", "o")
	require.NoError(t, err)

	payload := []byte("hello")
	require.NoError(t, bus.Publish(ctx, "env", payload))
	require.NoError(t, bus.Publish(ctx, "o", []byte("move")))
	require.NoError(t, bus.Publish(ctx, "nobody", []byte("lost")))
	payload[0] = 'j'

	e, ok := a.Poll()
	require.True(t, ok)
	assert.Equal(t, Envelope{Topic: "env", Payload: []byte("hello")}, e, "payloads are copied")
	_, ok = a.Poll()
	assert.False(t, ok)

	e, ok = b.Poll()
	require.True(t, ok)
	assert.Equal(t, "o", e.Topic)

	require.NoError(t, bus.Close())
	assert.True(t, errors.Is(bus.Publish(ctx, "env", nil), ErrClosed))
	_, err = bus.Subscribe(ctx, "env")
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestMemory_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus := NewMemory(4)
	assert.Error(t, bus.Publish(ctx, "env", nil))
	_, err := bus.Subscribe(ctx, "env")
	assert.Error(t, err)
}
