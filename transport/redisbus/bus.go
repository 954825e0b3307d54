// Package redisbus carries the message protocol over Redis pub/sub.
package redisbus

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/tateti-rl/tateti/transport"
)

// Bus is a transport.Bus over a Redis client. Each subscription runs one goroutine that moves messages from the
// Redis channel into the subscription's mailbox.
type Bus struct {
	client   *redis.Client
	capacity int
	logger   zerolog.Logger

	mu     sync.Mutex
	subs   []*redis.PubSub
	closed bool
	wg     sync.WaitGroup
}

// New wraps client. The bus owns the client from now on and closes it on Close.
func New(client *redis.Client, capacity int, logger zerolog.Logger) *Bus {
	return &Bus{
		client:   client,
		capacity: capacity,
		logger:   logger.With().Str("component", "redisbus").Logger(),
	}
}

// Dial connects to the Redis server at addr and checks that it answers.
func Dial(ctx context.Context, addr string, capacity int, logger zerolog.Logger) (*Bus, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "failed to reach redis at %s", addr)
	}
	return New(client, capacity, logger), nil
}

func (b *Bus) Publish(ctx context.Context, topic string, payload []byte) error {
	if b.isClosed() {
		return transport.ErrClosed
	}
	if err := b.client.Publish(ctx, topic, payload).Err(); err != nil {
		return errors.Wrapf(err, "failed to publish on %q", topic)
	}
	return nil
}

// Subscribe blocks until Redis confirms the subscription, so that nothing published after it returns is missed.
func (b *Bus) Subscribe(ctx context.Context, topics ...string) (*transport.Mailbox, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, transport.ErrClosed
	}

	ps := b.client.Subscribe(ctx, topics...)
	for range topics {
		if _, err := ps.Receive(ctx); err != nil {
			_ = ps.Close()
			return nil, errors.Wrapf(err, "failed to subscribe to %v", topics)
		}
	}
	b.subs = append(b.subs, ps)

	mb := transport.NewMailbox(b.capacity)
	ch := ps.Channel()
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for msg := range ch {
			if mb.Push(transport.Envelope{Topic: msg.Channel, Payload: []byte(msg.Payload)}) {
				b.logger.Debug().Str("topic", msg.Channel).Msg("mailbox full, dropped oldest")
			}
		}
	}()
	return mb, nil
}

func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	var errs error
	for _, ps := range subs {
		if err := ps.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	b.wg.Wait()
	if err := b.client.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs
}

func (b *Bus) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
