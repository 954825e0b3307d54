package transport

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Memory is an in-process Bus. Publishing copies the payload into the mailbox of every subscriber of the topic.
type Memory struct {
	mu       sync.RWMutex
	capacity int
	subs     map[string][]*Mailbox
	closed   bool
}

// NewMemory creates an in-process bus whose mailboxes retain capacity messages.
func NewMemory(capacity int) *Memory {
	return &Memory{capacity: capacity, subs: make(map[string][]*Mailbox)}
}

func (b *Memory) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	for _, mb := range b.subs[topic] {
		p := make([]byte, len(payload))
		copy(p, payload)
		mb.Push(Envelope{Topic: topic, Payload: p})
	}
	return nil
}

func (b *Memory) Subscribe(ctx context.Context, topics ...string) (*Mailbox, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	mb := NewMailbox(b.capacity)
	for _, t := range topics {
		b.subs[t] = append(b.subs[t], mb)
	}
	return mb, nil
}

func (b *Memory) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[string][]*Mailbox)
	return nil
}
