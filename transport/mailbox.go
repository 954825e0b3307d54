// Package transport moves protocol messages between services over topics.
//
// Every subscription delivers into a Mailbox: a small buffer that never blocks the sender and never blocks the
// reader. When it is full the oldest message goes, since a newer snapshot always supersedes an older one.
package transport

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// DefaultCapacity is the number of messages a mailbox retains.
const DefaultCapacity = 4

// ErrClosed is returned by buses after Close.
var ErrClosed = errors.New("bus closed")

// Envelope is a payload along with the topic it was published on.
type Envelope struct {
	Topic   string
	Payload []byte
}

// Bus is a publish/subscribe channel.
type Bus interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	// Subscribe returns a mailbox receiving everything published on the topics from now on.
	Subscribe(ctx context.Context, topics ...string) (*Mailbox, error)
	io.Closer
}

// Mailbox is a bounded drop-oldest queue. Push and Poll never block.
type Mailbox struct {
	mu      sync.Mutex // serializes pushers, so that an eviction and the insert that caused it stay together
	ch      chan Envelope
	dropped uint64
}

// NewMailbox creates a mailbox retaining capacity messages. A capacity below 1 means DefaultCapacity.
func NewMailbox(capacity int) *Mailbox {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Mailbox{ch: make(chan Envelope, capacity)}
}

// Push enqueues e, evicting the oldest message if the mailbox is full. It reports whether something was evicted.
func (m *Mailbox) Push(e Envelope) (evicted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		select {
		case m.ch <- e:
			return evicted
		default:
		}
		select {
		case <-m.ch:
			m.dropped++
			evicted = true
		default:
		}
	}
}

// Poll returns the oldest message, if there is one.
func (m *Mailbox) Poll() (Envelope, bool) {
	select {
	case e := <-m.ch:
		return e, true
	default:
		return Envelope{}, false
	}
}

func (m *Mailbox) Len() int { return len(m.ch) }
func (m *Mailbox) Cap() int { return cap(m.ch) }

// Dropped is the number of messages evicted so far.
func (m *Mailbox) Dropped() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}
