// Package replay is the experience memory of the learning agent.
package replay

import (
	"github.com/tateti-rl/tateti/game"
	"golang.org/x/exp/rand"
)

// Transition is one step of experience. Boards are kept raw so that they can be encoded by whichever phi the
// agent uses when it learns from them.
type Transition struct {
	State     []game.Colour
	Action    game.Single
	Reward    float32
	NextState []game.Colour
	Terminal  bool
}

// Buffer is a bounded FIFO of transitions. Once full, every insertion evicts the oldest entry,
// no matter how recently that entry was sampled.
type Buffer struct {
	data  []Transition
	start int // index of the oldest entry
	size  int
}

// New creates a buffer holding at most capacity transitions. It panics if capacity is not positive.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		panic("replay buffer capacity must be positive")
	}
	return &Buffer{data: make([]Transition, capacity)}
}

// Remember appends t, evicting the oldest transition when the buffer is full.
func (b *Buffer) Remember(t Transition) {
	if b.size < len(b.data) {
		b.data[(b.start+b.size)%len(b.data)] = t
		b.size++
		return
	}
	b.data[b.start] = t
	b.start = (b.start + 1) % len(b.data)
}

func (b *Buffer) Len() int { return b.size }
func (b *Buffer) Cap() int { return len(b.data) }

// At returns the i-th oldest transition.
func (b *Buffer) At(i int) Transition { return b.data[(b.start+i)%len(b.data)] }

// All returns the contents, oldest first.
func (b *Buffer) All() []Transition {
	retVal := make([]Transition, b.size)
	for i := range retVal {
		retVal[i] = b.At(i)
	}
	return retVal
}

// Sample draws n distinct transitions uniformly at random. If fewer than n are held, all of them are returned
// in random order.
func (b *Buffer) Sample(r *rand.Rand, n int) []Transition {
	if n > b.size {
		n = b.size
	}
	idx := make([]int, b.size)
	for i := range idx {
		idx[i] = i
	}
	// partial Fisher-Yates: the first n slots end up as a uniform sample
	retVal := make([]Transition, n)
	for i := 0; i < n; i++ {
		j := i + r.Intn(b.size-i)
		idx[i], idx[j] = idx[j], idx[i]
		retVal[i] = b.At(idx[i])
	}
	return retVal
}

// Reset drops every transition.
func (b *Buffer) Reset() {
	for i := range b.data {
		b.data[i] = Transition{}
	}
	b.start, b.size = 0, 0
}
