// Package live streams played boards to websocket clients while training runs.
package live

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/tateti-rl/tateti/game"
	"github.com/tateti-rl/tateti/game/ttt"
	"github.com/tateti-rl/tateti/transport"
)

// Frame is what clients receive for every board.
type Frame struct {
	Name   string `json:"name"`
	Epoch  int    `json:"epoch"`
	Game   int    `json:"game"`
	Board  string `json:"board"`
	Ended  bool   `json:"ended"`
	Winner string `json:"winner,omitempty"`
}

var upgrader = websocket.Upgrader{} // use default options

// Encoder is an OutputEncoder and an http.Handler. Every client gets its own mailbox, so a slow client misses
// boards instead of holding up the games.
type Encoder struct {
	mu       sync.Mutex
	clients  map[*transport.Mailbox]struct{}
	capacity int
	poll     time.Duration
	logger   zerolog.Logger
}

// NewEncoder keeps up to capacity unsent boards per client.
func NewEncoder(capacity int, logger zerolog.Logger) *Encoder {
	return &Encoder{
		clients:  make(map[*transport.Mailbox]struct{}),
		capacity: capacity,
		poll:     20 * time.Millisecond,
		logger:   logger.With().Str("component", "live").Logger(),
	}
}

func (enc *Encoder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		enc.logger.Warn().Err(err).Msg("upgrade")
		return
	}
	defer c.Close()

	mb := transport.NewMailbox(enc.capacity)
	enc.mu.Lock()
	enc.clients[mb] = struct{}{}
	enc.mu.Unlock()
	defer func() {
		enc.mu.Lock()
		delete(enc.clients, mb)
		enc.mu.Unlock()
	}()

	// the client never talks; reading is how a closed connection is noticed
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	tick := time.NewTicker(enc.poll)
	defer tick.Stop()
	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case <-tick.C:
		}
		for e, ok := mb.Poll(); ok; e, ok = mb.Poll() {
			if err = c.WriteMessage(websocket.TextMessage, e.Payload); err != nil {
				enc.logger.Debug().Err(err).Msg("write")
				return
			}
		}
	}
}

func (enc *Encoder) Encode(ms game.MetaState) error {
	f := Frame{
		Name:  ms.Name(),
		Epoch: ms.Epoch(),
		Game:  ms.GameNumber(),
		Board: ttt.Serialize(ms.Cells()),
	}
	var winner game.Player
	if f.Ended, winner = ms.Ended(); f.Ended && winner != game.NoPlayer {
		f.Winner = winner.Sym()
	}
	b, err := json.Marshal(f)
	if err != nil {
		return errors.Wrap(game.ErrSerialization, err.Error())
	}

	enc.mu.Lock()
	defer enc.mu.Unlock()
	for mb := range enc.clients {
		mb.Push(transport.Envelope{Payload: b})
	}
	return nil
}

func (enc *Encoder) Flush() error { return nil }

// Clients is the number of connected clients.
func (enc *Encoder) Clients() int {
	enc.mu.Lock()
	defer enc.mu.Unlock()
	return len(enc.clients)
}
