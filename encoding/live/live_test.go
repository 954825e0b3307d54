package live

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tateti-rl/tateti/game"
	"github.com/tateti-rl/tateti/game/ttt"
)

type board struct{ *ttt.Board }

func (b board) Name() string    { return "live" }
func (b board) Epoch() int      { return 2 }
func (b board) GameNumber() int { return 7 }

func TestEncoder(t *testing.T) {
	enc := NewEncoder(4, zerolog.Nop())
	srv := httptest.NewServer(enc)
	defer srv.Close()

	b := board{ttt.TicTacToe(1)}
	require.NoError(t, enc.Encode(b), "no clients is fine")

	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return enc.Clients() == 1 }, 5*time.Second, 5*time.Millisecond)

	// Given: a connected client
	// When: the first row goes to whoever starts
	p := b.Turn()
	for _, mv := range []game.Coord{{Row: 0, Col: 0}, {Row: 1, Col: 0}, {Row: 0, Col: 1}, {Row: 1, Col: 1}, {Row: 0, Col: 2}} {
		require.NoError(t, b.Move(p, mv))
		p = p.Opponent()
	}
	require.NoError(t, enc.Encode(b))

	// Then: it receives the final board and the winner
	require.NoError(t, c.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, msg, err := c.ReadMessage()
	require.NoError(t, err)
	var f Frame
	require.NoError(t, json.Unmarshal(msg, &f))
	_, winner := b.Ended()
	assert.Equal(t, Frame{Name: "live", Epoch: 2, Game: 7, Board: b.Serialize(), Ended: true, Winner: winner.Sym()}, f)

	require.NoError(t, c.Close())
	assert.Eventually(t, func() bool { return enc.Clients() == 0 }, 5*time.Second, 5*time.Millisecond)
	assert.NoError(t, enc.Flush())
}
