package dqn

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tateti-rl/tateti/game"
	G "gorgonia.org/gorgonia"
)

var state = []float32{
	0, 0.5, 1,
	0, 1, 0.5,
	0.5, 0.5, 0.5,
}

func TestSanity(t *testing.T) {
	conf := MLPConf(9, 9)
	d := NewNet(conf)
	if err := d.Init(); err != nil {
		t.Fatalf("%+v", err)
	}
	defer d.Close()
	t.Logf("Number of nodes: %d", len(d.g.AllNodes()))
	prog, _, err := G.Compile(d.g)
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("Requires %d bytes", prog.CPUMemReq())

	q, err := d.Predict(state)
	require.NoError(t, err)
	assert.Len(t, q, conf.Actions)
}

func TestFitReducesCost(t *testing.T) {
	conf := MLPConf(9, 9)
	conf.LearnRate = 0.05
	m, err := New(conf)
	require.NoError(t, err)
	d := m.(*Net)
	defer d.Close()

	target := []float32{1, 0, 0, 0, -1, 0, 0, 0, 0.5}
	_, err = d.Predict(state)
	require.NoError(t, err)

	require.NoError(t, d.Fit(state, target))
	first := d.Cost()
	for i := 0; i < 300; i++ {
		require.NoError(t, d.Fit(state, target))
	}
	assert.Less(t, d.Cost(), first)

	q, err := d.Predict(state)
	require.NoError(t, err)
	assert.InDelta(t, 1, q[0], 0.3)
	assert.InDelta(t, -1, q[4], 0.3)
}

func TestUninitialized(t *testing.T) {
	d := NewNet(MLPConf(9, 9))
	_, err := d.Predict(state)
	assert.True(t, errors.Is(err, game.ErrConfiguration))
	assert.True(t, errors.Is(d.Fit(state, state), game.ErrConfiguration))

	_, err = New(Config{Kind: MLP})
	assert.True(t, errors.Is(err, game.ErrConfiguration))
}

func TestWidthMismatch(t *testing.T) {
	m, err := New(MLPConf(9, 9))
	require.NoError(t, err)
	defer m.Close()
	_, err = m.Predict([]float32{1, 2})
	assert.True(t, errors.Is(err, game.ErrInvariant))
}

func TestEncodeDecode(t *testing.T) {
	conf := MLPConf(9, 9)
	d := NewNet(conf)
	if err := d.Init(); err != nil {
		t.Fatalf("%+v", err)
	}
	defer d.Close()

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(d); err != nil {
		t.Fatalf("Encoding Failure %v", err)
	}

	dec := gob.NewDecoder(&buf)
	d2 := NewNet(Config{})
	if err := dec.Decode(d2); err != nil {
		t.Fatalf("Decoding Failure %v", err)
	}
	defer d2.Close()

	dmodel := d.Model()
	d2model := d2.Model()
	require.Equal(t, len(dmodel), len(d2model))
	for i, n := range dmodel {
		assert.Equal(t, n.Value().Data(), d2model[i].Value().Data(), "%d - %v vs %v should have the same data", i, dmodel[i], d2model[i])
	}

	q1, err := d.Predict(state)
	require.NoError(t, err)
	q2, err := d2.Predict(state)
	require.NoError(t, err)
	assert.Equal(t, q1, q2)
}

func TestLookup(t *testing.T) {
	m, err := New(TableConf(27, 3))
	require.NoError(t, err)
	tab := m.(*Lookup)

	q, err := tab.Predict([]float32{5})
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0}, q)

	for i := 0; i < 100; i++ {
		require.NoError(t, tab.Fit([]float32{5}, []float32{1, 0, -1}))
	}
	q, err = tab.Predict([]float32{5})
	require.NoError(t, err)
	assert.InDelta(t, 1, q[0], 1e-3)
	assert.InDelta(t, -1, q[2], 1e-3)
	assert.Equal(t, 1, tab.Visited())

	_, err = tab.Predict([]float32{27})
	assert.True(t, errors.Is(err, game.ErrInvariant))
	_, err = tab.Predict([]float32{1.5})
	assert.True(t, errors.Is(err, game.ErrInvariant))

	p, err := tab.GobEncode()
	require.NoError(t, err)
	restored, err := Decode(tab.Conf(), p)
	require.NoError(t, err)
	q2, err := restored.Predict([]float32{5})
	require.NoError(t, err)
	assert.Equal(t, q, q2)
}

func TestDecodeUnknownKind(t *testing.T) {
	_, err := Decode(Config{Kind: "forest"}, nil)
	assert.True(t, errors.Is(err, game.ErrSerialization))
}
