package dqn

import (
	"bytes"
	"encoding/gob"
	"sort"

	"github.com/pkg/errors"
	"github.com/tateti-rl/tateti/game"
	"gorgonia.org/vecf32"
)

// Lookup is a tabular value model. States are single element vectors holding an integer index,
// which is what the integer phi produces.
type Lookup struct {
	Config
	rows map[int][]float32
}

func NewLookup(conf Config) *Lookup {
	return &Lookup{Config: conf, rows: make(map[int][]float32)}
}

func (t *Lookup) Conf() Config { return t.Config }

func (t *Lookup) index(state []float32) (int, error) {
	if t.rows == nil {
		return 0, errors.Wrap(game.ErrConfiguration, "lookup table used before construction")
	}
	if err := checkWidth("state", state, 1); err != nil {
		return 0, err
	}
	idx := int(state[0])
	if float32(idx) != state[0] || idx < 0 || idx >= t.States {
		return 0, errors.Wrapf(game.ErrInvariant, "state index %v outside [0, %d)", state[0], t.States)
	}
	return idx, nil
}

// Predict returns the row of the state. Unvisited states are worth 0 everywhere.
func (t *Lookup) Predict(state []float32) ([]float32, error) {
	idx, err := t.index(state)
	if err != nil {
		return nil, err
	}
	retVal := make([]float32, t.Actions)
	copy(retVal, t.rows[idx])
	return retVal, nil
}

// Fit moves the row of the state toward target by a fraction Alpha of the difference.
func (t *Lookup) Fit(state, target []float32) error {
	idx, err := t.index(state)
	if err != nil {
		return err
	}
	if err = checkWidth("target", target, t.Actions); err != nil {
		return err
	}
	row, ok := t.rows[idx]
	if !ok {
		row = make([]float32, t.Actions)
		t.rows[idx] = row
	}
	delta := make([]float32, t.Actions)
	copy(delta, target)
	vecf32.Sub(delta, row)
	vecf32.Scale(delta, float32(t.Alpha))
	vecf32.Add(row, delta)
	return nil
}

// Visited is the number of states with an entry.
func (t *Lookup) Visited() int { return len(t.rows) }

func (t *Lookup) Close() error { return nil }

// lookupGob lists the rows by ascending index, so that equal tables encode to equal bytes.
type lookupGob struct {
	Config
	Index []int
	Rows  [][]float32
}

func (t *Lookup) GobEncode() ([]byte, error) {
	g := lookupGob{Config: t.Config}
	for idx := range t.rows {
		g.Index = append(g.Index, idx)
	}
	sort.Ints(g.Index)
	for _, idx := range g.Index {
		g.Rows = append(g.Rows, t.rows[idx])
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(g); err != nil {
		return nil, errors.WithStack(err)
	}
	return buf.Bytes(), nil
}

func (t *Lookup) GobDecode(p []byte) error {
	var g lookupGob
	if err := gob.NewDecoder(bytes.NewReader(p)).Decode(&g); err != nil {
		return errors.WithStack(err)
	}
	if len(g.Index) != len(g.Rows) {
		return errors.Errorf("lookup table has %d indices for %d rows", len(g.Index), len(g.Rows))
	}
	t.Config = g.Config
	t.rows = make(map[int][]float32, len(g.Index))
	for i, idx := range g.Index {
		if len(g.Rows[i]) != t.Actions {
			return errors.Errorf("row %d has %d values, expected %d", idx, len(g.Rows[i]), t.Actions)
		}
		t.rows[idx] = g.Rows[i]
	}
	return nil
}
