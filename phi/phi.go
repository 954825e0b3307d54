// Package phi holds the state encoders: the transforms from a raw board to what the value models consume.
package phi

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/tateti-rl/tateti/game"
	"gorgonia.org/vecf32"
)

// Registry names.
const (
	IdentityName = "identity"
	ScaledName   = "scaled"
	IntegerName  = "integer"
)

// Encoder maps a board to a feature vector. Encoders hold only their configuration, so they are safe to share.
type Encoder interface {
	Encode(cells []game.Colour) []float32
	// Dims is the length of the vectors returned by Encode.
	Dims() int
	Config() Config
}

// Config is everything needed to rebuild an encoder.
type Config struct {
	Name     string
	Cells    int
	Min, Max float32
}

// DefaultConf is the configuration of the named encoder for a board of the given number of cells.
// The scaled encoder maps the range of cell values onto [0, 1].
func DefaultConf(name string, cells int) Config {
	return Config{
		Name:  name,
		Cells: cells,
		Min:   float32(game.Cross),
		Max:   float32(game.Nought),
	}
}

var registry = map[string]func(Config) (Encoder, error){
	IdentityName: func(c Config) (Encoder, error) { return Identity{N: c.Cells}, nil },
	ScaledName:   func(c Config) (Encoder, error) { return NewScaled(c.Cells, c.Min, c.Max) },
	IntegerName:  func(c Config) (Encoder, error) { return Index{N: c.Cells}, nil },
}

// New builds the encoder described by conf.
func New(conf Config) (Encoder, error) {
	ctor, ok := registry[conf.Name]
	if !ok {
		return nil, errors.Wrapf(game.ErrConfiguration, "unknown phi %q (known: %v)", conf.Name, Names())
	}
	if conf.Cells <= 0 {
		return nil, errors.Wrapf(game.ErrConfiguration, "phi %q needs a positive cell count, got %d", conf.Name, conf.Cells)
	}
	return ctor(conf)
}

// ByName builds the named encoder with its default configuration.
func ByName(name string, cells int) (Encoder, error) { return New(DefaultConf(name, cells)) }

// Names lists the registered encoders.
func Names() []string {
	retVal := make([]string, 0, len(registry))
	for k := range registry {
		retVal = append(retVal, k)
	}
	sort.Strings(retVal)
	return retVal
}

// Identity returns the raw cell values.
type Identity struct{ N int }

func (e Identity) Encode(cells []game.Colour) []float32 {
	retVal := make([]float32, len(cells))
	for i, c := range cells {
		retVal[i] = float32(c)
	}
	return retVal
}

func (e Identity) Dims() int      { return e.N }
func (e Identity) Config() Config { return Config{Name: IdentityName, Cells: e.N} }

// Scaled maps cell values from [Min, Max] onto [0, 1].
type Scaled struct {
	N        int
	Min, Max float32
}

// NewScaled fails when the bounds are equal, since nothing can be scaled onto an empty range.
func NewScaled(cells int, min, max float32) (Scaled, error) {
	if min == max {
		return Scaled{}, errors.Wrapf(game.ErrConfiguration, "scaled phi with degenerate bounds [%v, %v]", min, max)
	}
	return Scaled{N: cells, Min: min, Max: max}, nil
}

func (e Scaled) Encode(cells []game.Colour) []float32 {
	retVal := Identity{N: e.N}.Encode(cells)
	vecf32.Trans(retVal, -e.Min)
	vecf32.Scale(retVal, 1/(e.Max-e.Min))
	return retVal
}

func (e Scaled) Dims() int { return e.N }
func (e Scaled) Config() Config {
	return Config{Name: ScaledName, Cells: e.N, Min: e.Min, Max: e.Max}
}

// Index reads the board as a base 3 number, cell 0 being the most significant digit.
// Empty cells are 0, crosses 1 and noughts 2.
type Index struct{ N int }

// Index returns the board's number in [0, 3^N).
func (e Index) Index(cells []game.Colour) int {
	var retVal int
	for _, c := range cells {
		retVal = retVal*3 + digit(c)
	}
	return retVal
}

// Encode wraps the index in a single element vector.
func (e Index) Encode(cells []game.Colour) []float32 { return []float32{float32(e.Index(cells))} }

func (e Index) Dims() int      { return 1 }
func (e Index) Config() Config { return Config{Name: IntegerName, Cells: e.N} }

// States is the number of distinct indices.
func (e Index) States() int {
	retVal := 1
	for i := 0; i < e.N; i++ {
		retVal *= 3
	}
	return retVal
}

func digit(c game.Colour) int {
	switch c {
	case game.Cross:
		return 1
	case game.Nought:
		return 2
	}
	return 0
}
