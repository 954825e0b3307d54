// Package gif records played games as an animated GIF, one frame per board.
package gif

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"io"
	"math"

	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"github.com/tateti-rl/tateti/game"
	"github.com/tateti-rl/tateti/game/ttt"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/math/fixed"
)

var regular *truetype.Font

const (
	dpi             = 144.0
	fontsize        = 12.0
	lineheight      = 1.2
	dummyLongString = `Epoch 100000, Game Number: 10000`

	// centiseconds a final board stays on screen
	endDelay = 300
)

func init() {
	var err error
	if regular, err = truetype.Parse(gomono.TTF); err != nil {
		panic(err)
	}
}

var globPalette = color.Palette{
	color.Gray{0},
	color.Gray{253},
}

// Encoder draws each game.MetaState it is given as a frame: the board, the name of the game, the epoch and game
// number, and the winner once there is one. It satisfies tateti.OutputEncoder.
type Encoder struct {
	H, W int
	font.Drawer

	out *gif.GIF
	w   io.Writer

	maxH, maxW int
	padH, padW int
	dy         int
}

// NewEncoder writes to w on Flush. Frames are at most maxH by maxW pixels.
func NewEncoder(w io.Writer, maxH, maxW int) *Encoder {
	face := truetype.NewFace(regular, &truetype.Options{
		Size:    fontsize,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})
	enc := &Encoder{
		maxH: maxH,
		maxW: maxW,
		padH: 10,
		padW: 10,
		dy:   int(math.Ceil(fontsize * lineheight * dpi / 72)),

		Drawer: font.Drawer{Src: image.Black, Face: face},
		out:    &gif.GIF{LoopCount: -1},
		w:      w,
	}
	enc.size()
	return enc
}

// every frame has the same size: the board plus three lines of captions
func (enc *Encoder) size() {
	rows := 2*ttt.Side + 1
	border := ttt.LinesOf(make([]game.Colour, ttt.Cells))[0]
	w := maxInt(font.MeasureString(enc.Face, border).Ceil(), font.MeasureString(enc.Face, dummyLongString).Ceil()) + 2*enc.padW
	h := (rows+3)*enc.dy + 2*enc.padH

	if w >= enc.maxW {
		w, enc.padW = enc.maxW, 0
	}
	if h >= enc.maxH {
		h, enc.padH = enc.maxH, 0
	}
	enc.W, enc.H = w, h
}

func (enc *Encoder) Encode(ms game.MetaState) error {
	cells := ms.Cells()
	if len(cells) != ttt.Cells {
		return errors.Wrapf(game.ErrInvariant, "cannot draw a board of %d cells", len(cells))
	}

	im := image.NewPaletted(image.Rect(0, 0, enc.W, enc.H), globPalette)
	draw.Draw(im, im.Bounds(), image.White, image.Point{}, draw.Src)
	enc.Dst = im

	y := enc.padH + enc.dy
	line := func(s string) {
		enc.Dot = fixed.P(enc.padW, y)
		enc.DrawString(s)
		y += enc.dy
	}
	for _, s := range ttt.LinesOf(cells) {
		line(s)
	}
	line(ms.Name())
	line(fmt.Sprintf("Epoch %d, Game Number: %d", ms.Epoch(), ms.GameNumber()))

	var delay int
	if ended, winner := ms.Ended(); ended {
		delay = endDelay
		if winner == game.NoPlayer {
			line("Draw")
		} else {
			line(fmt.Sprintf("Winner: %s", winner.Sym()))
		}
	}
	enc.out.Image = append(enc.out.Image, im)
	enc.out.Delay = append(enc.out.Delay, delay)
	return nil
}

// Frames is the number of boards encoded so far.
func (enc *Encoder) Frames() int { return len(enc.out.Image) }

// Flush writes the animation. It does nothing if no frame has been encoded.
func (enc *Encoder) Flush() error {
	if len(enc.out.Image) == 0 {
		return nil
	}
	return errors.WithStack(gif.EncodeAll(enc.w, enc.out))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
