package ttt

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
	"github.com/tateti-rl/tateti/game"
)

// Lines draws the board as bordered text rows, one string per line.
//
//	-------------
//	| x |   |   |
//	-------------
func (b *Board) Lines() []string { return LinesOf(b.cells) }

// LinesOf draws any board, such as one received as a token.
func LinesOf(cells []game.Colour) []string {
	return drawLines(cells, func(c game.Colour) string { return string(c.Glyph()) })
}

// Render writes the board to w, colouring the marks when w is a terminal that supports it.
func (b *Board) Render(w io.Writer) error {
	out := termenv.NewOutput(w)
	paint := func(c game.Colour) string {
		s := out.String(string(c.Glyph()))
		switch c {
		case game.Cross:
			s = s.Foreground(out.Color("1")).Bold()
		case game.Nought:
			s = s.Foreground(out.Color("4")).Bold()
		}
		return s.String()
	}
	for _, l := range drawLines(b.cells, paint) {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

func drawLines(cells []game.Colour, glyph func(game.Colour) string) []string {
	border := strings.Repeat("-", 4*Side+1)
	retVal := make([]string, 0, 2*Side+1)
	for i := 0; i < Side; i++ {
		retVal = append(retVal, border)
		var buf strings.Builder
		buf.WriteByte('|')
		for j := 0; j < Side; j++ {
			fmt.Fprintf(&buf, " %s |", glyph(cells[i*Side+j]))
		}
		retVal = append(retVal, buf.String())
	}
	return append(retVal, border)
}
