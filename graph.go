package tateti

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/awalterschulze/gographviz"
	"github.com/pkg/errors"
	"github.com/tateti-rl/tateti/game"
	"github.com/tateti-rl/tateti/game/ttt"
)

type dotNode struct {
	Move   string
	Player game.Player
	Value  string
	board  []game.Colour
}

func (n dotNode) State() string {
	var buf bytes.Buffer
	for i, c := range n.board {
		if i%ttt.Side == 0 {
			fmt.Fprint(&buf, "⎢ ")
		}
		fmt.Fprintf(&buf, "%s ", c)
		if (i+1)%ttt.Side == 0 {
			fmt.Fprint(&buf, "⎥<BR />")
		}
	}
	return buf.String()
}

// ToDot draws what the agent thinks of the board as a graphviz digraph: the board itself at the root, and one
// child per empty cell showing the board after p plays there, labelled with the value of that move.
func (a *Agent) ToDot(cells []game.Colour, p game.Player) (string, error) {
	q, err := a.Values(cells)
	if err != nil {
		return "", err
	}

	g := gographviz.NewGraph()
	if err = g.SetName("G"); err != nil {
		return "", errors.WithStack(err)
	}
	if err = g.SetDir(true); err != nil {
		return "", errors.WithStack(err)
	}

	var buf bytes.Buffer
	addNode := func(id string, n dotNode) error {
		buf.Reset()
		if err := tmpl.Execute(&buf, n); err != nil {
			return errors.WithStack(err)
		}
		attrs := map[string]string{
			"fontname": "Monaco",
			"shape":    "none",
			"label":    buf.String(),
		}
		return errors.WithStack(g.AddNode("G", id, attrs))
	}

	if err = addNode("root", dotNode{Move: "-", Player: p.Opponent(), Value: "-", board: cells}); err != nil {
		return "", err
	}
	for i, c := range cells {
		if c != game.None {
			continue
		}
		child := make([]game.Colour, len(cells))
		copy(child, cells)
		child[i] = game.Colour(p)

		id := fmt.Sprintf("m%d", i)
		n := dotNode{
			Move:   fmt.Sprintf("%v", game.Single(i).Coord(ttt.Side)),
			Player: p,
			Value:  fmt.Sprintf("%.4f", q[i]),
			board:  child,
		}
		if err = addNode(id, n); err != nil {
			return "", err
		}
		if err = g.AddEdge("root", id, true, nil); err != nil {
			return "", errors.WithStack(err)
		}
	}
	return g.String(), nil
}

const tmplRaw = `<
<TABLE BORDER="0" CELLBORDER="1" CELLSPACING="0">
<TR><TD>Move</TD><TD>{{.Move}}</TD></TR>
<TR><TD>Player</TD><TD>{{printf "%v" .Player}}</TD></TR>
<TR><TD>Value</TD><TD>{{.Value}}</TD></TR>
<TR><TD>State</TD><TD>{{.State}}</TD></TR>
</TABLE>
>
`

var tmpl *template.Template

func init() {
	tmpl = template.Must(template.New("name").Parse(tmplRaw))
}
