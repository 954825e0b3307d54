package tateti

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Statistics keeps the win/loss/draw counts of every agent at each report.
type Statistics struct {
	Creation []string
	Wins     map[string][]float32
	Losses   map[string][]float32
	Draws    map[string][]float32
}

func makeStatistics() Statistics {
	return Statistics{
		Creation: make([]string, 0, 64),
		Wins:     make(map[string][]float32),
		Losses:   make(map[string][]float32),
		Draws:    make(map[string][]float32),
	}
}

func (s *Statistics) update(A *Agent) {
	aname := A.name

	if _, ok := s.Wins[aname]; !ok {
		s.Creation = append(s.Creation, aname)
	}

	s.Wins[aname] = append(s.Wins[aname], A.Wins)
	s.Losses[aname] = append(s.Losses[aname], A.Loss)
	s.Draws[aname] = append(s.Draws[aname], A.Draw)
}

// WriteCSV writes one column per agent and one row per report, each cell holding the win rate at that report.
func (s *Statistics) WriteCSV(out io.Writer) error {
	w := csv.NewWriter(out)
	if err := w.Write(s.Creation); err != nil {
		return errors.WithStack(err)
	}
	var records [][]string
	for i, agent := range s.Creation {
		for j, win := range s.Wins[agent] {
			for len(records) <= j {
				records = append(records, make([]string, len(s.Creation)))
			}
			var winRate float32
			if total := win + s.Losses[agent][j] + s.Draws[agent][j]; total > 0 {
				winRate = win / total
			}
			records[j][i] = strconv.FormatFloat(float64(winRate), 'f', 3, 32)
		}
	}
	if err := w.WriteAll(records); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// Dump writes the statistics as CSV into filename.
func (s *Statistics) Dump(filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()
	return s.WriteCSV(f)
}
