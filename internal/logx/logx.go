// Package logx builds the zerolog loggers the binaries hand down to every component.
package logx

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/tateti-rl/tateti/game"
)

// New returns a timestamped logger at the named level ("debug", "info", ...). An empty level means info.
// Terminals get the console format, everything else gets JSON lines.
func New(level string, w io.Writer) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		var err error
		if lvl, err = zerolog.ParseLevel(level); err != nil {
			return zerolog.Nop(), errors.Wrapf(game.ErrConfiguration, "log level %q: %v", level, err)
		}
	}
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}
