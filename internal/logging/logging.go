package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

var ErrUnknownFormat = errors.New("unknown log format")

// ParseLevel parses debug, info, warn or error, case insensitive.
func ParseLevel(level string) (slog.Level, error) {
	var lvl slog.Level

	err := lvl.UnmarshalText([]byte(strings.TrimSpace(level)))
	if err != nil {
		return slog.LevelInfo, errors.Wrapf(err, "invalid log level %q", level)
	}

	return lvl, nil
}

// Init configures the global slog default with the given level and format.
// If w is nil, os.Stderr is used.
func Init(level slog.Level, format string, w ...io.Writer) error {
	var writer io.Writer = os.Stderr
	if len(w) > 0 && w[0] != nil {
		writer = w[0]
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler

	switch format {
	case FormatText, "":
		handler = slog.NewTextHandler(writer, opts)
	case FormatJSON:
		handler = slog.NewJSONHandler(writer, opts)
	default:
		return errors.Wrapf(ErrUnknownFormat, "%q, want %s or %s", format, FormatText, FormatJSON)
	}

	slog.SetDefault(slog.New(handler))

	return nil
}

// New returns a logger with a "component" attribute.
func New(component string) *slog.Logger {
	return slog.Default().With(slog.String("component", component))
}
