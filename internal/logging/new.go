package logging

import (
	"fmt"
	"io"
)

// New builds the logger selected by format: "text" writes slog lines to w,
// "zap" writes JSON through zap's production config. The returned flush
// function must be called before exit.
func New(format, level string, w io.Writer) (Logger, func() error, error) {
	switch format {
	case "zap":
		z, err := NewZapProduction(level)
		if err != nil {
			return nil, nil, err
		}
		return z, z.Sync, nil
	case "text", "":
		lvl, err := ParseLevel(level)
		if err != nil {
			return nil, nil, err
		}
		return NewTextLogger(w, lvl), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", format)
	}
}
