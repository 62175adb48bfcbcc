// Package logging builds the process logger from the logging settings.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// New builds a logger writing to w. Format "json" uses the production
// encoder, "text" a development console encoder that is colored when w is a
// terminal.
func New(w io.Writer, level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging level: %w", err)
	}

	var enc zapcore.Encoder
	switch format {
	case "json":
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case "text", "":
		ec := zap.NewDevelopmentEncoderConfig()
		if isTerminal(w) {
			ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		enc = zapcore.NewConsoleEncoder(ec)
	default:
		return nil, fmt.Errorf("logging format %q: want json or text", format)
	}

	opts := []zap.Option{zap.ErrorOutput(zapcore.AddSync(os.Stderr))}
	if lvl <= zapcore.DebugLevel {
		opts = append(opts, zap.AddCaller())
	}
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), lvl), opts...), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
