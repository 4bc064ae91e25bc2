// Package logsink wires go-ethereum's structured logger to a rotating,
// append-only file (§5: "The log file is append-only and is truncated
// only on fresh start, i.e. when no checkpoint is loaded"). Rotation itself
// is handled by gopkg.in/natefinch/lumberjack.v2; logsink only decides
// whether to truncate on open.
package logsink

import (
	"fmt"
	"log/slog"
	"os"

	gethlog "github.com/ethereum/go-ethereum/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the log sink.
type Options struct {
	Path       string // log file path
	FreshStart bool   // true when no checkpoint was loaded; truncates Path
	MaxSizeMB  int    // lumberjack MaxSize, megabytes
	MaxBackups int
	Verbosity  slog.Level
}

// Install truncates Path when opts.FreshStart is set, then points
// go-ethereum's default logger at a lumberjack-backed rotating file
// handler alongside the existing terminal handler, and returns a closer.
func Install(opts Options) (func() error, error) {
	if opts.FreshStart {
		if err := os.Truncate(opts.Path, 0); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("logsink: truncate %s: %w", opts.Path, err)
		}
	}

	rotator := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    maxOrDefault(opts.MaxSizeMB, 100),
		MaxBackups: maxOrDefault(opts.MaxBackups, 5),
		Compress:   true,
	}

	fileHandler := gethlog.NewTerminalHandlerWithLevel(rotator, opts.Verbosity, false)
	termHandler := gethlog.NewTerminalHandlerWithLevel(os.Stderr, opts.Verbosity, true)

	logger := gethlog.NewLogger(gethlog.MultiHandler(fileHandler, termHandler))
	gethlog.SetDefault(logger)

	return rotator.Close, nil
}

func maxOrDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
