package main

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/RaphaelK77/EthereumBlacklisting/internal/chain"
)

// exitCodeFor's own scenario tests exercise the wrapped-error dispatch §6
// relies on (errors.Is over a %w chain, not ==), so they read more like
// end-to-end scenarios than simple table comparisons; testify keeps the
// assertions readable the way the teacher's own preconf scenario tests do.
func TestExitCodeForPruned(t *testing.T) {
	err := fmt.Errorf("block 100: %w", chain.ErrPruned)
	assert.Equal(t, exitPruned, exitCodeFor(err), "a wrapped ErrPruned must map to the pruned exit code")
}

func TestExitCodeForNodeUnreachable(t *testing.T) {
	err := fmt.Errorf("%w: dial tcp refused", errNodeUnreachable)
	assert.Equal(t, exitNodeUnreachable, exitCodeFor(err), "a wrapped errNodeUnreachable must map to the node-unreachable exit code")
}

func TestExitCodeForGenericError(t *testing.T) {
	assert.Equal(t, exitInvalidArgument, exitCodeFor(errors.New("bad dataset index")), "an unrecognized error must fall back to the invalid-argument exit code")
}

func TestVerbosityOf(t *testing.T) {
	cases := []struct {
		name  string
		level int
		want  slog.Level
	}{
		{"0 maps to error", 0, slog.LevelError},
		{"1 maps to error", 1, slog.LevelError},
		{"2 maps to warn", 2, slog.LevelWarn},
		{"3 maps to info", 3, slog.LevelInfo},
		{"4 maps to debug", 4, slog.LevelDebug},
		{"5 clamps to debug", 5, slog.LevelDebug},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, verbosityOf(c.level))
		})
	}
}
