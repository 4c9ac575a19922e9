// Package controller provides output adapters for displaying pass
// progress and results.
package controller

import (
	"context"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	m "rasterpass.dev/pkg/rasterpass/internal/model"
)

// UI is the interface the engine reports progress and results through.
// Implementations can use different output methods (simple text, TUI).
// Methods may be called from multiple goroutines during the encode
// phase and must be safe for concurrent use.
type UI interface {
	Start(ctx context.Context) error
	Close(ctx context.Context)
	DisplayPlan(ctx context.Context, decisions []m.Decision, textLike int) error
	DisplayPassStart(ctx context.Context, candidates, gate int)
	DisplayEncodeDone(ctx context.Context, name string, action m.Action)
	DisplaySummary(ctx context.Context, result m.Result) error
}

// IsTTY reports whether the file is an interactive terminal.
func IsTTY(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NewUI selects the TUI when the output is an interactive terminal and
// the plain printer otherwise.
func NewUI(cmd *cobra.Command, tty bool) UI {
	if tty {
		return NewTUI(cmd.OutOrStdout())
	}

	return NewSimpleUI(cmd)
}
