package controller

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "rasterpass.dev/pkg/rasterpass/internal/model"
)

// SimpleUI implements UI using cobra Command's output writer.
type SimpleUI struct {
	cmd *cobra.Command
	mu  sync.Mutex
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context) error {
	return ctx.Err()
}

// Close finalizes the UI.
func (s *SimpleUI) Close(_ context.Context) {}

// DisplayPlan prints the planned action per raster candidate.
func (s *SimpleUI) DisplayPlan(ctx context.Context, decisions []m.Decision, textLike int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Raster Asset", "Action"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER})

	for _, d := range decisions {
		table.Append([]string{d.OldName, string(d.Action)})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total %d", len(decisions)),
		fmt.Sprintf("%d text-like", textLike),
	})
	table.Render()

	s.printf("\n%s", tableBuffer.String())

	return nil
}

// DisplayPassStart announces the encode phase.
func (s *SimpleUI) DisplayPassStart(ctx context.Context, candidates, gate int) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Processing %d raster asset(s), %d concurrent codec call(s)\n", candidates, gate)
}

// DisplayEncodeDone reports one finished candidate.
func (s *SimpleUI) DisplayEncodeDone(ctx context.Context, name string, action m.Action) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("  %-12s %s\n", action, name)
}

// DisplaySummary prints the pass result.
func (s *SimpleUI) DisplaySummary(ctx context.Context, result m.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	counts := map[m.Action]int{}
	for _, d := range result.Decisions {
		counts[d.Action]++
	}

	s.printf("Converted %d, passthrough %d, kept %d\n",
		counts[m.ActionConvert], counts[m.ActionPassthrough], counts[m.ActionKeep])
	s.printf("Rewrote %d artifact(s), composed %d source map(s), updated %d markup document(s)\n",
		result.RewrittenArtifacts, result.ComposedMaps, result.MarkupUpdated)

	return nil
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}
