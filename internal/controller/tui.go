package controller

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	m "rasterpass.dev/pkg/rasterpass/internal/model"
)

const recentShown = 6

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	actionStyle = map[m.Action]lipgloss.Style{
		m.ActionConvert:     lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		m.ActionPassthrough: lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		m.ActionKeep:        lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
	faintStyle = lipgloss.NewStyle().Faint(true)
)

// TUI implements UI using Bubble Tea for interactive display.
type TUI struct {
	output  io.Writer
	program *tea.Program
	done    chan struct{}
}

// NewTUI creates a new TUI writing to output.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output, done: make(chan struct{})}
}

type passStartMsg struct {
	total int
	gate  int
}

type encodeDoneMsg struct {
	name   string
	action m.Action
}

type summaryMsg struct {
	result m.Result
}

type passModel struct {
	total   int
	gate    int
	done    int
	bar     progress.Model
	recent  []string
	summary *m.Result
}

func newPassModel() passModel {
	return passModel{bar: progress.New(progress.WithDefaultGradient())}
}

func (passModel) Init() tea.Cmd {
	return nil
}

func (p passModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return p, tea.Quit
		}
	case tea.WindowSizeMsg:
		p.bar.Width = msg.Width - 4
	case passStartMsg:
		p.total = msg.total
		p.gate = msg.gate
	case encodeDoneMsg:
		line := actionStyle[msg.action].Render(fmt.Sprintf("%-12s", msg.action)) + " " + msg.name

		p.done++
		p.recent = append(p.recent, line)

		if len(p.recent) > recentShown {
			p.recent = p.recent[len(p.recent)-recentShown:]
		}
	case summaryMsg:
		p.summary = &msg.result
		return p, tea.Quit
	}

	return p, nil
}

func (p passModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("rasterpass") + "\n")

	if p.total > 0 {
		sb.WriteString(faintStyle.Render(fmt.Sprintf("%d asset(s), %d concurrent codec call(s)", p.total, p.gate)))
		sb.WriteString("\n")
		sb.WriteString(p.bar.ViewAs(float64(p.done)/float64(p.total)) + "\n\n")
	}

	for _, line := range p.recent {
		sb.WriteString(line + "\n")
	}

	if p.summary != nil {
		sb.WriteString("\n" + renderSummary(*p.summary))
	}

	return sb.String()
}

func renderSummary(result m.Result) string {
	counts := map[m.Action]int{}
	for _, d := range result.Decisions {
		counts[d.Action]++
	}

	return fmt.Sprintf(
		"converted %d, passthrough %d, kept %d\nrewrote %d artifact(s), composed %d map(s), updated %d document(s)\n",
		counts[m.ActionConvert], counts[m.ActionPassthrough], counts[m.ActionKeep],
		result.RewrittenArtifacts, result.ComposedMaps, result.MarkupUpdated,
	)
}

// Start launches the Bubble Tea program in the background.
func (t *TUI) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.program = tea.NewProgram(newPassModel(), tea.WithOutput(t.output))

	go func() {
		defer close(t.done)

		_, _ = t.program.Run()
	}()

	return nil
}

// Close stops the program and waits for it to unwind.
func (t *TUI) Close(_ context.Context) {
	if t.program == nil {
		return
	}

	t.program.Quit()
	<-t.done
}

// DisplayPlan renders the dry-run decisions as plain lines; the plan
// view has no progress to animate.
func (t *TUI) DisplayPlan(ctx context.Context, decisions []m.Decision, textLike int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var sb strings.Builder

	for _, d := range decisions {
		sb.WriteString(actionStyle[d.Action].Render(fmt.Sprintf("%-12s", d.Action)) + " " + d.OldName + "\n")
	}

	sb.WriteString(faintStyle.Render(fmt.Sprintf("%d raster asset(s), %d text-like artifact(s)", len(decisions), textLike)))
	sb.WriteString("\n")

	_, err := fmt.Fprint(t.output, sb.String())

	return err
}

// DisplayPassStart seeds the progress model.
func (t *TUI) DisplayPassStart(ctx context.Context, candidates, gate int) {
	if ctx.Err() != nil || t.program == nil {
		return
	}

	t.program.Send(passStartMsg{total: candidates, gate: gate})
}

// DisplayEncodeDone advances the progress model.
func (t *TUI) DisplayEncodeDone(ctx context.Context, name string, action m.Action) {
	if ctx.Err() != nil || t.program == nil {
		return
	}

	t.program.Send(encodeDoneMsg{name: name, action: action})
}

// DisplaySummary shows the final counts and ends the program.
func (t *TUI) DisplaySummary(ctx context.Context, result m.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if t.program == nil {
		_, err := fmt.Fprint(t.output, renderSummary(result))
		return err
	}

	t.program.Send(summaryMsg{result: result})

	return nil
}
