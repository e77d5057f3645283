// Package tui renders the interactive batch view: the booking rows with
// live statuses, a progress bar, and start/stop controls.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/tnsops/bookingbot/pkg/booking"
	"github.com/tnsops/bookingbot/pkg/ledger"
	"github.com/tnsops/bookingbot/pkg/scheduler"
)

const refreshInterval = 200 * time.Millisecond

// Runner is the scheduler surface the UI drives.
type Runner interface {
	Start(ctx context.Context, records []booking.Record) (*scheduler.Summary, error)
	Stop()
	Busy() bool
}

// Theme holds the color scheme for the batch display.
type Theme struct {
	Title      lipgloss.Color
	Pending    lipgloss.Color
	Processing lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
	Hint       lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Title:      lipgloss.Color("#5FAFD7"), // light blue
	Pending:    lipgloss.Color("#9E9E9E"), // gray
	Processing: lipgloss.Color("#5FAFD7"), // light blue
	Success:    lipgloss.Color("#00D787"), // green
	Error:      lipgloss.Color("#FF005F"), // red
	Hint:       lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Title).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func (t Theme) statusStyle(status ledger.Status) lipgloss.Style {
	switch status {
	case ledger.StatusProcessing:
		return lipgloss.NewStyle().Foreground(t.Processing)
	case ledger.StatusDone:
		return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
	case ledger.StatusError:
		return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(t.Pending)
	}
}

// tickMsg triggers a ledger re-read while a batch runs.
type tickMsg time.Time

// batchDoneMsg carries the batch result back onto the UI loop.
type batchDoneMsg struct {
	summary *scheduler.Summary
	err     error
}

// model is the bubbletea model for a batch run.
type model struct {
	ctx      context.Context
	records  []booking.Record
	led      *ledger.Ledger
	runner   Runner
	progress progress.Model
	theme    Theme

	running  bool
	stopping bool
	summary  *scheduler.Summary
	err      error
	quitting bool
}

func newModel(ctx context.Context, records []booking.Record, led *ledger.Ledger, runner Runner) model {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)
	return model{
		ctx:      ctx,
		records:  records,
		led:      led,
		runner:   runner,
		progress: prog,
		theme:    defaultTheme,
	}
}

func (m model) Init() tea.Cmd {
	return m.progress.Init()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.running {
				m.runner.Stop()
			}
			m.quitting = true
			return m, tea.Quit

		case "enter":
			if m.running || m.summary != nil {
				return m, nil
			}
			m.running = true
			m.stopping = false
			return m, tea.Batch(m.startBatch(), tickCmd())

		case "s":
			if m.running && !m.stopping {
				m.stopping = true
				m.runner.Stop()
			}
			return m, nil
		}

	case tickMsg:
		if !m.running {
			return m, nil
		}
		// The ledger is re-read on every render; the tick only drives
		// the refresh cadence.
		return m, tickCmd()

	case batchDoneMsg:
		m.running = false
		m.summary = msg.summary
		m.err = msg.err
		return m, nil

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// startBatch runs the scheduler on its own goroutine. One press, one
// batch: the scheduler rejects overlap itself.
func (m model) startBatch() tea.Cmd {
	runner, ctx, records := m.runner, m.ctx, m.records
	return func() tea.Msg {
		summary, err := runner.Start(ctx, records)
		return batchDoneMsg{summary: summary, err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m model) renderContent() string {
	var b strings.Builder
	b.WriteString(m.theme.titleStyle().Render("Booking upload"))
	b.WriteString("\n\n")

	for _, r := range m.records {
		b.WriteString(m.renderRow(r))
		b.WriteByte('\n')
	}

	counts := m.led.Counts()
	total := counts.Pending + counts.Processing + counts.Done + counts.Error
	finished := counts.Done + counts.Error
	var pct float64
	if total > 0 {
		pct = float64(finished) / float64(total)
	}
	b.WriteString(fmt.Sprintf("\n%s %d/%d\n", m.progress.ViewAs(pct), finished, total))

	if m.summary != nil || m.err != nil {
		b.WriteString(m.renderSummary())
	}
	b.WriteString(m.renderHint())
	return b.String()
}

func (m model) renderRow(r booking.Record) string {
	if !r.Valid {
		label := m.theme.hintStyle().Render("invalid")
		return fmt.Sprintf("  row %-3d %-20s %s", r.RowNumber, truncate(r.Driver, 20), label)
	}
	status := m.led.Get(r.RowNumber)
	label := m.theme.statusStyle(status).Render(string(status))
	return fmt.Sprintf("  row %-3d %-20s %s → %s  %s",
		r.RowNumber, truncate(r.Driver, 20), r.From, r.To, label)
}

func (m model) renderSummary() string {
	if m.err != nil {
		style := lipgloss.NewStyle().Foreground(m.theme.Error).Bold(true)
		return style.Render(fmt.Sprintf("\n✗ Batch failed: %s\n", m.err))
	}
	s := m.summary
	if s.NothingToDo {
		return m.theme.hintStyle().Render("\nNothing to do: all records already done.\n")
	}
	style := lipgloss.NewStyle().Foreground(m.theme.Success).Bold(true)
	out := style.Render("\n✓ Batch finished") + "\n"
	out += fmt.Sprintf("  done %d, errors %d, stopped %d, skipped invalid %d\n",
		s.Done, s.Errored, s.Stopped, s.SkippedInvalid)
	return out
}

func (m model) renderHint() string {
	switch {
	case m.stopping && m.running:
		return m.theme.hintStyle().Render("\nStopping after the current wait slice...\n")
	case m.running:
		return m.theme.hintStyle().Render("\nPress s to stop, q to quit\n")
	default:
		return m.theme.hintStyle().Render("\nPress enter to start, q to quit\n")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}

// Run shows the batch UI and blocks until the user quits. The summary
// of the last completed batch is returned, if any.
func Run(ctx context.Context, records []booking.Record, led *ledger.Ledger, runner Runner) (*scheduler.Summary, error) {
	p := tea.NewProgram(newModel(ctx, records, led, runner))
	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("batch UI error: %w", err)
	}
	if m, ok := finalModel.(model); ok {
		return m.summary, m.err
	}
	return nil, nil
}
