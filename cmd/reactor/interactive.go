package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/wippyai/plugin-reactor/reactor"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	readyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const maxEvents = 8

type waitRow struct {
	wait  Wait
	ready bool
}

type interactiveModel struct {
	err      error
	cancel   context.CancelFunc
	scenario *Scenario
	outcome  *Outcome
	rows     []waitRow
	events   []reactor.Event
	spinner  spinner.Model
	pending  int
	blocks   int
	done     bool
	quitting bool
}

type eventMsg reactor.Event

type readyMsg string

type doneMsg struct {
	err error
	out *Outcome
}

func newInteractiveModel(sc *Scenario, cancel context.CancelFunc) *interactiveModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	rows := make([]waitRow, len(sc.Waits))
	for i, w := range sc.Waits {
		rows[i] = waitRow{wait: w}
	}
	return &interactiveModel{
		cancel:   cancel,
		scenario: sc,
		rows:     rows,
		spinner:  sp,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.done {
				return m, tea.Quit
			}
			// The run goroutine reports back with a doneMsg once cancelled.
			m.quitting = true
			m.cancel()
		}

	case eventMsg:
		ev := reactor.Event(msg)
		m.pending = ev.Pending
		if ev.Type == reactor.EventBlock {
			m.blocks++
		}
		m.events = append(m.events, ev)
		if len(m.events) > maxEvents {
			m.events = m.events[len(m.events)-maxEvents:]
		}

	case readyMsg:
		for i := range m.rows {
			if m.rows[i].wait.Name == string(msg) {
				m.rows[i].ready = true
			}
		}

	case doneMsg:
		m.done = true
		m.outcome = msg.out
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Reactor"))
	b.WriteString(" ")
	b.WriteString(m.scenario.Name)
	b.WriteString(" ")
	b.WriteString(typeStyle.Render(m.scenario.Mode))
	if m.scenario.Timeout > 0 {
		b.WriteString(helpStyle.Render(fmt.Sprintf(" timeout %s", m.scenario.Timeout)))
	}
	b.WriteString("\n\n")

	for _, row := range m.rows {
		mark := m.spinner.View()
		if row.ready {
			mark = readyStyle.Render("✓")
		}
		fmt.Fprintf(&b, " %s %s %s\n", mark, nameStyle.Render(row.wait.Name), typeStyle.Render(describeWait(row.wait)))
	}

	fmt.Fprintf(&b, "\npending %d • blocks %d\n", m.pending, m.blocks)
	for _, ev := range m.events {
		b.WriteString(helpStyle.Render(fmt.Sprintf("  %-10s %v", ev.Type, ev.Key)))
		b.WriteString("\n")
	}

	switch {
	case m.err != nil:
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	case m.done && m.outcome != nil && m.outcome.TimedOut:
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("timed out"))
		b.WriteString("\n")
	case m.done:
		b.WriteString("\n")
		b.WriteString(readyStyle.Render("done"))
		b.WriteString("\n")
	case m.quitting:
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("cancelling..."))
		b.WriteString("\n")
	default:
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("q cancel"))
		b.WriteString("\n")
	}

	return b.String()
}

func describeWait(w Wait) string {
	switch w.Type {
	case WaitTimer:
		return "timer " + w.Duration.String()
	case WaitManual:
		return fmt.Sprintf("manual after %d", w.After)
	default:
		return w.Type
	}
}

// runInteractive runs sc while rendering reactor events. Observer callbacks
// happen on the run goroutine and are forwarded to the program as messages.
func runInteractive(ctx context.Context, sc *Scenario, log *zap.Logger, metrics *reactor.Metrics) (*Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newInteractiveModel(sc, cancel))

	rn := NewRunner(log, metrics, func(ev reactor.Event) {
		p.Send(eventMsg(ev))
	}).OnReady(func(name string) {
		p.Send(readyMsg(name))
	})

	result := make(chan doneMsg, 1)
	go func() {
		out, err := rn.Run(ctx, sc)
		result <- doneMsg{out: out, err: err}
		p.Send(doneMsg{out: out, err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-result
		return nil, fmt.Errorf("interactive: %w", err)
	}
	cancel()

	select {
	case res := <-result:
		return res.out, res.err
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("interactive: run did not stop after cancel")
	}
}
