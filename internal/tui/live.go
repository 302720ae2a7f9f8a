package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/arte/internal/report"
	"github.com/san-kum/arte/internal/sim"
)

const (
	barWidth        = 30
	historyCapacity = 600
)

type TickMsg time.Time

// Model steps one time node per tick and shows the growth of every fuel
// assembly. The assembly report replaces the graph at end of life.
type Model struct {
	ctx      context.Context
	runner   *sim.Runner
	interval time.Duration

	running bool
	done    bool
	err     error

	last      sim.NodeSample
	stepped   bool
	refGrowth []float64
	result    *sim.Result

	theme  Theme
	styles styles
}

func NewModel(ctx context.Context, runner *sim.Runner, s sim.Schedule, interval time.Duration) (Model, error) {
	if err := runner.Start(s); err != nil {
		return Model{}, err
	}
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return Model{
		ctx:       ctx,
		runner:    runner,
		interval:  interval,
		running:   true,
		refGrowth: make([]float64, 0, historyCapacity),
		theme:     ThemeCyberpunk,
		styles:    newStyles(ThemeCyberpunk),
	}, nil
}

// WithTheme returns a copy of m rendered with theme.
func (m Model) WithTheme(theme Theme) Model {
	m.theme = theme
	m.styles = newStyles(theme)
	return m
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "n":
			if !m.running {
				m.step()
			}
		case "t":
			m = m.WithTheme(nextTheme(m.theme))
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		if m.done {
			return m, nil
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) step() {
	if m.done {
		return
	}

	sample, err := m.runner.Step(m.ctx)
	if err != nil {
		m.err = err
		m.done = true
		return
	}
	m.last = sample
	m.stepped = true

	if ref := m.runner.Core().ReferenceAssembly(); ref != nil {
		if len(m.refGrowth) == historyCapacity {
			m.refGrowth = m.refGrowth[1:]
		}
		m.refGrowth = append(m.refGrowth, m.runner.Growth(ref))
	}

	if m.runner.Done() {
		m.result = m.runner.Finish()
		m.done = true
	}
}

// Done reports whether the schedule finished or failed.
func (m Model) Done() bool          { return m.done }
func (m Model) Err() error          { return m.err }
func (m Model) Result() *sim.Result { return m.result }

func (m Model) status() string {
	switch {
	case m.err != nil:
		return m.styles.fail.Render("FAILED")
	case m.done:
		return m.styles.ok.Render("END OF LIFE")
	case !m.running:
		return m.styles.warn.Render("PAUSED")
	default:
		return m.styles.ok.Render("RUNNING")
	}
}

func (m Model) View() string {
	var s strings.Builder
	st := m.styles

	s.WriteString(st.header.Render(strings.ToUpper(m.runner.Core().Name)) + "\n")
	s.WriteString(m.status() + "\n\n")

	if m.stepped {
		s.WriteString(st.label.Render("Cycle") + st.value.Render(fmt.Sprintf("%d", m.last.Cycle)) + "\n")
		s.WriteString(st.label.Render("Node") + st.value.Render(fmt.Sprintf("%d", m.last.Node)) + "\n")
		s.WriteString(st.label.Render("Power") + st.value.Render(fmt.Sprintf("%.0f%%", m.last.PowerFraction*100)) + "\n\n")
	}

	locations := m.runner.Locations()
	peak := 0.0
	for _, g := range m.last.Growth {
		peak = max(peak, g)
	}
	for i, loc := range locations {
		growth := 0.0
		if i < len(m.last.Growth) {
			growth = m.last.Growth[i]
		}
		frac := 0.0
		if peak > 0 {
			frac = growth / peak
		}
		s.WriteString(st.label.Render(loc) + ProgressBar(frac, barWidth, st.graph.UnsetPadding()) +
			st.value.Render(fmt.Sprintf(" %.4f cm", growth)) + "\n")
	}

	switch {
	case m.err != nil:
		s.WriteString("\n" + st.fail.Render(m.err.Error()) + "\n")
	case m.result != nil:
		s.WriteString("\n" + report.RenderTable(m.result.Rows) + "\n")
		if m.result.ReportErr != nil {
			s.WriteString(st.fail.Render(m.result.ReportErr.Error()) + "\n")
		}
	case len(m.refGrowth) > 1:
		caption := "Reference assembly growth (cm)"
		if ref := m.runner.Core().ReferenceAssembly(); ref != nil {
			caption = fmt.Sprintf("Assembly %s growth (cm)", ref.Location())
		}
		chart := asciigraph.Plot(m.refGrowth,
			asciigraph.Height(6),
			asciigraph.Width(50),
			asciigraph.Caption(caption))
		s.WriteString(st.graph.Render(chart) + "\n")
	}

	s.WriteString(st.help.Render("SPACE:Pause  N:Step  T:Theme  Q:Quit"))
	return st.panel.Render(s.String())
}
