// Package tui is a terminal front end over the same controller and presenter
// the web page uses.
package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/app"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/controller"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/presenter"
)

// Lifecycle is satisfied by *app.App.
type Lifecycle interface {
	Status() app.Status
	Subscribe(fn func(app.Status)) (unsubscribe func())
	Reload(ctx context.Context)
}

type resultsMsg []presenter.DisplayRecord

type statusMsg app.Status

type errMsg struct{ err error }

// Model is the bubbletea model for the search screen.
type Model struct {
	ctx        context.Context
	lifecycle  Lifecycle
	presenter  *presenter.Presenter
	controller *controller.Controller
	input      textinput.Model
	styles     styles

	results   []presenter.DisplayRecord
	status    app.Status
	lastQuery string
	lastGen   uint64
	err       error
	width     int
	height    int

	queryMu sync.Mutex
	latest  atomic.Uint64
}

func NewModel(ctx context.Context, q controller.Querier, l Lifecycle, f presenter.DateFormatter) *Model {
	ti := textinput.New()
	ti.Placeholder = "Search quotes"
	ti.Prompt = "> "
	ti.CharLimit = 256
	ti.Focus()

	p := presenter.New()
	return &Model{
		ctx:        ctx,
		lifecycle:  l,
		presenter:  p,
		controller: controller.New(q, p, f),
		input:      ti,
		styles:     newStyles(),
		status:     l.Status(),
	}
}

// Bind forwards presenter renders and lifecycle changes to send, normally
// (*tea.Program).Send.
func (m *Model) Bind(send func(tea.Msg)) (unbind func()) {
	unsubResults := m.presenter.Subscribe(func(records []presenter.DisplayRecord) {
		send(resultsMsg(records))
	})
	unsubStatus := m.lifecycle.Subscribe(func(st app.Status) {
		send(statusMsg(st))
	})
	return func() {
		unsubResults()
		unsubStatus()
	}
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.status.State == app.StateReady {
		m.lastGen = m.status.Generation
		cmds = append(cmds, m.submit(""))
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(msg.Width-8, 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+r":
			m.lifecycle.Reload(m.ctx)
			return m, nil
		case "enter":
			m.lastQuery = m.input.Value()
			return m, m.keyPress(controller.KeyEnter, m.lastQuery)
		}

	case resultsMsg:
		m.results = msg
		m.err = nil
		return m, nil

	case statusMsg:
		m.status = app.Status(msg)
		if m.status.State == app.StateReady && m.status.Generation != m.lastGen {
			m.lastGen = m.status.Generation
			return m, m.submit(m.lastQuery)
		}
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) keyPress(key, value string) tea.Cmd {
	return m.run(func() error {
		_, err := m.controller.KeyPress(m.ctx, key, value)
		return err
	})
}

func (m *Model) submit(value string) tea.Cmd {
	return m.run(func() error {
		return m.controller.Submit(m.ctx, value)
	})
}

// run executes queries one at a time. A query overtaken by a newer request
// before it starts is skipped, so the newest request always renders last.
func (m *Model) run(query func() error) tea.Cmd {
	seq := m.latest.Add(1)
	return func() tea.Msg {
		m.queryMu.Lock()
		defer m.queryMu.Unlock()
		if m.latest.Load() != seq {
			return nil
		}
		if err := query(); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Quote Search"))
	b.WriteString("\n")
	b.WriteString(m.styles.Input.Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(m.styles.StatusError.Render(m.err.Error()))
		b.WriteString("\n\n")
	}

	if len(m.results) == 0 && m.status.State == app.StateReady {
		b.WriteString(m.styles.Dim.Render("No quotes matching query."))
		b.WriteString("\n")
	}
	budget := m.height - 10
	for _, r := range m.results {
		item := m.renderRecord(r)
		if m.height > 0 {
			n := strings.Count(item, "\n") + 1
			if budget-n < 0 {
				b.WriteString(m.styles.Dim.Render("…"))
				b.WriteString("\n")
				break
			}
			budget -= n
		}
		b.WriteString(item)
		b.WriteString("\n")
	}

	b.WriteString(m.styles.Help.Render("enter search • ctrl+r reload • esc quit"))
	return b.String()
}

func (m *Model) renderRecord(r presenter.DisplayRecord) string {
	lines := make([]string, 0, len(r.Lines)+1)
	lines = append(lines, m.styles.Date.Render(r.DisplayDate))
	for _, l := range r.Lines {
		lines = append(lines, m.styles.Line.Render(l))
	}
	return m.styles.Item.Render(strings.Join(lines, "\n"))
}

func (m *Model) statusLine() string {
	st := m.status
	switch st.State {
	case app.StateReady:
		text := fmt.Sprintf("%d quotes from %s", st.Documents, st.Source)
		if st.Message != "" {
			text += " (last reload failed: " + st.Message + ")"
		}
		return m.styles.StatusReady.Render(text)
	case app.StateFailed:
		return m.styles.StatusError.Render("load failed: " + st.Message)
	default:
		return m.styles.StatusBusy.Render(st.State.String() + "…")
	}
}

// Run starts the program and blocks until the user quits or ctx ends.
func Run(ctx context.Context, q controller.Querier, l Lifecycle, f presenter.DateFormatter) error {
	m := NewModel(ctx, q, l, f)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	unbind := m.Bind(p.Send)
	defer unbind()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("running tui: %w", err)
	}
	return nil
}
