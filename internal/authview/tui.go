package authview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Colors for the authview theme.
var (
	accentColor  = lipgloss.Color("#00d4aa")
	dimColor     = lipgloss.Color("#555555")
	errorColor   = lipgloss.Color("#ff5555")
	warningColor = lipgloss.Color("#ffaa00")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#aaaaaa"))
	flaggedStyle  = lipgloss.NewStyle().Foreground(errorColor)
	errStyle      = lipgloss.NewStyle().Foreground(errorColor)
	noticeStyle   = lipgloss.NewStyle().Foreground(accentColor)
	hostStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff00"))
	helpStyle     = lipgloss.NewStyle().Foreground(dimColor)
	buttonStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")).Background(lipgloss.Color("#333333")).Padding(0, 2)
	disabledStyle = lipgloss.NewStyle().Foreground(dimColor).Background(lipgloss.Color("#222222")).Padding(0, 2)
)

type outcomeMsg struct {
	gen int
	out Outcome
}

type alertMsg struct{ text string }

type healthMsg struct {
	status HealthStatus
	err    error
}

type healthTickMsg struct{}

// Model is the Bubble Tea model that hosts one auth screen at a time.
type Model struct {
	ctx     context.Context
	deps    *Deps
	alerts  <-chan string
	history History
	health  *HealthMonitor

	apiStatus HealthStatus
	apiErr    error

	route  Route
	screen Screen
	form   *Form
	inputs []textinput.Model
	focus  int
	gen    int // bumped on every screen change; stale results are dropped

	spinner     spinner.Model
	modal       *Modal
	alert       string
	showSecrets bool
	width       int
	height      int
	quitting    bool
}

// NewModel creates the TUI at start. Browser-mode alerts arrive on alerts.
func NewModel(ctx context.Context, deps *Deps, start Route, alerts <-chan string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(accentColor)

	m := Model{
		ctx:     ctx,
		deps:    deps,
		alerts:  alerts,
		spinner: sp,
	}
	return m.load(start)
}

// WithHealth enables background probing of the identity API. A nil monitor
// leaves probing off.
func (m Model) WithHealth(hm *HealthMonitor) Model {
	m.health = hm
	return m
}

// Route returns the route of the screen being shown.
func (m Model) Route() Route {
	return m.route
}

// load mounts the screen for r with a fresh form.
func (m Model) load(r Route) Model {
	screen, shown := m.deps.Resolve(r)
	m.route = shown
	m.screen = screen
	m.form = FormFor(screen)
	m.modal = nil
	m.focus = 0
	m.gen++

	fields := screen.Fields()
	m.inputs = make([]textinput.Model, len(fields))
	for i, spec := range fields {
		m.inputs[i] = m.newInput(spec)
	}
	if len(m.inputs) > 0 {
		m.inputs[0].Focus()
	}
	m.deps.Logger.Info("tui: showing %s", shown)
	return m
}

func (m Model) newInput(spec FieldSpec) textinput.Model {
	ti := textinput.New()
	ti.Prompt = "› "
	ti.Placeholder = spec.Placeholder
	ti.CharLimit = spec.CharLimit
	ti.SetValue(m.form.Value(spec.Name))
	if spec.Secret && !m.showSecrets {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	return ti
}

// Init starts cursor blinking, listens for alerts and runs the first API
// probe.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForAlert(m.alerts), m.checkHealth())
}

func (m Model) checkHealth() tea.Cmd {
	hm := m.health
	if hm == nil {
		return nil
	}
	return func() tea.Msg {
		status := hm.Check()
		return healthMsg{status: status, err: hm.LastError()}
	}
}

func waitForAlert(alerts <-chan string) tea.Cmd {
	if alerts == nil {
		return nil
	}
	return func() tea.Msg {
		text, ok := <-alerts
		if !ok {
			return nil
		}
		return alertMsg{text: text}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case alertMsg:
		m.alert = msg.text
		return m, waitForAlert(m.alerts)

	case healthMsg:
		m.apiStatus = msg.status
		m.apiErr = msg.err
		if m.health == nil {
			return m, nil
		}
		return m, tea.Tick(m.health.NextInterval(), func(time.Time) tea.Msg { return healthTickMsg{} })

	case healthTickMsg:
		return m, m.checkHealth()

	case outcomeMsg:
		if msg.gen != m.gen {
			m.deps.Logger.Debug("tui: dropping result for a screen no longer shown")
			return m, nil
		}
		return m.apply(msg.out)

	case spinner.TickMsg:
		if !m.form.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateInput(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	if m.alert != "" {
		switch key {
		case "enter", "esc", " ":
			m.alert = ""
		}
		return m, nil
	}

	if m.modal != nil {
		if key == "esc" {
			m.modal = nil
			return m, nil
		}
		for _, a := range m.modal.Actions {
			if a.Key == key {
				m.modal = nil
				return m.runAction(a)
			}
		}
		return m, nil
	}

	switch key {
	case "tab", "down":
		return m.moveFocus(1), nil
	case "shift+tab", "up":
		return m.moveFocus(-1), nil
	case "ctrl+p":
		return m.toggleSecrets(), nil
	case "enter":
		if m.focus < len(m.inputs)-1 {
			return m.moveFocus(1), nil
		}
		return m.submit()
	}

	for _, a := range m.screen.Actions() {
		if a.Key == key {
			return m.runAction(a)
		}
	}

	return m.updateInput(msg)
}

func (m Model) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if len(m.inputs) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	m.form.Set(m.screen.Fields()[m.focus].Name, m.inputs[m.focus].Value())
	return m, cmd
}

func (m Model) moveFocus(delta int) Model {
	if len(m.inputs) == 0 {
		return m
	}
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + len(m.inputs)) % len(m.inputs)
	m.inputs[m.focus].Focus()
	return m
}

func (m Model) toggleSecrets() Model {
	m.showSecrets = !m.showSecrets
	for i, spec := range m.screen.Fields() {
		if !spec.Secret {
			continue
		}
		if m.showSecrets {
			m.inputs[i].EchoMode = textinput.EchoNormal
		} else {
			m.inputs[i].EchoMode = textinput.EchoPassword
		}
	}
	return m
}

// submit validates on the loop and sends the request off it.
func (m Model) submit() (tea.Model, tea.Cmd) {
	v, ok := m.form.Prepare(m.screen)
	if !ok {
		m = m.focusFirstFlagged()
		return m, nil
	}
	return m, tea.Batch(m.spinner.Tick, m.run(m.screen.Submit, v))
}

func (m Model) runAction(a Action) (tea.Model, tea.Cmd) {
	v, ok := m.form.Begin()
	if !ok {
		return m, nil
	}
	return m, tea.Batch(m.spinner.Tick, m.run(a.Run, v))
}

func (m Model) run(fn func(context.Context, Values) Outcome, v Values) tea.Cmd {
	gen, ctx := m.gen, m.ctx
	return func() tea.Msg {
		return outcomeMsg{gen: gen, out: fn(ctx, v)}
	}
}

func (m Model) focusFirstFlagged() Model {
	for i, spec := range m.screen.Fields() {
		if m.form.Flagged(spec.Name) {
			return m.moveFocus(i - m.focus)
		}
	}
	return m
}

// apply acts on a screen outcome.
func (m Model) apply(out Outcome) (tea.Model, tea.Cmd) {
	m.form.Apply(out)

	switch out.Kind {
	case OutcomeNavigate:
		m.history.Push(m.route)
		m = m.load(out.Route)
		m.form.Notice = out.Notice
		return m, textinput.Blink

	case OutcomeBack:
		prev, ok := m.history.Pop()
		if !ok {
			m.deps.Logger.Info("tui: no earlier screen, exiting")
			m.quitting = true
			return m, tea.Quit
		}
		m = m.load(prev)
		return m, textinput.Blink

	case OutcomeExit:
		m.quitting = true
		return m, tea.Quit

	case OutcomeHandoff:
		if out.Delivered {
			m.quitting = true
			return m, tea.Quit
		}

	case OutcomeConfirm:
		m.modal = out.Modal
	}

	if out.Failure != nil {
		m = m.focusFirstFlagged()
	}
	return m, nil
}

// View renders the current screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	width := m.width
	if width < 40 {
		width = 80
	}
	height := m.height
	if height < 10 {
		height = 24
	}

	switch {
	case m.alert != "":
		return m.renderPopup(width, height, "Notice", m.alert, "enter: ok")
	case m.modal != nil:
		var keys []string
		for _, a := range m.modal.Actions {
			keys = append(keys, a.Key+": "+a.Label)
		}
		keys = append(keys, "esc: close")
		return m.renderPopup(width, height, m.modal.Title, m.modal.Body, wrapParts(keys, 50))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.screen.Title()))
	b.WriteString("\n")
	if sub := m.screen.Subtitle(); sub != "" {
		b.WriteString(labelStyle.Render(sub))
		b.WriteString("\n")
	}
	b.WriteString(m.renderHostStatus())
	b.WriteString("\n\n")

	if m.form.Notice != "" {
		b.WriteString(noticeStyle.Render("✓ " + m.form.Notice))
		b.WriteString("\n\n")
	}
	if m.form.Message != "" {
		b.WriteString(errStyle.Render("! " + m.form.Message))
		b.WriteString("\n\n")
	}

	for i, spec := range m.screen.Fields() {
		label := labelStyle.Render(spec.Label)
		if m.form.Flagged(spec.Name) {
			label = flaggedStyle.Render(spec.Label + " *")
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n\n")
	}

	if m.form.Busy() {
		b.WriteString(disabledStyle.Render(m.spinner.View() + " Working"))
	} else {
		b.WriteString(buttonStyle.Render("Continue"))
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render(m.helpLine()))

	popup := lipgloss.NewStyle().
		Width(60).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dimColor).
		Padding(1, 2).
		Render(b.String())
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, popup)
}

func (m Model) renderHostStatus() string {
	host := lipgloss.NewStyle().Foreground(warningColor).Render("○ browser mode")
	if m.deps.Gateway.Slot().Current().OK() {
		host = hostStyle.Render("● host attached")
	}
	switch m.apiStatus {
	case HealthDegraded:
		return host + "  " + lipgloss.NewStyle().Foreground(warningColor).Render("API probe failing"+m.apiErrSuffix())
	case HealthDown:
		return host + "  " + errStyle.Render("API unreachable"+m.apiErrSuffix())
	case HealthUnconfigured:
		return host + "  " + errStyle.Render("API URL not set")
	}
	return host
}

func (m Model) helpLine() string {
	parts := []string{"enter: continue", "tab: next field"}
	for _, spec := range m.screen.Fields() {
		if spec.Secret {
			parts = append(parts, "ctrl+p: show passwords")
			break
		}
	}
	for _, a := range m.screen.Actions() {
		parts = append(parts, fmt.Sprintf("%s: %s", a.Key, a.Label))
	}
	parts = append(parts, "ctrl+c: quit")
	return wrapParts(parts, 50)
}

// wrapParts joins help entries into lines no wider than width without
// splitting an entry.
func wrapParts(parts []string, width int) string {
	var lines []string
	line := ""
	for _, p := range parts {
		switch {
		case line == "":
			line = p
		case len(line)+2+len(p) > width:
			lines = append(lines, line)
			line = p
		default:
			line += "  " + p
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderPopup(width, height int, title, body, keys string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")
	b.WriteString(body)
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render(keys))

	popup := lipgloss.NewStyle().
		Width(56).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Padding(1, 2).
		Render(b.String())
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, popup)
}

// apiErrSuffix labels the last failed health probe, e.g. " (connection refused)".
func (m Model) apiErrSuffix() string {
	if m.apiErr == nil {
		return ""
	}
	return " (" + DescribeError(m.apiErr) + ")"
}
