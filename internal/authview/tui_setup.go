package authview

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SetupStep enumerates the first-run setup wizard steps.
type SetupStep int

const (
	SetupStepURL SetupStep = iota
	SetupStepSocket
	SetupStepDone
)

// SetupModel is the Bubble Tea model for first-run configuration.
type SetupModel struct {
	step       SetupStep
	cfg        *Config
	cfgPath    string
	url        textinput.Model
	socket     textinput.Model
	check      func(string) error
	err        error
	validating bool
	width      int
	height     int
	done       bool
}

type serverValidateMsg struct{ err error }

type setupSavedMsg struct{ err error }

func setupInput(value, placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = "› "
	ti.Placeholder = placeholder
	ti.CharLimit = 256
	ti.SetValue(value)
	return ti
}

// NewSetupModel creates a setup wizard for first-run configuration. The URL
// defaults to the local dev API.
func NewSetupModel(cfg *Config, cfgPath string) SetupModel {
	url := cfg.APIURL
	if url == "" {
		url = "http://" + cfg.DevAPI.Addr
	}
	m := SetupModel{
		step:    SetupStepURL,
		cfg:     cfg,
		cfgPath: cfgPath,
		url:     setupInput(url, "https://id.example.com"),
		socket:  setupInput(cfg.HostSocket, filepath.Join(ConfigDir(), "host.sock")),
		check:   CheckServerReachable,
	}
	m.url.Focus()
	return m
}

// Init starts cursor blinking.
func (m SetupModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the setup wizard.
func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case serverValidateMsg:
		m.validating = false
		m.err = nil
		if msg.err != nil {
			m.err = fmt.Errorf("api check: %w (continuing anyway)", msg.err)
		}
		m.cfg.APIURL = strings.TrimRight(strings.TrimSpace(m.url.Value()), "/")
		m.step = SetupStepSocket
		m.url.Blur()
		return m, m.socket.Focus()

	case setupSavedMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("save config: %w", msg.err)
		}
		m.done = true
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.validating {
			return m, nil
		}
		if msg.String() == "enter" {
			return m.advance()
		}
	}

	var cmd tea.Cmd
	switch m.step {
	case SetupStepURL:
		m.url, cmd = m.url.Update(msg)
	case SetupStepSocket:
		m.socket, cmd = m.socket.Update(msg)
	}
	return m, cmd
}

// advance leaves the current step: the URL step probes the API first, the
// socket step saves the config.
func (m SetupModel) advance() (tea.Model, tea.Cmd) {
	switch m.step {
	case SetupStepURL:
		url := strings.TrimSpace(m.url.Value())
		if url == "" {
			m.err = fmt.Errorf("the identity API URL is required")
			return m, nil
		}
		m.validating = true
		m.err = nil
		check := m.check
		return m, func() tea.Msg {
			return serverValidateMsg{err: check(url)}
		}
	case SetupStepSocket:
		m.cfg.HostSocket = strings.TrimSpace(m.socket.Value())
		m.step = SetupStepDone
		return m, m.saveConfig
	}
	return m, nil
}

func (m SetupModel) saveConfig() tea.Msg {
	return setupSavedMsg{err: SaveConfig(m.cfg, m.cfgPath)}
}

// View renders the setup wizard.
func (m SetupModel) View() string {
	width := m.width
	if width < 40 {
		width = 80
	}
	height := m.height
	if height < 10 {
		height = 24
	}

	dimStyle := lipgloss.NewStyle().Foreground(dimColor)

	var b strings.Builder
	b.WriteString(titleStyle.Render("authview · First Run Setup"))
	b.WriteString("\n\n")

	if m.validating {
		b.WriteString(dimStyle.Render("Checking the identity API..."))
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, b.String())
	}

	switch m.step {
	case SetupStepURL:
		b.WriteString(labelStyle.Render("Identity API URL:"))
		b.WriteString("\n")
		b.WriteString(m.url.View())
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("Run `authview dev-api` for a local stub"))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("Enter: continue  ctrl+u: clear"))

	case SetupStepSocket:
		b.WriteString(labelStyle.Render("Host socket (optional, Enter to skip):"))
		b.WriteString("\n")
		b.WriteString(m.socket.View())
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("Native hosts attach here; without one, screens run in browser mode"))

	case SetupStepDone:
		b.WriteString(labelStyle.Render("Setup complete!"))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(fmt.Sprintf("Config saved to %s", m.cfgPath)))
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errStyle.Render(m.err.Error()))
	}

	popup := lipgloss.NewStyle().
		Width(56).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Padding(1, 2).
		Render(b.String())
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, popup)
}

// Done reports whether the setup wizard has completed.
func (m SetupModel) Done() bool {
	return m.done
}

// Config returns the configured Config after setup is complete.
func (m SetupModel) Config() *Config {
	return m.cfg
}
