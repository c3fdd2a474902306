package authview

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestSetupModel_Flow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	m := NewSetupModel(cfg, path)
	m.check = func(string) error { return errors.New("connection refused") }

	if m.url.Value() != "http://127.0.0.1:5001" {
		t.Errorf("default url input = %q", m.url.Value())
	}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlU})
	m = next.(SetupModel)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("https://id.example.com/")})
	m = next.(SetupModel)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(SetupModel)
	if !m.validating || cmd == nil {
		t.Fatal("enter should start the reachability check")
	}
	next, _ = m.Update(cmd())
	m = next.(SetupModel)
	if m.step != SetupStepSocket {
		t.Fatalf("step = %d, want socket step", m.step)
	}
	if m.err == nil || !strings.Contains(m.err.Error(), "continuing anyway") {
		t.Errorf("unreachable API should warn, got %v", m.err)
	}
	if cfg.APIURL != "https://id.example.com" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/tmp/authview.sock")})
	m = next.(SetupModel)
	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(SetupModel)
	next, _ = m.Update(cmd())
	m = next.(SetupModel)

	if !m.Done() {
		t.Fatal("setup should be done")
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.APIURL != "https://id.example.com" || loaded.HostSocket != "/tmp/authview.sock" {
		t.Errorf("saved config = %+v", loaded)
	}
}

func TestSetupModel_RequiresURL(t *testing.T) {
	m := NewSetupModel(DefaultConfig(), filepath.Join(t.TempDir(), "c.yaml"))
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlU})
	m = next.(SetupModel)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(SetupModel)
	if cmd != nil || m.err == nil {
		t.Error("empty URL should be rejected without a check")
	}
	if !strings.Contains(m.View(), "required") {
		t.Error("view should explain the URL is required")
	}
}
