package authview

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func typeText(m Model, text string) Model {
	for _, r := range text {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(Model)
	}
	return m
}

func press(m Model, k tea.KeyType) (Model, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: k})
	return next.(Model), cmd
}

// runCmd executes cmd and feeds back the first outcome it produces.
func runCmd(t *testing.T, m Model, cmd tea.Cmd) (Model, tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msgs := []tea.Msg{cmd()}
	for len(msgs) > 0 {
		msg := msgs[0]
		msgs = msgs[1:]
		switch msg := msg.(type) {
		case tea.BatchMsg:
			for _, c := range msg {
				if c != nil {
					msgs = append(msgs, c())
				}
			}
		case outcomeMsg:
			next, cmd := m.Update(msg)
			return next.(Model), cmd
		}
	}
	t.Fatal("command produced no outcome")
	return m, nil
}

func newTestModel(t *testing.T, baseURL, route string, host any) Model {
	t.Helper()
	d, _ := testDeps(t, baseURL, host)
	r, err := ParseRoute(route)
	if err != nil {
		t.Fatal(err)
	}
	return NewModel(context.Background(), d, r, nil)
}

func TestModel_RendersScreen(t *testing.T) {
	m := newTestModel(t, "http://unused.invalid", RouteLoginEmail, nil)
	view := m.View()
	for _, want := range []string{"Log in", "Email", "Password", "browser mode", "ctrl+f: forgot password"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_TypingUpdatesForm(t *testing.T) {
	m := newTestModel(t, "http://unused.invalid", RouteSignupEmail, nil)
	m = typeText(m, "a@b.com")
	if got := m.form.Value(FieldEmail); got != "a@b.com" {
		t.Errorf("email = %q, want a@b.com", got)
	}
}

func TestModel_InvalidSubmitStaysLocal(t *testing.T) {
	stub, srv := newAPIStub(t)
	m := newTestModel(t, srv.URL, RouteSignupEmail, nil)
	m = typeText(m, "nope")

	m, cmd := press(m, tea.KeyEnter)
	if cmd != nil {
		t.Error("invalid submit should not start a request")
	}
	if !strings.Contains(m.View(), MsgInvalidEmail) {
		t.Errorf("view should show %q", MsgInvalidEmail)
	}
	if len(stub.Calls()) != 0 {
		t.Error("no request expected")
	}
}

func TestModel_SubmitNavigatesAndBack(t *testing.T) {
	stub, srv := newAPIStub(t)
	stub.on("POST", PathSignupOTP, http.StatusOK, `{}`)
	m := newTestModel(t, srv.URL, RouteSignupEmail, nil)
	m = typeText(m, "a@b.com")

	m, cmd := press(m, tea.KeyEnter)
	if !m.form.Busy() {
		t.Fatal("form should be busy while the request runs")
	}
	if _, again := press(m, tea.KeyEnter); again != nil {
		t.Error("second enter while busy should not start another request")
	}

	m, _ = runCmd(t, m, cmd)
	if got := m.Route().String(); got != "/auth/email-signup/verify?email=a%40b.com" {
		t.Fatalf("route = %q", got)
	}
	if m.history.Len() != 1 {
		t.Errorf("history len = %d, want 1", m.history.Len())
	}

	m, cmd = press(m, tea.KeyEsc)
	m, _ = runCmd(t, m, cmd)
	if m.Route().Path != RouteSignupEmail {
		t.Errorf("after back route = %s", m.Route())
	}
}

func TestModel_DropsStaleResults(t *testing.T) {
	m := newTestModel(t, "http://unused.invalid", RouteSignupEmail, nil)
	stale := outcomeMsg{gen: m.gen - 1, out: navigate(RouteForgotEmail, "")}

	next, _ := m.Update(stale)
	if next.(Model).Route().Path != RouteSignupEmail {
		t.Error("stale outcome should be ignored")
	}
}

func TestModel_AlertShownAndDismissed(t *testing.T) {
	alerts := make(chan string, 1)
	d, _ := testDeps(t, "http://unused.invalid", nil)
	m := NewModel(context.Background(), d, Route{Path: RouteSignupEmail}, alerts)

	next, cmd := m.Update(alertMsg{text: "Login successful! (Browser mode)"})
	m = next.(Model)
	if cmd == nil {
		t.Error("alert listener should be re-armed")
	}
	if !strings.Contains(m.View(), "Browser mode") {
		t.Error("alert should be rendered")
	}

	m, _ = press(m, tea.KeyEnter)
	if m.alert != "" {
		t.Error("enter should dismiss the alert")
	}
}

func TestModel_DeleteConfirmationModal(t *testing.T) {
	stub, srv := newAPIStub(t)
	stub.on("POST", PathValidatePassword, http.StatusOK, `{"valid":true}`)
	m := newTestModel(t, srv.URL, RouteDeleteAccount, &testHost{accessToken: "acc"})
	m = typeText(m, "pw")

	m, cmd := press(m, tea.KeyEnter)
	m, _ = runCmd(t, m, cmd)
	if m.modal == nil {
		t.Fatal("expected confirmation modal")
	}
	if !strings.Contains(m.View(), "Delete your account?") {
		t.Error("modal should be rendered")
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	m = next.(Model)
	if m.modal != nil {
		t.Error("modal should close on cancel")
	}
	m, _ = runCmd(t, m, cmd)
	if m.Route().Path != RouteDeleteAccount || m.form.Busy() {
		t.Errorf("cancel should stay idle on the screen, state %s", m.form.State)
	}
	if len(stub.Calls()) != 1 {
		t.Errorf("cancel must not delete, calls = %+v", stub.Calls())
	}
}

func TestModel_HandoffDeliveredQuits(t *testing.T) {
	m := newTestModel(t, "http://unused.invalid", RouteLoginEmail, nil)
	next, cmd := m.Update(outcomeMsg{gen: m.gen, out: Outcome{Kind: OutcomeHandoff, Delivered: true}})
	if cmd == nil || next.(Model).View() != "" {
		t.Error("delivered handoff should quit")
	}
}

func TestModel_ToggleSecrets(t *testing.T) {
	m := newTestModel(t, "http://unused.invalid", RouteLoginEmail, nil)
	m = typeText(m, "a@b.com")
	m, _ = press(m, tea.KeyTab)
	m = typeText(m, "hunter2")
	if strings.Contains(m.View(), "hunter2") {
		t.Error("password should be masked")
	}
	m, _ = press(m, tea.KeyCtrlP)
	if !strings.Contains(m.View(), "hunter2") {
		t.Error("password should be visible after ctrl+p")
	}
}

func TestModel_HealthProbeUpdatesStatus(t *testing.T) {
	m := newTestModel(t, "", RouteLoginEmail, nil)
	hm, _ := testHealthMonitor(t, func(string) error {
		return &TransportError{Err: errors.New("dial tcp 127.0.0.1:9: connection refused")}
	})
	hm.cfg.MaxFailures = 1
	m = m.WithHealth(hm)

	msg := m.checkHealth()()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd == nil {
		t.Error("expected the next probe to be scheduled")
	}
	if !strings.Contains(m.View(), "API unreachable (connection refused)") {
		t.Errorf("view should report the API down with the last error:\n%s", m.View())
	}

	next, cmd = m.Update(healthTickMsg{})
	if cmd == nil {
		t.Error("tick should start a probe")
	}
	_ = next
}

func TestModel_NoHealthMonitor(t *testing.T) {
	m := newTestModel(t, "", RouteLoginEmail, nil)
	if m.checkHealth() != nil {
		t.Error("probing should be off without a monitor")
	}
	next, cmd := m.Update(healthMsg{status: HealthDown})
	if cmd != nil {
		t.Error("no probe should be scheduled without a monitor")
	}
	_ = next
}
