package bridge

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []fakeWaiter
	added   chan struct{}
}

type fakeWaiter struct {
	at time.Time
	ch chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:   time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		added: make(chan struct{}, 64),
	}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.waiters = append(c.waiters, fakeWaiter{at: c.now.Add(d), ch: ch})
	select {
	case c.added <- struct{}{}:
	default:
	}
	return ch
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	kept := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.at.After(c.now) {
			w.ch <- c.now
			continue
		}
		kept = append(kept, w)
	}
	c.waiters = kept
}

// waitForTimer blocks until some goroutine has called After.
func (c *fakeClock) waitForTimer(t *testing.T) {
	t.Helper()
	select {
	case <-c.added:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a timer to be armed")
	}
}

// recordingHost implements every host capability and records calls.
type recordingHost struct {
	mu          sync.Mutex
	calls       []string
	accessToken string
	idToken     string
	failWith    error
	panicOn     string
}

func (h *recordingHost) record(method string, args ...string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.panicOn == method {
		panic("boom")
	}
	entry := method
	for _, a := range args {
		entry += " " + a
	}
	h.calls = append(h.calls, entry)
	return h.failWith
}

func (h *recordingHost) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

func (h *recordingHost) GetAccessToken() (string, error) {
	return h.accessToken, h.record(MethodGetAccessToken)
}
func (h *recordingHost) GetIDToken() (string, error) { return h.idToken, h.record(MethodGetIDToken) }
func (h *recordingHost) OnLoginSuccess(token string) error {
	return h.record(MethodOnLoginSuccess, token)
}
func (h *recordingHost) OnLoginSuccessWithEmail(token, email string) error {
	return h.record(MethodOnLoginSuccessWithEmail, token, email)
}
func (h *recordingHost) OnSignupSuccess(payload string) error {
	return h.record(MethodOnSignupSuccess, payload)
}
func (h *recordingHost) OnSignupSuccessWithEmail(token, email string) error {
	return h.record(MethodOnSignupSuccessWithEmail, token, email)
}
func (h *recordingHost) OnPasswordChanged() error   { return h.record(MethodOnPasswordChanged) }
func (h *recordingHost) OnAccountDeleted() error    { return h.record(MethodOnAccountDeleted) }
func (h *recordingHost) ShowToast(msg string) error { return h.record(MethodShowToast, msg) }
func (h *recordingHost) NavigateBack() error        { return h.record(MethodNavigateBack) }

// loginOnlyHost is an older host offering only the single-argument login
// callback and toasts.
type loginOnlyHost struct {
	tokens []string
}

func (h *loginOnlyHost) OnLoginSuccess(token string) error {
	h.tokens = append(h.tokens, token)
	return nil
}

func (h *loginOnlyHost) ShowToast(string) error { return errors.New("toast service down") }

// alertRecorder collects browser-mode alerts.
type alertRecorder struct {
	mu     sync.Mutex
	alerts []string
}

func (a *alertRecorder) alert(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, msg)
}

func (a *alertRecorder) All() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.alerts...)
}

// memLogger keeps log lines in memory.
type memLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *memLogger) add(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, args...))
}

func (l *memLogger) Info(format string, args ...interface{})  { l.add("INFO", format, args...) }
func (l *memLogger) Warn(format string, args ...interface{})  { l.add("WARN", format, args...) }
func (l *memLogger) Error(format string, args ...interface{}) { l.add("ERROR", format, args...) }
