package authview

import (
	"bytes"
	"context"
	"net"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"authview/bridge"
	"authview/internal/devapi"
)

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var codePattern = regexp.MustCompile(`code for (\S+): (\d{6})`)

// lastCode returns the most recent code the dev API printed for email.
func lastCode(t *testing.T, out *syncBuffer, email string) string {
	t.Helper()
	code := ""
	for _, m := range codePattern.FindAllStringSubmatch(out.String(), -1) {
		if m[1] == email {
			code = m[2]
		}
	}
	if code == "" {
		t.Fatalf("no code printed for %s:\n%s", email, out.String())
	}
	return code
}

func startDevAPI(t *testing.T) (*httptest.Server, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	logger := (&Logger{}).Mirror(out)
	tokens, err := devapi.NewIssuer("test-key", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(devapi.NewServer(devapi.NewStore(), tokens, logger))
	t.Cleanup(srv.Close)
	return srv, out
}

func submitAt(t *testing.T, d *Deps, raw string, kv ...string) (Outcome, *Form) {
	t.Helper()
	s, f := mount(t, d, raw)
	fill(f, kv...)
	return Submit(context.Background(), s, f), f
}

func TestScreensAgainstDevAPI(t *testing.T) {
	srv, out := startDevAPI(t)
	host := &testHost{}
	d, _ := testDeps(t, srv.URL, host)
	const email = "dev@example.com"

	o, f := submitAt(t, d, RouteSignupEmail, FieldEmail, email)
	if o.Kind != OutcomeNavigate || o.Route.Path != RouteSignupVerify {
		t.Fatalf("signup email: %+v (%s)", o, f.Message)
	}

	o, f = submitAt(t, d, o.Route.String(), FieldCode, lastCode(t, out, email))
	if o.Kind != OutcomeNavigate || o.Route.Path != RouteSignupPassword {
		t.Fatalf("signup verify: %+v (%s)", o, f.Message)
	}

	o, f = submitAt(t, d, o.Route.String(), FieldPassword, "Secret123!", FieldConfirm, "Secret123!")
	if o.Kind != OutcomeHandoff || !o.Delivered {
		t.Fatalf("signup password: %+v (%s)", o, f.Message)
	}
	calls := host.Calls()
	if len(calls) != 1 || !strings.HasPrefix(calls[0], bridge.MethodOnSignupSuccessWithEmail) {
		t.Fatalf("host calls = %v", calls)
	}
	token := strings.Fields(calls[0])[1]
	if info, err := InspectToken(token); err != nil || info.Email != email {
		t.Fatalf("token claims = %+v, %v", info, err)
	}
	host.accessToken = token

	o, f = submitAt(t, d, RouteChangePassword,
		FieldCurrent, "Wrong123!", FieldPassword, "Newer123!", FieldConfirm, "Newer123!")
	if o.Kind != OutcomeStay || f.Message != "Current password is incorrect" {
		t.Fatalf("change password with wrong current: %+v (%s)", o, f.Message)
	}

	o, f = submitAt(t, d, RouteChangePassword,
		FieldCurrent, "Secret123!", FieldPassword, "Newer123!", FieldConfirm, "Newer123!")
	if f.State == StateError {
		t.Fatalf("change password: %s", f.Message)
	}

	o, f = submitAt(t, d, RouteLoginEmail, FieldEmail, email, FieldPassword, "Secret123!")
	if o.Kind != OutcomeStay || f.Message != "Wrong email or password." {
		t.Fatalf("login with old password: %+v (%s)", o, f.Message)
	}

	o, _ = submitAt(t, d, RouteForgotEmail, FieldEmail, email)
	if o.Route.Path != RouteForgotVerify {
		t.Fatalf("forgot email: %+v", o)
	}
	o, _ = submitAt(t, d, o.Route.String(), FieldCode, lastCode(t, out, email))
	if o.Route.Path != RouteForgotReset {
		t.Fatalf("forgot verify: %+v", o)
	}
	o, f = submitAt(t, d, o.Route.String(), FieldPassword, "Reset123!", FieldConfirm, "Reset123!")
	if o.Route.Path != RouteLoginEmail {
		t.Fatalf("forgot reset: %+v (%s)", o, f.Message)
	}

	o, f = submitAt(t, d, RouteDeleteAccount, FieldPassword, "Reset123!")
	if o.Kind != OutcomeConfirm || o.Modal == nil {
		t.Fatalf("delete account: %+v (%s)", o, f.Message)
	}
	confirm := o.Modal.Actions[0]
	if confirm.Key != "y" {
		t.Fatalf("first modal action = %q, want y", confirm.Key)
	}
	confirm.Run(context.Background(), f.Values())

	o, f = submitAt(t, d, RouteLoginEmail, FieldEmail, email, FieldPassword, "Reset123!")
	if o.Kind != OutcomeStay || f.State != StateError {
		t.Fatalf("login after delete: %+v", o)
	}
}

func TestDevHost_OverSocket(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := NewLoggerAt(filepath.Join(t.TempDir(), "authview.log"))
	t.Cleanup(logger.Close)
	gw := bridge.New(bridge.NewSlot(), bridge.WithLogger(logger))
	go bridge.ServeHosts(ctx, ln, gw.Slot(), logger, time.Second)

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	out := &syncBuffer{}
	go bridge.ServeAsHost(ctx, conn, NewDevHost(out, "acc-token", ""))

	if !gw.Acquire(ctx, 2*time.Second).OK() {
		t.Fatal("dev host never attached")
	}
	if got := gw.AccessToken(); got != "acc-token" {
		t.Errorf("AccessToken = %q", got)
	}
	if d := gw.NotifyLoginSuccess(ctx, "opaque", "a@b.com"); d != bridge.Delivered {
		t.Errorf("login delivery = %v", d)
	}
	gw.ShowToast("hello")

	text := out.String()
	for _, want := range []string{
		"getAccessToken -> opaque token len=9",
		"onLoginSuccessWithEmail(opaque token len=6, a@b.com)",
		`showToast("hello")`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("dev host output missing %q:\n%s", want, text)
		}
	}
}

func TestPrintRoutes(t *testing.T) {
	var buf bytes.Buffer
	if err := printRoutes(&buf); err != nil {
		t.Fatal(err)
	}
	text := buf.String()
	for _, s := range Screens() {
		if !strings.Contains(text, s.Path) {
			t.Errorf("routes output missing %s", s.Path)
		}
	}
	if !strings.Contains(text, "required") {
		t.Error("routes output should mark email-bound screens")
	}
}

func TestConfigSetAPIURL(t *testing.T) {
	dir := t.TempDir()
	old := flagConfigPath
	flagConfigPath = filepath.Join(dir, "config.yaml")
	t.Cleanup(func() { flagConfigPath = old })

	cmd := configCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"set-api-url", "http://localhost:9000/"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(flagConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIURL != "http://localhost:9000" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}

	show := configCmd()
	out.Reset()
	show.SetOut(&out)
	show.SetArgs([]string{"show"})
	if err := show.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "api_url: http://localhost:9000") {
		t.Errorf("config show output:\n%s", out.String())
	}
}

func TestListenHostSocket_RemovesStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.sock")
	ln, err := listenHostSocket(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := listenHostSocket(path); err == nil {
		t.Error("second listener on a live socket should fail")
	}
	ln.Close()

	ln, err = listenHostSocket(path)
	if err != nil {
		t.Fatalf("listen after close: %v", err)
	}
	ln.Close()
}
