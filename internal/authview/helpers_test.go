package authview

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"authview/bridge"
)

// apiCall is one request seen by the stub identity API.
type apiCall struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]string
}

// apiStub is a scripted identity API.
type apiStub struct {
	mu        sync.Mutex
	calls     []apiCall
	responses map[string]stubResponse
}

type stubResponse struct {
	status int
	body   string
}

func newAPIStub(t *testing.T) (*apiStub, *httptest.Server) {
	t.Helper()
	stub := &apiStub{responses: map[string]stubResponse{}}
	srv := httptest.NewServer(http.HandlerFunc(stub.serve))
	t.Cleanup(srv.Close)
	return stub, srv
}

func (a *apiStub) on(method, path string, status int, body string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.responses[method+" "+path] = stubResponse{status, body}
}

func (a *apiStub) serve(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	body := map[string]string{}
	_ = json.Unmarshal(data, &body)

	a.mu.Lock()
	a.calls = append(a.calls, apiCall{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization"), Body: body})
	resp, ok := a.responses[r.Method+" "+r.URL.Path]
	a.mu.Unlock()

	if !ok {
		resp = stubResponse{http.StatusNotFound, `{"error":"not found"}`}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	io.WriteString(w, resp.body)
}

func (a *apiStub) Calls() []apiCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]apiCall(nil), a.calls...)
}

// testHost is a native host offering every callback.
type testHost struct {
	mu          sync.Mutex
	calls       []string
	accessToken string
	idToken     string
	failWith    map[string]error
}

func (h *testHost) record(method string, args ...string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry := method
	for _, a := range args {
		entry += " " + a
	}
	h.calls = append(h.calls, entry)
	return h.failWith[method]
}

func (h *testHost) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

func (h *testHost) GetAccessToken() (string, error) { return h.accessToken, nil }
func (h *testHost) GetIDToken() (string, error)     { return h.idToken, nil }
func (h *testHost) OnLoginSuccessWithEmail(token, email string) error {
	return h.record(bridge.MethodOnLoginSuccessWithEmail, token, email)
}
func (h *testHost) OnSignupSuccess(payload string) error {
	return h.record(bridge.MethodOnSignupSuccess, payload)
}
func (h *testHost) OnSignupSuccessWithEmail(token, email string) error {
	return h.record(bridge.MethodOnSignupSuccessWithEmail, token, email)
}
func (h *testHost) OnPasswordChanged() error   { return h.record(bridge.MethodOnPasswordChanged) }
func (h *testHost) OnAccountDeleted() error    { return h.record(bridge.MethodOnAccountDeleted) }
func (h *testHost) ShowToast(msg string) error { return h.record(bridge.MethodShowToast, msg) }
func (h *testHost) NavigateBack() error        { return h.record(bridge.MethodNavigateBack) }

// alertLog collects browser-mode alerts.
type alertLog struct {
	mu     sync.Mutex
	alerts []string
}

func (a *alertLog) add(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, msg)
}

func (a *alertLog) All() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.alerts...)
}

// testDeps wires screens to baseURL and, when host is non-nil, to an
// attached host. Bridge waits are short so hostless tests stay fast.
func testDeps(t *testing.T, baseURL string, host any) (*Deps, *alertLog) {
	t.Helper()
	logger := NewLoggerAt(filepath.Join(t.TempDir(), "authview.log"))
	t.Cleanup(logger.Close)

	alerts := &alertLog{}
	gw := bridge.New(bridge.NewSlot(),
		bridge.WithLogger(logger),
		bridge.WithAlert(alerts.add),
		bridge.WithTimeouts(20*time.Millisecond, 20*time.Millisecond),
	)
	if host != nil {
		gw.Slot().AttachHost(host)
	}
	return &Deps{
		Client:  NewClient(baseURL, 5*time.Second, logger),
		Gateway: gw,
		Logger:  logger,
	}, alerts
}

// mount resolves a route and returns its screen and a fresh form.
func mount(t *testing.T, d *Deps, raw string) (Screen, *Form) {
	t.Helper()
	r, err := ParseRoute(raw)
	if err != nil {
		t.Fatal(err)
	}
	s, _ := d.Resolve(r)
	return s, FormFor(s)
}

func fill(f *Form, kv ...string) {
	for i := 0; i+1 < len(kv); i += 2 {
		f.Set(kv[i], kv[i+1])
	}
}

var errHostGone = errors.New("activity finished")
