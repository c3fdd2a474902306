package authview

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"authview/requestid"
)

func TestClient_SetsHeaders(t *testing.T) {
	var gotAuth, gotReqID, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get(requestid.Header)
		gotType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"valid":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second, nil)
	ctx := requestid.WithContext(context.Background(), "req-fixed")
	valid, err := c.ValidatePassword(ctx, "acc", "pw")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !valid {
		t.Error("expected valid=true")
	}
	if gotAuth != "Bearer acc" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReqID != "req-fixed" {
		t.Errorf("%s = %q, want req-fixed", requestid.Header, gotReqID)
	}
	if gotType != "application/json" {
		t.Errorf("Content-Type = %q", gotType)
	}
}

func TestClient_GeneratesRequestID(t *testing.T) {
	var gotReqID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReqID = r.Header.Get(requestid.Header)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL, time.Second, nil).SendSignupOTP(context.Background(), "a@b.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(gotReqID, "req-") {
		t.Errorf("request id = %q, want generated req- id", gotReqID)
	}
}

func TestClient_MethodsAndPaths(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
	}))
	defer srv.Close()
	c := NewClient(srv.URL, time.Second, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		call   func() error
		method string
		path   string
	}{
		{"change password", func() error { return c.ChangePassword(ctx, "t", "a", "b") }, "PUT", PathChangePassword},
		{"delete account", func() error { return c.DeleteAccount(ctx, "t", "pw") }, "DELETE", PathAccount},
		{"request reset", func() error { return c.RequestPasswordReset(ctx, "a@b.com") }, "POST", PathResetRequest},
		{"verify reset", func() error { return c.VerifyPasswordReset(ctx, "a@b.com", "1") }, "POST", PathResetVerify},
		{"confirm reset", func() error { return c.ConfirmPasswordReset(ctx, "a@b.com", "p") }, "POST", PathResetConfirm},
		{"verify otp", func() error { return c.VerifySignupOTP(ctx, "a@b.com", "1") }, "POST", PathSignupOTPVerify},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if method != tt.method || path != tt.path {
				t.Errorf("got %s %s, want %s %s", method, path, tt.method, tt.path)
			}
		})
	}
}

func TestClient_ErrorMessagePriority(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"auth0 error wins", `{"auth0_error":{"message":"A"},"message":"B","error":"C"}`, "A"},
		{"message before error", `{"message":"B","error":"C"}`, "B"},
		{"error last", `{"error":"C"}`, "C"},
		{"empty auth0 message skipped", `{"auth0_error":{},"message":"B"}`, "B"},
		{"no message", `{}`, ""},
		{"not json", `<html>502</html>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second, nil).Login(context.Background(), "a@b.com", "pw")
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %v", err)
			}
			if apiErr.Status != http.StatusBadRequest {
				t.Errorf("Status = %d", apiErr.Status)
			}
			if apiErr.Message != tt.want {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.want)
			}
		})
	}
}

func TestClient_MissingBaseURL(t *testing.T) {
	_, err := NewClient("", time.Second, nil).Login(context.Background(), "a@b.com", "pw")
	if !errors.Is(err, ErrAPIURLMissing) {
		t.Fatalf("expected ErrAPIURLMissing, got %v", err)
	}
}

func TestClient_Cancelled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewClient(srv.URL, time.Second, nil).SendSignupOTP(ctx, "a@b.com")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	var tErr *TransportError
	if errors.As(err, &tErr) {
		t.Error("cancellation should not be reported as a transport error")
	}
}

func TestClient_EmptySuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	tok, err := NewClient(srv.URL, time.Second, nil).Login(context.Background(), "a@b.com", "pw")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.AccessToken != "" {
		t.Errorf("AccessToken = %q, want empty", tok.AccessToken)
	}
}

func TestNewClient_Timeout(t *testing.T) {
	if c := NewClient("http://api.test", DefaultConfig().RequestTimeout(), nil); c.httpClient.Timeout != 0 {
		t.Errorf("default timeout = %s, want none", c.httpClient.Timeout)
	}
	if c := NewClient("http://api.test", -time.Second, nil); c.httpClient.Timeout != 0 {
		t.Errorf("negative timeout = %s, want none", c.httpClient.Timeout)
	}
	if c := NewClient("http://api.test", 5*time.Second, nil); c.httpClient.Timeout != 5*time.Second {
		t.Errorf("timeout = %s, want 5s", c.httpClient.Timeout)
	}
}
