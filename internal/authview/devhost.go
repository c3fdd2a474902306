package authview

import (
	"fmt"
	"io"
	"sync"

	"authview/bridge"
)

// DevHost is a development stand-in for the native host. It prints every
// callback and answers the token getters with fixed values.
type DevHost struct {
	mu          sync.Mutex
	out         io.Writer
	accessToken string
	idToken     string
}

// NewDevHost returns a host writing to out.
func NewDevHost(out io.Writer, accessToken, idToken string) *DevHost {
	return &DevHost{out: out, accessToken: accessToken, idToken: idToken}
}

func (h *DevHost) printf(format string, args ...interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintf(h.out, format+"\n", args...)
}

func (h *DevHost) GetAccessToken() (string, error) {
	h.printf("%s -> %s", bridge.MethodGetAccessToken, describeToken(h.accessToken))
	return h.accessToken, nil
}

func (h *DevHost) GetIDToken() (string, error) {
	h.printf("%s -> %s", bridge.MethodGetIDToken, describeToken(h.idToken))
	return h.idToken, nil
}

func (h *DevHost) OnLoginSuccess(token string) error {
	h.printf("%s(%s)", bridge.MethodOnLoginSuccess, describeToken(token))
	return nil
}

func (h *DevHost) OnLoginSuccessWithEmail(token, email string) error {
	h.printf("%s(%s, %s)", bridge.MethodOnLoginSuccessWithEmail, describeToken(token), email)
	return nil
}

func (h *DevHost) OnSignupSuccess(payload string) error {
	h.printf("%s(%s)", bridge.MethodOnSignupSuccess, payload)
	return nil
}

func (h *DevHost) OnSignupSuccessWithEmail(token, email string) error {
	h.printf("%s(%s, %s)", bridge.MethodOnSignupSuccessWithEmail, describeToken(token), email)
	return nil
}

func (h *DevHost) OnPasswordChanged() error {
	h.printf("%s()", bridge.MethodOnPasswordChanged)
	return nil
}

func (h *DevHost) OnAccountDeleted() error {
	h.printf("%s()", bridge.MethodOnAccountDeleted)
	return nil
}

func (h *DevHost) ShowToast(message string) error {
	h.printf("%s(%q)", bridge.MethodShowToast, message)
	return nil
}

func (h *DevHost) NavigateBack() error {
	h.printf("%s()", bridge.MethodNavigateBack)
	return nil
}
