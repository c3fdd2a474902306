package bridge

import (
	"fmt"
	"sort"
)

// Wire names of the host capabilities. They match the method names the
// native host exposes to the web layer.
const (
	MethodGetAccessToken           = "getAccessToken"
	MethodGetIDToken               = "getIdToken"
	MethodOnLoginSuccess           = "onLoginSuccess"
	MethodOnLoginSuccessWithEmail  = "onLoginSuccessWithEmail"
	MethodOnSignupSuccess          = "onSignupSuccess"
	MethodOnSignupSuccessWithEmail = "onSignupSuccessWithEmail"
	MethodOnPasswordChanged        = "onPasswordChanged"
	MethodOnAccountDeleted         = "onAccountDeleted"
	MethodShowToast                = "showToast"
	MethodNavigateBack             = "navigateBack"
)

// Optional host capabilities. A host implements any subset of these.
type (
	AccessTokenProvider interface {
		GetAccessToken() (string, error)
	}
	IDTokenProvider interface {
		GetIDToken() (string, error)
	}
	LoginHandler interface {
		OnLoginSuccess(token string) error
	}
	LoginWithEmailHandler interface {
		OnLoginSuccessWithEmail(token, email string) error
	}
	// SignupHandler is the legacy single-argument signup callback. Newer
	// hosts only implement SignupWithEmailHandler.
	SignupHandler interface {
		OnSignupSuccess(payload string) error
	}
	SignupWithEmailHandler interface {
		OnSignupSuccessWithEmail(token, email string) error
	}
	PasswordChangedHandler interface {
		OnPasswordChanged() error
	}
	AccountDeletedHandler interface {
		OnAccountDeleted() error
	}
	Toaster interface {
		ShowToast(message string) error
	}
	BackNavigator interface {
		NavigateBack() error
	}
)

// Capabilities is the resolved set of host methods. A nil field means the
// host does not offer that capability.
type Capabilities struct {
	AccessToken            func() (string, error)
	IDToken                func() (string, error)
	LoginSuccess           func(token string) error
	LoginSuccessWithEmail  func(token, email string) error
	SignupSuccess          func(payload string) error
	SignupSuccessWithEmail func(token, email string) error
	PasswordChanged        func() error
	AccountDeleted         func() error
	ShowToast              func(message string) error
	NavigateBack           func() error
}

// Negotiate resolves the optional methods of host into a Capabilities set.
// It is called once, when the host attaches.
func Negotiate(host any) Capabilities {
	var c Capabilities
	if host == nil {
		return c
	}
	if h, ok := host.(AccessTokenProvider); ok {
		c.AccessToken = h.GetAccessToken
	}
	if h, ok := host.(IDTokenProvider); ok {
		c.IDToken = h.GetIDToken
	}
	if h, ok := host.(LoginHandler); ok {
		c.LoginSuccess = h.OnLoginSuccess
	}
	if h, ok := host.(LoginWithEmailHandler); ok {
		c.LoginSuccessWithEmail = h.OnLoginSuccessWithEmail
	}
	if h, ok := host.(SignupHandler); ok {
		c.SignupSuccess = h.OnSignupSuccess
	}
	if h, ok := host.(SignupWithEmailHandler); ok {
		c.SignupSuccessWithEmail = h.OnSignupSuccessWithEmail
	}
	if h, ok := host.(PasswordChangedHandler); ok {
		c.PasswordChanged = h.OnPasswordChanged
	}
	if h, ok := host.(AccountDeletedHandler); ok {
		c.AccountDeleted = h.OnAccountDeleted
	}
	if h, ok := host.(Toaster); ok {
		c.ShowToast = h.ShowToast
	}
	if h, ok := host.(BackNavigator); ok {
		c.NavigateBack = h.NavigateBack
	}
	return c
}

// Names returns the wire names of the capabilities present, sorted.
func (c Capabilities) Names() []string {
	var names []string
	add := func(present bool, name string) {
		if present {
			names = append(names, name)
		}
	}
	add(c.AccessToken != nil, MethodGetAccessToken)
	add(c.IDToken != nil, MethodGetIDToken)
	add(c.LoginSuccess != nil, MethodOnLoginSuccess)
	add(c.LoginSuccessWithEmail != nil, MethodOnLoginSuccessWithEmail)
	add(c.SignupSuccess != nil, MethodOnSignupSuccess)
	add(c.SignupSuccessWithEmail != nil, MethodOnSignupSuccessWithEmail)
	add(c.PasswordChanged != nil, MethodOnPasswordChanged)
	add(c.AccountDeleted != nil, MethodOnAccountDeleted)
	add(c.ShowToast != nil, MethodShowToast)
	add(c.NavigateBack != nil, MethodNavigateBack)
	sort.Strings(names)
	return names
}

// Invoke dispatches a wire call to the matching capability. It is the host
// side of the socket transport.
func (c Capabilities) Invoke(method string, args []string) (string, error) {
	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}
	unsupported := fmt.Errorf("method %q not supported by host", method)

	switch method {
	case MethodGetAccessToken:
		if c.AccessToken != nil {
			return c.AccessToken()
		}
	case MethodGetIDToken:
		if c.IDToken != nil {
			return c.IDToken()
		}
	case MethodOnLoginSuccess:
		if c.LoginSuccess != nil {
			return "", c.LoginSuccess(arg(0))
		}
	case MethodOnLoginSuccessWithEmail:
		if c.LoginSuccessWithEmail != nil {
			return "", c.LoginSuccessWithEmail(arg(0), arg(1))
		}
	case MethodOnSignupSuccess:
		if c.SignupSuccess != nil {
			return "", c.SignupSuccess(arg(0))
		}
	case MethodOnSignupSuccessWithEmail:
		if c.SignupSuccessWithEmail != nil {
			return "", c.SignupSuccessWithEmail(arg(0), arg(1))
		}
	case MethodOnPasswordChanged:
		if c.PasswordChanged != nil {
			return "", c.PasswordChanged()
		}
	case MethodOnAccountDeleted:
		if c.AccountDeleted != nil {
			return "", c.AccountDeleted()
		}
	case MethodShowToast:
		if c.ShowToast != nil {
			return "", c.ShowToast(arg(0))
		}
	case MethodNavigateBack:
		if c.NavigateBack != nil {
			return "", c.NavigateBack()
		}
	}
	return "", unsupported
}

// remoteCapabilities builds a Capabilities set whose methods forward to call.
// Only the announced names are populated.
func remoteCapabilities(names []string, call func(method string, args ...string) (string, error)) Capabilities {
	var c Capabilities
	noValue := func(method string, args ...string) error {
		_, err := call(method, args...)
		return err
	}
	for _, name := range names {
		switch name {
		case MethodGetAccessToken:
			c.AccessToken = func() (string, error) { return call(MethodGetAccessToken) }
		case MethodGetIDToken:
			c.IDToken = func() (string, error) { return call(MethodGetIDToken) }
		case MethodOnLoginSuccess:
			c.LoginSuccess = func(token string) error { return noValue(MethodOnLoginSuccess, token) }
		case MethodOnLoginSuccessWithEmail:
			c.LoginSuccessWithEmail = func(token, email string) error {
				return noValue(MethodOnLoginSuccessWithEmail, token, email)
			}
		case MethodOnSignupSuccess:
			c.SignupSuccess = func(payload string) error { return noValue(MethodOnSignupSuccess, payload) }
		case MethodOnSignupSuccessWithEmail:
			c.SignupSuccessWithEmail = func(token, email string) error {
				return noValue(MethodOnSignupSuccessWithEmail, token, email)
			}
		case MethodOnPasswordChanged:
			c.PasswordChanged = func() error { return noValue(MethodOnPasswordChanged) }
		case MethodOnAccountDeleted:
			c.AccountDeleted = func() error { return noValue(MethodOnAccountDeleted) }
		case MethodShowToast:
			c.ShowToast = func(message string) error { return noValue(MethodShowToast, message) }
		case MethodNavigateBack:
			c.NavigateBack = func() error { return noValue(MethodNavigateBack) }
		}
	}
	return c
}
