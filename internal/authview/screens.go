package authview

import (
	"context"
	"strings"

	"authview/bridge"
)

// Deps are the collaborators every screen controller shares.
type Deps struct {
	Client  *Client
	Gateway *bridge.Gateway
	Logger  *Logger
}

// entryRoutes maps a flow step that needs an email to its flow's entry.
var entryRoutes = map[string]string{
	RouteSignupVerify:   RouteSignupEmail,
	RouteSignupPassword: RouteSignupEmail,
	RouteLoginPassword:  RouteLoginEmail,
	RouteForgotVerify:   RouteForgotEmail,
	RouteForgotReset:    RouteForgotEmail,
}

// ScreenInfo describes a route for listings.
type ScreenInfo struct {
	Path        string
	Description string
	NeedsEmail  bool
}

// Screens lists every routable screen.
func Screens() []ScreenInfo {
	return []ScreenInfo{
		{RouteSignupEmail, "Sign up: enter email, receive a code", false},
		{RouteSignupVerify, "Sign up: enter the emailed code", true},
		{RouteSignupPassword, "Sign up: choose a password", true},
		{RouteLoginEmail, "Log in with email and password", false},
		{RouteLoginPassword, "Log in: password for a known email", true},
		{RouteForgotEmail, "Forgot password: request a reset code", false},
		{RouteForgotVerify, "Forgot password: enter the reset code", true},
		{RouteForgotReset, "Forgot password: choose a new password", true},
		{RouteChangePassword, "Change password (signed in)", false},
		{RouteDeleteAccount, "Delete account (signed in)", false},
	}
}

// Resolve returns the screen for r, applying redirects: "/" and unknown
// paths go to signup, and steps missing their email go to their flow's entry.
// The returned route is the one actually shown.
func (d *Deps) Resolve(r Route) (Screen, Route) {
	if entry, ok := entryRoutes[r.Path]; ok && strings.TrimSpace(r.Email) == "" {
		d.Logger.Info("route: %s without email, redirecting to %s", r.Path, entry)
		r = Route{Path: entry}
	}

	switch r.Path {
	case RouteSignupEmail:
		return &signupEmailScreen{deps: d}, r
	case RouteSignupVerify:
		return &signupVerifyScreen{deps: d, email: r.Email}, r
	case RouteSignupPassword:
		return &signupPasswordScreen{deps: d, email: r.Email}, r
	case RouteLoginEmail:
		return &loginScreen{deps: d, email: r.Email}, r
	case RouteLoginPassword:
		return &loginPasswordScreen{deps: d, email: r.Email}, r
	case RouteForgotEmail:
		return &forgotEmailScreen{deps: d}, r
	case RouteForgotVerify:
		return &forgotVerifyScreen{deps: d, email: r.Email}, r
	case RouteForgotReset:
		return &forgotResetScreen{deps: d, email: r.Email}, r
	case RouteChangePassword:
		return &changePasswordScreen{deps: d}, r
	case RouteDeleteAccount:
		return &deleteAccountScreen{deps: d}, r
	}

	if r.Path != RouteHome {
		d.Logger.Warn("route: unknown path %q, showing signup", r.Path)
	}
	return &signupEmailScreen{deps: d}, Route{Path: RouteSignupEmail}
}

// requestFailure converts a client error into a screen failure.
func (d *Deps) requestFailure(op string, err error, fallback string, fields ...string) *Failure {
	d.Logger.Warn("%s: %s: %v", op, DescribeError(err), err)
	return fail(UserMessage(err, fallback), fields...)
}

// returnToHost asks the host to navigate back, falling back to in-app
// history.
func (d *Deps) returnToHost(ctx context.Context) Outcome {
	fellBack := false
	d.Gateway.NavigateBack(ctx, func() { fellBack = true })
	if fellBack {
		return Outcome{Kind: OutcomeBack}
	}
	return Outcome{Kind: OutcomeExit}
}

// bearer reads the host access token for authenticated screens.
func (d *Deps) bearer(op string) (string, *Failure) {
	token := d.Gateway.AccessToken()
	if token == "" {
		d.Logger.Warn("%s: no access token from host", op)
		return "", fail(MsgUnauthenticated)
	}
	return token, nil
}

func navigate(path, email string) Outcome {
	return Outcome{Kind: OutcomeNavigate, Route: To(path, email)}
}

func stay(fl *Failure) Outcome {
	return Outcome{Kind: OutcomeStay, Failure: fl}
}

func backAction(label string, run func(ctx context.Context, v Values) Outcome) Action {
	return Action{Key: "esc", Label: label, Run: run}
}

func historyBack(context.Context, Values) Outcome {
	return Outcome{Kind: OutcomeBack}
}

func linkAction(key, label, path string) Action {
	return Action{Key: key, Label: label, Run: func(context.Context, Values) Outcome {
		return navigate(path, "")
	}}
}

var (
	emailField = FieldSpec{Name: FieldEmail, Label: "Email", Placeholder: "you@example.com", CharLimit: 254}
	codeField  = FieldSpec{Name: FieldCode, Label: "Verification code", Placeholder: "123456", CharLimit: 12}
)

func passwordField(name, label string) FieldSpec {
	return FieldSpec{Name: name, Label: label, Secret: true, CharLimit: 128}
}

// handoff reports a token handoff. A suppressed duplicate still means the
// host has the token.
func handoff(d bridge.Delivery) Outcome {
	return Outcome{
		Kind:      OutcomeHandoff,
		Delivered: d == bridge.Delivered || d == bridge.Suppressed,
	}
}
