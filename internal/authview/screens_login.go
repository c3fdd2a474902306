package authview

import (
	"context"
	"strings"
)

const msgWrongPassword = "Wrong password"

// login performs the shared login request and token handoff.
func (d *Deps) login(ctx context.Context, email, password string) Outcome {
	resp, err := d.Client.Login(ctx, email, password)
	if err != nil {
		return stay(d.requestFailure("login", err, msgWrongPassword, FieldPassword))
	}
	if resp.AccessToken == "" {
		d.Logger.Warn("login: response carried no access token")
		return stay(fail(MsgNoAccessToken))
	}
	d.Logger.Info("login: signed in (%s)", describeToken(resp.AccessToken))
	return handoff(d.Gateway.NotifyLoginSuccess(ctx, resp.AccessToken, email))
}

// loginScreen signs in with email and password.
type loginScreen struct {
	deps  *Deps
	email string
}

func (s *loginScreen) Route() Route     { return To(RouteLoginEmail, s.email) }
func (s *loginScreen) Title() string    { return "Log in" }
func (s *loginScreen) Subtitle() string { return "Welcome back." }

func (s *loginScreen) Fields() []FieldSpec {
	return []FieldSpec{emailField, passwordField(FieldPassword, "Password")}
}

// Initial prefills the email carried by the route.
func (s *loginScreen) Initial() Values {
	return Values{FieldEmail: s.email}
}

func (s *loginScreen) Validate(v Values) *Failure {
	return firstFailure(v,
		required(MsgFillFields, FieldEmail, FieldPassword),
		emailFormat(FieldEmail),
	)
}

func (s *loginScreen) Submit(ctx context.Context, v Values) Outcome {
	return s.deps.login(ctx, strings.TrimSpace(v[FieldEmail]), v[FieldPassword])
}

func (s *loginScreen) Actions() []Action {
	return []Action{
		backAction("back to app", func(ctx context.Context, _ Values) Outcome {
			return s.deps.returnToHost(ctx)
		}),
		linkAction("ctrl+f", "forgot password", RouteForgotEmail),
		linkAction("ctrl+n", "create account", RouteSignupEmail),
	}
}

// loginPasswordScreen signs in a known email with its password.
type loginPasswordScreen struct {
	deps  *Deps
	email string
}

func (s *loginPasswordScreen) Route() Route     { return To(RouteLoginPassword, s.email) }
func (s *loginPasswordScreen) Title() string    { return "Enter your password" }
func (s *loginPasswordScreen) Subtitle() string { return "Logging in as " + s.email }
func (s *loginPasswordScreen) Fields() []FieldSpec {
	return []FieldSpec{passwordField(FieldPassword, "Password")}
}

func (s *loginPasswordScreen) Validate(v Values) *Failure {
	return required(MsgFillFields, FieldPassword)(v)
}

func (s *loginPasswordScreen) Submit(ctx context.Context, v Values) Outcome {
	return s.deps.login(ctx, s.email, v[FieldPassword])
}

func (s *loginPasswordScreen) Actions() []Action {
	return []Action{
		backAction("back", historyBack),
		linkAction("ctrl+f", "forgot password", RouteForgotEmail),
	}
}
