package authview

import (
	"context"
	"encoding/json"
	"strings"
)

const (
	msgSendCodeFailed  = "Failed to send verification code"
	msgInvalidCode     = "Invalid verification code"
	msgResendFailed    = "Failed to resend code"
	msgSetPasswordFail = "Failed to set password"
	msgCodeSent        = "Verification code sent!"
	msgEmailVerified   = "Email verified. Choose a password to finish signing up."
)

// signupEmailScreen starts email signup by requesting a verification code.
type signupEmailScreen struct {
	deps *Deps
}

func (s *signupEmailScreen) Route() Route        { return Route{Path: RouteSignupEmail} }
func (s *signupEmailScreen) Title() string       { return "Sign up with email" }
func (s *signupEmailScreen) Subtitle() string    { return "We'll email you a verification code." }
func (s *signupEmailScreen) Fields() []FieldSpec { return []FieldSpec{emailField} }

func (s *signupEmailScreen) Validate(v Values) *Failure {
	return firstFailure(v,
		required(MsgFillFields, FieldEmail),
		emailFormat(FieldEmail),
	)
}

func (s *signupEmailScreen) Submit(ctx context.Context, v Values) Outcome {
	email := strings.TrimSpace(v[FieldEmail])
	if err := s.deps.Client.SendSignupOTP(ctx, email); err != nil {
		return stay(s.deps.requestFailure("signup", err, msgSendCodeFailed, FieldEmail))
	}
	s.deps.Logger.Info("signup: code sent to %s", email)
	return navigate(RouteSignupVerify, email)
}

func (s *signupEmailScreen) Actions() []Action {
	return []Action{
		backAction("back to app", func(ctx context.Context, _ Values) Outcome {
			return s.deps.returnToHost(ctx)
		}),
		linkAction("ctrl+l", "log in instead", RouteLoginEmail),
	}
}

// signupVerifyScreen checks the emailed signup code.
type signupVerifyScreen struct {
	deps  *Deps
	email string
}

func (s *signupVerifyScreen) Route() Route        { return To(RouteSignupVerify, s.email) }
func (s *signupVerifyScreen) Title() string       { return "Verify your email" }
func (s *signupVerifyScreen) Subtitle() string    { return "Enter the code sent to " + s.email }
func (s *signupVerifyScreen) Fields() []FieldSpec { return []FieldSpec{codeField} }

func (s *signupVerifyScreen) Validate(v Values) *Failure {
	return required(MsgFillFields, FieldCode)(v)
}

func (s *signupVerifyScreen) Submit(ctx context.Context, v Values) Outcome {
	code := strings.TrimSpace(v[FieldCode])
	if err := s.deps.Client.VerifySignupOTP(ctx, s.email, code); err != nil {
		return stay(s.deps.requestFailure("signup verify", err, msgInvalidCode, FieldCode))
	}
	return navigate(RouteSignupPassword, s.email)
}

func (s *signupVerifyScreen) Actions() []Action {
	return []Action{
		backAction("back", historyBack),
		{Key: "ctrl+r", Label: "resend code", Run: s.resend},
	}
}

func (s *signupVerifyScreen) resend(ctx context.Context, _ Values) Outcome {
	if err := s.deps.Client.SendSignupOTP(ctx, s.email); err != nil {
		return stay(s.deps.requestFailure("signup resend", err, msgResendFailed))
	}
	s.deps.Gateway.ShowToast(msgCodeSent)
	return Outcome{Kind: OutcomeStay, Notice: msgCodeSent}
}

// signupPasswordScreen sets the password of a verified signup and hands the
// resulting token to the host.
type signupPasswordScreen struct {
	deps  *Deps
	email string
}

func (s *signupPasswordScreen) Route() Route     { return To(RouteSignupPassword, s.email) }
func (s *signupPasswordScreen) Title() string    { return "Create a password" }
func (s *signupPasswordScreen) Subtitle() string { return msgEmailVerified }

func (s *signupPasswordScreen) Fields() []FieldSpec {
	return []FieldSpec{
		passwordField(FieldPassword, "Password"),
		passwordField(FieldConfirm, "Confirm password"),
	}
}

func (s *signupPasswordScreen) Validate(v Values) *Failure {
	return firstFailure(v,
		required(MsgFillFields, FieldPassword, FieldConfirm),
		complexity(FieldPassword),
		matches(FieldPassword, FieldConfirm, MsgPasswordsMismatch, FieldPassword, FieldConfirm),
	)
}

func (s *signupPasswordScreen) Submit(ctx context.Context, v Values) Outcome {
	idToken := s.deps.Gateway.IDToken()
	if idToken != "" {
		s.deps.Logger.Info("signup: social account, setting password with id token")
	}

	resp, err := s.deps.Client.SetPassword(ctx, s.email, v[FieldPassword], idToken)
	if err != nil {
		return stay(s.deps.requestFailure("signup password", err, msgSetPasswordFail))
	}
	if resp.AccessToken == "" {
		s.deps.Logger.Warn("signup password: response carried no access token")
		return stay(fail(MsgNoAccessToken))
	}
	s.deps.Logger.Info("signup: password set (%s)", describeToken(resp.AccessToken))

	g := s.deps.Gateway
	d, err := g.NotifySignupSuccessWithEmail(ctx, resp.AccessToken, s.email)
	if err != nil {
		s.deps.Logger.Warn("signup: two-argument notification failed, sending payload: %v", err)
		payload, _ := json.Marshal(struct {
			AccessToken string `json:"access_token"`
			Email       string `json:"email"`
		}{resp.AccessToken, s.email})
		d = g.NotifySignupSuccess(ctx, string(payload))
	}
	return handoff(d)
}

func (s *signupPasswordScreen) Actions() []Action {
	return []Action{
		backAction("back", func(ctx context.Context, _ Values) Outcome {
			if s.deps.Gateway.IDToken() != "" {
				return s.deps.returnToHost(ctx)
			}
			return navigate(RouteSignupEmail, "")
		}),
	}
}
