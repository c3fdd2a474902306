package authview

import (
	"context"
	"strings"
)

const (
	msgResetRequestFailed = "Failed to send reset code"
	msgResetFailed        = "Failed to reset password"
	msgEnterCode          = "Please enter the verification code"
	msgResetDone          = "Password reset. Log in with your new password."
)

// forgotEmailScreen requests a password reset code.
type forgotEmailScreen struct {
	deps *Deps
}

func (s *forgotEmailScreen) Route() Route        { return Route{Path: RouteForgotEmail} }
func (s *forgotEmailScreen) Title() string       { return "Forgot password" }
func (s *forgotEmailScreen) Subtitle() string    { return "We'll email you a code to reset it." }
func (s *forgotEmailScreen) Fields() []FieldSpec { return []FieldSpec{emailField} }

func (s *forgotEmailScreen) Validate(v Values) *Failure {
	return firstFailure(v,
		required(MsgFillFields, FieldEmail),
		emailFormat(FieldEmail),
	)
}

func (s *forgotEmailScreen) Submit(ctx context.Context, v Values) Outcome {
	email := strings.TrimSpace(v[FieldEmail])
	if err := s.deps.Client.RequestPasswordReset(ctx, email); err != nil {
		return stay(s.deps.requestFailure("reset request", err, msgResetRequestFailed, FieldEmail))
	}
	return navigate(RouteForgotVerify, email)
}

func (s *forgotEmailScreen) Actions() []Action {
	return []Action{backAction("back", historyBack)}
}

// forgotVerifyScreen checks the emailed reset code.
type forgotVerifyScreen struct {
	deps  *Deps
	email string
}

func (s *forgotVerifyScreen) Route() Route        { return To(RouteForgotVerify, s.email) }
func (s *forgotVerifyScreen) Title() string       { return "Check your email" }
func (s *forgotVerifyScreen) Subtitle() string    { return "Enter the code sent to " + s.email }
func (s *forgotVerifyScreen) Fields() []FieldSpec { return []FieldSpec{codeField} }

func (s *forgotVerifyScreen) Validate(v Values) *Failure {
	return required(msgEnterCode, FieldCode)(v)
}

func (s *forgotVerifyScreen) Submit(ctx context.Context, v Values) Outcome {
	code := strings.TrimSpace(v[FieldCode])
	if err := s.deps.Client.VerifyPasswordReset(ctx, s.email, code); err != nil {
		return stay(s.deps.requestFailure("reset verify", err, msgInvalidCode, FieldCode))
	}
	return navigate(RouteForgotReset, s.email)
}

func (s *forgotVerifyScreen) Actions() []Action {
	return []Action{
		backAction("back", historyBack),
		{Key: "ctrl+r", Label: "resend code", Run: s.resend},
	}
}

func (s *forgotVerifyScreen) resend(ctx context.Context, _ Values) Outcome {
	if err := s.deps.Client.RequestPasswordReset(ctx, s.email); err != nil {
		return stay(s.deps.requestFailure("reset resend", err, msgResendFailed))
	}
	s.deps.Gateway.ShowToast(msgCodeSent)
	return Outcome{Kind: OutcomeStay, Notice: msgCodeSent}
}

// forgotResetScreen sets the new password of a verified reset.
type forgotResetScreen struct {
	deps  *Deps
	email string
}

func (s *forgotResetScreen) Route() Route     { return To(RouteForgotReset, s.email) }
func (s *forgotResetScreen) Title() string    { return "Choose a new password" }
func (s *forgotResetScreen) Subtitle() string { return "Resetting the password for " + s.email }

func (s *forgotResetScreen) Fields() []FieldSpec {
	return []FieldSpec{
		passwordField(FieldPassword, "New password"),
		passwordField(FieldConfirm, "Confirm new password"),
	}
}

func (s *forgotResetScreen) Validate(v Values) *Failure {
	return firstFailure(v,
		required(MsgFillFields, FieldPassword, FieldConfirm),
		complexity(FieldPassword),
		matches(FieldPassword, FieldConfirm, MsgPasswordsMismatch, FieldConfirm),
	)
}

func (s *forgotResetScreen) Submit(ctx context.Context, v Values) Outcome {
	if err := s.deps.Client.ConfirmPasswordReset(ctx, s.email, v[FieldPassword]); err != nil {
		return stay(s.deps.requestFailure("reset confirm", err, msgResetFailed))
	}
	s.deps.Logger.Info("reset: password reset for %s", s.email)
	out := navigate(RouteLoginEmail, "")
	out.Notice = msgResetDone
	return out
}

func (s *forgotResetScreen) Actions() []Action {
	return []Action{backAction("back", historyBack)}
}
