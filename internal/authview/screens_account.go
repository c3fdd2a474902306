package authview

import "context"

const (
	msgNewPasswordsMismatch = "New passwords do not match"
	msgSameAsCurrent        = "New password must be different from current password"
	msgChangeFailed         = "Failed to change password"
	msgPasswordChanged      = "Password changed"
	msgEnterPassword        = "Please enter your password to continue."
	msgInvalidPassword      = "Invalid password. Please try again."
	msgValidateFailed       = "Failed to validate password"
	msgDeleteFailed         = "Failed to delete account"
)

// changePasswordScreen changes the signed-in user's password.
type changePasswordScreen struct {
	deps *Deps
}

func (s *changePasswordScreen) Route() Route     { return Route{Path: RouteChangePassword} }
func (s *changePasswordScreen) Title() string    { return "Change password" }
func (s *changePasswordScreen) Subtitle() string { return "" }

func (s *changePasswordScreen) Fields() []FieldSpec {
	return []FieldSpec{
		passwordField(FieldCurrent, "Current password"),
		passwordField(FieldPassword, "New password"),
		passwordField(FieldConfirm, "Confirm new password"),
	}
}

func (s *changePasswordScreen) Validate(v Values) *Failure {
	return firstFailure(v,
		required(MsgFillFields, FieldCurrent, FieldPassword, FieldConfirm),
		complexity(FieldPassword),
		matches(FieldPassword, FieldConfirm, msgNewPasswordsMismatch, FieldConfirm),
		differs(FieldCurrent, FieldPassword, msgSameAsCurrent, FieldPassword),
	)
}

func (s *changePasswordScreen) Submit(ctx context.Context, v Values) Outcome {
	token, fl := s.deps.bearer("change password")
	if fl != nil {
		return stay(fl)
	}
	if err := s.deps.Client.ChangePassword(ctx, token, v[FieldCurrent], v[FieldPassword]); err != nil {
		return stay(s.deps.requestFailure("change password", err, msgChangeFailed))
	}

	s.deps.Gateway.NotifyPasswordChanged()
	out := s.deps.returnToHost(ctx)
	out.Notice = msgPasswordChanged
	return out
}

func (s *changePasswordScreen) Actions() []Action {
	return []Action{
		backAction("back to app", func(ctx context.Context, _ Values) Outcome {
			return s.deps.returnToHost(ctx)
		}),
		linkAction("ctrl+f", "forgot password", RouteForgotEmail),
	}
}

// deleteAccountScreen confirms the password, then deletes the account after
// an explicit confirmation.
type deleteAccountScreen struct {
	deps *Deps
}

func (s *deleteAccountScreen) Route() Route  { return Route{Path: RouteDeleteAccount} }
func (s *deleteAccountScreen) Title() string { return "Delete account" }
func (s *deleteAccountScreen) Subtitle() string {
	return "This permanently removes your account and data."
}

func (s *deleteAccountScreen) Fields() []FieldSpec {
	return []FieldSpec{passwordField(FieldPassword, "Password")}
}

func (s *deleteAccountScreen) Validate(v Values) *Failure {
	return required(msgEnterPassword, FieldPassword)(v)
}

func (s *deleteAccountScreen) Submit(ctx context.Context, v Values) Outcome {
	token, fl := s.deps.bearer("delete account")
	if fl != nil {
		return stay(fl)
	}
	valid, err := s.deps.Client.ValidatePassword(ctx, token, v[FieldPassword])
	if err != nil {
		return stay(s.deps.requestFailure("validate password", err, msgValidateFailed, FieldPassword))
	}
	if !valid {
		return stay(fail(msgInvalidPassword, FieldPassword))
	}
	return Outcome{Kind: OutcomeConfirm, Modal: s.confirmModal()}
}

func (s *deleteAccountScreen) confirmModal() *Modal {
	return &Modal{
		Title: "Delete your account?",
		Body:  "This cannot be undone. All of your data will be permanently removed.",
		Actions: []Action{
			{Key: "y", Label: "delete account", Run: s.confirm},
			{Key: "n", Label: "cancel", Run: func(context.Context, Values) Outcome {
				return Outcome{Kind: OutcomeStay}
			}},
			{Key: "b", Label: "return to account", Run: func(ctx context.Context, _ Values) Outcome {
				return s.deps.returnToHost(ctx)
			}},
		},
	}
}

// confirm deletes the account. The password was validated before the modal
// opened and is sent again with the delete request.
func (s *deleteAccountScreen) confirm(ctx context.Context, v Values) Outcome {
	token, fl := s.deps.bearer("delete account")
	if fl != nil {
		return stay(fl)
	}
	if err := s.deps.Client.DeleteAccount(ctx, token, v[FieldPassword]); err != nil {
		return stay(s.deps.requestFailure("delete account", err, msgDeleteFailed, FieldPassword))
	}
	s.deps.Logger.Info("delete account: account deleted")
	s.deps.Gateway.NotifyAccountDeleted()
	return s.deps.returnToHost(ctx)
}

func (s *deleteAccountScreen) Actions() []Action {
	return []Action{
		backAction("back to app", func(ctx context.Context, _ Values) Outcome {
			return s.deps.returnToHost(ctx)
		}),
	}
}
