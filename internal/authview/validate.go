package authview

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field names used across screens.
const (
	FieldEmail    = "email"
	FieldPassword = "password"
	FieldConfirm  = "confirm"
	FieldCurrent  = "current"
	FieldCode     = "code"
)

const (
	minPasswordLength = 8
	passwordSymbols   = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailRe.MatchString(s)
}

// StrongPassword reports whether s has at least eight characters, a digit
// and a symbol.
func StrongPassword(s string) bool {
	if utf8.RuneCountInString(s) < minPasswordLength {
		return false
	}
	return strings.ContainsAny(s, "0123456789") && strings.ContainsAny(s, passwordSymbols)
}

// Failure is a validation or request failure: one message plus the fields
// it concerns.
type Failure struct {
	Message string
	Fields  []string
}

func fail(msg string, fields ...string) *Failure {
	return &Failure{Message: msg, Fields: fields}
}

// rule checks one condition over the form values.
type rule func(v Values) *Failure

// firstFailure applies rules in order and returns the first failure.
func firstFailure(v Values, rules ...rule) *Failure {
	for _, r := range rules {
		if f := r(v); f != nil {
			return f
		}
	}
	return nil
}

// required flags every empty field among names.
func required(msg string, names ...string) rule {
	return func(v Values) *Failure {
		var missing []string
		for _, n := range names {
			if strings.TrimSpace(v[n]) == "" {
				missing = append(missing, n)
			}
		}
		if len(missing) == 0 {
			return nil
		}
		return fail(msg, missing...)
	}
}

func emailFormat(name string) rule {
	return func(v Values) *Failure {
		if !ValidEmail(strings.TrimSpace(v[name])) {
			return fail(MsgInvalidEmail, name)
		}
		return nil
	}
}

func complexity(name string) rule {
	return func(v Values) *Failure {
		if !StrongPassword(v[name]) {
			return fail(MsgPasswordTooWeak, name)
		}
		return nil
	}
}

// matches requires v[a] == v[b], flagging the given fields otherwise.
func matches(a, b, msg string, flagged ...string) rule {
	return func(v Values) *Failure {
		if v[a] != v[b] {
			return fail(msg, flagged...)
		}
		return nil
	}
}

// differs requires v[a] != v[b].
func differs(a, b, msg string, flagged ...string) rule {
	return func(v Values) *Failure {
		if v[a] == v[b] {
			return fail(msg, flagged...)
		}
		return nil
	}
}
