package authview

import (
	"context"
	"testing"
)

// stubScreen validates with a fixed rule and records submits.
type stubScreen struct {
	rule    rule
	submits int
	out     Outcome
}

func (s *stubScreen) Route() Route     { return Route{Path: "/stub"} }
func (s *stubScreen) Title() string    { return "stub" }
func (s *stubScreen) Subtitle() string { return "" }
func (s *stubScreen) Fields() []FieldSpec {
	return []FieldSpec{{Name: FieldEmail}, {Name: FieldPassword, Secret: true}}
}
func (s *stubScreen) Validate(v Values) *Failure { return s.rule(v) }
func (s *stubScreen) Submit(context.Context, Values) Outcome {
	s.submits++
	return s.out
}
func (s *stubScreen) Actions() []Action { return nil }

func TestFormState_String(t *testing.T) {
	tests := []struct {
		s    FormState
		want string
	}{
		{StateIdle, "idle"},
		{StateValidating, "validating"},
		{StateSubmitting, "submitting"},
		{StateSuccess, "success"},
		{StateError, "error"},
		{FormState(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("FormState(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestForm_EditClearsMessageAndOwnFlag(t *testing.T) {
	s := &stubScreen{rule: required(MsgFillFields, FieldEmail, FieldPassword)}
	f := FormFor(s)

	Submit(context.Background(), s, f)
	if !f.Flagged(FieldEmail) || !f.Flagged(FieldPassword) {
		t.Fatal("both fields should be flagged")
	}

	f.Set(FieldEmail, "a")
	if f.Message != "" {
		t.Errorf("Message = %q, want cleared", f.Message)
	}
	if f.Flagged(FieldEmail) {
		t.Error("edited field flag should clear")
	}
	if !f.Flagged(FieldPassword) {
		t.Error("other field flag should remain")
	}
	if f.State != StateIdle {
		t.Errorf("State = %s, want idle", f.State)
	}
}

func TestForm_BusyRejectsSecondSubmit(t *testing.T) {
	s := &stubScreen{rule: func(Values) *Failure { return nil }}
	f := FormFor(s)

	if _, ok := f.Prepare(s); !ok {
		t.Fatal("first Prepare should succeed")
	}
	if !f.Busy() {
		t.Fatal("form should be busy after Prepare")
	}
	if _, ok := f.Prepare(s); ok {
		t.Error("second Prepare should be rejected while in flight")
	}
	if _, ok := f.Begin(); ok {
		t.Error("Begin should be rejected while in flight")
	}
	if out := Submit(context.Background(), s, f); out.Kind != OutcomeStay || s.submits != 0 {
		t.Errorf("Submit while busy ran the request (%d submits)", s.submits)
	}

	f.Apply(Outcome{Kind: OutcomeStay, Notice: "sent"})
	if f.Busy() || f.Notice != "sent" {
		t.Errorf("after Apply: state %s notice %q", f.State, f.Notice)
	}
}

func TestForm_ApplyFailure(t *testing.T) {
	s := &stubScreen{
		rule: func(Values) *Failure { return nil },
		out:  Outcome{Kind: OutcomeStay, Failure: fail("Wrong password", FieldPassword)},
	}
	f := FormFor(s)
	Submit(context.Background(), s, f)

	if s.submits != 1 {
		t.Fatalf("submits = %d, want 1", s.submits)
	}
	if f.State != StateError || f.Message != "Wrong password" || !f.Flagged(FieldPassword) {
		t.Errorf("form = state %s message %q", f.State, f.Message)
	}
}

func TestForm_ValuesIsACopy(t *testing.T) {
	f := NewForm(nil)
	f.Set(FieldEmail, "a@b.com")
	v := f.Values()
	v[FieldEmail] = "changed"
	if f.Value(FieldEmail) != "a@b.com" {
		t.Error("Values must not alias form state")
	}
}
