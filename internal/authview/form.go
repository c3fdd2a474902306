package authview

import "context"

// FormState is the lifecycle state of a screen's form.
type FormState int

const (
	StateIdle FormState = iota
	StateValidating
	StateSubmitting
	StateSuccess
	StateError
)

// String returns a human-readable label for the state.
func (s FormState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Values maps field names to their current text.
type Values map[string]string

// FieldSpec describes one input on a screen.
type FieldSpec struct {
	Name        string
	Label       string
	Placeholder string
	Secret      bool
	CharLimit   int
}

// OutcomeKind says what the app should do after a submit or action.
type OutcomeKind int

const (
	OutcomeStay     OutcomeKind = iota // remain on the screen
	OutcomeNavigate                    // push Route
	OutcomeBack                        // pop in-app history
	OutcomeExit                        // the host took over navigation
	OutcomeHandoff                     // a token was handed to the host
	OutcomeConfirm                     // show Modal
)

// Outcome is the result of a screen submit or action. Screens compute it
// off the UI loop; the form applies it on the loop.
type Outcome struct {
	Kind    OutcomeKind
	Route   Route
	Failure *Failure
	Notice  string
	Modal   *Modal
	// Delivered is set for OutcomeHandoff when the host accepted the token.
	Delivered bool
}

// Action is a secondary control on a screen or modal, bound to a key.
type Action struct {
	Key   string
	Label string
	Run   func(ctx context.Context, v Values) Outcome
}

// Modal is a confirmation dialog raised by a screen.
type Modal struct {
	Title   string
	Body    string
	Actions []Action
}

// Screen is the controller for one auth step. Validate must not block;
// Submit and actions may perform one network call each and must not touch
// UI state.
type Screen interface {
	Route() Route
	Title() string
	Subtitle() string
	Fields() []FieldSpec
	Validate(v Values) *Failure
	Submit(ctx context.Context, v Values) Outcome
	Actions() []Action
}

// Form holds the transient state of the mounted screen.
type Form struct {
	fields  []FieldSpec
	values  Values
	flags   map[string]bool
	Message string
	Notice  string
	State   FormState
}

// NewForm creates an empty form for fields.
func NewForm(fields []FieldSpec) *Form {
	return &Form{
		fields: fields,
		values: Values{},
		flags:  map[string]bool{},
	}
}

// Fields returns the form's field specs.
func (f *Form) Fields() []FieldSpec {
	return f.fields
}

// Set edits a field. Any edit clears the message and that field's flag.
func (f *Form) Set(name, value string) {
	if f.values[name] == value {
		return
	}
	f.values[name] = value
	delete(f.flags, name)
	f.Message = ""
	if f.State == StateError {
		f.State = StateIdle
	}
}

// Value returns one field's text.
func (f *Form) Value(name string) string {
	return f.values[name]
}

// Values returns a copy of all field values.
func (f *Form) Values() Values {
	v := make(Values, len(f.values))
	for k, val := range f.values {
		v[k] = val
	}
	return v
}

// Flagged reports whether name is marked as erroneous.
func (f *Form) Flagged(name string) bool {
	return f.flags[name]
}

// Busy reports whether a request is in flight.
func (f *Form) Busy() bool {
	return f.State == StateSubmitting
}

// Fail records a failure and returns the form to an editable state.
func (f *Form) Fail(fl *Failure) {
	f.flags = map[string]bool{}
	for _, name := range fl.Fields {
		f.flags[name] = true
	}
	f.Message = fl.Message
	f.State = StateError
}

// Prepare validates the form for submission. It returns false when a request
// is already in flight or validation fails; otherwise the form is marked as
// submitting and the caller must deliver the result through Apply.
func (f *Form) Prepare(s Screen) (Values, bool) {
	if f.Busy() {
		return nil, false
	}
	f.State = StateValidating
	f.flags = map[string]bool{}
	f.Message = ""
	f.Notice = ""

	v := f.Values()
	if fl := s.Validate(v); fl != nil {
		f.Fail(fl)
		return nil, false
	}
	f.State = StateSubmitting
	return v, true
}

// Begin marks the form as submitting for a secondary action. It returns
// false when a request is already in flight.
func (f *Form) Begin() (Values, bool) {
	if f.Busy() {
		return nil, false
	}
	f.Message = ""
	f.Notice = ""
	f.State = StateSubmitting
	return f.Values(), true
}

// Apply records the outcome of a submit or action.
func (f *Form) Apply(out Outcome) {
	if out.Failure != nil {
		f.Fail(out.Failure)
		return
	}
	f.Notice = out.Notice
	switch out.Kind {
	case OutcomeStay, OutcomeConfirm:
		f.State = StateIdle
	default:
		f.State = StateSuccess
	}
}

// Submit runs a full submission synchronously: validation, request, and
// outcome. Used by headless callers; the TUI splits these steps around its
// event loop.
func Submit(ctx context.Context, s Screen, f *Form) Outcome {
	v, ok := f.Prepare(s)
	if !ok {
		return Outcome{Kind: OutcomeStay}
	}
	out := s.Submit(ctx, v)
	f.Apply(out)
	return out
}

// Prefiller is implemented by screens that start with some fields filled.
type Prefiller interface {
	Initial() Values
}

// FormFor creates the form for s, prefilled when s is a Prefiller.
func FormFor(s Screen) *Form {
	f := NewForm(s.Fields())
	if p, ok := s.(Prefiller); ok {
		for k, v := range p.Initial() {
			f.values[k] = v
		}
	}
	return f
}
