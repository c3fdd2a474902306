// Package bridge connects auth screens to the native host application that
// embeds them. The host attaches asynchronously and may offer any subset of
// its callbacks; every call across the boundary is best effort and never
// fails the calling screen.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Default acquisition timeouts.
const (
	DefaultAcquireTimeout = 5 * time.Second
	DefaultBackTimeout    = 2 * time.Second
)

// Logger is the logging surface the gateway writes to.
type Logger interface {
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// AlertFunc shows a user-visible message when the host cannot be notified.
type AlertFunc func(message string)

// Delivery describes what happened to a host notification.
type Delivery int

const (
	Delivered  Delivery = iota // the host callback ran without error
	Fallback                   // no suitable host callback; alert or in-app fallback used
	Suppressed                 // duplicate signup notification skipped
	Failed                     // the host callback returned an error or panicked
)

// String returns a human-readable label for the delivery.
func (d Delivery) String() string {
	switch d {
	case Delivered:
		return "delivered"
	case Fallback:
		return "fallback"
	case Suppressed:
		return "suppressed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Gateway is the screens' view of the host.
type Gateway struct {
	slot           *Slot
	clock          Clock
	logger         Logger
	alert          AlertFunc
	signups        *Correlator
	acquireTimeout time.Duration
	backTimeout    time.Duration
	dedupWindow    time.Duration
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithClock sets the clock used for acquisition and de-duplication.
func WithClock(c Clock) Option { return func(g *Gateway) { g.clock = c } }

// WithLogger sets the gateway logger.
func WithLogger(l Logger) Option { return func(g *Gateway) { g.logger = l } }

// WithAlert sets the browser-mode alert.
func WithAlert(fn AlertFunc) Option { return func(g *Gateway) { g.alert = fn } }

// WithTimeouts overrides the acquisition timeouts. Non-positive values keep
// the defaults.
func WithTimeouts(acquire, back time.Duration) Option {
	return func(g *Gateway) {
		if acquire > 0 {
			g.acquireTimeout = acquire
		}
		if back > 0 {
			g.backTimeout = back
		}
	}
}

// WithDedupWindow overrides the signup de-duplication window.
func WithDedupWindow(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.dedupWindow = d
		}
	}
}

// New creates a gateway over slot.
func New(slot *Slot, opts ...Option) *Gateway {
	g := &Gateway{
		slot:           slot,
		clock:          SystemClock(),
		logger:         nopLogger{},
		acquireTimeout: DefaultAcquireTimeout,
		backTimeout:    DefaultBackTimeout,
		dedupWindow:    DefaultDedupWindow,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.slot == nil {
		g.slot = NewSlot()
	}
	if g.alert == nil {
		logger := g.logger
		g.alert = func(msg string) { logger.Warn("bridge: alert: %s", msg) }
	}
	g.signups = NewCorrelator(g.dedupWindow, g.clock)
	return g
}

// Slot returns the slot hosts attach to.
func (g *Gateway) Slot() *Slot { return g.slot }

// Acquire waits for a host to attach. It resolves once: to the host when it
// attaches, or to Unavailable when timeout elapses or ctx is done. Absence
// is not an error; screens run in browser mode without a host.
func (g *Gateway) Acquire(ctx context.Context, timeout time.Duration) Handle {
	if h := g.slot.Current(); h.OK() {
		return h
	}
	if timeout <= 0 {
		timeout = g.acquireTimeout
	}
	deadline := g.clock.After(timeout)
	for {
		select {
		case <-g.slot.readyChan():
			if h := g.slot.Current(); h.OK() {
				return h
			}
			// Detached between wake-up and read; keep waiting.
		case <-deadline:
			g.logger.Warn("bridge: host not attached after %s", timeout)
			return Unavailable()
		case <-ctx.Done():
			g.logger.Info("bridge: acquisition cancelled: %v", ctx.Err())
			return Unavailable()
		}
	}
}

// NotifyLoginSuccess hands an access token to the host. The two-argument
// callback is preferred when an email is known.
func (g *Gateway) NotifyLoginSuccess(ctx context.Context, token, email string) Delivery {
	g.logger.Info("bridge: login success (token %s, email=%q)", preview(token), email)

	h := g.Acquire(ctx, g.acquireTimeout)
	caps := h.Capabilities()
	switch {
	case h.OK() && email != "" && caps.LoginSuccessWithEmail != nil:
		return g.deliver(MethodOnLoginSuccessWithEmail, func() error {
			return caps.LoginSuccessWithEmail(token, email)
		})
	case h.OK() && caps.LoginSuccess != nil:
		return g.deliver(MethodOnLoginSuccess, func() error {
			return caps.LoginSuccess(token)
		})
	}

	msg := "Login successful! (Browser mode)\nToken: " + truncate(token, 50) + "..."
	if email != "" {
		msg += "\nEmail: " + email
	}
	g.alert(msg)
	return Fallback
}

// NotifySignupSuccessWithEmail hands a new account's token and email to the
// host. On success the email is recorded so that a single-argument
// notification for the same signup arriving right after is suppressed. The
// host error, if any, is returned so callers can fall back to the payload
// form.
func (g *Gateway) NotifySignupSuccessWithEmail(ctx context.Context, token, email string) (Delivery, error) {
	g.logger.Info("bridge: signup success (token %s, email=%q)", preview(token), email)

	h := g.Acquire(ctx, g.acquireTimeout)
	caps := h.Capabilities()
	if h.OK() && caps.SignupSuccessWithEmail != nil {
		err := safeCall(MethodOnSignupSuccessWithEmail, func() error {
			return caps.SignupSuccessWithEmail(token, email)
		})
		if err != nil {
			g.logger.Error("bridge: %v", err)
			return Failed, err
		}
		g.signups.Record(email)
		return Delivered, nil
	}

	g.logger.Warn("bridge: %s not available, using browser mode", MethodOnSignupSuccessWithEmail)
	g.alert("Signup successful! (Browser mode)\nEmail: " + email + "\nToken (truncated): " + truncate(token, 50))
	return Fallback, nil
}

// signupPayload is the JSON form of the single-argument signup payload.
type signupPayload struct {
	AccessToken string `json:"access_token"`
	Email       string `json:"email"`
}

// NotifySignupSuccess is the single-argument signup notification. payload is
// either a JSON object carrying access_token and email or a raw string.
func (g *Gateway) NotifySignupSuccess(ctx context.Context, payload string) Delivery {
	g.logger.Info("bridge: signup success payload (%s)", preview(payload))

	h := g.Acquire(ctx, g.acquireTimeout)
	if !h.OK() {
		g.logger.Warn("bridge: no host attached, using browser mode")
		g.alert("Password set successfully! (Browser mode)\nToken/Info: " + payload)
		return Fallback
	}

	var parsed signupPayload
	isJSON := json.Unmarshal([]byte(payload), &parsed) == nil

	email := payload
	if isJSON {
		email = parsed.Email
	}
	if g.signups.Recent(email) {
		g.logger.Info("bridge: skipping duplicate signup notification for %q", email)
		return Suppressed
	}

	caps := h.Capabilities()
	switch {
	case caps.SignupSuccessWithEmail != nil && isJSON && parsed.AccessToken != "" && parsed.Email != "":
		return g.deliver(MethodOnSignupSuccessWithEmail, func() error {
			return caps.SignupSuccessWithEmail(parsed.AccessToken, parsed.Email)
		})
	case caps.SignupSuccess != nil:
		return g.deliver(MethodOnSignupSuccess, func() error {
			return caps.SignupSuccess(payload)
		})
	}

	g.logger.Warn("bridge: no signup callback usable for payload, using browser mode")
	g.alert("Password set successfully! (Browser mode)\nToken/Info: " + payload)
	return Fallback
}

// ShowToast asks the host to display message. It does not wait for a host.
func (g *Gateway) ShowToast(message string) Delivery {
	caps := g.slot.Current().Capabilities()
	if caps.ShowToast == nil {
		g.logger.Info("bridge: toast: %s", message)
		return Fallback
	}
	return g.deliver(MethodShowToast, func() error { return caps.ShowToast(message) })
}

// NavigateBack returns control to the host. It tries the attached host
// immediately, then waits up to the back timeout for one, and finally runs
// fallback (in-app history) when no host can navigate.
func (g *Gateway) NavigateBack(ctx context.Context, fallback func()) Delivery {
	if g.tryBack(g.slot.Current()) {
		return Delivered
	}
	if g.tryBack(g.Acquire(ctx, g.backTimeout)) {
		return Delivered
	}

	g.logger.Info("bridge: %s not available, using in-app history", MethodNavigateBack)
	if fallback != nil {
		fallback()
	}
	return Fallback
}

func (g *Gateway) tryBack(h Handle) bool {
	back := h.Capabilities().NavigateBack
	if !h.OK() || back == nil {
		return false
	}
	if err := safeCall(MethodNavigateBack, back); err != nil {
		g.logger.Error("bridge: %v", err)
		return false
	}
	return true
}

// AccessToken reads the host's access token. It returns "" when the host is
// absent, lacks the capability, or fails.
func (g *Gateway) AccessToken() string {
	return g.read(MethodGetAccessToken, g.slot.Current().Capabilities().AccessToken)
}

// IDToken reads the host's social sign-in ID token, or "".
func (g *Gateway) IDToken() string {
	return g.read(MethodGetIDToken, g.slot.Current().Capabilities().IDToken)
}

// NotifyPasswordChanged tells the host the password changed, if it listens.
func (g *Gateway) NotifyPasswordChanged() Delivery {
	caps := g.slot.Current().Capabilities()
	if caps.PasswordChanged == nil {
		return Fallback
	}
	return g.deliver(MethodOnPasswordChanged, caps.PasswordChanged)
}

// NotifyAccountDeleted tells the host the account is gone, if it listens.
func (g *Gateway) NotifyAccountDeleted() Delivery {
	caps := g.slot.Current().Capabilities()
	if caps.AccountDeleted == nil {
		return Fallback
	}
	return g.deliver(MethodOnAccountDeleted, caps.AccountDeleted)
}

func (g *Gateway) deliver(method string, fn func() error) Delivery {
	if err := safeCall(method, fn); err != nil {
		g.logger.Error("bridge: %v", err)
		return Failed
	}
	g.logger.Info("bridge: %s delivered", method)
	return Delivered
}

func (g *Gateway) read(method string, fn func() (string, error)) string {
	if fn == nil {
		return ""
	}
	var value string
	err := safeCall(method, func() error {
		v, err := fn()
		value = v
		return err
	})
	if err != nil {
		g.logger.Error("bridge: %v", err)
		return ""
	}
	return value
}

// safeCall runs a host callback, converting panics into errors.
func safeCall(method string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: host panic: %v", method, r)
		}
	}()
	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// preview masks a token for logging.
func preview(token string) string {
	if len(token) <= 12 {
		return fmt.Sprintf("len=%d", len(token))
	}
	return fmt.Sprintf("%s…%s len=%d", token[:6], token[len(token)-4:], len(token))
}
