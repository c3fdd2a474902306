package authview

import (
	"fmt"
	"net/url"
	"strings"
)

// Screen routes. They mirror the paths of the hosted web flow so a host can
// deep link with the same URL it would load in a WebView.
const (
	RouteHome           = "/"
	RouteSignupEmail    = "/auth/email-signup"
	RouteSignupVerify   = "/auth/email-signup/verify"
	RouteSignupPassword = "/auth/email-signup/password"
	RouteLoginEmail     = "/auth/email-login"
	RouteLoginPassword  = "/auth/email-login/password"
	RouteForgotEmail    = "/auth/forgot-pswd"
	RouteForgotVerify   = "/auth/forgot-pswd/verify"
	RouteForgotReset    = "/auth/forgot-pswd/reset"
	RouteChangePassword = "/auth/change-password"
	RouteDeleteAccount  = "/auth/delete-account"
)

// Route is a screen path plus its email query parameter.
type Route struct {
	Path  string
	Email string
}

// ParseRoute parses a deep link such as
// "/auth/email-signup/verify?email=a%40b.com". A full URL is accepted; only
// its path and query are used.
func ParseRoute(raw string) (Route, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Route{}, fmt.Errorf("parse route %q: %w", raw, err)
	}
	path := strings.TrimRight(u.Path, "/")
	if path == "" {
		path = RouteHome
	}
	return Route{Path: path, Email: u.Query().Get("email")}, nil
}

// To returns a route for path carrying email.
func To(path, email string) Route {
	return Route{Path: path, Email: email}
}

// String renders the route as a URL path with an encoded email parameter.
func (r Route) String() string {
	if r.Email == "" {
		return r.Path
	}
	return r.Path + "?" + url.Values{"email": {r.Email}}.Encode()
}

// History is the in-app navigation stack used when no host can navigate back.
type History struct {
	stack []Route
}

// Push records from before navigating away from it.
func (h *History) Push(from Route) {
	h.stack = append(h.stack, from)
}

// Pop returns the previous route, or false at the start of the flow.
func (h *History) Pop() (Route, bool) {
	if len(h.stack) == 0 {
		return Route{}, false
	}
	r := h.stack[len(h.stack)-1]
	h.stack = h.stack[:len(h.stack)-1]
	return r, true
}

// Len returns the number of routes that can be popped.
func (h *History) Len() int {
	return len(h.stack)
}
