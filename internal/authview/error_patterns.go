package authview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// User-facing messages shared by every screen.
const (
	MsgNetworkError      = "Network error. Please check your internet connection and try again."
	MsgAPIURLMissing     = "API URL is not configured. Please check your environment variables."
	MsgSecureConnection  = "Secure connection to the API failed. Please check API configuration."
	MsgUnauthenticated   = "Unable to authenticate. Please try again."
	MsgNoAccessToken     = "No access token received"
	MsgFillFields        = "Please fill the fields below to continue"
	MsgInvalidEmail      = "Please enter a valid email address"
	MsgPasswordTooWeak   = "Password must be at least 8 characters and include a number and a special character"
	MsgPasswordsMismatch = "Passwords do not match"
)

// ErrAPIURLMissing is returned by every client call when no base URL is set.
var ErrAPIURLMissing = errors.New("api url not configured")

// APIError is a non-2xx response from the identity API.
type APIError struct {
	Status  int
	Message string // extracted server message, may be empty
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// TransportError is a failure to reach the identity API at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// errorBody covers the error shapes the identity API returns.
type errorBody struct {
	Auth0Error *struct {
		Message string `json:"message"`
	} `json:"auth0_error"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// extractMessage picks the server message from an error body in priority
// order auth0_error.message, message, error. Non-JSON bodies yield "".
func extractMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	switch {
	case eb.Auth0Error != nil && eb.Auth0Error.Message != "":
		return eb.Auth0Error.Message
	case eb.Message != "":
		return eb.Message
	default:
		return eb.Error
	}
}

// TransportPattern maps a known transport failure signature to a message.
type TransportPattern struct {
	Regex       *regexp.Regexp // Matched against the lower-cased error text.
	Message     string         // Text shown to the user.
	Description string         // Short label for the log.
}

// TransportPatternRegistry classifies transport errors.
type TransportPatternRegistry struct {
	patterns []TransportPattern
}

// NewTransportPatternRegistry creates a registry with the built-in patterns.
func NewTransportPatternRegistry() *TransportPatternRegistry {
	return &TransportPatternRegistry{patterns: DefaultTransportPatterns()}
}

// Match returns the first pattern matching err, or nil.
func (r *TransportPatternRegistry) Match(err error) *TransportPattern {
	if err == nil {
		return nil
	}
	text := strings.ToLower(err.Error())
	for i := range r.patterns {
		if r.patterns[i].Regex.MatchString(text) {
			return &r.patterns[i]
		}
	}
	return nil
}

// AddPattern adds a custom pattern to the registry.
func (r *TransportPatternRegistry) AddPattern(p TransportPattern) {
	r.patterns = append(r.patterns, p)
}

// DefaultTransportPatterns returns the built-in transport failure patterns.
func DefaultTransportPatterns() []TransportPattern {
	return []TransportPattern{
		{
			Regex:       regexp.MustCompile(`x509|certificate|tls: `),
			Message:     MsgSecureConnection,
			Description: "TLS handshake failed",
		},
		{
			Regex:       regexp.MustCompile(`connection refused`),
			Message:     MsgNetworkError,
			Description: "connection refused",
		},
		{
			Regex:       regexp.MustCompile(`no such host|server misbehaving`),
			Message:     MsgNetworkError,
			Description: "DNS lookup failed",
		},
		{
			Regex:       regexp.MustCompile(`timeout|deadline exceeded`),
			Message:     MsgNetworkError,
			Description: "request timed out",
		},
		{
			Regex:       regexp.MustCompile(`connection reset|broken pipe|eof`),
			Message:     MsgNetworkError,
			Description: "connection dropped",
		},
	}
}

var transportPatterns = NewTransportPatternRegistry()

// UserMessage turns a client error into the message a screen shows. Server
// rejections without a message use fallback.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	var tErr *TransportError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAPIURLMissing):
		return MsgAPIURLMissing
	case errors.As(err, &apiErr):
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fallback
	case errors.As(err, &tErr):
		if p := transportPatterns.Match(tErr); p != nil {
			return p.Message
		}
		return MsgNetworkError
	default:
		return fallback
	}
}

// DescribeError returns a short label for logging a client error.
func DescribeError(err error) string {
	var apiErr *APIError
	var tErr *TransportError
	switch {
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, ErrAPIURLMissing):
		return "api url missing"
	case errors.As(err, &apiErr):
		return fmt.Sprintf("rejected with HTTP %d", apiErr.Status)
	case errors.As(err, &tErr):
		if p := transportPatterns.Match(tErr); p != nil {
			return p.Description
		}
		return "transport failure"
	default:
		return "error"
	}
}
