package authview

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is what can be read from an access token without verifying it.
// The identity API owns verification; this is only used for logs.
type TokenInfo struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
}

// InspectToken decodes the claims of a JWT without checking its signature.
func InspectToken(raw string) (TokenInfo, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return TokenInfo{}, fmt.Errorf("inspect token: %w", err)
	}

	var info TokenInfo
	info.Subject, _ = claims.GetSubject()
	if email, ok := claims["email"].(string); ok {
		info.Email = email
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info, nil
}

// String renders the claims for a log line.
func (t TokenInfo) String() string {
	exp := "none"
	if !t.ExpiresAt.IsZero() {
		exp = t.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("sub=%q email=%q exp=%s", t.Subject, t.Email, exp)
}

// describeToken returns a log-safe description of an opaque or JWT token.
func describeToken(raw string) string {
	info, err := InspectToken(raw)
	if err != nil {
		return fmt.Sprintf("opaque token len=%d", len(raw))
	}
	return info.String()
}
