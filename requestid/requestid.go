package requestid

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Header carries the request ID on identity API calls.
const Header = "X-Request-ID"

type ctxKey struct{}

// New returns a fresh request ID in the format req-YYYYMMDD-HHMMSS-<uuid>.
// The timestamp prefix keeps IDs sortable in the log file.
func New() string {
	return fmt.Sprintf("req-%s-%s", time.Now().UTC().Format("20060102-150405"), uuid.NewString())
}

// WithContext returns a copy of ctx carrying id.
func WithContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the request ID stored in ctx, or "".
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Ensure returns the ID already in ctx, or stores and returns a new one.
func Ensure(ctx context.Context) (context.Context, string) {
	if id := FromContext(ctx); id != "" {
		return ctx, id
	}
	id := New()
	return WithContext(ctx, id), id
}

// FromRequest returns the request ID header, generating one when absent.
func FromRequest(r *http.Request) string {
	if id := r.Header.Get(Header); id != "" {
		return id
	}
	return New()
}
