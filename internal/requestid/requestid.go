// Package requestid tags every request with a correlation ID. Inbound
// X-Request-ID headers are honored after sanitization so callers can
// correlate across systems; requests without one get a fresh UUID.
package requestid

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Header is the canonical request ID header name.
const Header = "X-Request-ID"

// maxLen bounds accepted inbound IDs so a hostile client cannot bloat logs.
const maxLen = 128

type ctxKey struct{}

// With returns a context carrying the given request ID.
func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// From extracts the request ID from context. The second return is false
// when no ID has been set.
func From(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Ensure returns a context guaranteed to carry a request ID, reusing the
// sanitized proposed ID when one is given and minting a UUID otherwise.
func Ensure(ctx context.Context, proposed string) (context.Context, string) {
	id := Sanitize(proposed)
	if id == "" {
		id = uuid.New().String()
	}
	return With(ctx, id), id
}

// Sanitize trims the candidate ID, strips characters that could corrupt
// log lines or headers, and caps its length. Returns "" when nothing
// usable remains.
func Sanitize(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > maxLen {
		id = id[:maxLen]
	}
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		}
	}
	return b.String()
}
