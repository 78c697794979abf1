// Package identity resolves who is calling: a bearer JWT on HTTP transports or a
// static email for stdio and CLI use. An absent identity is not an error; it only
// means conversions are not recorded.
package identity

import (
	"context"
	"net/mail"
	"strings"
)

type contextKey struct{}

// Source records how an identity was established
type Source string

const (
	SourceToken  Source = "token"
	SourceStatic Source = "static"
)

// Identity is an authenticated caller
type Identity struct {
	Email   string `json:"email"`
	Subject string `json:"subject,omitempty"`
	Source  Source `json:"source"`
}

// WithIdentity returns a context carrying id
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	if id == nil {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the caller identity, if any
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(*Identity)
	return id, ok && id != nil
}

// Static returns a fixed identity for email, or nil when email is not a valid address
func Static(email string) *Identity {
	email = normaliseEmail(email)
	if email == "" {
		return nil
	}
	return &Identity{Email: email, Source: SourceStatic}
}

// normaliseEmail returns the lower-cased bare address, or "" when s is not one
func normaliseEmail(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return ""
	}
	return strings.ToLower(addr.Address)
}
