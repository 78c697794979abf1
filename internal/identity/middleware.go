package identity

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Resolver attaches an identity to a context. A nil validator or a request without a
// usable token leaves the context unchanged; the fallback identity, when set, is used
// instead.
type Resolver struct {
	validator *Validator
	fallback  *Identity
	logger    *logrus.Logger
}

// NewResolver creates a resolver. Either argument may be nil.
func NewResolver(validator *Validator, fallback *Identity, logger *logrus.Logger) *Resolver {
	return &Resolver{validator: validator, fallback: fallback, logger: logger}
}

// Resolve returns ctx with the identity for r attached, if one can be established
func (res *Resolver) Resolve(ctx context.Context, r *http.Request) context.Context {
	if res == nil {
		return ctx
	}
	if res.validator != nil && r != nil {
		id, err := res.validator.AuthenticateRequest(r)
		switch {
		case err == nil:
			return WithIdentity(ctx, id)
		case errors.Is(err, ErrNoToken):
		default:
			res.logger.WithError(err).Debug("Ignoring unusable bearer token")
		}
	}
	return WithIdentity(ctx, res.fallback)
}

// Middleware attaches the caller identity to each request context. It never rejects
// a request; handlers that need an identity check FromContext themselves.
func (res *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(res.Resolve(r.Context(), r)))
	})
}

// Static returns ctx with the fallback identity attached, for transports without
// request headers
func (res *Resolver) Static(ctx context.Context) context.Context {
	if res == nil {
		return ctx
	}
	return WithIdentity(ctx, res.fallback)
}
