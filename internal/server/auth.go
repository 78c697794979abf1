package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"slices"
	"strings"

	"github.com/devtoolshub/devtools-hub/internal/identity"
	"github.com/devtoolshub/devtools-hub/internal/telemetry"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
)

var supportedProtocolVersions = []string{
	"2025-06-18",
	"2025-03-26",
	"2024-11-05",
}

var allowedOriginPrefixes = []string{
	"http://localhost",
	"https://localhost",
	"http://127.0.0.1",
	"https://127.0.0.1",
}

// HTTPContext builds the per-request context for the HTTP transports: the caller
// identity, the MCP session ID and protocol header checks.
func HTTPContext(resolver *identity.Resolver, logger *logrus.Logger) mcpserver.HTTPContextFunc {
	return func(ctx context.Context, req *http.Request) context.Context {
		if version := req.Header.Get("MCP-Protocol-Version"); version != "" && !isValidProtocolVersion(version) {
			logger.Warnf("Unsupported MCP Protocol Version: %s", version)
		}

		if origin := req.Header.Get("Origin"); origin != "" && !isValidOrigin(origin) {
			logger.Warnf("Unexpected Origin header: %s", origin)
		}

		if sessionID := req.Header.Get("Mcp-Session-Id"); sessionID != "" {
			ctx = telemetry.ContextWithSessionID(ctx, sessionID)
		}

		return resolver.Resolve(ctx, req)
	}
}

// RequireToken rejects requests whose bearer token does not match token. An empty
// token disables the check.
func RequireToken(token string, logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, err := identity.ExtractBearerToken(r.Header.Get("Authorization"))
			if err != nil || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				logger.WithField("remote", r.RemoteAddr).Warn("Rejected request with missing or invalid auth token")
				w.Header().Set("WWW-Authenticate", `Bearer realm="devtools-hub"`)
				http.Error(w, "unauthorised", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isValidProtocolVersion(version string) bool {
	return slices.Contains(supportedProtocolVersions, version)
}

// isValidOrigin accepts loopback origins only
func isValidOrigin(origin string) bool {
	for _, allowed := range allowedOriginPrefixes {
		if origin == allowed || strings.HasPrefix(origin, allowed+":") || strings.HasPrefix(origin, allowed+"/") {
			return true
		}
	}
	return false
}
