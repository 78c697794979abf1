package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/devtoolshub/devtools-hub/internal/identity"
	"github.com/devtoolshub/devtools-hub/internal/telemetry"
	"github.com/devtoolshub/devtools-hub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireToken(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := RequireToken("s3cret", testutil.CreateTestLogger())(ok)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "Bearer nope", http.StatusUnauthorized},
		{"not bearer", "Basic s3cret", http.StatusUnauthorized},
		{"valid", "Bearer s3cret", http.StatusNoContent},
		{"case-insensitive scheme", "bearer s3cret", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequireToken_EmptyTokenDisablesCheck(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := RequireToken("", testutil.CreateTestLogger())(ok)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHTTPContext_AttachesIdentityAndSession(t *testing.T) {
	resolver := identity.NewResolver(nil, identity.Static("ada@example.com"), testutil.CreateTestLogger())
	fn := HTTPContext(resolver, testutil.CreateTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader("{}"))
	req.Header.Set("Mcp-Session-Id", "session-123")
	req.Header.Set("MCP-Protocol-Version", "1999-01-01")
	req.Header.Set("Origin", "https://evil.example")

	ctx := fn(context.Background(), req)
	id, ok := identity.FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", id.Email)
	assert.Equal(t, "session-123", telemetry.SessionIDFromContext(ctx))
}

func TestIsValidOrigin(t *testing.T) {
	assert.True(t, isValidOrigin("http://localhost"))
	assert.True(t, isValidOrigin("http://localhost:3000"))
	assert.True(t, isValidOrigin("https://127.0.0.1:8443"))
	assert.False(t, isValidOrigin("http://localhost.evil.example"))
	assert.False(t, isValidOrigin("https://example.com"))
}

func TestTimeoutSessionManager(t *testing.T) {
	m := NewTimeoutSessionManager(time.Minute, testutil.CreateTestLogger())

	id := m.Generate()
	assert.True(t, strings.HasPrefix(id, sessionPrefix))

	terminated, err := m.Validate(id)
	require.NoError(t, err)
	assert.False(t, terminated)

	_, err = m.Validate("")
	assert.Error(t, err)
	_, err = m.Validate("mcp-session-abc")
	assert.Error(t, err)

	terminated, err = m.Validate(sessionPrefix + "unknown")
	require.NoError(t, err)
	assert.True(t, terminated)

	notAllowed, err := m.Terminate(id)
	require.NoError(t, err)
	assert.False(t, notAllowed)

	terminated, err = m.Validate(id)
	require.NoError(t, err)
	assert.True(t, terminated)
}
