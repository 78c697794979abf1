package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/devtoolshub/devtools-hub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_AttachesTokenIdentity(t *testing.T) {
	v := newHMACValidator(t, Config{})
	res := NewResolver(v, nil, testutil.CreateTestLogger())

	var got *Identity
	h := res.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signHS256(t, Claims{Email: "ada@example.com"}))
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	assert.Equal(t, "ada@example.com", got.Email)
}

func TestMiddleware_NeverRejects(t *testing.T) {
	v := newHMACValidator(t, Config{})
	res := NewResolver(v, nil, testutil.CreateTestLogger())

	called := false
	h := res.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, ok := FromContext(r.Context())
		assert.False(t, ok)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nonsense")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestResolver_Fallback(t *testing.T) {
	res := NewResolver(nil, Static("cli@example.com"), testutil.CreateTestLogger())

	id, ok := FromContext(res.Static(context.Background()))
	require.True(t, ok)
	assert.Equal(t, SourceStatic, id.Source)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	id, ok = FromContext(res.Resolve(context.Background(), req))
	require.True(t, ok)
	assert.Equal(t, "cli@example.com", id.Email)

	var nilResolver *Resolver
	_, ok = FromContext(nilResolver.Static(context.Background()))
	assert.False(t, ok)
}

func TestStatic(t *testing.T) {
	assert.Nil(t, Static(""))
	assert.Nil(t, Static("not an email"))
	assert.Nil(t, Static("Ada <ada@example.com>"))
	assert.Equal(t, "ada@example.com", Static(" ADA@example.com ").Email)
}
